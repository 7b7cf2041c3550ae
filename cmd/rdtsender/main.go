// Command rdtsender reads a payload from standard input and reliably
// delivers it to a receiver over an unreliable datagram channel, using
// sliding-window flow control with TCP-style congestion control.
package main

import (
	"log"
	"net"
	"os"

	flags "github.com/jessevdk/go-flags"
	"github.com/google/uuid"

	"github.com/Konstantsiy/casual-raft/internal/diag"
	"github.com/Konstantsiy/casual-raft/rdt"
)

type options struct {
	Positional struct {
		Address string `positional-arg-name:"HOST:PORT" description:"receiver address"`
	} `positional-args:"yes" required:"yes"`
}

func main() {
	var opts options
	parser := flags.NewParser(&opts, flags.Default)
	parser.ShortDescription = "rdtsender"
	parser.LongDescription = "Reliable data transfer sender over UDP"

	if _, err := parser.Parse(); err != nil {
		if fe, ok := err.(*flags.Error); ok && fe.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	runID := uuid.NewString()[:8]
	logger := diag.New(runID)

	conn, err := net.Dial("udp", opts.Positional.Address)
	if err != nil {
		log.Fatalf("rdtsender: dial %s: %v", opts.Positional.Address, err)
	}
	defer conn.Close()

	logger.Info("sending to %s", opts.Positional.Address)

	sender := rdt.NewSender(conn, os.Stdin, logger)
	if err := sender.Run(nil); err != nil {
		logger.Drop("sender exited with error: %v", err)
		os.Exit(1)
	}

	logger.Info("transfer complete")
	os.Exit(0)
}
