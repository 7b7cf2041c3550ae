// Command raftreplica runs one replica of a leader-based consensus cluster,
// replicating a log over unix-domain sockets and applying committed entries
// to an in-memory key-value state machine.
package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	flags "github.com/jessevdk/go-flags"

	"github.com/Konstantsiy/casual-raft/internal/diag"
	"github.com/Konstantsiy/casual-raft/raft"
)

type options struct {
	Config  string `long:"config" description:"cluster config yaml (overrides positional args)"`
	BaseDir string `long:"base-dir" default:"/tmp/raft" description:"directory holding every replica's unix socket"`

	Positional struct {
		ID    string   `positional-arg-name:"ID" description:"this replica's id"`
		Peers []string `positional-arg-name:"PEER" description:"every other replica's id"`
	} `positional-args:"yes"`
}

func main() {
	var opts options
	parser := flags.NewParser(&opts, flags.Default)
	parser.ShortDescription = "raftreplica"
	parser.LongDescription = "Leader-based consensus replica over unix-domain sockets"

	if _, err := parser.Parse(); err != nil {
		if fe, ok := err.(*flags.Error); ok && fe.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	id := opts.Positional.ID
	peers := opts.Positional.Peers
	baseDir := opts.BaseDir

	if opts.Config != "" {
		cfg, err := raft.LoadConfig(opts.Config)
		if err != nil {
			log.Fatalf("raftreplica: %v", err)
		}
		id = cfg.Node.ID
		baseDir = cfg.Node.BaseDir
		peers = cfg.PeerIDs()
	}

	if id == "" {
		log.Fatal("raftreplica: replica id must be provided (positional arg or --config)")
	}
	if len(peers) == 0 {
		log.Fatal("raftreplica: at least one peer must be provided (positional args or --config)")
	}

	if err := os.MkdirAll(baseDir, 0755); err != nil {
		log.Fatalf("raftreplica: create base dir: %v", err)
	}

	logger := diag.New(id)

	transport, err := raft.NewTransport(baseDir, id, logger)
	if err != nil {
		log.Fatalf("raftreplica: listen: %v", err)
	}
	defer transport.Close()

	replica := raft.NewReplica(id, peers, transport, logger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		<-sigChan
		logger.Info("shutting down...")
		close(done)
	}()

	logger.Info("replica %s listening, peers=%v", id, peers)
	if err := replica.Run(done); err != nil {
		logger.Drop("event loop exited with error: %v", err)
		os.Exit(1)
	}
}
