package raft

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/Konstantsiy/casual-raft/internal/diag"
)

const dialTimeout = 50 * time.Millisecond

// Transport owns the one unix-domain listener a replica's event loop polls,
// and dials out a short-lived connection per outgoing message. No other
// entity may send or receive on it, matching the single-owner socket rule.
type Transport struct {
	baseDir string
	id      string
	ln      *net.UnixListener
	log     *diag.Logger
}

// socketPath is the well-known unix socket path for a replica id, bound
// under baseDir.
func socketPath(baseDir, id string) string {
	return filepath.Join(baseDir, fmt.Sprintf("raft-%s.sock", id))
}

// NewTransport binds a listening unix socket at the path keyed by id,
// removing any stale socket file left behind by a prior run.
func NewTransport(baseDir, id string, log *diag.Logger) (*Transport, error) {
	path := socketPath(baseDir, id)
	_ = os.Remove(path)

	addr, err := net.ResolveUnixAddr("unix", path)
	if err != nil {
		return nil, err
	}

	ln, err := net.ListenUnix("unix", addr)
	if err != nil {
		return nil, err
	}

	return &Transport{baseDir: baseDir, id: id, ln: ln, log: log}, nil
}

// Poll waits up to timeout for one incoming connection, reads a single
// newline-delimited message from it, and closes the connection. A timeout
// with nothing ready is reported as (Envelope{}, false, nil).
func (t *Transport) Poll(timeout time.Duration) (Envelope, bool, error) {
	if err := t.ln.SetDeadline(time.Now().Add(timeout)); err != nil {
		return Envelope{}, false, err
	}

	conn, err := t.ln.Accept()
	if err != nil {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return Envelope{}, false, nil
		}
		return Envelope{}, false, err
	}
	defer conn.Close()

	line, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil && len(line) == 0 {
		return Envelope{}, false, nil
	}

	msg, err := DecodeMessage(line)
	if err != nil {
		t.log.Drop("dropping malformed message: %v", err)
		return Envelope{}, false, nil
	}

	return msg, true, nil
}

// Send dials the destination replica's socket and writes one message,
// fire-and-forget. Failures (peer down, socket missing) are logged and
// swallowed: the caller's retry/timeout machinery covers them.
func (t *Transport) Send(dst string, m Envelope) {
	path := socketPath(t.baseDir, dst)

	conn, err := net.DialTimeout("unix", path, dialTimeout)
	if err != nil {
		t.log.Drop("send to %s failed: %v", dst, err)
		return
	}
	defer conn.Close()

	data, err := EncodeMessage(m)
	if err != nil {
		t.log.Drop("encode message to %s failed: %v", dst, err)
		return
	}

	if _, err := conn.Write(data); err != nil {
		t.log.Drop("short send to %s: %v", dst, err)
	}
}

// Close releases the listening socket and removes its file.
func (t *Transport) Close() error {
	err := t.ln.Close()
	_ = os.Remove(socketPath(t.baseDir, t.id))
	return err
}
