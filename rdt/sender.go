package rdt

import (
	"errors"
	"io"
	"math"
	"net"
	"time"

	"github.com/Konstantsiy/casual-raft/internal/diag"
)

// inactivityTimeout is the global no-ack timer: no acknowledgment for this
// long triggers a timeout response regardless of any per-entry retransmit.
const inactivityTimeout = 1 * time.Second

// retransmitFactor scales the per-entry retransmit deadline by cwnd, so a
// wider window backs off its retransmit cadence along with it.
const retransmitFactor = 0.2

// pollInterval bounds how long a single receive blocks, so the retransmit
// and inactivity checks run promptly even with nothing arriving.
const pollInterval = 10 * time.Millisecond

// Sender is the RDT sender event loop: it reads bytes from input, fills the
// congestion window, processes acknowledgments, and schedules
// retransmissions, all from a single goroutine.
type Sender struct {
	conn  net.Conn
	input io.Reader
	log   *diag.Logger

	cc          *Controller
	outstanding *TransmitBuffer

	nextSeq        int
	inputExhausted bool
	lastAckTime    time.Time
}

// NewSender wires a Sender to an already-connected datagram socket and an
// input stream (normally the process's stdin).
func NewSender(conn net.Conn, input io.Reader, log *diag.Logger) *Sender {
	return &Sender{
		conn:        conn,
		input:       input,
		log:         log,
		cc:          NewController(),
		outstanding: NewTransmitBuffer(),
	}
}

// Run drives the sender to completion: it returns nil once every byte of
// input has been sent and acknowledged and the five termination EOFs have
// gone out, or a non-nil error if the socket itself fails outright.
func (s *Sender) Run(done <-chan struct{}) error {
	s.lastAckTime = time.Now()
	recvBuf := make([]byte, MaxDatagramSize)

	for {
		select {
		case <-done:
			return nil
		default:
		}

		now := time.Now()

		s.retransmitPass(now)

		if now.Sub(s.lastAckTime) >= inactivityTimeout {
			s.cc.OnTimeout()
			s.lastAckTime = now
			s.log.Warn("inactivity timeout: cwnd=%.2f ssthresh=%.2f", s.cc.Cwnd(), s.cc.Ssthresh())
		}

		if err := s.conn.SetReadDeadline(now.Add(pollInterval)); err != nil {
			return err
		}
		n, err := s.conn.Read(recvBuf)
		if err == nil && n > 0 {
			s.handleDatagram(recvBuf[:n])
		} else if err != nil && !isTimeout(err) {
			return err
		}

		if s.outstanding.Empty() {
			if s.inputExhausted {
				return s.terminate()
			}
			if err := s.refillWindow(); err != nil {
				return err
			}
		}
	}
}

// retransmitPass resends any outstanding entry that has waited at least
// 0.2*cwnd seconds since it was last put on the wire.
func (s *Sender) retransmitPass(now time.Time) {
	deadline := time.Duration(retransmitFactor * s.cc.Cwnd() * float64(time.Second))
	for _, seq := range s.outstanding.Sequences() {
		entry, ok := s.outstanding.Get(seq)
		if !ok {
			continue
		}
		if now.Sub(entry.LastSend) >= deadline {
			if err := s.sendSegment(entry.Segment); err != nil {
				continue
			}
			s.outstanding.Touch(seq, now)
			s.log.Warn("retransmit seq=%d", seq)
		}
	}
}

// handleDatagram decodes one incoming ack, updates duplicate-ack and
// congestion-control state, and retires the matching outstanding entry.
func (s *Sender) handleDatagram(data []byte) {
	ack, err := DecodeAck(data)
	if err != nil {
		s.log.Drop("dropping malformed ack: %v", err)
		return
	}

	s.lastAckTime = time.Now()

	if ack.Ack > ack.ExpectedSeq {
		if s.cc.RegisterDuplicate(ack.ExpectedSeq) {
			s.cc.OnTripleDupAck()
			s.log.Warn("triple duplicate ack for seq=%d: cwnd=%.2f ssthresh=%.2f",
				ack.ExpectedSeq, s.cc.Cwnd(), s.cc.Ssthresh())
			if entry, ok := s.outstanding.Get(ack.ExpectedSeq); ok {
				if err := s.sendSegment(entry.Segment); err == nil {
					s.outstanding.Touch(ack.ExpectedSeq, time.Now())
				}
			}
		}
	} else {
		s.cc.ClearDuplicates(ack.Ack)
	}

	if _, ok := s.outstanding.Get(ack.Ack); ok {
		s.outstanding.Remove(ack.Ack)
		s.cc.OnAck(ack.Ack, ack.ExpectedSeq)
	}
}

// refillWindow runs only once the outstanding set is fully drained: it
// reads up to floor(cwnd) DataSize-sized payloads from input and sends
// each as a new outstanding segment.
func (s *Sender) refillWindow() error {
	window := int(math.Floor(s.cc.Cwnd()))
	if window < 1 {
		window = 1
	}

	for i := 0; i < window; i++ {
		chunk, eof, err := readChunk(s.input, DataSize)
		if err != nil {
			return err
		}
		if len(chunk) == 0 {
			if eof {
				s.inputExhausted = true
			}
			break
		}

		seg := NewDataSegment(s.nextSeq, chunk)
		if err := s.sendSegment(seg); err != nil {
			return err
		}
		s.outstanding.Add(seg, time.Now())
		s.nextSeq += len(chunk)

		if eof {
			s.inputExhausted = true
			break
		}
	}
	return nil
}

// terminate sends five back-to-back EOF segments (mitigating loss; the
// receiver is expected to be idempotent on EOF) and ends the loop cleanly.
func (s *Sender) terminate() error {
	for i := 0; i < 5; i++ {
		if err := s.sendSegment(NewEOFSegment(s.nextSeq)); err != nil {
			return err
		}
	}
	s.log.Info("input exhausted, sent termination EOFs at seq=%d", s.nextSeq)
	return nil
}

func (s *Sender) sendSegment(seg Segment) error {
	data, err := seg.Encode()
	if err != nil {
		return err
	}
	_, err = s.conn.Write(data)
	return err
}

// readChunk reads up to max bytes from r, reporting io.EOF as eof=true
// rather than as an error so a final short read is still delivered.
func readChunk(r io.Reader, max int) (chunk []byte, eof bool, err error) {
	buf := make([]byte, max)
	n := 0
	for n < max {
		m, rerr := r.Read(buf[n:])
		n += m
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				return buf[:n], true, nil
			}
			return buf[:n], false, rerr
		}
		if m == 0 {
			break
		}
	}
	return buf[:n], false, nil
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
