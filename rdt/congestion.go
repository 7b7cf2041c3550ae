package rdt

// initialSsthresh mirrors the generous slow-start threshold conventional
// TCP stacks start with; there is plenty of room to grow before switching
// to congestion avoidance.
const initialSsthresh = 64.0

// Controller maintains the sliding-window flow-control state: the
// congestion window (cwnd, in segments) and the slow-start threshold
// (ssthresh), plus duplicate-ack bookkeeping for fast retransmit.
type Controller struct {
	cwnd     float64
	ssthresh float64
	dupAcks  map[int]int
}

// NewController returns a controller at cwnd=1 (slow start).
func NewController() *Controller {
	return &Controller{
		cwnd:     1,
		ssthresh: initialSsthresh,
		dupAcks:  make(map[int]int),
	}
}

// Cwnd returns the current congestion window, in segments.
func (c *Controller) Cwnd() float64 { return c.cwnd }

// Ssthresh returns the current slow-start threshold.
func (c *Controller) Ssthresh() float64 { return c.ssthresh }

// OnAck advances cwnd: additive-by-one under slow start, additive-by-1/cwnd
// under congestion avoidance. The receivedAck/expectedSeq pair is not used;
// only the window regime matters.
func (c *Controller) OnAck(receivedAck, expectedSeq int) {
	if c.cwnd < c.ssthresh {
		c.cwnd += 1
	} else {
		c.cwnd += 1 / c.cwnd
	}
}

// OnTimeout is the multiplicative-decrease response to a retransmission
// timer expiring with no ack seen: halve (floor 2) ssthresh, drop to cwnd=1.
func (c *Controller) OnTimeout() {
	c.ssthresh = maxFloat(c.cwnd/2, 2)
	c.cwnd = 1
}

// OnTripleDupAck is fast recovery: halve (floor 2) ssthresh same as a
// timeout, but cwnd falls only to ssthresh (never all the way to 1).
func (c *Controller) OnTripleDupAck() {
	c.ssthresh = maxFloat(c.cwnd/2, 2)
	c.cwnd = maxFloat(c.ssthresh, 1)
}

// RegisterDuplicate bumps the duplicate-ack counter for expectedSeq (the
// receiver's reported missing byte). It reports true exactly on the third
// duplicate, at which point the counter is cleared so a later, unrelated
// run of losses starts counting from zero again.
func (c *Controller) RegisterDuplicate(expectedSeq int) bool {
	c.dupAcks[expectedSeq]++
	if c.dupAcks[expectedSeq] >= 3 {
		delete(c.dupAcks, expectedSeq)
		return true
	}
	return false
}

// ClearDuplicates resets the duplicate-ack counter for expectedSeq. Called
// when a normal (non-duplicate) ack advances past it, so a stale count
// can't trigger a spurious future fast retransmit.
func (c *Controller) ClearDuplicates(expectedSeq int) {
	delete(c.dupAcks, expectedSeq)
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
