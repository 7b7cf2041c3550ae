package rdt

import (
	"sort"
	"time"
)

// OutstandingEntry is a sent, unacknowledged segment and the time it was
// last put on the wire (used to decide when to retransmit it).
type OutstandingEntry struct {
	Segment  Segment
	LastSend time.Time
}

// TransmitBuffer is the ordered map from byte-sequence-number to outstanding
// segment required by the data model: uniquely keyed by sequence number,
// entries removed on ack are never resurrected.
type TransmitBuffer struct {
	entries map[int]*OutstandingEntry
}

// NewTransmitBuffer returns an empty transmit buffer.
func NewTransmitBuffer() *TransmitBuffer {
	return &TransmitBuffer{entries: make(map[int]*OutstandingEntry)}
}

// Add records seg as outstanding as of now.
func (b *TransmitBuffer) Add(seg Segment, now time.Time) {
	b.entries[seg.Sequence] = &OutstandingEntry{Segment: seg, LastSend: now}
}

// Get returns the outstanding entry for seq, if any.
func (b *TransmitBuffer) Get(seq int) (*OutstandingEntry, bool) {
	e, ok := b.entries[seq]
	return e, ok
}

// Remove deletes the entry for seq. A removed entry is never resurrected.
func (b *TransmitBuffer) Remove(seq int) {
	delete(b.entries, seq)
}

// Touch updates the last-send time for seq, e.g. after a retransmit.
func (b *TransmitBuffer) Touch(seq int, now time.Time) {
	if e, ok := b.entries[seq]; ok {
		e.LastSend = now
	}
}

// Empty reports whether there are no outstanding entries.
func (b *TransmitBuffer) Empty() bool {
	return len(b.entries) == 0
}

// Len reports the number of outstanding entries.
func (b *TransmitBuffer) Len() int {
	return len(b.entries)
}

// Sequences returns the outstanding sequence numbers in ascending order, so
// the retransmit pass visits them deterministically.
func (b *TransmitBuffer) Sequences() []int {
	seqs := make([]int, 0, len(b.entries))
	for seq := range b.entries {
		seqs = append(seqs, seq)
	}
	sort.Ints(seqs)
	return seqs
}
