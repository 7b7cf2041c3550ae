// Package rdt implements a reliable-data-transfer sender on top of an
// unreliable datagram channel: sliding-window flow control with
// TCP-style congestion control (slow start, congestion avoidance, fast
// retransmit, timeout backoff). The receiving side is an external
// collaborator; only its wire contract is encoded here.
package rdt

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// DataSize is the maximum payload carried by a single data segment.
const DataSize = 1000

// MaxDatagramSize bounds the encoded size of any segment or ack.
const MaxDatagramSize = 1500

// Segment is one application payload plus metadata, sent data-direction.
type Segment struct {
	Sequence int    `json:"sequence"`
	Data     string `json:"data"`
	Ack      bool   `json:"ack"`
	EOF      bool   `json:"eof"`
	Checksum string `json:"checksum"`
}

// NewDataSegment builds a data segment starting at byte offset seq.
func NewDataSegment(seq int, payload []byte) Segment {
	s := Segment{Sequence: seq, Data: string(payload), Ack: false, EOF: false}
	s.Checksum = s.computeChecksum()
	return s
}

// NewEOFSegment builds an end-of-stream segment at byte offset seq.
func NewEOFSegment(seq int) Segment {
	s := Segment{Sequence: seq, Data: "", Ack: false, EOF: true}
	s.Checksum = s.computeChecksum()
	return s
}

// computeChecksum is MD5 over str(sequence) ++ data ++ str(ack) ++ str(eof),
// in that order.
func (s Segment) computeChecksum() string {
	sum := md5.Sum([]byte(fmt.Sprintf("%d%s%t%t", s.Sequence, s.Data, s.Ack, s.EOF)))
	return hex.EncodeToString(sum[:])
}

// Verify reports whether the segment's checksum matches its payload.
func (s Segment) Verify() bool {
	return s.Checksum == s.computeChecksum()
}

// Encode marshals the segment to its wire (JSON) representation.
func (s Segment) Encode() ([]byte, error) {
	return json.Marshal(s)
}

// DecodeSegment parses and checksum-verifies a segment. A parse error or a
// checksum mismatch both return an error; the caller drops the datagram.
func DecodeSegment(data []byte) (Segment, error) {
	var s Segment
	if err := json.Unmarshal(data, &s); err != nil {
		return Segment{}, fmt.Errorf("malformed segment: %w", err)
	}
	if !s.Verify() {
		return Segment{}, fmt.Errorf("checksum mismatch for sequence %d", s.Sequence)
	}
	return s, nil
}

// AckMessage is the receiver's reply: a cumulative ack for the segment it
// last (re)acknowledged plus the next byte it is still missing.
type AckMessage struct {
	Ack         int `json:"ack"`
	ExpectedSeq int `json:"expected_seq"`
}

// Encode marshals the ack to its wire (JSON) representation.
func (a AckMessage) Encode() ([]byte, error) {
	return json.Marshal(a)
}

// DecodeAck parses an ack message. A parse error means drop silently.
func DecodeAck(data []byte) (AckMessage, error) {
	var a AckMessage
	if err := json.Unmarshal(data, &a); err != nil {
		return AckMessage{}, fmt.Errorf("malformed ack: %w", err)
	}
	return a, nil
}
