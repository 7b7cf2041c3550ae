package raft

import (
	"encoding/json"
	"fmt"
)

// EncodeMessage marshals an envelope to its wire (newline-delimited JSON)
// representation.
func EncodeMessage(m Envelope) ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// DecodeMessage parses one line of wire JSON into an envelope, rejecting
// unknown message types. Any error here means the caller should drop the
// message rather than dispatch it.
func DecodeMessage(data []byte) (Envelope, error) {
	var m Envelope
	if err := json.Unmarshal(data, &m); err != nil {
		return Envelope{}, fmt.Errorf("malformed message: %w", err)
	}
	if !m.Type.valid() {
		return Envelope{}, fmt.Errorf("unknown message type: %q", m.Type)
	}
	return m, nil
}
