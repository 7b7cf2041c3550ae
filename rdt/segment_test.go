package rdt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSegment_EncodeDecodeRoundTrip(t *testing.T) {
	tt := []struct {
		name string
		seg  Segment
	}{
		{name: "data segment", seg: NewDataSegment(0, []byte("hello world"))},
		{name: "empty data segment", seg: NewDataSegment(1000, []byte(""))},
		{name: "eof segment", seg: NewEOFSegment(2000)},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			encoded, err := tc.seg.Encode()
			require.NoError(t, err)

			decoded, err := DecodeSegment(encoded)
			require.NoError(t, err)
			require.Equal(t, tc.seg, decoded)
		})
	}
}

func TestSegment_CorruptedChecksumRejected(t *testing.T) {
	seg := NewDataSegment(0, []byte("payload"))
	encoded, err := seg.Encode()
	require.NoError(t, err)

	seg.Data = "tampered"
	tampered, err := seg.Encode()
	require.NoError(t, err)

	require.NotEqual(t, encoded, tampered)

	_, err = DecodeSegment(tampered)
	require.Error(t, err)
}

func TestSegment_MalformedJSONDropped(t *testing.T) {
	_, err := DecodeSegment([]byte("not json"))
	require.Error(t, err)
}

func TestAckMessage_EncodeDecodeRoundTrip(t *testing.T) {
	ack := AckMessage{Ack: 1000, ExpectedSeq: 2000}

	encoded, err := ack.Encode()
	require.NoError(t, err)

	decoded, err := DecodeAck(encoded)
	require.NoError(t, err)
	require.Equal(t, ack, decoded)
}
