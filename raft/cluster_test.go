package raft

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Konstantsiy/casual-raft/internal/diag"
)

// clusterRequest sends req to one candidate replica at a time, following
// redirect replies until an ok (or the deadline expires), the way a real
// client would cope with not knowing the leader up front.
func clusterRequest(t *testing.T, client *Transport, ids []string, req Envelope) (Envelope, bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	target := ids[0]

	for time.Now().Before(deadline) {
		req.Dst = target
		client.Send(target, req)

		reply, ok, err := client.Poll(100 * time.Millisecond)
		require.NoError(t, err)
		if !ok {
			target = ids[(indexOf(ids, target)+1)%len(ids)]
			continue
		}

		if reply.Type == MsgRedirect {
			if reply.Leader != "" && reply.Leader != LeaderUnknown {
				target = reply.Leader
			} else {
				target = ids[(indexOf(ids, target)+1)%len(ids)]
			}
			continue
		}

		return reply, true
	}
	return Envelope{}, false
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return 0
}

func startCluster(t *testing.T, n int) (ids []string, baseDir string, stop func()) {
	t.Helper()
	baseDir = t.TempDir()

	ids = make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("N%d", i)
	}

	done := make(chan struct{})
	replicas := make([]*Replica, n)
	for i, id := range ids {
		peers := make([]string, 0, n-1)
		for _, other := range ids {
			if other != id {
				peers = append(peers, other)
			}
		}

		tr, err := NewTransport(baseDir, id, diag.New(id))
		require.NoError(t, err)
		replicas[i] = NewReplica(id, peers, tr, diag.New(id))
	}

	for _, r := range replicas {
		r := r
		go func() { _ = r.Run(done) }()
	}

	return ids, baseDir, func() {
		close(done)
		for _, r := range replicas {
			_ = r.transport.Close()
		}
	}
}

func TestCluster_ElectsALeaderAndServesPutGet(t *testing.T) {
	ids, baseDir, stop := startCluster(t, 3)
	defer stop()

	client, err := NewTransport(baseDir, "client", diag.New("client"))
	require.NoError(t, err)
	defer client.Close()

	putReply, ok := clusterRequest(t, client, ids, Envelope{
		Src: "client", Type: MsgPut, MID: "req-1", Key: "foo", Value: "bar",
	})
	require.True(t, ok, "put never completed")
	require.Equal(t, MsgOk, putReply.Type)

	getReply, ok := clusterRequest(t, client, ids, Envelope{
		Src: "client", Type: MsgGet, MID: "req-2", Key: "foo",
	})
	require.True(t, ok, "get never completed")
	require.Equal(t, MsgOk, getReply.Type)
	require.Equal(t, "bar", getReply.Value)
}

func TestCluster_GetOfMissingKeyReturnsEmptyString(t *testing.T) {
	ids, baseDir, stop := startCluster(t, 3)
	defer stop()

	client, err := NewTransport(baseDir, "client", diag.New("client"))
	require.NoError(t, err)
	defer client.Close()

	reply, ok := clusterRequest(t, client, ids, Envelope{
		Src: "client", Type: MsgGet, MID: "req-1", Key: "nope",
	})
	require.True(t, ok)
	require.Equal(t, MsgOk, reply.Type)
	require.Equal(t, "", reply.Value)
}
