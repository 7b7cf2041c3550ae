package raft

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHandleGet_QueuesWhenLeaderUnknown(t *testing.T) {
	r := newTestReplica(t, "N0", []string{"N1"})

	reply := r.handleGet(Envelope{Src: "C1", Type: MsgGet, MID: "m1", Key: "k"})

	require.Nil(t, reply)
	require.Len(t, r.preElectionQueue, 1)
}

func TestHandleGet_RedirectsWhenNotLeader(t *testing.T) {
	r := newTestReplica(t, "N0", []string{"N1"})
	r.leaderID = "N1"
	r.role = Follower

	reply := r.handleGet(Envelope{Src: "C1", Type: MsgGet, MID: "m1", Key: "k"})

	require.NotNil(t, reply)
	require.Equal(t, MsgRedirect, reply.Type)
	require.Equal(t, "N1", reply.Leader)
}

func TestHandleGet_ReturnsEmptyStringForMissingKey(t *testing.T) {
	r := newTestReplica(t, "N0", []string{"N1"})
	r.leaderID = "N0"
	r.role = Leader

	reply := r.handleGet(Envelope{Src: "C1", Type: MsgGet, MID: "m1", Key: "missing"})

	require.NotNil(t, reply)
	require.Equal(t, MsgOk, reply.Type)
	require.Equal(t, "", reply.Value)
}

func TestHandleGet_ServesCommittedValue(t *testing.T) {
	r := newTestReplica(t, "N0", []string{"N1"})
	r.leaderID = "N0"
	r.role = Leader
	r.kv["k"] = "v"

	reply := r.handleGet(Envelope{Src: "C1", Type: MsgGet, MID: "m1", Key: "k"})

	require.Equal(t, "v", reply.Value)
}

func TestHandlePut_AppendsLogEntryAndDefersReply(t *testing.T) {
	r := newTestReplica(t, "N0", []string{"N1"})
	r.leaderID = "N0"
	r.role = Leader
	r.currentTerm = 2

	reply := r.handlePut(Envelope{Src: "C1", Type: MsgPut, MID: "m1", Key: "k", Value: "v"})

	require.Nil(t, reply)
	require.Len(t, r.log, 1)
	require.Equal(t, 2, r.log[0].Term)
	require.Equal(t, "C1", r.log[0].ClientID)
	pending, ok := r.pendingReply[0]
	require.True(t, ok)
	require.Equal(t, "m1", pending.MID)
}

func TestHandlePut_RedirectsWhenNotLeader(t *testing.T) {
	r := newTestReplica(t, "N0", []string{"N1"})
	r.leaderID = "N1"
	r.role = Follower

	reply := r.handlePut(Envelope{Src: "C1", Type: MsgPut, MID: "m1", Key: "k", Value: "v"})

	require.NotNil(t, reply)
	require.Equal(t, MsgRedirect, reply.Type)
	require.Empty(t, r.log)
}

func TestApplyCommitted_AppliesAndRepliesOkWhenLeader(t *testing.T) {
	r := newTestReplica(t, "N0", []string{"N1"})
	r.leaderID = "N0"
	r.role = Leader
	r.log = []LogEntry{{Term: 1, Key: "k", Value: "v"}}
	r.pendingReply[0] = Envelope{Src: "C1", MID: "m1"}
	r.commitIndex = 0

	r.applyCommitted()

	require.Equal(t, "v", r.kv["k"])
	require.Equal(t, 0, r.lastApplied)
	require.NotContains(t, r.pendingReply, 0)
}

func TestApplyCommitted_AppliesWithoutReplyingWhenFollower(t *testing.T) {
	r := newTestReplica(t, "N0", []string{"N1"})
	r.log = []LogEntry{{Term: 1, Key: "k", Value: "v"}}
	r.commitIndex = 0

	r.applyCommitted()

	require.Equal(t, "v", r.kv["k"])
}

func TestDrainPreElectionQueue_ReplaysInOrder(t *testing.T) {
	r := newTestReplica(t, "N0", []string{"N1"})
	r.leaderID = "N0"
	r.role = Leader
	r.preElectionQueue = []Envelope{
		{Src: "C1", Type: MsgPut, MID: "m1", Key: "a", Value: "1"},
		{Src: "C2", Type: MsgPut, MID: "m2", Key: "b", Value: "2"},
	}

	r.drainPreElectionQueue()

	require.Empty(t, r.preElectionQueue)
	require.Len(t, r.log, 2)
	require.Equal(t, "a", r.log[0].Key)
	require.Equal(t, "b", r.log[1].Key)
}
