package raft

import (
	"math/rand"
	"time"

	"github.com/Konstantsiy/casual-raft/internal/diag"
)

// baseTimeout is the election-timeout floor; heartbeatInterval and the
// randomized election window are both derived from it.
const baseTimeout = 150 * time.Millisecond
const heartbeatInterval = baseTimeout / 2
const appendEntriesRetry = 20 * time.Millisecond
const batchSize = 50
const pollTimeout = 10 * time.Millisecond

// peerProgress is the leader's per-follower replication bookkeeping: it
// exists only while self is leader and is (re)initialized on election win.
type peerProgress struct {
	nextIndex  int
	matchIndex int

	inFlight     bool
	inFlightSent time.Time
	entriesSent  int
}

// Replica is one node: term, vote, log, commit index, last-applied index,
// leader identity, role, and (while leader) per-peer progress. The event
// loop is the sole mutator; there is exactly one goroutine touching this
// struct, so no lock is needed.
type Replica struct {
	id    string
	peers []string

	currentTerm int
	votedFor    string
	log         []LogEntry

	kv          map[string]string
	commitIndex int
	lastApplied int

	leaderID string
	role     Role

	progress map[string]*peerProgress
	votes    map[string]bool

	preElectionQueue []Envelope
	pendingReply     map[int]Envelope // log index -> originating client request

	electionDeadline  time.Time
	heartbeatDeadline time.Time

	transport *Transport
	logger    *diag.Logger

	done chan struct{}
}

// NewReplica constructs a replica that starts as a follower with an empty
// log and a freshly randomized election timer.
func NewReplica(id string, peers []string, transport *Transport, logger *diag.Logger) *Replica {
	r := &Replica{
		id:           id,
		peers:        peers,
		votedFor:     "",
		leaderID:     LeaderUnknown,
		role:         Follower,
		kv:           make(map[string]string),
		commitIndex:  -1,
		lastApplied:  -1,
		pendingReply: make(map[int]Envelope),
		transport:    transport,
		logger:       logger,
		done:         make(chan struct{}),
	}
	r.resetElectionTimer()
	return r
}

// totalReplicas is the full cluster size, self included.
func (r *Replica) totalReplicas() int {
	return len(r.peers) + 1
}

// quorum is a strict majority of totalReplicas.
func (r *Replica) quorum() int {
	return r.totalReplicas()/2 + 1
}

func (r *Replica) lastLogIndex() int {
	return len(r.log) - 1
}

func (r *Replica) lastLogTerm() int {
	if len(r.log) == 0 {
		return -1
	}
	return r.log[len(r.log)-1].Term
}

// termAt returns the term of the entry at index, or -1 for index -1 by
// convention (the "before the log" sentinel used throughout replication).
func (r *Replica) termAt(index int) int {
	if index < 0 {
		return -1
	}
	if index >= len(r.log) {
		return -1
	}
	return r.log[index].Term
}

func (r *Replica) resetElectionTimer() {
	timeout := baseTimeout + time.Duration(rand.Int63n(int64(baseTimeout)))
	r.electionDeadline = time.Now().Add(timeout)
}

// Status is a point-in-time introspection snapshot.
func (r *Replica) Status() ReplicaStatus {
	return ReplicaStatus{
		ID:          r.id,
		Term:        r.currentTerm,
		Role:        r.role,
		LeaderID:    r.leaderID,
		LogLength:   len(r.log),
		CommitIndex: r.commitIndex,
		LastApplied: r.lastApplied,
	}
}

// Stop signals the event loop to exit after its current iteration.
func (r *Replica) Stop() {
	close(r.done)
}
