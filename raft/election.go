package raft

import "time"

// startElection is triggered when a non-leader's election timer expires:
// clear leader/votes/vote, bump term, vote for self, reset the timer, and
// broadcast RequestVote to every peer.
func (r *Replica) startElection() {
	r.leaderID = LeaderUnknown
	r.votes = make(map[string]bool)
	r.votedFor = ""

	r.currentTerm++
	r.votedFor = r.id
	r.votes[r.id] = true
	r.role = Candidate

	r.resetElectionTimer()

	r.logger.Info("starting election for term %d", r.currentTerm)

	req := Envelope{
		Src:          r.id,
		Dst:          Broadcast,
		Leader:       r.leaderID,
		Type:         MsgRequestVote,
		Term:         r.currentTerm,
		LastLogIndex: r.lastLogIndex(),
		LastLogTerm:  r.lastLogTerm(),
	}
	for _, peer := range r.peers {
		r.transport.Send(peer, req)
	}

	r.maybeBecomeLeader()
}

// handleRequestVote is the receiver side of a candidacy: adopt a higher
// term, grant at most one vote per term to whichever candidate asks first,
// and only if that candidate's log is at least as up-to-date.
func (r *Replica) handleRequestVote(msg Envelope) Envelope {
	if msg.Term > r.currentTerm {
		r.currentTerm = msg.Term
		r.votedFor = ""
		r.role = Follower
	}

	reply := Envelope{
		Src:    r.id,
		Dst:    msg.Src,
		Leader: r.leaderID,
		Type:   MsgVote,
		Term:   r.currentTerm,
		Vote:   false,
	}
	defer r.resetElectionTimer()

	if msg.Term < r.currentTerm {
		return reply
	}

	logUpToDate := msg.LastLogTerm > r.lastLogTerm() ||
		(msg.LastLogTerm == r.lastLogTerm() && msg.LastLogIndex >= r.lastLogIndex())

	if (r.votedFor == "" || r.votedFor == msg.Src) && logUpToDate {
		r.votedFor = msg.Src
		reply.Vote = true
	}

	return reply
}

// handleVote tallies a vote reply. A higher term steps the candidate down;
// reaching quorum wins the election.
func (r *Replica) handleVote(msg Envelope) {
	if msg.Term > r.currentTerm {
		r.stepDown(msg.Term)
		return
	}

	if r.role != Candidate || msg.Term != r.currentTerm {
		return
	}

	if msg.Vote {
		r.votes[msg.Src] = true
		r.maybeBecomeLeader()
	}
}

func (r *Replica) maybeBecomeLeader() {
	if r.role != Candidate {
		return
	}

	granted := 0
	for _, v := range r.votes {
		if v {
			granted++
		}
	}
	if granted < r.quorum() {
		return
	}

	r.becomeLeader()
}

// becomeLeader initializes per-peer progress, sends an immediate
// heartbeat, and drains any client requests queued while leaderless.
func (r *Replica) becomeLeader() {
	r.role = Leader
	r.leaderID = r.id
	r.progress = make(map[string]*peerProgress)
	for _, peer := range r.peers {
		r.progress[peer] = &peerProgress{
			nextIndex:  len(r.log),
			matchIndex: 0,
		}
	}

	r.logger.Info("elected leader for term %d", r.currentTerm)

	r.heartbeatDeadline = time.Time{}
	r.updateFollowers()

	r.drainPreElectionQueue()
}

// stepDown reverts to follower under a higher observed term. The leader
// identity is reset to unknown rather than guessed from whatever message
// carried the higher term, since a reply's sender is a follower, not
// necessarily the new leader.
func (r *Replica) stepDown(term int) {
	r.currentTerm = term
	r.role = Follower
	r.votedFor = ""
	r.leaderID = LeaderUnknown
	r.resetElectionTimer()
}
