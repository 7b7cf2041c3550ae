package raft

import "time"

// appendEntriesFor builds an AppendEntries envelope addressed to peer,
// computing prevLogIndex/prevLogTerm from that peer's tracked nextIndex.
// Passing a nil/empty entries slice produces a heartbeat.
func (r *Replica) appendEntriesFor(peer string, entries []LogEntry) Envelope {
	prog := r.progress[peer]
	prevLogIndex := prog.nextIndex - 1
	prevLogTerm := r.termAt(prevLogIndex)

	return Envelope{
		Src:          r.id,
		Dst:          peer,
		Leader:       r.leaderID,
		Type:         MsgAppendEntries,
		Term:         r.currentTerm,
		PrevLogIndex: prevLogIndex,
		PrevLogTerm:  prevLogTerm,
		Entries:      entries,
		LeaderCommit: r.commitIndex,
	}
}

// sendHeartbeats broadcasts an empty-entries AppendEntries to every peer
// and resets the heartbeat timer. prevLogIndex/prevLogTerm carry the real
// computed values, not placeholders, so a follower can still run its
// consistency check against a heartbeat if it chooses to.
func (r *Replica) sendHeartbeats() {
	for _, peer := range r.peers {
		r.transport.Send(peer, r.appendEntriesFor(peer, nil))
	}
	r.heartbeatDeadline = time.Now().Add(heartbeatInterval)
}

// updateFollowers sends real AppendEntries batches to every peer that is
// behind and has no fresh in-flight RPC.
func (r *Replica) updateFollowers() {
	for _, peer := range r.peers {
		prog := r.progress[peer]

		if r.lastLogIndex() < prog.nextIndex {
			continue
		}
		if prog.inFlight && time.Since(prog.inFlightSent) <= appendEntriesRetry {
			continue
		}

		end := prog.nextIndex + batchSize
		if end > len(r.log) {
			end = len(r.log)
		}
		entries := r.log[prog.nextIndex:end]

		r.transport.Send(peer, r.appendEntriesFor(peer, entries))

		prog.inFlight = true
		prog.inFlightSent = time.Now()
		prog.entriesSent = len(entries)
	}
}

// handleAppendEntries is the follower side of replication. A nil return
// means no reply is sent (heartbeat).
func (r *Replica) handleAppendEntries(msg Envelope) *Envelope {
	r.resetElectionTimer()

	if msg.Term >= r.currentTerm {
		if msg.Term > r.currentTerm {
			r.currentTerm = msg.Term
			r.votedFor = ""
		}
		wasUnknown := r.leaderID == LeaderUnknown
		r.role = Follower
		r.leaderID = msg.Src
		if wasUnknown {
			r.drainPreElectionQueue()
		}
	}

	if len(msg.Entries) == 0 {
		return nil
	}

	inconsistent := msg.PrevLogIndex >= 0 &&
		(len(r.log) <= msg.PrevLogIndex || r.log[msg.PrevLogIndex].Term != msg.PrevLogTerm)

	if msg.Term < r.currentTerm || inconsistent {
		return &Envelope{
			Src: r.id, Dst: msg.Src, Leader: r.leaderID,
			Type: MsgAppendEntriesReply, Term: r.currentTerm, Success: false,
		}
	}

	insertAt := msg.PrevLogIndex + 1
	redundant := 0
	for redundant < len(msg.Entries) {
		idx := insertAt + redundant
		if idx < len(r.log) && r.log[idx].Term == msg.Entries[redundant].Term {
			redundant++
			continue
		}
		break
	}

	truncateFrom := insertAt + redundant
	if truncateFrom < len(r.log) {
		for _, stale := range r.log[truncateFrom:] {
			if stale.ReceivedBy == r.id {
				r.sendRedirect(stale.ClientID, stale.RequestID)
			}
		}
		for idx := truncateFrom; idx < len(r.log); idx++ {
			delete(r.pendingReply, idx)
		}
		r.log = r.log[:truncateFrom]
	}

	r.log = append(r.log, msg.Entries[redundant:]...)

	if msg.LeaderCommit > r.commitIndex {
		newCommit := msg.LeaderCommit
		if r.lastLogIndex() < newCommit {
			newCommit = r.lastLogIndex()
		}
		r.commitIndex = newCommit
	}

	return &Envelope{
		Src: r.id, Dst: msg.Src, Leader: r.leaderID,
		Type: MsgAppendEntriesReply, Term: r.currentTerm, Success: true,
	}
}

// handleAppendEntriesReply is the leader side of replication. A higher term
// in a reply steps the leader down; the replying peer is a follower, not
// the new leader, so its identity is not guessed from the reply's source.
func (r *Replica) handleAppendEntriesReply(msg Envelope) {
	if r.role != Leader {
		return
	}
	prog, ok := r.progress[msg.Src]
	if !ok {
		return
	}

	if !msg.Success && msg.Term > r.currentTerm {
		r.stepDown(msg.Term)
		return
	}

	prog.inFlight = false

	if msg.Success {
		prog.nextIndex += prog.entriesSent
		prog.matchIndex = prog.nextIndex - 1
		r.updateCommitIndex()
		return
	}

	if prog.nextIndex > 0 {
		prog.nextIndex--
	}
}

// updateCommitIndex advances commitIndex as far as quorum and the leader
// completeness rule (only the leader's own term is committed directly)
// allow.
func (r *Replica) updateCommitIndex() {
	for candidate := r.commitIndex + 1; candidate < len(r.log); candidate++ {
		if r.log[candidate].Term != r.currentTerm {
			break
		}

		count := 1
		for _, peer := range r.peers {
			if r.progress[peer].matchIndex >= candidate {
				count++
			}
		}
		if count < r.quorum() {
			break
		}

		r.commitIndex = candidate
	}
}
