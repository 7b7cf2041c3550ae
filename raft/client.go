package raft

// handleClient dispatches one client get/put message and sends whatever
// reply it produces; get/put return nil while queued (leader unknown) or
// while a put awaits commit, in which case no reply goes out yet.
func (r *Replica) handleClient(msg Envelope) {
	var reply *Envelope

	switch msg.Type {
	case MsgGet:
		reply = r.handleGet(msg)
	case MsgPut:
		reply = r.handlePut(msg)
	}

	if reply != nil {
		r.transport.Send(reply.Dst, *reply)
	}
}

// handleGet serves gets straight from committed state; no log append.
func (r *Replica) handleGet(msg Envelope) *Envelope {
	if r.leaderID == LeaderUnknown {
		r.preElectionQueue = append(r.preElectionQueue, msg)
		return nil
	}
	if r.role != Leader {
		return r.redirectReply(msg)
	}

	reply := Envelope{
		Src: r.id, Dst: msg.Src, Leader: r.leaderID,
		Type: MsgOk, MID: msg.MID, Value: r.kv[msg.Key],
	}
	return &reply
}

// handlePut appends a LogEntry if leader; the ok reply is deferred until
// the entry is applied (event loop step 1), not sent here.
func (r *Replica) handlePut(msg Envelope) *Envelope {
	if r.leaderID == LeaderUnknown {
		r.preElectionQueue = append(r.preElectionQueue, msg)
		return nil
	}
	if r.role != Leader {
		return r.redirectReply(msg)
	}

	entry := LogEntry{
		Term: r.currentTerm, Key: msg.Key, Value: msg.Value,
		ClientID: msg.Src, RequestID: msg.MID, ReceivedBy: r.id,
	}
	r.log = append(r.log, entry)
	r.pendingReply[len(r.log)-1] = msg
	return nil
}

func (r *Replica) redirectReply(msg Envelope) *Envelope {
	reply := Envelope{Src: r.id, Dst: msg.Src, Leader: r.leaderID, Type: MsgRedirect, MID: msg.MID}
	return &reply
}

// sendRedirect notifies a client whose put was overwritten by follower
// log truncation during reconciliation that it should retry.
func (r *Replica) sendRedirect(clientID, mid string) {
	r.transport.Send(clientID, Envelope{
		Src: r.id, Dst: clientID, Leader: r.leaderID, Type: MsgRedirect, MID: mid,
	})
}

// drainPreElectionQueue replays, in FIFO order, every client request
// buffered while the leader was unknown.
func (r *Replica) drainPreElectionQueue() {
	queue := r.preElectionQueue
	r.preElectionQueue = nil
	for _, msg := range queue {
		r.handleClient(msg)
	}
}

// applyCommitted is event-loop step 1: apply newly committed entries to
// the state machine in strict index order, and if self is leader, reply
// ok to the client that originated each one.
func (r *Replica) applyCommitted() {
	for r.lastApplied < r.commitIndex {
		r.lastApplied++

		entry := r.log[r.lastApplied]
		r.kv[entry.Key] = entry.Value

		if r.role != Leader {
			continue
		}
		orig, ok := r.pendingReply[r.lastApplied]
		if !ok {
			continue
		}
		delete(r.pendingReply, r.lastApplied)
		r.transport.Send(orig.Src, Envelope{
			Src: r.id, Dst: orig.Src, Leader: r.leaderID, Type: MsgOk, MID: orig.MID,
		})
	}
}
