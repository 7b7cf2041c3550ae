package raft

import "time"

// Run is the single-threaded cooperative event loop. It never spawns a
// goroutine and never blocks longer than pollTimeout, so the three
// duties below interleave cooperatively on this one goroutine:
//
//  1. Apply: push commitIndex's effects into the state machine.
//  2. Poll: accept and dispatch at most one inbound message.
//  3. Leader/follower timers: heartbeats and replication for a leader,
//     election timeout for everyone else.
func (r *Replica) Run(done <-chan struct{}) error {
	for {
		select {
		case <-done:
			return nil
		case <-r.done:
			return nil
		default:
		}

		r.applyCommitted()

		msg, ok, err := r.transport.Poll(pollTimeout)
		if err != nil {
			return err
		}
		if ok {
			r.dispatch(msg)
		}

		if r.role == Leader {
			if time.Now().After(r.heartbeatDeadline) {
				r.sendHeartbeats()
			}
			r.updateFollowers()
		} else if time.Now().After(r.electionDeadline) {
			r.startElection()
		}
	}
}

// dispatch routes one polled message to its handler and sends back any
// reply the handler produces.
func (r *Replica) dispatch(msg Envelope) {
	switch msg.Type {
	case MsgRequestVote:
		r.transport.Send(msg.Src, r.handleRequestVote(msg))
	case MsgVote:
		r.handleVote(msg)
	case MsgAppendEntries:
		if reply := r.handleAppendEntries(msg); reply != nil {
			r.transport.Send(msg.Src, *reply)
		}
	case MsgAppendEntriesReply:
		r.handleAppendEntriesReply(msg)
	case MsgGet, MsgPut:
		r.handleClient(msg)
	default:
		r.logger.Drop("ignoring message of type %q from %s", msg.Type, msg.Src)
	}
}
