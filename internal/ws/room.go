package ws

import (
	"sync"

	"go.uber.org/zap"
)

// room is the live member list of one space, in join order.
type room struct {
	mu      sync.RWMutex
	members []*Session
	closed  bool // set once the room was dropped from the registry
}

func newRoom() *room { return &room{} }

// add appends s and hands welcome the members that were already present.
// It returns false when the room was dropped concurrently.
func (r *room) add(s *Session, welcome func(others []*Session)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	others := make([]*Session, len(r.members))
	copy(others, r.members)
	r.members = append(r.members, s)
	if welcome != nil {
		welcome(others)
	}
	return true
}

// remove deletes s and reports whether the room became empty, in which case
// it is marked closed.
func (r *room) remove(s *Session) (empty bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, m := range r.members {
		if m == s {
			r.members = append(r.members[:i], r.members[i+1:]...)
			break
		}
	}
	if len(r.members) == 0 {
		r.closed = true
		return true
	}
	return false
}

func (r *room) snapshot() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, len(r.members))
	copy(out, r.members)
	return out
}

func (r *room) broadcast(msg []byte, exclude *Session) {
	// Take a quick snapshot of the current members
	members := r.snapshot()

	// Do the I/O outside the lock
	for _, s := range members {
		if s == exclude {
			continue
		}
		if err := s.conn.Send(msg); err != nil {
			zap.L().Debug("ws.broadcast_failed",
				zap.String("session", s.id), zap.Error(err))
			_ = s.conn.Close()
		}
	}
}
