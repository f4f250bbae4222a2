package ws

import (
	"sort"
	"sync"
)

// Registry keeps the live rooms per spaceID. One instance is shared by every
// connection of the process.
type Registry struct {
	rooms    sync.Map // spaceID -> *room
	sessions sync.Map // *Session -> spaceID
}

func NewRegistry() *Registry { return &Registry{} }

// RoomStats is the occupancy of one room.
type RoomStats struct {
	SpaceID   string `json:"spaceId"`
	Occupants int    `json:"occupants"`
}

// Add puts s into the room of spaceID. welcome runs under the room lock with
// the members that were present before s; it must only enqueue.
func (reg *Registry) Add(spaceID string, s *Session, welcome func(others []*Session)) error {
	if _, loaded := reg.sessions.LoadOrStore(s, spaceID); loaded {
		return ErrAlreadyMember
	}
	for {
		v, _ := reg.rooms.LoadOrStore(spaceID, newRoom())
		if v.(*room).add(s, welcome) {
			return nil
		}
		// The room emptied and was dropped between Load and add.
		reg.rooms.CompareAndDelete(spaceID, v)
	}
}

// Remove takes s out of spaceID's room. Unknown sessions are a no-op.
func (reg *Registry) Remove(s *Session, spaceID string) {
	if cur, ok := reg.sessions.Load(s); !ok || cur.(string) != spaceID {
		return
	}
	if v, ok := reg.rooms.Load(spaceID); ok {
		r := v.(*room)
		if r.remove(s) {
			reg.rooms.CompareAndDelete(spaceID, r)
		}
	}
	reg.sessions.Delete(s)
}

// Broadcast delivers msg to every member of spaceID except exclude (may be nil).
func (reg *Registry) Broadcast(spaceID string, msg []byte, exclude *Session) {
	if v, ok := reg.rooms.Load(spaceID); ok {
		v.(*room).broadcast(msg, exclude)
	}
}

// Members returns the current occupants of spaceID in join order.
func (reg *Registry) Members(spaceID string) []*Session {
	if v, ok := reg.rooms.Load(spaceID); ok {
		return v.(*room).snapshot()
	}
	return nil
}

// SpaceOf returns the room s is registered in.
func (reg *Registry) SpaceOf(s *Session) (string, bool) {
	v, ok := reg.sessions.Load(s)
	if !ok {
		return "", false
	}
	return v.(string), true
}

// Stats lists non-empty rooms sorted by spaceID.
func (reg *Registry) Stats() []RoomStats {
	out := make([]RoomStats, 0)
	reg.rooms.Range(func(k, v any) bool {
		if n := len(v.(*room).snapshot()); n > 0 {
			out = append(out, RoomStats{SpaceID: k.(string), Occupants: n})
		}
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].SpaceID < out[j].SpaceID })
	return out
}
