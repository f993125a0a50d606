// Package registry owns the room bookkeeping: which rooms exist, who is in
// them, and the global connection counter. It knows nothing about message
// content or the transport.
//
// Lock discipline: the registry mutex guards the rooms map, the handle index
// and the connection counter; each room has its own RWMutex for its member
// set and counters. Where both are held, the registry lock is taken first.
// The coarse handle index serializes admissions, which is fine at this
// scale; broadcasts never hold the registry lock while delivering.
package registry

import (
	"sync"
	"time"

	"realtime-chat-server/domain"
)

type Registry struct {
	mu      sync.RWMutex
	rooms   map[string]*Room
	handles map[string]string // send handle ID -> room ID
	conns   int64
}

func New() *Registry {
	return &Registry{
		rooms:   make(map[string]*Room),
		handles: make(map[string]string),
	}
}

// Room returns the room for the ID, creating an empty one on first
// reference. Rooms persist for the process lifetime.
func (r *Registry) Room(roomID string) *Room {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.roomLocked(roomID)
}

func (r *Registry) roomLocked(roomID string) *Room {
	rm, ok := r.rooms[roomID]
	if !ok {
		rm = newRoom(roomID)
		r.rooms[roomID] = rm
	}
	return rm
}

// AddMember inserts the member into the room, creating the room if needed.
// It returns false when the member's handle is already registered in any
// room: a handle belongs to at most one room at a time, and a double
// admission must not overwrite the existing entry.
func (r *Registry) AddMember(roomID string, m *domain.Member) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := m.Sender.ID()
	if _, ok := r.handles[id]; ok {
		return false
	}
	if !r.roomLocked(roomID).add(m) {
		return false
	}
	r.handles[id] = roomID
	return true
}

// RemoveMember deletes and returns the member for the handle, or nil when it
// is not in that room. Removing an absent member is not an error; duplicate
// disconnect signals from a racy transport are tolerated.
func (r *Registry) RemoveMember(roomID, senderID string) *domain.Member {
	r.mu.Lock()
	defer r.mu.Unlock()
	rm, ok := r.rooms[roomID]
	if !ok {
		return nil
	}
	m := rm.remove(senderID)
	if m != nil {
		delete(r.handles, senderID)
	}
	return m
}

// Member returns the member registered under the handle in that room, or nil.
func (r *Registry) Member(roomID, senderID string) *domain.Member {
	r.mu.RLock()
	rm := r.rooms[roomID]
	r.mu.RUnlock()
	if rm == nil {
		return nil
	}
	return rm.member(senderID)
}

// Members returns a point-in-time snapshot of the room's member set, nil for
// a room that was never created.
func (r *Registry) Members(roomID string) []*domain.Member {
	r.mu.RLock()
	rm := r.rooms[roomID]
	r.mu.RUnlock()
	if rm == nil {
		return nil
	}
	return rm.snapshot()
}

// Touch updates last-activity for the given handles in the room.
func (r *Registry) Touch(roomID string, senderIDs []string, at time.Time) {
	r.mu.RLock()
	rm := r.rooms[roomID]
	r.mu.RUnlock()
	if rm != nil {
		rm.touch(senderIDs, at)
	}
}

// CountMessage bumps the room's chat message counter once.
func (r *Registry) CountMessage(roomID string) {
	r.mu.RLock()
	rm := r.rooms[roomID]
	r.mu.RUnlock()
	if rm != nil {
		rm.countMessage()
	}
}

// AddConnection records one admitted connection.
func (r *Registry) AddConnection() {
	r.mu.Lock()
	r.conns++
	r.mu.Unlock()
}

// DropConnection records one removed connection, flooring the counter at
// zero.
func (r *Registry) DropConnection() {
	r.mu.Lock()
	if r.conns > 0 {
		r.conns--
	}
	r.mu.Unlock()
}

// RoomStats reports on a single room. A room that was never created yields a
// zeroed record: lazy creation makes "never created" indistinguishable from
// "empty", and a read must not create rooms.
func (r *Registry) RoomStats(roomID string) domain.RoomStats {
	r.mu.RLock()
	rm := r.rooms[roomID]
	r.mu.RUnlock()
	if rm == nil {
		return domain.RoomStats{RoomID: roomID, Users: []domain.UserInfo{}}
	}
	return rm.stats()
}

// GlobalStats aggregates across all rooms.
func (r *Registry) GlobalStats() domain.GlobalStats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	gs := domain.GlobalStats{
		TotalConnections: r.conns,
		TotalRooms:       len(r.rooms),
		Rooms:            make([]string, 0, len(r.rooms)),
	}
	for id, rm := range r.rooms {
		members, messages := rm.counts()
		gs.ActiveUsers += members
		gs.TotalMessages += messages
		gs.Rooms = append(gs.Rooms, id)
	}
	return gs
}
