package registry

import (
	"sync"
	"time"

	"realtime-chat-server/domain"
)

// Room is a named broadcast domain. Members are keyed by their send handle
// ID; fan-out order over the map is unspecified.
type Room struct {
	id        string
	createdAt time.Time

	mu       sync.RWMutex
	members  map[string]*domain.Member
	messages int64
}

func newRoom(id string) *Room {
	return &Room{
		id:        id,
		createdAt: time.Now(),
		members:   make(map[string]*domain.Member),
	}
}

func (r *Room) ID() string { return r.id }

// add inserts the member under its handle ID. It refuses to overwrite an
// existing entry: a duplicate handle in the same room is a caller error.
func (r *Room) add(m *domain.Member) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.members[m.Sender.ID()]; ok {
		return false
	}
	r.members[m.Sender.ID()] = m
	return true
}

// remove deletes and returns the member for the handle, or nil when absent.
func (r *Room) remove(senderID string) *domain.Member {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.members[senderID]
	if !ok {
		return nil
	}
	delete(r.members, senderID)
	return m
}

func (r *Room) member(senderID string) *domain.Member {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.members[senderID]
}

// snapshot returns the current member set. Later mutations to the room do
// not affect a returned slice, so callers can deliver outside the lock.
func (r *Room) snapshot() []*domain.Member {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.Member, 0, len(r.members))
	for _, m := range r.members {
		out = append(out, m)
	}
	return out
}

// touch updates last-activity for the given handles. Handles that left the
// room since the caller's snapshot are skipped.
func (r *Room) touch(senderIDs []string, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range senderIDs {
		if m, ok := r.members[id]; ok {
			m.LastActive = at
		}
	}
}

// countMessage bumps the chat message counter. Join/leave traffic is not
// counted.
func (r *Room) countMessage() {
	r.mu.Lock()
	r.messages++
	r.mu.Unlock()
}

func (r *Room) stats() domain.RoomStats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	users := make([]domain.UserInfo, 0, len(r.members))
	for _, m := range r.members {
		users = append(users, domain.UserInfo{
			UserID:         m.ID,
			UserName:       m.Name,
			ConnectionTime: domain.Epoch(m.ConnectedAt),
			LastActivity:   domain.Epoch(m.LastActive),
		})
	}
	return domain.RoomStats{
		RoomID:       r.id,
		UserCount:    len(r.members),
		MessageCount: r.messages,
		CreatedAt:    domain.Epoch(r.createdAt),
		Users:        users,
	}
}

func (r *Room) counts() (members int, messages int64) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members), r.messages
}
