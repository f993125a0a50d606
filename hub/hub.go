// Package hub is the broadcast engine: it admits and removes members through
// the registry and fans events out to rooms with per-recipient failure
// isolation.
package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"realtime-chat-server/domain"
	"realtime-chat-server/metrics"
	"realtime-chat-server/registry"
)

const defaultLeaveQueue = 256

type leave struct {
	event  domain.Event
	roomID string
}

type Hub struct {
	reg     *registry.Registry
	log     *slog.Logger
	metrics *metrics.Metrics
	leaves  chan leave
}

// New wires the engine to its registry. leaveQueue bounds the queue of
// pending user_left announcements; <= 0 picks the default.
func New(reg *registry.Registry, log *slog.Logger, m *metrics.Metrics, leaveQueue int) *Hub {
	if leaveQueue <= 0 {
		leaveQueue = defaultLeaveQueue
	}
	return &Hub{
		reg:     reg,
		log:     log,
		metrics: m,
		leaves:  make(chan leave, leaveQueue),
	}
}

// Run drains the leave-announcement queue until the context is cancelled.
// Disconnect never blocks on these broadcasts; they are delivered here.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case lv := <-h.leaves:
			h.Broadcast(lv.event, lv.roomID)
		case <-ctx.Done():
			return
		}
	}
}

// Connect admits a sender into the room under the given display name. The
// handle must not be registered anywhere; a duplicate admission is rejected
// with ErrAlreadyConnected and leaves no trace. On success the whole room,
// new member included, is told about the join.
func (h *Hub) Connect(sender domain.Sender, name, roomID string) (*domain.Member, error) {
	if roomID == "" {
		roomID = domain.DefaultRoom
	}
	now := time.Now()
	m := &domain.Member{
		ID:          uuid.NewString(),
		Name:        name,
		Sender:      sender,
		ConnectedAt: now,
		LastActive:  now,
	}
	if !h.reg.AddMember(roomID, m) {
		return nil, domain.ErrAlreadyConnected
	}
	h.reg.AddConnection()
	h.metrics.ConnectionsTotal.Inc()
	h.metrics.ActiveUsers.Inc()
	h.log.Info("user connected", "user", name, "room", roomID, "memberId", m.ID)

	h.Broadcast(domain.Event{
		Type:      domain.EventJoined,
		UserName:  name,
		Message:   fmt.Sprintf("%s joined the chat", name),
		Timestamp: domain.Epoch(now),
	}, roomID)
	return m, nil
}

// Disconnect removes the handle from the room. It is idempotent: a handle
// that was already removed yields nil and nothing else happens. The
// user_left announcement is queued and delivered asynchronously; the
// disconnecting side cannot observe its outcome.
func (h *Hub) Disconnect(senderID, roomID string) *domain.Member {
	if roomID == "" {
		roomID = domain.DefaultRoom
	}
	m := h.reg.RemoveMember(roomID, senderID)
	if m == nil {
		return nil
	}
	h.reg.DropConnection()
	h.metrics.ActiveUsers.Dec()
	h.log.Info("user disconnected", "user", m.Name, "room", roomID, "memberId", m.ID)

	ev := domain.Event{
		Type:      domain.EventLeft,
		UserName:  m.Name,
		Message:   fmt.Sprintf("%s left the chat", m.Name),
		Timestamp: domain.Epoch(time.Now()),
	}
	select {
	case h.leaves <- leave{event: ev, roomID: roomID}:
	default:
		h.metrics.DroppedLeavesTotal.Inc()
		h.log.Warn("leave announcement dropped, queue full", "user", m.Name, "room", roomID)
	}
	return m
}

// SendChat builds a chat event for an already-connected member and fans it
// out to the member's room. ErrNotConnected covers the race where the
// message arrives after the connection's own removal.
func (h *Hub) SendChat(senderID, roomID, text string) error {
	if roomID == "" {
		roomID = domain.DefaultRoom
	}
	m := h.reg.Member(roomID, senderID)
	if m == nil {
		return domain.ErrNotConnected
	}
	h.Broadcast(domain.Event{
		Type:      domain.EventChat,
		UserName:  m.Name,
		Message:   text,
		Timestamp: domain.Epoch(time.Now()),
	}, roomID)
	return nil
}

// Broadcast serializes the event once and delivers it to a snapshot of the
// room's members, outside any lock. A failed delivery never reaches the
// caller or the other recipients: the failed member is evicted after the
// pass, and its own user_left announcement goes through the queue against
// the then-current member set, so an eviction cannot re-trigger itself.
func (h *Hub) Broadcast(ev domain.Event, roomID string) {
	if roomID == "" {
		roomID = domain.DefaultRoom
	}
	data, err := json.Marshal(ev)
	if err != nil {
		h.log.Error("event marshal failed", "type", ev.Type, "room", roomID, "error", err)
		return
	}

	members := h.reg.Members(roomID)
	var delivered []string
	var failed []*domain.Member
	for _, m := range members {
		if err := m.Sender.Send(data); err != nil {
			h.log.Warn("delivery failed", "user", m.Name, "room", roomID, "error", err)
			failed = append(failed, m)
			continue
		}
		delivered = append(delivered, m.Sender.ID())
	}

	if len(delivered) > 0 {
		h.reg.Touch(roomID, delivered, time.Now())
	}
	for _, m := range failed {
		if h.Disconnect(m.Sender.ID(), roomID) != nil {
			h.metrics.EvictionsTotal.Inc()
			m.Sender.Close()
		}
	}
	if ev.Type == domain.EventChat {
		h.reg.CountMessage(roomID)
		h.metrics.MessagesTotal.Inc()
	}
}

// RoomStats reports on one room; unknown rooms yield a zeroed record.
func (h *Hub) RoomStats(roomID string) domain.RoomStats {
	if roomID == "" {
		roomID = domain.DefaultRoom
	}
	return h.reg.RoomStats(roomID)
}

// GlobalStats aggregates across all rooms.
func (h *Hub) GlobalStats() domain.GlobalStats {
	return h.reg.GlobalStats()
}
