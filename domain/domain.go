package domain

import (
	"errors"
	"time"
)

// DefaultRoom is joined when the client does not name a room.
const DefaultRoom = "main"

// Event types carried on the wire.
const (
	EventChat   = "chat_message"
	EventJoined = "user_joined"
	EventLeft   = "user_left"
	EventSystem = "system"
)

// Event is the wire representation of everything delivered to room members.
type Event struct {
	Type      string  `json:"type"`
	UserName  string  `json:"user_name"`
	Message   string  `json:"message"`
	Timestamp float64 `json:"timestamp"`
}

// Sender is the send handle for one connection: an opaque capability for
// pushing bytes to that connection's transport. IDs are process-unique and
// independent of the underlying transport object.
type Sender interface {
	ID() string
	Send(data []byte) error
	Close() error
}

// Member is one connected participant. ID, Name, Sender and ConnectedAt are
// immutable after admission; LastActive is guarded by the owning room's lock.
type Member struct {
	ID          string
	Name        string
	Sender      Sender
	ConnectedAt time.Time
	LastActive  time.Time
}

// Engine is the surface the transport layer calls into.
type Engine interface {
	Connect(sender Sender, name, roomID string) (*Member, error)
	Disconnect(senderID, roomID string) *Member
	SendChat(senderID, roomID, text string) error
}

// MessageHandler processes one inbound frame from a connection.
type MessageHandler interface {
	Handle(sender Sender, roomID string, data []byte)
}

type UserInfo struct {
	UserID         string  `json:"user_id"`
	UserName       string  `json:"user_name"`
	ConnectionTime float64 `json:"connection_time"`
	LastActivity   float64 `json:"last_activity"`
}

type RoomStats struct {
	RoomID       string     `json:"room_id"`
	UserCount    int        `json:"user_count"`
	MessageCount int64      `json:"message_count"`
	CreatedAt    float64    `json:"created_at"`
	Users        []UserInfo `json:"users"`
}

type GlobalStats struct {
	TotalConnections int64    `json:"total_connections"`
	ActiveUsers      int      `json:"active_users"`
	TotalRooms       int      `json:"total_rooms"`
	TotalMessages    int64    `json:"total_messages"`
	Rooms            []string `json:"rooms"`
}

var (
	// ErrAlreadyConnected rejects admission for a handle that is already
	// registered in some room.
	ErrAlreadyConnected = errors.New("handle already connected")

	// ErrNotConnected rejects a chat message from a handle that is not
	// registered in the target room.
	ErrNotConnected = errors.New("handle not connected")
)

// Epoch converts a time to the numeric epoch-seconds format used on the wire.
func Epoch(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
