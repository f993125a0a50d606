package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realtime-chat-server/domain"
)

type stubSender struct{ id string }

func (s *stubSender) ID() string        { return s.id }
func (s *stubSender) Send([]byte) error { return nil }
func (s *stubSender) Close() error      { return nil }

func member(handleID, name string) *domain.Member {
	now := time.Now()
	return &domain.Member{
		ID:          "member-" + handleID,
		Name:        name,
		Sender:      &stubSender{id: handleID},
		ConnectedAt: now,
		LastActive:  now,
	}
}

func TestRegistry_Room(t *testing.T) {
	r := New()
	rm := r.Room("r1")
	require.NotNil(t, rm)
	assert.Equal(t, "r1", rm.ID())
	assert.Same(t, rm, r.Room("r1"), "get-or-create is stable")
	assert.Equal(t, 1, r.GlobalStats().TotalRooms)
}

func TestRegistry_AddMember(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*Registry)
		room  string
		add   *domain.Member
		want  bool
	}{
		{
			name: "fresh handle",
			room: "r1",
			add:  member("h1", "alice"),
			want: true,
		},
		{
			name: "duplicate handle same room",
			setup: func(r *Registry) {
				r.AddMember("r1", member("h1", "alice"))
			},
			room: "r1",
			add:  member("h1", "bob"),
			want: false,
		},
		{
			name: "duplicate handle other room",
			setup: func(r *Registry) {
				r.AddMember("r1", member("h1", "alice"))
			},
			room: "r2",
			add:  member("h1", "alice"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New()
			if tt.setup != nil {
				tt.setup(r)
			}
			assert.Equal(t, tt.want, r.AddMember(tt.room, tt.add))
		})
	}
}

func TestRegistry_AddMember_NoOverwrite(t *testing.T) {
	r := New()
	require.True(t, r.AddMember("r1", member("h1", "alice")))
	require.False(t, r.AddMember("r1", member("h1", "bob")))

	m := r.Member("r1", "h1")
	require.NotNil(t, m)
	assert.Equal(t, "alice", m.Name)
}

func TestRegistry_RemoveMember(t *testing.T) {
	r := New()
	require.True(t, r.AddMember("r1", member("h1", "alice")))

	m := r.RemoveMember("r1", "h1")
	require.NotNil(t, m)
	assert.Equal(t, "alice", m.Name)

	assert.Nil(t, r.RemoveMember("r1", "h1"), "second remove is a no-op")
	assert.Nil(t, r.RemoveMember("r1", "h2"), "unknown handle")
	assert.Nil(t, r.RemoveMember("nope", "h1"), "unknown room")
}

func TestRegistry_RemoveFreesHandle(t *testing.T) {
	r := New()
	require.True(t, r.AddMember("r1", member("h1", "alice")))
	require.NotNil(t, r.RemoveMember("r1", "h1"))

	// A reused handle after removal is a fresh registration.
	assert.True(t, r.AddMember("r2", member("h1", "alice")))
}

func TestRegistry_MembersSnapshot(t *testing.T) {
	r := New()
	require.True(t, r.AddMember("r1", member("h1", "alice")))

	snap := r.Members("r1")
	require.Len(t, snap, 1)

	require.True(t, r.AddMember("r1", member("h2", "bob")))
	assert.Len(t, snap, 1, "earlier snapshot unaffected by later joins")
	assert.Len(t, r.Members("r1"), 2)

	assert.Nil(t, r.Members("never-created"))
}

func TestRegistry_RoomStats(t *testing.T) {
	r := New()
	require.True(t, r.AddMember("r1", member("h1", "alice")))
	r.CountMessage("r1")
	r.CountMessage("r1")

	stats := r.RoomStats("r1")
	assert.Equal(t, "r1", stats.RoomID)
	assert.Equal(t, 1, stats.UserCount)
	assert.Equal(t, int64(2), stats.MessageCount)
	assert.NotZero(t, stats.CreatedAt)
	require.Len(t, stats.Users, 1)
	assert.Equal(t, "alice", stats.Users[0].UserName)
}

func TestRegistry_RoomStats_UnknownRoom(t *testing.T) {
	r := New()
	stats := r.RoomStats("ghost")

	assert.Equal(t, "ghost", stats.RoomID)
	assert.Zero(t, stats.UserCount)
	assert.Zero(t, stats.MessageCount)
	assert.Empty(t, stats.Users)

	// Reads must not create rooms.
	assert.Zero(t, r.GlobalStats().TotalRooms)
}

func TestRegistry_GlobalStats(t *testing.T) {
	r := New()
	require.True(t, r.AddMember("r1", member("h1", "alice")))
	require.True(t, r.AddMember("r1", member("h2", "bob")))
	require.True(t, r.AddMember("r2", member("h3", "carol")))
	r.AddConnection()
	r.AddConnection()
	r.AddConnection()
	r.CountMessage("r1")

	gs := r.GlobalStats()
	assert.Equal(t, int64(3), gs.TotalConnections)
	assert.Equal(t, 3, gs.ActiveUsers)
	assert.Equal(t, 2, gs.TotalRooms)
	assert.Equal(t, int64(1), gs.TotalMessages)
	assert.ElementsMatch(t, []string{"r1", "r2"}, gs.Rooms)
}

func TestRegistry_ConnectionCounterFloor(t *testing.T) {
	r := New()
	r.DropConnection()
	assert.Equal(t, int64(0), r.GlobalStats().TotalConnections, "never negative")

	r.AddConnection()
	r.DropConnection()
	r.DropConnection()
	assert.Equal(t, int64(0), r.GlobalStats().TotalConnections)
}

func TestRegistry_Touch(t *testing.T) {
	r := New()
	m := member("h1", "alice")
	earlier := time.Now().Add(-time.Hour)
	m.LastActive = earlier
	require.True(t, r.AddMember("r1", m))

	at := time.Now()
	r.Touch("r1", []string{"h1", "gone"}, at)

	got := r.Member("r1", "h1")
	require.NotNil(t, got)
	assert.Equal(t, at, got.LastActive)
}
