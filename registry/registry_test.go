package registry

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"driftchat-server/domain"
)

type mockConn struct {
	id       string
	received [][]byte
	mu       sync.Mutex
}

func (m *mockConn) ID() string { return m.id }

func (m *mockConn) Send(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.received = append(m.received, data)
	return nil
}

func (m *mockConn) Close() error { return nil }

func TestRegistry_Register(t *testing.T) {
	tests := []struct {
		name        string
		setup       func(*Registry)
		wantRooms   int
		wantClients int
	}{
		{
			name:        "empty registry",
			setup:       func(r *Registry) {},
			wantRooms:   0,
			wantClients: 0,
		},
		{
			name: "one client with room",
			setup: func(r *Registry) {
				r.Register(&mockConn{id: "c1"}, "alice", "general")
			},
			wantRooms:   1,
			wantClients: 1,
		},
		{
			name: "roomless client creates no room",
			setup: func(r *Registry) {
				r.Register(&mockConn{id: "c1"}, "alice", "")
			},
			wantRooms:   0,
			wantClients: 1,
		},
		{
			name: "multiple rooms",
			setup: func(r *Registry) {
				r.Register(&mockConn{id: "c1"}, "alice", "general")
				r.Register(&mockConn{id: "c2"}, "bob", "general")
				r.Register(&mockConn{id: "c3"}, "carol", "random")
			},
			wantRooms:   2,
			wantClients: 3,
		},
		{
			name: "re-register is last write wins",
			setup: func(r *Registry) {
				c := &mockConn{id: "c1"}
				r.Register(c, "alice", "general")
				r.Register(c, "alicia", "random")
			},
			wantRooms:   1,
			wantClients: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New()
			tt.setup(r)

			rooms, clients := r.Stats()

			assert.Equal(t, tt.wantRooms, rooms)
			assert.Equal(t, tt.wantClients, clients)
		})
	}
}

func TestRegistry_ReRegisterOverwritesIdentity(t *testing.T) {
	r := New()
	c := &mockConn{id: "c1"}

	r.Register(c, "alice", "general")
	r.Register(c, "alicia", "random")

	identity, ok := r.Identity("c1")
	require.True(t, ok)
	assert.Equal(t, "alicia", identity)

	room, ok := r.Room("c1")
	require.True(t, ok)
	assert.Equal(t, "random", room)

	assert.Empty(t, r.MembersOf("general"))
	assert.Len(t, r.MembersOf("random"), 1)
}

func TestRegistry_Identity(t *testing.T) {
	r := New()
	r.Register(&mockConn{id: "c1"}, "alice", "general")

	identity, ok := r.Identity("c1")
	require.True(t, ok)
	assert.Equal(t, "alice", identity)

	_, ok = r.Identity("unknown")
	assert.False(t, ok)
}

func TestRegistry_Unregister(t *testing.T) {
	r := New()
	r.Register(&mockConn{id: "c1"}, "alice", "general")

	identity, room, ok := r.Unregister("c1")
	require.True(t, ok)
	assert.Equal(t, "alice", identity)
	assert.Equal(t, "general", room)

	rooms, clients := r.Stats()
	assert.Equal(t, 0, rooms)
	assert.Equal(t, 0, clients)

	// Idempotent: a second unregister is a no-op.
	_, _, ok = r.Unregister("c1")
	assert.False(t, ok)

	// Unknown connections are tolerated too.
	_, _, ok = r.Unregister("never-registered")
	assert.False(t, ok)
}

func TestRegistry_Switch(t *testing.T) {
	r := New()
	r.Register(&mockConn{id: "c1"}, "alice", "general")
	r.Register(&mockConn{id: "c2"}, "bob", "general")

	old, ok := r.Switch("c1", "random")
	require.True(t, ok)
	assert.Equal(t, "general", old)

	// Exactly one membership after the switch.
	assert.Equal(t, []domain.Member{{ConnID: "c2", Identity: "bob"}}, r.MembersOf("general"))
	assert.Equal(t, []domain.Member{{ConnID: "c1", Identity: "alice"}}, r.MembersOf("random"))

	room, ok := r.Room("c1")
	require.True(t, ok)
	assert.Equal(t, "random", room)
}

func TestRegistry_SwitchToSameRoom(t *testing.T) {
	r := New()
	r.Register(&mockConn{id: "c1"}, "alice", "general")

	old, ok := r.Switch("c1", "general")
	require.True(t, ok)
	assert.Equal(t, "general", old)
	assert.Len(t, r.MembersOf("general"), 1)
}

func TestRegistry_SwitchUnregistered(t *testing.T) {
	r := New()

	_, ok := r.Switch("ghost", "general")
	assert.False(t, ok)

	rooms, _ := r.Stats()
	assert.Equal(t, 0, rooms)
}

func TestRegistry_SwitchFromRoomless(t *testing.T) {
	r := New()
	r.Register(&mockConn{id: "c1"}, "alice", "")

	old, ok := r.Switch("c1", "general")
	require.True(t, ok)
	assert.Empty(t, old)
	assert.Len(t, r.MembersOf("general"), 1)
}

func TestRegistry_MembersOfJoinOrder(t *testing.T) {
	r := New()
	r.Register(&mockConn{id: "c1"}, "alice", "general")
	r.Register(&mockConn{id: "c2"}, "bob", "general")
	r.Register(&mockConn{id: "c3"}, "carol", "general")

	want := []domain.Member{
		{ConnID: "c1", Identity: "alice"},
		{ConnID: "c2", Identity: "bob"},
		{ConnID: "c3", Identity: "carol"},
	}
	assert.Equal(t, want, r.MembersOf("general"))

	// A leaver drops out without disturbing the order of the rest.
	r.Unregister("c2")
	want = []domain.Member{
		{ConnID: "c1", Identity: "alice"},
		{ConnID: "c3", Identity: "carol"},
	}
	assert.Equal(t, want, r.MembersOf("general"))
}

func TestRegistry_RoomCleanup(t *testing.T) {
	r := New()
	r.Register(&mockConn{id: "c1"}, "alice", "general")

	rooms, _ := r.Stats()
	require.Equal(t, 1, rooms)

	r.Unregister("c1")
	rooms, clients := r.Stats()
	assert.Equal(t, 0, rooms)
	assert.Equal(t, 0, clients)
	assert.Empty(t, r.MembersOf("general"))
}

func TestRegistry_ConnectionsFor(t *testing.T) {
	r := New()
	c1 := &mockConn{id: "c1"}
	c2 := &mockConn{id: "c2"}
	c3 := &mockConn{id: "c3"}
	r.Register(c1, "alice", "general")
	r.Register(c2, "alice", "random")
	r.Register(c3, "bob", "general")

	conns := r.ConnectionsFor("alice")
	require.Len(t, conns, 2)
	assert.Equal(t, "c1", conns[0].ID())
	assert.Equal(t, "c2", conns[1].ID())

	assert.Empty(t, r.ConnectionsFor("nobody"))
}

func TestRegistry_All(t *testing.T) {
	r := New()
	r.Register(&mockConn{id: "c1"}, "alice", "general")
	r.Register(&mockConn{id: "c2"}, "bob", "")

	conns := r.All()
	require.Len(t, conns, 2)
	assert.Equal(t, "c1", conns[0].ID())
	assert.Equal(t, "c2", conns[1].ID())
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := New()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := string(rune('a' + n%26))
			c := &mockConn{id: id}
			r.Register(c, "user-"+id, "general")
			r.MembersOf("general")
			r.Switch(id, "random")
			r.Unregister(id)
		}(i)
	}
	wg.Wait()

	rooms, clients := r.Stats()
	assert.Equal(t, 0, rooms)
	assert.Equal(t, 0, clients)
}
