package registry

import (
	"log/slog"
	"sort"
	"sync"

	"driftchat-server/domain"
)

type entry struct {
	conn     domain.Connection
	identity string
	room     string
	seq      uint64
}

// Registry owns the connection table and the room membership index.
// Both live under one lock so a room switch is atomic: no snapshot can
// observe a connection in zero or two rooms.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*entry
	rooms map[string]map[string]struct{}
	seq   uint64
}

func New() *Registry {
	return &Registry{
		conns: make(map[string]*entry),
		rooms: make(map[string]map[string]struct{}),
	}
}

// Register binds an identity (and optionally a room) to a live connection.
// A repeated register for the same connection is last-write-wins: the old
// room membership is dropped before the new one is recorded.
func (r *Registry) Register(conn domain.Connection, identity, room string) {
	r.mu.Lock()
	if prev, ok := r.conns[conn.ID()]; ok && prev.room != "" {
		r.leaveLocked(conn.ID(), prev.room)
	}
	r.seq++
	r.conns[conn.ID()] = &entry{conn: conn, identity: identity, room: room, seq: r.seq}
	if room != "" {
		r.joinLocked(conn.ID(), room)
	}
	count := len(r.conns)
	r.mu.Unlock()

	slog.Info("client registered", "clientId", conn.ID(), "identity", identity, "room", room, "clients", count)
}

// Identity reports the display name bound to a connection, if any.
func (r *Registry) Identity(connID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.conns[connID]
	if !ok {
		return "", false
	}
	return e.identity, true
}

// Room reports the current room of a connection, if any.
func (r *Registry) Room(connID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.conns[connID]
	if !ok || e.room == "" {
		return "", false
	}
	return e.room, true
}

// Switch moves a registered connection to another room in one critical
// section and returns the room it left. Switching an unregistered
// connection is a no-op.
func (r *Registry) Switch(connID, room string) (string, bool) {
	r.mu.Lock()
	e, ok := r.conns[connID]
	if !ok {
		r.mu.Unlock()
		return "", false
	}
	old := e.room
	if old == room {
		r.mu.Unlock()
		return old, true
	}
	if old != "" {
		r.leaveLocked(connID, old)
	}
	e.room = room
	if room != "" {
		// Fresh sequence number: presence snapshots order by room join time.
		r.seq++
		e.seq = r.seq
		r.joinLocked(connID, room)
	}
	r.mu.Unlock()

	slog.Info("client switched room", "clientId", connID, "from", old, "to", room)
	return old, true
}

// Unregister removes a connection from the table and from its room.
// Safe to call for a connection that never registered.
func (r *Registry) Unregister(connID string) (identity, room string, ok bool) {
	r.mu.Lock()
	e, found := r.conns[connID]
	if !found {
		r.mu.Unlock()
		return "", "", false
	}
	if e.room != "" {
		r.leaveLocked(connID, e.room)
	}
	delete(r.conns, connID)
	count := len(r.conns)
	r.mu.Unlock()

	slog.Info("client unregistered", "clientId", connID, "identity", e.identity, "clients", count)
	return e.identity, e.room, true
}

// MembersOf returns a join-ordered presence snapshot of a room.
func (r *Registry) MembersOf(room string) []domain.Member {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := r.roomEntriesLocked(room)
	members := make([]domain.Member, 0, len(entries))
	for _, e := range entries {
		members = append(members, domain.Member{ConnID: e.conn.ID(), Identity: e.identity})
	}
	return members
}

// ConnectionsIn returns the live connections of a room, join-ordered.
func (r *Registry) ConnectionsIn(room string) []domain.Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := r.roomEntriesLocked(room)
	conns := make([]domain.Connection, 0, len(entries))
	for _, e := range entries {
		conns = append(conns, e.conn)
	}
	return conns
}

// ConnectionsFor returns every connection registered under an identity.
func (r *Registry) ConnectionsFor(identity string) []domain.Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var entries []*entry
	for _, e := range r.conns {
		if e.identity == identity {
			entries = append(entries, e)
		}
	}
	sortBySeq(entries)
	conns := make([]domain.Connection, 0, len(entries))
	for _, e := range entries {
		conns = append(conns, e.conn)
	}
	return conns
}

// Connection looks up a registered connection by its identifier.
func (r *Registry) Connection(connID string) (domain.Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.conns[connID]
	if !ok {
		return nil, false
	}
	return e.conn, true
}

// All returns every registered connection, join-ordered.
func (r *Registry) All() []domain.Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]*entry, 0, len(r.conns))
	for _, e := range r.conns {
		entries = append(entries, e)
	}
	sortBySeq(entries)
	conns := make([]domain.Connection, 0, len(entries))
	for _, e := range entries {
		conns = append(conns, e.conn)
	}
	return conns
}

func (r *Registry) Stats() (rooms, clients int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms), len(r.conns)
}

func (r *Registry) joinLocked(connID, room string) {
	set, ok := r.rooms[room]
	if !ok {
		set = make(map[string]struct{})
		r.rooms[room] = set
	}
	set[connID] = struct{}{}
}

// leaveLocked removes a membership and garbage-collects the room when the
// last member leaves.
func (r *Registry) leaveLocked(connID, room string) {
	set, ok := r.rooms[room]
	if !ok {
		return
	}
	delete(set, connID)
	if len(set) == 0 {
		delete(r.rooms, room)
		slog.Info("room removed", "room", room)
	}
}

func (r *Registry) roomEntriesLocked(room string) []*entry {
	set, ok := r.rooms[room]
	if !ok {
		return nil
	}
	entries := make([]*entry, 0, len(set))
	for connID := range set {
		if e, found := r.conns[connID]; found {
			entries = append(entries, e)
		}
	}
	sortBySeq(entries)
	return entries
}

func sortBySeq(entries []*entry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })
}
