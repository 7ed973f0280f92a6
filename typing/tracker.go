package typing

import (
	"sort"
	"sync"
)

// Tracker keeps the set of identities currently typing, scoped per room.
//
// There is no timeout and no cleanup on disconnect: a typer that goes away
// without sending a stop edge stays in the set until the room itself is
// forgotten. Known limitation, kept to match the reference behavior.
type Tracker struct {
	mu    sync.Mutex
	rooms map[string]map[string]struct{}
}

func New() *Tracker {
	return &Tracker{rooms: make(map[string]map[string]struct{})}
}

// Set records a typing edge and reports whether the set actually changed.
// Repeated starts and stops are idempotent.
func (t *Tracker) Set(room, identity string, isTyping bool) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	set, ok := t.rooms[room]
	if isTyping {
		if !ok {
			set = make(map[string]struct{})
			t.rooms[room] = set
		}
		if _, present := set[identity]; present {
			return false
		}
		set[identity] = struct{}{}
		return true
	}

	if !ok {
		return false
	}
	if _, present := set[identity]; !present {
		return false
	}
	delete(set, identity)
	if len(set) == 0 {
		delete(t.rooms, room)
	}
	return true
}

// Typing returns the identities currently typing in a room, sorted.
func (t *Tracker) Typing(room string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	set, ok := t.rooms[room]
	if !ok {
		return nil
	}
	identities := make([]string, 0, len(set))
	for identity := range set {
		identities = append(identities, identity)
	}
	sort.Strings(identities)
	return identities
}
