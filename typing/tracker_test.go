package typing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTracker_Set(t *testing.T) {
	tests := []struct {
		name  string
		edges func(*Tracker) []bool
		room  string
		want  []string
	}{
		{
			name: "start adds typer",
			edges: func(tr *Tracker) []bool {
				return []bool{tr.Set("general", "alice", true)}
			},
			room: "general",
			want: []string{"alice"},
		},
		{
			name: "repeated start is idempotent",
			edges: func(tr *Tracker) []bool {
				return []bool{
					tr.Set("general", "alice", true),
					tr.Set("general", "alice", true),
				}
			},
			room: "general",
			want: []string{"alice"},
		},
		{
			name: "stop clears typer",
			edges: func(tr *Tracker) []bool {
				return []bool{
					tr.Set("general", "alice", true),
					tr.Set("general", "alice", false),
				}
			},
			room: "general",
			want: nil,
		},
		{
			name: "stop without start is a no-op",
			edges: func(tr *Tracker) []bool {
				return []bool{tr.Set("general", "alice", false)}
			},
			room: "general",
			want: nil,
		},
		{
			name: "rooms are isolated",
			edges: func(tr *Tracker) []bool {
				return []bool{
					tr.Set("general", "alice", true),
					tr.Set("random", "bob", true),
				}
			},
			room: "general",
			want: []string{"alice"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := New()
			tt.edges(tr)
			assert.Equal(t, tt.want, tr.Typing(tt.room))
		})
	}
}

func TestTracker_SetReportsChange(t *testing.T) {
	tr := New()

	assert.True(t, tr.Set("general", "alice", true))
	assert.False(t, tr.Set("general", "alice", true))
	assert.True(t, tr.Set("general", "alice", false))
	assert.False(t, tr.Set("general", "alice", false))
}

func TestTracker_TypingSorted(t *testing.T) {
	tr := New()
	tr.Set("general", "carol", true)
	tr.Set("general", "alice", true)
	tr.Set("general", "bob", true)

	assert.Equal(t, []string{"alice", "bob", "carol"}, tr.Typing("general"))
}
