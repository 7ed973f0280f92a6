package receipt

import "sync"

// Entry is one read watermark: reader saw everything up to Timestamp.
type Entry struct {
	Reader    string `json:"reader"`
	Timestamp int64  `json:"timestamp"`
}

// Ledger is an append-only log of read watermarks. Entries are never
// retracted or deduplicated within a server lifetime.
type Ledger struct {
	mu      sync.RWMutex
	entries []Entry
}

func New() *Ledger {
	return &Ledger{}
}

// Append records a read watermark and returns the stored entry.
func (l *Ledger) Append(reader string, timestamp int64) Entry {
	e := Entry{Reader: reader, Timestamp: timestamp}
	l.mu.Lock()
	l.entries = append(l.entries, e)
	l.mu.Unlock()
	return e
}

// IsRead reports whether any reader other than sender has acknowledged at or
// after the message timestamp. This is a coarse watermark, not a per-message
// receipt: with several senders interleaving, one reader's acknowledgment can
// mark another sender's message as seen (false positive).
func (l *Ledger) IsRead(sender string, timestamp int64) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, e := range l.entries {
		if e.Reader != sender && e.Timestamp >= timestamp {
			return true
		}
	}
	return false
}

// Len reports the number of recorded watermarks.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
