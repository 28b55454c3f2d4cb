package chat

import (
	"sort"
	"sync"

	"github.com/chating-app/chating/client/internal/model/chat"
)

// Log is the append-only transcript of the active room.
type Log struct {
	mu      sync.RWMutex
	entries []chat.Message
}

// NewLog returns an empty transcript.
func NewLog() *Log {
	return &Log{entries: make([]chat.Message, 0, 64)}
}

// Reset drops everything; used when the room changes.
func (l *Log) Reset() {
	l.mu.Lock()
	l.entries = make([]chat.Message, 0, 64)
	l.mu.Unlock()
}

// Seed places persisted history ahead of any live entries that arrived
// while the history request was in flight.
func (l *Log) Seed(history []chat.Message) {
	l.mu.Lock()
	defer l.mu.Unlock()

	merged := make([]chat.Message, 0, len(history)+len(l.entries))
	merged = append(merged, history...)
	merged = append(merged, l.entries...)
	l.entries = merged
}

// Append adds one live entry at the end and returns its position.
func (l *Log) Append(m chat.Message) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, m)
	return len(l.entries) - 1
}

// Len is the number of entries.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Snapshot returns a copy of the entries in order.
func (l *Log) Snapshot() []chat.Message {
	l.mu.RLock()
	defer l.mu.RUnlock()

	copied := make([]chat.Message, len(l.entries))
	copy(copied, l.entries)
	return copied
}

// Roster is the participant set of the active room. It is replaced wholesale
// on every roster update.
type Roster struct {
	mu    sync.RWMutex
	users map[string]struct{}
}

// NewRoster returns an empty participant set.
func NewRoster() *Roster {
	return &Roster{users: make(map[string]struct{})}
}

// Replace swaps in a new participant set.
func (r *Roster) Replace(users []string) {
	next := make(map[string]struct{}, len(users))
	for _, u := range users {
		next[u] = struct{}{}
	}
	r.mu.Lock()
	r.users = next
	r.mu.Unlock()
}

// List returns the participants sorted by name.
func (r *Roster) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.users))
	for u := range r.users {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

// Has reports membership.
func (r *Roster) Has(user string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.users[user]
	return ok
}

// Len is the number of participants.
func (r *Roster) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}
