// Package conversation keeps per-user chat histories in memory.
package conversation

import (
	"sync"
	"time"
)

// Role is the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one stored chat message.
type Message struct {
	Role    Role
	Content string
	At      time.Time
}

// History is the ordered message log of one user. BeginTurn serializes whole
// chat turns; the read and append methods are safe on their own.
type History struct {
	turn     sync.Mutex
	mu       sync.RWMutex
	messages []Message
	limit    int
}

// NewHistory returns an empty history keeping at most limit messages (0 = unbounded).
func NewHistory(limit int) *History {
	return &History{limit: limit}
}

// BeginTurn blocks until no other turn is running on h and returns the
// function that ends this one.
func (h *History) BeginTurn() (end func()) {
	h.turn.Lock()
	return h.turn.Unlock
}

// Append adds messages in order, dropping the oldest ones past the limit.
func (h *History) Append(msgs ...Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, msgs...)
	if h.limit > 0 && len(h.messages) > h.limit {
		drop := len(h.messages) - h.limit
		h.messages = append(h.messages[:0:0], h.messages[drop:]...)
	}
}

// Messages returns a copy of all stored messages, oldest first.
func (h *History) Messages() []Message {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Message, len(h.messages))
	copy(out, h.messages)
	return out
}

// Window returns a copy of the last turns exchanges (two messages each).
// turns <= 0 returns every message.
func (h *History) Window(turns int) []Message {
	h.mu.RLock()
	defer h.mu.RUnlock()
	start := 0
	if turns > 0 && len(h.messages) > 2*turns {
		start = len(h.messages) - 2*turns
	}
	out := make([]Message, len(h.messages)-start)
	copy(out, h.messages[start:])
	return out
}

// Len returns the number of stored messages.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.messages)
}
