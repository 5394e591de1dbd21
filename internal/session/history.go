package session

import (
	"sync"

	"gemini-session-client/internal/gemini"
)

// History is an append-only message log. It has no capacity limit; the only
// way to shrink it is Clear.
type History struct {
	mu       sync.Mutex
	messages []gemini.Message
}

func NewHistory() *History {
	return &History{}
}

func (h *History) Append(msgs ...gemini.Message) {
	if len(msgs) == 0 {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.messages = append(h.messages, msgs...)
}

// All returns a copy of the log in insertion order.
func (h *History) All() []gemini.Message {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]gemini.Message, len(h.messages))
	copy(out, h.messages)
	return out
}

func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.messages = nil
}

func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.messages)
}
