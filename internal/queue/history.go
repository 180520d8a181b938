package queue

import (
	"sync"
	"time"
)

// Outcome records one completed dispatch.
type Outcome struct {
	Key        string        `json:"key"`
	Success    bool          `json:"success"`
	Error      string        `json:"error,omitempty"`
	FinishedAt time.Time     `json:"finished_at"`
	Duration   time.Duration `json:"duration_ms"`
}

// historyRing keeps the most recent outcomes in a fixed-size buffer so
// status endpoints can show recent activity without unbounded growth.
type historyRing struct {
	mu      sync.Mutex
	entries []Outcome
	next    int
	full    bool
}

func newHistoryRing(size int) *historyRing {
	return &historyRing{entries: make([]Outcome, size)}
}

func (h *historyRing) add(o Outcome) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries[h.next] = o
	h.next = (h.next + 1) % len(h.entries)
	if h.next == 0 {
		h.full = true
	}
}

// snapshot returns outcomes newest first.
func (h *historyRing) snapshot() []Outcome {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := h.next
	if h.full {
		n = len(h.entries)
	}
	out := make([]Outcome, 0, n)
	for i := 1; i <= n; i++ {
		idx := (h.next - i + len(h.entries)) % len(h.entries)
		out = append(out, h.entries[idx])
	}
	return out
}
