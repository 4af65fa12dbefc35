package browse

import (
	"net/url"
	"sync"
)

// History is an in-memory URL history. Navigate pushes entries written by
// the coordinator. Back and Forward move through them and report the new
// current query to the listener, normally Coordinator.OnURLChange.
type History struct {
	mu       sync.Mutex
	entries  []url.Values
	pos      int
	listener func(url.Values)
}

// NewHistory starts a history at the given query
func NewHistory(initial url.Values) *History {
	return &History{entries: []url.Values{cloneValues(initial)}}
}

// Listen sets the callback for back/forward moves
func (h *History) Listen(fn func(url.Values)) {
	h.mu.Lock()
	h.listener = fn
	h.mu.Unlock()
}

// Navigate pushes query and drops any forward entries. A query equal to the
// current entry is not pushed twice.
func (h *History) Navigate(query url.Values) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.entries[h.pos].Encode() == query.Encode() {
		return
	}
	h.entries = append(h.entries[:h.pos+1], cloneValues(query))
	h.pos++
}

// Back moves one entry back. It reports false at the oldest entry.
func (h *History) Back() bool {
	return h.move(-1)
}

// Forward moves one entry forward. It reports false at the newest entry.
func (h *History) Forward() bool {
	return h.move(1)
}

// Current returns a copy of the current query
func (h *History) Current() url.Values {
	h.mu.Lock()
	defer h.mu.Unlock()
	return cloneValues(h.entries[h.pos])
}

// Len number of entries
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

func (h *History) move(delta int) bool {
	h.mu.Lock()
	next := h.pos + delta
	if next < 0 || next >= len(h.entries) {
		h.mu.Unlock()
		return false
	}
	h.pos = next
	current := cloneValues(h.entries[next])
	listener := h.listener
	h.mu.Unlock()

	if listener != nil {
		listener(current)
	}
	return true
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vs := range v {
		out[k] = append([]string(nil), vs...)
	}
	return out
}
