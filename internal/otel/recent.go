package otel

import "sync"

// DefaultRecentSize is the default Recent capacity.
const DefaultRecentSize = 256

// Recent is a fixed-size circular buffer of the latest events of a run.
// Goroutine-safe.
type Recent struct {
	mu    sync.Mutex
	buf   []Event
	head  int // next write position
	count int // number of valid entries (0..len(buf))
}

// NewRecent creates a buffer holding the last size events.
func NewRecent(size int) *Recent {
	if size <= 0 {
		size = DefaultRecentSize
	}
	return &Recent{buf: make([]Event, size)}
}

// Push adds an event, overwriting the oldest if full.
// Extra is copied so later mutation by the emitter cannot leak in.
func (r *Recent) Push(e Event) {
	if e.Extra != nil {
		cp := make(map[string]any, len(e.Extra))
		for k, v := range e.Extra {
			cp[k] = v
		}
		e.Extra = cp
	}
	r.mu.Lock()
	r.buf[r.head] = e
	r.head = (r.head + 1) % len(r.buf)
	if r.count < len(r.buf) {
		r.count++
	}
	r.mu.Unlock()
}

// Events returns the buffered events oldest first.
func (r *Recent) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ordered()
}

// Errors returns the buffered error-level events oldest first, at most n.
// n <= 0 means all of them.
func (r *Recent) Errors(n int) []Event {
	r.mu.Lock()
	all := r.ordered()
	r.mu.Unlock()

	var out []Event
	for _, e := range all {
		if e.Level == LevelError {
			out = append(out, e)
		}
	}
	if n > 0 && len(out) > n {
		out = out[len(out)-n:]
	}
	return out
}

// CountByKind aggregates the buffered events by kind.
func (r *Recent) CountByKind() map[EventKind]int {
	r.mu.Lock()
	defer r.mu.Unlock()

	counts := make(map[EventKind]int)
	for _, e := range r.ordered() {
		counts[e.Kind]++
	}
	return counts
}

// Len returns the number of events currently buffered.
func (r *Recent) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// ordered copies the buffer oldest first. Caller holds r.mu.
func (r *Recent) ordered() []Event {
	if r.count == 0 {
		return nil
	}
	out := make([]Event, r.count)
	if r.count < len(r.buf) {
		copy(out, r.buf[:r.count])
		return out
	}
	n := copy(out, r.buf[r.head:])
	copy(out[n:], r.buf[:r.head])
	return out
}
