package audit

import (
	"slices"
	"strings"
	"sync"
	"time"
)

// DefaultRingSize is the default ring buffer capacity. A session of the
// client produces a few events per fetch and one per container write, so
// this holds several minutes of activity.
const DefaultRingSize = 256

// Match selects events. A nil Match accepts every event. The same matcher
// type serves the in-memory ring and ReadTail over the on-disk log.
type Match func(Event) bool

func (m Match) accepts(e Event) bool {
	return m == nil || m(e)
}

// KindPrefix matches events whose kind starts with prefix, e.g. "fetch."
// or "session.".
func KindPrefix(prefix string) Match {
	return func(e Event) bool {
		return strings.HasPrefix(string(e.Kind), prefix)
	}
}

// SlotKey matches container write and reset events for one slot.
func SlotKey(key string) Match {
	return func(e Event) bool {
		return e.Key == key && isSlotKind(e.Kind)
	}
}

// SlotStat summarizes the writes a ring buffer holds for one storage slot.
type SlotStat struct {
	Key     string
	Session bool      // written through a session container
	Writes  int       // container.set or session.set events
	Resets  int       // session.reset events
	Bytes   int       // encoded size of the latest write, 0 after a reset
	Last    time.Time // time of the latest write or reset
}

// RingBuffer is a fixed-size circular buffer of Events.
// Goroutine-safe for concurrent Push and read operations.
type RingBuffer struct {
	mu    sync.Mutex
	buf   []Event
	size  int
	head  int // next write position
	count int // number of valid entries (0..size)
}

// NewRingBuffer creates a ring buffer with the given capacity.
func NewRingBuffer(size int) *RingBuffer {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &RingBuffer{
		buf:  make([]Event, size),
		size: size,
	}
}

// Push adds an event, overwriting the oldest if full. The Extra map is
// copied so later mutation by the emitter does not show through.
func (r *RingBuffer) Push(e Event) {
	if e.Extra != nil {
		cp := make(map[string]any, len(e.Extra))
		for k, v := range e.Extra {
			cp[k] = v
		}
		e.Extra = cp
	}
	r.mu.Lock()
	r.buf[r.head] = e
	r.head = (r.head + 1) % r.size
	if r.count < r.size {
		r.count++
	}
	r.mu.Unlock()
}

// at returns the i-th oldest buffered event. Caller holds r.mu.
func (r *RingBuffer) at(i int) Event {
	start := 0
	if r.count == r.size {
		start = r.head
	}
	return r.buf[(start+i)%r.size]
}

// Snapshot returns a copy of all events, oldest first.
// The returned slice is safe to use without locks.
func (r *RingBuffer) Snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.count == 0 {
		return nil
	}
	result := make([]Event, r.count)
	for i := range result {
		result[i] = r.at(i)
	}
	return result
}

// Recent returns up to n events accepted by match, newest first. n <= 0
// returns every accepted event.
func (r *RingBuffer) Recent(n int, match Match) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []Event
	for i := r.count - 1; i >= 0; i-- {
		e := r.at(i)
		if !match.accepts(e) {
			continue
		}
		result = append(result, e)
		if n > 0 && len(result) == n {
			break
		}
	}
	return result
}

// Len returns the number of events currently in the buffer.
func (r *RingBuffer) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Cap returns the buffer capacity.
func (r *RingBuffer) Cap() int {
	return r.size
}

// Stats returns counts by EventKind over all buffered events.
func (r *RingBuffer) Stats() map[EventKind]int {
	r.mu.Lock()
	defer r.mu.Unlock()

	counts := make(map[EventKind]int)
	for i := 0; i < r.count; i++ {
		counts[r.at(i).Kind]++
	}
	return counts
}

// Slots summarizes container writes per slot key, most recently touched
// first. Events that are not slot writes are ignored.
func (r *RingBuffer) Slots() []SlotStat {
	r.mu.Lock()
	byKey := make(map[string]*SlotStat)
	var order []*SlotStat
	for i := 0; i < r.count; i++ {
		e := r.at(i)
		if e.Key == "" || !isSlotKind(e.Kind) {
			continue
		}
		s, ok := byKey[e.Key]
		if !ok {
			s = &SlotStat{Key: e.Key}
			byKey[e.Key] = s
			order = append(order, s)
		}
		switch e.Kind {
		case KindSessionReset:
			s.Resets++
			s.Bytes = 0
		default:
			s.Writes++
			s.Bytes = e.Bytes
		}
		s.Session = s.Session || e.Kind != KindContainerSet
		s.Last = e.Time
	}
	r.mu.Unlock()

	result := make([]SlotStat, len(order))
	for i, s := range order {
		result[i] = *s
	}
	slices.SortStableFunc(result, func(a, b SlotStat) int {
		return b.Last.Compare(a.Last)
	})
	return result
}

func isSlotKind(k EventKind) bool {
	return k == KindContainerSet || k == KindSessionSet || k == KindSessionReset
}
