package audit

// Goroutine safety:
// The drain goroutine is the sole reader of l.ch and the sole writer to l.w.
// Logger.mu protects only the l.buf pointer (read by drain, written by SetRingBuffer).
// The ring buffer's own mu guards Push and every read.
// drain releases Logger.mu before calling rb.Push(), so locks never nest.

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// writerChanSize is the capacity of the async write channel. Container
	// writes are synchronous with user actions, so a burst (a filter reset
	// touching several slots, a follows refresh) must never block on disk.
	writerChanSize = 4096
)

// logEntry carries both the encoded line (for disk) and the Event itself
// (for the ring buffer), so Dur survives into the ring even though it is
// not serialized.
type logEntry struct {
	data []byte
	ev   Event
}

// Logger serializes events as JSONL via an async background writer.
// Goroutine-safe. A nil *Logger discards everything, so containers and the
// coordinator can hold an optional logger without nil checks.
type Logger struct {
	mu        sync.Mutex
	buf       *RingBuffer   // nil until SetRingBuffer
	sessionID string        // session namespace of this run, stamped on every event
	ch        chan logEntry // buffered channel for async writes
	w         io.Writer     // destination (audit.jsonl in the data dir)
	dropped   atomic.Uint64 // events dropped: full channel, encode failure, write error
	closed    atomic.Bool   // true after Close(); prevents send-on-closed-channel panic
	done      chan struct{} // closed when drain exits
	closeOnce sync.Once
}

// NewLogger creates a Logger writing JSONL to w asynchronously and stamping
// every event with sessionID, so `events --session-id` can isolate one run.
// Call Close() to flush and stop.
func NewLogger(w io.Writer, sessionID string) *Logger {
	l := &Logger{
		sessionID: sessionID,
		ch:        make(chan logEntry, writerChanSize),
		w:         w,
		done:      make(chan struct{}),
	}
	go l.drain()
	return l
}

// NewNullLogger creates a Logger that discards output. Useful in tests that
// only inspect the ring buffer. Callers still Close it.
func NewNullLogger() *Logger {
	return NewLogger(io.Discard, "")
}

// drain writes queued entries to disk, then mirrors them into the ring.
func (l *Logger) drain() {
	defer close(l.done)
	for entry := range l.ch {
		if _, err := l.w.Write(entry.data); err != nil {
			l.dropped.Add(1)
		}

		l.mu.Lock()
		rb := l.buf
		l.mu.Unlock()

		if rb != nil {
			rb.Push(entry.ev)
		}
	}
}

// Emit queues an event. Sets Time (if zero) and SessionID. Non-blocking: if
// the channel is full or the logger is closed, the event is dropped and
// counted.
func (l *Logger) Emit(e Event) {
	if l == nil {
		return
	}
	// A concurrent Close can close l.ch between the closed check and the
	// send; count that as a drop.
	defer func() {
		if recover() != nil {
			l.dropped.Add(1)
		}
	}()

	if l.closed.Load() {
		l.dropped.Add(1)
		return
	}

	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	e.SessionID = l.sessionID

	data, err := json.Marshal(e)
	if err != nil {
		l.dropped.Add(1)
		return
	}
	data = append(data, '\n')

	select {
	case l.ch <- logEntry{data: data, ev: e}:
	default:
		l.dropped.Add(1)
	}
}

// Info emits an info-level event.
func (l *Logger) Info(kind EventKind, comp string, msg string) {
	l.Emit(Event{Level: LevelInfo, Kind: kind, Comp: comp, Msg: msg})
}

// Error emits an error-level event. Nil err is safe.
func (l *Logger) Error(kind EventKind, comp string, err error) {
	errStr := ""
	if err != nil {
		errStr = err.Error()
	}
	l.Emit(Event{Level: LevelError, Kind: kind, Comp: comp, Err: errStr})
}

// Slot records a completed write or reset of a storage slot. data is the
// encoded value; it is carried into the event only when redacted is false.
// Bytes is always recorded so the size of secret slots stays visible.
func (l *Logger) Slot(kind EventKind, key string, data []byte, redacted bool) {
	ev := Event{
		Level: LevelInfo,
		Kind:  kind,
		Comp:  "persist",
		Key:   key,
		Bytes: len(data),
	}
	if !redacted && len(data) > 0 {
		ev.Value = string(data)
	}
	l.Emit(ev)
}

// Fetch records the outcome of a server or relay fetch that began at start.
// A non-nil err produces a fetch.error event, otherwise fetch.complete with
// count items.
func (l *Logger) Fetch(comp, source string, start time.Time, count int, err error) {
	ev := Event{
		Level:  LevelInfo,
		Kind:   KindFetchComplete,
		Comp:   comp,
		Source: source,
		Count:  count,
		Dur:    time.Since(start),
	}
	if err != nil {
		ev.Level = LevelError
		ev.Kind = KindFetchError
		ev.Count = 0
		ev.Err = err.Error()
	}
	l.Emit(ev)
}

// SetRingBuffer attaches a ring buffer for live inspection by the TUI.
func (l *Logger) SetRingBuffer(buf *RingBuffer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buf = buf
}

// SessionID returns the session stamped on every event.
func (l *Logger) SessionID() string {
	if l == nil {
		return ""
	}
	return l.sessionID
}

// Dropped returns the number of events dropped since creation.
func (l *Logger) Dropped() uint64 {
	if l == nil {
		return 0
	}
	return l.dropped.Load()
}

// Close flushes pending events and stops the drain goroutine. Safe to call
// more than once. Drops are reported on stderr since the log itself may be
// the thing that failed.
func (l *Logger) Close() {
	if l == nil {
		return
	}
	l.closeOnce.Do(func() {
		l.closed.Store(true)
		close(l.ch)
		<-l.done

		if d := l.dropped.Load(); d > 0 {
			fmt.Fprintf(os.Stderr, "narratives: %d audit events dropped during session %s\n", d, l.sessionID)
		}
	})
}
