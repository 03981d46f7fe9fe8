// Package reactive provides synchronous observable value containers.
//
// Subscribers are called in subscription order, on the goroutine that
// changed the value, before Set returns. Callbacks run outside the
// container's lock, so a subscriber may call Set on the same container;
// the last write wins and cycles are the caller's problem.
package reactive

import "sync"

// Readable is a value that can be read and observed.
type Readable[T any] interface {
	// Get returns the current value.
	Get() T
	// Subscribe registers fn, calls it immediately with the current value,
	// and returns a function that removes the registration.
	Subscribe(fn func(T)) (unsubscribe func())
}

// Writable is a mutable Readable.
type Writable[T any] struct {
	mu     sync.Mutex
	value  T
	subs   []subscriber[T]
	nextID uint64
}

type subscriber[T any] struct {
	id uint64
	fn func(T)
}

// NewWritable creates a Writable holding initial.
func NewWritable[T any](initial T) *Writable[T] {
	return &Writable[T]{value: initial}
}

// Get returns the current value.
func (w *Writable[T]) Get() T {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.value
}

// Set replaces the value and notifies every subscriber.
func (w *Writable[T]) Set(v T) {
	w.mu.Lock()
	w.value = v
	subs := w.snapshot()
	w.mu.Unlock()

	for _, s := range subs {
		s.fn(v)
	}
}

// Commit runs persist with v while holding the lock and stores v only if
// persist succeeds, so readers never see a value that persist rejected.
// Subscribers are notified after the lock is released.
func (w *Writable[T]) Commit(v T, persist func(T) error) error {
	w.mu.Lock()
	if err := persist(v); err != nil {
		w.mu.Unlock()
		return err
	}
	w.value = v
	subs := w.snapshot()
	w.mu.Unlock()

	for _, s := range subs {
		s.fn(v)
	}
	return nil
}

// Update sets the value to fn(current).
func (w *Writable[T]) Update(fn func(T) T) {
	w.Set(fn(w.Get()))
}

// Subscribe registers fn and calls it immediately with the current value.
func (w *Writable[T]) Subscribe(fn func(T)) func() {
	w.mu.Lock()
	w.nextID++
	id := w.nextID
	w.subs = append(w.subs, subscriber[T]{id: id, fn: fn})
	v := w.value
	w.mu.Unlock()

	fn(v)

	var once sync.Once
	return func() {
		once.Do(func() { w.remove(id) })
	}
}

// Subscribers returns the number of live subscriptions.
func (w *Writable[T]) Subscribers() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.subs)
}

func (w *Writable[T]) snapshot() []subscriber[T] {
	subs := make([]subscriber[T], len(w.subs))
	copy(subs, w.subs)
	return subs
}

func (w *Writable[T]) remove(id uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, s := range w.subs {
		if s.id == id {
			w.subs = append(w.subs[:i:i], w.subs[i+1:]...)
			return
		}
	}
}
