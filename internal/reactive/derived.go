package reactive

import "sync"

// Derived is a read-only value computed from a source Readable.
//
// The source is subscribed eagerly at construction. fn runs exactly once per
// source emission (including the initial value delivered by Subscribe), and
// the result reaches every Derived subscriber before the source's Set
// returns.
type Derived[T any] struct {
	out   *Writable[T]
	unsub func()
	once  sync.Once
}

// Derive subscribes to src and keeps fn(src) current.
func Derive[S, T any](src Readable[S], fn func(S) T) *Derived[T] {
	d := &Derived[T]{}
	var zero T
	d.out = NewWritable(zero)

	first := true
	d.unsub = src.Subscribe(func(v S) {
		result := fn(v)
		if first {
			// No subscribers can exist yet; avoid a redundant notify pass.
			first = false
			d.out.mu.Lock()
			d.out.value = result
			d.out.mu.Unlock()
			return
		}
		d.out.Set(result)
	})
	return d
}

// Get returns the latest derived value.
func (d *Derived[T]) Get() T {
	return d.out.Get()
}

// Subscribe registers fn and calls it immediately with the latest value.
func (d *Derived[T]) Subscribe(fn func(T)) func() {
	return d.out.Subscribe(fn)
}

// Close detaches from the source. The last value stays readable.
func (d *Derived[T]) Close() {
	d.once.Do(func() {
		if d.unsub != nil {
			d.unsub()
		}
	})
}
