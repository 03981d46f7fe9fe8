// Package persist provides reactive value containers backed by a key-value
// persistence medium.
//
// A Container restores its value from a named slot when created and writes
// every change back before subscribers hear about it. A SessionContainer does
// the same against a session-scoped medium and can be reset to its default.
package persist

import (
	"errors"
	"fmt"

	"github.com/abelbrown/narratives/internal/audit"
	"github.com/abelbrown/narratives/internal/logging"
	"github.com/abelbrown/narratives/internal/reactive"
)

// ErrDecode marks a slot whose contents could not be decoded. Construction
// fails rather than silently replacing corrupt state with the default.
var ErrDecode = errors.New("persist: decode slot")

// Medium is a key-value slot store. *store.Namespace implements it.
type Medium interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Remove(key string) error
}

// Option configures a container.
type Option func(*options)

type options struct {
	audit    *audit.Logger
	redacted bool
}

// WithAudit records every write to the audit trail.
func WithAudit(l *audit.Logger) Option {
	return func(o *options) { o.audit = l }
}

// Redacted keeps the encoded value out of logs and audit events.
func Redacted() Option {
	return func(o *options) { o.redacted = true }
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Container is a storage-backed reactive value.
type Container[T any] struct {
	key    string
	medium Medium
	codec  Codec[T]
	opts   options
	value  *reactive.Writable[T]
}

// New restores the container under key from m, or writes def to m when the
// slot does not exist yet, so the slot always exists after New returns.
func New[T any](m Medium, key string, def T, codec Codec[T], opts ...Option) (*Container[T], error) {
	c := &Container[T]{
		key:    key,
		medium: m,
		codec:  codec,
		opts:   buildOptions(opts),
	}

	initial, found, err := load(m, key, codec)
	if err != nil {
		return nil, err
	}
	if !found {
		data, err := codec.Encode(def)
		if err != nil {
			return nil, fmt.Errorf("persist: encode default for %q: %w", key, err)
		}
		if err := m.Set(key, data); err != nil {
			return nil, fmt.Errorf("persist: seed slot %q: %w", key, err)
		}
		initial = def
		logging.Debug("Seeded slot", "key", key, "kind", codec.Kind())
	}

	c.value = reactive.NewWritable(initial)
	return c, nil
}

func load[T any](m Medium, key string, codec Codec[T]) (T, bool, error) {
	var zero T
	data, ok, err := m.Get(key)
	if err != nil {
		return zero, false, fmt.Errorf("persist: read slot %q: %w", key, err)
	}
	if !ok {
		return zero, false, nil
	}
	v, err := codec.Decode(data)
	if err != nil {
		logging.Error("Corrupt slot", "key", key, "kind", codec.Kind(), "error", err)
		return zero, false, fmt.Errorf("%w %q (%s): %w", ErrDecode, key, codec.Kind(), err)
	}
	return v, true, nil
}

// Key returns the slot name.
func (c *Container[T]) Key() string {
	return c.key
}

// Kind returns the codec layout.
func (c *Container[T]) Kind() Kind {
	return c.codec.Kind()
}

// Get returns the current value.
func (c *Container[T]) Get() T {
	return c.value.Get()
}

// Subscribe registers fn and calls it immediately with the current value.
func (c *Container[T]) Subscribe(fn func(T)) func() {
	return c.value.Subscribe(fn)
}

// Set encodes v, overwrites the slot, then publishes v. If encoding or the
// write fails the error is returned and the in-memory value is unchanged.
func (c *Container[T]) Set(v T) error {
	data, err := c.codec.Encode(v)
	if err != nil {
		return fmt.Errorf("persist: encode %q: %w", c.key, err)
	}
	err = c.value.Commit(v, func(T) error {
		return c.medium.Set(c.key, data)
	})
	if err != nil {
		return fmt.Errorf("persist: write %q: %w", c.key, err)
	}
	c.opts.audit.Slot(audit.KindContainerSet, c.key, data, c.opts.redacted)
	return nil
}

// Update sets the value to fn(current).
func (c *Container[T]) Update(fn func(T) T) error {
	return c.Set(fn(c.Get()))
}
