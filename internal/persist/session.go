package persist

import (
	"fmt"

	"github.com/abelbrown/narratives/internal/audit"
	"github.com/abelbrown/narratives/internal/logging"
	"github.com/abelbrown/narratives/internal/reactive"
)

// SessionContainer is a reactive value backed by a session-scoped medium.
//
// Unlike Container it does not seed the slot at construction: an absent slot
// simply means the session has not changed the value yet. Reset removes the
// slot and restores the construction-time default.
type SessionContainer[T any] struct {
	key    string
	def    T
	medium Medium
	codec  Codec[T]
	opts   options
	value  *reactive.Writable[T]
}

// NewSession restores the container under key from m if the session has
// written it, otherwise starts from def.
func NewSession[T any](m Medium, key string, def T, codec Codec[T], opts ...Option) (*SessionContainer[T], error) {
	initial, found, err := load(m, key, codec)
	if err != nil {
		return nil, err
	}
	if !found {
		initial = def
	}

	return &SessionContainer[T]{
		key:    key,
		def:    def,
		medium: m,
		codec:  codec,
		opts:   buildOptions(opts),
		value:  reactive.NewWritable(initial),
	}, nil
}

// Key returns the slot name.
func (c *SessionContainer[T]) Key() string {
	return c.key
}

// Default returns the construction-time default.
func (c *SessionContainer[T]) Default() T {
	return c.def
}

// Get returns the current value.
func (c *SessionContainer[T]) Get() T {
	return c.value.Get()
}

// Subscribe registers fn and calls it immediately with the current value.
func (c *SessionContainer[T]) Subscribe(fn func(T)) func() {
	return c.value.Subscribe(fn)
}

// Set persists v, publishes it, then logs the write. A failed write is
// logged as a warning and leaves no audit record.
func (c *SessionContainer[T]) Set(v T) error {
	data, err := c.codec.Encode(v)
	if err != nil {
		return fmt.Errorf("persist: encode %q: %w", c.key, err)
	}

	err = c.value.Commit(v, func(T) error {
		return c.medium.Set(c.key, data)
	})
	if err != nil {
		logging.Warn("Session write failed", "key", c.key, "error", err)
		return fmt.Errorf("persist: write %q: %w", c.key, err)
	}

	if c.opts.redacted {
		logging.Info("Set session value", "key", c.key, "bytes", len(data))
	} else {
		logging.Info("Set session value", "key", c.key, "value", string(data))
	}
	c.opts.audit.Slot(audit.KindSessionSet, c.key, data, c.opts.redacted)
	return nil
}

// Update sets the value to fn(current).
func (c *SessionContainer[T]) Update(fn func(T) T) error {
	return c.Set(fn(c.Get()))
}

// Reset removes the slot and restores the construction-time default, not the
// last persisted value.
func (c *SessionContainer[T]) Reset() error {
	err := c.value.Commit(c.def, func(T) error {
		return c.medium.Remove(c.key)
	})
	if err != nil {
		return fmt.Errorf("persist: reset %q: %w", c.key, err)
	}
	logging.Info("Reset session value", "key", c.key)
	c.opts.audit.Slot(audit.KindSessionReset, c.key, nil, false)
	return nil
}
