// Package readiness provides a resolve-once signal that blocking operations
// can wait on instead of polling shared flags.
package readiness

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrTimeout is returned by Wait when the signal is not resolved in time.
var ErrTimeout = errors.New("timed out waiting for readiness")

// Signal resolves exactly once, either successfully or with an error.
type Signal struct {
	name string
	done chan struct{}
	once sync.Once
	err  error
}

// New creates an unresolved signal. The name is used in error messages.
func New(name string) *Signal {
	return &Signal{
		name: name,
		done: make(chan struct{}),
	}
}

// Resolved returns a signal that is already resolved with err.
func Resolved(name string, err error) *Signal {
	s := New(name)
	s.Resolve(err)
	return s
}

// Resolve marks the signal as resolved. Only the first call has any effect.
func (s *Signal) Resolve(err error) {
	s.once.Do(func() {
		s.err = err
		close(s.done)
	})
}

// Done returns a channel closed once the signal is resolved.
func (s *Signal) Done() <-chan struct{} {
	return s.done
}

// IsResolved reports whether Resolve has been called.
func (s *Signal) IsResolved() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Err returns the resolution error, or nil if unresolved or resolved successfully.
func (s *Signal) Err() error {
	if !s.IsResolved() {
		return nil
	}
	return s.err
}

// Wait blocks until the signal resolves, the timeout elapses or ctx is done.
// A timeout of zero or less waits without a deadline.
func (s *Signal) Wait(ctx context.Context, timeout time.Duration) error {
	if s.IsResolved() {
		return s.err
	}

	var timer <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		timer = t.C
	}

	select {
	case <-s.done:
		return s.err
	case <-timer:
		return fmt.Errorf("%s: %w after %s", s.name, ErrTimeout, timeout)
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", s.name, ctx.Err())
	}
}
