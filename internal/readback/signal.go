package readback

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/gogpu/lodquery/internal/resource"
)

var (
	// ErrSignalFired is returned by a second Fire.
	ErrSignalFired = errors.New("readback: signal already fired")

	// ErrSignalConsumed is returned by a second Await.
	ErrSignalConsumed = errors.New("readback: signal already consumed")

	// ErrSignalPending is returned by TryAwait before the signal fires.
	ErrSignalPending = errors.New("readback: signal has not fired")
)

// Signal is a one-shot completion channel carrying a map status. It fires
// at most once and can be awaited at most once. Fire never blocks.
type Signal struct {
	ch       chan resource.MapStatus
	fired    atomic.Bool
	consumed atomic.Bool
}

// NewSignal returns an unfired signal.
func NewSignal() *Signal {
	return &Signal{ch: make(chan resource.MapStatus, 1)}
}

// Fire delivers status.
func (s *Signal) Fire(status resource.MapStatus) error {
	if !s.fired.CompareAndSwap(false, true) {
		return ErrSignalFired
	}
	s.ch <- status
	return nil
}

// Await blocks until the signal fires or ctx is done. Only the first call
// can receive the status; later calls return ErrSignalConsumed at once.
func (s *Signal) Await(ctx context.Context) (resource.MapStatus, error) {
	if !s.consumed.CompareAndSwap(false, true) {
		return 0, ErrSignalConsumed
	}
	select {
	case st := <-s.ch:
		return st, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// TryAwait returns the status if the signal has already fired, without
// blocking. Before that it returns ErrSignalPending and the signal stays
// awaitable.
func (s *Signal) TryAwait() (resource.MapStatus, error) {
	if !s.consumed.CompareAndSwap(false, true) {
		return 0, ErrSignalConsumed
	}
	select {
	case st := <-s.ch:
		return st, nil
	default:
		s.consumed.Store(false)
		return 0, ErrSignalPending
	}
}
