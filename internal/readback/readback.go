// Package readback moves the contents of a staging buffer into host memory
// once the device has finished writing it.
//
// The order is fixed: request a read mapping, poll the device until the
// mapping completes or the timeout elapses, take the completion status,
// copy the mapped view into a host-owned slice and unmap. The view is
// released on every path, including timeouts. Once a poll reports the map
// complete the result no longer depends on the deadline.
package readback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/lodquery/internal/gpuerr"
	"github.com/gogpu/lodquery/internal/resource"
)

// Defaults for NewSynchronizer.
const (
	DefaultTimeout      = 5 * time.Second
	DefaultPollInterval = 10 * time.Millisecond
)

// ErrMapFailed is returned when the mapping completes with a failure status.
var ErrMapFailed = errors.New("readback: buffer mapping failed")

// Mappable is a buffer that can be mapped for host reads.
// *resource.Buffer implements it.
type Mappable interface {
	Size() uint64
	MapAsync(mode gputypes.MapMode, offset, size uint64, callback func(resource.MapStatus)) error
	Poll() bool
	MappedRange(offset, size uint64) ([]byte, error)
	Unmap() error
}

// Synchronizer performs readbacks with a bounded wait.
type Synchronizer struct {
	// Timeout bounds the whole wait for the map to complete.
	Timeout time.Duration

	// PollInterval is the delay between device polls.
	PollInterval time.Duration

	log *slog.Logger
}

// NewSynchronizer returns a synchronizer. A non-positive timeout selects
// DefaultTimeout.
func NewSynchronizer(timeout time.Duration, log *slog.Logger) *Synchronizer {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Synchronizer{
		Timeout:      timeout,
		PollInterval: DefaultPollInterval,
		log:          log,
	}
}

// Readback maps all of buf for reading and returns a copy of its contents,
// exactly buf.Size() bytes long. If the mapping does not complete within
// Timeout the result is an ErrReadbackTimeout error.
func (s *Synchronizer) Readback(ctx context.Context, buf Mappable) (out []byte, err error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	size := buf.Size()
	done := NewSignal()
	if err := buf.MapAsync(gputypes.MapModeRead, 0, size, func(status resource.MapStatus) {
		if ferr := done.Fire(status); ferr != nil {
			s.log.Warn("readback: duplicate map completion", "status", status)
		}
	}); err != nil {
		return nil, gpuerr.New(gpuerr.StageReadback, gpuerr.ErrValidation, fmt.Errorf("map request: %w", err))
	}
	defer func() {
		if uerr := buf.Unmap(); uerr != nil {
			s.log.Warn("readback: unmap failed", "err", uerr)
			if err == nil {
				err = gpuerr.New(gpuerr.StageReadback, gpuerr.ErrValidation, fmt.Errorf("unmap: %w", uerr))
			}
		}
	}()

	interval := s.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	start := time.Now()
	polls := 1
	for !buf.Poll() {
		select {
		case <-ctx.Done():
			return nil, s.waitError(ctx, polls, time.Since(start))
		case <-ticker.C:
			polls++
		}
	}

	status, err := done.TryAwait()
	if err != nil {
		return nil, gpuerr.New(gpuerr.StageReadback, gpuerr.ErrValidation, fmt.Errorf("map completion: %w", err))
	}
	if status != resource.MapStatusSuccess {
		return nil, gpuerr.New(gpuerr.StageReadback, gpuerr.ErrValidation,
			fmt.Errorf("%w: %v", ErrMapFailed, status))
	}

	view, err := buf.MappedRange(0, size)
	if err != nil {
		return nil, gpuerr.New(gpuerr.StageReadback, gpuerr.ErrValidation, fmt.Errorf("mapped range: %w", err))
	}
	out = make([]byte, size)
	copy(out, view)

	s.log.Debug("readback: complete", "bytes", size, "polls", polls, "elapsed", time.Since(start))
	return out, nil
}

func (s *Synchronizer) waitError(ctx context.Context, polls int, elapsed time.Duration) error {
	cause := ctx.Err()
	if errors.Is(cause, context.DeadlineExceeded) {
		s.log.Warn("readback: timed out", "timeout", s.Timeout, "polls", polls)
		return gpuerr.New(gpuerr.StageReadback, gpuerr.ErrReadbackTimeout,
			fmt.Errorf("no map completion after %v: %w", elapsed.Round(time.Millisecond), cause))
	}
	return gpuerr.New(gpuerr.StageReadback, cause, cause)
}
