package readback

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gogpu/lodquery/internal/resource"
)

func TestSignalFiresOnce(t *testing.T) {
	s := NewSignal()
	if err := s.Fire(resource.MapStatusSuccess); err != nil {
		t.Fatalf("Fire: %v", err)
	}
	if err := s.Fire(resource.MapStatusUnknown); !errors.Is(err, ErrSignalFired) {
		t.Errorf("second Fire err = %v, want ErrSignalFired", err)
	}

	st, err := s.Await(context.Background())
	if err != nil || st != resource.MapStatusSuccess {
		t.Fatalf("Await = %v, %v; want Success", st, err)
	}
}

func TestSignalSecondAwaitDoesNotBlock(t *testing.T) {
	s := NewSignal()
	_ = s.Fire(resource.MapStatusSuccess)
	if _, err := s.Await(context.Background()); err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := s.Await(context.Background())
		done <- err
	}()
	select {
	case err := <-done:
		if !errors.Is(err, ErrSignalConsumed) {
			t.Errorf("second Await err = %v, want ErrSignalConsumed", err)
		}
	case <-time.After(time.Second):
		t.Fatal("second Await blocked")
	}
}

func TestSignalAwaitContext(t *testing.T) {
	s := NewSignal()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := s.Await(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want DeadlineExceeded", err)
	}
	if _, err := s.Await(context.Background()); !errors.Is(err, ErrSignalConsumed) {
		t.Errorf("Await after timed-out Await err = %v, want ErrSignalConsumed", err)
	}
}

func TestSignalTryAwait(t *testing.T) {
	s := NewSignal()
	if _, err := s.TryAwait(); !errors.Is(err, ErrSignalPending) {
		t.Fatalf("TryAwait before Fire err = %v, want ErrSignalPending", err)
	}
	_ = s.Fire(resource.MapStatusDeviceLost)

	st, err := s.TryAwait()
	if err != nil || st != resource.MapStatusDeviceLost {
		t.Fatalf("TryAwait = %v, %v; want DeviceLost", st, err)
	}
	if _, err := s.TryAwait(); !errors.Is(err, ErrSignalConsumed) {
		t.Errorf("second TryAwait err = %v, want ErrSignalConsumed", err)
	}
}
