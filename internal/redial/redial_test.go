package redial

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRunRetriesUntilSuccess(t *testing.T) {
	var attempts int
	failures := 2
	dial := func(ctx context.Context) error {
		attempts++
		if attempts <= failures {
			return errors.New("connection refused")
		}
		return nil
	}

	r := New(dial, time.Millisecond)
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if attempts != failures+1 {
		t.Fatalf("attempts = %d, want %d", attempts, failures+1)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	dial := func(ctx context.Context) error {
		return errors.New("still failing")
	}

	r := New(dial, time.Hour)
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after context cancel")
	}
}

func TestRunStopsOnStop(t *testing.T) {
	dial := func(ctx context.Context) error {
		return errors.New("still failing")
	}

	r := New(dial, time.Hour)
	done := make(chan error, 1)
	go func() { done <- r.Run(context.Background()) }()

	time.Sleep(10 * time.Millisecond)
	r.Stop()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("Run returned nil error, want the last dial error")
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Stop")
	}
}
