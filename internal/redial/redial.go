// Package redial is an optional helper that retries Session.Connect
// with a fixed backoff, for callers that want reconnection without
// Session itself looping internally — Session.Connect always makes a
// single attempt, same as the reference client's single-shot connect.
package redial

import (
	"context"
	"log"
	"time"
)

// Dialer performs one connection attempt; it is typically a thin
// closure around a fresh Socket plus Session.Connect.
type Dialer func(ctx context.Context) error

// Redialer retries a Dialer with a fixed delay between attempts until
// it succeeds, ctx is canceled, or Stop is called.
type Redialer struct {
	dial   Dialer
	delay  time.Duration
	logger *log.Logger

	stop chan struct{}
}

// New returns a Redialer calling dial, waiting delay between failed
// attempts.
func New(dial Dialer, delay time.Duration) *Redialer {
	return &Redialer{
		dial:   dial,
		delay:  delay,
		logger: log.New(log.Writer(), "redial: ", log.LstdFlags),
		stop:   make(chan struct{}),
	}
}

// Run blocks retrying dial until it succeeds, ctx is canceled, or Stop
// is called. It returns nil on success, ctx.Err() when ctx is canceled,
// and the last attempt's error when Stop is called.
func (r *Redialer) Run(ctx context.Context) error {
	for {
		err := r.dial(ctx)
		if err == nil {
			return nil
		}
		r.logger.Printf("connect attempt failed: %v", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.stop:
			return err
		case <-time.After(r.delay):
		}
	}
}

// Stop ends any in-progress Run without canceling the caller's context.
func (r *Redialer) Stop() {
	close(r.stop)
}
