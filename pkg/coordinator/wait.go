package coordinator

import (
	"context"
	"fmt"
	"time"
)

// Polling defaults.
const (
	DefaultPollInterval = 10 * time.Millisecond
	DefaultTimeout      = 30 * time.Second
)

// Check is evaluated on every poll. Returning ok=true ends the wait with
// value. A non-nil error (or a panic) counts as "not yet" and polling continues.
type Check[T any] func() (value T, ok bool, err error)

// WaitFor polls check every interval until it reports ok or timeout elapses,
// measured from the first call. It returns a *TimeoutError on expiry and the
// context error if ctx ends first. Errors and panics from check never escape.
// A nil ctx is treated as context.Background().
func WaitFor[T any](ctx context.Context, description string, timeout, interval time.Duration, check Check[T]) (T, error) {
	var zero T
	if ctx == nil {
		ctx = context.Background()
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	deadline := time.Now().Add(timeout)
	timer := time.NewTimer(interval)
	timer.Stop()
	defer timer.Stop()

	polls := 0
	var lastErr error
	for {
		value, ok, err := safeCheck(check)
		polls++
		if err != nil {
			lastErr = err
		} else if ok {
			return value, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return zero, &TimeoutError{
				Description: description,
				Timeout:     timeout,
				Polls:       polls,
				LastErr:     lastErr,
			}
		}

		wait := interval
		if remaining < wait {
			wait = remaining
		}
		timer.Reset(wait)

		select {
		case <-ctx.Done():
			return zero, fmt.Errorf("waiting for %s: %w", description, ctx.Err())
		case <-timer.C:
		}
	}
}

// WaitUntil is WaitFor for plain boolean conditions.
func WaitUntil(ctx context.Context, description string, timeout, interval time.Duration, cond func() bool) error {
	_, err := WaitFor(ctx, description, timeout, interval, func() (struct{}, bool, error) {
		return struct{}{}, cond(), nil
	})
	return err
}

func safeCheck[T any](check Check[T]) (value T, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			value, ok, err = zero, false, fmt.Errorf("check panicked: %v", r)
		}
	}()
	return check()
}
