// Package retry implements a bounded fixed-delay retry combinator. Timeouts
// are expressed as attempts × delay, not wall-clock deadlines: a slow
// individual attempt can extend the total wait past the nominal bound.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Policy bounds a retry loop: at most Attempts invocations, Delay apart.
type Policy struct {
	Attempts int
	Delay    time.Duration
}

// Do invokes op until it returns nil or the policy is exhausted. Every
// returned error is treated as retryable; the last one is surfaced when the
// attempt ceiling is hit. The inter-attempt sleep respects ctx cancellation.
func Do(ctx context.Context, p Policy, op func(ctx context.Context) error) error {
	if p.Attempts < 1 {
		return fmt.Errorf("retry policy needs at least one attempt, got %d", p.Attempts)
	}

	var last error
	for attempt := 1; attempt <= p.Attempts; attempt++ {
		if last = op(ctx); last == nil {
			return nil
		}
		var perm *permanentError
		if errors.As(last, &perm) {
			return perm.err
		}
		if attempt == p.Attempts {
			break
		}
		if err := sleep(ctx, p.Delay); err != nil {
			return err
		}
	}
	return fmt.Errorf("giving up after %d attempts: %w", p.Attempts, last)
}

// Permanent marks an error as non-retryable: Do stops immediately and
// returns the wrapped error.
func Permanent(err error) error {
	return &permanentError{err: err}
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
