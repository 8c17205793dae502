// Package retry provides the linear-backoff retry policy shared by the
// research source clients. Each client used to carry its own copy of the
// attempt loop; the policy factors out max attempts, the backoff schedule
// and the permanent-failure escape hatch so call sites only describe one
// attempt.
package retry

import (
	"context"
	"errors"
	"time"
)

// Policy describes how an operation is retried. The delay before attempt n+1
// is Delay * n (linear backoff), so a 2s delay yields waits of 2s, 4s, ...
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
}

// DefaultPolicy matches the scrapers' historical behavior: three attempts
// with a 2-second base delay.
var DefaultPolicy = Policy{MaxAttempts: 3, Delay: 2 * time.Second}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps an error so Do stops retrying immediately. Use it for
// data problems (a disambiguation page, no matching result) that more
// attempts cannot fix.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do runs fn up to p.MaxAttempts times, sleeping Delay * attempt between
// attempts. fn receives the 1-based attempt number. Do returns nil as soon
// as fn succeeds, the unwrapped error if fn returns a Permanent error, the
// context error if the backoff wait is canceled, and otherwise the error
// from the final attempt.
func (p Policy) Do(ctx context.Context, fn func(attempt int) error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn(attempt)
		if err == nil {
			return nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}

		if attempt == attempts {
			break
		}

		t := time.NewTimer(p.Delay * time.Duration(attempt))
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
	return err
}
