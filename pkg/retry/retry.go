// Package retry re-runs storage round-trips that failed for a transient
// reason: a busy SQLite file, a dropped Postgres connection, a Redis blip,
// or an optimistic-lock conflict on engagement state.
//
// Stores mark transient failures with Retryable; callers may widen the
// classification with WithRetryIf.
package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

type retryableError struct{ err error }

func (e retryableError) Error() string { return e.err.Error() }
func (e retryableError) Unwrap() error { return e.err }

// Retryable marks err as safe to retry. The original error stays reachable
// through errors.Is and errors.As.
func Retryable(err error) error {
	if err == nil || IsRetryable(err) {
		return err
	}
	return retryableError{err: err}
}

func IsRetryable(err error) bool {
	var r retryableError
	return errors.As(err, &r)
}

// Policy is the backoff shape: delays double from BaseDelay up to MaxDelay,
// each spread by ±Jitter. A zero MaxDelay keeps the delay at BaseDelay.
type Policy struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
	Jitter    float64
}

// StorePolicy suits database writes of engagement state, children and reminders.
func StorePolicy() Policy {
	return Policy{Attempts: 3, BaseDelay: 50 * time.Millisecond, MaxDelay: time.Second, Jitter: 0.05}
}

// CachePolicy is a single quick retry for best-effort cache calls.
func CachePolicy() Policy {
	return Policy{Attempts: 2, BaseDelay: 20 * time.Millisecond, MaxDelay: 100 * time.Millisecond}
}

// ConnectPolicy covers a database that is still starting up.
func ConnectPolicy() Policy {
	return Policy{Attempts: 5, BaseDelay: 200 * time.Millisecond, MaxDelay: 5 * time.Second, Jitter: 0.1}
}

// Option adjusts a Retrier.
type Option func(*Retrier)

// WithRetries allows n retries after the first attempt.
func WithRetries(n int) Option {
	return func(r *Retrier) {
		if n >= 0 {
			r.policy.Attempts = n + 1
		}
	}
}

// WithRetryIf retries errors matching fn in addition to Retryable ones.
func WithRetryIf(fn func(error) bool) Option {
	return func(r *Retrier) { r.retryIf = fn }
}

// WithOnRetry is called before each wait, with the attempt that failed.
func WithOnRetry(fn func(attempt int, err error, delay time.Duration)) Option {
	return func(r *Retrier) { r.onRetry = fn }
}

// Retrier is immutable and safe to share.
type Retrier struct {
	policy  Policy
	retryIf func(error) bool
	onRetry func(int, error, time.Duration)
}

func New(p Policy, opts ...Option) *Retrier {
	r := &Retrier{policy: p}
	for _, opt := range opts {
		opt(r)
	}
	if r.policy.Attempts < 1 {
		r.policy.Attempts = 1
	}
	return r
}

func (r *Retrier) shouldRetry(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return IsRetryable(err) || (r.retryIf != nil && r.retryIf(err))
}

// Do calls op until it succeeds, fails permanently, runs out of attempts or
// ctx ends. It returns the last error from op.
func (r *Retrier) Do(ctx context.Context, op func(context.Context) error) error {
	var err error
	for attempt := 1; ; attempt++ {
		if err = op(ctx); err == nil {
			return nil
		}
		if attempt >= r.policy.Attempts || !r.shouldRetry(err) || ctx.Err() != nil {
			return err
		}

		delay := r.backoff(attempt)
		if r.onRetry != nil {
			r.onRetry(attempt, err, delay)
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
}

// backoff returns the wait after the given failed attempt.
func (r *Retrier) backoff(attempt int) time.Duration {
	d, ceiling := r.policy.BaseDelay, r.policy.MaxDelay
	if ceiling <= 0 {
		ceiling = d
	}
	for i := 1; i < attempt && d < ceiling; i++ {
		d *= 2
	}
	if d > ceiling {
		d = ceiling
	}
	if j := r.policy.Jitter; j > 0 {
		d += time.Duration(float64(d) * j * (rand.Float64()*2 - 1))
	}
	return max(d, 0)
}
