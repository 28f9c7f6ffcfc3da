// Package circuitbreaker guards optional dependencies. The Redis cache and
// the reminder sender sit behind a breaker so an outage costs one fast
// ErrCircuitOpen per call instead of a timeout.
//
// A breaker opens after FailureThreshold consecutive failures, stays open
// for the cooldown, then admits one trial call at a time. SuccessThreshold
// successful trials close it again; a failed trial reopens it.
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State is the breaker position.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	}
	return "unknown"
}

// ErrCircuitOpen is returned without calling fn while the breaker is open
// or while a half-open trial call is already in flight.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// StateChangeFunc observes transitions. It runs with the breaker locked and
// must not call back into it.
type StateChangeFunc func(name string, from, to State)

type settings struct {
	failureThreshold int
	successThreshold int
	cooldown         time.Duration
	onStateChange    StateChangeFunc
	now              func() time.Time
}

// Option configures a breaker.
type Option func(*settings)

// WithFailureThreshold sets how many consecutive failures open the breaker.
func WithFailureThreshold(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.failureThreshold = n
		}
	}
}

// WithSuccessThreshold sets how many successful trial calls close it.
func WithSuccessThreshold(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.successThreshold = n
		}
	}
}

// WithTimeout sets how long the breaker stays open before admitting a trial call.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.cooldown = d
		}
	}
}

func WithOnStateChange(fn StateChangeFunc) Option {
	return func(s *settings) { s.onStateChange = fn }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}

// CircuitBreaker is safe for concurrent use.
type CircuitBreaker struct {
	name string
	cfg  settings

	mu        sync.Mutex
	state     State
	failures  int
	successes int
	openedAt  time.Time
	trialing  bool
}

// New creates a closed breaker. Defaults: 5 failures, 2 successes, 30s.
func New(name string, opts ...Option) *CircuitBreaker {
	cfg := settings{
		failureThreshold: 5,
		successThreshold: 2,
		cooldown:         30 * time.Second,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &CircuitBreaker{name: name, cfg: cfg}
}

// Execute runs fn unless the breaker is open. Any non-nil error from fn
// counts as a failure, so callers translate expected outcomes (cache
// misses) to nil inside fn.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	trial, err := cb.admit()
	if err != nil {
		return err
	}
	err = fn(ctx)
	cb.record(trial, err)
	return err
}

func (cb *CircuitBreaker) admit() (trial bool, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if cb.cfg.now().Sub(cb.openedAt) < cb.cfg.cooldown {
			return false, ErrCircuitOpen
		}
		cb.transition(StateHalfOpen)
		fallthrough
	case StateHalfOpen:
		if cb.trialing {
			return false, ErrCircuitOpen
		}
		cb.trialing = true
		return true, nil
	}
	return false, nil
}

func (cb *CircuitBreaker) record(trial bool, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if trial {
		cb.trialing = false
	}
	if err != nil {
		cb.successes = 0
		cb.failures++
		if cb.state == StateHalfOpen || cb.failures >= cb.cfg.failureThreshold {
			cb.openedAt = cb.cfg.now()
			cb.transition(StateOpen)
		}
		return
	}

	cb.failures = 0
	if cb.state != StateHalfOpen {
		return
	}
	cb.successes++
	if cb.successes >= cb.cfg.successThreshold {
		cb.transition(StateClosed)
	}
}

// transition must be called with mu held.
func (cb *CircuitBreaker) transition(to State) {
	if cb.state == to {
		return
	}
	from := cb.state
	cb.state = to
	cb.failures, cb.successes = 0, 0
	if cb.cfg.onStateChange != nil {
		cb.cfg.onStateChange(cb.name, from, to)
	}
}

// State returns the current position. An open breaker whose cooldown has
// elapsed still reports open until the next call tries it.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) Name() string { return cb.name }

// ══════════════════════════════════════════════════════════════════════════════
// PRESETS
// ══════════════════════════════════════════════════════════════════════════════

// CacheBreaker trips quickly and retries the cache after a short pause; the
// primary store keeps serving while it is open.
func CacheBreaker(onStateChange StateChangeFunc) *CircuitBreaker {
	return New("cache",
		WithFailureThreshold(3),
		WithSuccessThreshold(1),
		WithTimeout(15*time.Second),
		WithOnStateChange(onStateChange),
	)
}

// SenderBreaker guards the push sender used by reminder delivery.
func SenderBreaker(onStateChange StateChangeFunc) *CircuitBreaker {
	return New("reminder-sender",
		WithFailureThreshold(5),
		WithSuccessThreshold(2),
		WithTimeout(time.Minute),
		WithOnStateChange(onStateChange),
	)
}
