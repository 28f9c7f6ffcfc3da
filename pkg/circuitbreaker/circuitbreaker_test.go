package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func fail(context.Context) error    { return errBoom }
func succeed(context.Context) error { return nil }

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(opts ...Option) (*CircuitBreaker, *fakeClock, *[]string) {
	clock := &fakeClock{t: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)}
	var transitions []string
	base := []Option{
		WithTimeout(time.Minute),
		WithClock(clock.now),
		WithOnStateChange(func(_ string, from, to State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		}),
	}
	return New("test", append(base, opts...)...), clock, &transitions
}

func TestCircuitBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	cb, _, transitions := newTestBreaker(WithFailureThreshold(2))
	ctx := context.Background()

	assert.ErrorIs(t, cb.Execute(ctx, fail), errBoom)
	require.NoError(t, cb.Execute(ctx, succeed), "a success resets the failure count")
	assert.ErrorIs(t, cb.Execute(ctx, fail), errBoom)
	assert.Equal(t, StateClosed, cb.State())
	assert.ErrorIs(t, cb.Execute(ctx, fail), errBoom)
	assert.Equal(t, StateOpen, cb.State())

	called := false
	err := cb.Execute(ctx, func(context.Context) error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
	assert.Equal(t, []string{"closed->open"}, *transitions)
}

func TestCircuitBreaker_TrialCallAfterCooldown(t *testing.T) {
	cb, clock, transitions := newTestBreaker(WithFailureThreshold(1), WithSuccessThreshold(2))
	ctx := context.Background()

	require.Error(t, cb.Execute(ctx, fail))
	clock.advance(59 * time.Second)
	assert.ErrorIs(t, cb.Execute(ctx, succeed), ErrCircuitOpen)

	clock.advance(time.Second)
	require.NoError(t, cb.Execute(ctx, succeed))
	assert.Equal(t, StateHalfOpen, cb.State(), "one success of two")
	require.NoError(t, cb.Execute(ctx, succeed))
	assert.Equal(t, StateClosed, cb.State())

	assert.Equal(t, []string{"closed->open", "open->half-open", "half-open->closed"}, *transitions)
}

func TestCircuitBreaker_FailedTrialReopens(t *testing.T) {
	cb, clock, _ := newTestBreaker(WithFailureThreshold(3))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.Error(t, cb.Execute(ctx, fail))
	}
	clock.advance(time.Minute)
	require.ErrorIs(t, cb.Execute(ctx, fail), errBoom)
	assert.Equal(t, StateOpen, cb.State(), "a single failed trial reopens")

	assert.ErrorIs(t, cb.Execute(ctx, succeed), ErrCircuitOpen, "the cooldown restarts")
}

func TestCircuitBreaker_OneTrialCallAtATime(t *testing.T) {
	cb, clock, _ := newTestBreaker(WithFailureThreshold(1))
	ctx := context.Background()
	require.Error(t, cb.Execute(ctx, fail))
	clock.advance(time.Minute)

	inTrial := make(chan struct{})
	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = cb.Execute(ctx, func(context.Context) error {
			close(inTrial)
			<-release
			return nil
		})
	}()

	<-inTrial
	assert.ErrorIs(t, cb.Execute(ctx, succeed), ErrCircuitOpen)
	close(release)
	wg.Wait()
}

func TestPresets(t *testing.T) {
	var seen []string
	cb := CacheBreaker(func(name string, _, to State) { seen = append(seen, name+":"+to.String()) })
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_ = cb.Execute(ctx, fail)
	}
	assert.Equal(t, []string{"cache:open"}, seen)
	assert.Equal(t, "reminder-sender", SenderBreaker(nil).Name())
}
