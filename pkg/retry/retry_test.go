package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBusy = errors.New("database is locked")

func fastPolicy(attempts int) Policy {
	return Policy{Attempts: attempts, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func TestRetrier_RetriesRetryableErrors(t *testing.T) {
	calls := 0
	err := New(fastPolicy(3)).Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return Retryable(errBusy)
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetrier_UnmarkedErrorsFailFast(t *testing.T) {
	calls := 0
	err := New(fastPolicy(3)).Do(context.Background(), func(ctx context.Context) error {
		calls++
		return errBusy
	})

	assert.Equal(t, errBusy, err)
	assert.Equal(t, 1, calls)
}

func TestRetrier_ReturnsLastErrorAfterFinalAttempt(t *testing.T) {
	calls := 0
	err := New(CachePolicy()).Do(context.Background(), func(ctx context.Context) error {
		calls++
		return Retryable(errBusy)
	})

	assert.ErrorIs(t, err, errBusy)
	assert.True(t, IsRetryable(err))
	assert.Equal(t, 2, calls)
}

func TestRetrier_RetryIfAndOnRetry(t *testing.T) {
	calls := 0
	var waits []int
	r := New(fastPolicy(4),
		WithRetryIf(func(err error) bool { return errors.Is(err, errBusy) }),
		WithOnRetry(func(attempt int, _ error, _ time.Duration) { waits = append(waits, attempt) }),
	)

	err := r.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return errBusy
	})

	assert.ErrorIs(t, err, errBusy)
	assert.Equal(t, 4, calls)
	assert.Equal(t, []int{1, 2, 3}, waits)
}

func TestWithRetries_CountsRetriesNotAttempts(t *testing.T) {
	for _, n := range []int{0, 1, 3} {
		calls := 0
		_ = New(fastPolicy(10), WithRetries(n)).Do(context.Background(), func(ctx context.Context) error {
			calls++
			return Retryable(errBusy)
		})
		assert.Equal(t, n+1, calls, "retries=%d", n)
	}
}

func TestRetrier_StopsOnContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	r := New(Policy{Attempts: 5, BaseDelay: time.Hour})

	err := r.Do(ctx, func(ctx context.Context) error {
		calls++
		cancel()
		return Retryable(errBusy)
	})
	assert.ErrorIs(t, err, errBusy)
	assert.Equal(t, 1, calls)

	err = New(fastPolicy(5), WithRetryIf(func(error) bool { return true })).Do(context.Background(),
		func(ctx context.Context) error { calls++; return context.DeadlineExceeded })
	assert.ErrorIs(t, err, context.DeadlineExceeded, "deadlines are never retried")
	assert.Equal(t, 2, calls)
}

func TestBackoff(t *testing.T) {
	r := New(Policy{Attempts: 5, BaseDelay: 100 * time.Millisecond, MaxDelay: 300 * time.Millisecond})
	assert.Equal(t, 100*time.Millisecond, r.backoff(1))
	assert.Equal(t, 200*time.Millisecond, r.backoff(2))
	assert.Equal(t, 300*time.Millisecond, r.backoff(3))
	assert.Equal(t, 300*time.Millisecond, r.backoff(40), "shift overflow is capped")

	j := New(Policy{Attempts: 2, BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second, Jitter: 0.1})
	for i := 0; i < 20; i++ {
		d := j.backoff(1)
		require.GreaterOrEqual(t, d, 90*time.Millisecond)
		require.LessOrEqual(t, d, 110*time.Millisecond)
	}
}

func TestRetryable_Nil(t *testing.T) {
	assert.NoError(t, Retryable(nil))
	assert.False(t, IsRetryable(errBusy))
}
