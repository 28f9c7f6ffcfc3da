package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	name  string
	runs  int64
	err   error
	block chan struct{}
}

func (j *countingJob) Name() string        { return j.name }
func (j *countingJob) Description() string { return "counts runs" }
func (j *countingJob) Run(ctx context.Context) error {
	atomic.AddInt64(&j.runs, 1)
	if j.block != nil {
		select {
		case <-j.block:
		case <-ctx.Done():
		}
	}
	return j.err
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestParseCron(t *testing.T) {
	c, err := ParseCron("0 9 * * *", time.UTC)
	require.NoError(t, err)
	from := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 6, 2, 9, 0, 0, 0, time.UTC), c.Next(from))
	assert.Equal(t, time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC), c.Next(from.Add(-time.Second)))

	c = MustParseCron("*/15 8-10 * * 1-5", time.UTC)
	// 2024-06-01 is a Saturday.
	assert.Equal(t, time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC), c.Next(from))
	assert.Equal(t, time.Date(2024, 6, 3, 8, 15, 0, 0, time.UTC), c.Next(time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC)))

	c = MustParseCron("0 8 1,15 * *", time.UTC)
	assert.Equal(t, time.Date(2024, 6, 15, 8, 0, 0, 0, time.UTC), c.Next(from))
	assert.Equal(t, "0 8 1,15 * *", c.String())

	for _, bad := range []string{"", "* * * *", "60 * * * *", "* 24 * * *", "*/0 * * * *", "5-1 * * * *", "x * * * *"} {
		_, err := ParseCron(bad, nil)
		assert.Error(t, err, bad)
	}
}

func TestParseCron_Location(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	c := MustParseCron("0 9 * * *", loc)
	next := c.Next(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2024, 6, 1, 4, 0, 0, 0, time.UTC), next.UTC())
}

func TestScheduler_RegisterAndRunNow(t *testing.T) {
	s := NewScheduler(DefaultSchedulerConfig())
	job := &countingJob{name: "a"}

	require.NoError(t, s.Register(job, Every(time.Hour)))
	assert.ErrorIs(t, s.Register(job, Every(time.Hour)), ErrJobAlreadyExists)
	assert.ErrorIs(t, s.Register(nil, Every(time.Hour)), ErrNilJob)
	assert.ErrorIs(t, s.Register(&countingJob{name: "b"}, nil), ErrNilSchedule)

	res, err := s.RunNow(context.Background(), "a")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.True(t, res.Manual)
	assert.Equal(t, int64(1), atomic.LoadInt64(&job.runs))

	_, err = s.RunNow(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)

	failing := &countingJob{name: "c", err: errors.New("boom")}
	require.NoError(t, s.Register(failing, Every(time.Hour)))
	_, err = s.RunNow(context.Background(), "c")
	assert.EqualError(t, err, "boom")

	infos := s.ListJobs()
	require.Len(t, infos, 2)
	assert.Equal(t, "a", infos[0].Name)
	assert.Equal(t, int64(1), infos[1].FailCount)
	assert.Len(t, s.History(0), 2)
	assert.Len(t, s.History(1), 1)
}

func TestScheduler_RunDueSkipsBusyJobs(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)}
	cfg := DefaultSchedulerConfig()
	cfg.Now = clock.Now
	s := NewScheduler(cfg)
	s.ctx, s.cancel = context.WithCancel(context.Background())
	defer s.cancel()

	job := &countingJob{name: "slow", block: make(chan struct{})}
	require.NoError(t, s.Register(job, Every(time.Minute)))

	s.runDue()
	assert.Zero(t, atomic.LoadInt64(&job.runs), "not due yet")

	clock.Advance(time.Minute)
	s.runDue()
	require.Eventually(t, func() bool { return atomic.LoadInt64(&job.runs) == 1 }, time.Second, time.Millisecond)

	clock.Advance(time.Minute)
	s.runDue()

	close(job.block)
	s.wg.Wait()
	assert.Equal(t, int64(1), atomic.LoadInt64(&job.runs))

	require.NoError(t, s.SetEnabled("slow", false))
	clock.Advance(time.Hour)
	s.runDue()
	s.wg.Wait()
	assert.Equal(t, int64(1), atomic.LoadInt64(&job.runs))
	assert.ErrorIs(t, s.SetEnabled("nope", true), ErrJobNotFound)
}

func TestScheduler_StartStop(t *testing.T) {
	cfg := DefaultSchedulerConfig()
	cfg.TickInterval = 5 * time.Millisecond
	s := NewScheduler(cfg)
	job := &countingJob{name: "fast"}
	require.NoError(t, s.Register(job, Every(time.Millisecond)))

	require.NoError(t, s.Start(context.Background()))
	assert.ErrorIs(t, s.Start(context.Background()), ErrSchedulerAlreadyRunning)
	assert.True(t, s.IsRunning())

	require.Eventually(t, func() bool { return atomic.LoadInt64(&job.runs) >= 2 }, time.Second, time.Millisecond)
	require.NoError(t, s.Stop())
	assert.ErrorIs(t, s.Stop(), ErrSchedulerNotRunning)
	assert.False(t, s.IsRunning())
}
