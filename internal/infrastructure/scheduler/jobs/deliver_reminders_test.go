package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snuggle-app/snuggle-core/internal/domain/baby"
	"github.com/snuggle-app/snuggle-core/internal/domain/growth"
	"github.com/snuggle-app/snuggle-core/internal/domain/notification"
	"github.com/snuggle-app/snuggle-core/internal/infrastructure/persistence/memory"
	"github.com/snuggle-app/snuggle-core/pkg/circuitbreaker"
)

func TestDeliverReminders(t *testing.T) {
	ctx := context.Background()
	dob := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	now := time.Date(2024, 4, 12, 9, 0, 0, 0, time.UTC)

	child, err := baby.NewChild(baby.NewChildParams{
		OwnerID: "parent-1", Name: "Mia", DateOfBirth: dob, Gender: growth.GenderFemale, Now: now,
	})
	require.NoError(t, err)
	schedule, err := notification.GenerateMonthlyPhotoSchedule(child, now)
	require.NoError(t, err)

	outbox := memory.NewOutbox()
	for _, r := range schedule {
		require.NoError(t, outbox.Enqueue(ctx, r))
	}

	var sent []int
	failMonth := 2
	sender := notification.SenderFunc(func(_ context.Context, r notification.Reminder) error {
		if r.Month == failMonth {
			return errors.New("push service down")
		}
		sent = append(sent, r.Month)
		return nil
	})
	job := NewDeliverRemindersJob(outbox, sender, nil, DeliverRemindersConfig{Now: func() time.Time { return now }})
	assert.Equal(t, "deliver_reminders", job.Name())

	n, err := job.Deliver(ctx)
	assert.ErrorContains(t, err, "push service down")
	assert.Equal(t, 2, n)
	assert.Equal(t, []int{1, 3}, sent)

	failMonth = 0
	n, err = job.Deliver(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []int{1, 3, 2}, sent)

	n, err = job.Deliver(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	pending, err := outbox.Pending(ctx, dob.AddDate(2, 0, 0))
	require.NoError(t, err)
	assert.Len(t, pending, 9)
}

func TestDeliverReminders_BatchSize(t *testing.T) {
	ctx := context.Background()
	dob := time.Date(2023, 1, 10, 0, 0, 0, 0, time.UTC)
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	child, err := baby.NewChild(baby.NewChildParams{OwnerID: "p", Name: "Leo", DateOfBirth: dob, Now: now})
	require.NoError(t, err)
	schedule, err := notification.GenerateMonthlyPhotoSchedule(child, now)
	require.NoError(t, err)
	outbox := memory.NewOutbox()
	for _, r := range schedule {
		require.NoError(t, outbox.Enqueue(ctx, r))
	}

	job := NewDeliverRemindersJob(outbox, LogSender{}, nil, DeliverRemindersConfig{
		BatchSize: 5,
		Now:       func() time.Time { return now },
	})
	require.NoError(t, job.Run(ctx))
	pending, err := outbox.Pending(ctx, now)
	require.NoError(t, err)
	assert.Len(t, pending, 7)
}

func TestDeliverReminders_OpenBreakerStopsTheRun(t *testing.T) {
	ctx := context.Background()
	dob := time.Date(2023, 1, 10, 0, 0, 0, 0, time.UTC)
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	child, err := baby.NewChild(baby.NewChildParams{OwnerID: "p", Name: "Leo", DateOfBirth: dob, Now: now})
	require.NoError(t, err)
	schedule, err := notification.GenerateMonthlyPhotoSchedule(child, now)
	require.NoError(t, err)
	outbox := memory.NewOutbox()
	for _, r := range schedule {
		require.NoError(t, outbox.Enqueue(ctx, r))
	}

	calls := 0
	sender := BreakerSender{
		Sender: notification.SenderFunc(func(context.Context, notification.Reminder) error {
			calls++
			return errors.New("push service down")
		}),
		Breaker: circuitbreaker.New("test", circuitbreaker.WithFailureThreshold(2), circuitbreaker.WithTimeout(time.Hour)),
	}
	job := NewDeliverRemindersJob(outbox, sender, nil, DeliverRemindersConfig{Now: func() time.Time { return now }})

	n, err := job.Deliver(ctx)
	assert.Zero(t, n)
	assert.ErrorIs(t, err, circuitbreaker.ErrCircuitOpen)
	assert.Equal(t, 2, calls, "open breaker short-circuits the rest")

	pending, err := outbox.Pending(ctx, now)
	require.NoError(t, err)
	assert.Len(t, pending, 12)
}
