package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snuggle-app/snuggle-core/internal/domain/baby"
	"github.com/snuggle-app/snuggle-core/internal/domain/engagement"
	"github.com/snuggle-app/snuggle-core/internal/domain/growth"
	"github.com/snuggle-app/snuggle-core/internal/domain/notification"
	"github.com/snuggle-app/snuggle-core/internal/domain/shared"
	"github.com/snuggle-app/snuggle-core/pkg/retry"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "snuggle.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestEngagementRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewEngagementRepository(openStore(t))

	_, err := repo.Get(ctx, "parent-1")
	assert.ErrorIs(t, err, shared.ErrEngagementNotFound)

	day := time.Date(2024, 6, 1, 8, 30, 0, 0, time.UTC)
	tr := engagement.NewTracker(engagement.NewState("parent-1"), engagement.WithClock(func() time.Time { return day }))
	for i := 0; i < 3; i++ {
		tr.RecordAppOpen(day.AddDate(0, 0, i))
	}
	saved, err := repo.Save(ctx, tr.State())
	require.NoError(t, err)
	assert.Equal(t, 1, saved.Version)

	got, err := repo.Get(ctx, "parent-1")
	require.NoError(t, err)
	assert.Equal(t, 3, got.StreakDays)
	assert.Equal(t, 3, got.BestStreak)
	assert.Equal(t, shared.DateOf(day.AddDate(0, 0, 2)), got.LastOpenDate)
	assert.Equal(t, saved.TotalPoints, got.TotalPoints)
	assert.Equal(t, 1, got.Version)
	assert.True(t, got.IsUnlocked("streak_3"))
	assert.True(t, saved.Unlocked["streak_3"].Equal(got.Unlocked["streak_3"]))
	assert.Equal(t, saved.Content.Day, got.Content.Day)
	assert.Len(t, got.Content.Challenges, len(saved.Content.Challenges))
}

func TestEngagementRepository_VersionConflicts(t *testing.T) {
	ctx := context.Background()
	repo := NewEngagementRepository(openStore(t))

	saved, err := repo.Save(ctx, engagement.NewState("parent-1"))
	require.NoError(t, err)

	_, err = repo.Save(ctx, engagement.NewState("parent-1"))
	assert.ErrorIs(t, err, shared.ErrConcurrentModification, "second insert")

	saved.Points, saved.TotalPoints = 10, 10
	next, err := repo.Save(ctx, saved)
	require.NoError(t, err)
	assert.Equal(t, 2, next.Version)

	saved.Points, saved.TotalPoints = 20, 20
	_, err = repo.Save(ctx, saved)
	assert.ErrorIs(t, err, shared.ErrConcurrentModification, "stale update")

	got, err := repo.Get(ctx, "parent-1")
	require.NoError(t, err)
	assert.Equal(t, 10, got.Points)
}

func TestChildRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewChildRepository(openStore(t))
	dob := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	child, err := baby.NewChild(baby.NewChildParams{
		OwnerID: "parent-1", Name: "Ada", DateOfBirth: dob, Gender: growth.GenderFemale, Now: dob,
	})
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, child))

	first := growth.Measurement{ID: shared.NewID(), Date: dob.AddDate(0, 1, 0), Weight: growth.Float(4.2)}
	second := growth.Measurement{ID: shared.NewID(), Date: dob, Height: growth.Float(49.9), HeadCircumference: growth.Float(34.1)}
	require.NoError(t, repo.AddMeasurement(ctx, child.ID, first))
	require.NoError(t, repo.AddMeasurement(ctx, child.ID, second))

	err = repo.AddMeasurement(ctx, child.ID, first)
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)
	err = repo.AddMeasurement(ctx, shared.NewChildID(), growth.Measurement{ID: shared.NewID(), Date: dob, Weight: growth.Float(3)})
	assert.ErrorIs(t, err, shared.ErrChildNotFound)

	got, err := repo.Get(ctx, child.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.Name)
	assert.Equal(t, growth.GenderFemale, got.Gender)
	assert.True(t, dob.Equal(got.DateOfBirth))
	require.Len(t, got.Measurements, 2)
	assert.Equal(t, first.ID, got.Measurements[0].ID, "insertion order is kept")
	assert.Equal(t, 4.2, *got.Measurements[0].Weight)
	assert.Nil(t, got.Measurements[0].Height)
	assert.Equal(t, 34.1, *got.Measurements[1].HeadCircumference)

	child.Gender = ""
	require.NoError(t, repo.Save(ctx, child))
	got, err = repo.Get(ctx, child.ID)
	require.NoError(t, err)
	assert.False(t, got.HasGender())

	hijack := *child
	hijack.OwnerID = "intruder"
	assert.Error(t, repo.Save(ctx, &hijack))

	list, err := repo.ListByOwner(ctx, "parent-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Len(t, list[0].Measurements, 2)

	_, err = repo.Get(ctx, shared.NewChildID())
	assert.ErrorIs(t, err, shared.ErrChildNotFound)
}

func TestOutbox(t *testing.T) {
	ctx := context.Background()
	outbox := NewOutbox(openStore(t))
	childID := shared.NewChildID()
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	reminder := func(month int) notification.Reminder {
		return notification.Reminder{
			ID:         notification.StableReminderID(childID, notification.KindMonthlyPhoto, month),
			ChildID:    childID,
			Kind:       notification.KindMonthlyPhoto,
			Month:      month,
			TargetDate: base.AddDate(0, month, 0),
			Title:      "Photo time",
			Message:    "Take the monthly photo",
			Status:     notification.StatusPending,
			CreatedAt:  base,
		}
	}
	for _, m := range []int{3, 1, 2} {
		require.NoError(t, outbox.Enqueue(ctx, reminder(m)))
	}
	assert.ErrorIs(t, outbox.Enqueue(ctx, reminder(1)), shared.ErrReminderExists)

	due, err := outbox.Pending(ctx, base.AddDate(0, 2, 0))
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, 1, due[0].Month)
	assert.Equal(t, 2, due[1].Month)
	assert.True(t, base.AddDate(0, 1, 0).Equal(due[0].TargetDate))

	require.NoError(t, outbox.MarkDelivered(ctx, due[0].ID, base.AddDate(0, 2, 0)))
	assert.True(t, shared.IsNotFound(outbox.MarkDelivered(ctx, due[0].ID, base)))

	due, err = outbox.Pending(ctx, base.AddDate(1, 0, 0))
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, 2, due[0].Month)
}

func TestWithTx_BusyIsRetryable(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	busy := fmt.Errorf("save: %w", sqlite3.Error{Code: sqlite3.ErrBusy})
	err := store.withTx(ctx, func(*sql.Tx) error { return busy })
	assert.True(t, retry.IsRetryable(err))
	assert.ErrorIs(t, err, busy)

	plain := errors.New("bad row")
	err = store.withTx(ctx, func(*sql.Tx) error { return plain })
	assert.False(t, retry.IsRetryable(err))
	assert.Equal(t, plain, err)
}
