package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snuggle-app/snuggle-core/internal/domain/growth"
	"github.com/snuggle-app/snuggle-core/internal/domain/shared"
	"github.com/snuggle-app/snuggle-core/internal/infrastructure/persistence/memory"
)

func newChildService(t *testing.T) (*ChildService, *memory.ChildRepository, *memory.Outbox, *recordingPublisher) {
	t.Helper()
	children := memory.NewChildRepository()
	outbox := memory.NewOutbox()
	pub := &recordingPublisher{}
	svc := NewChildService(children, outbox, growth.MustNewEngine(), pub, nil, ChildServiceConfig{
		Now: func() time.Time { return t0 },
	})
	return svc, children, outbox, pub
}

func TestRegisterChild_SchedulesReminders(t *testing.T) {
	ctx := context.Background()
	svc, children, outbox, _ := newChildService(t)

	child, err := svc.RegisterChild(ctx, RegisterChildCommand{
		OwnerID:           "parent-1",
		Name:              "  Leo ",
		DateOfBirth:       t0.AddDate(0, -1, 0),
		Gender:            growth.GenderMale,
		ScheduleReminders: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "Leo", child.Name)

	stored, err := children.Get(ctx, child.ID)
	require.NoError(t, err)
	assert.Equal(t, child.ID, stored.ID)

	reminders := outbox.All()
	require.Len(t, reminders, 12)
	assert.Equal(t, 1, reminders[0].Month)
	assert.Equal(t, 12, reminders[11].Month)

	_, err = svc.RegisterChild(ctx, RegisterChildCommand{OwnerID: "parent-1", Name: "", DateOfBirth: t0})
	assert.ErrorIs(t, err, shared.ErrInvalidChild)
}

func TestAddMeasurement_ComputesPercentiles(t *testing.T) {
	ctx := context.Background()
	svc, children, _, pub := newChildService(t)

	child, err := svc.RegisterChild(ctx, RegisterChildCommand{
		OwnerID:     "parent-1",
		Name:        "Leo",
		DateOfBirth: t0.AddDate(0, -6, 0),
		Gender:      growth.GenderMale,
	})
	require.NoError(t, err)

	res, err := svc.AddMeasurement(ctx, AddMeasurementCommand{
		OwnerID: "parent-1",
		ChildID: child.ID,
		Weight:  growth.Float(7.9),
	})
	require.NoError(t, err)
	assert.Equal(t, 6, res.AgeMonths)
	assert.InDelta(t, 50.0, res.Percentiles[growth.KindWeight], 1e-9)
	_, hasHeight := res.Percentiles[growth.KindHeight]
	assert.False(t, hasHeight)

	stored, err := children.Get(ctx, child.ID)
	require.NoError(t, err)
	require.Len(t, stored.Measurements, 1)
	assert.Equal(t, res.Measurement.ID, stored.Measurements[0].ID)

	require.Equal(t, 1, pub.count(shared.EventMeasurementAdded))
	ev, ok := pub.events[0].(shared.MeasurementAddedEvent)
	require.True(t, ok)
	assert.InDelta(t, 50.0, ev.Percentiles["weight"], 1e-9)
}

func TestAddMeasurement_NoGenderSkipsPercentiles(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newChildService(t)

	child, err := svc.RegisterChild(ctx, RegisterChildCommand{
		OwnerID: "parent-1", Name: "Ash", DateOfBirth: t0.AddDate(0, -3, 0),
	})
	require.NoError(t, err)

	res, err := svc.AddMeasurement(ctx, AddMeasurementCommand{
		OwnerID: "parent-1", ChildID: child.ID, Height: growth.Float(61.4),
	})
	require.NoError(t, err)
	assert.Empty(t, res.Percentiles)
}

func TestAddMeasurement_Rejections(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newChildService(t)

	child, err := svc.RegisterChild(ctx, RegisterChildCommand{
		OwnerID: "parent-1", Name: "Leo", DateOfBirth: t0.AddDate(0, -2, 0),
	})
	require.NoError(t, err)

	_, err = svc.AddMeasurement(ctx, AddMeasurementCommand{OwnerID: "parent-1", ChildID: child.ID})
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.AddMeasurement(ctx, AddMeasurementCommand{
		OwnerID: "parent-1", ChildID: child.ID, Weight: growth.Float(-1),
	})
	assert.ErrorIs(t, err, shared.ErrValueOutOfRange)

	_, err = svc.AddMeasurement(ctx, AddMeasurementCommand{
		OwnerID: "parent-2", ChildID: child.ID, Weight: growth.Float(5),
	})
	assert.ErrorIs(t, err, shared.ErrChildNotFound)

	_, err = svc.AddMeasurement(ctx, AddMeasurementCommand{
		OwnerID: "parent-1", ChildID: child.ID, Weight: growth.Float(5), Date: t0.AddDate(0, -3, 0),
	})
	assert.ErrorIs(t, err, shared.ErrValidation)
}
