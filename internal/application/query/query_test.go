package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snuggle-app/snuggle-core/internal/domain/baby"
	"github.com/snuggle-app/snuggle-core/internal/domain/engagement"
	"github.com/snuggle-app/snuggle-core/internal/domain/growth"
	"github.com/snuggle-app/snuggle-core/internal/domain/shared"
	"github.com/snuggle-app/snuggle-core/internal/infrastructure/persistence/memory"
	"github.com/snuggle-app/snuggle-core/pkg/timeutil"
)

var dob = time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

func seedChild(t *testing.T, repo *memory.ChildRepository, gender growth.Gender) *baby.Child {
	t.Helper()
	ctx := context.Background()
	c, err := baby.NewChild(baby.NewChildParams{
		OwnerID:     "parent-1",
		Name:        "Leo",
		DateOfBirth: dob,
		Gender:      gender,
		Now:         dob.AddDate(1, 0, 0),
	})
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, c))

	for _, m := range []growth.Measurement{
		{Date: dob.AddDate(0, 6, 2), Weight: growth.Float(7.9)},
		{Date: dob.AddDate(0, 3, 1), Weight: growth.Float(6.4), Height: growth.Float(61.4)},
		{Date: dob.AddDate(0, 4, 0), Weight: growth.Float(7.0)},
	} {
		stored, err := c.AddMeasurement(m)
		require.NoError(t, err)
		require.NoError(t, repo.AddMeasurement(ctx, c.ID, stored))
	}
	return c
}

func TestPercentileHistory(t *testing.T) {
	children := memory.NewChildRepository()
	c := seedChild(t, children, growth.GenderMale)
	h := NewGrowthHandler(children, growth.MustNewEngine(), nil, DefaultGrowthConfig())

	dto, err := h.PercentileHistory(context.Background(), GetPercentileHistoryQuery{
		OwnerID: "parent-1", ChildID: c.ID, Kind: growth.KindWeight,
	})
	require.NoError(t, err)
	assert.Equal(t, "kg", dto.Unit)
	require.Len(t, dto.Points, 3)
	assert.Equal(t, 3, dto.Points[0].AgeMonths)
	assert.InDelta(t, 50.0, dto.Points[0].Percentile, 1e-9)
	assert.Equal(t, 4, dto.Points[1].AgeMonths)
	assert.Equal(t, growth.MedianPercentile, dto.Points[1].Percentile, "unsampled age defaults to median")
	assert.InDelta(t, 50.0, dto.Points[2].Percentile, 1e-9)
	assert.Empty(t, dto.Points[0].Position)
}

func TestPercentileHistory_Strict(t *testing.T) {
	children := memory.NewChildRepository()
	c := seedChild(t, children, growth.GenderFemale)
	h := NewGrowthHandler(children, growth.MustNewEngine(), nil, GrowthConfig{Strict: true})

	dto, err := h.PercentileHistory(context.Background(), GetPercentileHistoryQuery{
		OwnerID: "parent-1", ChildID: c.ID, Kind: growth.KindWeight,
	})
	require.NoError(t, err)
	require.Len(t, dto.Points, 3)
	assert.Equal(t, growth.PositionWithin, dto.Points[0].Position)
	assert.Equal(t, "reference table fallback", dto.Points[0].Note)
	assert.Empty(t, dto.Points[1].Position)
	assert.NotEmpty(t, dto.Points[1].Note)
}

func TestPercentileHistory_Errors(t *testing.T) {
	ctx := context.Background()
	children := memory.NewChildRepository()
	c := seedChild(t, children, growth.GenderMale)
	h := NewGrowthHandler(children, growth.MustNewEngine(), nil, DefaultGrowthConfig())

	_, err := h.PercentileHistory(ctx, GetPercentileHistoryQuery{OwnerID: "parent-1", ChildID: c.ID, Kind: "bmi"})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	_, err = h.PercentileHistory(ctx, GetPercentileHistoryQuery{OwnerID: "other", ChildID: c.ID, Kind: growth.KindWeight})
	assert.ErrorIs(t, err, shared.ErrChildNotFound)

	_, err = h.PercentileHistory(ctx, GetPercentileHistoryQuery{OwnerID: "parent-1", ChildID: shared.NewChildID(), Kind: growth.KindWeight})
	assert.True(t, shared.IsNotFound(err))
}

func TestPercentileHistory_NoGender(t *testing.T) {
	children := memory.NewChildRepository()
	c := seedChild(t, children, "")
	h := NewGrowthHandler(children, growth.MustNewEngine(), nil, DefaultGrowthConfig())

	dto, err := h.PercentileHistory(context.Background(), GetPercentileHistoryQuery{
		OwnerID: "parent-1", ChildID: c.ID, Kind: growth.KindHeight,
	})
	require.NoError(t, err)
	require.Len(t, dto.Points, 1)
	assert.Equal(t, "gender not set", dto.Points[0].Note)
	assert.Equal(t, 61.4, dto.Points[0].Value)
}

func TestLatestPercentiles(t *testing.T) {
	children := memory.NewChildRepository()
	c := seedChild(t, children, growth.GenderMale)
	h := NewGrowthHandler(children, growth.MustNewEngine(), nil, DefaultGrowthConfig())

	latest, err := h.LatestPercentiles(context.Background(), "parent-1", c.ID)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, 7.9, latest[growth.KindWeight].Value)
	assert.Equal(t, 6, latest[growth.KindWeight].AgeMonths)
	assert.Equal(t, 3, latest[growth.KindHeight].AgeMonths)
}

func TestReferenceCurves(t *testing.T) {
	h := NewGrowthHandler(memory.NewChildRepository(), growth.MustNewEngine(), nil, DefaultGrowthConfig())

	dto, err := h.ReferenceCurves(GetReferenceCurvesQuery{Kind: growth.KindWeight, Gender: growth.GenderMale})
	require.NoError(t, err)
	assert.False(t, dto.Fallback)
	require.Len(t, dto.Curves, len(growth.Percentiles))

	dto, err = h.ReferenceCurves(GetReferenceCurvesQuery{Kind: growth.KindWeight, Gender: growth.GenderFemale})
	require.NoError(t, err)
	assert.True(t, dto.Fallback)

	_, err = h.ReferenceCurves(GetReferenceCurvesQuery{Kind: growth.KindWeight, Gender: "x"})
	assert.ErrorIs(t, err, shared.ErrUnknownGender)
}

func TestEngagementSummary(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewEngagementRepository()
	now := time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)
	h := NewEngagementSummaryHandler(repo, timeutil.UTC, func() time.Time { return now })

	dto, err := h.Handle(ctx, "parent-1")
	require.NoError(t, err)
	assert.Zero(t, dto.StreakDays)
	assert.Equal(t, 1, dto.Level.Number)
	assert.Len(t, dto.Achievements, len(engagement.Catalog()))
	assert.Nil(t, dto.Content)

	tr := engagement.NewTracker(engagement.NewState("parent-1"))
	tr.RecordAppOpen(now.AddDate(0, 0, -1))
	tr.RecordAppOpen(now)
	_, err = repo.Save(ctx, tr.State())
	require.NoError(t, err)

	dto, err = h.Handle(ctx, "parent-1")
	require.NoError(t, err)
	assert.Equal(t, 2, dto.StreakDays)
	assert.Equal(t, 2, dto.DaysUntilStreakBreaks)
	require.NotNil(t, dto.Content)
	assert.Len(t, dto.Content.Challenges, engagement.ChallengesPerDay)

	_, err = h.Handle(ctx, "")
	assert.ErrorIs(t, err, shared.ErrInvalidUserID)
}
