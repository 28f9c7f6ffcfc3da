package growth

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snuggle-app/snuggle-core/pkg/logger"
	"github.com/snuggle-app/snuggle-core/pkg/timeutil"
)

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	e, err := NewEngine(opts...)
	require.NoError(t, err)
	return e
}

func TestComputePercentile_ScenarioA(t *testing.T) {
	e := newTestEngine(t)

	assert.Equal(t, 50.0, e.ComputePercentile(7.9, 6, GenderMale, KindWeight))

	p := e.ComputePercentile(6.7, 6, GenderMale, KindWeight)
	assert.Greater(t, p, 3.0)
	assert.Less(t, p, 15.0)
	// 3 + (6.7-6.4)/(7.0-6.4)*(15-3)
	assert.InDelta(t, 9.0, p, 1e-9)
}

func TestComputePercentile_RoundTripsReferenceValues(t *testing.T) {
	e := newTestEngine(t)

	for _, table := range StandardTables() {
		for _, point := range table.Points {
			for _, rank := range Percentiles {
				v, ok := point.Value(rank)
				require.True(t, ok)

				got := e.ComputePercentile(v, point.AgeMonths, table.Gender, table.Kind)
				assert.InDelta(t, float64(rank), got, 1e-9,
					"%s at %d months, P%d", table.Kind, point.AgeMonths, rank)
			}
		}
	}
}

func TestComputePercentile_MonotonicWithinRange(t *testing.T) {
	e := newTestEngine(t)

	for _, table := range StandardTables() {
		for _, point := range table.Points {
			lo, _ := point.Value(Percentiles[0])
			hi, _ := point.Value(Percentiles[len(Percentiles)-1])

			prev := -1.0
			steps := 200
			for i := 0; i <= steps; i++ {
				v := lo + (hi-lo)*float64(i)/float64(steps)
				got := e.ComputePercentile(v, point.AgeMonths, table.Gender, table.Kind)
				assert.GreaterOrEqual(t, got, prev, "%s at %d months, value %.3f", table.Kind, point.AgeMonths, v)
				prev = got
			}
		}
	}
}

func TestComputePercentile_DefaultsToMedian(t *testing.T) {
	e := newTestEngine(t)

	tests := []struct {
		name  string
		value float64
		age   int
	}{
		{"below lowest band", 5.0, 6},
		{"above highest band", 12.0, 6},
		{"age not sampled", 7.5, 5},
		{"age beyond table", 10.0, 24},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, MedianPercentile, e.ComputePercentile(tt.value, tt.age, GenderMale, KindWeight))
		})
	}
}

func TestComputePercentile_NonFiniteValues(t *testing.T) {
	e := newTestEngine(t)

	assert.Equal(t, MedianPercentile, e.ComputePercentile(math.NaN(), 6, GenderMale, KindWeight))
	assert.Equal(t, MedianPercentile, e.ComputePercentile(math.Inf(1), 6, GenderMale, KindWeight))
	assert.Equal(t, MedianPercentile, e.ComputePercentile(math.Inf(-1), 6, GenderMale, KindWeight))

	ev, err := e.Evaluate(math.NaN(), 6, GenderMale, KindWeight)
	require.NoError(t, err)
	assert.Equal(t, PositionDegenerate, ev.Position)
	assert.Equal(t, MedianPercentile, ev.Percentile)
}

func TestComputePercentile_IsDeterministic(t *testing.T) {
	e := newTestEngine(t)

	first := e.ComputePercentile(66.0, 6, GenderMale, KindHeight)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, e.ComputePercentile(66.0, 6, GenderMale, KindHeight))
	}
}

func TestComputePercentile_SkipsDegenerateBand(t *testing.T) {
	table, err := NewReferenceTable(KindWeight, GenderMale, []ReferencePoint{
		{AgeMonths: 0, Values: map[Percentile]float64{3: 3.0, 15: 3.0, 50: 3.5, 85: 3.5, 97: 4.0}},
	})
	require.NoError(t, err)
	e := newTestEngine(t, WithTables(table))

	// 3.0 sits on the zero-width 3–15 band; the next band starts at 15.
	assert.Equal(t, 15.0, e.ComputePercentile(3.0, 0, GenderMale, KindWeight))
	assert.InDelta(t, 32.5, e.ComputePercentile(3.25, 0, GenderMale, KindWeight), 1e-9)
	// 3.5 is the top of 15–50, so 85–85 never divides by zero.
	assert.Equal(t, 50.0, e.ComputePercentile(3.5, 0, GenderMale, KindWeight))
}

func TestComputePercentile_AllBandsDegenerate(t *testing.T) {
	table, err := NewReferenceTable(KindWeight, GenderMale, []ReferencePoint{
		{AgeMonths: 0, Values: map[Percentile]float64{3: 3.0, 15: 3.0, 50: 3.0, 85: 3.0, 97: 3.0}},
	})
	require.NoError(t, err)
	e := newTestEngine(t, WithTables(table))

	ev, err := e.Evaluate(3.0, 0, GenderMale, KindWeight)
	require.NoError(t, err)
	assert.Equal(t, PositionDegenerate, ev.Position)
	assert.Equal(t, MedianPercentile, e.ComputePercentile(3.0, 0, GenderMale, KindWeight))
}

func TestReferenceTable_UnsupportedCombination(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.ReferenceTable(KindWeight, GenderFemale)
	assert.True(t, IsUnsupported(err))

	table, err := e.ReferenceTable(KindHeight, GenderMale)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 3, 6, 9, 12}, table.Ages())
}

func TestResolveTable_FemaleFallsBackToMaleOfSameKind(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.Options{Output: &buf, Level: logger.LevelWarn})
	e := newTestEngine(t, WithLogger(log))

	table, fellBack, err := e.ResolveTable(KindHeadCircumference, GenderFemale)
	require.NoError(t, err)
	assert.True(t, fellBack)
	assert.Equal(t, KindHeadCircumference, table.Kind)
	assert.Equal(t, GenderMale, table.Gender)
	assert.True(t, strings.Contains(buf.String(), "reference table fallback"))

	assert.Equal(t,
		e.ComputePercentile(43.3, 6, GenderMale, KindHeadCircumference),
		e.ComputePercentile(43.3, 6, GenderFemale, KindHeadCircumference))
}

func TestResolveTable_FallbackDisabled(t *testing.T) {
	e := newTestEngine(t, WithGenderFallback(false))

	_, _, err := e.ResolveTable(KindWeight, GenderFemale)
	assert.True(t, IsUnsupported(err))
	assert.Equal(t, MedianPercentile, e.ComputePercentile(7.9, 6, GenderFemale, KindWeight))
}

func TestEvaluate_StrictMode(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.Evaluate(7.0, 5, GenderMale, KindWeight)
	assert.True(t, IsNoReferenceForAge(err))

	ev, err := e.Evaluate(5.0, 6, GenderMale, KindWeight)
	require.NoError(t, err)
	assert.Equal(t, PositionBelowRange, ev.Position)

	ev, err = e.Evaluate(10.0, 6, GenderMale, KindWeight)
	require.NoError(t, err)
	assert.Equal(t, PositionAboveRange, ev.Position)

	ev, err = e.Evaluate(8.8, 6, GenderFemale, KindWeight)
	require.NoError(t, err)
	assert.Equal(t, PositionWithin, ev.Position)
	assert.True(t, ev.Fallback)
	assert.InDelta(t, 85.0, ev.Percentile, 1e-9)
}

func TestNewReferenceTable_Validation(t *testing.T) {
	_, err := NewReferenceTable(KindWeight, GenderMale, []ReferencePoint{
		{AgeMonths: 3, Values: band(1, 2, 3, 4, 5)},
		{AgeMonths: 3, Values: band(1, 2, 3, 4, 5)},
	})
	assert.Error(t, err, "duplicate age")

	_, err = NewReferenceTable(KindWeight, GenderMale, []ReferencePoint{
		{AgeMonths: 0, Values: band(1, 2, 1.5, 4, 5)},
	})
	assert.Error(t, err, "decreasing band")

	_, err = NewReferenceTable(KindWeight, GenderMale, []ReferencePoint{
		{AgeMonths: 0, Values: map[Percentile]float64{3: 1, 50: 2}},
	})
	assert.Error(t, err, "missing band")

	_, err = NewEngine(WithTables(ReferenceTable{Kind: "bmi", Gender: GenderMale}))
	assert.Error(t, err)
}

func TestReferenceTable_IsImmutableToCallers(t *testing.T) {
	e := newTestEngine(t)

	table, err := e.ReferenceTable(KindWeight, GenderMale)
	require.NoError(t, err)
	table.Points[2].Values[50] = 100

	assert.Equal(t, 50.0, e.ComputePercentile(7.9, 6, GenderMale, KindWeight))
}

func TestCurves(t *testing.T) {
	e := newTestEngine(t)

	curves, err := e.Curves(KindWeight, GenderMale)
	require.NoError(t, err)
	require.Len(t, curves, len(Percentiles))

	median := curves[2]
	assert.Equal(t, Percentile(50), median.Percentile)
	assert.Equal(t, []CurvePoint{
		{0, 3.5}, {3, 6.4}, {6, 7.9}, {9, 8.9}, {12, 9.6},
	}, median.Points)
}

func TestResults_SkipsMissingKindAndSortsByDate(t *testing.T) {
	e := newTestEngine(t)
	dob := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	measurements := []Measurement{
		{ID: "m6", Date: time.Date(2024, 7, 15, 9, 0, 0, 0, time.UTC), Weight: Float(7.9)},
		{ID: "m0", Date: dob, Weight: Float(3.5), Height: Float(49.9)},
		{ID: "h3", Date: time.Date(2024, 4, 20, 0, 0, 0, 0, time.UTC), Height: Float(61.4)},
	}

	results := e.Results(measurements, dob, GenderMale, KindWeight, timeutil.UTC)
	require.Len(t, results, 2)
	assert.Equal(t, "m0", results[0].MeasurementID)
	assert.Equal(t, 0, results[0].AgeMonths)
	assert.Equal(t, 50.0, results[0].Percentile)
	assert.Equal(t, "m6", results[1].MeasurementID)
	assert.Equal(t, 6, results[1].AgeMonths)

	heights := e.Results(measurements, dob, GenderMale, KindHeight, timeutil.UTC)
	require.Len(t, heights, 2)
	assert.Equal(t, 3, heights[1].AgeMonths)
	assert.InDelta(t, 50.0, heights[1].Percentile, 1e-9)
}

func TestParseHelpers(t *testing.T) {
	g, err := ParseGender("F")
	require.NoError(t, err)
	assert.Equal(t, GenderFemale, g)

	k, err := ParseMeasurementKind("head")
	require.NoError(t, err)
	assert.Equal(t, KindHeadCircumference, k)
	assert.Equal(t, "cm", k.Unit())

	_, err = ParseMeasurementKind("bmi")
	assert.Error(t, err)
	_, err = ParseGender("x")
	assert.Error(t, err)
}
