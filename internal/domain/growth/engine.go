package growth

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/snuggle-app/snuggle-core/internal/domain/shared"
	"github.com/snuggle-app/snuggle-core/pkg/logger"
	"github.com/snuggle-app/snuggle-core/pkg/timeutil"
)

type tableKey struct {
	kind   MeasurementKind
	gender Gender
}

// Engine maps observed measurements to percentile ranks.
type Engine struct {
	tables   map[tableKey]ReferenceTable
	fallback bool
	log      *logger.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for fallback and default-percentile diagnostics.
func WithLogger(l *logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithTables replaces the bundled tables. Invalid tables are rejected by NewEngine.
func WithTables(tables ...ReferenceTable) Option {
	return func(e *Engine) {
		e.tables = make(map[tableKey]ReferenceTable, len(tables))
		for _, t := range tables {
			e.tables[tableKey{t.Kind, t.Gender}] = t.clone()
		}
	}
}

// WithGenderFallback toggles substituting the male table of the same kind
// when no table exists for the requested gender. Enabled by default.
func WithGenderFallback(enabled bool) Option {
	return func(e *Engine) { e.fallback = enabled }
}

// NewEngine builds an engine over the bundled standards unless WithTables is given.
func NewEngine(opts ...Option) (*Engine, error) {
	e := &Engine{fallback: true, log: logger.Nop()}
	WithTables(StandardTables()...)(e)
	for _, opt := range opts {
		opt(e)
	}
	for _, t := range e.tables {
		if err := t.Validate(); err != nil {
			return nil, err
		}
	}
	e.log = e.log.With(logger.Component("growth"))
	return e, nil
}

// MustNewEngine is NewEngine for package-level wiring; it panics on invalid tables.
func MustNewEngine(opts ...Option) *Engine {
	e, err := NewEngine(opts...)
	if err != nil {
		panic(err)
	}
	return e
}

// ReferenceTable is a pure lookup of the table for (kind, gender).
// It returns ErrUnsupportedCombination when no such table exists.
func (e *Engine) ReferenceTable(kind MeasurementKind, gender Gender) (ReferenceTable, error) {
	t, ok := e.tables[tableKey{kind, gender}]
	if !ok {
		return ReferenceTable{}, shared.WrapError("growth", "ReferenceTable", shared.ErrUnsupported,
			fmt.Sprintf("no table for %s/%s", kind, gender), shared.ErrUnsupportedCombination)
	}
	return t.clone(), nil
}

// ResolveTable applies the fallback policy: when (kind, gender) is missing
// and fallback is enabled, the male table of the same kind is returned with
// fallback=true. The substitution is logged at WARN.
func (e *Engine) ResolveTable(kind MeasurementKind, gender Gender) (ReferenceTable, bool, error) {
	t, err := e.ReferenceTable(kind, gender)
	if err == nil {
		return t, false, nil
	}
	if !e.fallback || gender == GenderMale {
		return ReferenceTable{}, false, err
	}

	alt, altErr := e.ReferenceTable(kind, GenderMale)
	if altErr != nil {
		return ReferenceTable{}, false, err
	}
	e.log.Warn("reference table fallback",
		logger.MeasurementKind(kind.String()),
		logger.Gender(gender.String()),
		logger.String("substitute_gender", GenderMale.String()),
	)
	return alt, true, nil
}

// ComputePercentile returns the interpolated percentile of value at the
// exact age ageMonths. Every case that cannot be placed (unsupported table,
// age not sampled, value outside the bands) resolves to MedianPercentile so
// chart rendering is never interrupted. Use Evaluate to see why.
func (e *Engine) ComputePercentile(value float64, ageMonths int, gender Gender, kind MeasurementKind) float64 {
	ev, err := e.Evaluate(value, ageMonths, gender, kind)
	if err != nil {
		e.log.Debug("percentile defaulted to median",
			logger.MeasurementKind(kind.String()),
			logger.AgeMonths(ageMonths),
			logger.Err(err),
		)
		return MedianPercentile
	}
	if ev.Position != PositionWithin {
		e.log.Debug("value outside reference bands",
			logger.MeasurementKind(kind.String()),
			logger.AgeMonths(ageMonths),
			logger.Float64("value", value),
			logger.String("position", string(ev.Position)),
		)
		return MedianPercentile
	}
	return ev.Percentile
}

// Evaluate is the strict counterpart of ComputePercentile: it reports
// ErrUnsupportedCombination and ErrNoReferenceForAge as errors and, for
// values outside the bands, returns Position below/above with Percentile
// set to MedianPercentile.
func (e *Engine) Evaluate(value float64, ageMonths int, gender Gender, kind MeasurementKind) (Evaluation, error) {
	table, fellBack, err := e.ResolveTable(kind, gender)
	if err != nil {
		return Evaluation{}, err
	}
	point, err := table.PointAt(ageMonths)
	if err != nil {
		return Evaluation{}, err
	}
	p, pos := interpolate(point, value)
	return Evaluation{Percentile: p, Position: pos, Fallback: fellBack}, nil
}

// interpolate walks adjacent bands and linearly interpolates inside the
// first non-degenerate band that contains value.
func interpolate(point ReferencePoint, value float64) (float64, Position) {
	// NaN compares false against every band
	if math.IsNaN(value) {
		return MedianPercentile, PositionDegenerate
	}
	lowest, _ := point.Value(Percentiles[0])
	highest, _ := point.Value(Percentiles[len(Percentiles)-1])
	if value < lowest {
		return MedianPercentile, PositionBelowRange
	}
	if value > highest {
		return MedianPercentile, PositionAboveRange
	}

	for i := 0; i < len(Percentiles)-1; i++ {
		pLo, pHi := Percentiles[i], Percentiles[i+1]
		vLo, okLo := point.Value(pLo)
		vHi, okHi := point.Value(pHi)
		if !okLo || !okHi {
			continue
		}
		if value < vLo || value > vHi {
			continue
		}
		// zero-width band: skip without dividing
		if vHi == vLo {
			continue
		}
		return float64(pLo) + (value-vLo)/(vHi-vLo)*float64(pHi-pLo), PositionWithin
	}
	return MedianPercentile, PositionDegenerate
}

// Curves returns one series per percentile band for charting, using the
// same fallback policy as ComputePercentile.
func (e *Engine) Curves(kind MeasurementKind, gender Gender) ([]Curve, error) {
	table, _, err := e.ResolveTable(kind, gender)
	if err != nil {
		return nil, err
	}
	curves := make([]Curve, 0, len(Percentiles))
	for _, p := range Percentiles {
		c := Curve{Percentile: p, Points: make([]CurvePoint, 0, len(table.Points))}
		for _, rp := range table.Points {
			v, _ := rp.Value(p)
			c.Points = append(c.Points, CurvePoint{AgeMonths: rp.AgeMonths, Value: v})
		}
		curves = append(curves, c)
	}
	return curves, nil
}

// Results computes the percentile of every measurement that carries kind,
// ordered by date. Age is counted in completed calendar months from dob.
func (e *Engine) Results(
	measurements []Measurement,
	dob time.Time,
	gender Gender,
	kind MeasurementKind,
	cal timeutil.Calendar,
) []PercentileResult {
	results := make([]PercentileResult, 0, len(measurements))
	for _, m := range measurements {
		v, ok := m.ValueOf(kind)
		if !ok {
			continue
		}
		age := cal.MonthsBetween(dob, m.Date)
		results = append(results, PercentileResult{
			MeasurementID: m.ID,
			Date:          m.Date,
			AgeMonths:     age,
			Value:         v,
			Percentile:    e.ComputePercentile(v, age, gender, kind),
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Date.Before(results[j].Date)
	})
	return results
}

// IsUnsupported reports whether err is an unsupported-combination lookup failure.
func IsUnsupported(err error) bool {
	return errors.Is(err, shared.ErrUnsupportedCombination)
}

// IsNoReferenceForAge reports whether err is a missing-age lookup failure.
func IsNoReferenceForAge(err error) bool {
	return errors.Is(err, shared.ErrNoReferenceForAge)
}
