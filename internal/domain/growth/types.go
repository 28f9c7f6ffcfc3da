// Package growth converts a child's anthropometric measurements into
// population percentile ranks against reference growth-standard tables.
//
// A reference table holds, for a sparse set of ages, the measurement value at
// each of the fixed percentile bands {3, 15, 50, 85, 97}. A percentile is
// obtained by linear interpolation between the two adjacent bands that
// bracket the observed value at the exact queried age.
//
// The package has no mutable state after construction; an Engine is safe for
// concurrent use.
package growth

import (
	"fmt"
	"strings"
	"time"

	"github.com/snuggle-app/snuggle-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GENDER & MEASUREMENT KIND
// ══════════════════════════════════════════════════════════════════════════════

// Gender selects the reference population.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// IsValid checks the gender is one of the known values.
func (g Gender) IsValid() bool {
	return g == GenderMale || g == GenderFemale
}

// String returns the string representation.
func (g Gender) String() string { return string(g) }

// ParseGender accepts "male"/"female" and the short forms "m"/"f", case-insensitively.
func ParseGender(s string) (Gender, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male", "m", "boy":
		return GenderMale, nil
	case "female", "f", "girl":
		return GenderFemale, nil
	default:
		return "", shared.WrapError("growth", "ParseGender", shared.ErrInvalidInput,
			fmt.Sprintf("unknown gender %q", s), shared.ErrUnknownGender)
	}
}

// MeasurementKind is the measured quantity.
type MeasurementKind string

const (
	// KindWeight is body weight in kilograms.
	KindWeight MeasurementKind = "weight"
	// KindHeight is length/height in centimetres.
	KindHeight MeasurementKind = "height"
	// KindHeadCircumference is head circumference in centimetres.
	KindHeadCircumference MeasurementKind = "head_circumference"
)

// MeasurementKinds lists every supported kind in display order.
var MeasurementKinds = []MeasurementKind{KindWeight, KindHeight, KindHeadCircumference}

// IsValid checks the kind is one of the known values.
func (k MeasurementKind) IsValid() bool {
	switch k {
	case KindWeight, KindHeight, KindHeadCircumference:
		return true
	}
	return false
}

// Unit returns the unit the kind is expressed in.
func (k MeasurementKind) Unit() string {
	if k == KindWeight {
		return "kg"
	}
	return "cm"
}

// String returns the string representation.
func (k MeasurementKind) String() string { return string(k) }

// ParseMeasurementKind accepts the canonical names plus "head" and "length".
func ParseMeasurementKind(s string) (MeasurementKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "weight", "w":
		return KindWeight, nil
	case "height", "length", "h":
		return KindHeight, nil
	case "head_circumference", "head-circumference", "head", "hc":
		return KindHeadCircumference, nil
	default:
		return "", shared.WrapError("growth", "ParseMeasurementKind", shared.ErrInvalidInput,
			fmt.Sprintf("unknown measurement kind %q", s), shared.ErrUnknownMeasurementKind)
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// PERCENTILE BANDS
// ══════════════════════════════════════════════════════════════════════════════

// Percentile is a reference rank.
type Percentile int

// Percentiles are the fixed reference bands in ascending order.
var Percentiles = []Percentile{3, 15, 50, 85, 97}

// MedianPercentile is returned whenever a value cannot be placed.
const MedianPercentile = 50.0

// ══════════════════════════════════════════════════════════════════════════════
// REFERENCE DATA
// ══════════════════════════════════════════════════════════════════════════════

// ReferencePoint holds the band values at a single age.
type ReferencePoint struct {
	AgeMonths int
	Values    map[Percentile]float64
}

// Value returns the reference value at band p.
func (rp ReferencePoint) Value(p Percentile) (float64, bool) {
	v, ok := rp.Values[p]
	return v, ok
}

func (rp ReferencePoint) clone() ReferencePoint {
	values := make(map[Percentile]float64, len(rp.Values))
	for p, v := range rp.Values {
		values[p] = v
	}
	return ReferencePoint{AgeMonths: rp.AgeMonths, Values: values}
}

// ReferenceTable is the ordered sequence of reference points for one
// (kind, gender) pair.
type ReferenceTable struct {
	Kind   MeasurementKind
	Gender Gender
	Points []ReferencePoint
}

// NewReferenceTable validates and builds a table. Points must be strictly
// increasing by age, every band must be present, and values must be
// non-decreasing with rank.
func NewReferenceTable(kind MeasurementKind, gender Gender, points []ReferencePoint) (ReferenceTable, error) {
	t := ReferenceTable{Kind: kind, Gender: gender, Points: make([]ReferencePoint, len(points))}
	for i, p := range points {
		t.Points[i] = p.clone()
	}
	if err := t.Validate(); err != nil {
		return ReferenceTable{}, err
	}
	return t, nil
}

// Validate checks the table invariants.
func (t ReferenceTable) Validate() error {
	invalid := func(msg string) error {
		return shared.NewDomainError("growth", "ValidateTable", shared.ErrValidation,
			fmt.Sprintf("%s/%s: %s", t.Kind, t.Gender, msg))
	}
	if !t.Kind.IsValid() {
		return invalid("unknown measurement kind")
	}
	if !t.Gender.IsValid() {
		return invalid("unknown gender")
	}
	if len(t.Points) == 0 {
		return invalid("no reference points")
	}
	for i, p := range t.Points {
		if i > 0 && p.AgeMonths <= t.Points[i-1].AgeMonths {
			return invalid(fmt.Sprintf("ages not strictly increasing at %d months", p.AgeMonths))
		}
		prev := 0.0
		for j, rank := range Percentiles {
			v, ok := p.Values[rank]
			if !ok {
				return invalid(fmt.Sprintf("missing P%d at %d months", rank, p.AgeMonths))
			}
			if j > 0 && v < prev {
				return invalid(fmt.Sprintf("P%d decreases at %d months", rank, p.AgeMonths))
			}
			prev = v
		}
	}
	return nil
}

// PointAt returns the reference point whose age exactly equals ageMonths.
func (t ReferenceTable) PointAt(ageMonths int) (ReferencePoint, error) {
	for _, p := range t.Points {
		if p.AgeMonths == ageMonths {
			return p.clone(), nil
		}
	}
	return ReferencePoint{}, shared.WrapError("growth", "ReferencePoint", shared.ErrNotFound,
		fmt.Sprintf("no %s/%s reference at %d months", t.Kind, t.Gender, ageMonths), shared.ErrNoReferenceForAge)
}

// Ages returns the sampled ages in ascending order.
func (t ReferenceTable) Ages() []int {
	ages := make([]int, len(t.Points))
	for i, p := range t.Points {
		ages[i] = p.AgeMonths
	}
	return ages
}

func (t ReferenceTable) clone() ReferenceTable {
	c := ReferenceTable{Kind: t.Kind, Gender: t.Gender, Points: make([]ReferencePoint, len(t.Points))}
	for i, p := range t.Points {
		c.Points[i] = p.clone()
	}
	return c
}

// ══════════════════════════════════════════════════════════════════════════════
// MEASUREMENTS & RESULTS
// ══════════════════════════════════════════════════════════════════════════════

// Measurement is one dated entry; any subset of the kinds may be present.
type Measurement struct {
	ID                string
	Date              time.Time
	Weight            *float64
	Height            *float64
	HeadCircumference *float64
}

// ValueOf returns the value recorded for kind, if any.
func (m Measurement) ValueOf(kind MeasurementKind) (float64, bool) {
	var v *float64
	switch kind {
	case KindWeight:
		v = m.Weight
	case KindHeight:
		v = m.Height
	case KindHeadCircumference:
		v = m.HeadCircumference
	}
	if v == nil {
		return 0, false
	}
	return *v, true
}

// IsEmpty reports whether no kind was recorded.
func (m Measurement) IsEmpty() bool {
	return m.Weight == nil && m.Height == nil && m.HeadCircumference == nil
}

// Float is a helper for building optional measurement values.
func Float(v float64) *float64 { return &v }

// PercentileResult is a derived, never persisted, percentile for one measurement.
type PercentileResult struct {
	MeasurementID string
	Date          time.Time
	AgeMonths     int
	Value         float64
	Percentile    float64
}

// Position places a value relative to the reference bands.
type Position string

const (
	PositionBelowRange Position = "below_range"
	PositionWithin     Position = "within_range"
	PositionAboveRange Position = "above_range"
	// PositionDegenerate means the value sits only on zero-width bands.
	PositionDegenerate Position = "degenerate"
)

// Evaluation is the strict-mode answer: the percentile and where the value fell.
type Evaluation struct {
	Percentile float64
	Position   Position
	Fallback   bool
}

// CurvePoint is one (age, value) sample of a percentile curve.
type CurvePoint struct {
	AgeMonths int
	Value     float64
}

// Curve is the reference line for one percentile band, for charting.
type Curve struct {
	Percentile Percentile
	Points     []CurvePoint
}
