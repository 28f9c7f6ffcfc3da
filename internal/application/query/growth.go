// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"fmt"
	"time"

	"github.com/snuggle-app/snuggle-core/internal/domain/baby"
	"github.com/snuggle-app/snuggle-core/internal/domain/growth"
	"github.com/snuggle-app/snuggle-core/internal/domain/shared"
	"github.com/snuggle-app/snuggle-core/pkg/logger"
	"github.com/snuggle-app/snuggle-core/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GROWTH QUERIES
// Percentile history for a child's chart, reference curves behind it and the
// latest reading per measurement kind. Percentiles are derived on every read
// and never stored.
// ══════════════════════════════════════════════════════════════════════════════

// GetPercentileHistoryQuery requests the chart series of one child.
type GetPercentileHistoryQuery struct {
	OwnerID shared.UserID
	ChildID shared.ChildID
	Kind    growth.MeasurementKind
}

// Validate checks the query parameters.
func (q GetPercentileHistoryQuery) Validate() error {
	if !q.OwnerID.IsValid() {
		return shared.ErrInvalidUserID
	}
	if !q.ChildID.IsValid() {
		return shared.NewDomainError("baby", "Validate", shared.ErrInvalidID, "child ID must be a UUID")
	}
	if !q.Kind.IsValid() {
		return shared.ErrUnknownMeasurementKind
	}
	return nil
}

// PercentilePointDTO is one plotted measurement.
type PercentilePointDTO struct {
	MeasurementID string    `json:"measurement_id"`
	Date          time.Time `json:"date"`
	AgeMonths     int       `json:"age_months"`
	Value         float64   `json:"value"`
	Percentile    float64   `json:"percentile"`

	// Position and Note are only filled in strict mode.
	Position growth.Position `json:"position,omitempty"`
	Note     string          `json:"note,omitempty"`
}

// PercentileHistoryDTO is the series for one measurement kind.
type PercentileHistoryDTO struct {
	ChildID string                 `json:"child_id"`
	Kind    growth.MeasurementKind `json:"kind"`
	Unit    string                 `json:"unit"`
	Gender  growth.Gender          `json:"gender,omitempty"`
	Points  []PercentilePointDTO   `json:"points"`
}

// GetReferenceCurvesQuery requests the reference lines behind a chart.
type GetReferenceCurvesQuery struct {
	Kind   growth.MeasurementKind
	Gender growth.Gender
}

// ReferenceCurvesDTO holds one line per percentile band.
type ReferenceCurvesDTO struct {
	Kind     growth.MeasurementKind `json:"kind"`
	Gender   growth.Gender          `json:"gender"`
	Unit     string                 `json:"unit"`
	Fallback bool                   `json:"fallback"`
	Curves   []growth.Curve         `json:"curves"`
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// GrowthConfig configures GrowthHandler.
type GrowthConfig struct {
	// Strict reports lookup failures and out-of-range values instead of
	// silently placing them on the median.
	Strict bool

	// Calendar counts ages; the zero value is UTC.
	Calendar timeutil.Calendar
}

// DefaultGrowthConfig returns the default configuration.
func DefaultGrowthConfig() GrowthConfig {
	return GrowthConfig{Calendar: timeutil.UTC}
}

// GrowthHandler answers growth chart queries.
type GrowthHandler struct {
	children baby.Repository
	engine   *growth.Engine
	config   GrowthConfig
	log      *logger.Logger
}

// NewGrowthHandler creates a new GrowthHandler.
func NewGrowthHandler(children baby.Repository, engine *growth.Engine, log *logger.Logger, config GrowthConfig) *GrowthHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &GrowthHandler{
		children: children,
		engine:   engine,
		config:   config,
		log:      log.With(logger.Component("growth_query")),
	}
}

func (h *GrowthHandler) child(ctx context.Context, owner shared.UserID, id shared.ChildID) (*baby.Child, error) {
	c, err := h.children.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.OwnerID != owner {
		return nil, shared.WrapError("baby", "Find", shared.ErrNotFound, "child not owned by user", shared.ErrChildNotFound)
	}
	return c, nil
}

// PercentileHistory handles GetPercentileHistoryQuery.
func (h *GrowthHandler) PercentileHistory(ctx context.Context, q GetPercentileHistoryQuery) (*PercentileHistoryDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("percentile_history: %w", err)
	}
	c, err := h.child(ctx, q.OwnerID, q.ChildID)
	if err != nil {
		return nil, fmt.Errorf("percentile_history: %w", err)
	}

	dto := &PercentileHistoryDTO{
		ChildID: c.ID.String(),
		Kind:    q.Kind,
		Unit:    q.Kind.Unit(),
		Gender:  c.Gender,
		Points:  []PercentilePointDTO{},
	}
	if !c.HasGender() {
		// Without a gender no reference table applies; plot the raw values.
		for _, m := range c.MeasurementsOf(q.Kind) {
			v, _ := m.ValueOf(q.Kind)
			dto.Points = append(dto.Points, PercentilePointDTO{
				MeasurementID: m.ID,
				Date:          m.Date,
				AgeMonths:     c.AgeInMonths(m.Date),
				Value:         v,
				Percentile:    growth.MedianPercentile,
				Note:          "gender not set",
			})
		}
		return dto, nil
	}

	for _, r := range h.engine.Results(c.Measurements, c.DateOfBirth, c.Gender, q.Kind, h.config.Calendar) {
		p := PercentilePointDTO{
			MeasurementID: r.MeasurementID,
			Date:          r.Date,
			AgeMonths:     r.AgeMonths,
			Value:         r.Value,
			Percentile:    r.Percentile,
		}
		if h.config.Strict {
			ev, err := h.engine.Evaluate(r.Value, r.AgeMonths, c.Gender, q.Kind)
			switch {
			case growth.IsUnsupported(err):
				return nil, fmt.Errorf("percentile_history: %w", err)
			case err != nil:
				p.Note = err.Error()
			default:
				p.Position = ev.Position
				if ev.Fallback {
					p.Note = "reference table fallback"
				}
			}
		}
		dto.Points = append(dto.Points, p)
	}

	h.log.Debug("percentile history served",
		logger.ChildID(c.ID.String()),
		logger.MeasurementKind(q.Kind.String()),
		logger.Int("points", len(dto.Points)),
	)
	return dto, nil
}

// LatestPercentiles returns the newest reading of every kind the child has.
func (h *GrowthHandler) LatestPercentiles(ctx context.Context, owner shared.UserID, id shared.ChildID) (map[growth.MeasurementKind]PercentilePointDTO, error) {
	c, err := h.child(ctx, owner, id)
	if err != nil {
		return nil, fmt.Errorf("latest_percentiles: %w", err)
	}
	out := make(map[growth.MeasurementKind]PercentilePointDTO)
	for _, kind := range growth.MeasurementKinds {
		m, ok := c.Latest(kind)
		if !ok {
			continue
		}
		v, _ := m.ValueOf(kind)
		age := h.config.Calendar.MonthsBetween(c.DateOfBirth, m.Date)
		p := PercentilePointDTO{
			MeasurementID: m.ID,
			Date:          m.Date,
			AgeMonths:     age,
			Value:         v,
			Percentile:    growth.MedianPercentile,
		}
		if c.HasGender() {
			p.Percentile = h.engine.ComputePercentile(v, age, c.Gender, kind)
		}
		out[kind] = p
	}
	return out, nil
}

// ReferenceCurves handles GetReferenceCurvesQuery.
func (h *GrowthHandler) ReferenceCurves(q GetReferenceCurvesQuery) (*ReferenceCurvesDTO, error) {
	if !q.Kind.IsValid() {
		return nil, shared.ErrUnknownMeasurementKind
	}
	if !q.Gender.IsValid() {
		return nil, shared.ErrUnknownGender
	}
	_, fellBack, err := h.engine.ResolveTable(q.Kind, q.Gender)
	if err != nil {
		return nil, fmt.Errorf("reference_curves: %w", err)
	}
	curves, err := h.engine.Curves(q.Kind, q.Gender)
	if err != nil {
		return nil, fmt.Errorf("reference_curves: %w", err)
	}
	return &ReferenceCurvesDTO{
		Kind:     q.Kind,
		Gender:   q.Gender,
		Unit:     q.Kind.Unit(),
		Fallback: fellBack,
		Curves:   curves,
	}, nil
}
