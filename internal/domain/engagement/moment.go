package engagement

import (
	"fmt"
	"strings"
	"time"

	"github.com/snuggle-app/snuggle-core/internal/domain/shared"
)

// MomentType is a kind of milestone.
type MomentType string

const (
	MomentFirstSmile   MomentType = "first_smile"
	MomentFirstLaugh   MomentType = "first_laugh"
	MomentFirstWord    MomentType = "first_word"
	MomentFirstStep    MomentType = "first_step"
	MomentFirstTooth   MomentType = "first_tooth"
	MomentFirstHaircut MomentType = "first_haircut"
	MomentFirstFood    MomentType = "first_food"
)

// MomentTypes lists the known milestone kinds.
var MomentTypes = []MomentType{
	MomentFirstSmile, MomentFirstLaugh, MomentFirstWord, MomentFirstStep,
	MomentFirstTooth, MomentFirstHaircut, MomentFirstFood,
}

// IsValid checks the type is known.
func (t MomentType) IsValid() bool {
	for _, known := range MomentTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ParseMomentType accepts snake_case or kebab-case names.
func ParseMomentType(s string) (MomentType, error) {
	t := MomentType(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	if !t.IsValid() {
		return "", shared.NewDomainError("engagement", "ParseMomentType", shared.ErrInvalidInput,
			fmt.Sprintf("unknown moment type %q", s))
	}
	return t, nil
}

// Moment is a special milestone captured by the parent.
type Moment struct {
	ID      string         `json:"id"`
	ChildID shared.ChildID `json:"child_id,omitempty"`
	Type    MomentType     `json:"type"`
	Date    time.Time      `json:"date"`
	Notes   string         `json:"notes,omitempty"`
}

// NewMoment creates a moment with a fresh ID.
func NewMoment(childID shared.ChildID, t MomentType, at time.Time, notes string) (Moment, error) {
	if !t.IsValid() {
		return Moment{}, shared.NewDomainError("engagement", "NewMoment", shared.ErrInvalidInput,
			fmt.Sprintf("unknown moment type %q", t))
	}
	return Moment{
		ID:      shared.NewID(),
		ChildID: childID,
		Type:    t,
		Date:    at,
		Notes:   strings.TrimSpace(notes),
	}, nil
}
