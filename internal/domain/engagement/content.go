package engagement

import (
	"fmt"
	"math/rand"

	"github.com/google/uuid"

	"github.com/snuggle-app/snuggle-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// DAILY CONTENT
// ══════════════════════════════════════════════════════════════════════════════

// ChallengeType is a kind of daily challenge.
type ChallengeType string

const (
	ChallengeFeedingCount   ChallengeType = "feeding_count"
	ChallengeSleepDuration  ChallengeType = "sleep_duration"
	ChallengeMedicationTime ChallengeType = "medication_time"
	ChallengePhotoCapture   ChallengeType = "photo_capture"
	ChallengeNotesTaking    ChallengeType = "notes_taking"
)

// ChallengeTypes lists every type in catalog order.
var ChallengeTypes = []ChallengeType{
	ChallengeFeedingCount,
	ChallengeSleepDuration,
	ChallengeMedicationTime,
	ChallengePhotoCapture,
	ChallengeNotesTaking,
}

// DefaultTarget is the daily goal for the type.
func (t ChallengeType) DefaultTarget() int {
	switch t {
	case ChallengeFeedingCount:
		return 6
	case ChallengeSleepDuration:
		return 12
	case ChallengeMedicationTime:
		return 3
	case ChallengePhotoCapture:
		return 1
	case ChallengeNotesTaking:
		return 3
	}
	return 1
}

// Title is the short display name.
func (t ChallengeType) Title() string {
	switch t {
	case ChallengeFeedingCount:
		return "Track Feedings"
	case ChallengeSleepDuration:
		return "Track Sleep"
	case ChallengeMedicationTime:
		return "Track Medications"
	case ChallengePhotoCapture:
		return "Capture Moments"
	case ChallengeNotesTaking:
		return "Add Notes"
	}
	return string(t)
}

// Description explains the goal.
func (t ChallengeType) Description() string {
	n := t.DefaultTarget()
	switch t {
	case ChallengeFeedingCount:
		return fmt.Sprintf("Complete %d feedings today", n)
	case ChallengeSleepDuration:
		return fmt.Sprintf("Track %d hours of sleep", n)
	case ChallengeMedicationTime:
		return fmt.Sprintf("Give %d medications on time", n)
	case ChallengePhotoCapture:
		return "Take a daily photo"
	case ChallengeNotesTaking:
		return fmt.Sprintf("Add %d detailed notes", n)
	}
	return ""
}

// Challenge is one goal of the day.
type Challenge struct {
	ID          string        `json:"id"`
	Type        ChallengeType `json:"type"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Target      int           `json:"target"`
	Progress    int           `json:"progress"`
}

// TipCategory groups parenting tips.
type TipCategory string

const (
	TipFeeding     TipCategory = "feeding"
	TipSleep       TipCategory = "sleep"
	TipDevelopment TipCategory = "development"
	TipSafety      TipCategory = "safety"
	TipHealth      TipCategory = "health"
	TipGeneral     TipCategory = "general"
)

// Tip is a short piece of parenting advice.
type Tip struct {
	ID       string      `json:"id"`
	Content  string      `json:"content"`
	Source   string      `json:"source,omitempty"`
	Category TipCategory `json:"category"`
}

// DailyContent is what the app shows for one calendar day.
type DailyContent struct {
	Day        shared.Date `json:"day"`
	Tips       []Tip       `json:"tips"`
	Challenges []Challenge `json:"challenges"`
}

// IsZero reports whether no content was generated yet.
func (c DailyContent) IsZero() bool {
	return c.Day.IsZero()
}

func (c DailyContent) clone() DailyContent {
	out := DailyContent{Day: c.Day}
	if c.Tips != nil {
		out.Tips = append([]Tip(nil), c.Tips...)
	}
	if c.Challenges != nil {
		out.Challenges = append([]Challenge(nil), c.Challenges...)
	}
	return out
}

// ContentGenerator produces the content for a day. It is invoked on every
// open that lands on a new calendar day.
type ContentGenerator interface {
	GenerateDailyContent(day shared.Date) DailyContent
}

// ContentGeneratorFunc adapts a function to ContentGenerator.
type ContentGeneratorFunc func(day shared.Date) DailyContent

// GenerateDailyContent implements ContentGenerator.
func (f ContentGeneratorFunc) GenerateDailyContent(day shared.Date) DailyContent {
	return f(day)
}

// TipSource supplies tips for a day.
type TipSource interface {
	TipsFor(day shared.Date) []Tip
}

// NoTips is the default TipSource; it supplies nothing.
type NoTips struct{}

// TipsFor implements TipSource.
func (NoTips) TipsFor(shared.Date) []Tip { return nil }

// StaticTips rotates through a fixed list, PerDay tips per day.
type StaticTips struct {
	Tips   []Tip
	PerDay int
}

// TipsFor implements TipSource.
func (s StaticTips) TipsFor(day shared.Date) []Tip {
	if len(s.Tips) == 0 || s.PerDay <= 0 {
		return nil
	}
	n := s.PerDay
	if n > len(s.Tips) {
		n = len(s.Tips)
	}
	start := int(daySeed(day) % int64(len(s.Tips)))
	out := make([]Tip, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, s.Tips[(start+i)%len(s.Tips)])
	}
	return out
}

// ChallengesPerDay is how many challenge types are picked each day.
const ChallengesPerDay = 3

var challengeNamespace = uuid.MustParse("b9a3c1d2-5e47-4f08-8c6a-2d9e71f04b33")

// ChallengeGenerator picks ChallengesPerDay distinct challenge types for a day.
// The pick is seeded by the date, so the same day always yields the same set.
type ChallengeGenerator struct {
	Tips TipSource
}

// NewChallengeGenerator returns the default generator. A nil TipSource means NoTips.
func NewChallengeGenerator(tips TipSource) ChallengeGenerator {
	if tips == nil {
		tips = NoTips{}
	}
	return ChallengeGenerator{Tips: tips}
}

// GenerateDailyContent implements ContentGenerator.
func (g ChallengeGenerator) GenerateDailyContent(day shared.Date) DailyContent {
	tips := g.Tips
	if tips == nil {
		tips = NoTips{}
	}
	return DailyContent{
		Day:        day,
		Tips:       tips.TipsFor(day),
		Challenges: Challenges(day),
	}
}

// Challenges returns the day's challenges.
func Challenges(day shared.Date) []Challenge {
	rng := rand.New(rand.NewSource(daySeed(day)))
	order := rng.Perm(len(ChallengeTypes))

	out := make([]Challenge, 0, ChallengesPerDay)
	for _, idx := range order[:ChallengesPerDay] {
		t := ChallengeTypes[idx]
		out = append(out, Challenge{
			ID:          uuid.NewSHA1(challengeNamespace, []byte(day.String()+"/"+string(t))).String(),
			Type:        t,
			Title:       t.Title(),
			Description: t.Description(),
			Target:      t.DefaultTarget(),
		})
	}
	return out
}

func daySeed(day shared.Date) int64 {
	return int64(day.Year)*10000 + int64(day.Month)*100 + int64(day.Day)
}
