package engagement

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACHIEVEMENTS
// ══════════════════════════════════════════════════════════════════════════════

// Category groups achievements.
type Category string

const (
	CategoryFeeding     Category = "feeding"
	CategorySleep       Category = "sleep"
	CategoryConsistency Category = "consistency"
	CategoryGrowth      Category = "growth"
	CategorySharing     Category = "sharing"
	CategorySpecial     Category = "special"
)

// IsValid checks the category is known.
func (c Category) IsValid() bool {
	switch c {
	case CategoryFeeding, CategorySleep, CategoryConsistency,
		CategoryGrowth, CategorySharing, CategorySpecial:
		return true
	}
	return false
}

// AchievementID is the stable catalog key of an achievement.
type AchievementID string

const (
	AchievementStreak3      AchievementID = "streak_3"
	AchievementStreak7      AchievementID = "streak_7"
	AchievementStreak30     AchievementID = "streak_30"
	AchievementStreak100    AchievementID = "streak_100"
	AchievementMemoryKeeper AchievementID = "memory_keeper"
)

// PhotoAchievementID returns the ID of the month-n photo achievement.
func PhotoAchievementID(month int) AchievementID {
	return AchievementID(fmt.Sprintf("photo_month_%d", month))
}

// photoMonth extracts n from photo_month_<n>.
func (id AchievementID) photoMonth() (int, bool) {
	rest, ok := strings.CutPrefix(string(id), "photo_month_")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 1 || n > 12 {
		return 0, false
	}
	return n, true
}

// Achievement is a one-time badge.
type Achievement struct {
	ID          AchievementID `json:"id"`
	Category    Category      `json:"category"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Icon        string        `json:"icon"`
	// Requirement is the threshold the badge is tied to (streak days, count).
	Requirement int `json:"requirement"`
	// Points are awarded once on unlock.
	Points int `json:"points"`
}

// Points granted by unlock.
const (
	StreakAchievementPoints = 50
	SpecialMomentPoints     = 100
	MonthlyPhotoPoints      = 50
)

// streakAchievements are checked in ascending order on each consecutive-day open.
var streakAchievements = []Achievement{
	{AchievementStreak3, CategoryConsistency, "Getting Started", "Used the app for 3 days in a row", "star.fill", 3, StreakAchievementPoints},
	{AchievementStreak7, CategoryConsistency, "Week Warrior", "Used the app for a full week", "star.circle.fill", 7, StreakAchievementPoints},
	{AchievementStreak30, CategoryConsistency, "Dedicated Parent", "Used the app for 30 days straight", "star.square.fill", 30, StreakAchievementPoints},
	{AchievementStreak100, CategoryConsistency, "Super Parent", "Used the app for 100 days straight", "star.square.on.square.fill", 100, StreakAchievementPoints},
}

var memoryKeeper = Achievement{
	ID:          AchievementMemoryKeeper,
	Category:    CategorySpecial,
	Title:       "Memory Keeper",
	Description: "Captured a special milestone",
	Icon:        "heart.fill",
	Requirement: 1,
	Points:      SpecialMomentPoints,
}

// PhotoAchievement returns the month-n photo badge. It belongs to the growth
// category so it never satisfies the one-per-user special badge check.
func PhotoAchievement(month int) Achievement {
	return Achievement{
		ID:          PhotoAchievementID(month),
		Category:    CategoryGrowth,
		Title:       fmt.Sprintf("Month %d Milestone", month),
		Description: fmt.Sprintf("Captured your baby's %d month photo", month),
		Icon:        "camera.fill",
		Requirement: 1,
		Points:      MonthlyPhotoPoints,
	}
}

// StreakAchievements returns the streak badges in ascending threshold order.
func StreakAchievements() []Achievement {
	out := make([]Achievement, len(streakAchievements))
	copy(out, streakAchievements)
	return out
}

// Catalog returns every achievement that can be unlocked.
func Catalog() []Achievement {
	out := StreakAchievements()
	out = append(out, memoryKeeper)
	for month := 1; month <= 12; month++ {
		out = append(out, PhotoAchievement(month))
	}
	return out
}

// Lookup finds a catalog entry by ID.
func Lookup(id AchievementID) (Achievement, bool) {
	if n, ok := id.photoMonth(); ok {
		return PhotoAchievement(n), true
	}
	if id == AchievementMemoryKeeper {
		return memoryKeeper, true
	}
	for _, a := range streakAchievements {
		if a.ID == id {
			return a, true
		}
	}
	return Achievement{}, false
}

// AchievementStatus pairs a catalog entry with its unlock state, for listing.
type AchievementStatus struct {
	Achievement
	IsUnlocked bool `json:"is_unlocked"`
}

// Statuses lists the full catalog against the unlocked set of s.
func Statuses(s State) []AchievementStatus {
	catalog := Catalog()
	out := make([]AchievementStatus, 0, len(catalog))
	for _, a := range catalog {
		_, ok := s.Unlocked[a.ID]
		out = append(out, AchievementStatus{Achievement: a, IsUnlocked: ok})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].IsUnlocked && !out[j].IsUnlocked
	})
	return out
}
