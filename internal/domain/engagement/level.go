package engagement

// ══════════════════════════════════════════════════════════════════════════════
// PARENTING LEVELS
// ══════════════════════════════════════════════════════════════════════════════

// Level is a rung of the parenting ladder.
type Level struct {
	// Number starts at 1 and never regresses.
	Number int `json:"number"`

	// Title is the display name, e.g. "Rookie Parent".
	Title string `json:"title"`

	// PointsRequiredForNext is the balance that triggers the next level-up.
	PointsRequiredForNext int `json:"points_required_for_next"`
}

// ladder holds the named levels. Past the last entry each level needs
// ladderStep more points than the previous one.
var ladder = []Level{
	{Number: 1, Title: "Rookie Parent", PointsRequiredForNext: 100},
	{Number: 2, Title: "Attentive Parent", PointsRequiredForNext: 250},
	{Number: 3, Title: "Expert Caregiver", PointsRequiredForNext: 500},
	{Number: 4, Title: "Master Nurturer", PointsRequiredForNext: 1000},
}

const ladderStep = 1000

// FirstLevel is where every parent starts.
var FirstLevel = ladder[0]

// LevelFor returns the ladder entry for number. Numbers below 1 map to the first level.
func LevelFor(number int) Level {
	if number < 1 {
		return FirstLevel
	}
	if number <= len(ladder) {
		return ladder[number-1]
	}
	last := ladder[len(ladder)-1]
	extra := number - last.Number
	return Level{
		Number:                number,
		Title:                 "Master Nurturer",
		PointsRequiredForNext: last.PointsRequiredForNext + extra*ladderStep,
	}
}

// Next returns the level after l.
func (l Level) Next() Level {
	return LevelFor(l.Number + 1)
}

// Progress returns how far points is towards the next level, in [0,1].
func (l Level) Progress(points int) float64 {
	if l.PointsRequiredForNext <= 0 || points <= 0 {
		return 0
	}
	if points >= l.PointsRequiredForNext {
		return 1
	}
	return float64(points) / float64(l.PointsRequiredForNext)
}
