package command

import "github.com/snuggle-app/snuggle-core/internal/domain/shared"

// withCorrelation stamps a correlation ID on the known event types.
func withCorrelation(e shared.Event, id string) shared.Event {
	switch ev := e.(type) {
	case shared.StreakUpdatedEvent:
		ev.BaseEvent = ev.WithCorrelationID(id)
		return ev
	case shared.StreakBrokenEvent:
		ev.BaseEvent = ev.WithCorrelationID(id)
		return ev
	case shared.PointsAwardedEvent:
		ev.BaseEvent = ev.WithCorrelationID(id)
		return ev
	case shared.LevelUpEvent:
		ev.BaseEvent = ev.WithCorrelationID(id)
		return ev
	case shared.AchievementUnlockedEvent:
		ev.BaseEvent = ev.WithCorrelationID(id)
		return ev
	case shared.MomentRecordedEvent:
		ev.BaseEvent = ev.WithCorrelationID(id)
		return ev
	case shared.DailyContentReadyEvent:
		ev.BaseEvent = ev.WithCorrelationID(id)
		return ev
	case shared.MeasurementAddedEvent:
		ev.BaseEvent = ev.WithCorrelationID(id)
		return ev
	case shared.ReminderRequestedEvent:
		ev.BaseEvent = ev.WithCorrelationID(id)
		return ev
	}
	return e
}
