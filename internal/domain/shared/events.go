package shared

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types. Each event is something a UI or a background handler may react to.
const (
	// Engagement events
	EventStreakUpdated       EventType = "engagement.streak_updated"
	EventStreakBroken        EventType = "engagement.streak_broken"
	EventPointsAwarded       EventType = "engagement.points_awarded"
	EventLevelUp             EventType = "engagement.level_up"
	EventAchievementUnlocked EventType = "engagement.achievement_unlocked"
	EventMomentRecorded      EventType = "engagement.moment_recorded"
	EventDailyContentReady   EventType = "engagement.daily_content_ready"

	// Growth events
	EventMeasurementAdded EventType = "growth.measurement_added"

	// Notification events
	EventReminderRequested EventType = "notification.reminder_requested"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate (user or child) that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType { return e.Type }

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string { return e.AggregateId }

// NewBaseEvent creates a new base event stamped with at.
func NewBaseEvent(eventType EventType, aggregateID string, at time.Time) BaseEvent {
	if at.IsZero() {
		at = time.Now().UTC()
	}
	return BaseEvent{
		Type:        eventType,
		Timestamp:   at,
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Engagement Events
// ═══════════════════════════════════════════════════════════════════════════

// StreakUpdatedEvent is emitted when the daily streak starts or grows.
type StreakUpdatedEvent struct {
	BaseEvent
	UserID     string `json:"user_id"`
	StreakDays int    `json:"streak_days"`
	BestStreak int    `json:"best_streak"`
}

// Payload implements Event interface.
func (e StreakUpdatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":     e.UserID,
		"streak_days": e.StreakDays,
		"best_streak": e.BestStreak,
	}
}

// NewStreakUpdatedEvent creates a new StreakUpdatedEvent.
func NewStreakUpdatedEvent(userID string, streak, best int, at time.Time) StreakUpdatedEvent {
	return StreakUpdatedEvent{
		BaseEvent:  NewBaseEvent(EventStreakUpdated, userID, at),
		UserID:     userID,
		StreakDays: streak,
		BestStreak: best,
	}
}

// StreakBrokenEvent is emitted when a gap of more than one day resets the streak.
type StreakBrokenEvent struct {
	BaseEvent
	UserID         string `json:"user_id"`
	PreviousStreak int    `json:"previous_streak"`
	DaysMissed     int    `json:"days_missed"`
}

// Payload implements Event interface.
func (e StreakBrokenEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":         e.UserID,
		"previous_streak": e.PreviousStreak,
		"days_missed":     e.DaysMissed,
	}
}

// NewStreakBrokenEvent creates a new StreakBrokenEvent.
func NewStreakBrokenEvent(userID string, previous, missed int, at time.Time) StreakBrokenEvent {
	return StreakBrokenEvent{
		BaseEvent:      NewBaseEvent(EventStreakBroken, userID, at),
		UserID:         userID,
		PreviousStreak: previous,
		DaysMissed:     missed,
	}
}

// PointsAwardedEvent is emitted for every accepted point award.
type PointsAwardedEvent struct {
	BaseEvent
	UserID   string `json:"user_id"`
	Amount   int    `json:"amount"`
	NewTotal int    `json:"new_total"`
	Reason   string `json:"reason"`
}

// Payload implements Event interface.
func (e PointsAwardedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":   e.UserID,
		"amount":    e.Amount,
		"new_total": e.NewTotal,
		"reason":    e.Reason,
	}
}

// NewPointsAwardedEvent creates a new PointsAwardedEvent.
func NewPointsAwardedEvent(userID string, amount, total int, reason string, at time.Time) PointsAwardedEvent {
	return PointsAwardedEvent{
		BaseEvent: NewBaseEvent(EventPointsAwarded, userID, at),
		UserID:    userID,
		Amount:    amount,
		NewTotal:  total,
		Reason:    reason,
	}
}

// LevelUpEvent is emitted when the parent reaches a new level.
type LevelUpEvent struct {
	BaseEvent
	UserID   string `json:"user_id"`
	OldLevel int    `json:"old_level"`
	NewLevel int    `json:"new_level"`
	Title    string `json:"title"`
}

// Payload implements Event interface.
func (e LevelUpEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":   e.UserID,
		"old_level": e.OldLevel,
		"new_level": e.NewLevel,
		"title":     e.Title,
	}
}

// NewLevelUpEvent creates a new LevelUpEvent.
func NewLevelUpEvent(userID string, oldLevel, newLevel int, title string, at time.Time) LevelUpEvent {
	return LevelUpEvent{
		BaseEvent: NewBaseEvent(EventLevelUp, userID, at),
		UserID:    userID,
		OldLevel:  oldLevel,
		NewLevel:  newLevel,
		Title:     title,
	}
}

// AchievementUnlockedEvent is emitted once per achievement per user.
type AchievementUnlockedEvent struct {
	BaseEvent
	UserID        string `json:"user_id"`
	AchievementID string `json:"achievement_id"`
	Category      string `json:"category"`
	Title         string `json:"title"`
	PointsAwarded int    `json:"points_awarded"`
}

// Payload implements Event interface.
func (e AchievementUnlockedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":        e.UserID,
		"achievement_id": e.AchievementID,
		"category":       e.Category,
		"title":          e.Title,
		"points_awarded": e.PointsAwarded,
	}
}

// NewAchievementUnlockedEvent creates a new AchievementUnlockedEvent.
func NewAchievementUnlockedEvent(userID, achievementID, category, title string, points int, at time.Time) AchievementUnlockedEvent {
	return AchievementUnlockedEvent{
		BaseEvent:     NewBaseEvent(EventAchievementUnlocked, userID, at),
		UserID:        userID,
		AchievementID: achievementID,
		Category:      category,
		Title:         title,
		PointsAwarded: points,
	}
}

// MomentRecordedEvent is emitted when a special moment (first smile, first step...) is saved.
type MomentRecordedEvent struct {
	BaseEvent
	UserID   string `json:"user_id"`
	MomentID string `json:"moment_id"`
	Type     string `json:"moment_type"`
}

// Payload implements Event interface.
func (e MomentRecordedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":     e.UserID,
		"moment_id":   e.MomentID,
		"moment_type": e.Type,
	}
}

// NewMomentRecordedEvent creates a new MomentRecordedEvent.
func NewMomentRecordedEvent(userID, momentID, momentType string, at time.Time) MomentRecordedEvent {
	return MomentRecordedEvent{
		BaseEvent: NewBaseEvent(EventMomentRecorded, userID, at),
		UserID:    userID,
		MomentID:  momentID,
		Type:      momentType,
	}
}

// DailyContentReadyEvent is emitted when a new day's tips and challenges were generated.
type DailyContentReadyEvent struct {
	BaseEvent
	UserID     string   `json:"user_id"`
	Day        string   `json:"day"`
	Challenges []string `json:"challenges"`
	TipCount   int      `json:"tip_count"`
}

// Payload implements Event interface.
func (e DailyContentReadyEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":    e.UserID,
		"day":        e.Day,
		"challenges": e.Challenges,
		"tip_count":  e.TipCount,
	}
}

// NewDailyContentReadyEvent creates a new DailyContentReadyEvent.
func NewDailyContentReadyEvent(userID, day string, challenges []string, tipCount int, at time.Time) DailyContentReadyEvent {
	return DailyContentReadyEvent{
		BaseEvent:  NewBaseEvent(EventDailyContentReady, userID, at),
		UserID:     userID,
		Day:        day,
		Challenges: challenges,
		TipCount:   tipCount,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Growth Events
// ═══════════════════════════════════════════════════════════════════════════

// MeasurementAddedEvent is emitted when a growth measurement is appended to a child's history.
type MeasurementAddedEvent struct {
	BaseEvent
	ChildID       string `json:"child_id"`
	MeasurementID string `json:"measurement_id"`
	AgeMonths     int    `json:"age_months"`
	// Percentiles holds the percentile per recorded kind.
	Percentiles map[string]float64 `json:"percentiles"`
}

// Payload implements Event interface.
func (e MeasurementAddedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"child_id":       e.ChildID,
		"measurement_id": e.MeasurementID,
		"age_months":     e.AgeMonths,
		"percentiles":    e.Percentiles,
	}
}

// NewMeasurementAddedEvent creates a new MeasurementAddedEvent.
func NewMeasurementAddedEvent(childID, measurementID string, ageMonths int, percentiles map[string]float64, at time.Time) MeasurementAddedEvent {
	return MeasurementAddedEvent{
		BaseEvent:     NewBaseEvent(EventMeasurementAdded, childID, at),
		ChildID:       childID,
		MeasurementID: measurementID,
		AgeMonths:     ageMonths,
		Percentiles:   percentiles,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Notification Events
// ═══════════════════════════════════════════════════════════════════════════

// ReminderRequestedEvent carries a scheduling request as plain data.
// The core never talks to a notification subsystem directly.
type ReminderRequestedEvent struct {
	BaseEvent
	ReminderID string    `json:"reminder_id"`
	ChildID    string    `json:"child_id"`
	Kind       string    `json:"kind"`
	Month      int       `json:"month"`
	TargetDate time.Time `json:"target_date"`
	Title      string    `json:"title"`
	Message    string    `json:"message"`
}

// Payload implements Event interface.
func (e ReminderRequestedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"reminder_id": e.ReminderID,
		"child_id":    e.ChildID,
		"kind":        e.Kind,
		"month":       e.Month,
		"target_date": e.TargetDate,
		"title":       e.Title,
		"message":     e.Message,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Handler Types
// ═══════════════════════════════════════════════════════════════════════════

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for a specific event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}

// NoopPublisher discards events. Useful when no bus is wired.
type NoopPublisher struct{}

// Publish implements EventPublisher.
func (NoopPublisher) Publish(Event) error { return nil }
