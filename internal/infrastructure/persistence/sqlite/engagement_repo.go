package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/snuggle-app/snuggle-core/internal/domain/engagement"
	"github.com/snuggle-app/snuggle-core/internal/domain/shared"
)

// EngagementRepository implements engagement.Repository on SQLite.
type EngagementRepository struct {
	store *Store
	now   func() time.Time
}

// NewEngagementRepository creates a repository over store.
func NewEngagementRepository(store *Store) *EngagementRepository {
	return &EngagementRepository{store: store, now: time.Now}
}

// Get implements engagement.Repository.
func (r *EngagementRepository) Get(ctx context.Context, userID shared.UserID) (engagement.State, error) {
	s := engagement.NewState(userID)
	var (
		lastOpen  string
		content   sql.NullString
		updatedAt string
	)
	err := r.store.db.QueryRowContext(ctx, `
		SELECT streak_days, best_streak, last_open_date, points, total_points,
		       level, moments_recorded, content_json, version, updated_at
		FROM engagement_states WHERE user_id = ?
	`, userID.String()).Scan(
		&s.StreakDays, &s.BestStreak, &lastOpen, &s.Points, &s.TotalPoints,
		&s.Level, &s.MomentsRecorded, &content, &s.Version, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return engagement.State{}, shared.ErrEngagementNotFound
	}
	if err != nil {
		return engagement.State{}, fmt.Errorf("failed to get engagement state: %w", err)
	}

	if lastOpen != "" {
		if s.LastOpenDate, err = shared.ParseDate(lastOpen); err != nil {
			return engagement.State{}, err
		}
	}
	if content.Valid && content.String != "" {
		if err := json.Unmarshal([]byte(content.String), &s.Content); err != nil {
			return engagement.State{}, fmt.Errorf("failed to decode daily content: %w", err)
		}
	}
	if s.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return engagement.State{}, err
	}

	rows, err := r.store.db.QueryContext(ctx,
		`SELECT achievement_id, unlocked_at FROM unlocked_achievements WHERE user_id = ?`, userID.String())
	if err != nil {
		return engagement.State{}, fmt.Errorf("failed to get achievements: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id, at string
		if err := rows.Scan(&id, &at); err != nil {
			return engagement.State{}, fmt.Errorf("failed to scan achievement: %w", err)
		}
		unlockedAt, err := parseTime(at)
		if err != nil {
			return engagement.State{}, err
		}
		s.Unlocked[engagement.AchievementID(id)] = unlockedAt
	}
	return s, rows.Err()
}

// Save implements engagement.Repository.
func (r *EngagementRepository) Save(ctx context.Context, s engagement.State) (engagement.State, error) {
	if err := s.Validate(); err != nil {
		return engagement.State{}, err
	}
	var content sql.NullString
	if !s.Content.IsZero() {
		data, err := json.Marshal(s.Content)
		if err != nil {
			return engagement.State{}, fmt.Errorf("failed to encode daily content: %w", err)
		}
		content = sql.NullString{String: string(data), Valid: true}
	}

	saved := s.Clone()
	saved.Version = s.Version + 1
	saved.UpdatedAt = r.now().UTC()

	err := r.store.withTx(ctx, func(tx *sql.Tx) error {
		args := []any{
			s.StreakDays, s.BestStreak, s.LastOpenDate.String(), s.Points, s.TotalPoints,
			s.Level, s.MomentsRecorded, content, saved.Version, formatTime(saved.UpdatedAt),
			s.UserID.String(),
		}
		if s.Version == 0 {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO engagement_states (
					streak_days, best_streak, last_open_date, points, total_points,
					level, moments_recorded, content_json, version, updated_at, user_id
				) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			`, args...)
			if err != nil {
				if isUniqueViolation(err) {
					return conflict()
				}
				return fmt.Errorf("failed to insert engagement state: %w", err)
			}
		} else {
			res, err := tx.ExecContext(ctx, `
				UPDATE engagement_states SET
					streak_days = ?, best_streak = ?, last_open_date = ?, points = ?, total_points = ?,
					level = ?, moments_recorded = ?, content_json = ?, version = ?, updated_at = ?
				WHERE user_id = ? AND version = ?
			`, append(args, s.Version)...)
			if err != nil {
				return fmt.Errorf("failed to update engagement state: %w", err)
			}
			if n, err := res.RowsAffected(); err != nil || n == 0 {
				return conflict()
			}
		}

		for id, at := range s.Unlocked {
			if _, err := tx.ExecContext(ctx, `
				INSERT OR IGNORE INTO unlocked_achievements (user_id, achievement_id, unlocked_at)
				VALUES (?, ?, ?)
			`, s.UserID.String(), string(id), formatTime(at)); err != nil {
				return fmt.Errorf("failed to store achievement %s: %w", id, err)
			}
		}
		return nil
	})
	if err != nil {
		return engagement.State{}, err
	}
	return saved, nil
}

func conflict() error {
	return shared.NewDomainError("engagement", "Save", shared.ErrConcurrentModification,
		"state was modified concurrently")
}
