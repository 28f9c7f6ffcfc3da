package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/snuggle-app/snuggle-core/internal/domain/engagement"
	"github.com/snuggle-app/snuggle-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENGAGEMENT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// EngagementRepository implements engagement.Repository for PostgreSQL.
type EngagementRepository struct {
	conn *Connection
}

// NewEngagementRepository creates a new EngagementRepository.
func NewEngagementRepository(conn *Connection) *EngagementRepository {
	return &EngagementRepository{conn: conn}
}

// Get implements engagement.Repository.
func (r *EngagementRepository) Get(ctx context.Context, userID shared.UserID) (engagement.State, error) {
	var state engagement.State
	err := r.conn.WithTx(ctx, ReadOnlyTxOptions(), func(tx pgx.Tx) error {
		var err error
		state, err = loadState(ctx, tx, userID)
		return err
	})
	return state, err
}

func loadState(ctx context.Context, q Querier, userID shared.UserID) (engagement.State, error) {
	query := `
		SELECT streak_days, best_streak, last_open_date, points, total_points,
		       level, moments_recorded, content, version, updated_at
		FROM engagement_states
		WHERE user_id = $1
	`
	s := engagement.NewState(userID)
	var lastOpen *time.Time
	var content []byte

	err := q.QueryRow(ctx, query, userID.String()).Scan(
		&s.StreakDays,
		&s.BestStreak,
		&lastOpen,
		&s.Points,
		&s.TotalPoints,
		&s.Level,
		&s.MomentsRecorded,
		&content,
		&s.Version,
		&s.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return engagement.State{}, shared.ErrEngagementNotFound
		}
		return engagement.State{}, fmt.Errorf("failed to get engagement state: %w", err)
	}
	if lastOpen != nil {
		s.LastOpenDate = shared.DateOf(lastOpen.UTC())
	}
	if len(content) > 0 {
		if err := json.Unmarshal(content, &s.Content); err != nil {
			return engagement.State{}, fmt.Errorf("failed to decode daily content: %w", err)
		}
	}

	rows, err := q.Query(ctx, `
		SELECT achievement_id, unlocked_at FROM unlocked_achievements WHERE user_id = $1
	`, userID.String())
	if err != nil {
		return engagement.State{}, fmt.Errorf("failed to get achievements: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		var at time.Time
		if err := rows.Scan(&id, &at); err != nil {
			return engagement.State{}, fmt.Errorf("failed to scan achievement: %w", err)
		}
		s.Unlocked[engagement.AchievementID(id)] = at
	}
	return s, rows.Err()
}

// Save implements engagement.Repository. A state with version 0 is inserted;
// any other version must match the stored row.
func (r *EngagementRepository) Save(ctx context.Context, s engagement.State) (engagement.State, error) {
	if err := s.Validate(); err != nil {
		return engagement.State{}, err
	}
	content, err := encodeContent(s.Content)
	if err != nil {
		return engagement.State{}, err
	}
	var lastOpen *time.Time
	if !s.LastOpenDate.IsZero() {
		t := s.LastOpenDate.Time()
		lastOpen = &t
	}

	saved := s.Clone()
	saved.Version = s.Version + 1
	saved.UpdatedAt = time.Now().UTC()

	err = r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		if s.Version == 0 {
			_, err := tx.Exec(ctx, `
				INSERT INTO engagement_states (
					user_id, streak_days, best_streak, last_open_date, points, total_points,
					level, moments_recorded, content, version, updated_at
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			`,
				s.UserID.String(), s.StreakDays, s.BestStreak, lastOpen, s.Points, s.TotalPoints,
				s.Level, s.MomentsRecorded, content, saved.Version, saved.UpdatedAt,
			)
			if err != nil {
				if IsUniqueViolation(err) {
					return conflict()
				}
				return fmt.Errorf("failed to insert engagement state: %w", err)
			}
		} else {
			tag, err := tx.Exec(ctx, `
				UPDATE engagement_states SET
					streak_days = $2, best_streak = $3, last_open_date = $4, points = $5,
					total_points = $6, level = $7, moments_recorded = $8, content = $9,
					version = $10, updated_at = $11
				WHERE user_id = $1 AND version = $12
			`,
				s.UserID.String(), s.StreakDays, s.BestStreak, lastOpen, s.Points,
				s.TotalPoints, s.Level, s.MomentsRecorded, content,
				saved.Version, saved.UpdatedAt, s.Version,
			)
			if err != nil {
				return fmt.Errorf("failed to update engagement state: %w", err)
			}
			if tag.RowsAffected() == 0 {
				return conflict()
			}
		}

		for id, at := range s.Unlocked {
			_, err := tx.Exec(ctx, `
				INSERT INTO unlocked_achievements (user_id, achievement_id, unlocked_at)
				VALUES ($1, $2, $3)
				ON CONFLICT (user_id, achievement_id) DO NOTHING
			`, s.UserID.String(), string(id), at)
			if err != nil {
				return fmt.Errorf("failed to store achievement %s: %w", id, err)
			}
		}
		return nil
	})
	if err != nil {
		if IsSerializationFailure(err) {
			return engagement.State{}, conflict()
		}
		return engagement.State{}, err
	}
	return saved, nil
}

func conflict() error {
	return shared.NewDomainError("engagement", "Save", shared.ErrConcurrentModification,
		"state was modified concurrently")
}

func encodeContent(c engagement.DailyContent) ([]byte, error) {
	if c.IsZero() {
		return nil, nil
	}
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to encode daily content: %w", err)
	}
	return data, nil
}
