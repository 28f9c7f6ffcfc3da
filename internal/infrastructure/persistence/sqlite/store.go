// Package sqlite is the on-device store: a single SQLite file holding the
// parent's engagement state, child profiles and the reminder outbox.
//
// The file is opened in WAL mode with foreign keys enforced. Timestamps are
// stored as fixed-width RFC 3339 text in UTC, which sorts chronologically.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/snuggle-app/snuggle-core/pkg/logger"
	"github.com/snuggle-app/snuggle-core/pkg/retry"
)

// Store owns the database handle shared by the repositories.
type Store struct {
	db  *sql.DB
	log *logger.Logger
}

// Open opens (creating if needed) the database at path and applies the
// schema. Use ":memory:" for a throwaway database.
func Open(ctx context.Context, path string, log *logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.Nop()
	}
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to open database: %w", err)
	}
	// A single writer avoids SQLITE_BUSY between our own goroutines.
	db.SetMaxOpenConns(1)
	db.SetConnMaxIdleTime(time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to ping database: %w", err)
	}

	s := &Store{db: db, log: log.With(logger.Component("sqlite"))}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to migrate database: %w", err)
	}
	s.log.Debug("database opened", logger.String("path", path))
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the handle for maintenance commands.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

const schema = `
CREATE TABLE IF NOT EXISTS engagement_states (
	user_id          TEXT PRIMARY KEY,
	streak_days      INTEGER NOT NULL DEFAULT 0,
	best_streak      INTEGER NOT NULL DEFAULT 0,
	last_open_date   TEXT NOT NULL DEFAULT '',
	points           INTEGER NOT NULL DEFAULT 0,
	total_points     INTEGER NOT NULL DEFAULT 0,
	level            INTEGER NOT NULL DEFAULT 1,
	moments_recorded INTEGER NOT NULL DEFAULT 0,
	content_json     TEXT,
	version          INTEGER NOT NULL DEFAULT 1,
	updated_at       TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS unlocked_achievements (
	user_id        TEXT NOT NULL REFERENCES engagement_states(user_id) ON DELETE CASCADE,
	achievement_id TEXT NOT NULL,
	unlocked_at    TEXT NOT NULL,
	PRIMARY KEY (user_id, achievement_id)
);

CREATE TABLE IF NOT EXISTS children (
	id            TEXT PRIMARY KEY,
	owner_id      TEXT NOT NULL,
	name          TEXT NOT NULL,
	date_of_birth TEXT NOT NULL,
	gender        TEXT NOT NULL DEFAULT '',
	created_at    TEXT NOT NULL,
	updated_at    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_children_owner ON children(owner_id);

CREATE TABLE IF NOT EXISTS measurements (
	seq                INTEGER PRIMARY KEY AUTOINCREMENT,
	id                 TEXT NOT NULL UNIQUE,
	child_id           TEXT NOT NULL REFERENCES children(id) ON DELETE CASCADE,
	measured_at        TEXT NOT NULL,
	weight             REAL,
	height             REAL,
	head_circumference REAL
);

CREATE INDEX IF NOT EXISTS idx_measurements_child ON measurements(child_id, seq);

CREATE TABLE IF NOT EXISTS reminders (
	id           TEXT PRIMARY KEY,
	child_id     TEXT NOT NULL,
	kind         TEXT NOT NULL,
	month        INTEGER NOT NULL,
	target_date  TEXT NOT NULL,
	title        TEXT NOT NULL DEFAULT '',
	message      TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'pending',
	created_at   TEXT NOT NULL,
	delivered_at TEXT
);

CREATE INDEX IF NOT EXISTS idx_reminders_pending ON reminders(status, target_date);
`

// withTx runs fn in a transaction, committing when it returns nil. A busy
// or locked database file is reported as retryable.
func (s *Store) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	err := s.runTx(ctx, fn)
	if isBusy(err) {
		return retry.Retryable(err)
	}
	return err
}

func (s *Store) runTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("tx error: %v, rollback error: %w", err, rbErr)
		}
		return err
	}
	return tx.Commit()
}

// ══════════════════════════════════════════════════════════════════════════════
// ENCODING HELPERS
// ══════════════════════════════════════════════════════════════════════════════

const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("sqlite: bad timestamp %q: %w", s, err)
	}
	return t, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

// ══════════════════════════════════════════════════════════════════════════════
// ERROR HELPERS
// ══════════════════════════════════════════════════════════════════════════════

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// isBusy reports another connection holding the file past the busy timeout.
func isBusy(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey
	}
	return false
}
