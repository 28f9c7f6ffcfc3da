package postgres

// Migrations returns the embedded schema migrations in version order.
func Migrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_engagement",
			UpSQL:   migration001Up,
			DownSQL: migration001Down,
		},
		{
			Version: 2,
			Name:    "create_children",
			UpSQL:   migration002Up,
			DownSQL: migration002Down,
		},
		{
			Version: 3,
			Name:    "create_reminders",
			UpSQL:   migration003Up,
			DownSQL: migration003Down,
		},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: ENGAGEMENT
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- One row per parent account; version backs optimistic concurrency.
CREATE TABLE IF NOT EXISTS engagement_states (
    user_id          TEXT PRIMARY KEY,
    streak_days      INTEGER NOT NULL DEFAULT 0,
    best_streak      INTEGER NOT NULL DEFAULT 0,
    last_open_date   DATE,
    points           INTEGER NOT NULL DEFAULT 0,
    total_points     INTEGER NOT NULL DEFAULT 0,
    level            INTEGER NOT NULL DEFAULT 1,
    moments_recorded INTEGER NOT NULL DEFAULT 0,
    content          JSONB,
    version          INTEGER NOT NULL DEFAULT 1,
    updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_streak CHECK (streak_days >= 0 AND best_streak >= streak_days),
    CONSTRAINT valid_points CHECK (points >= 0 AND total_points >= points),
    CONSTRAINT valid_level CHECK (level >= 1)
);

-- Unlocks are append-only; the primary key keeps each achievement unique per user.
CREATE TABLE IF NOT EXISTS unlocked_achievements (
    user_id        TEXT NOT NULL REFERENCES engagement_states(user_id) ON DELETE CASCADE,
    achievement_id TEXT NOT NULL,
    unlocked_at    TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (user_id, achievement_id)
);
`

const migration001Down = `
DROP TABLE IF EXISTS unlocked_achievements;
DROP TABLE IF EXISTS engagement_states;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: CHILDREN & MEASUREMENTS
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
CREATE TABLE IF NOT EXISTS children (
    id            UUID PRIMARY KEY,
    owner_id      TEXT NOT NULL,
    name          VARCHAR(64) NOT NULL,
    date_of_birth DATE NOT NULL,
    gender        VARCHAR(10) NOT NULL DEFAULT '',
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_gender CHECK (gender IN ('', 'male', 'female'))
);

CREATE INDEX IF NOT EXISTS idx_children_owner ON children(owner_id);

-- Any subset of the three values may be present, but never none.
CREATE TABLE IF NOT EXISTS measurements (
    id                 TEXT PRIMARY KEY,
    child_id           UUID NOT NULL REFERENCES children(id) ON DELETE CASCADE,
    measured_at        TIMESTAMPTZ NOT NULL,
    weight             DOUBLE PRECISION,
    height             DOUBLE PRECISION,
    head_circumference DOUBLE PRECISION,
    seq                BIGSERIAL,

    CONSTRAINT has_value CHECK (weight IS NOT NULL OR height IS NOT NULL OR head_circumference IS NOT NULL)
);

CREATE INDEX IF NOT EXISTS idx_measurements_child ON measurements(child_id, seq);
`

const migration002Down = `
DROP TABLE IF EXISTS measurements;
DROP TABLE IF EXISTS children;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: REMINDER OUTBOX
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
CREATE TABLE IF NOT EXISTS reminders (
    id           UUID PRIMARY KEY,
    child_id     UUID NOT NULL,
    kind         VARCHAR(30) NOT NULL,
    month        INTEGER NOT NULL,
    target_date  TIMESTAMPTZ NOT NULL,
    title        TEXT NOT NULL DEFAULT '',
    message      TEXT NOT NULL,
    status       VARCHAR(20) NOT NULL DEFAULT 'pending',
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    delivered_at TIMESTAMPTZ,

    CONSTRAINT valid_status CHECK (status IN ('pending', 'delivered', 'cancelled'))
);

CREATE INDEX IF NOT EXISTS idx_reminders_pending ON reminders(target_date) WHERE status = 'pending';
`

const migration003Down = `
DROP TABLE IF EXISTS reminders;
`
