package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snuggle-app/snuggle-core/pkg/logger"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, "snuggle", cfg.App.Name)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, "snuggle.db", cfg.SQLite.Path)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, 10*time.Minute, cfg.Redis.CacheTTL)
	assert.Equal(t, 3, cfg.Engagement.MaxConflictRetries)
	assert.True(t, cfg.Growth.GenderFallback)
	assert.Equal(t, "*/5 * * * *", cfg.Scheduler.DeliverCron)
	assert.Equal(t, time.UTC, cfg.Calendar().Location())
	require.NotNil(t, cfg.Features)
	assert.True(t, cfg.Features.IsEnabled(FeatureMonthlyPhotoReminders, nil))
}

func TestLoadFrom_Overrides(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"APP_ENV":                         "production",
		"APP_TIMEZONE":                    "Europe/Berlin",
		"STORAGE_DRIVER":                  "postgres",
		"DATABASE_URL":                    "postgres://snuggle@db:5432/snuggle",
		"DATABASE_MAX_CONNS":              "20",
		"REDIS_ENABLED":                   "true",
		"REDIS_URL":                       "redis://cache:6379/1",
		"REDIS_CACHE_TTL":                 "30s",
		"ENGAGEMENT_MAX_CONFLICT_RETRIES": "5",
		"LOG_LEVEL":                       "debug",
		"FEATURE_EVENTS_REDIS_BUS":        "true",
	})
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "Europe/Berlin", cfg.Calendar().Location().String())
	assert.Equal(t, DriverPostgres, cfg.Storage.Driver)

	pg := cfg.PostgresConfig()
	assert.Equal(t, "postgres://snuggle@db:5432/snuggle", pg.URL)
	assert.Equal(t, int32(20), pg.MaxConns)

	rc := cfg.RedisCacheConfig()
	assert.Equal(t, "redis://cache:6379/1", rc.URL)
	assert.Equal(t, 30*time.Second, cfg.Redis.CacheTTL)

	assert.Equal(t, 5, cfg.Engagement.MaxConflictRetries)
	assert.Equal(t, logger.LevelDebug, cfg.LoggerOptions().Level)
	assert.True(t, cfg.Features.IsEnabled(FeatureRedisEventBus, nil))
}

func TestLoad_ReadsProcessEnvironment(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("FEATURE_REMINDERS_MONTHLY_PHOTO", "false")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, cfg.Storage.Driver)
	assert.False(t, cfg.Features.IsEnabled(FeatureMonthlyPhotoReminders, ForUser("parent-1")))
}

func TestLoadFrom_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		environ map[string]string
		want    string
	}{
		{"postgres without url", map[string]string{"STORAGE_DRIVER": "postgres"}, "DATABASE_URL is required"},
		{"unknown driver", map[string]string{"STORAGE_DRIVER": "mongo"}, "STORAGE_DRIVER"},
		{"memory in production", map[string]string{"APP_ENV": "production", "STORAGE_DRIVER": "memory"}, "not allowed in production"},
		{"unknown environment", map[string]string{"APP_ENV": "qa"}, "APP_ENV"},
		{"zero retries", map[string]string{"ENGAGEMENT_MAX_CONFLICT_RETRIES": "0"}, "ENGAGEMENT_MAX_CONFLICT_RETRIES"},
		{"bad cron", map[string]string{"SCHEDULER_DELIVER_CRON": "every minute"}, "five fields"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFrom(tt.environ)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadFrom_ParseErrors(t *testing.T) {
	_, err := LoadFrom(map[string]string{"REDIS_PORT": "six"})
	assert.Error(t, err)

	_, err = LoadFrom(map[string]string{"APP_TIMEZONE": "Mars/Olympus"})
	assert.Error(t, err)

	_, err = LoadFrom(map[string]string{"FEATURE_GROWTH_STRICT_MODE": "150"})
	assert.ErrorIs(t, err, ErrInvalidRolloutPercent)
}
