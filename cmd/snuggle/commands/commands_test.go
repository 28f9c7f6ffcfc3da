package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupEnv(t *testing.T) {
	t.Helper()
	t.Setenv("STORAGE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "snuggle.db"))
	t.Setenv("SNUGGLE_USER", "parent-1")
	t.Setenv("LOG_LEVEL", "error")
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err := ExecuteArgs(context.Background(), args, &out, &errOut)
	return out.String(), err
}

func runJSON(t *testing.T, v any, args ...string) {
	t.Helper()
	out, err := run(t, append(args, "--json")...)
	require.NoError(t, err, out)
	require.NoError(t, json.Unmarshal([]byte(out), v), out)
}

func TestPercentile(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "percentile", "weight", "6.4", "--age", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "weight 6.40 kg at 3 months: P50.0")

	var res struct {
		Percentile float64 `json:"percentile"`
	}
	runJSON(t, &res, "percentile", "height", "62", "--age", "3", "--gender", "female")
	assert.Greater(t, res.Percentile, 0.0)
	assert.Less(t, res.Percentile, 100.0)

	_, err = run(t, "percentile", "shoe", "3")
	assert.Error(t, err)

	_, err = run(t, "percentile", "weight", "heavy")
	assert.Error(t, err)
}

func TestPercentile_StrictRejectsMissingAge(t *testing.T) {
	setupEnv(t)

	_, err := run(t, "percentile", "weight", "6.4", "--age", "5", "--strict")
	assert.Error(t, err)

	out, err := run(t, "percentile", "weight", "6.4", "--age", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "P50.0")
}

func TestChildPhotoAndSummary(t *testing.T) {
	setupEnv(t)
	dob := time.Now().UTC().AddDate(0, 0, -45).Format("2006-01-02")

	var child struct{ ID string }
	runJSON(t, &child, "child", "add", "--name", "Ada", "--dob", dob, "--gender", "female")
	require.NotEmpty(t, child.ID)

	out, err := run(t, "child", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Ada")

	out, err = run(t, "child", "measure", child.ID, "--weight", "4.5")
	require.NoError(t, err)
	assert.Contains(t, out, "recorded at 1 months")

	_, err = run(t, "child", "measure", child.ID, "--weight", "NaN")
	assert.Error(t, err, "non-finite values never reach storage")

	var photo engagementView
	runJSON(t, &photo, "photo", child.ID)
	require.Len(t, photo.Unlocked, 1)
	assert.Equal(t, "photo_month_1", string(photo.Unlocked[0].ID))
	assert.NotEmpty(t, photo.Celebrations)

	// The second photo in the same month earns nothing.
	runJSON(t, &photo, "photo", child.ID)
	assert.Empty(t, photo.Unlocked)

	var summary struct {
		TotalPoints   int `json:"total_points"`
		UnlockedCount int `json:"unlocked_count"`
	}
	runJSON(t, &summary, "summary")
	assert.Equal(t, 1, summary.UnlockedCount)
	assert.Equal(t, 50, summary.TotalPoints)
}

func TestOpenTracksStreak(t *testing.T) {
	setupEnv(t)

	var view engagementView
	runJSON(t, &view, "open", "--at", "2026-03-01T08:00:00Z")
	assert.Equal(t, 1, view.StreakDays)
	require.NotNil(t, view.Content, "the first open of a day generates content")

	runJSON(t, &view, "open", "--at", "2026-03-02T08:00:00Z")
	assert.Equal(t, 2, view.StreakDays)

	out, err := run(t, "open", "--at", "2026-03-05T08:00:00Z")
	require.NoError(t, err)
	assert.Contains(t, out, "streak of 2 ended after 2 missed day(s)")

	_, err = run(t, "open", "--at", "yesterday")
	assert.Error(t, err)
}

func TestMomentAndAward(t *testing.T) {
	setupEnv(t)

	var view engagementView
	runJSON(t, &view, "moment", "first-smile", "--notes", "at grandma's")
	require.Len(t, view.Unlocked, 1)
	assert.Equal(t, "memory_keeper", string(view.Unlocked[0].ID))
	assert.Equal(t, 2, view.Level.Number, "the badge's 100 points finish level 1")
	assert.Equal(t, 0, view.Points)

	runJSON(t, &view, "moment", "first_step")
	assert.Empty(t, view.Unlocked, "one special badge per parent")

	_, err := run(t, "moment", "first_dance")
	assert.Error(t, err)

	_, err = run(t, "award", "0")
	assert.Error(t, err, "zero points are rejected at the command boundary")

	runJSON(t, &view, "award", "25", "--reason", "feeding-log")
	assert.Equal(t, 25, view.Points)
	assert.Equal(t, 125, view.TotalPoints)
	assert.Equal(t, 2, view.Level.Number)
}

func TestRemindersAndFeatures(t *testing.T) {
	setupEnv(t)
	dob := time.Now().UTC().AddDate(0, 0, -45).Format("2006-01-02")
	_, err := run(t, "child", "add", "--name", "Ada", "--dob", dob)
	require.NoError(t, err)

	var due []json.RawMessage
	runJSON(t, &due, "reminders", "pending")
	assert.Len(t, due, 1)

	out, err := run(t, "reminders", "deliver")
	require.NoError(t, err)
	assert.Contains(t, out, "delivered 1 reminder(s)")

	out, err = run(t, "reminders", "pending")
	require.NoError(t, err)
	assert.Contains(t, out, "nothing due")

	var features []struct {
		Name    string `json:"name"`
		Enabled bool   `json:"enabled"`
	}
	runJSON(t, &features, "features")
	assert.Len(t, features, 6)
}

func TestMigrateRequiresPostgres(t *testing.T) {
	setupEnv(t)

	_, err := run(t, "migrate", "status")
	assert.ErrorIs(t, err, errNotPostgres)
}

func TestWorkerOnce(t *testing.T) {
	setupEnv(t)

	_, err := run(t, "worker", "--once")
	assert.NoError(t, err)
}

func TestConfigErrorsSurface(t *testing.T) {
	setupEnv(t)
	t.Setenv("STORAGE_DRIVER", "cassandra")

	_, err := run(t, "summary")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORAGE_DRIVER")
}
