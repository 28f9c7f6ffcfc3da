package config

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeatureFlags_Defaults(t *testing.T) {
	ff := NewFeatureFlags()

	assert.True(t, ff.IsEnabled(FeatureMonthlyPhotoReminders, nil))
	assert.True(t, ff.IsEnabled(FeatureCelebrations, ForUser("parent-1")))
	assert.False(t, ff.IsEnabled(FeatureGrowthStrictMode, ForUser("parent-1")))
	assert.False(t, ff.IsEnabled("no.such.feature", nil))
	assert.Len(t, ff.GetAllFeatures(), 6)
}

func TestFeatureFlags_RolloutIsStablePerUser(t *testing.T) {
	ff, err := LoadFeatureFlags(map[string]string{"FEATURE_GROWTH_STRICT_MODE": "50"})
	require.NoError(t, err)

	enabled := 0
	for i := 0; i < 1000; i++ {
		ctx := ForUser(fmt.Sprintf("parent-%d", i))
		first := ff.IsEnabled(FeatureGrowthStrictMode, ctx)
		assert.Equal(t, first, ff.IsEnabled(FeatureGrowthStrictMode, ctx))
		if first {
			enabled++
		}
	}
	assert.InDelta(t, 500, enabled, 100)
	assert.True(t, ff.IsEnabled(FeatureGrowthStrictMode, nil), "without a user the flag itself decides")

	_, err = LoadFeatureFlags(map[string]string{"FEATURE_GROWTH_STRICT_MODE": "101"})
	assert.ErrorIs(t, err, ErrInvalidRolloutPercent)
}

func TestFeatureFlags_UserOverrides(t *testing.T) {
	ff, err := LoadFeatureFlags(map[string]string{
		"FEATURE_ENGAGEMENT_CELEBRATIONS": "false",
		"FEATURE_OVERRIDES":               " beta-parent:engagement.celebrations=true, qa:cache.engagement=false ",
	})
	require.NoError(t, err)

	assert.True(t, ff.IsEnabled(FeatureCelebrations, ForUser("beta-parent")))
	assert.False(t, ff.IsEnabled(FeatureCelebrations, ForUser("parent-1")))
	assert.False(t, ff.IsEnabled(FeatureEngagementCache, ForUser("qa")))
	assert.True(t, ff.IsEnabled(FeatureEngagementCache, ForUser("parent-1")))

	ff.SetUserOverride("parent-1", FeatureCelebrations, true)
	assert.True(t, ff.IsEnabled(FeatureCelebrations, ForUser("parent-1")))
}

func TestFeatureFlags_InvalidOverrides(t *testing.T) {
	tests := []struct {
		spec string
		want error
	}{
		{"beta-parent", ErrInvalidOverride},
		{":growth.strict_mode=true", ErrInvalidOverride},
		{"beta:growth.strict_mode=maybe", ErrInvalidOverride},
		{"beta:growth.turbo=true", ErrFeatureNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			_, err := LoadFeatureFlags(map[string]string{"FEATURE_OVERRIDES": tt.spec})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLoadFeatureFlags_Environment(t *testing.T) {
	ff, err := LoadFeatureFlags(map[string]string{
		"FEATURE_REMINDERS_NEXT_PHOTO": "false",
		"FEATURE_GROWTH_STRICT_MODE":   "100",
	})
	require.NoError(t, err)
	assert.False(t, ff.IsEnabled(FeatureNextPhotoReminder, nil))
	assert.True(t, ff.IsEnabled(FeatureGrowthStrictMode, ForUser("parent-1")))

	_, err = LoadFeatureFlags(map[string]string{"FEATURE_CACHE_ENGAGEMENT": "maybe"})
	assert.ErrorIs(t, err, ErrInvalidRolloutPercent)
}

func TestFeatureNameToEnvKey(t *testing.T) {
	assert.Equal(t, "FEATURE_GROWTH_STRICT_MODE", featureNameToEnvKey(FeatureGrowthStrictMode))
	assert.Equal(t, "FEATURE_EVENTS_REDIS_BUS", featureNameToEnvKey(FeatureRedisEventBus))
}
