package config

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// FeatureFlags manages feature toggles with gradual, per-user rollout.
// Definitions are fixed at load time; user overrides may be added later.
type FeatureFlags struct {
	mu sync.RWMutex

	features map[string]*Feature

	// userID -> feature -> enabled
	userOverrides map[string]map[string]bool
}

// Feature represents a single feature flag.
type Feature struct {
	Name        string
	Description string
	Enabled     bool

	// RolloutPercent (0-100) assigns users by a hash of their ID.
	RolloutPercent int
}

// FeatureContext provides context for feature flag evaluation.
type FeatureContext struct {
	UserID string
}

// ForUser returns a context for a regular user.
func ForUser(userID string) *FeatureContext {
	return &FeatureContext{UserID: userID}
}

// Predefined feature flag names.
const (
	// === Reminders ===
	FeatureMonthlyPhotoReminders = "reminders.monthly_photo" // Queue 12 photo reminders on registration
	FeatureNextPhotoReminder     = "reminders.next_photo"    // Queue next month's reminder after a photo

	// === Engagement ===
	FeatureCelebrations = "engagement.celebrations" // Level-up and achievement celebrations

	// === Growth ===
	FeatureGrowthStrictMode = "growth.strict_mode" // Report lookup failures instead of the median

	// === Infrastructure ===
	FeatureEngagementCache = "cache.engagement" // Redis read-through cache for engagement state
	FeatureRedisEventBus   = "events.redis_bus" // Fan events out over Redis Pub/Sub
)

// LoadFeatureFlags builds the flag set from defaults and FEATURE_* entries
// in environ.
func LoadFeatureFlags(environ map[string]string) (*FeatureFlags, error) {
	ff := NewFeatureFlags()
	if err := ff.loadFromEnvironment(environ); err != nil {
		return nil, err
	}
	return ff, nil
}

// NewFeatureFlags returns the default flag set.
func NewFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{
		features:      make(map[string]*Feature),
		userOverrides: make(map[string]map[string]bool),
	}
	ff.initializeDefaults()
	return ff
}

func (ff *FeatureFlags) initializeDefaults() {
	defaults := []Feature{
		{Name: FeatureMonthlyPhotoReminders, Description: "Queue monthly photo reminders for new children", Enabled: true, RolloutPercent: 100},
		{Name: FeatureNextPhotoReminder, Description: "Queue the next photo reminder when a photo is taken", Enabled: true, RolloutPercent: 100},
		{Name: FeatureCelebrations, Description: "Celebrate level-ups and achievements", Enabled: true, RolloutPercent: 100},
		{Name: FeatureGrowthStrictMode, Description: "Surface percentile lookup failures", Enabled: false, RolloutPercent: 0},
		{Name: FeatureEngagementCache, Description: "Cache engagement state in Redis", Enabled: true, RolloutPercent: 100},
		{Name: FeatureRedisEventBus, Description: "Distribute events over Redis Pub/Sub", Enabled: false, RolloutPercent: 0},
	}
	for i := range defaults {
		f := defaults[i]
		ff.features[f.Name] = &f
	}
}

// overridesEnvKey lists per-user overrides as user:feature=bool pairs, e.g.
// FEATURE_OVERRIDES=beta-parent:growth.strict_mode=true,qa:cache.engagement=false
const overridesEnvKey = "FEATURE_OVERRIDES"

// loadFromEnvironment applies overrides.
// Format: FEATURE_<NAME>=true|false|<percent>
// Example: FEATURE_GROWTH_STRICT_MODE=25 (25% rollout)
func (ff *FeatureFlags) loadFromEnvironment(environ map[string]string) error {
	if err := ff.loadUserOverrides(environ[overridesEnvKey]); err != nil {
		return err
	}
	for name, feature := range ff.features {
		envKey := featureNameToEnvKey(name)
		val := strings.TrimSpace(environ[envKey])
		if val == "" {
			continue
		}

		if b, err := strconv.ParseBool(val); err == nil {
			feature.Enabled = b
			if b {
				feature.RolloutPercent = 100
			} else {
				feature.RolloutPercent = 0
			}
			continue
		}

		p, err := strconv.Atoi(val)
		if err != nil || p < 0 || p > 100 {
			return fmt.Errorf("%s=%q: %w", envKey, val, ErrInvalidRolloutPercent)
		}
		feature.Enabled = p > 0
		feature.RolloutPercent = p
	}
	return nil
}

func (ff *FeatureFlags) loadUserOverrides(spec string) error {
	for _, entry := range strings.Split(spec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		user, rest, ok := strings.Cut(entry, ":")
		name, val, ok2 := strings.Cut(rest, "=")
		if !ok || !ok2 || strings.TrimSpace(user) == "" {
			return fmt.Errorf("%s entry %q: %w", overridesEnvKey, entry, ErrInvalidOverride)
		}
		enabled, err := strconv.ParseBool(strings.TrimSpace(val))
		if err != nil {
			return fmt.Errorf("%s entry %q: %w", overridesEnvKey, entry, ErrInvalidOverride)
		}
		name = strings.TrimSpace(name)
		if _, known := ff.features[name]; !known {
			return fmt.Errorf("%s entry %q: %w", overridesEnvKey, entry, ErrFeatureNotFound)
		}
		ff.SetUserOverride(strings.TrimSpace(user), name, enabled)
	}
	return nil
}

// featureNameToEnvKey converts feature name to environment variable key.
// "growth.strict_mode" -> "FEATURE_GROWTH_STRICT_MODE"
func featureNameToEnvKey(name string) string {
	key := strings.ToUpper(name)
	key = strings.ReplaceAll(key, ".", "_")
	return "FEATURE_" + key
}

// IsEnabled checks if a feature is enabled for the given context.
func (ff *FeatureFlags) IsEnabled(featureName string, ctx *FeatureContext) bool {
	ff.mu.RLock()
	defer ff.mu.RUnlock()
	return ff.isEnabledLocked(featureName, ctx)
}

func (ff *FeatureFlags) isEnabledLocked(featureName string, ctx *FeatureContext) bool {
	if ctx != nil && ctx.UserID != "" {
		if overrides, ok := ff.userOverrides[ctx.UserID]; ok {
			if enabled, ok := overrides[featureName]; ok {
				return enabled
			}
		}
	}

	feature, ok := ff.features[featureName]
	if !ok {
		return false
	}

	if !feature.Enabled {
		return false
	}

	if feature.RolloutPercent < 100 && ctx != nil && ctx.UserID != "" {
		return isInRollout(ctx.UserID, featureName, feature.RolloutPercent)
	}

	return feature.RolloutPercent > 0
}

// isInRollout hashes user and feature together so each user stays in their
// bucket while buckets differ across features.
func isInRollout(userID, featureName string, percent int) bool {
	h := fnv.New32a()
	h.Write([]byte(featureName))
	h.Write([]byte(userID))
	return int(h.Sum32()%100) < percent
}

// SetUserOverride sets a feature override for a specific user.
func (ff *FeatureFlags) SetUserOverride(userID, featureName string, enabled bool) {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	if _, ok := ff.userOverrides[userID]; !ok {
		ff.userOverrides[userID] = make(map[string]bool)
	}
	ff.userOverrides[userID][featureName] = enabled
}

// GetAllFeatures returns copies of all features sorted by name.
func (ff *FeatureFlags) GetAllFeatures() []Feature {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	result := make([]Feature, 0, len(ff.features))
	for _, f := range ff.features {
		result = append(result, *f)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// --- Errors ---

var (
	ErrFeatureNotFound       = &FeatureFlagError{Message: "feature not found"}
	ErrInvalidRolloutPercent = &FeatureFlagError{Message: "rollout percent must be 0-100"}
	ErrInvalidOverride       = &FeatureFlagError{Message: "override must be user:feature=true|false"}
)

// FeatureFlagError represents a feature flag error.
type FeatureFlagError struct {
	Message string
}

func (e *FeatureFlagError) Error() string {
	return e.Message
}
