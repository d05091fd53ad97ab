package config

import (
	"hash/fnv"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// FeatureFlags manages feature toggles for the platform.
// Supports gradual rollout, per-user overrides, and time-based activation.
type FeatureFlags struct {
	mu sync.RWMutex

	features map[string]*Feature

	// Override rules (for testing/debugging)
	userOverrides map[string]map[string]bool // studentID -> feature -> enabled
}

// Feature represents a single feature flag.
type Feature struct {
	Name        string
	Description string
	Enabled     bool

	// Rollout percentage (0-100)
	// Users are assigned based on hash of their ID
	RolloutPercent int

	// Time-based activation
	EnabledFrom  *time.Time
	EnabledUntil *time.Time
}

// FeatureContext provides context for feature flag evaluation.
type FeatureContext struct {
	StudentID string
	IsAdmin   bool
}

// Predefined feature flag names.
const (
	// === Certificate Features ===
	FeatureCertAutoGrant = "certificates.auto_grant" // Issue immediately when eligible

	// === Pricing Features ===
	FeaturePricingRescale     = "pricing.rescale"      // Proportional section rescale on confirm
	FeaturePricingExpirySweep = "pricing.expiry_sweep" // Background sweep of stale proposals

	// === Notification Features ===
	FeatureNotifyCertificateGranted = "notify.certificate_granted" // Congratulate on certificate
	FeatureNotifyPriceChange        = "notify.price_change"        // Tell students prices moved

	// === Cache Features ===
	FeatureCacheSettings = "cache.settings" // Read-through settings cache

	// === Experimental Features ===
	FeatureExperimentalGradebookCache = "experimental.gradebook_cache" // Cache aggregated grades
)

// LoadFeatureFlags loads feature flags from environment variables.
func LoadFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{
		features:      make(map[string]*Feature),
		userOverrides: make(map[string]map[string]bool),
	}

	ff.initializeDefaults()
	ff.loadFromEnvironment()

	return ff
}

// initializeDefaults sets up all features with default values.
func (ff *FeatureFlags) initializeDefaults() {
	ff.features[FeatureCertAutoGrant] = &Feature{
		Name:           FeatureCertAutoGrant,
		Description:    "Issue certificates immediately when a student becomes eligible",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeaturePricingRescale] = &Feature{
		Name:           FeaturePricingRescale,
		Description:    "Rescale section prices proportionally on cost change confirmation",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeaturePricingExpirySweep] = &Feature{
		Name:           FeaturePricingExpirySweep,
		Description:    "Cancel cost change proposals whose expiry passed",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureNotifyCertificateGranted] = &Feature{
		Name:           FeatureNotifyCertificateGranted,
		Description:    "Notify students when a certificate is issued",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureNotifyPriceChange] = &Feature{
		Name:           FeatureNotifyPriceChange,
		Description:    "Notify enrolled students after a price rescale",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureCacheSettings] = &Feature{
		Name:           FeatureCacheSettings,
		Description:    "Serve platform settings from Redis",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureExperimentalGradebookCache] = &Feature{
		Name:           FeatureExperimentalGradebookCache,
		Description:    "Cache aggregated gradebooks in Redis",
		Enabled:        false,
		RolloutPercent: 0,
	}
}

// loadFromEnvironment loads feature flag overrides from env vars.
// Format: FEATURE_<NAME>=true|false|<percent>
// Example: FEATURE_CERTIFICATES_AUTO_GRANT=true
// Example: FEATURE_EXPERIMENTAL_GRADEBOOK_CACHE=50 (50% rollout)
func (ff *FeatureFlags) loadFromEnvironment() {
	for name, feature := range ff.features {
		envKey := featureNameToEnvKey(name)
		if val := os.Getenv(envKey); val != "" {
			if b, err := strconv.ParseBool(val); err == nil {
				feature.Enabled = b
				if b {
					feature.RolloutPercent = 100
				} else {
					feature.RolloutPercent = 0
				}
				continue
			}

			if p, err := strconv.Atoi(val); err == nil && p >= 0 && p <= 100 {
				feature.Enabled = p > 0
				feature.RolloutPercent = p
			}
		}
	}
}

// featureNameToEnvKey converts feature name to environment variable key.
// "certificates.auto_grant" -> "FEATURE_CERTIFICATES_AUTO_GRANT"
func featureNameToEnvKey(name string) string {
	key := strings.ToUpper(name)
	key = strings.ReplaceAll(key, ".", "_")
	return "FEATURE_" + key
}

// IsEnabled checks if a feature is enabled for the given context.
func (ff *FeatureFlags) IsEnabled(featureName string, ctx *FeatureContext) bool {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	// Check user overrides first
	if ctx != nil && ctx.StudentID != "" {
		if userOverrides, ok := ff.userOverrides[ctx.StudentID]; ok {
			if enabled, ok := userOverrides[featureName]; ok {
				return enabled
			}
		}
	}

	feature, ok := ff.features[featureName]
	if !ok {
		return false
	}

	// Admin users get all features
	if ctx != nil && ctx.IsAdmin {
		return true
	}

	if !feature.Enabled {
		return false
	}

	// Check time-based activation
	now := time.Now()
	if feature.EnabledFrom != nil && now.Before(*feature.EnabledFrom) {
		return false
	}
	if feature.EnabledUntil != nil && now.After(*feature.EnabledUntil) {
		return false
	}

	// Check rollout percentage
	if feature.RolloutPercent < 100 && ctx != nil && ctx.StudentID != "" {
		return ff.isInRollout(ctx.StudentID, featureName, feature.RolloutPercent)
	}

	return feature.RolloutPercent > 0
}

// isInRollout determines if a user is in the rollout percentage.
// Uses consistent hashing so users stay in their bucket.
func (ff *FeatureFlags) isInRollout(studentID, featureName string, percent int) bool {
	h := fnv.New32a()
	h.Write([]byte(featureName))
	h.Write([]byte(studentID))
	hash := h.Sum32()

	bucket := int(hash % 100)

	return bucket < percent
}

// SetUserOverride sets a feature override for a specific user.
// Useful for testing and debugging.
func (ff *FeatureFlags) SetUserOverride(studentID, featureName string, enabled bool) {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	if _, ok := ff.userOverrides[studentID]; !ok {
		ff.userOverrides[studentID] = make(map[string]bool)
	}
	ff.userOverrides[studentID][featureName] = enabled
}

// ClearUserOverrides removes all overrides for a user.
func (ff *FeatureFlags) ClearUserOverrides(studentID string) {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	delete(ff.userOverrides, studentID)
}

// SetRolloutPercent updates the rollout percentage for a feature.
// Thread-safe for live updates.
func (ff *FeatureFlags) SetRolloutPercent(featureName string, percent int) error {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	feature, ok := ff.features[featureName]
	if !ok {
		return ErrFeatureNotFound
	}

	if percent < 0 || percent > 100 {
		return ErrInvalidRolloutPercent
	}

	feature.RolloutPercent = percent
	feature.Enabled = percent > 0

	return nil
}

// EnableFeature enables a feature at 100% rollout.
func (ff *FeatureFlags) EnableFeature(featureName string) error {
	return ff.SetRolloutPercent(featureName, 100)
}

// DisableFeature disables a feature completely.
func (ff *FeatureFlags) DisableFeature(featureName string) error {
	return ff.SetRolloutPercent(featureName, 0)
}

// GetAllFeatures returns a copy of all feature configurations.
func (ff *FeatureFlags) GetAllFeatures() map[string]*Feature {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	result := make(map[string]*Feature, len(ff.features))
	for k, v := range ff.features {
		featureCopy := *v
		result[k] = &featureCopy
	}
	return result
}

// --- Errors ---

var (
	ErrFeatureNotFound       = &FeatureFlagError{Message: "feature not found"}
	ErrInvalidRolloutPercent = &FeatureFlagError{Message: "rollout percent must be 0-100"}
)

// FeatureFlagError represents a feature flag error.
type FeatureFlagError struct {
	Message string
}

func (e *FeatureFlagError) Error() string {
	return e.Message
}
