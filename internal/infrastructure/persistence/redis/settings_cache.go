package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/edu-hub/course-platform-core/internal/domain/settings"
	"github.com/edu-hub/course-platform-core/internal/domain/shared"
	"github.com/edu-hub/course-platform-core/pkg/logger"
)

// settingsKey is the single key holding the platform settings snapshot.
const settingsKey = PrefixSettings + "platform"

// cachedSettings is the JSON shape stored in Redis.
type cachedSettings struct {
	PassingGrade float64   `json:"passing_grade"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// SettingsCache implements settings.Cache as a read-through cache over
// the settings repository. A cache miss loads from storage and
// repopulates the key; a Redis failure falls through to storage so the
// cache never blocks certificate evaluation.
type SettingsCache struct {
	cache *Cache
	repo  settings.Repository
	ttl   time.Duration
	log   *logger.Logger
}

// NewSettingsCache creates a new SettingsCache.
func NewSettingsCache(cache *Cache, repo settings.Repository, log *logger.Logger) *SettingsCache {
	return &SettingsCache{
		cache: cache,
		repo:  repo,
		ttl:   TTLSettings,
		log:   log.With(logger.Component("settings_cache")),
	}
}

// Get returns the platform settings, at most TTLSettings stale.
func (c *SettingsCache) Get(ctx context.Context) (*settings.PlatformSettings, error) {
	var cached cachedSettings

	err := c.cache.Get(ctx, settingsKey, &cached)
	if err == nil {
		return &settings.PlatformSettings{
			PassingGrade: shared.Percent(cached.PassingGrade),
			UpdatedAt:    cached.UpdatedAt,
		}, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		c.log.Warn("settings cache read failed, falling back to storage", logger.Err(err))
	}

	loaded, err := c.repo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("settings_cache: failed to load settings: %w", err)
	}

	snapshot := cachedSettings{
		PassingGrade: float64(loaded.PassingGrade),
		UpdatedAt:    loaded.UpdatedAt,
	}
	if err := c.cache.Set(ctx, settingsKey, snapshot, c.ttl); err != nil {
		// Cache population is best-effort.
		c.log.Warn("failed to populate settings cache", logger.Err(err))
	}

	return loaded, nil
}

// Invalidate drops the cached snapshot so the next Get hits storage.
func (c *SettingsCache) Invalidate(ctx context.Context) error {
	if err := c.cache.Delete(ctx, settingsKey); err != nil {
		return fmt.Errorf("settings_cache: failed to invalidate: %w", err)
	}
	return nil
}
