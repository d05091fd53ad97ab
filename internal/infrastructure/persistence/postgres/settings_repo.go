// Package postgres implements the PostgreSQL persistence layer for the
// course platform core.
package postgres

import (
	"context"
	"fmt"

	"github.com/edu-hub/course-platform-core/internal/domain/settings"
	"github.com/edu-hub/course-platform-core/internal/domain/shared"
)

// SettingsRepository implements settings.Repository for PostgreSQL.
// Platform settings live in a single-row table; a missing row falls
// back to defaults rather than erroring.
type SettingsRepository struct {
	conn *Connection
}

// NewSettingsRepository creates a new SettingsRepository.
func NewSettingsRepository(conn *Connection) *SettingsRepository {
	return &SettingsRepository{conn: conn}
}

// Get returns the platform settings.
func (r *SettingsRepository) Get(ctx context.Context) (*settings.PlatformSettings, error) {
	query := `SELECT passing_grade, updated_at FROM platform_settings WHERE id = 1`

	var s settings.PlatformSettings
	var passingGrade float64

	err := r.conn.QueryRow(ctx, query).Scan(&passingGrade, &s.UpdatedAt)
	if err != nil {
		if IsNoRows(err) {
			return settings.Default(), nil
		}
		return nil, fmt.Errorf("failed to load platform settings: %w", err)
	}

	s.PassingGrade = shared.Percent(passingGrade)
	return &s, nil
}

// Save persists the platform settings.
func (r *SettingsRepository) Save(ctx context.Context, s *settings.PlatformSettings) error {
	query := `
		INSERT INTO platform_settings (id, passing_grade, updated_at)
		VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET
			passing_grade = EXCLUDED.passing_grade,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.conn.Exec(ctx, query, float64(s.PassingGrade), s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save platform settings: %w", err)
	}

	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// PASSTHROUGH CACHE
// ══════════════════════════════════════════════════════════════════════════════

// SettingsPassthrough implements settings.Cache without caching.
// Used when Redis is disabled; every read hits the database.
type SettingsPassthrough struct {
	repo settings.Repository
}

// NewSettingsPassthrough creates a new SettingsPassthrough.
func NewSettingsPassthrough(repo settings.Repository) *SettingsPassthrough {
	return &SettingsPassthrough{repo: repo}
}

// Get reads settings straight from the repository.
func (p *SettingsPassthrough) Get(ctx context.Context) (*settings.PlatformSettings, error) {
	return p.repo.Get(ctx)
}

// Invalidate is a no-op.
func (p *SettingsPassthrough) Invalidate(_ context.Context) error {
	return nil
}
