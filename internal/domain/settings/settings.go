// Package settings содержит платформенные настройки, влияющие на
// выдачу сертификатов и оценивание.
package settings

import (
	"context"
	"time"

	"github.com/edu-hub/course-platform-core/internal/domain/shared"
)

// DefaultPassingGrade - проходной балл по умолчанию.
const DefaultPassingGrade shared.Percent = 60.0

// PlatformSettings - глобальные настройки платформы.
type PlatformSettings struct {
	// PassingGrade - минимальный итоговый балл для сертификата.
	PassingGrade shared.Percent

	// UpdatedAt - время последнего обновления.
	UpdatedAt time.Time
}

// Default возвращает настройки по умолчанию.
func Default() *PlatformSettings {
	return &PlatformSettings{
		PassingGrade: DefaultPassingGrade,
		UpdatedAt:    time.Now().UTC(),
	}
}

// SetPassingGrade устанавливает проходной балл.
// Значение вне диапазона 0..100 отклоняется.
func (s *PlatformSettings) SetPassingGrade(grade shared.Percent) error {
	if grade < 0 || grade > 100 {
		return shared.NewDomainError("settings", "SetPassingGrade", shared.ErrInvalidInput, "passing grade must be within 0..100")
	}

	s.PassingGrade = grade
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// Repository defines the interface for platform settings persistence.
type Repository interface {
	// Get retrieves the current platform settings.
	Get(ctx context.Context) (*PlatformSettings, error)

	// Save persists the platform settings.
	Save(ctx context.Context, s *PlatformSettings) error
}

// Cache defines a read-through cache over platform settings.
// Staleness is bounded by the cache TTL.
type Cache interface {
	// Get retrieves settings from the cache, falling back to the
	// underlying repository on a miss.
	Get(ctx context.Context) (*PlatformSettings, error)

	// Invalidate drops the cached value so the next read hits the
	// repository.
	Invalidate(ctx context.Context) error
}
