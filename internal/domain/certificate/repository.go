package certificate

import (
	"context"

	"github.com/edu-hub/course-platform-core/internal/domain/shared"
)

// Repository определяет операции для работы с выданными сертификатами.
// Реализации находятся в infrastructure/persistence.
type Repository interface {
	// Create создаёт сертификат.
	Create(ctx context.Context, cert *Certificate) error

	// GetByID возвращает сертификат по ID.
	// Возвращает shared.ErrCertificateNotFound, если сертификат не найден.
	GetByID(ctx context.Context, id string) (*Certificate, error)

	// GetByStudentAndCourse возвращает сертификат студента по курсу.
	// Возвращает shared.ErrCertificateNotFound, если сертификата нет.
	GetByStudentAndCourse(ctx context.Context, studentID shared.StudentID, courseID shared.CourseID) (*Certificate, error)

	// Update обновляет сертификат.
	Update(ctx context.Context, cert *Certificate) error

	// DeleteByCourse удаляет сертификаты курса.
	DeleteByCourse(ctx context.Context, courseID shared.CourseID) (int, error)
}
