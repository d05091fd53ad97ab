package enrollment

import (
	"context"

	"github.com/edu-hub/course-platform-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Эти интерфейсы определяют контракт для работы с хранилищем.
// Реализации находятся в infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository определяет операции для работы с записями на курс.
type Repository interface {
	// Create создаёт запись студента на курс.
	// Возвращает shared.ErrEnrollmentExists, если запись уже существует.
	Create(ctx context.Context, enr *Enrollment) error

	// GetByID возвращает запись по ID.
	// Возвращает shared.ErrEnrollmentNotFound, если запись не найдена.
	GetByID(ctx context.Context, id string) (*Enrollment, error)

	// GetByStudentAndCourse возвращает запись студента на курс.
	// Возвращает shared.ErrEnrollmentNotFound, если записи нет.
	GetByStudentAndCourse(ctx context.Context, studentID shared.StudentID, courseID shared.CourseID) (*Enrollment, error)

	// GetByCourse возвращает все записи курса (для журнала).
	GetByCourse(ctx context.Context, courseID shared.CourseID) ([]*Enrollment, error)

	// GetByGroup возвращает записи группы.
	GetByGroup(ctx context.Context, groupID shared.GroupID) ([]*Enrollment, error)

	// Update обновляет запись (включая множество разблокированных секций).
	Update(ctx context.Context, enr *Enrollment) error

	// DeleteByCourse удаляет все записи курса.
	DeleteByCourse(ctx context.Context, courseID shared.CourseID) (int, error)
}

// PaymentRepository определяет операции для работы с оплатами секций.
type PaymentRepository interface {
	// Create создаёт оплату.
	Create(ctx context.Context, payment *SectionPayment) error

	// GetByID возвращает оплату по ID.
	// Возвращает shared.ErrPaymentNotFound, если оплата не найдена.
	GetByID(ctx context.Context, id string) (*SectionPayment, error)

	// GetLatest возвращает последнюю по SubmittedAt оплату пары
	// (студент, секция) или shared.ErrPaymentNotFound.
	GetLatest(ctx context.Context, studentID shared.StudentID, sectionID shared.SectionID) (*SectionPayment, error)

	// GetByStudentAndSection возвращает все оплаты пары (студент, секция).
	GetByStudentAndSection(ctx context.Context, studentID shared.StudentID, sectionID shared.SectionID) ([]*SectionPayment, error)

	// GetByCourse возвращает все оплаты курса (для матрицы доступа).
	GetByCourse(ctx context.Context, courseID shared.CourseID) ([]*SectionPayment, error)

	// Update обновляет оплату.
	Update(ctx context.Context, payment *SectionPayment) error

	// DeleteByCourse удаляет все оплаты курса.
	DeleteByCourse(ctx context.Context, courseID shared.CourseID) (int, error)
}
