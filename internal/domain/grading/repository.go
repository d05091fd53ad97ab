package grading

import (
	"context"

	"github.com/edu-hub/course-platform-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Эти интерфейсы определяют контракт для работы с хранилищем оценок.
// Реализации находятся в infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// ContentGradeRepository определяет операции для оценок за контент.
type ContentGradeRepository interface {
	// Upsert создаёт или обновляет оценку по ключу (студент, контент).
	// Идемпотентна при одинаковых входных данных.
	Upsert(ctx context.Context, grade *ContentGrade) error

	// Get возвращает оценку пары (студент, контент).
	// Возвращает shared.ErrContentGradeNotFound, если оценки нет.
	Get(ctx context.Context, studentID shared.StudentID, contentID shared.ContentID) (*ContentGrade, error)

	// GetBySection возвращает все оценки студента по контенту секции,
	// индексированные по ContentID.
	GetBySection(ctx context.Context, studentID shared.StudentID, sectionID shared.SectionID) (map[shared.ContentID]*ContentGrade, error)

	// GetByGroup возвращает все оценки студента по контенту группы,
	// индексированные по ContentID.
	GetByGroup(ctx context.Context, studentID shared.StudentID, groupID shared.GroupID) (map[shared.ContentID]*ContentGrade, error)

	// DeleteByCourse удаляет все оценки за контент курса.
	DeleteByCourse(ctx context.Context, courseID shared.CourseID) (int, error)
}

// SectionGradeRepository определяет операции для производных оценок секций.
type SectionGradeRepository interface {
	// Upsert создаёт или обновляет оценку секции по ключу (студент, секция).
	// Идемпотентна при одинаковых входных данных - безопасна для повторов.
	Upsert(ctx context.Context, grade *SectionGrade) error

	// Get возвращает оценку секции для студента.
	// Возвращает shared.ErrSectionGradeNotFound, если оценки нет.
	Get(ctx context.Context, studentID shared.StudentID, sectionID shared.SectionID) (*SectionGrade, error)

	// GetByCourse возвращает оценки студента по всем секциям курса.
	GetByCourse(ctx context.Context, studentID shared.StudentID, courseID shared.CourseID) ([]*SectionGrade, error)

	// GetByGroup возвращает оценки студента по секциям группы.
	GetByGroup(ctx context.Context, studentID shared.StudentID, groupID shared.GroupID) ([]*SectionGrade, error)

	// GetAllByCourse возвращает оценки всех студентов курса (для журнала).
	GetAllByCourse(ctx context.Context, courseID shared.CourseID) ([]*SectionGrade, error)

	// DeleteByCourse удаляет все оценки секций курса.
	DeleteByCourse(ctx context.Context, courseID shared.CourseID) (int, error)
}
