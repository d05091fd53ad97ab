package catalog

import (
	"context"

	"github.com/edu-hub/course-platform-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Эти интерфейсы определяют контракт для работы с хранилищем каталога.
// Реализации находятся в infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// CourseRepository определяет операции для работы с курсами.
type CourseRepository interface {
	// Create создаёт новый курс.
	Create(ctx context.Context, course *Course) error

	// GetByID возвращает курс по ID.
	// Возвращает shared.ErrCourseNotFound, если курс не найден.
	GetByID(ctx context.Context, id shared.CourseID) (*Course, error)

	// Update обновляет данные курса.
	// Возвращает shared.ErrCourseNotFound, если курс не найден.
	Update(ctx context.Context, course *Course) error

	// Delete удаляет курс. Каскадное удаление дочерних сущностей
	// выполняет оркестратор удаления, не репозиторий.
	Delete(ctx context.Context, id shared.CourseID) error
}

// GroupRepository определяет операции для работы с группами курса.
type GroupRepository interface {
	// Create создаёт группу.
	Create(ctx context.Context, group *Group) error

	// GetByID возвращает группу по ID.
	// Возвращает shared.ErrGroupNotFound, если группа не найдена.
	GetByID(ctx context.Context, id shared.GroupID) (*Group, error)

	// GetByCourse возвращает все группы курса.
	GetByCourse(ctx context.Context, courseID shared.CourseID) ([]*Group, error)

	// DeleteByCourse удаляет все группы курса.
	DeleteByCourse(ctx context.Context, courseID shared.CourseID) (int, error)
}

// SectionRepository определяет операции для работы с секциями.
type SectionRepository interface {
	// Create создаёт секцию.
	Create(ctx context.Context, section *Section) error

	// GetByID возвращает секцию по ID.
	// Возвращает shared.ErrSectionNotFound, если секция не найдена.
	GetByID(ctx context.Context, id shared.SectionID) (*Section, error)

	// GetByCourse возвращает секции курса в порядке Order.
	GetByCourse(ctx context.Context, courseID shared.CourseID) ([]*Section, error)

	// GetByGroup возвращает секции группы в порядке Order.
	GetByGroup(ctx context.Context, groupID shared.GroupID) ([]*Section, error)

	// GetActivePaidByCourse возвращает активные платные секции курса -
	// именно по ним считается totalPaidSections.
	GetActivePaidByCourse(ctx context.Context, courseID shared.CourseID) ([]*Section, error)

	// Update обновляет секцию.
	Update(ctx context.Context, section *Section) error

	// DeleteByCourse удаляет все секции курса.
	DeleteByCourse(ctx context.Context, courseID shared.CourseID) (int, error)
}

// ContentRepository определяет операции для работы с контентом.
type ContentRepository interface {
	// Create создаёт единицу контента.
	Create(ctx context.Context, content *Content) error

	// GetByID возвращает контент по ID.
	// Возвращает shared.ErrContentNotFound, если контент не найден.
	GetByID(ctx context.Context, id shared.ContentID) (*Content, error)

	// GetBySection возвращает контент секции в порядке Order.
	GetBySection(ctx context.Context, sectionID shared.SectionID) ([]*Content, error)

	// GetByGroup возвращает весь контент секций группы.
	GetByGroup(ctx context.Context, groupID shared.GroupID) ([]*Content, error)

	// DeleteByCourse удаляет весь контент курса.
	DeleteByCourse(ctx context.Context, courseID shared.CourseID) (int, error)
}
