// Package grading содержит доменную модель оценок: оценки за контент,
// производные оценки секций и агрегацию на уровне курса.
// Это ядро бизнес-логики - здесь нет внешних зависимостей.
package grading

import (
	"fmt"
	"time"

	"github.com/edu-hub/course-platform-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENUMS
// ══════════════════════════════════════════════════════════════════════════════

// GradeStatus определяет состояние оценки за единицу контента.
type GradeStatus string

const (
	// GradeNotDelivered - студент не приступал к контенту.
	GradeNotDelivered GradeStatus = "not_delivered"
	// GradeSubmittedUngraded - работа сдана, но ещё не проверена.
	GradeSubmittedUngraded GradeStatus = "submitted_ungraded"
	// GradeGraded - работа проверена, выставлен балл.
	GradeGraded GradeStatus = "graded"
	// GradeWatched - лекция просмотрена / отмечена завершённой.
	GradeWatched GradeStatus = "watched"
)

// IsValid проверяет, что статус оценки корректен.
func (s GradeStatus) IsValid() bool {
	switch s {
	case GradeNotDelivered, GradeSubmittedUngraded, GradeGraded, GradeWatched:
		return true
	default:
		return false
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CONTENT GRADE
// ══════════════════════════════════════════════════════════════════════════════

// ContentGrade - оценка студента за единицу контента.
// Одна на пару (студент, контент); апсерты по этому ключу идемпотентны.
type ContentGrade struct {
	// StudentID - студент.
	StudentID shared.StudentID

	// ContentID - единица контента.
	ContentID shared.ContentID

	// SectionID - секция контента.
	SectionID shared.SectionID

	// CourseID - курс контента.
	CourseID shared.CourseID

	// Status - состояние оценки.
	Status GradeStatus

	// GradePercent - балл в [0, 100]. Значения вне диапазона
	// молча обрезаются при записи (в отличие от цен).
	GradePercent shared.Percent

	// Feedback - комментарий преподавателя.
	Feedback string

	// UpdatedAt - время последнего обновления.
	UpdatedAt time.Time
}

// NewContentGrade создаёт оценку за контент. Балл обрезается в [0, 100].
func NewContentGrade(studentID shared.StudentID, contentID shared.ContentID, sectionID shared.SectionID, courseID shared.CourseID, status GradeStatus, percent shared.Percent) (*ContentGrade, error) {
	if studentID.IsEmpty() || contentID.IsEmpty() {
		return nil, shared.NewDomainError("grading", "NewContentGrade", shared.ErrEmptyValue, "student and content are required")
	}
	if !status.IsValid() {
		return nil, shared.NewDomainError("grading", "NewContentGrade", shared.ErrInvalidInput, "invalid grade status")
	}

	return &ContentGrade{
		StudentID:    studentID,
		ContentID:    contentID,
		SectionID:    sectionID,
		CourseID:     courseID,
		Status:       status,
		GradePercent: percent.Clamp(),
		UpdatedAt:    time.Now().UTC(),
	}, nil
}

// SetGrade выставляет балл и переводит оценку в состояние graded.
func (g *ContentGrade) SetGrade(percent shared.Percent, feedback string) {
	g.Status = GradeGraded
	g.GradePercent = percent.Clamp()
	g.Feedback = feedback
	g.UpdatedAt = time.Now().UTC()
}

// MarkWatched отмечает лекцию просмотренной.
func (g *ContentGrade) MarkWatched() {
	g.Status = GradeWatched
	g.UpdatedAt = time.Now().UTC()
}

// MarkSubmitted отмечает работу сданной (ожидает проверки).
func (g *ContentGrade) MarkSubmitted() {
	g.Status = GradeSubmittedUngraded
	g.UpdatedAt = time.Now().UTC()
}

// String возвращает строковое представление оценки для логирования.
func (g *ContentGrade) String() string {
	return fmt.Sprintf("ContentGrade{Student: %s, Content: %s, Status: %s, Grade: %.2f}",
		g.StudentID, g.ContentID, g.Status, g.GradePercent)
}

// ══════════════════════════════════════════════════════════════════════════════
// SECTION GRADE (derived, cached)
// ══════════════════════════════════════════════════════════════════════════════

// SectionGrade - производная оценка секции. Пересчитывается синхронно
// при каждой записи оценки за контент этой секции.
type SectionGrade struct {
	// StudentID - студент.
	StudentID shared.StudentID

	// SectionID - секция.
	SectionID shared.SectionID

	// CourseID - курс (денормализовано для агрегации по курсу).
	CourseID shared.CourseID

	// Grade - балл секции в [0, 100]. nil означает "нечего оценивать":
	// секция без оцениваемого контента отличается от секции с нулём баллов.
	Grade *shared.Percent

	// UpdatedAt - время последнего пересчёта.
	UpdatedAt time.Time
}

// HasGrade возвращает true, если секция имеет вычисленный балл.
func (g *SectionGrade) HasGrade() bool {
	return g != nil && g.Grade != nil
}

// String возвращает строковое представление для логирования.
func (g *SectionGrade) String() string {
	if !g.HasGrade() {
		return fmt.Sprintf("SectionGrade{Student: %s, Section: %s, Grade: null}", g.StudentID, g.SectionID)
	}
	return fmt.Sprintf("SectionGrade{Student: %s, Section: %s, Grade: %.2f}", g.StudentID, g.SectionID, *g.Grade)
}
