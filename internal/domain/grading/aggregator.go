package grading

import (
	"time"

	"github.com/edu-hub/course-platform-core/internal/domain/catalog"
	"github.com/edu-hub/course-platform-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GRADE AGGREGATOR
// Чистые функции подсчёта баллов. Контент секции разбивается по видам
// (лекции / задания / проекты); каждый вид имеет собственное правило
// оценивания, выбираемое исчерпывающим switch по закрытому перечислению -
// неизвестный вид не может молча дать нулевой вклад.
// ══════════════════════════════════════════════════════════════════════════════

// provisionalScore - временный балл за сданную, но непроверенную работу.
const provisionalScore = 50

// scoreLecture - лекция даёт 100, если просмотрена, иначе 0.
func scoreLecture(grade *ContentGrade) float64 {
	if grade == nil {
		return 0
	}
	if grade.Status == GradeWatched || grade.Status == GradeGraded {
		return 100
	}
	return 0
}

// scoreSubmittable - задания и проекты: выставленный балл для проверенных,
// временный кредит для сданных, ноль для нетронутых.
func scoreSubmittable(grade *ContentGrade) float64 {
	if grade == nil {
		return 0
	}
	switch grade.Status {
	case GradeGraded:
		return grade.GradePercent.Float64()
	case GradeSubmittedUngraded:
		return provisionalScore
	default:
		return 0
	}
}

// scoreContent выбирает правило оценивания по виду контента.
// Возвращает shared.ErrUnknownContent для вида, которого движок не знает.
func scoreContent(kind catalog.ContentKind, grade *ContentGrade) (float64, error) {
	switch kind {
	case catalog.ContentKindLecture:
		return scoreLecture(grade), nil
	case catalog.ContentKindAssignment, catalog.ContentKindProject:
		return scoreSubmittable(grade), nil
	case catalog.ContentKindTest:
		// Тесты не участвуют в балле секции, только в завершённости.
		return 0, nil
	default:
		return 0, shared.ErrUnknownContent
	}
}

// ComputeSectionGrade считает балл секции по её контенту и оценкам студента.
// grades индексируются по ContentID; отсутствующая запись означает
// нетронутый контент.
//
// Компонент вида входит в итог только если в секции есть хотя бы одна
// единица этого вида - отсутствующие виды не тянут средний балл к нулю.
// Итог - среднее включённых компонентов, округлённое до 2 знаков.
// Возвращает nil (не 0), если в секции нет оцениваемого контента:
// "нечего оценивать" отличается от "получил ноль".
//
// Результат не зависит от порядка контента в секции.
func ComputeSectionGrade(contents []*catalog.Content, grades map[shared.ContentID]*ContentGrade) (*shared.Percent, error) {
	type component struct {
		sum   float64
		count int
	}
	components := make(map[catalog.ContentKind]*component, 3)

	for _, content := range contents {
		if content == nil || !content.Kind.IsGradable() {
			if content != nil && !content.Kind.IsValid() {
				return nil, shared.ErrUnknownContent
			}
			continue
		}

		score, err := scoreContent(content.Kind, grades[content.ID])
		if err != nil {
			return nil, err
		}

		comp := components[content.Kind]
		if comp == nil {
			comp = &component{}
			components[content.Kind] = comp
		}
		comp.sum += score
		comp.count++
	}

	if len(components) == 0 {
		return nil, nil
	}

	var total float64
	for _, comp := range components {
		total += comp.sum / float64(comp.count)
	}

	grade := shared.Percent(total / float64(len(components))).Clamp().Round2()
	return &grade, nil
}

// NewSectionGrade строит производную оценку секции для апсерта.
func NewSectionGrade(studentID shared.StudentID, sectionID shared.SectionID, courseID shared.CourseID, grade *shared.Percent) *SectionGrade {
	return &SectionGrade{
		StudentID: studentID,
		SectionID: sectionID,
		CourseID:  courseID,
		Grade:     grade,
		UpdatedAt: time.Now().UTC(),
	}
}

// ComputeCourseGrade считает балл курса как среднее ненулевых (non-null)
// оценок секций. Секции без балла исключаются из среднего, а не
// считаются нулём. Возвращает 0, если ни одна секция ещё не оценена.
func ComputeCourseGrade(sectionGrades []*SectionGrade) shared.Percent {
	var sum float64
	var count int

	for _, sg := range sectionGrades {
		if !sg.HasGrade() {
			continue
		}
		sum += sg.Grade.Float64()
		count++
	}

	if count == 0 {
		return 0
	}

	return shared.Percent(sum / float64(count)).Clamp().Round2()
}

// RecomputeCourseGrade считает балл курса напрямую из контента группы и
// оценок за контент, минуя кэш оценок секций. Решения о сертификате
// обязаны пересчитывать балл на лету: кэш секций может отставать, если
// его синхронный пересчёт когда-то не удался.
func RecomputeCourseGrade(contents []*catalog.Content, grades map[shared.ContentID]*ContentGrade) (shared.Percent, error) {
	bySection := make(map[shared.SectionID][]*catalog.Content)
	for _, content := range contents {
		if content == nil {
			continue
		}
		bySection[content.SectionID] = append(bySection[content.SectionID], content)
	}

	var sum float64
	var count int
	for _, sectionContents := range bySection {
		grade, err := ComputeSectionGrade(sectionContents, grades)
		if err != nil {
			return 0, err
		}
		if grade == nil {
			continue
		}
		sum += grade.Float64()
		count++
	}

	if count == 0 {
		return 0, nil
	}

	return shared.Percent(sum / float64(count)).Clamp().Round2(), nil
}

// ══════════════════════════════════════════════════════════════════════════════
// COMPLETION
// Подсчёт завершённости для сертификатов. Сданная непроверенная работа
// считается завершённой для целей завершённости, хотя её балл временный.
// ══════════════════════════════════════════════════════════════════════════════

// CompletionStats - счётчики завершённости по группе.
type CompletionStats struct {
	// TotalItems - всего оцениваемых единиц контента.
	TotalItems int

	// CompletedItems - завершённых единиц.
	CompletedItems int
}

// Completed возвращает true при стопроцентной завершённости.
// Порог строгий: частичного зачёта нет, пустая группа не завершена.
func (s CompletionStats) Completed() bool {
	return s.TotalItems > 0 && s.CompletedItems == s.TotalItems
}

// Percentage возвращает процент завершённости в [0, 100].
func (s CompletionStats) Percentage() float64 {
	if s.TotalItems == 0 {
		return 0
	}
	return float64(s.CompletedItems) * 100 / float64(s.TotalItems)
}

// isCompleted решает завершённость одной единицы контента по её виду.
func isCompleted(kind catalog.ContentKind, grade *ContentGrade) (bool, error) {
	if grade == nil {
		return false, nil
	}
	switch kind {
	case catalog.ContentKindLecture:
		return grade.Status == GradeWatched || grade.Status == GradeGraded, nil
	case catalog.ContentKindAssignment, catalog.ContentKindProject:
		return grade.Status == GradeGraded || grade.Status == GradeSubmittedUngraded, nil
	case catalog.ContentKindTest:
		// Тест завершён, если существует проверенная попытка.
		return grade.Status == GradeGraded, nil
	default:
		return false, shared.ErrUnknownContent
	}
}

// ComputeCompletion считает завершённость по всему контенту группы.
func ComputeCompletion(contents []*catalog.Content, grades map[shared.ContentID]*ContentGrade) (CompletionStats, error) {
	var stats CompletionStats

	for _, content := range contents {
		if content == nil {
			continue
		}
		if !content.Kind.IsValid() {
			return CompletionStats{}, shared.ErrUnknownContent
		}

		stats.TotalItems++

		done, err := isCompleted(content.Kind, grades[content.ID])
		if err != nil {
			return CompletionStats{}, err
		}
		if done {
			stats.CompletedItems++
		}
	}

	return stats, nil
}
