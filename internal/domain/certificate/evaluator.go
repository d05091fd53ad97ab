package certificate

import (
	"github.com/edu-hub/course-platform-core/internal/domain/catalog"
	"github.com/edu-hub/course-platform-core/internal/domain/enrollment"
	"github.com/edu-hub/course-platform-core/internal/domain/grading"
	"github.com/edu-hub/course-platform-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ELIGIBILITY EVALUATOR
// Машина состояний права на сертификат. Все состояния терминальны
// для одного вызова: оценка считается заново при каждом обращении,
// ничего не персистится. Порядок ветвей фиксирован - побеждает
// первая применимая.
// ══════════════════════════════════════════════════════════════════════════════

// EligibilityStatus - результат оценки права на сертификат.
type EligibilityStatus string

const (
	// StatusNotEnrolled - студент не записан на курс.
	StatusNotEnrolled EligibilityStatus = "not_enrolled"
	// StatusCertificatesDisabled - сертификаты по курсу отключены.
	StatusCertificatesDisabled EligibilityStatus = "certificates_disabled"
	// StatusGroupNotCompleted - группа пройдена не полностью.
	StatusGroupNotCompleted EligibilityStatus = "group_not_completed"
	// StatusGradeTooLow - группа пройдена, но балл ниже проходного.
	StatusGradeTooLow EligibilityStatus = "group_completed_but_grade_too_low"
	// StatusAutoGrant - сертификат выдаётся автоматически.
	StatusAutoGrant EligibilityStatus = "auto_grant"
	// StatusCanRequest - студент может запросить сертификат у преподавателя.
	StatusCanRequest EligibilityStatus = "can_request"
	// StatusEligible - условия выполнены, выдача на усмотрение преподавателя.
	StatusEligible EligibilityStatus = "group_completed_and_eligible"
)

// Grantable возвращает true для ветвей, завершающихся выдачей или запросом.
func (s EligibilityStatus) Grantable() bool {
	return s == StatusAutoGrant || s == StatusCanRequest
}

// Details - объект аудита, сопровождающий каждый результат оценки
// независимо от ветви.
type Details struct {
	// TotalItems - всего единиц контента в группе.
	TotalItems int

	// CompletedItems - завершённых единиц.
	CompletedItems int

	// CompletionPercentage - процент завершённости в [0, 100].
	CompletionPercentage float64

	// OverallGrade - итоговый балл курса.
	OverallGrade shared.Percent

	// PassingGrade - проходной балл из настроек платформы.
	PassingGrade shared.Percent
}

// Evaluation - полный результат оценки права на сертификат.
type Evaluation struct {
	// Status - итоговое состояние.
	Status EligibilityStatus

	// Details - данные аудита (всегда заполнены).
	Details Details
}

// EvaluationInput - входные данные машины состояний; все сущности
// уже разрешены вызывающим кодом, оценщик чистый.
type EvaluationInput struct {
	// Enrollment - запись студента на курс (nil, если записи нет).
	Enrollment *enrollment.Enrollment

	// Course - курс с настройками сертификации.
	Course *catalog.Course

	// Completion - счётчики завершённости по группе.
	Completion grading.CompletionStats

	// OverallGrade - итоговый балл курса, пересчитанный на момент вызова.
	OverallGrade shared.Percent

	// PassingGrade - проходной балл.
	PassingGrade shared.Percent
}

// Evaluate прогоняет машину состояний права на сертификат.
// Порядок ветвей, побеждает первая применимая:
//  1. нет записи на курс                        -> not_enrolled
//  2. сертификаты отключены                     -> certificates_disabled
//  3. группа не завершена на 100%               -> group_not_completed
//  4. балл ниже проходного                      -> group_completed_but_grade_too_low
//  5. режим automatic                           -> auto_grant
//  6. manual_instructor и выдача открыта        -> can_request
//  7. manual_instructor и выдача закрыта        -> group_completed_and_eligible
//  8. любой другой режим                        -> group_completed_and_eligible (fallback)
func Evaluate(input EvaluationInput) Evaluation {
	details := Details{
		TotalItems:           input.Completion.TotalItems,
		CompletedItems:       input.Completion.CompletedItems,
		CompletionPercentage: input.Completion.Percentage(),
		OverallGrade:         input.OverallGrade,
		PassingGrade:         input.PassingGrade,
	}

	status := evaluateStatus(input)

	return Evaluation{Status: status, Details: details}
}

func evaluateStatus(input EvaluationInput) EligibilityStatus {
	if input.Enrollment == nil {
		return StatusNotEnrolled
	}

	course := input.Course
	if course == nil || !course.CertificatesEnabled() {
		return StatusCertificatesDisabled
	}

	if !input.Completion.Completed() {
		return StatusGroupNotCompleted
	}

	if input.OverallGrade < input.PassingGrade {
		return StatusGradeTooLow
	}

	switch course.CertificateMode {
	case catalog.CertificateModeAutomatic:
		return StatusAutoGrant
	case catalog.CertificateModeManualInstructor:
		if course.InstructorCertificateRelease {
			return StatusCanRequest
		}
		return StatusEligible
	default:
		return StatusEligible
	}
}
