package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/edu-hub/course-platform-core/internal/domain/catalog"
	"github.com/edu-hub/course-platform-core/internal/domain/certificate"
	"github.com/edu-hub/course-platform-core/internal/domain/enrollment"
	"github.com/edu-hub/course-platform-core/internal/domain/grading"
	"github.com/edu-hub/course-platform-core/internal/domain/settings"
	"github.com/edu-hub/course-platform-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// EVALUATE CERTIFICATE QUERY
// Read-only eligibility check. Completion and the overall grade are
// recomputed from content-level data on every call - stale cached
// values must never decide a certificate.
// ══════════════════════════════════════════════════════════════════════════════

// EvaluateCertificateQuery contains the parameters for an eligibility check.
type EvaluateCertificateQuery struct {
	// StudentID is the student.
	StudentID string

	// CourseID is the course.
	CourseID string
}

// Validate validates the query.
func (q EvaluateCertificateQuery) Validate() error {
	if q.StudentID == "" {
		return errors.New("evaluate_certificate: student_id is required")
	}
	if q.CourseID == "" {
		return errors.New("evaluate_certificate: course_id is required")
	}
	return nil
}

// CertificateEvaluationDTO is the evaluation result for the external layer.
type CertificateEvaluationDTO struct {
	// StudentID is the student.
	StudentID string `json:"student_id"`

	// CourseID is the course.
	CourseID string `json:"course_id"`

	// Status is the terminal eligibility state.
	Status string `json:"status"`

	// Grantable indicates the state ends in a grant or a request.
	Grantable bool `json:"grantable"`

	// TotalItems and CompletedItems are the completion counters.
	TotalItems     int `json:"total_items"`
	CompletedItems int `json:"completed_items"`

	// CompletionPercentage is completion in [0, 100].
	CompletionPercentage float64 `json:"completion_percentage"`

	// OverallGrade is the recomputed course grade.
	OverallGrade float64 `json:"overall_grade"`

	// PassingGrade is the platform passing grade used.
	PassingGrade float64 `json:"passing_grade"`
}

// EvaluateCertificateHandler handles the EvaluateCertificateQuery.
type EvaluateCertificateHandler struct {
	enrollmentRepo   enrollment.Repository
	courseRepo       catalog.CourseRepository
	contentRepo      catalog.ContentRepository
	contentGradeRepo grading.ContentGradeRepository
	settingsCache    settings.Cache
}

// NewEvaluateCertificateHandler creates a new EvaluateCertificateHandler.
func NewEvaluateCertificateHandler(
	enrollmentRepo enrollment.Repository,
	courseRepo catalog.CourseRepository,
	contentRepo catalog.ContentRepository,
	contentGradeRepo grading.ContentGradeRepository,
	settingsCache settings.Cache,
) *EvaluateCertificateHandler {
	return &EvaluateCertificateHandler{
		enrollmentRepo:   enrollmentRepo,
		courseRepo:       courseRepo,
		contentRepo:      contentRepo,
		contentGradeRepo: contentGradeRepo,
		settingsCache:    settingsCache,
	}
}

// Handle executes the eligibility evaluation.
func (h *EvaluateCertificateHandler) Handle(ctx context.Context, q EvaluateCertificateQuery) (*CertificateEvaluationDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("evaluate_certificate: validation failed: %w", err)
	}

	course, err := h.courseRepo.GetByID(ctx, shared.CourseID(q.CourseID))
	if err != nil {
		return nil, fmt.Errorf("evaluate_certificate: failed to get course: %w", err)
	}

	enr, err := h.enrollmentRepo.GetByStudentAndCourse(ctx, shared.StudentID(q.StudentID), shared.CourseID(q.CourseID))
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, fmt.Errorf("evaluate_certificate: failed to get enrollment: %w", err)
		}
		enr = nil
	}

	input := certificate.EvaluationInput{
		Enrollment:   enr,
		Course:       course,
		PassingGrade: settings.DefaultPassingGrade,
	}

	if platform, err := h.settingsCache.Get(ctx); err == nil {
		input.PassingGrade = platform.PassingGrade
	}

	if enr != nil {
		contents, err := h.contentRepo.GetByGroup(ctx, enr.GroupID)
		if err != nil {
			return nil, fmt.Errorf("evaluate_certificate: failed to list group contents: %w", err)
		}
		grades, err := h.contentGradeRepo.GetByGroup(ctx, enr.StudentID, enr.GroupID)
		if err != nil {
			return nil, fmt.Errorf("evaluate_certificate: failed to list content grades: %w", err)
		}
		completion, err := grading.ComputeCompletion(contents, grades)
		if err != nil {
			return nil, fmt.Errorf("evaluate_certificate: failed to compute completion: %w", err)
		}
		input.Completion = completion

		// Балл пересчитывается из тех же данных, что и завершённость:
		// кэш оценок секций здесь не участвует.
		overall, err := grading.RecomputeCourseGrade(contents, grades)
		if err != nil {
			return nil, fmt.Errorf("evaluate_certificate: failed to recompute course grade: %w", err)
		}
		input.OverallGrade = overall
	}

	eval := certificate.Evaluate(input)

	return &CertificateEvaluationDTO{
		StudentID:            q.StudentID,
		CourseID:             q.CourseID,
		Status:               string(eval.Status),
		Grantable:            eval.Status.Grantable(),
		TotalItems:           eval.Details.TotalItems,
		CompletedItems:       eval.Details.CompletedItems,
		CompletionPercentage: eval.Details.CompletionPercentage,
		OverallGrade:         eval.Details.OverallGrade.Float64(),
		PassingGrade:         eval.Details.PassingGrade.Float64(),
	}, nil
}
