package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/edu-hub/course-platform-core/internal/domain/enrollment"
	"github.com/edu-hub/course-platform-core/internal/domain/grading"
	"github.com/edu-hub/course-platform-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET COURSE GRADE QUERY
// Computes a student's overall course grade on demand from the stored
// section grades, optionally restricted to one group. The course grade
// is never persisted: section grades are the cached layer, the course
// mean is cheap to fold.
// ══════════════════════════════════════════════════════════════════════════════

// GetCourseGradeQuery contains the parameters for a course grade lookup.
type GetCourseGradeQuery struct {
	// StudentID is the student.
	StudentID string

	// CourseID is the course.
	CourseID string

	// GroupID optionally restricts the aggregation to one group, so a
	// course can host several independently graded groups. Empty means
	// the whole course.
	GroupID string
}

// Validate validates the query.
func (q GetCourseGradeQuery) Validate() error {
	if q.StudentID == "" {
		return errors.New("get_course_grade: student_id is required")
	}
	if q.CourseID == "" {
		return errors.New("get_course_grade: course_id is required")
	}
	return nil
}

// SectionGradeDTO is one section's grade for the external layer.
type SectionGradeDTO struct {
	// SectionID is the section.
	SectionID string `json:"section_id"`

	// Grade is the section grade; nil means the section has nothing
	// gradable, which is distinct from a zero grade.
	Grade *float64 `json:"grade"`
}

// CourseGradeDTO is the computed course grade for the external layer.
type CourseGradeDTO struct {
	// StudentID is the student.
	StudentID string `json:"student_id"`

	// CourseID is the course.
	CourseID string `json:"course_id"`

	// GroupID is the group the aggregation was restricted to, if any.
	GroupID string `json:"group_id,omitempty"`

	// OverallGrade is the mean of non-null section grades, 0 when the
	// student has no graded sections.
	OverallGrade float64 `json:"overall_grade"`

	// GradedSections counts sections contributing to the mean.
	GradedSections int `json:"graded_sections"`

	// Sections lists every stored section grade.
	Sections []SectionGradeDTO `json:"sections"`
}

// GetCourseGradeHandler handles the GetCourseGradeQuery.
type GetCourseGradeHandler struct {
	enrollmentRepo   enrollment.Repository
	sectionGradeRepo grading.SectionGradeRepository
}

// NewGetCourseGradeHandler creates a new GetCourseGradeHandler.
func NewGetCourseGradeHandler(
	enrollmentRepo enrollment.Repository,
	sectionGradeRepo grading.SectionGradeRepository,
) *GetCourseGradeHandler {
	return &GetCourseGradeHandler{
		enrollmentRepo:   enrollmentRepo,
		sectionGradeRepo: sectionGradeRepo,
	}
}

// Handle executes the course grade query.
func (h *GetCourseGradeHandler) Handle(ctx context.Context, q GetCourseGradeQuery) (*CourseGradeDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("get_course_grade: validation failed: %w", err)
	}

	// The enrollment lookup doubles as an existence check.
	if _, err := h.enrollmentRepo.GetByStudentAndCourse(ctx, shared.StudentID(q.StudentID), shared.CourseID(q.CourseID)); err != nil {
		return nil, fmt.Errorf("get_course_grade: failed to get enrollment: %w", err)
	}

	var (
		sectionGrades []*grading.SectionGrade
		err           error
	)
	if q.GroupID != "" {
		sectionGrades, err = h.sectionGradeRepo.GetByGroup(ctx, shared.StudentID(q.StudentID), shared.GroupID(q.GroupID))
	} else {
		sectionGrades, err = h.sectionGradeRepo.GetByCourse(ctx, shared.StudentID(q.StudentID), shared.CourseID(q.CourseID))
	}
	if err != nil {
		return nil, fmt.Errorf("get_course_grade: failed to list section grades: %w", err)
	}

	dto := &CourseGradeDTO{
		StudentID:    q.StudentID,
		CourseID:     q.CourseID,
		GroupID:      q.GroupID,
		OverallGrade: grading.ComputeCourseGrade(sectionGrades).Float64(),
		Sections:     make([]SectionGradeDTO, 0, len(sectionGrades)),
	}

	for _, sg := range sectionGrades {
		row := SectionGradeDTO{SectionID: sg.SectionID.String()}
		if sg.HasGrade() {
			value := sg.Grade.Float64()
			row.Grade = &value
			dto.GradedSections++
		}
		dto.Sections = append(dto.Sections, row)
	}

	return dto, nil
}
