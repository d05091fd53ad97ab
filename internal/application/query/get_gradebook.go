package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/edu-hub/course-platform-core/internal/domain/catalog"
	"github.com/edu-hub/course-platform-core/internal/domain/enrollment"
	"github.com/edu-hub/course-platform-core/internal/domain/grading"
	"github.com/edu-hub/course-platform-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET GRADEBOOK QUERY
// Instructor view of a whole group: per-student section grades, overall
// course grade, and the access state of every section - assembled from
// batch loads, one storage round-trip per collection.
// ══════════════════════════════════════════════════════════════════════════════

// GetGradebookQuery contains the parameters for a group gradebook.
type GetGradebookQuery struct {
	// GroupID is the group whose gradebook is requested.
	GroupID string

	// Actor is the caller; must be the course owner or an admin.
	Actor shared.Actor
}

// Validate validates the query.
func (q GetGradebookQuery) Validate() error {
	if q.GroupID == "" {
		return errors.New("get_gradebook: group_id is required")
	}
	if q.Actor.ID == "" {
		return errors.New("get_gradebook: actor is required")
	}
	return nil
}

// GradebookRowDTO is one student's row in the gradebook.
type GradebookRowDTO struct {
	// StudentID is the student.
	StudentID string `json:"student_id"`

	// EnrollmentStatus is the student's enrollment status.
	EnrollmentStatus string `json:"enrollment_status"`

	// SectionGrades maps section IDs to grades; a nil grade means the
	// section has nothing gradable for this student.
	SectionGrades map[string]*float64 `json:"section_grades"`

	// SectionAccess maps section IDs to access states.
	SectionAccess map[string]string `json:"section_access"`

	// OverallGrade is the mean of non-null section grades.
	OverallGrade float64 `json:"overall_grade"`
}

// GradebookDTO is the assembled gradebook for the external layer.
type GradebookDTO struct {
	// GroupID is the group.
	GroupID string `json:"group_id"`

	// CourseID is the group's course.
	CourseID string `json:"course_id"`

	// Sections lists the group's section IDs in catalog order.
	Sections []string `json:"sections"`

	// Rows holds one entry per enrolled student.
	Rows []GradebookRowDTO `json:"rows"`
}

// GetGradebookHandler handles the GetGradebookQuery.
type GetGradebookHandler struct {
	courseRepo       catalog.CourseRepository
	groupRepo        catalog.GroupRepository
	sectionRepo      catalog.SectionRepository
	enrollmentRepo   enrollment.Repository
	paymentRepo      enrollment.PaymentRepository
	sectionGradeRepo grading.SectionGradeRepository
}

// NewGetGradebookHandler creates a new GetGradebookHandler.
func NewGetGradebookHandler(
	courseRepo catalog.CourseRepository,
	groupRepo catalog.GroupRepository,
	sectionRepo catalog.SectionRepository,
	enrollmentRepo enrollment.Repository,
	paymentRepo enrollment.PaymentRepository,
	sectionGradeRepo grading.SectionGradeRepository,
) *GetGradebookHandler {
	return &GetGradebookHandler{
		courseRepo:       courseRepo,
		groupRepo:        groupRepo,
		sectionRepo:      sectionRepo,
		enrollmentRepo:   enrollmentRepo,
		paymentRepo:      paymentRepo,
		sectionGradeRepo: sectionGradeRepo,
	}
}

// Handle executes the gradebook query.
func (h *GetGradebookHandler) Handle(ctx context.Context, q GetGradebookQuery) (*GradebookDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("get_gradebook: validation failed: %w", err)
	}

	group, err := h.groupRepo.GetByID(ctx, shared.GroupID(q.GroupID))
	if err != nil {
		return nil, fmt.Errorf("get_gradebook: failed to get group: %w", err)
	}

	course, err := h.courseRepo.GetByID(ctx, group.CourseID)
	if err != nil {
		return nil, fmt.Errorf("get_gradebook: failed to get course: %w", err)
	}
	if !q.Actor.CanManageCourse(course.OwnerID) {
		return nil, shared.ErrNotCourseOwner
	}

	sections, err := h.sectionRepo.GetByGroup(ctx, group.ID)
	if err != nil {
		return nil, fmt.Errorf("get_gradebook: failed to list sections: %w", err)
	}

	enrollments, err := h.enrollmentRepo.GetByGroup(ctx, group.ID)
	if err != nil {
		return nil, fmt.Errorf("get_gradebook: failed to list enrollments: %w", err)
	}

	payments, err := h.paymentRepo.GetByCourse(ctx, group.CourseID)
	if err != nil {
		return nil, fmt.Errorf("get_gradebook: failed to list payments: %w", err)
	}

	allGrades, err := h.sectionGradeRepo.GetAllByCourse(ctx, group.CourseID)
	if err != nil {
		return nil, fmt.Errorf("get_gradebook: failed to list section grades: %w", err)
	}

	students := make([]shared.StudentID, 0, len(enrollments))
	enrollmentIndex := make(map[shared.StudentID]*enrollment.Enrollment, len(enrollments))
	for _, enr := range enrollments {
		students = append(students, enr.StudentID)
		enrollmentIndex[enr.StudentID] = enr
	}

	matrix := enrollment.BuildAccessMatrix(students, sections, enrollmentIndex, enrollment.PaymentIndex(payments))

	gradesByStudent := make(map[shared.StudentID][]*grading.SectionGrade)
	for _, sg := range allGrades {
		gradesByStudent[sg.StudentID] = append(gradesByStudent[sg.StudentID], sg)
	}

	dto := &GradebookDTO{
		GroupID:  q.GroupID,
		CourseID: group.CourseID.String(),
		Sections: make([]string, 0, len(sections)),
		Rows:     make([]GradebookRowDTO, 0, len(students)),
	}
	for _, section := range sections {
		dto.Sections = append(dto.Sections, section.ID.String())
	}

	sectionSet := make(map[shared.SectionID]struct{}, len(sections))
	for _, section := range sections {
		sectionSet[section.ID] = struct{}{}
	}

	for _, studentID := range students {
		enr := enrollmentIndex[studentID]
		row := GradebookRowDTO{
			StudentID:        studentID.String(),
			EnrollmentStatus: string(enr.Status),
			SectionGrades:    make(map[string]*float64, len(sections)),
			SectionAccess:    make(map[string]string, len(sections)),
		}

		groupGrades := make([]*grading.SectionGrade, 0, len(sections))
		for _, sg := range gradesByStudent[studentID] {
			if _, ok := sectionSet[sg.SectionID]; !ok {
				continue
			}
			groupGrades = append(groupGrades, sg)
			if sg.HasGrade() {
				value := sg.Grade.Float64()
				row.SectionGrades[sg.SectionID.String()] = &value
			} else {
				row.SectionGrades[sg.SectionID.String()] = nil
			}
		}
		row.OverallGrade = grading.ComputeCourseGrade(groupGrades).Float64()

		for _, section := range sections {
			key := enrollment.AccessKey{StudentID: studentID, SectionID: section.ID}
			row.SectionAccess[section.ID.String()] = string(matrix[key].State)
		}

		dto.Rows = append(dto.Rows, row)
	}

	return dto, nil
}
