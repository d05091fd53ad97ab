package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/edu-hub/course-platform-core/internal/domain/catalog"
	"github.com/edu-hub/course-platform-core/internal/domain/certificate"
	"github.com/edu-hub/course-platform-core/internal/domain/enrollment"
	"github.com/edu-hub/course-platform-core/internal/domain/grading"
	"github.com/edu-hub/course-platform-core/internal/domain/pricing"
	"github.com/edu-hub/course-platform-core/internal/domain/shared"
	"github.com/edu-hub/course-platform-core/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// DELETE COURSE COMMAND
// Removes a course and everything hanging off it in one transaction,
// children first, so the tree is never left half-deleted: grades before
// content, payments and enrollments before sections, the course last.
// ══════════════════════════════════════════════════════════════════════════════

// DeleteCourseCommand contains the data to delete a course.
type DeleteCourseCommand struct {
	// CourseID is the course being deleted.
	CourseID string

	// Actor is the caller; must be the course owner or an admin.
	Actor shared.Actor

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c DeleteCourseCommand) Validate() error {
	if c.CourseID == "" {
		return errors.New("delete_course: course_id is required")
	}
	if c.Actor.ID == "" {
		return errors.New("delete_course: actor is required")
	}
	return nil
}

// DeleteCourseResult contains counts of deleted child entities.
type DeleteCourseResult struct {
	// Success indicates the deletion committed.
	Success bool

	// CourseID is the deleted course.
	CourseID string

	// GroupsDeleted, SectionsDeleted, ContentsDeleted count deleted
	// catalog children.
	GroupsDeleted   int
	SectionsDeleted int
	ContentsDeleted int

	// EnrollmentsDeleted and PaymentsDeleted count deleted enrollment data.
	EnrollmentsDeleted int
	PaymentsDeleted    int

	// GradesDeleted counts content and section grades combined.
	GradesDeleted int

	// CertificatesDeleted counts deleted certificates.
	CertificatesDeleted int

	// DeletedAt is when the deletion committed.
	DeletedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// DeleteCourseHandler handles the DeleteCourseCommand.
type DeleteCourseHandler struct {
	courseRepo       catalog.CourseRepository
	groupRepo        catalog.GroupRepository
	sectionRepo      catalog.SectionRepository
	contentRepo      catalog.ContentRepository
	enrollmentRepo   enrollment.Repository
	paymentRepo      enrollment.PaymentRepository
	contentGradeRepo grading.ContentGradeRepository
	sectionGradeRepo grading.SectionGradeRepository
	certificateRepo  certificate.Repository
	pendingRepo      pricing.PendingChangeRepository
	recordRepo       pricing.RecordRepository
	txRunner         shared.TxRunner
	eventPublisher   shared.EventPublisher
	log              *logger.Logger
}

// NewDeleteCourseHandler creates a new DeleteCourseHandler.
func NewDeleteCourseHandler(
	courseRepo catalog.CourseRepository,
	groupRepo catalog.GroupRepository,
	sectionRepo catalog.SectionRepository,
	contentRepo catalog.ContentRepository,
	enrollmentRepo enrollment.Repository,
	paymentRepo enrollment.PaymentRepository,
	contentGradeRepo grading.ContentGradeRepository,
	sectionGradeRepo grading.SectionGradeRepository,
	certificateRepo certificate.Repository,
	pendingRepo pricing.PendingChangeRepository,
	recordRepo pricing.RecordRepository,
	txRunner shared.TxRunner,
	eventPublisher shared.EventPublisher,
	log *logger.Logger,
) *DeleteCourseHandler {
	return &DeleteCourseHandler{
		courseRepo:       courseRepo,
		groupRepo:        groupRepo,
		sectionRepo:      sectionRepo,
		contentRepo:      contentRepo,
		enrollmentRepo:   enrollmentRepo,
		paymentRepo:      paymentRepo,
		contentGradeRepo: contentGradeRepo,
		sectionGradeRepo: sectionGradeRepo,
		certificateRepo:  certificateRepo,
		pendingRepo:      pendingRepo,
		recordRepo:       recordRepo,
		txRunner:         txRunner,
		eventPublisher:   eventPublisher,
		log:              log.With(logger.Component("delete_course")),
	}
}

// Handle executes the delete course command.
func (h *DeleteCourseHandler) Handle(ctx context.Context, cmd DeleteCourseCommand) (*DeleteCourseResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("delete_course: validation failed: %w", err)
	}

	courseID := shared.CourseID(cmd.CourseID)

	course, err := h.courseRepo.GetByID(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("delete_course: failed to get course: %w", err)
	}
	if !cmd.Actor.CanManageCourse(course.OwnerID) {
		return nil, shared.ErrNotCourseOwner
	}

	result := &DeleteCourseResult{CourseID: cmd.CourseID}

	err = h.txRunner.WithinTx(ctx, func(ctx context.Context) error {
		// Grades first: they reference content and sections.
		n, err := h.contentGradeRepo.DeleteByCourse(ctx, courseID)
		if err != nil {
			return fmt.Errorf("failed to delete content grades: %w", err)
		}
		result.GradesDeleted += n

		n, err = h.sectionGradeRepo.DeleteByCourse(ctx, courseID)
		if err != nil {
			return fmt.Errorf("failed to delete section grades: %w", err)
		}
		result.GradesDeleted += n

		n, err = h.certificateRepo.DeleteByCourse(ctx, courseID)
		if err != nil {
			return fmt.Errorf("failed to delete certificates: %w", err)
		}
		result.CertificatesDeleted = n

		n, err = h.paymentRepo.DeleteByCourse(ctx, courseID)
		if err != nil {
			return fmt.Errorf("failed to delete payments: %w", err)
		}
		result.PaymentsDeleted = n

		n, err = h.enrollmentRepo.DeleteByCourse(ctx, courseID)
		if err != nil {
			return fmt.Errorf("failed to delete enrollments: %w", err)
		}
		result.EnrollmentsDeleted = n

		if err := h.pendingRepo.DeleteByCourse(ctx, courseID); err != nil {
			return fmt.Errorf("failed to delete pending cost changes: %w", err)
		}
		if err := h.recordRepo.DeleteByCourse(ctx, courseID); err != nil {
			return fmt.Errorf("failed to delete price change records: %w", err)
		}

		n, err = h.contentRepo.DeleteByCourse(ctx, courseID)
		if err != nil {
			return fmt.Errorf("failed to delete contents: %w", err)
		}
		result.ContentsDeleted = n

		n, err = h.sectionRepo.DeleteByCourse(ctx, courseID)
		if err != nil {
			return fmt.Errorf("failed to delete sections: %w", err)
		}
		result.SectionsDeleted = n

		n, err = h.groupRepo.DeleteByCourse(ctx, courseID)
		if err != nil {
			return fmt.Errorf("failed to delete groups: %w", err)
		}
		result.GroupsDeleted = n

		if err := h.courseRepo.Delete(ctx, courseID); err != nil {
			return fmt.Errorf("failed to delete course: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("delete_course: %w", err)
	}

	result.Success = true
	result.DeletedAt = time.Now().UTC()

	event := shared.NewCourseDeletedEvent(cmd.CourseID, result.GroupsDeleted, result.SectionsDeleted, result.ContentsDeleted)
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	_ = h.eventPublisher.Publish(event)

	h.log.Info("course deleted",
		logger.CourseID(cmd.CourseID),
		logger.Int("sections", result.SectionsDeleted),
		logger.Int("contents", result.ContentsDeleted),
		logger.Int("enrollments", result.EnrollmentsDeleted),
	)

	return result, nil
}
