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
	"github.com/edu-hub/course-platform-core/internal/domain/settings"
	"github.com/edu-hub/course-platform-core/internal/domain/shared"
	"github.com/edu-hub/course-platform-core/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST CERTIFICATE COMMAND
// Evaluates eligibility from freshly recomputed completion and grades -
// never from cached values - and either issues the certificate (automatic
// mode) or files a pending request for the instructor.
// ══════════════════════════════════════════════════════════════════════════════

// RequestCertificateCommand contains the data to request a certificate.
type RequestCertificateCommand struct {
	// StudentID is the requesting student.
	StudentID string

	// CourseID is the course the certificate is for.
	CourseID string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c RequestCertificateCommand) Validate() error {
	if c.StudentID == "" {
		return errors.New("request_certificate: student_id is required")
	}
	if c.CourseID == "" {
		return errors.New("request_certificate: course_id is required")
	}
	return nil
}

// RequestCertificateResult contains the result of a certificate request.
type RequestCertificateResult struct {
	// Success indicates the request was processed.
	Success bool

	// Evaluation is the eligibility evaluation with audit details.
	Evaluation certificate.Evaluation

	// Certificate is the created certificate (issued or pending);
	// nil when the student is not eligible.
	Certificate *certificate.Certificate

	// Issued indicates the certificate was granted immediately.
	Issued bool

	// Events contains domain events generated.
	Events []shared.Event

	// RequestedAt is when the request was processed.
	RequestedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// RequestCertificateHandler handles the RequestCertificateCommand.
type RequestCertificateHandler struct {
	enrollmentRepo   enrollment.Repository
	courseRepo       catalog.CourseRepository
	contentRepo      catalog.ContentRepository
	contentGradeRepo grading.ContentGradeRepository
	certificateRepo  certificate.Repository
	settingsCache    settings.Cache
	idGen            shared.IDGenerator
	eventPublisher   shared.EventPublisher
	log              *logger.Logger
}

// NewRequestCertificateHandler creates a new RequestCertificateHandler.
func NewRequestCertificateHandler(
	enrollmentRepo enrollment.Repository,
	courseRepo catalog.CourseRepository,
	contentRepo catalog.ContentRepository,
	contentGradeRepo grading.ContentGradeRepository,
	certificateRepo certificate.Repository,
	settingsCache settings.Cache,
	idGen shared.IDGenerator,
	eventPublisher shared.EventPublisher,
	log *logger.Logger,
) *RequestCertificateHandler {
	return &RequestCertificateHandler{
		enrollmentRepo:   enrollmentRepo,
		courseRepo:       courseRepo,
		contentRepo:      contentRepo,
		contentGradeRepo: contentGradeRepo,
		certificateRepo:  certificateRepo,
		settingsCache:    settingsCache,
		idGen:            idGen,
		eventPublisher:   eventPublisher,
		log:              log.With(logger.Component("request_certificate")),
	}
}

// Handle executes the request certificate command.
func (h *RequestCertificateHandler) Handle(ctx context.Context, cmd RequestCertificateCommand) (*RequestCertificateResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("request_certificate: validation failed: %w", err)
	}

	existing, err := h.certificateRepo.GetByStudentAndCourse(ctx, shared.StudentID(cmd.StudentID), shared.CourseID(cmd.CourseID))
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("request_certificate: failed to check existing certificate: %w", err)
	}
	if existing != nil {
		if existing.Status == certificate.CertPending {
			return nil, shared.ErrCertificatePending
		}
		return nil, shared.WrapError("certificate", "Request", shared.ErrAlreadyExists, "certificate already issued", nil)
	}

	eval, enr, err := h.evaluateFresh(ctx, cmd)
	if err != nil {
		return nil, err
	}

	result := &RequestCertificateResult{
		Evaluation:  eval,
		RequestedAt: time.Now().UTC(),
		Events:      make([]shared.Event, 0, 1),
	}

	if !eval.Status.Grantable() {
		return nil, shared.WrapError("certificate", "Request", shared.ErrInvalidState,
			fmt.Sprintf("student is not eligible: %s", eval.Status), nil)
	}

	status := certificate.CertPending
	if eval.Status == certificate.StatusAutoGrant {
		status = certificate.CertIssued
	}

	cert, err := certificate.NewCertificate(
		h.idGen.NewID(),
		enr.StudentID,
		enr.CourseID,
		enr.GroupID,
		status,
		eval.Details.OverallGrade,
	)
	if err != nil {
		return nil, fmt.Errorf("request_certificate: failed to create certificate: %w", err)
	}
	if err := h.certificateRepo.Create(ctx, cert); err != nil {
		return nil, fmt.Errorf("request_certificate: failed to store certificate: %w", err)
	}

	result.Success = true
	result.Certificate = cert

	if status == certificate.CertIssued {
		result.Issued = true
		event := shared.NewCertificateGrantedEvent(
			cert.ID,
			cert.StudentID.String(),
			cert.CourseID.String(),
			cert.GroupID.String(),
			cert.Grade.Float64(),
		)
		if cmd.CorrelationID != "" {
			event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
		}
		result.Events = append(result.Events, event)
	}

	for _, event := range result.Events {
		_ = h.eventPublisher.Publish(event)
	}

	return result, nil
}

// evaluateFresh recomputes completion and course grade from content-level
// data and runs the eligibility state machine.
func (h *RequestCertificateHandler) evaluateFresh(ctx context.Context, cmd RequestCertificateCommand) (certificate.Evaluation, *enrollment.Enrollment, error) {
	var zero certificate.Evaluation

	course, err := h.courseRepo.GetByID(ctx, shared.CourseID(cmd.CourseID))
	if err != nil {
		return zero, nil, fmt.Errorf("request_certificate: failed to get course: %w", err)
	}

	enr, err := h.enrollmentRepo.GetByStudentAndCourse(ctx, shared.StudentID(cmd.StudentID), shared.CourseID(cmd.CourseID))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			enr = nil
		} else {
			return zero, nil, fmt.Errorf("request_certificate: failed to get enrollment: %w", err)
		}
	}

	input := certificate.EvaluationInput{
		Enrollment:   enr,
		Course:       course,
		PassingGrade: settings.DefaultPassingGrade,
	}

	platform, err := h.settingsCache.Get(ctx)
	if err != nil {
		h.log.Warn("failed to load platform settings, using default passing grade", logger.Err(err))
	} else {
		input.PassingGrade = platform.PassingGrade
	}

	if enr != nil {
		contents, err := h.contentRepo.GetByGroup(ctx, enr.GroupID)
		if err != nil {
			return zero, nil, fmt.Errorf("request_certificate: failed to list group contents: %w", err)
		}
		grades, err := h.contentGradeRepo.GetByGroup(ctx, enr.StudentID, enr.GroupID)
		if err != nil {
			return zero, nil, fmt.Errorf("request_certificate: failed to list content grades: %w", err)
		}
		completion, err := grading.ComputeCompletion(contents, grades)
		if err != nil {
			return zero, nil, fmt.Errorf("request_certificate: failed to compute completion: %w", err)
		}
		input.Completion = completion

		// Балл пересчитывается из тех же данных, что и завершённость:
		// кэш оценок секций здесь не участвует.
		overall, err := grading.RecomputeCourseGrade(contents, grades)
		if err != nil {
			return zero, nil, fmt.Errorf("request_certificate: failed to recompute course grade: %w", err)
		}
		input.OverallGrade = overall
	}

	return certificate.Evaluate(input), enr, nil
}
