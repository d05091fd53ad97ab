package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/edu-hub/course-platform-core/internal/domain/catalog"
	"github.com/edu-hub/course-platform-core/internal/domain/certificate"
	"github.com/edu-hub/course-platform-core/internal/domain/shared"
	"github.com/edu-hub/course-platform-core/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ISSUE CERTIFICATE COMMAND
// Instructor-side approval of a pending certificate request.
// ══════════════════════════════════════════════════════════════════════════════

// IssueCertificateCommand contains the data to issue a pending certificate.
type IssueCertificateCommand struct {
	// CertificateID is the pending certificate being issued.
	CertificateID string

	// Actor is the caller; must be the course owner or an admin.
	Actor shared.Actor

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c IssueCertificateCommand) Validate() error {
	if c.CertificateID == "" {
		return errors.New("issue_certificate: certificate_id is required")
	}
	if c.Actor.ID == "" {
		return errors.New("issue_certificate: actor is required")
	}
	return nil
}

// IssueCertificateResult contains the result of issuing a certificate.
type IssueCertificateResult struct {
	// Success indicates the certificate was issued.
	Success bool

	// Certificate is the issued certificate.
	Certificate *certificate.Certificate

	// IssuedAt is when the certificate was issued.
	IssuedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// IssueCertificateHandler handles the IssueCertificateCommand.
type IssueCertificateHandler struct {
	certificateRepo certificate.Repository
	courseRepo      catalog.CourseRepository
	eventPublisher  shared.EventPublisher
	log             *logger.Logger
}

// NewIssueCertificateHandler creates a new IssueCertificateHandler.
func NewIssueCertificateHandler(
	certificateRepo certificate.Repository,
	courseRepo catalog.CourseRepository,
	eventPublisher shared.EventPublisher,
	log *logger.Logger,
) *IssueCertificateHandler {
	return &IssueCertificateHandler{
		certificateRepo: certificateRepo,
		courseRepo:      courseRepo,
		eventPublisher:  eventPublisher,
		log:             log.With(logger.Component("issue_certificate")),
	}
}

// Handle executes the issue certificate command.
func (h *IssueCertificateHandler) Handle(ctx context.Context, cmd IssueCertificateCommand) (*IssueCertificateResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("issue_certificate: validation failed: %w", err)
	}

	cert, err := h.certificateRepo.GetByID(ctx, cmd.CertificateID)
	if err != nil {
		return nil, fmt.Errorf("issue_certificate: failed to get certificate: %w", err)
	}

	course, err := h.courseRepo.GetByID(ctx, cert.CourseID)
	if err != nil {
		return nil, fmt.Errorf("issue_certificate: failed to get course: %w", err)
	}
	if !cmd.Actor.CanManageCourse(course.OwnerID) {
		return nil, shared.ErrNotCourseOwner
	}

	if err := cert.Issue(); err != nil {
		return nil, fmt.Errorf("issue_certificate: %w", err)
	}
	if err := h.certificateRepo.Update(ctx, cert); err != nil {
		return nil, fmt.Errorf("issue_certificate: failed to update certificate: %w", err)
	}

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
	_ = h.eventPublisher.Publish(event)

	return &IssueCertificateResult{
		Success:     true,
		Certificate: cert,
		IssuedAt:    time.Now().UTC(),
	}, nil
}
