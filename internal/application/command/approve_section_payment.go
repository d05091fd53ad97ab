package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/edu-hub/course-platform-core/internal/domain/catalog"
	"github.com/edu-hub/course-platform-core/internal/domain/enrollment"
	"github.com/edu-hub/course-platform-core/internal/domain/shared"
	"github.com/edu-hub/course-platform-core/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// RESOLVE SECTION PAYMENT COMMAND
// Approves or rejects a pending section payment. Approval grows the
// student's enrolled-section set; access granted this way is never
// revoked automatically, even if the payment record changes later.
// ══════════════════════════════════════════════════════════════════════════════

// PaymentDecision defines the instructor's decision on a payment.
type PaymentDecision string

const (
	// PaymentDecisionApprove - accept the payment and unlock the section.
	PaymentDecisionApprove PaymentDecision = "approve"

	// PaymentDecisionReject - reject the payment; access is unchanged.
	PaymentDecisionReject PaymentDecision = "reject"
)

// ResolveSectionPaymentCommand contains the data to resolve a payment.
type ResolveSectionPaymentCommand struct {
	// PaymentID is the payment being resolved.
	PaymentID string

	// Decision is the instructor's decision.
	Decision PaymentDecision

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c ResolveSectionPaymentCommand) Validate() error {
	if c.PaymentID == "" {
		return errors.New("resolve_section_payment: payment_id is required")
	}

	switch c.Decision {
	case PaymentDecisionApprove, PaymentDecisionReject:
		return nil
	default:
		return fmt.Errorf("resolve_section_payment: unknown decision: %s", c.Decision)
	}
}

// ResolveSectionPaymentResult contains the result of resolving a payment.
type ResolveSectionPaymentResult struct {
	// Success indicates the payment was resolved.
	Success bool

	// PaymentID is the resolved payment.
	PaymentID string

	// StudentID is the paying student.
	StudentID string

	// SectionID is the section paid for.
	SectionID string

	// SectionUnlocked indicates the section was added to the student's
	// enrolled sections (false for rejections and repeat approvals).
	SectionUnlocked bool

	// Events contains domain events generated.
	Events []shared.Event

	// ResolvedAt is when the decision was applied.
	ResolvedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// ResolveSectionPaymentHandler handles the ResolveSectionPaymentCommand.
type ResolveSectionPaymentHandler struct {
	paymentRepo    enrollment.PaymentRepository
	enrollmentRepo enrollment.Repository
	sectionRepo    catalog.SectionRepository
	idGen          shared.IDGenerator
	eventPublisher shared.EventPublisher
	log            *logger.Logger
}

// NewResolveSectionPaymentHandler creates a new ResolveSectionPaymentHandler.
func NewResolveSectionPaymentHandler(
	paymentRepo enrollment.PaymentRepository,
	enrollmentRepo enrollment.Repository,
	sectionRepo catalog.SectionRepository,
	idGen shared.IDGenerator,
	eventPublisher shared.EventPublisher,
	log *logger.Logger,
) *ResolveSectionPaymentHandler {
	return &ResolveSectionPaymentHandler{
		paymentRepo:    paymentRepo,
		enrollmentRepo: enrollmentRepo,
		sectionRepo:    sectionRepo,
		idGen:          idGen,
		eventPublisher: eventPublisher,
		log:            log.With(logger.Component("resolve_section_payment")),
	}
}

// Handle executes the resolve section payment command.
func (h *ResolveSectionPaymentHandler) Handle(ctx context.Context, cmd ResolveSectionPaymentCommand) (*ResolveSectionPaymentResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("resolve_section_payment: validation failed: %w", err)
	}

	payment, err := h.paymentRepo.GetByID(ctx, cmd.PaymentID)
	if err != nil {
		return nil, fmt.Errorf("resolve_section_payment: failed to get payment: %w", err)
	}

	result := &ResolveSectionPaymentResult{
		PaymentID:  payment.ID,
		StudentID:  payment.StudentID.String(),
		SectionID:  payment.SectionID.String(),
		ResolvedAt: time.Now().UTC(),
		Events:     make([]shared.Event, 0, 2),
	}

	switch cmd.Decision {
	case PaymentDecisionApprove:
		if err := h.approve(ctx, payment, cmd, result); err != nil {
			return nil, err
		}
	case PaymentDecisionReject:
		if err := payment.Reject(); err != nil {
			return nil, fmt.Errorf("resolve_section_payment: failed to reject: %w", err)
		}
		if err := h.paymentRepo.Update(ctx, payment); err != nil {
			return nil, fmt.Errorf("resolve_section_payment: failed to update payment: %w", err)
		}
	}

	result.Success = true

	for _, event := range result.Events {
		_ = h.eventPublisher.Publish(event)
	}

	return result, nil
}

// approve marks the payment approved and unlocks the paid section.
func (h *ResolveSectionPaymentHandler) approve(
	ctx context.Context,
	payment *enrollment.SectionPayment,
	cmd ResolveSectionPaymentCommand,
	result *ResolveSectionPaymentResult,
) error {
	if err := payment.Approve(); err != nil {
		return fmt.Errorf("resolve_section_payment: failed to approve: %w", err)
	}
	if err := h.paymentRepo.Update(ctx, payment); err != nil {
		return fmt.Errorf("resolve_section_payment: failed to update payment: %w", err)
	}

	enr, err := h.enrollmentRepo.GetByStudentAndCourse(ctx, payment.StudentID, payment.CourseID)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			return fmt.Errorf("resolve_section_payment: failed to get enrollment: %w", err)
		}

		// A payment can arrive before the enrollment request is filed.
		section, serr := h.sectionRepo.GetByID(ctx, payment.SectionID)
		if serr != nil {
			return fmt.Errorf("resolve_section_payment: failed to get section: %w", serr)
		}
		enr, err = enrollment.NewEnrollment(h.idGen.NewID(), payment.StudentID, payment.CourseID, section.GroupID)
		if err != nil {
			return fmt.Errorf("resolve_section_payment: failed to create enrollment: %w", err)
		}
		if err := h.enrollmentRepo.Create(ctx, enr); err != nil {
			return fmt.Errorf("resolve_section_payment: failed to create enrollment: %w", err)
		}
	}

	grew := enr.UnlockSection(payment.SectionID)
	if grew {
		if err := h.enrollmentRepo.Update(ctx, enr); err != nil {
			return fmt.Errorf("resolve_section_payment: failed to update enrollment: %w", err)
		}
	}
	result.SectionUnlocked = grew

	approved := shared.NewPaymentApprovedEvent(payment.ID, payment.StudentID.String(), payment.SectionID.String(), payment.Amount.AmountCents)
	if cmd.CorrelationID != "" {
		approved.BaseEvent = approved.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	result.Events = append(result.Events, approved)

	if grew {
		unlocked := shared.NewSectionUnlockedEvent(
			payment.StudentID.String(),
			payment.CourseID.String(),
			payment.SectionID.String(),
			"payment",
		)
		if cmd.CorrelationID != "" {
			unlocked.BaseEvent = unlocked.BaseEvent.WithCorrelationID(cmd.CorrelationID)
		}
		result.Events = append(result.Events, unlocked)
	}

	return nil
}
