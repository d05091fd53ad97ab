package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/edu-hub/course-platform-core/internal/domain/catalog"
	"github.com/edu-hub/course-platform-core/internal/domain/pricing"
	"github.com/edu-hub/course-platform-core/internal/domain/shared"
	"github.com/edu-hub/course-platform-core/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// CANCEL COST CHANGE COMMAND
// Cancels a pending cost change. The course cost and every section price
// stay exactly as they were; only the change's status moves.
// ══════════════════════════════════════════════════════════════════════════════

// Cancellation reasons.
const (
	// CancelReasonManual - the instructor withdrew the proposal.
	CancelReasonManual = "manual"

	// CancelReasonExpired - the advisory expiry passed and the reaper
	// job cancelled the proposal.
	CancelReasonExpired = "expired"
)

// CancelCostChangeCommand contains the data to cancel a pending change.
type CancelCostChangeCommand struct {
	// PendingChangeID is the change being cancelled.
	PendingChangeID string

	// Actor is the caller; must be the course owner or an admin.
	// Left empty for system-initiated expiry.
	Actor shared.Actor

	// Reason is "manual" or "expired".
	Reason string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c CancelCostChangeCommand) Validate() error {
	if c.PendingChangeID == "" {
		return errors.New("cancel_cost_change: pending_change_id is required")
	}

	switch c.Reason {
	case CancelReasonManual:
		if c.Actor.ID == "" {
			return errors.New("cancel_cost_change: actor is required for manual cancellation")
		}
	case CancelReasonExpired:
		// System-initiated, no actor.
	default:
		return fmt.Errorf("cancel_cost_change: unknown reason: %s", c.Reason)
	}

	return nil
}

// CancelCostChangeResult contains the result of cancelling a change.
type CancelCostChangeResult struct {
	// Success indicates the change was cancelled.
	Success bool

	// PendingChangeID is the cancelled change.
	PendingChangeID string

	// CourseID is the course whose change was cancelled.
	CourseID string

	// Reason is why the change was cancelled.
	Reason string

	// CancelledAt is when the cancellation was applied.
	CancelledAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// CancelCostChangeHandler handles the CancelCostChangeCommand.
type CancelCostChangeHandler struct {
	courseRepo     catalog.CourseRepository
	pendingRepo    pricing.PendingChangeRepository
	eventPublisher shared.EventPublisher
	log            *logger.Logger
}

// NewCancelCostChangeHandler creates a new CancelCostChangeHandler.
func NewCancelCostChangeHandler(
	courseRepo catalog.CourseRepository,
	pendingRepo pricing.PendingChangeRepository,
	eventPublisher shared.EventPublisher,
	log *logger.Logger,
) *CancelCostChangeHandler {
	return &CancelCostChangeHandler{
		courseRepo:     courseRepo,
		pendingRepo:    pendingRepo,
		eventPublisher: eventPublisher,
		log:            log.With(logger.Component("cancel_cost_change")),
	}
}

// Handle executes the cancel cost change command.
func (h *CancelCostChangeHandler) Handle(ctx context.Context, cmd CancelCostChangeCommand) (*CancelCostChangeResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("cancel_cost_change: validation failed: %w", err)
	}

	change, err := h.pendingRepo.GetByID(ctx, cmd.PendingChangeID)
	if err != nil {
		return nil, fmt.Errorf("cancel_cost_change: failed to get pending change: %w", err)
	}

	if cmd.Reason == CancelReasonManual {
		course, err := h.courseRepo.GetByID(ctx, change.CourseID)
		if err != nil {
			return nil, fmt.Errorf("cancel_cost_change: failed to get course: %w", err)
		}
		if !cmd.Actor.CanManageCourse(course.OwnerID) {
			return nil, shared.ErrNotCourseOwner
		}
	}

	if err := change.Cancel(); err != nil {
		return nil, fmt.Errorf("cancel_cost_change: %w", err)
	}
	if err := h.pendingRepo.Update(ctx, change); err != nil {
		return nil, fmt.Errorf("cancel_cost_change: failed to update pending change: %w", err)
	}

	event := shared.NewCostChangeCancelledEvent(change.ID, change.CourseID.String(), cmd.Reason)
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	_ = h.eventPublisher.Publish(event)

	return &CancelCostChangeResult{
		Success:         true,
		PendingChangeID: change.ID,
		CourseID:        change.CourseID.String(),
		Reason:          cmd.Reason,
		CancelledAt:     time.Now().UTC(),
	}, nil
}
