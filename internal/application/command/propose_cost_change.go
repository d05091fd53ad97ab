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
// PROPOSE COST CHANGE COMMAND
// Changes a course's cost. When the new cost still covers the sum of
// paid-section prices the change applies immediately; otherwise a
// pending change with a rescale table is created and nothing moves
// until the instructor confirms it.
// ══════════════════════════════════════════════════════════════════════════════

// ProposeCostChangeCommand contains the data to propose a cost change.
type ProposeCostChangeCommand struct {
	// CourseID is the course whose cost is changing.
	CourseID string

	// Actor is the caller; must be the course owner or an admin.
	Actor shared.Actor

	// NewCostCents is the proposed cost in currency subunits.
	// Negative values are rejected, never clamped.
	NewCostCents int64

	// Currency is the ISO 4217 currency code of the new cost.
	Currency string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c ProposeCostChangeCommand) Validate() error {
	if c.CourseID == "" {
		return errors.New("propose_cost_change: course_id is required")
	}
	if c.Actor.ID == "" {
		return errors.New("propose_cost_change: actor is required")
	}
	if !shared.Currency(c.Currency).IsValid() {
		return fmt.Errorf("propose_cost_change: invalid currency: %q", c.Currency)
	}
	return nil
}

// ProposeCostChangeResult contains the result of proposing a cost change.
type ProposeCostChangeResult struct {
	// Success indicates the proposal was processed.
	Success bool

	// CourseID is the affected course.
	CourseID string

	// Applied indicates the cost was changed immediately.
	Applied bool

	// PendingChange is the created pending change when confirmation is
	// required (nil when Applied is true).
	PendingChange *pricing.PendingCostChange

	// Events contains domain events generated.
	Events []shared.Event

	// ProposedAt is when the proposal was processed.
	ProposedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// ProposeCostChangeHandler handles the ProposeCostChangeCommand.
type ProposeCostChangeHandler struct {
	courseRepo     catalog.CourseRepository
	sectionRepo    catalog.SectionRepository
	pendingRepo    pricing.PendingChangeRepository
	recordRepo     pricing.RecordRepository
	idGen          shared.IDGenerator
	eventPublisher shared.EventPublisher
	log            *logger.Logger
}

// NewProposeCostChangeHandler creates a new ProposeCostChangeHandler.
func NewProposeCostChangeHandler(
	courseRepo catalog.CourseRepository,
	sectionRepo catalog.SectionRepository,
	pendingRepo pricing.PendingChangeRepository,
	recordRepo pricing.RecordRepository,
	idGen shared.IDGenerator,
	eventPublisher shared.EventPublisher,
	log *logger.Logger,
) *ProposeCostChangeHandler {
	return &ProposeCostChangeHandler{
		courseRepo:     courseRepo,
		sectionRepo:    sectionRepo,
		pendingRepo:    pendingRepo,
		recordRepo:     recordRepo,
		idGen:          idGen,
		eventPublisher: eventPublisher,
		log:            log.With(logger.Component("propose_cost_change")),
	}
}

// Handle executes the propose cost change command.
func (h *ProposeCostChangeHandler) Handle(ctx context.Context, cmd ProposeCostChangeCommand) (*ProposeCostChangeResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("propose_cost_change: validation failed: %w", err)
	}

	newCost, err := shared.NewMoney(cmd.NewCostCents, shared.Currency(cmd.Currency))
	if err != nil {
		return nil, fmt.Errorf("propose_cost_change: invalid cost: %w", err)
	}

	course, err := h.courseRepo.GetByID(ctx, shared.CourseID(cmd.CourseID))
	if err != nil {
		return nil, fmt.Errorf("propose_cost_change: failed to get course: %w", err)
	}
	if !cmd.Actor.CanManageCourse(course.OwnerID) {
		return nil, shared.ErrNotCourseOwner
	}

	paidSections, err := h.sectionRepo.GetActivePaidByCourse(ctx, course.ID)
	if err != nil {
		return nil, fmt.Errorf("propose_cost_change: failed to list paid sections: %w", err)
	}

	result := &ProposeCostChangeResult{
		CourseID:   cmd.CourseID,
		ProposedAt: time.Now().UTC(),
		Events:     make([]shared.Event, 0, 1),
	}

	if !pricing.RequiresConfirmation(paidSections, newCost) {
		if err := h.applyImmediately(ctx, course, newCost, cmd.Actor.ID); err != nil {
			return nil, err
		}
		result.Applied = true
	} else {
		change, err := h.createPending(ctx, course, paidSections, newCost, cmd, result)
		if err != nil {
			return nil, err
		}
		result.PendingChange = change
	}

	result.Success = true

	for _, event := range result.Events {
		_ = h.eventPublisher.Publish(event)
	}

	return result, nil
}

// applyImmediately sets the new cost and writes an audit record.
// Section prices are untouched: the new cost still covers them.
func (h *ProposeCostChangeHandler) applyImmediately(ctx context.Context, course *catalog.Course, newCost shared.Money, actorID string) error {
	oldCost := course.Cost
	if err := course.SetCost(newCost); err != nil {
		return fmt.Errorf("propose_cost_change: failed to set cost: %w", err)
	}
	if err := h.courseRepo.Update(ctx, course); err != nil {
		return fmt.Errorf("propose_cost_change: failed to update course: %w", err)
	}

	record := pricing.NewImmediateRecord(h.idGen.NewID(), course.ID, actorID, oldCost, newCost)
	if err := h.recordRepo.Create(ctx, record); err != nil {
		h.log.Error("failed to write price change record",
			logger.CourseID(course.ID.String()),
			logger.Err(err),
		)
	}

	return nil
}

// createPending builds the rescale table and stores the pending change.
// At most one pending change may exist per course.
func (h *ProposeCostChangeHandler) createPending(
	ctx context.Context,
	course *catalog.Course,
	paidSections []*catalog.Section,
	newCost shared.Money,
	cmd ProposeCostChangeCommand,
	result *ProposeCostChangeResult,
) (*pricing.PendingCostChange, error) {
	existing, err := h.pendingRepo.GetPendingByCourse(ctx, course.ID)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("propose_cost_change: failed to check pending changes: %w", err)
	}
	if existing != nil {
		return nil, shared.ErrPendingChangeExists
	}

	change, err := pricing.NewPendingCostChange(h.idGen.NewID(), course, paidSections, newCost, cmd.Actor.ID)
	if err != nil {
		return nil, fmt.Errorf("propose_cost_change: failed to build pending change: %w", err)
	}
	if err := h.pendingRepo.Create(ctx, change); err != nil {
		return nil, fmt.Errorf("propose_cost_change: failed to store pending change: %w", err)
	}

	event := shared.NewCostChangeProposedEvent(
		change.ID,
		course.ID.String(),
		change.OldCost.AmountCents,
		change.NewCost.AmountCents,
		change.ScaleFactor,
	)
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	result.Events = append(result.Events, event)

	return change, nil
}
