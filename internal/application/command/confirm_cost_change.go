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
// CONFIRM COST CHANGE COMMAND
// Applies a pending cost change atomically: course cost, every affected
// section price from the stored rescale table, the audit record, and the
// status transition commit together or not at all. On failure the change
// stays pending and the confirm can simply be retried.
// ══════════════════════════════════════════════════════════════════════════════

// ConfirmCostChangeCommand contains the data to confirm a pending change.
type ConfirmCostChangeCommand struct {
	// PendingChangeID is the change being confirmed.
	PendingChangeID string

	// Actor is the caller; must be the course owner or an admin.
	Actor shared.Actor

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c ConfirmCostChangeCommand) Validate() error {
	if c.PendingChangeID == "" {
		return errors.New("confirm_cost_change: pending_change_id is required")
	}
	if c.Actor.ID == "" {
		return errors.New("confirm_cost_change: actor is required")
	}
	return nil
}

// ConfirmCostChangeResult contains the result of confirming a change.
type ConfirmCostChangeResult struct {
	// Success indicates the rescale was applied.
	Success bool

	// PendingChangeID is the confirmed change.
	PendingChangeID string

	// CourseID is the affected course.
	CourseID string

	// NewCostCents is the applied course cost.
	NewCostCents int64

	// SectionsRescaled is how many section prices were rewritten.
	SectionsRescaled int

	// Events contains domain events generated.
	Events []shared.Event

	// ConfirmedAt is when the rescale was applied.
	ConfirmedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// ConfirmCostChangeHandler handles the ConfirmCostChangeCommand.
type ConfirmCostChangeHandler struct {
	courseRepo     catalog.CourseRepository
	sectionRepo    catalog.SectionRepository
	pendingRepo    pricing.PendingChangeRepository
	recordRepo     pricing.RecordRepository
	txRunner       shared.TxRunner
	idGen          shared.IDGenerator
	eventPublisher shared.EventPublisher
	log            *logger.Logger
}

// NewConfirmCostChangeHandler creates a new ConfirmCostChangeHandler.
func NewConfirmCostChangeHandler(
	courseRepo catalog.CourseRepository,
	sectionRepo catalog.SectionRepository,
	pendingRepo pricing.PendingChangeRepository,
	recordRepo pricing.RecordRepository,
	txRunner shared.TxRunner,
	idGen shared.IDGenerator,
	eventPublisher shared.EventPublisher,
	log *logger.Logger,
) *ConfirmCostChangeHandler {
	return &ConfirmCostChangeHandler{
		courseRepo:     courseRepo,
		sectionRepo:    sectionRepo,
		pendingRepo:    pendingRepo,
		recordRepo:     recordRepo,
		txRunner:       txRunner,
		idGen:          idGen,
		eventPublisher: eventPublisher,
		log:            log.With(logger.Component("confirm_cost_change")),
	}
}

// Handle executes the confirm cost change command.
func (h *ConfirmCostChangeHandler) Handle(ctx context.Context, cmd ConfirmCostChangeCommand) (*ConfirmCostChangeResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("confirm_cost_change: validation failed: %w", err)
	}

	change, err := h.pendingRepo.GetByID(ctx, cmd.PendingChangeID)
	if err != nil {
		return nil, fmt.Errorf("confirm_cost_change: failed to get pending change: %w", err)
	}

	course, err := h.courseRepo.GetByID(ctx, change.CourseID)
	if err != nil {
		return nil, fmt.Errorf("confirm_cost_change: failed to get course: %w", err)
	}
	if !cmd.Actor.CanManageCourse(course.OwnerID) {
		return nil, shared.ErrNotCourseOwner
	}

	if err := change.ApproveAuto(); err != nil {
		return nil, fmt.Errorf("confirm_cost_change: %w", err)
	}

	err = h.txRunner.WithinTx(ctx, func(ctx context.Context) error {
		if err := course.SetCost(change.NewCost); err != nil {
			return fmt.Errorf("failed to set course cost: %w", err)
		}
		if err := h.courseRepo.Update(ctx, course); err != nil {
			return fmt.Errorf("failed to update course: %w", err)
		}

		// Sections removed since the proposal are skipped; their table
		// rows stay in the audit record.
		for _, row := range change.AffectedSections {
			section, err := h.sectionRepo.GetByID(ctx, row.SectionID)
			if err != nil {
				if errors.Is(err, shared.ErrNotFound) {
					continue
				}
				return fmt.Errorf("failed to get section %s: %w", row.SectionID, err)
			}
			if err := section.SetPrice(row.NewPrice); err != nil {
				return fmt.Errorf("failed to set price for section %s: %w", row.SectionID, err)
			}
			if err := h.sectionRepo.Update(ctx, section); err != nil {
				return fmt.Errorf("failed to update section %s: %w", row.SectionID, err)
			}
		}

		record := pricing.NewRescaleRecord(h.idGen.NewID(), change, cmd.Actor.ID)
		if err := h.recordRepo.Create(ctx, record); err != nil {
			return fmt.Errorf("failed to write price change record: %w", err)
		}

		if err := h.pendingRepo.Update(ctx, change); err != nil {
			return fmt.Errorf("failed to update pending change: %w", err)
		}
		return nil
	})
	if err != nil {
		// The transaction rolled back; the change stays pending in
		// storage and the confirm can be retried.
		return nil, fmt.Errorf("confirm_cost_change: %w", err)
	}

	result := &ConfirmCostChangeResult{
		Success:          true,
		PendingChangeID:  change.ID,
		CourseID:         change.CourseID.String(),
		NewCostCents:     change.NewCost.AmountCents,
		SectionsRescaled: len(change.AffectedSections),
		ConfirmedAt:      time.Now().UTC(),
	}

	event := shared.NewCostChangeConfirmedEvent(change.ID, change.CourseID.String(), change.NewCost.AmountCents, len(change.AffectedSections))
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	result.Events = append(result.Events, event)
	_ = h.eventPublisher.Publish(event)

	return result, nil
}
