package eventhandler

import (
	"context"
	"fmt"

	"github.com/edu-hub/course-platform-core/internal/domain/enrollment"
	"github.com/edu-hub/course-platform-core/internal/domain/shared"
	"github.com/edu-hub/course-platform-core/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ON COST CHANGE CONFIRMED
// Tells enrolled students that section prices moved. Access already
// granted is untouched by a rescale, so this is information only.
// ══════════════════════════════════════════════════════════════════════════════

// OnCostChangeConfirmed handles CostChangeConfirmedEvent.
type OnCostChangeConfirmed struct {
	enrollmentRepo enrollment.Repository
	notifier       shared.NotificationSender
	log            *logger.Logger
}

// NewOnCostChangeConfirmed creates a new OnCostChangeConfirmed handler.
func NewOnCostChangeConfirmed(
	enrollmentRepo enrollment.Repository,
	notifier shared.NotificationSender,
	log *logger.Logger,
) *OnCostChangeConfirmed {
	return &OnCostChangeConfirmed{
		enrollmentRepo: enrollmentRepo,
		notifier:       notifier,
		log:            log.With(logger.F("handler", "on_cost_change_confirmed")),
	}
}

// Handle processes the event.
func (h *OnCostChangeConfirmed) Handle(event shared.Event) error {
	confirmed, ok := event.(shared.CostChangeConfirmedEvent)
	if !ok {
		h.log.Warn("received non-CostChangeConfirmedEvent",
			logger.String("event_type", string(event.EventType())),
		)
		return nil
	}

	h.log.Info("cost change confirmed",
		logger.CourseID(confirmed.CourseID),
		logger.AmountCents(confirmed.NewCostCents),
		logger.Int("sections_rescaled", confirmed.SectionsRescaled),
	)

	ctx := context.Background()
	enrollments, err := h.enrollmentRepo.GetByCourse(ctx, shared.CourseID(confirmed.CourseID))
	if err != nil {
		h.log.Error("failed to list enrollments for notification",
			logger.CourseID(confirmed.CourseID),
			logger.Err(err),
		)
		return nil
	}

	subject := "Course prices updated"
	body := fmt.Sprintf("Section prices of your course were rescaled (%d sections affected). Sections you already unlocked stay unlocked.", confirmed.SectionsRescaled)

	for _, enr := range enrollments {
		if err := h.notifier.Send(ctx, enr.StudentID.String(), subject, body); err != nil {
			h.log.Warn("failed to notify student about price change",
				logger.StudentID(enr.StudentID.String()),
				logger.Err(err),
			)
		}
	}

	return nil
}
