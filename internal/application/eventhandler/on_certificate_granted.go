// Package eventhandler contains subscribers reacting to domain events.
// Handlers here are side effects: they must never fail the operation
// that emitted the event.
package eventhandler

import (
	"context"
	"fmt"

	"github.com/edu-hub/course-platform-core/internal/domain/shared"
	"github.com/edu-hub/course-platform-core/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ON CERTIFICATE GRANTED
// Congratulates the student. Notification delivery is fire-and-forget:
// a failed send is logged and dropped, the certificate stays issued.
// ══════════════════════════════════════════════════════════════════════════════

// OnCertificateGranted handles CertificateGrantedEvent.
type OnCertificateGranted struct {
	notifier shared.NotificationSender
	log      *logger.Logger
}

// NewOnCertificateGranted creates a new OnCertificateGranted handler.
func NewOnCertificateGranted(notifier shared.NotificationSender, log *logger.Logger) *OnCertificateGranted {
	return &OnCertificateGranted{
		notifier: notifier,
		log:      log.With(logger.F("handler", "on_certificate_granted")),
	}
}

// Handle processes the event.
func (h *OnCertificateGranted) Handle(event shared.Event) error {
	granted, ok := event.(shared.CertificateGrantedEvent)
	if !ok {
		h.log.Warn("received non-CertificateGrantedEvent",
			logger.String("event_type", string(event.EventType())),
		)
		return nil
	}

	h.log.Info("certificate granted",
		logger.StudentID(granted.StudentID),
		logger.CourseID(granted.CourseID),
		logger.Grade(granted.OverallGrade),
	)

	subject := "Certificate issued"
	body := fmt.Sprintf("Your course certificate is ready. Final grade: %.2f.", granted.OverallGrade)
	if err := h.notifier.Send(context.Background(), granted.StudentID, subject, body); err != nil {
		h.log.Warn("failed to notify student about certificate",
			logger.StudentID(granted.StudentID),
			logger.Err(err),
		)
	}

	return nil
}
