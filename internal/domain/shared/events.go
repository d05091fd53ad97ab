// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"encoding/json"
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types - these drive the event-driven architecture.
// Each event represents something significant that happened in the domain.
const (
	// Enrollment events
	EventEnrollmentCreated  EventType = "enrollment.created"
	EventSectionUnlocked    EventType = "enrollment.section_unlocked"
	EventPaymentApproved    EventType = "enrollment.payment_approved"
	EventPaymentRejected    EventType = "enrollment.payment_rejected"
	EventEnrollmentComplete EventType = "enrollment.completed"

	// Grading events
	EventContentGradeWritten   EventType = "grading.content_grade_written"
	EventSectionGradeComputed  EventType = "grading.section_grade_computed"
	EventAssignmentSubmitted   EventType = "grading.assignment_submitted"
	EventAssignmentGraded      EventType = "grading.assignment_graded"

	// Certificate events
	EventCertificateGranted   EventType = "certificate.granted"
	EventCertificateRequested EventType = "certificate.requested"

	// Pricing events
	EventCostChangeProposed  EventType = "pricing.change_proposed"
	EventCostChangeConfirmed EventType = "pricing.change_confirmed"
	EventCostChangeCancelled EventType = "pricing.change_cancelled"
	EventCostChangeExpired   EventType = "pricing.change_expired"

	// Catalog events
	EventCourseDeleted EventType = "catalog.course_deleted"

	// Notification events
	EventNotificationSent   EventType = "notification.sent"
	EventNotificationFailed EventType = "notification.failed"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Enrollment Events
// ═══════════════════════════════════════════════════════════════════════════

// SectionUnlockedEvent is emitted when a section is added to a student's
// enrolled sections, either via an approved payment or admin action.
type SectionUnlockedEvent struct {
	BaseEvent
	StudentID string `json:"student_id"`
	CourseID  string `json:"course_id"`
	SectionID string `json:"section_id"`
	Source    string `json:"source"` // "payment" or "admin"
}

// Payload implements Event interface.
func (e SectionUnlockedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id": e.StudentID,
		"course_id":  e.CourseID,
		"section_id": e.SectionID,
		"source":     e.Source,
	}
}

// NewSectionUnlockedEvent creates a new SectionUnlockedEvent.
func NewSectionUnlockedEvent(studentID, courseID, sectionID, source string) SectionUnlockedEvent {
	return SectionUnlockedEvent{
		BaseEvent: NewBaseEvent(EventSectionUnlocked, studentID),
		StudentID: studentID,
		CourseID:  courseID,
		SectionID: sectionID,
		Source:    source,
	}
}

// PaymentApprovedEvent is emitted when a section payment is approved.
type PaymentApprovedEvent struct {
	BaseEvent
	PaymentID   string `json:"payment_id"`
	StudentID   string `json:"student_id"`
	SectionID   string `json:"section_id"`
	AmountCents int64  `json:"amount_cents"`
}

// Payload implements Event interface.
func (e PaymentApprovedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"payment_id":   e.PaymentID,
		"student_id":   e.StudentID,
		"section_id":   e.SectionID,
		"amount_cents": e.AmountCents,
	}
}

// NewPaymentApprovedEvent creates a new PaymentApprovedEvent.
func NewPaymentApprovedEvent(paymentID, studentID, sectionID string, amountCents int64) PaymentApprovedEvent {
	return PaymentApprovedEvent{
		BaseEvent:   NewBaseEvent(EventPaymentApproved, paymentID),
		PaymentID:   paymentID,
		StudentID:   studentID,
		SectionID:   sectionID,
		AmountCents: amountCents,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Grading Events
// ═══════════════════════════════════════════════════════════════════════════

// SectionGradeComputedEvent is emitted after a section grade recompute.
type SectionGradeComputedEvent struct {
	BaseEvent
	StudentID string   `json:"student_id"`
	SectionID string   `json:"section_id"`
	CourseID  string   `json:"course_id"`
	Grade     *float64 `json:"grade"` // nil when the section has no gradable content
}

// Payload implements Event interface.
func (e SectionGradeComputedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id": e.StudentID,
		"section_id": e.SectionID,
		"course_id":  e.CourseID,
		"grade":      e.Grade,
	}
}

// NewSectionGradeComputedEvent creates a new SectionGradeComputedEvent.
func NewSectionGradeComputedEvent(studentID, sectionID, courseID string, grade *float64) SectionGradeComputedEvent {
	return SectionGradeComputedEvent{
		BaseEvent: NewBaseEvent(EventSectionGradeComputed, studentID),
		StudentID: studentID,
		SectionID: sectionID,
		CourseID:  courseID,
		Grade:     grade,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Certificate Events
// ═══════════════════════════════════════════════════════════════════════════

// CertificateGrantedEvent is emitted when a certificate is issued.
type CertificateGrantedEvent struct {
	BaseEvent
	CertificateID string  `json:"certificate_id"`
	StudentID     string  `json:"student_id"`
	CourseID      string  `json:"course_id"`
	GroupID       string  `json:"group_id,omitempty"`
	OverallGrade  float64 `json:"overall_grade"`
}

// Payload implements Event interface.
func (e CertificateGrantedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"certificate_id": e.CertificateID,
		"student_id":     e.StudentID,
		"course_id":      e.CourseID,
		"group_id":       e.GroupID,
		"overall_grade":  e.OverallGrade,
	}
}

// NewCertificateGrantedEvent creates a new CertificateGrantedEvent.
func NewCertificateGrantedEvent(certificateID, studentID, courseID, groupID string, overallGrade float64) CertificateGrantedEvent {
	return CertificateGrantedEvent{
		BaseEvent:     NewBaseEvent(EventCertificateGranted, certificateID),
		CertificateID: certificateID,
		StudentID:     studentID,
		CourseID:      courseID,
		GroupID:       groupID,
		OverallGrade:  overallGrade,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Pricing Events
// ═══════════════════════════════════════════════════════════════════════════

// CostChangeProposedEvent is emitted when a cost change requires confirmation.
type CostChangeProposedEvent struct {
	BaseEvent
	PendingChangeID string  `json:"pending_change_id"`
	CourseID        string  `json:"course_id"`
	OldCostCents    int64   `json:"old_cost_cents"`
	NewCostCents    int64   `json:"new_cost_cents"`
	ScaleFactor     float64 `json:"scale_factor"`
}

// Payload implements Event interface.
func (e CostChangeProposedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"pending_change_id": e.PendingChangeID,
		"course_id":         e.CourseID,
		"old_cost_cents":    e.OldCostCents,
		"new_cost_cents":    e.NewCostCents,
		"scale_factor":      e.ScaleFactor,
	}
}

// NewCostChangeProposedEvent creates a new CostChangeProposedEvent.
func NewCostChangeProposedEvent(pendingChangeID, courseID string, oldCost, newCost int64, scaleFactor float64) CostChangeProposedEvent {
	return CostChangeProposedEvent{
		BaseEvent:       NewBaseEvent(EventCostChangeProposed, courseID),
		PendingChangeID: pendingChangeID,
		CourseID:        courseID,
		OldCostCents:    oldCost,
		NewCostCents:    newCost,
		ScaleFactor:     scaleFactor,
	}
}

// CostChangeConfirmedEvent is emitted after a rescale is applied.
type CostChangeConfirmedEvent struct {
	BaseEvent
	PendingChangeID  string `json:"pending_change_id"`
	CourseID         string `json:"course_id"`
	NewCostCents     int64  `json:"new_cost_cents"`
	SectionsRescaled int    `json:"sections_rescaled"`
}

// Payload implements Event interface.
func (e CostChangeConfirmedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"pending_change_id": e.PendingChangeID,
		"course_id":         e.CourseID,
		"new_cost_cents":    e.NewCostCents,
		"sections_rescaled": e.SectionsRescaled,
	}
}

// NewCostChangeConfirmedEvent creates a new CostChangeConfirmedEvent.
func NewCostChangeConfirmedEvent(pendingChangeID, courseID string, newCost int64, sections int) CostChangeConfirmedEvent {
	return CostChangeConfirmedEvent{
		BaseEvent:        NewBaseEvent(EventCostChangeConfirmed, courseID),
		PendingChangeID:  pendingChangeID,
		CourseID:         courseID,
		NewCostCents:     newCost,
		SectionsRescaled: sections,
	}
}

// CostChangeCancelledEvent is emitted when a pending change is cancelled.
type CostChangeCancelledEvent struct {
	BaseEvent
	PendingChangeID string `json:"pending_change_id"`
	CourseID        string `json:"course_id"`
	Reason          string `json:"reason"` // "manual" or "expired"
}

// Payload implements Event interface.
func (e CostChangeCancelledEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"pending_change_id": e.PendingChangeID,
		"course_id":         e.CourseID,
		"reason":            e.Reason,
	}
}

// NewCostChangeCancelledEvent creates a new CostChangeCancelledEvent.
func NewCostChangeCancelledEvent(pendingChangeID, courseID, reason string) CostChangeCancelledEvent {
	return CostChangeCancelledEvent{
		BaseEvent:       NewBaseEvent(EventCostChangeCancelled, courseID),
		PendingChangeID: pendingChangeID,
		CourseID:        courseID,
		Reason:          reason,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Catalog Events
// ═══════════════════════════════════════════════════════════════════════════

// CourseDeletedEvent is emitted after a cascading course deletion.
type CourseDeletedEvent struct {
	BaseEvent
	CourseID        string `json:"course_id"`
	GroupsDeleted   int    `json:"groups_deleted"`
	SectionsDeleted int    `json:"sections_deleted"`
	ContentsDeleted int    `json:"contents_deleted"`
}

// Payload implements Event interface.
func (e CourseDeletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"course_id":        e.CourseID,
		"groups_deleted":   e.GroupsDeleted,
		"sections_deleted": e.SectionsDeleted,
		"contents_deleted": e.ContentsDeleted,
	}
}

// NewCourseDeletedEvent creates a new CourseDeletedEvent.
func NewCourseDeletedEvent(courseID string, groups, sections, contents int) CourseDeletedEvent {
	return CourseDeletedEvent{
		BaseEvent:       NewBaseEvent(EventCourseDeleted, courseID),
		CourseID:        courseID,
		GroupsDeleted:   groups,
		SectionsDeleted: sections,
		ContentsDeleted: contents,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Bus Interfaces
// ═══════════════════════════════════════════════════════════════════════════

// SerializedEvent is the wire format for events crossing process boundaries.
type SerializedEvent struct {
	Type          EventType       `json:"type"`
	AggregateID   string          `json:"aggregate_id"`
	Timestamp     time.Time       `json:"timestamp"`
	Version       int             `json:"version"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
