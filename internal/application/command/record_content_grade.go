// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/edu-hub/course-platform-core/internal/domain/catalog"
	"github.com/edu-hub/course-platform-core/internal/domain/grading"
	"github.com/edu-hub/course-platform-core/internal/domain/shared"
	"github.com/edu-hub/course-platform-core/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD CONTENT GRADE COMMAND
// Writes a content-level grade and synchronously recomputes the derived
// section grade before the write completes, so section grades never lag
// behind their inputs by more than one in-flight write.
// ══════════════════════════════════════════════════════════════════════════════

// GradeAction defines what happened to the content being graded.
type GradeAction string

const (
	// GradeActionWatched - student watched a lecture to completion.
	GradeActionWatched GradeAction = "watched"

	// GradeActionSubmitted - student submitted work, grading pending.
	GradeActionSubmitted GradeAction = "submitted"

	// GradeActionGraded - instructor assigned a score.
	GradeActionGraded GradeAction = "graded"
)

// RecordContentGradeCommand contains the data to record a content grade.
type RecordContentGradeCommand struct {
	// StudentID is the student receiving the grade.
	StudentID string

	// ContentID is the content item being graded.
	ContentID string

	// Action describes the grade transition.
	Action GradeAction

	// Score is the grade percentage (for graded action). Out-of-range
	// values are clamped to [0, 100] silently.
	Score float64

	// Feedback is the instructor's comment (for graded action).
	Feedback string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c RecordContentGradeCommand) Validate() error {
	if c.StudentID == "" {
		return errors.New("record_content_grade: student_id is required")
	}
	if c.ContentID == "" {
		return errors.New("record_content_grade: content_id is required")
	}

	switch c.Action {
	case GradeActionWatched, GradeActionSubmitted, GradeActionGraded:
		return nil
	default:
		return fmt.Errorf("record_content_grade: unknown action: %s", c.Action)
	}
}

// RecordContentGradeResult contains the result of recording a grade.
type RecordContentGradeResult struct {
	// Success indicates the content grade was persisted.
	Success bool

	// StudentID is the student.
	StudentID string

	// ContentID is the graded content item.
	ContentID string

	// SectionID is the section the content belongs to.
	SectionID string

	// SectionGrade is the recomputed section grade; nil when the section
	// has no gradable content or the recompute failed.
	SectionGrade *float64

	// SectionGradeRecomputed indicates whether the derived section grade
	// was refreshed. The content write succeeds even when the recompute
	// does not.
	SectionGradeRecomputed bool

	// Events contains domain events generated.
	Events []shared.Event

	// RecordedAt is when the grade was recorded.
	RecordedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// RecordContentGradeHandler handles the RecordContentGradeCommand.
type RecordContentGradeHandler struct {
	contentRepo      catalog.ContentRepository
	contentGradeRepo grading.ContentGradeRepository
	sectionGradeRepo grading.SectionGradeRepository
	eventPublisher   shared.EventPublisher
	log              *logger.Logger
}

// NewRecordContentGradeHandler creates a new RecordContentGradeHandler.
func NewRecordContentGradeHandler(
	contentRepo catalog.ContentRepository,
	contentGradeRepo grading.ContentGradeRepository,
	sectionGradeRepo grading.SectionGradeRepository,
	eventPublisher shared.EventPublisher,
	log *logger.Logger,
) *RecordContentGradeHandler {
	return &RecordContentGradeHandler{
		contentRepo:      contentRepo,
		contentGradeRepo: contentGradeRepo,
		sectionGradeRepo: sectionGradeRepo,
		eventPublisher:   eventPublisher,
		log:              log.With(logger.Component("record_content_grade")),
	}
}

// Handle executes the record content grade command.
func (h *RecordContentGradeHandler) Handle(ctx context.Context, cmd RecordContentGradeCommand) (*RecordContentGradeResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("record_content_grade: validation failed: %w", err)
	}

	content, err := h.contentRepo.GetByID(ctx, shared.ContentID(cmd.ContentID))
	if err != nil {
		return nil, fmt.Errorf("record_content_grade: failed to get content: %w", err)
	}

	grade, err := h.applyAction(ctx, content, cmd)
	if err != nil {
		return nil, err
	}

	if err := h.contentGradeRepo.Upsert(ctx, grade); err != nil {
		return nil, fmt.Errorf("record_content_grade: failed to upsert content grade: %w", err)
	}

	result := &RecordContentGradeResult{
		Success:    true,
		StudentID:  cmd.StudentID,
		ContentID:  cmd.ContentID,
		SectionID:  content.SectionID.String(),
		RecordedAt: time.Now().UTC(),
		Events:     make([]shared.Event, 0, 1),
	}

	// The content grade is already durable; a failed recompute is logged
	// and retried on the next write to the same section.
	if err := h.recomputeSectionGrade(ctx, content, cmd, result); err != nil {
		h.log.Error("section grade recompute failed",
			logger.StudentID(cmd.StudentID),
			logger.SectionID(content.SectionID.String()),
			logger.Err(err),
		)
	}

	for _, event := range result.Events {
		_ = h.eventPublisher.Publish(event)
	}

	return result, nil
}

// applyAction loads or creates the content grade and applies the transition.
func (h *RecordContentGradeHandler) applyAction(ctx context.Context, content *catalog.Content, cmd RecordContentGradeCommand) (*grading.ContentGrade, error) {
	grade, err := h.contentGradeRepo.Get(ctx, shared.StudentID(cmd.StudentID), content.ID)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, fmt.Errorf("record_content_grade: failed to get content grade: %w", err)
		}
		grade, err = grading.NewContentGrade(
			shared.StudentID(cmd.StudentID),
			content.ID,
			content.SectionID,
			content.CourseID,
			grading.GradeNotDelivered,
			0,
		)
		if err != nil {
			return nil, fmt.Errorf("record_content_grade: failed to create content grade: %w", err)
		}
	}

	switch cmd.Action {
	case GradeActionWatched:
		grade.MarkWatched()
	case GradeActionSubmitted:
		grade.MarkSubmitted()
	case GradeActionGraded:
		grade.SetGrade(shared.Percent(cmd.Score), cmd.Feedback)
	}

	return grade, nil
}

// recomputeSectionGrade refreshes the derived section grade from all
// content grades of the section and emits the computed event.
func (h *RecordContentGradeHandler) recomputeSectionGrade(
	ctx context.Context,
	content *catalog.Content,
	cmd RecordContentGradeCommand,
	result *RecordContentGradeResult,
) error {
	contents, err := h.contentRepo.GetBySection(ctx, content.SectionID)
	if err != nil {
		return fmt.Errorf("failed to list section contents: %w", err)
	}

	grades, err := h.contentGradeRepo.GetBySection(ctx, shared.StudentID(cmd.StudentID), content.SectionID)
	if err != nil {
		return fmt.Errorf("failed to list section grades: %w", err)
	}

	sectionGrade, err := grading.ComputeSectionGrade(contents, grades)
	if err != nil {
		return fmt.Errorf("failed to compute section grade: %w", err)
	}

	record := grading.NewSectionGrade(shared.StudentID(cmd.StudentID), content.SectionID, content.CourseID, sectionGrade)
	if err := h.sectionGradeRepo.Upsert(ctx, record); err != nil {
		return fmt.Errorf("failed to upsert section grade: %w", err)
	}

	result.SectionGradeRecomputed = true
	if sectionGrade != nil {
		value := sectionGrade.Float64()
		result.SectionGrade = &value
	}

	event := shared.NewSectionGradeComputedEvent(
		cmd.StudentID,
		content.SectionID.String(),
		content.CourseID.String(),
		result.SectionGrade,
	)
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	result.Events = append(result.Events, event)

	return nil
}
