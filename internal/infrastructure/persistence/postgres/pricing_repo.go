// Package postgres implements the PostgreSQL persistence layer for the
// course platform core.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/edu-hub/course-platform-core/internal/domain/pricing"
	"github.com/edu-hub/course-platform-core/internal/domain/shared"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// JSONB SECTION ROWS
// ══════════════════════════════════════════════════════════════════════════════

// affectedSectionRow is the JSONB shape of a planned per-section price.
type affectedSectionRow struct {
	SectionID     string `json:"section_id"`
	OldPriceCents int64  `json:"old_price_cents"`
	NewPriceCents int64  `json:"new_price_cents"`
	Currency      string `json:"currency"`
}

func marshalAffectedSections(sections []pricing.AffectedSection) ([]byte, error) {
	rows := make([]affectedSectionRow, 0, len(sections))
	for _, s := range sections {
		rows = append(rows, affectedSectionRow{
			SectionID:     string(s.SectionID),
			OldPriceCents: s.OldPrice.AmountCents,
			NewPriceCents: s.NewPrice.AmountCents,
			Currency:      string(s.OldPrice.Currency),
		})
	}

	data, err := json.Marshal(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal affected sections: %w", err)
	}
	return data, nil
}

func unmarshalAffectedSections(data []byte) ([]pricing.AffectedSection, error) {
	var rows []affectedSectionRow
	if len(data) > 0 {
		if err := json.Unmarshal(data, &rows); err != nil {
			return nil, fmt.Errorf("failed to unmarshal affected sections: %w", err)
		}
	}

	sections := make([]pricing.AffectedSection, 0, len(rows))
	for _, row := range rows {
		currency := shared.Currency(row.Currency)
		sections = append(sections, pricing.AffectedSection{
			SectionID: shared.SectionID(row.SectionID),
			OldPrice:  shared.Money{AmountCents: row.OldPriceCents, Currency: currency},
			NewPrice:  shared.Money{AmountCents: row.NewPriceCents, Currency: currency},
		})
	}
	return sections, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// PENDING CHANGE REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// PendingChangeRepository implements pricing.PendingChangeRepository for
// PostgreSQL. A partial unique index enforces at most one pending change
// per course.
type PendingChangeRepository struct {
	conn *Connection
}

// NewPendingChangeRepository creates a new PendingChangeRepository.
func NewPendingChangeRepository(conn *Connection) *PendingChangeRepository {
	return &PendingChangeRepository{conn: conn}
}

const pendingChangeColumns = `id, course_id, instructor_id, old_cost_cents, new_cost_cents,
	total_paid_cents, currency, scale_factor, affected_sections, status, created_at, expires_at, resolved_at`

// Create persists a new pending cost change.
func (r *PendingChangeRepository) Create(ctx context.Context, change *pricing.PendingCostChange) error {
	query := `
		INSERT INTO pending_cost_changes (` + pendingChangeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	sectionsJSON, err := marshalAffectedSections(change.AffectedSections)
	if err != nil {
		return err
	}

	_, err = r.conn.Exec(ctx, query,
		change.ID,
		string(change.CourseID),
		change.InstructorID,
		change.OldCost.AmountCents,
		change.NewCost.AmountCents,
		change.TotalPaidSections.AmountCents,
		string(change.NewCost.Currency),
		change.ScaleFactor,
		sectionsJSON,
		string(change.Status),
		change.CreatedAt,
		change.ExpiresAt,
		nullableTime(change.ResolvedAt),
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrPendingChangeExists
		}
		return fmt.Errorf("failed to create pending cost change: %w", err)
	}

	return nil
}

// GetByID retrieves a pending cost change by ID.
func (r *PendingChangeRepository) GetByID(ctx context.Context, id string) (*pricing.PendingCostChange, error) {
	query := `SELECT ` + pendingChangeColumns + ` FROM pending_cost_changes WHERE id = $1`

	change, err := scanPendingChange(r.conn.QueryRow(ctx, query, id))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrPendingChangeNotFound
		}
		return nil, err
	}
	return change, nil
}

// GetPendingByCourse retrieves the unresolved change for a course, if any.
func (r *PendingChangeRepository) GetPendingByCourse(ctx context.Context, courseID shared.CourseID) (*pricing.PendingCostChange, error) {
	query := `SELECT ` + pendingChangeColumns + ` FROM pending_cost_changes WHERE course_id = $1 AND status = 'pending'`

	change, err := scanPendingChange(r.conn.QueryRow(ctx, query, string(courseID)))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrPendingChangeNotFound
		}
		return nil, err
	}
	return change, nil
}

// GetExpiredPending retrieves unresolved changes past their advisory expiry.
func (r *PendingChangeRepository) GetExpiredPending(ctx context.Context, limit int) ([]*pricing.PendingCostChange, error) {
	query := `
		SELECT ` + pendingChangeColumns + `
		FROM pending_cost_changes
		WHERE status = 'pending' AND expires_at < NOW()
		ORDER BY expires_at
		LIMIT $1
	`

	rows, err := r.conn.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query expired changes: %w", err)
	}
	defer rows.Close()

	var changes []*pricing.PendingCostChange
	for rows.Next() {
		change, err := scanPendingChange(rows)
		if err != nil {
			return nil, err
		}
		changes = append(changes, change)
	}

	return changes, rows.Err()
}

// Update persists a status transition.
func (r *PendingChangeRepository) Update(ctx context.Context, change *pricing.PendingCostChange) error {
	query := `
		UPDATE pending_cost_changes SET
			status = $1,
			resolved_at = $2
		WHERE id = $3
	`

	result, err := r.conn.Exec(ctx, query,
		string(change.Status),
		nullableTime(change.ResolvedAt),
		change.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update pending cost change: %w", err)
	}

	if result.RowsAffected() == 0 {
		return shared.ErrPendingChangeNotFound
	}

	return nil
}

// DeleteByCourse removes all changes for a course.
func (r *PendingChangeRepository) DeleteByCourse(ctx context.Context, courseID shared.CourseID) error {
	_, err := r.conn.Exec(ctx, `DELETE FROM pending_cost_changes WHERE course_id = $1`, string(courseID))
	if err != nil {
		return fmt.Errorf("failed to delete pending cost changes: %w", err)
	}
	return nil
}

func scanPendingChange(row pgx.Row) (*pricing.PendingCostChange, error) {
	var p pricing.PendingCostChange
	var courseID, currency, status string
	var sectionsJSON []byte
	var resolvedAt *time.Time

	err := row.Scan(
		&p.ID,
		&courseID,
		&p.InstructorID,
		&p.OldCost.AmountCents,
		&p.NewCost.AmountCents,
		&p.TotalPaidSections.AmountCents,
		&currency,
		&p.ScaleFactor,
		&sectionsJSON,
		&status,
		&p.CreatedAt,
		&p.ExpiresAt,
		&resolvedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan pending cost change: %w", err)
	}

	sections, err := unmarshalAffectedSections(sectionsJSON)
	if err != nil {
		return nil, err
	}

	p.CourseID = shared.CourseID(courseID)
	p.OldCost.Currency = shared.Currency(currency)
	p.NewCost.Currency = shared.Currency(currency)
	p.TotalPaidSections.Currency = shared.Currency(currency)
	p.AffectedSections = sections
	p.Status = pricing.ChangeStatus(status)
	if resolvedAt != nil {
		p.ResolvedAt = *resolvedAt
	}
	return &p, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// PRICE CHANGE RECORD REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// RecordRepository implements pricing.RecordRepository for PostgreSQL.
// The table is append-only: rows are inserted and read, never updated.
type RecordRepository struct {
	conn *Connection
}

// NewRecordRepository creates a new RecordRepository.
func NewRecordRepository(conn *Connection) *RecordRepository {
	return &RecordRepository{conn: conn}
}

const recordColumns = `id, course_id, actor_id, reason, old_cost_cents, new_cost_cents, currency, scale_factor, sections, created_at`

// Create appends a record to the log.
func (r *RecordRepository) Create(ctx context.Context, record *pricing.PriceChangeRecord) error {
	query := `
		INSERT INTO price_change_records (` + recordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	sectionsJSON, err := marshalAffectedSections(record.Sections)
	if err != nil {
		return err
	}

	_, err = r.conn.Exec(ctx, query,
		record.ID,
		string(record.CourseID),
		record.ActorID,
		record.Reason,
		record.OldCost.AmountCents,
		record.NewCost.AmountCents,
		string(record.NewCost.Currency),
		record.ScaleFactor,
		sectionsJSON,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create price change record: %w", err)
	}

	return nil
}

// GetByCourse retrieves the log for a course, newest first.
func (r *RecordRepository) GetByCourse(ctx context.Context, courseID shared.CourseID, p shared.Pagination) ([]*pricing.PriceChangeRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM price_change_records
		WHERE course_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.conn.Query(ctx, query, string(courseID), p.Limit(), p.Offset())
	if err != nil {
		return nil, fmt.Errorf("failed to query price change records: %w", err)
	}
	defer rows.Close()

	var records []*pricing.PriceChangeRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

// DeleteByCourse removes all records for a course.
func (r *RecordRepository) DeleteByCourse(ctx context.Context, courseID shared.CourseID) error {
	_, err := r.conn.Exec(ctx, `DELETE FROM price_change_records WHERE course_id = $1`, string(courseID))
	if err != nil {
		return fmt.Errorf("failed to delete price change records: %w", err)
	}
	return nil
}

func scanRecord(row pgx.Row) (*pricing.PriceChangeRecord, error) {
	var rec pricing.PriceChangeRecord
	var courseID, currency string
	var sectionsJSON []byte

	err := row.Scan(
		&rec.ID,
		&courseID,
		&rec.ActorID,
		&rec.Reason,
		&rec.OldCost.AmountCents,
		&rec.NewCost.AmountCents,
		&currency,
		&rec.ScaleFactor,
		&sectionsJSON,
		&rec.CreatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan price change record: %w", err)
	}

	sections, err := unmarshalAffectedSections(sectionsJSON)
	if err != nil {
		return nil, err
	}

	rec.CourseID = shared.CourseID(courseID)
	rec.OldCost.Currency = shared.Currency(currency)
	rec.NewCost.Currency = shared.Currency(currency)
	rec.Sections = sections
	return &rec, nil
}
