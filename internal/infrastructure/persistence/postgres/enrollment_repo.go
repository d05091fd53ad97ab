// Package postgres implements the PostgreSQL persistence layer for the
// course platform core.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/edu-hub/course-platform-core/internal/domain/enrollment"
	"github.com/edu-hub/course-platform-core/internal/domain/shared"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENROLLMENT REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// EnrollmentRepository implements enrollment.Repository for PostgreSQL.
// The unlocked-section set is stored as a JSONB array of section IDs.
type EnrollmentRepository struct {
	conn *Connection
}

// NewEnrollmentRepository creates a new EnrollmentRepository.
func NewEnrollmentRepository(conn *Connection) *EnrollmentRepository {
	return &EnrollmentRepository{conn: conn}
}

const enrollmentColumns = `id, student_id, course_id, group_id, enrolled_sections, status, created_at, updated_at`

// Create creates an enrollment.
func (r *EnrollmentRepository) Create(ctx context.Context, enr *enrollment.Enrollment) error {
	query := `
		INSERT INTO enrollments (` + enrollmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	sectionsJSON, err := marshalSections(enr.EnrolledSections)
	if err != nil {
		return err
	}

	_, err = r.conn.Exec(ctx, query,
		enr.ID,
		string(enr.StudentID),
		string(enr.CourseID),
		string(enr.GroupID),
		sectionsJSON,
		string(enr.Status),
		enr.CreatedAt,
		enr.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrEnrollmentExists
		}
		return fmt.Errorf("failed to create enrollment: %w", err)
	}

	return nil
}

// GetByID returns an enrollment by ID.
func (r *EnrollmentRepository) GetByID(ctx context.Context, id string) (*enrollment.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE id = $1`

	enr, err := scanEnrollment(r.conn.QueryRow(ctx, query, id))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrEnrollmentNotFound
		}
		return nil, err
	}
	return enr, nil
}

// GetByStudentAndCourse returns a student's enrollment in a course.
func (r *EnrollmentRepository) GetByStudentAndCourse(ctx context.Context, studentID shared.StudentID, courseID shared.CourseID) (*enrollment.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE student_id = $1 AND course_id = $2`

	enr, err := scanEnrollment(r.conn.QueryRow(ctx, query, string(studentID), string(courseID)))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrEnrollmentNotFound
		}
		return nil, err
	}
	return enr, nil
}

// GetByCourse returns all enrollments of a course.
func (r *EnrollmentRepository) GetByCourse(ctx context.Context, courseID shared.CourseID) ([]*enrollment.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE course_id = $1 ORDER BY created_at`
	return r.queryEnrollments(ctx, query, string(courseID))
}

// GetByGroup returns the enrollments of a group.
func (r *EnrollmentRepository) GetByGroup(ctx context.Context, groupID shared.GroupID) ([]*enrollment.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE group_id = $1 ORDER BY created_at`
	return r.queryEnrollments(ctx, query, string(groupID))
}

// Update updates an enrollment, including its unlocked-section set.
func (r *EnrollmentRepository) Update(ctx context.Context, enr *enrollment.Enrollment) error {
	query := `
		UPDATE enrollments SET
			group_id = $1,
			enrolled_sections = $2,
			status = $3,
			updated_at = $4
		WHERE id = $5
	`

	sectionsJSON, err := marshalSections(enr.EnrolledSections)
	if err != nil {
		return err
	}

	result, err := r.conn.Exec(ctx, query,
		string(enr.GroupID),
		sectionsJSON,
		string(enr.Status),
		time.Now().UTC(),
		enr.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update enrollment: %w", err)
	}

	if result.RowsAffected() == 0 {
		return shared.ErrEnrollmentNotFound
	}

	return nil
}

// DeleteByCourse deletes all enrollments of a course.
func (r *EnrollmentRepository) DeleteByCourse(ctx context.Context, courseID shared.CourseID) (int, error) {
	result, err := r.conn.Exec(ctx, `DELETE FROM enrollments WHERE course_id = $1`, string(courseID))
	if err != nil {
		return 0, fmt.Errorf("failed to delete enrollments: %w", err)
	}
	return int(result.RowsAffected()), nil
}

func (r *EnrollmentRepository) queryEnrollments(ctx context.Context, query string, arg any) ([]*enrollment.Enrollment, error) {
	rows, err := r.conn.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query enrollments: %w", err)
	}
	defer rows.Close()

	var enrollments []*enrollment.Enrollment
	for rows.Next() {
		enr, err := scanEnrollment(rows)
		if err != nil {
			return nil, err
		}
		enrollments = append(enrollments, enr)
	}

	return enrollments, rows.Err()
}

func scanEnrollment(row pgx.Row) (*enrollment.Enrollment, error) {
	var e enrollment.Enrollment
	var studentID, courseID, groupID, status string
	var sectionsJSON []byte

	err := row.Scan(
		&e.ID,
		&studentID,
		&courseID,
		&groupID,
		&sectionsJSON,
		&status,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan enrollment: %w", err)
	}

	sections, err := unmarshalSections(sectionsJSON)
	if err != nil {
		return nil, err
	}

	e.StudentID = shared.StudentID(studentID)
	e.CourseID = shared.CourseID(courseID)
	e.GroupID = shared.GroupID(groupID)
	e.EnrolledSections = sections
	e.Status = enrollment.Status(status)
	return &e, nil
}

func marshalSections(sections map[shared.SectionID]struct{}) ([]byte, error) {
	ids := make([]string, 0, len(sections))
	for id := range sections {
		ids = append(ids, string(id))
	}

	data, err := json.Marshal(ids)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal enrolled sections: %w", err)
	}
	return data, nil
}

func unmarshalSections(data []byte) (map[shared.SectionID]struct{}, error) {
	var ids []string
	if len(data) > 0 {
		if err := json.Unmarshal(data, &ids); err != nil {
			return nil, fmt.Errorf("failed to unmarshal enrolled sections: %w", err)
		}
	}

	sections := make(map[shared.SectionID]struct{}, len(ids))
	for _, id := range ids {
		sections[shared.SectionID(id)] = struct{}{}
	}
	return sections, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// PAYMENT REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// PaymentRepository implements enrollment.PaymentRepository for PostgreSQL.
type PaymentRepository struct {
	conn *Connection
}

// NewPaymentRepository creates a new PaymentRepository.
func NewPaymentRepository(conn *Connection) *PaymentRepository {
	return &PaymentRepository{conn: conn}
}

const paymentColumns = `id, student_id, section_id, course_id, amount_cents, currency, status, submitted_at, processed_at`

// Create creates a payment.
func (r *PaymentRepository) Create(ctx context.Context, payment *enrollment.SectionPayment) error {
	query := `
		INSERT INTO section_payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.conn.Exec(ctx, query,
		payment.ID,
		string(payment.StudentID),
		string(payment.SectionID),
		string(payment.CourseID),
		payment.Amount.AmountCents,
		string(payment.Amount.Currency),
		string(payment.Status),
		payment.SubmittedAt,
		nullableTime(payment.ProcessedAt),
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create payment: %w", err)
	}

	return nil
}

// GetByID returns a payment by ID.
func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*enrollment.SectionPayment, error) {
	query := `SELECT ` + paymentColumns + ` FROM section_payments WHERE id = $1`

	payment, err := scanPayment(r.conn.QueryRow(ctx, query, id))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrPaymentNotFound
		}
		return nil, err
	}
	return payment, nil
}

// GetLatest returns the most recently submitted payment for a
// (student, section) pair. Only the latest payment decides access.
func (r *PaymentRepository) GetLatest(ctx context.Context, studentID shared.StudentID, sectionID shared.SectionID) (*enrollment.SectionPayment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM section_payments
		WHERE student_id = $1 AND section_id = $2
		ORDER BY submitted_at DESC
		LIMIT 1
	`

	payment, err := scanPayment(r.conn.QueryRow(ctx, query, string(studentID), string(sectionID)))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrPaymentNotFound
		}
		return nil, err
	}
	return payment, nil
}

// GetByStudentAndSection returns all payments of a (student, section) pair.
func (r *PaymentRepository) GetByStudentAndSection(ctx context.Context, studentID shared.StudentID, sectionID shared.SectionID) ([]*enrollment.SectionPayment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM section_payments
		WHERE student_id = $1 AND section_id = $2
		ORDER BY submitted_at DESC
	`
	return r.queryPayments(ctx, query, string(studentID), string(sectionID))
}

// GetByCourse returns all payments of a course.
func (r *PaymentRepository) GetByCourse(ctx context.Context, courseID shared.CourseID) ([]*enrollment.SectionPayment, error) {
	query := `SELECT ` + paymentColumns + ` FROM section_payments WHERE course_id = $1 ORDER BY submitted_at`
	return r.queryPayments(ctx, query, string(courseID))
}

// Update updates a payment.
func (r *PaymentRepository) Update(ctx context.Context, payment *enrollment.SectionPayment) error {
	query := `
		UPDATE section_payments SET
			status = $1,
			processed_at = $2
		WHERE id = $3
	`

	result, err := r.conn.Exec(ctx, query,
		string(payment.Status),
		nullableTime(payment.ProcessedAt),
		payment.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update payment: %w", err)
	}

	if result.RowsAffected() == 0 {
		return shared.ErrPaymentNotFound
	}

	return nil
}

// DeleteByCourse deletes all payments of a course.
func (r *PaymentRepository) DeleteByCourse(ctx context.Context, courseID shared.CourseID) (int, error) {
	result, err := r.conn.Exec(ctx, `DELETE FROM section_payments WHERE course_id = $1`, string(courseID))
	if err != nil {
		return 0, fmt.Errorf("failed to delete payments: %w", err)
	}
	return int(result.RowsAffected()), nil
}

func (r *PaymentRepository) queryPayments(ctx context.Context, query string, args ...any) ([]*enrollment.SectionPayment, error) {
	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var payments []*enrollment.SectionPayment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}

	return payments, rows.Err()
}

func scanPayment(row pgx.Row) (*enrollment.SectionPayment, error) {
	var p enrollment.SectionPayment
	var studentID, sectionID, courseID, currency, status string
	var processedAt *time.Time

	err := row.Scan(
		&p.ID,
		&studentID,
		&sectionID,
		&courseID,
		&p.Amount.AmountCents,
		&currency,
		&status,
		&p.SubmittedAt,
		&processedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan payment: %w", err)
	}

	p.StudentID = shared.StudentID(studentID)
	p.SectionID = shared.SectionID(sectionID)
	p.CourseID = shared.CourseID(courseID)
	p.Amount.Currency = shared.Currency(currency)
	p.Status = enrollment.PaymentStatus(status)
	if processedAt != nil {
		p.ProcessedAt = *processedAt
	}
	return &p, nil
}

// nullableTime maps the zero time to SQL NULL.
func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
