// Package postgres implements the PostgreSQL persistence layer for the
// course platform core.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/edu-hub/course-platform-core/internal/domain/certificate"
	"github.com/edu-hub/course-platform-core/internal/domain/shared"

	"github.com/jackc/pgx/v5"
)

// CertificateRepository implements certificate.Repository for PostgreSQL.
type CertificateRepository struct {
	conn *Connection
}

// NewCertificateRepository creates a new CertificateRepository.
func NewCertificateRepository(conn *Connection) *CertificateRepository {
	return &CertificateRepository{conn: conn}
}

const certificateColumns = `id, student_id, course_id, group_id, status, grade, requested_at, issued_at`

// Create creates a certificate.
func (r *CertificateRepository) Create(ctx context.Context, cert *certificate.Certificate) error {
	query := `
		INSERT INTO certificates (` + certificateColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.conn.Exec(ctx, query,
		cert.ID,
		string(cert.StudentID),
		string(cert.CourseID),
		string(cert.GroupID),
		string(cert.Status),
		float64(cert.Grade),
		cert.RequestedAt,
		nullableTime(cert.IssuedAt),
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create certificate: %w", err)
	}

	return nil
}

// GetByID returns a certificate by ID.
func (r *CertificateRepository) GetByID(ctx context.Context, id string) (*certificate.Certificate, error) {
	query := `SELECT ` + certificateColumns + ` FROM certificates WHERE id = $1`

	cert, err := scanCertificate(r.conn.QueryRow(ctx, query, id))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrCertificateNotFound
		}
		return nil, err
	}
	return cert, nil
}

// GetByStudentAndCourse returns a student's certificate for a course.
func (r *CertificateRepository) GetByStudentAndCourse(ctx context.Context, studentID shared.StudentID, courseID shared.CourseID) (*certificate.Certificate, error) {
	query := `SELECT ` + certificateColumns + ` FROM certificates WHERE student_id = $1 AND course_id = $2`

	cert, err := scanCertificate(r.conn.QueryRow(ctx, query, string(studentID), string(courseID)))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrCertificateNotFound
		}
		return nil, err
	}
	return cert, nil
}

// Update updates a certificate.
func (r *CertificateRepository) Update(ctx context.Context, cert *certificate.Certificate) error {
	query := `
		UPDATE certificates SET
			status = $1,
			grade = $2,
			issued_at = $3
		WHERE id = $4
	`

	result, err := r.conn.Exec(ctx, query,
		string(cert.Status),
		float64(cert.Grade),
		nullableTime(cert.IssuedAt),
		cert.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update certificate: %w", err)
	}

	if result.RowsAffected() == 0 {
		return shared.ErrCertificateNotFound
	}

	return nil
}

// DeleteByCourse deletes all certificates of a course.
func (r *CertificateRepository) DeleteByCourse(ctx context.Context, courseID shared.CourseID) (int, error) {
	result, err := r.conn.Exec(ctx, `DELETE FROM certificates WHERE course_id = $1`, string(courseID))
	if err != nil {
		return 0, fmt.Errorf("failed to delete certificates: %w", err)
	}
	return int(result.RowsAffected()), nil
}

func scanCertificate(row pgx.Row) (*certificate.Certificate, error) {
	var c certificate.Certificate
	var studentID, courseID, groupID, status string
	var grade float64
	var issuedAt *time.Time

	err := row.Scan(&c.ID, &studentID, &courseID, &groupID, &status, &grade, &c.RequestedAt, &issuedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan certificate: %w", err)
	}

	c.StudentID = shared.StudentID(studentID)
	c.CourseID = shared.CourseID(courseID)
	c.GroupID = shared.GroupID(groupID)
	c.Status = certificate.CertStatus(status)
	c.Grade = shared.Percent(grade)
	if issuedAt != nil {
		c.IssuedAt = *issuedAt
	}
	return &c, nil
}
