// Package postgres implements the PostgreSQL persistence layer for the
// course platform core.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/edu-hub/course-platform-core/internal/domain/grading"
	"github.com/edu-hub/course-platform-core/internal/domain/shared"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONTENT GRADE REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// ContentGradeRepository implements grading.ContentGradeRepository for PostgreSQL.
type ContentGradeRepository struct {
	conn *Connection
}

// NewContentGradeRepository creates a new ContentGradeRepository.
func NewContentGradeRepository(conn *Connection) *ContentGradeRepository {
	return &ContentGradeRepository{conn: conn}
}

const contentGradeColumns = `student_id, content_id, section_id, course_id, status, grade_percent, feedback, updated_at`

// Upsert creates or replaces the grade for a (student, content) pair.
func (r *ContentGradeRepository) Upsert(ctx context.Context, grade *grading.ContentGrade) error {
	query := `
		INSERT INTO content_grades (` + contentGradeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (student_id, content_id) DO UPDATE SET
			status = EXCLUDED.status,
			grade_percent = EXCLUDED.grade_percent,
			feedback = EXCLUDED.feedback,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.conn.Exec(ctx, query,
		string(grade.StudentID),
		string(grade.ContentID),
		string(grade.SectionID),
		string(grade.CourseID),
		string(grade.Status),
		float64(grade.GradePercent),
		grade.Feedback,
		grade.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert content grade: %w", err)
	}

	return nil
}

// Get returns the grade for a (student, content) pair.
func (r *ContentGradeRepository) Get(ctx context.Context, studentID shared.StudentID, contentID shared.ContentID) (*grading.ContentGrade, error) {
	query := `SELECT ` + contentGradeColumns + ` FROM content_grades WHERE student_id = $1 AND content_id = $2`

	grade, err := scanContentGrade(r.conn.QueryRow(ctx, query, string(studentID), string(contentID)))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrContentGradeNotFound
		}
		return nil, err
	}
	return grade, nil
}

// GetBySection returns a student's grades over a section's content,
// indexed by content ID.
func (r *ContentGradeRepository) GetBySection(ctx context.Context, studentID shared.StudentID, sectionID shared.SectionID) (map[shared.ContentID]*grading.ContentGrade, error) {
	query := `SELECT ` + contentGradeColumns + ` FROM content_grades WHERE student_id = $1 AND section_id = $2`
	return r.queryGradeMap(ctx, query, string(studentID), string(sectionID))
}

// GetByGroup returns a student's grades over a group's content,
// indexed by content ID.
func (r *ContentGradeRepository) GetByGroup(ctx context.Context, studentID shared.StudentID, groupID shared.GroupID) (map[shared.ContentID]*grading.ContentGrade, error) {
	query := `
		SELECT g.student_id, g.content_id, g.section_id, g.course_id, g.status, g.grade_percent, g.feedback, g.updated_at
		FROM content_grades g
		JOIN sections s ON s.id = g.section_id
		WHERE g.student_id = $1 AND s.group_id = $2
	`
	return r.queryGradeMap(ctx, query, string(studentID), string(groupID))
}

// DeleteByCourse deletes all content grades of a course.
func (r *ContentGradeRepository) DeleteByCourse(ctx context.Context, courseID shared.CourseID) (int, error) {
	result, err := r.conn.Exec(ctx, `DELETE FROM content_grades WHERE course_id = $1`, string(courseID))
	if err != nil {
		return 0, fmt.Errorf("failed to delete content grades: %w", err)
	}
	return int(result.RowsAffected()), nil
}

func (r *ContentGradeRepository) queryGradeMap(ctx context.Context, query string, args ...any) (map[shared.ContentID]*grading.ContentGrade, error) {
	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query content grades: %w", err)
	}
	defer rows.Close()

	grades := make(map[shared.ContentID]*grading.ContentGrade)
	for rows.Next() {
		grade, err := scanContentGrade(rows)
		if err != nil {
			return nil, err
		}
		grades[grade.ContentID] = grade
	}

	return grades, rows.Err()
}

func scanContentGrade(row pgx.Row) (*grading.ContentGrade, error) {
	var g grading.ContentGrade
	var studentID, contentID, sectionID, courseID, status string
	var percent float64

	err := row.Scan(&studentID, &contentID, &sectionID, &courseID, &status, &percent, &g.Feedback, &g.UpdatedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan content grade: %w", err)
	}

	g.StudentID = shared.StudentID(studentID)
	g.ContentID = shared.ContentID(contentID)
	g.SectionID = shared.SectionID(sectionID)
	g.CourseID = shared.CourseID(courseID)
	g.Status = grading.GradeStatus(status)
	g.GradePercent = shared.Percent(percent)
	return &g, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SECTION GRADE REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// SectionGradeRepository implements grading.SectionGradeRepository for
// PostgreSQL. Rows hold derived state and are rewritten wholesale on
// every recompute.
type SectionGradeRepository struct {
	conn *Connection
}

// NewSectionGradeRepository creates a new SectionGradeRepository.
func NewSectionGradeRepository(conn *Connection) *SectionGradeRepository {
	return &SectionGradeRepository{conn: conn}
}

const sectionGradeColumns = `student_id, section_id, course_id, grade, updated_at`

// Upsert creates or replaces the section grade for a (student, section) pair.
func (r *SectionGradeRepository) Upsert(ctx context.Context, grade *grading.SectionGrade) error {
	query := `
		INSERT INTO section_grades (` + sectionGradeColumns + `)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (student_id, section_id) DO UPDATE SET
			grade = EXCLUDED.grade,
			updated_at = EXCLUDED.updated_at
	`

	var value *float64
	if grade.Grade != nil {
		v := float64(*grade.Grade)
		value = &v
	}

	_, err := r.conn.Exec(ctx, query,
		string(grade.StudentID),
		string(grade.SectionID),
		string(grade.CourseID),
		value,
		grade.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert section grade: %w", err)
	}

	return nil
}

// Get returns the section grade for a student.
func (r *SectionGradeRepository) Get(ctx context.Context, studentID shared.StudentID, sectionID shared.SectionID) (*grading.SectionGrade, error) {
	query := `SELECT ` + sectionGradeColumns + ` FROM section_grades WHERE student_id = $1 AND section_id = $2`

	grade, err := scanSectionGrade(r.conn.QueryRow(ctx, query, string(studentID), string(sectionID)))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrSectionGradeNotFound
		}
		return nil, err
	}
	return grade, nil
}

// GetByCourse returns a student's grades over all sections of a course.
func (r *SectionGradeRepository) GetByCourse(ctx context.Context, studentID shared.StudentID, courseID shared.CourseID) ([]*grading.SectionGrade, error) {
	query := `SELECT ` + sectionGradeColumns + ` FROM section_grades WHERE student_id = $1 AND course_id = $2`
	return r.queryGrades(ctx, query, string(studentID), string(courseID))
}

// GetByGroup returns a student's grades over a group's sections.
func (r *SectionGradeRepository) GetByGroup(ctx context.Context, studentID shared.StudentID, groupID shared.GroupID) ([]*grading.SectionGrade, error) {
	query := `
		SELECT g.student_id, g.section_id, g.course_id, g.grade, g.updated_at
		FROM section_grades g
		JOIN sections s ON s.id = g.section_id
		WHERE g.student_id = $1 AND s.group_id = $2
	`
	return r.queryGrades(ctx, query, string(studentID), string(groupID))
}

// GetAllByCourse returns every student's section grades for a course.
func (r *SectionGradeRepository) GetAllByCourse(ctx context.Context, courseID shared.CourseID) ([]*grading.SectionGrade, error) {
	query := `SELECT ` + sectionGradeColumns + ` FROM section_grades WHERE course_id = $1`
	return r.queryGrades(ctx, query, string(courseID))
}

// DeleteByCourse deletes all section grades of a course.
func (r *SectionGradeRepository) DeleteByCourse(ctx context.Context, courseID shared.CourseID) (int, error) {
	result, err := r.conn.Exec(ctx, `DELETE FROM section_grades WHERE course_id = $1`, string(courseID))
	if err != nil {
		return 0, fmt.Errorf("failed to delete section grades: %w", err)
	}
	return int(result.RowsAffected()), nil
}

func (r *SectionGradeRepository) queryGrades(ctx context.Context, query string, args ...any) ([]*grading.SectionGrade, error) {
	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query section grades: %w", err)
	}
	defer rows.Close()

	var grades []*grading.SectionGrade
	for rows.Next() {
		grade, err := scanSectionGrade(rows)
		if err != nil {
			return nil, err
		}
		grades = append(grades, grade)
	}

	return grades, rows.Err()
}

func scanSectionGrade(row pgx.Row) (*grading.SectionGrade, error) {
	var g grading.SectionGrade
	var studentID, sectionID, courseID string
	var value *float64
	var updatedAt time.Time

	err := row.Scan(&studentID, &sectionID, &courseID, &value, &updatedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan section grade: %w", err)
	}

	g.StudentID = shared.StudentID(studentID)
	g.SectionID = shared.SectionID(sectionID)
	g.CourseID = shared.CourseID(courseID)
	g.UpdatedAt = updatedAt
	if value != nil {
		percent := shared.Percent(*value)
		g.Grade = &percent
	}
	return &g, nil
}
