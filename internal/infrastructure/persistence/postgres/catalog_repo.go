// Package postgres implements the PostgreSQL persistence layer for the
// course platform core.
package postgres

import (
	"context"
	"fmt"

	"github.com/edu-hub/course-platform-core/internal/domain/catalog"
	"github.com/edu-hub/course-platform-core/internal/domain/shared"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// COURSE REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// CourseRepository implements catalog.CourseRepository for PostgreSQL.
type CourseRepository struct {
	conn *Connection
}

// NewCourseRepository creates a new CourseRepository.
func NewCourseRepository(conn *Connection) *CourseRepository {
	return &CourseRepository{conn: conn}
}

const courseColumns = `id, owner_id, title, cost_cents, currency, offers_certificate,
	certificate_mode, instructor_certificate_release, is_active, created_at, updated_at`

// Create creates a new course.
func (r *CourseRepository) Create(ctx context.Context, course *catalog.Course) error {
	query := `
		INSERT INTO courses (` + courseColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.conn.Exec(ctx, query,
		string(course.ID),
		course.OwnerID,
		course.Title,
		course.Cost.AmountCents,
		string(course.Cost.Currency),
		course.OffersCertificate,
		string(course.CertificateMode),
		course.InstructorCertificateRelease,
		course.IsActive,
		course.CreatedAt,
		course.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create course: %w", err)
	}

	return nil
}

// GetByID returns a course by ID.
func (r *CourseRepository) GetByID(ctx context.Context, id shared.CourseID) (*catalog.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses WHERE id = $1`

	row := r.conn.QueryRow(ctx, query, string(id))
	return scanCourse(row)
}

// Update updates a course.
func (r *CourseRepository) Update(ctx context.Context, course *catalog.Course) error {
	query := `
		UPDATE courses SET
			owner_id = $1,
			title = $2,
			cost_cents = $3,
			currency = $4,
			offers_certificate = $5,
			certificate_mode = $6,
			instructor_certificate_release = $7,
			is_active = $8,
			updated_at = $9
		WHERE id = $10
	`

	result, err := r.conn.Exec(ctx, query,
		course.OwnerID,
		course.Title,
		course.Cost.AmountCents,
		string(course.Cost.Currency),
		course.OffersCertificate,
		string(course.CertificateMode),
		course.InstructorCertificateRelease,
		course.IsActive,
		course.UpdatedAt,
		string(course.ID),
	)
	if err != nil {
		return fmt.Errorf("failed to update course: %w", err)
	}

	if result.RowsAffected() == 0 {
		return shared.ErrCourseNotFound
	}

	return nil
}

// Delete deletes a course row. Child entities are deleted by the
// cascade orchestrator before this is called.
func (r *CourseRepository) Delete(ctx context.Context, id shared.CourseID) error {
	result, err := r.conn.Exec(ctx, `DELETE FROM courses WHERE id = $1`, string(id))
	if err != nil {
		return fmt.Errorf("failed to delete course: %w", err)
	}

	if result.RowsAffected() == 0 {
		return shared.ErrCourseNotFound
	}

	return nil
}

func scanCourse(row pgx.Row) (*catalog.Course, error) {
	var c catalog.Course
	var id, currency, mode string

	err := row.Scan(
		&id,
		&c.OwnerID,
		&c.Title,
		&c.Cost.AmountCents,
		&currency,
		&c.OffersCertificate,
		&mode,
		&c.InstructorCertificateRelease,
		&c.IsActive,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrCourseNotFound
		}
		return nil, fmt.Errorf("failed to scan course: %w", err)
	}

	c.ID = shared.CourseID(id)
	c.Cost.Currency = shared.Currency(currency)
	c.CertificateMode = catalog.CertificateMode(mode)
	return &c, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// GROUP REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// GroupRepository implements catalog.GroupRepository for PostgreSQL.
type GroupRepository struct {
	conn *Connection
}

// NewGroupRepository creates a new GroupRepository.
func NewGroupRepository(conn *Connection) *GroupRepository {
	return &GroupRepository{conn: conn}
}

// Create creates a group.
func (r *GroupRepository) Create(ctx context.Context, group *catalog.Group) error {
	query := `
		INSERT INTO course_groups (id, course_id, name, created_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.conn.Exec(ctx, query,
		string(group.ID),
		string(group.CourseID),
		group.Name,
		group.CreatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create group: %w", err)
	}

	return nil
}

// GetByID returns a group by ID.
func (r *GroupRepository) GetByID(ctx context.Context, id shared.GroupID) (*catalog.Group, error) {
	query := `SELECT id, course_id, name, created_at FROM course_groups WHERE id = $1`

	var g catalog.Group
	var groupID, courseID string

	err := r.conn.QueryRow(ctx, query, string(id)).Scan(&groupID, &courseID, &g.Name, &g.CreatedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrGroupNotFound
		}
		return nil, fmt.Errorf("failed to scan group: %w", err)
	}

	g.ID = shared.GroupID(groupID)
	g.CourseID = shared.CourseID(courseID)
	return &g, nil
}

// GetByCourse returns all groups of a course.
func (r *GroupRepository) GetByCourse(ctx context.Context, courseID shared.CourseID) ([]*catalog.Group, error) {
	query := `
		SELECT id, course_id, name, created_at
		FROM course_groups
		WHERE course_id = $1
		ORDER BY created_at
	`

	rows, err := r.conn.Query(ctx, query, string(courseID))
	if err != nil {
		return nil, fmt.Errorf("failed to query groups: %w", err)
	}
	defer rows.Close()

	var groups []*catalog.Group
	for rows.Next() {
		var g catalog.Group
		var id, cid string
		if err := rows.Scan(&id, &cid, &g.Name, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		g.ID = shared.GroupID(id)
		g.CourseID = shared.CourseID(cid)
		groups = append(groups, &g)
	}

	return groups, rows.Err()
}

// DeleteByCourse deletes all groups of a course.
func (r *GroupRepository) DeleteByCourse(ctx context.Context, courseID shared.CourseID) (int, error) {
	result, err := r.conn.Exec(ctx, `DELETE FROM course_groups WHERE course_id = $1`, string(courseID))
	if err != nil {
		return 0, fmt.Errorf("failed to delete groups: %w", err)
	}
	return int(result.RowsAffected()), nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SECTION REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// SectionRepository implements catalog.SectionRepository for PostgreSQL.
type SectionRepository struct {
	conn *Connection
}

// NewSectionRepository creates a new SectionRepository.
func NewSectionRepository(conn *Connection) *SectionRepository {
	return &SectionRepository{conn: conn}
}

const sectionColumns = `id, course_id, group_id, title, is_free, price_cents, currency,
	sort_order, is_active, created_at, updated_at`

// Create creates a section.
func (r *SectionRepository) Create(ctx context.Context, section *catalog.Section) error {
	query := `
		INSERT INTO sections (` + sectionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.conn.Exec(ctx, query,
		string(section.ID),
		string(section.CourseID),
		string(section.GroupID),
		section.Title,
		section.IsFree,
		section.Price.AmountCents,
		string(section.Price.Currency),
		section.Order,
		section.IsActive,
		section.CreatedAt,
		section.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create section: %w", err)
	}

	return nil
}

// GetByID returns a section by ID.
func (r *SectionRepository) GetByID(ctx context.Context, id shared.SectionID) (*catalog.Section, error) {
	query := `SELECT ` + sectionColumns + ` FROM sections WHERE id = $1`

	row := r.conn.QueryRow(ctx, query, string(id))
	section, err := scanSection(row)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrSectionNotFound
		}
		return nil, err
	}
	return section, nil
}

// GetByCourse returns the sections of a course ordered by position.
func (r *SectionRepository) GetByCourse(ctx context.Context, courseID shared.CourseID) ([]*catalog.Section, error) {
	query := `SELECT ` + sectionColumns + ` FROM sections WHERE course_id = $1 ORDER BY sort_order`
	return r.querySections(ctx, query, string(courseID))
}

// GetByGroup returns the sections of a group ordered by position.
func (r *SectionRepository) GetByGroup(ctx context.Context, groupID shared.GroupID) ([]*catalog.Section, error) {
	query := `SELECT ` + sectionColumns + ` FROM sections WHERE group_id = $1 ORDER BY sort_order`
	return r.querySections(ctx, query, string(groupID))
}

// GetActivePaidByCourse returns active paid sections; these are the
// sections that count towards the paid-section total of a course.
func (r *SectionRepository) GetActivePaidByCourse(ctx context.Context, courseID shared.CourseID) ([]*catalog.Section, error) {
	query := `
		SELECT ` + sectionColumns + `
		FROM sections
		WHERE course_id = $1 AND is_active AND NOT is_free AND price_cents > 0
		ORDER BY sort_order
	`
	return r.querySections(ctx, query, string(courseID))
}

// Update updates a section.
func (r *SectionRepository) Update(ctx context.Context, section *catalog.Section) error {
	query := `
		UPDATE sections SET
			title = $1,
			is_free = $2,
			price_cents = $3,
			currency = $4,
			sort_order = $5,
			is_active = $6,
			updated_at = $7
		WHERE id = $8
	`

	result, err := r.conn.Exec(ctx, query,
		section.Title,
		section.IsFree,
		section.Price.AmountCents,
		string(section.Price.Currency),
		section.Order,
		section.IsActive,
		section.UpdatedAt,
		string(section.ID),
	)
	if err != nil {
		return fmt.Errorf("failed to update section: %w", err)
	}

	if result.RowsAffected() == 0 {
		return shared.ErrSectionNotFound
	}

	return nil
}

// DeleteByCourse deletes all sections of a course.
func (r *SectionRepository) DeleteByCourse(ctx context.Context, courseID shared.CourseID) (int, error) {
	result, err := r.conn.Exec(ctx, `DELETE FROM sections WHERE course_id = $1`, string(courseID))
	if err != nil {
		return 0, fmt.Errorf("failed to delete sections: %w", err)
	}
	return int(result.RowsAffected()), nil
}

func (r *SectionRepository) querySections(ctx context.Context, query string, arg any) ([]*catalog.Section, error) {
	rows, err := r.conn.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query sections: %w", err)
	}
	defer rows.Close()

	var sections []*catalog.Section
	for rows.Next() {
		section, err := scanSection(rows)
		if err != nil {
			return nil, err
		}
		sections = append(sections, section)
	}

	return sections, rows.Err()
}

func scanSection(row pgx.Row) (*catalog.Section, error) {
	var s catalog.Section
	var id, courseID, groupID, currency string

	err := row.Scan(
		&id,
		&courseID,
		&groupID,
		&s.Title,
		&s.IsFree,
		&s.Price.AmountCents,
		&currency,
		&s.Order,
		&s.IsActive,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan section: %w", err)
	}

	s.ID = shared.SectionID(id)
	s.CourseID = shared.CourseID(courseID)
	s.GroupID = shared.GroupID(groupID)
	s.Price.Currency = shared.Currency(currency)
	return &s, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// CONTENT REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// ContentRepository implements catalog.ContentRepository for PostgreSQL.
type ContentRepository struct {
	conn *Connection
}

// NewContentRepository creates a new ContentRepository.
func NewContentRepository(conn *Connection) *ContentRepository {
	return &ContentRepository{conn: conn}
}

const contentColumns = `id, section_id, course_id, kind, title, sort_order, created_at`

// Create creates a content item.
func (r *ContentRepository) Create(ctx context.Context, content *catalog.Content) error {
	query := `
		INSERT INTO contents (` + contentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.conn.Exec(ctx, query,
		string(content.ID),
		string(content.SectionID),
		string(content.CourseID),
		string(content.Kind),
		content.Title,
		content.Order,
		content.CreatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create content: %w", err)
	}

	return nil
}

// GetByID returns a content item by ID.
func (r *ContentRepository) GetByID(ctx context.Context, id shared.ContentID) (*catalog.Content, error) {
	query := `SELECT ` + contentColumns + ` FROM contents WHERE id = $1`

	content, err := scanContent(r.conn.QueryRow(ctx, query, string(id)))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrContentNotFound
		}
		return nil, err
	}
	return content, nil
}

// GetBySection returns the content of a section ordered by position.
func (r *ContentRepository) GetBySection(ctx context.Context, sectionID shared.SectionID) ([]*catalog.Content, error) {
	query := `SELECT ` + contentColumns + ` FROM contents WHERE section_id = $1 ORDER BY sort_order`
	return r.queryContents(ctx, query, string(sectionID))
}

// GetByGroup returns all content of the sections belonging to a group.
func (r *ContentRepository) GetByGroup(ctx context.Context, groupID shared.GroupID) ([]*catalog.Content, error) {
	query := `
		SELECT c.id, c.section_id, c.course_id, c.kind, c.title, c.sort_order, c.created_at
		FROM contents c
		JOIN sections s ON s.id = c.section_id
		WHERE s.group_id = $1
		ORDER BY s.sort_order, c.sort_order
	`
	return r.queryContents(ctx, query, string(groupID))
}

// DeleteByCourse deletes all content of a course.
func (r *ContentRepository) DeleteByCourse(ctx context.Context, courseID shared.CourseID) (int, error) {
	result, err := r.conn.Exec(ctx, `DELETE FROM contents WHERE course_id = $1`, string(courseID))
	if err != nil {
		return 0, fmt.Errorf("failed to delete contents: %w", err)
	}
	return int(result.RowsAffected()), nil
}

func (r *ContentRepository) queryContents(ctx context.Context, query string, arg any) ([]*catalog.Content, error) {
	rows, err := r.conn.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query contents: %w", err)
	}
	defer rows.Close()

	var contents []*catalog.Content
	for rows.Next() {
		content, err := scanContent(rows)
		if err != nil {
			return nil, err
		}
		contents = append(contents, content)
	}

	return contents, rows.Err()
}

func scanContent(row pgx.Row) (*catalog.Content, error) {
	var c catalog.Content
	var id, sectionID, courseID, kind string

	err := row.Scan(&id, &sectionID, &courseID, &kind, &c.Title, &c.Order, &c.CreatedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan content: %w", err)
	}

	c.ID = shared.ContentID(id)
	c.SectionID = shared.SectionID(sectionID)
	c.CourseID = shared.CourseID(courseID)
	c.Kind = catalog.ContentKind(kind)
	return &c, nil
}
