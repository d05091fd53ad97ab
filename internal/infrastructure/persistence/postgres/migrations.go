// Package postgres implements the PostgreSQL persistence layer for the
// course platform core.
package postgres

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: CATALOG
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Migration: Create catalog tables
-- Version: 001

CREATE TABLE IF NOT EXISTS courses (
    id UUID PRIMARY KEY,
    owner_id UUID NOT NULL,
    title VARCHAR(200) NOT NULL,
    cost_cents BIGINT NOT NULL DEFAULT 0,
    currency CHAR(3) NOT NULL DEFAULT 'USD',
    offers_certificate BOOLEAN NOT NULL DEFAULT FALSE,
    certificate_mode VARCHAR(20) NOT NULL DEFAULT 'disabled',
    instructor_certificate_release BOOLEAN NOT NULL DEFAULT FALSE,
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_certificate_mode CHECK (certificate_mode IN ('automatic', 'manual_instructor', 'disabled')),
    CONSTRAINT non_negative_cost CHECK (cost_cents >= 0)
);

CREATE INDEX IF NOT EXISTS idx_courses_owner ON courses(owner_id);

CREATE TABLE IF NOT EXISTS course_groups (
    id UUID PRIMARY KEY,
    course_id UUID NOT NULL REFERENCES courses(id),
    name VARCHAR(100) NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_course_groups_course ON course_groups(course_id);

CREATE TABLE IF NOT EXISTS sections (
    id UUID PRIMARY KEY,
    course_id UUID NOT NULL REFERENCES courses(id),
    group_id UUID NOT NULL,
    title VARCHAR(200) NOT NULL,
    is_free BOOLEAN NOT NULL DEFAULT FALSE,
    price_cents BIGINT NOT NULL DEFAULT 0,
    currency CHAR(3) NOT NULL DEFAULT 'USD',
    sort_order INTEGER NOT NULL DEFAULT 0,
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT non_negative_price CHECK (price_cents >= 0)
);

CREATE INDEX IF NOT EXISTS idx_sections_course ON sections(course_id, sort_order);
CREATE INDEX IF NOT EXISTS idx_sections_group ON sections(group_id, sort_order);

CREATE TABLE IF NOT EXISTS contents (
    id UUID PRIMARY KEY,
    section_id UUID NOT NULL REFERENCES sections(id),
    course_id UUID NOT NULL REFERENCES courses(id),
    kind VARCHAR(20) NOT NULL,
    title VARCHAR(200) NOT NULL,
    sort_order INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_kind CHECK (kind IN ('lecture', 'assignment', 'project', 'test'))
);

CREATE INDEX IF NOT EXISTS idx_contents_section ON contents(section_id, sort_order);
CREATE INDEX IF NOT EXISTS idx_contents_course ON contents(course_id);
`

const migration001Down = `
DROP TABLE IF EXISTS contents;
DROP TABLE IF EXISTS sections;
DROP TABLE IF EXISTS course_groups;
DROP TABLE IF EXISTS courses;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: ENROLLMENTS AND PAYMENTS
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- Migration: Create enrollment tables
-- Version: 002

CREATE TABLE IF NOT EXISTS enrollments (
    id UUID PRIMARY KEY,
    student_id UUID NOT NULL,
    course_id UUID NOT NULL REFERENCES courses(id),
    group_id UUID NOT NULL,
    enrolled_sections JSONB NOT NULL DEFAULT '[]'::jsonb,
    status VARCHAR(20) NOT NULL DEFAULT 'enrolled',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_enrollment_status CHECK (status IN ('pending', 'approved', 'enrolled', 'completed', 'rejected')),
    CONSTRAINT unique_student_course UNIQUE (student_id, course_id)
);

CREATE INDEX IF NOT EXISTS idx_enrollments_course ON enrollments(course_id);
CREATE INDEX IF NOT EXISTS idx_enrollments_group ON enrollments(group_id);

CREATE TABLE IF NOT EXISTS section_payments (
    id UUID PRIMARY KEY,
    student_id UUID NOT NULL,
    section_id UUID NOT NULL,
    course_id UUID NOT NULL REFERENCES courses(id),
    amount_cents BIGINT NOT NULL,
    currency CHAR(3) NOT NULL DEFAULT 'USD',
    status VARCHAR(20) NOT NULL DEFAULT 'pending',
    submitted_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    processed_at TIMESTAMP WITH TIME ZONE,

    CONSTRAINT valid_payment_status CHECK (status IN ('pending', 'approved', 'rejected')),
    CONSTRAINT non_negative_amount CHECK (amount_cents >= 0)
);

CREATE INDEX IF NOT EXISTS idx_payments_student_section ON section_payments(student_id, section_id, submitted_at DESC);
CREATE INDEX IF NOT EXISTS idx_payments_course ON section_payments(course_id);
CREATE INDEX IF NOT EXISTS idx_payments_pending ON section_payments(status) WHERE status = 'pending';
`

const migration002Down = `
DROP TABLE IF EXISTS section_payments;
DROP TABLE IF EXISTS enrollments;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: GRADES
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
-- Migration: Create grade tables
-- Version: 003

CREATE TABLE IF NOT EXISTS content_grades (
    student_id UUID NOT NULL,
    content_id UUID NOT NULL,
    section_id UUID NOT NULL,
    course_id UUID NOT NULL REFERENCES courses(id),
    status VARCHAR(20) NOT NULL DEFAULT 'not_delivered',
    grade_percent DOUBLE PRECISION NOT NULL DEFAULT 0,
    feedback TEXT NOT NULL DEFAULT '',
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_grade_status CHECK (status IN ('not_delivered', 'submitted_ungraded', 'graded', 'watched')),
    CONSTRAINT valid_grade_percent CHECK (grade_percent >= 0 AND grade_percent <= 100),
    PRIMARY KEY (student_id, content_id)
);

CREATE INDEX IF NOT EXISTS idx_content_grades_section ON content_grades(student_id, section_id);
CREATE INDEX IF NOT EXISTS idx_content_grades_course ON content_grades(course_id);

-- Section grades are derived state: rewritten on every content grade
-- write, never edited by hand. A NULL grade means nothing gradable yet.
CREATE TABLE IF NOT EXISTS section_grades (
    student_id UUID NOT NULL,
    section_id UUID NOT NULL,
    course_id UUID NOT NULL REFERENCES courses(id),
    grade DOUBLE PRECISION,
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_section_grade CHECK (grade IS NULL OR (grade >= 0 AND grade <= 100)),
    PRIMARY KEY (student_id, section_id)
);

CREATE INDEX IF NOT EXISTS idx_section_grades_course ON section_grades(course_id);
`

const migration003Down = `
DROP TABLE IF EXISTS section_grades;
DROP TABLE IF EXISTS content_grades;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 004: CERTIFICATES
// ══════════════════════════════════════════════════════════════════════════════

const migration004Up = `
-- Migration: Create certificates table
-- Version: 004

CREATE TABLE IF NOT EXISTS certificates (
    id UUID PRIMARY KEY,
    student_id UUID NOT NULL,
    course_id UUID NOT NULL REFERENCES courses(id),
    group_id UUID NOT NULL,
    status VARCHAR(20) NOT NULL,
    grade DOUBLE PRECISION NOT NULL DEFAULT 0,
    requested_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    issued_at TIMESTAMP WITH TIME ZONE,

    CONSTRAINT valid_certificate_status CHECK (status IN ('pending', 'issued')),
    CONSTRAINT unique_student_course_certificate UNIQUE (student_id, course_id)
);

CREATE INDEX IF NOT EXISTS idx_certificates_course ON certificates(course_id);
`

const migration004Down = `
DROP TABLE IF EXISTS certificates;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 005: PRICING AND SETTINGS
// ══════════════════════════════════════════════════════════════════════════════

const migration005Up = `
-- Migration: Create pricing and settings tables
-- Version: 005

CREATE TABLE IF NOT EXISTS pending_cost_changes (
    id UUID PRIMARY KEY,
    course_id UUID NOT NULL REFERENCES courses(id),
    instructor_id UUID NOT NULL,
    old_cost_cents BIGINT NOT NULL,
    new_cost_cents BIGINT NOT NULL,
    total_paid_cents BIGINT NOT NULL,
    currency CHAR(3) NOT NULL DEFAULT 'USD',
    scale_factor DOUBLE PRECISION NOT NULL,
    affected_sections JSONB NOT NULL DEFAULT '[]'::jsonb,
    status VARCHAR(20) NOT NULL DEFAULT 'pending',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    expires_at TIMESTAMP WITH TIME ZONE NOT NULL,
    resolved_at TIMESTAMP WITH TIME ZONE,

    CONSTRAINT valid_change_status CHECK (status IN ('pending', 'approved_auto', 'approved_manual', 'cancelled'))
);

-- At most one unresolved change per course.
CREATE UNIQUE INDEX IF NOT EXISTS idx_pending_cost_changes_one_pending
    ON pending_cost_changes(course_id) WHERE status = 'pending';
CREATE INDEX IF NOT EXISTS idx_pending_cost_changes_expiry
    ON pending_cost_changes(expires_at) WHERE status = 'pending';

-- Append-only log: rows are never updated.
CREATE TABLE IF NOT EXISTS price_change_records (
    id UUID PRIMARY KEY,
    course_id UUID NOT NULL,
    actor_id UUID NOT NULL,
    reason VARCHAR(30) NOT NULL,
    old_cost_cents BIGINT NOT NULL,
    new_cost_cents BIGINT NOT NULL,
    currency CHAR(3) NOT NULL DEFAULT 'USD',
    scale_factor DOUBLE PRECISION NOT NULL DEFAULT 0,
    sections JSONB NOT NULL DEFAULT '[]'::jsonb,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_reason CHECK (reason IN ('immediate', 'rescale_confirmed'))
);

CREATE INDEX IF NOT EXISTS idx_price_change_records_course
    ON price_change_records(course_id, created_at DESC);

CREATE TABLE IF NOT EXISTS platform_settings (
    id SMALLINT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
    passing_grade DOUBLE PRECISION NOT NULL DEFAULT 60,
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_passing_grade CHECK (passing_grade >= 0 AND passing_grade <= 100)
);

INSERT INTO platform_settings (id) VALUES (1) ON CONFLICT (id) DO NOTHING;
`

const migration005Down = `
DROP TABLE IF EXISTS platform_settings;
DROP TABLE IF EXISTS price_change_records;
DROP TABLE IF EXISTS pending_cost_changes;
`

// GetMigrations returns all embedded migrations.
func GetMigrations() []Migration {
	return []Migration{
		{Version: 1, Name: "create_catalog", UpSQL: migration001Up, DownSQL: migration001Down},
		{Version: 2, Name: "create_enrollments", UpSQL: migration002Up, DownSQL: migration002Down},
		{Version: 3, Name: "create_grades", UpSQL: migration003Up, DownSQL: migration003Down},
		{Version: 4, Name: "create_certificates", UpSQL: migration004Up, DownSQL: migration004Down},
		{Version: 5, Name: "create_pricing", UpSQL: migration005Up, DownSQL: migration005Down},
	}
}
