// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

// ═══════════════════════════════════════════════════════════════════════════
// ID Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// UUID validation regex (simple version).
var uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// StudentID represents a unique student identifier (UUID format).
type StudentID string

// IsValid checks if the student ID is a valid UUID.
func (s StudentID) IsValid() bool {
	return uuidRegex.MatchString(string(s))
}

// String returns the string representation.
func (s StudentID) String() string {
	return string(s)
}

// IsEmpty checks if the ID is empty.
func (s StudentID) IsEmpty() bool {
	return s == ""
}

// NewStudentID creates a new StudentID with validation.
func NewStudentID(id string) (StudentID, error) {
	sid := StudentID(strings.ToLower(strings.TrimSpace(id)))
	if !sid.IsValid() {
		return "", NewDomainError("shared", "NewStudentID", ErrInvalidID, "invalid student ID format")
	}
	return sid, nil
}

// CourseID represents a unique course identifier (UUID format).
type CourseID string

// IsValid checks if the course ID is a valid UUID.
func (c CourseID) IsValid() bool {
	return uuidRegex.MatchString(string(c))
}

// String returns the string representation.
func (c CourseID) String() string {
	return string(c)
}

// IsEmpty checks if the ID is empty.
func (c CourseID) IsEmpty() bool {
	return c == ""
}

// GroupID represents a unique group identifier within a course.
type GroupID string

// IsValid checks if the group ID is a valid UUID.
func (g GroupID) IsValid() bool {
	return uuidRegex.MatchString(string(g))
}

// String returns the string representation.
func (g GroupID) String() string {
	return string(g)
}

// IsEmpty checks if the ID is empty.
func (g GroupID) IsEmpty() bool {
	return g == ""
}

// SectionID represents a unique section identifier.
type SectionID string

// IsValid checks if the section ID is a valid UUID.
func (s SectionID) IsValid() bool {
	return uuidRegex.MatchString(string(s))
}

// String returns the string representation.
func (s SectionID) String() string {
	return string(s)
}

// IsEmpty checks if the ID is empty.
func (s SectionID) IsEmpty() bool {
	return s == ""
}

// ContentID represents a unique content item identifier.
type ContentID string

// IsValid checks if the content ID is a valid UUID.
func (c ContentID) IsValid() bool {
	return uuidRegex.MatchString(string(c))
}

// String returns the string representation.
func (c ContentID) String() string {
	return string(c)
}

// IsEmpty checks if the ID is empty.
func (c ContentID) IsEmpty() bool {
	return c == ""
}

// ═══════════════════════════════════════════════════════════════════════════
// Role Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Role represents the caller's role as supplied by the external identity layer.
// The engine never authenticates; it only consumes the role for ownership checks.
type Role string

const (
	RoleStudent    Role = "student"
	RoleInstructor Role = "instructor"
	RoleAdmin      Role = "admin"
)

// IsValid checks if the role is known.
func (r Role) IsValid() bool {
	switch r {
	case RoleStudent, RoleInstructor, RoleAdmin:
		return true
	default:
		return false
	}
}

// IsAdmin returns true for platform administrators.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

// Actor identifies the caller of a command: who they are and what they may do.
type Actor struct {
	// ID is the caller's identifier (student or instructor UUID).
	ID string

	// Role is the caller's role.
	Role Role
}

// CanManageCourse reports whether the actor may mutate a course owned by ownerID.
func (a Actor) CanManageCourse(ownerID string) bool {
	return a.Role.IsAdmin() || (a.Role == RoleInstructor && a.ID == ownerID)
}

// ═══════════════════════════════════════════════════════════════════════════
// Money Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Currency represents an ISO 4217 currency code.
type Currency string

var currencyRegex = regexp.MustCompile(`^[A-Z]{3}$`)

// IsValid checks if the currency code looks like ISO 4217.
func (c Currency) IsValid() bool {
	return currencyRegex.MatchString(string(c))
}

// String returns the string representation.
func (c Currency) String() string {
	return string(c)
}

// Money represents a monetary amount in whole currency subunits (cents).
// Amounts are never stored as floats: money must not drift.
type Money struct {
	// AmountCents is the amount in the smallest currency subunit.
	AmountCents int64

	// Currency is the ISO 4217 currency code.
	Currency Currency
}

// NewMoney creates a new Money value with validation.
// Negative amounts are rejected, never clamped.
func NewMoney(amountCents int64, currency Currency) (Money, error) {
	if amountCents < 0 {
		return Money{}, NewDomainError("shared", "NewMoney", ErrNegativeValue, "amount cannot be negative")
	}
	if !currency.IsValid() {
		return Money{}, NewDomainError("shared", "NewMoney", ErrInvalidFormat, "invalid currency code")
	}
	return Money{AmountCents: amountCents, Currency: currency}, nil
}

// IsZero returns true for a zero amount.
func (m Money) IsZero() bool {
	return m.AmountCents == 0
}

// Add returns the sum of two amounts of the same currency.
func (m Money) Add(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, ErrCurrencyMismatch
	}
	return Money{AmountCents: m.AmountCents + other.AmountCents, Currency: m.Currency}, nil
}

// LessOrEqual reports whether m <= other, ignoring currency.
func (m Money) LessOrEqual(other Money) bool {
	return m.AmountCents <= other.AmountCents
}

// String returns a human-readable representation for logging.
func (m Money) String() string {
	return fmt.Sprintf("%d.%02d %s", m.AmountCents/100, m.AmountCents%100, m.Currency)
}

// ScaleHalfUp multiplies the amount by num/den, rounding half-up to a whole
// subunit. Pure integer arithmetic: round-half-up of a/b is (2a+b)/(2b).
func (m Money) ScaleHalfUp(num, den int64) Money {
	if den <= 0 {
		return m
	}
	scaled := (2*m.AmountCents*num + den) / (2 * den)
	return Money{AmountCents: scaled, Currency: m.Currency}
}

// ═══════════════════════════════════════════════════════════════════════════
// Percent Value Object (grades)
// ═══════════════════════════════════════════════════════════════════════════

// Percent represents a grade percentage in [0, 100].
type Percent float64

const (
	MinPercent Percent = 0
	MaxPercent Percent = 100
)

// IsValid checks if the percentage is within valid range.
func (p Percent) IsValid() bool {
	return p >= MinPercent && p <= MaxPercent
}

// Float64 returns the underlying float64 value.
func (p Percent) Float64() float64 {
	return float64(p)
}

// Clamp forces the value into [0, 100]. Grade values are clamped silently
// on write; prices are rejected instead (see Money).
func (p Percent) Clamp() Percent {
	if p < MinPercent {
		return MinPercent
	}
	if p > MaxPercent {
		return MaxPercent
	}
	return p
}

// Round2 rounds to 2 decimal places.
func (p Percent) Round2() Percent {
	return Percent(math.Round(float64(p)*100) / 100)
}

// ═══════════════════════════════════════════════════════════════════════════
// Pagination Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Pagination represents pagination parameters.
type Pagination struct {
	Page     int
	PageSize int
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Offset returns the offset for database queries.
func (p Pagination) Offset() int {
	if p.Page <= 0 {
		return 0
	}
	return (p.Page - 1) * p.Limit()
}

// Limit returns the limit for database queries.
func (p Pagination) Limit() int {
	if p.PageSize <= 0 {
		return DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		return MaxPageSize
	}
	return p.PageSize
}

// NewPagination creates a new Pagination with defaults.
func NewPagination(page, pageSize int) Pagination {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return Pagination{Page: page, PageSize: pageSize}
}
