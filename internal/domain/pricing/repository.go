package pricing

import (
	"context"

	"github.com/edu-hub/course-platform-core/internal/domain/shared"
)

// PendingChangeRepository defines the interface for pending cost change persistence.
type PendingChangeRepository interface {
	// Create persists a new pending cost change. At most one pending
	// change may exist per course.
	Create(ctx context.Context, change *PendingCostChange) error

	// GetByID retrieves a pending cost change by its ID.
	GetByID(ctx context.Context, id string) (*PendingCostChange, error)

	// GetPendingByCourse retrieves the unresolved change for a course,
	// if any.
	GetPendingByCourse(ctx context.Context, courseID shared.CourseID) (*PendingCostChange, error)

	// GetExpiredPending retrieves unresolved changes whose advisory
	// expiry has passed.
	GetExpiredPending(ctx context.Context, limit int) ([]*PendingCostChange, error)

	// Update persists a status transition.
	Update(ctx context.Context, change *PendingCostChange) error

	// DeleteByCourse removes all changes for a course.
	DeleteByCourse(ctx context.Context, courseID shared.CourseID) error
}

// RecordRepository defines the interface for the immutable price change log.
type RecordRepository interface {
	// Create appends a record to the log.
	Create(ctx context.Context, record *PriceChangeRecord) error

	// GetByCourse retrieves the log for a course, newest first.
	GetByCourse(ctx context.Context, courseID shared.CourseID, p shared.Pagination) ([]*PriceChangeRecord, error)

	// DeleteByCourse removes all records for a course.
	DeleteByCourse(ctx context.Context, courseID shared.CourseID) error
}
