package scheduler

import (
	"context"
	"errors"
	"fmt"

	"github.com/edu-hub/course-platform-core/internal/application/command"
	"github.com/edu-hub/course-platform-core/internal/domain/pricing"
	"github.com/edu-hub/course-platform-core/internal/domain/shared"
	"github.com/edu-hub/course-platform-core/pkg/circuitbreaker"
	"github.com/edu-hub/course-platform-core/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// EXPIRE PENDING COST CHANGES
// The expiry on a cost change proposal is advisory: nothing blocks a
// confirmation after it passes. This job sweeps stale proposals so they
// do not pile up and block instructors from proposing new changes.
// ══════════════════════════════════════════════════════════════════════════════

// expireBatchSize caps how many stale proposals one sweep handles.
const expireBatchSize = 100

// CostChangeCanceler cancels a single pending cost change proposal.
// Satisfied by command.CancelCostChangeHandler.
type CostChangeCanceler interface {
	Handle(ctx context.Context, cmd command.CancelCostChangeCommand) (*command.CancelCostChangeResult, error)
}

// ExpirePendingChangesJob cancels cost change proposals whose expiry passed.
type ExpirePendingChangesJob struct {
	pendingRepo pricing.PendingChangeRepository
	canceler    CostChangeCanceler
	breaker     *circuitbreaker.CircuitBreaker
	log         *logger.Logger
}

// NewExpirePendingChangesJob creates a new ExpirePendingChangesJob.
func NewExpirePendingChangesJob(
	pendingRepo pricing.PendingChangeRepository,
	canceler CostChangeCanceler,
	log *logger.Logger,
) *ExpirePendingChangesJob {
	jobLog := log.With(logger.Component("expire_pending_changes_job"))

	return &ExpirePendingChangesJob{
		pendingRepo: pendingRepo,
		canceler:    canceler,
		breaker: circuitbreaker.DatabaseBreaker(func(name string, from, to circuitbreaker.State) {
			jobLog.Warn("circuit breaker state changed",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
		}),
		log: jobLog,
	}
}

// Name returns the job name.
func (j *ExpirePendingChangesJob) Name() string {
	return "expire_pending_cost_changes"
}

// Description returns the job description.
func (j *ExpirePendingChangesJob) Description() string {
	return "Cancels pending cost change proposals whose expiry has passed"
}

// Run sweeps expired proposals and cancels each one. The listing query
// goes through a circuit breaker: when the database is down, the job
// skips the sweep instead of hammering it on every tick.
func (j *ExpirePendingChangesJob) Run(ctx context.Context) error {
	var expired []*pricing.PendingCostChange
	err := j.breaker.Execute(ctx, func(ctx context.Context) error {
		var listErr error
		expired, listErr = j.pendingRepo.GetExpiredPending(ctx, expireBatchSize)
		return listErr
	})
	if err != nil {
		if errors.Is(err, circuitbreaker.ErrCircuitOpen) || errors.Is(err, circuitbreaker.ErrTooManyRequests) {
			j.log.Warn("database circuit open, skipping sweep")
			return nil
		}
		return fmt.Errorf("list expired pending changes: %w", err)
	}

	if len(expired) == 0 {
		return nil
	}

	j.log.Info("sweeping expired cost changes", logger.Int("count", len(expired)))

	var failed int
	for _, change := range expired {
		cmd := command.CancelCostChangeCommand{
			PendingChangeID: change.ID,
			Reason:          command.CancelReasonExpired,
		}

		if _, err := j.canceler.Handle(ctx, cmd); err != nil {
			// A change resolved between the sweep and the cancel is fine.
			if errors.Is(err, shared.ErrInvalidState) || errors.Is(err, shared.ErrNotFound) {
				continue
			}

			failed++
			j.log.Error("failed to cancel expired change",
				logger.String("pending_change_id", change.ID),
				logger.CourseID(change.CourseID.String()),
				logger.Err(err),
			)
		}
	}

	if failed > 0 {
		return fmt.Errorf("cancel expired changes: %d of %d failed", failed, len(expired))
	}

	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SETTINGS CACHE REFRESH
// ══════════════════════════════════════════════════════════════════════════════

// SettingsSource re-reads the platform settings after invalidation.
type SettingsSource interface {
	Invalidate(ctx context.Context) error
}

// RefreshSettingsCacheJob drops the cached platform settings so the next
// read picks up changes made directly in storage.
type RefreshSettingsCacheJob struct {
	cache SettingsSource
	log   *logger.Logger
}

// NewRefreshSettingsCacheJob creates a new RefreshSettingsCacheJob.
func NewRefreshSettingsCacheJob(cache SettingsSource, log *logger.Logger) *RefreshSettingsCacheJob {
	return &RefreshSettingsCacheJob{
		cache: cache,
		log:   log.With(logger.Component("refresh_settings_cache_job")),
	}
}

// Name returns the job name.
func (j *RefreshSettingsCacheJob) Name() string {
	return "refresh_settings_cache"
}

// Description returns the job description.
func (j *RefreshSettingsCacheJob) Description() string {
	return "Invalidates the cached platform settings"
}

// Run drops the cached settings.
func (j *RefreshSettingsCacheJob) Run(ctx context.Context) error {
	if err := j.cache.Invalidate(ctx); err != nil {
		return fmt.Errorf("invalidate settings cache: %w", err)
	}
	return nil
}
