package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"policy-lifecycle/internal/models"
	"policy-lifecycle/internal/services"
	"time"

	"github.com/google/uuid"
)

const expirationLockKey = "policy-lifecycle:coverage-expiration-sweep"

// ExpiredCoverageLister lists active policies whose coverage window ended.
type ExpiredCoverageLister interface {
	ListExpiredCoverage(ctx context.Context, before int64) ([]uuid.UUID, error)
}

// PolicyExpirer retires a single policy whose coverage has lapsed.
type PolicyExpirer interface {
	ExpireCoverage(ctx context.Context, policyID uuid.UUID) error
}

// NewCoverageExpirationSweep builds the job that moves policies whose coverage
// end date has passed from active to expired. Policies caught mid-cancellation
// surface as conflicts and are left for the cancellation workflow to finish.
func NewCoverageExpirationSweep(policies ExpiredCoverageLister, engine PolicyExpirer, lock Locker, clock services.Clock, lockTTL time.Duration) Job {
	return func(ctx context.Context) error {
		if lock != nil {
			acquired, err := lock.TryAcquire(ctx, expirationLockKey, lockTTL)
			if err != nil {
				slog.Warn("expiration lock unavailable, sweeping without it", "error", err)
			} else if !acquired {
				return nil
			}
		}

		ids, err := policies.ListExpiredCoverage(ctx, clock.Now().Unix())
		if err != nil {
			return fmt.Errorf("failed to list expired policies: %w", err)
		}
		if len(ids) == 0 {
			return nil
		}

		slog.Info("Coverage expiration sweep found lapsed policies", "count", len(ids))

		for _, id := range ids {
			if err := engine.ExpireCoverage(ctx, id); err != nil {
				if errors.Is(err, models.ErrConflict) || errors.Is(err, models.ErrNotFound) {
					slog.Debug("policy left active state before sweep reached it", "policy_id", id)
					continue
				}
				slog.Error("failed to expire policy coverage", "policy_id", id, "error", err)
			}
		}
		return nil
	}
}
