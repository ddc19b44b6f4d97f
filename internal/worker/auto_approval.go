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

const autoApprovalLockKey = "policy-lifecycle:auto-approval-sweep"

// DeadlineLister lists claims whose partner review window has lapsed.
type DeadlineLister interface {
	ListPendingDeadlines(ctx context.Context, before int64) ([]uuid.UUID, error)
}

// ClaimAutoApprover promotes a single overdue claim.
type ClaimAutoApprover interface {
	AutoApprove(ctx context.Context, claimID uuid.UUID) (*models.Claim, error)
}

// NewAutoApprovalSweep builds the job that auto-approves claims whose partner
// review deadline has passed. A claim that a partner decided between the list
// and the approve comes back as a conflict, which the sweep drops: the
// partner's decision already won.
func NewAutoApprovalSweep(claims DeadlineLister, engine ClaimAutoApprover, lock Locker, clock services.Clock, lockTTL time.Duration) Job {
	return func(ctx context.Context) error {
		if lock != nil {
			acquired, err := lock.TryAcquire(ctx, autoApprovalLockKey, lockTTL)
			if err != nil {
				// Lock failure degrades to running anyway; transitions stay
				// safe under concurrent sweeps.
				slog.Warn("auto-approval lock unavailable, sweeping without it", "error", err)
			} else if !acquired {
				return nil
			}
		}

		ids, err := claims.ListPendingDeadlines(ctx, clock.Now().Unix())
		if err != nil {
			return fmt.Errorf("failed to list overdue claims: %w", err)
		}
		if len(ids) == 0 {
			return nil
		}

		slog.Info("Auto-approval sweep found overdue claims", "count", len(ids))

		for _, id := range ids {
			if _, err := engine.AutoApprove(ctx, id); err != nil {
				if errors.Is(err, models.ErrConflict) || errors.Is(err, models.ErrNotFound) {
					slog.Debug("claim decided before sweep reached it", "claim_id", id)
					continue
				}
				slog.Error("failed to auto-approve claim", "claim_id", id, "error", err)
			}
		}
		return nil
	}
}
