package services

import (
	"context"
	"log/slog"
	"policy-lifecycle/internal/models"
	"time"

	"github.com/google/uuid"
)

// The engines consume the ledger through these interfaces so every transition
// is expressed in terms of Get / compare-and-swap / ListPendingDeadlines. The
// sqlx repositories implement them in production; engine tests run against
// in-memory fakes with the same CAS contract.

type PolicyStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.RegisteredPolicy, error)
	Create(ctx context.Context, policy *models.RegisteredPolicy) error
	SwapStatus(ctx context.Context, id uuid.UUID, expected, next models.PolicyStatus) error
	SwapUnderwriting(ctx context.Context, policy *models.RegisteredPolicy, expected models.PolicyStatus) error
	SwapPremiumPaid(ctx context.Context, id uuid.UUID, paidAt int64) error
}

type CancelRequestStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.CancelRequest, error)
	GetActiveByPolicyID(ctx context.Context, policyID uuid.UUID) (*models.CancelRequest, error)
	Create(ctx context.Context, cancelRequest *models.CancelRequest) error
	Swap(ctx context.Context, cancelRequest *models.CancelRequest, expected models.CancelRequestStatus) error
}

type ClaimStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Claim, error)
	Create(ctx context.Context, claim *models.Claim) error
	Swap(ctx context.Context, claim *models.Claim, expected models.ClaimStatus) error
	ListPendingDeadlines(ctx context.Context, before int64) ([]uuid.UUID, error)
}

type PayoutStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Payout, error)
	GetByClaimID(ctx context.Context, claimID uuid.UUID) (*models.Payout, error)
	Create(ctx context.Context, payout *models.Payout) error
	Swap(ctx context.Context, payout *models.Payout, expected models.PayoutStatus) error
	SwapConfirmed(ctx context.Context, payout *models.Payout) error
}

// AuditSink receives the append-only transition log. Failures must not roll
// back the transition that produced the event.
type AuditSink interface {
	Append(ctx context.Context, event models.AuditEvent) error
}

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the wall clock used outside tests.
var SystemClock Clock = systemClock{}

// emitAudit appends a transition record, logging and swallowing sink failures.
func emitAudit(ctx context.Context, sink AuditSink, clock Clock, entityType models.AuditEntityType, entityID uuid.UUID, from, to, actorID, reason string) {
	if sink == nil {
		return
	}
	event := models.AuditEvent{
		EntityType: entityType,
		EntityID:   entityID,
		FromStatus: from,
		ToStatus:   to,
		ActorID:    actorID,
		Reason:     reason,
		OccurredAt: clock.Now().Unix(),
	}
	if err := sink.Append(ctx, event); err != nil {
		slog.Error("audit append failed", "entity_type", entityType, "entity_id", entityID, "error", err)
	}
}
