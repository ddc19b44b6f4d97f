package models

import "github.com/google/uuid"

// SystemActorID is the actor recorded on transitions performed by the service
// itself (auto-approval, payout creation, claim settlement bookkeeping).
const SystemActorID = "system"

type AuditEntityType string

const (
	AuditEntityPolicy        AuditEntityType = "registered_policy"
	AuditEntityCancelRequest AuditEntityType = "cancel_request"
	AuditEntityClaim         AuditEntityType = "claim"
	AuditEntityPayout        AuditEntityType = "payout"
)

// AuditEvent is the append-only record emitted after every committed
// transition. Delivery is fire-and-forget: a failed append never rolls back
// the transition that produced it.
type AuditEvent struct {
	EntityType AuditEntityType `json:"entity_type"`
	EntityID   uuid.UUID       `json:"entity_id"`
	FromStatus string          `json:"from_status"`
	ToStatus   string          `json:"to_status"`
	ActorID    string          `json:"actor_id"`
	Reason     string          `json:"reason,omitempty"`
	OccurredAt int64           `json:"occurred_at"`
}
