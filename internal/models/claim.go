package models

import (
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// CLAIM (TRIGGER-GENERATED SETTLEMENT EVENTS)
// ============================================================================

// Claim is created by the monitoring/trigger subsystem when a policy breach
// condition fires. AutoApprovalDeadline is set while pending_partner_review
// and cleared meaning is lost afterwards; AutoApproved implies status approved
// and ReviewedBy = SystemActorID. A claim is immutable once paid.
type Claim struct {
	ID                        uuid.UUID    `json:"id" db:"id"`
	ClaimNumber               string       `json:"claim_number" db:"claim_number"`
	RegisteredPolicyID        uuid.UUID    `json:"registered_policy_id" db:"registered_policy_id"`
	BasePolicyID              uuid.UUID    `json:"base_policy_id" db:"base_policy_id"`
	FarmID                    uuid.UUID    `json:"farm_id" db:"farm_id"`
	BasePolicyTriggerID       *uuid.UUID   `json:"base_policy_trigger_id,omitempty" db:"base_policy_trigger_id"`
	TriggerTimestamp          int64        `json:"trigger_timestamp" db:"trigger_timestamp"`
	OverThresholdValue        *float64     `json:"over_threshold_value,omitempty" db:"over_threshold_value"`
	CalculatedFixPayout       float64      `json:"calculated_fix_payout" db:"calculated_fix_payout"`
	CalculatedThresholdPayout float64      `json:"calculated_threshold_payout" db:"calculated_threshold_payout"`
	ClaimAmount               float64      `json:"claim_amount" db:"claim_amount"`
	Status                    ClaimStatus  `json:"status" db:"status"`
	AutoGenerated             bool         `json:"auto_generated" db:"auto_generated"`
	PartnerReviewTimestamp    *int64       `json:"partner_review_timestamp,omitempty" db:"partner_review_timestamp"`
	PartnerDecision           *ClaimStatus `json:"partner_decision,omitempty" db:"partner_decision"`
	PartnerNotes              *string      `json:"partner_notes,omitempty" db:"partner_notes"`
	ReviewedBy                *string      `json:"reviewed_by,omitempty" db:"reviewed_by"`
	AutoApprovalDeadline      *int64       `json:"auto_approval_deadline,omitempty" db:"auto_approval_deadline"`
	AutoApproved              bool         `json:"auto_approved" db:"auto_approved"`
	EvidenceSummary           JSONMap      `json:"evidence_summary" db:"evidence_summary"`
	CreatedAt                 time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt                 time.Time    `json:"updated_at" db:"updated_at"`
}
