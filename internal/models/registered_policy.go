package models

import (
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// REGISTERED POLICY (ACTUAL POLICY INSTANCES)
// ============================================================================

// RegisteredPolicy is never physically deleted: cancelled and expired are
// soft-terminal statuses. Status is only written through CAS updates; the
// Cancellation Workflow Engine is the sole writer of the cancel-related
// statuses (pending_cancel, dispute, cancelled).
type RegisteredPolicy struct {
	ID                  uuid.UUID          `json:"id" db:"id"`
	PolicyNumber        string             `json:"policy_number" db:"policy_number"`
	BasePolicyID        uuid.UUID          `json:"base_policy_id" db:"base_policy_id"`
	InsuranceProviderID string             `json:"insurance_provider_id" db:"insurance_provider_id"`
	FarmID              uuid.UUID          `json:"farm_id" db:"farm_id"`
	FarmerID            string             `json:"farmer_id" db:"farmer_id"`
	CoverageAmount      float64            `json:"coverage_amount" db:"coverage_amount"`
	CoverageStartDate   int64              `json:"coverage_start_date" db:"coverage_start_date"`
	CoverageEndDate     int64              `json:"coverage_end_date" db:"coverage_end_date"`
	TotalFarmerPremium  float64            `json:"total_farmer_premium" db:"total_farmer_premium"`
	PremiumPaidByFarmer bool               `json:"premium_paid_by_farmer" db:"premium_paid_by_farmer"`
	PremiumPaidAt       *int64             `json:"premium_paid_at,omitempty" db:"premium_paid_at"`
	Status              PolicyStatus       `json:"status" db:"status"`
	UnderwritingStatus  UnderwritingStatus `json:"underwriting_status" db:"underwriting_status"`
	UnderwritingReason  *string            `json:"underwriting_reason,omitempty" db:"underwriting_reason"`
	UnderwrittenBy      *string            `json:"underwritten_by,omitempty" db:"underwritten_by"`
	CreatedAt           time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time          `json:"updated_at" db:"updated_at"`
	RegisteredBy        *string            `json:"registered_by,omitempty" db:"registered_by"`
}

// IsParty reports whether the actor is the policyholder or the insurance
// partner on this policy.
func (p *RegisteredPolicy) IsParty(actorID string) bool {
	return actorID == p.FarmerID || actorID == p.InsuranceProviderID
}

// CounterParty returns the other side of the policy relative to the actor.
func (p *RegisteredPolicy) CounterParty(actorID string) string {
	if actorID == p.FarmerID {
		return p.InsuranceProviderID
	}
	return p.FarmerID
}
