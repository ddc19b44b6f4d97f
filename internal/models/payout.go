package models

import (
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// PAYOUT (CLAIM SETTLEMENT EXECUTION)
// ============================================================================

// Payout is 1:1 with an approved claim (unique claim_id). FarmerConfirmed
// requires status completed and is a one-way, idempotent flag: once set it is
// never flipped back. Terminal at completed+confirmed, failed, or cancelled.
type Payout struct {
	ID                          uuid.UUID    `json:"id" db:"id"`
	ClaimID                     uuid.UUID    `json:"claim_id" db:"claim_id"`
	RegisteredPolicyID          uuid.UUID    `json:"registered_policy_id" db:"registered_policy_id"`
	FarmID                      uuid.UUID    `json:"farm_id" db:"farm_id"`
	FarmerID                    string       `json:"farmer_id" db:"farmer_id"`
	PayoutAmount                float64      `json:"payout_amount" db:"payout_amount"`
	Currency                    string       `json:"currency" db:"currency"`
	Status                      PayoutStatus `json:"status" db:"status"`
	InitiatedAt                 *int64       `json:"initiated_at,omitempty" db:"initiated_at"`
	CompletedAt                 *int64       `json:"completed_at,omitempty" db:"completed_at"`
	FailureReason               *string      `json:"failure_reason,omitempty" db:"failure_reason"`
	FarmerConfirmed             bool         `json:"farmer_confirmed" db:"farmer_confirmed"`
	FarmerConfirmationTimestamp *int64       `json:"farmer_confirmation_timestamp,omitempty" db:"farmer_confirmation_timestamp"`
	FarmerRating                *int         `json:"farmer_rating,omitempty" db:"farmer_rating"`
	FarmerFeedback              *string      `json:"farmer_feedback,omitempty" db:"farmer_feedback"`
	CreatedAt                   time.Time    `json:"created_at" db:"created_at"`
}
