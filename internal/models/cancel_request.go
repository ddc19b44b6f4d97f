package models

import (
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// CANCEL REQUEST (POLICY CANCELLATION / DISPUTE WORKFLOW)
// ============================================================================

// CancelRequest is 1:1 with an active request: a policy holds at most one
// non-terminal cancel request at a time (enforced by a partial unique index).
// ReviewedBy and ReviewedAt are set together or not at all; Paid implies
// status approved. A terminal request (approved/denied/cancelled) is immutable.
type CancelRequest struct {
	ID                 uuid.UUID           `json:"id" db:"id"`
	RegisteredPolicyID uuid.UUID           `json:"registered_policy_id" db:"registered_policy_id"`
	CancelRequestType  CancelRequestType   `json:"cancel_request_type" db:"cancel_request_type"`
	Reason             string              `json:"reason" db:"reason"`
	Evidence           JSONMap             `json:"evidence" db:"evidence"`
	Status             CancelRequestStatus `json:"status" db:"status"`
	RequestedBy        string              `json:"requested_by" db:"requested_by"`
	RequestedAt        int64               `json:"requested_at" db:"requested_at"`
	DuringNoticePeriod bool                `json:"during_notice_period" db:"during_notice_period"`
	CompensateAmount   float64             `json:"compensate_amount" db:"compensate_amount"`
	ReviewedBy         *string             `json:"reviewed_by,omitempty" db:"reviewed_by"`
	ReviewedAt         *int64              `json:"reviewed_at,omitempty" db:"reviewed_at"`
	ReviewNotes        *string             `json:"review_notes,omitempty" db:"review_notes"`
	FinalDecision      *FinalDecision      `json:"final_decision,omitempty" db:"final_decision"`
	Paid               bool                `json:"paid" db:"paid"`
	PaidAt             *int64              `json:"paid_at,omitempty" db:"paid_at"`
	CreatedAt          time.Time           `json:"created_at" db:"created_at"`
}
