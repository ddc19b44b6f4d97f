package models

type PolicyStatus string

const (
	PolicyDraft          PolicyStatus = "draft"
	PolicyPendingReview  PolicyStatus = "pending_review"
	PolicyPendingPayment PolicyStatus = "pending_payment"
	PolicyActive         PolicyStatus = "active"
	PolicyPendingCancel  PolicyStatus = "pending_cancel"
	PolicyDispute        PolicyStatus = "dispute"
	PolicyCancelled      PolicyStatus = "cancelled"
	PolicyExpired        PolicyStatus = "expired"
	PolicyPayout         PolicyStatus = "payout"
)

func IsValidPolicyStatus(status PolicyStatus) bool {
	switch status {
	case PolicyDraft, PolicyPendingReview, PolicyPendingPayment, PolicyActive,
		PolicyPendingCancel, PolicyDispute, PolicyCancelled, PolicyExpired, PolicyPayout:
		return true
	default:
		return false
	}
}

type UnderwritingStatus string

const (
	UnderwritingPending  UnderwritingStatus = "pending"
	UnderwritingApproved UnderwritingStatus = "approved"
	UnderwritingRejected UnderwritingStatus = "rejected"
)

type CancelRequestStatus string

const (
	CancelRequestPendingReview CancelRequestStatus = "pending_review"
	CancelRequestApproved      CancelRequestStatus = "approved"
	CancelRequestDenied        CancelRequestStatus = "denied"
	CancelRequestCancelled     CancelRequestStatus = "cancelled"
	CancelRequestLitigation    CancelRequestStatus = "litigation"
	CancelRequestPaymentFailed CancelRequestStatus = "payment_failed"
)

// IsTerminalCancelRequestStatus reports whether a cancel request can no longer
// transition. payment_failed is not terminal: the payment executor may retry.
func IsTerminalCancelRequestStatus(status CancelRequestStatus) bool {
	switch status {
	case CancelRequestApproved, CancelRequestDenied, CancelRequestCancelled:
		return true
	default:
		return false
	}
}

type CancelRequestType string

const (
	CancelContractViolation CancelRequestType = "contract_violation"
	CancelOther             CancelRequestType = "other"
)

func IsValidCancelRequestType(requestType CancelRequestType) bool {
	switch requestType {
	case CancelContractViolation, CancelOther:
		return true
	default:
		return false
	}
}

type FinalDecision string

const (
	FinalDecisionApproved FinalDecision = "approved"
	FinalDecisionDenied   FinalDecision = "denied"
)

func IsValidFinalDecision(decision FinalDecision) bool {
	switch decision {
	case FinalDecisionApproved, FinalDecisionDenied:
		return true
	default:
		return false
	}
}

type ClaimStatus string

const (
	ClaimGenerated            ClaimStatus = "generated"
	ClaimPendingPartnerReview ClaimStatus = "pending_partner_review"
	ClaimApproved             ClaimStatus = "approved"
	ClaimRejected             ClaimStatus = "rejected"
	ClaimPaid                 ClaimStatus = "paid"
)

type PayoutStatus string

const (
	PayoutProcessing PayoutStatus = "processing"
	PayoutCompleted  PayoutStatus = "completed"
	PayoutFailed     PayoutStatus = "failed"
	PayoutCancelled  PayoutStatus = "cancelled"
)

func IsTerminalPayoutStatus(status PayoutStatus) bool {
	switch status {
	case PayoutCompleted, PayoutFailed, PayoutCancelled:
		return true
	default:
		return false
	}
}
