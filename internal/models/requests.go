package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

func trimAndValidateString(str string, fieldName string, minLen, maxLen int) error {
	trimmed := strings.TrimSpace(str)
	if len(trimmed) < minLen {
		return fmt.Errorf("%s must be at least %d characters", fieldName, minLen)
	}
	if len(trimmed) > maxLen {
		return fmt.Errorf("%s must be %d characters or less", fieldName, maxLen)
	}
	return nil
}

// ============================================================================
// CANCEL REQUEST PAYLOADS
// ============================================================================

type CreateCancelRequestRequest struct {
	RegisteredPolicyID uuid.UUID         `json:"registered_policy_id" validate:"required"`
	CancelRequestType  CancelRequestType `json:"cancel_request_type" validate:"required"`
	Reason             string            `json:"reason" validate:"required,min=1,max=2000"`
	Evidence           JSONMap           `json:"evidence,omitempty"`
	CompensateAmount   float64           `json:"compensate_amount" validate:"min=0"`
}

func (r CreateCancelRequestRequest) Validate() error {
	if r.RegisteredPolicyID == uuid.Nil {
		return errors.New("registered_policy_id is required")
	}
	if !IsValidCancelRequestType(r.CancelRequestType) {
		return fmt.Errorf("invalid cancel_request_type: %s", r.CancelRequestType)
	}
	if err := trimAndValidateString(r.Reason, "reason", 1, 2000); err != nil {
		return err
	}
	if r.CompensateAmount < 0 {
		return errors.New("compensate_amount must not be negative")
	}
	return nil
}

type ReviewCancelRequestRequest struct {
	Approve     bool   `json:"approve"`
	ReviewNotes string `json:"review_notes,omitempty" validate:"omitempty,max=2000"`
}

func (r ReviewCancelRequestRequest) Validate() error {
	if len(strings.TrimSpace(r.ReviewNotes)) > 2000 {
		return errors.New("review_notes must be 2000 characters or less")
	}
	return nil
}

type ResolveDisputeRequest struct {
	FinalDecision FinalDecision `json:"final_decision" validate:"required"`
	ReviewNotes   string        `json:"review_notes,omitempty" validate:"omitempty,max=2000"`
}

func (r ResolveDisputeRequest) Validate() error {
	if !IsValidFinalDecision(r.FinalDecision) {
		return fmt.Errorf("invalid final_decision: %s", r.FinalDecision)
	}
	if len(strings.TrimSpace(r.ReviewNotes)) > 2000 {
		return errors.New("review_notes must be 2000 characters or less")
	}
	return nil
}

type MarkPaymentFailedRequest struct {
	Reason string `json:"reason,omitempty" validate:"omitempty,max=2000"`
}

// ============================================================================
// CLAIM PAYLOADS
// ============================================================================

type GenerateClaimRequest struct {
	RegisteredPolicyID        uuid.UUID  `json:"registered_policy_id" validate:"required"`
	BasePolicyTriggerID       *uuid.UUID `json:"base_policy_trigger_id,omitempty"`
	TriggerTimestamp          int64      `json:"trigger_timestamp" validate:"required"`
	OverThresholdValue        *float64   `json:"over_threshold_value,omitempty"`
	CalculatedFixPayout       float64    `json:"calculated_fix_payout" validate:"min=0"`
	CalculatedThresholdPayout float64    `json:"calculated_threshold_payout" validate:"min=0"`
	ClaimAmount               float64    `json:"claim_amount" validate:"required,gt=0"`
	AutoGenerated             bool       `json:"auto_generated"`
	EvidenceSummary           JSONMap    `json:"evidence_summary,omitempty"`
}

func (r GenerateClaimRequest) Validate() error {
	if r.RegisteredPolicyID == uuid.Nil {
		return errors.New("registered_policy_id is required")
	}
	if r.TriggerTimestamp <= 0 {
		return errors.New("trigger_timestamp is required")
	}
	if r.ClaimAmount <= 0 {
		return errors.New("claim_amount must be greater than zero")
	}
	if r.CalculatedFixPayout < 0 || r.CalculatedThresholdPayout < 0 {
		return errors.New("calculated payouts must not be negative")
	}
	return nil
}

type PartnerDecideRequest struct {
	Approve      bool   `json:"approve"`
	PartnerNotes string `json:"partner_notes,omitempty" validate:"omitempty,max=2000"`
}

func (r PartnerDecideRequest) Validate() error {
	if len(strings.TrimSpace(r.PartnerNotes)) > 2000 {
		return errors.New("partner_notes must be 2000 characters or less")
	}
	return nil
}

// ============================================================================
// PAYOUT PAYLOADS
// ============================================================================

type RecordPaymentOutcomeRequest struct {
	Succeeded     bool   `json:"succeeded"`
	FailureReason string `json:"failure_reason,omitempty" validate:"omitempty,max=2000"`
}

func (r RecordPaymentOutcomeRequest) Validate() error {
	if !r.Succeeded && strings.TrimSpace(r.FailureReason) == "" {
		return errors.New("failure_reason is required when the payment failed")
	}
	if len(strings.TrimSpace(r.FailureReason)) > 2000 {
		return errors.New("failure_reason must be 2000 characters or less")
	}
	return nil
}

type ConfirmReceiptRequest struct {
	FarmerRating   *int    `json:"farmer_rating,omitempty" validate:"omitempty,min=1,max=5"`
	FarmerFeedback *string `json:"farmer_feedback,omitempty" validate:"omitempty,max=2000"`
}

func (r ConfirmReceiptRequest) Validate() error {
	if r.FarmerRating != nil && (*r.FarmerRating < 1 || *r.FarmerRating > 5) {
		return errors.New("farmer_rating must be between 1 and 5")
	}
	if r.FarmerFeedback != nil && len(strings.TrimSpace(*r.FarmerFeedback)) > 2000 {
		return errors.New("farmer_feedback must be 2000 characters or less")
	}
	return nil
}

// ============================================================================
// REGISTERED POLICY PAYLOADS
// ============================================================================

type CreatePolicyRequest struct {
	BasePolicyID        uuid.UUID `json:"base_policy_id" validate:"required"`
	InsuranceProviderID string    `json:"insurance_provider_id" validate:"required"`
	FarmID              uuid.UUID `json:"farm_id" validate:"required"`
	FarmerID            string    `json:"farmer_id" validate:"required"`
	CoverageAmount      float64   `json:"coverage_amount" validate:"required,gt=0"`
	CoverageStartDate   int64     `json:"coverage_start_date" validate:"required"`
	CoverageEndDate     int64     `json:"coverage_end_date" validate:"required"`
	TotalFarmerPremium  float64   `json:"total_farmer_premium" validate:"min=0"`
}

func (r CreatePolicyRequest) Validate() error {
	if r.BasePolicyID == uuid.Nil || r.FarmID == uuid.Nil {
		return errors.New("base_policy_id and farm_id are required")
	}
	if strings.TrimSpace(r.InsuranceProviderID) == "" || strings.TrimSpace(r.FarmerID) == "" {
		return errors.New("insurance_provider_id and farmer_id are required")
	}
	if r.CoverageAmount <= 0 {
		return errors.New("coverage_amount must be greater than zero")
	}
	if r.CoverageEndDate <= r.CoverageStartDate {
		return errors.New("coverage_end_date must be after coverage_start_date")
	}
	if r.TotalFarmerPremium < 0 {
		return errors.New("total_farmer_premium must not be negative")
	}
	return nil
}

type UnderwriteRequest struct {
	Approve bool   `json:"approve"`
	Reason  string `json:"reason,omitempty" validate:"omitempty,max=2000"`
}

func (r UnderwriteRequest) Validate() error {
	if !r.Approve && strings.TrimSpace(r.Reason) == "" {
		return errors.New("reason is required when rejecting underwriting")
	}
	if len(strings.TrimSpace(r.Reason)) > 2000 {
		return errors.New("reason must be 2000 characters or less")
	}
	return nil
}
