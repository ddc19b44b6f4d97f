package services

import (
	"context"
	"fmt"
	"log/slog"
	"policy-lifecycle/internal/models"
	"time"

	"github.com/google/uuid"
)

// Notifier delivers farmer-facing notifications for settlement milestones.
// Delivery is fire-and-forget, same contract as the audit sink.
type Notifier interface {
	NotifyFarmer(ctx context.Context, farmerID, title, body string) error
}

// ClaimService owns the claim-to-payout settlement workflow: claim generation,
// partner review with deadline-based auto-approval, payout execution results,
// and the farmer's receipt confirmation. PartnerDecide and AutoApprove race on
// the same CAS guard, so exactly one of them wins.
type ClaimService struct {
	claimStore      ClaimStore
	payoutStore     PayoutStore
	policyStore     PolicyStore
	audit           AuditSink
	notifier        Notifier
	clock           Clock
	autoApprovalSLA time.Duration
	currency        string
}

func NewClaimService(
	claimStore ClaimStore,
	payoutStore PayoutStore,
	policyStore PolicyStore,
	audit AuditSink,
	notifier Notifier,
	clock Clock,
	autoApprovalSLA time.Duration,
	currency string,
) *ClaimService {
	return &ClaimService{
		claimStore:      claimStore,
		payoutStore:     payoutStore,
		policyStore:     policyStore,
		audit:           audit,
		notifier:        notifier,
		clock:           clock,
		autoApprovalSLA: autoApprovalSLA,
		currency:        currency,
	}
}

// Generate records a claim produced by the monitoring/trigger collaborator
// when a policy breach condition fires.
func (s *ClaimService) Generate(ctx context.Context, actorID string, request models.GenerateClaimRequest) (*models.Claim, error) {
	policy, err := s.policyStore.GetByID(ctx, request.RegisteredPolicyID)
	if err != nil {
		return nil, err
	}
	if policy.Status != models.PolicyActive && policy.Status != models.PolicyPendingCancel {
		return nil, fmt.Errorf("%w: claims require live coverage, policy is %s", models.ErrInvalidTransition, policy.Status)
	}

	now := s.clock.Now()
	claim := &models.Claim{
		ID:                        uuid.New(),
		ClaimNumber:               s.newClaimNumber(now),
		RegisteredPolicyID:        policy.ID,
		BasePolicyID:              policy.BasePolicyID,
		FarmID:                    policy.FarmID,
		BasePolicyTriggerID:       request.BasePolicyTriggerID,
		TriggerTimestamp:          request.TriggerTimestamp,
		OverThresholdValue:        request.OverThresholdValue,
		CalculatedFixPayout:       request.CalculatedFixPayout,
		CalculatedThresholdPayout: request.CalculatedThresholdPayout,
		ClaimAmount:               request.ClaimAmount,
		Status:                    models.ClaimGenerated,
		AutoGenerated:             request.AutoGenerated,
		EvidenceSummary:           request.EvidenceSummary,
	}

	if err := s.claimStore.Create(ctx, claim); err != nil {
		return nil, err
	}

	emitAudit(ctx, s.audit, s.clock, models.AuditEntityClaim, claim.ID,
		"", string(models.ClaimGenerated), actorID, claim.ClaimNumber)

	return claim, nil
}

// SubmitForReview hands a generated claim to the insurance partner and starts
// the auto-approval countdown.
func (s *ClaimService) SubmitForReview(ctx context.Context, claimID uuid.UUID, actorID string) (*models.Claim, error) {
	claim, err := s.claimStore.GetByID(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if claim.Status != models.ClaimGenerated {
		return nil, fmt.Errorf("%w: submit requires generated, got %s", models.ErrInvalidTransition, claim.Status)
	}

	deadline := s.clock.Now().Add(s.autoApprovalSLA).Unix()
	claim.Status = models.ClaimPendingPartnerReview
	claim.AutoApprovalDeadline = &deadline

	if err := s.claimStore.Swap(ctx, claim, models.ClaimGenerated); err != nil {
		return nil, err
	}

	emitAudit(ctx, s.audit, s.clock, models.AuditEntityClaim, claim.ID,
		string(models.ClaimGenerated), string(models.ClaimPendingPartnerReview), actorID, "submitted for partner review")

	return claim, nil
}

// PartnerDecide applies the insurance partner's approve/reject decision. The
// decision is accepted until the scheduler actually fires, even past the
// deadline; losing the CAS race to AutoApprove yields ErrConflict and the
// caller must discard its decision.
func (s *ClaimService) PartnerDecide(ctx context.Context, claimID uuid.UUID, actorID string, decision models.PartnerDecideRequest) (*models.Claim, error) {
	claim, err := s.claimStore.GetByID(ctx, claimID)
	if err != nil {
		return nil, err
	}

	policy, err := s.policyStore.GetByID(ctx, claim.RegisteredPolicyID)
	if err != nil {
		return nil, err
	}
	if actorID != policy.InsuranceProviderID {
		return nil, fmt.Errorf("%w: claim %s does not belong to partner %s", models.ErrInvalidActor, claim.ID, actorID)
	}

	switch claim.Status {
	case models.ClaimPendingPartnerReview:
		// proceed to CAS
	case models.ClaimApproved:
		if claim.AutoApproved {
			return nil, fmt.Errorf("%w: claim was auto-approved at deadline", models.ErrConflict)
		}
		return nil, fmt.Errorf("%w: claim already approved", models.ErrInvalidTransition)
	default:
		return nil, fmt.Errorf("%w: partner decision requires pending_partner_review, got %s", models.ErrInvalidTransition, claim.Status)
	}

	now := s.clock.Now().Unix()
	from := claim.Status
	claim.PartnerReviewTimestamp = &now
	claim.ReviewedBy = &actorID
	if decision.PartnerNotes != "" {
		notes := decision.PartnerNotes
		claim.PartnerNotes = &notes
	}
	if decision.Approve {
		claim.Status = models.ClaimApproved
	} else {
		claim.Status = models.ClaimRejected
	}
	partnerDecision := claim.Status
	claim.PartnerDecision = &partnerDecision

	if err := s.claimStore.Swap(ctx, claim, models.ClaimPendingPartnerReview); err != nil {
		return nil, err
	}

	emitAudit(ctx, s.audit, s.clock, models.AuditEntityClaim, claim.ID,
		string(from), string(claim.Status), actorID, decision.PartnerNotes)

	if decision.Approve {
		s.createPayout(ctx, claim, policy, actorID)
	}

	return claim, nil
}

// AutoApprove is the scheduler-only transition: once the deadline has passed
// and the claim is still pending, approval is final. Losing the race to a late
// partner decision surfaces as ErrConflict and is safe to discard.
func (s *ClaimService) AutoApprove(ctx context.Context, claimID uuid.UUID) (*models.Claim, error) {
	claim, err := s.claimStore.GetByID(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if claim.Status != models.ClaimPendingPartnerReview {
		return nil, fmt.Errorf("%w: claim no longer pending partner review", models.ErrConflict)
	}
	if claim.AutoApprovalDeadline == nil {
		return nil, fmt.Errorf("%w: claim has no auto-approval deadline", models.ErrInvalidTransition)
	}
	if s.clock.Now().Unix() < *claim.AutoApprovalDeadline {
		return nil, fmt.Errorf("%w: auto-approval deadline not reached", models.ErrInvalidTransition)
	}

	now := s.clock.Now().Unix()
	systemActor := models.SystemActorID
	claim.Status = models.ClaimApproved
	claim.AutoApproved = true
	claim.ReviewedBy = &systemActor
	claim.PartnerReviewTimestamp = &now
	partnerDecision := models.ClaimApproved
	claim.PartnerDecision = &partnerDecision

	if err := s.claimStore.Swap(ctx, claim, models.ClaimPendingPartnerReview); err != nil {
		return nil, err
	}

	emitAudit(ctx, s.audit, s.clock, models.AuditEntityClaim, claim.ID,
		string(models.ClaimPendingPartnerReview), string(models.ClaimApproved),
		models.SystemActorID, "auto-approved at deadline")

	policy, err := s.policyStore.GetByID(ctx, claim.RegisteredPolicyID)
	if err != nil {
		slog.Error("auto-approved claim but failed to load policy for payout",
			"claim_id", claim.ID, "error", err)
		return claim, nil
	}
	s.createPayout(ctx, claim, policy, models.SystemActorID)

	return claim, nil
}

// RecordPaymentOutcome records the payment executor's report for a processing
// payout. The engine never performs the payment itself.
func (s *ClaimService) RecordPaymentOutcome(ctx context.Context, payoutID uuid.UUID, actorID string, outcome models.RecordPaymentOutcomeRequest) (*models.Payout, error) {
	payout, err := s.payoutStore.GetByID(ctx, payoutID)
	if err != nil {
		return nil, err
	}
	if payout.Status != models.PayoutProcessing {
		return nil, fmt.Errorf("%w: payment outcome requires processing, got %s", models.ErrInvalidTransition, payout.Status)
	}

	now := s.clock.Now().Unix()
	from := payout.Status
	if outcome.Succeeded {
		payout.Status = models.PayoutCompleted
		payout.CompletedAt = &now
	} else {
		payout.Status = models.PayoutFailed
		reason := outcome.FailureReason
		payout.FailureReason = &reason
	}

	if err := s.payoutStore.Swap(ctx, payout, models.PayoutProcessing); err != nil {
		return nil, err
	}

	emitAudit(ctx, s.audit, s.clock, models.AuditEntityPayout, payout.ID,
		string(from), string(payout.Status), actorID, outcome.FailureReason)

	if outcome.Succeeded {
		s.notifyFarmer(ctx, payout.FarmerID, "Payout completed",
			fmt.Sprintf("Your payout of %.0f %s has been transferred.", payout.PayoutAmount, payout.Currency))
	}

	return payout, nil
}

// ConfirmReceipt is the farmer's acknowledgement of a completed payout.
// Idempotent: repeat calls return the confirmed payout, not an error, and
// never flip the confirmation back.
func (s *ClaimService) ConfirmReceipt(ctx context.Context, payoutID uuid.UUID, actorID string, confirmation models.ConfirmReceiptRequest) (*models.Payout, error) {
	payout, err := s.payoutStore.GetByID(ctx, payoutID)
	if err != nil {
		return nil, err
	}
	if actorID != payout.FarmerID {
		return nil, fmt.Errorf("%w: payout %s does not belong to farmer %s", models.ErrInvalidActor, payout.ID, actorID)
	}
	if payout.FarmerConfirmed {
		return payout, nil
	}
	if payout.Status != models.PayoutCompleted {
		return nil, fmt.Errorf("%w: confirmation requires completed, got %s", models.ErrInvalidTransition, payout.Status)
	}

	now := s.clock.Now().Unix()
	payout.FarmerConfirmed = true
	payout.FarmerConfirmationTimestamp = &now
	payout.FarmerRating = confirmation.FarmerRating
	payout.FarmerFeedback = confirmation.FarmerFeedback

	if err := s.payoutStore.SwapConfirmed(ctx, payout); err != nil {
		// A concurrent confirmation winning the race is still a success for
		// this caller: re-read and return the confirmed state.
		current, getErr := s.payoutStore.GetByID(ctx, payoutID)
		if getErr == nil && current.FarmerConfirmed {
			return current, nil
		}
		return nil, err
	}

	emitAudit(ctx, s.audit, s.clock, models.AuditEntityPayout, payout.ID,
		string(models.PayoutCompleted), string(models.PayoutCompleted), actorID, "farmer confirmed receipt")

	if _, err := s.MarkClaimPaid(ctx, payout.ClaimID, models.SystemActorID); err != nil {
		slog.Error("failed to settle claim after receipt confirmation",
			"claim_id", payout.ClaimID, "payout_id", payout.ID, "error", err)
	}

	return payout, nil
}

// MarkClaimPaid closes an approved claim once its payout is completed and
// confirmed by the farmer.
func (s *ClaimService) MarkClaimPaid(ctx context.Context, claimID uuid.UUID, actorID string) (*models.Claim, error) {
	claim, err := s.claimStore.GetByID(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if claim.Status != models.ClaimApproved {
		return nil, fmt.Errorf("%w: settlement requires approved, got %s", models.ErrInvalidTransition, claim.Status)
	}

	payout, err := s.payoutStore.GetByClaimID(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if payout.Status != models.PayoutCompleted || !payout.FarmerConfirmed {
		return nil, fmt.Errorf("%w: claim settlement requires a completed, confirmed payout", models.ErrInvalidTransition)
	}

	claim.Status = models.ClaimPaid
	if err := s.claimStore.Swap(ctx, claim, models.ClaimApproved); err != nil {
		return nil, err
	}

	emitAudit(ctx, s.audit, s.clock, models.AuditEntityClaim, claim.ID,
		string(models.ClaimApproved), string(models.ClaimPaid), actorID, "payout completed and confirmed")

	return claim, nil
}

// CancelPayout withdraws a processing payout, e.g. when the partner rescinds
// an approval before the executor picks it up.
func (s *ClaimService) CancelPayout(ctx context.Context, payoutID uuid.UUID, actorID string, reason string) (*models.Payout, error) {
	payout, err := s.payoutStore.GetByID(ctx, payoutID)
	if err != nil {
		return nil, err
	}
	if payout.Status != models.PayoutProcessing {
		return nil, fmt.Errorf("%w: cancel requires processing, got %s", models.ErrInvalidTransition, payout.Status)
	}

	payout.Status = models.PayoutCancelled
	if reason != "" {
		payout.FailureReason = &reason
	}
	if err := s.payoutStore.Swap(ctx, payout, models.PayoutProcessing); err != nil {
		return nil, err
	}

	emitAudit(ctx, s.audit, s.clock, models.AuditEntityPayout, payout.ID,
		string(models.PayoutProcessing), string(models.PayoutCancelled), actorID, reason)

	return payout, nil
}

// createPayout opens the payout for an approved claim. The unique claim_id
// constraint makes a duplicate create a no-op race loser.
func (s *ClaimService) createPayout(ctx context.Context, claim *models.Claim, policy *models.RegisteredPolicy, actorID string) {
	now := s.clock.Now().Unix()
	payout := &models.Payout{
		ID:                 uuid.New(),
		ClaimID:            claim.ID,
		RegisteredPolicyID: policy.ID,
		FarmID:             policy.FarmID,
		FarmerID:           policy.FarmerID,
		PayoutAmount:       claim.ClaimAmount,
		Currency:           s.currency,
		Status:             models.PayoutProcessing,
		InitiatedAt:        &now,
	}

	if err := s.payoutStore.Create(ctx, payout); err != nil {
		slog.Error("failed to create payout for approved claim",
			"claim_id", claim.ID, "error", err)
		return
	}

	emitAudit(ctx, s.audit, s.clock, models.AuditEntityPayout, payout.ID,
		"", string(models.PayoutProcessing), actorID, claim.ClaimNumber)

	s.notifyFarmer(ctx, policy.FarmerID, "Claim approved",
		fmt.Sprintf("Claim %s was approved. A payout of %.0f %s is being processed.",
			claim.ClaimNumber, payout.PayoutAmount, payout.Currency))
}

func (s *ClaimService) notifyFarmer(ctx context.Context, farmerID, title, body string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyFarmer(ctx, farmerID, title, body); err != nil {
		slog.Error("farmer notification failed", "farmer_id", farmerID, "title", title, "error", err)
	}
}

func (s *ClaimService) newClaimNumber(now time.Time) string {
	return fmt.Sprintf("CLM-%s-%.8s", now.Format("20060102"), uuid.NewString())
}
