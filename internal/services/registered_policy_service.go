package services

import (
	"context"
	"fmt"
	"policy-lifecycle/internal/models"

	"github.com/google/uuid"
)

// RegisteredPolicyService covers the pre-cancellation stretch of the policy
// lifecycle: registration, underwriting, premium payment, and the coverage
// expiration sweep. Underwriting is the only writer of underwriting_status.
type RegisteredPolicyService struct {
	policyStore PolicyStore
	audit       AuditSink
	clock       Clock
}

func NewRegisteredPolicyService(policyStore PolicyStore, audit AuditSink, clock Clock) *RegisteredPolicyService {
	return &RegisteredPolicyService{
		policyStore: policyStore,
		audit:       audit,
		clock:       clock,
	}
}

// Register creates a draft policy on behalf of the registering actor.
func (s *RegisteredPolicyService) Register(ctx context.Context, actorID string, request models.CreatePolicyRequest) (*models.RegisteredPolicy, error) {
	policy := &models.RegisteredPolicy{
		ID:                  uuid.New(),
		PolicyNumber:        fmt.Sprintf("POL-%s-%.8s", s.clock.Now().Format("20060102"), uuid.NewString()),
		BasePolicyID:        request.BasePolicyID,
		InsuranceProviderID: request.InsuranceProviderID,
		FarmID:              request.FarmID,
		FarmerID:            request.FarmerID,
		CoverageAmount:      request.CoverageAmount,
		CoverageStartDate:   request.CoverageStartDate,
		CoverageEndDate:     request.CoverageEndDate,
		TotalFarmerPremium:  request.TotalFarmerPremium,
		Status:              models.PolicyDraft,
		UnderwritingStatus:  models.UnderwritingPending,
		RegisteredBy:        &actorID,
	}

	if err := s.policyStore.Create(ctx, policy); err != nil {
		return nil, err
	}

	emitAudit(ctx, s.audit, s.clock, models.AuditEntityPolicy, policy.ID,
		"", string(models.PolicyDraft), actorID, policy.PolicyNumber)

	return policy, nil
}

// SubmitForUnderwriting moves a draft into risk review.
func (s *RegisteredPolicyService) SubmitForUnderwriting(ctx context.Context, policyID uuid.UUID, actorID string) error {
	if err := s.policyStore.SwapStatus(ctx, policyID, models.PolicyDraft, models.PolicyPendingReview); err != nil {
		return err
	}

	emitAudit(ctx, s.audit, s.clock, models.AuditEntityPolicy, policyID,
		string(models.PolicyDraft), string(models.PolicyPendingReview), actorID, "submitted for underwriting")

	return nil
}

// Underwrite records the risk-assessment decision. Approval moves the policy
// to pending_payment; rejection keeps it in pending_review with the reason.
func (s *RegisteredPolicyService) Underwrite(ctx context.Context, policyID uuid.UUID, actorID string, decision models.UnderwriteRequest) (*models.RegisteredPolicy, error) {
	policy, err := s.policyStore.GetByID(ctx, policyID)
	if err != nil {
		return nil, err
	}
	if policy.Status != models.PolicyPendingReview {
		return nil, fmt.Errorf("%w: underwriting requires pending_review, got %s", models.ErrInvalidTransition, policy.Status)
	}
	if actorID != policy.InsuranceProviderID {
		return nil, fmt.Errorf("%w: only the insurance partner may underwrite policy %s", models.ErrInvalidActor, policy.ID)
	}

	from := policy.Status
	policy.UnderwrittenBy = &actorID
	if decision.Approve {
		policy.Status = models.PolicyPendingPayment
		policy.UnderwritingStatus = models.UnderwritingApproved
	} else {
		policy.UnderwritingStatus = models.UnderwritingRejected
		reason := decision.Reason
		policy.UnderwritingReason = &reason
	}

	if err := s.policyStore.SwapUnderwriting(ctx, policy, from); err != nil {
		return nil, err
	}

	emitAudit(ctx, s.audit, s.clock, models.AuditEntityPolicy, policy.ID,
		string(from), string(policy.Status), actorID, decision.Reason)

	return policy, nil
}

// MarkPremiumPaid activates a policy once the farmer premium settles.
func (s *RegisteredPolicyService) MarkPremiumPaid(ctx context.Context, policyID uuid.UUID, actorID string) error {
	if err := s.policyStore.SwapPremiumPaid(ctx, policyID, s.clock.Now().Unix()); err != nil {
		return err
	}

	emitAudit(ctx, s.audit, s.clock, models.AuditEntityPolicy, policyID,
		string(models.PolicyPendingPayment), string(models.PolicyActive), actorID, "premium paid")

	return nil
}

// ExpireCoverage retires an active policy whose coverage window has closed.
func (s *RegisteredPolicyService) ExpireCoverage(ctx context.Context, policyID uuid.UUID) error {
	if err := s.policyStore.SwapStatus(ctx, policyID, models.PolicyActive, models.PolicyExpired); err != nil {
		return err
	}

	emitAudit(ctx, s.audit, s.clock, models.AuditEntityPolicy, policyID,
		string(models.PolicyActive), string(models.PolicyExpired), models.SystemActorID, "coverage window closed")

	return nil
}
