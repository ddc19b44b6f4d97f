package services

import (
	"context"
	"fmt"
	"policy-lifecycle/internal/models"
	"policy-lifecycle/internal/repository"

	"github.com/google/uuid"
)

// QueryService is the read side for handlers: plain fetches plus the
// farmer/partner ownership checks. It goes straight to the repositories; the
// engines are not involved in reads.
type QueryService struct {
	policyRepo        *repository.RegisteredPolicyRepository
	cancelRequestRepo *repository.CancelRequestRepository
	claimRepo         *repository.ClaimRepository
	payoutRepo        *repository.PayoutRepository
}

func NewQueryService(
	policyRepo *repository.RegisteredPolicyRepository,
	cancelRequestRepo *repository.CancelRequestRepository,
	claimRepo *repository.ClaimRepository,
	payoutRepo *repository.PayoutRepository,
) *QueryService {
	return &QueryService{
		policyRepo:        policyRepo,
		cancelRequestRepo: cancelRequestRepo,
		claimRepo:         claimRepo,
		payoutRepo:        payoutRepo,
	}
}

func (s *QueryService) GetPolicyForParty(ctx context.Context, policyID uuid.UUID, actorID string) (*models.RegisteredPolicy, error) {
	policy, err := s.policyRepo.GetByID(ctx, policyID)
	if err != nil {
		return nil, err
	}
	if !policy.IsParty(actorID) {
		return nil, fmt.Errorf("%w: policy does not belong to actor %s", models.ErrInvalidActor, actorID)
	}
	return policy, nil
}

func (s *QueryService) GetPoliciesByFarmer(ctx context.Context, farmerID string) ([]models.RegisteredPolicy, error) {
	return s.policyRepo.GetByFarmerID(ctx, farmerID)
}

func (s *QueryService) GetPoliciesByProvider(ctx context.Context, providerID string) ([]models.RegisteredPolicy, error) {
	return s.policyRepo.GetByInsuranceProviderID(ctx, providerID)
}

func (s *QueryService) GetCancelRequestForParty(ctx context.Context, requestID uuid.UUID, actorID string) (*models.CancelRequest, error) {
	cancelRequest, err := s.cancelRequestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	policy, err := s.policyRepo.GetByID(ctx, cancelRequest.RegisteredPolicyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get policy for cancel request: %w", err)
	}
	if !policy.IsParty(actorID) {
		return nil, fmt.Errorf("%w: cancel request does not belong to actor %s", models.ErrInvalidActor, actorID)
	}
	return cancelRequest, nil
}

func (s *QueryService) GetCancelRequestsByPolicyForParty(ctx context.Context, policyID uuid.UUID, actorID string) ([]models.CancelRequest, error) {
	if _, err := s.GetPolicyForParty(ctx, policyID, actorID); err != nil {
		return nil, err
	}
	return s.cancelRequestRepo.GetByPolicyID(ctx, policyID)
}

func (s *QueryService) GetClaimForFarmer(ctx context.Context, claimID uuid.UUID, farmerID string) (*models.Claim, error) {
	claim, err := s.claimRepo.GetByID(ctx, claimID)
	if err != nil {
		return nil, err
	}
	policy, err := s.policyRepo.GetByID(ctx, claim.RegisteredPolicyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get policy for claim: %w", err)
	}
	if policy.FarmerID != farmerID {
		return nil, fmt.Errorf("%w: claim does not belong to farmer %s", models.ErrInvalidActor, farmerID)
	}
	return claim, nil
}

func (s *QueryService) GetClaimForPartner(ctx context.Context, claimID uuid.UUID, providerID string) (*models.Claim, error) {
	claim, err := s.claimRepo.GetByID(ctx, claimID)
	if err != nil {
		return nil, err
	}
	policy, err := s.policyRepo.GetByID(ctx, claim.RegisteredPolicyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get policy for claim: %w", err)
	}
	if policy.InsuranceProviderID != providerID {
		return nil, fmt.Errorf("%w: claim does not belong to partner %s", models.ErrInvalidActor, providerID)
	}
	return claim, nil
}

func (s *QueryService) GetClaimsByPolicyForParty(ctx context.Context, policyID uuid.UUID, actorID string) ([]models.Claim, error) {
	if _, err := s.GetPolicyForParty(ctx, policyID, actorID); err != nil {
		return nil, err
	}
	return s.claimRepo.GetByRegisteredPolicyID(ctx, policyID)
}

func (s *QueryService) GetPayoutForFarmer(ctx context.Context, payoutID uuid.UUID, farmerID string) (*models.Payout, error) {
	payout, err := s.payoutRepo.GetByID(ctx, payoutID)
	if err != nil {
		return nil, err
	}
	if payout.FarmerID != farmerID {
		return nil, fmt.Errorf("%w: payout does not belong to farmer %s", models.ErrInvalidActor, farmerID)
	}
	return payout, nil
}

func (s *QueryService) GetPayoutForPartner(ctx context.Context, payoutID uuid.UUID, providerID string) (*models.Payout, error) {
	payout, err := s.payoutRepo.GetByID(ctx, payoutID)
	if err != nil {
		return nil, err
	}
	policy, err := s.policyRepo.GetByID(ctx, payout.RegisteredPolicyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get policy for payout: %w", err)
	}
	if policy.InsuranceProviderID != providerID {
		return nil, fmt.Errorf("%w: payout does not belong to partner %s", models.ErrInvalidActor, providerID)
	}
	return payout, nil
}

func (s *QueryService) GetPayoutsByFarmer(ctx context.Context, farmerID string) ([]models.Payout, error) {
	return s.payoutRepo.GetByFarmerID(ctx, farmerID)
}

func (s *QueryService) GetPayoutByClaimForFarmer(ctx context.Context, claimID uuid.UUID, farmerID string) (*models.Payout, error) {
	payout, err := s.payoutRepo.GetByClaimID(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if payout.FarmerID != farmerID {
		return nil, fmt.Errorf("%w: payout does not belong to farmer %s", models.ErrInvalidActor, farmerID)
	}
	return payout, nil
}
