package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"policy-lifecycle/internal/models"

	"github.com/google/uuid"
)

// The fakes below mirror the repository CAS contract: a swap with a stale
// expected status fails with ErrConflict and leaves the stored row untouched.

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type memoryAudit struct {
	mu     sync.Mutex
	events []models.AuditEvent
}

func (a *memoryAudit) Append(_ context.Context, event models.AuditEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, event)
	return nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	titles []string
}

func (n *fakeNotifier) NotifyFarmer(_ context.Context, _, title, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.titles = append(n.titles, title)
	return nil
}

type memoryPolicyStore struct {
	mu       sync.Mutex
	policies map[uuid.UUID]*models.RegisteredPolicy
}

func newMemoryPolicyStore() *memoryPolicyStore {
	return &memoryPolicyStore{policies: make(map[uuid.UUID]*models.RegisteredPolicy)}
}

func (s *memoryPolicyStore) GetByID(_ context.Context, id uuid.UUID) (*models.RegisteredPolicy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	policy, ok := s.policies[id]
	if !ok {
		return nil, fmt.Errorf("policy %s: %w", id, models.ErrNotFound)
	}
	clone := *policy
	return &clone, nil
}

func (s *memoryPolicyStore) Create(_ context.Context, policy *models.RegisteredPolicy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *policy
	s.policies[policy.ID] = &clone
	return nil
}

func (s *memoryPolicyStore) SwapStatus(_ context.Context, id uuid.UUID, expected, next models.PolicyStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	policy, ok := s.policies[id]
	if !ok {
		return fmt.Errorf("policy %s: %w", id, models.ErrNotFound)
	}
	if policy.Status != expected {
		return fmt.Errorf("policy %s is %s, expected %s: %w", id, policy.Status, expected, models.ErrConflict)
	}
	policy.Status = next
	return nil
}

func (s *memoryPolicyStore) SwapUnderwriting(_ context.Context, policy *models.RegisteredPolicy, expected models.PolicyStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.policies[policy.ID]
	if !ok {
		return fmt.Errorf("policy %s: %w", policy.ID, models.ErrNotFound)
	}
	if stored.Status != expected {
		return fmt.Errorf("policy %s is %s, expected %s: %w", policy.ID, stored.Status, expected, models.ErrConflict)
	}
	clone := *policy
	s.policies[policy.ID] = &clone
	return nil
}

func (s *memoryPolicyStore) SwapPremiumPaid(_ context.Context, id uuid.UUID, paidAt int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	policy, ok := s.policies[id]
	if !ok {
		return fmt.Errorf("policy %s: %w", id, models.ErrNotFound)
	}
	if policy.Status != models.PolicyPendingPayment {
		return fmt.Errorf("policy %s is %s, expected %s: %w", id, policy.Status, models.PolicyPendingPayment, models.ErrConflict)
	}
	policy.Status = models.PolicyActive
	policy.PremiumPaidByFarmer = true
	policy.PremiumPaidAt = &paidAt
	return nil
}

type memoryCancelStore struct {
	mu       sync.Mutex
	requests map[uuid.UUID]*models.CancelRequest
}

func newMemoryCancelStore() *memoryCancelStore {
	return &memoryCancelStore{requests: make(map[uuid.UUID]*models.CancelRequest)}
}

func (s *memoryCancelStore) GetByID(_ context.Context, id uuid.UUID) (*models.CancelRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	request, ok := s.requests[id]
	if !ok {
		return nil, fmt.Errorf("cancel request %s: %w", id, models.ErrNotFound)
	}
	clone := *request
	return &clone, nil
}

func (s *memoryCancelStore) GetActiveByPolicyID(_ context.Context, policyID uuid.UUID) (*models.CancelRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, request := range s.requests {
		if request.RegisteredPolicyID != policyID {
			continue
		}
		if request.Status == models.CancelRequestPendingReview ||
			request.Status == models.CancelRequestLitigation ||
			request.Status == models.CancelRequestPaymentFailed {
			clone := *request
			return &clone, nil
		}
	}
	return nil, fmt.Errorf("no active cancel request for policy %s: %w", policyID, models.ErrNotFound)
}

func (s *memoryCancelStore) Create(_ context.Context, cancelRequest *models.CancelRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.requests {
		if existing.RegisteredPolicyID == cancelRequest.RegisteredPolicyID &&
			!models.IsTerminalCancelRequestStatus(existing.Status) {
			return fmt.Errorf("cancel request already in flight: %w", models.ErrConflict)
		}
	}
	clone := *cancelRequest
	s.requests[cancelRequest.ID] = &clone
	return nil
}

func (s *memoryCancelStore) Swap(_ context.Context, cancelRequest *models.CancelRequest, expected models.CancelRequestStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.requests[cancelRequest.ID]
	if !ok {
		return fmt.Errorf("cancel request %s: %w", cancelRequest.ID, models.ErrNotFound)
	}
	if stored.Status != expected {
		return fmt.Errorf("cancel request %s is %s, expected %s: %w", cancelRequest.ID, stored.Status, expected, models.ErrConflict)
	}
	clone := *cancelRequest
	s.requests[cancelRequest.ID] = &clone
	return nil
}

type memoryClaimStore struct {
	mu     sync.Mutex
	claims map[uuid.UUID]*models.Claim
}

func newMemoryClaimStore() *memoryClaimStore {
	return &memoryClaimStore{claims: make(map[uuid.UUID]*models.Claim)}
}

func (s *memoryClaimStore) GetByID(_ context.Context, id uuid.UUID) (*models.Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	claim, ok := s.claims[id]
	if !ok {
		return nil, fmt.Errorf("claim %s: %w", id, models.ErrNotFound)
	}
	clone := *claim
	return &clone, nil
}

func (s *memoryClaimStore) Create(_ context.Context, claim *models.Claim) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *claim
	s.claims[claim.ID] = &clone
	return nil
}

func (s *memoryClaimStore) Swap(_ context.Context, claim *models.Claim, expected models.ClaimStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.claims[claim.ID]
	if !ok {
		return fmt.Errorf("claim %s: %w", claim.ID, models.ErrNotFound)
	}
	if stored.Status != expected {
		return fmt.Errorf("claim %s is %s, expected %s: %w", claim.ID, stored.Status, expected, models.ErrConflict)
	}
	clone := *claim
	s.claims[claim.ID] = &clone
	return nil
}

func (s *memoryClaimStore) ListPendingDeadlines(_ context.Context, before int64) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []uuid.UUID
	for _, claim := range s.claims {
		if claim.Status == models.ClaimPendingPartnerReview &&
			claim.AutoApprovalDeadline != nil && *claim.AutoApprovalDeadline <= before {
			ids = append(ids, claim.ID)
		}
	}
	return ids, nil
}

type memoryPayoutStore struct {
	mu      sync.Mutex
	payouts map[uuid.UUID]*models.Payout
}

func newMemoryPayoutStore() *memoryPayoutStore {
	return &memoryPayoutStore{payouts: make(map[uuid.UUID]*models.Payout)}
}

func (s *memoryPayoutStore) GetByID(_ context.Context, id uuid.UUID) (*models.Payout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	payout, ok := s.payouts[id]
	if !ok {
		return nil, fmt.Errorf("payout %s: %w", id, models.ErrNotFound)
	}
	clone := *payout
	return &clone, nil
}

func (s *memoryPayoutStore) GetByClaimID(_ context.Context, claimID uuid.UUID) (*models.Payout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, payout := range s.payouts {
		if payout.ClaimID == claimID {
			clone := *payout
			return &clone, nil
		}
	}
	return nil, fmt.Errorf("no payout for claim %s: %w", claimID, models.ErrNotFound)
}

func (s *memoryPayoutStore) Create(_ context.Context, payout *models.Payout) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.payouts {
		if existing.ClaimID == payout.ClaimID {
			return fmt.Errorf("payout for claim %s already exists: %w", payout.ClaimID, models.ErrConflict)
		}
	}
	clone := *payout
	s.payouts[payout.ID] = &clone
	return nil
}

func (s *memoryPayoutStore) Swap(_ context.Context, payout *models.Payout, expected models.PayoutStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.payouts[payout.ID]
	if !ok {
		return fmt.Errorf("payout %s: %w", payout.ID, models.ErrNotFound)
	}
	if stored.Status != expected {
		return fmt.Errorf("payout %s is %s, expected %s: %w", payout.ID, stored.Status, expected, models.ErrConflict)
	}
	clone := *payout
	s.payouts[payout.ID] = &clone
	return nil
}

func (s *memoryPayoutStore) SwapConfirmed(_ context.Context, payout *models.Payout) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.payouts[payout.ID]
	if !ok {
		return fmt.Errorf("payout %s: %w", payout.ID, models.ErrNotFound)
	}
	if stored.Status != models.PayoutCompleted || stored.FarmerConfirmed {
		return fmt.Errorf("payout %s not confirmable: %w", payout.ID, models.ErrConflict)
	}
	clone := *payout
	s.payouts[payout.ID] = &clone
	return nil
}
