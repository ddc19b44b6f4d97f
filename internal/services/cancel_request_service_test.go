package services

import (
	"context"
	"testing"
	"time"

	"policy-lifecycle/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testFarmerID  = "farmer-001"
	testPartnerID = "partner-001"
	testOutsider  = "stranger-999"
)

type cancelFixture struct {
	clock    *fakeClock
	policies *memoryPolicyStore
	requests *memoryCancelStore
	audit    *memoryAudit
	service  *CancelRequestService
	policy   *models.RegisteredPolicy
}

func newCancelFixture(t *testing.T) *cancelFixture {
	t.Helper()

	clock := newFakeClock()
	policies := newMemoryPolicyStore()
	requests := newMemoryCancelStore()
	audit := &memoryAudit{}
	service := NewCancelRequestService(policies, requests, audit, clock, 168*time.Hour, 168*time.Hour)

	policy := &models.RegisteredPolicy{
		ID:                  uuid.New(),
		PolicyNumber:        "POL-20250601-test",
		BasePolicyID:        uuid.New(),
		InsuranceProviderID: testPartnerID,
		FarmID:              uuid.New(),
		FarmerID:            testFarmerID,
		CoverageAmount:      100_000_000,
		Status:              models.PolicyActive,
	}
	require.NoError(t, policies.Create(context.Background(), policy))

	return &cancelFixture{
		clock:    clock,
		policies: policies,
		requests: requests,
		audit:    audit,
		service:  service,
		policy:   policy,
	}
}

func (f *cancelFixture) create(t *testing.T, actorID string) *models.CancelRequest {
	t.Helper()
	request, err := f.service.Create(context.Background(), actorID, models.CreateCancelRequestRequest{
		RegisteredPolicyID: f.policy.ID,
		CancelRequestType:  models.CancelOther,
		Reason:             "switching coverage",
		CompensateAmount:   500_000,
	})
	require.NoError(t, err)
	return request
}

func (f *cancelFixture) policyStatus(t *testing.T) models.PolicyStatus {
	t.Helper()
	policy, err := f.policies.GetByID(context.Background(), f.policy.ID)
	require.NoError(t, err)
	return policy.Status
}

func TestCreateCancelRequest(t *testing.T) {
	f := newCancelFixture(t)

	request := f.create(t, testFarmerID)

	assert.Equal(t, models.CancelRequestPendingReview, request.Status)
	assert.Equal(t, testFarmerID, request.RequestedBy)
	assert.True(t, request.DuringNoticePeriod)
	assert.Equal(t, models.PolicyPendingCancel, f.policyStatus(t))
}

func TestCreateCancelRequestRejectsOutsider(t *testing.T) {
	f := newCancelFixture(t)

	_, err := f.service.Create(context.Background(), testOutsider, models.CreateCancelRequestRequest{
		RegisteredPolicyID: f.policy.ID,
		CancelRequestType:  models.CancelOther,
		Reason:             "not my policy",
	})
	assert.ErrorIs(t, err, models.ErrInvalidActor)
	assert.Equal(t, models.PolicyActive, f.policyStatus(t))
}

func TestCreateCancelRequestRequiresActivePolicy(t *testing.T) {
	f := newCancelFixture(t)
	require.NoError(t, f.policies.SwapStatus(context.Background(), f.policy.ID, models.PolicyActive, models.PolicyExpired))

	_, err := f.service.Create(context.Background(), testFarmerID, models.CreateCancelRequestRequest{
		RegisteredPolicyID: f.policy.ID,
		CancelRequestType:  models.CancelOther,
		Reason:             "too late",
	})
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestCreateCancelRequestRejectsSecondInFlight(t *testing.T) {
	f := newCancelFixture(t)
	f.create(t, testFarmerID)

	_, err := f.service.Create(context.Background(), testPartnerID, models.CreateCancelRequestRequest{
		RegisteredPolicyID: f.policy.ID,
		CancelRequestType:  models.CancelContractViolation,
		Reason:             "competing request",
	})
	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestReviewApprove(t *testing.T) {
	f := newCancelFixture(t)
	request := f.create(t, testFarmerID)

	reviewed, err := f.service.Review(context.Background(), request.ID, testPartnerID, models.ReviewCancelRequestRequest{
		Approve:     true,
		ReviewNotes: "agreed terms",
	})
	require.NoError(t, err)

	assert.Equal(t, models.CancelRequestApproved, reviewed.Status)
	require.NotNil(t, reviewed.ReviewedBy)
	assert.Equal(t, testPartnerID, *reviewed.ReviewedBy)
	assert.Equal(t, models.PolicyCancelled, f.policyStatus(t))
}

func TestReviewDenyReturnsPolicyToActive(t *testing.T) {
	f := newCancelFixture(t)
	request := f.create(t, testFarmerID)

	reviewed, err := f.service.Review(context.Background(), request.ID, testPartnerID, models.ReviewCancelRequestRequest{
		Approve: false,
	})
	require.NoError(t, err)

	assert.Equal(t, models.CancelRequestDenied, reviewed.Status)
	assert.Equal(t, models.PolicyActive, f.policyStatus(t))
}

func TestReviewRejectsRequester(t *testing.T) {
	f := newCancelFixture(t)
	request := f.create(t, testFarmerID)

	_, err := f.service.Review(context.Background(), request.ID, testFarmerID, models.ReviewCancelRequestRequest{Approve: true})
	assert.ErrorIs(t, err, models.ErrInvalidActor)
}

func TestReviewSingleWinner(t *testing.T) {
	f := newCancelFixture(t)
	request := f.create(t, testFarmerID)

	_, err := f.service.Review(context.Background(), request.ID, testPartnerID, models.ReviewCancelRequestRequest{Approve: true})
	require.NoError(t, err)

	// The second decision arrives after the first committed.
	_, err = f.service.Review(context.Background(), request.ID, testPartnerID, models.ReviewCancelRequestRequest{Approve: false})
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
	assert.Equal(t, models.PolicyCancelled, f.policyStatus(t))
}

func TestReviewLostCASRaceIsConflict(t *testing.T) {
	f := newCancelFixture(t)
	request := f.create(t, testFarmerID)

	// Simulate a concurrent reviewer committing between this caller's read
	// and its swap.
	stale, err := f.requests.GetByID(context.Background(), request.ID)
	require.NoError(t, err)

	_, err = f.service.Review(context.Background(), request.ID, testPartnerID, models.ReviewCancelRequestRequest{Approve: true})
	require.NoError(t, err)

	stale.Status = models.CancelRequestDenied
	err = f.requests.Swap(context.Background(), stale, models.CancelRequestPendingReview)
	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestRevokePendingRequest(t *testing.T) {
	f := newCancelFixture(t)
	request := f.create(t, testFarmerID)

	revoked, err := f.service.Revoke(context.Background(), request.ID, testFarmerID)
	require.NoError(t, err)

	assert.Equal(t, models.CancelRequestCancelled, revoked.Status)
	assert.Equal(t, models.PolicyActive, f.policyStatus(t))
}

func TestRevokeRejectsNonRequester(t *testing.T) {
	f := newCancelFixture(t)
	request := f.create(t, testFarmerID)

	_, err := f.service.Revoke(context.Background(), request.ID, testPartnerID)
	assert.ErrorIs(t, err, models.ErrInvalidActor)
}

func TestRevokeRejectsLitigation(t *testing.T) {
	f := newCancelFixture(t)
	request := f.create(t, testFarmerID)

	_, err := f.service.Review(context.Background(), request.ID, testPartnerID, models.ReviewCancelRequestRequest{Approve: false})
	require.NoError(t, err)
	_, err = f.service.EscalateDispute(context.Background(), request.ID, testFarmerID, "contesting denial")
	require.NoError(t, err)

	_, err = f.service.Revoke(context.Background(), request.ID, testFarmerID)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestRevokeRejectsTerminalRequest(t *testing.T) {
	f := newCancelFixture(t)
	request := f.create(t, testFarmerID)

	_, err := f.service.Review(context.Background(), request.ID, testPartnerID, models.ReviewCancelRequestRequest{Approve: true})
	require.NoError(t, err)

	_, err = f.service.Revoke(context.Background(), request.ID, testFarmerID)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestRevokeAfterNoticePeriodEnds(t *testing.T) {
	f := newCancelFixture(t)
	request := f.create(t, testFarmerID)

	_, err := f.service.Review(context.Background(), request.ID, testPartnerID, models.ReviewCancelRequestRequest{Approve: true})
	require.NoError(t, err)
	_, err = f.service.MarkPaymentFailed(context.Background(), request.ID, "payment-executor", "bank rejected transfer")
	require.NoError(t, err)

	f.clock.Advance(169 * time.Hour)
	_, err = f.service.Revoke(context.Background(), request.ID, testFarmerID)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestEscalateDisputeWithinWindow(t *testing.T) {
	f := newCancelFixture(t)
	request := f.create(t, testFarmerID)

	_, err := f.service.Review(context.Background(), request.ID, testPartnerID, models.ReviewCancelRequestRequest{Approve: false})
	require.NoError(t, err)

	f.clock.Advance(24 * time.Hour)
	escalated, err := f.service.EscalateDispute(context.Background(), request.ID, testFarmerID, "evidence was ignored")
	require.NoError(t, err)

	assert.Equal(t, models.CancelRequestLitigation, escalated.Status)
	assert.Equal(t, models.PolicyDispute, f.policyStatus(t))
}

func TestEscalateDisputeAfterWindowExpires(t *testing.T) {
	f := newCancelFixture(t)
	request := f.create(t, testFarmerID)

	_, err := f.service.Review(context.Background(), request.ID, testPartnerID, models.ReviewCancelRequestRequest{Approve: false})
	require.NoError(t, err)

	f.clock.Advance(168*time.Hour + time.Minute)
	_, err = f.service.EscalateDispute(context.Background(), request.ID, testFarmerID, "too late")
	assert.ErrorIs(t, err, models.ErrDeadlineExpired)
	assert.Equal(t, models.PolicyActive, f.policyStatus(t))
}

func TestEscalateDisputeRequesterOnly(t *testing.T) {
	f := newCancelFixture(t)
	request := f.create(t, testFarmerID)

	_, err := f.service.Review(context.Background(), request.ID, testPartnerID, models.ReviewCancelRequestRequest{Approve: false})
	require.NoError(t, err)

	_, err = f.service.EscalateDispute(context.Background(), request.ID, testPartnerID, "partner cannot escalate")
	assert.ErrorIs(t, err, models.ErrInvalidActor)
}

func TestResolveDisputeApproved(t *testing.T) {
	f := newCancelFixture(t)
	request := f.create(t, testFarmerID)

	_, err := f.service.Review(context.Background(), request.ID, testPartnerID, models.ReviewCancelRequestRequest{Approve: false})
	require.NoError(t, err)
	_, err = f.service.EscalateDispute(context.Background(), request.ID, testFarmerID, "contesting")
	require.NoError(t, err)

	resolved, err := f.service.ResolveDispute(context.Background(), request.ID, testPartnerID, models.ResolveDisputeRequest{
		FinalDecision: models.FinalDecisionApproved,
		ReviewNotes:   "arbiter sided with the farmer",
	})
	require.NoError(t, err)

	assert.Equal(t, models.CancelRequestApproved, resolved.Status)
	require.NotNil(t, resolved.FinalDecision)
	assert.Equal(t, models.FinalDecisionApproved, *resolved.FinalDecision)
	assert.Equal(t, models.PolicyCancelled, f.policyStatus(t))
}

func TestResolveDisputeRejectsRequester(t *testing.T) {
	f := newCancelFixture(t)
	request := f.create(t, testFarmerID)

	_, err := f.service.Review(context.Background(), request.ID, testPartnerID, models.ReviewCancelRequestRequest{Approve: false})
	require.NoError(t, err)
	_, err = f.service.EscalateDispute(context.Background(), request.ID, testFarmerID, "contesting")
	require.NoError(t, err)

	_, err = f.service.ResolveDispute(context.Background(), request.ID, testFarmerID, models.ResolveDisputeRequest{
		FinalDecision: models.FinalDecisionApproved,
	})
	assert.ErrorIs(t, err, models.ErrInvalidActor)
}

func TestCompensationPaymentLifecycle(t *testing.T) {
	f := newCancelFixture(t)
	request := f.create(t, testFarmerID)

	_, err := f.service.Review(context.Background(), request.ID, testPartnerID, models.ReviewCancelRequestRequest{Approve: true})
	require.NoError(t, err)
	assert.Equal(t, models.PolicyCancelled, f.policyStatus(t))

	// Executor reports a failure: the policy returns to pending_cancel.
	failed, err := f.service.MarkPaymentFailed(context.Background(), request.ID, "payment-executor", "bank rejected transfer")
	require.NoError(t, err)
	assert.Equal(t, models.CancelRequestPaymentFailed, failed.Status)
	assert.Equal(t, models.PolicyPendingCancel, f.policyStatus(t))

	// Retry succeeds: paid and back to cancelled.
	paid, err := f.service.MarkPaid(context.Background(), request.ID, "payment-executor")
	require.NoError(t, err)
	assert.Equal(t, models.CancelRequestApproved, paid.Status)
	assert.True(t, paid.Paid)
	require.NotNil(t, paid.PaidAt)
	assert.Equal(t, models.PolicyCancelled, f.policyStatus(t))

	// Double-pay is rejected.
	_, err = f.service.MarkPaid(context.Background(), request.ID, "payment-executor")
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestMarkPaymentFailedRequiresApproved(t *testing.T) {
	f := newCancelFixture(t)
	request := f.create(t, testFarmerID)

	_, err := f.service.MarkPaymentFailed(context.Background(), request.ID, "payment-executor", "premature")
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestFullCancellationScenario(t *testing.T) {
	f := newCancelFixture(t)

	// Farmer files, partner denies, farmer escalates, partner-side arbiter
	// approves, compensation is paid.
	request := f.create(t, testFarmerID)
	assert.Equal(t, models.PolicyPendingCancel, f.policyStatus(t))

	_, err := f.service.Review(context.Background(), request.ID, testPartnerID, models.ReviewCancelRequestRequest{Approve: false})
	require.NoError(t, err)
	assert.Equal(t, models.PolicyActive, f.policyStatus(t))

	f.clock.Advance(48 * time.Hour)
	_, err = f.service.EscalateDispute(context.Background(), request.ID, testFarmerID, "denial was unjustified")
	require.NoError(t, err)
	assert.Equal(t, models.PolicyDispute, f.policyStatus(t))

	_, err = f.service.ResolveDispute(context.Background(), request.ID, testPartnerID, models.ResolveDisputeRequest{
		FinalDecision: models.FinalDecisionApproved,
	})
	require.NoError(t, err)
	assert.Equal(t, models.PolicyCancelled, f.policyStatus(t))

	paid, err := f.service.MarkPaid(context.Background(), request.ID, "payment-executor")
	require.NoError(t, err)
	assert.True(t, paid.Paid)

	assert.NotEmpty(t, f.audit.events)
}
