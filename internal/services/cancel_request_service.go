package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"policy-lifecycle/internal/models"
	"time"

	"github.com/google/uuid"
)

// CancelRequestService owns the cancellation/dispute workflow: every status
// transition of a CancelRequest and the correlated RegisteredPolicy.status
// side effects. Guards are enforced with CAS on (id, expected status); a lost
// race surfaces as models.ErrConflict, never a silent overwrite.
type CancelRequestService struct {
	policyStore   PolicyStore
	cancelStore   CancelRequestStore
	audit         AuditSink
	clock         Clock
	noticePeriod  time.Duration
	disputeWindow time.Duration
}

func NewCancelRequestService(
	policyStore PolicyStore,
	cancelStore CancelRequestStore,
	audit AuditSink,
	clock Clock,
	noticePeriod time.Duration,
	disputeWindow time.Duration,
) *CancelRequestService {
	return &CancelRequestService{
		policyStore:   policyStore,
		cancelStore:   cancelStore,
		audit:         audit,
		clock:         clock,
		noticePeriod:  noticePeriod,
		disputeWindow: disputeWindow,
	}
}

// Create files a cancel request against an active policy. Either party may
// file; the policy moves to pending_cancel. The policy status CAS is the
// serialization point: two concurrent creates cannot both move the policy out
// of active.
func (s *CancelRequestService) Create(ctx context.Context, actorID string, request models.CreateCancelRequestRequest) (*models.CancelRequest, error) {
	policy, err := s.policyStore.GetByID(ctx, request.RegisteredPolicyID)
	if err != nil {
		return nil, err
	}

	if !policy.IsParty(actorID) {
		return nil, fmt.Errorf("%w: actor %s is not a party to policy %s", models.ErrInvalidActor, actorID, policy.ID)
	}
	if policy.Status != models.PolicyActive {
		return nil, fmt.Errorf("%w: cancel request requires an active policy, got %s", models.ErrInvalidTransition, policy.Status)
	}
	if _, err := s.cancelStore.GetActiveByPolicyID(ctx, policy.ID); err == nil {
		return nil, fmt.Errorf("%w: policy %s already has a cancel request in flight", models.ErrConflict, policy.ID)
	} else if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	if err := s.policyStore.SwapStatus(ctx, policy.ID, models.PolicyActive, models.PolicyPendingCancel); err != nil {
		return nil, err
	}

	now := s.clock.Now().Unix()
	cancelRequest := &models.CancelRequest{
		ID:                 uuid.New(),
		RegisteredPolicyID: policy.ID,
		CancelRequestType:  request.CancelRequestType,
		Reason:             request.Reason,
		Evidence:           request.Evidence,
		Status:             models.CancelRequestPendingReview,
		RequestedBy:        actorID,
		RequestedAt:        now,
		DuringNoticePeriod: s.noticePeriod > 0,
		CompensateAmount:   request.CompensateAmount,
	}

	if err := s.cancelStore.Create(ctx, cancelRequest); err != nil {
		// Undo the policy hold so the policy is not stuck in pending_cancel
		// without a live request.
		if swapErr := s.policyStore.SwapStatus(ctx, policy.ID, models.PolicyPendingCancel, models.PolicyActive); swapErr != nil {
			slog.Error("failed to release policy after cancel request create failure",
				"policy_id", policy.ID, "error", swapErr)
		}
		return nil, err
	}

	emitAudit(ctx, s.audit, s.clock, models.AuditEntityCancelRequest, cancelRequest.ID,
		"", string(models.CancelRequestPendingReview), actorID, request.Reason)
	emitAudit(ctx, s.audit, s.clock, models.AuditEntityPolicy, policy.ID,
		string(models.PolicyActive), string(models.PolicyPendingCancel), actorID, "cancel request filed")

	return cancelRequest, nil
}

// Review lets the counter-party approve or deny a pending request.
// Self-review is rejected: the reviewer must not be the requester.
func (s *CancelRequestService) Review(ctx context.Context, requestID uuid.UUID, actorID string, review models.ReviewCancelRequestRequest) (*models.CancelRequest, error) {
	cancelRequest, err := s.cancelStore.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if cancelRequest.Status != models.CancelRequestPendingReview {
		return nil, fmt.Errorf("%w: review requires pending_review, got %s", models.ErrInvalidTransition, cancelRequest.Status)
	}

	policy, err := s.policyStore.GetByID(ctx, cancelRequest.RegisteredPolicyID)
	if err != nil {
		return nil, err
	}
	if !policy.IsParty(actorID) {
		return nil, fmt.Errorf("%w: actor %s is not a party to policy %s", models.ErrInvalidActor, actorID, policy.ID)
	}
	if actorID == cancelRequest.RequestedBy {
		return nil, fmt.Errorf("%w: requester cannot review their own cancel request", models.ErrInvalidActor)
	}

	now := s.clock.Now().Unix()
	from := cancelRequest.Status
	notes := review.ReviewNotes
	cancelRequest.ReviewedBy = &actorID
	cancelRequest.ReviewedAt = &now
	if notes != "" {
		cancelRequest.ReviewNotes = &notes
	}

	var nextPolicy models.PolicyStatus
	if review.Approve {
		cancelRequest.Status = models.CancelRequestApproved
		nextPolicy = models.PolicyCancelled
	} else {
		cancelRequest.Status = models.CancelRequestDenied
		nextPolicy = models.PolicyActive
	}

	if err := s.cancelStore.Swap(ctx, cancelRequest, models.CancelRequestPendingReview); err != nil {
		return nil, err
	}

	s.swapPolicyStatus(ctx, policy.ID, models.PolicyPendingCancel, nextPolicy, actorID, "cancel request reviewed")

	emitAudit(ctx, s.audit, s.clock, models.AuditEntityCancelRequest, cancelRequest.ID,
		string(from), string(cancelRequest.Status), actorID, notes)

	return cancelRequest, nil
}

// Revoke withdraws a request. Requester only; legal while the request is
// pending_review, or inside the notice period for a non-terminal,
// non-litigation request.
func (s *CancelRequestService) Revoke(ctx context.Context, requestID uuid.UUID, actorID string) (*models.CancelRequest, error) {
	cancelRequest, err := s.cancelStore.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if actorID != cancelRequest.RequestedBy {
		return nil, fmt.Errorf("%w: only the requester may revoke a cancel request", models.ErrInvalidActor)
	}

	from := cancelRequest.Status
	switch {
	case from == models.CancelRequestPendingReview:
		// always revocable while pending
	case from == models.CancelRequestLitigation:
		return nil, fmt.Errorf("%w: a request in litigation cannot be revoked", models.ErrInvalidTransition)
	case models.IsTerminalCancelRequestStatus(from):
		return nil, fmt.Errorf("%w: cancel request already %s", models.ErrInvalidTransition, from)
	case !s.withinNoticePeriod(cancelRequest):
		return nil, fmt.Errorf("%w: notice period has ended", models.ErrInvalidTransition)
	}

	cancelRequest.Status = models.CancelRequestCancelled
	if err := s.cancelStore.Swap(ctx, cancelRequest, from); err != nil {
		return nil, err
	}

	s.swapPolicyStatus(ctx, cancelRequest.RegisteredPolicyID, models.PolicyPendingCancel, models.PolicyActive, actorID, "cancel request revoked")

	emitAudit(ctx, s.audit, s.clock, models.AuditEntityCancelRequest, cancelRequest.ID,
		string(from), string(models.CancelRequestCancelled), actorID, "revoked by requester")

	return cancelRequest, nil
}

// EscalateDispute contests a denial. Requester only, from denied, inside the
// dispute window counted from the review timestamp.
func (s *CancelRequestService) EscalateDispute(ctx context.Context, requestID uuid.UUID, actorID string, reason string) (*models.CancelRequest, error) {
	cancelRequest, err := s.cancelStore.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if actorID != cancelRequest.RequestedBy {
		return nil, fmt.Errorf("%w: only the requester may escalate a denial", models.ErrInvalidActor)
	}
	if cancelRequest.Status != models.CancelRequestDenied {
		return nil, fmt.Errorf("%w: escalation requires denied, got %s", models.ErrInvalidTransition, cancelRequest.Status)
	}
	if cancelRequest.ReviewedAt == nil {
		return nil, fmt.Errorf("%w: denied request has no review timestamp", models.ErrInvalidTransition)
	}
	if s.clock.Now().After(time.Unix(*cancelRequest.ReviewedAt, 0).Add(s.disputeWindow)) {
		return nil, fmt.Errorf("%w: dispute window closed", models.ErrDeadlineExpired)
	}

	cancelRequest.Status = models.CancelRequestLitigation
	if err := s.cancelStore.Swap(ctx, cancelRequest, models.CancelRequestDenied); err != nil {
		return nil, err
	}

	s.swapPolicyStatus(ctx, cancelRequest.RegisteredPolicyID, models.PolicyActive, models.PolicyDispute, actorID, "denial escalated to dispute")

	emitAudit(ctx, s.audit, s.clock, models.AuditEntityCancelRequest, cancelRequest.ID,
		string(models.CancelRequestDenied), string(models.CancelRequestLitigation), actorID, reason)

	return cancelRequest, nil
}

// ResolveDispute settles a litigation. Only the party that did not request the
// cancellation may resolve; the final decision is recorded and the policy
// lands on cancelled or active accordingly.
func (s *CancelRequestService) ResolveDispute(ctx context.Context, requestID uuid.UUID, actorID string, resolution models.ResolveDisputeRequest) (*models.CancelRequest, error) {
	cancelRequest, err := s.cancelStore.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if cancelRequest.Status != models.CancelRequestLitigation {
		return nil, fmt.Errorf("%w: resolution requires litigation, got %s", models.ErrInvalidTransition, cancelRequest.Status)
	}

	policy, err := s.policyStore.GetByID(ctx, cancelRequest.RegisteredPolicyID)
	if err != nil {
		return nil, err
	}
	if !policy.IsParty(actorID) {
		return nil, fmt.Errorf("%w: actor %s is not a party to policy %s", models.ErrInvalidActor, actorID, policy.ID)
	}
	if actorID == cancelRequest.RequestedBy {
		return nil, fmt.Errorf("%w: requester cannot resolve their own dispute", models.ErrInvalidActor)
	}

	now := s.clock.Now().Unix()
	decision := resolution.FinalDecision
	cancelRequest.FinalDecision = &decision
	cancelRequest.ReviewedBy = &actorID
	cancelRequest.ReviewedAt = &now
	if resolution.ReviewNotes != "" {
		notes := resolution.ReviewNotes
		cancelRequest.ReviewNotes = &notes
	}

	var nextPolicy models.PolicyStatus
	if decision == models.FinalDecisionApproved {
		cancelRequest.Status = models.CancelRequestApproved
		nextPolicy = models.PolicyCancelled
	} else {
		cancelRequest.Status = models.CancelRequestDenied
		nextPolicy = models.PolicyActive
	}

	if err := s.cancelStore.Swap(ctx, cancelRequest, models.CancelRequestLitigation); err != nil {
		return nil, err
	}

	s.swapPolicyStatus(ctx, policy.ID, models.PolicyDispute, nextPolicy, actorID, "dispute resolved")

	emitAudit(ctx, s.audit, s.clock, models.AuditEntityCancelRequest, cancelRequest.ID,
		string(models.CancelRequestLitigation), string(cancelRequest.Status), actorID, resolution.ReviewNotes)

	return cancelRequest, nil
}

// MarkPaid records the compensation payment result reported by the payment
// executor. Also accepts the payment_failed -> approved retry.
func (s *CancelRequestService) MarkPaid(ctx context.Context, requestID uuid.UUID, actorID string) (*models.CancelRequest, error) {
	cancelRequest, err := s.cancelStore.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	from := cancelRequest.Status
	switch from {
	case models.CancelRequestApproved:
		if cancelRequest.Paid {
			return nil, fmt.Errorf("%w: compensation already paid", models.ErrInvalidTransition)
		}
	case models.CancelRequestPaymentFailed:
		// retry succeeded
	default:
		return nil, fmt.Errorf("%w: mark paid requires approved, got %s", models.ErrInvalidTransition, from)
	}

	now := s.clock.Now().Unix()
	cancelRequest.Status = models.CancelRequestApproved
	cancelRequest.Paid = true
	cancelRequest.PaidAt = &now

	if err := s.cancelStore.Swap(ctx, cancelRequest, from); err != nil {
		return nil, err
	}

	if from == models.CancelRequestPaymentFailed {
		s.swapPolicyStatus(ctx, cancelRequest.RegisteredPolicyID, models.PolicyPendingCancel, models.PolicyCancelled, actorID, "compensation retry succeeded")
	}

	emitAudit(ctx, s.audit, s.clock, models.AuditEntityCancelRequest, cancelRequest.ID,
		string(from), string(cancelRequest.Status), actorID, "compensation paid")

	return cancelRequest, nil
}

// MarkPaymentFailed records a failed compensation payment. The policy returns
// to pending_cancel so the executor can retry against a consistent state.
func (s *CancelRequestService) MarkPaymentFailed(ctx context.Context, requestID uuid.UUID, actorID string, reason string) (*models.CancelRequest, error) {
	cancelRequest, err := s.cancelStore.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if cancelRequest.Status != models.CancelRequestApproved {
		return nil, fmt.Errorf("%w: payment failure requires approved, got %s", models.ErrInvalidTransition, cancelRequest.Status)
	}
	if cancelRequest.Paid {
		return nil, fmt.Errorf("%w: compensation already paid", models.ErrInvalidTransition)
	}

	cancelRequest.Status = models.CancelRequestPaymentFailed
	if err := s.cancelStore.Swap(ctx, cancelRequest, models.CancelRequestApproved); err != nil {
		return nil, err
	}

	s.swapPolicyStatus(ctx, cancelRequest.RegisteredPolicyID, models.PolicyCancelled, models.PolicyPendingCancel, actorID, "compensation payment failed")

	emitAudit(ctx, s.audit, s.clock, models.AuditEntityCancelRequest, cancelRequest.ID,
		string(models.CancelRequestApproved), string(models.CancelRequestPaymentFailed), actorID, reason)

	return cancelRequest, nil
}

func (s *CancelRequestService) withinNoticePeriod(cancelRequest *models.CancelRequest) bool {
	if !cancelRequest.DuringNoticePeriod {
		return false
	}
	deadline := time.Unix(cancelRequest.RequestedAt, 0).Add(s.noticePeriod)
	return s.clock.Now().Before(deadline)
}

// swapPolicyStatus applies a policy side effect after the authoritative cancel
// request CAS has committed. A lost policy swap is logged, not propagated: the
// request transition already happened and the policy read was advisory.
func (s *CancelRequestService) swapPolicyStatus(ctx context.Context, policyID uuid.UUID, expected, next models.PolicyStatus, actorID, reason string) {
	if err := s.policyStore.SwapStatus(ctx, policyID, expected, next); err != nil {
		slog.Error("policy status side effect failed",
			"policy_id", policyID, "expected", expected, "next", next, "error", err)
		return
	}
	emitAudit(ctx, s.audit, s.clock, models.AuditEntityPolicy, policyID,
		string(expected), string(next), actorID, reason)
}
