package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"policy-lifecycle/internal/models"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type CancelRequestRepository struct {
	db *sqlx.DB
}

func NewCancelRequestRepository(db *sqlx.DB) *CancelRequestRepository {
	return &CancelRequestRepository{db: db}
}

func (r *CancelRequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.CancelRequest, error) {
	var cancelRequest models.CancelRequest
	query := `SELECT * FROM cancel_request WHERE id = $1`

	err := r.db.GetContext(ctx, &cancelRequest, query, id)
	if err != nil {
		return nil, translateGetErr(err, "cancel request")
	}

	return &cancelRequest, nil
}

func (r *CancelRequestRepository) GetByPolicyID(ctx context.Context, policyID uuid.UUID) ([]models.CancelRequest, error) {
	var cancelRequests []models.CancelRequest
	query := `SELECT * FROM cancel_request WHERE registered_policy_id = $1 ORDER BY created_at DESC`

	err := r.db.SelectContext(ctx, &cancelRequests, query, policyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cancel requests by policy: %w", err)
	}

	return cancelRequests, nil
}

// GetActiveByPolicyID returns the one non-terminal request for a policy, or
// ErrNotFound when the policy has none in flight.
func (r *CancelRequestRepository) GetActiveByPolicyID(ctx context.Context, policyID uuid.UUID) (*models.CancelRequest, error) {
	var cancelRequest models.CancelRequest
	query := `
		SELECT * FROM cancel_request
		WHERE registered_policy_id = $1 AND status IN ($2, $3, $4)
		ORDER BY created_at DESC LIMIT 1`

	err := r.db.GetContext(ctx, &cancelRequest, query, policyID,
		models.CancelRequestPendingReview, models.CancelRequestLitigation, models.CancelRequestPaymentFailed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get active cancel request: %w", err)
	}

	return &cancelRequest, nil
}

// Create inserts a new pending request. The partial unique index on
// (registered_policy_id) over non-terminal statuses turns a create race into
// ErrConflict instead of a second live request.
func (r *CancelRequestRepository) Create(ctx context.Context, cancelRequest *models.CancelRequest) error {
	if cancelRequest.ID == uuid.Nil {
		cancelRequest.ID = uuid.New()
	}
	cancelRequest.CreatedAt = time.Now()

	query := `
		INSERT INTO cancel_request (
			id, registered_policy_id, cancel_request_type, reason, evidence,
			status, requested_by, requested_at, during_notice_period, compensate_amount,
			reviewed_by, reviewed_at, review_notes, final_decision, paid, paid_at, created_at
		) VALUES (
			:id, :registered_policy_id, :cancel_request_type, :reason, :evidence,
			:status, :requested_by, :requested_at, :during_notice_period, :compensate_amount,
			:reviewed_by, :reviewed_at, :review_notes, :final_decision, :paid, :paid_at, :created_at
		)`

	_, err := r.db.NamedExecContext(ctx, query, cancelRequest)
	if err != nil {
		if isUniqueViolation(err) {
			return models.ErrConflict
		}
		return fmt.Errorf("failed to create cancel request: %w", err)
	}

	return nil
}

// Swap writes the mutated request only if the stored status still matches
// expected, so concurrent reviewers cannot both apply a decision.
func (r *CancelRequestRepository) Swap(ctx context.Context, cancelRequest *models.CancelRequest, expected models.CancelRequestStatus) error {
	query := `
		UPDATE cancel_request SET
			status = $1, reviewed_by = $2, reviewed_at = $3, review_notes = $4,
			final_decision = $5, paid = $6, paid_at = $7
		WHERE id = $8 AND status = $9`

	result, err := r.db.ExecContext(ctx, query,
		cancelRequest.Status, cancelRequest.ReviewedBy, cancelRequest.ReviewedAt,
		cancelRequest.ReviewNotes, cancelRequest.FinalDecision,
		cancelRequest.Paid, cancelRequest.PaidAt,
		cancelRequest.ID, expected)
	if err != nil {
		return fmt.Errorf("failed to swap cancel request: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return resolveSwapFailure(ctx, r.db, "cancel_request", cancelRequest.ID)
	}

	return nil
}
