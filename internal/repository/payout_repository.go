package repository

import (
	"context"
	"fmt"
	"policy-lifecycle/internal/models"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type PayoutRepository struct {
	db *sqlx.DB
}

func NewPayoutRepository(db *sqlx.DB) *PayoutRepository {
	return &PayoutRepository{db: db}
}

func (r *PayoutRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Payout, error) {
	var payout models.Payout
	query := `SELECT * FROM payout WHERE id = $1`

	err := r.db.GetContext(ctx, &payout, query, id)
	if err != nil {
		return nil, translateGetErr(err, "payout")
	}

	return &payout, nil
}

func (r *PayoutRepository) GetByClaimID(ctx context.Context, claimID uuid.UUID) (*models.Payout, error) {
	var payout models.Payout
	query := `SELECT * FROM payout WHERE claim_id = $1`

	err := r.db.GetContext(ctx, &payout, query, claimID)
	if err != nil {
		return nil, translateGetErr(err, "payout")
	}

	return &payout, nil
}

func (r *PayoutRepository) GetByFarmerID(ctx context.Context, farmerID string) ([]models.Payout, error) {
	var payouts []models.Payout
	query := `SELECT * FROM payout WHERE farmer_id = $1 ORDER BY created_at DESC`

	err := r.db.SelectContext(ctx, &payouts, query, farmerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get payouts by farmer: %w", err)
	}

	return payouts, nil
}

func (r *PayoutRepository) GetByRegisteredPolicyID(ctx context.Context, policyID uuid.UUID) ([]models.Payout, error) {
	var payouts []models.Payout
	query := `SELECT * FROM payout WHERE registered_policy_id = $1 ORDER BY created_at DESC`

	err := r.db.SelectContext(ctx, &payouts, query, policyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get payouts by policy: %w", err)
	}

	return payouts, nil
}

// Create inserts a payout in processing. The unique index on claim_id is the
// "no existing payout for claim" guard: a duplicate create reports ErrConflict.
func (r *PayoutRepository) Create(ctx context.Context, payout *models.Payout) error {
	if payout.ID == uuid.Nil {
		payout.ID = uuid.New()
	}
	if payout.CreatedAt.IsZero() {
		payout.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO payout (
			id, claim_id, registered_policy_id, farm_id, farmer_id,
			payout_amount, currency, status, initiated_at, completed_at, failure_reason,
			farmer_confirmed, farmer_confirmation_timestamp, farmer_rating, farmer_feedback,
			created_at
		) VALUES (
			:id, :claim_id, :registered_policy_id, :farm_id, :farmer_id,
			:payout_amount, :currency, :status, :initiated_at, :completed_at, :failure_reason,
			:farmer_confirmed, :farmer_confirmation_timestamp, :farmer_rating, :farmer_feedback,
			:created_at
		)`

	_, err := r.db.NamedExecContext(ctx, query, payout)
	if err != nil {
		if isUniqueViolation(err) {
			return models.ErrConflict
		}
		return fmt.Errorf("failed to create payout: %w", err)
	}

	return nil
}

// Swap writes the mutated payout only while the stored status matches expected.
func (r *PayoutRepository) Swap(ctx context.Context, payout *models.Payout, expected models.PayoutStatus) error {
	query := `
		UPDATE payout SET
			status = $1, completed_at = $2, failure_reason = $3,
			farmer_confirmed = $4, farmer_confirmation_timestamp = $5,
			farmer_rating = $6, farmer_feedback = $7
		WHERE id = $8 AND status = $9`

	result, err := r.db.ExecContext(ctx, query,
		payout.Status, payout.CompletedAt, payout.FailureReason,
		payout.FarmerConfirmed, payout.FarmerConfirmationTimestamp,
		payout.FarmerRating, payout.FarmerFeedback,
		payout.ID, expected)
	if err != nil {
		return fmt.Errorf("failed to swap payout: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return resolveSwapFailure(ctx, r.db, "payout", payout.ID)
	}

	return nil
}

// SwapConfirmed performs the farmer-confirmation write. Guarded on both status
// and farmer_confirmed = false so a repeated confirmation touches zero rows and
// the caller treats it as the idempotent no-op.
func (r *PayoutRepository) SwapConfirmed(ctx context.Context, payout *models.Payout) error {
	query := `
		UPDATE payout SET
			farmer_confirmed = true, farmer_confirmation_timestamp = $1,
			farmer_rating = $2, farmer_feedback = $3
		WHERE id = $4 AND status = $5 AND farmer_confirmed = false`

	result, err := r.db.ExecContext(ctx, query,
		payout.FarmerConfirmationTimestamp, payout.FarmerRating, payout.FarmerFeedback,
		payout.ID, models.PayoutCompleted)
	if err != nil {
		return fmt.Errorf("failed to confirm payout: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return resolveSwapFailure(ctx, r.db, "payout", payout.ID)
	}

	return nil
}
