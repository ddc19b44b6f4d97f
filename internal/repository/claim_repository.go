package repository

import (
	"context"
	"fmt"
	"policy-lifecycle/internal/models"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type ClaimRepository struct {
	db *sqlx.DB
}

func NewClaimRepository(db *sqlx.DB) *ClaimRepository {
	return &ClaimRepository{db: db}
}

func (r *ClaimRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Claim, error) {
	var claim models.Claim
	query := `SELECT * FROM claim WHERE id = $1`

	err := r.db.GetContext(ctx, &claim, query, id)
	if err != nil {
		return nil, translateGetErr(err, "claim")
	}

	return &claim, nil
}

func (r *ClaimRepository) GetByRegisteredPolicyID(ctx context.Context, policyID uuid.UUID) ([]models.Claim, error) {
	var claims []models.Claim
	query := `SELECT * FROM claim WHERE registered_policy_id = $1 ORDER BY created_at DESC`

	err := r.db.SelectContext(ctx, &claims, query, policyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get claims by policy id: %w", err)
	}

	return claims, nil
}

func (r *ClaimRepository) GetByFarmID(ctx context.Context, farmID uuid.UUID) ([]models.Claim, error) {
	var claims []models.Claim
	query := `SELECT * FROM claim WHERE farm_id = $1 ORDER BY created_at DESC`

	err := r.db.SelectContext(ctx, &claims, query, farmID)
	if err != nil {
		return nil, fmt.Errorf("failed to get claims by farm id: %w", err)
	}

	return claims, nil
}

func (r *ClaimRepository) Create(ctx context.Context, claim *models.Claim) error {
	if claim.ID == uuid.Nil {
		claim.ID = uuid.New()
	}
	claim.CreatedAt = time.Now()
	claim.UpdatedAt = claim.CreatedAt

	query := `
		INSERT INTO claim (
			id, claim_number, registered_policy_id, base_policy_id, farm_id,
			base_policy_trigger_id, trigger_timestamp, over_threshold_value,
			calculated_fix_payout, calculated_threshold_payout, claim_amount,
			status, auto_generated, partner_review_timestamp, partner_decision,
			partner_notes, reviewed_by, auto_approval_deadline, auto_approved,
			evidence_summary, created_at, updated_at
		) VALUES (
			:id, :claim_number, :registered_policy_id, :base_policy_id, :farm_id,
			:base_policy_trigger_id, :trigger_timestamp, :over_threshold_value,
			:calculated_fix_payout, :calculated_threshold_payout, :claim_amount,
			:status, :auto_generated, :partner_review_timestamp, :partner_decision,
			:partner_notes, :reviewed_by, :auto_approval_deadline, :auto_approved,
			:evidence_summary, :created_at, :updated_at
		)`

	_, err := r.db.NamedExecContext(ctx, query, claim)
	if err != nil {
		if isUniqueViolation(err) {
			return models.ErrConflict
		}
		return fmt.Errorf("failed to create claim: %w", err)
	}

	return nil
}

// Swap applies a review-state mutation guarded by the expected status. The
// partner decision and the scheduler's auto-approval race through here; only
// one of them can move the claim out of pending_partner_review.
func (r *ClaimRepository) Swap(ctx context.Context, claim *models.Claim, expected models.ClaimStatus) error {
	claim.UpdatedAt = time.Now()

	query := `
		UPDATE claim SET
			status = $1, partner_review_timestamp = $2, partner_decision = $3,
			partner_notes = $4, reviewed_by = $5, auto_approval_deadline = $6,
			auto_approved = $7, updated_at = $8
		WHERE id = $9 AND status = $10`

	result, err := r.db.ExecContext(ctx, query,
		claim.Status, claim.PartnerReviewTimestamp, claim.PartnerDecision,
		claim.PartnerNotes, claim.ReviewedBy, claim.AutoApprovalDeadline,
		claim.AutoApproved, claim.UpdatedAt,
		claim.ID, expected)
	if err != nil {
		return fmt.Errorf("failed to swap claim: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return resolveSwapFailure(ctx, r.db, "claim", claim.ID)
	}

	return nil
}

// ListPendingDeadlines returns claims still pending partner review whose
// auto-approval deadline has passed. The scheduler polls this; duplicate runs
// are harmless because AutoApprove is CAS-guarded.
func (r *ClaimRepository) ListPendingDeadlines(ctx context.Context, before int64) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	query := `
		SELECT id FROM claim
		WHERE status = $1 AND auto_approval_deadline IS NOT NULL AND auto_approval_deadline <= $2
		ORDER BY auto_approval_deadline`

	err := r.db.SelectContext(ctx, &ids, query, models.ClaimPendingPartnerReview, before)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending deadlines: %w", err)
	}

	return ids, nil
}
