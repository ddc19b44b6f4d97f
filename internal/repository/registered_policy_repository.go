package repository

import (
	"context"
	"fmt"
	"policy-lifecycle/internal/models"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type RegisteredPolicyRepository struct {
	db *sqlx.DB
}

func NewRegisteredPolicyRepository(db *sqlx.DB) *RegisteredPolicyRepository {
	return &RegisteredPolicyRepository{db: db}
}

func (r *RegisteredPolicyRepository) Create(ctx context.Context, policy *models.RegisteredPolicy) error {
	if policy.ID == uuid.Nil {
		policy.ID = uuid.New()
	}
	policy.CreatedAt = time.Now()
	policy.UpdatedAt = time.Now()

	query := `
		INSERT INTO registered_policy (
			id, policy_number, base_policy_id, insurance_provider_id, farm_id, farmer_id,
			coverage_amount, coverage_start_date, coverage_end_date,
			total_farmer_premium, premium_paid_by_farmer, premium_paid_at,
			status, underwriting_status, underwriting_reason, underwritten_by,
			created_at, updated_at, registered_by
		) VALUES (
			:id, :policy_number, :base_policy_id, :insurance_provider_id, :farm_id, :farmer_id,
			:coverage_amount, :coverage_start_date, :coverage_end_date,
			:total_farmer_premium, :premium_paid_by_farmer, :premium_paid_at,
			:status, :underwriting_status, :underwriting_reason, :underwritten_by,
			:created_at, :updated_at, :registered_by
		)`

	_, err := r.db.NamedExecContext(ctx, query, policy)
	if err != nil {
		if isUniqueViolation(err) {
			return models.ErrConflict
		}
		return fmt.Errorf("failed to create registered policy: %w", err)
	}

	return nil
}

func (r *RegisteredPolicyRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.RegisteredPolicy, error) {
	var policy models.RegisteredPolicy
	query := `SELECT * FROM registered_policy WHERE id = $1`

	err := r.db.GetContext(ctx, &policy, query, id)
	if err != nil {
		return nil, translateGetErr(err, "registered policy")
	}

	return &policy, nil
}

func (r *RegisteredPolicyRepository) GetByFarmerID(ctx context.Context, farmerID string) ([]models.RegisteredPolicy, error) {
	var policies []models.RegisteredPolicy
	query := `SELECT * FROM registered_policy WHERE farmer_id = $1 ORDER BY created_at DESC`

	err := r.db.SelectContext(ctx, &policies, query, farmerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get registered policies by farmer: %w", err)
	}

	return policies, nil
}

func (r *RegisteredPolicyRepository) GetByInsuranceProviderID(ctx context.Context, providerID string) ([]models.RegisteredPolicy, error) {
	var policies []models.RegisteredPolicy
	query := `SELECT * FROM registered_policy WHERE insurance_provider_id = $1 ORDER BY created_at DESC`

	err := r.db.SelectContext(ctx, &policies, query, providerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get registered policies by provider: %w", err)
	}

	return policies, nil
}

// SwapStatus moves the policy status from expected to next atomically. The
// whole row is not rewritten: the cancellation engine only owns the status
// column and must not clobber concurrent underwriting writes.
func (r *RegisteredPolicyRepository) SwapStatus(ctx context.Context, id uuid.UUID, expected, next models.PolicyStatus) error {
	query := `UPDATE registered_policy SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`

	result, err := r.db.ExecContext(ctx, query, next, time.Now(), id, expected)
	if err != nil {
		return fmt.Errorf("failed to swap policy status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return resolveSwapFailure(ctx, r.db, "registered_policy", id)
	}

	return nil
}

// SwapUnderwriting records an underwriting decision; only legal while the
// policy status still matches expected.
func (r *RegisteredPolicyRepository) SwapUnderwriting(ctx context.Context, policy *models.RegisteredPolicy, expected models.PolicyStatus) error {
	policy.UpdatedAt = time.Now()

	query := `
		UPDATE registered_policy SET
			status = $1, underwriting_status = $2, underwriting_reason = $3,
			underwritten_by = $4, updated_at = $5
		WHERE id = $6 AND status = $7`

	result, err := r.db.ExecContext(ctx, query,
		policy.Status, policy.UnderwritingStatus, policy.UnderwritingReason,
		policy.UnderwrittenBy, policy.UpdatedAt, policy.ID, expected)
	if err != nil {
		return fmt.Errorf("failed to record underwriting decision: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return resolveSwapFailure(ctx, r.db, "registered_policy", policy.ID)
	}

	return nil
}

// SwapPremiumPaid activates the policy once the farmer premium is settled.
func (r *RegisteredPolicyRepository) SwapPremiumPaid(ctx context.Context, id uuid.UUID, paidAt int64) error {
	query := `
		UPDATE registered_policy SET
			status = $1, premium_paid_by_farmer = true, premium_paid_at = $2, updated_at = $3
		WHERE id = $4 AND status = $5`

	result, err := r.db.ExecContext(ctx, query,
		models.PolicyActive, paidAt, time.Now(), id, models.PolicyPendingPayment)
	if err != nil {
		return fmt.Errorf("failed to mark premium paid: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return resolveSwapFailure(ctx, r.db, "registered_policy", id)
	}

	return nil
}

// ListExpiredCoverage returns ids of active policies whose coverage window has
// closed, for the expiration sweep.
func (r *RegisteredPolicyRepository) ListExpiredCoverage(ctx context.Context, before int64) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	query := `SELECT id FROM registered_policy WHERE status = $1 AND coverage_end_date < $2`

	err := r.db.SelectContext(ctx, &ids, query, models.PolicyActive, before)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired coverage: %w", err)
	}

	return ids, nil
}
