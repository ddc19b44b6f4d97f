package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"policy-lifecycle/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// The ledger stores expose three primitives per entity: Get, a compare-and-swap
// update keyed by (id, expected status), and — for claims — ListPendingDeadlines.
// Every workflow transition is expressed through these, so no two conflicting
// transitions can both succeed.

const pqUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}

// resolveSwapFailure distinguishes a lost CAS race from an unknown id after an
// UPDATE touched zero rows.
func resolveSwapFailure(ctx context.Context, db *sqlx.DB, table string, id uuid.UUID) error {
	var exists bool
	query := fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s WHERE id = $1)`, table)
	if err := db.GetContext(ctx, &exists, query, id); err != nil {
		return fmt.Errorf("failed to check %s existence: %w", table, err)
	}
	if !exists {
		return models.ErrNotFound
	}
	return models.ErrConflict
}

func translateGetErr(err error, entity string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return models.ErrNotFound
	}
	return fmt.Errorf("failed to get %s: %w", entity, err)
}
