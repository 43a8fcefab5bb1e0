// internal/repository/postgres/topup_pg.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"wallet-ledger/internal/domain"
	"wallet-ledger/internal/repository"
	"wallet-ledger/internal/util"
)

// TopUpRepository implements repository.TopUpRepository for PostgreSQL.
type TopUpRepository struct{}

// NewTopUpRepository creates a new TopUpRepository.
func NewTopUpRepository() repository.TopUpRepository {
	return &TopUpRepository{}
}

const topUpColumns = `id, account_id, amount, currency, status, external_ref, created_at, updated_at`

// CreateTopUp inserts a new top-up record using the provided DBExecutor.
func (r *TopUpRepository) CreateTopUp(ctx context.Context, q repository.DBExecutor, topUp *domain.TopUp) error {
	query := `INSERT INTO topups (` + topUpColumns + `)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := q.ExecContext(ctx, query,
		topUp.ID,
		topUp.AccountID,
		topUp.Amount,
		topUp.Currency,
		topUp.Status,
		topUp.ExternalRef,
		topUp.CreatedAt,
		topUp.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("top-up for intent %s: %w", topUp.ExternalRef, util.ErrDuplicateEntry)
		}
		return fmt.Errorf("failed to create top-up: %w", err)
	}
	return nil
}

// GetTopUpByExternalRef retrieves a top-up by its processor reference.
func (r *TopUpRepository) GetTopUpByExternalRef(ctx context.Context, q repository.DBExecutor, externalRef string) (*domain.TopUp, error) {
	var topUp domain.TopUp
	query := `SELECT ` + topUpColumns + ` FROM topups WHERE external_ref = $1`
	err := q.GetContext(ctx, &topUp, query, externalRef)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, util.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get top-up by reference %s: %w", externalRef, err)
	}
	return &topUp, nil
}

// TransitionFromPending flips a PENDING top-up to status. Concurrent callers
// block on the row lock and re-check the predicate, so exactly one of them
// gets the row back.
func (r *TopUpRepository) TransitionFromPending(ctx context.Context, q repository.DBExecutor, externalRef string, status domain.TopUpStatus) (*domain.TopUp, error) {
	var topUp domain.TopUp
	query := `UPDATE topups SET status = $1, updated_at = $2
              WHERE external_ref = $3 AND status = $4
              RETURNING ` + topUpColumns
	err := q.GetContext(ctx, &topUp, query, status, time.Now().UTC(), externalRef, domain.TopUpStatusPending)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, util.ErrNotFound
		}
		return nil, fmt.Errorf("failed to transition top-up %s to %s: %w", externalRef, status, err)
	}
	return &topUp, nil
}

// ListPendingTopUps lists PENDING top-ups older than createdBefore, newest first,
// one keyset page at a time.
func (r *TopUpRepository) ListPendingTopUps(ctx context.Context, q repository.DBExecutor, createdBefore time.Time, after *repository.PendingCursor, limit int) ([]domain.TopUp, error) {
	topUps := []domain.TopUp{}
	query := `SELECT ` + topUpColumns + ` FROM topups
              WHERE status = $1 AND created_at <= $2
              ORDER BY created_at DESC, id DESC
              LIMIT $3`
	args := []interface{}{domain.TopUpStatusPending, createdBefore, limit}
	if after != nil {
		query = `SELECT ` + topUpColumns + ` FROM topups
              WHERE status = $1 AND created_at <= $2 AND (created_at, id) < ($4, $5)
              ORDER BY created_at DESC, id DESC
              LIMIT $3`
		args = append(args, after.CreatedAt, after.ID)
	}
	if err := q.SelectContext(ctx, &topUps, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list pending top-ups: %w", err)
	}
	return topUps, nil
}

// CountPendingTopUps counts all PENDING top-ups.
func (r *TopUpRepository) CountPendingTopUps(ctx context.Context, q repository.DBExecutor) (int64, error) {
	var count int64
	if err := q.GetContext(ctx, &count, `SELECT COUNT(*) FROM topups WHERE status = $1`, domain.TopUpStatusPending); err != nil {
		return 0, fmt.Errorf("failed to count pending top-ups: %w", err)
	}
	return count, nil
}

// ListTopUpsByAccount retrieves a paginated list of top-ups for an account.
// It performs two queries: one for the data and one for the total count.
func (r *TopUpRepository) ListTopUpsByAccount(ctx context.Context, q repository.DBExecutor, accountID string, limit, offset int) ([]domain.TopUp, int64, error) {
	topUps := []domain.TopUp{}

	query := `
		SELECT ` + topUpColumns + `
		FROM topups
		WHERE account_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`
	if err := q.SelectContext(ctx, &topUps, query, accountID, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("failed to fetch top-ups for account %s: %w", accountID, err)
	}

	var totalCount int64
	countQuery := `SELECT COUNT(*) FROM topups WHERE account_id = $1`
	if err := q.GetContext(ctx, &totalCount, countQuery, accountID); err != nil {
		return nil, 0, fmt.Errorf("failed to get total top-up count for account %s: %w", accountID, err)
	}

	return topUps, totalCount, nil
}
