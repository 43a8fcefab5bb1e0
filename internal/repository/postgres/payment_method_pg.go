// internal/repository/postgres/payment_method_pg.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"wallet-ledger/internal/domain"
	"wallet-ledger/internal/repository"
	"wallet-ledger/internal/util"
)

// PaymentMethodRepository implements repository.PaymentMethodRepository for PostgreSQL.
type PaymentMethodRepository struct{}

// NewPaymentMethodRepository creates a new PaymentMethodRepository.
func NewPaymentMethodRepository() repository.PaymentMethodRepository {
	return &PaymentMethodRepository{}
}

const paymentMethodColumns = `id, account_id, external_ref, brand, last4, exp_month, exp_year, is_default, created_at`

func (r *PaymentMethodRepository) CreatePaymentMethod(ctx context.Context, q repository.DBExecutor, pm *domain.PaymentMethod) error {
	query := `INSERT INTO payment_methods (` + paymentMethodColumns + `)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := q.ExecContext(ctx, query,
		pm.ID, pm.AccountID, pm.ExternalRef, pm.Brand, pm.Last4, pm.ExpMonth, pm.ExpYear, pm.IsDefault, pm.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("payment method %s: %w", pm.ExternalRef, util.ErrDuplicateEntry)
		}
		return fmt.Errorf("failed to create payment method: %w", err)
	}
	return nil
}

func (r *PaymentMethodRepository) GetPaymentMethodByID(ctx context.Context, q repository.DBExecutor, id string) (*domain.PaymentMethod, error) {
	var pm domain.PaymentMethod
	err := q.GetContext(ctx, &pm, `SELECT `+paymentMethodColumns+` FROM payment_methods WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, util.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get payment method %s: %w", id, err)
	}
	return &pm, nil
}

func (r *PaymentMethodRepository) ListPaymentMethodsByAccount(ctx context.Context, q repository.DBExecutor, accountID string) ([]domain.PaymentMethod, error) {
	methods := []domain.PaymentMethod{}
	query := `SELECT ` + paymentMethodColumns + ` FROM payment_methods
              WHERE account_id = $1
              ORDER BY is_default DESC, created_at, id`
	if err := q.SelectContext(ctx, &methods, query, accountID); err != nil {
		return nil, fmt.Errorf("failed to list payment methods for account %s: %w", accountID, err)
	}
	return methods, nil
}

func (r *PaymentMethodRepository) CountPaymentMethodsByAccount(ctx context.Context, q repository.DBExecutor, accountID string) (int, error) {
	var count int
	if err := q.GetContext(ctx, &count, `SELECT COUNT(*) FROM payment_methods WHERE account_id = $1`, accountID); err != nil {
		return 0, fmt.Errorf("failed to count payment methods for account %s: %w", accountID, err)
	}
	return count, nil
}

func (r *PaymentMethodRepository) DeletePaymentMethod(ctx context.Context, q repository.DBExecutor, id string) error {
	result, err := q.ExecContext(ctx, `DELETE FROM payment_methods WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete payment method %s: %w", id, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected after deleting payment method %s: %w", id, err)
	}
	if rowsAffected == 0 {
		return util.ErrNotFound
	}
	return nil
}

func (r *PaymentMethodRepository) ClearDefaultPaymentMethods(ctx context.Context, q repository.DBExecutor, accountID string) error {
	_, err := q.ExecContext(ctx, `UPDATE payment_methods SET is_default = FALSE WHERE account_id = $1 AND is_default`, accountID)
	if err != nil {
		return fmt.Errorf("failed to clear default payment method for account %s: %w", accountID, err)
	}
	return nil
}

func (r *PaymentMethodRepository) SetDefaultPaymentMethod(ctx context.Context, q repository.DBExecutor, id string) error {
	result, err := q.ExecContext(ctx, `UPDATE payment_methods SET is_default = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to set default payment method %s: %w", id, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected after setting default payment method %s: %w", id, err)
	}
	if rowsAffected == 0 {
		return util.ErrNotFound
	}
	return nil
}

func (r *PaymentMethodRepository) FirstRemainingPaymentMethod(ctx context.Context, q repository.DBExecutor, accountID string) (*domain.PaymentMethod, error) {
	var pm domain.PaymentMethod
	query := `SELECT ` + paymentMethodColumns + ` FROM payment_methods
              WHERE account_id = $1
              ORDER BY created_at, id
              LIMIT 1`
	if err := q.GetContext(ctx, &pm, query, accountID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, util.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find remaining payment method for account %s: %w", accountID, err)
	}
	return &pm, nil
}
