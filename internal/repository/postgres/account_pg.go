// internal/repository/postgres/account_pg.go
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

// AccountRepository implements repository.AccountRepository for PostgreSQL.
type AccountRepository struct{}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository() repository.AccountRepository {
	return &AccountRepository{}
}

const accountColumns = `id, email, full_name, password_hash, balance, processor_customer_id, created_at, updated_at`

// CreateAccount inserts a new account using the provided DBExecutor.
func (r *AccountRepository) CreateAccount(ctx context.Context, q repository.DBExecutor, account *domain.Account) error {
	query := `INSERT INTO accounts (` + accountColumns + `)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := q.ExecContext(ctx, query,
		account.ID,
		account.Email,
		account.FullName,
		account.PasswordHash,
		account.Balance,
		account.ProcessorCustomerID,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("account with email '%s': %w", account.Email, util.ErrDuplicateEntry)
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// GetAccountByID retrieves an account by its ID using the provided DBExecutor.
func (r *AccountRepository) GetAccountByID(ctx context.Context, q repository.DBExecutor, id string) (*domain.Account, error) {
	var account domain.Account
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	err := q.GetContext(ctx, &account, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, util.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get account by ID %s: %w", id, err)
	}
	return &account, nil
}

// GetAccountByEmail retrieves an account by its email using the provided DBExecutor.
func (r *AccountRepository) GetAccountByEmail(ctx context.Context, q repository.DBExecutor, email string) (*domain.Account, error) {
	var account domain.Account
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`
	err := q.GetContext(ctx, &account, query, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, util.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get account by email '%s': %w", email, err)
	}
	return &account, nil
}

// LockAccount locks the account row until the surrounding transaction ends.
func (r *AccountRepository) LockAccount(ctx context.Context, q repository.DBExecutor, id string) error {
	var locked string
	err := q.GetContext(ctx, &locked, `SELECT id FROM accounts WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return util.ErrNotFound
		}
		return fmt.Errorf("failed to lock account %s: %w", id, err)
	}
	return nil
}

// SetProcessorCustomerID stores customerID unless another request linked a customer first.
func (r *AccountRepository) SetProcessorCustomerID(ctx context.Context, q repository.DBExecutor, id, customerID string) (string, error) {
	query := `UPDATE accounts SET processor_customer_id = $1, updated_at = $2
              WHERE id = $3 AND processor_customer_id IS NULL`
	result, err := q.ExecContext(ctx, query, customerID, time.Now().UTC(), id)
	if err != nil {
		return "", fmt.Errorf("failed to set processor customer for account %s: %w", id, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("failed to get rows affected after setting processor customer for account %s: %w", id, err)
	}
	if rowsAffected == 1 {
		return customerID, nil
	}

	account, err := r.GetAccountByID(ctx, q, id)
	if err != nil {
		return "", err
	}
	if !account.HasProcessorCustomer() {
		return "", fmt.Errorf("processor customer for account %s was not stored", id)
	}
	return *account.ProcessorCustomerID, nil
}

// CreditBalance increments the balance of an account using the provided DBExecutor.
func (r *AccountRepository) CreditBalance(ctx context.Context, q repository.DBExecutor, id string, amount int64) error {
	query := `UPDATE accounts SET balance = balance + $1, updated_at = $2 WHERE id = $3`
	result, err := q.ExecContext(ctx, query, amount, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to credit balance for account %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected after crediting account %s: %w", id, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("no rows affected when crediting account %s: %w", id, util.ErrNotFound)
	}
	return nil
}
