// internal/repository/account_repo.go
package repository

import (
	"context"

	"wallet-ledger/internal/domain"
)

// AccountRepository defines the interface for account data operations.
type AccountRepository interface {
	// CreateAccount inserts a new account. A duplicate email yields util.ErrDuplicateEntry.
	CreateAccount(ctx context.Context, q DBExecutor, account *domain.Account) error
	GetAccountByID(ctx context.Context, q DBExecutor, id string) (*domain.Account, error)
	GetAccountByEmail(ctx context.Context, q DBExecutor, email string) (*domain.Account, error)
	// LockAccount takes a row lock on the account for the rest of the transaction.
	LockAccount(ctx context.Context, q DBExecutor, id string) error
	// SetProcessorCustomerID links a processor customer if none is linked yet and
	// returns the id that ends up stored.
	SetProcessorCustomerID(ctx context.Context, q DBExecutor, id, customerID string) (string, error)
	// CreditBalance adds amount to the balance. Only the settlement applier may call it.
	CreditBalance(ctx context.Context, q DBExecutor, id string, amount int64) error
}
