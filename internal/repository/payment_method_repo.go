// internal/repository/payment_method_repo.go
package repository

import (
	"context"

	"wallet-ledger/internal/domain"
)

// PaymentMethodRepository defines the interface for saved card data operations.
type PaymentMethodRepository interface {
	CreatePaymentMethod(ctx context.Context, q DBExecutor, pm *domain.PaymentMethod) error
	GetPaymentMethodByID(ctx context.Context, q DBExecutor, id string) (*domain.PaymentMethod, error)
	// ListPaymentMethodsByAccount returns the default card first, then oldest first.
	ListPaymentMethodsByAccount(ctx context.Context, q DBExecutor, accountID string) ([]domain.PaymentMethod, error)
	CountPaymentMethodsByAccount(ctx context.Context, q DBExecutor, accountID string) (int, error)
	DeletePaymentMethod(ctx context.Context, q DBExecutor, id string) error
	ClearDefaultPaymentMethods(ctx context.Context, q DBExecutor, accountID string) error
	SetDefaultPaymentMethod(ctx context.Context, q DBExecutor, id string) error
	// FirstRemainingPaymentMethod returns the oldest card of the account, or util.ErrNotFound.
	FirstRemainingPaymentMethod(ctx context.Context, q DBExecutor, accountID string) (*domain.PaymentMethod, error)
}
