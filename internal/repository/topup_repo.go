// internal/repository/topup_repo.go
package repository

import (
	"context"
	"time"

	"wallet-ledger/internal/domain"
)

// PendingCursor is the position of the last row of a page of PENDING top-ups.
type PendingCursor struct {
	CreatedAt time.Time
	ID        string
}

// TopUpRepository defines the interface for top-up data operations.
type TopUpRepository interface {
	CreateTopUp(ctx context.Context, q DBExecutor, topUp *domain.TopUp) error
	GetTopUpByExternalRef(ctx context.Context, q DBExecutor, externalRef string) (*domain.TopUp, error)
	// TransitionFromPending moves the top-up to status only if it is still PENDING,
	// in a single conditional statement. It returns util.ErrNotFound when no
	// PENDING row matched, whether the reference is unknown or already terminal.
	TransitionFromPending(ctx context.Context, q DBExecutor, externalRef string, status domain.TopUpStatus) (*domain.TopUp, error)
	// ListPendingTopUps returns up to limit PENDING top-ups created at or before
	// createdBefore, ordered by (created_at, id) descending. A non-nil after
	// resumes strictly past that position.
	ListPendingTopUps(ctx context.Context, q DBExecutor, createdBefore time.Time, after *PendingCursor, limit int) ([]domain.TopUp, error)
	CountPendingTopUps(ctx context.Context, q DBExecutor) (int64, error)
	// ListTopUpsByAccount returns a page of the account's top-ups, newest first, and the total count.
	ListTopUpsByAccount(ctx context.Context, q DBExecutor, accountID string, limit, offset int) ([]domain.TopUp, int64, error)
}
