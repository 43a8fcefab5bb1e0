// internal/service/customer.go
package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"wallet-ledger/internal/domain"
	"wallet-ledger/internal/payment"
	"wallet-ledger/internal/repository"
)

// customerLinker lazily creates the processor-side customer of an account.
type customerLinker struct {
	dbExecutor  repository.DBExecutor
	accountRepo repository.AccountRepository
	processor   payment.Processor
	logger      *zap.Logger
}

// ensure returns the processor customer id of account, creating one if needed.
// When two requests race, the first stored id wins and the other customer is
// left unused at the processor.
func (l customerLinker) ensure(ctx context.Context, account *domain.Account) (string, error) {
	if account.HasProcessorCustomer() {
		return *account.ProcessorCustomerID, nil
	}

	customerID, err := l.processor.CreateCustomer(ctx, account.Email, account.ID)
	if err != nil {
		return "", asUpstream("create processor customer", err)
	}

	stored, err := l.accountRepo.SetProcessorCustomerID(ctx, l.dbExecutor, account.ID, customerID)
	if err != nil {
		return "", fmt.Errorf("link processor customer: %w", err)
	}
	if stored != customerID {
		l.logger.Warn("Processor customer already linked by a concurrent request",
			zap.String("account_id", account.ID),
			zap.String("unused_customer_id", customerID),
		)
	}
	account.ProcessorCustomerID = &stored
	return stored, nil
}
