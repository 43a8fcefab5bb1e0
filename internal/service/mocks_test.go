// internal/service/mocks_test.go
package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/mock"

	"wallet-ledger/internal/domain"
	"wallet-ledger/internal/payment"
	"wallet-ledger/internal/repository"
	"wallet-ledger/pkg/db"
)

// MockDBExecutor is a mock implementation of repository.DBExecutor.
type MockDBExecutor struct {
	mock.Mock
}

func (m *MockDBExecutor) GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	argsCalled := m.Called(ctx, dest, query, args)
	return argsCalled.Error(0)
}

func (m *MockDBExecutor) SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	argsCalled := m.Called(ctx, dest, query, args)
	return argsCalled.Error(0)
}

func (m *MockDBExecutor) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	argsCalled := m.Called(ctx, query, args)
	return argsCalled.Get(0).(sql.Result), argsCalled.Error(1)
}

func (m *MockDBExecutor) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	m.Called(ctx, query, args)
	return &sql.Row{}
}

// MockDBBeginner is a mock implementation of db.DBTxBeginner.
type MockDBBeginner struct {
	mock.Mock
}

func (m *MockDBBeginner) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	args := m.Called(ctx, opts)
	return &sqlx.Tx{}, args.Error(1)
}

// MockTxController is a mock implementation of db.TxController.
// It also implements repository.DBExecutor by embedding MockDBExecutor.
type MockTxController struct {
	mock.Mock
	MockDBExecutor
}

func (m *MockTxController) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockTxController) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

// mockTxFuncs routes the transaction lifecycle to tx.
func mockTxFuncs(tx *MockTxController) TxFuncs {
	return TxFuncs{
		Begin: func(ctx context.Context, dbConn db.DBTxBeginner) (db.TxController, error) {
			return tx, nil
		},
		Commit: func(db.TxController) error {
			return tx.Commit()
		},
		Rollback: func(db.TxController) {
			_ = tx.Rollback()
		},
	}
}

// MockAccountRepository is a mock implementation of repository.AccountRepository.
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) CreateAccount(ctx context.Context, q repository.DBExecutor, account *domain.Account) error {
	args := m.Called(ctx, q, account)
	return args.Error(0)
}

func (m *MockAccountRepository) GetAccountByID(ctx context.Context, q repository.DBExecutor, id string) (*domain.Account, error) {
	args := m.Called(ctx, q, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountRepository) GetAccountByEmail(ctx context.Context, q repository.DBExecutor, email string) (*domain.Account, error) {
	args := m.Called(ctx, q, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountRepository) LockAccount(ctx context.Context, q repository.DBExecutor, id string) error {
	args := m.Called(ctx, q, id)
	return args.Error(0)
}

func (m *MockAccountRepository) SetProcessorCustomerID(ctx context.Context, q repository.DBExecutor, id, customerID string) (string, error) {
	args := m.Called(ctx, q, id, customerID)
	return args.String(0), args.Error(1)
}

func (m *MockAccountRepository) CreditBalance(ctx context.Context, q repository.DBExecutor, id string, amount int64) error {
	args := m.Called(ctx, q, id, amount)
	return args.Error(0)
}

// MockTopUpRepository is a mock implementation of repository.TopUpRepository.
type MockTopUpRepository struct {
	mock.Mock
}

func (m *MockTopUpRepository) CreateTopUp(ctx context.Context, q repository.DBExecutor, topUp *domain.TopUp) error {
	args := m.Called(ctx, q, topUp)
	return args.Error(0)
}

func (m *MockTopUpRepository) GetTopUpByExternalRef(ctx context.Context, q repository.DBExecutor, externalRef string) (*domain.TopUp, error) {
	args := m.Called(ctx, q, externalRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TopUp), args.Error(1)
}

func (m *MockTopUpRepository) TransitionFromPending(ctx context.Context, q repository.DBExecutor, externalRef string, status domain.TopUpStatus) (*domain.TopUp, error) {
	args := m.Called(ctx, q, externalRef, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TopUp), args.Error(1)
}

func (m *MockTopUpRepository) ListPendingTopUps(ctx context.Context, q repository.DBExecutor, createdBefore time.Time, after *repository.PendingCursor, limit int) ([]domain.TopUp, error) {
	args := m.Called(ctx, q, createdBefore, after, limit)
	return args.Get(0).([]domain.TopUp), args.Error(1)
}

func (m *MockTopUpRepository) CountPendingTopUps(ctx context.Context, q repository.DBExecutor) (int64, error) {
	args := m.Called(ctx, q)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTopUpRepository) ListTopUpsByAccount(ctx context.Context, q repository.DBExecutor, accountID string, limit, offset int) ([]domain.TopUp, int64, error) {
	args := m.Called(ctx, q, accountID, limit, offset)
	return args.Get(0).([]domain.TopUp), args.Get(1).(int64), args.Error(2)
}

// MockProcessor is a mock implementation of payment.Processor.
type MockProcessor struct {
	mock.Mock
}

func (m *MockProcessor) CreateCustomer(ctx context.Context, email, accountID string) (string, error) {
	args := m.Called(ctx, email, accountID)
	return args.String(0), args.Error(1)
}

func (m *MockProcessor) CreatePaymentIntent(ctx context.Context, req payment.IntentRequest) (*payment.Intent, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Intent), args.Error(1)
}

func (m *MockProcessor) GetPaymentIntentStatus(ctx context.Context, intentID string) (payment.IntentStatus, error) {
	args := m.Called(ctx, intentID)
	return args.Get(0).(payment.IntentStatus), args.Error(1)
}

func (m *MockProcessor) CreateSetupIntent(ctx context.Context, customerID string) (*payment.SetupIntent, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.SetupIntent), args.Error(1)
}

func (m *MockProcessor) GetPaymentMethod(ctx context.Context, paymentMethodID string) (*payment.Card, error) {
	args := m.Called(ctx, paymentMethodID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Card), args.Error(1)
}

func (m *MockProcessor) AttachPaymentMethod(ctx context.Context, paymentMethodID, customerID string) error {
	args := m.Called(ctx, paymentMethodID, customerID)
	return args.Error(0)
}

func (m *MockProcessor) DetachPaymentMethod(ctx context.Context, paymentMethodID string) error {
	args := m.Called(ctx, paymentMethodID)
	return args.Error(0)
}

func (m *MockProcessor) ParseWebhook(payload []byte, signatureHeader string) (*payment.Event, error) {
	args := m.Called(payload, signatureHeader)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Event), args.Error(1)
}

func (m *MockProcessor) Configured() (bool, bool) {
	args := m.Called()
	return args.Bool(0), args.Bool(1)
}
