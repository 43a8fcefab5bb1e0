// internal/service/topup_service.go
package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"wallet-ledger/internal/domain"
	"wallet-ledger/internal/metrics"
	"wallet-ledger/internal/payment"
	"wallet-ledger/internal/repository"
	"wallet-ledger/internal/util"
)

// TopUpLimits bounds the amount of a single top-up, in minor units.
type TopUpLimits struct {
	Currency  string
	MinAmount int64
	MaxAmount int64
}

// TopUpIntent is a freshly created PENDING top-up and the secret the client
// uses to confirm the payment with the processor.
type TopUpIntent struct {
	TopUp        *domain.TopUp
	ClientSecret string
}

// TopUpService defines the interface for starting top-ups and reading history.
type TopUpService interface {
	InitiateTopUp(ctx context.Context, accountID string, amount int64) (*TopUpIntent, error)
	GetTopUpHistory(ctx context.Context, accountID string, limit, offset int) ([]domain.TopUp, int64, error)
}

type topUpService struct {
	dbExecutor  repository.DBExecutor
	accountRepo repository.AccountRepository
	topUpRepo   repository.TopUpRepository
	processor   payment.Processor
	customers   customerLinker
	limits      TopUpLimits
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

// NewTopUpService creates a new instance of TopUpService.
func NewTopUpService(
	dbExecutor repository.DBExecutor,
	accountRepo repository.AccountRepository,
	topUpRepo repository.TopUpRepository,
	processor payment.Processor,
	limits TopUpLimits,
	m *metrics.Metrics,
	logger *zap.Logger,
) TopUpService {
	logger = componentLogger(logger, "topup")
	return &topUpService{
		dbExecutor:  dbExecutor,
		accountRepo: accountRepo,
		topUpRepo:   topUpRepo,
		processor:   processor,
		customers: customerLinker{
			dbExecutor:  dbExecutor,
			accountRepo: accountRepo,
			processor:   processor,
			logger:      logger,
		},
		limits:  limits,
		metrics: m,
		logger:  logger,
	}
}

// InitiateTopUp creates the processor payment intent first and only then the
// PENDING top-up, so a processor failure leaves no local record. If the insert
// fails after the intent exists, the intent is orphaned and never confirmed.
func (s *topUpService) InitiateTopUp(ctx context.Context, accountID string, amount int64) (*TopUpIntent, error) {
	intent, err := s.initiate(ctx, accountID, amount)
	s.metrics.ObserveTopUpInitiated(err)
	return intent, err
}

func (s *topUpService) initiate(ctx context.Context, accountID string, amount int64) (*TopUpIntent, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("amount must be a positive number of minor units: %w", util.ErrInvalidInput)
	}
	if amount < s.limits.MinAmount || (s.limits.MaxAmount > 0 && amount > s.limits.MaxAmount) {
		return nil, fmt.Errorf("amount must be between %s and %s: %w",
			domain.FormatMinorUnits(s.limits.MinAmount), domain.FormatMinorUnits(s.limits.MaxAmount), util.ErrInvalidInput)
	}

	account, err := s.accountRepo.GetAccountByID(ctx, s.dbExecutor, accountID)
	if err != nil {
		if util.IsError(err, util.ErrNotFound) {
			return nil, util.ErrAccountNotFound
		}
		return nil, fmt.Errorf("initiate top-up: failed to get account %s: %w", accountID, err)
	}

	customerID, err := s.customers.ensure(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("initiate top-up: %w", err)
	}

	currency := strings.ToLower(s.limits.Currency)
	intent, err := s.processor.CreatePaymentIntent(ctx, payment.IntentRequest{
		Amount:     amount,
		Currency:   currency,
		AccountID:  account.ID,
		CustomerID: customerID,
	})
	if err != nil {
		return nil, asUpstream("initiate top-up: create payment intent", err)
	}

	topUp := domain.NewTopUp(account.ID, amount, currency, intent.ID)
	if err := s.topUpRepo.CreateTopUp(ctx, s.dbExecutor, topUp); err != nil {
		s.logger.Error("Payment intent created but top-up was not recorded",
			zap.String("external_ref", intent.ID),
			zap.String("account_id", account.ID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("initiate top-up: failed to record top-up: %w", err)
	}

	s.logger.Info("Top-up initiated",
		zap.String("topup_id", topUp.ID),
		zap.String("external_ref", topUp.ExternalRef),
		zap.String("account_id", account.ID),
		zap.Int64("amount", amount),
	)
	return &TopUpIntent{TopUp: topUp, ClientSecret: intent.ClientSecret}, nil
}

// GetTopUpHistory retrieves a paginated list of top-ups for an account.
func (s *topUpService) GetTopUpHistory(ctx context.Context, accountID string, limit, offset int) ([]domain.TopUp, int64, error) {
	_, err := s.accountRepo.GetAccountByID(ctx, s.dbExecutor, accountID)
	if err != nil {
		if util.IsError(err, util.ErrNotFound) {
			return nil, 0, util.ErrAccountNotFound
		}
		return nil, 0, fmt.Errorf("failed to check account existence: %w", err)
	}

	topUps, totalCount, err := s.topUpRepo.ListTopUpsByAccount(ctx, s.dbExecutor, accountID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to retrieve top-up history: %w", err)
	}
	return topUps, totalCount, nil
}
