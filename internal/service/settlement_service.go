// internal/service/settlement_service.go
package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"wallet-ledger/internal/domain"
	"wallet-ledger/internal/events"
	"wallet-ledger/internal/metrics"
	"wallet-ledger/internal/repository"
	"wallet-ledger/internal/util"
	"wallet-ledger/pkg/db"
)

// SettlementResult reports what ApplyOutcome did. Applied is false when the
// top-up was already terminal and nothing changed.
type SettlementResult struct {
	TopUp   *domain.TopUp
	Applied bool
}

// SettlementService is the single code path that moves a top-up out of
// PENDING and credits the account balance.
type SettlementService interface {
	ApplyOutcome(ctx context.Context, externalRef string, outcome domain.Outcome, source domain.SettlementSource) (*SettlementResult, error)
}

// settlementPublishTimeout bounds the post-commit publish so a slow broker
// cannot hold a webhook response open.
const settlementPublishTimeout = 2 * time.Second

type settlementService struct {
	tx             txRunner
	topUpRepo      repository.TopUpRepository
	accountRepo    repository.AccountRepository
	publisher      events.Publisher
	publishTimeout time.Duration
	metrics        *metrics.Metrics
	logger         *zap.Logger
}

// NewSettlementService creates a new instance of SettlementService.
func NewSettlementService(
	dbBeginner db.DBTxBeginner,
	topUpRepo repository.TopUpRepository,
	accountRepo repository.AccountRepository,
	publisher events.Publisher,
	m *metrics.Metrics,
	logger *zap.Logger,
	txFuncs TxFuncs,
) SettlementService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &settlementService{
		tx:             txRunner{dbBeginner: dbBeginner, funcs: txFuncs},
		topUpRepo:      topUpRepo,
		accountRepo:    accountRepo,
		publisher:      publisher,
		publishTimeout: settlementPublishTimeout,
		metrics:        m,
		logger:         componentLogger(logger, "settlement"),
	}
}

// ApplyOutcome settles the top-up identified by externalRef. The status check
// and the status write are one conditional update inside the transaction, so
// concurrent callers cannot both see PENDING and both credit.
func (s *settlementService) ApplyOutcome(ctx context.Context, externalRef string, outcome domain.Outcome, source domain.SettlementSource) (*SettlementResult, error) {
	if externalRef == "" {
		return nil, fmt.Errorf("apply outcome: empty external reference: %w", util.ErrInvalidInput)
	}
	if outcome != domain.OutcomeSucceeded && outcome != domain.OutcomeFailed {
		return nil, fmt.Errorf("apply outcome: unsupported outcome %q: %w", outcome, util.ErrInvalidInput)
	}

	var result SettlementResult
	err := s.tx.within(ctx, "apply outcome", func(q repository.DBExecutor) error {
		topUp, err := s.topUpRepo.TransitionFromPending(ctx, q, externalRef, outcome.TargetStatus())
		if err == nil {
			if outcome == domain.OutcomeSucceeded {
				if err := s.accountRepo.CreditBalance(ctx, q, topUp.AccountID, topUp.Amount); err != nil {
					return fmt.Errorf("apply outcome: failed to credit account %s: %w", topUp.AccountID, err)
				}
			}
			result = SettlementResult{TopUp: topUp, Applied: true}
			return nil
		}
		if !util.IsError(err, util.ErrNotFound) {
			return fmt.Errorf("apply outcome: %w", err)
		}

		current, err := s.topUpRepo.GetTopUpByExternalRef(ctx, q, externalRef)
		if err != nil {
			if util.IsError(err, util.ErrNotFound) {
				return fmt.Errorf("apply outcome: %s: %w", externalRef, util.ErrUnknownIntent)
			}
			return fmt.Errorf("apply outcome: failed to load top-up %s: %w", externalRef, err)
		}
		result = SettlementResult{TopUp: current, Applied: false}
		return nil
	})
	if err != nil {
		s.metrics.ObserveSettlement(string(source), string(outcome), "error", 0)
		return nil, err
	}

	if !result.Applied {
		s.metrics.ObserveSettlement(string(source), string(outcome), "noop", 0)
		s.logger.Info("Top-up already settled, outcome ignored",
			zap.String("external_ref", externalRef),
			zap.String("status", string(result.TopUp.Status)),
			zap.String("source", string(source)),
		)
		return &result, nil
	}

	var credited int64
	if outcome == domain.OutcomeSucceeded {
		credited = result.TopUp.Amount
	}
	s.metrics.ObserveSettlement(string(source), string(outcome), "applied", credited)
	s.logger.Info("Top-up settled",
		zap.String("external_ref", externalRef),
		zap.String("account_id", result.TopUp.AccountID),
		zap.String("status", string(result.TopUp.Status)),
		zap.Int64("credited", credited),
		zap.String("source", string(source)),
	)

	event := events.SettlementEvent{
		Type:        events.TypeTopUpSettled,
		TopUpID:     result.TopUp.ID,
		AccountID:   result.TopUp.AccountID,
		ExternalRef: result.TopUp.ExternalRef,
		Amount:      result.TopUp.Amount,
		Currency:    result.TopUp.Currency,
		Status:      string(result.TopUp.Status),
		Source:      string(source),
		OccurredAt:  time.Now().UTC(),
	}
	s.publish(ctx, event)

	return &result, nil
}

// publish is best effort. The balance is already committed, so the caller's
// cancellation must not drop the event; only publishTimeout bounds it.
func (s *settlementService) publish(ctx context.Context, event events.SettlementEvent) {
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout)
	defer cancel()

	if err := s.publisher.PublishSettlement(pubCtx, event); err != nil {
		s.logger.Warn("Failed to publish settlement event", zap.String("external_ref", event.ExternalRef), zap.Error(err))
	}
}
