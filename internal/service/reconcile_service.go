// internal/service/reconcile_service.go
package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"wallet-ledger/internal/domain"
	"wallet-ledger/internal/metrics"
	"wallet-ledger/internal/payment"
	"wallet-ledger/internal/repository"
	"wallet-ledger/internal/util"
)

// ReconcileOptions tunes a sweep. MinAge skips top-ups younger than it, giving
// webhooks a head start. BatchSize is the page size used to walk the PENDING set.
type ReconcileOptions struct {
	MinAge    time.Duration
	BatchSize int
}

const defaultReconcileBatchSize = 100

// ReconcileReport summarizes one sweep.
type ReconcileReport struct {
	Scanned    int       `json:"scanned"`
	Completed  int       `json:"completed"`
	Failed     int       `json:"failed"`
	Untouched  int       `json:"untouched"`
	Errors     int       `json:"errors"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// ReconcileService settles PENDING top-ups whose webhook never arrived.
type ReconcileService interface {
	// ReconcilePending sweeps with the configured MinAge.
	ReconcilePending(ctx context.Context) (*ReconcileReport, error)
	// ReconcilePendingOlderThan sweeps every PENDING top-up at least minAge old.
	ReconcilePendingOlderThan(ctx context.Context, minAge time.Duration) (*ReconcileReport, error)
	ForceComplete(ctx context.Context, externalRef string) (*domain.TopUp, error)
	Run(ctx context.Context, interval time.Duration)
}

type reconcileService struct {
	dbExecutor repository.DBExecutor
	topUpRepo  repository.TopUpRepository
	processor  payment.Processor
	settlement SettlementService
	opts       ReconcileOptions
	metrics    *metrics.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

func NewReconcileService(
	dbExecutor repository.DBExecutor,
	topUpRepo repository.TopUpRepository,
	processor payment.Processor,
	settlement SettlementService,
	opts ReconcileOptions,
	m *metrics.Metrics,
	logger *zap.Logger,
) ReconcileService {
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultReconcileBatchSize
	}
	return &reconcileService{
		dbExecutor: dbExecutor,
		topUpRepo:  topUpRepo,
		processor:  processor,
		settlement: settlement,
		opts:       opts,
		metrics:    m,
		logger:     componentLogger(logger, "reconcile"),
		now:        time.Now,
	}
}

// ReconcilePending asks the processor about each PENDING top-up, newest first,
// and settles the ones with a final outcome. A failure on one record is counted
// and logged; it never stops the others.
func (s *reconcileService) ReconcilePending(ctx context.Context) (*ReconcileReport, error) {
	return s.ReconcilePendingOlderThan(ctx, s.opts.MinAge)
}

// ReconcilePendingOlderThan walks the whole PENDING set in keyset pages, so
// in-flight top-ups that stay PENDING never hide older ones behind them.
// Top-ups created after the sweep starts are left for the next one.
func (s *reconcileService) ReconcilePendingOlderThan(ctx context.Context, minAge time.Duration) (*ReconcileReport, error) {
	if minAge < 0 {
		return nil, fmt.Errorf("reconcile pending: negative minimum age %s: %w", minAge, util.ErrInvalidInput)
	}
	report := &ReconcileReport{StartedAt: s.now().UTC()}
	createdBefore := s.now().Add(-minAge)

	var cursor *repository.PendingCursor
	for {
		page, err := s.topUpRepo.ListPendingTopUps(ctx, s.dbExecutor, createdBefore, cursor, s.opts.BatchSize)
		if err != nil {
			s.metrics.ObserveReconcileRun(report.Untouched, err)
			return nil, fmt.Errorf("reconcile pending: %w", err)
		}

		for _, topUp := range page {
			if err := ctx.Err(); err != nil {
				report.FinishedAt = s.now().UTC()
				s.metrics.ObserveReconcileRun(report.Untouched, err)
				return report, fmt.Errorf("reconcile pending: interrupted after %d top-ups: %w", report.Scanned, err)
			}
			report.Scanned++
			s.reconcileOne(ctx, topUp, report)
		}

		if len(page) < s.opts.BatchSize {
			break
		}
		last := page[len(page)-1]
		cursor = &repository.PendingCursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}

	report.FinishedAt = s.now().UTC()
	s.metrics.ObserveReconcileRun(report.Untouched, nil)
	s.logger.Info("Reconciliation sweep finished",
		zap.Duration("min_age", minAge),
		zap.Int("scanned", report.Scanned),
		zap.Int("completed", report.Completed),
		zap.Int("failed", report.Failed),
		zap.Int("untouched", report.Untouched),
		zap.Int("errors", report.Errors),
	)
	return report, nil
}

func (s *reconcileService) reconcileOne(ctx context.Context, topUp domain.TopUp, report *ReconcileReport) {
	log := s.logger.With(zap.String("external_ref", topUp.ExternalRef), zap.String("topup_id", topUp.ID))

	status, err := s.processor.GetPaymentIntentStatus(ctx, topUp.ExternalRef)
	if err != nil {
		report.Errors++
		log.Warn("Could not fetch payment intent status", zap.Error(err))
		return
	}

	var outcome domain.Outcome
	switch status {
	case payment.IntentSucceeded:
		outcome = domain.OutcomeSucceeded
	case payment.IntentFailed:
		outcome = domain.OutcomeFailed
	default:
		report.Untouched++
		log.Debug("Payment intent still in flight", zap.String("status", string(status)))
		return
	}

	result, err := s.settlement.ApplyOutcome(ctx, topUp.ExternalRef, outcome, domain.SourceSweeper)
	if err != nil {
		report.Errors++
		log.Error("Failed to apply reconciled outcome", zap.Error(err))
		return
	}
	switch {
	case !result.Applied:
		report.Untouched++
	case result.TopUp.Status == domain.TopUpStatusCompleted:
		report.Completed++
	default:
		report.Failed++
	}
}

// ForceComplete credits a single PENDING top-up without asking the processor.
// Terminal top-ups are rejected with ErrConflict, including one settled by a
// concurrent caller after the status check.
func (s *reconcileService) ForceComplete(ctx context.Context, externalRef string) (*domain.TopUp, error) {
	if externalRef == "" {
		return nil, fmt.Errorf("force complete: empty external reference: %w", util.ErrInvalidInput)
	}

	topUp, err := s.topUpRepo.GetTopUpByExternalRef(ctx, s.dbExecutor, externalRef)
	if err != nil {
		if util.IsError(err, util.ErrNotFound) {
			return nil, util.ErrTopUpNotFound
		}
		return nil, fmt.Errorf("force complete: failed to load top-up %s: %w", externalRef, err)
	}
	if topUp.Status != domain.TopUpStatusPending {
		return nil, fmt.Errorf("transaction is already %s: %w", topUp.Status, util.ErrConflict)
	}

	result, err := s.settlement.ApplyOutcome(ctx, externalRef, domain.OutcomeSucceeded, domain.SourceManual)
	if err != nil {
		if util.IsError(err, util.ErrUnknownIntent) {
			return nil, util.ErrTopUpNotFound
		}
		return nil, fmt.Errorf("force complete: %w", err)
	}
	if !result.Applied {
		return nil, fmt.Errorf("transaction is already %s: %w", result.TopUp.Status, util.ErrConflict)
	}

	s.logger.Warn("Top-up completed manually",
		zap.String("external_ref", externalRef),
		zap.String("account_id", result.TopUp.AccountID),
		zap.Int64("amount", result.TopUp.Amount),
	)
	return result.TopUp, nil
}

// Run sweeps every interval until ctx is cancelled. A non-positive interval
// returns immediately.
func (s *reconcileService) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	s.logger.Info("Scheduled reconciliation started", zap.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Scheduled reconciliation stopped")
			return
		case <-ticker.C:
			if _, err := s.ReconcilePending(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error("Scheduled reconciliation failed", zap.Error(err))
			}
		}
	}
}
