// internal/service/diagnostics_service.go
package service

import (
	"context"
	"fmt"
	"time"

	"wallet-ledger/internal/domain"
	"wallet-ledger/internal/payment"
	"wallet-ledger/internal/repository"
)

const diagnosticsPendingSample = 5

// Pinger is satisfied by *sqlx.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PendingSummary is a pending top-up as shown in diagnostics.
type PendingSummary struct {
	ID            string    `json:"id"`
	Amount        int64     `json:"amount"`
	AmountDisplay string    `json:"amount_display"`
	ExternalRef   string    `json:"external_ref"`
	CreatedAt     time.Time `json:"created_at"`
}

// DiagnosticsReport never carries secret values, only whether they are set.
type DiagnosticsReport struct {
	Timestamp               time.Time        `json:"timestamp"`
	DatabaseReachable       bool             `json:"database_reachable"`
	DatabaseError           string           `json:"database_error,omitempty"`
	ProcessorKeyConfigured  bool             `json:"processor_key_configured"`
	WebhookSecretConfigured bool             `json:"webhook_secret_configured"`
	PendingCount            int64            `json:"pending_count"`
	LatestPending           []PendingSummary `json:"latest_pending"`
	Message                 string           `json:"message"`
}

// DiagnosticsService reports on settlement health for operators.
type DiagnosticsService interface {
	Report(ctx context.Context) (*DiagnosticsReport, error)
}

type diagnosticsService struct {
	pinger     Pinger
	dbExecutor repository.DBExecutor
	topUpRepo  repository.TopUpRepository
	processor  payment.Processor
}

func NewDiagnosticsService(pinger Pinger, dbExecutor repository.DBExecutor, topUpRepo repository.TopUpRepository, processor payment.Processor) DiagnosticsService {
	return &diagnosticsService{pinger: pinger, dbExecutor: dbExecutor, topUpRepo: topUpRepo, processor: processor}
}

func (s *diagnosticsService) Report(ctx context.Context) (*DiagnosticsReport, error) {
	report := &DiagnosticsReport{
		Timestamp:     time.Now().UTC(),
		LatestPending: []PendingSummary{},
	}
	report.ProcessorKeyConfigured, report.WebhookSecretConfigured = s.processor.Configured()

	if err := s.pinger.PingContext(ctx); err != nil {
		report.DatabaseError = "database unreachable"
		report.Message = "Database is unreachable."
		return report, nil
	}
	report.DatabaseReachable = true

	count, err := s.topUpRepo.CountPendingTopUps(ctx, s.dbExecutor)
	if err != nil {
		return nil, fmt.Errorf("diagnostics: %w", err)
	}
	report.PendingCount = count

	latest, err := s.topUpRepo.ListPendingTopUps(ctx, s.dbExecutor, time.Now(), nil, diagnosticsPendingSample)
	if err != nil {
		return nil, fmt.Errorf("diagnostics: %w", err)
	}
	for _, t := range latest {
		report.LatestPending = append(report.LatestPending, PendingSummary{
			ID:            t.ID,
			Amount:        t.Amount,
			AmountDisplay: domain.FormatMinorUnits(t.Amount),
			ExternalRef:   t.ExternalRef,
			CreatedAt:     t.CreatedAt,
		})
	}

	report.Message = diagnosticsMessage(report)
	return report, nil
}

func diagnosticsMessage(r *DiagnosticsReport) string {
	switch {
	case !r.ProcessorKeyConfigured:
		return "Processor secret key is not configured; top-ups and reconciliation are unavailable."
	case !r.WebhookSecretConfigured && r.PendingCount > 0:
		return fmt.Sprintf("Webhook secret is not configured; %d pending top-up(s) will only settle through reconciliation.", r.PendingCount)
	case !r.WebhookSecretConfigured:
		return "Webhook secret is not configured; top-ups will only settle through reconciliation."
	case r.PendingCount > 0:
		return fmt.Sprintf("%d top-up(s) pending. If webhooks are not arriving, run reconciliation.", r.PendingCount)
	default:
		return "No pending top-ups."
	}
}
