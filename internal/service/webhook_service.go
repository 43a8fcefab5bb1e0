// internal/service/webhook_service.go
package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"wallet-ledger/internal/domain"
	"wallet-ledger/internal/metrics"
	"wallet-ledger/internal/payment"
	"wallet-ledger/internal/util"
)

// WebhookResult describes how a delivery was handled. Errors are reserved for
// deliveries the processor should retry or that failed verification.
type WebhookResult struct {
	EventID   string
	EventType string
	// Handled is false for event types the wallet ignores and for unknown intents.
	Handled bool
	Applied bool
	Status  domain.TopUpStatus
}

// WebhookService ingests processor notifications.
type WebhookService interface {
	HandleWebhook(ctx context.Context, payload []byte, signatureHeader string) (*WebhookResult, error)
}

type webhookService struct {
	processor  payment.Processor
	settlement SettlementService
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

func NewWebhookService(processor payment.Processor, settlement SettlementService, m *metrics.Metrics, logger *zap.Logger) WebhookService {
	return &webhookService{
		processor:  processor,
		settlement: settlement,
		metrics:    m,
		logger:     componentLogger(logger, "webhook"),
	}
}

// HandleWebhook verifies and dispatches one delivery. Redeliveries are safe
// because the settlement applier ignores terminal top-ups.
func (s *webhookService) HandleWebhook(ctx context.Context, payload []byte, signatureHeader string) (*WebhookResult, error) {
	event, err := s.processor.ParseWebhook(payload, signatureHeader)
	if err != nil {
		s.metrics.ObserveWebhook("unverified", "rejected")
		if util.IsError(err, util.ErrNotConfigured) {
			s.logger.Error("Webhook secret is not configured")
		} else {
			s.logger.Warn("Rejected webhook delivery", zap.Error(err))
		}
		return nil, err
	}

	result := &WebhookResult{EventID: event.ID, EventType: event.Type}

	var outcome domain.Outcome
	switch event.Kind {
	case payment.EventIntentSucceeded:
		outcome = domain.OutcomeSucceeded
	case payment.EventIntentFailed:
		outcome = domain.OutcomeFailed
	default:
		s.metrics.ObserveWebhook(event.Type, "ignored")
		s.logger.Debug("Ignoring webhook event", zap.String("event_id", event.ID), zap.String("type", event.Type))
		return result, nil
	}

	if event.IntentID == "" {
		s.metrics.ObserveWebhook(event.Type, "rejected")
		return nil, fmt.Errorf("webhook event %s carries no payment intent: %w", event.ID, util.ErrInvalidInput)
	}

	settled, err := s.settlement.ApplyOutcome(ctx, event.IntentID, outcome, domain.SourceWebhook)
	if err != nil {
		if util.IsError(err, util.ErrUnknownIntent) {
			s.metrics.ObserveWebhook(event.Type, "unknown_intent")
			s.logger.Warn("Webhook references an unknown payment intent",
				zap.String("event_id", event.ID),
				zap.String("external_ref", event.IntentID),
			)
			return result, nil
		}
		s.metrics.ObserveWebhook(event.Type, "error")
		return nil, fmt.Errorf("handle webhook %s: %w", event.ID, err)
	}

	s.checkCorrelation(event, settled.TopUp)

	result.Handled = true
	result.Applied = settled.Applied
	result.Status = settled.TopUp.Status
	s.metrics.ObserveWebhook(event.Type, "ok")
	return result, nil
}

// checkCorrelation logs disagreements between the event and the stored top-up.
// The stored top-up always wins.
func (s *webhookService) checkCorrelation(event *payment.Event, topUp *domain.TopUp) {
	if event.AccountID != "" && event.AccountID != topUp.AccountID {
		s.logger.Warn("Webhook account metadata does not match top-up owner",
			zap.String("external_ref", topUp.ExternalRef),
			zap.String("event_account_id", event.AccountID),
			zap.String("account_id", topUp.AccountID),
		)
	}
	if event.Amount != 0 && event.Amount != topUp.Amount {
		s.logger.Warn("Webhook amount does not match top-up amount",
			zap.String("external_ref", topUp.ExternalRef),
			zap.Int64("event_amount", event.Amount),
			zap.Int64("amount", topUp.Amount),
		)
	}
}
