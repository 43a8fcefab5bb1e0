// internal/api/handler/webhook.go
package handler

import (
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"wallet-ledger/internal/api/types"
	"wallet-ledger/internal/service"
	"wallet-ledger/internal/util"
)

// SignatureHeader is the header the processor signs webhook deliveries with.
const SignatureHeader = "Stripe-Signature"

const maxWebhookBodyBytes = 64 << 10

// WebhookHandler receives processor events.
type WebhookHandler struct {
	responder
	service service.WebhookService
}

// NewWebhookHandler creates a new instance of WebhookHandler.
func NewWebhookHandler(s service.WebhookService, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		responder: newResponder(logger, "webhook_handler"),
		service:   s,
	}
}

// HandleWebhook handles POST /webhook. The raw body is passed through untouched
// because the signature covers the exact bytes.
func (h *WebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.respondWithJSON(w, http.StatusRequestEntityTooLarge, types.ErrorResponse{Error: "Payload too large"})
			return
		}
		h.respondWithError(w, util.ErrInvalidInput)
		return
	}

	result, err := h.service.HandleWebhook(r.Context(), payload, r.Header.Get(SignatureHeader))
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	h.logger.Debug("Webhook acknowledged",
		zap.String("event_id", result.EventID),
		zap.String("event_type", result.EventType),
		zap.Bool("handled", result.Handled),
		zap.Bool("applied", result.Applied),
	)
	h.respondWithJSON(w, http.StatusOK, map[string]bool{"received": true})
}
