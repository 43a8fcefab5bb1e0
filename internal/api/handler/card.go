// internal/api/handler/card.go
package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"wallet-ledger/internal/domain"
	"wallet-ledger/internal/service"
	"wallet-ledger/internal/util"
)

// CardHandler serves saved payment methods.
type CardHandler struct {
	responder
	service service.CardService
}

// NewCardHandler creates a new instance of CardHandler.
func NewCardHandler(s service.CardService, logger *zap.Logger) *CardHandler {
	return &CardHandler{
		responder: newResponder(logger, "card_handler"),
		service:   s,
	}
}

type saveCardRequest struct {
	PaymentMethodID string `json:"payment_method_id"`
}

type setDefaultCardRequest struct {
	CardID string `json:"card_id"`
}

// CreateSetupIntent handles POST /setup-intent.
func (h *CardHandler) CreateSetupIntent(w http.ResponseWriter, r *http.Request) {
	accountID, err := sessionAccountID(r)
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	intent, err := h.service.CreateSetupIntent(r.Context(), accountID)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, map[string]string{
		"client_secret": intent.ClientSecret,
		"customer_id":   intent.CustomerID,
	})
}

// ListCards handles GET /saved-cards.
func (h *CardHandler) ListCards(w http.ResponseWriter, r *http.Request) {
	accountID, err := sessionAccountID(r)
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	cards, err := h.service.ListCards(r.Context(), accountID)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	if cards == nil {
		cards = []domain.PaymentMethod{}
	}
	h.respondWithJSON(w, http.StatusOK, map[string][]domain.PaymentMethod{"cards": cards})
}

// SaveCard handles POST /saved-cards.
func (h *CardHandler) SaveCard(w http.ResponseWriter, r *http.Request) {
	accountID, err := sessionAccountID(r)
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	var req saveCardRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondWithError(w, err)
		return
	}
	if strings.TrimSpace(req.PaymentMethodID) == "" {
		h.respondWithError(w, fmt.Errorf("payment_method_id is required: %w", util.ErrInvalidInput))
		return
	}

	card, err := h.service.SaveCard(r.Context(), accountID, strings.TrimSpace(req.PaymentMethodID))
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusCreated, card)
}

// DeleteCard handles DELETE /saved-cards/{cardID}. Older clients send the id
// as ?cardId= instead.
func (h *CardHandler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	accountID, err := sessionAccountID(r)
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	cardID := chi.URLParam(r, "cardID")
	if cardID == "" {
		cardID = r.URL.Query().Get("cardId")
	}
	if cardID == "" {
		h.respondWithError(w, fmt.Errorf("card id is required: %w", util.ErrInvalidInput))
		return
	}

	if err := h.service.DeleteCard(r.Context(), accountID, cardID); err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// SetDefaultCard handles POST /set-default-card.
func (h *CardHandler) SetDefaultCard(w http.ResponseWriter, r *http.Request) {
	accountID, err := sessionAccountID(r)
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	var req setDefaultCardRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondWithError(w, err)
		return
	}
	if req.CardID == "" {
		h.respondWithError(w, fmt.Errorf("card_id is required: %w", util.ErrInvalidInput))
		return
	}

	card, err := h.service.SetDefaultCard(r.Context(), accountID, req.CardID)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, card)
}
