// internal/api/handler/topup.go
package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"wallet-ledger/internal/api/types"
	"wallet-ledger/internal/domain"
	"wallet-ledger/internal/service"
	"wallet-ledger/internal/util"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

// TopUpHandler serves top-up initiation and history.
type TopUpHandler struct {
	responder
	topUps   service.TopUpService
	accounts service.AccountService
}

// NewTopUpHandler creates a new instance of TopUpHandler.
func NewTopUpHandler(topUps service.TopUpService, accounts service.AccountService, logger *zap.Logger) *TopUpHandler {
	return &TopUpHandler{
		responder: newResponder(logger, "topup_handler"),
		topUps:    topUps,
		accounts:  accounts,
	}
}

type topUpRequest struct {
	Amount json.RawMessage `json:"amount"`
	Email  *string         `json:"email,omitempty"`
}

type topUpResponse struct {
	ClientSecret string        `json:"client_secret"`
	Transaction  *domain.TopUp `json:"transaction"`
	Display      string        `json:"amount_display"`
}

// TopUp handles POST /topup. The account always comes from the session; an
// email in the body is only checked against it.
func (h *TopUpHandler) TopUp(w http.ResponseWriter, r *http.Request) {
	accountID, err := sessionAccountID(r)
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	var req topUpRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondWithError(w, err)
		return
	}

	amount, err := domain.ParseMinorUnits(req.Amount)
	if err != nil {
		h.respondWithError(w, fmt.Errorf("%v: %w", err, util.ErrInvalidInput))
		return
	}

	if req.Email != nil {
		account, err := h.accounts.GetAccount(r.Context(), accountID)
		if err != nil {
			h.respondWithError(w, err)
			return
		}
		if service.NormalizeEmail(*req.Email) != account.Email {
			h.logger.Warn("Top-up email does not match session", zap.String("account_id", accountID))
			h.respondWithError(w, util.ErrForbidden)
			return
		}
	}

	intent, err := h.topUps.InitiateTopUp(r.Context(), accountID, amount)
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, topUpResponse{
		ClientSecret: intent.ClientSecret,
		Transaction:  intent.TopUp,
		Display:      domain.FormatMinorUnits(intent.TopUp.Amount),
	})
}

// GetTransactionHistory handles GET /transactions?limit=&offset=.
func (h *TopUpHandler) GetTransactionHistory(w http.ResponseWriter, r *http.Request) {
	accountID, err := sessionAccountID(r)
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	limit, offset, err := parsePagination(r)
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	topUps, total, err := h.topUps.GetTopUpHistory(r.Context(), accountID, limit, offset)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, types.NewPaginatedResponse(topUps, limit, offset, total))
}

func parsePagination(r *http.Request) (int, int, error) {
	limit := defaultPageLimit
	offset := 0

	if s := r.URL.Query().Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v <= 0 {
			return 0, 0, fmt.Errorf("limit must be a positive integer: %w", util.ErrInvalidInput)
		}
		limit = v
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	if s := r.URL.Query().Get("offset"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 0 {
			return 0, 0, fmt.Errorf("offset must be a non-negative integer: %w", util.ErrInvalidInput)
		}
		offset = v
	}
	return limit, offset, nil
}
