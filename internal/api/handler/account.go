// internal/api/handler/account.go
package handler

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"wallet-ledger/internal/auth"
	"wallet-ledger/internal/domain"
	"wallet-ledger/internal/service"
)

// AccountHandler serves sign-up, login and the current account.
type AccountHandler struct {
	responder
	service  service.AccountService
	sessions *auth.SessionManager
}

// NewAccountHandler creates a new instance of AccountHandler.
func NewAccountHandler(s service.AccountService, sessions *auth.SessionManager, logger *zap.Logger) *AccountHandler {
	return &AccountHandler{
		responder: newResponder(logger, "account_handler"),
		service:   s,
		sessions:  sessions,
	}
}

type signUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullname"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Account   *domain.Account `json:"account"`
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// SignUp handles POST /signup.
func (h *AccountHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondWithError(w, err)
		return
	}

	account, err := h.service.SignUp(r.Context(), req.Email, req.Password, req.FullName)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithSession(w, http.StatusCreated, account)
}

// Login handles POST /login.
func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondWithError(w, err)
		return
	}

	account, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithSession(w, http.StatusOK, account)
}

// Me handles GET /me.
func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	accountID, err := sessionAccountID(r)
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	account, err := h.service.GetAccount(r.Context(), accountID)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, account)
}

func (h *AccountHandler) respondWithSession(w http.ResponseWriter, code int, account *domain.Account) {
	token, expiresAt, err := h.sessions.Issue(account.ID)
	if err != nil {
		h.logger.Error("Failed to issue session", zap.String("account_id", account.ID), zap.Error(err))
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, code, sessionResponse{Account: account, Token: token, ExpiresAt: expiresAt})
}
