// internal/api/handler/admin.go
package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"wallet-ledger/internal/service"
	"wallet-ledger/internal/util"
)

// AdminHandler serves operator-only maintenance endpoints.
type AdminHandler struct {
	responder
	reconcile   service.ReconcileService
	diagnostics service.DiagnosticsService
}

// NewAdminHandler creates a new instance of AdminHandler.
func NewAdminHandler(reconcile service.ReconcileService, diagnostics service.DiagnosticsService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		responder:   newResponder(logger, "admin_handler"),
		reconcile:   reconcile,
		diagnostics: diagnostics,
	}
}

// ReconcilePending handles POST /reconcile-pending. Operators sweep every
// PENDING top-up unless ?min_age=<duration> narrows it to older ones.
func (h *AdminHandler) ReconcilePending(w http.ResponseWriter, r *http.Request) {
	var minAge time.Duration
	if raw := r.URL.Query().Get("min_age"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed < 0 {
			h.respondWithError(w, fmt.Errorf("min_age must be a non-negative duration: %w", util.ErrInvalidInput))
			return
		}
		minAge = parsed
	}

	report, err := h.reconcile.ReconcilePendingOlderThan(r.Context(), minAge)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, report)
}

// ForceComplete handles POST /reconcile-pending/{ref}/complete.
func (h *AdminHandler) ForceComplete(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "ref")

	topUp, err := h.reconcile.ForceComplete(r.Context(), ref)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.logger.Info("Top-up completed manually", zap.String("external_ref", ref), zap.String("account_id", topUp.AccountID))
	h.respondWithJSON(w, http.StatusOK, map[string]interface{}{"transaction": topUp})
}

// Diagnostics handles GET /diagnostics.
func (h *AdminHandler) Diagnostics(w http.ResponseWriter, r *http.Request) {
	report, err := h.diagnostics.Report(r.Context())
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, report)
}
