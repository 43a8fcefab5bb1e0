// internal/api/handler/respond.go
package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"wallet-ledger/internal/api/types"
	"wallet-ledger/internal/util"
)

// DefaultTimeout bounds every request, including processor round trips.
const DefaultTimeout = 30 * time.Second

// responder holds the JSON helpers shared by all handlers.
type responder struct {
	logger *zap.Logger
}

func newResponder(logger *zap.Logger, component string) responder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return responder{logger: logger.With(zap.String("component", component))}
}

// Helper function to send JSON responses.
func (h responder) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("Failed to marshal JSON response", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

// Helper function to send error responses.
func (h responder) respondWithError(w http.ResponseWriter, err error) {
	statusCode := http.StatusInternalServerError
	message := "Internal server error"

	switch {
	case util.IsError(err, util.ErrInvalidInput):
		statusCode = http.StatusBadRequest
		message = err.Error() // Use the error message directly for invalid input
	case util.IsError(err, util.ErrDuplicateEntry):
		statusCode = http.StatusBadRequest
		message = "User already exists"
	case util.IsError(err, util.ErrInvalidSignature):
		statusCode = http.StatusBadRequest
		message = "Invalid webhook signature"
	case util.IsError(err, util.ErrAccountNotFound):
		statusCode = http.StatusNotFound
		message = "Account not found"
	case util.IsError(err, util.ErrTopUpNotFound):
		statusCode = http.StatusNotFound
		message = "Transaction not found"
	case util.IsError(err, util.ErrCardNotFound):
		statusCode = http.StatusNotFound
		message = "Card not found"
	case util.IsError(err, util.ErrNotFound):
		statusCode = http.StatusNotFound
		message = "Resource not found"
	case util.IsError(err, util.ErrConflict):
		statusCode = http.StatusConflict
		message = err.Error()
	case util.IsError(err, util.ErrInvalidCredentials):
		statusCode = http.StatusUnauthorized
		message = "Invalid email or password"
	case util.IsError(err, util.ErrUnauthorized):
		statusCode = http.StatusUnauthorized
		message = "Unauthorized"
	case util.IsError(err, util.ErrForbidden):
		statusCode = http.StatusForbidden
		message = "Forbidden"
	case util.IsError(err, util.ErrUpstream):
		statusCode = http.StatusBadGateway
		message = "Payment processor unavailable, please retry"
		h.logger.Warn("Payment processor error", zap.Error(err))
	case util.IsError(err, util.ErrNotConfigured):
		message = "Service is not fully configured"
		h.logger.Error("Missing configuration", zap.Error(err))
	default:
		h.logger.Error("Unhandled service error", zap.Error(err))
	}

	h.respondWithJSON(w, statusCode, types.ErrorResponse{Error: message})
}

// decodeJSON decodes a request body, mapping malformed bodies to ErrInvalidInput.
func decodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return util.ErrInvalidInput
	}
	return nil
}
