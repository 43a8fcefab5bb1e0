// internal/api/handler/middleware.go
package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"wallet-ledger/internal/auth"
	"wallet-ledger/internal/util"
)

// OperatorKeyHeader carries the operator API key on maintenance endpoints.
const OperatorKeyHeader = "X-Operator-Key"

// RequestLogger logs one line per request with zap.
func RequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Info("HTTP request",
					zap.String("request_id", middleware.GetReqID(r.Context())),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

// RequireSession rejects requests without a valid bearer session and stores
// the account id in the request context.
func RequireSession(sessions *auth.SessionManager, logger *zap.Logger) func(http.Handler) http.Handler {
	h := newResponder(logger, "auth")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := auth.BearerToken(r.Header.Get("Authorization"))
			if !ok {
				h.respondWithError(w, util.ErrUnauthorized)
				return
			}
			accountID, err := sessions.Parse(token)
			if err != nil {
				h.respondWithError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithAccountID(r.Context(), accountID)))
		})
	}
}

// RequireOperator admits requests carrying the operator key. With no key
// configured every request is forbidden.
func RequireOperator(key auth.OperatorKey, logger *zap.Logger) func(http.Handler) http.Handler {
	h := newResponder(logger, "auth")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !key.Matches(r.Header.Get(OperatorKeyHeader)) {
				h.logger.Warn("Rejected operator request", zap.String("path", r.URL.Path), zap.Bool("enabled", key.Enabled()))
				h.respondWithError(w, util.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// sessionAccountID returns the account id placed in the context by RequireSession.
func sessionAccountID(r *http.Request) (string, error) {
	accountID, ok := auth.AccountIDFromContext(r.Context())
	if !ok {
		return "", util.ErrUnauthorized
	}
	return accountID, nil
}
