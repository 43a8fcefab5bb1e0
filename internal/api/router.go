// internal/api/router.go
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"wallet-ledger/internal/api/handler"
	"wallet-ledger/internal/auth"
)

// Handlers groups the HTTP handlers mounted by NewRouter.
type Handlers struct {
	Account *handler.AccountHandler
	TopUp   *handler.TopUpHandler
	Webhook *handler.WebhookHandler
	Card    *handler.CardHandler
	Admin   *handler.AdminHandler
}

// RouterDeps carries what the router needs besides the handlers.
type RouterDeps struct {
	Sessions    *auth.SessionManager
	OperatorKey auth.OperatorKey
	Metrics     http.Handler
	Logger      *zap.Logger
}

// NewRouter sets up and returns a new HTTP router.
func NewRouter(h Handlers, deps RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()

	// Global middlewares
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(handler.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(handler.DefaultTimeout))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics)
	}

	r.Post("/signup", h.Account.SignUp)
	r.Post("/login", h.Account.Login)

	// The processor authenticates itself with the signature header.
	r.Post("/webhook", h.Webhook.HandleWebhook)

	r.Group(func(r chi.Router) {
		r.Use(handler.RequireSession(deps.Sessions, logger))

		r.Get("/me", h.Account.Me)
		r.Post("/topup", h.TopUp.TopUp)
		r.Get("/transactions", h.TopUp.GetTransactionHistory)

		r.Post("/setup-intent", h.Card.CreateSetupIntent)
		r.Get("/saved-cards", h.Card.ListCards)
		r.Post("/saved-cards", h.Card.SaveCard)
		r.Delete("/saved-cards", h.Card.DeleteCard)
		r.Delete("/saved-cards/{cardID}", h.Card.DeleteCard)
		r.Post("/set-default-card", h.Card.SetDefaultCard)
	})

	r.Group(func(r chi.Router) {
		r.Use(handler.RequireOperator(deps.OperatorKey, logger))

		r.Post("/reconcile-pending", h.Admin.ReconcilePending)
		r.Post("/reconcile-pending/{ref}/complete", h.Admin.ForceComplete)
		r.Get("/diagnostics", h.Admin.Diagnostics)
	})

	return r
}
