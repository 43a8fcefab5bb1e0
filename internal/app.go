// internal/app.go
package app

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	router "wallet-ledger/internal/api"
	"wallet-ledger/internal/api/handler"
	"wallet-ledger/internal/auth"
	"wallet-ledger/internal/config"
	"wallet-ledger/internal/events"
	"wallet-ledger/internal/metrics"
	"wallet-ledger/internal/payment"
	"wallet-ledger/internal/payment/stripe"
	"wallet-ledger/internal/repository"
	"wallet-ledger/internal/repository/postgres"
	"wallet-ledger/internal/service"
	"wallet-ledger/internal/util"
	"wallet-ledger/pkg/db"
)

// Application holds all the initialized components of the application.
type Application struct {
	Config *config.AppConfig
	Logger *zap.Logger
	DB     *sqlx.DB

	Processor payment.Processor
	Publisher events.Publisher
	Registry  *prometheus.Registry
	Sessions  *auth.SessionManager

	// Repositories
	AccountRepository       repository.AccountRepository
	TopUpRepository         repository.TopUpRepository
	PaymentMethodRepository repository.PaymentMethodRepository

	// Services
	AccountService     service.AccountService
	TopUpService       service.TopUpService
	SettlementService  service.SettlementService
	WebhookService     service.WebhookService
	ReconcileService   service.ReconcileService
	CardService        service.CardService
	DiagnosticsService service.DiagnosticsService

	// HTTP API
	HTTPHandler http.Handler

	headless   bool
	background sync.WaitGroup
}

// Option customizes an Application before Initialize wires it.
type Option func(*Application)

// WithProcessor replaces the Stripe-backed payment processor.
func WithProcessor(p payment.Processor) Option {
	return func(app *Application) { app.Processor = p }
}

// WithConfig skips loading configuration from the environment.
func WithConfig(cfg *config.AppConfig) Option {
	return func(app *Application) { app.Config = cfg }
}

// Headless wires storage, the processor and services but no HTTP layer, so
// no session secret is required.
func Headless() Option {
	return func(app *Application) { app.headless = true }
}

// NewApplication creates a new Application instance.
func NewApplication(opts ...Option) *Application {
	app := &Application{}
	for _, opt := range opts {
		opt(app)
	}
	return app
}

// Initialize initializes all application components.
func (app *Application) Initialize(ctx context.Context) error {
	// 1. Load Configuration
	if app.Config == nil {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		app.Config = cfg
	}

	// 2. Initialize Logger
	logger, err := util.InitLogger(app.Config.LogLevel)
	if err != nil {
		return err
	}
	app.Logger = logger
	app.Logger.Info("Application configuration loaded successfully.")

	// 3. Connect to Database
	database, err := db.NewPostgresDB(app.Config.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	app.DB = database
	app.Logger.Info("Database connection established.")

	if app.Config.AutoMigrate {
		if err := db.Migrate(app.DB); err != nil {
			return fmt.Errorf("failed to apply migrations: %w", err)
		}
		app.Logger.Info("Database migrations applied.")
	}

	// 4. Initialize Repositories
	app.AccountRepository = postgres.NewAccountRepository()
	app.TopUpRepository = postgres.NewTopUpRepository()
	app.PaymentMethodRepository = postgres.NewPaymentMethodRepository()

	// 5. External integrations
	if app.Processor == nil {
		app.Processor = stripe.NewProcessor(app.Config.Stripe)
	}
	keyConfigured, webhookConfigured := app.Processor.Configured()
	if !keyConfigured {
		app.Logger.Warn("Stripe secret key is not set; top-ups and cards will fail")
	}
	if !webhookConfigured {
		app.Logger.Warn("Stripe webhook secret is not set; webhooks will be rejected")
	}

	if len(app.Config.Kafka.Brokers) > 0 {
		app.Publisher = events.NewKafkaPublisher(app.Config.Kafka.Brokers, app.Config.Kafka.SettlementTopic, app.Logger)
		app.Logger.Info("Settlement events enabled", zap.Strings("brokers", app.Config.Kafka.Brokers), zap.String("topic", app.Config.Kafka.SettlementTopic))
	} else {
		app.Publisher = events.NopPublisher{}
	}

	app.Registry = prometheus.NewRegistry()
	app.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewMetrics(app.Registry)

	// 6. Initialize Services
	txFuncs := service.DefaultTxFuncs()
	app.AccountService = service.NewAccountService(app.DB, app.AccountRepository, app.Logger)
	app.TopUpService = service.NewTopUpService(
		app.DB,
		app.AccountRepository,
		app.TopUpRepository,
		app.Processor,
		service.TopUpLimits{
			Currency:  app.Config.TopUp.Currency,
			MinAmount: app.Config.TopUp.MinAmount,
			MaxAmount: app.Config.TopUp.MaxAmount,
		},
		m,
		app.Logger,
	)
	app.SettlementService = service.NewSettlementService(app.DB, app.TopUpRepository, app.AccountRepository, app.Publisher, m, app.Logger, txFuncs)
	app.WebhookService = service.NewWebhookService(app.Processor, app.SettlementService, m, app.Logger)
	app.ReconcileService = service.NewReconcileService(
		app.DB,
		app.TopUpRepository,
		app.Processor,
		app.SettlementService,
		service.ReconcileOptions{MinAge: app.Config.Reconcile.MinAge, BatchSize: app.Config.Reconcile.BatchSize},
		m,
		app.Logger,
	)
	app.CardService = service.NewCardService(app.DB, app.DB, app.AccountRepository, app.PaymentMethodRepository, app.Processor, app.Logger, txFuncs)
	app.DiagnosticsService = service.NewDiagnosticsService(app.DB, app.DB, app.TopUpRepository, app.Processor)
	app.Logger.Info("Services initialized.")

	if app.headless {
		return nil
	}

	// 7. Initialize HTTP Handlers and Router
	sessions, err := auth.NewSessionManager(app.Config.Session.Secret, app.Config.Session.TTL)
	if err != nil {
		return fmt.Errorf("failed to configure sessions: %w", err)
	}
	app.Sessions = sessions

	app.HTTPHandler = router.NewRouter(
		router.Handlers{
			Account: handler.NewAccountHandler(app.AccountService, app.Sessions, app.Logger),
			TopUp:   handler.NewTopUpHandler(app.TopUpService, app.AccountService, app.Logger),
			Webhook: handler.NewWebhookHandler(app.WebhookService, app.Logger),
			Card:    handler.NewCardHandler(app.CardService, app.Logger),
			Admin:   handler.NewAdminHandler(app.ReconcileService, app.DiagnosticsService, app.Logger),
		},
		router.RouterDeps{
			Sessions:    app.Sessions,
			OperatorKey: auth.NewOperatorKey(app.Config.OperatorAPIKey),
			Metrics:     promhttp.HandlerFor(app.Registry, promhttp.HandlerOpts{}),
			Logger:      app.Logger,
		},
	)
	app.Logger.Info("HTTP router and handlers initialized.")

	return nil
}

// StartBackground starts the scheduled reconciliation sweep when an interval
// is configured. It stops when ctx is cancelled.
func (app *Application) StartBackground(ctx context.Context) {
	interval := app.Config.Reconcile.Interval
	if interval <= 0 {
		app.Logger.Info("Scheduled reconciliation disabled")
		return
	}
	app.background.Add(1)
	go func() {
		defer app.background.Done()
		app.ReconcileService.Run(ctx, interval)
	}()
}

// Shutdown gracefully shuts down application resources. Background work must
// have been cancelled through the context given to StartBackground.
func (app *Application) Shutdown(ctx context.Context) error {
	app.Logger.Info("Shutting down application...")

	done := make(chan struct{})
	go func() {
		app.background.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		app.Logger.Warn("Background work did not stop before shutdown deadline")
	}

	if app.Publisher != nil {
		if err := app.Publisher.Close(); err != nil {
			app.Logger.Error("Failed to close event publisher", zap.Error(err))
		}
	}

	if app.DB != nil {
		if err := app.DB.Close(); err != nil {
			app.Logger.Error("Failed to close database connection", zap.Error(err))
			return fmt.Errorf("failed to close database connection: %w", err)
		}
		app.Logger.Info("Database connection closed.")
	}
	app.Logger.Info("Application shut down gracefully.")
	util.SyncLogger()
	return nil
}
