// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	"wallet-ledger/internal/payment/stripe"
	"wallet-ledger/pkg/db"
)

// TopUpConfig bounds top-up amounts, in minor units of Currency.
type TopUpConfig struct {
	Currency  string `yaml:"currency"`
	MinAmount int64  `yaml:"min_amount"`
	MaxAmount int64  `yaml:"max_amount"`
}

// SessionConfig configures session tokens. The secret is only read from the environment.
type SessionConfig struct {
	Secret string        `yaml:"-"`
	TTL    time.Duration `yaml:"ttl"`
}

// ReconcileConfig configures the reconciliation sweeper. A zero Interval
// disables scheduled sweeps in the API server.
type ReconcileConfig struct {
	Interval  time.Duration `yaml:"interval"`
	MinAge    time.Duration `yaml:"min_age"`
	BatchSize int           `yaml:"batch_size"`
}

// KafkaConfig configures settlement event publishing. No brokers means events are dropped.
type KafkaConfig struct {
	Brokers         []string `yaml:"brokers"`
	SettlementTopic string   `yaml:"settlement_topic"`
}

// AppConfig holds all application-wide configurations.
type AppConfig struct {
	ServerPort     string          `yaml:"server_port"`
	LogLevel       string          `yaml:"log_level"`
	DB             db.Config       `yaml:"db"`
	AutoMigrate    bool            `yaml:"auto_migrate"`
	Stripe         stripe.Config   `yaml:"stripe"`
	TopUp          TopUpConfig     `yaml:"topup"`
	Session        SessionConfig   `yaml:"session"`
	OperatorAPIKey string          `yaml:"-"`
	Reconcile      ReconcileConfig `yaml:"reconcile"`
	Kafka          KafkaConfig     `yaml:"kafka"`
}

func defaults() *AppConfig {
	return &AppConfig{
		ServerPort: "8080",
		LogLevel:   "info",
		DB: db.Config{
			Host:     "localhost", // Default to localhost for local development
			Port:     5432,
			User:     "user",
			Password: "password",
			DBName:   "walletdb",
			SSLMode:  "disable",
		},
		AutoMigrate: true,
		Stripe:      stripe.Config{Timeout: 15 * time.Second},
		TopUp: TopUpConfig{
			Currency:  "usd",
			MinAmount: 50,
			MaxAmount: 99999999,
		},
		Session: SessionConfig{TTL: 24 * time.Hour},
		Reconcile: ReconcileConfig{
			MinAge:    2 * time.Minute,
			BatchSize: 100,
		},
		Kafka: KafkaConfig{SettlementTopic: "wallet.topup.settled"},
	}
}

// LoadConfig builds the configuration from defaults, an optional .env file, an
// optional YAML file named by WALLET_CONFIG_FILE and the environment, in that
// order of increasing precedence. Secrets are only taken from the environment.
func LoadConfig() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := defaults()
	if path := os.Getenv("WALLET_CONFIG_FILE"); path != "" {
		if err := loadYAML(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadYAML(path string, cfg *AppConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *AppConfig) error {
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	integer64 := func(key string, dst *int64) {
		if v, ok := lookup(key); ok {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
				return
			}
			*dst = b
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	str("SERVER_PORT", &cfg.ServerPort)
	str("LOG_LEVEL", &cfg.LogLevel)

	str("DB_HOST", &cfg.DB.Host)
	integer("DB_PORT", &cfg.DB.Port)
	str("DB_USER", &cfg.DB.User)
	str("DB_PASSWORD", &cfg.DB.Password)
	str("DB_NAME", &cfg.DB.DBName)
	str("DB_SSLMODE", &cfg.DB.SSLMode)
	boolean("DB_AUTO_MIGRATE", &cfg.AutoMigrate)

	str("STRIPE_SECRET_KEY", &cfg.Stripe.SecretKey)
	str("STRIPE_WEBHOOK_SECRET", &cfg.Stripe.WebhookSecret)
	str("STRIPE_API_BASE", &cfg.Stripe.BaseURL)
	duration("PROCESSOR_TIMEOUT", &cfg.Stripe.Timeout)

	str("CURRENCY", &cfg.TopUp.Currency)
	integer64("TOPUP_MIN_AMOUNT", &cfg.TopUp.MinAmount)
	integer64("TOPUP_MAX_AMOUNT", &cfg.TopUp.MaxAmount)

	str("SESSION_SECRET", &cfg.Session.Secret)
	duration("SESSION_TTL", &cfg.Session.TTL)
	str("OPERATOR_API_KEY", &cfg.OperatorAPIKey)

	duration("RECONCILE_INTERVAL", &cfg.Reconcile.Interval)
	duration("RECONCILE_MIN_AGE", &cfg.Reconcile.MinAge)
	integer("RECONCILE_BATCH_SIZE", &cfg.Reconcile.BatchSize)

	if v, ok := lookup("KAFKA_BROKERS"); ok {
		cfg.Kafka.Brokers = splitList(v)
	}
	str("KAFKA_SETTLEMENT_TOPIC", &cfg.Kafka.SettlementTopic)

	return errors.Join(errs...)
}

func (c *AppConfig) validate() error {
	if c.TopUp.MinAmount <= 0 {
		return fmt.Errorf("TOPUP_MIN_AMOUNT must be positive, got %d", c.TopUp.MinAmount)
	}
	if c.TopUp.MaxAmount < c.TopUp.MinAmount {
		return fmt.Errorf("TOPUP_MAX_AMOUNT (%d) is below TOPUP_MIN_AMOUNT (%d)", c.TopUp.MaxAmount, c.TopUp.MinAmount)
	}
	if strings.TrimSpace(c.TopUp.Currency) == "" {
		return errors.New("CURRENCY must not be empty")
	}
	if c.Reconcile.Interval < 0 || c.Reconcile.MinAge < 0 {
		return errors.New("reconcile durations must not be negative")
	}
	if c.Reconcile.BatchSize <= 0 {
		return fmt.Errorf("RECONCILE_BATCH_SIZE must be positive, got %d", c.Reconcile.BatchSize)
	}
	return nil
}

// lookup returns a trimmed, non-empty environment value.
func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
