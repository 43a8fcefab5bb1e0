// internal/payment/stripe/stripe.go
package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	stripego "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"wallet-ledger/internal/payment"
	"wallet-ledger/internal/util"
)

const (
	metadataAccountID = "account_id"

	eventIntentSucceeded = "payment_intent.succeeded"
	eventIntentFailed    = "payment_intent.payment_failed"
	eventIntentCanceled  = "payment_intent.canceled"
)

// Config holds the credentials of the Stripe account.
type Config struct {
	SecretKey     string        `yaml:"-"`
	WebhookSecret string        `yaml:"-"`
	Timeout       time.Duration `yaml:"timeout"`
	// BaseURL overrides the API endpoint; empty means api.stripe.com.
	BaseURL string `yaml:"base_url"`
}

// Processor implements payment.Processor on top of the Stripe API.
type Processor struct {
	api           *client.API
	secretKey     string
	webhookSecret string
}

// NewProcessor creates a Stripe-backed processor. A zero timeout means no client-side timeout.
func NewProcessor(cfg Config) *Processor {
	httpClient := &http.Client{Timeout: cfg.Timeout}
	backendConfig := &stripego.BackendConfig{
		HTTPClient:    httpClient,
		LeveledLogger: &stripego.LeveledLogger{Level: stripego.LevelError},
	}
	if cfg.BaseURL != "" {
		backendConfig.URL = stripego.String(cfg.BaseURL)
	}
	backends := &stripego.Backends{
		API:     stripego.GetBackendWithConfig(stripego.APIBackend, backendConfig),
		Connect: stripego.GetBackendWithConfig(stripego.ConnectBackend, backendConfig),
		Uploads: stripego.GetBackendWithConfig(stripego.UploadsBackend, backendConfig),
	}

	return &Processor{
		api:           client.New(cfg.SecretKey, backends),
		secretKey:     cfg.SecretKey,
		webhookSecret: cfg.WebhookSecret,
	}
}

var _ payment.Processor = (*Processor)(nil)

func (p *Processor) Configured() (bool, bool) {
	return p.secretKey != "", p.webhookSecret != ""
}

func (p *Processor) requireKey() error {
	if p.secretKey == "" {
		return fmt.Errorf("stripe secret key: %w", util.ErrNotConfigured)
	}
	return nil
}

// CreateCustomer creates a Stripe customer tagged with the wallet account id.
func (p *Processor) CreateCustomer(ctx context.Context, email, accountID string) (string, error) {
	if err := p.requireKey(); err != nil {
		return "", err
	}
	params := &stripego.CustomerParams{Email: stripego.String(email)}
	params.Context = ctx
	params.AddMetadata(metadataAccountID, accountID)

	customer, err := p.api.Customers.New(params)
	if err != nil {
		return "", upstream("create customer", err)
	}
	return customer.ID, nil
}

// CreatePaymentIntent creates a card payment intent carrying the account id as metadata.
func (p *Processor) CreatePaymentIntent(ctx context.Context, req payment.IntentRequest) (*payment.Intent, error) {
	if err := p.requireKey(); err != nil {
		return nil, err
	}
	params := &stripego.PaymentIntentParams{
		Amount:   stripego.Int64(req.Amount),
		Currency: stripego.String(strings.ToLower(req.Currency)),
		AutomaticPaymentMethods: &stripego.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripego.Bool(true),
		},
	}
	if req.CustomerID != "" {
		params.Customer = stripego.String(req.CustomerID)
		params.AddMetadata("customer", req.CustomerID)
	}
	params.Context = ctx
	params.AddMetadata(metadataAccountID, req.AccountID)

	pi, err := p.api.PaymentIntents.New(params)
	if err != nil {
		return nil, upstream("create payment intent", err)
	}
	return &payment.Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       MapIntentStatus(pi.Status),
		Amount:       pi.Amount,
	}, nil
}

// GetPaymentIntentStatus fetches the current status of a payment intent.
func (p *Processor) GetPaymentIntentStatus(ctx context.Context, intentID string) (payment.IntentStatus, error) {
	if err := p.requireKey(); err != nil {
		return "", err
	}
	params := &stripego.PaymentIntentParams{}
	params.Context = ctx

	pi, err := p.api.PaymentIntents.Get(intentID, params)
	if err != nil {
		return "", upstream("get payment intent "+intentID, err)
	}
	return MapIntentStatus(pi.Status), nil
}

func (p *Processor) CreateSetupIntent(ctx context.Context, customerID string) (*payment.SetupIntent, error) {
	if err := p.requireKey(); err != nil {
		return nil, err
	}
	params := &stripego.SetupIntentParams{
		Customer:           stripego.String(customerID),
		PaymentMethodTypes: stripego.StringSlice([]string{"card"}),
	}
	params.Context = ctx

	si, err := p.api.SetupIntents.New(params)
	if err != nil {
		return nil, upstream("create setup intent", err)
	}
	return &payment.SetupIntent{ClientSecret: si.ClientSecret, CustomerID: customerID}, nil
}

// GetPaymentMethod reads the card attributes of a payment method. Unknown ids
// and non-card methods are invalid input.
func (p *Processor) GetPaymentMethod(ctx context.Context, paymentMethodID string) (*payment.Card, error) {
	if err := p.requireKey(); err != nil {
		return nil, err
	}
	params := &stripego.PaymentMethodParams{}
	params.Context = ctx

	pm, err := p.api.PaymentMethods.Get(paymentMethodID, params)
	if err != nil {
		var stripeErr *stripego.Error
		if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("payment method %s: %w", paymentMethodID, util.ErrInvalidInput)
		}
		return nil, upstream("get payment method "+paymentMethodID, err)
	}
	if pm.Card == nil {
		return nil, fmt.Errorf("payment method %s has no card data: %w", paymentMethodID, util.ErrInvalidInput)
	}

	card := &payment.Card{
		ID:       pm.ID,
		Brand:    string(pm.Card.Brand),
		Last4:    pm.Card.Last4,
		ExpMonth: int(pm.Card.ExpMonth),
		ExpYear:  int(pm.Card.ExpYear),
	}
	if pm.Customer != nil {
		card.CustomerID = pm.Customer.ID
	}
	return card, nil
}

func (p *Processor) AttachPaymentMethod(ctx context.Context, paymentMethodID, customerID string) error {
	if err := p.requireKey(); err != nil {
		return err
	}
	params := &stripego.PaymentMethodAttachParams{Customer: stripego.String(customerID)}
	params.Context = ctx

	if _, err := p.api.PaymentMethods.Attach(paymentMethodID, params); err != nil {
		return upstream("attach payment method "+paymentMethodID, err)
	}
	return nil
}

func (p *Processor) DetachPaymentMethod(ctx context.Context, paymentMethodID string) error {
	if err := p.requireKey(); err != nil {
		return err
	}
	params := &stripego.PaymentMethodDetachParams{}
	params.Context = ctx

	if _, err := p.api.PaymentMethods.Detach(paymentMethodID, params); err != nil {
		return upstream("detach payment method "+paymentMethodID, err)
	}
	return nil
}

// ParseWebhook verifies a Stripe-Signature header and decodes the event.
func (p *Processor) ParseWebhook(payload []byte, signatureHeader string) (*payment.Event, error) {
	if p.webhookSecret == "" {
		return nil, fmt.Errorf("stripe webhook secret: %w", util.ErrNotConfigured)
	}
	if signatureHeader == "" {
		return nil, fmt.Errorf("missing signature header: %w", util.ErrInvalidSignature)
	}

	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, p.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		if isSignatureError(err) {
			return nil, fmt.Errorf("%w: %v", util.ErrInvalidSignature, err)
		}
		return nil, fmt.Errorf("%w: %v", util.ErrInvalidInput, err)
	}

	out := &payment.Event{ID: event.ID, Type: string(event.Type)}
	switch out.Type {
	case eventIntentSucceeded:
		out.Kind = payment.EventIntentSucceeded
	case eventIntentFailed, eventIntentCanceled:
		out.Kind = payment.EventIntentFailed
	default:
		out.Kind = payment.EventIgnored
		return out, nil
	}

	if event.Data == nil {
		return nil, fmt.Errorf("event %s has no data: %w", event.ID, util.ErrInvalidInput)
	}
	var pi stripego.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return nil, fmt.Errorf("event %s: malformed payment intent: %w", event.ID, util.ErrInvalidInput)
	}
	if pi.ID == "" {
		return nil, fmt.Errorf("event %s: payment intent id missing: %w", event.ID, util.ErrInvalidInput)
	}
	out.IntentID = pi.ID
	out.Amount = pi.Amount
	out.AccountID = pi.Metadata[metadataAccountID]
	return out, nil
}

// MapIntentStatus collapses Stripe's intent lifecycle into three outcomes.
// Anything that is neither succeeded nor canceled may still settle.
func MapIntentStatus(status stripego.PaymentIntentStatus) payment.IntentStatus {
	switch status {
	case stripego.PaymentIntentStatusSucceeded:
		return payment.IntentSucceeded
	case stripego.PaymentIntentStatusCanceled:
		return payment.IntentFailed
	default:
		return payment.IntentPending
	}
}

func isSignatureError(err error) bool {
	return errors.Is(err, webhook.ErrNotSigned) ||
		errors.Is(err, webhook.ErrInvalidHeader) ||
		errors.Is(err, webhook.ErrNoValidSignature) ||
		errors.Is(err, webhook.ErrTooOld)
}

func upstream(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, util.ErrUpstream, err)
}
