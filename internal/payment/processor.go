// internal/payment/processor.go
package payment

import "context"

// IntentStatus is the coarse outcome of a payment intent.
type IntentStatus string

const (
	IntentSucceeded IntentStatus = "succeeded"
	IntentFailed    IntentStatus = "failed"
	IntentPending   IntentStatus = "pending"
)

// EventKind classifies a verified webhook event.
type EventKind int

const (
	EventIgnored EventKind = iota
	EventIntentSucceeded
	EventIntentFailed
)

// IntentRequest describes a payment intent to create. AccountID travels as
// correlation metadata.
type IntentRequest struct {
	Amount     int64
	Currency   string
	AccountID  string
	CustomerID string
}

// Intent is a created payment intent.
type Intent struct {
	ID           string
	ClientSecret string
	Status       IntentStatus
	Amount       int64
}

// SetupIntent lets a client collect card details for later use.
type SetupIntent struct {
	ClientSecret string
	CustomerID   string
}

// Card holds the display attributes of a processor payment method.
type Card struct {
	ID         string
	CustomerID string
	Brand      string
	Last4      string
	ExpMonth   int
	ExpYear    int
}

// Event is a verified webhook notification. IntentID, AccountID and Amount are
// only populated for payment intent events.
type Event struct {
	ID        string
	Type      string
	Kind      EventKind
	IntentID  string
	AccountID string
	Amount    int64
}

// Processor is the card payment provider as seen by the wallet.
type Processor interface {
	CreateCustomer(ctx context.Context, email, accountID string) (string, error)
	CreatePaymentIntent(ctx context.Context, req IntentRequest) (*Intent, error)
	GetPaymentIntentStatus(ctx context.Context, intentID string) (IntentStatus, error)
	CreateSetupIntent(ctx context.Context, customerID string) (*SetupIntent, error)
	GetPaymentMethod(ctx context.Context, paymentMethodID string) (*Card, error)
	AttachPaymentMethod(ctx context.Context, paymentMethodID, customerID string) error
	DetachPaymentMethod(ctx context.Context, paymentMethodID string) error
	// ParseWebhook verifies the signature header against the payload and decodes
	// the event. Verification failures wrap util.ErrInvalidSignature.
	ParseWebhook(payload []byte, signatureHeader string) (*Event, error)
	// Configured reports which secrets are present, without exposing them.
	Configured() (secretKey bool, webhookSecret bool)
}
