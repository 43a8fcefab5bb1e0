// internal/domain/topup.go
package domain

import (
	"time"

	"github.com/google/uuid"
)

// TopUpStatus is the settlement state of a top-up.
type TopUpStatus string

const (
	TopUpStatusPending   TopUpStatus = "PENDING"
	TopUpStatusCompleted TopUpStatus = "COMPLETED"
	TopUpStatusFailed    TopUpStatus = "FAILED"
)

// IsTerminal reports whether no further transition is allowed.
func (s TopUpStatus) IsTerminal() bool {
	return s == TopUpStatusCompleted || s == TopUpStatusFailed
}

// TopUp is a request to add funds to an account, paired 1:1 with a processor payment intent.
type TopUp struct {
	ID          string      `db:"id" json:"id"`
	AccountID   string      `db:"account_id" json:"account_id"`
	Amount      int64       `db:"amount" json:"amount"`
	Currency    string      `db:"currency" json:"currency"`
	Status      TopUpStatus `db:"status" json:"status"`
	ExternalRef string      `db:"external_ref" json:"external_ref"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`
}

// NewTopUp creates a PENDING top-up for an already created payment intent.
func NewTopUp(accountID string, amount int64, currency, externalRef string) *TopUp {
	now := time.Now().UTC()
	return &TopUp{
		ID:          uuid.NewString(),
		AccountID:   accountID,
		Amount:      amount,
		Currency:    currency,
		Status:      TopUpStatusPending,
		ExternalRef: externalRef,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Outcome is the authoritative result of a payment intent as reported by the processor.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
)

// TargetStatus maps an outcome onto the terminal top-up status it produces.
func (o Outcome) TargetStatus() TopUpStatus {
	if o == OutcomeSucceeded {
		return TopUpStatusCompleted
	}
	return TopUpStatusFailed
}

// SettlementSource names the path that delivered an outcome.
type SettlementSource string

const (
	SourceWebhook SettlementSource = "webhook"
	SourceSweeper SettlementSource = "sweeper"
	SourceManual  SettlementSource = "manual"
)
