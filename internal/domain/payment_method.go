// internal/domain/payment_method.go
package domain

import (
	"time"

	"github.com/google/uuid"
)

// PaymentMethod is a card saved by an account. Display attributes are copied
// from the processor when the card is saved and never refreshed.
type PaymentMethod struct {
	ID          string    `db:"id" json:"id"`
	AccountID   string    `db:"account_id" json:"account_id"`
	ExternalRef string    `db:"external_ref" json:"payment_method_id"`
	Brand       string    `db:"brand" json:"brand"`
	Last4       string    `db:"last4" json:"last4"`
	ExpMonth    int       `db:"exp_month" json:"exp_month"`
	ExpYear     int       `db:"exp_year" json:"exp_year"`
	IsDefault   bool      `db:"is_default" json:"is_default"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// NewPaymentMethod creates a new PaymentMethod.
func NewPaymentMethod(accountID, externalRef, brand, last4 string, expMonth, expYear int, isDefault bool) *PaymentMethod {
	return &PaymentMethod{
		ID:          uuid.NewString(),
		AccountID:   accountID,
		ExternalRef: externalRef,
		Brand:       brand,
		Last4:       last4,
		ExpMonth:    expMonth,
		ExpYear:     expYear,
		IsDefault:   isDefault,
		CreatedAt:   time.Now().UTC(),
	}
}
