// internal/domain/account.go
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Account is a wallet holder. Balance is kept in minor currency units and is
// only ever changed by settling a top-up.
type Account struct {
	ID                  string    `db:"id" json:"id"`
	Email               string    `db:"email" json:"email"`
	FullName            string    `db:"full_name" json:"fullname"`
	PasswordHash        string    `db:"password_hash" json:"-"`
	Balance             int64     `db:"balance" json:"balance"`
	ProcessorCustomerID *string   `db:"processor_customer_id" json:"-"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time `db:"updated_at" json:"updated_at"`
}

// NewAccount creates a new Account with a zero balance.
func NewAccount(email, fullName, passwordHash string) *Account {
	now := time.Now().UTC()
	return &Account{
		ID:           uuid.NewString(),
		Email:        email,
		FullName:     fullName,
		PasswordHash: passwordHash,
		Balance:      0,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// HasProcessorCustomer reports whether a processor-side customer is linked.
func (a *Account) HasProcessorCustomer() bool {
	return a.ProcessorCustomerID != nil && *a.ProcessorCustomerID != ""
}
