package domain

import "time"

// TransactionType classifies credit journal entries.
type TransactionType string

const (
	TransactionPurchase   TransactionType = "purchase"
	TransactionAdminGrant TransactionType = "admin_grant"
	TransactionConsume    TransactionType = "consume"
)

// CreditTransaction is an append-only journal entry for balance movements.
type CreditTransaction struct {
	ID         string          `db:"id"`
	ProfileID  string          `db:"profile_id"`
	Type       TransactionType `db:"transaction_type"`
	PaidAmount int             `db:"paid_amount"`
	FreeAmount int             `db:"free_amount"`
	Source     string          `db:"source"`
	Reference  string          `db:"reference"`
	CreatedAt  time.Time       `db:"created_at"`
}

// GuestConsumption is the result of an atomic guest counter increment.
type GuestConsumption struct {
	Allowed   bool
	Used      int
	Remaining int
}
