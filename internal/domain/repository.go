package domain

import (
	"context"
	"time"
)

// ProfileRepository persists accounting profiles keyed by normalized email.
type ProfileRepository interface {
	// GetByEmail returns ErrNotFound when no profile exists.
	GetByEmail(ctx context.Context, email string) (*Profile, error)
	GetByID(ctx context.Context, id string) (*Profile, error)
	// Insert creates the profile; on a concurrent insert of the same email it
	// returns the row that won.
	Insert(ctx context.Context, p *Profile) (*Profile, error)
	// Update applies the staged changes in one statement and refreshes updated_at.
	Update(ctx context.Context, email string, changes ProfileChanges) (*Profile, error)
	// ApplyDebit subtracts paid and adds free usage in one atomic statement.
	// The balance stops at zero and free usage at freeLimit; usage already
	// above freeLimit is left as is.
	ApplyDebit(ctx context.Context, email string, paid, free, freeLimit int) (*Profile, error)
	// AddCredits increments the paid balance in one atomic statement.
	AddCredits(ctx context.Context, id string, amount int) (*Profile, error)
}

// CreditTransactionRepository appends credit journal entries.
type CreditTransactionRepository interface {
	Append(ctx context.Context, tx *CreditTransaction) error
	ListByProfile(ctx context.Context, profileID string, limit int) ([]CreditTransaction, error)
}

// GuestCounter atomically consumes one guest use for a fingerprint within a period.
type GuestCounter interface {
	ConsumeGuestCredit(ctx context.Context, fingerprint string, periodStart time.Time, limit int) (GuestConsumption, error)
}
