// Package sqlite is an embedded accounting store for local development and
// tests. It mirrors the Postgres statements in internal/sqlinline.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"nudio/internal/domain"
)

const dateLayout = "2006-01-02"

const schema = `
CREATE TABLE IF NOT EXISTS profiles (
	id                TEXT PRIMARY KEY,
	email             TEXT NOT NULL UNIQUE,
	role              TEXT NOT NULL DEFAULT 'free' CHECK (role IN ('free', 'owner', 'reseller')),
	credits_balance   INTEGER NOT NULL DEFAULT 0 CHECK (credits_balance >= 0),
	free_credits_used INTEGER NOT NULL DEFAULT 0 CHECK (free_credits_used >= 0),
	free_period_start DATE,
	created_at        DATETIME NOT NULL,
	updated_at        DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS guest_usage (
	fingerprint  TEXT NOT NULL,
	period_start TEXT NOT NULL,
	used         INTEGER NOT NULL DEFAULT 0,
	created_at   DATETIME NOT NULL,
	updated_at   DATETIME NOT NULL,
	PRIMARY KEY (fingerprint, period_start)
);

CREATE TABLE IF NOT EXISTS credit_transactions (
	id               TEXT PRIMARY KEY,
	profile_id       TEXT NOT NULL REFERENCES profiles(id),
	transaction_type TEXT NOT NULL,
	paid_amount      INTEGER NOT NULL DEFAULT 0,
	free_amount      INTEGER NOT NULL DEFAULT 0,
	source           TEXT NOT NULL DEFAULT '',
	reference        TEXT NOT NULL DEFAULT '',
	created_at       DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS credit_transactions_profile_idx ON credit_transactions (profile_id, created_at);
`

const profileColumns = `id, email, role, credits_balance, free_credits_used, free_period_start, created_at, updated_at`

// Store implements the profile, journal and guest counter repositories on SQLite.
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

// New wraps an open database. Call Migrate before first use.
func New(db *sqlx.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
	return nil
}

func (s *Store) GetByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	return s.getProfile(ctx, `SELECT `+profileColumns+` FROM profiles WHERE email = ?`, email)
}

func (s *Store) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	return s.getProfile(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = ?`, id)
}

func (s *Store) Insert(ctx context.Context, p *domain.Profile) (*domain.Profile, error) {
	now := s.now().UTC()
	return s.getProfile(ctx, `
		INSERT INTO profiles (id, email, role, credits_balance, free_credits_used, free_period_start, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (email) DO UPDATE SET email = excluded.email
		RETURNING `+profileColumns,
		uuid.NewString(), p.Email, string(p.Role), p.CreditsBalance, p.FreeCreditsUsed, formatDate(p.FreePeriodStart), now, now,
	)
}

func (s *Store) Update(ctx context.Context, email string, changes domain.ProfileChanges) (*domain.Profile, error) {
	var role *string
	if changes.Role != nil {
		v := string(*changes.Role)
		role = &v
	}
	return s.getProfile(ctx, `
		UPDATE profiles
		SET role              = COALESCE(?, role),
		    credits_balance   = COALESCE(?, credits_balance),
		    free_credits_used = COALESCE(?, free_credits_used),
		    free_period_start = COALESCE(?, free_period_start),
		    updated_at        = ?
		WHERE email = ?
		RETURNING `+profileColumns,
		role, changes.CreditsBalance, changes.FreeCreditsUsed, formatDate(changes.FreePeriodStart), s.now().UTC(), email,
	)
}

func (s *Store) ApplyDebit(ctx context.Context, email string, paid, free, freeLimit int) (*domain.Profile, error) {
	return s.getProfile(ctx, `
		UPDATE profiles
		SET credits_balance   = MAX(credits_balance - ?, 0),
		    free_credits_used = MAX(free_credits_used, MIN(free_credits_used + ?, ?)),
		    updated_at        = ?
		WHERE email = ?
		RETURNING `+profileColumns,
		paid, free, freeLimit, s.now().UTC(), email,
	)
}

func (s *Store) AddCredits(ctx context.Context, id string, amount int) (*domain.Profile, error) {
	return s.getProfile(ctx, `
		UPDATE profiles
		SET credits_balance = credits_balance + ?,
		    updated_at      = ?
		WHERE id = ?
		RETURNING `+profileColumns,
		amount, s.now().UTC(), id,
	)
}

func (s *Store) Append(ctx context.Context, tx *domain.CreditTransaction) error {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	tx.CreatedAt = s.now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO credit_transactions (id, profile_id, transaction_type, paid_amount, free_amount, source, reference, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.ProfileID, string(tx.Type), tx.PaidAmount, tx.FreeAmount, tx.Source, tx.Reference, tx.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: append transaction: %w", err)
	}
	return nil
}

func (s *Store) ListByProfile(ctx context.Context, profileID string, limit int) ([]domain.CreditTransaction, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []domain.CreditTransaction
	err := s.db.SelectContext(ctx, &out, `
		SELECT id, profile_id, transaction_type, paid_amount, free_amount, source, reference, created_at
		FROM credit_transactions
		WHERE profile_id = ?
		ORDER BY rowid DESC
		LIMIT ?`, profileID, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list transactions: %w", err)
	}
	return out, nil
}

// ConsumeGuestCredit is one conditional upsert; SQLite serializes writers, so
// the counter cannot overshoot limit.
func (s *Store) ConsumeGuestCredit(ctx context.Context, fingerprint string, periodStart time.Time, limit int) (domain.GuestConsumption, error) {
	now := s.now().UTC()
	var used int
	err := s.db.QueryRowxContext(ctx, `
		INSERT INTO guest_usage (fingerprint, period_start, used, created_at, updated_at)
		SELECT ?, ?, 1, ?, ? WHERE ? > 0
		ON CONFLICT (fingerprint, period_start) DO UPDATE
		SET used = guest_usage.used + 1, updated_at = excluded.updated_at
		WHERE guest_usage.used < ?
		RETURNING used`,
		fingerprint, periodStart.UTC().Format(dateLayout), now, now, limit, limit,
	).Scan(&used)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.GuestConsumption{Allowed: false, Used: limit, Remaining: 0}, nil
	}
	if err != nil {
		return domain.GuestConsumption{}, fmt.Errorf("sqlite: consume guest credit: %w", err)
	}
	return domain.GuestConsumption{Allowed: true, Used: used, Remaining: max(limit-used, 0)}, nil
}

// profileRow scans timestamps as text: RETURNING columns carry no declared
// type, so the driver cannot be relied on to produce time.Time for them.
type profileRow struct {
	ID              string         `db:"id"`
	Email           string         `db:"email"`
	Role            string         `db:"role"`
	CreditsBalance  int            `db:"credits_balance"`
	FreeCreditsUsed int            `db:"free_credits_used"`
	FreePeriodStart sql.NullString `db:"free_period_start"`
	CreatedAt       string         `db:"created_at"`
	UpdatedAt       string         `db:"updated_at"`
}

var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	dateLayout,
}

func parseTime(v string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("sqlite: unrecognized time %q", v)
}

func (s *Store) getProfile(ctx context.Context, query string, args ...any) (*domain.Profile, error) {
	var row profileRow
	if err := s.db.QueryRowxContext(ctx, query, args...).StructScan(&row); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	p := domain.Profile{
		ID:              row.ID,
		Email:           row.Email,
		Role:            domain.ProfileRole(row.Role),
		CreditsBalance:  row.CreditsBalance,
		FreeCreditsUsed: row.FreeCreditsUsed,
	}
	var err error
	if p.CreatedAt, err = parseTime(row.CreatedAt); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = parseTime(row.UpdatedAt); err != nil {
		return nil, err
	}
	if row.FreePeriodStart.Valid && row.FreePeriodStart.String != "" {
		start, err := parseTime(row.FreePeriodStart.String)
		if err != nil {
			return nil, err
		}
		p.FreePeriodStart = &start
	}
	return &p, nil
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	v := t.UTC().Format(dateLayout)
	return &v
}

var (
	_ domain.ProfileRepository           = (*Store)(nil)
	_ domain.CreditTransactionRepository = (*Store)(nil)
	_ domain.GuestCounter                = (*Store)(nil)
)
