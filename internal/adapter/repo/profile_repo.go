package repo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"nudio/internal/domain"
	"nudio/internal/infra"
	"nudio/internal/sqlinline"
)

// ProfileRepositoryPG implements domain.ProfileRepository backed by PostgreSQL.
type ProfileRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewProfileRepository creates a new ProfileRepositoryPG.
func NewProfileRepository(sql infra.SQLExecutor) *ProfileRepositoryPG {
	return &ProfileRepositoryPG{sql: sql}
}

func (r *ProfileRepositoryPG) GetByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	return scanProfile(r.sql.QueryRow(ctx, sqlinline.QSelectProfileByEmail, email))
}

func (r *ProfileRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	return scanProfile(r.sql.QueryRow(ctx, sqlinline.QSelectProfileByID, id))
}

func (r *ProfileRepositoryPG) Insert(ctx context.Context, p *domain.Profile) (*domain.Profile, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QInsertProfile,
		p.Email,
		string(p.Role),
		p.CreditsBalance,
		p.FreeCreditsUsed,
		p.FreePeriodStart,
	)
	return scanProfile(row)
}

func (r *ProfileRepositoryPG) Update(ctx context.Context, email string, changes domain.ProfileChanges) (*domain.Profile, error) {
	var role *string
	if changes.Role != nil {
		v := string(*changes.Role)
		role = &v
	}
	row := r.sql.QueryRow(ctx, sqlinline.QUpdateProfile,
		email,
		role,
		changes.CreditsBalance,
		changes.FreeCreditsUsed,
		changes.FreePeriodStart,
	)
	return scanProfile(row)
}

func (r *ProfileRepositoryPG) ApplyDebit(ctx context.Context, email string, paid, free, freeLimit int) (*domain.Profile, error) {
	return scanProfile(r.sql.QueryRow(ctx, sqlinline.QApplyDebit, email, paid, free, freeLimit))
}

func (r *ProfileRepositoryPG) AddCredits(ctx context.Context, id string, amount int) (*domain.Profile, error) {
	return scanProfile(r.sql.QueryRow(ctx, sqlinline.QAddCredits, id, amount))
}

func scanProfile(row pgx.Row) (*domain.Profile, error) {
	var (
		p           domain.Profile
		role        string
		periodStart *time.Time
	)
	if err := row.Scan(&p.ID, &p.Email, &role, &p.CreditsBalance, &p.FreeCreditsUsed, &periodStart, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	p.Role = domain.ProfileRole(role)
	if periodStart != nil {
		v := periodStart.UTC()
		p.FreePeriodStart = &v
	}
	return &p, nil
}

var _ domain.ProfileRepository = (*ProfileRepositoryPG)(nil)
