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

// GuestCounterPG keeps guest fingerprint counters in the guest_usage table.
type GuestCounterPG struct {
	sql infra.SQLExecutor
}

func NewGuestCounter(sql infra.SQLExecutor) *GuestCounterPG {
	return &GuestCounterPG{sql: sql}
}

// ConsumeGuestCredit runs a single conditional upsert, so concurrent guests
// sharing a fingerprint can never push the counter past limit.
func (g *GuestCounterPG) ConsumeGuestCredit(ctx context.Context, fingerprint string, periodStart time.Time, limit int) (domain.GuestConsumption, error) {
	var used int
	err := g.sql.QueryRow(ctx, sqlinline.QConsumeGuestCredit, fingerprint, periodStart, limit).Scan(&used)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.GuestConsumption{Allowed: false, Used: limit, Remaining: 0}, nil
	}
	if err != nil {
		return domain.GuestConsumption{}, err
	}
	return domain.GuestConsumption{Allowed: true, Used: used, Remaining: max(limit-used, 0)}, nil
}

var _ domain.GuestCounter = (*GuestCounterPG)(nil)
