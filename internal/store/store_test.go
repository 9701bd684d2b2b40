package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"nudio/internal/domain"
	"nudio/internal/infra"
)

func TestOpenSQLite(t *testing.T) {
	ctx := context.Background()
	b, err := Open(ctx, &infra.Config{DatabaseURL: "sqlite://:memory:"}, zerolog.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer b.Close()

	if b.Kind != "sqlite" || b.GuestKind != "sqlite" {
		t.Fatalf("kind = %s/%s", b.Kind, b.GuestKind)
	}
	if err := b.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if _, err := b.Profiles.GetByEmail(ctx, "nobody@example.com"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("GetByEmail err = %v, want ErrNotFound", err)
	}
	res, err := b.Guests.ConsumeGuestCredit(ctx, "fp", time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), 1)
	if err != nil || !res.Allowed {
		t.Fatalf("ConsumeGuestCredit = %+v, %v", res, err)
	}
}

func TestOpenRejectsBadRedisURL(t *testing.T) {
	_, err := Open(context.Background(), &infra.Config{DatabaseURL: "sqlite://:memory:", RedisURL: "not-a-url://"}, zerolog.Nop())
	if err == nil {
		t.Fatalf("expected error for invalid REDIS_URL")
	}
}
