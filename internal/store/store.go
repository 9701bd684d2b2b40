// Package store opens the accounting backends named by the configuration.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"nudio/internal/adapter/redisquota"
	"nudio/internal/adapter/repo"
	"nudio/internal/adapter/sqlite"
	"nudio/internal/domain"
	"nudio/internal/infra"
)

// Backend bundles the repositories used by the services.
type Backend struct {
	Profiles domain.ProfileRepository
	Journal  domain.CreditTransactionRepository
	Guests   domain.GuestCounter
	// Kind is "postgres" or "sqlite"; GuestKind adds "redis" when configured.
	Kind      string
	GuestKind string

	pings   []func(context.Context) error
	closers []func() error
}

// Ping checks every opened connection.
func (b *Backend) Ping(ctx context.Context) error {
	for _, ping := range b.pings {
		if err := ping(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Close releases every opened connection.
func (b *Backend) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Open connects to the database in cfg.DatabaseURL and applies the schema.
// Guest counters live in Redis when cfg.RedisURL is set, otherwise in the
// same database.
func Open(ctx context.Context, cfg *infra.Config, logger zerolog.Logger) (*Backend, error) {
	b := &Backend{}
	if err := b.openDatabase(ctx, cfg, logger); err != nil {
		_ = b.Close()
		return nil, err
	}
	if strings.TrimSpace(cfg.RedisURL) != "" {
		client, err := infra.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			_ = b.Close()
			return nil, err
		}
		b.Guests = redisquota.New(client)
		b.GuestKind = "redis"
		b.pings = append(b.pings, func(ctx context.Context) error { return client.Ping(ctx).Err() })
		b.closers = append(b.closers, client.Close)
	}
	logger.Info().Str("store", b.Kind).Str("guest_store", b.GuestKind).Msg("accounting store ready")
	return b, nil
}

func (b *Backend) openDatabase(ctx context.Context, cfg *infra.Config, logger zerolog.Logger) error {
	if infra.IsSQLiteURL(cfg.DatabaseURL) {
		db, err := infra.NewSQLiteDB(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		b.closers = append(b.closers, db.Close)
		s := sqlite.New(db)
		if err := s.Migrate(ctx); err != nil {
			return err
		}
		b.Profiles, b.Journal, b.Guests = s, s, s
		b.Kind, b.GuestKind = "sqlite", "sqlite"
		b.pings = append(b.pings, s.Ping)
		return nil
	}

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		return err
	}
	b.closers = append(b.closers, func() error { pool.Close(); return nil })
	runner := infra.NewSQLRunner(pool, logger)
	if err := repo.EnsureSchema(ctx, runner); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	b.Profiles = repo.NewProfileRepository(runner)
	b.Journal = repo.NewCreditTransactionRepository(runner)
	b.Guests = repo.NewGuestCounter(runner)
	b.Kind, b.GuestKind = "postgres", "postgres"
	b.pings = append(b.pings, pool.Ping)
	return nil
}
