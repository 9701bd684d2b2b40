package accounting

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nudio/internal/adapter/sqlite"
	"nudio/internal/infra"
)

func newSQLiteStore(t *testing.T) *sqlite.Store {
	t.Helper()
	db, err := infra.NewSQLiteDB("sqlite://:memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	s := sqlite.New(db)
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

// Both requests pass admission on the same snapshot, then both debit.
func TestConsumeSameSnapshotKeepsFreeUsageWithinLimit(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)
	policy := NewPolicy(3, 50, nil, nil)
	profiles := NewProfiles(store, policy, zerolog.Nop())
	ledger := NewLedger(store, store, policy, zerolog.Nop())

	snapshot, err := profiles.Ensure(ctx, "racer@example.com")
	require.NoError(t, err)
	opts := Options{CreditCost: 3}

	require.True(t, ledger.CanConsume(*snapshot, opts).Allowed)
	require.True(t, ledger.CanConsume(*snapshot, opts).Allowed)

	_, _, err = ledger.Consume(ctx, snapshot, opts)
	require.NoError(t, err)
	updated, summary, err := ledger.Consume(ctx, snapshot, opts)
	require.NoError(t, err)

	assert.Equal(t, 3, updated.FreeCreditsUsed)
	assert.Equal(t, 0, updated.CreditsBalance)
	assert.Equal(t, 0, summary.FreeCreditsRemaining.Count)
}
