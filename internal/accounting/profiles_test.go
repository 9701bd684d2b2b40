package accounting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nudio/internal/domain"
)

var fixedNow = time.Date(2026, 10, 15, 13, 45, 0, 0, time.UTC)

func newTestProfiles(repo *fakeRepo, policy Policy) *Profiles {
	s := NewProfiles(repo, policy, zerolog.Nop())
	s.now = func() time.Time { return fixedNow }
	return s
}

func TestEnsureCreatesFreeProfile(t *testing.T) {
	repo := newFakeRepo(fixedNow)
	s := newTestProfiles(repo, NewPolicy(3, 50, nil, nil))

	p, err := s.Ensure(context.Background(), "  New.User@Example.com ")
	require.NoError(t, err)

	assert.Equal(t, "new.user@example.com", p.Email)
	assert.Equal(t, domain.RoleFree, p.Role)
	assert.Equal(t, 0, p.CreditsBalance)
	assert.Equal(t, 0, p.FreeCreditsUsed)
	require.NotNil(t, p.FreePeriodStart)
	assert.Equal(t, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), *p.FreePeriodStart)
	assert.Equal(t, 1, repo.reads)
	assert.Equal(t, 1, repo.writes)
}

func TestEnsureRejectsEmptyEmail(t *testing.T) {
	repo := newFakeRepo(fixedNow)
	s := newTestProfiles(repo, NewPolicy(3, 50, nil, nil))

	_, err := s.Ensure(context.Background(), "   ")
	assert.ErrorIs(t, err, domain.ErrInvalidIdentity)
	assert.Zero(t, repo.reads, "no storage access for an invalid identity")
}

func TestEnsureIsIdempotent(t *testing.T) {
	repo := newFakeRepo(fixedNow)
	s := newTestProfiles(repo, NewPolicy(3, 50, nil, nil))
	ctx := context.Background()

	first, err := s.Ensure(ctx, "same@example.com")
	require.NoError(t, err)
	second, err := s.Ensure(ctx, "SAME@example.com")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, repo.writes, "second call must not write")
}

func TestEnsureAllowListOnInsert(t *testing.T) {
	policy := NewPolicy(3, 50, []string{"Boss@Example.com", "both@example.com"}, []string{"shop@example.com", "both@example.com"})
	cases := []struct {
		email   string
		role    domain.ProfileRole
		balance int
	}{
		{email: "boss@example.com", role: domain.RoleOwner, balance: 0},
		{email: "shop@example.com", role: domain.RoleReseller, balance: 50},
		{email: "both@example.com", role: domain.RoleOwner, balance: 0},
		{email: "nobody@example.com", role: domain.RoleFree, balance: 0},
	}
	for _, tc := range cases {
		t.Run(tc.email, func(t *testing.T) {
			s := newTestProfiles(newFakeRepo(fixedNow), policy)
			p, err := s.Ensure(context.Background(), tc.email)
			require.NoError(t, err)
			assert.Equal(t, tc.role, p.Role)
			assert.Equal(t, tc.balance, p.CreditsBalance)
		})
	}
}

func TestEnsureMonthlyRollover(t *testing.T) {
	repo := newFakeRepo(fixedNow)
	repo.put(domain.Profile{
		ID:              "p1",
		Email:           "user@example.com",
		Role:            domain.RoleFree,
		FreeCreditsUsed: 3,
		FreePeriodStart: datePtr(2026, 9, 1),
	})
	s := newTestProfiles(repo, NewPolicy(3, 50, nil, nil))

	p, err := s.Ensure(context.Background(), "user@example.com")
	require.NoError(t, err)

	assert.Equal(t, 0, p.FreeCreditsUsed)
	require.NotNil(t, p.FreePeriodStart)
	assert.Equal(t, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), *p.FreePeriodStart)
	assert.Equal(t, 1, repo.writes)
}

func TestEnsureRolloverWhenPeriodMissing(t *testing.T) {
	repo := newFakeRepo(fixedNow)
	repo.put(domain.Profile{ID: "p1", Email: "user@example.com", Role: domain.RoleFree, FreeCreditsUsed: 2})
	s := newTestProfiles(repo, NewPolicy(3, 50, nil, nil))

	p, err := s.Ensure(context.Background(), "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, 0, p.FreeCreditsUsed)
	require.NotNil(t, p.FreePeriodStart)
}

func TestEnsureResellerPromotion(t *testing.T) {
	cases := []struct {
		name    string
		balance int
		want    int
	}{
		{name: "raises low balance to starter grant", balance: 5, want: 50},
		{name: "keeps higher balance", balance: 80, want: 80},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := newFakeRepo(fixedNow)
			repo.put(domain.Profile{
				ID:              "p1",
				Email:           "shop@example.com",
				Role:            domain.RoleFree,
				CreditsBalance:  tc.balance,
				FreePeriodStart: datePtr(2026, 10, 1),
			})
			s := newTestProfiles(repo, NewPolicy(3, 50, nil, []string{"shop@example.com"}))

			p, err := s.Ensure(context.Background(), "shop@example.com")
			require.NoError(t, err)
			assert.Equal(t, domain.RoleReseller, p.Role)
			assert.Equal(t, tc.want, p.CreditsBalance)
		})
	}
}

func TestEnsureOwnerPromotionAndNoDemotion(t *testing.T) {
	repo := newFakeRepo(fixedNow)
	repo.put(domain.Profile{ID: "p1", Email: "boss@example.com", Role: domain.RoleFree, FreePeriodStart: datePtr(2026, 10, 1)})
	ctx := context.Background()

	promoted, err := newTestProfiles(repo, NewPolicy(3, 50, []string{"boss@example.com"}, nil)).Ensure(ctx, "boss@example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleOwner, promoted.Role)

	// allow-list no longer contains the email
	kept, err := newTestProfiles(repo, NewPolicy(3, 50, nil, nil)).Ensure(ctx, "boss@example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleOwner, kept.Role)

	// a reseller listing does not pull an owner down either
	still, err := newTestProfiles(repo, NewPolicy(3, 50, nil, []string{"boss@example.com"})).Ensure(ctx, "boss@example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleOwner, still.Role)
	assert.Equal(t, 0, still.CreditsBalance)
}

func TestEnsureResellerBecomesOwner(t *testing.T) {
	repo := newFakeRepo(fixedNow)
	repo.put(domain.Profile{ID: "p1", Email: "shop@example.com", Role: domain.RoleReseller, CreditsBalance: 12, FreePeriodStart: datePtr(2026, 10, 1)})
	s := newTestProfiles(repo, NewPolicy(3, 50, []string{"shop@example.com"}, []string{"shop@example.com"}))

	p, err := s.Ensure(context.Background(), "shop@example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleOwner, p.Role)
	assert.Equal(t, 12, p.CreditsBalance, "balance is untouched by owner promotion")
}

func TestEnsureLosingInsertRaceStillPromotes(t *testing.T) {
	repo := newFakeRepo(fixedNow)
	repo.raced = &domain.Profile{
		ID:              "winner",
		Email:           "shop@example.com",
		Role:            domain.RoleFree,
		FreePeriodStart: datePtr(2026, 10, 1),
	}
	s := newTestProfiles(repo, NewPolicy(3, 50, nil, []string{"shop@example.com"}))

	p, err := s.Ensure(context.Background(), "shop@example.com")
	require.NoError(t, err)
	assert.Equal(t, "winner", p.ID)
	assert.Equal(t, domain.RoleReseller, p.Role)
	assert.Equal(t, 50, p.CreditsBalance)
	assert.Equal(t, 2, repo.writes, "insert then promotion update")
}

func TestEnsureLosingInsertRaceWithFreshRowWritesOnce(t *testing.T) {
	repo := newFakeRepo(fixedNow)
	repo.raced = &domain.Profile{
		ID:              "winner",
		Email:           "user@example.com",
		Role:            domain.RoleFree,
		FreePeriodStart: datePtr(2026, 10, 1),
	}
	s := newTestProfiles(repo, NewPolicy(3, 50, nil, nil))

	p, err := s.Ensure(context.Background(), "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, "winner", p.ID)
	assert.Equal(t, 1, repo.writes)
}

func TestEnsureStorageErrors(t *testing.T) {
	t.Run("read", func(t *testing.T) {
		repo := newFakeRepo(fixedNow)
		repo.failRead = errBoom
		_, err := newTestProfiles(repo, NewPolicy(3, 50, nil, nil)).Ensure(context.Background(), "a@b.c")
		assert.ErrorIs(t, err, domain.ErrStorage)
		assert.ErrorIs(t, err, errBoom)
	})
	t.Run("write", func(t *testing.T) {
		repo := newFakeRepo(fixedNow)
		repo.failWrite = errBoom
		_, err := newTestProfiles(repo, NewPolicy(3, 50, nil, nil)).Ensure(context.Background(), "a@b.c")
		var se *domain.StorageError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, "create profile", se.Op)
	})
}

func TestSetRoleCanDemote(t *testing.T) {
	repo := newFakeRepo(fixedNow)
	repo.put(domain.Profile{ID: "p1", Email: "boss@example.com", Role: domain.RoleOwner, FreePeriodStart: datePtr(2026, 10, 1)})
	s := newTestProfiles(repo, NewPolicy(3, 50, nil, nil))

	p, err := s.SetRole(context.Background(), "boss@example.com", domain.RoleFree)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleFree, p.Role)

	_, err = s.SetRole(context.Background(), "boss@example.com", domain.ProfileRole("admin"))
	assert.ErrorIs(t, err, domain.ErrInvalidRole)
}
