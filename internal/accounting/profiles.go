package accounting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"nudio/internal/domain"
)

// Profiles owns profile creation and mutation outside of credit debits.
// Nothing else creates profile rows.
type Profiles struct {
	repo   domain.ProfileRepository
	policy Policy
	logger zerolog.Logger
	now    func() time.Time
}

// NewProfiles wires the profile service.
func NewProfiles(repo domain.ProfileRepository, policy Policy, logger zerolog.Logger) *Profiles {
	return &Profiles{repo: repo, policy: policy, logger: logger, now: time.Now}
}

// Ensure returns the profile for email, creating it on first sight, rolling
// the free-tier window into the current month, and applying allow-list
// promotions. Elevated roles are never reverted here.
func (s *Profiles) Ensure(ctx context.Context, email string) (*domain.Profile, error) {
	normalized := domain.NormalizeEmail(email)
	if normalized == "" {
		return nil, domain.ErrInvalidIdentity
	}

	target, hasTarget := s.policy.TargetRole(normalized)
	monthStart := MonthStart(s.now())

	existing, err := s.repo.GetByEmail(ctx, normalized)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NewStorageError("load profile", err)
	}

	if existing == nil {
		role := domain.RoleFree
		if hasTarget {
			role = target
		}
		balance := 0
		if role == domain.RoleReseller {
			balance = s.policy.ResellerStarterCredits
		}
		inserted, err := s.repo.Insert(ctx, &domain.Profile{
			Email:           normalized,
			Role:            role,
			CreditsBalance:  balance,
			FreeCreditsUsed: 0,
			FreePeriodStart: &monthStart,
		})
		if err != nil {
			return nil, domain.NewStorageError("create profile", err)
		}
		// a row we created needs no changes; a row another request created
		// first may still be stale or unpromoted
		existing = inserted
		if s.stageChanges(*existing, target, hasTarget, monthStart).Empty() {
			s.logger.Info().Str("profile_id", inserted.ID).Str("role", string(inserted.Role)).Msg("profile created")
			return inserted, nil
		}
	}

	changes := s.stageChanges(*existing, target, hasTarget, monthStart)
	if changes.Empty() {
		return existing, nil
	}

	updated, err := s.repo.Update(ctx, normalized, changes)
	if err != nil {
		return nil, domain.NewStorageError("update profile", err)
	}
	if changes.Role != nil {
		s.logger.Info().Str("profile_id", updated.ID).Str("from", string(existing.Role)).Str("to", string(updated.Role)).Msg("profile promoted")
	}
	return updated, nil
}

func (s *Profiles) stageChanges(p domain.Profile, target domain.ProfileRole, hasTarget bool, monthStart time.Time) domain.ProfileChanges {
	var changes domain.ProfileChanges

	if !sameDay(p.FreePeriodStart, monthStart) {
		zero := 0
		start := monthStart
		changes.FreeCreditsUsed = &zero
		changes.FreePeriodStart = &start
	}

	if !hasTarget {
		return changes
	}

	switch {
	case target == domain.RoleOwner && p.Role != domain.RoleOwner:
		role := domain.RoleOwner
		changes.Role = &role
	case target == domain.RoleReseller && p.Role == domain.RoleFree:
		role := domain.RoleReseller
		changes.Role = &role
		if p.CreditsBalance < s.policy.ResellerStarterCredits {
			grant := s.policy.ResellerStarterCredits
			changes.CreditsBalance = &grant
		}
	}
	return changes
}

// SetRole is the administrative role change. Unlike Ensure it may demote.
func (s *Profiles) SetRole(ctx context.Context, email string, role domain.ProfileRole) (*domain.Profile, error) {
	normalized := domain.NormalizeEmail(email)
	if normalized == "" {
		return nil, domain.ErrInvalidIdentity
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidRole, role)
	}
	if _, err := s.Ensure(ctx, normalized); err != nil {
		return nil, err
	}
	updated, err := s.repo.Update(ctx, normalized, domain.ProfileChanges{Role: &role})
	if err != nil {
		return nil, domain.NewStorageError("set role", err)
	}
	s.logger.Warn().Str("profile_id", updated.ID).Str("role", string(role)).Msg("profile role set by administrator")
	return updated, nil
}

// Lookup returns an existing profile by id without creating or mutating it.
func (s *Profiles) Lookup(ctx context.Context, id string) (*domain.Profile, error) {
	p, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, domain.NewStorageError("load profile", err)
	}
	return p, nil
}
