// Package accounting implements the usage and credit rules: profile
// lifecycle and role resolution, admission and debit of credits, and the
// usage summary shown to callers.
package accounting

import (
	"time"

	"nudio/internal/domain"
	"nudio/internal/infra"
)

// Policy is the immutable accounting configuration shared by Profiles and Ledger.
type Policy struct {
	FreeCreditsPerMonth    int
	ResellerStarterCredits int
	owners                 map[string]struct{}
	resellers              map[string]struct{}
}

// NewPolicy builds a Policy. Allow-list entries are normalized the same way
// profile emails are.
func NewPolicy(freePerMonth, resellerStarter int, ownerEmails, resellerEmails []string) Policy {
	return Policy{
		FreeCreditsPerMonth:    freePerMonth,
		ResellerStarterCredits: resellerStarter,
		owners:                 emailSet(ownerEmails),
		resellers:              emailSet(resellerEmails),
	}
}

// PolicyFromConfig builds a Policy from the loaded service configuration.
func PolicyFromConfig(cfg infra.AccountingConfig) Policy {
	return NewPolicy(cfg.FreeCreditsPerMonth, cfg.ResellerStarterCredits, cfg.OwnerEmails, cfg.ResellerEmails)
}

// TargetRole returns the role an allow-list grants to email, if any. Owner
// membership wins over reseller membership.
func (p Policy) TargetRole(email string) (domain.ProfileRole, bool) {
	if _, ok := p.owners[email]; ok {
		return domain.RoleOwner, true
	}
	if _, ok := p.resellers[email]; ok {
		return domain.RoleReseller, true
	}
	return "", false
}

// FreeRemaining returns the unused free allotment for the current period.
func (p Policy) FreeRemaining(profile domain.Profile) int {
	return max(p.FreeCreditsPerMonth-profile.FreeCreditsUsed, 0)
}

// MonthStart truncates t to the first day of its UTC month.
func MonthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func sameDay(a *time.Time, b time.Time) bool {
	if a == nil {
		return false
	}
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

func emailSet(emails []string) map[string]struct{} {
	set := make(map[string]struct{}, len(emails))
	for _, e := range emails {
		if n := domain.NormalizeEmail(e); n != "" {
			set[n] = struct{}{}
		}
	}
	return set
}
