package accounting

import "nudio/internal/domain"

// Summary projects a profile into the usage view returned to clients.
func (p Policy) Summary(profile domain.Profile) domain.UsageSummary {
	unlimited := profile.IsOwner()
	remaining := domain.Limited(p.FreeRemaining(profile))
	if unlimited {
		remaining = domain.Unlimited()
	}

	var periodStart *string
	if profile.FreePeriodStart != nil {
		v := profile.FreePeriodStart.UTC().Format("2006-01-02")
		periodStart = &v
	}

	return domain.UsageSummary{
		Role:                 profile.Role,
		CreditsBalance:       profile.CreditsBalance,
		FreeCreditsUsed:      profile.FreeCreditsUsed,
		FreeCreditsLimit:     p.FreeCreditsPerMonth,
		FreeCreditsRemaining: remaining,
		FreePeriodStart:      periodStart,
		Unlimited:            unlimited,
	}
}
