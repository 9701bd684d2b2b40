package accounting

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"nudio/internal/domain"
)

// maxCreditCost bounds the cost a single request can ask for.
const maxCreditCost = math.MaxInt32

// Options tunes a single admission or debit.
type Options struct {
	// CreditCost is the requested cost. Values below 1 and non-finite values
	// are treated as 1; fractions are floored.
	CreditCost float64
	// RequirePaidCredits forbids drawing on the free allotment.
	RequirePaidCredits bool
}

// Cost returns the normalized integer cost.
func (o Options) Cost() int {
	return NormalizeCost(o.CreditCost)
}

// NormalizeCost coerces a requested cost to an integer >= 1.
func NormalizeCost(requested float64) int {
	if math.IsNaN(requested) || math.IsInf(requested, 0) {
		return 1
	}
	floored := math.Floor(requested)
	if floored < 1 {
		return 1
	}
	if floored > maxCreditCost {
		return maxCreditCost
	}
	return int(floored)
}

// DenialReason distinguishes why an admission check failed.
type DenialReason string

const (
	ReasonNone                DenialReason = ""
	ReasonPaidCreditsRequired DenialReason = "paid_credits_required"
	ReasonFreeTierExhausted   DenialReason = "free_tier_exhausted"
	ReasonInsufficientCredits DenialReason = "insufficient_credits"
)

// Decision is the outcome of an admission check. A denial is a value, not an error.
type Decision struct {
	Allowed bool
	Message string
	Reason  DenialReason
}

func allow() Decision { return Decision{Allowed: true} }

func deny(reason DenialReason, msg string) Decision {
	return Decision{Allowed: false, Reason: reason, Message: msg}
}

// Ledger decides whether work may proceed and debits credits afterwards.
//
// CanConsume and Consume are separate calls so callers only pay for work that
// succeeded. Nothing is reserved in between: two concurrent requests from the
// same profile can both be admitted and then both debit. The debit clamps the
// paid balance at zero and free usage at the monthly limit, so the cost of
// that race is bounded to giving away work on either side, never a negative
// balance or an over-limit free counter.
type Ledger struct {
	repo    domain.ProfileRepository
	journal domain.CreditTransactionRepository
	policy  Policy
	logger  zerolog.Logger
}

// NewLedger wires the ledger. journal may be nil.
func NewLedger(repo domain.ProfileRepository, journal domain.CreditTransactionRepository, policy Policy, logger zerolog.Logger) *Ledger {
	return &Ledger{repo: repo, journal: journal, policy: policy, logger: logger}
}

// Policy returns the policy the ledger was built with.
func (l *Ledger) Policy() Policy {
	return l.policy
}

// CanConsume is the admission check run before expensive work.
func (l *Ledger) CanConsume(profile domain.Profile, opts Options) Decision {
	cost := opts.Cost()
	if profile.IsOwner() {
		return allow()
	}

	paid := profile.CreditsBalance
	free := l.policy.FreeRemaining(profile)

	if opts.RequirePaidCredits {
		if paid >= cost {
			return allow()
		}
		return deny(ReasonPaidCreditsRequired, fmt.Sprintf("Labs requires %d paid nudios.", cost))
	}

	if paid >= cost || free >= cost {
		return allow()
	}
	if free <= 0 {
		return deny(ReasonFreeTierExhausted,
			fmt.Sprintf("Free tier limit reached (%d nudio shoots this month).", l.policy.FreeCreditsPerMonth))
	}
	// paid and free together may cover the request even though neither does alone
	if paid+free < cost {
		return deny(ReasonInsufficientCredits, "Not enough credits remaining for this request.")
	}
	return allow()
}

// Split returns how much of the cost Consume would draw from paid and free.
func (l *Ledger) Split(profile domain.Profile, opts Options) (paid, free int) {
	cost := opts.Cost()
	if opts.RequirePaidCredits {
		return cost, 0
	}
	paid = min(profile.CreditsBalance, cost)
	free = min(cost-paid, l.policy.FreeRemaining(profile))
	return paid, free
}

// Consume debits the profile after the paid-for work succeeded. Owners are
// never debited. The debit is one atomic update; storage errors propagate.
func (l *Ledger) Consume(ctx context.Context, profile *domain.Profile, opts Options) (*domain.Profile, domain.UsageSummary, error) {
	if profile.IsOwner() {
		return profile, l.policy.Summary(*profile), nil
	}

	paid, free := l.Split(*profile, opts)
	updated, err := l.repo.ApplyDebit(ctx, profile.Email, paid, free, l.policy.FreeCreditsPerMonth)
	if err != nil {
		return nil, domain.UsageSummary{}, domain.NewStorageError("consume credit", err)
	}

	l.logger.Info().
		Str("profile_id", updated.ID).
		Int("paid", paid).
		Int("free", free).
		Int("credits_balance", updated.CreditsBalance).
		Int("free_credits_used", updated.FreeCreditsUsed).
		Msg("credits consumed")

	l.record(ctx, &domain.CreditTransaction{
		ProfileID:  updated.ID,
		Type:       domain.TransactionConsume,
		PaidAmount: paid,
		FreeAmount: free,
		Source:     consumeSource(opts),
	})

	return updated, l.policy.Summary(*updated), nil
}

// GrantCredits adds paid credits to a profile, for purchases and manual grants.
func (l *Ledger) GrantCredits(ctx context.Context, profileID string, amount int, txType domain.TransactionType, source, reference string) (*domain.Profile, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: %d", domain.ErrInvalidAmount, amount)
	}
	updated, err := l.repo.AddCredits(ctx, profileID, amount)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, domain.NewStorageError("grant credits", err)
	}

	l.logger.Info().
		Str("profile_id", updated.ID).
		Int("amount", amount).
		Str("type", string(txType)).
		Str("source", source).
		Int("credits_balance", updated.CreditsBalance).
		Msg("credits granted")

	l.record(ctx, &domain.CreditTransaction{
		ProfileID:  updated.ID,
		Type:       txType,
		PaidAmount: amount,
		Source:     source,
		Reference:  reference,
	})
	return updated, nil
}

// record appends to the journal. Journal failures never fail the request.
func (l *Ledger) record(ctx context.Context, tx *domain.CreditTransaction) {
	if l.journal == nil {
		return
	}
	if err := l.journal.Append(ctx, tx); err != nil {
		l.logger.Error().Err(err).Str("profile_id", tx.ProfileID).Str("type", string(tx.Type)).Msg("record credit transaction failed")
	}
}

func consumeSource(opts Options) string {
	if opts.RequirePaidCredits {
		return "labs"
	}
	return "standard"
}
