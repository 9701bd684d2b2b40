// Package guestgate throttles unauthenticated callers with a monthly counter
// keyed by a salted request fingerprint.
package guestgate

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"nudio/internal/accounting"
	"nudio/internal/domain"
	"nudio/internal/middleware"
)

const (
	ErrCodeLimitReached     = "guest-limit-reached"
	ErrCodeQuotaCheckFailed = "guest-quota-check-failed"
)

// Options configures a Gate.
type Options struct {
	// Limit is the number of free guest runs per calendar month.
	Limit int
	// Salt is mixed into every fingerprint and must stay secret.
	Salt string
	// Now overrides the clock, mainly for tests.
	Now func() time.Time
	// Country tags log events with the caller's country. Optional.
	Country func(r *http.Request) string
}

// Denial is the JSON body returned to a blocked guest.
type Denial struct {
	Error     string `json:"error"`
	Remaining *int   `json:"remaining,omitempty"`
	Message   string `json:"message,omitempty"`
	Details   string `json:"details,omitempty"`
}

// Outcome is the result of Check. Blocked outcomes carry the HTTP status and
// body to send; quota exhaustion is an outcome, not an error.
type Outcome struct {
	Blocked     bool
	Status      int
	Denial      *Denial
	Fingerprint string
	Remaining   int
	// Identity is set when the request carried a valid bearer token and was
	// therefore not counted.
	Identity *domain.Identity
}

// Gate decides whether an unauthenticated request may proceed.
type Gate struct {
	auth    domain.Authenticator
	counter domain.GuestCounter
	opts    Options
	logger  zerolog.Logger
}

// New builds a Gate. auth may be nil, in which case every request is a guest.
func New(auth domain.Authenticator, counter domain.GuestCounter, opts Options, logger zerolog.Logger) *Gate {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Gate{auth: auth, counter: counter, opts: opts, logger: logger}
}

// Limit returns the configured monthly guest limit.
func (g *Gate) Limit() int {
	return g.opts.Limit
}

// Check authenticates the request if possible and otherwise consumes one guest
// run. An invalid bearer token is treated like no token at all.
func (g *Gate) Check(r *http.Request) Outcome {
	ctx := r.Context()
	if identity := g.authenticate(ctx, r); identity != nil {
		return Outcome{Identity: identity}
	}
	return g.consume(ctx, r)
}

// consume charges one guest run against the request fingerprint.
func (g *Gate) consume(ctx context.Context, r *http.Request) Outcome {
	fp := RequestFingerprint(r, g.opts.Salt)
	period := accounting.MonthStart(g.opts.Now())

	res, err := g.counter.ConsumeGuestCredit(ctx, fp, period, g.opts.Limit)

	event := g.logger.Info().Str("fingerprint", fp).Bool("allowed", res.Allowed).Int("used", res.Used)
	if g.opts.Country != nil {
		if country := g.opts.Country(r); country != "" {
			event = event.Str("country", country)
		}
	}
	event.Msg("guest-gate")

	if err != nil {
		g.logger.Error().Err(err).Str("fingerprint", fp).Msg(ErrCodeQuotaCheckFailed)
		return Outcome{
			Blocked: true,
			Status:  http.StatusInternalServerError,
			Denial: &Denial{
				Error:   ErrCodeQuotaCheckFailed,
				Details: domain.NewStorageError("consume guest credit", err).Error(),
			},
			Fingerprint: fp,
		}
	}

	if !res.Allowed {
		zero := 0
		return Outcome{
			Blocked: true,
			Status:  http.StatusPaymentRequired,
			Denial: &Denial{
				Error:     ErrCodeLimitReached,
				Remaining: &zero,
				Message:   fmt.Sprintf("You’ve used your %d free nudios for this month. Sign in to continue.", g.opts.Limit),
			},
			Fingerprint: fp,
		}
	}

	return Outcome{Fingerprint: fp, Remaining: res.Remaining}
}

func (g *Gate) authenticate(ctx context.Context, r *http.Request) *domain.Identity {
	if g.auth == nil {
		return nil
	}
	token, ok := middleware.BearerToken(r.Header.Get("Authorization"))
	if !ok {
		return nil
	}
	identity, err := g.auth.Authenticate(ctx, token)
	if err != nil {
		g.logger.Debug().Err(err).Msg("guest-gate: bearer rejected, counting as guest")
		return nil
	}
	return identity
}
