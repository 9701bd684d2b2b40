package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"nudio/internal/accounting"
	"nudio/internal/domain"
	"nudio/internal/providers/listing"
)

const (
	modeImage = "image"
	modeText  = "text"
)

type enhanceRequest struct {
	Mode               string   `json:"mode"`
	ImageBase64        string   `json:"imageBase64"`
	ProductDescription string   `json:"productDescription"`
	UserEmail          string   `json:"userEmail"`
	Labs               bool     `json:"labs"`
	CreditCost         *float64 `json:"creditCost"`
}

func (req enhanceRequest) options() accounting.Options {
	cost := 1.0
	if req.CreditCost != nil {
		cost = *req.CreditCost
	}
	return accounting.Options{CreditCost: cost, RequirePaidCredits: req.Labs}
}

type enhanceResponse struct {
	Success     bool                 `json:"success"`
	Image       string               `json:"image,omitempty"`
	Analysis    string               `json:"analysis,omitempty"`
	Description string               `json:"description,omitempty"`
	Message     string               `json:"message"`
	Usage       *domain.UsageSummary `json:"usage,omitempty"`
	Guest       *guestUsage          `json:"guest,omitempty"`
}

type guestUsage struct {
	Remaining int `json:"remaining"`
}

type deniedResponse struct {
	Error   string              `json:"error"`
	Message string              `json:"message"`
	Usage   domain.UsageSummary `json:"usage"`
}

// Enhance runs the paid-for work. Signed-in callers are checked against the
// credit ledger before the work and debited only after it succeeded; guests
// are metered by the guest gate instead.
func (a *App) Enhance(w http.ResponseWriter, r *http.Request) {
	var req enhanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if msg := req.validate(); msg != "" {
		a.error(w, http.StatusBadRequest, "bad_request", msg)
		return
	}

	email, _, ok := a.callerEmail(r, req.UserEmail)
	if !ok {
		identity, handled := a.enhanceAsGuest(w, r, req)
		if handled {
			return
		}
		email = identity.Email
	}

	ctx := r.Context()
	profile, err := a.Profiles.Ensure(ctx, email)
	if err != nil {
		a.profileError(w, r, err)
		return
	}

	opts := req.options()
	if decision := a.Ledger.CanConsume(*profile, opts); !decision.Allowed {
		a.json(w, http.StatusForbidden, deniedResponse{
			Error:   string(decision.Reason),
			Message: decision.Message,
			Usage:   a.Ledger.Policy().Summary(*profile),
		})
		return
	}

	resp, err := a.runEnhancer(ctx, req)
	if err != nil {
		a.enhancerError(w, r, err)
		return
	}

	_, usage, err := a.Ledger.Consume(ctx, profile, opts)
	if err != nil {
		// the work is done; the caller is not charged for our failure
		a.log(r).Error().Err(err).Str("profile_id", profile.ID).Msg("debit after successful work failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to record usage")
		return
	}
	resp.Usage = &usage
	a.json(w, http.StatusOK, resp)
}

// enhanceAsGuest meters and serves a caller without a usable identity. If the
// gate recognizes a bearer token after all, the identity is handed back and
// nothing has been written.
func (a *App) enhanceAsGuest(w http.ResponseWriter, r *http.Request, req enhanceRequest) (*domain.Identity, bool) {
	if a.Gate == nil {
		a.error(w, http.StatusUnauthorized, "unauthorized", "sign in required")
		return nil, true
	}
	if req.Labs {
		a.error(w, http.StatusUnauthorized, "unauthorized", "Sign in to use Labs.")
		return nil, true
	}

	outcome := a.Gate.Check(r)
	if outcome.Identity != nil {
		return outcome.Identity, false
	}
	if outcome.Blocked {
		a.json(w, outcome.Status, outcome.Denial)
		return nil, true
	}

	resp, err := a.runEnhancer(r.Context(), req)
	if err != nil {
		a.enhancerError(w, r, err)
		return nil, true
	}
	resp.Guest = &guestUsage{Remaining: outcome.Remaining}
	a.json(w, http.StatusOK, resp)
	return nil, true
}

func (req enhanceRequest) validate() string {
	switch req.Mode {
	case modeImage:
		if strings.TrimSpace(req.ImageBase64) == "" {
			return "No image provided"
		}
	case modeText:
		if strings.TrimSpace(req.ProductDescription) == "" {
			return "No product description provided"
		}
	default:
		return fmt.Sprintf("Invalid mode: %s. Expected 'image' or 'text'", req.Mode)
	}
	return ""
}

func (a *App) runEnhancer(ctx context.Context, req enhanceRequest) (*enhanceResponse, error) {
	if req.Mode == modeImage {
		res, err := a.Enhancer.ProcessImage(ctx, listing.ImageRequest{ImageBase64: req.ImageBase64})
		if err != nil {
			return nil, err
		}
		return &enhanceResponse{Success: true, Image: res.Image, Analysis: res.Analysis, Message: res.Message}, nil
	}
	res, err := a.Enhancer.WriteDescription(ctx, req.ProductDescription)
	if err != nil {
		return nil, err
	}
	return &enhanceResponse{Success: true, Description: res.Description, Message: res.Message}, nil
}

func (a *App) enhancerError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, listing.ErrEmptyImage), errors.Is(err, listing.ErrEmptyDescription):
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		a.error(w, http.StatusGatewayTimeout, "timeout", "processing did not finish in time")
	default:
		a.log(r).Error().Err(err).Msg("enhancer failed")
		a.error(w, http.StatusBadGateway, "provider_failure", "Processing failed")
	}
}
