package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"nudio/internal/domain"
)

type usageRequest struct {
	UserEmail string `json:"userEmail"`
}

type usageResponse struct {
	Usage domain.UsageSummary `json:"usage"`
}

// Usage returns the caller's usage summary, creating the profile on first sight.
func (a *App) Usage(w http.ResponseWriter, r *http.Request) {
	var req usageRequest
	if r.Method == http.MethodPost && r.ContentLength != 0 {
		// an unreadable body only means no email hint
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	email, _, ok := a.callerEmail(r, req.UserEmail)
	if !ok {
		a.error(w, http.StatusUnauthorized, "unauthorized", "sign in required")
		return
	}

	profile, err := a.Profiles.Ensure(r.Context(), email)
	if err != nil {
		a.profileError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, usageResponse{Usage: a.Ledger.Policy().Summary(*profile)})
}

func (a *App) profileError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidIdentity):
		a.error(w, http.StatusBadRequest, "invalid_identity", "User email required")
	case errors.Is(err, domain.ErrInvalidRole):
		a.error(w, http.StatusBadRequest, "invalid_role", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", "profile not found")
	default:
		a.log(r).Error().Err(err).Msg("profile store failure")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load profile")
	}
}
