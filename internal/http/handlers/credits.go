package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"nudio/internal/domain"
	"nudio/internal/middleware"
)

type grantRequest struct {
	ProfileID string `json:"profile_id"`
	Email     string `json:"email"`
	Amount    int    `json:"amount"`
	Type      string `json:"type"`
	Source    string `json:"source"`
	Reference string `json:"reference"`
}

type grantResponse struct {
	ProfileID string              `json:"profile_id"`
	Usage     domain.UsageSummary `json:"usage"`
}

// GrantCredits adds paid credits on behalf of the billing integration. Only
// service-role bearer tokens may call it.
func (a *App) GrantCredits(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())
	if identity == nil {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing service token")
		return
	}
	if !identity.IsService() {
		a.error(w, http.StatusForbidden, "forbidden", "service role required")
		return
	}

	var req grantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	txType := domain.TransactionPurchase
	switch req.Type {
	case "", string(domain.TransactionPurchase):
	case string(domain.TransactionAdminGrant):
		txType = domain.TransactionAdminGrant
	default:
		a.error(w, http.StatusBadRequest, "bad_request", "type must be purchase or admin_grant")
		return
	}
	if req.Amount <= 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "amount must be positive")
		return
	}

	ctx := r.Context()
	profileID := strings.TrimSpace(req.ProfileID)
	if profileID != "" {
		id, err := uuid.Parse(profileID)
		if err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", "profile_id must be a UUID")
			return
		}
		profileID = id.String()
	} else {
		profile, err := a.Profiles.Ensure(ctx, req.Email)
		if err != nil {
			a.profileError(w, r, err)
			return
		}
		profileID = profile.ID
	}

	source := req.Source
	if source == "" {
		source = identity.Subject
	}
	updated, err := a.Ledger.GrantCredits(ctx, profileID, req.Amount, txType, source, req.Reference)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidAmount) {
			a.error(w, http.StatusBadRequest, "bad_request", err.Error())
			return
		}
		a.profileError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, grantResponse{ProfileID: updated.ID, Usage: a.Ledger.Policy().Summary(*updated)})
}
