package handlers

import (
	"net/http"
	"strings"

	"nudio/internal/domain"
	"nudio/internal/middleware"
)

// callerEmail resolves the email to account against. Verified bearer claims
// win; a body or header email is only honored when TrustEmailHeader is set.
// ok is false when the request carries no identity at all.
func (a *App) callerEmail(r *http.Request, bodyEmail string) (email string, identity *domain.Identity, ok bool) {
	if identity = middleware.IdentityFromContext(r.Context()); identity != nil {
		return identity.Email, identity, true
	}
	if !a.TrustEmailHeader {
		return "", nil, false
	}
	for _, candidate := range []string{bodyEmail, r.Header.Get("X-User-Email")} {
		if strings.TrimSpace(candidate) != "" {
			return candidate, nil, true
		}
	}
	return "", nil, false
}
