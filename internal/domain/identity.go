package domain

import (
	"context"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Identity is an authenticated caller as reported by the identity provider.
type Identity struct {
	Subject string
	Email   string
	Role    string
}

// IsService reports whether the caller is an internal service account.
func (i Identity) IsService() bool {
	return i.Role == "service"
}

// Authenticator resolves a bearer token to an identity.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*Identity, error)
}

// NormalizeEmail trims, NFC-normalizes and lowercases an address. The result
// is the lookup key for profiles and allow-lists.
func NormalizeEmail(raw string) string {
	return strings.ToLower(norm.NFC.String(strings.TrimSpace(raw)))
}
