package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nudio/internal/domain"
)

const testSecret = "test-secret"

func TestVerifyJWT(t *testing.T) {
	now := time.Unix(1_760_000_000, 0)
	valid, err := SignJWT(testSecret, TokenClaims{Sub: "u1", Email: "A@Example.com", Exp: now.Add(time.Hour).Unix()})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	expired, _ := SignJWT(testSecret, TokenClaims{Sub: "u1", Exp: now.Add(-time.Minute).Unix()})
	foreign, _ := SignJWT("other-secret", TokenClaims{Sub: "u1"})

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{name: "valid", token: valid},
		{name: "expired", token: expired, wantErr: ErrTokenExpired},
		{name: "wrong secret", token: foreign, wantErr: ErrInvalidSignature},
		{name: "not a jwt", token: "abc", wantErr: ErrMalformedToken},
		{name: "tampered payload", token: strings.Replace(valid, ".", ".x", 1), wantErr: ErrInvalidSignature},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			claims, err := VerifyJWT(testSecret, tc.token, now)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("err = %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if claims.Sub != "u1" || claims.Email != "A@Example.com" {
				t.Fatalf("claims = %+v", claims)
			}
		})
	}
}

func TestJWTAuthenticatorNormalizesEmail(t *testing.T) {
	token, _ := SignJWT(testSecret, TokenClaims{Sub: "u1", Email: " Shop@Example.COM ", Role: "authenticated"})
	identity, err := NewJWTAuthenticator(testSecret).Authenticate(context.Background(), token)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if identity.Email != "shop@example.com" || identity.Subject != "u1" || identity.IsService() {
		t.Fatalf("identity = %+v", identity)
	}

	_, err = NewJWTAuthenticator(testSecret).Authenticate(context.Background(), "garbage")
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
}

func TestBearerToken(t *testing.T) {
	tests := map[string]struct {
		token string
		ok    bool
	}{
		"Bearer abc":   {token: "abc", ok: true},
		"bearer  abc ": {token: "abc", ok: true},
		"Basic abc":    {ok: false},
		"Bearer":       {ok: false},
		"":             {ok: false},
	}
	for header, want := range tests {
		token, ok := BearerToken(header)
		if ok != want.ok || token != want.token {
			t.Fatalf("BearerToken(%q) = %q, %v", header, token, ok)
		}
	}
}

func TestIdentifyMiddleware(t *testing.T) {
	token, _ := SignJWT(testSecret, TokenClaims{Sub: "u1", Email: "a@example.com"})
	var seen *domain.Identity
	h := Identify(NewJWTAuthenticator(testSecret))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = IdentityFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen == nil || seen.Email != "a@example.com" {
		t.Fatalf("identity = %+v", seen)
	}

	seen = nil
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer broken")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen != nil {
		t.Fatalf("invalid token must not attach an identity")
	}
}
