package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"nudio/internal/accounting"
	"nudio/internal/guestgate"
	"nudio/internal/providers/listing"
)

// App holds the dependencies shared by the HTTP handlers.
type App struct {
	Profiles *accounting.Profiles
	Ledger   *accounting.Ledger
	Gate     *guestgate.Gate
	Enhancer listing.Enhancer
	Logger   zerolog.Logger

	// TrustEmailHeader accepts userEmail / X-User-Email without a bearer
	// token. Only for local tooling.
	TrustEmailHeader bool
	// Ready reports storage health for the readiness probe. Optional.
	Ready func(ctx context.Context) error
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, errorBody{Error: errCode, Message: message})
}

// log returns the request-scoped logger when the Logger middleware is mounted.
func (a *App) log(r *http.Request) *zerolog.Logger {
	if l := zerolog.Ctx(r.Context()); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &a.Logger
}
