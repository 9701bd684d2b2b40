package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"nudio/internal/domain"
	"nudio/internal/http/handlers"
	"nudio/internal/middleware"
)

// Options carries the cross-cutting pieces the router mounts.
type Options struct {
	Auth            domain.Authenticator
	CORSOrigins     []string
	RateLimitPerMin int
	Country         middleware.CountryLookup
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	// RealIP is left out: the guest gate reads X-Forwarded-For itself.
	r.Use(
		middleware.RequestID,
		chimw.Recoverer,
		middleware.Country(opts.Country),
		middleware.Logger(app.Logger),
		middleware.CORS(opts.CORSOrigins),
	)

	r.Get("/v1/healthz", app.Health)

	r.Group(func(r chi.Router) {
		r.Use(
			middleware.RateLimit(opts.RateLimitPerMin, time.Minute),
			middleware.Identify(opts.Auth),
		)
		r.Get("/v1/usage", app.Usage)
		r.Post("/v1/usage", app.Usage)
		r.Post("/v1/enhance", app.Enhance)
		r.Post("/v1/internal/credits/grant", app.GrantCredits)
	})

	return r
}
