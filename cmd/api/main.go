package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"nudio/internal/accounting"
	"nudio/internal/guestgate"
	"nudio/internal/http/handlers"
	"nudio/internal/http/httpapi"
	"nudio/internal/infra"
	"nudio/internal/infra/geoip"
	"nudio/internal/middleware"
	"nudio/internal/providers/genai"
	"nudio/internal/providers/listing"
	"nudio/internal/store"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	backend, err := store.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open accounting store")
	}
	defer backend.Close()

	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	}
	var countryLookup middleware.CountryLookup
	if resolver != nil {
		defer resolver.Close()
		countryLookup = resolver.CountryCode
		logger.Info().Str("path", cfg.GeoIPDBPath).Msg("geoip country tagging enabled")
	}

	policy := accounting.PolicyFromConfig(cfg.Accounting)
	auth := middleware.NewJWTAuthenticator(cfg.JWTSecret)
	gate := guestgate.New(auth, backend.Guests, guestgate.Options{
		Limit: cfg.Accounting.GuestFreeLimit,
		Salt:  cfg.Accounting.GuestSalt,
		Country: func(r *http.Request) string {
			return middleware.CountryFromContext(r.Context())
		},
	}, logger.With().Str("component", "guest-gate").Logger())
	if cfg.Accounting.GuestSalt == "" {
		logger.Warn().Msg("GUEST_SALT is empty; guest fingerprints are guessable")
	}

	app := &handlers.App{
		Profiles:         accounting.NewProfiles(backend.Profiles, policy, logger),
		Ledger:           accounting.NewLedger(backend.Profiles, backend.Journal, policy, logger),
		Gate:             gate,
		Enhancer:         newEnhancer(cfg, logger),
		Logger:           logger,
		TrustEmailHeader: cfg.TrustEmailHeader,
		Ready:            backend.Ping,
	}
	if cfg.TrustEmailHeader {
		logger.Warn().Msg("TRUST_EMAIL_HEADER enabled; unauthenticated email hints are accepted")
	}

	router := httpapi.NewRouter(app, httpapi.Options{
		Auth:            auth,
		CORSOrigins:     cfg.CORSOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
		Country:         countryLookup,
	})

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := infra.NewHTTPServer(cfg, router)
	logger.Info().Str("addr", server.Addr()).Str("store", backend.Kind).Int("free_credits_per_month", policy.FreeCreditsPerMonth).Msg("API listening")
	if err := server.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("http server failed")
		return
	}
	logger.Info().Msg("server stopped")
}

func newEnhancer(cfg *infra.Config, logger zerolog.Logger) listing.Enhancer {
	client := genai.NewClient(genai.Options{
		APIKey:  cfg.GeminiAPIKey,
		BaseURL: cfg.GeminiBaseURL,
		Logger:  logger,
	})
	if !client.Configured() {
		logger.Warn().Msg("GEMINI_API_KEY not set; using static enhancer")
		return listing.NewStaticEnhancer()
	}
	enhancer, err := listing.NewGeminiEnhancer(listing.GeminiOptions{
		Client:     client,
		ImageModel: cfg.GeminiModel,
		TextModels: cfg.GeminiTextModels,
		Logger:     logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid gemini configuration")
	}
	return enhancer
}
