package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"nudio/internal/domain"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv           string
	Port             string
	DatabaseURL      string
	RedisURL         string
	JWTSecret        string
	GeoIPDBPath      string
	GeminiAPIKey     string
	GeminiModel      string
	GeminiTextModels []string
	GeminiBaseURL    string
	CORSOrigins      []string
	TrustEmailHeader bool
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int

	Accounting AccountingConfig
}

// AccountingConfig holds the credit and guest quota knobs. A zero limit is
// meaningful: it disables the free tier or guest runs.
type AccountingConfig struct {
	FreeCreditsPerMonth    int
	ResellerStarterCredits int
	OwnerEmails            []string
	ResellerEmails         []string
	GuestSalt              string
	GuestFreeLimit         int
}

const (
	defaultFreeCreditsPerMonth    = 3
	defaultResellerStarterCredits = 50
)

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		Port:             getEnv("PORT", "8080"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		GeoIPDBPath:      os.Getenv("GEOIP_DB_PATH"),
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		GeminiModel:      getEnv("GEMINI_MODEL", "gemini-1.5-flash-latest"),
		GeminiTextModels: splitList(getEnv("GEMINI_TEXT_MODELS", "gemini-2.0-flash-exp,gemini-1.5-flash-latest,gemini-1.5-flash")),
		GeminiBaseURL:    getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		CORSOrigins:      splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
		TrustEmailHeader: getEnvBool("TRUST_EMAIL_HEADER", false),
		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 60)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
	}

	acct := AccountingConfig{
		FreeCreditsPerMonth:    defaultFreeCreditsPerMonth,
		ResellerStarterCredits: defaultResellerStarterCredits,
	}
	// an explicit guest limit, 0 included, never follows the free tier
	guestLimitSet := false
	if path := strings.TrimSpace(os.Getenv("ACCOUNTING_CONFIG_FILE")); path != "" {
		fromFile, err := loadAccountingFile(path)
		if err != nil {
			return nil, err
		}
		acct = mergeAccounting(acct, fromFile)
		guestLimitSet = fromFile.GuestFreeLimit != nil
	}
	acct.FreeCreditsPerMonth = getEnvInt("FREE_CREDITS_PER_MONTH", acct.FreeCreditsPerMonth)
	acct.ResellerStarterCredits = getEnvInt("RESELLER_STARTER_CREDITS", acct.ResellerStarterCredits)
	if v, ok := lookupNonEmpty("OWNER_EMAILS"); ok {
		acct.OwnerEmails = splitList(v)
	}
	if v, ok := lookupNonEmpty("RESELLER_EMAILS"); ok {
		acct.ResellerEmails = splitList(v)
	}
	acct.GuestSalt = getEnv("GUEST_SALT", acct.GuestSalt)
	if v, ok := lookupNonEmpty("GUEST_FREE_LIMIT"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("GUEST_FREE_LIMIT must be an integer: %w", err)
		}
		acct.GuestFreeLimit = n
		guestLimitSet = true
	}
	if !guestLimitSet {
		acct.GuestFreeLimit = acct.FreeCreditsPerMonth
	}
	acct.OwnerEmails = NormalizeEmails(acct.OwnerEmails)
	acct.ResellerEmails = NormalizeEmails(acct.ResellerEmails)
	cfg.Accounting = acct

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	if acct.FreeCreditsPerMonth < 0 {
		return nil, fmt.Errorf("FREE_CREDITS_PER_MONTH must not be negative")
	}

	if acct.ResellerStarterCredits < 0 {
		return nil, fmt.Errorf("RESELLER_STARTER_CREDITS must not be negative")
	}

	if acct.GuestFreeLimit < 0 {
		return nil, fmt.Errorf("GUEST_FREE_LIMIT must not be negative")
	}

	return cfg, nil
}

// accountingFile is the YAML overlay. Pointers tell an explicit 0 apart
// from an absent key.
type accountingFile struct {
	FreeCreditsPerMonth    *int     `yaml:"free_credits_per_month"`
	ResellerStarterCredits *int     `yaml:"reseller_starter_credits"`
	OwnerEmails            []string `yaml:"owner_emails"`
	ResellerEmails         []string `yaml:"reseller_emails"`
	GuestSalt              string   `yaml:"guest_salt"`
	GuestFreeLimit         *int     `yaml:"guest_free_limit"`
}

func loadAccountingFile(path string) (accountingFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return accountingFile{}, fmt.Errorf("read accounting config: %w", err)
	}
	var out accountingFile
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &out); err != nil {
		return accountingFile{}, fmt.Errorf("parse accounting config: %w", err)
	}
	return out, nil
}

func mergeAccounting(base AccountingConfig, overlay accountingFile) AccountingConfig {
	if overlay.FreeCreditsPerMonth != nil {
		base.FreeCreditsPerMonth = *overlay.FreeCreditsPerMonth
	}
	if overlay.ResellerStarterCredits != nil {
		base.ResellerStarterCredits = *overlay.ResellerStarterCredits
	}
	if len(overlay.OwnerEmails) > 0 {
		base.OwnerEmails = overlay.OwnerEmails
	}
	if len(overlay.ResellerEmails) > 0 {
		base.ResellerEmails = overlay.ResellerEmails
	}
	if overlay.GuestSalt != "" {
		base.GuestSalt = overlay.GuestSalt
	}
	if overlay.GuestFreeLimit != nil {
		base.GuestFreeLimit = *overlay.GuestFreeLimit
	}
	return base
}

// NormalizeEmails normalizes a list, dropping blanks and duplicates.
func NormalizeEmails(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, raw := range in {
		email := domain.NormalizeEmail(raw)
		if email == "" {
			continue
		}
		if _, ok := seen[email]; ok {
			continue
		}
		seen[email] = struct{}{}
		out = append(out, email)
	}
	return out
}

func splitList(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func lookupNonEmpty(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return v, true
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
