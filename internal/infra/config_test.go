package infra

import (
	"os"
	"path/filepath"
	"testing"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("JWT_SECRET", "test-secret")
	for _, key := range []string{
		"FREE_CREDITS_PER_MONTH", "RESELLER_STARTER_CREDITS", "OWNER_EMAILS",
		"RESELLER_EMAILS", "GUEST_SALT", "GUEST_FREE_LIMIT", "ACCOUNTING_CONFIG_FILE",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfigAccountingDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Accounting.FreeCreditsPerMonth != 3 {
		t.Fatalf("FreeCreditsPerMonth = %d, want 3", cfg.Accounting.FreeCreditsPerMonth)
	}
	if cfg.Accounting.ResellerStarterCredits != 50 {
		t.Fatalf("ResellerStarterCredits = %d, want 50", cfg.Accounting.ResellerStarterCredits)
	}
	if cfg.Accounting.GuestFreeLimit != 3 {
		t.Fatalf("GuestFreeLimit = %d, want 3", cfg.Accounting.GuestFreeLimit)
	}
}

func TestLoadConfigGuestLimitFollowsFreeCredits(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("FREE_CREDITS_PER_MONTH", "5")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Accounting.GuestFreeLimit != 5 {
		t.Fatalf("GuestFreeLimit = %d, want 5", cfg.Accounting.GuestFreeLimit)
	}
}

func TestLoadConfigNormalizesAllowLists(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("OWNER_EMAILS", " Boss@Example.com ,, boss@example.com")
	t.Setenv("RESELLER_EMAILS", "Shop@Example.com")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if len(cfg.Accounting.OwnerEmails) != 1 || cfg.Accounting.OwnerEmails[0] != "boss@example.com" {
		t.Fatalf("OwnerEmails mismatch: %#v", cfg.Accounting.OwnerEmails)
	}
	if len(cfg.Accounting.ResellerEmails) != 1 || cfg.Accounting.ResellerEmails[0] != "shop@example.com" {
		t.Fatalf("ResellerEmails mismatch: %#v", cfg.Accounting.ResellerEmails)
	}
}

func TestLoadConfigAccountingFileWithEnvOverride(t *testing.T) {
	setRequiredEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "accounting.yaml")
	body := "free_credits_per_month: 10\n" +
		"reseller_starter_credits: 25\n" +
		"owner_emails: [\"owner@example.com\"]\n" +
		"guest_salt: ${TEST_GUEST_SALT}\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("ACCOUNTING_CONFIG_FILE", path)
	t.Setenv("TEST_GUEST_SALT", "pepper")
	t.Setenv("RESELLER_STARTER_CREDITS", "40")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Accounting.FreeCreditsPerMonth != 10 {
		t.Fatalf("FreeCreditsPerMonth = %d, want 10", cfg.Accounting.FreeCreditsPerMonth)
	}
	if cfg.Accounting.ResellerStarterCredits != 40 {
		t.Fatalf("ResellerStarterCredits = %d, want env override 40", cfg.Accounting.ResellerStarterCredits)
	}
	if cfg.Accounting.GuestSalt != "pepper" {
		t.Fatalf("GuestSalt = %q, want expanded value", cfg.Accounting.GuestSalt)
	}
	if len(cfg.Accounting.OwnerEmails) != 1 || cfg.Accounting.OwnerEmails[0] != "owner@example.com" {
		t.Fatalf("OwnerEmails mismatch: %#v", cfg.Accounting.OwnerEmails)
	}
}

func TestLoadConfigKeepsExplicitZeroGuestLimit(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("GUEST_FREE_LIMIT", "0")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Accounting.GuestFreeLimit != 0 {
		t.Fatalf("GuestFreeLimit = %d, want 0", cfg.Accounting.GuestFreeLimit)
	}
	if cfg.Accounting.FreeCreditsPerMonth != 3 {
		t.Fatalf("FreeCreditsPerMonth = %d, want 3", cfg.Accounting.FreeCreditsPerMonth)
	}
}

func TestLoadConfigRejectsBadGuestLimit(t *testing.T) {
	for _, v := range []string{"-1", "many"} {
		setRequiredEnv(t)
		t.Setenv("GUEST_FREE_LIMIT", v)
		if _, err := LoadConfig(); err == nil {
			t.Fatalf("GUEST_FREE_LIMIT=%q: expected error", v)
		}
	}
}

func TestLoadConfigAccountingFileKeepsZeroLimits(t *testing.T) {
	setRequiredEnv(t)
	path := filepath.Join(t.TempDir(), "accounting.yaml")
	body := "free_credits_per_month: 0\nguest_free_limit: 0\nreseller_starter_credits: 0\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("ACCOUNTING_CONFIG_FILE", path)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	acct := cfg.Accounting
	if acct.FreeCreditsPerMonth != 0 || acct.GuestFreeLimit != 0 || acct.ResellerStarterCredits != 0 {
		t.Fatalf("zero limits not kept: %+v", acct)
	}
}

func TestLoadConfigGuestLimitFollowsFileFreeCredits(t *testing.T) {
	setRequiredEnv(t)
	path := filepath.Join(t.TempDir(), "accounting.yaml")
	if err := os.WriteFile(path, []byte("free_credits_per_month: 0\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("ACCOUNTING_CONFIG_FILE", path)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Accounting.GuestFreeLimit != 0 {
		t.Fatalf("GuestFreeLimit = %d, want 0 from the free tier", cfg.Accounting.GuestFreeLimit)
	}
}

func TestLoadConfigRequiresDatabaseURL(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DATABASE_URL", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error when DATABASE_URL is empty")
	}
}
