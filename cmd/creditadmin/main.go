package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"nudio/internal/accounting"
	"nudio/internal/domain"
	"nudio/internal/infra"
	"nudio/internal/store"
)

func main() {
	var (
		emailFlag     string
		roleFlag      string
		grantFlag     int
		typeFlag      string
		sourceFlag    string
		referenceFlag string
		historyFlag   int
	)

	flag.StringVar(&emailFlag, "email", "", "profile email to inspect or update")
	flag.StringVar(&roleFlag, "role", "", "role to assign (free, owner, reseller); may demote")
	flag.IntVar(&grantFlag, "grant", 0, "paid credits to add to the balance")
	flag.StringVar(&typeFlag, "type", string(domain.TransactionAdminGrant), "journal type for -grant (purchase, admin_grant)")
	flag.StringVar(&sourceFlag, "source", "creditadmin", "journal source for -grant")
	flag.StringVar(&referenceFlag, "reference", "", "external reference for -grant, e.g. a checkout session id")
	flag.IntVar(&historyFlag, "history", 0, "print the latest N journal entries")
	flag.Parse()

	email := domain.NormalizeEmail(emailFlag)
	if email == "" {
		exitWithError(errors.New("-email is required"))
	}
	txType := domain.TransactionType(strings.TrimSpace(typeFlag))
	if txType != domain.TransactionPurchase && txType != domain.TransactionAdminGrant {
		exitWithError(fmt.Errorf("unsupported -type %q", typeFlag))
	}
	if grantFlag < 0 {
		exitWithError(errors.New("-grant must not be negative"))
	}

	_ = godotenv.Load()
	cfg, err := infra.LoadConfig()
	if err != nil {
		exitWithError(err)
	}
	logger := infra.NewLogger("cli").With().Str("cmd", "creditadmin").Logger()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	backend, err := store.Open(ctx, cfg, logger)
	if err != nil {
		exitWithError(fmt.Errorf("failed to open store: %w", err))
	}
	defer backend.Close()

	policy := accounting.PolicyFromConfig(cfg.Accounting)
	profiles := accounting.NewProfiles(backend.Profiles, policy, logger)
	ledger := accounting.NewLedger(backend.Profiles, backend.Journal, policy, logger)

	profile, err := profiles.Ensure(ctx, email)
	if err != nil {
		exitWithError(fmt.Errorf("failed to load profile: %w", err))
	}

	if role := domain.ProfileRole(strings.ToLower(strings.TrimSpace(roleFlag))); role != "" {
		if profile, err = profiles.SetRole(ctx, email, role); err != nil {
			exitWithError(fmt.Errorf("failed to set role: %w", err))
		}
		fmt.Printf("Profile %s (%s) role set to %s\n", profile.ID, profile.Email, profile.Role)
	}

	if grantFlag > 0 {
		if profile, err = ledger.GrantCredits(ctx, profile.ID, grantFlag, txType, sourceFlag, referenceFlag); err != nil {
			exitWithError(fmt.Errorf("failed to grant credits: %w", err))
		}
		fmt.Printf("Granted %d credits (%s) to %s\n", grantFlag, txType, profile.Email)
	}

	printJSON(policy.Summary(*profile))

	if historyFlag > 0 {
		txs, err := backend.Journal.ListByProfile(ctx, profile.ID, historyFlag)
		if err != nil {
			exitWithError(fmt.Errorf("failed to list journal: %w", err))
		}
		for _, tx := range txs {
			fmt.Printf("%s %-11s paid=%d free=%d source=%s ref=%s\n",
				tx.CreatedAt.UTC().Format(time.RFC3339), tx.Type, tx.PaidAmount, tx.FreeAmount, tx.Source, tx.Reference)
		}
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
