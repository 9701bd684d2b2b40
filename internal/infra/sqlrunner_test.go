package infra

import (
	"errors"
	"testing"

	"nudio/internal/sqlinline"
)

func TestExtractMarker(t *testing.T) {
	marker, body, err := extractMarker(sqlinline.QSelectProfileByEmail)
	if err != nil {
		t.Fatalf("extractMarker returned error: %v", err)
	}
	if marker != "49903fe7-d31d-43ab-adf2-cfa7494def5b" {
		t.Fatalf("marker = %q", marker)
	}
	if body == "" || body[0] == '-' {
		t.Fatalf("body should start after the marker line, got %q", body)
	}
}

func TestExtractMarkerRejectsUnmarkedSQL(t *testing.T) {
	_, _, err := extractMarker("select 1")
	if !errors.Is(err, ErrMissingMarker) {
		t.Fatalf("expected ErrMissingMarker, got %v", err)
	}
	if _, _, err := extractMarker("   "); err == nil {
		t.Fatalf("expected error for empty query")
	}
}

func TestAllInlineQueriesCarryMarkers(t *testing.T) {
	queries := map[string]string{
		"QCreateSchema":             sqlinline.QCreateSchema,
		"QSelectProfileByEmail":     sqlinline.QSelectProfileByEmail,
		"QSelectProfileByID":        sqlinline.QSelectProfileByID,
		"QInsertProfile":            sqlinline.QInsertProfile,
		"QUpdateProfile":            sqlinline.QUpdateProfile,
		"QApplyDebit":               sqlinline.QApplyDebit,
		"QAddCredits":               sqlinline.QAddCredits,
		"QConsumeGuestCredit":       sqlinline.QConsumeGuestCredit,
		"QInsertCreditTransaction":  sqlinline.QInsertCreditTransaction,
		"QSelectCreditTransactions": sqlinline.QSelectCreditTransactions,
	}
	seen := map[string]string{}
	for name, q := range queries {
		marker, _, err := extractMarker(q)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if prev, ok := seen[marker]; ok {
			t.Fatalf("%s reuses marker of %s", name, prev)
		}
		seen[marker] = name
	}
}
