package domain

import (
	"encoding/json"
	"strconv"
	"time"
)

// ProfileRole enumerates accounting roles.
type ProfileRole string

const (
	RoleFree     ProfileRole = "free"
	RoleOwner    ProfileRole = "owner"
	RoleReseller ProfileRole = "reseller"
)

// Valid reports whether r is one of the known roles.
func (r ProfileRole) Valid() bool {
	switch r {
	case RoleFree, RoleOwner, RoleReseller:
		return true
	}
	return false
}

// Profile is the persisted per-user accounting record.
type Profile struct {
	ID              string      `json:"id" db:"id"`
	Email           string      `json:"email" db:"email"`
	Role            ProfileRole `json:"role" db:"role"`
	CreditsBalance  int         `json:"credits_balance" db:"credits_balance"`
	FreeCreditsUsed int         `json:"free_credits_used" db:"free_credits_used"`
	FreePeriodStart *time.Time  `json:"free_period_start" db:"free_period_start"`
	CreatedAt       time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at" db:"updated_at"`
}

// IsOwner reports whether the profile bypasses accounting entirely.
func (p Profile) IsOwner() bool {
	return p.Role == RoleOwner
}

// ProfileChanges is a staged partial update. Nil fields are left untouched.
type ProfileChanges struct {
	Role            *ProfileRole
	CreditsBalance  *int
	FreeCreditsUsed *int
	FreePeriodStart *time.Time
}

// Empty reports whether nothing was staged.
func (c ProfileChanges) Empty() bool {
	return c.Role == nil && c.CreditsBalance == nil && c.FreeCreditsUsed == nil && c.FreePeriodStart == nil
}

// Remaining is either unlimited or a concrete count.
type Remaining struct {
	Unlimited bool
	Count     int
}

// Limited returns a bounded Remaining.
func Limited(n int) Remaining {
	if n < 0 {
		n = 0
	}
	return Remaining{Count: n}
}

// Unlimited returns the unbounded Remaining.
func Unlimited() Remaining {
	return Remaining{Unlimited: true}
}

func (r Remaining) String() string {
	if r.Unlimited {
		return "unlimited"
	}
	return strconv.Itoa(r.Count)
}

// MarshalJSON renders unlimited as the string "unlimited" and counts as numbers.
func (r Remaining) MarshalJSON() ([]byte, error) {
	if r.Unlimited {
		return []byte(`"unlimited"`), nil
	}
	return []byte(strconv.Itoa(r.Count)), nil
}

// UnmarshalJSON accepts either form written by MarshalJSON.
func (r *Remaining) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if s == "unlimited" {
			*r = Unlimited()
			return nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return err
		}
		*r = Limited(n)
		return nil
	}
	var n int
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*r = Limited(n)
	return nil
}

// UsageSummary is the outward-facing view of a profile's balances.
type UsageSummary struct {
	Role                 ProfileRole `json:"role"`
	CreditsBalance       int         `json:"creditsBalance"`
	FreeCreditsUsed      int         `json:"freeCreditsUsed"`
	FreeCreditsLimit     int         `json:"freeCreditsLimit"`
	FreeCreditsRemaining Remaining   `json:"freeCreditsRemaining"`
	FreePeriodStart      *string     `json:"freePeriodStart"`
	Unlimited            bool        `json:"unlimited"`
}
