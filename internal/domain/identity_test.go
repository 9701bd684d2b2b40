package domain

import "testing"

func TestNormalizeEmail(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "  User@Example.COM ", want: "user@example.com"},
		{in: "", want: ""},
		{in: "\tx@y.z\n", want: "x@y.z"},
		{in: "José@example.com", want: "josé@example.com"},
	}
	for _, tc := range cases {
		if got := NormalizeEmail(tc.in); got != tc.want {
			t.Fatalf("NormalizeEmail(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestRemainingJSON(t *testing.T) {
	b, err := Unlimited().MarshalJSON()
	if err != nil || string(b) != `"unlimited"` {
		t.Fatalf("Unlimited marshal = %s, %v", b, err)
	}
	b, err = Limited(2).MarshalJSON()
	if err != nil || string(b) != "2" {
		t.Fatalf("Limited marshal = %s, %v", b, err)
	}
	if Limited(-4).Count != 0 {
		t.Fatalf("Limited should clamp negatives to zero")
	}
	var r Remaining
	if err := r.UnmarshalJSON([]byte(`"unlimited"`)); err != nil || !r.Unlimited {
		t.Fatalf("unmarshal unlimited = %+v, %v", r, err)
	}
	if err := r.UnmarshalJSON([]byte(`1`)); err != nil || r.Unlimited || r.Count != 1 {
		t.Fatalf("unmarshal count = %+v, %v", r, err)
	}
}
