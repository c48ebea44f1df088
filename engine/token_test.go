package engine

import (
	"encoding/hex"
	"testing"
	"time"
)

func TestIssueToken(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, err := IssueToken()
		if err != nil {
			t.Fatalf("IssueToken: %v", err)
		}
		if len(token) != 64 {
			t.Fatalf("token length = %d, want 64", len(token))
		}
		if _, err := hex.DecodeString(token); err != nil {
			t.Fatalf("token %q is not hex: %v", token, err)
		}
		if seen[token] {
			t.Fatalf("duplicate token issued: %q", token)
		}
		seen[token] = true
	}
}

func TestExpiryFrom(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	local := time.Date(2026, 2, 10, 22, 30, 0, 0, loc)
	got := ExpiryFrom(local, 30)

	if got.Location() != time.UTC {
		t.Fatalf("expiry not in UTC: %v", got)
	}
	if want := local.UTC().AddDate(0, 0, 30); !got.Equal(want) {
		t.Fatalf("ExpiryFrom = %v, want %v", got, want)
	}
}
