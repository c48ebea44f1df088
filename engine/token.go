package engine

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

const tokenBytes = 32

// IssueToken returns a cryptographically random hex token. The caller
// is responsible for persisting it; tokens are never reused across
// entities and are immutable once issued.
func IssueToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// ExpiryFrom returns now + days in UTC. All link expiry arithmetic in
// the system uses this so local-time drift can't shorten or extend a
// link's lifetime.
func ExpiryFrom(now time.Time, days int) time.Time {
	return now.UTC().AddDate(0, 0, days)
}
