package models

import (
	"time"

	"gorm.io/gorm"
)

// IntakeLink is a tokenized self-service intake invitation. A link is
// active iff used_at is null and expires_at is in the future; once
// used_at is set it is terminal.
type IntakeLink struct {
	gorm.Model

	ClientID *uint  `gorm:"index" json:"client_id"`
	Token    string `gorm:"uniqueIndex;not null" json:"-"`
	Email    string `gorm:"not null;index" json:"email"`

	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	UsedAt    *time.Time `json:"used_at"`

	// Prefill fields shown on the intake form
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	TaxYear   int    `json:"tax_year"`
}

// Active reports whether the link can still be used at the given time.
func (l *IntakeLink) Active(now time.Time) bool {
	return l.UsedAt == nil && now.Before(l.ExpiresAt)
}
