package models

import (
	"time"

	"gorm.io/gorm"
)

// CampaignEnrollment statuses
const (
	EnrollmentStatusActive       = "active"
	EnrollmentStatusCompleted    = "completed"
	EnrollmentStatusPaused       = "paused"
	EnrollmentStatusUnsubscribed = "unsubscribed"
)

// CampaignEnrollment tracks a client's progress through a fixed drip
// sequence. Stage 0 means enrolled with no email sent yet; the sequencer
// advances stages and sets next_email_due_at, and only the sequencer
// completes an enrollment (either conversion via the linked intake link
// or exhaustion of the final stage).
type CampaignEnrollment struct {
	gorm.Model

	ClientID     uint   `gorm:"not null;index" json:"client_id"`
	CampaignName string `gorm:"not null;index" json:"campaign_name"`

	CurrentStage int    `gorm:"default:0" json:"current_stage"`    // 0..3
	Status       string `gorm:"default:'active'" json:"status"` // active, completed, paused, unsubscribed

	NextEmailDueAt  *time.Time `gorm:"index" json:"next_email_due_at"`
	LastEmailSentAt *time.Time `json:"last_email_sent_at"`

	// Conversion signal: once the linked intake link is used the
	// sequence short-circuits to completed.
	IntakeLinkID *uint `gorm:"index" json:"intake_link_id"`

	LastError string `json:"last_error,omitempty"`

	// Relations
	Client Client `json:"-"`
}
