package models

import "gorm.io/gorm"

// ClientActivity kinds
const (
	ActivityDocumentRequested = "document_requested"
	ActivityDocumentUploaded  = "document_uploaded"
	ActivityRequestCompleted  = "request_completed"
	ActivityDripEmailSent     = "drip_email_sent"
	ActivityDripCompleted     = "drip_completed"
	ActivityIntakeSubmitted   = "intake_submitted"
)

// ClientActivity is a timeline entry on a client record
type ClientActivity struct {
	gorm.Model

	ClientID uint   `gorm:"not null;index" json:"client_id"`
	Kind     string `gorm:"not null;index" json:"kind"`

	Payload ActivityPayload `gorm:"type:jsonb;serializer:json" json:"payload"`
}

// ActivityPayload holds kind-specific data. Only the fields for the
// activity's kind are set; unknown open-map metadata is not allowed.
type ActivityPayload struct {
	// document_requested / document_uploaded / request_completed
	DocumentRequestID uint   `json:"document_request_id,omitempty"`
	ItemName          string `json:"item_name,omitempty"`
	FileName          string `json:"file_name,omitempty"`
	ItemCount         int    `json:"item_count,omitempty"`

	// drip_email_sent / drip_completed
	CampaignName string `json:"campaign_name,omitempty"`
	Stage        int    `json:"stage,omitempty"`
	EmailType    string `json:"email_type,omitempty"`
	Reason       string `json:"reason,omitempty"` // converted, exhausted

	// intake_submitted
	IntakeLinkID uint `json:"intake_link_id,omitempty"`
}
