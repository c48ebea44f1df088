package models

import (
	"time"

	"gorm.io/gorm"
)

// DocumentRequest statuses
const (
	RequestStatusPending           = "pending"
	RequestStatusPartiallyUploaded = "partially_uploaded"
	RequestStatusCompleted         = "completed"
	RequestStatusExpired           = "expired"
)

// DocumentRequestItem statuses
const (
	ItemStatusPending  = "pending"
	ItemStatusUploaded = "uploaded"
)

// Document represents a stored client file. StoragePath points into the
// object store; the record and the object are deleted together.
type Document struct {
	gorm.Model

	ClientID    *uint  `gorm:"index" json:"client_id"`
	Name        string `gorm:"not null" json:"name"`
	StoragePath string `gorm:"not null" json:"-"`
	MimeType    string `json:"mime_type"`
	SizeBytes   int64  `json:"size_bytes"`
	Category    string `gorm:"default:'uncategorized'" json:"category"` // document_request, intake, uncategorized
}

// DocumentRequest is a named checklist of files requested from a client,
// reachable only by its token. Status is derived from item statuses; once
// expires_at passes the request is expired regardless of item progress.
type DocumentRequest struct {
	gorm.Model

	ClientID uint   `gorm:"not null;index" json:"client_id"`
	Token    string `gorm:"uniqueIndex;not null" json:"-"`

	Status    string    `gorm:"default:'pending'" json:"status"` // pending, partially_uploaded, completed, expired
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`

	CreatedByID  uint  `gorm:"index" json:"created_by_id"`
	LinkedTaskID *uint `gorm:"index" json:"linked_task_id"`

	// Relations
	Items  []DocumentRequestItem `gorm:"foreignKey:DocumentRequestID" json:"items,omitempty"`
	Client Client                `json:"-"`
}

// DocumentRequestItem is one requested file within a request. Once
// uploaded the status is terminal; re-uploads are rejected.
type DocumentRequestItem struct {
	gorm.Model

	DocumentRequestID uint `gorm:"not null;index" json:"document_request_id"`

	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description"`

	Status     string     `gorm:"default:'pending'" json:"status"` // pending, uploaded
	UploadedAt *time.Time `json:"uploaded_at"`

	// Set on upload
	DocumentID *uint  `gorm:"index" json:"document_id"`
	FileName   string `json:"file_name"`
	FileSize   int64  `json:"file_size"`
	MimeType   string `json:"mime_type"`
}
