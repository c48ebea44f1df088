package models

import (
	"time"

	"gorm.io/gorm"
)

// Client represents a tax-prep client/prospect
type Client struct {
	gorm.Model

	FirstName string `gorm:"not null" json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `gorm:"index" json:"email"`
	Phone     string `json:"phone"`

	// Pipeline
	Status       string `gorm:"default:'prospect'" json:"status"` // prospect, active, filed, archived
	FilingStatus string `json:"filing_status"`                    // single, married_joint, married_separate, head_of_household
	TaxYear      int    `json:"tax_year"`

	AssignedToID *uint `gorm:"index" json:"assigned_to_id"`

	// Relations
	Documents        []Document           `gorm:"foreignKey:ClientID" json:"documents,omitempty"`
	DocumentRequests []DocumentRequest    `gorm:"foreignKey:ClientID" json:"document_requests,omitempty"`
	Enrollments      []CampaignEnrollment `gorm:"foreignKey:ClientID" json:"enrollments,omitempty"`
	Tasks            []Task               `gorm:"foreignKey:ClientID" json:"tasks,omitempty"`
	Activities       []ClientActivity     `gorm:"foreignKey:ClientID" json:"activities,omitempty"`
}

// StaffUser represents a staff account (preparer/admin)
type StaffUser struct {
	gorm.Model

	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Name     string `json:"name"`
	Role     string `gorm:"default:'preparer'" json:"role"` // preparer, admin
	IsActive bool   `gorm:"default:true" json:"is_active"`
}

// Task statuses
const (
	TaskStatusOpen      = "open"
	TaskStatusCompleted = "completed"
)

// Task represents a staff to-do, optionally tied to a client.
// A task linked to a document request is completed automatically
// when every requested item has been uploaded.
type Task struct {
	gorm.Model

	ClientID    *uint  `gorm:"index" json:"client_id"`
	Title       string `gorm:"not null" json:"title"`
	Description string `json:"description"`

	Status      string     `gorm:"default:'open'" json:"status"` // open, completed
	DueAt       *time.Time `json:"due_at"`
	CompletedAt *time.Time `json:"completed_at"`

	CreatedByID uint `gorm:"index" json:"created_by_id"`
}
