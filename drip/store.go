package drip

import (
	"context"
	"time"

	"taxnexy/models"
)

// Store is the persistence boundary of the drip sequencer.
type Store interface {
	// DueEnrollments returns enrollments with status=active and
	// next_email_due_at <= now. Order is not significant.
	DueEnrollments(ctx context.Context, now time.Time) ([]models.CampaignEnrollment, error)

	// DueStageCounts returns the per-stage breakdown of the due set.
	DueStageCounts(ctx context.Context, now time.Time) (map[int]int64, error)

	ClientByID(ctx context.Context, clientID uint) (*models.Client, error)
	IntakeLinkByID(ctx context.Context, linkID uint) (*models.IntakeLink, error)

	HasActiveEnrollment(ctx context.Context, clientID uint, campaignName string) (bool, error)
	CreateEnrollment(ctx context.Context, enr *models.CampaignEnrollment) error
	EnrollmentByID(ctx context.Context, id uint) (*models.CampaignEnrollment, error)

	// CompleteEnrollment marks the enrollment completed and clears
	// next_email_due_at.
	CompleteEnrollment(ctx context.Context, id uint) error

	// AdvanceEnrollment records a successful send: moves to stage,
	// sets last_email_sent_at and the next due time (nil after the
	// final stage) and clears last_error.
	AdvanceEnrollment(ctx context.Context, id uint, stage int, sentAt time.Time, nextDue *time.Time) error

	PauseEnrollment(ctx context.Context, id uint, reason string) error
	ResumeEnrollment(ctx context.Context, id uint, nextDue time.Time) error
	UnsubscribeEnrollment(ctx context.Context, id uint) error

	RecordActivity(ctx context.Context, activity *models.ClientActivity) error
}
