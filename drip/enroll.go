package drip

import (
	"context"
	"fmt"

	"taxnexy/engine"
	"taxnexy/models"
)

// StartInput describes a new enrollment.
type StartInput struct {
	ClientID     uint
	CampaignName string
	IntakeLinkID *uint
}

// Start enrolls a client into a campaign and sends the intro email
// immediately. Only one active enrollment per (client, campaign) is
// allowed; a duplicate start is rejected with ErrConflict.
func (s *Sequencer) Start(ctx context.Context, in StartInput) (*models.CampaignEnrollment, error) {
	if in.CampaignName == "" {
		return nil, fmt.Errorf("%w: campaign name is required", engine.ErrValidation)
	}
	if _, err := s.Store.ClientByID(ctx, in.ClientID); err != nil {
		return nil, fmt.Errorf("%w: client %d does not exist", engine.ErrValidation, in.ClientID)
	}

	active, err := s.Store.HasActiveEnrollment(ctx, in.ClientID, in.CampaignName)
	if err != nil {
		return nil, fmt.Errorf("check active enrollment: %w", err)
	}
	if active {
		return nil, fmt.Errorf("%w: client %d is already enrolled in %q", engine.ErrConflict, in.ClientID, in.CampaignName)
	}

	now := s.now()
	enr := &models.CampaignEnrollment{
		ClientID:       in.ClientID,
		CampaignName:   in.CampaignName,
		CurrentStage:   0,
		Status:         models.EnrollmentStatusActive,
		NextEmailDueAt: &now,
		IntakeLinkID:   in.IntakeLinkID,
	}
	if err := s.Store.CreateEnrollment(ctx, enr); err != nil {
		return nil, fmt.Errorf("create enrollment: %w", err)
	}

	// Intro goes out right away via the same advance path the worker
	// uses. A failed send leaves the enrollment due now and the next
	// run retries it.
	s.mu.Lock()
	s.processOne(ctx, enr, now)
	s.mu.Unlock()

	return s.Store.EnrollmentByID(ctx, enr.ID)
}

// Pause suspends an active enrollment. Staff action only.
func (s *Sequencer) Pause(ctx context.Context, id uint) (*models.CampaignEnrollment, error) {
	enr, err := s.Store.EnrollmentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if enr.Status != models.EnrollmentStatusActive {
		return nil, fmt.Errorf("%w: enrollment is %s, not active", engine.ErrConflict, enr.Status)
	}
	if err := s.Store.PauseEnrollment(ctx, id, ""); err != nil {
		return nil, err
	}
	return s.Store.EnrollmentByID(ctx, id)
}

// Resume reactivates a paused enrollment. The enrollment becomes due
// immediately so the next run picks it up.
func (s *Sequencer) Resume(ctx context.Context, id uint) (*models.CampaignEnrollment, error) {
	enr, err := s.Store.EnrollmentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if enr.Status != models.EnrollmentStatusPaused {
		return nil, fmt.Errorf("%w: enrollment is %s, not paused", engine.ErrConflict, enr.Status)
	}
	if err := s.Store.ResumeEnrollment(ctx, id, s.now()); err != nil {
		return nil, err
	}
	return s.Store.EnrollmentByID(ctx, id)
}

// Unsubscribe permanently opts the client out of this campaign.
func (s *Sequencer) Unsubscribe(ctx context.Context, id uint) (*models.CampaignEnrollment, error) {
	enr, err := s.Store.EnrollmentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if enr.Status == models.EnrollmentStatusCompleted || enr.Status == models.EnrollmentStatusUnsubscribed {
		return nil, fmt.Errorf("%w: enrollment is already %s", engine.ErrConflict, enr.Status)
	}
	if err := s.Store.UnsubscribeEnrollment(ctx, id); err != nil {
		return nil, err
	}
	return s.Store.EnrollmentByID(ctx, id)
}
