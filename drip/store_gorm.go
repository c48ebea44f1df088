package drip

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"taxnexy/engine"
	"taxnexy/models"
)

// GormStore is the Postgres-backed Store.
type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

func (s *GormStore) DueEnrollments(ctx context.Context, now time.Time) ([]models.CampaignEnrollment, error) {
	var due []models.CampaignEnrollment
	err := s.DB.WithContext(ctx).
		Where("status = ? AND next_email_due_at IS NOT NULL AND next_email_due_at <= ?",
			models.EnrollmentStatusActive, now).
		Find(&due).Error
	return due, err
}

func (s *GormStore) DueStageCounts(ctx context.Context, now time.Time) (map[int]int64, error) {
	type row struct {
		CurrentStage int
		N            int64
	}
	var rows []row
	err := s.DB.WithContext(ctx).
		Model(&models.CampaignEnrollment{}).
		Select("current_stage, COUNT(*) AS n").
		Where("status = ? AND next_email_due_at IS NOT NULL AND next_email_due_at <= ?",
			models.EnrollmentStatusActive, now).
		Group("current_stage").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[int]int64, len(rows))
	for _, r := range rows {
		counts[r.CurrentStage] = r.N
	}
	return counts, nil
}

func (s *GormStore) ClientByID(ctx context.Context, clientID uint) (*models.Client, error) {
	var client models.Client
	err := s.DB.WithContext(ctx).First(&client, clientID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: client %d", engine.ErrNotFound, clientID)
	}
	if err != nil {
		return nil, err
	}
	return &client, nil
}

func (s *GormStore) IntakeLinkByID(ctx context.Context, linkID uint) (*models.IntakeLink, error) {
	var link models.IntakeLink
	err := s.DB.WithContext(ctx).First(&link, linkID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: intake link %d", engine.ErrNotFound, linkID)
	}
	if err != nil {
		return nil, err
	}
	return &link, nil
}

func (s *GormStore) HasActiveEnrollment(ctx context.Context, clientID uint, campaignName string) (bool, error) {
	var count int64
	err := s.DB.WithContext(ctx).
		Model(&models.CampaignEnrollment{}).
		Where("client_id = ? AND campaign_name = ? AND status = ?",
			clientID, campaignName, models.EnrollmentStatusActive).
		Count(&count).Error
	return count > 0, err
}

func (s *GormStore) CreateEnrollment(ctx context.Context, enr *models.CampaignEnrollment) error {
	return s.DB.WithContext(ctx).Create(enr).Error
}

func (s *GormStore) EnrollmentByID(ctx context.Context, id uint) (*models.CampaignEnrollment, error) {
	var enr models.CampaignEnrollment
	err := s.DB.WithContext(ctx).First(&enr, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: enrollment %d", engine.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &enr, nil
}

func (s *GormStore) CompleteEnrollment(ctx context.Context, id uint) error {
	return s.DB.WithContext(ctx).
		Model(&models.CampaignEnrollment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":            models.EnrollmentStatusCompleted,
			"next_email_due_at": nil,
			"last_error":        "",
		}).Error
}

func (s *GormStore) AdvanceEnrollment(ctx context.Context, id uint, stage int, sentAt time.Time, nextDue *time.Time) error {
	return s.DB.WithContext(ctx).
		Model(&models.CampaignEnrollment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"current_stage":      stage,
			"last_email_sent_at": sentAt,
			"next_email_due_at":  nextDue,
			"last_error":         "",
		}).Error
}

func (s *GormStore) PauseEnrollment(ctx context.Context, id uint, reason string) error {
	return s.DB.WithContext(ctx).
		Model(&models.CampaignEnrollment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     models.EnrollmentStatusPaused,
			"last_error": reason,
		}).Error
}

func (s *GormStore) ResumeEnrollment(ctx context.Context, id uint, nextDue time.Time) error {
	return s.DB.WithContext(ctx).
		Model(&models.CampaignEnrollment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":            models.EnrollmentStatusActive,
			"next_email_due_at": nextDue,
			"last_error":        "",
		}).Error
}

func (s *GormStore) UnsubscribeEnrollment(ctx context.Context, id uint) error {
	return s.DB.WithContext(ctx).
		Model(&models.CampaignEnrollment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":            models.EnrollmentStatusUnsubscribed,
			"next_email_due_at": nil,
		}).Error
}

func (s *GormStore) RecordActivity(ctx context.Context, activity *models.ClientActivity) error {
	return s.DB.WithContext(ctx).Create(activity).Error
}

var _ Store = (*GormStore)(nil)
