package drip

import (
	"context"
	"fmt"
	"sync"
	"time"

	"taxnexy/engine"
	"taxnexy/models"
)

// MemoryStore is an in-memory Store used by tests.
type MemoryStore struct {
	mu sync.Mutex

	nextID      uint
	Clients     map[uint]*models.Client
	IntakeLinks map[uint]*models.IntakeLink
	Enrollments map[uint]*models.CampaignEnrollment
	Activities  []models.ClientActivity
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextID:      1,
		Clients:     make(map[uint]*models.Client),
		IntakeLinks: make(map[uint]*models.IntakeLink),
		Enrollments: make(map[uint]*models.CampaignEnrollment),
	}
}

func (s *MemoryStore) id() uint {
	id := s.nextID
	s.nextID++
	return id
}

func (s *MemoryStore) AddClient(c *models.Client) uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.id()
	s.Clients[c.ID] = c
	return c.ID
}

func (s *MemoryStore) AddIntakeLink(l *models.IntakeLink) uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	l.ID = s.id()
	s.IntakeLinks[l.ID] = l
	return l.ID
}

func (s *MemoryStore) DueEnrollments(ctx context.Context, now time.Time) ([]models.CampaignEnrollment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []models.CampaignEnrollment
	for _, enr := range s.Enrollments {
		if enr.Status == models.EnrollmentStatusActive &&
			enr.NextEmailDueAt != nil && !enr.NextEmailDueAt.After(now) {
			due = append(due, *enr)
		}
	}
	return due, nil
}

func (s *MemoryStore) DueStageCounts(ctx context.Context, now time.Time) (map[int]int64, error) {
	due, err := s.DueEnrollments(ctx, now)
	if err != nil {
		return nil, err
	}
	counts := make(map[int]int64)
	for _, enr := range due {
		counts[enr.CurrentStage]++
	}
	return counts, nil
}

func (s *MemoryStore) ClientByID(ctx context.Context, clientID uint) (*models.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	client, ok := s.Clients[clientID]
	if !ok {
		return nil, fmt.Errorf("%w: client %d", engine.ErrNotFound, clientID)
	}
	cp := *client
	return &cp, nil
}

func (s *MemoryStore) IntakeLinkByID(ctx context.Context, linkID uint) (*models.IntakeLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	link, ok := s.IntakeLinks[linkID]
	if !ok {
		return nil, fmt.Errorf("%w: intake link %d", engine.ErrNotFound, linkID)
	}
	cp := *link
	return &cp, nil
}

func (s *MemoryStore) HasActiveEnrollment(ctx context.Context, clientID uint, campaignName string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, enr := range s.Enrollments {
		if enr.ClientID == clientID && enr.CampaignName == campaignName &&
			enr.Status == models.EnrollmentStatusActive {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) CreateEnrollment(ctx context.Context, enr *models.CampaignEnrollment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	enr.ID = s.id()
	cp := *enr
	s.Enrollments[enr.ID] = &cp
	return nil
}

func (s *MemoryStore) EnrollmentByID(ctx context.Context, id uint) (*models.CampaignEnrollment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	enr, ok := s.Enrollments[id]
	if !ok {
		return nil, fmt.Errorf("%w: enrollment %d", engine.ErrNotFound, id)
	}
	cp := *enr
	return &cp, nil
}

func (s *MemoryStore) CompleteEnrollment(ctx context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	enr, ok := s.Enrollments[id]
	if !ok {
		return fmt.Errorf("%w: enrollment %d", engine.ErrNotFound, id)
	}
	enr.Status = models.EnrollmentStatusCompleted
	enr.NextEmailDueAt = nil
	enr.LastError = ""
	return nil
}

func (s *MemoryStore) AdvanceEnrollment(ctx context.Context, id uint, stage int, sentAt time.Time, nextDue *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	enr, ok := s.Enrollments[id]
	if !ok {
		return fmt.Errorf("%w: enrollment %d", engine.ErrNotFound, id)
	}
	enr.CurrentStage = stage
	sent := sentAt
	enr.LastEmailSentAt = &sent
	enr.NextEmailDueAt = nextDue
	enr.LastError = ""
	return nil
}

func (s *MemoryStore) PauseEnrollment(ctx context.Context, id uint, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	enr, ok := s.Enrollments[id]
	if !ok {
		return fmt.Errorf("%w: enrollment %d", engine.ErrNotFound, id)
	}
	enr.Status = models.EnrollmentStatusPaused
	enr.LastError = reason
	return nil
}

func (s *MemoryStore) ResumeEnrollment(ctx context.Context, id uint, nextDue time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	enr, ok := s.Enrollments[id]
	if !ok {
		return fmt.Errorf("%w: enrollment %d", engine.ErrNotFound, id)
	}
	enr.Status = models.EnrollmentStatusActive
	due := nextDue
	enr.NextEmailDueAt = &due
	enr.LastError = ""
	return nil
}

func (s *MemoryStore) UnsubscribeEnrollment(ctx context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	enr, ok := s.Enrollments[id]
	if !ok {
		return fmt.Errorf("%w: enrollment %d", engine.ErrNotFound, id)
	}
	enr.Status = models.EnrollmentStatusUnsubscribed
	enr.NextEmailDueAt = nil
	return nil
}

func (s *MemoryStore) RecordActivity(ctx context.Context, activity *models.ClientActivity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	activity.ID = s.id()
	s.Activities = append(s.Activities, *activity)
	return nil
}

var _ Store = (*MemoryStore)(nil)
