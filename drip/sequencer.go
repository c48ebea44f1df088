package drip

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/badoux/checkmail"

	"taxnexy/engine"
	"taxnexy/models"
	"taxnexy/utils"
)

// ErrRunInProgress is returned when a Process call overlaps a run that
// is still executing. Runs are single-flight; the caller retries on
// its next schedule.
var ErrRunInProgress = errors.New("sequencer run already in progress")

// Mailer sends one templated drip email. Implementations must bound
// the send with a timeout; a timeout is a send failure, not a crash.
type Mailer interface {
	SendDripEmail(ctx context.Context, to, firstName, emailType string) error
}

// RunResult aggregates one sequencer pass.
type RunResult struct {
	Processed int `json:"processed"`
	Completed int `json:"completed"`
	Advanced  int `json:"advanced"`
	Errors    int `json:"errors"`
}

// DueSummary is the side-effect-free preview of a run.
type DueSummary struct {
	Due     int64           `json:"due"`
	ByStage map[int]int64   `json:"by_stage"`
}

// Sequencer advances active campaign enrollments through the fixed
// stage table. It never schedules itself; a worker tick or the
// authenticated HTTP trigger invokes Process with the current time.
type Sequencer struct {
	Store  Store
	Mailer Mailer
	Logger *log.Logger

	mu  sync.Mutex
	now func() time.Time
}

func NewSequencer(store Store, mailer Mailer, logger *log.Logger) *Sequencer {
	return &Sequencer{
		Store:  store,
		Mailer: mailer,
		Logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

type outcome int

const (
	outcomeCompleted outcome = iota
	outcomeAdvanced
	outcomeError
)

// Process runs one pass over the due set. Enrollments are evaluated
// independently; one enrollment's failure never aborts the batch.
func (s *Sequencer) Process(ctx context.Context, now time.Time) (RunResult, error) {
	if !s.mu.TryLock() {
		return RunResult{}, ErrRunInProgress
	}
	defer s.mu.Unlock()

	var result RunResult

	due, err := s.Store.DueEnrollments(ctx, now)
	if err != nil {
		return result, fmt.Errorf("select due enrollments: %w", err)
	}

	for i := range due {
		result.Processed++
		switch s.processOne(ctx, &due[i], now) {
		case outcomeCompleted:
			result.Completed++
		case outcomeAdvanced:
			result.Advanced++
		case outcomeError:
			result.Errors++
		}
	}

	s.Logger.Printf("Sequencer pass done: processed=%d completed=%d advanced=%d errors=%d",
		result.Processed, result.Completed, result.Advanced, result.Errors)
	return result, nil
}

// DueSummary reports how many enrollments a run at now would pick up,
// broken down by current stage. No side effects.
func (s *Sequencer) DueSummary(ctx context.Context, now time.Time) (*DueSummary, error) {
	byStage, err := s.Store.DueStageCounts(ctx, now)
	if err != nil {
		return nil, err
	}
	summary := &DueSummary{ByStage: byStage}
	for _, n := range byStage {
		summary.Due += n
	}
	return summary, nil
}

func (s *Sequencer) processOne(ctx context.Context, enr *models.CampaignEnrollment, now time.Time) outcome {
	// Conversion short-circuits the sequence regardless of stage.
	if enr.IntakeLinkID != nil {
		link, err := s.Store.IntakeLinkByID(ctx, *enr.IntakeLinkID)
		if err != nil {
			s.Logger.Printf("Enrollment %d: intake link lookup failed: %v", enr.ID, err)
			return outcomeError
		}
		if link.UsedAt != nil {
			return s.complete(ctx, enr, "converted")
		}
	}

	if enr.CurrentStage >= FinalStage {
		return s.complete(ctx, enr, "exhausted")
	}

	nextStage := enr.CurrentStage + 1
	cfg, ok := StageByNumber(nextStage)
	if !ok {
		return s.complete(ctx, enr, "exhausted")
	}

	client, err := s.Store.ClientByID(ctx, enr.ClientID)
	if err != nil {
		s.Logger.Printf("Enrollment %d: client lookup failed: %v", enr.ID, err)
		return outcomeError
	}

	// An enrollment without a sendable address would otherwise be
	// reselected and skipped every run forever; pause it so staff can
	// fix the address and resume.
	if client.Email == "" || checkmail.ValidateFormat(client.Email) != nil {
		reason := "client has no valid email address"
		if err := s.Store.PauseEnrollment(ctx, enr.ID, reason); err != nil {
			s.Logger.Printf("Enrollment %d: pause failed: %v", enr.ID, err)
		}
		utils.LogError("drip_missing_email", fmt.Errorf("enrollment %d: %s", enr.ID, reason), map[string]interface{}{
			"enrollment_id": enr.ID,
			"client_id":     enr.ClientID,
			"campaign":      enr.CampaignName,
		})
		return outcomeError
	}

	if err := s.Mailer.SendDripEmail(ctx, client.Email, client.FirstName, cfg.EmailType); err != nil {
		utils.LogError("drip_send_failed", fmt.Errorf("%w: %v", engine.ErrTransport, err), map[string]interface{}{
			"enrollment_id": enr.ID,
			"campaign":      enr.CampaignName,
			"email_type":    cfg.EmailType,
		})
		return outcomeError
	}

	var nextDue *time.Time
	if !cfg.Final {
		due := now.AddDate(0, 0, cfg.DaysUntilNext)
		nextDue = &due
	}

	if err := s.Store.AdvanceEnrollment(ctx, enr.ID, nextStage, now, nextDue); err != nil {
		// The email is out but the stage did not advance; the next run
		// will re-send. Surface loudly since this is the known
		// at-least-once gap.
		utils.LogError("drip_advance_failed_after_send", err, map[string]interface{}{
			"enrollment_id": enr.ID,
			"stage":         nextStage,
		})
		return outcomeError
	}

	if err := s.Store.RecordActivity(ctx, &models.ClientActivity{
		ClientID: enr.ClientID,
		Kind:     models.ActivityDripEmailSent,
		Payload: models.ActivityPayload{
			CampaignName: enr.CampaignName,
			Stage:        nextStage,
			EmailType:    cfg.EmailType,
		},
	}); err != nil {
		s.Logger.Printf("Enrollment %d: activity record failed: %v", enr.ID, err)
	}

	// The final send ends the sequence; otherwise the enrollment
	// would sit active with no due date and block re-enrollment.
	if cfg.Final {
		enr.CurrentStage = nextStage
		return s.complete(ctx, enr, "exhausted")
	}

	return outcomeAdvanced
}

func (s *Sequencer) complete(ctx context.Context, enr *models.CampaignEnrollment, reason string) outcome {
	if err := s.Store.CompleteEnrollment(ctx, enr.ID); err != nil {
		s.Logger.Printf("Enrollment %d: complete failed: %v", enr.ID, err)
		return outcomeError
	}
	if err := s.Store.RecordActivity(ctx, &models.ClientActivity{
		ClientID: enr.ClientID,
		Kind:     models.ActivityDripCompleted,
		Payload: models.ActivityPayload{
			CampaignName: enr.CampaignName,
			Stage:        enr.CurrentStage,
			Reason:       reason,
		},
	}); err != nil {
		s.Logger.Printf("Enrollment %d: activity record failed: %v", enr.ID, err)
	}
	return outcomeCompleted
}
