package controller

import (
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"taxnexy/drip"
	"taxnexy/utils"
)

// DripController exposes enrollment management to staff and the run
// trigger to the scheduler.
type DripController struct {
	Seq    *drip.Sequencer
	Logger *log.Logger
}

func NewDripController(seq *drip.Sequencer, logger *log.Logger) *DripController {
	return &DripController{Seq: seq, Logger: logger}
}

type startEnrollmentInput struct {
	ClientID     uint   `json:"client_id" validate:"required"`
	CampaignName string `json:"campaign_name" validate:"required"`
	IntakeLinkID *uint  `json:"intake_link_id"`
}

// StartEnrollment enrolls a client and fires the intro email.
func (dc *DripController) StartEnrollment(c *fiber.Ctx) error {
	var input startEnrollmentInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := utils.ValidateStruct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	enr, err := dc.Seq.Start(c.UserContext(), drip.StartInput{
		ClientID:     input.ClientID,
		CampaignName: input.CampaignName,
		IntakeLinkID: input.IntakeLinkID,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(enr)
}

// PauseEnrollment suspends the email schedule for one enrollment.
func (dc *DripController) PauseEnrollment(c *fiber.Ctx) error {
	enr, err := dc.Seq.Pause(c.UserContext(), utils.ParseUint(c.Params("id")))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(enr)
}

// ResumeEnrollment makes a paused enrollment due immediately.
func (dc *DripController) ResumeEnrollment(c *fiber.Ctx) error {
	enr, err := dc.Seq.Resume(c.UserContext(), utils.ParseUint(c.Params("id")))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(enr)
}

// UnsubscribeEnrollment permanently stops a client's campaign emails.
func (dc *DripController) UnsubscribeEnrollment(c *fiber.Ctx) error {
	enr, err := dc.Seq.Unsubscribe(c.UserContext(), utils.ParseUint(c.Params("id")))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(enr)
}

// RunSequencer is the scheduler trigger. Overlapping a run that is
// still going returns 409 so callers can tell "busy" from "done".
func (dc *DripController) RunSequencer(c *fiber.Ctx) error {
	result, err := dc.Seq.Process(c.UserContext(), time.Now().UTC())
	if err != nil {
		if errors.Is(err, drip.ErrRunInProgress) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "A sequencer run is already in progress",
			})
		}
		return respondError(c, err)
	}
	return c.JSON(result)
}

// GetDueSummary previews what the next run would pick up. No side
// effects; safe for dashboards to poll.
func (dc *DripController) GetDueSummary(c *fiber.Ctx) error {
	summary, err := dc.Seq.DueSummary(c.UserContext(), time.Now().UTC())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(summary)
}
