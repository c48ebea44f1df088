package controller

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"taxnexy/config"
	"taxnexy/engine"
	"taxnexy/models"
	"taxnexy/utils"
)

// RequestController serves the staff-facing document request API.
type RequestController struct {
	DB     *gorm.DB
	Engine *engine.Engine
	Mail   *utils.MailService
	SMS    *utils.SMSService
	Logger *log.Logger
}

func NewRequestController(db *gorm.DB, eng *engine.Engine, mail *utils.MailService, sms *utils.SMSService, logger *log.Logger) *RequestController {
	return &RequestController{
		DB:     db,
		Engine: eng,
		Mail:   mail,
		SMS:    sms,
		Logger: logger,
	}
}

type createRequestInput struct {
	ClientID uint `json:"client_id" validate:"required"`
	Items    []struct {
		Name        string `json:"name" validate:"required"`
		Description string `json:"description"`
	} `json:"items" validate:"required,min=1,dive"`
	LinkedTaskID *uint `json:"linked_task_id"`
	NotifyEmail  bool  `json:"notify_email"`
	NotifySMS    bool  `json:"notify_sms"`
}

// CreateDocumentRequest creates a checklist and optionally notifies
// the client with the upload link by email and/or SMS.
func (rc *RequestController) CreateDocumentRequest(c *fiber.Ctx) error {
	staff := c.Locals("staff").(*models.StaffUser)

	var input createRequestInput
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

	items := make([]engine.RequestItemInput, 0, len(input.Items))
	for _, item := range input.Items {
		items = append(items, engine.RequestItemInput{
			Name:        item.Name,
			Description: item.Description,
		})
	}

	req, err := rc.Engine.CreateRequest(c.UserContext(), engine.CreateRequestInput{
		ClientID:     input.ClientID,
		Items:        items,
		CreatedByID:  staff.ID,
		LinkedTaskID: input.LinkedTaskID,
	})
	if err != nil {
		return respondError(c, err)
	}

	link := config.AppConfig.AppBaseURL + "/r/" + req.Token

	var client models.Client
	if err := rc.DB.First(&client, req.ClientID).Error; err == nil {
		rc.notifyClient(c, &client, req, link, input.NotifyEmail, input.NotifySMS)
	}

	itemNames := make([]string, 0, len(req.Items))
	for _, item := range req.Items {
		itemNames = append(itemNames, item.Name)
	}
	if err := rc.DB.Create(&models.ClientActivity{
		ClientID: req.ClientID,
		Kind:     models.ActivityDocumentRequested,
		Payload: models.ActivityPayload{
			DocumentRequestID: req.ID,
			ItemCount:         len(itemNames),
		},
	}).Error; err != nil {
		rc.Logger.Printf("Activity record failed for request %d: %v", req.ID, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":         req.ID,
		"client_id":  req.ClientID,
		"status":     req.Status,
		"expires_at": req.ExpiresAt,
		"link":       link,
		"items":      req.Items,
	})
}

func (rc *RequestController) notifyClient(c *fiber.Ctx, client *models.Client, req *models.DocumentRequest, link string, byEmail, bySMS bool) {
	itemNames := make([]string, 0, len(req.Items))
	for _, item := range req.Items {
		itemNames = append(itemNames, item.Name)
	}

	if byEmail && client.Email != "" {
		if err := rc.Mail.SendDocumentRequestEmail(c.UserContext(), client.Email, client.FirstName, link, itemNames, req.ExpiresAt); err != nil {
			utils.LogError("document_request_email_failed", err, map[string]interface{}{
				"request_id": req.ID,
				"client_id":  client.ID,
			})
		}
	}
	if bySMS && rc.SMS.Enabled() && client.Phone != "" {
		if err := rc.SMS.SendDocumentRequestSMS(c.UserContext(), client.Phone, client.FirstName, link); err != nil {
			utils.LogError("document_request_sms_failed", err, map[string]interface{}{
				"request_id": req.ID,
				"client_id":  client.ID,
			})
		}
	}
}

// ListDocumentRequests lists a client's requests, newest first.
func (rc *RequestController) ListDocumentRequests(c *fiber.Ctx) error {
	clientID := utils.ParseUint(c.Query("client_id"))
	if clientID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "client_id is required",
		})
	}

	var requests []models.DocumentRequest
	if err := rc.DB.Preload("Items").
		Where("client_id = ?", clientID).
		Order("created_at DESC").
		Find(&requests).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load document requests",
		})
	}

	return c.JSON(fiber.Map{"data": requests})
}

// GetDocumentRequest returns one request with its items.
func (rc *RequestController) GetDocumentRequest(c *fiber.Ctx) error {
	var req models.DocumentRequest
	if err := rc.DB.Preload("Items").First(&req, utils.ParseUint(c.Params("id"))).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Document request not found",
		})
	}
	return c.JSON(req)
}

// RemindDocumentRequest re-sends the upload link to the client.
func (rc *RequestController) RemindDocumentRequest(c *fiber.Ctx) error {
	var req models.DocumentRequest
	if err := rc.DB.Preload("Items").First(&req, utils.ParseUint(c.Params("id"))).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Document request not found",
		})
	}
	if req.Status == models.RequestStatusCompleted || req.Status == models.RequestStatusExpired ||
		time.Now().UTC().After(req.ExpiresAt) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "This request can no longer be reminded about",
		})
	}

	var client models.Client
	if err := rc.DB.First(&client, req.ClientID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Client not found",
		})
	}

	link := config.AppConfig.AppBaseURL + "/r/" + req.Token
	rc.notifyClient(c, &client, &req, link, true, true)

	return c.JSON(fiber.Map{"message": "Reminder sent"})
}
