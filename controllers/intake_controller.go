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

const intakeLinkExpiryDays = 30

// IntakeController serves both the staff endpoints that issue intake
// links and the public, token-addressed intake form endpoints.
type IntakeController struct {
	DB      *gorm.DB
	Storage utils.ObjectStorage
	Mail    *utils.MailService
	Logger  *log.Logger
}

func NewIntakeController(db *gorm.DB, storage utils.ObjectStorage, mail *utils.MailService, logger *log.Logger) *IntakeController {
	return &IntakeController{DB: db, Storage: storage, Mail: mail, Logger: logger}
}

type createIntakeLinkInput struct {
	Email     string `json:"email" validate:"required,email"`
	ClientID  *uint  `json:"client_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	TaxYear   int    `json:"tax_year"`
	Notify    bool   `json:"notify"`
}

// CreateIntakeLink issues a tokenized intake invitation and optionally
// emails it to the prospect.
func (ic *IntakeController) CreateIntakeLink(c *fiber.Ctx) error {
	var input createIntakeLinkInput
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

	if input.ClientID != nil {
		var count int64
		if err := ic.DB.Model(&models.Client{}).Where("id = ?", *input.ClientID).Count(&count).Error; err != nil || count == 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Client not found",
			})
		}
	}

	token, err := engine.IssueToken()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to issue token",
		})
	}

	link := models.IntakeLink{
		ClientID:  input.ClientID,
		Token:     token,
		Email:     input.Email,
		ExpiresAt: engine.ExpiryFrom(time.Now(), intakeLinkExpiryDays),
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Phone:     input.Phone,
		TaxYear:   input.TaxYear,
	}
	if err := ic.DB.Create(&link).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create intake link",
		})
	}

	url := config.AppConfig.AppBaseURL + "/i/" + token
	if input.Notify {
		if err := ic.Mail.SendIntakeLinkEmail(c.UserContext(), link.Email, link.FirstName, url, link.ExpiresAt); err != nil {
			utils.LogError("intake_link_email_failed", err, map[string]interface{}{
				"intake_link_id": link.ID,
			})
		}
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":         link.ID,
		"email":      link.Email,
		"expires_at": link.ExpiresAt,
		"link":       url,
	})
}

// GetIntakeLink is the public form-load endpoint. It returns the
// prefill data for an active link, 410 for an expired or used one.
func (ic *IntakeController) GetIntakeLink(c *fiber.Ctx) error {
	var link models.IntakeLink
	if err := ic.DB.Where("token = ?", c.Params("token")).First(&link).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Intake link not found",
		})
	}
	if !link.Active(time.Now().UTC()) {
		return c.Status(fiber.StatusGone).JSON(fiber.Map{
			"error": "This intake link is no longer available",
		})
	}

	return c.JSON(fiber.Map{
		"email":      link.Email,
		"first_name": link.FirstName,
		"last_name":  link.LastName,
		"phone":      link.Phone,
		"tax_year":   link.TaxYear,
		"expires_at": link.ExpiresAt,
	})
}

type submitIntakeInput struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Phone     string `json:"phone"`
	TaxYear   int    `json:"tax_year"`
}

// SubmitIntake consumes the link. The used_at flip is a compare-and-set
// so that two concurrent submissions cannot both win.
func (ic *IntakeController) SubmitIntake(c *fiber.Ctx) error {
	var link models.IntakeLink
	if err := ic.DB.Where("token = ?", c.Params("token")).First(&link).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Intake link not found",
		})
	}

	now := time.Now().UTC()
	if now.After(link.ExpiresAt) {
		return c.Status(fiber.StatusGone).JSON(fiber.Map{
			"error": "This intake link has expired",
		})
	}

	var input submitIntakeInput
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

	res := ic.DB.Model(&models.IntakeLink{}).
		Where("id = ? AND used_at IS NULL", link.ID).
		Updates(map[string]interface{}{
			"used_at":    now,
			"first_name": input.FirstName,
			"last_name":  input.LastName,
			"phone":      input.Phone,
			"tax_year":   input.TaxYear,
		})
	if res.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to submit intake",
		})
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "This intake link has already been used",
		})
	}

	if link.ClientID != nil {
		if err := ic.DB.Create(&models.ClientActivity{
			ClientID: *link.ClientID,
			Kind:     models.ActivityIntakeSubmitted,
			Payload: models.ActivityPayload{
				IntakeLinkID: link.ID,
			},
		}).Error; err != nil {
			ic.Logger.Printf("Activity record failed for intake link %d: %v", link.ID, err)
		}
	}

	return c.JSON(fiber.Map{"message": "Intake submitted"})
}

// IntakeUpload accepts a supporting document against an active intake
// link under the intake upload policy.
func (ic *IntakeController) IntakeUpload(c *fiber.Ctx) error {
	var link models.IntakeLink
	if err := ic.DB.Where("token = ?", c.Params("token")).First(&link).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Intake link not found",
		})
	}
	if !link.Active(time.Now().UTC()) {
		return c.Status(fiber.StatusGone).JSON(fiber.Map{
			"error": "This intake link is no longer available",
		})
	}

	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "A file is required",
		})
	}
	mimeType := file.Header.Get("Content-Type")
	if err := engine.IntakeUploadPolicy.Validate(mimeType, file.Size); err != nil {
		return respondError(c, err)
	}

	src, err := file.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Failed to read file",
		})
	}
	defer src.Close()

	key := engine.IntakeStoragePath(link.ID, time.Now().UTC(), file.Filename)
	if err := ic.Storage.Save(c.UserContext(), key, mimeType, src); err != nil {
		utils.LogError("intake_upload_storage_failed", err, map[string]interface{}{
			"intake_link_id": link.ID,
			"file_name":      file.Filename,
		})
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Failed to store file",
		})
	}

	doc := models.Document{
		ClientID:    link.ClientID,
		Name:        engine.SanitizeFileName(file.Filename),
		StoragePath: key,
		MimeType:    mimeType,
		SizeBytes:   file.Size,
		Category:    "intake",
	}
	if err := ic.DB.Create(&doc).Error; err != nil {
		// keep the stored object out of the bucket if the row never landed
		if delErr := ic.Storage.Delete(c.UserContext(), key); delErr != nil {
			utils.LogError("intake_upload_cleanup_failed", delErr, map[string]interface{}{
				"storage_path": key,
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to record document",
		})
	}

	return c.JSON(fiber.Map{
		"id":        doc.ID,
		"file_name": doc.Name,
		"file_size": doc.SizeBytes,
	})
}
