package controller

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"taxnexy/models"
	"taxnexy/utils"
)

const downloadLinkTTL = 15 * time.Minute

// DocumentController serves stored client documents to staff.
type DocumentController struct {
	DB      *gorm.DB
	Storage utils.ObjectStorage
	Logger  *log.Logger
}

func NewDocumentController(db *gorm.DB, storage utils.ObjectStorage, logger *log.Logger) *DocumentController {
	return &DocumentController{DB: db, Storage: storage, Logger: logger}
}

// ListDocuments lists a client's documents, newest first.
func (dc *DocumentController) ListDocuments(c *fiber.Ctx) error {
	clientID := utils.ParseUint(c.Query("client_id"))
	if clientID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "client_id is required",
		})
	}

	var docs []models.Document
	if err := dc.DB.Where("client_id = ?", clientID).
		Order("created_at DESC").
		Find(&docs).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load documents",
		})
	}
	return c.JSON(fiber.Map{"data": docs})
}

// DownloadDocument returns a short-lived presigned URL for a document.
func (dc *DocumentController) DownloadDocument(c *fiber.Ctx) error {
	var doc models.Document
	if err := dc.DB.First(&doc, utils.ParseUint(c.Params("id"))).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Document not found",
		})
	}

	url, err := dc.Storage.PresignGet(c.UserContext(), doc.StoragePath, downloadLinkTTL)
	if err != nil {
		utils.LogError("document_presign_failed", err, map[string]interface{}{
			"document_id": doc.ID,
		})
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Failed to generate download link",
		})
	}

	return c.JSON(fiber.Map{
		"url":        url,
		"expires_in": int(downloadLinkTTL.Seconds()),
	})
}

// DeleteDocument removes the stored object first, then the row. If the
// object delete fails the row stays so the document remains findable.
func (dc *DocumentController) DeleteDocument(c *fiber.Ctx) error {
	var doc models.Document
	if err := dc.DB.First(&doc, utils.ParseUint(c.Params("id"))).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Document not found",
		})
	}

	if err := dc.Storage.Delete(c.UserContext(), doc.StoragePath); err != nil {
		utils.LogError("document_delete_failed", err, map[string]interface{}{
			"document_id":  doc.ID,
			"storage_path": doc.StoragePath,
		})
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Failed to delete stored file",
		})
	}

	if err := dc.DB.Delete(&doc).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete document",
		})
	}
	return c.JSON(fiber.Map{"message": "Document deleted"})
}
