package controller

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"taxnexy/engine"
	"taxnexy/models"
	"taxnexy/utils"
)

// UploadController serves the public, token-authenticated document
// request endpoints. No session identity: possession of the token is
// the only credential.
type UploadController struct {
	Engine  *engine.Engine
	Storage utils.ObjectStorage
	Logger  *log.Logger
}

func NewUploadController(eng *engine.Engine, storage utils.ObjectStorage, logger *log.Logger) *UploadController {
	return &UploadController{
		Engine:  eng,
		Storage: storage,
		Logger:  logger,
	}
}

// GetRequestStatus resolves an upload link to its checklist state.
func (uc *UploadController) GetRequestStatus(c *fiber.Ctx) error {
	req, err := uc.Engine.GetRequestByToken(c.UserContext(), c.Params("token"))
	if err != nil {
		return respondError(c, err)
	}
	if req.Status == models.RequestStatusExpired {
		return c.Status(fiber.StatusGone).JSON(fiber.Map{
			"error":  "This upload link has expired. Please ask your preparer for a new one.",
			"status": models.RequestStatusExpired,
		})
	}

	items := make([]fiber.Map, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, fiber.Map{
			"id":          item.ID,
			"name":        item.Name,
			"description": item.Description,
			"status":      item.Status,
			"uploadedAt":  item.UploadedAt,
			"fileName":    item.FileName,
			"fileSize":    item.FileSize,
		})
	}

	return c.JSON(fiber.Map{
		"id":              req.ID,
		"status":          req.Status,
		"expiresAt":       req.ExpiresAt,
		"clientFirstName": req.Client.FirstName,
		"items":           items,
	})
}

// UploadItem accepts one file for one checklist item. Safe to retry: a
// re-POST after a committed upload gets a deterministic 409, never a
// duplicate document.
func (uc *UploadController) UploadItem(c *fiber.Ctx) error {
	token := c.Params("token")
	itemID := utils.ParseUint(c.Params("itemID"))

	req, err := uc.Engine.GetRequestByToken(c.UserContext(), token)
	if err != nil {
		return respondError(c, err)
	}
	if req.Status == models.RequestStatusExpired {
		return c.Status(fiber.StatusGone).JSON(fiber.Map{
			"error":  "This upload link has expired. Please ask your preparer for a new one.",
			"status": models.RequestStatusExpired,
		})
	}

	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "A file is required",
		})
	}

	mimeType := file.Header.Get("Content-Type")
	if err := engine.DocumentRequestUploadPolicy.Validate(mimeType, file.Size); err != nil {
		return respondError(c, err)
	}

	var item *models.DocumentRequestItem
	for i := range req.Items {
		if req.Items[i].ID == itemID {
			item = &req.Items[i]
			break
		}
	}
	if item == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unknown checklist item for this request",
		})
	}
	if item.Status == models.ItemStatusUploaded {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "This item has already been uploaded",
		})
	}

	src, err := file.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Could not read the uploaded file",
		})
	}
	defer src.Close()

	key := engine.StoragePath(req.ID, time.Now().UTC(), file.Filename)
	if err := uc.Storage.Save(c.UserContext(), key, mimeType, src); err != nil {
		utils.LogError("upload_storage_failed", err, map[string]interface{}{
			"request_id": req.ID,
			"item_id":    itemID,
		})
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Could not store the file. Please try again.",
		})
	}

	result, err := uc.Engine.RecordUpload(c.UserContext(), token, itemID, engine.FileMeta{
		FileName:    file.Filename,
		MimeType:    mimeType,
		SizeBytes:   file.Size,
		StoragePath: key,
	})
	if err != nil {
		// The commit lost or failed after the object was written;
		// drop the orphan so retries don't leak storage.
		if delErr := uc.Storage.Delete(c.UserContext(), key); delErr != nil {
			uc.Logger.Printf("Orphan cleanup failed for %s: %v", key, delErr)
		}
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"itemId":      result.Item.ID,
		"fileName":    result.Item.FileName,
		"fileSize":    result.Item.FileSize,
		"allComplete": result.RequestStatus == models.RequestStatusCompleted,
	})
}
