package engine

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"taxnexy/models"
)

// GormStore is the Postgres-backed Store.
type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

func (s *GormStore) ClientExists(ctx context.Context, clientID uint) (bool, error) {
	var count int64
	err := s.DB.WithContext(ctx).Model(&models.Client{}).Where("id = ?", clientID).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *GormStore) CreateRequest(ctx context.Context, req *models.DocumentRequest) error {
	return s.DB.WithContext(ctx).Create(req).Error
}

func (s *GormStore) RequestByToken(ctx context.Context, token string) (*models.DocumentRequest, error) {
	var req models.DocumentRequest
	err := s.DB.WithContext(ctx).Preload("Items").Preload("Client").Where("token = ?", token).First(&req).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundf("document request")
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (s *GormStore) MarkRequestExpired(ctx context.Context, requestID uint) error {
	return s.DB.WithContext(ctx).
		Model(&models.DocumentRequest{}).
		Where("id = ? AND status <> ?", requestID, models.RequestStatusExpired).
		Update("status", models.RequestStatusExpired).Error
}

func (s *GormStore) CommitUpload(ctx context.Context, commit UploadCommit) (*UploadResult, error) {
	var result UploadResult

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		doc := commit.Document
		if err := tx.Create(&doc).Error; err != nil {
			return fmt.Errorf("create document: %w", err)
		}

		// CAS on the pending flag: if another upload commits first
		// this updates zero rows and the document insert rolls back.
		uploadedAt := commit.UploadedAt
		res := tx.Model(&models.DocumentRequestItem{}).
			Where("id = ? AND document_request_id = ? AND status = ?",
				commit.ItemID, commit.RequestID, models.ItemStatusPending).
			Updates(map[string]interface{}{
				"status":      models.ItemStatusUploaded,
				"uploaded_at": uploadedAt,
				"document_id": doc.ID,
				"file_name":   doc.Name,
				"file_size":   doc.SizeBytes,
				"mime_type":   doc.MimeType,
			})
		if res.Error != nil {
			return fmt.Errorf("update item: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: item has already been uploaded", ErrConflict)
		}

		var items []models.DocumentRequestItem
		if err := tx.Where("document_request_id = ?", commit.RequestID).Find(&items).Error; err != nil {
			return fmt.Errorf("load items: %w", err)
		}

		var req models.DocumentRequest
		if err := tx.First(&req, commit.RequestID).Error; err != nil {
			return fmt.Errorf("load request: %w", err)
		}

		newStatus := DeriveStatus(items)
		if req.Status != models.RequestStatusExpired && req.Status != newStatus {
			if err := tx.Model(&req).Update("status", newStatus).Error; err != nil {
				return fmt.Errorf("update request status: %w", err)
			}
		}

		taskCompleted := false
		if newStatus == models.RequestStatusCompleted && req.LinkedTaskID != nil {
			res := tx.Model(&models.Task{}).
				Where("id = ? AND status <> ?", *req.LinkedTaskID, models.TaskStatusCompleted).
				Updates(map[string]interface{}{
					"status":       models.TaskStatusCompleted,
					"completed_at": uploadedAt,
				})
			if res.Error != nil {
				return fmt.Errorf("complete linked task: %w", res.Error)
			}
			taskCompleted = res.RowsAffected > 0
		}

		var item models.DocumentRequestItem
		if err := tx.First(&item, commit.ItemID).Error; err != nil {
			return fmt.Errorf("reload item: %w", err)
		}

		activities := []models.ClientActivity{{
			ClientID: req.ClientID,
			Kind:     models.ActivityDocumentUploaded,
			Payload: models.ActivityPayload{
				DocumentRequestID: req.ID,
				ItemName:          item.Name,
				FileName:          doc.Name,
			},
		}}
		if newStatus == models.RequestStatusCompleted {
			activities = append(activities, models.ClientActivity{
				ClientID: req.ClientID,
				Kind:     models.ActivityRequestCompleted,
				Payload: models.ActivityPayload{
					DocumentRequestID: req.ID,
					ItemCount:         len(items),
				},
			})
		}
		if err := tx.Create(&activities).Error; err != nil {
			return fmt.Errorf("record activity: %w", err)
		}

		result = UploadResult{
			Item:          item,
			RequestStatus: newStatus,
			TaskCompleted: taskCompleted,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

var _ Store = (*GormStore)(nil)
