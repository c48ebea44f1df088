package engine

import (
	"context"
	"fmt"
	"log"
	"time"

	"taxnexy/models"
)

// DefaultRequestExpiryDays is how long a document request link stays valid.
const DefaultRequestExpiryDays = 30

// Engine owns the document request lifecycle: checklist creation,
// token lookup with lazy expiry, and upload commits.
type Engine struct {
	Store  Store
	Logger *log.Logger

	now func() time.Time
}

func NewEngine(store Store, logger *log.Logger) *Engine {
	return &Engine{
		Store:  store,
		Logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// RequestItemInput is one checklist entry to create.
type RequestItemInput struct {
	Name        string
	Description string
}

// CreateRequestInput describes a new document request.
type CreateRequestInput struct {
	ClientID     uint
	Items        []RequestItemInput
	CreatedByID  uint
	LinkedTaskID *uint
}

// FileMeta describes an accepted upload already written to storage.
type FileMeta struct {
	FileName    string
	MimeType    string
	SizeBytes   int64
	StoragePath string
}

// CreateRequest issues a token, sets a 30-day expiry and persists the
// request with one pending item per entry.
func (e *Engine) CreateRequest(ctx context.Context, in CreateRequestInput) (*models.DocumentRequest, error) {
	if len(in.Items) == 0 {
		return nil, validationf("at least one checklist item is required")
	}
	for _, item := range in.Items {
		if item.Name == "" {
			return nil, validationf("checklist item name is required")
		}
	}

	exists, err := e.Store.ClientExists(ctx, in.ClientID)
	if err != nil {
		return nil, fmt.Errorf("check client: %w", err)
	}
	if !exists {
		return nil, validationf("client %d does not exist", in.ClientID)
	}

	token, err := IssueToken()
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	now := e.now()
	req := &models.DocumentRequest{
		ClientID:     in.ClientID,
		Token:        token,
		Status:       models.RequestStatusPending,
		ExpiresAt:    ExpiryFrom(now, DefaultRequestExpiryDays),
		CreatedByID:  in.CreatedByID,
		LinkedTaskID: in.LinkedTaskID,
	}
	for _, item := range in.Items {
		req.Items = append(req.Items, models.DocumentRequestItem{
			Name:        item.Name,
			Description: item.Description,
			Status:      models.ItemStatusPending,
		})
	}

	if err := e.Store.CreateRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	e.Logger.Printf("Created document request %d for client %d (%d items)", req.ID, req.ClientID, len(req.Items))
	return req, nil
}

// GetRequestByToken resolves a token to its request with items. When
// expires_at has passed and the stored status is not yet expired, the
// expired transition is persisted before returning (lazy expiry —
// there is no background sweep). The expired request is still returned
// so callers can distinguish "expired" from "invalid token".
func (e *Engine) GetRequestByToken(ctx context.Context, token string) (*models.DocumentRequest, error) {
	if token == "" {
		return nil, notFoundf("document request")
	}
	req, err := e.Store.RequestByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := e.expireIfPast(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// RecordUpload commits one accepted upload: creates the Document row,
// flips the item to uploaded and recomputes the request status. The
// item's pending flag is the mutual-exclusion point — of two
// near-simultaneous uploads only the first commit wins, the second
// gets ErrConflict and no duplicate Document row is written.
func (e *Engine) RecordUpload(ctx context.Context, token string, itemID uint, meta FileMeta) (*UploadResult, error) {
	req, err := e.Store.RequestByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := e.expireIfPast(ctx, req); err != nil {
		return nil, err
	}
	if req.Status == models.RequestStatusExpired {
		return nil, fmt.Errorf("%w: document request", ErrExpired)
	}

	var item *models.DocumentRequestItem
	for i := range req.Items {
		if req.Items[i].ID == itemID {
			item = &req.Items[i]
			break
		}
	}
	if item == nil {
		return nil, notFoundf("checklist item %d on this request", itemID)
	}
	if item.Status == models.ItemStatusUploaded {
		return nil, fmt.Errorf("%w: item %q has already been uploaded", ErrConflict, item.Name)
	}

	clientID := req.ClientID
	commit := UploadCommit{
		RequestID: req.ID,
		ItemID:    itemID,
		Document: models.Document{
			ClientID:    &clientID,
			Name:        SanitizeFileName(meta.FileName),
			StoragePath: meta.StoragePath,
			MimeType:    meta.MimeType,
			SizeBytes:   meta.SizeBytes,
			Category:    "document_request",
		},
		UploadedAt: e.now(),
	}

	result, err := e.Store.CommitUpload(ctx, commit)
	if err != nil {
		return nil, err
	}

	e.Logger.Printf("Upload committed for request %d item %d, request now %s", req.ID, itemID, result.RequestStatus)
	return result, nil
}

// expireIfPast persists the expired transition the first time a
// past-expiry request is read. Repeated reads after expiry are
// side-effect free.
func (e *Engine) expireIfPast(ctx context.Context, req *models.DocumentRequest) error {
	if req.Status == models.RequestStatusExpired || e.now().Before(req.ExpiresAt) {
		return nil
	}
	if err := e.Store.MarkRequestExpired(ctx, req.ID); err != nil {
		return fmt.Errorf("mark expired: %w", err)
	}
	req.Status = models.RequestStatusExpired
	e.Logger.Printf("Document request %d expired on access", req.ID)
	return nil
}

// DeriveStatus computes a request's status from its items: completed
// when all are uploaded, partially_uploaded when some are, pending
// otherwise. Expiry is orthogonal and always takes precedence; callers
// must not apply this over an expired request.
func DeriveStatus(items []models.DocumentRequestItem) string {
	if len(items) == 0 {
		return models.RequestStatusPending
	}
	uploaded := 0
	for _, item := range items {
		if item.Status == models.ItemStatusUploaded {
			uploaded++
		}
	}
	switch {
	case uploaded == len(items):
		return models.RequestStatusCompleted
	case uploaded > 0:
		return models.RequestStatusPartiallyUploaded
	default:
		return models.RequestStatusPending
	}
}
