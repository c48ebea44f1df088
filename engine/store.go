package engine

import (
	"context"
	"time"

	"taxnexy/models"
)

// UploadCommit carries the state for a single item upload commit.
type UploadCommit struct {
	RequestID  uint
	ItemID     uint
	Document   models.Document
	UploadedAt time.Time
}

// UploadResult reports the committed item and the request state after
// the commit.
type UploadResult struct {
	Item          models.DocumentRequestItem
	RequestStatus string
	TaskCompleted bool
}

// Store is the persistence boundary of the document request engine.
type Store interface {
	ClientExists(ctx context.Context, clientID uint) (bool, error)

	// CreateRequest persists a request together with its items.
	CreateRequest(ctx context.Context, req *models.DocumentRequest) error

	// RequestByToken loads a request and its items, or ErrNotFound.
	RequestByToken(ctx context.Context, token string) (*models.DocumentRequest, error)

	// MarkRequestExpired transitions a request to expired. It must be
	// a no-op for requests already expired.
	MarkRequestExpired(ctx context.Context, requestID uint) error

	// CommitUpload atomically creates the document, flips the item to
	// uploaded (compare-and-set on its pending status — a lost race
	// returns ErrConflict and writes nothing), recomputes the request
	// status and completes the linked task when the request is done.
	CommitUpload(ctx context.Context, commit UploadCommit) (*UploadResult, error)
}
