package engine

import (
	"context"
	"fmt"
	"sync"

	"taxnexy/models"
)

// MemoryStore is an in-memory Store used by tests.
type MemoryStore struct {
	mu sync.Mutex

	nextID     uint
	Clients    map[uint]*models.Client
	Tasks      map[uint]*models.Task
	Requests   map[uint]*models.DocumentRequest
	Documents  map[uint]*models.Document
	Activities []models.ClientActivity
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextID:    1,
		Clients:   make(map[uint]*models.Client),
		Tasks:     make(map[uint]*models.Task),
		Requests:  make(map[uint]*models.DocumentRequest),
		Documents: make(map[uint]*models.Document),
	}
}

func (s *MemoryStore) id() uint {
	id := s.nextID
	s.nextID++
	return id
}

// AddClient seeds a client and returns its id.
func (s *MemoryStore) AddClient(c *models.Client) uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.id()
	s.Clients[c.ID] = c
	return c.ID
}

// AddTask seeds a task and returns its id.
func (s *MemoryStore) AddTask(t *models.Task) uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = s.id()
	s.Tasks[t.ID] = t
	return t.ID
}

func (s *MemoryStore) ClientExists(ctx context.Context, clientID uint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.Clients[clientID]
	return ok, nil
}

func (s *MemoryStore) CreateRequest(ctx context.Context, req *models.DocumentRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	req.ID = s.id()
	for i := range req.Items {
		req.Items[i].ID = s.id()
		req.Items[i].DocumentRequestID = req.ID
	}
	s.Requests[req.ID] = req
	return nil
}

func (s *MemoryStore) RequestByToken(ctx context.Context, token string) (*models.DocumentRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, req := range s.Requests {
		if req.Token == token {
			cp := *req
			cp.Items = append([]models.DocumentRequestItem(nil), req.Items...)
			if client, ok := s.Clients[req.ClientID]; ok {
				cp.Client = *client
			}
			return &cp, nil
		}
	}
	return nil, notFoundf("document request")
}

func (s *MemoryStore) MarkRequestExpired(ctx context.Context, requestID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.Requests[requestID]
	if !ok {
		return notFoundf("document request %d", requestID)
	}
	req.Status = models.RequestStatusExpired
	return nil
}

func (s *MemoryStore) CommitUpload(ctx context.Context, commit UploadCommit) (*UploadResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.Requests[commit.RequestID]
	if !ok {
		return nil, notFoundf("document request %d", commit.RequestID)
	}

	var item *models.DocumentRequestItem
	for i := range req.Items {
		if req.Items[i].ID == commit.ItemID {
			item = &req.Items[i]
			break
		}
	}
	if item == nil {
		return nil, notFoundf("checklist item %d", commit.ItemID)
	}
	if item.Status != models.ItemStatusPending {
		return nil, fmt.Errorf("%w: item has already been uploaded", ErrConflict)
	}

	doc := commit.Document
	doc.ID = s.id()
	s.Documents[doc.ID] = &doc

	uploadedAt := commit.UploadedAt
	item.Status = models.ItemStatusUploaded
	item.UploadedAt = &uploadedAt
	item.DocumentID = &doc.ID
	item.FileName = doc.Name
	item.FileSize = doc.SizeBytes
	item.MimeType = doc.MimeType

	newStatus := DeriveStatus(req.Items)
	if req.Status != models.RequestStatusExpired {
		req.Status = newStatus
	}

	taskCompleted := false
	if newStatus == models.RequestStatusCompleted && req.LinkedTaskID != nil {
		if task, ok := s.Tasks[*req.LinkedTaskID]; ok && task.Status != models.TaskStatusCompleted {
			task.Status = models.TaskStatusCompleted
			task.CompletedAt = &uploadedAt
			taskCompleted = true
		}
	}

	s.Activities = append(s.Activities, models.ClientActivity{
		ClientID: req.ClientID,
		Kind:     models.ActivityDocumentUploaded,
		Payload: models.ActivityPayload{
			DocumentRequestID: req.ID,
			ItemName:          item.Name,
			FileName:          doc.Name,
		},
	})
	if newStatus == models.RequestStatusCompleted {
		s.Activities = append(s.Activities, models.ClientActivity{
			ClientID: req.ClientID,
			Kind:     models.ActivityRequestCompleted,
			Payload: models.ActivityPayload{
				DocumentRequestID: req.ID,
				ItemCount:         len(req.Items),
			},
		})
	}

	return &UploadResult{
		Item:          *item,
		RequestStatus: newStatus,
		TaskCompleted: taskCompleted,
	}, nil
}

var _ Store = (*MemoryStore)(nil)
