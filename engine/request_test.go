package engine

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"taxnexy/models"
	"taxnexy/utils"
)

func newTestEngine(t *testing.T) (*Engine, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	return NewEngine(store, log.New(io.Discard, "", 0)), store
}

func seedRequest(t *testing.T, e *Engine, store *MemoryStore, itemNames ...string) *models.DocumentRequest {
	t.Helper()
	clientID := store.AddClient(&models.Client{FirstName: "Dana", LastName: "Reyes", Email: "dana@example.com"})
	items := make([]RequestItemInput, 0, len(itemNames))
	for _, name := range itemNames {
		items = append(items, RequestItemInput{Name: name})
	}
	req, err := e.CreateRequest(context.Background(), CreateRequestInput{
		ClientID:    clientID,
		Items:       items,
		CreatedByID: 1,
	})
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	return req
}

func TestCreateRequestValidation(t *testing.T) {
	e, store := newTestEngine(t)
	clientID := store.AddClient(&models.Client{FirstName: "Dana"})
	ctx := context.Background()

	cases := []struct {
		name  string
		input CreateRequestInput
	}{
		{"no items", CreateRequestInput{ClientID: clientID}},
		{"empty item name", CreateRequestInput{ClientID: clientID, Items: []RequestItemInput{{Name: ""}}}},
		{"unknown client", CreateRequestInput{ClientID: 999, Items: []RequestItemInput{{Name: "W-2"}}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := e.CreateRequest(ctx, tc.input); !errors.Is(err, ErrValidation) {
				t.Fatalf("want ErrValidation, got %v", err)
			}
		})
	}
}

func TestCreateRequestDefaults(t *testing.T) {
	e, store := newTestEngine(t)
	start := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return start }

	req := seedRequest(t, e, store, "W-2", "1099-NEC")

	if len(req.Token) != 64 {
		t.Fatalf("token length = %d, want 64", len(req.Token))
	}
	if req.Status != models.RequestStatusPending {
		t.Fatalf("status = %q, want pending", req.Status)
	}
	if want := start.AddDate(0, 0, 30); !req.ExpiresAt.Equal(want) {
		t.Fatalf("expires_at = %v, want %v", req.ExpiresAt, want)
	}
	for _, item := range req.Items {
		if item.Status != models.ItemStatusPending {
			t.Fatalf("item %q status = %q, want pending", item.Name, item.Status)
		}
	}
}

func TestGetRequestByTokenUnknown(t *testing.T) {
	e, _ := newTestEngine(t)
	if _, err := e.GetRequestByToken(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestUploadLifecycle(t *testing.T) {
	e, store := newTestEngine(t)
	ctx := context.Background()

	clientID := store.AddClient(&models.Client{FirstName: "Dana", Email: "dana@example.com"})
	taskID := store.AddTask(&models.Task{Title: "Collect documents", Status: models.TaskStatusOpen})
	req, err := e.CreateRequest(ctx, CreateRequestInput{
		ClientID:     clientID,
		Items:        []RequestItemInput{{Name: "W-2"}, {Name: "1099-NEC"}},
		CreatedByID:  1,
		LinkedTaskID: utils.Pointer(taskID),
	})
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}

	first, err := e.RecordUpload(ctx, req.Token, req.Items[0].ID, FileMeta{
		FileName:    "w2.pdf",
		MimeType:    "application/pdf",
		SizeBytes:   1024,
		StoragePath: "document-requests/1/1-w2.pdf",
	})
	if err != nil {
		t.Fatalf("first upload: %v", err)
	}
	if first.RequestStatus != models.RequestStatusPartiallyUploaded {
		t.Fatalf("after first upload status = %q, want partially_uploaded", first.RequestStatus)
	}
	if first.TaskCompleted {
		t.Fatal("task completed after partial upload")
	}
	if first.Item.Status != models.ItemStatusUploaded || first.Item.UploadedAt == nil {
		t.Fatalf("item not marked uploaded: %+v", first.Item)
	}

	second, err := e.RecordUpload(ctx, req.Token, req.Items[1].ID, FileMeta{
		FileName:    "1099.pdf",
		MimeType:    "application/pdf",
		SizeBytes:   2048,
		StoragePath: "document-requests/1/2-1099.pdf",
	})
	if err != nil {
		t.Fatalf("second upload: %v", err)
	}
	if second.RequestStatus != models.RequestStatusCompleted {
		t.Fatalf("after second upload status = %q, want completed", second.RequestStatus)
	}
	if !second.TaskCompleted {
		t.Fatal("linked task not completed when request completed")
	}
	if task := store.Tasks[taskID]; task.Status != models.TaskStatusCompleted || task.CompletedAt == nil {
		t.Fatalf("task row not updated: %+v", task)
	}

	if n := len(store.Documents); n != 2 {
		t.Fatalf("document count = %d, want 2", n)
	}
	for _, doc := range store.Documents {
		if doc.ClientID == nil || *doc.ClientID != clientID {
			t.Fatalf("document not linked to client: %+v", doc)
		}
		if doc.Category != "document_request" {
			t.Fatalf("document category = %q", doc.Category)
		}
	}

	var kinds []string
	for _, a := range store.Activities {
		kinds = append(kinds, a.Kind)
	}
	want := []string{
		models.ActivityDocumentUploaded,
		models.ActivityDocumentUploaded,
		models.ActivityRequestCompleted,
	}
	if len(kinds) != len(want) {
		t.Fatalf("activity kinds = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("activity kinds = %v, want %v", kinds, want)
		}
	}
}

func TestDoubleUploadConflict(t *testing.T) {
	e, store := newTestEngine(t)
	ctx := context.Background()
	req := seedRequest(t, e, store, "W-2")

	meta := FileMeta{FileName: "w2.pdf", MimeType: "application/pdf", SizeBytes: 100, StoragePath: "p/1"}
	if _, err := e.RecordUpload(ctx, req.Token, req.Items[0].ID, meta); err != nil {
		t.Fatalf("first upload: %v", err)
	}
	if _, err := e.RecordUpload(ctx, req.Token, req.Items[0].ID, meta); !errors.Is(err, ErrConflict) {
		t.Fatalf("want ErrConflict, got %v", err)
	}
	if n := len(store.Documents); n != 1 {
		t.Fatalf("document count = %d after losing upload, want 1", n)
	}
}

func TestUploadUnknownItem(t *testing.T) {
	e, store := newTestEngine(t)
	req := seedRequest(t, e, store, "W-2")

	_, err := e.RecordUpload(context.Background(), req.Token, 9999, FileMeta{FileName: "x.pdf"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestLazyExpiry(t *testing.T) {
	e, store := newTestEngine(t)
	ctx := context.Background()
	start := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return start }

	req := seedRequest(t, e, store, "W-2")

	// Jump past expires_at; the next read persists the transition.
	e.now = func() time.Time { return start.AddDate(0, 0, 31) }

	got, err := e.GetRequestByToken(ctx, req.Token)
	if err != nil {
		t.Fatalf("GetRequestByToken: %v", err)
	}
	if got.Status != models.RequestStatusExpired {
		t.Fatalf("status = %q, want expired", got.Status)
	}
	if stored := store.Requests[req.ID]; stored.Status != models.RequestStatusExpired {
		t.Fatalf("stored status = %q, expiry not persisted", stored.Status)
	}

	// Repeated reads stay expired without error.
	if again, err := e.GetRequestByToken(ctx, req.Token); err != nil || again.Status != models.RequestStatusExpired {
		t.Fatalf("second read: %v, status %q", err, again.Status)
	}

	// Uploads against an expired request are rejected.
	_, err = e.RecordUpload(ctx, req.Token, req.Items[0].ID, FileMeta{FileName: "w2.pdf"})
	if !errors.Is(err, ErrExpired) {
		t.Fatalf("want ErrExpired, got %v", err)
	}
	if n := len(store.Documents); n != 0 {
		t.Fatalf("document count = %d after expired upload, want 0", n)
	}
}

func TestDeriveStatus(t *testing.T) {
	up := models.DocumentRequestItem{Status: models.ItemStatusUploaded}
	pend := models.DocumentRequestItem{Status: models.ItemStatusPending}

	cases := []struct {
		name  string
		items []models.DocumentRequestItem
		want  string
	}{
		{"no items", nil, models.RequestStatusPending},
		{"none uploaded", []models.DocumentRequestItem{pend, pend}, models.RequestStatusPending},
		{"some uploaded", []models.DocumentRequestItem{up, pend}, models.RequestStatusPartiallyUploaded},
		{"all uploaded", []models.DocumentRequestItem{up, up}, models.RequestStatusCompleted},
		{"single uploaded", []models.DocumentRequestItem{up}, models.RequestStatusCompleted},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DeriveStatus(tc.items); got != tc.want {
				t.Fatalf("DeriveStatus = %q, want %q", got, tc.want)
			}
		})
	}
}
