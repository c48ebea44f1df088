package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"taxnexy/engine"
	"taxnexy/models"
)

type memStorage struct {
	mu      sync.Mutex
	Objects map[string][]byte
	SaveErr error
}

func newMemStorage() *memStorage {
	return &memStorage{Objects: make(map[string][]byte)}
}

func (m *memStorage) Save(ctx context.Context, key, contentType string, r io.Reader) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Objects[key] = data
	return nil
}

func (m *memStorage) PresignGet(ctx context.Context, key string, expires time.Duration) (string, error) {
	return "https://example.com/" + key, nil
}

func (m *memStorage) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Objects, key)
	return nil
}

func newUploadApp(t *testing.T) (*fiber.App, *engine.Engine, *engine.MemoryStore, *memStorage) {
	t.Helper()
	store := engine.NewMemoryStore()
	eng := engine.NewEngine(store, log.New(io.Discard, "", 0))
	storage := newMemStorage()

	uc := NewUploadController(eng, storage, log.New(io.Discard, "", 0))
	app := fiber.New()
	app.Get("/r/:token", uc.GetRequestStatus)
	app.Post("/r/:token/items/:itemID", uc.UploadItem)
	return app, eng, store, storage
}

func seedUploadRequest(t *testing.T, eng *engine.Engine, store *engine.MemoryStore) *models.DocumentRequest {
	t.Helper()
	clientID := store.AddClient(&models.Client{FirstName: "Dana", Email: "dana@example.com"})
	req, err := eng.CreateRequest(context.Background(), engine.CreateRequestInput{
		ClientID:    clientID,
		Items:       []engine.RequestItemInput{{Name: "W-2"}, {Name: "1099-NEC"}},
		CreatedByID: 1,
	})
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	return req
}

func multipartFile(t *testing.T, fieldName, fileName, contentType string, payload []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, fieldName, fileName))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		t.Fatalf("CreatePart: %v", err)
	}
	if _, err := part.Write(payload); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &body, w.FormDataContentType()
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return out
}

func TestGetRequestStatusUnknownToken(t *testing.T) {
	app, _, _, _ := newUploadApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/r/deadbeef", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestGetRequestStatus(t *testing.T) {
	app, eng, store, _ := newUploadApp(t)
	req := seedUploadRequest(t, eng, store)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/r/"+req.Token, nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	body := decodeBody(t, resp)
	if body["status"] != models.RequestStatusPending {
		t.Fatalf("status field = %v", body["status"])
	}
	if body["clientFirstName"] != "Dana" {
		t.Fatalf("clientFirstName = %v", body["clientFirstName"])
	}
	if items := body["items"].([]interface{}); len(items) != 2 {
		t.Fatalf("items = %v", items)
	}
}

func TestGetRequestStatusExpired(t *testing.T) {
	app, eng, store, _ := newUploadApp(t)
	req := seedUploadRequest(t, eng, store)
	store.Requests[req.ID].ExpiresAt = time.Now().UTC().Add(-time.Hour)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/r/"+req.Token, nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusGone {
		t.Fatalf("status = %d, want 410", resp.StatusCode)
	}
	if body := decodeBody(t, resp); body["status"] != models.RequestStatusExpired {
		t.Fatalf("body = %v", body)
	}
}

func TestUploadItem(t *testing.T) {
	app, eng, store, storage := newUploadApp(t)
	req := seedUploadRequest(t, eng, store)

	body, contentType := multipartFile(t, "file", "w2.pdf", "application/pdf", []byte("%PDF-1.4 test"))
	httpReq := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/r/%s/items/%d", req.Token, req.Items[0].ID), body)
	httpReq.Header.Set("Content-Type", contentType)

	resp, err := app.Test(httpReq)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	out := decodeBody(t, resp)
	if out["allComplete"] != false {
		t.Fatalf("allComplete = %v, want false with one item left", out["allComplete"])
	}
	if out["fileName"] != "w2.pdf" {
		t.Fatalf("fileName = %v", out["fileName"])
	}
	if len(storage.Objects) != 1 {
		t.Fatalf("stored objects = %d, want 1", len(storage.Objects))
	}

	// Second item completes the request.
	body, contentType = multipartFile(t, "file", "1099.png", "image/png", []byte("png-bytes"))
	httpReq = httptest.NewRequest(http.MethodPost, fmt.Sprintf("/r/%s/items/%d", req.Token, req.Items[1].ID), body)
	httpReq.Header.Set("Content-Type", contentType)

	resp, err = app.Test(httpReq)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if out := decodeBody(t, resp); out["allComplete"] != true {
		t.Fatalf("allComplete = %v, want true", out["allComplete"])
	}
}

func TestUploadItemRejectsBadType(t *testing.T) {
	app, eng, store, storage := newUploadApp(t)
	req := seedUploadRequest(t, eng, store)

	body, contentType := multipartFile(t, "file", "virus.exe", "application/x-msdownload", []byte("MZ"))
	httpReq := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/r/%s/items/%d", req.Token, req.Items[0].ID), body)
	httpReq.Header.Set("Content-Type", contentType)

	resp, err := app.Test(httpReq)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if len(storage.Objects) != 0 {
		t.Fatal("rejected file reached storage")
	}
}

func TestUploadItemUnknownItem(t *testing.T) {
	app, eng, store, _ := newUploadApp(t)
	req := seedUploadRequest(t, eng, store)

	body, contentType := multipartFile(t, "file", "w2.pdf", "application/pdf", []byte("x"))
	httpReq := httptest.NewRequest(http.MethodPost, "/r/"+req.Token+"/items/9999", body)
	httpReq.Header.Set("Content-Type", contentType)

	resp, err := app.Test(httpReq)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestUploadItemConflict(t *testing.T) {
	app, eng, store, storage := newUploadApp(t)
	req := seedUploadRequest(t, eng, store)

	for i := 0; i < 2; i++ {
		body, contentType := multipartFile(t, "file", "w2.pdf", "application/pdf", []byte("x"))
		httpReq := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/r/%s/items/%d", req.Token, req.Items[0].ID), body)
		httpReq.Header.Set("Content-Type", contentType)

		resp, err := app.Test(httpReq)
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		want := http.StatusOK
		if i == 1 {
			want = http.StatusConflict
		}
		if resp.StatusCode != want {
			t.Fatalf("attempt %d status = %d, want %d", i, resp.StatusCode, want)
		}
	}
	if len(storage.Objects) != 1 {
		t.Fatalf("stored objects = %d, want 1 after conflict", len(storage.Objects))
	}
}

func TestUploadItemExpired(t *testing.T) {
	app, eng, store, _ := newUploadApp(t)
	req := seedUploadRequest(t, eng, store)
	store.Requests[req.ID].ExpiresAt = time.Now().UTC().Add(-time.Hour)

	body, contentType := multipartFile(t, "file", "w2.pdf", "application/pdf", []byte("x"))
	httpReq := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/r/%s/items/%d", req.Token, req.Items[0].ID), body)
	httpReq.Header.Set("Content-Type", contentType)

	resp, err := app.Test(httpReq)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusGone {
		t.Fatalf("status = %d, want 410", resp.StatusCode)
	}
}
