package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bestlist/vitara-core/internal/core"
	"github.com/bestlist/vitara-core/internal/models"
)

// stubClient answers fetches from a canned page and accepts all mutations.
type stubClient struct {
	page []models.Record
}

func (s *stubClient) CreateRecord(ctx context.Context, payload json.RawMessage) (*models.Record, error) {
	return &models.Record{ID: "srv_1", Name: "Confirmed"}, nil
}
func (s *stubClient) UpdateRecord(ctx context.Context, payload json.RawMessage) (*models.Record, error) {
	return nil, nil
}
func (s *stubClient) DeleteRecord(ctx context.Context, payload json.RawMessage) error { return nil }
func (s *stubClient) CreatePost(ctx context.Context, payload json.RawMessage) (*models.Record, error) {
	return nil, nil
}
func (s *stubClient) UpdateProfile(ctx context.Context, payload json.RawMessage) error { return nil }
func (s *stubClient) CreateList(ctx context.Context, payload json.RawMessage) error    { return nil }
func (s *stubClient) FetchPage(ctx context.Context, domain string, limit, offset int) ([]models.Record, error) {
	if offset >= len(s.page) {
		return nil, nil
	}
	end := offset + limit
	if end > len(s.page) {
		end = len(s.page)
	}
	return s.page[offset:end], nil
}

func newTestApp(t *testing.T) *core.Core {
	t.Helper()
	page := make([]models.Record, 5)
	for i := range page {
		page[i] = models.Record{ID: fmt.Sprintf("rec_%d", i), Name: fmt.Sprintf("Item %d", i)}
	}

	app, err := core.New(core.Config{
		DataDir: t.TempDir(),
		Backend: core.BackendMemory,
		UserID:  "u1",
	}, &stubClient{page: page})
	if err != nil {
		t.Fatalf("core.New failed: %v", err)
	}
	t.Cleanup(func() { app.Close() })
	return app
}

func TestHandleDomainRead(t *testing.T) {
	app := newTestApp(t)
	handler := HandleDomainRead(app)

	req := httptest.NewRequest(http.MethodGet, "/api/domains/read?key=feed:main", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Domain string             `json:"domain"`
		Entry  *models.CacheEntry `json:"entry"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if body.Domain != "feed:main" || body.Entry == nil || len(body.Entry.Records) != 5 {
		t.Errorf("unexpected body: %+v", body)
	}
}

func TestHandleDomainReadValidation(t *testing.T) {
	app := newTestApp(t)
	handler := HandleDomainRead(app)

	req := httptest.NewRequest(http.MethodGet, "/api/domains/read", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing key should 400, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/domains/read?key=feed:main", nil)
	rec = httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST should 405, got %d", rec.Code)
	}
}

func TestHandleRecordCreateReturnsPlaceholder(t *testing.T) {
	app := newTestApp(t)
	handler := HandleRecordCreate(app)

	body := strings.NewReader(`{"name":"Tacos","rating":5}`)
	req := httptest.NewRequest(http.MethodPost, "/api/records", body)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var record models.Record
	json.Unmarshal(rec.Body.Bytes(), &record)
	if !strings.HasPrefix(record.ID, "offline_") {
		t.Errorf("expected offline placeholder id, got %q", record.ID)
	}
	if !record.PendingSync {
		t.Error("placeholder must be marked pending")
	}

	// The mutation landed in the durable queue.
	if app.Queue().Len() == 0 {
		t.Error("create did not enqueue a mutation")
	}
}

func TestHandleRecordCreateRejectsEmptyName(t *testing.T) {
	app := newTestApp(t)
	handler := HandleRecordCreate(app)

	req := httptest.NewRequest(http.MethodPost, "/api/records", strings.NewReader(`{"rating":3}`))
	rec := httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty name should 400, got %d", rec.Code)
	}
}

func TestHandleQueueStatus(t *testing.T) {
	app := newTestApp(t)

	app.CreateRecord(core.RecordInput{Name: "Tacos", Rating: 5})

	req := httptest.NewRequest(http.MethodGet, "/api/queue/status", nil)
	rec := httptest.NewRecorder()
	HandleQueueStatus(app)(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var status models.QueueStatus
	json.Unmarshal(rec.Body.Bytes(), &status)
	if status.PendingItems != 1 {
		t.Errorf("expected 1 pending item, got %d", status.PendingItems)
	}
}

func TestHandleSyncNowDrainsQueue(t *testing.T) {
	app := newTestApp(t)
	app.CreateRecord(core.RecordInput{Name: "Tacos", Rating: 5})

	req := httptest.NewRequest(http.MethodPost, "/api/sync", nil)
	rec := httptest.NewRecorder()
	HandleSyncNow(app)(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var result models.SyncResult
	json.Unmarshal(rec.Body.Bytes(), &result)
	if result.Success != 1 {
		t.Errorf("expected 1 synced item, got %+v", result)
	}
	if app.Queue().Len() != 0 {
		t.Error("queue not drained")
	}
}

func TestHandleConnectivity(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/api/connectivity?online=0&active=1", nil)
	rec := httptest.NewRecorder()
	HandleConnectivity(app)(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if app.Monitor().IsOnline() {
		t.Error("online flag not applied")
	}

	req = httptest.NewRequest(http.MethodPost, "/api/connectivity?online=banana", nil)
	rec = httptest.NewRecorder()
	HandleConnectivity(app)(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid flag should 400, got %d", rec.Code)
	}
}

func TestHandleRecordDelete(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(http.MethodDelete, "/api/records?id=rec_1", nil)
	rec := httptest.NewRecorder()
	HandleRecordDelete(app)(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d", rec.Code)
	}
	if app.Queue().Len() != 1 {
		t.Error("delete did not enqueue a mutation")
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/records", nil)
	rec = httptest.NewRecorder()
	HandleRecordDelete(app)(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing id should 400, got %d", rec.Code)
	}
}
