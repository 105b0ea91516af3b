package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tooldepot/tooldepot-backend/internal/editing"
	"github.com/tooldepot/tooldepot-backend/internal/fields"
	"github.com/tooldepot/tooldepot-backend/internal/media"
	"github.com/tooldepot/tooldepot-backend/pkg/config"
	pkgerrors "github.com/tooldepot/tooldepot-backend/pkg/errors"
	"github.com/tooldepot/tooldepot-backend/pkg/logger"
)

type stubPinger struct {
	err error
}

func (s stubPinger) Ping(context.Context) error {
	return s.err
}

type stubEditingService struct {
	view        *editing.SessionView
	err         error
	lastSession string
	lastField   string
	lastRefs    []string
	fileCount   int
}

func (s *stubEditingService) OpenForProduct(_ context.Context, _ int64) (*editing.SessionView, error) {
	return s.view, s.err
}

func (s *stubEditingService) OpenBlank(context.Context) (*editing.SessionView, error) {
	return s.view, s.err
}

func (s *stubEditingService) Get(_ context.Context, sessionID string) (*editing.SessionView, error) {
	s.lastSession = sessionID
	return s.view, s.err
}

func (s *stubEditingService) Discard(_ context.Context, sessionID string) error {
	s.lastSession = sessionID
	return s.err
}

func (s *stubEditingService) SetField(_ context.Context, sessionID, field string, _ fields.Canonical) (*editing.SessionView, error) {
	s.lastSession = sessionID
	s.lastField = field
	return s.view, s.err
}

func (s *stubEditingService) SetAttribute(_ context.Context, sessionID, name string, _ json.RawMessage) (*editing.SessionView, error) {
	s.lastSession = sessionID
	s.lastField = name
	return s.view, s.err
}

func (s *stubEditingService) AddMediaFiles(_ context.Context, sessionID string, files []media.LocalFile) (*editing.SessionView, error) {
	s.lastSession = sessionID
	s.fileCount = len(files)
	return s.view, s.err
}

func (s *stubEditingService) AddMediaURL(_ context.Context, sessionID, _ string) (*editing.SessionView, error) {
	s.lastSession = sessionID
	return s.view, s.err
}

func (s *stubEditingService) RemoveMedia(_ context.Context, sessionID, _ string) (*editing.SessionView, error) {
	s.lastSession = sessionID
	return s.view, s.err
}

func (s *stubEditingService) ReorderMedia(_ context.Context, sessionID string, refs []string) (*editing.SessionView, error) {
	s.lastSession = sessionID
	s.lastRefs = refs
	return s.view, s.err
}

func (s *stubEditingService) Save(_ context.Context, sessionID string) (*editing.SessionView, error) {
	s.lastSession = sessionID
	return s.view, s.err
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		MediaStore: config.MediaStoreConfig{
			MaxUploadMB: 1,
		},
	}
}

func newTestRouter(svc editing.Service, catalogErr error) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	return NewRouter(testConfig(), logg, stubPinger{err: catalogErr}, stubPinger{}, svc, nil)
}

func TestHealthLive(t *testing.T) {
	t.Parallel()

	router := newTestRouter(&stubEditingService{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w.Code)
	}
}

func TestHealthReadyFailsWhenDependencyDown(t *testing.T) {
	t.Parallel()

	router := newTestRouter(&stubEditingService{}, errors.New("catalog down"))
	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", w.Code)
	}
}

func TestOpenProductSessionValidatesID(t *testing.T) {
	t.Parallel()

	router := newTestRouter(&stubEditingService{}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/products/not-a-number/edit-session", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", w.Code)
	}
}

func TestOpenProductSessionReturnsCreated(t *testing.T) {
	t.Parallel()

	svc := &stubEditingService{view: &editing.SessionView{SessionID: "sess-1"}}
	router := newTestRouter(svc, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/products/42/edit-session", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "sess-1") {
		t.Fatalf("expected session id in response, got %s", w.Body.String())
	}
}

func TestUpdateSessionFieldRoutesParams(t *testing.T) {
	t.Parallel()

	svc := &stubEditingService{view: &editing.SessionView{SessionID: "sess-1"}}
	router := newTestRouter(svc, nil)

	body := bytes.NewBufferString(`{"pairs": [{"key": "Voltage", "value": "120V"}]}`)
	req := httptest.NewRequest(http.MethodPut, "/api/v1/edit-sessions/sess-1/fields/technicalData", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", w.Code, w.Body.String())
	}
	if svc.lastSession != "sess-1" || svc.lastField != "technicalData" {
		t.Fatalf("unexpected routing session=%s field=%s", svc.lastSession, svc.lastField)
	}
}

func TestUpdateSessionFieldRejectsUnknownKeys(t *testing.T) {
	t.Parallel()

	router := newTestRouter(&stubEditingService{}, nil)
	body := bytes.NewBufferString(`{"rows": []}`)
	req := httptest.NewRequest(http.MethodPut, "/api/v1/edit-sessions/sess-1/fields/technicalData", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", w.Code)
	}
}

func TestAddSessionMediaFilesMultipart(t *testing.T) {
	t.Parallel()

	svc := &stubEditingService{view: &editing.SessionView{SessionID: "sess-1"}}
	router := newTestRouter(svc, nil)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("files", "drill.png")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte("fake-png")); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/edit-sessions/sess-1/media/files", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", w.Code, w.Body.String())
	}
	if svc.fileCount != 1 {
		t.Fatalf("expected one staged file got %d", svc.fileCount)
	}
}

func TestReorderSessionMediaPassesRefs(t *testing.T) {
	t.Parallel()

	svc := &stubEditingService{view: &editing.SessionView{SessionID: "sess-1"}}
	router := newTestRouter(svc, nil)

	body := bytes.NewBufferString(`{"refs": ["3", "1", "2"]}`)
	req := httptest.NewRequest(http.MethodPut, "/api/v1/edit-sessions/sess-1/media/order", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", w.Code, w.Body.String())
	}
	if len(svc.lastRefs) != 3 || svc.lastRefs[0] != "3" {
		t.Fatalf("unexpected refs %v", svc.lastRefs)
	}
}

func TestSessionNotFoundMapsTo404(t *testing.T) {
	t.Parallel()

	svc := &stubEditingService{err: pkgerrors.New(pkgerrors.CodeNotFound, "edit session not found")}
	router := newTestRouter(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/edit-sessions/missing", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", w.Code)
	}
}

func TestSaveSessionUploadFailureMapsTo502(t *testing.T) {
	t.Parallel()

	svc := &stubEditingService{err: pkgerrors.New(pkgerrors.CodeUploadFailed, "media upload failed")}
	router := newTestRouter(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/edit-sessions/sess-1/save", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 got %d", w.Code)
	}
}
