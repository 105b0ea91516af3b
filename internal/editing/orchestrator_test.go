package editing

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/tooldepot/tooldepot-backend/internal/media"
	"github.com/tooldepot/tooldepot-backend/pkg/catalog"
	pkgerrors "github.com/tooldepot/tooldepot-backend/pkg/errors"
	"github.com/tooldepot/tooldepot-backend/pkg/logger"
	"github.com/tooldepot/tooldepot-backend/pkg/mediastore"
)

type stubUploader struct {
	mu     sync.Mutex
	nextID int64
	calls  []string
	fail   map[string]bool
}

func (s *stubUploader) UploadFile(_ context.Context, name, _ string, _ []byte) (*mediastore.UploadedFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, name)
	if s.fail[name] {
		return nil, errors.New("upload rejected")
	}
	s.nextID++
	return &mediastore.UploadedFile{ID: 100 + s.nextID, URL: "https://cdn.example/" + name}, nil
}

func (s *stubUploader) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type stubDeleter struct {
	calls [][]int64
	err   error
}

func (s *stubDeleter) DeleteFiles(_ context.Context, ids []int64) error {
	s.calls = append(s.calls, ids)
	return s.err
}

type stubCatalog struct {
	getCalls    int
	createCalls int
	updateCalls int
	product     *catalog.RawProduct
	lastPayload catalog.ProductPayload
	persistErr  error
}

func (s *stubCatalog) GetProductByID(_ context.Context, _ int64) (*catalog.RawProduct, error) {
	s.getCalls++
	return s.product, nil
}

func (s *stubCatalog) CreateProduct(_ context.Context, payload catalog.ProductPayload) (*catalog.RawProduct, error) {
	s.createCalls++
	s.lastPayload = payload
	if s.persistErr != nil {
		return nil, s.persistErr
	}
	return s.product, nil
}

func (s *stubCatalog) UpdateProduct(_ context.Context, _ int64, payload catalog.ProductPayload) (*catalog.RawProduct, error) {
	s.updateCalls++
	s.lastPayload = payload
	if s.persistErr != nil {
		return nil, s.persistErr
	}
	return s.product, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func storedProduct(id int64) *catalog.RawProduct {
	return &catalog.RawProduct{
		ID: id,
		Media: []catalog.MediaEntry{
			{ID: 7, URL: "https://cdn.example/7.png", FileType: catalog.MediaFileTypeImage, EntityType: catalog.MediaEntityProduct, DisplayOrder: 0},
		},
		Fields: map[string]json.RawMessage{
			catalog.FieldTechnicalData: json.RawMessage(`{"Voltage":"120V"}`),
		},
		Attributes: map[string]json.RawMessage{
			"name": json.RawMessage(`"Impact Driver"`),
		},
	}
}

func newTestOrchestrator(t *testing.T, uploads *stubUploader, deleter *stubDeleter, cat *stubCatalog) *Orchestrator {
	t.Helper()
	orch, err := NewOrchestrator(uploads, deleter, cat, testLogger(), nil, 2)
	if err != nil {
		t.Fatalf("NewOrchestrator: %v", err)
	}
	return orch
}

func TestSaveUploadFailureAbortsBeforeDeleteAndPersist(t *testing.T) {
	t.Parallel()

	uploads := &stubUploader{fail: map[string]bool{"bad.png": true}}
	deleter := &stubDeleter{}
	cat := &stubCatalog{product: storedProduct(42)}
	orch := newTestOrchestrator(t, uploads, deleter, cat)

	session := NewSessionFromProduct(storedProduct(42))
	if err := session.Media.Remove("7"); err != nil {
		t.Fatalf("remove persisted: %v", err)
	}
	session.Media.AddLocalFiles([]media.LocalFile{
		{Name: "good.png", ContentType: "image/png", Data: []byte("a")},
		{Name: "bad.png", ContentType: "image/png", Data: []byte("b")},
	})

	_, err := orch.Save(context.Background(), session)
	if err == nil {
		t.Fatal("expected upload failure")
	}
	if code := pkgerrors.As(err).Code(); code != pkgerrors.CodeUploadFailed {
		t.Fatalf("expected upload failed code got %v", code)
	}

	// Both uploads must have been attempted despite one failing.
	if got := uploads.callCount(); got != 2 {
		t.Fatalf("expected 2 upload attempts got %d", got)
	}
	// The save aborted before deletions and persistence.
	if len(deleter.calls) != 0 {
		t.Fatalf("expected no delete calls got %d", len(deleter.calls))
	}
	if cat.updateCalls != 0 || cat.createCalls != 0 {
		t.Fatalf("expected no persist calls got update=%d create=%d", cat.updateCalls, cat.createCalls)
	}

	details, ok := pkgerrors.As(err).Details().(map[string]any)
	if !ok {
		t.Fatalf("expected details map, got %T", pkgerrors.As(err).Details())
	}
	failed, ok := details["failed_files"].([]string)
	if !ok || len(failed) != 1 || failed[0] != "bad.png" {
		t.Fatalf("expected only bad.png in failed files, got %v", details["failed_files"])
	}

	// The successful upload stays promoted so a retry only re-sends the failure.
	plan := session.Media.Plan()
	if len(plan.ToUpload) != 1 || plan.ToUpload[0].File.Name != "bad.png" {
		t.Fatalf("expected retry plan with only bad.png, got %+v", plan.ToUpload)
	}
}

func TestSaveDeleteFailureIsBestEffort(t *testing.T) {
	t.Parallel()

	uploads := &stubUploader{}
	deleter := &stubDeleter{err: errors.New("media service down")}
	cat := &stubCatalog{product: storedProduct(42)}
	orch := newTestOrchestrator(t, uploads, deleter, cat)

	session := NewSessionFromProduct(storedProduct(42))
	if err := session.Media.Remove("7"); err != nil {
		t.Fatalf("remove persisted: %v", err)
	}

	refreshed, err := orch.Save(context.Background(), session)
	if err != nil {
		t.Fatalf("save should succeed despite delete failure: %v", err)
	}
	if refreshed == nil || refreshed.ID != 42 {
		t.Fatalf("expected refetched product, got %+v", refreshed)
	}

	if len(deleter.calls) != 1 {
		t.Fatalf("expected one delete attempt got %d", len(deleter.calls))
	}
	if cat.updateCalls != 1 {
		t.Fatalf("expected one update call got %d", cat.updateCalls)
	}
	if cat.getCalls != 1 {
		t.Fatalf("expected one refetch got %d", cat.getCalls)
	}

	// The queue survives so the next save retries the same deletion.
	if queue := session.Media.RemovalQueue(); len(queue) != 1 || queue[0] != 7 {
		t.Fatalf("expected removal queue to keep id 7, got %v", queue)
	}
}

func TestSaveClearsRemovalsAfterSuccessfulDelete(t *testing.T) {
	t.Parallel()

	uploads := &stubUploader{}
	deleter := &stubDeleter{}
	cat := &stubCatalog{product: storedProduct(42)}
	orch := newTestOrchestrator(t, uploads, deleter, cat)

	session := NewSessionFromProduct(storedProduct(42))
	if err := session.Media.Remove("7"); err != nil {
		t.Fatalf("remove persisted: %v", err)
	}

	if _, err := orch.Save(context.Background(), session); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if queue := session.Media.RemovalQueue(); len(queue) != 0 {
		t.Fatalf("expected empty removal queue got %v", queue)
	}
}

func TestSaveCreatesWhenSessionHasNoProduct(t *testing.T) {
	t.Parallel()

	uploads := &stubUploader{}
	deleter := &stubDeleter{}
	cat := &stubCatalog{product: storedProduct(9)}
	orch := newTestOrchestrator(t, uploads, deleter, cat)

	session := NewSession()
	session.Media.AddLocalFiles([]media.LocalFile{
		{Name: "hero.png", ContentType: "image/png", Data: []byte("x")},
	})

	refreshed, err := orch.Save(context.Background(), session)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if cat.createCalls != 1 || cat.updateCalls != 0 {
		t.Fatalf("expected create path, got create=%d update=%d", cat.createCalls, cat.updateCalls)
	}
	if refreshed.ID != 9 {
		t.Fatalf("expected refetched id 9 got %d", refreshed.ID)
	}

	if len(cat.lastPayload.Media) != 1 {
		t.Fatalf("expected one media entry got %+v", cat.lastPayload.Media)
	}
	entry := cat.lastPayload.Media[0]
	if entry.ID != 101 || entry.DisplayOrder != 0 {
		t.Fatalf("unexpected media entry %+v", entry)
	}
}

func TestSavePayloadRenumbersDisplayOrderDensely(t *testing.T) {
	t.Parallel()

	uploads := &stubUploader{}
	deleter := &stubDeleter{}
	product := &catalog.RawProduct{
		ID: 42,
		Media: []catalog.MediaEntry{
			{ID: 1, URL: "https://cdn.example/1.png", DisplayOrder: 0},
			{ID: 2, URL: "https://cdn.example/2.png", DisplayOrder: 1},
			{ID: 3, URL: "https://cdn.example/3.png", DisplayOrder: 2},
		},
		Fields:     map[string]json.RawMessage{},
		Attributes: map[string]json.RawMessage{},
	}
	cat := &stubCatalog{product: product}
	orch := newTestOrchestrator(t, uploads, deleter, cat)

	session := NewSessionFromProduct(product)
	if err := session.Media.Remove("2"); err != nil {
		t.Fatalf("remove: %v", err)
	}

	if _, err := orch.Save(context.Background(), session); err != nil {
		t.Fatalf("Save: %v", err)
	}

	entries := cat.lastPayload.Media
	if len(entries) != 2 {
		t.Fatalf("expected two entries got %d", len(entries))
	}
	for idx, entry := range entries {
		if entry.DisplayOrder != idx {
			t.Fatalf("expected dense display order, got %+v", entries)
		}
	}
	if entries[0].ID != 1 || entries[1].ID != 3 {
		t.Fatalf("unexpected surviving entries %+v", entries)
	}
}

func TestSavePersistFailureCode(t *testing.T) {
	t.Parallel()

	uploads := &stubUploader{}
	deleter := &stubDeleter{}
	cat := &stubCatalog{product: storedProduct(42), persistErr: errors.New("catalog rejected")}
	orch := newTestOrchestrator(t, uploads, deleter, cat)

	session := NewSessionFromProduct(storedProduct(42))
	_, err := orch.Save(context.Background(), session)
	if err == nil {
		t.Fatal("expected persist failure")
	}
	if code := pkgerrors.As(err).Code(); code != pkgerrors.CodePersistFailed {
		t.Fatalf("expected persist failed code got %v", code)
	}
	if cat.getCalls != 0 {
		t.Fatal("refetch must not run after a persist failure")
	}
}
