package editing

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tooldepot/tooldepot-backend/internal/fields"
	"github.com/tooldepot/tooldepot-backend/internal/media"
	"github.com/tooldepot/tooldepot-backend/pkg/catalog"
	pkgerrors "github.com/tooldepot/tooldepot-backend/pkg/errors"
)

// Session is the in-memory state of one product edit: normalized structured
// fields, the wire shape each field held when loaded, opaque pass-through
// attributes, and the media tracker. Nothing here is persisted; discarding a
// session before save requires no cleanup.
type Session struct {
	ID        string
	ProductID int64
	CreatedAt time.Time

	Fields     map[string]fields.Canonical
	Shapes     map[string]fields.Shape
	Attributes map[string]json.RawMessage
	Media      *media.Tracker

	mu sync.Mutex
}

// NewSession opens a blank session for the product-create flow. Structured
// fields start empty and serialize as objects until a load says otherwise.
func NewSession() *Session {
	s := &Session{
		ID:         uuid.NewString(),
		CreatedAt:  time.Now(),
		Fields:     make(map[string]fields.Canonical),
		Shapes:     make(map[string]fields.Shape),
		Attributes: make(map[string]json.RawMessage),
		Media:      media.NewTracker(),
	}
	for _, name := range catalog.StructuredFieldNames() {
		s.Fields[name] = fields.Canonical{}
		s.Shapes[name] = fields.ShapeObject
	}
	return s
}

// NewSessionFromProduct opens a session seeded from a loaded product record.
func NewSessionFromProduct(product *catalog.RawProduct) *Session {
	s := NewSession()
	s.ProductID = product.ID
	s.applyProduct(product)
	return s
}

// RefreshFrom re-seeds field and media state from a refetched product,
// keeping the session usable after a successful save. Removal IDs whose
// delete is still outstanding carry over so the next save retries them.
func (s *Session) RefreshFrom(product *catalog.RawProduct) {
	pending := s.Media.RemovalQueue()
	s.ProductID = product.ID
	s.applyProduct(product)
	s.Media.CarryRemovals(pending)
}

func (s *Session) applyProduct(product *catalog.RawProduct) {
	for _, name := range catalog.StructuredFieldNames() {
		raw := product.Fields[name]
		s.Fields[name] = fields.Normalize(raw)
		s.Shapes[name] = fields.DetectShape(raw)
	}

	s.Attributes = make(map[string]json.RawMessage, len(product.Attributes))
	for key, value := range product.Attributes {
		s.Attributes[key] = value
	}

	persisted := make([]media.PersistedMedia, 0, len(product.Media))
	for _, entry := range product.Media {
		persisted = append(persisted, media.PersistedMedia{
			ID:           entry.ID,
			URL:          entry.URL,
			DisplayOrder: entry.DisplayOrder,
		})
	}
	s.Media = media.Restore(persisted)
}

// SetField replaces the canonical pairs of one structured field.
func (s *Session) SetField(name string, pairs fields.Canonical) error {
	if _, ok := s.Fields[name]; !ok {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown structured field").
			WithDetails(map[string]any{"field": name})
	}
	s.Fields[name] = pairs.Clone()
	return nil
}

// SetAttribute stores an opaque pass-through attribute on the session.
func (s *Session) SetAttribute(name string, value json.RawMessage) error {
	if _, structured := s.Fields[name]; structured {
		return pkgerrors.New(pkgerrors.CodeValidation, "structured fields must be set through the fields endpoint").
			WithDetails(map[string]any{"field": name})
	}
	if name == "id" || name == "media" {
		return pkgerrors.New(pkgerrors.CodeValidation, "attribute is managed by the session").
			WithDetails(map[string]any{"field": name})
	}
	s.Attributes[name] = value
	return nil
}

func (s *Session) lock() {
	s.mu.Lock()
}

func (s *Session) unlock() {
	s.mu.Unlock()
}
