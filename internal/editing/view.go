package editing

import (
	"encoding/json"
	"time"

	"github.com/tooldepot/tooldepot-backend/internal/fields"
	"github.com/tooldepot/tooldepot-backend/internal/media"
)

// MediaView is the API-facing projection of one tracked media item.
type MediaView struct {
	Ref          string `json:"ref"`
	URL          string `json:"url"`
	Origin       string `json:"origin"`
	DisplayOrder int    `json:"displayOrder"`
	Principal    bool   `json:"principal"`
}

// FieldView pairs a field's canonical rows with the wire shape it will
// serialize back to.
type FieldView struct {
	Pairs fields.Canonical `json:"pairs"`
	Shape fields.Shape     `json:"shape"`
}

// SessionView is the read model handed to API callers after every session
// operation.
type SessionView struct {
	SessionID  string                     `json:"sessionId"`
	ProductID  int64                      `json:"productId,omitempty"`
	CreatedAt  time.Time                  `json:"createdAt"`
	Fields     map[string]FieldView       `json:"fields"`
	Attributes map[string]json.RawMessage `json:"attributes"`
	Media      []MediaView                `json:"media"`
	Removals   []int64                    `json:"pendingRemovals,omitempty"`
}

// NewSessionView snapshots a session for API responses.
func NewSessionView(session *Session) *SessionView {
	view := &SessionView{
		SessionID:  session.ID,
		ProductID:  session.ProductID,
		CreatedAt:  session.CreatedAt,
		Fields:     make(map[string]FieldView, len(session.Fields)),
		Attributes: make(map[string]json.RawMessage, len(session.Attributes)),
		Media:      make([]MediaView, 0),
		Removals:   session.Media.RemovalQueue(),
	}

	for name, pairs := range session.Fields {
		view.Fields[name] = FieldView{
			Pairs: pairs.Clone(),
			Shape: session.Shapes[name],
		}
	}
	for key, value := range session.Attributes {
		view.Attributes[key] = value
	}
	for idx, item := range session.Media.Visible() {
		view.Media = append(view.Media, mediaView(item, idx == 0))
	}
	return view
}

func mediaView(item media.Item, principal bool) MediaView {
	return MediaView{
		Ref:          item.Ref,
		URL:          item.URL,
		Origin:       string(item.Origin),
		DisplayOrder: item.DisplayOrder,
		Principal:    principal,
	}
}
