package media

import (
	"strconv"

	"github.com/google/uuid"
)

// Origin tells where a media item came from within an edit session.
type Origin string

const (
	OriginPersisted     Origin = "persisted"
	OriginPendingUpload Origin = "pending_upload"
	OriginExternalURL   Origin = "external_url"
)

const localRefPrefix = "local-"

// LocalFile is an in-memory file the user selected for upload. Two files
// with the same name are two distinct items; nothing deduplicates them.
type LocalFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// Item is one product image tracked through an edit session.
type Item struct {
	// ID is the stable identifier issued by the media service. Zero until
	// the item has been uploaded and promoted.
	ID int64 `json:"id"`
	// Ref is the session-local handle used by remove/reorder operations:
	// the numeric ID for persisted items, a generated placeholder otherwise.
	// Placeholder refs are never sent to the backend as identifiers.
	Ref          string `json:"ref"`
	URL          string `json:"url"`
	Origin       Origin `json:"origin"`
	DisplayOrder int    `json:"display_order"`

	// File holds the payload for pending uploads only.
	File *LocalFile `json:"-"`
}

// PersistedMedia seeds the tracker from a loaded product record.
type PersistedMedia struct {
	ID           int64
	URL          string
	DisplayOrder int
}

func newLocalRef() string {
	return localRefPrefix + uuid.NewString()
}

func persistedRef(id int64) string {
	return strconv.FormatInt(id, 10)
}
