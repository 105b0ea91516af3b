package media

import (
	"net/url"
	"path"
	"sort"
	"strconv"
	"strings"

	pkgerrors "github.com/tooldepot/tooldepot-backend/pkg/errors"
)

var allowedImageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".webp": {},
	".gif":  {},
}

// Tracker holds the media state of one edit session: the ordered visible
// items plus the queue of persisted IDs awaiting deletion. It performs no
// I/O; the save orchestrator consumes its reconciliation plan.
type Tracker struct {
	items        []Item
	removalQueue []int64
}

// NewTracker returns an empty tracker for a fresh product.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Restore seeds the tracker from the media already persisted on a product.
func Restore(entries []PersistedMedia) *Tracker {
	sorted := make([]PersistedMedia, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].DisplayOrder < sorted[j].DisplayOrder
	})

	t := &Tracker{items: make([]Item, 0, len(sorted))}
	for idx, entry := range sorted {
		t.items = append(t.items, Item{
			ID:           entry.ID,
			Ref:          persistedRef(entry.ID),
			URL:          entry.URL,
			Origin:       OriginPersisted,
			DisplayOrder: idx,
		})
	}
	return t
}

// Visible returns the items currently shown, in display order.
func (t *Tracker) Visible() []Item {
	out := make([]Item, len(t.items))
	copy(out, t.items)
	return out
}

// Principal returns the item with the lowest display order, or nil when the
// session has no media.
func (t *Tracker) Principal() *Item {
	if len(t.items) == 0 {
		return nil
	}
	item := t.items[0]
	return &item
}

// RemovalQueue returns the persisted IDs queued for deletion.
func (t *Tracker) RemovalQueue() []int64 {
	out := make([]int64, len(t.removalQueue))
	copy(out, t.removalQueue)
	return out
}

// AddLocalFiles appends one pending-upload item per file and returns the
// created items with their placeholder refs.
func (t *Tracker) AddLocalFiles(files []LocalFile) []Item {
	created := make([]Item, 0, len(files))
	for _, file := range files {
		f := file
		ref := newLocalRef()
		item := Item{
			Ref:          ref,
			URL:          "pending://" + ref,
			Origin:       OriginPendingUpload,
			DisplayOrder: len(t.items),
			File:         &f,
		}
		t.items = append(t.items, item)
		created = append(created, item)
	}
	return created
}

// AddExternalURL validates and appends an externally-hosted image. Invalid
// input returns a validation error without mutating state.
func (t *Tracker) AddExternalURL(raw string) (Item, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Item{}, pkgerrors.New(pkgerrors.CodeValidation, "image url is required")
	}

	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return Item{}, pkgerrors.New(pkgerrors.CodeValidation, "image url must be a valid http(s) url")
	}

	ext := strings.ToLower(path.Ext(parsed.Path))
	if _, ok := allowedImageExtensions[ext]; !ok {
		return Item{}, pkgerrors.New(pkgerrors.CodeValidation, "image url must end in a supported image extension").
			WithDetails(map[string]any{"url": trimmed})
	}

	item := Item{
		Ref:          newLocalRef(),
		URL:          trimmed,
		Origin:       OriginExternalURL,
		DisplayOrder: len(t.items),
	}
	t.items = append(t.items, item)
	return item, nil
}

// Remove drops the item with the given ref. Persisted items move their ID to
// the removal queue; pending and external items vanish with no network
// effect. Removing an already-removed persisted item is a no-op, so the
// operation is idempotent.
func (t *Tracker) Remove(ref string) error {
	for idx, item := range t.items {
		if item.Ref != ref {
			continue
		}
		if item.Origin == OriginPersisted {
			t.queueRemoval(item.ID)
		}
		t.items = append(t.items[:idx], t.items[idx+1:]...)
		t.renumber()
		return nil
	}

	// A persisted ref already moved to the removal queue is a repeat call.
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil && t.queuedForRemoval(id) {
		return nil
	}

	return pkgerrors.New(pkgerrors.CodeNotFound, "media item not found").
		WithDetails(map[string]any{"ref": ref})
}

// Reorder applies a full permutation of the currently visible refs and
// renumbers display order densely from zero. Anything other than an exact
// permutation is rejected without mutating state.
func (t *Tracker) Reorder(refs []string) error {
	if len(refs) != len(t.items) {
		return invalidPermutation(refs)
	}

	byRef := make(map[string]int, len(t.items))
	for idx, item := range t.items {
		byRef[item.Ref] = idx
	}

	seen := make(map[string]struct{}, len(refs))
	reordered := make([]Item, 0, len(refs))
	for _, ref := range refs {
		if _, dup := seen[ref]; dup {
			return invalidPermutation(refs)
		}
		seen[ref] = struct{}{}
		idx, ok := byRef[ref]
		if !ok {
			return invalidPermutation(refs)
		}
		reordered = append(reordered, t.items[idx])
	}

	t.items = reordered
	t.renumber()
	return nil
}

// Plan is the computed set of network actions and the final ordering needed
// to move the session's media state to the backend.
type Plan struct {
	ToUpload   []Item
	ToDelete   []int64
	FinalOrder []Item
}

// Plan returns the reconciliation plan as a pure read of current state.
func (t *Tracker) Plan() Plan {
	plan := Plan{
		ToDelete:   t.RemovalQueue(),
		FinalOrder: t.Visible(),
	}
	for _, item := range t.items {
		if item.Origin == OriginPendingUpload {
			plan.ToUpload = append(plan.ToUpload, item)
		}
	}
	return plan
}

// Promote flips a pending item to persisted once its upload resolved. The
// placeholder ref survives so in-flight UI references stay valid.
func (t *Tracker) Promote(ref string, id int64, url string) error {
	for idx := range t.items {
		if t.items[idx].Ref != ref {
			continue
		}
		if t.items[idx].Origin != OriginPendingUpload {
			return pkgerrors.New(pkgerrors.CodeConflict, "only pending items can be promoted")
		}
		t.items[idx].ID = id
		t.items[idx].URL = url
		t.items[idx].Origin = OriginPersisted
		t.items[idx].File = nil
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeNotFound, "media item not found").
		WithDetails(map[string]any{"ref": ref})
}

// ClearRemovals drops IDs from the removal queue after the delete call
// succeeded. On delete failure the queue is kept so a retried save issues
// the same deletion again.
func (t *Tracker) ClearRemovals(ids []int64) {
	if len(ids) == 0 {
		return
	}
	drop := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	kept := t.removalQueue[:0]
	for _, id := range t.removalQueue {
		if _, ok := drop[id]; !ok {
			kept = append(kept, id)
		}
	}
	t.removalQueue = kept
}

// CarryRemovals re-queues IDs whose delete has not succeeded yet. Used when
// a session reloads its media from a refetched product.
func (t *Tracker) CarryRemovals(ids []int64) {
	for _, id := range ids {
		t.queueRemoval(id)
	}
}

func (t *Tracker) queueRemoval(id int64) {
	if t.queuedForRemoval(id) {
		return
	}
	t.removalQueue = append(t.removalQueue, id)
}

func (t *Tracker) queuedForRemoval(id int64) bool {
	for _, queued := range t.removalQueue {
		if queued == id {
			return true
		}
	}
	return false
}

func (t *Tracker) renumber() {
	for idx := range t.items {
		t.items[idx].DisplayOrder = idx
	}
}

func invalidPermutation(refs []string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "reorder must be a permutation of the visible media").
		WithDetails(map[string]any{"refs": refs})
}
