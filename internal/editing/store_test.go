package editing

import (
	"testing"
	"time"

	pkgerrors "github.com/tooldepot/tooldepot-backend/pkg/errors"
)

func TestStorePutAndGet(t *testing.T) {
	t.Parallel()

	store := NewStore(time.Hour)
	session := NewSession()
	store.Put(session)

	got, err := store.Get(session.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != session.ID {
		t.Fatalf("expected session %s got %s", session.ID, got.ID)
	}
}

func TestStoreGetUnknownID(t *testing.T) {
	t.Parallel()

	store := NewStore(time.Hour)
	_, err := store.Get("missing")
	if err == nil {
		t.Fatal("expected not found")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found code got %v", pkgerrors.As(err).Code())
	}
}

func TestStoreExpiresSessions(t *testing.T) {
	t.Parallel()

	store := NewStore(time.Hour)
	session := NewSession()
	store.Put(session)

	now := session.CreatedAt
	store.now = func() time.Time { return now.Add(2 * time.Hour) }

	if _, err := store.Get(session.ID); err == nil {
		t.Fatal("expected expired session to be gone")
	}
	if store.Len() != 0 {
		t.Fatalf("expected expired session dropped, len=%d", store.Len())
	}
}

func TestStoreSweepRemovesOnlyExpired(t *testing.T) {
	t.Parallel()

	store := NewStore(time.Hour)
	fresh := NewSession()
	stale := NewSession()
	stale.CreatedAt = stale.CreatedAt.Add(-3 * time.Hour)
	store.Put(fresh)
	store.Put(stale)

	if removed := store.Sweep(); removed != 1 {
		t.Fatalf("expected one sweep removal got %d", removed)
	}
	if _, err := store.Get(fresh.ID); err != nil {
		t.Fatalf("fresh session should survive sweep: %v", err)
	}
}

func TestStoreDeleteIsIdempotent(t *testing.T) {
	t.Parallel()

	store := NewStore(time.Hour)
	session := NewSession()
	store.Put(session)

	store.Delete(session.ID)
	store.Delete(session.ID)

	if _, err := store.Get(session.ID); err == nil {
		t.Fatal("expected deleted session to be gone")
	}
}
