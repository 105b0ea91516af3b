package editing

import (
	"context"
	"encoding/json"

	"github.com/tooldepot/tooldepot-backend/internal/fields"
	"github.com/tooldepot/tooldepot-backend/internal/media"
	pkgerrors "github.com/tooldepot/tooldepot-backend/pkg/errors"
	"github.com/tooldepot/tooldepot-backend/pkg/logger"
)

// Service is the session-facing API the controllers call. Every mutation
// returns the updated session view so the client can render without a
// follow-up read.
type Service interface {
	OpenForProduct(ctx context.Context, productID int64) (*SessionView, error)
	OpenBlank(ctx context.Context) (*SessionView, error)
	Get(ctx context.Context, sessionID string) (*SessionView, error)
	Discard(ctx context.Context, sessionID string) error

	SetField(ctx context.Context, sessionID, field string, pairs fields.Canonical) (*SessionView, error)
	SetAttribute(ctx context.Context, sessionID, name string, value json.RawMessage) (*SessionView, error)

	AddMediaFiles(ctx context.Context, sessionID string, files []media.LocalFile) (*SessionView, error)
	AddMediaURL(ctx context.Context, sessionID, url string) (*SessionView, error)
	RemoveMedia(ctx context.Context, sessionID, ref string) (*SessionView, error)
	ReorderMedia(ctx context.Context, sessionID string, refs []string) (*SessionView, error)

	Save(ctx context.Context, sessionID string) (*SessionView, error)
}

type service struct {
	store   *Store
	catalog catalogAPI
	orch    *Orchestrator
	logg    *logger.Logger
}

// NewService wires the edit-session service.
func NewService(store *Store, catalogClient catalogAPI, orch *Orchestrator, logg *logger.Logger) (Service, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "session store is required")
	}
	if catalogClient == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "catalog client is required")
	}
	if orch == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "save orchestrator is required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger is required")
	}
	return &service{
		store:   store,
		catalog: catalogClient,
		orch:    orch,
		logg:    logg,
	}, nil
}

func (s *service) OpenForProduct(ctx context.Context, productID int64) (*SessionView, error) {
	product, err := s.catalog.GetProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	session := NewSessionFromProduct(product)
	s.store.Put(session)

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"session_id": session.ID,
		"product_id": productID,
	}), "edit session opened")
	return NewSessionView(session), nil
}

func (s *service) OpenBlank(ctx context.Context) (*SessionView, error) {
	session := NewSession()
	s.store.Put(session)

	s.logg.Info(s.logg.WithSessionID(ctx, session.ID), "blank edit session opened")
	return NewSessionView(session), nil
}

func (s *service) Get(_ context.Context, sessionID string) (*SessionView, error) {
	session, err := s.store.Get(sessionID)
	if err != nil {
		return nil, err
	}
	session.lock()
	defer session.unlock()
	return NewSessionView(session), nil
}

func (s *service) Discard(ctx context.Context, sessionID string) error {
	if _, err := s.store.Get(sessionID); err != nil {
		return err
	}
	s.store.Delete(sessionID)
	s.logg.Info(s.logg.WithSessionID(ctx, sessionID), "edit session discarded")
	return nil
}

func (s *service) SetField(_ context.Context, sessionID, field string, pairs fields.Canonical) (*SessionView, error) {
	return s.mutate(sessionID, func(session *Session) error {
		return session.SetField(field, pairs)
	})
}

func (s *service) SetAttribute(_ context.Context, sessionID, name string, value json.RawMessage) (*SessionView, error) {
	return s.mutate(sessionID, func(session *Session) error {
		return session.SetAttribute(name, value)
	})
}

func (s *service) AddMediaFiles(_ context.Context, sessionID string, files []media.LocalFile) (*SessionView, error) {
	if len(files) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one file is required")
	}
	return s.mutate(sessionID, func(session *Session) error {
		session.Media.AddLocalFiles(files)
		return nil
	})
}

func (s *service) AddMediaURL(_ context.Context, sessionID, url string) (*SessionView, error) {
	return s.mutate(sessionID, func(session *Session) error {
		_, err := session.Media.AddExternalURL(url)
		return err
	})
}

func (s *service) RemoveMedia(_ context.Context, sessionID, ref string) (*SessionView, error) {
	return s.mutate(sessionID, func(session *Session) error {
		return session.Media.Remove(ref)
	})
}

func (s *service) ReorderMedia(_ context.Context, sessionID string, refs []string) (*SessionView, error) {
	return s.mutate(sessionID, func(session *Session) error {
		return session.Media.Reorder(refs)
	})
}

// Save runs the orchestrated save and refreshes the session from the stored
// record so editing can continue against backend truth. The session lock is
// held for the duration; concurrent edits wait for the save to settle.
func (s *service) Save(ctx context.Context, sessionID string) (*SessionView, error) {
	session, err := s.store.Get(sessionID)
	if err != nil {
		return nil, err
	}

	session.lock()
	defer session.unlock()

	refreshed, err := s.orch.Save(ctx, session)
	if err != nil {
		return nil, err
	}

	session.RefreshFrom(refreshed)
	return NewSessionView(session), nil
}

func (s *service) mutate(sessionID string, fn func(*Session) error) (*SessionView, error) {
	session, err := s.store.Get(sessionID)
	if err != nil {
		return nil, err
	}

	session.lock()
	defer session.unlock()

	if err := fn(session); err != nil {
		return nil, err
	}
	return NewSessionView(session), nil
}
