package editing

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/tooldepot/tooldepot-backend/internal/fields"
	"github.com/tooldepot/tooldepot-backend/internal/media"
	"github.com/tooldepot/tooldepot-backend/pkg/catalog"
	pkgerrors "github.com/tooldepot/tooldepot-backend/pkg/errors"
	"github.com/tooldepot/tooldepot-backend/pkg/logger"
	"github.com/tooldepot/tooldepot-backend/pkg/mediastore"
	"github.com/tooldepot/tooldepot-backend/pkg/metrics"
)

const (
	phaseUpload   = "upload"
	phaseDelete   = "delete"
	phaseAssemble = "assemble"
	phasePersist  = "persist"
	phaseRefetch  = "refetch"
)

type uploader interface {
	UploadFile(ctx context.Context, name, contentType string, data []byte) (*mediastore.UploadedFile, error)
}

type fileDeleter interface {
	DeleteFiles(ctx context.Context, ids []int64) error
}

type catalogAPI interface {
	GetProductByID(ctx context.Context, id int64) (*catalog.RawProduct, error)
	CreateProduct(ctx context.Context, payload catalog.ProductPayload) (*catalog.RawProduct, error)
	UpdateProduct(ctx context.Context, id int64, payload catalog.ProductPayload) (*catalog.RawProduct, error)
}

// Orchestrator drives the save flow: upload pending files, flush queued
// deletions, assemble the product payload, persist it, and refetch the
// stored record.
type Orchestrator struct {
	uploads           uploader
	files             fileDeleter
	catalog           catalogAPI
	logg              *logger.Logger
	saveMetrics       *metrics.SaveMetrics
	uploadConcurrency int
}

// NewOrchestrator wires the save flow dependencies.
func NewOrchestrator(
	uploads uploader,
	files fileDeleter,
	catalogClient catalogAPI,
	logg *logger.Logger,
	saveMetrics *metrics.SaveMetrics,
	uploadConcurrency int,
) (*Orchestrator, error) {
	if uploads == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "uploader is required")
	}
	if files == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "file deleter is required")
	}
	if catalogClient == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "catalog client is required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger is required")
	}
	if uploadConcurrency <= 0 {
		uploadConcurrency = 4
	}
	return &Orchestrator{
		uploads:           uploads,
		files:             files,
		catalog:           catalogClient,
		logg:              logg,
		saveMetrics:       saveMetrics,
		uploadConcurrency: uploadConcurrency,
	}, nil
}

// Save pushes the session's state to the backend and returns the refetched
// product. Uploads are all-or-nothing: any failure aborts the save before
// deletions or persistence run, and already-uploaded files stay promoted so
// a retry only re-sends the failures. Deletions are best effort and never
// block the save.
func (o *Orchestrator) Save(ctx context.Context, session *Session) (*catalog.RawProduct, error) {
	if session == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "session is required")
	}

	ctx = o.logg.WithSessionID(ctx, session.ID)
	if session.ProductID > 0 {
		ctx = o.logg.WithProductID(ctx, session.ProductID)
	}

	if err := o.uploadPending(ctx, session); err != nil {
		return nil, err
	}

	o.flushRemovals(ctx, session)

	payload, err := o.assemble(session)
	if err != nil {
		return nil, err
	}

	saved, err := o.persist(ctx, session, payload)
	if err != nil {
		return nil, err
	}

	refreshed, err := o.refetch(ctx, saved.ID)
	if err != nil {
		return nil, err
	}

	o.logg.Info(ctx, "product saved")
	return refreshed, nil
}

// uploadPending runs every pending upload to completion under the configured
// concurrency limit. A failed sibling never cancels the others; successes are
// promoted on the tracker before the combined error is returned.
func (o *Orchestrator) uploadPending(ctx context.Context, session *Session) error {
	plan := session.Media.Plan()
	if len(plan.ToUpload) == 0 {
		return nil
	}

	started := time.Now()

	uploaded := make([]*mediastore.UploadedFile, len(plan.ToUpload))
	uploadErrs := make([]error, len(plan.ToUpload))

	var group errgroup.Group
	group.SetLimit(o.uploadConcurrency)
	for idx, item := range plan.ToUpload {
		idx, item := idx, item
		group.Go(func() error {
			result, err := o.uploads.UploadFile(ctx, item.File.Name, item.File.ContentType, item.File.Data)
			if err != nil {
				uploadErrs[idx] = err
				return nil
			}
			uploaded[idx] = result
			return nil
		})
	}
	_ = group.Wait()

	var failedRefs []string
	var failedNames []string
	var combined error
	for idx, item := range plan.ToUpload {
		if uploadErrs[idx] != nil {
			failedRefs = append(failedRefs, item.Ref)
			failedNames = append(failedNames, item.File.Name)
			combined = multierr.Append(combined, uploadErrs[idx])
			continue
		}
		if err := session.Media.Promote(item.Ref, uploaded[idx].ID, uploaded[idx].URL); err != nil {
			o.logg.Error(o.logg.WithField(ctx, "ref", item.Ref), "promote uploaded media", err)
		}
	}

	o.saveMetrics.ObserveDuration(phaseUpload, time.Since(started))
	if combined != nil {
		o.saveMetrics.IncFailure(phaseUpload)
		return pkgerrors.Wrap(pkgerrors.CodeUploadFailed, combined, "upload session media").
			WithDetails(map[string]any{
				"failed_refs":  failedRefs,
				"failed_files": failedNames,
			})
	}

	o.saveMetrics.IncSuccess(phaseUpload)
	return nil
}

// flushRemovals issues the bulk delete for queued media IDs. Failures are
// logged and the queue is kept so a later save retries the same deletion.
func (o *Orchestrator) flushRemovals(ctx context.Context, session *Session) {
	ids := session.Media.RemovalQueue()
	if len(ids) == 0 {
		return
	}

	started := time.Now()
	err := o.files.DeleteFiles(ctx, ids)
	o.saveMetrics.ObserveDuration(phaseDelete, time.Since(started))
	if err != nil {
		o.saveMetrics.IncFailure(phaseDelete)
		o.logg.Warn(o.logg.WithField(ctx, "media_ids", ids), "media delete failed, will retry on next save")
		return
	}

	o.saveMetrics.IncSuccess(phaseDelete)
	session.Media.ClearRemovals(ids)
}

func (o *Orchestrator) assemble(session *Session) (catalog.ProductPayload, error) {
	started := time.Now()

	payload := catalog.ProductPayload{
		Attributes: session.Attributes,
		Fields:     make(map[string]json.RawMessage, len(session.Fields)),
	}

	for _, name := range catalog.StructuredFieldNames() {
		shape := session.Shapes[name]
		if !shape.IsValid() {
			shape = fields.ShapeObject
		}
		raw, err := fields.Denormalize(session.Fields[name], shape)
		if err != nil {
			o.saveMetrics.IncFailure(phaseAssemble)
			return catalog.ProductPayload{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "serialize field "+name)
		}
		payload.Fields[name] = raw
	}

	payload.Media = buildMediaEntries(session.Media.Visible())

	o.saveMetrics.ObserveDuration(phaseAssemble, time.Since(started))
	o.saveMetrics.IncSuccess(phaseAssemble)
	return payload, nil
}

func (o *Orchestrator) persist(ctx context.Context, session *Session, payload catalog.ProductPayload) (*catalog.RawProduct, error) {
	started := time.Now()

	var saved *catalog.RawProduct
	var err error
	if session.ProductID > 0 {
		saved, err = o.catalog.UpdateProduct(ctx, session.ProductID, payload)
	} else {
		saved, err = o.catalog.CreateProduct(ctx, payload)
	}

	o.saveMetrics.ObserveDuration(phasePersist, time.Since(started))
	if err != nil {
		o.saveMetrics.IncFailure(phasePersist)
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistFailed, err, "persist product")
	}

	o.saveMetrics.IncSuccess(phasePersist)
	return saved, nil
}

// refetch reloads the stored record so the session continues from what the
// backend actually holds, not from what was sent.
func (o *Orchestrator) refetch(ctx context.Context, productID int64) (*catalog.RawProduct, error) {
	started := time.Now()
	refreshed, err := o.catalog.GetProductByID(ctx, productID)
	o.saveMetrics.ObserveDuration(phaseRefetch, time.Since(started))
	if err != nil {
		o.saveMetrics.IncFailure(phaseRefetch)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refetch saved product")
	}
	o.saveMetrics.IncSuccess(phaseRefetch)
	return refreshed, nil
}

// buildMediaEntries converts the tracker's final order into the catalog wire
// form. External URL items carry ID 0; the backend assigns one on persist.
func buildMediaEntries(items []media.Item) []catalog.MediaEntry {
	entries := make([]catalog.MediaEntry, 0, len(items))
	for idx, item := range items {
		entries = append(entries, catalog.MediaEntry{
			ID:           item.ID,
			URL:          item.URL,
			FileType:     catalog.MediaFileTypeImage,
			EntityType:   catalog.MediaEntityProduct,
			DisplayOrder: idx,
		})
	}
	return entries
}
