package controllers

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tooldepot/tooldepot-backend/api/responses"
	"github.com/tooldepot/tooldepot-backend/api/validators"
	"github.com/tooldepot/tooldepot-backend/internal/editing"
	"github.com/tooldepot/tooldepot-backend/internal/media"
	pkgerrors "github.com/tooldepot/tooldepot-backend/pkg/errors"
	"github.com/tooldepot/tooldepot-backend/pkg/logger"
)

// AddSessionMediaFiles accepts a multipart upload of one or more image files
// and stages them on the session. Nothing reaches the media service until
// save.
func AddSessionMediaFiles(svc editing.Service, logg *logger.Logger, maxUploadBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart body"))
			return
		}

		headers := r.MultipartForm.File["files"]
		if len(headers) == 0 {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "at least one file part named files is required"))
			return
		}

		localFiles := make([]media.LocalFile, 0, len(headers))
		for _, header := range headers {
			if header.Size > maxUploadBytes {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeValidation, "file exceeds the upload size limit").
						WithDetails(map[string]any{"file": header.Filename}))
				return
			}

			file, err := header.Open()
			if err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeValidation, err, "open uploaded file"))
				return
			}
			data, err := io.ReadAll(file)
			_ = file.Close()
			if err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read uploaded file"))
				return
			}

			localFiles = append(localFiles, media.LocalFile{
				Name:        header.Filename,
				ContentType: header.Header.Get("Content-Type"),
				Data:        data,
			})
		}

		view, err := svc.AddMediaFiles(r.Context(), chi.URLParam(r, "sessionId"), localFiles)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, view)
	}
}

type mediaURLRequest struct {
	URL string `json:"url" validate:"required,url"`
}

// AddSessionMediaURL stages an externally hosted image on the session.
func AddSessionMediaURL(svc editing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload mediaURLRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.AddMediaURL(r.Context(), chi.URLParam(r, "sessionId"), payload.URL)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, view)
	}
}

// RemoveSessionMedia hides a media item; persisted items are deleted from
// the media service on the next save.
func RemoveSessionMedia(svc editing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := svc.RemoveMedia(r.Context(), chi.URLParam(r, "sessionId"), chi.URLParam(r, "ref"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

type mediaOrderRequest struct {
	Refs []string `json:"refs" validate:"required,min=1"`
}

// ReorderSessionMedia applies a full permutation of the visible media refs.
func ReorderSessionMedia(svc editing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload mediaOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.ReorderMedia(r.Context(), chi.URLParam(r, "sessionId"), payload.Refs)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}
