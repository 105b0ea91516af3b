package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tooldepot/tooldepot-backend/api/responses"
	"github.com/tooldepot/tooldepot-backend/api/validators"
	"github.com/tooldepot/tooldepot-backend/internal/editing"
	"github.com/tooldepot/tooldepot-backend/internal/fields"
	"github.com/tooldepot/tooldepot-backend/pkg/logger"
)

type fieldUpdateRequest struct {
	Pairs []fieldPair `json:"pairs" validate:"required,dive"`
}

type fieldPair struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (r fieldUpdateRequest) toCanonical() fields.Canonical {
	pairs := make(fields.Canonical, 0, len(r.Pairs))
	for _, p := range r.Pairs {
		pairs = append(pairs, fields.Pair{Key: p.Key, Value: p.Value})
	}
	return pairs
}

// UpdateSessionField replaces the canonical rows of one structured field.
func UpdateSessionField(svc editing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload fieldUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.SetField(r.Context(),
			chi.URLParam(r, "sessionId"),
			chi.URLParam(r, "field"),
			payload.toCanonical())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

type attributeUpdateRequest struct {
	Value json.RawMessage `json:"value" validate:"required"`
}

// UpdateSessionAttribute stores an opaque pass-through attribute such as
// name or price.
func UpdateSessionAttribute(svc editing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload attributeUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.SetAttribute(r.Context(),
			chi.URLParam(r, "sessionId"),
			chi.URLParam(r, "attribute"),
			payload.Value)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}
