package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/packfinderz-field/api/responses"
	"github.com/angelmondragon/packfinderz-field/api/validators"
	"github.com/angelmondragon/packfinderz-field/internal/queue"
	"github.com/angelmondragon/packfinderz-field/pkg/enums"
	pkgerrors "github.com/angelmondragon/packfinderz-field/pkg/errors"
	"github.com/angelmondragon/packfinderz-field/pkg/logger"
)

type enqueueRequest struct {
	Type    string          `json:"type" validate:"required,oneof=adjustment sale"`
	Payload json.RawMessage `json:"payload" validate:"required"`
}

// EnqueueEntry is the producer write path: UI flows queue an operation here
// instead of calling the backend while offline.
func EnqueueEntry(store *queue.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body enqueueRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		op, err := enums.ParseOperationType(body.Type)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid operation type"))
			return
		}

		entry, err := store.Enqueue(r.Context(), op, body.Payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, entry)
	}
}

// ListQueue returns the full queue snapshot in insertion order.
func ListQueue(store *queue.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := store.GetAll(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if entries == nil {
			entries = []queue.Entry{}
		}
		responses.WriteSuccess(w, entries)
	}
}

// ListFailed returns only failed entries.
func ListFailed(store *queue.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := store.FailedItems(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if entries == nil {
			entries = []queue.Entry{}
		}
		responses.WriteSuccess(w, entries)
	}
}

// QueueCounts returns the badge summary.
func QueueCounts(store *queue.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		counts, err := store.GetCounts(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, counts)
	}
}

// DiscardEntry removes one entry from the queue.
func DiscardEntry(store *queue.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "entryId")
		if id == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "entry id required"))
			return
		}
		if err := store.RemoveByID(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "discarded"})
	}
}

// ClearQueue deletes every entry unconditionally.
func ClearQueue(store *queue.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.ClearAll(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "cleared"})
	}
}
