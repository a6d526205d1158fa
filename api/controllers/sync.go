package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/packfinderz-field/api/responses"
	"github.com/angelmondragon/packfinderz-field/internal/connectivity"
	"github.com/angelmondragon/packfinderz-field/internal/queue"
	syncpkg "github.com/angelmondragon/packfinderz-field/internal/sync"
	pkgerrors "github.com/angelmondragon/packfinderz-field/pkg/errors"
	"github.com/angelmondragon/packfinderz-field/pkg/logger"
)

type retryResponse struct {
	Synced bool `json:"synced"`
}

// RetryEntry retries one entry immediately, outside the full-pass lock.
func RetryEntry(store *queue.Store, engine *syncpkg.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "entryId")
		if id == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "entry id required"))
			return
		}

		entries, err := store.GetAll(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		found := false
		for _, entry := range entries {
			if entry.ID == id {
				found = true
				break
			}
		}
		if !found {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "queue entry not found"))
			return
		}

		synced, err := engine.RetryItem(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, retryResponse{Synced: synced})
	}
}

// RetryAllFailed resets every failed entry and runs a pass.
func RetryAllFailed(engine *syncpkg.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result := engine.RetryAllFailed(r.Context(), nil)
		responses.WriteSuccess(w, result)
	}
}

// TriggerSync is the manual pull-to-refresh entry point.
func TriggerSync(monitor *connectivity.Monitor, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result := monitor.TriggerSync(r.Context())
		responses.WriteSuccess(w, result)
	}
}

// SyncStatus returns the monitor's observable state.
func SyncStatus(monitor *connectivity.Monitor, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		responses.WriteSuccess(w, monitor.Status())
	}
}
