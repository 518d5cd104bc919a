package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/duewatch/internal/domain"
	"github.com/MrSnakeDoc/duewatch/internal/httpserver/deps"
	"github.com/MrSnakeDoc/duewatch/internal/logger"
	"github.com/MrSnakeDoc/duewatch/internal/store"
)

type assignmentView struct {
	domain.Assignment
	State  domain.DueState `json:"state"`
	Bucket domain.Bucket   `json:"bucket"`
}

type completedRequest struct {
	Completed *bool `json:"completed" validate:"required"`
}

// ListAssignments returns the persisted collection annotated with due
// state and bucket, optionally filtered by ?bucket=.
func ListAssignments(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bucket := domain.Bucket(r.URL.Query().Get("bucket"))
		switch bucket {
		case "", domain.BucketOverdue, domain.BucketWeek, domain.BucketFuture:
		default:
			writeError(w, http.StatusBadRequest, "bucket must be one of overdue, week, future")
			return
		}

		items := readAssignments(r, d)
		now := d.Now()
		views := make([]assignmentView, 0, len(items))
		for _, item := range items {
			v := assignmentView{
				Assignment: item,
				State:      domain.StateOf(item.DueDateISO, now),
				Bucket:     domain.BucketOf(item.DueDateISO, now),
			}
			if bucket != "" && v.Bucket != bucket {
				continue
			}
			views = append(views, v)
		}
		writeJSON(w, http.StatusOK, views)
	}
}

// Summary returns the per-bucket counts of the persisted collection.
func Summary(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, domain.Summarize(readAssignments(r, d), d.Now()))
	}
}

// SetCompleted flips the user-controlled completed flag.
func SetCompleted(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req completedRequest
		if err := decode(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		id := chi.URLParam(r, "id")
		if err := d.Store.SetCompleted(r.Context(), id, *req.Completed); err != nil {
			writeStoreError(w, d, "set completed", id, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// DeleteAssignment removes one record on explicit user request.
func DeleteAssignment(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := d.Store.Remove(r.Context(), id); err != nil {
			writeStoreError(w, d, "remove", id, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// readAssignments degrades a store failure to an empty collection.
func readAssignments(r *http.Request, d deps.Deps) []domain.Assignment {
	items, err := d.Store.Assignments(r.Context())
	if err != nil {
		d.Logger.Warn("failed to read assignments, serving empty list", logger.Error(err))
		return nil
	}
	return items
}

func writeStoreError(w http.ResponseWriter, d deps.Deps, op, id string, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "assignment not found")
		return
	}
	d.Logger.Error("store write failed",
		logger.String("op", op),
		logger.String("id", id),
		logger.Error(err))
	writeError(w, http.StatusServiceUnavailable, "store unavailable")
}
