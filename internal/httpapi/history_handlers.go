package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/mbeda/lingua/internal/history"
)

// historyUnavailable rejects history calls when no database is configured.
func (r *Router) historyUnavailable(w http.ResponseWriter) bool {
	if r.history == nil {
		writeError(w, http.StatusServiceUnavailable, "history is not available: no database configured")
		return true
	}
	return false
}

// handleListHistory returns recent completed sessions, newest first.
func (r *Router) handleListHistory(w http.ResponseWriter, req *http.Request) {
	if r.historyUnavailable(w) {
		return
	}

	limit := r.cfg.HistoryLimit
	if l := req.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= r.cfg.HistoryLimit {
			limit = parsed
		}
	}

	records, err := r.history.List(req.Context(), limit)
	if err != nil {
		r.logger.Printf("history: failed to list: %v", err)
		captureError(req, err, "list history")
		writeError(w, http.StatusInternalServerError, "failed to list history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"sessions": records,
		"count":    len(records),
	})
}

// handleGetHistory returns one completed session.
func (r *Router) handleGetHistory(w http.ResponseWriter, req *http.Request) {
	if r.historyUnavailable(w) {
		return
	}

	id := req.PathValue("id")
	rec, err := r.history.Get(req.Context(), id)
	if err != nil {
		if errors.Is(err, history.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		r.logger.Printf("history: failed to get %s: %v", id, err)
		captureError(req, err, "get history")
		writeError(w, http.StatusInternalServerError, "failed to get session")
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// handleDeleteHistory removes one completed session.
func (r *Router) handleDeleteHistory(w http.ResponseWriter, req *http.Request) {
	if r.historyUnavailable(w) {
		return
	}

	id := req.PathValue("id")
	if err := r.history.Delete(req.Context(), id); err != nil {
		r.logger.Printf("history: failed to delete %s: %v", id, err)
		captureError(req, err, "delete history")
		writeError(w, http.StatusInternalServerError, "failed to delete session")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// handleClearHistory removes all completed sessions.
func (r *Router) handleClearHistory(w http.ResponseWriter, req *http.Request) {
	if r.historyUnavailable(w) {
		return
	}

	if err := r.history.DeleteAll(req.Context()); err != nil {
		r.logger.Printf("history: failed to clear: %v", err)
		captureError(req, err, "clear history")
		writeError(w, http.StatusInternalServerError, "failed to clear history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
