package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ayusman/reactune/internal/store"
)

// SessionHandler serves detection session history.
type SessionHandler struct {
	store *store.Store
}

// NewSessionHandler creates a new SessionHandler with the given store.
func NewSessionHandler(s *store.Store) *SessionHandler {
	return &SessionHandler{store: s}
}

// ServeHTTP routes
//
//	GET    /api/sessions[?limit=n]
//	GET    /api/sessions/{id}
//	DELETE /api/sessions/{id}
//	GET    /api/sessions/{id}/recommendations
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/sessions")
	path = strings.Trim(path, "/")

	if path == "" {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.list(w, r)
		return
	}

	id, sub, _ := strings.Cut(path, "/")
	switch {
	case sub == "recommendations" && r.Method == http.MethodGet:
		h.recommendations(w, id)
	case sub == "" && r.Method == http.MethodGet:
		h.get(w, id)
	case sub == "" && r.Method == http.MethodDelete:
		h.delete(w, id)
	case sub == "" || sub == "recommendations":
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	default:
		http.NotFound(w, r)
	}
}

type listSessionsResponse struct {
	Sessions []*store.Session `json:"sessions"`
}

type listRecommendationsResponse struct {
	SessionID       string                        `json:"sessionId"`
	Recommendations []*store.RecommendationRecord `json:"recommendations"`
}

func (h *SessionHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	sessions, err := h.store.Sessions().List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}
	if sessions == nil {
		sessions = []*store.Session{}
	}
	writeJSON(w, http.StatusOK, listSessionsResponse{Sessions: sessions})
}

func (h *SessionHandler) get(w http.ResponseWriter, id string) {
	sess, err := h.store.Sessions().GetByID(id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get session")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *SessionHandler) delete(w http.ResponseWriter, id string) {
	err := h.store.Sessions().Delete(id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) recommendations(w http.ResponseWriter, id string) {
	if _, err := h.store.Sessions().GetByID(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get session")
		return
	}

	recs, err := h.store.Recommendations().ListBySession(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list recommendations")
		return
	}
	if recs == nil {
		recs = []*store.RecommendationRecord{}
	}
	writeJSON(w, http.StatusOK, listRecommendationsResponse{SessionID: id, Recommendations: recs})
}
