package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"studyflow-backend/internal/middleware"
	"studyflow-backend/internal/services"
)

type RevisionHandler struct {
	revisionService *services.RevisionService
}

func NewRevisionHandler(revisionService *services.RevisionService) *RevisionHandler {
	return &RevisionHandler{revisionService: revisionService}
}

func (h *RevisionHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req struct {
		TopicID string `json:"topic_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	topicID, err := uuid.Parse(req.TopicID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid topic_id", r))
		return
	}

	revision, err := h.revisionService.Schedule(r.Context(), userID, topicID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{"revision": revision})
}

func (h *RevisionHandler) ListDue(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	revisions, err := h.revisionService.ListDue(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to list revisions", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"revisions": revisions})
}

// Complete marks a revision done and schedules the follow-up at the next
// interval in the ladder.
func (h *RevisionHandler) Complete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	revisionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid revision ID", r))
		return
	}

	next, err := h.revisionService.Complete(r.Context(), userID, revisionID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"next_revision": next})
}
