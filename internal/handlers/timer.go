package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"studyflow-backend/internal/middleware"
	"studyflow-backend/internal/models"
	"studyflow-backend/internal/repository"
	"studyflow-backend/internal/services"
)

// TimerHandler is the server side of the study timer. Clients own session ids
// and elapsed totals; the server validates ownership, enforces the
// single-running-session rule, and feeds finalized sessions into cycle
// progress.
type TimerHandler struct {
	sessions *repository.TimeSessionRepo
	topics   *repository.TopicRepo
	cycles   *services.CycleService
	events   *services.EventPublisher
	jwtAuth  *middleware.JWTAuth
}

func NewTimerHandler(
	sessions *repository.TimeSessionRepo,
	topics *repository.TopicRepo,
	cycles *services.CycleService,
	events *services.EventPublisher,
	jwtAuth *middleware.JWTAuth,
) *TimerHandler {
	return &TimerHandler{sessions: sessions, topics: topics, cycles: cycles, events: events, jwtAuth: jwtAuth}
}

func (h *TimerHandler) Start(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req struct {
		SessionID   string `json:"session_id"`
		TopicID     string `json:"topic_id"`
		SessionType string `json:"session_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid session_id", r))
		return
	}
	topicID, err := uuid.Parse(req.TopicID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid topic_id", r))
		return
	}

	sessionType := req.SessionType
	if sessionType == "" {
		sessionType = models.SessionTypeStudy
	}
	if sessionType != models.SessionTypeStudy && sessionType != models.SessionTypeReview && sessionType != models.SessionTypePractice {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "session_type must be study, review, or practice", r))
		return
	}

	owned, err := h.topics.OwnedByUser(r.Context(), topicID, userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to check topic", r))
		return
	}
	if !owned {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Topic not found", r))
		return
	}

	session := &models.TimeSession{
		ID:          sessionID,
		UserID:      userID,
		TopicID:     topicID,
		SessionType: sessionType,
	}
	if err := h.sessions.Start(r.Context(), session); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to start session", r))
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{"session": session})
}

func (h *TimerHandler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	sessionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid session ID", r))
		return
	}

	var req struct {
		ElapsedMs int64 `json:"elapsed_ms"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	ok, err := h.sessions.Heartbeat(r.Context(), sessionID, userID, req.ElapsedMs)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to record heartbeat", r))
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "No running session with this ID", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Heartbeat recorded"})
}

func (h *TimerHandler) Stop(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	sessionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid session ID", r))
		return
	}

	var req struct {
		DurationMs int64 `json:"duration_ms"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	session, _, err := h.finalize(r, sessionID, userID, req.DurationMs)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to stop session", r))
		return
	}
	if session == nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Session not found", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"session": session})
}

// Beacon is the unauthenticated-route variant of Stop used at page teardown,
// when no headers can be attached. The JWT rides in the body instead; bad
// requests still get 2xx because nothing is listening for the answer.
func (h *TimerHandler) Beacon(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID  string `json:"session_id"`
		DurationMs int64  `json:"duration_ms"`
		Token      string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	userID, err := h.jwtAuth.ParseUserID(req.Token)
	if err != nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if _, _, err := h.finalize(r, sessionID, userID, req.DurationMs); err != nil {
		zap.L().Warn("beacon finalize",
			zap.String("session_id", sessionID.String()),
			zap.Error(err))
	}

	w.WriteHeader(http.StatusNoContent)
}

// finalize runs the shared stop path: idempotent duration overwrite, then
// cycle progress and the timer_stopped event on the first stop only, so
// the duplicated beacon+stop delivery never double-credits a cycle.
func (h *TimerHandler) finalize(r *http.Request, sessionID, userID uuid.UUID, durationMs int64) (*models.TimeSession, bool, error) {
	session, firstStop, err := h.sessions.Finalize(r.Context(), sessionID, userID, durationMs)
	if err != nil || session == nil {
		return session, false, err
	}

	if firstStop {
		if err := h.cycles.ApplySessionProgress(r.Context(), session); err != nil {
			zap.L().Error("apply session progress",
				zap.String("session_id", session.ID.String()),
				zap.Error(err))
		}
		h.events.Publish(r.Context(), userID, models.EventTimerStopped, models.TimerStoppedPayload{
			SessionID:  session.ID,
			TopicID:    session.TopicID,
			DurationMs: session.DurationMs,
		})
	}

	return session, firstStop, nil
}

func (h *TimerHandler) Totals(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	raw := strings.TrimSpace(r.URL.Query().Get("topic_ids"))
	if raw == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "topic_ids is required", r))
		return
	}

	var topicIDs []uuid.UUID
	for _, part := range strings.Split(raw, ",") {
		id, err := uuid.Parse(strings.TrimSpace(part))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid topic id: "+part, r))
			return
		}
		topicIDs = append(topicIDs, id)
	}

	totals, err := h.sessions.TotalsByTopic(r.Context(), userID, topicIDs)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load totals", r))
		return
	}

	out := make(map[string]int64, len(totals))
	for id, ms := range totals {
		out[id.String()] = ms
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"totals": out})
}
