package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"studyflow-backend/internal/middleware"
	"studyflow-backend/internal/models"
	"studyflow-backend/internal/repository"
)

// StudyHandler serves the studies → disciplines → topics hierarchy. Every
// query is scoped to the authenticated user, so a foreign id simply looks
// like a missing row.
type StudyHandler struct {
	studies     *repository.StudyRepo
	disciplines *repository.DisciplineRepo
	topics      *repository.TopicRepo
}

func NewStudyHandler(studies *repository.StudyRepo, disciplines *repository.DisciplineRepo, topics *repository.TopicRepo) *StudyHandler {
	return &StudyHandler{studies: studies, disciplines: disciplines, topics: topics}
}

// ──── Studies ────

func (h *StudyHandler) CreateStudy(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"name": "Name is required"}, r))
		return
	}

	study := &models.Study{
		ID:          uuid.New(),
		UserID:      userID,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
	}
	if err := h.studies.Create(r.Context(), study); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create study", r))
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{"study": study})
}

func (h *StudyHandler) ListStudies(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	studies, err := h.studies.ListByUser(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to list studies", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"studies": studies})
}

func (h *StudyHandler) GetStudy(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	studyID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid study ID", r))
		return
	}

	study, err := h.studies.GetByID(r.Context(), studyID, userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load study", r))
		return
	}
	if study == nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Study not found", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"study": study})
}

func (h *StudyHandler) UpdateStudy(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	studyID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid study ID", r))
		return
	}

	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"name": "Name is required"}, r))
		return
	}

	study := &models.Study{
		ID:          studyID,
		UserID:      userID,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
	}
	ok, err := h.studies.Update(r.Context(), study)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to update study", r))
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Study not found", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"study": study})
}

func (h *StudyHandler) DeleteStudy(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	studyID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid study ID", r))
		return
	}

	ok, err := h.studies.Delete(r.Context(), studyID, userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to delete study", r))
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Study not found", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Study deleted"})
}

// ──── Disciplines ────

func (h *StudyHandler) CreateDiscipline(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req struct {
		StudyID string `json:"study_id"`
		Name    string `json:"name"`
		Color   string `json:"color"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	studyID, err := uuid.Parse(req.StudyID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid study_id", r))
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"name": "Name is required"}, r))
		return
	}

	discipline := &models.Discipline{
		ID:      uuid.New(),
		StudyID: studyID,
		Name:    strings.TrimSpace(req.Name),
		Color:   req.Color,
	}
	ok, err := h.disciplines.Create(r.Context(), discipline, userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create discipline", r))
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Study not found", r))
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{"discipline": discipline})
}

func (h *StudyHandler) ListDisciplines(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	studyID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid study ID", r))
		return
	}

	disciplines, err := h.disciplines.ListByStudy(r.Context(), studyID, userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to list disciplines", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"disciplines": disciplines})
}

func (h *StudyHandler) UpdateDiscipline(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	disciplineID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid discipline ID", r))
		return
	}

	var req struct {
		Name  string `json:"name"`
		Color string `json:"color"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"name": "Name is required"}, r))
		return
	}

	discipline := &models.Discipline{
		ID:    disciplineID,
		Name:  strings.TrimSpace(req.Name),
		Color: req.Color,
	}
	ok, err := h.disciplines.Update(r.Context(), discipline, userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to update discipline", r))
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Discipline not found", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"discipline": discipline})
}

func (h *StudyHandler) DeleteDiscipline(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	disciplineID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid discipline ID", r))
		return
	}

	ok, err := h.disciplines.Delete(r.Context(), disciplineID, userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to delete discipline", r))
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Discipline not found", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Discipline deleted"})
}

// ──── Topics ────

func (h *StudyHandler) CreateTopic(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req struct {
		DisciplineID string `json:"discipline_id"`
		Name         string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	disciplineID, err := uuid.Parse(req.DisciplineID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid discipline_id", r))
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"name": "Name is required"}, r))
		return
	}

	topic := &models.Topic{
		ID:           uuid.New(),
		DisciplineID: disciplineID,
		Name:         strings.TrimSpace(req.Name),
	}
	ok, err := h.topics.Create(r.Context(), topic, userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create topic", r))
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Discipline not found", r))
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{"topic": topic})
}

func (h *StudyHandler) ListTopics(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	disciplineID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid discipline ID", r))
		return
	}

	topics, err := h.topics.ListByDiscipline(r.Context(), disciplineID, userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to list topics", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"topics": topics})
}

func (h *StudyHandler) UpdateTopic(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	topicID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid topic ID", r))
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"name": "Name is required"}, r))
		return
	}

	topic := &models.Topic{
		ID:   topicID,
		Name: strings.TrimSpace(req.Name),
	}
	ok, err := h.topics.Update(r.Context(), topic, userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to update topic", r))
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Topic not found", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"topic": topic})
}

func (h *StudyHandler) DeleteTopic(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	topicID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid topic ID", r))
		return
	}

	ok, err := h.topics.Delete(r.Context(), topicID, userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to delete topic", r))
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Topic not found", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Topic deleted"})
}
