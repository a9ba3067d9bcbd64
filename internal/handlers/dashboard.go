package handlers

import (
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"studyflow-backend/internal/middleware"
	"studyflow-backend/internal/repository"
)

type DashboardHandler struct {
	pool      *pgxpool.Pool
	revisions *repository.RevisionRepo
}

func NewDashboardHandler(pool *pgxpool.Pool, revisions *repository.RevisionRepo) *DashboardHandler {
	return &DashboardHandler{pool: pool, revisions: revisions}
}

func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	ctx := r.Context()

	var studyCount, topicCount, activeCycles int
	var totalMs, weeklyMs int64
	h.pool.QueryRow(ctx, "SELECT COUNT(*) FROM studies WHERE user_id = $1", userID).Scan(&studyCount)
	h.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM topics t
		JOIN disciplines d ON d.id = t.discipline_id
		JOIN studies s ON s.id = d.study_id
		WHERE s.user_id = $1
	`, userID).Scan(&topicCount)
	h.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM study_cycles WHERE user_id = $1 AND status = 'active'",
		userID).Scan(&activeCycles)
	h.pool.QueryRow(ctx,
		"SELECT COALESCE(SUM(duration_ms), 0) FROM time_sessions WHERE user_id = $1",
		userID).Scan(&totalMs)
	h.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(duration_ms), 0)
		FROM time_sessions
		WHERE user_id = $1
		  AND started_at >= NOW() - INTERVAL '7 days'
	`, userID).Scan(&weeklyMs)

	dueRevisions, err := h.revisions.CountDue(ctx, userID, time.Now())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load dashboard stats", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"studies":        studyCount,
		"topics":         topicCount,
		"active_cycles":  activeCycles,
		"total_minutes":  totalMs / 60_000,
		"weekly_minutes": weeklyMs / 60_000,
		"due_revisions":  dueRevisions,
	})
}

// Activity returns per-day studied minutes for the last 30 days, the shape
// the frontend heatmap consumes.
func (h *DashboardHandler) Activity(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	rows, err := h.pool.Query(r.Context(), `
		SELECT DATE(started_at) AS day, COALESCE(SUM(duration_ms), 0)
		FROM time_sessions
		WHERE user_id = $1
		  AND started_at >= NOW() - INTERVAL '30 days'
		GROUP BY day
		ORDER BY day
	`, userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load activity", r))
		return
	}
	defer rows.Close()

	type dayActivity struct {
		Day     string `json:"day"`
		Minutes int64  `json:"minutes"`
	}
	activity := []dayActivity{}
	for rows.Next() {
		var day time.Time
		var ms int64
		if err := rows.Scan(&day, &ms); err != nil {
			writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load activity", r))
			return
		}
		activity = append(activity, dayActivity{Day: day.Format("2006-01-02"), Minutes: ms / 60_000})
	}
	if rows.Err() != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load activity", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"activity": activity})
}
