package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"studyflow-backend/internal/handlers"
	"studyflow-backend/internal/middleware"
	"studyflow-backend/internal/websocket"
)

func New(
	jwtAuth *middleware.JWTAuth,
	authHandler *handlers.AuthHandler,
	studyHandler *handlers.StudyHandler,
	timerHandler *handlers.TimerHandler,
	cycleHandler *handlers.CycleHandler,
	revisionHandler *handlers.RevisionHandler,
	dashboardHandler *handlers.DashboardHandler,
	wsHub *websocket.Hub,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	// Auth rate limiter (10 req/min per IP)
	authLimiter := middleware.NewRateLimiter(10, time.Minute)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Auth Routes (public) ────
		r.Route("/auth", func(r chi.Router) {
			r.Use(authLimiter.Middleware)
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)

			// Logout requires auth
			r.Group(func(r chi.Router) {
				r.Use(jwtAuth.Middleware)
				r.Post("/logout", authHandler.Logout)
			})
		})

		// ──── Study Hierarchy Routes ────
		r.Route("/studies", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Post("/", studyHandler.CreateStudy)
			r.Get("/", studyHandler.ListStudies)
			r.Get("/{id}", studyHandler.GetStudy)
			r.Put("/{id}", studyHandler.UpdateStudy)
			r.Delete("/{id}", studyHandler.DeleteStudy)
			r.Get("/{id}/disciplines", studyHandler.ListDisciplines)
		})

		r.Route("/disciplines", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Post("/", studyHandler.CreateDiscipline)
			r.Put("/{id}", studyHandler.UpdateDiscipline)
			r.Delete("/{id}", studyHandler.DeleteDiscipline)
			r.Get("/{id}/topics", studyHandler.ListTopics)
		})

		r.Route("/topics", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Post("/", studyHandler.CreateTopic)
			r.Put("/{id}", studyHandler.UpdateTopic)
			r.Delete("/{id}", studyHandler.DeleteTopic)
		})

		// ──── Timer Routes ────
		r.Route("/timer", func(r chi.Router) {
			// Beacon is public: sendBeacon cannot set headers, so the token
			// rides in the body instead.
			r.Post("/beacon", timerHandler.Beacon)

			r.Group(func(r chi.Router) {
				r.Use(jwtAuth.Middleware)
				r.Post("/start", timerHandler.Start)
				r.Post("/{id}/heartbeat", timerHandler.Heartbeat)
				r.Post("/{id}/stop", timerHandler.Stop)
				r.Get("/totals", timerHandler.Totals)
			})
		})

		// ──── Cycle Routes ────
		r.Route("/cycles", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Post("/", cycleHandler.Create)
			r.Get("/", cycleHandler.List)
			r.Get("/{id}", cycleHandler.Get)
			r.Put("/{id}", cycleHandler.Update)
		})

		r.Route("/cycle-sessions", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Post("/{id}/start", cycleHandler.StartSession)
		})

		// ──── Revision Routes ────
		r.Route("/revisions", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Post("/", revisionHandler.Schedule)
			r.Get("/due", revisionHandler.ListDue)
			r.Post("/{id}/complete", revisionHandler.Complete)
		})

		// ──── Dashboard Routes ────
		r.Route("/dashboard", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/stats", dashboardHandler.Stats)
			r.Get("/activity", dashboardHandler.Activity)
		})

		// ──── WebSocket ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}
