package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"studyflow-backend/internal/config"
	"studyflow-backend/internal/database"
	"studyflow-backend/internal/handlers"
	"studyflow-backend/internal/logger"
	"studyflow-backend/internal/middleware"
	"studyflow-backend/internal/repository"
	"studyflow-backend/internal/router"
	"studyflow-backend/internal/services"
	"studyflow-backend/internal/websocket"
	"studyflow-backend/internal/worker"
)

func main() {
	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()

	log, err := logger.Init(cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("starting studyflow backend", zap.String("env", cfg.Env))

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("postgres connection failed", zap.Error(err))
	}
	defer pool.Close()
	log.Info("postgres connected")

	// ──── Step 3: Initialize Redis Clients ────
	redisClients, err := database.NewRedisClients(cfg.RedisURL)
	if err != nil {
		log.Fatal("redis connection failed", zap.Error(err))
	}
	defer redisClients.Close()
	log.Info("redis connected")

	// ──── Step 4: Run Database Migrations ────
	if err := database.RunMigrations(cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
		log.Fatal("database migration failed", zap.Error(err))
	}
	log.Info("database migrations applied")

	// ──── Initialize Repositories ────
	userRepo := repository.NewUserRepo(pool)
	studyRepo := repository.NewStudyRepo(pool)
	disciplineRepo := repository.NewDisciplineRepo(pool)
	topicRepo := repository.NewTopicRepo(pool)
	timeSessionRepo := repository.NewTimeSessionRepo(pool)
	cycleRepo := repository.NewCycleRepo(pool)
	revisionRepo := repository.NewRevisionRepo(pool)

	// ──── Initialize Services ────
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	emailService := services.NewEmailService(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.FrontendURL)
	authService := services.NewAuthService(userRepo, redisClients.Tokens, jwtAuth)
	eventPublisher := services.NewEventPublisher(redisClients.PubSub)
	cycleService := services.NewCycleService(cycleRepo, topicRepo, eventPublisher)
	revisionService := services.NewRevisionService(revisionRepo, topicRepo)

	// ──── Initialize Handlers ────
	authHandler := handlers.NewAuthHandler(authService)
	studyHandler := handlers.NewStudyHandler(studyRepo, disciplineRepo, topicRepo)
	timerHandler := handlers.NewTimerHandler(timeSessionRepo, topicRepo, cycleService, eventPublisher, jwtAuth)
	cycleHandler := handlers.NewCycleHandler(cycleService)
	revisionHandler := handlers.NewRevisionHandler(revisionService)
	dashboardHandler := handlers.NewDashboardHandler(pool, revisionRepo)

	// ──── Step 5: Start Background Workers ────
	sweeper := worker.NewSweeper(timeSessionRepo, time.Duration(cfg.SweepIntervalMinutes)*time.Minute)
	sweeper.Start()

	reminder := worker.NewReminderScheduler(userRepo, revisionRepo, emailService, redisClients.Tokens)
	reminder.Start()

	// ──── Step 6: Start WebSocket Hub ────
	wsHub := websocket.NewHub(redisClients.PubSub, jwtAuth)
	log.Info("websocket hub started")

	// ──── Step 7: Start HTTP Server ────
	r := router.New(
		jwtAuth,
		authHandler,
		studyHandler,
		timerHandler,
		cycleHandler,
		revisionHandler,
		dashboardHandler,
		wsHub,
		cfg.FrontendURL,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info("shutting down")
		sweeper.Stop()
		reminder.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Info("studyflow backend ready",
		zap.String("addr", server.Addr),
		zap.String("api", "/api/v1"),
		zap.String("ws", "/api/v1/ws"))

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatal("server error", zap.Error(err))
	}
}
