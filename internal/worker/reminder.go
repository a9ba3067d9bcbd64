package worker

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"studyflow-backend/internal/repository"
	"studyflow-backend/internal/services"
)

const reminderPollInterval = 1 * time.Hour

// ReminderScheduler emails users who have revisions due today. The Redis
// SetNX key makes the send once-per-user-per-day even across multiple server
// instances.
type ReminderScheduler struct {
	userRepo     *repository.UserRepo
	revisionRepo *repository.RevisionRepo
	email        *services.EmailService
	redis        *redis.Client
	stopChan     chan struct{}
}

func NewReminderScheduler(
	userRepo *repository.UserRepo,
	revisionRepo *repository.RevisionRepo,
	email *services.EmailService,
	redisClient *redis.Client,
) *ReminderScheduler {
	return &ReminderScheduler{
		userRepo:     userRepo,
		revisionRepo: revisionRepo,
		email:        email,
		redis:        redisClient,
		stopChan:     make(chan struct{}),
	}
}

func (s *ReminderScheduler) Start() {
	if s.userRepo == nil || s.email == nil {
		return
	}

	go s.loop()
	zap.L().Info("revision reminder scheduler started")
}

func (s *ReminderScheduler) Stop() {
	select {
	case <-s.stopChan:
		return
	default:
		close(s.stopChan)
	}
}

func (s *ReminderScheduler) loop() {
	// Run on startup as well as by interval.
	s.sendReminders(context.Background(), time.Now().UTC())

	ticker := time.NewTicker(reminderPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.sendReminders(context.Background(), time.Now().UTC())
		}
	}
}

func (s *ReminderScheduler) sendReminders(ctx context.Context, now time.Time) {
	recipients, err := s.userRepo.ListWithDueRevisions(ctx, now)
	if err != nil {
		zap.L().Error("revision reminders: list recipients", zap.Error(err))
		return
	}

	day := now.Format("2006-01-02")
	for _, recipient := range recipients {
		lockKey := "revision_reminder:" + recipient.ID.String() + ":" + day
		sent, err := s.redis.SetNX(ctx, lockKey, "1", 48*time.Hour).Result()
		if err != nil {
			zap.L().Warn("revision reminders: dedup check",
				zap.String("user_id", recipient.ID.String()),
				zap.Error(err))
			continue
		}
		if !sent {
			continue
		}

		dueCount, err := s.revisionRepo.CountDue(ctx, recipient.ID, now)
		if err != nil {
			zap.L().Error("revision reminders: count due",
				zap.String("user_id", recipient.ID.String()),
				zap.Error(err))
			continue
		}
		if dueCount == 0 {
			continue
		}

		if err := s.email.SendRevisionReminder(recipient.Email, recipient.FullName, dueCount); err != nil {
			zap.L().Error("revision reminders: send",
				zap.String("email", recipient.Email),
				zap.Error(err))
		}
	}
}
