package services

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"studyflow-backend/internal/models"
)

// EventPublisher pushes user-scoped events onto the Redis channel the
// WebSocket hub subscribes to. Publishing is best-effort: a lost event only
// costs the UI a live update, the source of truth stays in Postgres.
type EventPublisher struct {
	redis *redis.Client
}

func NewEventPublisher(redisClient *redis.Client) *EventPublisher {
	return &EventPublisher{redis: redisClient}
}

func (p *EventPublisher) Publish(ctx context.Context, userID uuid.UUID, eventType string, payload interface{}) {
	data, err := json.Marshal(models.Event{Type: eventType, Payload: payload})
	if err != nil {
		zap.L().Warn("marshal event", zap.String("type", eventType), zap.Error(err))
		return
	}

	if err := p.redis.Publish(ctx, "user_events:"+userID.String(), data).Err(); err != nil {
		zap.L().Warn("publish event",
			zap.String("type", eventType),
			zap.String("user_id", userID.String()),
			zap.Error(err))
	}
}
