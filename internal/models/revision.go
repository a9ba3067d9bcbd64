package models

import (
	"time"

	"github.com/google/uuid"
)

type Revision struct {
	ID           uuid.UUID  `json:"id"`
	UserID       uuid.UUID  `json:"user_id"`
	TopicID      uuid.UUID  `json:"topic_id"`
	DueOn        time.Time  `json:"due_on"`
	IntervalDays int        `json:"interval_days"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}
