package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	SessionTypeStudy    = "study"
	SessionTypeReview   = "review"
	SessionTypePractice = "practice"
)

// MaxSessionDurationMs caps a single recorded session at 24 hours.
const MaxSessionDurationMs = int64(86_400_000)

// ClampDurationMs bounds a reported duration to [0, MaxSessionDurationMs].
// Client clocks drift and tabs sleep, so both negative and absurdly large
// totals arrive in practice.
func ClampDurationMs(ms int64) int64 {
	if ms < 0 {
		return 0
	}
	if ms > MaxSessionDurationMs {
		return MaxSessionDurationMs
	}
	return ms
}

// TimeSession is one timed interval of work on a topic. DurationMs always
// holds the full elapsed total; heartbeats and stops overwrite it rather than
// adding deltas, so repeated writes for the same session are idempotent.
type TimeSession struct {
	ID              uuid.UUID  `json:"id"`
	UserID          uuid.UUID  `json:"user_id"`
	TopicID         uuid.UUID  `json:"topic_id"`
	SessionType     string     `json:"session_type"`
	StartedAt       time.Time  `json:"started_at"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
	DurationMs      int64      `json:"duration_ms"`
	LastHeartbeatAt time.Time  `json:"last_heartbeat_at"`
	CreatedAt       time.Time  `json:"created_at"`
}
