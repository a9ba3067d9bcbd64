package models

import "github.com/google/uuid"

// Events published to the per-user Redis channel and fanned out over WebSocket.

const (
	EventCycleProgress  = "cycle_progress"
	EventCycleCompleted = "cycle_completed"
	EventTimerStopped   = "timer_stopped"
)

type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type CycleProgressPayload struct {
	CycleID          uuid.UUID `json:"cycle_id"`
	TopicID          uuid.UUID `json:"topic_id"`
	AddedMinutes     int       `json:"added_minutes"`
	CompletedMinutes int       `json:"completed_minutes"`
	RequiredMinutes  int       `json:"required_minutes"`
	Status           string    `json:"status"`
}

type TimerStoppedPayload struct {
	SessionID  uuid.UUID `json:"session_id"`
	TopicID    uuid.UUID `json:"topic_id"`
	DurationMs int64     `json:"duration_ms"`
}
