package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	CycleStatusActive    = "active"
	CycleStatusCompleted = "completed"
)

const (
	CycleSessionPending    = "pending"
	CycleSessionInProgress = "in_progress"
	CycleSessionCompleted  = "completed"
)

// StudyCycle is a weekly study plan spanning a curated set of topics.
// CompletedMinutes only grows while the cycle is active; the active→completed
// transition happens exactly once, when it reaches TotalRequiredMinutes.
type StudyCycle struct {
	ID                   uuid.UUID  `json:"id"`
	UserID               uuid.UUID  `json:"user_id"`
	Name                 string     `json:"name"`
	HoursPerWeek         int        `json:"hours_per_week"`
	StudyDays            []int      `json:"study_days"`
	MinSessionMinutes    int        `json:"min_session_minutes"`
	MaxSessionMinutes    int        `json:"max_session_minutes"`
	TotalRequiredMinutes int        `json:"total_required_minutes"`
	CompletedMinutes     int        `json:"completed_minutes"`
	Status               string     `json:"status"`
	StartedAt            time.Time  `json:"started_at"`
	CompletedAt          *time.Time `json:"completed_at,omitempty"`
}

// RequirementMet reports whether accumulated minutes have reached the plan's
// total. The transition to completed fires exactly at the threshold, not past
// it: 99 of 100 stays active, 100 of 100 completes.
func (c *StudyCycle) RequirementMet() bool {
	return c.CompletedMinutes >= c.TotalRequiredMinutes
}

// CycleTopic is a topic's participation record within one cycle. Priority and
// RequiredMinutes are derived from the importance/knowledge scores; Position is
// the 0-based rank in descending priority order.
type CycleTopic struct {
	ID               uuid.UUID `json:"id"`
	CycleID          uuid.UUID `json:"cycle_id"`
	TopicID          uuid.UUID `json:"topic_id"`
	Importance       int       `json:"importance"`
	Knowledge        int       `json:"knowledge"`
	Priority         int       `json:"priority"`
	RequiredMinutes  int       `json:"required_minutes"`
	CompletedMinutes int       `json:"completed_minutes"`
	Position         int       `json:"position"`
}

// CycleSession is one scheduled study slot generated by the scheduler. Rows are
// immutable after generation except for the status/actual-duration transition,
// which links the TimeSession that fulfilled the slot.
type CycleSession struct {
	ID             uuid.UUID  `json:"id"`
	CycleID        uuid.UUID  `json:"cycle_id"`
	TopicID        uuid.UUID  `json:"topic_id"`
	ScheduledAt    time.Time  `json:"scheduled_at"`
	PlannedMinutes int        `json:"planned_minutes"`
	Status         string     `json:"status"`
	ActualMinutes  *int       `json:"actual_minutes,omitempty"`
	TimeSessionID  *uuid.UUID `json:"time_session_id,omitempty"`
}

// CycleTopicInput is the caller-supplied shape for cycle creation and edit.
type CycleTopicInput struct {
	TopicID    uuid.UUID `json:"topic_id"`
	Importance int       `json:"importance"`
	Knowledge  int       `json:"knowledge"`
}

type CycleRequest struct {
	Name              string            `json:"name"`
	Topics            []CycleTopicInput `json:"topics"`
	HoursPerWeek      int               `json:"hours_per_week"`
	StudyDays         []int             `json:"study_days"`
	MinSessionMinutes int               `json:"min_session_minutes"`
	MaxSessionMinutes int               `json:"max_session_minutes"`
}
