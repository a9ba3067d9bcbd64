package services

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"studyflow-backend/internal/models"
	"studyflow-backend/internal/repository"
)

const (
	// calendarDays is the horizon of the generated session calendar.
	calendarDays = 14

	// firstSlotHour and slotStepHours place sessions at 9:00, 12:00, 15:00.
	firstSlotHour = 9
	slotStepHours = 3

	// minSessionsPerDay..maxSessionsPerDay sessions are generated per study day.
	minSessionsPerDay = 2
	maxSessionsPerDay = 3
)

// CycleService owns the priority scheduler: it turns a set of scored topics
// and a weekly time budget into a ranked topic list and a two-week calendar of
// study slots, and keeps cycle progress in step with finalized time sessions.
type CycleService struct {
	cycleRepo *repository.CycleRepo
	topicRepo *repository.TopicRepo
	events    *EventPublisher
	now       func() time.Time
}

func NewCycleService(cycleRepo *repository.CycleRepo, topicRepo *repository.TopicRepo, events *EventPublisher) *CycleService {
	return &CycleService{
		cycleRepo: cycleRepo,
		topicRepo: topicRepo,
		events:    events,
		now:       time.Now,
	}
}

// topicPriority ranks a topic inside a cycle: importance pulls twice as hard
// as missing knowledge. Range [2,14].
func topicPriority(importance, knowledge int) int {
	return importance*2 + (5 - knowledge)
}

// topicRequiredMinutes derives the study-time demand from the same scores.
// Range [30,230].
func topicRequiredMinutes(importance, knowledge int) int {
	return importance*30 + (5-knowledge)*20
}

// computePlan derives priority and required time per topic and returns the
// rows sorted by descending priority (stable, so input order breaks ties)
// with Position set to the 0-based rank, plus the summed required minutes.
func computePlan(inputs []models.CycleTopicInput) ([]models.CycleTopic, int) {
	topics := make([]models.CycleTopic, 0, len(inputs))
	total := 0

	for _, in := range inputs {
		required := topicRequiredMinutes(in.Importance, in.Knowledge)
		topics = append(topics, models.CycleTopic{
			TopicID:         in.TopicID,
			Importance:      in.Importance,
			Knowledge:       in.Knowledge,
			Priority:        topicPriority(in.Importance, in.Knowledge),
			RequiredMinutes: required,
		})
		total += required
	}

	sort.SliceStable(topics, func(i, j int) bool {
		return topics[i].Priority > topics[j].Priority
	})
	for i := range topics {
		topics[i].Position = i
	}

	return topics, total
}

// buildCalendar generates the session calendar: for each of the next
// calendarDays days whose weekday is a study day, 2 or 3 sessions at fixed
// hour slots, each with a uniform random duration in [minMinutes, maxMinutes].
// Sessions are assigned round-robin over the priority-ordered topic list; the
// ranking only decides who goes first in the rotation, not who gets more slots.
func buildCalendar(start time.Time, studyDays []int, minMinutes, maxMinutes int, topics []models.CycleTopic, rng *rand.Rand) []models.CycleSession {
	if len(topics) == 0 {
		return nil
	}

	studyDaySet := make(map[int]bool, len(studyDays))
	for _, d := range studyDays {
		studyDaySet[d] = true
	}

	var sessions []models.CycleSession
	sessionIdx := 0

	for day := 0; day < calendarDays; day++ {
		date := start.AddDate(0, 0, day)
		if !studyDaySet[int(date.Weekday())] {
			continue
		}

		count := minSessionsPerDay + rng.Intn(maxSessionsPerDay-minSessionsPerDay+1)
		for i := 0; i < count; i++ {
			topic := topics[sessionIdx%len(topics)]
			slot := time.Date(date.Year(), date.Month(), date.Day(), firstSlotHour+slotStepHours*i, 0, 0, 0, date.Location())
			duration := minMinutes + rng.Intn(maxMinutes-minMinutes+1)

			sessions = append(sessions, models.CycleSession{
				TopicID:        topic.TopicID,
				ScheduledAt:    slot,
				PlannedMinutes: duration,
				Status:         models.CycleSessionPending,
			})
			sessionIdx++
		}
	}

	return sessions
}

func (s *CycleService) validate(req models.CycleRequest) error {
	fieldErrors := make(map[string]string)

	if req.Name == "" {
		fieldErrors["name"] = "Name is required"
	}
	if req.HoursPerWeek <= 0 {
		fieldErrors["hours_per_week"] = "Hours per week must be positive"
	}
	if len(req.StudyDays) == 0 {
		fieldErrors["study_days"] = "At least one study day is required"
	}
	for _, d := range req.StudyDays {
		if d < 0 || d > 6 {
			fieldErrors["study_days"] = "Study days must be weekdays 0-6"
			break
		}
	}
	if req.MinSessionMinutes <= 0 {
		fieldErrors["min_session_minutes"] = "Minimum session duration must be positive"
	}
	if req.MaxSessionMinutes < req.MinSessionMinutes {
		fieldErrors["max_session_minutes"] = "Maximum session duration must not be below the minimum"
	}
	// An empty topic list is valid: the cycle is created with zero required
	// minutes and no scheduled sessions, and topics can be added later.
	for _, t := range req.Topics {
		if t.Importance < 1 || t.Importance > 5 || t.Knowledge < 1 || t.Knowledge > 5 {
			fieldErrors["topics"] = "Importance and knowledge must be between 1 and 5"
			break
		}
	}

	if len(fieldErrors) > 0 {
		return &ValidationError{Fields: fieldErrors}
	}
	return nil
}

func (s *CycleService) CreateCycle(ctx context.Context, userID uuid.UUID, req models.CycleRequest) (*models.StudyCycle, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	topicIDs := make([]uuid.UUID, 0, len(req.Topics))
	for _, t := range req.Topics {
		topicIDs = append(topicIDs, t.TopicID)
	}
	owned, err := s.topicRepo.AllOwnedByUser(ctx, topicIDs, userID)
	if err != nil {
		return nil, err
	}
	if !owned {
		return nil, &NotFoundError{Message: "Topic not found or access denied"}
	}

	topics, totalRequired := computePlan(req.Topics)
	rng := rand.New(rand.NewSource(s.now().UnixNano()))
	sessions := buildCalendar(s.now(), req.StudyDays, req.MinSessionMinutes, req.MaxSessionMinutes, topics, rng)

	cycle := &models.StudyCycle{
		UserID:               userID,
		Name:                 req.Name,
		HoursPerWeek:         req.HoursPerWeek,
		StudyDays:            req.StudyDays,
		MinSessionMinutes:    req.MinSessionMinutes,
		MaxSessionMinutes:    req.MaxSessionMinutes,
		TotalRequiredMinutes: totalRequired,
	}

	if err := s.cycleRepo.CreateCycle(ctx, cycle, topics, sessions); err != nil {
		return nil, fmt.Errorf("create cycle (user_id: %s): %w", userID, err)
	}

	return cycle, nil
}

// UpdateCycle is a full replace-and-regenerate: topic and session rows are
// rebuilt from scratch inside one transaction, header fields updated in place.
// Accumulated completed minutes carry over.
func (s *CycleService) UpdateCycle(ctx context.Context, userID, cycleID uuid.UUID, req models.CycleRequest) (*models.StudyCycle, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	topicIDs := make([]uuid.UUID, 0, len(req.Topics))
	for _, t := range req.Topics {
		topicIDs = append(topicIDs, t.TopicID)
	}
	owned, err := s.topicRepo.AllOwnedByUser(ctx, topicIDs, userID)
	if err != nil {
		return nil, err
	}
	if !owned {
		return nil, &NotFoundError{Message: "Topic not found or access denied"}
	}

	topics, totalRequired := computePlan(req.Topics)
	rng := rand.New(rand.NewSource(s.now().UnixNano()))
	sessions := buildCalendar(s.now(), req.StudyDays, req.MinSessionMinutes, req.MaxSessionMinutes, topics, rng)

	cycle := &models.StudyCycle{
		ID:                   cycleID,
		UserID:               userID,
		Name:                 req.Name,
		HoursPerWeek:         req.HoursPerWeek,
		StudyDays:            req.StudyDays,
		MinSessionMinutes:    req.MinSessionMinutes,
		MaxSessionMinutes:    req.MaxSessionMinutes,
		TotalRequiredMinutes: totalRequired,
	}

	found, err := s.cycleRepo.ReplaceCyclePlan(ctx, cycle, topics, sessions)
	if err != nil {
		return nil, fmt.Errorf("update cycle (id: %s): %w", cycleID, err)
	}
	if !found {
		return nil, &NotFoundError{Message: "Cycle not found or access denied"}
	}

	return cycle, nil
}

func (s *CycleService) GetCycle(ctx context.Context, userID, cycleID uuid.UUID) (*models.StudyCycle, []models.CycleTopic, []models.CycleSession, error) {
	cycle, err := s.cycleRepo.GetByID(ctx, cycleID, userID)
	if err != nil {
		return nil, nil, nil, &NotFoundError{Message: "Cycle not found or access denied"}
	}

	topics, err := s.cycleRepo.GetTopics(ctx, cycleID)
	if err != nil {
		return nil, nil, nil, err
	}
	sessions, err := s.cycleRepo.GetSessions(ctx, cycleID)
	if err != nil {
		return nil, nil, nil, err
	}

	return cycle, topics, sessions, nil
}

func (s *CycleService) ListCycles(ctx context.Context, userID uuid.UUID) ([]*models.StudyCycle, error) {
	return s.cycleRepo.ListByUser(ctx, userID)
}

// ApplySessionProgress feeds a finalized time session into the active cycle
// containing its topic. The millisecond→minute conversion truncates; sessions
// shorter than a minute contribute nothing.
func (s *CycleService) ApplySessionProgress(ctx context.Context, session *models.TimeSession) error {
	minutes := int(session.DurationMs / 60_000)
	if minutes <= 0 {
		return nil
	}

	cycle, err := s.cycleRepo.ActiveCycleForTopic(ctx, session.UserID, session.TopicID)
	if err != nil {
		return fmt.Errorf("find active cycle (topic_id: %s): %w", session.TopicID, err)
	}
	if cycle == nil {
		return nil
	}

	updated, err := s.cycleRepo.AddProgress(ctx, cycle.ID, session.TopicID, session.ID, minutes)
	if err != nil {
		return fmt.Errorf("apply progress (cycle_id: %s): %w", cycle.ID, err)
	}
	if updated == nil {
		// Lost a race with the completion transition; nothing left to credit.
		return nil
	}

	s.events.Publish(ctx, session.UserID, models.EventCycleProgress, models.CycleProgressPayload{
		CycleID:          updated.ID,
		TopicID:          session.TopicID,
		AddedMinutes:     minutes,
		CompletedMinutes: updated.CompletedMinutes,
		RequiredMinutes:  updated.TotalRequiredMinutes,
		Status:           updated.Status,
	})
	if updated.Status == models.CycleStatusCompleted {
		zap.L().Info("study cycle completed",
			zap.String("cycle_id", updated.ID.String()),
			zap.Int("completed_minutes", updated.CompletedMinutes))
		s.events.Publish(ctx, session.UserID, models.EventCycleCompleted, models.CycleProgressPayload{
			CycleID:          updated.ID,
			TopicID:          session.TopicID,
			CompletedMinutes: updated.CompletedMinutes,
			RequiredMinutes:  updated.TotalRequiredMinutes,
			Status:           updated.Status,
		})
	}

	return nil
}

// StartCycleSession moves a scheduled slot from pending to in_progress. The
// refusal reasons surface as typed errors so the UI can tell the user.
func (s *CycleService) StartCycleSession(ctx context.Context, userID, cycleSessionID uuid.UUID) (*models.CycleSession, error) {
	session, result, err := s.cycleRepo.StartSession(ctx, cycleSessionID, userID)
	if err != nil {
		return nil, err
	}

	switch result {
	case repository.StartSessionOK:
		return session, nil
	case repository.StartSessionNotFound:
		return nil, &NotFoundError{Message: "Cycle session not found or access denied"}
	case repository.StartSessionNotPending:
		return nil, &ConflictError{Message: "Session has already been started"}
	case repository.StartSessionBusy:
		return nil, &ConflictError{Message: "Another session in this cycle is already in progress"}
	default:
		return nil, fmt.Errorf("unexpected start result %d", result)
	}
}
