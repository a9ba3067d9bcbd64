package services

import (
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"

	"studyflow-backend/internal/models"
)

// ─── Priority Formula Tests ───

func TestTopicPriorityAndRequiredMinutes(t *testing.T) {
	tests := []struct {
		name             string
		importance       int
		knowledge        int
		expectedPriority int
		expectedMinutes  int
	}{
		{"max importance, min knowledge", 5, 1, 14, 230},
		{"min importance, max knowledge", 1, 5, 2, 30},
		{"balanced", 3, 3, 8, 130},
		{"high importance, high knowledge", 5, 5, 10, 150},
		{"low importance, low knowledge", 1, 1, 6, 110},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := topicPriority(tc.importance, tc.knowledge); got != tc.expectedPriority {
				t.Errorf("Expected priority %d, got %d", tc.expectedPriority, got)
			}
			if got := topicRequiredMinutes(tc.importance, tc.knowledge); got != tc.expectedMinutes {
				t.Errorf("Expected required minutes %d, got %d", tc.expectedMinutes, got)
			}
		})
	}
}

// ─── Plan Computation Tests ───

func TestComputePlanOrdering(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	inputs := []models.CycleTopicInput{
		{TopicID: a, Importance: 1, Knowledge: 5}, // priority 2
		{TopicID: b, Importance: 5, Knowledge: 1}, // priority 14
		{TopicID: c, Importance: 3, Knowledge: 3}, // priority 8
	}

	topics, total := computePlan(inputs)

	if len(topics) != 3 {
		t.Fatalf("Expected 3 topics, got %d", len(topics))
	}

	wantOrder := []uuid.UUID{b, c, a}
	for i, want := range wantOrder {
		if topics[i].TopicID != want {
			t.Errorf("Position %d: expected topic %s, got %s", i, want, topics[i].TopicID)
		}
		if topics[i].Position != i {
			t.Errorf("Position %d: expected rank %d, got %d", i, i, topics[i].Position)
		}
	}

	// Non-increasing priority when sorted by position.
	for i := 1; i < len(topics); i++ {
		if topics[i].Priority > topics[i-1].Priority {
			t.Errorf("Priority increased from position %d to %d (%d → %d)",
				i-1, i, topics[i-1].Priority, topics[i].Priority)
		}
	}

	wantTotal := 30 + 230 + 130
	if total != wantTotal {
		t.Errorf("Expected total required %d, got %d", wantTotal, total)
	}
}

func TestComputePlanStableTieBreak(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	inputs := []models.CycleTopicInput{
		{TopicID: a, Importance: 3, Knowledge: 3},
		{TopicID: b, Importance: 3, Knowledge: 3},
	}

	topics, _ := computePlan(inputs)

	if topics[0].TopicID != a || topics[1].TopicID != b {
		t.Error("Equal priorities must preserve input order")
	}
}

func TestComputePlanEmpty(t *testing.T) {
	topics, total := computePlan(nil)
	if len(topics) != 0 {
		t.Errorf("Expected no topics, got %d", len(topics))
	}
	if total != 0 {
		t.Errorf("Expected total 0, got %d", total)
	}
}

// ─── Calendar Generation Tests ───

func TestBuildCalendarEmptyTopics(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	sessions := buildCalendar(time.Now(), []int{1, 2, 3}, 30, 60, nil, rng)
	if len(sessions) != 0 {
		t.Errorf("Expected no sessions for empty topic list, got %d", len(sessions))
	}
}

func TestBuildCalendarRespectsStudyDays(t *testing.T) {
	// Monday 2026-01-05.
	start := time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)
	topics := []models.CycleTopic{{TopicID: uuid.New(), Priority: 8}}
	rng := rand.New(rand.NewSource(42))

	sessions := buildCalendar(start, []int{1, 3, 5}, 30, 60, topics, rng)

	if len(sessions) == 0 {
		t.Fatal("Expected sessions to be generated")
	}

	allowed := map[time.Weekday]bool{time.Monday: true, time.Wednesday: true, time.Friday: true}
	days := map[string]int{}
	for _, s := range sessions {
		if !allowed[s.ScheduledAt.Weekday()] {
			t.Errorf("Session scheduled on %s, not a study day", s.ScheduledAt.Weekday())
		}
		days[s.ScheduledAt.Format("2006-01-02")]++
	}

	// 14-day horizon starting Monday covers Mon/Wed/Fri twice each.
	if len(days) != 6 {
		t.Errorf("Expected 6 study days in the horizon, got %d", len(days))
	}
	for day, count := range days {
		if count < 2 || count > 3 {
			t.Errorf("Day %s: expected 2 or 3 sessions, got %d", day, count)
		}
	}
}

func TestBuildCalendarSlotsAndDurations(t *testing.T) {
	start := time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)
	topics := []models.CycleTopic{{TopicID: uuid.New()}, {TopicID: uuid.New()}}
	rng := rand.New(rand.NewSource(7))

	sessions := buildCalendar(start, []int{0, 1, 2, 3, 4, 5, 6}, 30, 60, topics, rng)

	perDay := map[string][]models.CycleSession{}
	for _, s := range sessions {
		if s.PlannedMinutes < 30 || s.PlannedMinutes > 60 {
			t.Errorf("Planned duration %d outside [30,60]", s.PlannedMinutes)
		}
		if s.Status != models.CycleSessionPending {
			t.Errorf("Expected pending status, got %q", s.Status)
		}
		perDay[s.ScheduledAt.Format("2006-01-02")] = append(perDay[s.ScheduledAt.Format("2006-01-02")], s)
	}

	for day, daySessions := range perDay {
		for i, s := range daySessions {
			wantHour := 9 + 3*i
			if s.ScheduledAt.Hour() != wantHour {
				t.Errorf("Day %s session %d: expected hour %d, got %d", day, i, wantHour, s.ScheduledAt.Hour())
			}
		}
	}
}

func TestBuildCalendarRoundRobinAssignment(t *testing.T) {
	start := time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	topics := []models.CycleTopic{{TopicID: a}, {TopicID: b}, {TopicID: c}}
	rng := rand.New(rand.NewSource(3))

	sessions := buildCalendar(start, []int{0, 1, 2, 3, 4, 5, 6}, 30, 30, topics, rng)

	order := []uuid.UUID{a, b, c}
	for i, s := range sessions {
		if s.TopicID != order[i%3] {
			t.Errorf("Session %d: expected topic %s (round-robin), got %s", i, order[i%3], s.TopicID)
		}
	}
}

// Single-topic end-to-end: one topic at importance 3 / knowledge 3,
// Mon/Wed/Fri, sessions in [30,60] starting at 9:00.
func TestCyclePlanEndToEnd(t *testing.T) {
	topicID := uuid.New()
	inputs := []models.CycleTopicInput{{TopicID: topicID, Importance: 3, Knowledge: 3}}

	topics, total := computePlan(inputs)

	if topics[0].Priority != 8 {
		t.Errorf("Expected priority 8, got %d", topics[0].Priority)
	}
	if topics[0].RequiredMinutes != 130 {
		t.Errorf("Expected required minutes 130, got %d", topics[0].RequiredMinutes)
	}
	if total != 130 {
		t.Errorf("Expected total 130, got %d", total)
	}

	start := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC) // Monday
	rng := rand.New(rand.NewSource(99))
	sessions := buildCalendar(start, []int{1, 3, 5}, 30, 60, topics, rng)

	for _, s := range sessions {
		if s.TopicID != topicID {
			t.Errorf("Expected all sessions on topic %s, got %s", topicID, s.TopicID)
		}
		if s.PlannedMinutes < 30 || s.PlannedMinutes > 60 {
			t.Errorf("Planned duration %d outside [30,60]", s.PlannedMinutes)
		}
		if h := s.ScheduledAt.Hour(); h != 9 && h != 12 && h != 15 {
			t.Errorf("Unexpected slot hour %d", h)
		}
	}

	first := sessions[0]
	if first.ScheduledAt.Hour() != 9 {
		t.Errorf("First session of the day should start at 9:00, got %d:00", first.ScheduledAt.Hour())
	}
}

// ─── Truncation Tests ───

func TestProgressMinutesTruncation(t *testing.T) {
	tests := []struct {
		durationMs int64
		minutes    int
	}{
		{119_999, 1}, // floor, never round up
		{120_000, 2},
		{59_999, 0},
		{60_000, 1},
		{0, 0},
	}

	for _, tc := range tests {
		if got := int(tc.durationMs / 60_000); got != tc.minutes {
			t.Errorf("duration %d ms: expected %d minutes, got %d", tc.durationMs, tc.minutes, got)
		}
	}
}

func TestValidateCycleRequest(t *testing.T) {
	svc := &CycleService{}
	valid := models.CycleRequest{
		Name:              "Weekly plan",
		Topics:            []models.CycleTopicInput{{TopicID: uuid.New(), Importance: 3, Knowledge: 2}},
		HoursPerWeek:      10,
		StudyDays:         []int{1, 3, 5},
		MinSessionMinutes: 30,
		MaxSessionMinutes: 60,
	}

	if err := svc.validate(valid); err != nil {
		t.Errorf("Expected valid request, got %v", err)
	}

	// A cycle without topics is allowed: it starts with zero required minutes
	// and an empty calendar.
	empty := valid
	empty.Topics = nil
	if err := svc.validate(empty); err != nil {
		t.Errorf("Expected empty topic list to be accepted, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*models.CycleRequest)
		field  string
	}{
		{"empty name", func(r *models.CycleRequest) { r.Name = "" }, "name"},
		{"zero hours", func(r *models.CycleRequest) { r.HoursPerWeek = 0 }, "hours_per_week"},
		{"no study days", func(r *models.CycleRequest) { r.StudyDays = nil }, "study_days"},
		{"bad weekday", func(r *models.CycleRequest) { r.StudyDays = []int{7} }, "study_days"},
		{"zero min duration", func(r *models.CycleRequest) { r.MinSessionMinutes = 0 }, "min_session_minutes"},
		{"max below min", func(r *models.CycleRequest) { r.MaxSessionMinutes = 10 }, "max_session_minutes"},
		{"importance out of range", func(r *models.CycleRequest) { r.Topics[0].Importance = 6 }, "topics"},
		{"knowledge out of range", func(r *models.CycleRequest) { r.Topics[0].Knowledge = 0 }, "topics"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := valid
			req.Topics = append([]models.CycleTopicInput(nil), valid.Topics...)
			tc.mutate(&req)

			err := svc.validate(req)
			verr, ok := err.(*ValidationError)
			if !ok {
				t.Fatalf("Expected ValidationError, got %v", err)
			}
			if _, present := verr.Fields[tc.field]; !present {
				t.Errorf("Expected field error on %q, got %v", tc.field, verr.Fields)
			}
		})
	}
}
