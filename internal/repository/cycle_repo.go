package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"studyflow-backend/internal/models"
)

type CycleRepo struct {
	pool *pgxpool.Pool
}

func NewCycleRepo(pool *pgxpool.Pool) *CycleRepo {
	return &CycleRepo{pool: pool}
}

// CreateCycle persists the cycle header, its topic rows and the generated
// session calendar in a single transaction, so readers never observe a
// half-written plan.
func (r *CycleRepo) CreateCycle(ctx context.Context, cycle *models.StudyCycle, topics []models.CycleTopic, sessions []models.CycleSession) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin cycle create: %w", err)
	}
	defer tx.Rollback(ctx)

	cycle.ID = uuid.New()
	err = tx.QueryRow(ctx, `
		INSERT INTO study_cycles (id, user_id, name, hours_per_week, study_days, min_session_minutes, max_session_minutes, total_required_minutes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING status, started_at, completed_minutes
	`, cycle.ID, cycle.UserID, cycle.Name, cycle.HoursPerWeek, cycle.StudyDays,
		cycle.MinSessionMinutes, cycle.MaxSessionMinutes, cycle.TotalRequiredMinutes,
	).Scan(&cycle.Status, &cycle.StartedAt, &cycle.CompletedMinutes)
	if err != nil {
		return fmt.Errorf("insert cycle (user_id: %s): %w", cycle.UserID, err)
	}

	if err := insertPlan(ctx, tx, cycle.ID, topics, sessions); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// ReplaceCyclePlan is the edit path: header fields updated in place
// (completed_minutes survives), topic and session rows deleted and reinserted.
// One transaction end to end. Returns false if the cycle is not the user's.
func (r *CycleRepo) ReplaceCyclePlan(ctx context.Context, cycle *models.StudyCycle, topics []models.CycleTopic, sessions []models.CycleSession) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin cycle edit: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		UPDATE study_cycles
		SET name = $1, hours_per_week = $2, study_days = $3,
			min_session_minutes = $4, max_session_minutes = $5,
			total_required_minutes = $6
		WHERE id = $7 AND user_id = $8
		RETURNING status, started_at, completed_minutes
	`, cycle.Name, cycle.HoursPerWeek, cycle.StudyDays,
		cycle.MinSessionMinutes, cycle.MaxSessionMinutes, cycle.TotalRequiredMinutes,
		cycle.ID, cycle.UserID,
	).Scan(&cycle.Status, &cycle.StartedAt, &cycle.CompletedMinutes)
	if err != nil {
		if isNoRows(err) {
			return false, nil
		}
		return false, fmt.Errorf("update cycle (id: %s): %w", cycle.ID, err)
	}

	if _, err := tx.Exec(ctx, "DELETE FROM cycle_sessions WHERE cycle_id = $1", cycle.ID); err != nil {
		return false, fmt.Errorf("delete cycle sessions (cycle_id: %s): %w", cycle.ID, err)
	}
	if _, err := tx.Exec(ctx, "DELETE FROM cycle_topics WHERE cycle_id = $1", cycle.ID); err != nil {
		return false, fmt.Errorf("delete cycle topics (cycle_id: %s): %w", cycle.ID, err)
	}

	if err := insertPlan(ctx, tx, cycle.ID, topics, sessions); err != nil {
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func insertPlan(ctx context.Context, tx pgx.Tx, cycleID uuid.UUID, topics []models.CycleTopic, sessions []models.CycleSession) error {
	for i := range topics {
		t := &topics[i]
		t.ID = uuid.New()
		t.CycleID = cycleID
		_, err := tx.Exec(ctx, `
			INSERT INTO cycle_topics (id, cycle_id, topic_id, importance, knowledge, priority, required_minutes, completed_minutes, position)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, t.ID, t.CycleID, t.TopicID, t.Importance, t.Knowledge, t.Priority, t.RequiredMinutes, t.CompletedMinutes, t.Position)
		if err != nil {
			return fmt.Errorf("insert cycle topic (topic_id: %s): %w", t.TopicID, err)
		}
	}

	if len(sessions) == 0 {
		return nil
	}

	rows := make([][]interface{}, 0, len(sessions))
	for i := range sessions {
		s := &sessions[i]
		s.ID = uuid.New()
		s.CycleID = cycleID
		s.Status = models.CycleSessionPending
		rows = append(rows, []interface{}{s.ID, s.CycleID, s.TopicID, s.ScheduledAt, s.PlannedMinutes, s.Status})
	}

	_, err := tx.CopyFrom(ctx,
		pgx.Identifier{"cycle_sessions"},
		[]string{"id", "cycle_id", "topic_id", "scheduled_at", "planned_minutes", "status"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("insert cycle sessions (cycle_id: %s): %w", cycleID, err)
	}
	return nil
}

func (r *CycleRepo) GetByID(ctx context.Context, id, userID uuid.UUID) (*models.StudyCycle, error) {
	c := &models.StudyCycle{}
	query := `
		SELECT id, user_id, name, hours_per_week, study_days, min_session_minutes, max_session_minutes,
			total_required_minutes, completed_minutes, status, started_at, completed_at
		FROM study_cycles WHERE id = $1 AND user_id = $2
	`

	err := r.pool.QueryRow(ctx, query, id, userID).Scan(
		&c.ID, &c.UserID, &c.Name, &c.HoursPerWeek, &c.StudyDays,
		&c.MinSessionMinutes, &c.MaxSessionMinutes,
		&c.TotalRequiredMinutes, &c.CompletedMinutes, &c.Status, &c.StartedAt, &c.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *CycleRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.StudyCycle, error) {
	query := `
		SELECT id, user_id, name, hours_per_week, study_days, min_session_minutes, max_session_minutes,
			total_required_minutes, completed_minutes, status, started_at, completed_at
		FROM study_cycles WHERE user_id = $1 ORDER BY started_at DESC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cycles []*models.StudyCycle
	for rows.Next() {
		c := &models.StudyCycle{}
		err := rows.Scan(
			&c.ID, &c.UserID, &c.Name, &c.HoursPerWeek, &c.StudyDays,
			&c.MinSessionMinutes, &c.MaxSessionMinutes,
			&c.TotalRequiredMinutes, &c.CompletedMinutes, &c.Status, &c.StartedAt, &c.CompletedAt,
		)
		if err != nil {
			return nil, err
		}
		cycles = append(cycles, c)
	}
	return cycles, rows.Err()
}

// GetTopics returns the cycle's topic rows sorted by position, which the
// scheduler assigns by descending priority.
func (r *CycleRepo) GetTopics(ctx context.Context, cycleID uuid.UUID) ([]models.CycleTopic, error) {
	query := `
		SELECT id, cycle_id, topic_id, importance, knowledge, priority, required_minutes, completed_minutes, position
		FROM cycle_topics WHERE cycle_id = $1 ORDER BY position
	`

	rows, err := r.pool.Query(ctx, query, cycleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var topics []models.CycleTopic
	for rows.Next() {
		var t models.CycleTopic
		err := rows.Scan(&t.ID, &t.CycleID, &t.TopicID, &t.Importance, &t.Knowledge, &t.Priority, &t.RequiredMinutes, &t.CompletedMinutes, &t.Position)
		if err != nil {
			return nil, err
		}
		topics = append(topics, t)
	}
	return topics, rows.Err()
}

func (r *CycleRepo) GetSessions(ctx context.Context, cycleID uuid.UUID) ([]models.CycleSession, error) {
	query := `
		SELECT id, cycle_id, topic_id, scheduled_at, planned_minutes, status, actual_minutes, time_session_id
		FROM cycle_sessions WHERE cycle_id = $1 ORDER BY scheduled_at
	`

	rows, err := r.pool.Query(ctx, query, cycleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []models.CycleSession
	for rows.Next() {
		var s models.CycleSession
		err := rows.Scan(&s.ID, &s.CycleID, &s.TopicID, &s.ScheduledAt, &s.PlannedMinutes, &s.Status, &s.ActualMinutes, &s.TimeSessionID)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// ActiveCycleForTopic finds the user's single active cycle that includes the
// topic. Nil result (no error) when no such cycle exists.
func (r *CycleRepo) ActiveCycleForTopic(ctx context.Context, userID, topicID uuid.UUID) (*models.StudyCycle, error) {
	c := &models.StudyCycle{}
	query := `
		SELECT c.id, c.user_id, c.name, c.hours_per_week, c.study_days, c.min_session_minutes, c.max_session_minutes,
			c.total_required_minutes, c.completed_minutes, c.status, c.started_at, c.completed_at
		FROM study_cycles c
		JOIN cycle_topics ct ON ct.cycle_id = c.id
		WHERE c.user_id = $1 AND c.status = 'active' AND ct.topic_id = $2
		LIMIT 1
	`

	err := r.pool.QueryRow(ctx, query, userID, topicID).Scan(
		&c.ID, &c.UserID, &c.Name, &c.HoursPerWeek, &c.StudyDays,
		&c.MinSessionMinutes, &c.MaxSessionMinutes,
		&c.TotalRequiredMinutes, &c.CompletedMinutes, &c.Status, &c.StartedAt, &c.CompletedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

// AddProgress applies minutes to both the cycle and the matching topic row in
// one transaction, transitions the cycle to completed the moment the total is
// reached, and completes any in_progress scheduled session for that topic,
// linking the fulfilling time session.
func (r *CycleRepo) AddProgress(ctx context.Context, cycleID, topicID, timeSessionID uuid.UUID, minutes int) (*models.StudyCycle, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin progress update: %w", err)
	}
	defer tx.Rollback(ctx)

	c := &models.StudyCycle{}
	err = tx.QueryRow(ctx, `
		UPDATE study_cycles
		SET completed_minutes = completed_minutes + $1
		WHERE id = $2 AND status = 'active'
		RETURNING id, user_id, name, hours_per_week, study_days, min_session_minutes, max_session_minutes,
			total_required_minutes, completed_minutes, status, started_at, completed_at
	`, minutes, cycleID).Scan(
		&c.ID, &c.UserID, &c.Name, &c.HoursPerWeek, &c.StudyDays,
		&c.MinSessionMinutes, &c.MaxSessionMinutes,
		&c.TotalRequiredMinutes, &c.CompletedMinutes, &c.Status, &c.StartedAt, &c.CompletedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("add cycle progress (cycle_id: %s): %w", cycleID, err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE cycle_topics
		SET completed_minutes = completed_minutes + $1
		WHERE cycle_id = $2 AND topic_id = $3
	`, minutes, cycleID, topicID)
	if err != nil {
		return nil, fmt.Errorf("add topic progress (cycle_id: %s, topic_id: %s): %w", cycleID, topicID, err)
	}

	if c.RequirementMet() {
		err = tx.QueryRow(ctx, `
			UPDATE study_cycles
			SET status = 'completed', completed_at = NOW()
			WHERE id = $1 AND status = 'active'
			RETURNING status, completed_at
		`, cycleID).Scan(&c.Status, &c.CompletedAt)
		if err != nil {
			return nil, fmt.Errorf("complete cycle (cycle_id: %s): %w", cycleID, err)
		}
	}

	_, err = tx.Exec(ctx, `
		UPDATE cycle_sessions
		SET status = 'completed', actual_minutes = $1, time_session_id = $2
		WHERE cycle_id = $3 AND topic_id = $4 AND status = 'in_progress'
	`, minutes, timeSessionID, cycleID, topicID)
	if err != nil {
		return nil, fmt.Errorf("complete cycle session (cycle_id: %s, topic_id: %s): %w", cycleID, topicID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// StartSessionResult distinguishes the reasons a pending→in_progress
// transition can be refused.
type StartSessionResult int

const (
	StartSessionOK StartSessionResult = iota
	StartSessionNotFound
	StartSessionNotPending
	StartSessionBusy
)

// StartSession transitions a scheduled session from pending to in_progress.
// Only one session per cycle may be in_progress at a time.
func (r *CycleRepo) StartSession(ctx context.Context, cycleSessionID, userID uuid.UUID) (*models.CycleSession, StartSessionResult, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, StartSessionNotFound, fmt.Errorf("begin session start: %w", err)
	}
	defer tx.Rollback(ctx)

	s := &models.CycleSession{}
	err = tx.QueryRow(ctx, `
		SELECT cs.id, cs.cycle_id, cs.topic_id, cs.scheduled_at, cs.planned_minutes, cs.status, cs.actual_minutes, cs.time_session_id
		FROM cycle_sessions cs
		JOIN study_cycles c ON c.id = cs.cycle_id
		WHERE cs.id = $1 AND c.user_id = $2
		FOR UPDATE OF cs
	`, cycleSessionID, userID).Scan(
		&s.ID, &s.CycleID, &s.TopicID, &s.ScheduledAt, &s.PlannedMinutes, &s.Status, &s.ActualMinutes, &s.TimeSessionID,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, StartSessionNotFound, nil
		}
		return nil, StartSessionNotFound, fmt.Errorf("load cycle session (id: %s): %w", cycleSessionID, err)
	}

	if s.Status != models.CycleSessionPending {
		return nil, StartSessionNotPending, nil
	}

	var busy bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM cycle_sessions
			WHERE cycle_id = $1 AND status = 'in_progress'
		)
	`, s.CycleID).Scan(&busy)
	if err != nil {
		return nil, StartSessionNotFound, fmt.Errorf("check in-progress sessions (cycle_id: %s): %w", s.CycleID, err)
	}
	if busy {
		return nil, StartSessionBusy, nil
	}

	_, err = tx.Exec(ctx, "UPDATE cycle_sessions SET status = 'in_progress' WHERE id = $1", s.ID)
	if err != nil {
		return nil, StartSessionNotFound, fmt.Errorf("start cycle session (id: %s): %w", s.ID, err)
	}
	s.Status = models.CycleSessionInProgress

	if err := tx.Commit(ctx); err != nil {
		return nil, StartSessionNotFound, err
	}
	return s, StartSessionOK, nil
}
