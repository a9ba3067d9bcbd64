package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"studyflow-backend/internal/models"
)

type TimeSessionRepo struct {
	pool *pgxpool.Pool
}

func NewTimeSessionRepo(pool *pgxpool.Pool) *TimeSessionRepo {
	return &TimeSessionRepo{pool: pool}
}

// Start inserts a new running session with duration 0. Any session still
// running for this user is finalized first, so at most one row per user has
// ended_at IS NULL (backed by a partial unique index).
func (r *TimeSessionRepo) Start(ctx context.Context, s *models.TimeSession) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE time_sessions
		SET ended_at = NOW(),
			duration_ms = LEAST($1, GREATEST(0, (EXTRACT(EPOCH FROM (NOW() - started_at)) * 1000)::BIGINT)),
			last_heartbeat_at = NOW()
		WHERE user_id = $2
		  AND ended_at IS NULL
	`, models.MaxSessionDurationMs, s.UserID)
	if err != nil {
		return fmt.Errorf("close previous session (user_id: %s): %w", s.UserID, err)
	}

	query := `
		INSERT INTO time_sessions (id, user_id, topic_id, session_type)
		VALUES ($1, $2, $3, $4)
		RETURNING started_at, last_heartbeat_at, created_at
	`

	return r.pool.QueryRow(ctx, query, s.ID, s.UserID, s.TopicID, s.SessionType).Scan(
		&s.StartedAt,
		&s.LastHeartbeatAt,
		&s.CreatedAt,
	)
}

// Heartbeat overwrites the running total. The field carries the full elapsed
// time, never a delta, so concurrent writes are benign last-write-wins.
func (r *TimeSessionRepo) Heartbeat(ctx context.Context, sessionID, userID uuid.UUID, totalMs int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE time_sessions
		SET duration_ms = $1,
			last_heartbeat_at = NOW()
		WHERE id = $2
		  AND user_id = $3
		  AND ended_at IS NULL
	`, models.ClampDurationMs(totalMs), sessionID, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Finalize stops a session: sets ended_at (first stop only) and overwrites the
// duration. Repeated stops for the same id are idempotent overwrites, which the
// duplicated unload-time delivery relies on. The bool reports whether this call
// was the first stop, so downstream progress accounting runs exactly once.
// Returns nil when the id is unknown.
func (r *TimeSessionRepo) Finalize(ctx context.Context, sessionID, userID uuid.UUID, durationMs int64) (*models.TimeSession, bool, error) {
	s := &models.TimeSession{}
	var firstStop bool
	query := `
		UPDATE time_sessions t
		SET ended_at = COALESCE(t.ended_at, NOW()),
			duration_ms = $1,
			last_heartbeat_at = NOW()
		FROM (
			SELECT id, ended_at IS NULL AS was_running
			FROM time_sessions
			WHERE id = $2 AND user_id = $3
			FOR UPDATE
		) prev
		WHERE t.id = prev.id
		RETURNING t.id, t.user_id, t.topic_id, t.session_type, t.started_at, t.ended_at,
			t.duration_ms, t.last_heartbeat_at, t.created_at, prev.was_running
	`

	err := r.pool.QueryRow(ctx, query, models.ClampDurationMs(durationMs), sessionID, userID).Scan(
		&s.ID, &s.UserID, &s.TopicID, &s.SessionType,
		&s.StartedAt, &s.EndedAt, &s.DurationMs, &s.LastHeartbeatAt, &s.CreatedAt,
		&firstStop,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return s, firstStop, nil
}

// TotalsByTopic sums duration_ms per topic across all of the user's sessions,
// running ones included.
func (r *TimeSessionRepo) TotalsByTopic(ctx context.Context, userID uuid.UUID, topicIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	totals := make(map[uuid.UUID]int64, len(topicIDs))
	if len(topicIDs) == 0 {
		return totals, nil
	}

	query := psql.Select("topic_id", "COALESCE(SUM(duration_ms), 0)").
		From("time_sessions").
		Where(squirrel.Eq{"user_id": userID, "topic_id": topicIDs}).
		GroupBy("topic_id")

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build totals query (user_id: %s): %w", userID, err)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("sum session totals (user_id: %s): %w", userID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var topicID uuid.UUID
		var total int64
		if err := rows.Scan(&topicID, &total); err != nil {
			return nil, err
		}
		totals[topicID] = total
	}
	return totals, rows.Err()
}

// DeleteZeroDuration removes finalized sessions that never accumulated any
// time. Old rows only; a session stopped moments ago may still get a late
// duplicate stop write.
func (r *TimeSessionRepo) DeleteZeroDuration(ctx context.Context, olderThan time.Duration) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM time_sessions
		WHERE duration_ms = 0
		  AND ended_at IS NOT NULL
		  AND ended_at < NOW() - $1::INTERVAL
	`, olderThan.String())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// CloseAbandoned finalizes running sessions whose last heartbeat is older than
// the cutoff, capping the recorded duration at capMs. Server-side mirror of the
// client's stale-checkpoint ceiling.
func (r *TimeSessionRepo) CloseAbandoned(ctx context.Context, cutoff time.Duration, capMs int64) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE time_sessions
		SET ended_at = NOW(),
			duration_ms = LEAST($1, GREATEST(duration_ms, (EXTRACT(EPOCH FROM (last_heartbeat_at - started_at)) * 1000)::BIGINT))
		WHERE ended_at IS NULL
		  AND last_heartbeat_at < NOW() - $2::INTERVAL
	`, capMs, cutoff.String())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
