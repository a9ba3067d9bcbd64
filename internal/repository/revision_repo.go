package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"studyflow-backend/internal/models"
)

type RevisionRepo struct {
	pool *pgxpool.Pool
}

func NewRevisionRepo(pool *pgxpool.Pool) *RevisionRepo {
	return &RevisionRepo{pool: pool}
}

func (r *RevisionRepo) Create(ctx context.Context, rev *models.Revision) error {
	rev.ID = uuid.New()
	query := `INSERT INTO revisions (id, user_id, topic_id, due_on, interval_days)
		VALUES ($1, $2, $3, $4, $5) RETURNING created_at`

	return r.pool.QueryRow(ctx, query, rev.ID, rev.UserID, rev.TopicID, rev.DueOn, rev.IntervalDays).Scan(&rev.CreatedAt)
}

func (r *RevisionRepo) GetByID(ctx context.Context, id, userID uuid.UUID) (*models.Revision, error) {
	rev := &models.Revision{}
	query := `SELECT id, user_id, topic_id, due_on, interval_days, completed_at, created_at
		FROM revisions WHERE id = $1 AND user_id = $2`

	err := r.pool.QueryRow(ctx, query, id, userID).Scan(
		&rev.ID, &rev.UserID, &rev.TopicID, &rev.DueOn, &rev.IntervalDays, &rev.CompletedAt, &rev.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return rev, nil
}

// ListDue returns the user's uncompleted revisions due on or before the given day.
func (r *RevisionRepo) ListDue(ctx context.Context, userID uuid.UUID, day time.Time) ([]*models.Revision, error) {
	query := `
		SELECT id, user_id, topic_id, due_on, interval_days, completed_at, created_at
		FROM revisions
		WHERE user_id = $1 AND completed_at IS NULL AND due_on <= $2
		ORDER BY due_on
	`

	rows, err := r.pool.Query(ctx, query, userID, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var revisions []*models.Revision
	for rows.Next() {
		rev := &models.Revision{}
		err := rows.Scan(&rev.ID, &rev.UserID, &rev.TopicID, &rev.DueOn, &rev.IntervalDays, &rev.CompletedAt, &rev.CreatedAt)
		if err != nil {
			return nil, err
		}
		revisions = append(revisions, rev)
	}
	return revisions, rows.Err()
}

func (r *RevisionRepo) Complete(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE revisions SET completed_at = NOW()
		WHERE id = $1 AND user_id = $2 AND completed_at IS NULL
	`, id, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *RevisionRepo) CountDue(ctx context.Context, userID uuid.UUID, day time.Time) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM revisions
		WHERE user_id = $1 AND completed_at IS NULL AND due_on <= $2
	`, userID, day).Scan(&count)
	return count, err
}
