package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"studyflow-backend/internal/models"
)

type StudyRepo struct {
	pool *pgxpool.Pool
}

func NewStudyRepo(pool *pgxpool.Pool) *StudyRepo {
	return &StudyRepo{pool: pool}
}

func (r *StudyRepo) Create(ctx context.Context, s *models.Study) error {
	s.ID = uuid.New()
	query := `INSERT INTO studies (id, user_id, name, description)
		VALUES ($1, $2, $3, $4) RETURNING created_at`

	return r.pool.QueryRow(ctx, query, s.ID, s.UserID, s.Name, s.Description).Scan(&s.CreatedAt)
}

// GetByID is scoped by owner; a row belonging to someone else reads as absent.
func (r *StudyRepo) GetByID(ctx context.Context, id, userID uuid.UUID) (*models.Study, error) {
	s := &models.Study{}
	query := `SELECT id, user_id, name, description, created_at
		FROM studies WHERE id = $1 AND user_id = $2`

	err := r.pool.QueryRow(ctx, query, id, userID).Scan(
		&s.ID, &s.UserID, &s.Name, &s.Description, &s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *StudyRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Study, error) {
	query := `SELECT id, user_id, name, description, created_at
		FROM studies WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var studies []*models.Study
	for rows.Next() {
		s := &models.Study{}
		err := rows.Scan(&s.ID, &s.UserID, &s.Name, &s.Description, &s.CreatedAt)
		if err != nil {
			return nil, err
		}
		studies = append(studies, s)
	}
	return studies, rows.Err()
}

func (r *StudyRepo) Update(ctx context.Context, s *models.Study) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		"UPDATE studies SET name = $1, description = $2 WHERE id = $3 AND user_id = $4",
		s.Name, s.Description, s.ID, s.UserID,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *StudyRepo) Delete(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, "DELETE FROM studies WHERE id = $1 AND user_id = $2", id, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
