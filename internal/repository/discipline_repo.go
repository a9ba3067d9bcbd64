package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"studyflow-backend/internal/models"
)

type DisciplineRepo struct {
	pool *pgxpool.Pool
}

func NewDisciplineRepo(pool *pgxpool.Pool) *DisciplineRepo {
	return &DisciplineRepo{pool: pool}
}

// Create inserts a discipline only if the parent study belongs to the user.
func (r *DisciplineRepo) Create(ctx context.Context, d *models.Discipline, userID uuid.UUID) (bool, error) {
	d.ID = uuid.New()
	query := `
		INSERT INTO disciplines (id, study_id, name, color)
		SELECT $1, s.id, $2, $3
		FROM studies s
		WHERE s.id = $4 AND s.user_id = $5
		RETURNING created_at
	`

	err := r.pool.QueryRow(ctx, query, d.ID, d.Name, d.Color, d.StudyID, userID).Scan(&d.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *DisciplineRepo) ListByStudy(ctx context.Context, studyID, userID uuid.UUID) ([]*models.Discipline, error) {
	query := `
		SELECT d.id, d.study_id, d.name, d.color, d.created_at
		FROM disciplines d
		JOIN studies s ON s.id = d.study_id
		WHERE d.study_id = $1 AND s.user_id = $2
		ORDER BY d.created_at
	`

	rows, err := r.pool.Query(ctx, query, studyID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var disciplines []*models.Discipline
	for rows.Next() {
		d := &models.Discipline{}
		err := rows.Scan(&d.ID, &d.StudyID, &d.Name, &d.Color, &d.CreatedAt)
		if err != nil {
			return nil, err
		}
		disciplines = append(disciplines, d)
	}
	return disciplines, rows.Err()
}

func (r *DisciplineRepo) Update(ctx context.Context, d *models.Discipline, userID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE disciplines d SET name = $1, color = $2
		FROM studies s
		WHERE d.id = $3 AND s.id = d.study_id AND s.user_id = $4
	`, d.Name, d.Color, d.ID, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *DisciplineRepo) Delete(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM disciplines d
		USING studies s
		WHERE d.id = $1 AND s.id = d.study_id AND s.user_id = $2
	`, id, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
