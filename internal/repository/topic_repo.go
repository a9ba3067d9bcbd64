package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"studyflow-backend/internal/models"
)

type TopicRepo struct {
	pool *pgxpool.Pool
}

func NewTopicRepo(pool *pgxpool.Pool) *TopicRepo {
	return &TopicRepo{pool: pool}
}

// Create inserts a topic only if the discipline's study belongs to the user.
func (r *TopicRepo) Create(ctx context.Context, t *models.Topic, userID uuid.UUID) (bool, error) {
	t.ID = uuid.New()
	query := `
		INSERT INTO topics (id, discipline_id, name)
		SELECT $1, d.id, $2
		FROM disciplines d
		JOIN studies s ON s.id = d.study_id
		WHERE d.id = $3 AND s.user_id = $4
		RETURNING created_at
	`

	err := r.pool.QueryRow(ctx, query, t.ID, t.Name, t.DisciplineID, userID).Scan(&t.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *TopicRepo) ListByDiscipline(ctx context.Context, disciplineID, userID uuid.UUID) ([]*models.Topic, error) {
	query := `
		SELECT t.id, t.discipline_id, t.name, t.created_at
		FROM topics t
		JOIN disciplines d ON d.id = t.discipline_id
		JOIN studies s ON s.id = d.study_id
		WHERE t.discipline_id = $1 AND s.user_id = $2
		ORDER BY t.created_at
	`

	rows, err := r.pool.Query(ctx, query, disciplineID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var topics []*models.Topic
	for rows.Next() {
		t := &models.Topic{}
		err := rows.Scan(&t.ID, &t.DisciplineID, &t.Name, &t.CreatedAt)
		if err != nil {
			return nil, err
		}
		topics = append(topics, t)
	}
	return topics, rows.Err()
}

// OwnedByUser reports whether the topic's study→discipline chain belongs to the user.
func (r *TopicRepo) OwnedByUser(ctx context.Context, topicID, userID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1
			FROM topics t
			JOIN disciplines d ON d.id = t.discipline_id
			JOIN studies s ON s.id = d.study_id
			WHERE t.id = $1 AND s.user_id = $2
		)
	`, topicID, userID).Scan(&exists)
	return exists, err
}

// AllOwnedByUser checks the whole batch in one round trip.
func (r *TopicRepo) AllOwnedByUser(ctx context.Context, topicIDs []uuid.UUID, userID uuid.UUID) (bool, error) {
	if len(topicIDs) == 0 {
		return true, nil
	}

	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(DISTINCT t.id)
		FROM topics t
		JOIN disciplines d ON d.id = t.discipline_id
		JOIN studies s ON s.id = d.study_id
		WHERE t.id = ANY($1) AND s.user_id = $2
	`, topicIDs, userID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count == len(uniqueIDs(topicIDs)), nil
}

func (r *TopicRepo) Update(ctx context.Context, t *models.Topic, userID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE topics t SET name = $1
		FROM disciplines d, studies s
		WHERE t.id = $2 AND d.id = t.discipline_id AND s.id = d.study_id AND s.user_id = $3
	`, t.Name, t.ID, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *TopicRepo) Delete(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM topics t
		USING disciplines d, studies s
		WHERE t.id = $1 AND d.id = t.discipline_id AND s.id = d.study_id AND s.user_id = $2
	`, id, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
