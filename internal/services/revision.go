package services

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"studyflow-backend/internal/models"
	"studyflow-backend/internal/repository"
)

// revisionIntervals is the spaced-repetition ladder, in days.
var revisionIntervals = []int{1, 7, 15, 30}

// NextRevisionDue returns the due date for the step following the given
// interval. The ladder tops out at its last rung.
func NextRevisionDue(from time.Time, currentIntervalDays int) (time.Time, int) {
	day := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)

	idx := slices.Index(revisionIntervals, currentIntervalDays)
	var next int
	switch {
	case idx == -1:
		next = revisionIntervals[0]
	case idx == len(revisionIntervals)-1:
		next = revisionIntervals[idx]
	default:
		next = revisionIntervals[idx+1]
	}

	return day.AddDate(0, 0, next), next
}

// RevisionService schedules and advances spaced-repetition revisions.
type RevisionService struct {
	revisionRepo *repository.RevisionRepo
	topicRepo    *repository.TopicRepo
	now          func() time.Time
}

func NewRevisionService(revisionRepo *repository.RevisionRepo, topicRepo *repository.TopicRepo) *RevisionService {
	return &RevisionService{
		revisionRepo: revisionRepo,
		topicRepo:    topicRepo,
		now:          time.Now,
	}
}

// Schedule creates the first revision for a topic, due tomorrow.
func (s *RevisionService) Schedule(ctx context.Context, userID, topicID uuid.UUID) (*models.Revision, error) {
	owned, err := s.topicRepo.OwnedByUser(ctx, topicID, userID)
	if err != nil {
		return nil, err
	}
	if !owned {
		return nil, &NotFoundError{Message: "Topic not found or access denied"}
	}

	due, interval := NextRevisionDue(s.now().UTC(), 0)
	rev := &models.Revision{
		UserID:       userID,
		TopicID:      topicID,
		DueOn:        due,
		IntervalDays: interval,
	}

	if err := s.revisionRepo.Create(ctx, rev); err != nil {
		return nil, fmt.Errorf("schedule revision (topic_id: %s): %w", topicID, err)
	}
	return rev, nil
}

func (s *RevisionService) ListDue(ctx context.Context, userID uuid.UUID) ([]*models.Revision, error) {
	return s.revisionRepo.ListDue(ctx, userID, s.now().UTC())
}

// Complete marks a revision done and schedules the next rung of the ladder.
func (s *RevisionService) Complete(ctx context.Context, userID, revisionID uuid.UUID) (*models.Revision, error) {
	rev, err := s.revisionRepo.GetByID(ctx, revisionID, userID)
	if err != nil {
		return nil, &NotFoundError{Message: "Revision not found or access denied"}
	}
	if rev.CompletedAt != nil {
		return nil, &ConflictError{Message: "Revision is already completed"}
	}

	done, err := s.revisionRepo.Complete(ctx, revisionID, userID)
	if err != nil {
		return nil, err
	}
	if !done {
		return nil, &ConflictError{Message: "Revision is already completed"}
	}

	due, interval := NextRevisionDue(s.now().UTC(), rev.IntervalDays)
	next := &models.Revision{
		UserID:       userID,
		TopicID:      rev.TopicID,
		DueOn:        due,
		IntervalDays: interval,
	}

	if err := s.revisionRepo.Create(ctx, next); err != nil {
		return nil, fmt.Errorf("schedule next revision (topic_id: %s): %w", rev.TopicID, err)
	}
	return next, nil
}
