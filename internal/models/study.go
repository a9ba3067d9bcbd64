package models

import (
	"time"

	"github.com/google/uuid"
)

// Study ⊃ Discipline ⊃ Topic is the hierarchy users organize material into.

type Study struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

type Discipline struct {
	ID        uuid.UUID `json:"id"`
	StudyID   uuid.UUID `json:"study_id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"created_at"`
}

type Topic struct {
	ID           uuid.UUID `json:"id"`
	DisciplineID uuid.UUID `json:"discipline_id"`
	Name         string    `json:"name"`
	CreatedAt    time.Time `json:"created_at"`
}
