package timer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// checkpointFile is the fixed key the active-session record lives under.
const checkpointFile = "active_session.json"

// Checkpoint is the durable record of the currently running session, written
// on start and cleared on stop. Its presence after a restart means the
// process died (or the tab closed) mid-session.
type Checkpoint struct {
	SessionID    uuid.UUID `json:"session_id"`
	TopicID      uuid.UUID `json:"topic_id"`
	DisciplineID uuid.UUID `json:"discipline_id"`
	StudyID      uuid.UUID `json:"study_id"`
	StartTime    int64     `json:"start_time"` // epoch ms
}

// CheckpointStore persists at most one checkpoint. Load returns (nil, nil)
// when no checkpoint exists.
type CheckpointStore interface {
	Load() (*Checkpoint, error)
	Save(cp *Checkpoint) error
	Clear() error
}

// FileStore keeps the checkpoint as a JSON file in a directory.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create checkpoint dir %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path() string {
	return filepath.Join(s.dir, checkpointFile)
}

func (s *FileStore) Load() (*Checkpoint, error) {
	data, err := os.ReadFile(s.path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read checkpoint: %w", err)
	}

	cp := &Checkpoint{}
	if err := json.Unmarshal(data, cp); err != nil {
		return nil, fmt.Errorf("decode checkpoint: %w", err)
	}
	return cp, nil
}

func (s *FileStore) Save(cp *Checkpoint) error {
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}

	// Write-then-rename so a crash mid-write never leaves a torn record.
	tmp := s.path() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	if err := os.Rename(tmp, s.path()); err != nil {
		return fmt.Errorf("commit checkpoint: %w", err)
	}
	return nil
}

func (s *FileStore) Clear() error {
	err := os.Remove(s.path())
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clear checkpoint: %w", err)
	}
	return nil
}
