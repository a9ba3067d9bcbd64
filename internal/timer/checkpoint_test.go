package timer

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestFileStoreRoundTrip(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}

	// Empty directory means no checkpoint, not an error.
	cp, err := store.Load()
	if err != nil {
		t.Fatalf("Load on empty store failed: %v", err)
	}
	if cp != nil {
		t.Fatal("Expected nil checkpoint from an empty store")
	}

	want := &Checkpoint{
		SessionID:    uuid.New(),
		TopicID:      uuid.New(),
		DisciplineID: uuid.New(),
		StudyID:      uuid.New(),
		StartTime:    time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC).UnixMilli(),
	}

	if err := store.Save(want); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got == nil {
		t.Fatal("Expected a checkpoint after Save")
	}
	if got.SessionID != want.SessionID || got.TopicID != want.TopicID {
		t.Error("Loaded checkpoint does not match the saved one")
	}
	if got.StartTime != want.StartTime {
		t.Errorf("Expected start time %d, got %d", want.StartTime, got.StartTime)
	}

	if err := store.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	cp, err = store.Load()
	if err != nil {
		t.Fatalf("Load after Clear failed: %v", err)
	}
	if cp != nil {
		t.Error("Expected nil checkpoint after Clear")
	}
}

func TestFileStoreClearIdempotent(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}

	if err := store.Clear(); err != nil {
		t.Errorf("Clear on an empty store must not fail: %v", err)
	}
}
