package services

import (
	"testing"
	"time"
)

func TestNextRevisionDue(t *testing.T) {
	from := time.Date(2026, 3, 10, 17, 30, 0, 0, time.UTC)

	tests := []struct {
		name         string
		current      int
		wantInterval int
		wantDue      string
	}{
		{"initial step", 0, 1, "2026-03-11"},
		{"after first rung", 1, 7, "2026-03-17"},
		{"after second rung", 7, 15, "2026-03-25"},
		{"after third rung", 15, 30, "2026-04-09"},
		{"ladder tops out", 30, 30, "2026-04-09"},
		{"unknown interval falls back", 42, 1, "2026-03-11"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			due, interval := NextRevisionDue(from, tc.current)
			if interval != tc.wantInterval {
				t.Errorf("Expected interval %d, got %d", tc.wantInterval, interval)
			}
			if got := due.Format("2006-01-02"); got != tc.wantDue {
				t.Errorf("Expected due %s, got %s", tc.wantDue, got)
			}
			if due.Hour() != 0 || due.Minute() != 0 {
				t.Errorf("Due date should be midnight, got %s", due)
			}
		})
	}
}
