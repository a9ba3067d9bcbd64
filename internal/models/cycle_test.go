package models

import "testing"

func TestRequirementMetBoundary(t *testing.T) {
	tests := []struct {
		name      string
		completed int
		required  int
		want      bool
	}{
		{"one short stays active", 99, 100, false},
		{"exact threshold completes", 100, 100, true},
		{"past threshold completes", 101, 100, true},
		{"zero requirement is met immediately", 0, 0, true},
		{"nothing done yet", 0, 100, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := StudyCycle{CompletedMinutes: tc.completed, TotalRequiredMinutes: tc.required}
			if got := c.RequirementMet(); got != tc.want {
				t.Errorf("RequirementMet() with %d/%d = %v, want %v", tc.completed, tc.required, got, tc.want)
			}
		})
	}
}
