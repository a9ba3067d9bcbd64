package models

import "testing"

func TestClampDurationMs(t *testing.T) {
	tests := []struct {
		name string
		in   int64
		want int64
	}{
		{"negative clock skew", -500, 0},
		{"zero", 0, 0},
		{"normal session", 5_400_000, 5_400_000},
		{"exactly at cap", MaxSessionDurationMs, MaxSessionDurationMs},
		{"over cap", MaxSessionDurationMs + 1, MaxSessionDurationMs},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClampDurationMs(tc.in); got != tc.want {
				t.Errorf("ClampDurationMs(%d) = %d, want %d", tc.in, got, tc.want)
			}
		})
	}
}
