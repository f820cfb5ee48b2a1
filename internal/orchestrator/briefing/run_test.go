package briefing

import (
	"testing"
	"time"
)

func TestBackoff(t *testing.T) {
	initial := 1 * time.Second
	max := 60 * time.Second

	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 1 * time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{6, 32 * time.Second},
		{7, 60 * time.Second},
		{20, 60 * time.Second}, // capped, no overflow
	}
	for _, tc := range cases {
		if got := backoff(initial, max, tc.attempt); got != tc.want {
			t.Errorf("attempt %d: got %v, want %v", tc.attempt, got, tc.want)
		}
	}
}
