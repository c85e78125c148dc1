package workflow

import (
	"testing"
	"time"
)

func TestPublishBackoff_DoublesPerAttempt(t *testing.T) {
	initial := 5 * time.Second
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 5 * time.Second},
		{2, 10 * time.Second},
		{3, 20 * time.Second},
		{4, 40 * time.Second},
		{5, 80 * time.Second},
	}
	for _, c := range cases {
		if got := publishBackoff(initial, c.attempt); got != c.want {
			t.Errorf("attempt %d: got %s, want %s", c.attempt, got, c.want)
		}
	}
}

func TestPublishBackoff_CapsAtTenMinutes(t *testing.T) {
	initial := 5 * time.Second
	for attempt := 9; attempt <= 20; attempt++ {
		if got := publishBackoff(initial, attempt); got > 10*time.Minute {
			t.Errorf("attempt %d: got %s, want <= 10m", attempt, got)
		}
	}
	if got := publishBackoff(initial, 20); got != 10*time.Minute {
		t.Errorf("attempt 20: got %s, want exactly 10m", got)
	}
}
