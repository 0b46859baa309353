package queue

import (
	"testing"
	"time"
)

func TestBackoff(t *testing.T) {
	tests := []struct {
		attempts int
		want     time.Duration
	}{
		{1, time.Second},
		{2, 4 * time.Second},
		{3, 9 * time.Second},
		{10, 100 * time.Second},
		{20, 5 * time.Minute},
		{100, 5 * time.Minute},
	}

	for _, tt := range tests {
		if got := Backoff(tt.attempts); got != tt.want {
			t.Errorf("Backoff(%d) = %v, want %v", tt.attempts, got, tt.want)
		}
	}
}

func TestScheduleRecurringRejectsBadSpec(t *testing.T) {
	q := New(nil)

	if err := q.ScheduleRecurring("maintenance", "not a cron spec", nil); err == nil {
		t.Fatal("expected error for invalid cron spec")
	}

	if err := q.ScheduleRecurring("maintenance", "*/10 * * * *", map[string]string{"kind": "sweep"}); err != nil {
		t.Errorf("valid cron spec rejected: %v", err)
	}
}
