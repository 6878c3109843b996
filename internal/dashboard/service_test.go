package dashboard

import (
	"testing"
	"time"
)

func TestSchoolWeekday(t *testing.T) {
	// 2026-03-02 is a Monday.
	monday := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	if got := schoolWeekday(monday); got != 1 {
		t.Fatalf("Monday = %d, want 1", got)
	}
	if got := schoolWeekday(monday.AddDate(0, 0, 4)); got != 5 {
		t.Fatalf("Friday = %d, want 5", got)
	}
	if got := schoolWeekday(monday.AddDate(0, 0, 5)); got != 0 {
		t.Fatalf("Saturday = %d, want 0", got)
	}
	if got := schoolWeekday(monday.AddDate(0, 0, 6)); got != 0 {
		t.Fatalf("Sunday = %d, want 0", got)
	}
}
