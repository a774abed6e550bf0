package scheduling

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestCacheKeysDeterministic(t *testing.T) {
	pid := uuid.New()
	day := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	from := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 7)

	if DayKey(pid, day) != DayKey(pid, day) {
		t.Error("DayKey must be deterministic")
	}
	if RangeKey(pid, from, to) != RangeKey(pid, from, to) {
		t.Error("RangeKey must be deterministic")
	}
	if !strings.HasPrefix(RangeKey(pid, from, to), RangePrefix(pid)) {
		t.Error("RangeKey must fall under RangePrefix")
	}
	if strings.HasPrefix(DayKey(pid, day), RangePrefix(pid)) {
		t.Error("day keys must not be swept by range invalidation")
	}

	otherDay := day.AddDate(0, 0, 1)
	if DayKey(pid, day) == DayKey(pid, otherDay) {
		t.Error("different days must produce different keys")
	}
	if RangeKey(pid, from, to) == RangeKey(pid, from, to.Add(time.Hour)) {
		t.Error("different ranges must produce different keys")
	}
}

func TestDaysCovered(t *testing.T) {
	start := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

	days := DaysCovered(start, start.Add(30*time.Minute), time.UTC)
	if len(days) != 1 {
		t.Fatalf("half-hour interval should cover one day, got %d", len(days))
	}

	// Ending exactly at midnight stays within the starting day.
	midnight := time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)
	days = DaysCovered(start, midnight, time.UTC)
	if len(days) != 1 {
		t.Fatalf("interval ending at midnight should cover one day, got %d", len(days))
	}

	days = DaysCovered(start, midnight.Add(time.Hour), time.UTC)
	if len(days) != 2 {
		t.Fatalf("interval past midnight should cover two days, got %d", len(days))
	}

	// Local days depend on the zone.
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatal(err)
	}
	lateUTC := time.Date(2025, 6, 2, 23, 30, 0, 0, time.UTC)
	days = DaysCovered(lateUTC, lateUTC.Add(time.Hour), ny)
	if len(days) != 1 {
		t.Fatalf("23:30Z-00:30Z is one New York day, got %d", len(days))
	}
}
