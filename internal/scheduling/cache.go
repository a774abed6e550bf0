package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Cache fronts read-heavy schedule queries. Implementations must degrade to
// running compute directly when the backend is unreachable; a cache failure
// is never a request failure. Values are opaque encoded bytes so the cache
// never becomes a second source of truth for domain state.
type Cache interface {
	GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute func(context.Context) ([]byte, error)) ([]byte, error)
	Invalidate(ctx context.Context, keys ...string) error
	InvalidatePrefix(ctx context.Context, prefix string) error
}

const cacheKeyDateLayout = "2006-01-02"

// DayKey is the cache key for one practitioner's schedule on one local day.
func DayKey(practitionerID uuid.UUID, day time.Time) string {
	return fmt.Sprintf("sched:%s:day:%s", practitionerID, day.Format(cacheKeyDateLayout))
}

// RangeKey is the cache key for an arbitrary date-range query. Keys are a
// deterministic function of the query parameters so identical queries share
// an entry.
func RangeKey(practitionerID uuid.UUID, from, to time.Time) string {
	return fmt.Sprintf("sched:%s:range:%s:%s",
		practitionerID, from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339))
}

// RangePrefix matches every range key for a practitioner, used for eager
// invalidation on writes.
func RangePrefix(practitionerID uuid.UUID) string {
	return fmt.Sprintf("sched:%s:range:", practitionerID)
}

// DaysCovered returns the local midnights of every calendar day the
// half-open interval [start, end) touches in the given zone.
func DaysCovered(start, end time.Time, loc *time.Location) []time.Time {
	var days []time.Time
	for d := midnightOf(start, loc); d.Before(end.In(loc)); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}
