package scheduling

import (
	"time"

	"github.com/google/uuid"
)

// conflictExempt statuses never conflict: a cancelled, completed or no-show
// appointment has released its time slot.
func conflictExempt(s Status) bool {
	switch s {
	case StatusCancelled, StatusCompleted, StatusNoShow:
		return true
	}
	return false
}

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect. Back-to-back intervals (one's end equals the
// other's start) do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// Proposal is a candidate time range for a practitioner. ExcludeID is set
// when re-checking an existing appointment's new times, so it does not
// conflict with itself.
type Proposal struct {
	PractitionerID uuid.UUID
	StartTime      time.Time
	EndTime        time.Time
	ExcludeID      uuid.UUID
}

// ConflictingIDs returns the IDs of every appointment in existing that
// belongs to the proposal's practitioner, is not conflict-exempt, is not the
// excluded appointment, and overlaps the proposed range.
func ConflictingIDs(existing []Appointment, p Proposal) []uuid.UUID {
	var ids []uuid.UUID
	for _, a := range existing {
		if a.PractitionerID != p.PractitionerID {
			continue
		}
		if a.ID == p.ExcludeID {
			continue
		}
		if conflictExempt(a.Status) {
			continue
		}
		if Overlaps(a.StartTime, a.EndTime, p.StartTime, p.EndTime) {
			ids = append(ids, a.ID)
		}
	}
	return ids
}
