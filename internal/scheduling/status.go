package scheduling

import "time"

// allowedTransitions is the closed appointment state machine. Statuses absent
// from the map (completed, cancelled, no_show) are terminal.
var allowedTransitions = map[Status][]Status{
	StatusScheduled:  {StatusConfirmed, StatusCancelled, StatusNoShow},
	StatusConfirmed:  {StatusCheckedIn, StatusCancelled, StatusNoShow},
	StatusCheckedIn:  {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled},
}

// Terminal reports whether no further transitions are permitted from s.
func Terminal(s Status) bool {
	_, ok := allowedTransitions[s]
	return !ok
}

// CanTransition reports whether from -> to is allowed. Requesting the current
// status again is rejected rather than treated as a no-op.
func CanTransition(from, to Status) bool {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Transition mutates a into the new status, stamping CheckInTime on
// checked_in and CheckOutTime on completed (if not already set).
func Transition(a *Appointment, to Status, now time.Time) error {
	if !CanTransition(a.Status, to) {
		return &TransitionError{From: a.Status, To: to}
	}

	a.Status = to
	switch to {
	case StatusCheckedIn:
		t := now
		a.CheckInTime = &t
	case StatusCompleted:
		if a.CheckOutTime == nil {
			t := now
			a.CheckOutTime = &t
		}
	}
	return nil
}
