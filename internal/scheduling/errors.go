package scheduling

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrPractitionerNotFound = errors.New("practitioner not found")
	ErrPatientNotFound      = errors.New("patient not found")
	ErrAppointmentNotFound  = errors.New("appointment not found")

	// ErrStoreUnavailable is returned once bounded transaction retries are
	// exhausted or the store cannot be reached at all.
	ErrStoreUnavailable = errors.New("appointment store unavailable")

	ErrPractitionerBusy = errors.New("practitioner calendar is locked, please retry")
)

// ValidationError reports malformed input. Field names the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ConflictError reports a schedule conflict and carries the IDs of the
// appointments that overlap the proposed range.
type ConflictError struct {
	PractitionerID uuid.UUID
	ConflictingIDs []uuid.UUID
}

func (e *ConflictError) Error() string {
	ids := make([]string, len(e.ConflictingIDs))
	for i, id := range e.ConflictingIDs {
		ids[i] = id.String()
	}
	return fmt.Sprintf("schedule conflict for practitioner %s with appointments [%s]",
		e.PractitionerID, strings.Join(ids, ", "))
}

// TransitionError reports an illegal status change.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid status transition %s -> %s", e.From, e.To)
}
