package scheduling

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrLockNotAcquired is returned by Locker implementations when the
// practitioner's calendar lock is already held.
var ErrLockNotAcquired = errors.New("practitioner lock not acquired")

// Repository contains all store interactions needed by the service. The
// appointment store is the single source of truth; conflict checks on the
// write paths run inside the same transaction as the write itself.
type Repository interface {
	// CreateAppointment persists a new appointment after verifying, inside
	// one transaction, that its time range conflicts with no existing
	// non-terminal appointment for the practitioner. Returns *ConflictError
	// when the check fails.
	CreateAppointment(ctx context.Context, a *Appointment) (*Appointment, error)

	// UpdateAppointmentTimes rewrites time range and type with the same
	// transactional conflict check, excluding the appointment itself.
	UpdateAppointmentTimes(ctx context.Context, a *Appointment) (*Appointment, error)

	// UpdateAppointmentType changes only the categorical type; no conflict
	// check is needed because the time range is untouched.
	UpdateAppointmentType(ctx context.Context, id uuid.UUID, t AppointmentType) (*Appointment, error)

	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// UpdateAppointmentStatus is a compare-and-set from the expected status;
	// ErrAppointmentNotFound is returned when the row moved concurrently.
	UpdateAppointmentStatus(ctx context.Context, a *Appointment, expected Status) (*Appointment, error)

	// ListForPractitionerRange returns appointments overlapping [from, to),
	// sorted by start time ascending.
	ListForPractitionerRange(ctx context.Context, practitionerID uuid.UUID, from, to time.Time) ([]Appointment, error)

	ListWindows(ctx context.Context, practitionerID uuid.UUID) ([]AvailabilityWindow, error)
	GetPractitionerByID(ctx context.Context, id uuid.UUID) (*Practitioner, error)

	// FindOverdue returns scheduled/confirmed appointments whose end time
	// lies before the cutoff, for the no-show sweeper.
	FindOverdue(ctx context.Context, cutoff time.Time) ([]Appointment, error)
}

// Directory resolves party identifiers to existence. In production it is a
// thin adapter over the practitioner/patient records; the engine never
// manages those records itself.
type Directory interface {
	PractitionerExists(ctx context.Context, id uuid.UUID) (bool, error)
	PatientExists(ctx context.Context, id uuid.UUID) (bool, error)
}

// Locker serializes writers touching one practitioner's calendar across
// service instances. It is contention relief in front of the transactional
// conflict check, not the correctness mechanism.
type Locker interface {
	WithPractitionerLock(ctx context.Context, practitionerID uuid.UUID, fn func(ctx context.Context) error) error
}
