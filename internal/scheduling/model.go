package scheduling

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusConfirmed  Status = "confirmed"
	StatusCheckedIn  Status = "checked_in"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusNoShow     Status = "no_show"
)

type AppointmentType string

const (
	TypeInPerson     AppointmentType = "in_person"
	TypeTelemedicine AppointmentType = "telemedicine"
	TypeFollowUp     AppointmentType = "follow_up"
	TypeUrgent       AppointmentType = "urgent"
	TypeRoutine      AppointmentType = "routine"
)

type RecurrenceType string

const (
	RecurrenceWeekly   RecurrenceType = "weekly"
	RecurrenceBiweekly RecurrenceType = "biweekly"
	RecurrenceMonthly  RecurrenceType = "monthly"
	RecurrenceCustom   RecurrenceType = "custom"
)

type Practitioner struct {
	ID        uuid.UUID
	Name      string
	Specialty *string
	TimeZone  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Patient struct {
	ID        uuid.UUID
	Name      string
	Email     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Appointment times are stored in UTC as half-open intervals [StartTime, EndTime).
type Appointment struct {
	ID             uuid.UUID
	PractitionerID uuid.UUID
	PatientID      uuid.UUID
	StartTime      time.Time
	EndTime        time.Time
	Status         Status
	Type           AppointmentType
	CheckInTime    *time.Time
	CheckOutTime   *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// AvailabilityWindow describes one recurring or ad-hoc block of a
// practitioner's working day. Start/end are minutes since local midnight.
// IsAvailable=false windows block time that a recurring pattern would
// otherwise open up (vacation, meetings).
type AvailabilityWindow struct {
	ID             uuid.UUID
	PractitionerID uuid.UUID
	DayOfWeek      time.Weekday
	Date           *time.Time // set for ad-hoc windows, overrides DayOfWeek
	StartMinute    int
	EndMinute      int
	IsAvailable    bool
	Recurrence     RecurrenceType
	EffectiveFrom  time.Time
	RecurrenceEnd  *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func ValidType(t AppointmentType) bool {
	switch t {
	case TypeInPerson, TypeTelemedicine, TypeFollowUp, TypeUrgent, TypeRoutine:
		return true
	}
	return false
}

func ValidStatus(s Status) bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusCheckedIn, StatusInProgress,
		StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}
