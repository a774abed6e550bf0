package scheduling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ServiceConfig carries the tunables the service needs from the environment.
type ServiceConfig struct {
	DayCacheTTL   time.Duration // per-day schedule lists, short tier
	RangeCacheTTL time.Duration // date-range queries, longer tier
	NoShowGrace   time.Duration // how long past end time before auto no-show
}

// Service orchestrates conflict detection, the status state machine, the
// store and the cache. It is the only component exposed to external callers.
type Service struct {
	repo     Repository
	dir      Directory
	cache    Cache
	locker   Locker
	notifier Notifier
	cfg      ServiceConfig
	log      zerolog.Logger
	now      func() time.Time
}

func NewService(repo Repository, dir Directory, cache Cache, locker Locker, notifier Notifier, cfg ServiceConfig, log zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		dir:      dir,
		cache:    cache,
		locker:   locker,
		notifier: notifier,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

type CreateAppointmentInput struct {
	PractitionerID uuid.UUID
	PatientID      uuid.UUID
	StartTime      time.Time
	EndTime        time.Time
	Type           AppointmentType
}

type UpdateAppointmentInput struct {
	StartTime time.Time
	EndTime   time.Time
	Type      AppointmentType
}

// CreateAppointment validates input shape, verifies both parties exist,
// checks the practitioner's working hours, then creates the appointment in
// scheduled status behind the per-practitioner lock and the transactional
// conflict check. Relevant cache keys are invalidated only after the commit.
func (s *Service) CreateAppointment(ctx context.Context, in CreateAppointmentInput) (*Appointment, error) {
	if err := validateTimeRange(in.StartTime, in.EndTime); err != nil {
		return nil, err
	}
	if in.PractitionerID == uuid.Nil {
		return nil, &ValidationError{Field: "practitionerId", Reason: "required"}
	}
	if in.PatientID == uuid.Nil {
		return nil, &ValidationError{Field: "patientId", Reason: "required"}
	}
	if !ValidType(in.Type) {
		return nil, &ValidationError{Field: "appointmentType", Reason: fmt.Sprintf("unknown type %q", in.Type)}
	}

	if err := s.requireParties(ctx, in.PractitionerID, in.PatientID); err != nil {
		return nil, err
	}

	practitioner, err := s.repo.GetPractitionerByID(ctx, in.PractitionerID)
	if err != nil {
		return nil, err
	}
	loc := s.locationOf(practitioner)

	if !SameLocalDay(in.StartTime, in.EndTime, loc) {
		return nil, &ValidationError{Field: "endTime", Reason: "appointment must not cross midnight in the practitioner's time zone"}
	}

	windows, err := s.repo.ListWindows(ctx, in.PractitionerID)
	if err != nil {
		return nil, fmt.Errorf("load availability windows: %w", err)
	}
	if err := WithinAvailability(windows, in.StartTime, in.EndTime, loc); err != nil {
		return nil, err
	}

	appt := &Appointment{
		ID:             uuid.New(),
		PractitionerID: in.PractitionerID,
		PatientID:      in.PatientID,
		StartTime:      in.StartTime.UTC(),
		EndTime:        in.EndTime.UTC(),
		Status:         StatusScheduled,
		Type:           in.Type,
	}

	var created *Appointment
	err = s.locker.WithPractitionerLock(ctx, in.PractitionerID, func(lockCtx context.Context) error {
		var err error
		created, err = s.repo.CreateAppointment(lockCtx, appt)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrLockNotAcquired) {
			return nil, ErrPractitionerBusy
		}
		return nil, err
	}

	s.invalidateSchedule(ctx, created.PractitionerID, loc, created.StartTime, created.EndTime)
	s.notifier.AppointmentCreated(created)

	s.log.Info().
		Str("appointment_id", created.ID.String()).
		Str("practitioner_id", created.PractitionerID.String()).
		Time("start_time", created.StartTime).
		Msg("appointment created")

	return created, nil
}

// UpdateAppointment rewrites an appointment's time range and type. The
// conflict check runs only when the time range actually changed, excluding
// the appointment itself.
func (s *Service) UpdateAppointment(ctx context.Context, id uuid.UUID, in UpdateAppointmentInput) (*Appointment, error) {
	if err := validateTimeRange(in.StartTime, in.EndTime); err != nil {
		return nil, err
	}
	if !ValidType(in.Type) {
		return nil, &ValidationError{Field: "appointmentType", Reason: fmt.Sprintf("unknown type %q", in.Type)}
	}

	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if Terminal(appt.Status) {
		return nil, &ValidationError{Field: "status", Reason: fmt.Sprintf("cannot modify a %s appointment", appt.Status)}
	}

	practitioner, err := s.repo.GetPractitionerByID(ctx, appt.PractitionerID)
	if err != nil {
		return nil, err
	}
	loc := s.locationOf(practitioner)

	timesChanged := !in.StartTime.UTC().Equal(appt.StartTime) || !in.EndTime.UTC().Equal(appt.EndTime)

	oldStart, oldEnd := appt.StartTime, appt.EndTime
	appt.StartTime = in.StartTime.UTC()
	appt.EndTime = in.EndTime.UTC()
	appt.Type = in.Type

	var updated *Appointment
	if timesChanged {
		if !SameLocalDay(appt.StartTime, appt.EndTime, loc) {
			return nil, &ValidationError{Field: "endTime", Reason: "appointment must not cross midnight in the practitioner's time zone"}
		}

		windows, err := s.repo.ListWindows(ctx, appt.PractitionerID)
		if err != nil {
			return nil, fmt.Errorf("load availability windows: %w", err)
		}
		if err := WithinAvailability(windows, appt.StartTime, appt.EndTime, loc); err != nil {
			return nil, err
		}

		err = s.locker.WithPractitionerLock(ctx, appt.PractitionerID, func(lockCtx context.Context) error {
			var err error
			updated, err = s.repo.UpdateAppointmentTimes(lockCtx, appt)
			return err
		})
		if err != nil {
			if errors.Is(err, ErrLockNotAcquired) {
				return nil, ErrPractitionerBusy
			}
			return nil, err
		}
	} else {
		updated, err = s.repo.UpdateAppointmentType(ctx, appt.ID, appt.Type)
		if err != nil {
			return nil, err
		}
	}

	s.invalidateSchedule(ctx, updated.PractitionerID, loc, oldStart, oldEnd)
	if timesChanged {
		s.invalidateSchedule(ctx, updated.PractitionerID, loc, updated.StartTime, updated.EndTime)
	}
	s.notifier.AppointmentUpdated(updated)

	return updated, nil
}

// ChangeStatus moves an appointment through the state machine. The persist
// is a compare-and-set from the loaded status; a concurrent change is
// re-validated once against the fresh row before giving up.
func (s *Service) ChangeStatus(ctx context.Context, id uuid.UUID, newStatus Status) (*Appointment, error) {
	if !ValidStatus(newStatus) {
		return nil, &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", newStatus)}
	}

	var updated *Appointment
	var previous Status

	for attempt := 0; ; attempt++ {
		appt, err := s.repo.GetAppointmentByID(ctx, id)
		if err != nil {
			return nil, err
		}
		previous = appt.Status

		if err := Transition(appt, newStatus, s.now()); err != nil {
			return nil, err
		}

		updated, err = s.repo.UpdateAppointmentStatus(ctx, appt, previous)
		if err == nil {
			break
		}
		if errors.Is(err, ErrAppointmentNotFound) && attempt == 0 {
			// Status moved under us; reload and validate against the fresh row.
			continue
		}
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, fmt.Errorf("%w: concurrent status changes", ErrStoreUnavailable)
		}
		return nil, err
	}

	loc := s.locationForID(ctx, updated.PractitionerID)
	s.invalidateSchedule(ctx, updated.PractitionerID, loc, updated.StartTime, updated.EndTime)
	s.notifier.AppointmentStatusChanged(updated, previous)

	s.log.Info().
		Str("appointment_id", updated.ID.String()).
		Str("from", string(previous)).
		Str("to", string(updated.Status)).
		Msg("appointment status changed")

	return updated, nil
}

// GetAppointmentsForDateRange is a cache-first read of a practitioner's
// appointments overlapping [from, to), sorted by start time ascending.
func (s *Service) GetAppointmentsForDateRange(ctx context.Context, practitionerID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	if practitionerID == uuid.Nil {
		return nil, &ValidationError{Field: "practitionerId", Reason: "required"}
	}
	if err := validateTimeRange(from, to); err != nil {
		return nil, err
	}

	return s.cachedList(ctx, RangeKey(practitionerID, from, to), s.cfg.RangeCacheTTL, practitionerID, from, to)
}

// GetTodaySchedule returns the practitioner's appointments for the current
// calendar day in their configured time zone.
func (s *Service) GetTodaySchedule(ctx context.Context, practitionerID uuid.UUID) ([]Appointment, error) {
	if practitionerID == uuid.Nil {
		return nil, &ValidationError{Field: "practitionerId", Reason: "required"}
	}

	practitioner, err := s.repo.GetPractitionerByID(ctx, practitionerID)
	if err != nil {
		return nil, err
	}
	loc := s.locationOf(practitioner)

	dayStart := midnightOf(s.now(), loc)
	dayEnd := dayStart.AddDate(0, 0, 1)

	return s.cachedList(ctx, DayKey(practitionerID, dayStart), s.cfg.DayCacheTTL, practitionerID, dayStart, dayEnd)
}

// MarkOverdueNoShows transitions every scheduled or confirmed appointment
// whose end time plus the grace period has passed to no_show. Intended to be
// called periodically by the sweeper worker. Returns how many appointments
// were transitioned.
func (s *Service) MarkOverdueNoShows(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.cfg.NoShowGrace)
	overdue, err := s.repo.FindOverdue(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("find overdue appointments: %w", err)
	}

	locs := make(map[uuid.UUID]*time.Location)
	count := 0
	for i := range overdue {
		appt := overdue[i]
		previous := appt.Status

		if err := Transition(&appt, StatusNoShow, s.now()); err != nil {
			continue
		}

		updated, err := s.repo.UpdateAppointmentStatus(ctx, &appt, previous)
		if err != nil {
			if !errors.Is(err, ErrAppointmentNotFound) {
				s.log.Warn().Err(err).Str("appointment_id", appt.ID.String()).Msg("no-show sweep update failed")
			}
			continue
		}

		loc, ok := locs[updated.PractitionerID]
		if !ok {
			loc = s.locationForID(ctx, updated.PractitionerID)
			locs[updated.PractitionerID] = loc
		}
		s.invalidateSchedule(ctx, updated.PractitionerID, loc, updated.StartTime, updated.EndTime)
		s.notifier.AppointmentStatusChanged(updated, previous)
		count++
	}

	return count, nil
}

// Helpers

func validateTimeRange(start, end time.Time) error {
	if start.IsZero() {
		return &ValidationError{Field: "startTime", Reason: "required"}
	}
	if end.IsZero() {
		return &ValidationError{Field: "endTime", Reason: "required"}
	}
	if !end.After(start) {
		return &ValidationError{Field: "endTime", Reason: "must be after startTime"}
	}
	return nil
}

func (s *Service) requireParties(ctx context.Context, practitionerID, patientID uuid.UUID) error {
	ok, err := s.dir.PractitionerExists(ctx, practitionerID)
	if err != nil {
		return fmt.Errorf("resolve practitioner: %w", err)
	}
	if !ok {
		return ErrPractitionerNotFound
	}

	ok, err = s.dir.PatientExists(ctx, patientID)
	if err != nil {
		return fmt.Errorf("resolve patient: %w", err)
	}
	if !ok {
		return ErrPatientNotFound
	}
	return nil
}

func (s *Service) locationOf(p *Practitioner) *time.Location {
	loc, err := time.LoadLocation(p.TimeZone)
	if err != nil {
		s.log.Warn().Str("practitioner_id", p.ID.String()).Str("time_zone", p.TimeZone).Msg("unknown time zone, falling back to UTC")
		return time.UTC
	}
	return loc
}

func (s *Service) locationForID(ctx context.Context, practitionerID uuid.UUID) *time.Location {
	p, err := s.repo.GetPractitionerByID(ctx, practitionerID)
	if err != nil {
		return time.UTC
	}
	return s.locationOf(p)
}

// invalidateSchedule eagerly drops every cache key that could serve stale
// data for the practitioner after a committed write: the day key of each
// local date the interval touches, and all range keys for the practitioner.
func (s *Service) invalidateSchedule(ctx context.Context, practitionerID uuid.UUID, loc *time.Location, start, end time.Time) {
	var keys []string
	for _, day := range DaysCovered(start, end, loc) {
		keys = append(keys, DayKey(practitionerID, day))
	}

	if err := s.cache.Invalidate(ctx, keys...); err != nil {
		s.log.Warn().Err(err).Str("practitioner_id", practitionerID.String()).Msg("day-key cache invalidation failed")
	}
	if err := s.cache.InvalidatePrefix(ctx, RangePrefix(practitionerID)); err != nil {
		s.log.Warn().Err(err).Str("practitioner_id", practitionerID.String()).Msg("range-key cache invalidation failed")
	}
}

func (s *Service) cachedList(ctx context.Context, key string, ttl time.Duration, practitionerID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	compute := func(ctx context.Context) ([]byte, error) {
		appts, err := s.repo.ListForPractitionerRange(ctx, practitionerID, from, to)
		if err != nil {
			return nil, err
		}
		return json.Marshal(appts)
	}

	data, err := s.cache.GetOrCompute(ctx, key, ttl, compute)
	if err != nil {
		return nil, err
	}

	var appts []Appointment
	if err := json.Unmarshal(data, &appts); err != nil {
		// Poisoned entry; drop it and read through.
		s.log.Warn().Err(err).Str("key", key).Msg("discarding unreadable cache entry")
		if invErr := s.cache.Invalidate(ctx, key); invErr != nil {
			s.log.Warn().Err(invErr).Str("key", key).Msg("cache invalidation failed")
		}
		data, err = compute(ctx)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, &appts); err != nil {
			return nil, fmt.Errorf("decode schedule: %w", err)
		}
	}
	return appts, nil
}
