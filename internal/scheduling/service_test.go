package scheduling

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// In-memory fakes

type memStore struct {
	mu             sync.Mutex
	appointments   map[uuid.UUID]*Appointment
	practitioners  map[uuid.UUID]*Practitioner
	patients       map[uuid.UUID]*Patient
	windows        map[uuid.UUID][]AvailabilityWindow
	conflictChecks int
}

func newMemStore() *memStore {
	return &memStore{
		appointments:  make(map[uuid.UUID]*Appointment),
		practitioners: make(map[uuid.UUID]*Practitioner),
		patients:      make(map[uuid.UUID]*Patient),
		windows:       make(map[uuid.UUID][]AvailabilityWindow),
	}
}

func (m *memStore) all() []Appointment {
	out := make([]Appointment, 0, len(m.appointments))
	for _, a := range m.appointments {
		out = append(out, *a)
	}
	return out
}

func (m *memStore) CreateAppointment(_ context.Context, a *Appointment) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.conflictChecks++
	ids := ConflictingIDs(m.all(), Proposal{
		PractitionerID: a.PractitionerID,
		StartTime:      a.StartTime,
		EndTime:        a.EndTime,
	})
	if len(ids) > 0 {
		return nil, &ConflictError{PractitionerID: a.PractitionerID, ConflictingIDs: ids}
	}

	stored := *a
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	m.appointments[stored.ID] = &stored

	out := stored
	return &out, nil
}

func (m *memStore) UpdateAppointmentTimes(_ context.Context, a *Appointment) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.appointments[a.ID]
	if !ok {
		return nil, ErrAppointmentNotFound
	}

	m.conflictChecks++
	ids := ConflictingIDs(m.all(), Proposal{
		PractitionerID: a.PractitionerID,
		StartTime:      a.StartTime,
		EndTime:        a.EndTime,
		ExcludeID:      a.ID,
	})
	if len(ids) > 0 {
		return nil, &ConflictError{PractitionerID: a.PractitionerID, ConflictingIDs: ids}
	}

	existing.StartTime = a.StartTime
	existing.EndTime = a.EndTime
	existing.Type = a.Type
	existing.UpdatedAt = time.Now()

	out := *existing
	return &out, nil
}

func (m *memStore) UpdateAppointmentType(_ context.Context, id uuid.UUID, t AppointmentType) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	existing.Type = t
	existing.UpdatedAt = time.Now()

	out := *existing
	return &out, nil
}

func (m *memStore) GetAppointmentByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	out := *a
	return &out, nil
}

func (m *memStore) UpdateAppointmentStatus(_ context.Context, a *Appointment, expected Status) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.appointments[a.ID]
	if !ok || existing.Status != expected {
		return nil, ErrAppointmentNotFound
	}

	existing.Status = a.Status
	existing.CheckInTime = a.CheckInTime
	existing.CheckOutTime = a.CheckOutTime
	existing.UpdatedAt = time.Now()

	out := *existing
	return &out, nil
}

func (m *memStore) ListForPractitionerRange(_ context.Context, practitionerID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Appointment
	for _, a := range m.appointments {
		if a.PractitionerID == practitionerID && Overlaps(a.StartTime, a.EndTime, from, to) {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (m *memStore) ListWindows(_ context.Context, practitionerID uuid.UUID) ([]AvailabilityWindow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.windows[practitionerID], nil
}

func (m *memStore) GetPractitionerByID(_ context.Context, id uuid.UUID) (*Practitioner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.practitioners[id]
	if !ok {
		return nil, ErrPractitionerNotFound
	}
	out := *p
	return &out, nil
}

func (m *memStore) FindOverdue(_ context.Context, cutoff time.Time) ([]Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Appointment
	for _, a := range m.appointments {
		if (a.Status == StatusScheduled || a.Status == StatusConfirmed) && a.EndTime.Before(cutoff) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *memStore) PractitionerExists(_ context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.practitioners[id]
	return ok, nil
}

func (m *memStore) PatientExists(_ context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.patients[id]
	return ok, nil
}

type memCache struct {
	mu       sync.Mutex
	entries  map[string][]byte
	computes int
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string][]byte)}
}

func (c *memCache) GetOrCompute(ctx context.Context, key string, _ time.Duration, compute func(context.Context) ([]byte, error)) ([]byte, error) {
	c.mu.Lock()
	if data, ok := c.entries[key]; ok {
		c.mu.Unlock()
		return data, nil
	}
	c.mu.Unlock()

	data, err := compute(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = data
	c.computes++
	c.mu.Unlock()
	return data, nil
}

func (c *memCache) Invalidate(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
	}
	return nil
}

func (c *memCache) InvalidatePrefix(_ context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
	return nil
}

type noopLocker struct{}

func (noopLocker) WithPractitionerLock(ctx context.Context, _ uuid.UUID, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type captureNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *captureNotifier) record(ev string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func (n *captureNotifier) AppointmentCreated(*Appointment) { n.record(EventAppointmentCreated) }
func (n *captureNotifier) AppointmentUpdated(*Appointment) { n.record(EventAppointmentUpdated) }
func (n *captureNotifier) AppointmentStatusChanged(*Appointment, Status) {
	n.record(EventAppointmentStatusChanged)
}

// Fixture

type fixture struct {
	svc          *Service
	store        *memStore
	cache        *memCache
	notifier     *captureNotifier
	practitioner uuid.UUID
	patient      uuid.UUID
}

func newFixture(t *testing.T, tz string) *fixture {
	t.Helper()

	store := newMemStore()
	cache := newMemCache()
	notifier := &captureNotifier{}

	practitionerID := uuid.New()
	patientID := uuid.New()
	store.practitioners[practitionerID] = &Practitioner{ID: practitionerID, Name: "Dr. Reyes", TimeZone: tz}
	store.patients[patientID] = &Patient{ID: patientID, Name: "Sam Ortiz"}

	svc := NewService(store, store, cache, noopLocker{}, notifier, ServiceConfig{
		DayCacheTTL:   5 * time.Minute,
		RangeCacheTTL: 30 * time.Minute,
		NoShowGrace:   30 * time.Minute,
	}, zerolog.Nop())

	return &fixture{
		svc:          svc,
		store:        store,
		cache:        cache,
		notifier:     notifier,
		practitioner: practitionerID,
		patient:      patientID,
	}
}

func (f *fixture) createAt(t *testing.T, start, end time.Time) *Appointment {
	t.Helper()
	appt, err := f.svc.CreateAppointment(context.Background(), CreateAppointmentInput{
		PractitionerID: f.practitioner,
		PatientID:      f.patient,
		StartTime:      start,
		EndTime:        end,
		Type:           TypeRoutine,
	})
	if err != nil {
		t.Fatalf("create appointment: %v", err)
	}
	return appt
}

// Tests

func TestCreateAppointment(t *testing.T) {
	f := newFixture(t, "UTC")

	appt := f.createAt(t, ts(9, 0), ts(9, 30))

	if appt.Status != StatusScheduled {
		t.Errorf("new appointment should be scheduled, got %s", appt.Status)
	}
	if appt.ID == uuid.Nil {
		t.Error("appointment should get an ID")
	}
	if len(f.notifier.events) != 1 || f.notifier.events[0] != EventAppointmentCreated {
		t.Errorf("expected created event, got %v", f.notifier.events)
	}
}

func TestCreateAppointmentValidation(t *testing.T) {
	f := newFixture(t, "UTC")
	ctx := context.Background()

	cases := []struct {
		name  string
		input CreateAppointmentInput
	}{
		{"missing practitioner", CreateAppointmentInput{PatientID: f.patient, StartTime: ts(9, 0), EndTime: ts(9, 30), Type: TypeRoutine}},
		{"missing patient", CreateAppointmentInput{PractitionerID: f.practitioner, StartTime: ts(9, 0), EndTime: ts(9, 30), Type: TypeRoutine}},
		{"zero start", CreateAppointmentInput{PractitionerID: f.practitioner, PatientID: f.patient, EndTime: ts(9, 30), Type: TypeRoutine}},
		{"end before start", CreateAppointmentInput{PractitionerID: f.practitioner, PatientID: f.patient, StartTime: ts(9, 30), EndTime: ts(9, 0), Type: TypeRoutine}},
		{"end equals start", CreateAppointmentInput{PractitionerID: f.practitioner, PatientID: f.patient, StartTime: ts(9, 0), EndTime: ts(9, 0), Type: TypeRoutine}},
		{"unknown type", CreateAppointmentInput{PractitionerID: f.practitioner, PatientID: f.patient, StartTime: ts(9, 0), EndTime: ts(9, 30), Type: "walk_in"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.CreateAppointment(ctx, tc.input)
			var validationErr *ValidationError
			if !errors.As(err, &validationErr) {
				t.Errorf("expected ValidationError, got %v", err)
			}
		})
	}
}

func TestCreateAppointmentUnknownParties(t *testing.T) {
	f := newFixture(t, "UTC")
	ctx := context.Background()

	_, err := f.svc.CreateAppointment(ctx, CreateAppointmentInput{
		PractitionerID: uuid.New(),
		PatientID:      f.patient,
		StartTime:      ts(9, 0),
		EndTime:        ts(9, 30),
		Type:           TypeRoutine,
	})
	if !errors.Is(err, ErrPractitionerNotFound) {
		t.Errorf("expected ErrPractitionerNotFound, got %v", err)
	}

	_, err = f.svc.CreateAppointment(ctx, CreateAppointmentInput{
		PractitionerID: f.practitioner,
		PatientID:      uuid.New(),
		StartTime:      ts(9, 0),
		EndTime:        ts(9, 30),
		Type:           TypeRoutine,
	})
	if !errors.Is(err, ErrPatientNotFound) {
		t.Errorf("expected ErrPatientNotFound, got %v", err)
	}
}

// The scenario from the scheduling contract: 09:00-09:30 booked, 09:15-09:45
// conflicts listing the booked ID, 09:30-10:00 succeeds, and scheduled ->
// in_progress is rejected.
func TestSchedulingScenario(t *testing.T) {
	f := newFixture(t, "UTC")
	ctx := context.Background()

	booked := f.createAt(t, ts(9, 0), ts(9, 30))

	_, err := f.svc.CreateAppointment(ctx, CreateAppointmentInput{
		PractitionerID: f.practitioner,
		PatientID:      f.patient,
		StartTime:      ts(9, 15),
		EndTime:        ts(9, 45),
		Type:           TypeRoutine,
	})
	var conflictErr *ConflictError
	if !errors.As(err, &conflictErr) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if len(conflictErr.ConflictingIDs) != 1 || conflictErr.ConflictingIDs[0] != booked.ID {
		t.Errorf("conflict should list %s, got %v", booked.ID, conflictErr.ConflictingIDs)
	}

	if _, err := f.svc.CreateAppointment(ctx, CreateAppointmentInput{
		PractitionerID: f.practitioner,
		PatientID:      f.patient,
		StartTime:      ts(9, 30),
		EndTime:        ts(10, 0),
		Type:           TypeRoutine,
	}); err != nil {
		t.Errorf("back-to-back appointment should succeed: %v", err)
	}

	_, err = f.svc.ChangeStatus(ctx, booked.ID, StatusInProgress)
	var transitionErr *TransitionError
	if !errors.As(err, &transitionErr) {
		t.Errorf("scheduled -> in_progress should fail with TransitionError, got %v", err)
	}
}

func TestCreateAppointmentConcurrent(t *testing.T) {
	f := newFixture(t, "UTC")
	ctx := context.Background()

	const attempts = 16
	var wg sync.WaitGroup
	results := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.CreateAppointment(ctx, CreateAppointmentInput{
				PractitionerID: f.practitioner,
				PatientID:      f.patient,
				StartTime:      ts(9, 0),
				EndTime:        ts(9, 30),
				Type:           TypeRoutine,
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		var conflictErr *ConflictError
		if !errors.As(err, &conflictErr) {
			t.Errorf("unexpected error under contention: %v", err)
		}
	}
	if succeeded != 1 {
		t.Errorf("exactly one concurrent create should succeed, got %d", succeeded)
	}
}

func TestUpdateAppointment(t *testing.T) {
	f := newFixture(t, "UTC")
	ctx := context.Background()

	first := f.createAt(t, ts(9, 0), ts(9, 30))
	second := f.createAt(t, ts(10, 0), ts(10, 30))

	t.Run("move into occupied slot conflicts", func(t *testing.T) {
		_, err := f.svc.UpdateAppointment(ctx, second.ID, UpdateAppointmentInput{
			StartTime: ts(9, 15),
			EndTime:   ts(9, 45),
			Type:      TypeRoutine,
		})
		var conflictErr *ConflictError
		if !errors.As(err, &conflictErr) {
			t.Fatalf("expected ConflictError, got %v", err)
		}
		if len(conflictErr.ConflictingIDs) != 1 || conflictErr.ConflictingIDs[0] != first.ID {
			t.Errorf("conflict should list %s, got %v", first.ID, conflictErr.ConflictingIDs)
		}
	})

	t.Run("reschedule over own slot succeeds", func(t *testing.T) {
		updated, err := f.svc.UpdateAppointment(ctx, first.ID, UpdateAppointmentInput{
			StartTime: ts(9, 10),
			EndTime:   ts(9, 40),
			Type:      TypeRoutine,
		})
		if err != nil {
			t.Fatalf("self-overlapping reschedule should succeed: %v", err)
		}
		if !updated.StartTime.Equal(ts(9, 10)) {
			t.Errorf("start time not updated: %v", updated.StartTime)
		}
	})

	t.Run("unchanged times skip the conflict check", func(t *testing.T) {
		before := f.store.conflictChecks
		updated, err := f.svc.UpdateAppointment(ctx, second.ID, UpdateAppointmentInput{
			StartTime: second.StartTime,
			EndTime:   second.EndTime,
			Type:      TypeFollowUp,
		})
		if err != nil {
			t.Fatalf("type-only update should succeed: %v", err)
		}
		if updated.Type != TypeFollowUp {
			t.Errorf("type not updated: %s", updated.Type)
		}
		if f.store.conflictChecks != before {
			t.Error("conflict check should be skipped when times are unchanged")
		}
	})

	t.Run("terminal appointment cannot be updated", func(t *testing.T) {
		if _, err := f.svc.ChangeStatus(ctx, second.ID, StatusCancelled); err != nil {
			t.Fatalf("cancel: %v", err)
		}
		_, err := f.svc.UpdateAppointment(ctx, second.ID, UpdateAppointmentInput{
			StartTime: ts(11, 0),
			EndTime:   ts(11, 30),
			Type:      TypeRoutine,
		})
		var validationErr *ValidationError
		if !errors.As(err, &validationErr) {
			t.Errorf("expected ValidationError, got %v", err)
		}
	})

	t.Run("cancelled slot can be rebooked", func(t *testing.T) {
		if _, err := f.svc.CreateAppointment(ctx, CreateAppointmentInput{
			PractitionerID: f.practitioner,
			PatientID:      f.patient,
			StartTime:      ts(10, 0),
			EndTime:        ts(10, 30),
			Type:           TypeRoutine,
		}); err != nil {
			t.Errorf("cancelled appointment should not block its old slot: %v", err)
		}
	})
}

func TestChangeStatusLifecycle(t *testing.T) {
	f := newFixture(t, "UTC")
	ctx := context.Background()

	appt := f.createAt(t, ts(9, 0), ts(9, 30))

	confirmed, err := f.svc.ChangeStatus(ctx, appt.ID, StatusConfirmed)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if confirmed.Status != StatusConfirmed {
		t.Errorf("status = %s, want confirmed", confirmed.Status)
	}

	checkedIn, err := f.svc.ChangeStatus(ctx, appt.ID, StatusCheckedIn)
	if err != nil {
		t.Fatalf("check in: %v", err)
	}
	if checkedIn.CheckInTime == nil {
		t.Error("check-in should stamp CheckInTime")
	}

	if _, err := f.svc.ChangeStatus(ctx, appt.ID, StatusInProgress); err != nil {
		t.Fatalf("start: %v", err)
	}

	completed, err := f.svc.ChangeStatus(ctx, appt.ID, StatusCompleted)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if completed.CheckOutTime == nil {
		t.Error("completion should stamp CheckOutTime")
	}

	// Terminal: nothing more is allowed.
	if _, err := f.svc.ChangeStatus(ctx, appt.ID, StatusCancelled); err == nil {
		t.Error("completed appointment should reject further transitions")
	}

	_, err = f.svc.ChangeStatus(ctx, appt.ID, "archived")
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Errorf("unknown status should fail validation, got %v", err)
	}

	if _, err := f.svc.ChangeStatus(ctx, uuid.New(), StatusConfirmed); !errors.Is(err, ErrAppointmentNotFound) {
		t.Errorf("unknown appointment should 404, got %v", err)
	}
}

func TestDateRangeReadsCachedAndSorted(t *testing.T) {
	f := newFixture(t, "UTC")
	ctx := context.Background()

	late := f.createAt(t, ts(14, 0), ts(14, 30))
	early := f.createAt(t, ts(9, 0), ts(9, 30))

	from := ts(0, 0)
	to := from.AddDate(0, 0, 1)

	appts, err := f.svc.GetAppointmentsForDateRange(ctx, f.practitioner, from, to)
	if err != nil {
		t.Fatalf("range read: %v", err)
	}
	if len(appts) != 2 {
		t.Fatalf("expected 2 appointments, got %d", len(appts))
	}
	if appts[0].ID != early.ID || appts[1].ID != late.ID {
		t.Error("appointments should be sorted by start time ascending")
	}

	// Second identical read must be served from cache and stay identical.
	computes := f.cache.computes
	again, err := f.svc.GetAppointmentsForDateRange(ctx, f.practitioner, from, to)
	if err != nil {
		t.Fatalf("second range read: %v", err)
	}
	if f.cache.computes != computes {
		t.Error("identical read should hit the cache")
	}
	if len(again) != 2 || again[0].ID != appts[0].ID || again[1].ID != appts[1].ID {
		t.Error("repeated read should return identical results")
	}
}

func TestCacheCoherenceAfterWrite(t *testing.T) {
	f := newFixture(t, "UTC")
	ctx := context.Background()

	f.createAt(t, ts(9, 0), ts(9, 30))

	from := ts(0, 0)
	to := from.AddDate(0, 0, 1)

	appts, err := f.svc.GetAppointmentsForDateRange(ctx, f.practitioner, from, to)
	if err != nil {
		t.Fatalf("range read: %v", err)
	}
	if len(appts) != 1 {
		t.Fatalf("expected 1 appointment, got %d", len(appts))
	}

	// A write affecting the same practitioner and day must be visible to the
	// very next read.
	created := f.createAt(t, ts(11, 0), ts(11, 30))

	appts, err = f.svc.GetAppointmentsForDateRange(ctx, f.practitioner, from, to)
	if err != nil {
		t.Fatalf("post-write read: %v", err)
	}
	if len(appts) != 2 {
		t.Fatalf("read after write returned stale data: %d appointments", len(appts))
	}

	// Status changes invalidate too.
	if _, err := f.svc.ChangeStatus(ctx, created.ID, StatusCancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	appts, err = f.svc.GetAppointmentsForDateRange(ctx, f.practitioner, from, to)
	if err != nil {
		t.Fatalf("post-cancel read: %v", err)
	}
	for _, a := range appts {
		if a.ID == created.ID && a.Status != StatusCancelled {
			t.Error("read after status change returned stale status")
		}
	}
}

func TestGetTodaySchedule(t *testing.T) {
	f := newFixture(t, "America/New_York")
	ctx := context.Background()

	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatal(err)
	}

	// 01:30 UTC June 3 is the evening of June 2 in New York.
	f.svc.now = func() time.Time { return time.Date(2025, 6, 3, 1, 30, 0, 0, time.UTC) }

	evening := f.createAt(t,
		time.Date(2025, 6, 2, 20, 0, 0, 0, ny),
		time.Date(2025, 6, 2, 20, 30, 0, 0, ny))
	// Next New York day; must not appear.
	f.createAt(t,
		time.Date(2025, 6, 3, 9, 0, 0, 0, ny),
		time.Date(2025, 6, 3, 9, 30, 0, 0, ny))

	appts, err := f.svc.GetTodaySchedule(ctx, f.practitioner)
	if err != nil {
		t.Fatalf("today schedule: %v", err)
	}
	if len(appts) != 1 || appts[0].ID != evening.ID {
		t.Fatalf("today should contain only the June 2 New York appointment, got %d", len(appts))
	}
}

func TestAvailabilityEnforcedOnCreate(t *testing.T) {
	f := newFixture(t, "UTC")
	ctx := context.Background()

	f.store.windows[f.practitioner] = []AvailabilityWindow{
		weeklyWindow(f.practitioner, time.Monday, 9*60, 17*60),
	}

	// ts() is a Monday.
	if _, err := f.svc.CreateAppointment(ctx, CreateAppointmentInput{
		PractitionerID: f.practitioner,
		PatientID:      f.patient,
		StartTime:      ts(10, 0),
		EndTime:        ts(10, 30),
		Type:           TypeRoutine,
	}); err != nil {
		t.Errorf("inside working hours should succeed: %v", err)
	}

	_, err := f.svc.CreateAppointment(ctx, CreateAppointmentInput{
		PractitionerID: f.practitioner,
		PatientID:      f.patient,
		StartTime:      ts(7, 0),
		EndTime:        ts(7, 30),
		Type:           TypeRoutine,
	})
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Errorf("outside working hours should fail validation, got %v", err)
	}
}

func TestMarkOverdueNoShows(t *testing.T) {
	f := newFixture(t, "UTC")
	ctx := context.Background()

	appt := f.createAt(t, ts(9, 0), ts(9, 30))
	recent := f.createAt(t, ts(11, 0), ts(11, 30))

	// 30m grace: the 09:00-09:30 appointment is overdue at 10:30, the 11:00
	// one is not.
	f.svc.now = func() time.Time { return ts(10, 30) }

	count, err := f.svc.MarkOverdueNoShows(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 transition, got %d", count)
	}

	swept, err := f.store.GetAppointmentByID(ctx, appt.ID)
	if err != nil {
		t.Fatal(err)
	}
	if swept.Status != StatusNoShow {
		t.Errorf("overdue appointment should be no_show, got %s", swept.Status)
	}

	untouched, err := f.store.GetAppointmentByID(ctx, recent.ID)
	if err != nil {
		t.Fatal(err)
	}
	if untouched.Status != StatusScheduled {
		t.Errorf("future appointment should stay scheduled, got %s", untouched.Status)
	}
}
