package scheduling

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const appointmentColumns = `id, practitioner_id, patient_id, start_time, end_time, status, appointment_type, check_in_time, check_out_time, created_at, updated_at`

type PgRepository struct {
	pool       *pgxpool.Pool
	maxRetries int
}

func NewPgRepository(pool *pgxpool.Pool, maxRetries int) *PgRepository {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &PgRepository{pool: pool, maxRetries: maxRetries}
}

// Helpers

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var checkIn, checkOut *time.Time

	err := row.Scan(
		&a.ID,
		&a.PractitionerID,
		&a.PatientID,
		&a.StartTime,
		&a.EndTime,
		&a.Status,
		&a.Type,
		&checkIn,
		&checkOut,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.CheckInTime = checkIn
	a.CheckOutTime = checkOut
	return &a, nil
}

func scanAppointments(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func scanPractitioner(row pgx.Row) (*Practitioner, error) {
	var p Practitioner
	var specialty *string

	err := row.Scan(
		&p.ID,
		&p.Name,
		&specialty,
		&p.TimeZone,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPractitionerNotFound
		}
		return nil, err
	}

	p.Specialty = specialty
	return &p, nil
}

func scanWindow(row pgx.Row) (*AvailabilityWindow, error) {
	var w AvailabilityWindow
	var dow int
	var date, recurrenceEnd *time.Time

	err := row.Scan(
		&w.ID,
		&w.PractitionerID,
		&dow,
		&date,
		&w.StartMinute,
		&w.EndMinute,
		&w.IsAvailable,
		&w.Recurrence,
		&w.EffectiveFrom,
		&recurrenceEnd,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	w.DayOfWeek = time.Weekday(dow)
	w.Date = date
	w.RecurrenceEnd = recurrenceEnd
	return &w, nil
}

// retryable reports whether the error is a transient transaction failure
// (serialization or deadlock) worth another attempt.
func retryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}

// withTxRetry runs fn inside a transaction, retrying transient failures a
// bounded number of times with jitter before surfacing ErrStoreUnavailable.
func (r *PgRepository) withTxRetry(ctx context.Context, fn func(tx pgx.Tx) error) error {
	var lastErr error
	for attempt := 0; attempt < r.maxRetries; attempt++ {
		if attempt > 0 {
			jitter := time.Duration(rand.Intn(50)+10) * time.Millisecond
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(jitter):
			}
		}

		err := pgx.BeginFunc(ctx, r.pool, fn)
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, lastErr)
}

// lockConflicts selects, FOR UPDATE, every non-terminal appointment of the
// practitioner that overlaps the proposal, then re-applies the pure conflict
// filter. The row locks hold until commit, so a concurrent writer for an
// overlapping range observes this write or blocks behind it.
func lockConflicts(ctx context.Context, tx pgx.Tx, p Proposal) error {
	rows, err := tx.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE practitioner_id = $1
		  AND status NOT IN ('cancelled', 'completed', 'no_show')
		  AND start_time < $3
		  AND end_time > $2
		FOR UPDATE
	`, p.PractitionerID, p.StartTime, p.EndTime)
	if err != nil {
		return fmt.Errorf("query conflicting appointments: %w", err)
	}

	candidates, err := scanAppointments(rows)
	if err != nil {
		return fmt.Errorf("scan conflicting appointments: %w", err)
	}

	if ids := ConflictingIDs(candidates, p); len(ids) > 0 {
		return &ConflictError{PractitionerID: p.PractitionerID, ConflictingIDs: ids}
	}
	return nil
}

// Interface methods

func (r *PgRepository) CreateAppointment(ctx context.Context, a *Appointment) (*Appointment, error) {
	var created *Appointment

	err := r.withTxRetry(ctx, func(tx pgx.Tx) error {
		err := lockConflicts(ctx, tx, Proposal{
			PractitionerID: a.PractitionerID,
			StartTime:      a.StartTime,
			EndTime:        a.EndTime,
		})
		if err != nil {
			return err
		}

		row := tx.QueryRow(ctx, `
			INSERT INTO appointments (id, practitioner_id, patient_id, start_time, end_time, status, appointment_type, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, 'scheduled', $6, now(), now())
			RETURNING `+appointmentColumns+`
		`, a.ID, a.PractitionerID, a.PatientID, a.StartTime, a.EndTime, a.Type)

		created, err = scanAppointment(row)
		if err != nil {
			return fmt.Errorf("insert appointment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (r *PgRepository) UpdateAppointmentTimes(ctx context.Context, a *Appointment) (*Appointment, error) {
	var updated *Appointment

	err := r.withTxRetry(ctx, func(tx pgx.Tx) error {
		err := lockConflicts(ctx, tx, Proposal{
			PractitionerID: a.PractitionerID,
			StartTime:      a.StartTime,
			EndTime:        a.EndTime,
			ExcludeID:      a.ID,
		})
		if err != nil {
			return err
		}

		row := tx.QueryRow(ctx, `
			UPDATE appointments
			SET start_time = $2,
			    end_time = $3,
			    appointment_type = $4,
			    updated_at = now()
			WHERE id = $1
			RETURNING `+appointmentColumns+`
		`, a.ID, a.StartTime, a.EndTime, a.Type)

		updated, err = scanAppointment(row)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *PgRepository) UpdateAppointmentType(ctx context.Context, id uuid.UUID, t AppointmentType) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET appointment_type = $2,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+appointmentColumns+`
	`, id, t)
	return scanAppointment(row)
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) UpdateAppointmentStatus(ctx context.Context, a *Appointment, expected Status) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    check_in_time = $3,
		    check_out_time = $4,
		    updated_at = now()
		WHERE id = $1
		  AND status = $5
		RETURNING `+appointmentColumns+`
	`, a.ID, a.Status, a.CheckInTime, a.CheckOutTime, expected)

	return scanAppointment(row)
}

func (r *PgRepository) ListForPractitionerRange(ctx context.Context, practitionerID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE practitioner_id = $1
		  AND start_time < $3
		  AND end_time > $2
		ORDER BY start_time ASC
	`, practitionerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return scanAppointments(rows)
}

func (r *PgRepository) ListWindows(ctx context.Context, practitionerID uuid.UUID) ([]AvailabilityWindow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, practitioner_id, day_of_week, date, start_minute, end_minute, is_available, recurrence, effective_from, recurrence_end, created_at, updated_at
		FROM availability_windows
		WHERE practitioner_id = $1
	`, practitionerID)
	if err != nil {
		return nil, fmt.Errorf("list availability windows: %w", err)
	}
	defer rows.Close()

	var result []AvailabilityWindow
	for rows.Next() {
		w, err := scanWindow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PgRepository) GetPractitionerByID(ctx context.Context, id uuid.UUID) (*Practitioner, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, specialty, time_zone, created_at, updated_at
		FROM practitioners
		WHERE id = $1
	`, id)
	return scanPractitioner(row)
}

func (r *PgRepository) FindOverdue(ctx context.Context, cutoff time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE status IN ('scheduled', 'confirmed')
		  AND end_time < $1
		ORDER BY end_time ASC
	`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("find overdue appointments: %w", err)
	}
	return scanAppointments(rows)
}

func (r *PgRepository) PractitionerExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM practitioners WHERE id = $1)
	`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check practitioner: %w", err)
	}
	return exists, nil
}

func (r *PgRepository) PatientExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM patients WHERE id = $1)
	`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check patient: %w", err)
	}
	return exists, nil
}
