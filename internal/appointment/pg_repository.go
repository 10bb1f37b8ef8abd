package appointment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/clinic-scheduling/internal/db"
)

const noOverlapConstraint = "appointments_no_overlap"

const appointmentColumns = `
	a.id, a.patient_id, a.doctor_id, a.appointment_date::text, a.start_time::text, a.end_time::text,
	a.status, a.appointment_type, a.reason, a.location, a.notes_encrypted, a.created_by,
	a.created_at, a.updated_at`

const detailSelect = `
	SELECT ` + appointmentColumns + `,
	       p.patient_number, pp.first_name, pp.last_name,
	       dp.first_name, dp.last_name, d.specialization, d.department
	FROM appointments a
	JOIN patients p ON p.id = a.patient_id
	JOIN profiles pp ON pp.id = p.profile_id
	JOIN doctors d ON d.id = a.doctor_id
	JOIN profiles dp ON dp.id = d.profile_id`

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanAppointment(row pgx.Row) (*Appointment, error) {
	return scanInto(row)
}

func scanInto(row pgx.Row, extra ...any) (*Appointment, error) {
	var a Appointment
	var start, end string

	dest := []any{
		&a.ID,
		&a.PatientID,
		&a.DoctorID,
		&a.Date,
		&start,
		&end,
		&a.Status,
		&a.Type,
		&a.Reason,
		&a.Location,
		&a.NotesEncrypted,
		&a.CreatedBy,
		&a.CreatedAt,
		&a.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	var err error
	if a.StartTime, err = ParseClock(start); err != nil {
		return nil, fmt.Errorf("scan start_time: %w", err)
	}
	if a.EndTime, err = ParseClock(end); err != nil {
		return nil, fmt.Errorf("scan end_time: %w", err)
	}
	return &a, nil
}

func scanDetail(row pgx.Row) (*AppointmentDetail, error) {
	var p PatientSummary
	var d DoctorSummary

	a, err := scanInto(row,
		&p.PatientNumber, &p.FirstName, &p.LastName,
		&d.FirstName, &d.LastName, &d.Specialization, &d.Department,
	)
	if err != nil {
		return nil, err
	}
	p.ID = a.PatientID
	d.ID = a.DoctorID
	return &AppointmentDetail{Appointment: *a, Patient: &p, Doctor: &d}, nil
}

func collectDetails(rows pgx.Rows) ([]AppointmentDetail, error) {
	defer rows.Close()

	result := []AppointmentDetail{}
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Interface methods

func (r *PgRepository) ListActiveSlots(ctx context.Context, doctorID uuid.UUID, date string, excludeID *uuid.UUID) ([]Slot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, start_time::text, end_time::text, status
		FROM appointments
		WHERE doctor_id = $1
		  AND appointment_date = $2::date
		  AND status <> 'cancelled'
		  AND ($3::uuid IS NULL OR id <> $3::uuid)
	`, doctorID, date, excludeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slots []Slot
	for rows.Next() {
		var s Slot
		var start, end string
		if err := rows.Scan(&s.ID, &start, &end, &s.Status); err != nil {
			return nil, err
		}
		if s.StartTime, err = ParseClock(start); err != nil {
			return nil, err
		}
		if s.EndTime, err = ParseClock(end); err != nil {
			return nil, err
		}
		slots = append(slots, s)
	}
	return slots, rows.Err()
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments a WHERE a.id = $1`, id)
	return scanAppointment(row)
}

func (r *PgRepository) GetDetail(ctx context.Context, id uuid.UUID) (*AppointmentDetail, error) {
	row := r.pool.QueryRow(ctx, detailSelect+` WHERE a.id = $1`, id)
	return scanDetail(row)
}

func (r *PgRepository) Insert(ctx context.Context, a *Appointment) (*Appointment, error) {
	id := a.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments AS a (id, patient_id, doctor_id, appointment_date, start_time, end_time,
		                               status, appointment_type, reason, location, notes_encrypted, created_by)
		VALUES ($1, $2, $3, $4::date, $5::time, $6::time, $7, $8, $9, $10, $11, $12)
		RETURNING `+appointmentColumns,
		id, a.PatientID, a.DoctorID, a.Date, a.StartTime.String(), a.EndTime.String(),
		a.Status, a.Type, a.Reason, a.Location, a.NotesEncrypted, a.CreatedBy)

	created, err := scanAppointment(row)
	if err != nil {
		if db.IsExclusionViolation(err, noOverlapConstraint) {
			return nil, ErrSlotConflict
		}
		return nil, fmt.Errorf("insert appointment: %w", err)
	}
	return created, nil
}

func (r *PgRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments AS a
		SET status = $2,
		    updated_at = now()
		WHERE a.id = $1
		  AND a.status = $3
		RETURNING `+appointmentColumns, id, to, from)

	updated, err := scanAppointment(row)
	if db.IsExclusionViolation(err, noOverlapConstraint) {
		return nil, ErrSlotConflict
	}
	return updated, err
}

func (r *PgRepository) UpdateSlot(ctx context.Context, id uuid.UUID, from Status, date string, start, end Clock) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments AS a
		SET appointment_date = $3::date,
		    start_time = $4::time,
		    end_time = $5::time,
		    updated_at = now()
		WHERE a.id = $1
		  AND a.status = $2
		RETURNING `+appointmentColumns, id, from, date, start.String(), end.String())

	updated, err := scanAppointment(row)
	if db.IsExclusionViolation(err, noOverlapConstraint) {
		return nil, ErrSlotConflict
	}
	return updated, err
}

func (r *PgRepository) UpdateDetails(ctx context.Context, id uuid.UUID, p Patch) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments AS a
		SET appointment_type = COALESCE($2, a.appointment_type),
		    reason = COALESCE($3, a.reason),
		    location = COALESCE($4, a.location),
		    notes_encrypted = COALESCE($5, a.notes_encrypted),
		    updated_at = now()
		WHERE a.id = $1
		RETURNING `+appointmentColumns, id, p.Type, p.Reason, p.Location, p.Notes)
	return scanAppointment(row)
}

func (r *PgRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func (r *PgRepository) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]AppointmentDetail, error) {
	rows, err := r.pool.Query(ctx, detailSelect+`
		WHERE a.patient_id = $1
		ORDER BY a.appointment_date, a.start_time
		LIMIT $2 OFFSET $3
	`, patientID, limit, offset)
	if err != nil {
		return nil, err
	}
	return collectDetails(rows)
}

func (r *PgRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]AppointmentDetail, error) {
	rows, err := r.pool.Query(ctx, detailSelect+`
		WHERE a.doctor_id = $1
		ORDER BY a.appointment_date, a.start_time
		LIMIT $2 OFFSET $3
	`, doctorID, limit, offset)
	if err != nil {
		return nil, err
	}
	return collectDetails(rows)
}

func (r *PgRepository) ListUpcoming(ctx context.Context, fromDate string, limit int) ([]AppointmentDetail, error) {
	rows, err := r.pool.Query(ctx, detailSelect+`
		WHERE a.appointment_date >= $1::date
		  AND a.status IN ('scheduled', 'confirmed')
		ORDER BY a.appointment_date, a.start_time
		LIMIT $2
	`, fromDate, limit)
	if err != nil {
		return nil, err
	}
	return collectDetails(rows)
}
