package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type Counts struct {
	ActivePatients        int
	Appointments          int
	UpcomingAppointments  int
	CompletedAppointments int
}

// Source fetches the raw rows the dashboard folds over.
type Source interface {
	Counts(ctx context.Context, today string) (Counts, error)
	AppointmentDatesSince(ctx context.Context, from string) ([]string, error)
	// BillingRows returns invoices created at or after since; a zero since
	// returns all of them.
	BillingRows(ctx context.Context, since time.Time) ([]BillingRow, error)
	ActivePatientConditions(ctx context.Context) ([][]string, error)
}

type PgSource struct {
	pool *pgxpool.Pool
}

func NewPgSource(pool *pgxpool.Pool) *PgSource {
	return &PgSource{pool: pool}
}

func (s *PgSource) Counts(ctx context.Context, today string) (Counts, error) {
	var c Counts
	err := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM patients WHERE is_active),
			(SELECT count(*) FROM appointments),
			(SELECT count(*) FROM appointments
			 WHERE appointment_date >= $1::date AND status IN ('scheduled', 'confirmed')),
			(SELECT count(*) FROM appointments WHERE status = 'completed')
	`, today).Scan(&c.ActivePatients, &c.Appointments, &c.UpcomingAppointments, &c.CompletedAppointments)
	if err != nil {
		return Counts{}, fmt.Errorf("count dashboard totals: %w", err)
	}
	return c, nil
}

func (s *PgSource) AppointmentDatesSince(ctx context.Context, from string) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT appointment_date::text
		FROM appointments
		WHERE appointment_date >= $1::date
		ORDER BY appointment_date
	`, from)
	if err != nil {
		return nil, fmt.Errorf("list appointment dates: %w", err)
	}
	defer rows.Close()

	var dates []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

func (s *PgSource) BillingRows(ctx context.Context, since time.Time) ([]BillingRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT created_at, total_amount::text, status
		FROM billing
		WHERE $1::timestamptz IS NULL OR created_at >= $1::timestamptz
	`, nullableTime(since))
	if err != nil {
		return nil, fmt.Errorf("list billing rows: %w", err)
	}
	defer rows.Close()

	var out []BillingRow
	for rows.Next() {
		var r BillingRow
		var total string
		if err := rows.Scan(&r.CreatedAt, &total, &r.Status); err != nil {
			return nil, err
		}
		if r.TotalAmount, err = decimal.NewFromString(total); err != nil {
			return nil, fmt.Errorf("parse total_amount: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PgSource) ActivePatientConditions(ctx context.Context) ([][]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT chronic_conditions
		FROM patients
		WHERE is_active
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("list patient conditions: %w", err)
	}
	defer rows.Close()

	var out [][]string
	for rows.Next() {
		var conds []string
		if err := rows.Scan(&conds); err != nil {
			return nil, err
		}
		out = append(out, conds)
	}
	return out, rows.Err()
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
