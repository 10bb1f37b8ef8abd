package doctor

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/hackgods/clinic-scheduling/internal/db"
)

const doctorSelect = `
	SELECT d.id, d.profile_id, pr.first_name, pr.last_name, pr.email, d.license_number,
	       d.specialization, d.department, d.consultation_fee::text, d.is_active, d.created_at, d.updated_at
	FROM doctors d
	JOIN profiles pr ON pr.id = d.profile_id`

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	var fee *string

	err := row.Scan(
		&d.ID,
		&d.ProfileID,
		&d.FirstName,
		&d.LastName,
		&d.Email,
		&d.LicenseNumber,
		&d.Specialization,
		&d.Department,
		&fee,
		&d.IsActive,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}

	if fee != nil {
		v, err := decimal.NewFromString(*fee)
		if err != nil {
			return nil, fmt.Errorf("parse consultation_fee: %w", err)
		}
		d.ConsultationFee = &v
	}
	return &d, nil
}

func feeParam(fee *decimal.Decimal) *string {
	if fee == nil {
		return nil
	}
	s := fee.String()
	return &s
}

func (r *PgRepository) Insert(ctx context.Context, d *Doctor) (*Doctor, error) {
	id := d.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	spec := d.Specialization
	if spec == nil {
		spec = []string{}
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO doctors (id, profile_id, license_number, specialization, department, consultation_fee)
		VALUES ($1, $2, $3, $4, $5, $6::numeric)
	`, id, d.ProfileID, d.LicenseNumber, spec, d.Department, feeParam(d.ConsultationFee))
	if err != nil {
		if db.IsUniqueViolation(err, "doctors_license_number_key") {
			return nil, ErrDuplicateLicense
		}
		return nil, fmt.Errorf("insert doctor: %w", err)
	}
	return r.GetByID(ctx, id)
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return scanDoctor(r.pool.QueryRow(ctx, doctorSelect+` WHERE d.id = $1`, id))
}

func (r *PgRepository) Update(ctx context.Context, id uuid.UUID, p Patch) (*Doctor, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE doctors
		SET specialization = COALESCE($2, specialization),
		    department = COALESCE($3, department),
		    consultation_fee = COALESCE($4::numeric, consultation_fee),
		    is_active = COALESCE($5, is_active),
		    updated_at = now()
		WHERE id = $1
	`, id, p.Specialization, p.Department, feeParam(p.ConsultationFee), p.IsActive)
	if err != nil {
		return nil, fmt.Errorf("update doctor: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrDoctorNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *PgRepository) ListActive(ctx context.Context) ([]Doctor, error) {
	rows, err := r.pool.Query(ctx, doctorSelect+`
		WHERE d.is_active
		ORDER BY pr.last_name, pr.first_name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []Doctor{}
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}
	return result, rows.Err()
}
