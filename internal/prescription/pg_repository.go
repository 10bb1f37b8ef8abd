package prescription

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const prescriptionColumns = `
	id, patient_id, doctor_id, medical_record_id, medication_name_encrypted, dosage_encrypted,
	frequency_encrypted, instructions_encrypted, duration, refills_allowed, pharmacy_name,
	prescribed_date::text, valid_until::text, status, created_at, updated_at`

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func scanPrescription(row pgx.Row) (*Prescription, error) {
	var p Prescription
	err := row.Scan(
		&p.ID,
		&p.PatientID,
		&p.DoctorID,
		&p.MedicalRecordID,
		&p.MedicationNameEncrypted,
		&p.DosageEncrypted,
		&p.FrequencyEncrypted,
		&p.InstructionsEncrypted,
		&p.Duration,
		&p.RefillsAllowed,
		&p.PharmacyName,
		&p.PrescribedDate,
		&p.ValidUntil,
		&p.Status,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPrescriptionNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *PgRepository) Insert(ctx context.Context, p *Prescription) (*Prescription, error) {
	id := p.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO prescriptions (id, patient_id, doctor_id, medical_record_id, medication_name_encrypted,
		                           dosage_encrypted, frequency_encrypted, instructions_encrypted, duration,
		                           refills_allowed, pharmacy_name, valid_until, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12::date, $13)
		RETURNING `+prescriptionColumns,
		id, p.PatientID, p.DoctorID, p.MedicalRecordID, p.MedicationNameEncrypted, p.DosageEncrypted,
		p.FrequencyEncrypted, p.InstructionsEncrypted, p.Duration, p.RefillsAllowed, p.PharmacyName,
		p.ValidUntil, p.Status)

	created, err := scanPrescription(row)
	if err != nil {
		return nil, fmt.Errorf("insert prescription: %w", err)
	}
	return created, nil
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	return scanPrescription(r.pool.QueryRow(ctx, `SELECT `+prescriptionColumns+` FROM prescriptions WHERE id = $1`, id))
}

func (r *PgRepository) ListByPatient(ctx context.Context, patientID uuid.UUID, activeOnly bool) ([]Prescription, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+prescriptionColumns+`
		FROM prescriptions
		WHERE patient_id = $1
		  AND (NOT $2 OR status = 'active')
		ORDER BY prescribed_date DESC, created_at DESC
	`, patientID, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []Prescription{}
	for rows.Next() {
		p, err := scanPrescription(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	return result, rows.Err()
}

func (r *PgRepository) Update(ctx context.Context, id uuid.UUID, p Patch) (*Prescription, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE prescriptions
		SET dosage_encrypted = COALESCE($2, dosage_encrypted),
		    frequency_encrypted = COALESCE($3, frequency_encrypted),
		    instructions_encrypted = COALESCE($4, instructions_encrypted),
		    duration = COALESCE($5, duration),
		    refills_allowed = COALESCE($6, refills_allowed),
		    pharmacy_name = COALESCE($7, pharmacy_name),
		    valid_until = COALESCE($8::date, valid_until),
		    status = COALESCE($9, status),
		    updated_at = now()
		WHERE id = $1
		RETURNING `+prescriptionColumns,
		id, p.Dosage, p.Frequency, p.Instructions, p.Duration, p.RefillsAllowed, p.PharmacyName,
		p.ValidUntil, p.Status)
	return scanPrescription(row)
}
