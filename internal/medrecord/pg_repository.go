package medrecord

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const recordColumns = `
	id, patient_id, doctor_id, visit_date::text, chief_complaint_encrypted, diagnosis_encrypted,
	treatment_plan_encrypted, vital_signs_encrypted, notes_encrypted, follow_up_date::text,
	created_by, created_at, updated_at`

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func scanRecord(row pgx.Row) (*Record, error) {
	var r Record
	err := row.Scan(
		&r.ID,
		&r.PatientID,
		&r.DoctorID,
		&r.VisitDate,
		&r.ChiefComplaintEncrypted,
		&r.DiagnosisEncrypted,
		&r.TreatmentPlanEncrypted,
		&r.VitalSignsEncrypted,
		&r.NotesEncrypted,
		&r.FollowUpDate,
		&r.CreatedBy,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &r, nil
}

func (p *PgRepository) Insert(ctx context.Context, r *Record) (*Record, error) {
	id := r.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	var visit *string
	if r.VisitDate != "" {
		visit = &r.VisitDate
	}
	row := p.pool.QueryRow(ctx, `
		INSERT INTO medical_records (id, patient_id, doctor_id, visit_date, chief_complaint_encrypted,
		                             diagnosis_encrypted, treatment_plan_encrypted, vital_signs_encrypted,
		                             notes_encrypted, follow_up_date, created_by)
		VALUES ($1, $2, $3, COALESCE($4::date, CURRENT_DATE), $5, $6, $7, $8, $9, $10::date, $11)
		RETURNING `+recordColumns,
		id, r.PatientID, r.DoctorID, visit, r.ChiefComplaintEncrypted, r.DiagnosisEncrypted,
		r.TreatmentPlanEncrypted, r.VitalSignsEncrypted, r.NotesEncrypted, r.FollowUpDate, r.CreatedBy)

	created, err := scanRecord(row)
	if err != nil {
		return nil, fmt.Errorf("insert medical record: %w", err)
	}
	return created, nil
}

func (p *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Record, error) {
	return scanRecord(p.pool.QueryRow(ctx, `SELECT `+recordColumns+` FROM medical_records WHERE id = $1`, id))
}

func (p *PgRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]Record, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT `+recordColumns+`
		FROM medical_records
		WHERE patient_id = $1
		ORDER BY visit_date DESC, created_at DESC
	`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []Record{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *r)
	}
	return result, rows.Err()
}

func (p *PgRepository) Update(ctx context.Context, id uuid.UUID, patch Patch) (*Record, error) {
	row := p.pool.QueryRow(ctx, `
		UPDATE medical_records
		SET visit_date = COALESCE($2::date, visit_date),
		    follow_up_date = COALESCE($3::date, follow_up_date),
		    chief_complaint_encrypted = COALESCE($4, chief_complaint_encrypted),
		    diagnosis_encrypted = COALESCE($5, diagnosis_encrypted),
		    treatment_plan_encrypted = COALESCE($6, treatment_plan_encrypted),
		    vital_signs_encrypted = COALESCE($7, vital_signs_encrypted),
		    notes_encrypted = COALESCE($8, notes_encrypted),
		    updated_at = now()
		WHERE id = $1
		RETURNING `+recordColumns,
		id, patch.VisitDate, patch.FollowUpDate, patch.ChiefComplaint, patch.Diagnosis,
		patch.TreatmentPlan, patch.VitalSigns, patch.Notes)
	return scanRecord(row)
}
