package patient

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const patientSelect = `
	SELECT p.id, p.profile_id, p.patient_number, pr.first_name, pr.last_name, pr.email,
	       p.blood_group, p.allergies, p.chronic_conditions, p.insurance_provider, p.primary_doctor_id,
	       p.is_active, p.ssn_encrypted, p.emergency_contact_encrypted, p.insurance_policy_encrypted,
	       p.medical_history_encrypted, p.created_at, p.updated_at
	FROM patients p
	JOIN profiles pr ON pr.id = p.profile_id`

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(
		&p.ID,
		&p.ProfileID,
		&p.PatientNumber,
		&p.FirstName,
		&p.LastName,
		&p.Email,
		&p.BloodGroup,
		&p.Allergies,
		&p.ChronicConditions,
		&p.InsuranceProvider,
		&p.PrimaryDoctorID,
		&p.IsActive,
		&p.SSNEncrypted,
		&p.EmergencyContactEncrypted,
		&p.InsurancePolicyEncrypted,
		&p.MedicalHistoryEncrypted,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *PgRepository) Insert(ctx context.Context, p *Patient) (*Patient, error) {
	id := p.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO patients (id, profile_id, patient_number, blood_group, allergies, chronic_conditions,
		                      insurance_provider, primary_doctor_id, ssn_encrypted, emergency_contact_encrypted,
		                      insurance_policy_encrypted, medical_history_encrypted)
		VALUES ($1, $2, 'PAT' || lpad(nextval('patient_number_seq')::text, 6, '0'), $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, id, p.ProfileID, p.BloodGroup, nonNil(p.Allergies), nonNil(p.ChronicConditions), p.InsuranceProvider,
		p.PrimaryDoctorID, p.SSNEncrypted, p.EmergencyContactEncrypted, p.InsurancePolicyEncrypted,
		p.MedicalHistoryEncrypted)
	if err != nil {
		return nil, fmt.Errorf("insert patient: %w", err)
	}
	return r.GetByID(ctx, id)
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return scanPatient(r.pool.QueryRow(ctx, patientSelect+` WHERE p.id = $1`, id))
}

func (r *PgRepository) GetByProfileID(ctx context.Context, profileID uuid.UUID) (*Patient, error) {
	return scanPatient(r.pool.QueryRow(ctx, patientSelect+` WHERE p.profile_id = $1`, profileID))
}

func (r *PgRepository) Update(ctx context.Context, id uuid.UUID, p Patch) (*Patient, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE patients
		SET blood_group = COALESCE($2, blood_group),
		    allergies = COALESCE($3, allergies),
		    chronic_conditions = COALESCE($4, chronic_conditions),
		    insurance_provider = COALESCE($5, insurance_provider),
		    primary_doctor_id = COALESCE($6, primary_doctor_id),
		    is_active = COALESCE($7, is_active),
		    ssn_encrypted = COALESCE($8, ssn_encrypted),
		    emergency_contact_encrypted = COALESCE($9, emergency_contact_encrypted),
		    insurance_policy_encrypted = COALESCE($10, insurance_policy_encrypted),
		    medical_history_encrypted = COALESCE($11, medical_history_encrypted),
		    updated_at = now()
		WHERE id = $1
	`, id, p.BloodGroup, p.Allergies, p.ChronicConditions, p.InsuranceProvider, p.PrimaryDoctorID,
		p.IsActive, p.SSN, p.EmergencyContact, p.InsurancePolicy, p.MedicalHistory)
	if err != nil {
		return nil, fmt.Errorf("update patient: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrPatientNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *PgRepository) ListActive(ctx context.Context) ([]Patient, error) {
	rows, err := r.pool.Query(ctx, patientSelect+`
		WHERE p.is_active
		ORDER BY p.created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []Patient{}
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	return result, rows.Err()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
