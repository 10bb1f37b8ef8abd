// Package patient stores patient charts. Identifying and insurance fields are
// sealed with the field codec before they reach the store.
package patient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var ErrPatientNotFound = errors.New("patient not found")

type Patient struct {
	ID                        uuid.UUID  `json:"id"`
	ProfileID                 uuid.UUID  `json:"profile_id"`
	PatientNumber             string     `json:"patient_number"`
	FirstName                 string     `json:"first_name"`
	LastName                  string     `json:"last_name"`
	Email                     string     `json:"email"`
	BloodGroup                *string    `json:"blood_group,omitempty"`
	Allergies                 []string   `json:"allergies"`
	ChronicConditions         []string   `json:"chronic_conditions"`
	InsuranceProvider         *string    `json:"insurance_provider,omitempty"`
	PrimaryDoctorID           *uuid.UUID `json:"primary_doctor_id,omitempty"`
	IsActive                  bool       `json:"is_active"`
	SSNEncrypted              *string    `json:"-"`
	EmergencyContactEncrypted *string    `json:"-"`
	InsurancePolicyEncrypted  *string    `json:"-"`
	MedicalHistoryEncrypted   *string    `json:"-"`
	SSN                       *string    `json:"ssn,omitempty"`
	EmergencyContact          *string    `json:"emergency_contact,omitempty"`
	InsurancePolicy           *string    `json:"insurance_policy,omitempty"`
	MedicalHistory            *string    `json:"medical_history,omitempty"`
	CreatedAt                 time.Time  `json:"created_at"`
	UpdatedAt                 time.Time  `json:"updated_at"`
}

type CreateRequest struct {
	ProfileID         uuid.UUID
	BloodGroup        *string
	Allergies         []string
	ChronicConditions []string
	InsuranceProvider *string
	PrimaryDoctorID   *uuid.UUID
	SSN               *string
	EmergencyContact  *string
	InsurancePolicy   *string
	MedicalHistory    *string
}

type Patch struct {
	BloodGroup        *string
	Allergies         []string
	ChronicConditions []string
	InsuranceProvider *string
	PrimaryDoctorID   *uuid.UUID
	IsActive          *bool
	SSN               *string
	EmergencyContact  *string
	InsurancePolicy   *string
	MedicalHistory    *string
}

// Number formats the n-th patient number, e.g. PAT000042.
func Number(n int64) string {
	return fmt.Sprintf("PAT%06d", n)
}

type Repository interface {
	// Insert assigns the next patient number.
	Insert(ctx context.Context, p *Patient) (*Patient, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetByProfileID(ctx context.Context, profileID uuid.UUID) (*Patient, error)
	// Update writes the non-nil fields of p; sensitive fields arrive sealed.
	Update(ctx context.Context, id uuid.UUID, p Patch) (*Patient, error)
	// ListActive returns active patients, newest first.
	ListActive(ctx context.Context) ([]Patient, error)
}
