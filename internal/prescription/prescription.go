// Package prescription records medications issued by doctors. Medication,
// dosage, frequency and instructions are sealed with the field codec.
package prescription

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrPrescriptionNotFound = errors.New("prescription not found")

type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	return s == StatusActive || s == StatusCompleted || s == StatusCancelled
}

type Prescription struct {
	ID                      uuid.UUID  `json:"id"`
	PatientID               uuid.UUID  `json:"patient_id"`
	DoctorID                uuid.UUID  `json:"doctor_id"`
	MedicalRecordID         *uuid.UUID `json:"medical_record_id,omitempty"`
	MedicationNameEncrypted string     `json:"-"`
	DosageEncrypted         string     `json:"-"`
	FrequencyEncrypted      string     `json:"-"`
	InstructionsEncrypted   *string    `json:"-"`
	MedicationName          string     `json:"medication_name,omitempty"`
	Dosage                  string     `json:"dosage,omitempty"`
	Frequency               string     `json:"frequency,omitempty"`
	Instructions            *string    `json:"instructions,omitempty"`
	Duration                string     `json:"duration"`
	RefillsAllowed          int        `json:"refills_allowed"`
	PharmacyName            *string    `json:"pharmacy_name,omitempty"`
	PrescribedDate          string     `json:"prescribed_date"`
	ValidUntil              *string    `json:"valid_until,omitempty"`
	Status                  Status     `json:"status"`
	CreatedAt               time.Time  `json:"created_at"`
	UpdatedAt               time.Time  `json:"updated_at"`
}

type CreateRequest struct {
	PatientID       uuid.UUID
	DoctorID        uuid.UUID
	MedicalRecordID *uuid.UUID
	MedicationName  string
	Dosage          string
	Frequency       string
	Duration        string
	Instructions    *string
	RefillsAllowed  int
	PharmacyName    *string
	ValidUntil      *string
}

type Patch struct {
	Dosage         *string
	Frequency      *string
	Instructions   *string
	Duration       *string
	RefillsAllowed *int
	PharmacyName   *string
	ValidUntil     *string
	Status         *Status
}

type Repository interface {
	Insert(ctx context.Context, p *Prescription) (*Prescription, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error)
	// ListByPatient returns the patient's prescriptions, newest prescribed
	// first; activeOnly keeps status active.
	ListByPatient(ctx context.Context, patientID uuid.UUID, activeOnly bool) ([]Prescription, error)
	Update(ctx context.Context, id uuid.UUID, p Patch) (*Prescription, error)
}
