// Package medrecord keeps visit notes written by clinicians. Every clinical
// text field is stored sealed.
package medrecord

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/fieldcodec"
)

var ErrRecordNotFound = errors.New("medical record not found")

type Record struct {
	ID                      uuid.UUID `json:"id"`
	PatientID               uuid.UUID `json:"patient_id"`
	DoctorID                uuid.UUID `json:"doctor_id"`
	VisitDate               string    `json:"visit_date"`
	ChiefComplaintEncrypted *string   `json:"-"`
	DiagnosisEncrypted      *string   `json:"-"`
	TreatmentPlanEncrypted  *string   `json:"-"`
	VitalSignsEncrypted     *string   `json:"-"`
	NotesEncrypted          *string   `json:"-"`
	ChiefComplaint          *string   `json:"chief_complaint,omitempty"`
	Diagnosis               *string   `json:"diagnosis,omitempty"`
	TreatmentPlan           *string   `json:"treatment_plan,omitempty"`
	VitalSigns              *string   `json:"vital_signs,omitempty"`
	Notes                   *string   `json:"notes,omitempty"`
	FollowUpDate            *string   `json:"follow_up_date,omitempty"`
	CreatedBy               uuid.UUID `json:"created_by"`
	CreatedAt               time.Time `json:"created_at"`
	UpdatedAt               time.Time `json:"updated_at"`
}

// Clinical holds the sealed text of a record. In a Patch a nil field is left
// unchanged.
type Clinical struct {
	ChiefComplaint *string
	Diagnosis      *string
	TreatmentPlan  *string
	VitalSigns     *string
	Notes          *string
}

type CreateRequest struct {
	PatientID    uuid.UUID
	DoctorID     uuid.UUID
	VisitDate    *string
	FollowUpDate *string
	Clinical
}

type Patch struct {
	VisitDate    *string
	FollowUpDate *string
	Clinical
}

type Repository interface {
	Insert(ctx context.Context, r *Record) (*Record, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Record, error)
	// ListByPatient returns the patient's records, latest visit first.
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]Record, error)
	Update(ctx context.Context, id uuid.UUID, p Patch) (*Record, error)
}

func (c *Clinical) fields() fieldcodec.Fields {
	return fieldcodec.Fields{&c.ChiefComplaint, &c.Diagnosis, &c.TreatmentPlan, &c.VitalSigns, &c.Notes}
}

func (r *Record) sealed() fieldcodec.Fields {
	return fieldcodec.Fields{&r.ChiefComplaintEncrypted, &r.DiagnosisEncrypted, &r.TreatmentPlanEncrypted, &r.VitalSignsEncrypted, &r.NotesEncrypted}
}

func (r *Record) plain() fieldcodec.Fields {
	return fieldcodec.Fields{&r.ChiefComplaint, &r.Diagnosis, &r.TreatmentPlan, &r.VitalSigns, &r.Notes}
}
