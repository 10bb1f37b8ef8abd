package api

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/billing"
	"github.com/hackgods/clinic-scheduling/internal/identity"
	"github.com/hackgods/clinic-scheduling/internal/prescription"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type ConflictResponse struct {
	Conflict bool `json:"conflict"`
}

type DownloadURLResponse struct {
	URL string `json:"url"`
}

// Appointments.

type BookAppointmentRequest struct {
	// PatientID is taken from the caller's chart for patient-role callers.
	PatientID       uuid.UUID          `json:"patient_id"`
	DoctorID        uuid.UUID          `json:"doctor_id" validate:"required"`
	AppointmentDate string             `json:"appointment_date" validate:"required,datetime=2006-01-02"`
	StartTime       *appointment.Clock `json:"start_time" validate:"required"`
	EndTime         *appointment.Clock `json:"end_time" validate:"required"`
	AppointmentType string             `json:"appointment_type" validate:"required,max=50"`
	Reason          *string            `json:"reason" validate:"omitempty,max=1000"`
	Location        *string            `json:"location" validate:"omitempty,max=200"`
	Notes           *string            `json:"notes" validate:"omitempty,max=4000"`
	Status          appointment.Status `json:"status" validate:"omitempty,oneof=scheduled confirmed in_progress"`
}

type UpdateAppointmentRequest struct {
	AppointmentType *string `json:"appointment_type" validate:"omitempty,min=1,max=50"`
	Reason          *string `json:"reason" validate:"omitempty,max=1000"`
	Location        *string `json:"location" validate:"omitempty,max=200"`
	Notes           *string `json:"notes" validate:"omitempty,max=4000"`
}

type StatusRequest struct {
	Status appointment.Status `json:"status" validate:"required,oneof=scheduled confirmed in_progress completed cancelled no_show"`
}

type RescheduleRequest struct {
	AppointmentDate string             `json:"appointment_date" validate:"required,datetime=2006-01-02"`
	StartTime       *appointment.Clock `json:"start_time" validate:"required"`
	EndTime         *appointment.Clock `json:"end_time" validate:"required"`
}

// Profiles, patients, doctors.

type CreateProfileRequest struct {
	ID          uuid.UUID     `json:"id"`
	Role        identity.Role `json:"role" validate:"required,oneof=patient doctor nurse receptionist admin"`
	FirstName   string        `json:"first_name" validate:"required,max=100"`
	LastName    string        `json:"last_name" validate:"required,max=100"`
	Email       string        `json:"email" validate:"required,email"`
	DateOfBirth *string       `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	Phone       *string       `json:"phone" validate:"omitempty,max=40"`
	Address     *string       `json:"address" validate:"omitempty,max=500"`
}

type CreatePatientRequest struct {
	ProfileID         uuid.UUID  `json:"profile_id" validate:"required"`
	BloodGroup        *string    `json:"blood_group" validate:"omitempty,oneof=A+ A- B+ B- AB+ AB- O+ O-"`
	Allergies         []string   `json:"allergies"`
	ChronicConditions []string   `json:"chronic_conditions"`
	InsuranceProvider *string    `json:"insurance_provider"`
	PrimaryDoctorID   *uuid.UUID `json:"primary_doctor_id"`
	SSN               *string    `json:"ssn"`
	EmergencyContact  *string    `json:"emergency_contact"`
	InsurancePolicy   *string    `json:"insurance_policy"`
	MedicalHistory    *string    `json:"medical_history"`
}

type UpdatePatientRequest struct {
	BloodGroup        *string    `json:"blood_group" validate:"omitempty,oneof=A+ A- B+ B- AB+ AB- O+ O-"`
	Allergies         []string   `json:"allergies"`
	ChronicConditions []string   `json:"chronic_conditions"`
	InsuranceProvider *string    `json:"insurance_provider"`
	PrimaryDoctorID   *uuid.UUID `json:"primary_doctor_id"`
	IsActive          *bool      `json:"is_active"`
	SSN               *string    `json:"ssn"`
	EmergencyContact  *string    `json:"emergency_contact"`
	InsurancePolicy   *string    `json:"insurance_policy"`
	MedicalHistory    *string    `json:"medical_history"`
}

type CreateDoctorRequest struct {
	ProfileID       uuid.UUID        `json:"profile_id" validate:"required"`
	LicenseNumber   string           `json:"license_number" validate:"required,max=50"`
	Specialization  []string         `json:"specialization" validate:"required,min=1"`
	Department      *string          `json:"department"`
	ConsultationFee *decimal.Decimal `json:"consultation_fee"`
}

type UpdateDoctorRequest struct {
	Specialization  []string         `json:"specialization"`
	Department      *string          `json:"department"`
	ConsultationFee *decimal.Decimal `json:"consultation_fee"`
	IsActive        *bool            `json:"is_active"`
}

// Clinical records.

type CreatePrescriptionRequest struct {
	PatientID       uuid.UUID  `json:"patient_id" validate:"required"`
	DoctorID        uuid.UUID  `json:"doctor_id" validate:"required"`
	MedicalRecordID *uuid.UUID `json:"medical_record_id"`
	MedicationName  string     `json:"medication_name" validate:"required,max=200"`
	Dosage          string     `json:"dosage" validate:"required,max=100"`
	Frequency       string     `json:"frequency" validate:"required,max=100"`
	Duration        string     `json:"duration" validate:"required,max=100"`
	Instructions    *string    `json:"instructions"`
	RefillsAllowed  int        `json:"refills_allowed" validate:"gte=0"`
	PharmacyName    *string    `json:"pharmacy_name"`
	ValidUntil      *string    `json:"valid_until" validate:"omitempty,datetime=2006-01-02"`
}

type UpdatePrescriptionRequest struct {
	Dosage         *string              `json:"dosage"`
	Frequency      *string              `json:"frequency"`
	Instructions   *string              `json:"instructions"`
	Duration       *string              `json:"duration"`
	RefillsAllowed *int                 `json:"refills_allowed" validate:"omitempty,gte=0"`
	PharmacyName   *string              `json:"pharmacy_name"`
	ValidUntil     *string              `json:"valid_until" validate:"omitempty,datetime=2006-01-02"`
	Status         *prescription.Status `json:"status" validate:"omitempty,oneof=active completed cancelled"`
}

type MedicalRecordRequest struct {
	PatientID      uuid.UUID `json:"patient_id" validate:"required"`
	DoctorID       uuid.UUID `json:"doctor_id" validate:"required"`
	VisitDate      *string   `json:"visit_date" validate:"omitempty,datetime=2006-01-02"`
	FollowUpDate   *string   `json:"follow_up_date" validate:"omitempty,datetime=2006-01-02"`
	ChiefComplaint *string   `json:"chief_complaint"`
	Diagnosis      *string   `json:"diagnosis"`
	TreatmentPlan  *string   `json:"treatment_plan"`
	VitalSigns     *string   `json:"vital_signs"`
	Notes          *string   `json:"notes"`
}

type UpdateMedicalRecordRequest struct {
	VisitDate      *string `json:"visit_date" validate:"omitempty,datetime=2006-01-02"`
	FollowUpDate   *string `json:"follow_up_date" validate:"omitempty,datetime=2006-01-02"`
	ChiefComplaint *string `json:"chief_complaint"`
	Diagnosis      *string `json:"diagnosis"`
	TreatmentPlan  *string `json:"treatment_plan"`
	VitalSigns     *string `json:"vital_signs"`
	Notes          *string `json:"notes"`
}

// UploadReportForm holds the non-file fields of a multipart report upload.
type UploadReportForm struct {
	PatientID      string `form:"patient_id" validate:"required,uuid"`
	DoctorID       string `form:"doctor_id" validate:"omitempty,uuid"`
	ReportType     string `form:"report_type" validate:"required,max=50"`
	ReportDate     string `form:"report_date" validate:"required,datetime=2006-01-02"`
	Title          string `form:"title" validate:"required,max=200"`
	Findings       string `form:"findings"`
	Interpretation string `form:"interpretation"`
}

type UpdateReportRequest struct {
	ReportType     *string `json:"report_type" validate:"omitempty,min=1,max=50"`
	ReportDate     *string `json:"report_date" validate:"omitempty,datetime=2006-01-02"`
	Title          *string `json:"title" validate:"omitempty,min=1,max=200"`
	Findings       *string `json:"findings"`
	Interpretation *string `json:"interpretation"`
}

// Billing.

type CreateInvoiceRequest struct {
	PatientID      uuid.UUID       `json:"patient_id" validate:"required"`
	AppointmentID  *uuid.UUID      `json:"appointment_id"`
	Amount         decimal.Decimal `json:"amount"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	Services       json.RawMessage `json:"services"`
	DueDate        string          `json:"due_date" validate:"required,datetime=2006-01-02"`
	InsuranceClaim *string         `json:"insurance_claim"`
	Notes          *string         `json:"notes"`
}

type UpdateInvoiceRequest struct {
	Amount         *decimal.Decimal `json:"amount"`
	TaxAmount      *decimal.Decimal `json:"tax_amount"`
	Services       json.RawMessage  `json:"services"`
	DueDate        *string          `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
	InsuranceClaim *string          `json:"insurance_claim"`
	Notes          *string          `json:"notes"`
}

type InvoiceStatusRequest struct {
	Status        billing.Status `json:"status" validate:"required,oneof=pending paid overdue cancelled insurance_pending"`
	PaymentMethod *string        `json:"payment_method" validate:"omitempty,max=50"`
}
