package appointment

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusConfirmed  Status = "confirmed"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusNoShow     Status = "no_show"
)

func (s Status) Valid() bool {
	return s.Active() || s.Terminal()
}

// Active statuses are the ones a booking can still move through.
func (s Status) Active() bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusInProgress:
		return true
	}
	return false
}

func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

type Appointment struct {
	ID             uuid.UUID `json:"id"`
	PatientID      uuid.UUID `json:"patient_id"`
	DoctorID       uuid.UUID `json:"doctor_id"`
	Date           string    `json:"appointment_date"`
	StartTime      Clock     `json:"start_time"`
	EndTime        Clock     `json:"end_time"`
	Status         Status    `json:"status"`
	Type           string    `json:"appointment_type"`
	Reason         *string   `json:"reason,omitempty"`
	Location       *string   `json:"location,omitempty"`
	NotesEncrypted *string   `json:"-"`
	Notes          *string   `json:"notes,omitempty"`
	CreatedBy      uuid.UUID `json:"created_by"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Slot is the part of an appointment the conflict check looks at.
type Slot struct {
	ID        uuid.UUID
	StartTime Clock
	EndTime   Clock
	Status    Status
}

type PatientSummary struct {
	ID            uuid.UUID `json:"id"`
	PatientNumber string    `json:"patient_number"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
}

type DoctorSummary struct {
	ID             uuid.UUID `json:"id"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	Specialization []string  `json:"specialization"`
	Department     *string   `json:"department,omitempty"`
}

// AppointmentDetail is an appointment expanded with its patient and doctor.
type AppointmentDetail struct {
	Appointment
	Patient *PatientSummary `json:"patient,omitempty"`
	Doctor  *DoctorSummary  `json:"doctor,omitempty"`
}

type BookRequest struct {
	PatientID uuid.UUID
	DoctorID  uuid.UUID
	Date      string
	StartTime Clock
	EndTime   Clock
	Type      string
	Reason    *string
	Location  *string
	Notes     *string
	// Status defaults to scheduled; only active statuses are accepted.
	Status Status
}

// Patch updates the descriptive fields of an appointment. Nil fields are left alone.
type Patch struct {
	Type     *string
	Reason   *string
	Location *string
	Notes    *string
}
