package appointment

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
)

// Repository contains all storage interactions needed by the service.
//
// The store must reject overlapping non-cancelled appointments for the same
// doctor and date on its own (the Postgres schema uses an exclusion
// constraint) and report that rejection as ErrSlotConflict. The service's
// own conflict check is only a pre-filter.
type Repository interface {
	// For conflict checks: non-cancelled appointments of a doctor on a date.
	ListActiveSlots(ctx context.Context, doctorID uuid.UUID, date string, excludeID *uuid.UUID) ([]Slot, error)

	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	GetDetail(ctx context.Context, id uuid.UUID) (*AppointmentDetail, error)

	// Creation and updates
	Insert(ctx context.Context, a *Appointment) (*Appointment, error)
	// UpdateStatus and UpdateSlot only apply when the stored status still
	// equals from; otherwise they return ErrAppointmentNotFound.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error)
	UpdateSlot(ctx context.Context, id uuid.UUID, from Status, date string, start, end Clock) (*Appointment, error)
	UpdateDetails(ctx context.Context, id uuid.UUID, p Patch) (*Appointment, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// Listings, ordered by date then start time
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]AppointmentDetail, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]AppointmentDetail, error)
	ListUpcoming(ctx context.Context, fromDate string, limit int) ([]AppointmentDetail, error)
}
