package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
	"github.com/hackgods/clinic-scheduling/internal/audit"
	"github.com/hackgods/clinic-scheduling/internal/fieldcodec"
	"github.com/hackgods/clinic-scheduling/internal/identity"
	redisclient "github.com/hackgods/clinic-scheduling/internal/redis"
)

const auditTable = "appointments"

const (
	defaultPageSize     = 20
	maxPageSize         = 100
	defaultUpcomingSize = 10
)

var (
	ErrSlotConflict            = errors.New("doctor already has an appointment in this time range")
	ErrScheduleBusy            = errors.New("doctor's schedule is being changed, please retry")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrStaleAppointment        = errors.New("appointment was changed concurrently")
	ErrAppointmentClosed       = errors.New("appointment is completed, cancelled or marked no-show")
)

type Service struct {
	repo   Repository
	locker redisclient.Locker
	codec  fieldcodec.Codec
	audit  *audit.Recorder
	logger zerolog.Logger
	now    func() time.Time
}

func NewService(repo Repository, locker redisclient.Locker, codec fieldcodec.Codec, rec *audit.Recorder, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		locker: locker,
		codec:  codec,
		audit:  rec,
		logger: logger.With().Str("component", "appointment").Logger(),
		now:    time.Now,
	}
}

// CheckConflict reports whether [start, end) overlaps any non-cancelled
// appointment of the doctor on date, ignoring excludeID. It has no side
// effects and does not validate the range itself.
func (s *Service) CheckConflict(ctx context.Context, doctorID uuid.UUID, date string, start, end Clock, excludeID *uuid.UUID) (bool, error) {
	slots, err := s.repo.ListActiveSlots(ctx, doctorID, date, excludeID)
	if err != nil {
		return false, apperr.Persistence("list doctor appointments", err)
	}
	for _, sl := range slots {
		if Overlaps(start, end, sl.StartTime, sl.EndTime) {
			return true, nil
		}
	}
	return false, nil
}

// BookAppointment creates an appointment after checking the doctor's
// schedule. The check and the insert run under a per-(doctor, date) lock so
// that concurrent bookings for the same schedule are serialized; the store
// rejects any overlap that slips past the lock.
func (s *Service) BookAppointment(ctx context.Context, actor identity.Identity, req BookRequest) (*Appointment, error) {
	if err := identity.Require(actor); err != nil {
		return nil, err
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	status := req.Status
	if status == "" {
		status = StatusScheduled
	}

	notes, err := fieldcodec.SealOptional(ctx, s.codec, req.Notes)
	if err != nil {
		return nil, apperr.Persistence("encrypt appointment notes", err)
	}

	var created *Appointment
	err = s.withSchedule(ctx, req.DoctorID, req.Date, func(lockCtx context.Context) error {
		conflict, err := s.CheckConflict(lockCtx, req.DoctorID, req.Date, req.StartTime, req.EndTime, nil)
		if err != nil {
			return err
		}
		if conflict {
			return ErrSlotConflict
		}

		appt, err := s.repo.Insert(lockCtx, &Appointment{
			PatientID:      req.PatientID,
			DoctorID:       req.DoctorID,
			Date:           req.Date,
			StartTime:      req.StartTime,
			EndTime:        req.EndTime,
			Status:         status,
			Type:           req.Type,
			Reason:         req.Reason,
			Location:       req.Location,
			NotesEncrypted: notes,
			CreatedBy:      actor.UserID,
		})
		if err != nil {
			return apperr.Persistence("insert appointment", err, ErrSlotConflict)
		}
		created = appt
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actor, audit.ActionInsert, auditTable, created.ID.String(), nil, created)
	s.logger.Info().
		Str("appointment_id", created.ID.String()).
		Str("doctor_id", created.DoctorID.String()).
		Str("date", created.Date).
		Msg("appointment booked")

	return created, nil
}

// TransitionStatus moves an appointment to a new status. Repeating the
// current status is a no-op. Nothing leaves cancelled, and completed or
// no_show appointments cannot return to an active status.
func (s *Service) TransitionStatus(ctx context.Context, actor identity.Identity, id uuid.UUID, to Status) (*Appointment, error) {
	if err := identity.Require(actor); err != nil {
		return nil, err
	}
	if !to.Valid() {
		return nil, apperr.Invalid("status", fmt.Sprintf("must be one of scheduled, confirmed, in_progress, completed, cancelled, no_show; got %q", to))
	}

	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status == to {
		return current, nil
	}
	if current.Status == StatusCancelled || (current.Status.Terminal() && to.Active()) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidStatusTransition, current.Status, to)
	}

	updated, err := s.repo.UpdateStatus(ctx, id, current.Status, to)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, ErrStaleAppointment
		}
		return nil, apperr.Persistence("update appointment status", err, ErrSlotConflict)
	}

	s.audit.Record(ctx, actor, audit.ActionUpdate, auditTable, id.String(), current, updated)
	s.logger.Info().
		Str("appointment_id", id.String()).
		Str("from", string(current.Status)).
		Str("to", string(to)).
		Msg("appointment status changed")

	return updated, nil
}

// Reschedule moves a non-terminal appointment to a new date and time range.
// Only the target schedule is locked; leaving a slot can never create an
// overlap.
func (s *Service) Reschedule(ctx context.Context, actor identity.Identity, id uuid.UUID, date string, start, end Clock) (*Appointment, error) {
	if err := identity.Require(actor); err != nil {
		return nil, err
	}
	if err := validateSlot(date, start, end); err != nil {
		return nil, err
	}

	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status.Terminal() {
		return nil, ErrAppointmentClosed
	}

	var updated *Appointment
	err = s.withSchedule(ctx, current.DoctorID, date, func(lockCtx context.Context) error {
		conflict, err := s.CheckConflict(lockCtx, current.DoctorID, date, start, end, &id)
		if err != nil {
			return err
		}
		if conflict {
			return ErrSlotConflict
		}

		a, err := s.repo.UpdateSlot(lockCtx, id, current.Status, date, start, end)
		if err != nil {
			if errors.Is(err, ErrAppointmentNotFound) {
				return ErrStaleAppointment
			}
			return apperr.Persistence("reschedule appointment", err, ErrSlotConflict)
		}
		updated = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actor, audit.ActionUpdate, auditTable, id.String(), current, updated)
	s.logger.Info().
		Str("appointment_id", id.String()).
		Str("date", date).
		Str("start", start.String()).
		Msg("appointment rescheduled")

	return updated, nil
}

// UpdateDetails changes the descriptive fields. Notes are encrypted before
// they reach the store.
func (s *Service) UpdateDetails(ctx context.Context, actor identity.Identity, id uuid.UUID, p Patch) (*Appointment, error) {
	if err := identity.Require(actor); err != nil {
		return nil, err
	}
	if p.Type != nil && strings.TrimSpace(*p.Type) == "" {
		return nil, apperr.Invalid("appointment_type", "must not be empty")
	}

	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	sealed := p
	if sealed.Notes, err = fieldcodec.SealOptional(ctx, s.codec, p.Notes); err != nil {
		return nil, apperr.Persistence("encrypt appointment notes", err)
	}

	updated, err := s.repo.UpdateDetails(ctx, id, sealed)
	if err != nil {
		return nil, apperr.Persistence("update appointment", err, ErrAppointmentNotFound)
	}

	s.audit.Record(ctx, actor, audit.ActionUpdate, auditTable, id.String(), current, updated)
	return updated, nil
}

// Delete removes an appointment outright. Only admins may do this; everyone
// else cancels.
func (s *Service) Delete(ctx context.Context, actor identity.Identity, id uuid.UUID) error {
	if err := identity.Require(actor, identity.RoleAdmin); err != nil {
		return err
	}

	current, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return apperr.Persistence("delete appointment", err, ErrAppointmentNotFound)
	}

	s.audit.Record(ctx, actor, audit.ActionDelete, auditTable, id.String(), current, nil)
	s.logger.Warn().Str("appointment_id", id.String()).Msg("appointment deleted")
	return nil
}

// Get returns the appointment with its patient and doctor, notes decrypted.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*AppointmentDetail, error) {
	detail, err := s.repo.GetDetail(ctx, id)
	if err != nil {
		return nil, apperr.Persistence("get appointment", err, ErrAppointmentNotFound)
	}
	if detail.Notes, err = fieldcodec.OpenOptional(ctx, s.codec, detail.NotesEncrypted); err != nil {
		return nil, apperr.Persistence("decrypt appointment notes", err)
	}
	return detail, nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]AppointmentDetail, error) {
	limit, offset = page(limit, offset)
	out, err := s.repo.ListByPatient(ctx, patientID, limit, offset)
	if err != nil {
		return nil, apperr.Persistence("list appointments by patient", err)
	}
	return out, nil
}

func (s *Service) ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]AppointmentDetail, error) {
	limit, offset = page(limit, offset)
	out, err := s.repo.ListByDoctor(ctx, doctorID, limit, offset)
	if err != nil {
		return nil, apperr.Persistence("list appointments by doctor", err)
	}
	return out, nil
}

// Upcoming lists scheduled and confirmed appointments from today onward.
func (s *Service) Upcoming(ctx context.Context, limit int) ([]AppointmentDetail, error) {
	if limit <= 0 {
		limit = defaultUpcomingSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	today := s.now().Format(dateLayout)
	out, err := s.repo.ListUpcoming(ctx, today, limit)
	if err != nil {
		return nil, apperr.Persistence("list upcoming appointments", err)
	}
	return out, nil
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Persistence("load appointment", err, ErrAppointmentNotFound)
	}
	return a, nil
}

// withSchedule runs fn under the doctor's schedule lock for date. Errors
// from fn and context errors are returned as is; failing to take the lock
// is ErrScheduleBusy.
func (s *Service) withSchedule(ctx context.Context, doctorID uuid.UUID, date string, fn func(context.Context) error) error {
	var fnErr error
	err := s.locker.WithScheduleLock(ctx, doctorID, date, func(lockCtx context.Context) error {
		fnErr = fn(lockCtx)
		return fnErr
	})
	if fnErr != nil {
		return fnErr
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, redisclient.ErrLockNotAcquired) {
		s.logger.Debug().Str("doctor_id", doctorID.String()).Str("date", date).Msg("schedule lock busy")
		return ErrScheduleBusy
	}
	if err != nil {
		return apperr.Persistence("acquire schedule lock", err)
	}
	return nil
}

func (r BookRequest) validate() error {
	if r.PatientID == uuid.Nil {
		return apperr.Invalid("patient_id", "is required")
	}
	if r.DoctorID == uuid.Nil {
		return apperr.Invalid("doctor_id", "is required")
	}
	if strings.TrimSpace(r.Type) == "" {
		return apperr.Invalid("appointment_type", "is required")
	}
	if r.Status != "" && !r.Status.Active() {
		return apperr.Invalid("status", "a new appointment must be scheduled, confirmed or in_progress")
	}
	return validateSlot(r.Date, r.StartTime, r.EndTime)
}

func validateSlot(date string, start, end Clock) error {
	if _, err := ParseDate(date); err != nil {
		return apperr.Invalid("appointment_date", "must be a YYYY-MM-DD date")
	}
	if start < 0 || end < 0 {
		return apperr.Invalid("start_time", "must be a time of day")
	}
	if start >= end {
		return apperr.Invalid("end_time", "must be after start_time")
	}
	return nil
}

func page(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
