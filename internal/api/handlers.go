package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/identity"
)

func bookAppointmentHandler(svc *appointment.Service, own ownership) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}

		var req BookAppointmentRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, r, err)
			return
		}

		patientID, err := own.patientFor(r, req.PatientID)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}

		appt, err := svc.BookAppointment(r.Context(), actor, appointment.BookRequest{
			PatientID: patientID,
			DoctorID:  req.DoctorID,
			Date:      req.AppointmentDate,
			StartTime: *req.StartTime,
			EndTime:   *req.EndTime,
			Type:      req.AppointmentType,
			Reason:    req.Reason,
			Location:  req.Location,
			Notes:     req.Notes,
			Status:    req.Status,
		})
		if err != nil {
			handleServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, appt)
	}
}

// listAppointmentsHandler lists by patient_id or doctor_id. Patients only
// see their own appointments.
func listAppointmentsHandler(svc *appointment.Service, own ownership) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, err := queryUUID(r, "patient_id")
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		doctorID, err := queryUUID(r, "doctor_id")
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		limit, err := queryInt(r, "limit", 0)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		offset, err := queryInt(r, "offset", 0)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}

		actor, _ := actorFrom(r)
		var list []appointment.AppointmentDetail
		if doctorID != uuid.Nil && actor.Role != identity.RolePatient {
			list, err = svc.ListByDoctor(r.Context(), doctorID, limit, offset)
		} else {
			patientID, err = own.patientFor(r, patientID)
			if err == nil {
				list, err = svc.ListByPatient(r.Context(), patientID, limit, offset)
			}
		}
		if err != nil {
			handleServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, list)
	}
}

func upcomingAppointmentsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := queryInt(r, "limit", 0)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		list, err := svc.Upcoming(r.Context(), limit)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// checkConflictHandler answers whether a doctor is free for a slot, for the
// booking form's live check.
func checkConflictHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		doctorID, err := queryUUID(r, "doctor_id")
		if err == nil && doctorID == uuid.Nil {
			err = apperr.Invalid("doctor_id", "is required")
		}
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		date, err := appointment.ParseDate(q.Get("date"))
		if err != nil {
			handleServiceError(w, r, apperr.Invalid("date", "must be a YYYY-MM-DD date"))
			return
		}
		start, err := appointment.ParseClock(q.Get("start_time"))
		if err != nil {
			handleServiceError(w, r, apperr.Invalid("start_time", err.Error()))
			return
		}
		end, err := appointment.ParseClock(q.Get("end_time"))
		if err != nil {
			handleServiceError(w, r, apperr.Invalid("end_time", err.Error()))
			return
		}
		if start >= end {
			handleServiceError(w, r, apperr.Invalid("end_time", "must be after start_time"))
			return
		}
		var exclude *uuid.UUID
		if id, err := queryUUID(r, "exclude_id"); err != nil {
			handleServiceError(w, r, err)
			return
		} else if id != uuid.Nil {
			exclude = &id
		}

		conflict, err := svc.CheckConflict(r.Context(), doctorID, date, start, end, exclude)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, ConflictResponse{Conflict: conflict})
	}
}

func getAppointmentHandler(svc *appointment.Service, own ownership) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		detail, err := loadAppointment(r, svc, own)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, detail)
	}
}

func updateAppointmentHandler(svc *appointment.Service, own ownership) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		detail, err := loadAppointment(r, svc, own)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}

		var req UpdateAppointmentRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, r, err)
			return
		}

		appt, err := svc.UpdateDetails(r.Context(), actor, detail.ID, appointment.Patch{
			Type:     req.AppointmentType,
			Reason:   req.Reason,
			Location: req.Location,
			Notes:    req.Notes,
		})
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, appt)
	}
}

func deleteAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		id, err := uuidParam(r, "id")
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		if err := svc.Delete(r.Context(), actor, id); err != nil {
			handleServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// transitionStatusHandler moves an appointment through its lifecycle.
// Patients may only cancel their own appointments.
func transitionStatusHandler(svc *appointment.Service, own ownership) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		detail, err := loadAppointment(r, svc, own)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}

		var req StatusRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, r, err)
			return
		}
		if actor.Role == identity.RolePatient && req.Status != appointment.StatusCancelled {
			handleServiceError(w, r, apperr.ErrForbidden)
			return
		}

		appt, err := svc.TransitionStatus(r.Context(), actor, detail.ID, req.Status)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, appt)
	}
}

func rescheduleHandler(svc *appointment.Service, own ownership) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		detail, err := loadAppointment(r, svc, own)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}

		var req RescheduleRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, r, err)
			return
		}

		appt, err := svc.Reschedule(r.Context(), actor, detail.ID, req.AppointmentDate, *req.StartTime, *req.EndTime)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, appt)
	}
}

// loadAppointment fetches the {id} appointment and checks the caller may see it.
func loadAppointment(r *http.Request, svc *appointment.Service, own ownership) (*appointment.AppointmentDetail, error) {
	id, err := uuidParam(r, "id")
	if err != nil {
		return nil, err
	}
	detail, err := svc.Get(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if err := own.canSee(r, detail.PatientID); err != nil {
		return nil, err
	}
	return detail, nil
}
