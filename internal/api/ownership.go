package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
	"github.com/hackgods/clinic-scheduling/internal/identity"
	"github.com/hackgods/clinic-scheduling/internal/patient"
)

// ownership confines patient-role callers to their own chart. Staff may
// address any patient.
type ownership struct {
	patients *patient.Service
}

// patientFor resolves which patient a request is about. Patients always get
// their own chart and may not name another one; staff must name one.
func (o ownership) patientFor(r *http.Request, requested uuid.UUID) (uuid.UUID, error) {
	actor, err := actorFrom(r)
	if err != nil {
		return uuid.Nil, err
	}
	if actor.Role != identity.RolePatient {
		if requested == uuid.Nil {
			return uuid.Nil, apperr.Invalid("patient_id", "is required")
		}
		return requested, nil
	}

	self, err := o.patients.GetByProfile(r.Context(), actor.UserID)
	if err != nil {
		return uuid.Nil, err
	}
	if requested != uuid.Nil && requested != self.ID {
		return uuid.Nil, apperr.ErrForbidden
	}
	return self.ID, nil
}

// canSee reports ErrForbidden when a patient-role caller reads another
// patient's data.
func (o ownership) canSee(r *http.Request, patientID uuid.UUID) error {
	actor, err := actorFrom(r)
	if err != nil {
		return err
	}
	if actor.Role != identity.RolePatient {
		return nil
	}
	self, err := o.patients.GetByProfile(r.Context(), actor.UserID)
	if err != nil {
		return err
	}
	if self.ID != patientID {
		return apperr.ErrForbidden
	}
	return nil
}
