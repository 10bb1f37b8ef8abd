package api

import (
	"net/http"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
	"github.com/hackgods/clinic-scheduling/internal/doctor"
	"github.com/hackgods/clinic-scheduling/internal/identity"
	"github.com/hackgods/clinic-scheduling/internal/patient"
	"github.com/hackgods/clinic-scheduling/internal/profile"
)

func createProfileHandler(svc *profile.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		var req CreateProfileRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, r, err)
			return
		}

		p, err := svc.Create(r.Context(), actor, profile.CreateRequest{
			ID:          req.ID,
			Role:        req.Role,
			FirstName:   req.FirstName,
			LastName:    req.LastName,
			Email:       req.Email,
			DateOfBirth: req.DateOfBirth,
			Phone:       req.Phone,
			Address:     req.Address,
		})
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, p)
	}
}

// getProfileHandler returns a profile to staff or to its owner.
func getProfileHandler(svc *profile.Service) http.HandlerFunc {
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
		if id != actor.UserID && !actor.HasRole(identity.Staff...) {
			handleServiceError(w, r, apperr.ErrForbidden)
			return
		}

		p, err := svc.Get(r.Context(), id)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func createPatientHandler(svc *patient.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		var req CreatePatientRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, r, err)
			return
		}

		p, err := svc.Create(r.Context(), actor, patient.CreateRequest{
			ProfileID:         req.ProfileID,
			BloodGroup:        req.BloodGroup,
			Allergies:         req.Allergies,
			ChronicConditions: req.ChronicConditions,
			InsuranceProvider: req.InsuranceProvider,
			PrimaryDoctorID:   req.PrimaryDoctorID,
			SSN:               req.SSN,
			EmergencyContact:  req.EmergencyContact,
			InsurancePolicy:   req.InsurancePolicy,
			MedicalHistory:    req.MedicalHistory,
		})
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, p)
	}
}

func listPatientsHandler(svc *patient.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.ListActive(r.Context())
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func myPatientHandler(svc *patient.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		p, err := svc.GetByProfile(r.Context(), actor.UserID)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func getPatientHandler(svc *patient.Service, own ownership) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuidParam(r, "id")
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		if err := own.canSee(r, id); err != nil {
			handleServiceError(w, r, err)
			return
		}
		p, err := svc.Get(r.Context(), id)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func updatePatientHandler(svc *patient.Service) http.HandlerFunc {
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
		var req UpdatePatientRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, r, err)
			return
		}

		p, err := svc.Update(r.Context(), actor, id, patient.Patch{
			BloodGroup:        req.BloodGroup,
			Allergies:         req.Allergies,
			ChronicConditions: req.ChronicConditions,
			InsuranceProvider: req.InsuranceProvider,
			PrimaryDoctorID:   req.PrimaryDoctorID,
			IsActive:          req.IsActive,
			SSN:               req.SSN,
			EmergencyContact:  req.EmergencyContact,
			InsurancePolicy:   req.InsurancePolicy,
			MedicalHistory:    req.MedicalHistory,
		})
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func createDoctorHandler(svc *doctor.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		var req CreateDoctorRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, r, err)
			return
		}

		d, err := svc.Create(r.Context(), actor, doctor.CreateRequest{
			ProfileID:       req.ProfileID,
			LicenseNumber:   req.LicenseNumber,
			Specialization:  req.Specialization,
			Department:      req.Department,
			ConsultationFee: req.ConsultationFee,
		})
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, d)
	}
}

func listDoctorsHandler(svc *doctor.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.ListActive(r.Context())
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func getDoctorHandler(svc *doctor.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuidParam(r, "id")
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		d, err := svc.Get(r.Context(), id)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, d)
	}
}

func updateDoctorHandler(svc *doctor.Service) http.HandlerFunc {
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
		var req UpdateDoctorRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, r, err)
			return
		}

		d, err := svc.Update(r.Context(), actor, id, doctor.Patch{
			Specialization:  req.Specialization,
			Department:      req.Department,
			ConsultationFee: req.ConsultationFee,
			IsActive:        req.IsActive,
		})
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, d)
	}
}
