package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/billing"
	"github.com/hackgods/clinic-scheduling/internal/doctor"
	"github.com/hackgods/clinic-scheduling/internal/medrecord"
	"github.com/hackgods/clinic-scheduling/internal/patient"
	"github.com/hackgods/clinic-scheduling/internal/prescription"
	"github.com/hackgods/clinic-scheduling/internal/profile"
	"github.com/hackgods/clinic-scheduling/internal/report"
)

const maxBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			name, _, _ = strings.Cut(f.Tag.Get("form"), ",")
		}
		return name
	})
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

// decodeJSON reads a JSON body into dst and validates it. Every failure is
// reported as a *apperr.ValidationError.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperr.Invalid("", fmt.Sprintf("could not parse JSON body: %v", err))
	}
	return validateStruct(dst)
}

func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return apperr.Invalid(fe.Field(), describeRule(fe))
	}
	return apperr.Invalid("", err.Error())
}

func describeRule(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "min", "gte":
		return "must be at least " + fe.Param()
	case "datetime":
		return "must match " + fe.Param()
	case "email":
		return "must be an email address"
	default:
		return "failed " + fe.Tag()
	}
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, apperr.Invalid(name, "must be a valid UUID")
	}
	return id, nil
}

// queryUUID parses an optional UUID query parameter; absent yields uuid.Nil.
func queryUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperr.Invalid(name, "must be a valid UUID")
	}
	return id, nil
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperr.Invalid(name, "must be a non-negative integer")
	}
	return n, nil
}

// handleServiceError maps service errors onto HTTP statuses. The response
// names the specific reason; storage failures are logged and kept opaque.
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *apperr.ValidationError
	switch {
	case errors.Is(err, apperr.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "unauthenticated", err.Error())
	case errors.Is(err, apperr.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, "validation_failed", ve.Error())
	case errors.Is(err, appointment.ErrSlotConflict):
		writeError(w, http.StatusConflict, "slot_conflict", err.Error())
	case errors.Is(err, appointment.ErrScheduleBusy):
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusConflict, "schedule_busy", err.Error())
	case errors.Is(err, appointment.ErrInvalidStatusTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	case errors.Is(err, appointment.ErrStaleAppointment):
		writeError(w, http.StatusConflict, "stale_appointment", err.Error())
	case errors.Is(err, billing.ErrStaleInvoice):
		writeError(w, http.StatusConflict, "stale_invoice", err.Error())
	case errors.Is(err, appointment.ErrAppointmentClosed):
		writeError(w, http.StatusConflict, "appointment_closed", err.Error())
	case errors.Is(err, appointment.ErrAppointmentNotFound),
		errors.Is(err, patient.ErrPatientNotFound),
		errors.Is(err, doctor.ErrDoctorNotFound),
		errors.Is(err, profile.ErrProfileNotFound),
		errors.Is(err, prescription.ErrPrescriptionNotFound),
		errors.Is(err, medrecord.ErrRecordNotFound),
		errors.Is(err, report.ErrReportNotFound),
		errors.Is(err, report.ErrNoFile),
		errors.Is(err, billing.ErrInvoiceNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		if apperr.IsPersistence(err) {
			writeError(w, http.StatusInternalServerError, "persistence_error", "storage operation failed")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected error")
	}
}
