package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
	"github.com/hackgods/clinic-scheduling/internal/medrecord"
	"github.com/hackgods/clinic-scheduling/internal/prescription"
	"github.com/hackgods/clinic-scheduling/internal/report"
)

const maxUploadMemory = 32 << 20

func createPrescriptionHandler(svc *prescription.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		var req CreatePrescriptionRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, r, err)
			return
		}

		p, err := svc.Create(r.Context(), actor, prescription.CreateRequest{
			PatientID:       req.PatientID,
			DoctorID:        req.DoctorID,
			MedicalRecordID: req.MedicalRecordID,
			MedicationName:  req.MedicationName,
			Dosage:          req.Dosage,
			Frequency:       req.Frequency,
			Duration:        req.Duration,
			Instructions:    req.Instructions,
			RefillsAllowed:  req.RefillsAllowed,
			PharmacyName:    req.PharmacyName,
			ValidUntil:      req.ValidUntil,
		})
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, p)
	}
}

// listPrescriptionsHandler lists a patient's prescriptions; ?active=true
// keeps only active ones.
func listPrescriptionsHandler(svc *prescription.Service, own ownership) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, err := requestedPatient(r, own)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		activeOnly, _ := strconv.ParseBool(r.URL.Query().Get("active"))

		var list []prescription.Prescription
		if activeOnly {
			list, err = svc.ListActiveByPatient(r.Context(), patientID)
		} else {
			list, err = svc.ListByPatient(r.Context(), patientID)
		}
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func getPrescriptionHandler(svc *prescription.Service, own ownership) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuidParam(r, "id")
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		p, err := svc.Get(r.Context(), id)
		if err == nil {
			err = own.canSee(r, p.PatientID)
		}
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func updatePrescriptionHandler(svc *prescription.Service) http.HandlerFunc {
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
		var req UpdatePrescriptionRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, r, err)
			return
		}

		p, err := svc.Update(r.Context(), actor, id, prescription.Patch{
			Dosage:         req.Dosage,
			Frequency:      req.Frequency,
			Instructions:   req.Instructions,
			Duration:       req.Duration,
			RefillsAllowed: req.RefillsAllowed,
			PharmacyName:   req.PharmacyName,
			ValidUntil:     req.ValidUntil,
			Status:         req.Status,
		})
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func createRecordHandler(svc *medrecord.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		var req MedicalRecordRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, r, err)
			return
		}

		rec, err := svc.Create(r.Context(), actor, medrecord.CreateRequest{
			PatientID:    req.PatientID,
			DoctorID:     req.DoctorID,
			VisitDate:    req.VisitDate,
			FollowUpDate: req.FollowUpDate,
			Clinical: medrecord.Clinical{
				ChiefComplaint: req.ChiefComplaint,
				Diagnosis:      req.Diagnosis,
				TreatmentPlan:  req.TreatmentPlan,
				VitalSigns:     req.VitalSigns,
				Notes:          req.Notes,
			},
		})
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, rec)
	}
}

func listRecordsHandler(svc *medrecord.Service, own ownership) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, err := requestedPatient(r, own)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		list, err := svc.ListByPatient(r.Context(), patientID)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func getRecordHandler(svc *medrecord.Service, own ownership) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuidParam(r, "id")
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		rec, err := svc.Get(r.Context(), id)
		if err == nil {
			err = own.canSee(r, rec.PatientID)
		}
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

func updateRecordHandler(svc *medrecord.Service) http.HandlerFunc {
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
		var req UpdateMedicalRecordRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, r, err)
			return
		}

		rec, err := svc.Update(r.Context(), actor, id, medrecord.Patch{
			VisitDate:    req.VisitDate,
			FollowUpDate: req.FollowUpDate,
			Clinical: medrecord.Clinical{
				ChiefComplaint: req.ChiefComplaint,
				Diagnosis:      req.Diagnosis,
				TreatmentPlan:  req.TreatmentPlan,
				VitalSigns:     req.VitalSigns,
				Notes:          req.Notes,
			},
		})
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

// uploadReportHandler accepts multipart/form-data with report fields and an
// optional "file" part.
func uploadReportHandler(svc *report.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, report.MaxFileSize+maxUploadMemory)
		if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
			handleServiceError(w, r, apperr.Invalid("", "could not parse multipart form: "+err.Error()))
			return
		}
		defer func() { _ = r.MultipartForm.RemoveAll() }()

		form := UploadReportForm{
			PatientID:      r.FormValue("patient_id"),
			DoctorID:       r.FormValue("doctor_id"),
			ReportType:     r.FormValue("report_type"),
			ReportDate:     r.FormValue("report_date"),
			Title:          r.FormValue("title"),
			Findings:       r.FormValue("findings"),
			Interpretation: r.FormValue("interpretation"),
		}
		if err := validateStruct(form); err != nil {
			handleServiceError(w, r, err)
			return
		}

		req := report.UploadRequest{
			PatientID:      uuid.MustParse(form.PatientID),
			ReportType:     form.ReportType,
			ReportDate:     form.ReportDate,
			Title:          form.Title,
			Findings:       optional(form.Findings),
			Interpretation: optional(form.Interpretation),
		}
		if form.DoctorID != "" {
			id := uuid.MustParse(form.DoctorID)
			req.DoctorID = &id
		}

		file, header, err := r.FormFile("file")
		switch {
		case errors.Is(err, http.ErrMissingFile):
		case err != nil:
			handleServiceError(w, r, apperr.Invalid("file", err.Error()))
			return
		default:
			defer file.Close()
			contentType := header.Header.Get("Content-Type")
			if contentType == "" {
				contentType = "application/octet-stream"
			}
			req.File = &report.File{Name: header.Filename, ContentType: contentType, Size: header.Size, Body: file}
		}

		rep, err := svc.Upload(r.Context(), actor, req)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, rep)
	}
}

func listReportsHandler(svc *report.Service, own ownership) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, err := requestedPatient(r, own)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		list, err := svc.ListByPatient(r.Context(), patientID)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func getReportHandler(svc *report.Service, own ownership) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rep, err := loadReport(r, svc, own)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rep)
	}
}

// downloadReportHandler returns a presigned URL; ?ttl=<seconds> overrides
// the default lifetime.
func downloadReportHandler(svc *report.Service, own ownership) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rep, err := loadReport(r, svc, own)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		ttl, err := queryInt(r, "ttl", 0)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}

		url, err := svc.DownloadURL(r.Context(), rep.ID, time.Duration(ttl)*time.Second)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, DownloadURLResponse{URL: url})
	}
}

func updateReportHandler(svc *report.Service) http.HandlerFunc {
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
		var req UpdateReportRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, r, err)
			return
		}

		rep, err := svc.Update(r.Context(), actor, id, report.Patch{
			ReportType:     req.ReportType,
			ReportDate:     req.ReportDate,
			Title:          req.Title,
			Findings:       req.Findings,
			Interpretation: req.Interpretation,
		})
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rep)
	}
}

func reviewReportHandler(svc *report.Service) http.HandlerFunc {
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
		rep, err := svc.Review(r.Context(), actor, id)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rep)
	}
}

func deleteReportHandler(svc *report.Service) http.HandlerFunc {
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

func loadReport(r *http.Request, svc *report.Service, own ownership) (*report.Report, error) {
	id, err := uuidParam(r, "id")
	if err != nil {
		return nil, err
	}
	rep, err := svc.Get(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if err := own.canSee(r, rep.PatientID); err != nil {
		return nil, err
	}
	return rep, nil
}

// requestedPatient resolves ?patient_id against the caller's ownership.
func requestedPatient(r *http.Request, own ownership) (uuid.UUID, error) {
	requested, err := queryUUID(r, "patient_id")
	if err != nil {
		return uuid.Nil, err
	}
	return own.patientFor(r, requested)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
