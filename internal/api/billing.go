package api

import (
	"net/http"

	"github.com/hackgods/clinic-scheduling/internal/billing"
)

func createInvoiceHandler(svc *billing.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		var req CreateInvoiceRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, r, err)
			return
		}

		inv, err := svc.Create(r.Context(), actor, billing.CreateRequest{
			PatientID:      req.PatientID,
			AppointmentID:  req.AppointmentID,
			Amount:         req.Amount,
			TaxAmount:      req.TaxAmount,
			Services:       req.Services,
			DueDate:        req.DueDate,
			InsuranceClaim: req.InsuranceClaim,
			Notes:          req.Notes,
		})
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, inv)
	}
}

func listInvoicesHandler(svc *billing.Service, own ownership) http.HandlerFunc {
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

func pendingInvoicesHandler(svc *billing.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.ListPending(r.Context())
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func getInvoiceHandler(svc *billing.Service, own ownership) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuidParam(r, "id")
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		inv, err := svc.Get(r.Context(), id)
		if err == nil {
			err = own.canSee(r, inv.PatientID)
		}
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, inv)
	}
}

func updateInvoiceHandler(svc *billing.Service) http.HandlerFunc {
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
		var req UpdateInvoiceRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, r, err)
			return
		}

		inv, err := svc.Update(r.Context(), actor, id, billing.Patch{
			Amount:         req.Amount,
			TaxAmount:      req.TaxAmount,
			Services:       req.Services,
			DueDate:        req.DueDate,
			InsuranceClaim: req.InsuranceClaim,
			Notes:          req.Notes,
		})
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, inv)
	}
}

func invoiceStatusHandler(svc *billing.Service) http.HandlerFunc {
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
		var req InvoiceStatusRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, r, err)
			return
		}

		inv, err := svc.UpdateStatus(r.Context(), actor, id, req.Status, req.PaymentMethod)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, inv)
	}
}
