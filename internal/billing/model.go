package billing

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending          Status = "pending"
	StatusPaid             Status = "paid"
	StatusOverdue          Status = "overdue"
	StatusCancelled        Status = "cancelled"
	StatusInsurancePending Status = "insurance_pending"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusOverdue, StatusCancelled, StatusInsurancePending:
		return true
	}
	return false
}

// Outstanding statuses count towards the pending total.
func (s Status) Outstanding() bool {
	return s == StatusPending || s == StatusOverdue
}

type Invoice struct {
	ID                      uuid.UUID       `json:"id"`
	PatientID               uuid.UUID       `json:"patient_id"`
	AppointmentID           *uuid.UUID      `json:"appointment_id,omitempty"`
	InvoiceNumber           string          `json:"invoice_number"`
	Amount                  decimal.Decimal `json:"amount"`
	TaxAmount               decimal.Decimal `json:"tax_amount"`
	TotalAmount             decimal.Decimal `json:"total_amount"`
	Status                  Status          `json:"status"`
	Services                json.RawMessage `json:"services"`
	InsuranceClaimEncrypted *string         `json:"-"`
	InsuranceClaim          *string         `json:"insurance_claim,omitempty"`
	PaymentMethod           *string         `json:"payment_method,omitempty"`
	PaidAt                  *time.Time      `json:"paid_at,omitempty"`
	DueDate                 string          `json:"due_date"`
	Notes                   *string         `json:"notes,omitempty"`
	CreatedAt               time.Time       `json:"created_at"`
	UpdatedAt               time.Time       `json:"updated_at"`
}

type CreateRequest struct {
	PatientID      uuid.UUID
	AppointmentID  *uuid.UUID
	Amount         decimal.Decimal
	TaxAmount      decimal.Decimal
	Services       json.RawMessage
	DueDate        string
	InsuranceClaim *string
	Notes          *string
}

// Patch holds the editable invoice fields. When Amount or TaxAmount changes
// the total is recomputed by the store.
type Patch struct {
	Amount         *decimal.Decimal
	TaxAmount      *decimal.Decimal
	Services       json.RawMessage
	DueDate        *string
	InsuranceClaim *string
	Notes          *string
}

// Period is the invoice numbering bucket for t, e.g. "202406".
func Period(t time.Time) string {
	return t.Format("200601")
}

// InvoiceNumber formats the seq-th invoice of a period as INV-YYYYMM-NNNNN.
func InvoiceNumber(period string, seq int) string {
	return fmt.Sprintf("INV-%s-%05d", period, seq)
}
