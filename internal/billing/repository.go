package billing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrInvoiceNotFound = errors.New("invoice not found")

type Repository interface {
	// Insert assigns the next invoice number of period and stores inv in
	// one transaction.
	Insert(ctx context.Context, inv *Invoice, period string) (*Invoice, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]Invoice, error)
	ListPending(ctx context.Context) ([]Invoice, error)
	// UpdateStatus moves the invoice from status from to status to. paidAt
	// and paymentMethod are written only when non-nil. A row that is no
	// longer in from is reported as ErrInvoiceNotFound.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status, paidAt *time.Time, paymentMethod *string) (*Invoice, error)
	Update(ctx context.Context, id uuid.UUID, p Patch) (*Invoice, error)
	// MarkOverdue moves pending invoices due before asOf to overdue and
	// returns their ids.
	MarkOverdue(ctx context.Context, asOf string) ([]uuid.UUID, error)
}
