// Package billing issues invoices and tracks their payment status.
package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
	"github.com/hackgods/clinic-scheduling/internal/audit"
	"github.com/hackgods/clinic-scheduling/internal/fieldcodec"
	"github.com/hackgods/clinic-scheduling/internal/identity"
)

const auditTable = "billing"

// ErrStaleInvoice means the invoice changed status between read and write.
var ErrStaleInvoice = errors.New("invoice was changed concurrently")

// Writers are the roles allowed to issue and edit invoices.
var Writers = []identity.Role{identity.RoleReceptionist, identity.RoleAdmin}

type Service struct {
	repo   Repository
	codec  fieldcodec.Codec
	audit  *audit.Recorder
	logger zerolog.Logger
	now    func() time.Time
}

func NewService(repo Repository, codec fieldcodec.Codec, rec *audit.Recorder, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		codec:  codec,
		audit:  rec,
		logger: logger.With().Str("component", "billing").Logger(),
		now:    time.Now,
	}
}

// Create issues a new pending invoice. The total is amount plus tax and the
// invoice number is the next one of the current month.
func (s *Service) Create(ctx context.Context, actor identity.Identity, req CreateRequest) (*Invoice, error) {
	if err := identity.Require(actor, Writers...); err != nil {
		return nil, err
	}
	if req.PatientID == uuid.Nil {
		return nil, apperr.Invalid("patient_id", "is required")
	}
	if req.Amount.IsNegative() {
		return nil, apperr.Invalid("amount", "must not be negative")
	}
	if req.TaxAmount.IsNegative() {
		return nil, apperr.Invalid("tax_amount", "must not be negative")
	}
	if _, err := time.Parse("2006-01-02", req.DueDate); err != nil {
		return nil, apperr.Invalid("due_date", "must be a YYYY-MM-DD date")
	}
	if len(req.Services) > 0 && !json.Valid(req.Services) {
		return nil, apperr.Invalid("services", "must be valid JSON")
	}

	claim, err := fieldcodec.SealOptional(ctx, s.codec, req.InsuranceClaim)
	if err != nil {
		return nil, apperr.Persistence("encrypt insurance claim", err)
	}

	inv, err := s.repo.Insert(ctx, &Invoice{
		PatientID:               req.PatientID,
		AppointmentID:           req.AppointmentID,
		Amount:                  req.Amount,
		TaxAmount:               req.TaxAmount,
		TotalAmount:             req.Amount.Add(req.TaxAmount),
		Status:                  StatusPending,
		Services:                req.Services,
		InsuranceClaimEncrypted: claim,
		DueDate:                 req.DueDate,
		Notes:                   req.Notes,
	}, Period(s.now()))
	if err != nil {
		return nil, apperr.Persistence("create invoice", err)
	}

	s.audit.Record(ctx, actor, audit.ActionInsert, auditTable, inv.ID.String(), nil, inv)
	s.logger.Info().Str("invoice", inv.InvoiceNumber).Str("total", inv.TotalAmount.StringFixed(2)).Msg("invoice created")
	return inv, nil
}

// Get returns the invoice with the insurance claim decrypted.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	inv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Persistence("get invoice", err, ErrInvoiceNotFound)
	}
	if inv.InsuranceClaim, err = fieldcodec.OpenOptional(ctx, s.codec, inv.InsuranceClaimEncrypted); err != nil {
		return nil, apperr.Persistence("decrypt insurance claim", err)
	}
	return inv, nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]Invoice, error) {
	out, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, apperr.Persistence("list invoices by patient", err)
	}
	return out, nil
}

// ListPending returns pending and overdue invoices, earliest due date first.
func (s *Service) ListPending(ctx context.Context) ([]Invoice, error) {
	out, err := s.repo.ListPending(ctx)
	if err != nil {
		return nil, apperr.Persistence("list pending invoices", err)
	}
	return out, nil
}

// UpdateStatus changes the invoice status. Entering paid stamps paid_at and
// records the payment method; any other change leaves both untouched.
func (s *Service) UpdateStatus(ctx context.Context, actor identity.Identity, id uuid.UUID, to Status, paymentMethod *string) (*Invoice, error) {
	if err := identity.Require(actor, Writers...); err != nil {
		return nil, err
	}
	if !to.Valid() {
		return nil, apperr.Invalid("status", fmt.Sprintf("unknown billing status %q", to))
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Persistence("load invoice", err, ErrInvoiceNotFound)
	}
	if current.Status == to {
		return current, nil
	}

	var paidAt *time.Time
	var method *string
	if to == StatusPaid {
		now := s.now().UTC()
		paidAt = &now
		method = paymentMethod
	}

	updated, err := s.repo.UpdateStatus(ctx, id, current.Status, to, paidAt, method)
	if err != nil {
		if errors.Is(err, ErrInvoiceNotFound) {
			return nil, ErrStaleInvoice
		}
		return nil, apperr.Persistence("update invoice status", err)
	}

	s.audit.Record(ctx, actor, audit.ActionUpdate, auditTable, id.String(), current, updated)
	s.logger.Info().Str("invoice", updated.InvoiceNumber).Str("status", string(to)).Msg("invoice status changed")
	return updated, nil
}

func (s *Service) Update(ctx context.Context, actor identity.Identity, id uuid.UUID, p Patch) (*Invoice, error) {
	if err := identity.Require(actor, Writers...); err != nil {
		return nil, err
	}
	if p.Amount != nil && p.Amount.IsNegative() {
		return nil, apperr.Invalid("amount", "must not be negative")
	}
	if p.TaxAmount != nil && p.TaxAmount.IsNegative() {
		return nil, apperr.Invalid("tax_amount", "must not be negative")
	}
	if p.DueDate != nil {
		if _, err := time.Parse("2006-01-02", *p.DueDate); err != nil {
			return nil, apperr.Invalid("due_date", "must be a YYYY-MM-DD date")
		}
	}
	if len(p.Services) > 0 && !json.Valid(p.Services) {
		return nil, apperr.Invalid("services", "must be valid JSON")
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Persistence("load invoice", err, ErrInvoiceNotFound)
	}

	sealed := p
	if sealed.InsuranceClaim, err = fieldcodec.SealOptional(ctx, s.codec, p.InsuranceClaim); err != nil {
		return nil, apperr.Persistence("encrypt insurance claim", err)
	}

	updated, err := s.repo.Update(ctx, id, sealed)
	if err != nil {
		return nil, apperr.Persistence("update invoice", err, ErrInvoiceNotFound)
	}

	s.audit.Record(ctx, actor, audit.ActionUpdate, auditTable, id.String(), current, updated)
	return updated, nil
}

// MarkOverdue flips pending invoices whose due date is before asOf to
// overdue. It runs as the system, so audit entries carry no user.
func (s *Service) MarkOverdue(ctx context.Context, asOf time.Time) (int, error) {
	ids, err := s.repo.MarkOverdue(ctx, asOf.Format("2006-01-02"))
	if err != nil {
		return 0, apperr.Persistence("mark overdue invoices", err)
	}

	for _, id := range ids {
		s.audit.Record(ctx, identity.Identity{}, audit.ActionUpdate, auditTable, id.String(),
			map[string]Status{"status": StatusPending}, map[string]Status{"status": StatusOverdue})
	}
	if len(ids) > 0 {
		s.logger.Info().Int("count", len(ids)).Msg("invoices marked overdue")
	}
	return len(ids), nil
}
