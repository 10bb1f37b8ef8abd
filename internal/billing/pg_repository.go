package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const invoiceColumns = `
	id, patient_id, appointment_id, invoice_number, amount::text, tax_amount::text, total_amount::text,
	status, services, insurance_claim_encrypted, payment_method, paid_at, due_date::text, notes,
	created_at, updated_at`

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	var amount, tax, total string
	var services []byte

	err := row.Scan(
		&inv.ID,
		&inv.PatientID,
		&inv.AppointmentID,
		&inv.InvoiceNumber,
		&amount,
		&tax,
		&total,
		&inv.Status,
		&services,
		&inv.InsuranceClaimEncrypted,
		&inv.PaymentMethod,
		&inv.PaidAt,
		&inv.DueDate,
		&inv.Notes,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvoiceNotFound
		}
		return nil, err
	}

	if inv.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("parse amount: %w", err)
	}
	if inv.TaxAmount, err = decimal.NewFromString(tax); err != nil {
		return nil, fmt.Errorf("parse tax_amount: %w", err)
	}
	if inv.TotalAmount, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("parse total_amount: %w", err)
	}
	inv.Services = services
	return &inv, nil
}

func collect(rows pgx.Rows) ([]Invoice, error) {
	defer rows.Close()

	result := []Invoice{}
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *inv)
	}
	return result, rows.Err()
}

func (r *PgRepository) Insert(ctx context.Context, inv *Invoice, period string) (*Invoice, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin invoice tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var seq int
	err = tx.QueryRow(ctx, `
		INSERT INTO invoice_sequences (period, last_value)
		VALUES ($1, 1)
		ON CONFLICT (period) DO UPDATE SET last_value = invoice_sequences.last_value + 1
		RETURNING last_value
	`, period).Scan(&seq)
	if err != nil {
		return nil, fmt.Errorf("next invoice number: %w", err)
	}

	id := inv.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	services := inv.Services
	if len(services) == 0 {
		services = []byte("{}")
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO billing (id, patient_id, appointment_id, invoice_number, amount, tax_amount, total_amount,
		                     status, services, insurance_claim_encrypted, due_date, notes)
		VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7::numeric, $8, $9, $10, $11::date, $12)
		RETURNING `+invoiceColumns,
		id, inv.PatientID, inv.AppointmentID, InvoiceNumber(period, seq),
		inv.Amount.String(), inv.TaxAmount.String(), inv.TotalAmount.String(),
		inv.Status, string(services), inv.InsuranceClaimEncrypted, inv.DueDate, inv.Notes)

	created, err := scanInvoice(row)
	if err != nil {
		return nil, fmt.Errorf("insert invoice: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit invoice: %w", err)
	}
	return created, nil
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM billing WHERE id = $1`, id)
	return scanInvoice(row)
}

func (r *PgRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]Invoice, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+invoiceColumns+`
		FROM billing
		WHERE patient_id = $1
		ORDER BY created_at DESC
	`, patientID)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func (r *PgRepository) ListPending(ctx context.Context) ([]Invoice, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+invoiceColumns+`
		FROM billing
		WHERE status IN ('pending', 'overdue')
		ORDER BY due_date ASC, created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func (r *PgRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status, paidAt *time.Time, paymentMethod *string) (*Invoice, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE billing
		SET status = $2,
		    paid_at = COALESCE($3, paid_at),
		    payment_method = COALESCE($4, payment_method),
		    updated_at = now()
		WHERE id = $1
		  AND status = $5
		RETURNING `+invoiceColumns, id, to, paidAt, paymentMethod, from)
	return scanInvoice(row)
}

func (r *PgRepository) Update(ctx context.Context, id uuid.UUID, p Patch) (*Invoice, error) {
	var amount, tax, services *string
	if p.Amount != nil {
		s := p.Amount.String()
		amount = &s
	}
	if p.TaxAmount != nil {
		s := p.TaxAmount.String()
		tax = &s
	}
	if len(p.Services) > 0 {
		s := string(p.Services)
		services = &s
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE billing
		SET amount = COALESCE($2::numeric, amount),
		    tax_amount = COALESCE($3::numeric, tax_amount),
		    total_amount = COALESCE($2::numeric, amount) + COALESCE($3::numeric, tax_amount),
		    services = COALESCE($4::jsonb, services),
		    due_date = COALESCE($5::date, due_date),
		    insurance_claim_encrypted = COALESCE($6, insurance_claim_encrypted),
		    notes = COALESCE($7, notes),
		    updated_at = now()
		WHERE id = $1
		RETURNING `+invoiceColumns, id, amount, tax, services, p.DueDate, p.InsuranceClaim, p.Notes)
	return scanInvoice(row)
}

func (r *PgRepository) MarkOverdue(ctx context.Context, asOf string) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		UPDATE billing
		SET status = 'overdue',
		    updated_at = now()
		WHERE status = 'pending'
		  AND due_date < $1::date
		RETURNING id
	`, asOf)
	if err != nil {
		return nil, fmt.Errorf("mark overdue invoices: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
