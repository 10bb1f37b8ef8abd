package billing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
	"github.com/hackgods/clinic-scheduling/internal/audit"
	"github.com/hackgods/clinic-scheduling/internal/fieldcodec"
	"github.com/hackgods/clinic-scheduling/internal/identity"
)

var clerk = identity.Identity{UserID: uuid.New(), Role: identity.RoleReceptionist}

func newTestService(t *testing.T) (*Service, *MemoryRepository) {
	t.Helper()
	codec, err := fieldcodec.NewAESCodec([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)

	repo := NewMemoryRepository()
	svc := NewService(repo, codec, audit.NewRecorder(audit.NewMemoryRepository(), zerolog.Nop()), zerolog.Nop())
	svc.now = func() time.Time { return time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC) }
	return svc, repo
}

func TestInvoiceNumber(t *testing.T) {
	assert.Equal(t, "202406", Period(time.Date(2024, 6, 30, 23, 0, 0, 0, time.UTC)))
	assert.Equal(t, "INV-202406-00001", InvoiceNumber("202406", 1))
	assert.Equal(t, "INV-202412-12345", InvoiceNumber("202412", 12345))
}

func TestCreate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	patient := uuid.New()
	claim := "POL-7781"

	inv, err := svc.Create(ctx, clerk, CreateRequest{
		PatientID:      patient,
		Amount:         decimal.RequireFromString("100.10"),
		TaxAmount:      decimal.RequireFromString("0.20"),
		Services:       []byte(`{"consultation": 100.10}`),
		DueDate:        "2024-07-01",
		InsuranceClaim: &claim,
	})
	require.NoError(t, err)
	assert.Equal(t, "INV-202406-00001", inv.InvoiceNumber)
	assert.Equal(t, StatusPending, inv.Status)
	assert.True(t, inv.TotalAmount.Equal(decimal.RequireFromString("100.30")), inv.TotalAmount.String())
	assert.Nil(t, inv.PaidAt)

	second, err := svc.Create(ctx, clerk, CreateRequest{PatientID: patient, Amount: decimal.NewFromInt(5), DueDate: "2024-07-01"})
	require.NoError(t, err)
	assert.Equal(t, "INV-202406-00002", second.InvoiceNumber)
	assert.JSONEq(t, `{}`, string(second.Services))

	got, err := svc.Get(ctx, inv.ID)
	require.NoError(t, err)
	require.NotNil(t, got.InsuranceClaim)
	assert.Equal(t, claim, *got.InsuranceClaim)
	assert.NotEqual(t, claim, *got.InsuranceClaimEncrypted)

	svc.now = func() time.Time { return time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC) }
	july, err := svc.Create(ctx, clerk, CreateRequest{PatientID: patient, Amount: decimal.NewFromInt(5), DueDate: "2024-08-01"})
	require.NoError(t, err)
	assert.Equal(t, "INV-202407-00001", july.InvoiceNumber, "numbering restarts each month")

	list, err := svc.ListByPatient(ctx, patient)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, july.ID, list[0].ID)
}

func TestCreate_Rejects(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	good := CreateRequest{PatientID: uuid.New(), Amount: decimal.NewFromInt(10), DueDate: "2024-07-01"}

	_, err := svc.Create(ctx, identity.Identity{UserID: uuid.New(), Role: identity.RolePatient}, good)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	bad := good
	bad.Amount = decimal.NewFromInt(-1)
	_, err = svc.Create(ctx, clerk, bad)
	assert.True(t, apperr.IsValidation(err))

	bad = good
	bad.DueDate = "next week"
	_, err = svc.Create(ctx, clerk, bad)
	assert.True(t, apperr.IsValidation(err))

	bad = good
	bad.Services = []byte(`{"broken"`)
	_, err = svc.Create(ctx, clerk, bad)
	assert.True(t, apperr.IsValidation(err))

	assert.Empty(t, repo.All())
}

func TestUpdateStatus_PaidAt(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	inv, err := svc.Create(ctx, clerk, CreateRequest{PatientID: uuid.New(), Amount: decimal.NewFromInt(80), DueDate: "2024-07-01"})
	require.NoError(t, err)

	card := "card"
	ins, err := svc.UpdateStatus(ctx, clerk, inv.ID, StatusInsurancePending, &card)
	require.NoError(t, err)
	assert.Nil(t, ins.PaidAt)
	assert.Nil(t, ins.PaymentMethod, "payment method is only recorded on payment")

	paid, err := svc.UpdateStatus(ctx, clerk, inv.ID, StatusPaid, &card)
	require.NoError(t, err)
	require.NotNil(t, paid.PaidAt)
	assert.Equal(t, svc.now().UTC(), *paid.PaidAt)
	assert.Equal(t, "card", *paid.PaymentMethod)

	svc.now = func() time.Time { return time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC) }
	again, err := svc.UpdateStatus(ctx, clerk, inv.ID, StatusPaid, nil)
	require.NoError(t, err)
	assert.Equal(t, *paid.PaidAt, *again.PaidAt, "repeating paid does not move paid_at")

	cancelled, err := svc.UpdateStatus(ctx, clerk, inv.ID, StatusCancelled, nil)
	require.NoError(t, err)
	assert.Equal(t, *paid.PaidAt, *cancelled.PaidAt)

	_, err = svc.UpdateStatus(ctx, clerk, inv.ID, Status("refunded"), nil)
	assert.True(t, apperr.IsValidation(err))

	_, err = svc.UpdateStatus(ctx, clerk, uuid.New(), StatusPaid, nil)
	assert.ErrorIs(t, err, ErrInvoiceNotFound)
}

// racingRepo lets another writer settle the invoice right after the
// service has read it.
type racingRepo struct {
	*MemoryRepository
	paidAt time.Time
}

func (r *racingRepo) GetByID(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	inv, err := r.MemoryRepository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := r.MemoryRepository.UpdateStatus(ctx, id, inv.Status, StatusPaid, &r.paidAt, nil); err != nil {
		return nil, err
	}
	return inv, nil
}

func TestUpdateStatus_ConcurrentPaymentKeepsFirstPaidAt(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	inv, err := svc.Create(ctx, clerk, CreateRequest{PatientID: uuid.New(), Amount: decimal.NewFromInt(80), DueDate: "2024-07-01"})
	require.NoError(t, err)

	first := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	svc.repo = &racingRepo{MemoryRepository: repo, paidAt: first}

	_, err = svc.UpdateStatus(ctx, clerk, inv.ID, StatusPaid, nil)
	assert.ErrorIs(t, err, ErrStaleInvoice)

	stored, err := repo.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, stored.Status)
	require.NotNil(t, stored.PaidAt)
	assert.Equal(t, first, *stored.PaidAt)
}

func TestUpdate_RecomputesTotal(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	inv, err := svc.Create(ctx, clerk, CreateRequest{
		PatientID: uuid.New(),
		Amount:    decimal.RequireFromString("50.00"),
		TaxAmount: decimal.RequireFromString("5.00"),
		DueDate:   "2024-07-01",
	})
	require.NoError(t, err)

	tax := decimal.RequireFromString("7.25")
	updated, err := svc.Update(ctx, clerk, inv.ID, Patch{TaxAmount: &tax})
	require.NoError(t, err)
	assert.True(t, updated.TotalAmount.Equal(decimal.RequireFromString("57.25")))
	assert.True(t, updated.Amount.Equal(decimal.RequireFromString("50")))
}

func TestMarkOverdueAndListPending(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	patient := uuid.New()

	mk := func(due string) *Invoice {
		inv, err := svc.Create(ctx, clerk, CreateRequest{PatientID: patient, Amount: decimal.NewFromInt(10), DueDate: due})
		require.NoError(t, err)
		return inv
	}
	late := mk("2024-06-01")
	dueToday := mk("2024-06-15")
	future := mk("2024-07-01")
	paid := mk("2024-05-01")
	_, err := svc.UpdateStatus(ctx, clerk, paid.ID, StatusPaid, nil)
	require.NoError(t, err)

	n, err := svc.MarkOverdue(ctx, time.Date(2024, 6, 15, 8, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := svc.Get(ctx, late.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusOverdue, got.Status)

	pending, err := svc.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	assert.Equal(t, []uuid.UUID{late.ID, dueToday.ID, future.ID},
		[]uuid.UUID{pending[0].ID, pending[1].ID, pending[2].ID})

	n, err = svc.MarkOverdue(ctx, time.Date(2024, 6, 15, 8, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Zero(t, n, "already overdue invoices are not touched again")
}
