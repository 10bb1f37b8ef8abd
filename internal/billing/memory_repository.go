package billing

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type MemoryRepository struct {
	mu       sync.Mutex
	byID     map[uuid.UUID]*Invoice
	seq      map[string]int
	inserted int
	order    map[uuid.UUID]int
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:  make(map[uuid.UUID]*Invoice),
		seq:   make(map[string]int),
		order: make(map[uuid.UUID]int),
	}
}

func (m *MemoryRepository) Insert(_ context.Context, inv *Invoice, period string) (*Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq[period]++
	cp := *inv
	if cp.ID == uuid.Nil {
		cp.ID = uuid.New()
	}
	if len(cp.Services) == 0 {
		cp.Services = []byte("{}")
	}
	cp.InvoiceNumber = InvoiceNumber(period, m.seq[period])
	cp.InsuranceClaim = nil
	now := time.Now().UTC()
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now

	m.inserted++
	m.order[cp.ID] = m.inserted
	m.byID[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *MemoryRepository) GetByID(_ context.Context, id uuid.UUID) (*Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.byID[id]
	if !ok {
		return nil, ErrInvoiceNotFound
	}
	out := *inv
	return &out, nil
}

func (m *MemoryRepository) ListByPatient(_ context.Context, patientID uuid.UUID) ([]Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := []Invoice{}
	for _, inv := range m.byID {
		if inv.PatientID == patientID {
			result = append(result, *inv)
		}
	}
	// newest first
	sort.Slice(result, func(i, j int) bool {
		return m.order[result[i].ID] > m.order[result[j].ID]
	})
	return result, nil
}

func (m *MemoryRepository) ListPending(_ context.Context) ([]Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := []Invoice{}
	for _, inv := range m.byID {
		if inv.Status.Outstanding() {
			result = append(result, *inv)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].DueDate != result[j].DueDate {
			return result[i].DueDate < result[j].DueDate
		}
		return m.order[result[i].ID] < m.order[result[j].ID]
	})
	return result, nil
}

// All returns every stored invoice in insertion order.
func (m *MemoryRepository) All() []Invoice {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]Invoice, 0, len(m.byID))
	for _, inv := range m.byID {
		result = append(result, *inv)
	}
	sort.Slice(result, func(i, j int) bool {
		return m.order[result[i].ID] < m.order[result[j].ID]
	})
	return result
}

func (m *MemoryRepository) UpdateStatus(_ context.Context, id uuid.UUID, from, to Status, paidAt *time.Time, paymentMethod *string) (*Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	inv, ok := m.byID[id]
	if !ok || inv.Status != from {
		return nil, ErrInvoiceNotFound
	}
	inv.Status = to
	if paidAt != nil {
		t := *paidAt
		inv.PaidAt = &t
	}
	if paymentMethod != nil {
		inv.PaymentMethod = paymentMethod
	}
	inv.UpdatedAt = time.Now().UTC()
	out := *inv
	return &out, nil
}

func (m *MemoryRepository) Update(_ context.Context, id uuid.UUID, p Patch) (*Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	inv, ok := m.byID[id]
	if !ok {
		return nil, ErrInvoiceNotFound
	}
	if p.Amount != nil {
		inv.Amount = *p.Amount
	}
	if p.TaxAmount != nil {
		inv.TaxAmount = *p.TaxAmount
	}
	inv.TotalAmount = inv.Amount.Add(inv.TaxAmount)
	if len(p.Services) > 0 {
		inv.Services = p.Services
	}
	if p.DueDate != nil {
		inv.DueDate = *p.DueDate
	}
	if p.InsuranceClaim != nil {
		inv.InsuranceClaimEncrypted = p.InsuranceClaim
	}
	if p.Notes != nil {
		inv.Notes = p.Notes
	}
	inv.UpdatedAt = time.Now().UTC()
	out := *inv
	return &out, nil
}

func (m *MemoryRepository) MarkOverdue(_ context.Context, asOf string) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var ids []uuid.UUID
	for id, inv := range m.byID {
		if inv.Status == StatusPending && inv.DueDate < asOf {
			inv.Status = StatusOverdue
			inv.UpdatedAt = time.Now().UTC()
			ids = append(ids, id)
		}
	}
	return ids, nil
}
