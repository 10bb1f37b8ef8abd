package report

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type MemoryRepository struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*Report
	now  func() time.Time

	// FailInsert makes Insert fail, for exercising upload cleanup.
	FailInsert bool
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byID: make(map[uuid.UUID]*Report), now: time.Now}
}

func (m *MemoryRepository) Insert(_ context.Context, r *Report) (*Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailInsert {
		return nil, errors.New("insert medical report: connection reset")
	}
	cp := *r
	if cp.ID == uuid.Nil {
		cp.ID = uuid.New()
	}
	now := m.now().UTC()
	cp.CreatedAt, cp.UpdatedAt = now, now
	m.byID[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *MemoryRepository) GetByID(_ context.Context, id uuid.UUID) (*Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.byID[id]
	if !ok {
		return nil, ErrReportNotFound
	}
	out := *r
	return &out, nil
}

func (m *MemoryRepository) ListByPatient(_ context.Context, patientID uuid.UUID) ([]Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := []Report{}
	for _, r := range m.byID {
		if r.PatientID == patientID {
			result = append(result, *r)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].ReportDate != result[j].ReportDate {
			return result[i].ReportDate > result[j].ReportDate
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (m *MemoryRepository) Update(_ context.Context, id uuid.UUID, p Patch) (*Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.byID[id]
	if !ok {
		return nil, ErrReportNotFound
	}
	if p.ReportType != nil {
		r.ReportType = *p.ReportType
	}
	if p.ReportDate != nil {
		r.ReportDate = *p.ReportDate
	}
	if p.Title != nil {
		r.Title = *p.Title
	}
	if p.Findings != nil {
		r.FindingsEncrypted = p.Findings
	}
	if p.Interpretation != nil {
		r.InterpretationEncrypted = p.Interpretation
	}
	r.UpdatedAt = m.now().UTC()
	out := *r
	return &out, nil
}

func (m *MemoryRepository) MarkReviewed(_ context.Context, id uuid.UUID, rv Review) (*Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.byID[id]
	if !ok {
		return nil, ErrReportNotFound
	}
	by, at := rv.By, rv.At
	r.IsReviewed = true
	r.ReviewedBy = &by
	r.ReviewedAt = &at
	r.UpdatedAt = m.now().UTC()
	out := *r
	return &out, nil
}

func (m *MemoryRepository) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return ErrReportNotFound
	}
	delete(m.byID, id)
	return nil
}
