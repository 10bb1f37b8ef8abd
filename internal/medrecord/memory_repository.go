package medrecord

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type MemoryRepository struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*Record
	now  func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byID: make(map[uuid.UUID]*Record), now: time.Now}
}

func (m *MemoryRepository) Insert(_ context.Context, r *Record) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *r
	if cp.ID == uuid.Nil {
		cp.ID = uuid.New()
	}
	now := m.now().UTC()
	if cp.VisitDate == "" {
		cp.VisitDate = now.Format("2006-01-02")
	}
	cp.CreatedAt, cp.UpdatedAt = now, now
	m.byID[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *MemoryRepository) GetByID(_ context.Context, id uuid.UUID) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.byID[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	out := *r
	return &out, nil
}

func (m *MemoryRepository) ListByPatient(_ context.Context, patientID uuid.UUID) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := []Record{}
	for _, r := range m.byID {
		if r.PatientID == patientID {
			result = append(result, *r)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].VisitDate != result[j].VisitDate {
			return result[i].VisitDate > result[j].VisitDate
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (m *MemoryRepository) Update(_ context.Context, id uuid.UUID, p Patch) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.byID[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	if p.VisitDate != nil {
		r.VisitDate = *p.VisitDate
	}
	if p.FollowUpDate != nil {
		r.FollowUpDate = p.FollowUpDate
	}
	stored := r.sealed()
	for i, v := range p.fields() {
		if *v != nil {
			*stored[i] = *v
		}
	}
	r.UpdatedAt = m.now().UTC()
	out := *r
	return &out, nil
}
