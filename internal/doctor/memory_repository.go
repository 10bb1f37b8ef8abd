package doctor

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type MemoryRepository struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*Doctor
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byID: make(map[uuid.UUID]*Doctor)}
}

func (m *MemoryRepository) Insert(_ context.Context, d *Doctor) (*Doctor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, other := range m.byID {
		if other.LicenseNumber == d.LicenseNumber {
			return nil, ErrDuplicateLicense
		}
	}
	cp := *d
	if cp.ID == uuid.Nil {
		cp.ID = uuid.New()
	}
	if cp.Specialization == nil {
		cp.Specialization = []string{}
	}
	cp.IsActive = true
	now := time.Now().UTC()
	cp.CreatedAt, cp.UpdatedAt = now, now
	m.byID[cp.ID] = &cp

	out := cp
	return &out, nil
}

func (m *MemoryRepository) GetByID(_ context.Context, id uuid.UUID) (*Doctor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.byID[id]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	out := *d
	return &out, nil
}

func (m *MemoryRepository) Update(_ context.Context, id uuid.UUID, p Patch) (*Doctor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.byID[id]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	if p.Specialization != nil {
		d.Specialization = p.Specialization
	}
	if p.Department != nil {
		d.Department = p.Department
	}
	if p.ConsultationFee != nil {
		fee := *p.ConsultationFee
		d.ConsultationFee = &fee
	}
	if p.IsActive != nil {
		d.IsActive = *p.IsActive
	}
	d.UpdatedAt = time.Now().UTC()
	out := *d
	return &out, nil
}

func (m *MemoryRepository) ListActive(_ context.Context) ([]Doctor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := []Doctor{}
	for _, d := range m.byID {
		if d.IsActive {
			result = append(result, *d)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].LastName != result[j].LastName {
			return result[i].LastName < result[j].LastName
		}
		return result[i].FirstName < result[j].FirstName
	})
	return result, nil
}
