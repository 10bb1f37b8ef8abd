package prescription

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type MemoryRepository struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*Prescription
	now  func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byID: make(map[uuid.UUID]*Prescription), now: time.Now}
}

func (m *MemoryRepository) Insert(_ context.Context, p *Prescription) (*Prescription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *p
	if cp.ID == uuid.Nil {
		cp.ID = uuid.New()
	}
	now := m.now().UTC()
	if cp.PrescribedDate == "" {
		cp.PrescribedDate = now.Format("2006-01-02")
	}
	cp.CreatedAt, cp.UpdatedAt = now, now
	m.byID[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *MemoryRepository) GetByID(_ context.Context, id uuid.UUID) (*Prescription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return nil, ErrPrescriptionNotFound
	}
	out := *p
	return &out, nil
}

func (m *MemoryRepository) ListByPatient(_ context.Context, patientID uuid.UUID, activeOnly bool) ([]Prescription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := []Prescription{}
	for _, p := range m.byID {
		if p.PatientID != patientID || (activeOnly && p.Status != StatusActive) {
			continue
		}
		result = append(result, *p)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].PrescribedDate != result[j].PrescribedDate {
			return result[i].PrescribedDate > result[j].PrescribedDate
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (m *MemoryRepository) Update(_ context.Context, id uuid.UUID, patch Patch) (*Prescription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.byID[id]
	if !ok {
		return nil, ErrPrescriptionNotFound
	}
	if patch.Dosage != nil {
		p.DosageEncrypted = *patch.Dosage
	}
	if patch.Frequency != nil {
		p.FrequencyEncrypted = *patch.Frequency
	}
	if patch.Instructions != nil {
		p.InstructionsEncrypted = patch.Instructions
	}
	if patch.Duration != nil {
		p.Duration = *patch.Duration
	}
	if patch.RefillsAllowed != nil {
		p.RefillsAllowed = *patch.RefillsAllowed
	}
	if patch.PharmacyName != nil {
		p.PharmacyName = patch.PharmacyName
	}
	if patch.ValidUntil != nil {
		p.ValidUntil = patch.ValidUntil
	}
	if patch.Status != nil {
		p.Status = *patch.Status
	}
	p.UpdatedAt = m.now().UTC()
	out := *p
	return &out, nil
}
