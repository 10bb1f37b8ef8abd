package patient

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type MemoryRepository struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*Patient
	next int64
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byID: make(map[uuid.UUID]*Patient)}
}

func (m *MemoryRepository) Insert(_ context.Context, p *Patient) (*Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.next++
	cp := *p
	if cp.ID == uuid.Nil {
		cp.ID = uuid.New()
	}
	cp.PatientNumber = Number(m.next)
	cp.IsActive = true
	cp.Allergies = nonNil(cp.Allergies)
	cp.ChronicConditions = nonNil(cp.ChronicConditions)
	now := time.Now().UTC().Add(time.Duration(m.next))
	cp.CreatedAt, cp.UpdatedAt = now, now
	m.byID[cp.ID] = &cp

	out := cp
	return &out, nil
}

func (m *MemoryRepository) GetByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	out := *p
	return &out, nil
}

func (m *MemoryRepository) GetByProfileID(_ context.Context, profileID uuid.UUID) (*Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.byID {
		if p.ProfileID == profileID {
			out := *p
			return &out, nil
		}
	}
	return nil, ErrPatientNotFound
}

func (m *MemoryRepository) Update(_ context.Context, id uuid.UUID, patch Patch) (*Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.byID[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	if patch.BloodGroup != nil {
		p.BloodGroup = patch.BloodGroup
	}
	if patch.Allergies != nil {
		p.Allergies = patch.Allergies
	}
	if patch.ChronicConditions != nil {
		p.ChronicConditions = patch.ChronicConditions
	}
	if patch.InsuranceProvider != nil {
		p.InsuranceProvider = patch.InsuranceProvider
	}
	if patch.PrimaryDoctorID != nil {
		p.PrimaryDoctorID = patch.PrimaryDoctorID
	}
	if patch.IsActive != nil {
		p.IsActive = *patch.IsActive
	}
	if patch.SSN != nil {
		p.SSNEncrypted = patch.SSN
	}
	if patch.EmergencyContact != nil {
		p.EmergencyContactEncrypted = patch.EmergencyContact
	}
	if patch.InsurancePolicy != nil {
		p.InsurancePolicyEncrypted = patch.InsurancePolicy
	}
	if patch.MedicalHistory != nil {
		p.MedicalHistoryEncrypted = patch.MedicalHistory
	}
	p.UpdatedAt = time.Now().UTC()
	out := *p
	return &out, nil
}

func (m *MemoryRepository) ListActive(_ context.Context) ([]Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := []Patient{}
	for _, p := range m.byID {
		if p.IsActive {
			result = append(result, *p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}
