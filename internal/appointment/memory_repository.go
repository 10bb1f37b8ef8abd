package appointment

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is an in-process Repository. It enforces the same
// no-overlap rule as the Postgres exclusion constraint, so it can stand in
// for the database in tests and local runs.
type MemoryRepository struct {
	mu       sync.RWMutex
	byID     map[uuid.UUID]*Appointment
	patients map[uuid.UUID]PatientSummary
	doctors  map[uuid.UUID]DoctorSummary
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:     make(map[uuid.UUID]*Appointment),
		patients: make(map[uuid.UUID]PatientSummary),
		doctors:  make(map[uuid.UUID]DoctorSummary),
	}
}

// AddPatient and AddDoctor register the summaries used to expand listings.
func (m *MemoryRepository) AddPatient(p PatientSummary) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.patients[p.ID] = p
}

func (m *MemoryRepository) AddDoctor(d DoctorSummary) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.doctors[d.ID] = d
}

// All returns a copy of every stored appointment.
func (m *MemoryRepository) All() []Appointment {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Appointment, 0, len(m.byID))
	for _, a := range m.byID {
		out = append(out, *a)
	}
	return out
}

func (m *MemoryRepository) ListActiveSlots(_ context.Context, doctorID uuid.UUID, date string, excludeID *uuid.UUID) ([]Slot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var slots []Slot
	for _, a := range m.byID {
		if a.DoctorID != doctorID || a.Date != date || a.Status == StatusCancelled {
			continue
		}
		if excludeID != nil && a.ID == *excludeID {
			continue
		}
		slots = append(slots, Slot{ID: a.ID, StartTime: a.StartTime, EndTime: a.EndTime, Status: a.Status})
	}
	return slots, nil
}

func (m *MemoryRepository) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.byID[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *MemoryRepository) GetDetail(_ context.Context, id uuid.UUID) (*AppointmentDetail, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.byID[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	d := m.detail(a)
	return &d, nil
}

func (m *MemoryRepository) Insert(_ context.Context, a *Appointment) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *a
	if cp.ID == uuid.Nil {
		cp.ID = uuid.New()
	}
	if m.overlapsLocked(&cp) {
		return nil, ErrSlotConflict
	}
	now := time.Now().UTC()
	cp.CreatedAt, cp.UpdatedAt = now, now
	cp.Notes = nil
	m.byID[cp.ID] = &cp

	out := cp
	return &out, nil
}

func (m *MemoryRepository) UpdateStatus(_ context.Context, id uuid.UUID, from, to Status) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.byID[id]
	if !ok || a.Status != from {
		return nil, ErrAppointmentNotFound
	}
	next := *a
	next.Status = to
	if m.overlapsLocked(&next) {
		return nil, ErrSlotConflict
	}
	next.UpdatedAt = time.Now().UTC()
	*a = next
	out := next
	return &out, nil
}

func (m *MemoryRepository) UpdateSlot(_ context.Context, id uuid.UUID, from Status, date string, start, end Clock) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.byID[id]
	if !ok || a.Status != from {
		return nil, ErrAppointmentNotFound
	}
	next := *a
	next.Date, next.StartTime, next.EndTime = date, start, end
	if m.overlapsLocked(&next) {
		return nil, ErrSlotConflict
	}
	next.UpdatedAt = time.Now().UTC()
	*a = next
	out := next
	return &out, nil
}

func (m *MemoryRepository) UpdateDetails(_ context.Context, id uuid.UUID, p Patch) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.byID[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	if p.Type != nil {
		a.Type = *p.Type
	}
	if p.Reason != nil {
		a.Reason = p.Reason
	}
	if p.Location != nil {
		a.Location = p.Location
	}
	if p.Notes != nil {
		a.NotesEncrypted = p.Notes
	}
	a.UpdatedAt = time.Now().UTC()
	out := *a
	return &out, nil
}

func (m *MemoryRepository) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return ErrAppointmentNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *MemoryRepository) ListByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]AppointmentDetail, error) {
	return m.list(func(a *Appointment) bool { return a.PatientID == patientID }, limit, offset), nil
}

func (m *MemoryRepository) ListByDoctor(_ context.Context, doctorID uuid.UUID, limit, offset int) ([]AppointmentDetail, error) {
	return m.list(func(a *Appointment) bool { return a.DoctorID == doctorID }, limit, offset), nil
}

func (m *MemoryRepository) ListUpcoming(_ context.Context, fromDate string, limit int) ([]AppointmentDetail, error) {
	return m.list(func(a *Appointment) bool {
		return a.Date >= fromDate && (a.Status == StatusScheduled || a.Status == StatusConfirmed)
	}, limit, 0), nil
}

func (m *MemoryRepository) list(keep func(*Appointment) bool, limit, offset int) []AppointmentDetail {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []AppointmentDetail{}
	for _, a := range m.byID {
		if keep(a) {
			result = append(result, m.detail(a))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Date != result[j].Date {
			return result[i].Date < result[j].Date
		}
		return result[i].StartTime < result[j].StartTime
	})

	if offset >= len(result) {
		return []AppointmentDetail{}
	}
	result = result[offset:]
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}

func (m *MemoryRepository) detail(a *Appointment) AppointmentDetail {
	d := AppointmentDetail{Appointment: *a}
	if p, ok := m.patients[a.PatientID]; ok {
		d.Patient = &p
	}
	if doc, ok := m.doctors[a.DoctorID]; ok {
		d.Doctor = &doc
	}
	return d
}

func (m *MemoryRepository) overlapsLocked(a *Appointment) bool {
	if a.Status == StatusCancelled {
		return false
	}
	for id, other := range m.byID {
		if id == a.ID || other.DoctorID != a.DoctorID || other.Date != a.Date || other.Status == StatusCancelled {
			continue
		}
		if Overlaps(a.StartTime, a.EndTime, other.StartTime, other.EndTime) {
			return true
		}
	}
	return false
}
