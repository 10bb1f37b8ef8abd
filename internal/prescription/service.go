package prescription

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
	"github.com/hackgods/clinic-scheduling/internal/audit"
	"github.com/hackgods/clinic-scheduling/internal/fieldcodec"
	"github.com/hackgods/clinic-scheduling/internal/identity"
)

const auditTable = "prescriptions"

// Prescribers may issue and change prescriptions.
var Prescribers = []identity.Role{identity.RoleDoctor, identity.RoleAdmin}

type Service struct {
	repo   Repository
	codec  fieldcodec.Codec
	audit  *audit.Recorder
	logger zerolog.Logger
}

func NewService(repo Repository, codec fieldcodec.Codec, rec *audit.Recorder, logger zerolog.Logger) *Service {
	return &Service{repo: repo, codec: codec, audit: rec, logger: logger.With().Str("component", "prescription").Logger()}
}

func (s *Service) Create(ctx context.Context, actor identity.Identity, req CreateRequest) (*Prescription, error) {
	if err := identity.Require(actor, Prescribers...); err != nil {
		return nil, err
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	p := &Prescription{
		PatientID:       req.PatientID,
		DoctorID:        req.DoctorID,
		MedicalRecordID: req.MedicalRecordID,
		Duration:        req.Duration,
		RefillsAllowed:  req.RefillsAllowed,
		PharmacyName:    req.PharmacyName,
		ValidUntil:      req.ValidUntil,
		Status:          StatusActive,
	}
	var err error
	if p.MedicationNameEncrypted, err = s.codec.Encrypt(ctx, req.MedicationName); err != nil {
		return nil, apperr.Persistence("encrypt medication name", err)
	}
	if p.DosageEncrypted, err = s.codec.Encrypt(ctx, req.Dosage); err != nil {
		return nil, apperr.Persistence("encrypt dosage", err)
	}
	if p.FrequencyEncrypted, err = s.codec.Encrypt(ctx, req.Frequency); err != nil {
		return nil, apperr.Persistence("encrypt frequency", err)
	}
	if p.InstructionsEncrypted, err = fieldcodec.SealOptional(ctx, s.codec, req.Instructions); err != nil {
		return nil, apperr.Persistence("encrypt instructions", err)
	}

	created, err := s.repo.Insert(ctx, p)
	if err != nil {
		return nil, apperr.Persistence("create prescription", err)
	}

	s.audit.Record(ctx, actor, audit.ActionInsert, auditTable, created.ID.String(), nil, created)
	return created, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Persistence("get prescription", err, ErrPrescriptionNotFound)
	}
	if err := s.open(ctx, p); err != nil {
		return nil, apperr.Persistence("decrypt prescription", err)
	}
	return p, nil
}

// ListByPatient returns the patient's prescriptions with medication details
// decrypted, newest first.
func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]Prescription, error) {
	return s.list(ctx, patientID, false)
}

func (s *Service) ListActiveByPatient(ctx context.Context, patientID uuid.UUID) ([]Prescription, error) {
	return s.list(ctx, patientID, true)
}

func (s *Service) Update(ctx context.Context, actor identity.Identity, id uuid.UUID, p Patch) (*Prescription, error) {
	if err := identity.Require(actor, Prescribers...); err != nil {
		return nil, err
	}
	if p.Status != nil && !p.Status.Valid() {
		return nil, apperr.Invalid("status", fmt.Sprintf("unknown prescription status %q", *p.Status))
	}
	if p.RefillsAllowed != nil && *p.RefillsAllowed < 0 {
		return nil, apperr.Invalid("refills_allowed", "must not be negative")
	}
	if p.ValidUntil != nil && !validDate(*p.ValidUntil) {
		return nil, apperr.Invalid("valid_until", "must be a YYYY-MM-DD date")
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Persistence("load prescription", err, ErrPrescriptionNotFound)
	}

	sealed := p
	if err := (fieldcodec.Fields{&sealed.Dosage, &sealed.Frequency, &sealed.Instructions}).Seal(ctx, s.codec); err != nil {
		return nil, apperr.Persistence("encrypt prescription fields", err)
	}

	updated, err := s.repo.Update(ctx, id, sealed)
	if err != nil {
		return nil, apperr.Persistence("update prescription", err, ErrPrescriptionNotFound)
	}

	s.audit.Record(ctx, actor, audit.ActionUpdate, auditTable, id.String(), current, updated)
	return updated, nil
}

func (s *Service) list(ctx context.Context, patientID uuid.UUID, activeOnly bool) ([]Prescription, error) {
	out, err := s.repo.ListByPatient(ctx, patientID, activeOnly)
	if err != nil {
		return nil, apperr.Persistence("list prescriptions", err)
	}
	for i := range out {
		if err := s.open(ctx, &out[i]); err != nil {
			return nil, apperr.Persistence("decrypt prescription", err)
		}
	}
	return out, nil
}

func (s *Service) open(ctx context.Context, p *Prescription) error {
	var err error
	if p.MedicationName, err = s.codec.Decrypt(ctx, p.MedicationNameEncrypted); err != nil {
		return err
	}
	if p.Dosage, err = s.codec.Decrypt(ctx, p.DosageEncrypted); err != nil {
		return err
	}
	if p.Frequency, err = s.codec.Decrypt(ctx, p.FrequencyEncrypted); err != nil {
		return err
	}
	p.Instructions, err = fieldcodec.OpenOptional(ctx, s.codec, p.InstructionsEncrypted)
	return err
}

func (r CreateRequest) validate() error {
	if r.PatientID == uuid.Nil {
		return apperr.Invalid("patient_id", "is required")
	}
	if r.DoctorID == uuid.Nil {
		return apperr.Invalid("doctor_id", "is required")
	}
	for field, v := range map[string]string{
		"medication_name": r.MedicationName,
		"dosage":          r.Dosage,
		"frequency":       r.Frequency,
		"duration":        r.Duration,
	} {
		if strings.TrimSpace(v) == "" {
			return apperr.Invalid(field, "is required")
		}
	}
	if r.RefillsAllowed < 0 {
		return apperr.Invalid("refills_allowed", "must not be negative")
	}
	if r.ValidUntil != nil && !validDate(*r.ValidUntil) {
		return apperr.Invalid("valid_until", "must be a YYYY-MM-DD date")
	}
	return nil
}

func validDate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}
