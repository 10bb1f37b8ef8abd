package patient

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
	"github.com/hackgods/clinic-scheduling/internal/audit"
	"github.com/hackgods/clinic-scheduling/internal/fieldcodec"
	"github.com/hackgods/clinic-scheduling/internal/identity"
)

const auditTable = "patients"

type Service struct {
	repo   Repository
	codec  fieldcodec.Codec
	audit  *audit.Recorder
	logger zerolog.Logger
}

func NewService(repo Repository, codec fieldcodec.Codec, rec *audit.Recorder, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		codec:  codec,
		audit:  rec,
		logger: logger.With().Str("component", "patient").Logger(),
	}
}

func (s *Service) Create(ctx context.Context, actor identity.Identity, req CreateRequest) (*Patient, error) {
	if err := identity.Require(actor, identity.Staff...); err != nil {
		return nil, err
	}
	if req.ProfileID == uuid.Nil {
		return nil, apperr.Invalid("profile_id", "is required")
	}

	p := &Patient{
		ProfileID:                 req.ProfileID,
		BloodGroup:                req.BloodGroup,
		Allergies:                 req.Allergies,
		ChronicConditions:         req.ChronicConditions,
		InsuranceProvider:         req.InsuranceProvider,
		PrimaryDoctorID:           req.PrimaryDoctorID,
		SSNEncrypted:              req.SSN,
		EmergencyContactEncrypted: req.EmergencyContact,
		InsurancePolicyEncrypted:  req.InsurancePolicy,
		MedicalHistoryEncrypted:   req.MedicalHistory,
	}
	if err := sealedFields(p).Seal(ctx, s.codec); err != nil {
		return nil, apperr.Persistence("encrypt patient fields", err)
	}

	created, err := s.repo.Insert(ctx, p)
	if err != nil {
		return nil, apperr.Persistence("create patient", err)
	}

	s.audit.Record(ctx, actor, audit.ActionInsert, auditTable, created.ID.String(), nil, created)
	s.logger.Info().Str("patient_number", created.PatientNumber).Msg("patient registered")
	return created, nil
}

// Get returns the patient with sensitive fields decrypted.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Persistence("get patient", err, ErrPatientNotFound)
	}
	return s.open(ctx, p)
}

// GetByProfile resolves the patient chart of a signed-in user.
func (s *Service) GetByProfile(ctx context.Context, profileID uuid.UUID) (*Patient, error) {
	p, err := s.repo.GetByProfileID(ctx, profileID)
	if err != nil {
		return nil, apperr.Persistence("get patient by profile", err, ErrPatientNotFound)
	}
	return s.open(ctx, p)
}

func (s *Service) Update(ctx context.Context, actor identity.Identity, id uuid.UUID, p Patch) (*Patient, error) {
	if err := identity.Require(actor, identity.Staff...); err != nil {
		return nil, err
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Persistence("load patient", err, ErrPatientNotFound)
	}

	sealed := p
	fields := fieldcodec.Fields{&sealed.SSN, &sealed.EmergencyContact, &sealed.InsurancePolicy, &sealed.MedicalHistory}
	if err := fields.Seal(ctx, s.codec); err != nil {
		return nil, apperr.Persistence("encrypt patient fields", err)
	}

	updated, err := s.repo.Update(ctx, id, sealed)
	if err != nil {
		return nil, apperr.Persistence("update patient", err, ErrPatientNotFound)
	}

	s.audit.Record(ctx, actor, audit.ActionUpdate, auditTable, id.String(), current, updated)
	return updated, nil
}

// ListActive lists active patients, newest first. Sensitive fields stay sealed.
func (s *Service) ListActive(ctx context.Context) ([]Patient, error) {
	out, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, apperr.Persistence("list patients", err)
	}
	return out, nil
}

func (s *Service) open(ctx context.Context, p *Patient) (*Patient, error) {
	p.SSN = p.SSNEncrypted
	p.EmergencyContact = p.EmergencyContactEncrypted
	p.InsurancePolicy = p.InsurancePolicyEncrypted
	p.MedicalHistory = p.MedicalHistoryEncrypted
	fields := fieldcodec.Fields{&p.SSN, &p.EmergencyContact, &p.InsurancePolicy, &p.MedicalHistory}
	if err := fields.Open(ctx, s.codec); err != nil {
		return nil, apperr.Persistence("decrypt patient fields", err)
	}
	return p, nil
}

func sealedFields(p *Patient) fieldcodec.Fields {
	return fieldcodec.Fields{&p.SSNEncrypted, &p.EmergencyContactEncrypted, &p.InsurancePolicyEncrypted, &p.MedicalHistoryEncrypted}
}
