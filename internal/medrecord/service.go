package medrecord

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
	"github.com/hackgods/clinic-scheduling/internal/audit"
	"github.com/hackgods/clinic-scheduling/internal/fieldcodec"
	"github.com/hackgods/clinic-scheduling/internal/identity"
)

const auditTable = "medical_records"

// Clinicians may write visit notes.
var Clinicians = []identity.Role{identity.RoleDoctor, identity.RoleNurse, identity.RoleAdmin}

type Service struct {
	repo   Repository
	codec  fieldcodec.Codec
	audit  *audit.Recorder
	logger zerolog.Logger
}

func NewService(repo Repository, codec fieldcodec.Codec, rec *audit.Recorder, logger zerolog.Logger) *Service {
	return &Service{repo: repo, codec: codec, audit: rec, logger: logger.With().Str("component", "medrecord").Logger()}
}

// Create stores a visit note authored by actor. The visit date defaults to
// today.
func (s *Service) Create(ctx context.Context, actor identity.Identity, req CreateRequest) (*Record, error) {
	if err := identity.Require(actor, Clinicians...); err != nil {
		return nil, err
	}
	if req.PatientID == uuid.Nil {
		return nil, apperr.Invalid("patient_id", "is required")
	}
	if req.DoctorID == uuid.Nil {
		return nil, apperr.Invalid("doctor_id", "is required")
	}
	if err := validateDates(req.VisitDate, req.FollowUpDate); err != nil {
		return nil, err
	}

	r := &Record{
		PatientID:    req.PatientID,
		DoctorID:     req.DoctorID,
		FollowUpDate: req.FollowUpDate,
		CreatedBy:    actor.UserID,
	}
	if req.VisitDate != nil {
		r.VisitDate = *req.VisitDate
	}
	clinical := req.Clinical
	if err := clinical.fields().Seal(ctx, s.codec); err != nil {
		return nil, apperr.Persistence("encrypt medical record", err)
	}
	r.ChiefComplaintEncrypted = clinical.ChiefComplaint
	r.DiagnosisEncrypted = clinical.Diagnosis
	r.TreatmentPlanEncrypted = clinical.TreatmentPlan
	r.VitalSignsEncrypted = clinical.VitalSigns
	r.NotesEncrypted = clinical.Notes

	created, err := s.repo.Insert(ctx, r)
	if err != nil {
		return nil, apperr.Persistence("create medical record", err)
	}

	s.audit.Record(ctx, actor, audit.ActionInsert, auditTable, created.ID.String(), nil, created)
	return created, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Record, error) {
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Persistence("get medical record", err, ErrRecordNotFound)
	}
	if err := s.open(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// ListByPatient returns decrypted records, latest visit first.
func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]Record, error) {
	out, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, apperr.Persistence("list medical records", err)
	}
	for i := range out {
		if err := s.open(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Service) Update(ctx context.Context, actor identity.Identity, id uuid.UUID, p Patch) (*Record, error) {
	if err := identity.Require(actor, Clinicians...); err != nil {
		return nil, err
	}
	if err := validateDates(p.VisitDate, p.FollowUpDate); err != nil {
		return nil, err
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Persistence("load medical record", err, ErrRecordNotFound)
	}

	sealed := p
	if err := sealed.fields().Seal(ctx, s.codec); err != nil {
		return nil, apperr.Persistence("encrypt medical record", err)
	}

	updated, err := s.repo.Update(ctx, id, sealed)
	if err != nil {
		return nil, apperr.Persistence("update medical record", err, ErrRecordNotFound)
	}

	s.audit.Record(ctx, actor, audit.ActionUpdate, auditTable, id.String(), current, updated)
	return updated, nil
}

func (s *Service) open(ctx context.Context, r *Record) error {
	plain, sealed := r.plain(), r.sealed()
	for i := range plain {
		*plain[i] = *sealed[i]
	}
	if err := plain.Open(ctx, s.codec); err != nil {
		return apperr.Persistence("decrypt medical record", err)
	}
	return nil
}

func validateDates(visit, followUp *string) error {
	for field, v := range map[string]*string{"visit_date": visit, "follow_up_date": followUp} {
		if v == nil {
			continue
		}
		if _, err := time.Parse("2006-01-02", *v); err != nil {
			return apperr.Invalid(field, "must be a YYYY-MM-DD date")
		}
	}
	return nil
}
