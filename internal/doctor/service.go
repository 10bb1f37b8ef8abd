package doctor

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
	"github.com/hackgods/clinic-scheduling/internal/audit"
	"github.com/hackgods/clinic-scheduling/internal/identity"
)

const auditTable = "doctors"

type Service struct {
	repo   Repository
	audit  *audit.Recorder
	logger zerolog.Logger
}

func NewService(repo Repository, rec *audit.Recorder, logger zerolog.Logger) *Service {
	return &Service{repo: repo, audit: rec, logger: logger.With().Str("component", "doctor").Logger()}
}

func (s *Service) Create(ctx context.Context, actor identity.Identity, req CreateRequest) (*Doctor, error) {
	if err := identity.Require(actor, identity.RoleAdmin); err != nil {
		return nil, err
	}
	if req.ProfileID == uuid.Nil {
		return nil, apperr.Invalid("profile_id", "is required")
	}
	if strings.TrimSpace(req.LicenseNumber) == "" {
		return nil, apperr.Invalid("license_number", "is required")
	}
	if req.ConsultationFee != nil && req.ConsultationFee.IsNegative() {
		return nil, apperr.Invalid("consultation_fee", "must not be negative")
	}

	created, err := s.repo.Insert(ctx, &Doctor{
		ProfileID:       req.ProfileID,
		LicenseNumber:   strings.TrimSpace(req.LicenseNumber),
		Specialization:  req.Specialization,
		Department:      req.Department,
		ConsultationFee: req.ConsultationFee,
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateLicense) {
			return nil, apperr.Invalid("license_number", "is already registered")
		}
		return nil, apperr.Persistence("create doctor", err)
	}

	s.audit.Record(ctx, actor, audit.ActionInsert, auditTable, created.ID.String(), nil, created)
	s.logger.Info().Str("doctor_id", created.ID.String()).Msg("doctor registered")
	return created, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Persistence("get doctor", err, ErrDoctorNotFound)
	}
	return d, nil
}

func (s *Service) Update(ctx context.Context, actor identity.Identity, id uuid.UUID, p Patch) (*Doctor, error) {
	if err := identity.Require(actor, identity.RoleAdmin); err != nil {
		return nil, err
	}
	if p.ConsultationFee != nil && p.ConsultationFee.IsNegative() {
		return nil, apperr.Invalid("consultation_fee", "must not be negative")
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Persistence("load doctor", err, ErrDoctorNotFound)
	}
	updated, err := s.repo.Update(ctx, id, p)
	if err != nil {
		return nil, apperr.Persistence("update doctor", err, ErrDoctorNotFound)
	}

	s.audit.Record(ctx, actor, audit.ActionUpdate, auditTable, id.String(), current, updated)
	return updated, nil
}

func (s *Service) ListActive(ctx context.Context) ([]Doctor, error) {
	out, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, apperr.Persistence("list doctors", err)
	}
	return out, nil
}
