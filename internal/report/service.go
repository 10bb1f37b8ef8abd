package report

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
	"github.com/hackgods/clinic-scheduling/internal/audit"
	"github.com/hackgods/clinic-scheduling/internal/fieldcodec"
	"github.com/hackgods/clinic-scheduling/internal/identity"
	"github.com/hackgods/clinic-scheduling/internal/storage"
)

const (
	auditTable = "medical_reports"
	keyPrefix  = "medical-reports"

	DefaultURLTTL = 5 * time.Minute
	MaxFileSize   = 20 << 20
)

// Reviewers may sign off and remove reports.
var Reviewers = []identity.Role{identity.RoleDoctor, identity.RoleAdmin}

type Service struct {
	repo   Repository
	store  storage.Store
	codec  fieldcodec.Codec
	audit  *audit.Recorder
	logger zerolog.Logger
	urlTTL time.Duration
	now    func() time.Time
}

// NewService wires the report service. urlTTL <= 0 selects DefaultURLTTL.
func NewService(repo Repository, store storage.Store, codec fieldcodec.Codec, rec *audit.Recorder, logger zerolog.Logger, urlTTL time.Duration) *Service {
	if urlTTL <= 0 {
		urlTTL = DefaultURLTTL
	}
	return &Service{
		repo:   repo,
		store:  store,
		codec:  codec,
		audit:  rec,
		logger: logger.With().Str("component", "report").Logger(),
		urlTTL: urlTTL,
		now:    time.Now,
	}
}

// Upload stores the file (if any) and then the report row. When the row
// cannot be written the stored object is removed again.
func (s *Service) Upload(ctx context.Context, actor identity.Identity, req UploadRequest) (*Report, error) {
	if err := identity.Require(actor, identity.Staff...); err != nil {
		return nil, err
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	r := &Report{
		PatientID:  req.PatientID,
		DoctorID:   req.DoctorID,
		ReportType: req.ReportType,
		ReportDate: req.ReportDate,
		Title:      strings.TrimSpace(req.Title),
		CreatedBy:  actor.UserID,
	}
	var err error
	if r.FindingsEncrypted, err = fieldcodec.SealOptional(ctx, s.codec, req.Findings); err != nil {
		return nil, apperr.Persistence("encrypt findings", err)
	}
	if r.InterpretationEncrypted, err = fieldcodec.SealOptional(ctx, s.codec, req.Interpretation); err != nil {
		return nil, apperr.Persistence("encrypt interpretation", err)
	}

	if f := req.File; f != nil {
		key := s.objectKey(req.PatientID, f.Name)
		info, err := s.store.Put(ctx, key, f.Body, f.Size, f.ContentType)
		if err != nil {
			return nil, apperr.Persistence("store report file", err)
		}
		name, size, mime := f.Name, info.Size, f.ContentType
		r.FilePath, r.FileName, r.FileSize, r.MimeType = &key, &name, &size, &mime
	}

	created, err := s.repo.Insert(ctx, r)
	if err != nil {
		if r.FilePath != nil {
			if derr := s.store.Delete(ctx, *r.FilePath); derr != nil {
				s.logger.Error().Err(derr).Str("key", *r.FilePath).Msg("failed to remove orphaned report file")
			}
		}
		return nil, apperr.Persistence("create medical report", err)
	}

	s.audit.Record(ctx, actor, audit.ActionInsert, auditTable, created.ID.String(), nil, created)
	s.logger.Info().
		Str("report_id", created.ID.String()).
		Str("patient_id", created.PatientID.String()).
		Msg("medical report uploaded")
	return created, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Report, error) {
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Persistence("get medical report", err, ErrReportNotFound)
	}
	if err := s.open(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]Report, error) {
	out, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, apperr.Persistence("list medical reports", err)
	}
	for i := range out {
		if err := s.open(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// DownloadURL returns a presigned link to the report file. ttl <= 0 uses the
// service default.
func (s *Service) DownloadURL(ctx context.Context, id uuid.UUID, ttl time.Duration) (string, error) {
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", apperr.Persistence("get medical report", err, ErrReportNotFound)
	}
	if r.FilePath == nil {
		return "", ErrNoFile
	}
	if ttl <= 0 {
		ttl = s.urlTTL
	}
	url, err := s.store.SignedURL(ctx, *r.FilePath, ttl)
	if err != nil {
		if errors.Is(err, storage.ErrNoObject) {
			return "", ErrNoFile
		}
		return "", apperr.Persistence("sign report url", err)
	}
	return url, nil
}

func (s *Service) Update(ctx context.Context, actor identity.Identity, id uuid.UUID, p Patch) (*Report, error) {
	if err := identity.Require(actor, identity.Staff...); err != nil {
		return nil, err
	}
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return nil, apperr.Invalid("title", "must not be empty")
	}
	if p.ReportDate != nil && !validDate(*p.ReportDate) {
		return nil, apperr.Invalid("report_date", "must be a YYYY-MM-DD date")
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Persistence("load medical report", err, ErrReportNotFound)
	}

	sealed := p
	if err := (fieldcodec.Fields{&sealed.Findings, &sealed.Interpretation}).Seal(ctx, s.codec); err != nil {
		return nil, apperr.Persistence("encrypt report fields", err)
	}

	updated, err := s.repo.Update(ctx, id, sealed)
	if err != nil {
		return nil, apperr.Persistence("update medical report", err, ErrReportNotFound)
	}

	s.audit.Record(ctx, actor, audit.ActionUpdate, auditTable, id.String(), current, updated)
	return updated, nil
}

// Review records actor as the reviewer. Reviewing again moves the timestamp.
func (s *Service) Review(ctx context.Context, actor identity.Identity, id uuid.UUID) (*Report, error) {
	if err := identity.Require(actor, Reviewers...); err != nil {
		return nil, err
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Persistence("load medical report", err, ErrReportNotFound)
	}

	updated, err := s.repo.MarkReviewed(ctx, id, Review{By: actor.UserID, At: s.now().UTC()})
	if err != nil {
		return nil, apperr.Persistence("review medical report", err, ErrReportNotFound)
	}

	s.audit.Record(ctx, actor, audit.ActionUpdate, auditTable, id.String(), current, updated)
	return updated, nil
}

// Delete removes the stored file first, then the row.
func (s *Service) Delete(ctx context.Context, actor identity.Identity, id uuid.UUID) error {
	if err := identity.Require(actor, Reviewers...); err != nil {
		return err
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return apperr.Persistence("load medical report", err, ErrReportNotFound)
	}
	if current.FilePath != nil {
		if err := s.store.Delete(ctx, *current.FilePath); err != nil && !errors.Is(err, storage.ErrNoObject) {
			return apperr.Persistence("delete report file", err)
		}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return apperr.Persistence("delete medical report", err, ErrReportNotFound)
	}

	s.audit.Record(ctx, actor, audit.ActionDelete, auditTable, id.String(), current, nil)
	return nil
}

func (s *Service) open(ctx context.Context, r *Report) error {
	r.Findings, r.Interpretation = r.FindingsEncrypted, r.InterpretationEncrypted
	if err := (fieldcodec.Fields{&r.Findings, &r.Interpretation}).Open(ctx, s.codec); err != nil {
		return apperr.Persistence("decrypt report fields", err)
	}
	return nil
}

// objectKey builds medical-reports/<patient>/<unixnano>-<rand>.<ext>.
func (s *Service) objectKey(patientID uuid.UUID, fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s/%s/%d-%s%s", keyPrefix, patientID, s.now().UnixNano(), suffix, ext)
}

func (r UploadRequest) validate() error {
	if r.PatientID == uuid.Nil {
		return apperr.Invalid("patient_id", "is required")
	}
	if strings.TrimSpace(r.ReportType) == "" {
		return apperr.Invalid("report_type", "is required")
	}
	if strings.TrimSpace(r.Title) == "" {
		return apperr.Invalid("title", "is required")
	}
	if !validDate(r.ReportDate) {
		return apperr.Invalid("report_date", "must be a YYYY-MM-DD date")
	}
	if f := r.File; f != nil {
		if f.Body == nil || f.Size <= 0 {
			return apperr.Invalid("file", "is empty")
		}
		if f.Size > MaxFileSize {
			return apperr.Invalid("file", fmt.Sprintf("exceeds %d bytes", MaxFileSize))
		}
	}
	return nil
}

func validDate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}
