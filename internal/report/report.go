// Package report manages uploaded medical reports: the file lives in the
// object store, the metadata and sealed findings in Postgres.
package report

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
)

var (
	ErrReportNotFound = errors.New("medical report not found")
	ErrNoFile         = errors.New("medical report has no attached file")
)

type Report struct {
	ID                      uuid.UUID  `json:"id"`
	PatientID               uuid.UUID  `json:"patient_id"`
	DoctorID                *uuid.UUID `json:"doctor_id,omitempty"`
	ReportType              string     `json:"report_type"`
	ReportDate              string     `json:"report_date"`
	Title                   string     `json:"title"`
	FindingsEncrypted       *string    `json:"-"`
	InterpretationEncrypted *string    `json:"-"`
	Findings                *string    `json:"findings,omitempty"`
	Interpretation          *string    `json:"interpretation,omitempty"`
	FilePath                *string    `json:"file_path,omitempty"`
	FileName                *string    `json:"file_name,omitempty"`
	FileSize                *int64     `json:"file_size,omitempty"`
	MimeType                *string    `json:"mime_type,omitempty"`
	IsReviewed              bool       `json:"is_reviewed"`
	ReviewedBy              *uuid.UUID `json:"reviewed_by,omitempty"`
	ReviewedAt              *time.Time `json:"reviewed_at,omitempty"`
	CreatedBy               uuid.UUID  `json:"created_by"`
	CreatedAt               time.Time  `json:"created_at"`
	UpdatedAt               time.Time  `json:"updated_at"`
}

// File is an upload body. Size must match the bytes readable from Body.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.ReadSeeker
}

type UploadRequest struct {
	PatientID      uuid.UUID
	DoctorID       *uuid.UUID
	ReportType     string
	ReportDate     string
	Title          string
	Findings       *string
	Interpretation *string
	File           *File
}

type Patch struct {
	ReportType     *string
	ReportDate     *string
	Title          *string
	Findings       *string
	Interpretation *string
}

// Review marks who signed a report off and when.
type Review struct {
	By uuid.UUID
	At time.Time
}

type Repository interface {
	Insert(ctx context.Context, r *Report) (*Report, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Report, error)
	// ListByPatient returns the patient's reports, latest report date first.
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]Report, error)
	Update(ctx context.Context, id uuid.UUID, p Patch) (*Report, error)
	MarkReviewed(ctx context.Context, id uuid.UUID, rv Review) (*Report, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
