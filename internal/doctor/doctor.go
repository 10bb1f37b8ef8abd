// Package doctor keeps the directory of practitioners that appointments are
// booked against.
package doctor

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrDoctorNotFound   = errors.New("doctor not found")
	ErrDuplicateLicense = errors.New("license number is already registered")
)

type Doctor struct {
	ID              uuid.UUID        `json:"id"`
	ProfileID       uuid.UUID        `json:"profile_id"`
	FirstName       string           `json:"first_name"`
	LastName        string           `json:"last_name"`
	Email           string           `json:"email"`
	LicenseNumber   string           `json:"license_number"`
	Specialization  []string         `json:"specialization"`
	Department      *string          `json:"department,omitempty"`
	ConsultationFee *decimal.Decimal `json:"consultation_fee,omitempty"`
	IsActive        bool             `json:"is_active"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

type CreateRequest struct {
	ProfileID       uuid.UUID
	LicenseNumber   string
	Specialization  []string
	Department      *string
	ConsultationFee *decimal.Decimal
}

type Patch struct {
	Specialization  []string
	Department      *string
	ConsultationFee *decimal.Decimal
	IsActive        *bool
}

type Repository interface {
	Insert(ctx context.Context, d *Doctor) (*Doctor, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	Update(ctx context.Context, id uuid.UUID, p Patch) (*Doctor, error)
	// ListActive returns active doctors ordered by last then first name.
	ListActive(ctx context.Context) ([]Doctor, error)
}
