// Package profile stores the people behind identities: their role, name and
// contact details. Phone and address are sealed with the field codec.
package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
	"github.com/hackgods/clinic-scheduling/internal/audit"
	"github.com/hackgods/clinic-scheduling/internal/db"
	"github.com/hackgods/clinic-scheduling/internal/fieldcodec"
	"github.com/hackgods/clinic-scheduling/internal/identity"
)

var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrDuplicateEmail  = errors.New("email is already registered")
)

type Profile struct {
	ID               uuid.UUID     `json:"id"`
	Role             identity.Role `json:"role"`
	FirstName        string        `json:"first_name"`
	LastName         string        `json:"last_name"`
	Email            string        `json:"email"`
	DateOfBirth      *string       `json:"date_of_birth,omitempty"`
	PhoneEncrypted   *string       `json:"-"`
	AddressEncrypted *string       `json:"-"`
	Phone            *string       `json:"phone,omitempty"`
	Address          *string       `json:"address,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

type CreateRequest struct {
	// ID is the identity's user id; a new one is generated when nil.
	ID          uuid.UUID
	Role        identity.Role
	FirstName   string
	LastName    string
	Email       string
	DateOfBirth *string
	Phone       *string
	Address     *string
}

type Repository interface {
	Insert(ctx context.Context, p *Profile) (*Profile, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Profile, error)
}

type Service struct {
	repo   Repository
	codec  fieldcodec.Codec
	audit  *audit.Recorder
	logger zerolog.Logger
}

func NewService(repo Repository, codec fieldcodec.Codec, rec *audit.Recorder, logger zerolog.Logger) *Service {
	return &Service{repo: repo, codec: codec, audit: rec, logger: logger.With().Str("component", "profile").Logger()}
}

// Create registers a profile. Only admins create profiles for others.
func (s *Service) Create(ctx context.Context, actor identity.Identity, req CreateRequest) (*Profile, error) {
	if err := identity.Require(actor, identity.RoleAdmin); err != nil {
		return nil, err
	}
	if !req.Role.Valid() {
		return nil, apperr.Invalid("role", fmt.Sprintf("unknown role %q", req.Role))
	}
	if strings.TrimSpace(req.FirstName) == "" || strings.TrimSpace(req.LastName) == "" {
		return nil, apperr.Invalid("name", "first and last name are required")
	}
	if !strings.Contains(req.Email, "@") {
		return nil, apperr.Invalid("email", "must be an email address")
	}
	if req.DateOfBirth != nil {
		if _, err := time.Parse("2006-01-02", *req.DateOfBirth); err != nil {
			return nil, apperr.Invalid("date_of_birth", "must be a YYYY-MM-DD date")
		}
	}

	p := &Profile{
		ID:               req.ID,
		Role:             req.Role,
		FirstName:        strings.TrimSpace(req.FirstName),
		LastName:         strings.TrimSpace(req.LastName),
		Email:            strings.ToLower(strings.TrimSpace(req.Email)),
		DateOfBirth:      req.DateOfBirth,
		PhoneEncrypted:   req.Phone,
		AddressEncrypted: req.Address,
	}
	if err := (fieldcodec.Fields{&p.PhoneEncrypted, &p.AddressEncrypted}).Seal(ctx, s.codec); err != nil {
		return nil, apperr.Persistence("encrypt profile fields", err)
	}

	created, err := s.repo.Insert(ctx, p)
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return nil, apperr.Invalid("email", "is already registered")
		}
		return nil, apperr.Persistence("create profile", err)
	}

	s.audit.Record(ctx, actor, audit.ActionInsert, "profiles", created.ID.String(), nil, created)
	return created, nil
}

// Get returns a profile with contact details decrypted.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Profile, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Persistence("get profile", err, ErrProfileNotFound)
	}
	p.Phone, p.Address = p.PhoneEncrypted, p.AddressEncrypted
	if err := (fieldcodec.Fields{&p.Phone, &p.Address}).Open(ctx, s.codec); err != nil {
		return nil, apperr.Persistence("decrypt profile fields", err)
	}
	return p, nil
}

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) Insert(ctx context.Context, p *Profile) (*Profile, error) {
	id := p.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO profiles (id, role, first_name, last_name, email, date_of_birth, phone_encrypted, address_encrypted)
		VALUES ($1, $2, $3, $4, $5, $6::date, $7, $8)
	`, id, p.Role, p.FirstName, p.LastName, p.Email, p.DateOfBirth, p.PhoneEncrypted, p.AddressEncrypted)
	if err != nil {
		if db.IsUniqueViolation(err, "profiles_email_key") {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("insert profile: %w", err)
	}
	return r.GetByID(ctx, id)
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Profile, error) {
	var p Profile
	err := r.pool.QueryRow(ctx, `
		SELECT id, role, first_name, last_name, email, date_of_birth::text, phone_encrypted, address_encrypted,
		       created_at, updated_at
		FROM profiles
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Role, &p.FirstName, &p.LastName, &p.Email, &p.DateOfBirth,
		&p.PhoneEncrypted, &p.AddressEncrypted, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return &p, nil
}

type MemoryRepository struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*Profile
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byID: make(map[uuid.UUID]*Profile)}
}

func (m *MemoryRepository) Insert(_ context.Context, p *Profile) (*Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.byID {
		if other.Email == p.Email {
			return nil, ErrDuplicateEmail
		}
	}
	cp := *p
	if cp.ID == uuid.Nil {
		cp.ID = uuid.New()
	}
	now := time.Now().UTC()
	cp.CreatedAt, cp.UpdatedAt = now, now
	m.byID[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *MemoryRepository) GetByID(_ context.Context, id uuid.UUID) (*Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return nil, ErrProfileNotFound
	}
	out := *p
	return &out, nil
}
