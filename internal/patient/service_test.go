package patient

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
	"github.com/hackgods/clinic-scheduling/internal/audit"
	"github.com/hackgods/clinic-scheduling/internal/fieldcodec"
	"github.com/hackgods/clinic-scheduling/internal/identity"
)

var nurse = identity.Identity{UserID: uuid.New(), Role: identity.RoleNurse}

func newTestService(t *testing.T) (*Service, *MemoryRepository) {
	t.Helper()
	codec, err := fieldcodec.NewAESCodec([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)
	repo := NewMemoryRepository()
	return NewService(repo, codec, audit.NewRecorder(audit.NewMemoryRepository(), zerolog.Nop()), zerolog.Nop()), repo
}

func strPtr(s string) *string { return &s }

func TestNumber(t *testing.T) {
	assert.Equal(t, "PAT000001", Number(1))
	assert.Equal(t, "PAT123456", Number(123456))
}

func TestCreateAndGet(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	profile := uuid.New()

	created, err := svc.Create(ctx, nurse, CreateRequest{
		ProfileID:         profile,
		ChronicConditions: []string{"diabetes"},
		SSN:               strPtr("123-45-6789"),
		MedicalHistory:    strPtr("appendectomy 2011"),
	})
	require.NoError(t, err)
	assert.Equal(t, "PAT000001", created.PatientNumber)
	assert.True(t, created.IsActive)
	assert.NotEqual(t, "123-45-6789", *created.SSNEncrypted)
	assert.Nil(t, created.SSN)

	stored, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.NotContains(t, *stored.MedicalHistoryEncrypted, "appendectomy")

	got, err := svc.GetByProfile(ctx, profile)
	require.NoError(t, err)
	assert.Equal(t, "123-45-6789", *got.SSN)
	assert.Equal(t, "appendectomy 2011", *got.MedicalHistory)
	assert.Nil(t, got.EmergencyContact)

	second, err := svc.Create(ctx, nurse, CreateRequest{ProfileID: uuid.New()})
	require.NoError(t, err)
	assert.Equal(t, "PAT000002", second.PatientNumber)
	assert.Equal(t, []string{}, second.Allergies)
}

func TestCreate_Rejects(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, identity.Identity{UserID: uuid.New(), Role: identity.RolePatient}, CreateRequest{ProfileID: uuid.New()})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = svc.Create(ctx, identity.Identity{}, CreateRequest{ProfileID: uuid.New()})
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)

	_, err = svc.Create(ctx, nurse, CreateRequest{})
	assert.True(t, apperr.IsValidation(err))
}

func TestUpdateAndListActive(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, nurse, CreateRequest{ProfileID: uuid.New()})
	require.NoError(t, err)
	b, err := svc.Create(ctx, nurse, CreateRequest{ProfileID: uuid.New()})
	require.NoError(t, err)

	inactive := false
	_, err = svc.Update(ctx, nurse, a.ID, Patch{IsActive: &inactive})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, nurse, b.ID, Patch{
		ChronicConditions: []string{"asthma"},
		EmergencyContact:  strPtr("Jane +1 555 0100"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"asthma"}, updated.ChronicConditions)

	got, err := svc.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane +1 555 0100", *got.EmergencyContact)

	active, err := svc.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, b.ID, active[0].ID)

	_, err = svc.Update(ctx, nurse, uuid.New(), Patch{})
	assert.ErrorIs(t, err, ErrPatientNotFound)
}
