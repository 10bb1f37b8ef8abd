package medrecord

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

func strPtr(s string) *string { return &s }

func newTestService(t *testing.T) (*Service, *audit.MemoryRepository) {
	t.Helper()
	codec, err := fieldcodec.NewAESCodec([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)
	auditRepo := audit.NewMemoryRepository()
	return NewService(NewMemoryRepository(), codec, audit.NewRecorder(auditRepo, zerolog.Nop()), zerolog.Nop()), auditRepo
}

func TestRecordLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, auditRepo := newTestService(t)
	nurse := identity.Identity{UserID: uuid.New(), Role: identity.RoleNurse}
	patient := uuid.New()

	older, err := svc.Create(ctx, nurse, CreateRequest{
		PatientID: patient,
		DoctorID:  uuid.New(),
		VisitDate: strPtr("2024-03-01"),
		Clinical:  Clinical{ChiefComplaint: strPtr("headache"), VitalSigns: strPtr(`{"bp":"120/80"}`)},
	})
	require.NoError(t, err)
	assert.Equal(t, nurse.UserID, older.CreatedBy)
	require.NotNil(t, older.ChiefComplaintEncrypted)
	assert.NotEqual(t, "headache", *older.ChiefComplaintEncrypted)
	assert.Nil(t, older.DiagnosisEncrypted)

	newer, err := svc.Create(ctx, nurse, CreateRequest{
		PatientID: patient,
		DoctorID:  uuid.New(),
		VisitDate: strPtr("2024-04-10"),
		Clinical:  Clinical{Diagnosis: strPtr("migraine")},
	})
	require.NoError(t, err)

	list, err := svc.ListByPatient(ctx, patient)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
	assert.Equal(t, "migraine", *list[0].Diagnosis)
	assert.Equal(t, "headache", *list[1].ChiefComplaint)

	_, err = svc.Update(ctx, nurse, older.ID, Patch{Clinical: Clinical{Diagnosis: strPtr("tension headache")}})
	require.NoError(t, err)

	got, err := svc.Get(ctx, older.ID)
	require.NoError(t, err)
	assert.Equal(t, "tension headache", *got.Diagnosis)
	assert.Equal(t, "headache", *got.ChiefComplaint)

	entries, err := auditRepo.ListRecent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestRecord_Rejects(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.Create(ctx, identity.Identity{}, CreateRequest{})
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)

	_, err = svc.Create(ctx, identity.Identity{UserID: uuid.New(), Role: identity.RolePatient}, CreateRequest{})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	doc := identity.Identity{UserID: uuid.New(), Role: identity.RoleDoctor}
	_, err = svc.Create(ctx, doc, CreateRequest{PatientID: uuid.New(), DoctorID: uuid.New(), FollowUpDate: strPtr("next week")})
	assert.True(t, apperr.IsValidation(err))

	_, err = svc.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrRecordNotFound)
}
