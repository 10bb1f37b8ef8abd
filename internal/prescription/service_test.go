package prescription

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
	"github.com/hackgods/clinic-scheduling/internal/audit"
	"github.com/hackgods/clinic-scheduling/internal/fieldcodec"
	"github.com/hackgods/clinic-scheduling/internal/identity"
)

func TestPrescriptionLifecycle(t *testing.T) {
	ctx := context.Background()
	codec, err := fieldcodec.NewAESCodec([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)

	repo := NewMemoryRepository()
	day := 0
	repo.now = func() time.Time {
		day++
		return time.Date(2024, 6, day, 9, 0, 0, 0, time.UTC)
	}
	svc := NewService(repo, codec, audit.NewRecorder(audit.NewMemoryRepository(), zerolog.Nop()), zerolog.Nop())
	doc := identity.Identity{UserID: uuid.New(), Role: identity.RoleDoctor}
	patient := uuid.New()

	base := CreateRequest{
		PatientID:      patient,
		DoctorID:       uuid.New(),
		MedicationName: "Metformin",
		Dosage:         "500mg",
		Frequency:      "twice daily",
		Duration:       "90 days",
		RefillsAllowed: 2,
	}

	first, err := svc.Create(ctx, doc, base)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, first.Status)
	assert.NotEqual(t, "Metformin", first.MedicationNameEncrypted)

	second := base
	second.MedicationName = "Lisinopril"
	second.Instructions = func() *string { s := "take with water"; return &s }()
	p2, err := svc.Create(ctx, doc, second)
	require.NoError(t, err)

	all, err := svc.ListByPatient(ctx, patient)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Lisinopril", all[0].MedicationName, "newest first")
	assert.Equal(t, "take with water", *all[0].Instructions)
	assert.Equal(t, "500mg", all[1].Dosage)

	done := StatusCompleted
	newDose := "1000mg"
	updated, err := svc.Update(ctx, doc, first.ID, Patch{Status: &done, Dosage: &newDose})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, updated.Status)
	assert.NotEqual(t, newDose, updated.DosageEncrypted)

	active, err := svc.ListActiveByPatient(ctx, patient)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, p2.ID, active[0].ID)

	all, err = svc.ListByPatient(ctx, patient)
	require.NoError(t, err)
	assert.Equal(t, "1000mg", all[1].Dosage)
}

func TestPrescription_Rejects(t *testing.T) {
	ctx := context.Background()
	codec, err := fieldcodec.NewAESCodec([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)
	svc := NewService(NewMemoryRepository(), codec, audit.NewRecorder(audit.NewMemoryRepository(), zerolog.Nop()), zerolog.Nop())
	doc := identity.Identity{UserID: uuid.New(), Role: identity.RoleDoctor}

	_, err = svc.Create(ctx, identity.Identity{UserID: uuid.New(), Role: identity.RoleReceptionist}, CreateRequest{})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = svc.Create(ctx, doc, CreateRequest{PatientID: uuid.New(), DoctorID: uuid.New(), MedicationName: "X", Dosage: "1", Frequency: "daily"})
	assert.True(t, apperr.IsValidation(err), "duration is required")

	bad := Status("paused")
	_, err = svc.Update(ctx, doc, uuid.New(), Patch{Status: &bad})
	assert.True(t, apperr.IsValidation(err))

	_, err = svc.Update(ctx, doc, uuid.New(), Patch{})
	assert.ErrorIs(t, err, ErrPrescriptionNotFound)
}
