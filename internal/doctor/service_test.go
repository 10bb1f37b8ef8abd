package doctor

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
	"github.com/hackgods/clinic-scheduling/internal/audit"
	"github.com/hackgods/clinic-scheduling/internal/identity"
)

var admin = identity.Identity{UserID: uuid.New(), Role: identity.RoleAdmin}

func TestDoctorLifecycle(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryRepository(), audit.NewRecorder(audit.NewMemoryRepository(), zerolog.Nop()), zerolog.Nop())

	fee := decimal.RequireFromString("75.00")
	d, err := svc.Create(ctx, admin, CreateRequest{
		ProfileID:       uuid.New(),
		LicenseNumber:   " MD-1001 ",
		Specialization:  []string{"cardiology"},
		ConsultationFee: &fee,
	})
	require.NoError(t, err)
	assert.Equal(t, "MD-1001", d.LicenseNumber)
	assert.True(t, d.IsActive)

	_, err = svc.Create(ctx, admin, CreateRequest{ProfileID: uuid.New(), LicenseNumber: "MD-1001"})
	assert.True(t, apperr.IsValidation(err), "duplicate license is rejected")

	doctorActor := identity.Identity{UserID: uuid.New(), Role: identity.RoleDoctor}
	_, err = svc.Create(ctx, doctorActor, CreateRequest{ProfileID: uuid.New(), LicenseNumber: "MD-2"})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	neg := decimal.NewFromInt(-5)
	_, err = svc.Update(ctx, admin, d.ID, Patch{ConsultationFee: &neg})
	assert.True(t, apperr.IsValidation(err))

	off := false
	_, err = svc.Update(ctx, admin, d.ID, Patch{IsActive: &off})
	require.NoError(t, err)

	active, err := svc.ListActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	got, err := svc.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.True(t, got.ConsultationFee.Equal(fee))

	_, err = svc.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrDoctorNotFound)
}
