package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-scheduling/internal/audit"
	"github.com/hackgods/clinic-scheduling/internal/billing"
	"github.com/hackgods/clinic-scheduling/internal/fieldcodec"
	"github.com/hackgods/clinic-scheduling/internal/identity"
)

func TestRunOnce_MarksPastDueInvoices(t *testing.T) {
	codec, err := fieldcodec.NewAESCodec([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)

	repo := billing.NewMemoryRepository()
	svc := billing.NewService(repo, codec, audit.NewRecorder(audit.NewMemoryRepository(), zerolog.Nop()), zerolog.Nop())
	ctx := context.Background()
	clerk := identity.Identity{UserID: uuid.New(), Role: identity.RoleReceptionist}

	late, err := svc.Create(ctx, clerk, billing.CreateRequest{PatientID: uuid.New(), Amount: decimal.NewFromInt(40), DueDate: "2020-01-01"})
	require.NoError(t, err)
	current, err := svc.Create(ctx, clerk, billing.CreateRequest{PatientID: uuid.New(), Amount: decimal.NewFromInt(40), DueDate: "2999-01-01"})
	require.NoError(t, err)

	var buf bytes.Buffer
	runOnce(ctx, svc, zerolog.New(&buf))

	got, err := svc.Get(ctx, late.ID)
	require.NoError(t, err)
	assert.Equal(t, billing.StatusOverdue, got.Status)

	got, err = svc.Get(ctx, current.ID)
	require.NoError(t, err)
	assert.Equal(t, billing.StatusPending, got.Status)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "overdue sweep complete", line["message"])
	assert.EqualValues(t, 1, line["marked"])
}
