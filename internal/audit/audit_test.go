package audit

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-scheduling/internal/identity"
)

func TestRecorder_RecordAndRecent(t *testing.T) {
	repo := NewMemoryRepository()
	rec := NewRecorder(repo, zerolog.Nop())
	actor := identity.Identity{UserID: uuid.New(), Role: identity.RoleDoctor}

	ctx := WithRequestMeta(context.Background(), RequestMeta{IPAddress: "10.0.0.7", UserAgent: "dashboard"})
	rec.Record(ctx, actor, ActionInsert, "appointments", "a-1", nil, map[string]string{"status": "scheduled"})
	rec.Record(ctx, actor, ActionUpdate, "appointments", "a-1",
		map[string]string{"status": "scheduled"}, map[string]string{"status": "confirmed"})

	entries, err := rec.Recent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	latest := entries[0]
	assert.Equal(t, ActionUpdate, latest.Action)
	assert.Equal(t, "appointments", latest.TableName)
	assert.Equal(t, actor.UserID, *latest.UserID)
	assert.Equal(t, "10.0.0.7", latest.IPAddress)
	assert.JSONEq(t, `{"status":"scheduled"}`, string(latest.OldValues))
	assert.JSONEq(t, `{"status":"confirmed"}`, string(latest.NewValues))

	assert.Nil(t, entries[1].OldValues)
}

func TestRecorder_AnonymousActor(t *testing.T) {
	repo := NewMemoryRepository()
	rec := NewRecorder(repo, zerolog.Nop())

	rec.Record(context.Background(), identity.Identity{}, ActionUpdate, "billing", "b-1", nil, nil)

	entries, err := repo.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Nil(t, entries[0].UserID)
}

type brokenRepo struct{}

func (brokenRepo) Append(context.Context, Entry) error { return errors.New("db down") }
func (brokenRepo) ListRecent(context.Context, int) ([]Entry, error) {
	return nil, errors.New("db down")
}

func TestRecorder_FailureIsLoggedNotReturned(t *testing.T) {
	var buf bytes.Buffer
	rec := NewRecorder(brokenRepo{}, zerolog.New(&buf))

	rec.Record(context.Background(), identity.Identity{}, ActionDelete, "medical_reports", "r-1", nil, nil)

	assert.Contains(t, buf.String(), "failed to append audit entry")
	assert.Contains(t, buf.String(), "medical_reports")
}
