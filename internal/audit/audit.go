// Package audit keeps the append-only trail of who changed what. Entries are
// only ever inserted and listed.
package audit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/identity"
)

const (
	ActionInsert = "INSERT"
	ActionUpdate = "UPDATE"
	ActionDelete = "DELETE"
)

type Entry struct {
	ID        int64           `json:"id"`
	UserID    *uuid.UUID      `json:"user_id,omitempty"`
	Action    string          `json:"action"`
	TableName string          `json:"table_name"`
	RecordID  string          `json:"record_id,omitempty"`
	OldValues json.RawMessage `json:"old_values,omitempty"`
	NewValues json.RawMessage `json:"new_values,omitempty"`
	IPAddress string          `json:"ip_address,omitempty"`
	UserAgent string          `json:"user_agent,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

type Repository interface {
	Append(ctx context.Context, e Entry) error
	ListRecent(ctx context.Context, limit int) ([]Entry, error)
}

// Recorder writes audit entries on behalf of the services. A failed write is
// logged and never fails the operation being audited.
type Recorder struct {
	repo   Repository
	logger zerolog.Logger
}

func NewRecorder(repo Repository, logger zerolog.Logger) *Recorder {
	return &Recorder{repo: repo, logger: logger.With().Str("component", "audit").Logger()}
}

type requestMetaKey struct{}

type RequestMeta struct {
	IPAddress string
	UserAgent string
}

func WithRequestMeta(ctx context.Context, m RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey{}, m)
}

func (r *Recorder) Record(ctx context.Context, actor identity.Identity, action, table, recordID string, before, after any) {
	e := Entry{
		Action:    action,
		TableName: table,
		RecordID:  recordID,
		OldValues: r.marshal(before, table),
		NewValues: r.marshal(after, table),
		Timestamp: time.Now().UTC(),
	}
	if !actor.IsZero() {
		uid := actor.UserID
		e.UserID = &uid
	}
	if m, ok := ctx.Value(requestMetaKey{}).(RequestMeta); ok {
		e.IPAddress = m.IPAddress
		e.UserAgent = m.UserAgent
	}

	if err := r.repo.Append(ctx, e); err != nil {
		r.logger.Error().Err(err).
			Str("action", action).
			Str("table", table).
			Str("record_id", recordID).
			Msg("failed to append audit entry")
	}
}

func (r *Recorder) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	return r.repo.ListRecent(ctx, limit)
}

func (r *Recorder) marshal(v any, table string) json.RawMessage {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		r.logger.Warn().Err(err).Str("table", table).Msg("failed to marshal audit values")
		return nil
	}
	return data
}

// MemoryRepository is an in-process Repository for tests and local runs.
type MemoryRepository struct {
	mu      sync.Mutex
	entries []Entry
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (m *MemoryRepository) Append(_ context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = int64(len(m.entries) + 1)
	m.entries = append(m.entries, e)
	return nil
}

func (m *MemoryRepository) ListRecent(_ context.Context, limit int) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, 0, limit)
	for i := len(m.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.entries[i])
	}
	return out, nil
}
