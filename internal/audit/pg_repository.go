package audit

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) Append(ctx context.Context, e Entry) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO audit_logs (user_id, action, table_name, record_id, old_values, new_values, ip_address, user_agent, timestamp)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, NULLIF($7, ''), NULLIF($8, ''), $9)
	`, e.UserID, e.Action, e.TableName, e.RecordID, nullableJSON(e.OldValues), nullableJSON(e.NewValues),
		e.IPAddress, e.UserAgent, e.Timestamp)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

func (r *PgRepository) ListRecent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, action, table_name, COALESCE(record_id, ''), old_values, new_values,
		       COALESCE(ip_address, ''), COALESCE(user_agent, ''), timestamp
		FROM audit_logs
		ORDER BY timestamp DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	defer rows.Close()

	var result []Entry
	for rows.Next() {
		var e Entry
		var oldValues, newValues []byte
		if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &e.TableName, &e.RecordID,
			&oldValues, &newValues, &e.IPAddress, &e.UserAgent, &e.Timestamp); err != nil {
			return nil, err
		}
		e.OldValues = oldValues
		e.NewValues = newValues
		result = append(result, e)
	}

	return result, rows.Err()
}

func nullableJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
