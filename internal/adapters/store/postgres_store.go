package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jadavkeshav/log-management/internal/domain"
	"github.com/jadavkeshav/log-management/internal/ports"
)

// PostgresStore persists log events in a single append-only table. Saves are
// issued by the pipeline fire-and-forget; Recent backs the initial_logs
// frame sent to freshly authenticated sessions.
type PostgresStore struct {
	db    *sql.DB
	table string
}

func NewPostgresStore(db *sql.DB, table string) *PostgresStore {
	return &PostgresStore{db: db, table: table}
}

func (s *PostgresStore) Save(ctx context.Context, event *domain.LogEvent) error {
	query := fmt.Sprintf(`INSERT INTO %s (tenant_id, source_ip, ts, method, url, protocol, status_code, bytes_sent, user_agent, url_length, url_depth, num_encoded_chars, num_special_chars) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`, s.table)

	_, err := s.db.ExecContext(ctx, query,
		event.TenantID,
		event.SourceIP,
		event.Timestamp,
		event.Method,
		event.URL,
		event.Protocol,
		event.StatusCode,
		event.BytesSent,
		event.UserAgent,
		event.URLLength,
		event.URLDepth,
		event.NumEncodedChars,
		event.NumSpecialChars,
	)
	if err != nil {
		return fmt.Errorf("insert log event: %w", err)
	}
	return nil
}

func (s *PostgresStore) Recent(ctx context.Context, tenantID string, limit int) ([]*domain.LogEvent, error) {
	if limit <= 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT tenant_id, source_ip, ts, method, url, protocol, status_code, bytes_sent, user_agent, url_length, url_depth, num_encoded_chars, num_special_chars FROM %s WHERE tenant_id = $1 ORDER BY ts DESC LIMIT $2`, s.table)

	rows, err := s.db.QueryContext(ctx, query, tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent logs: %w", err)
	}
	defer rows.Close()

	var events []*domain.LogEvent
	for rows.Next() {
		var ev domain.LogEvent
		if err := rows.Scan(
			&ev.TenantID,
			&ev.SourceIP,
			&ev.Timestamp,
			&ev.Method,
			&ev.URL,
			&ev.Protocol,
			&ev.StatusCode,
			&ev.BytesSent,
			&ev.UserAgent,
			&ev.URLLength,
			&ev.URLDepth,
			&ev.NumEncodedChars,
			&ev.NumSpecialChars,
		); err != nil {
			return nil, fmt.Errorf("scan log event: %w", err)
		}
		events = append(events, &ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recent logs: %w", err)
	}
	return events, nil
}

var _ ports.LogStore = (*PostgresStore)(nil)
