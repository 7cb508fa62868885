package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jpodivin/mpm/internal/security"
)

// Store records audit events. It implements security.AuditSink.
type Store struct {
	db *sql.DB
}

var _ security.AuditSink = (*Store)(nil)

// Record inserts event.
func (s *Store) Record(ctx context.Context, event security.AuditEvent) error {
	meta := event.Metadata
	if meta == nil {
		meta = map[string]string{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("sqlite: marshal metadata: %w", err)
	}

	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_events (ts, type, tool_name, detail, metadata)
		VALUES (?, ?, ?, ?, ?)`,
		ts.UTC().Format(time.RFC3339Nano),
		string(event.Type), event.ToolName, event.Detail, string(metaJSON),
	)
	if err != nil {
		return fmt.Errorf("sqlite: record audit event: %w", err)
	}
	return nil
}

// Recent returns up to limit events, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]security.AuditEvent, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT ts, type, tool_name, detail, metadata
		FROM audit_events
		ORDER BY id DESC
		LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query audit events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []security.AuditEvent
	for rows.Next() {
		var (
			ts, typ, metaJSON string
			ev                security.AuditEvent
		)
		if err := rows.Scan(&ts, &typ, &ev.ToolName, &ev.Detail, &metaJSON); err != nil {
			return nil, fmt.Errorf("sqlite: scan audit event: %w", err)
		}
		ev.Type = security.EventType(typ)
		if ev.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("sqlite: parse timestamp %q: %w", ts, err)
		}
		if err := json.Unmarshal([]byte(metaJSON), &ev.Metadata); err != nil {
			return nil, fmt.Errorf("sqlite: unmarshal metadata: %w", err)
		}
		if len(ev.Metadata) == 0 {
			ev.Metadata = nil
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate audit events: %w", err)
	}
	return events, nil
}

// Count returns the number of stored events of type typ, or of all types
// when typ is empty.
func (s *Store) Count(ctx context.Context, typ security.EventType) (int, error) {
	var count int
	var err error
	if typ == "" {
		err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_events").Scan(&count)
	} else {
		err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_events WHERE type = ?", string(typ)).Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("sqlite: count audit events: %w", err)
	}
	return count, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}
