package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/JoshuaWink/terminal-mcp-server/internal/event"
)

type EventRepo struct {
	db *sql.DB
}

func NewEventRepo(db *sql.DB) *EventRepo {
	return &EventRepo{db: db}
}

func (r *EventRepo) Append(ctx context.Context, e event.Event) error {
	var exitCode any
	if e.ExitCode != nil {
		exitCode = *e.ExitCode
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO events (seq, terminal_id, type, text, cwd, exit_code, ts)
VALUES (?, ?, ?, ?, ?, ?, ?)
`,
		e.Seq,
		e.TerminalID,
		string(e.Type),
		e.Text,
		e.CWD,
		exitCode,
		formatTimestamp(e.TS),
	)
	if err != nil {
		return fmt.Errorf("failed to archive event %d: %w", e.Seq, err)
	}
	return nil
}

func (r *EventRepo) ListByTerminal(ctx context.Context, terminalID string, limit int) ([]event.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT seq, terminal_id, type, text, cwd, exit_code, ts
FROM events
WHERE terminal_id = ?
ORDER BY seq
LIMIT ?
`, terminalID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list events for %q: %w", terminalID, err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (r *EventRepo) ListSince(ctx context.Context, since time.Time, limit int) ([]event.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT seq, terminal_id, type, text, cwd, exit_code, ts
FROM events
WHERE ts > ?
ORDER BY seq
LIMIT ?
`, formatTimestamp(since), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list events since %v: %w", since, err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]event.Event, error) {
	var out []event.Event
	for rows.Next() {
		var e event.Event
		var typ, tsRaw string
		var exitCode sql.NullInt64
		if err := rows.Scan(&e.Seq, &e.TerminalID, &typ, &e.Text, &e.CWD, &exitCode, &tsRaw); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Type = event.Type(typ)
		if exitCode.Valid {
			code := int(exitCode.Int64)
			e.ExitCode = &code
		}
		ts, err := parseTimestamp(tsRaw)
		if err != nil {
			return nil, err
		}
		e.TS = ts
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed while iterating events: %w", err)
	}
	return out, nil
}

func formatTimestamp(ts time.Time) string {
	return ts.UTC().Format(time.RFC3339Nano)
}

func parseTimestamp(raw string) (time.Time, error) {
	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", raw, err)
	}
	return ts, nil
}
