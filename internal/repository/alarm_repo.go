package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"sensor_monitor/internal/models"

	"github.com/google/uuid"
)

const (
	insertAlarmEventSQL = `
		INSERT INTO alarm_events (id, occurred_at, type, message, meta)
		VALUES (?, ?, ?, ?, ?)
	`
	selectAlarmEventsSQL = `SELECT id, occurred_at, type, message, meta FROM alarm_events`

	// SQLite TIMESTAMP text format
	sqliteTimeLayout = "2006-01-02 15:04:05"
)

type AlarmSQLite struct {
	db *sql.DB
}

func NewAlarmSQLite(db *sql.DB) *AlarmSQLite { return &AlarmSQLite{db: db} }

// Append inserts a new journal entry. Empty EventID or OccurredAt are filled in.
func (r *AlarmSQLite) Append(ctx context.Context, e models.AlarmEvent) error {
	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	} else {
		e.OccurredAt = e.OccurredAt.UTC()
	}

	var metaPtr *string
	if e.Metadata != nil {
		b, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("marshal alarm event metadata: %w", err)
		}
		s := string(b)
		metaPtr = &s
	}

	_, err := r.db.ExecContext(ctx, insertAlarmEventSQL,
		e.EventID,
		e.OccurredAt.Format(sqliteTimeLayout),
		strings.ToUpper(strings.TrimSpace(e.Type)),
		e.Description,
		metaPtr,
	)
	if err != nil {
		return fmt.Errorf("insert alarm event %s: %w", e.EventID, err)
	}
	return nil
}

// List returns entries filtered by [from, to] (inclusive) and/or type, ordered ASC.
func (r *AlarmSQLite) List(ctx context.Context, from, to time.Time, typ string) ([]models.AlarmEvent, error) {
	var (
		conds []string
		args  []any
	)
	if !from.IsZero() {
		conds = append(conds, "occurred_at >= ?")
		args = append(args, from.UTC().Format(sqliteTimeLayout))
	}
	if !to.IsZero() {
		conds = append(conds, "occurred_at <= ?")
		args = append(args, to.UTC().Format(sqliteTimeLayout))
	}
	if typ = strings.ToUpper(strings.TrimSpace(typ)); typ != "" {
		conds = append(conds, "type = ?")
		args = append(args, typ)
	}

	q := selectAlarmEventsSQL
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY occurred_at ASC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query alarm events: %w", err)
	}
	defer rows.Close()

	out := make([]models.AlarmEvent, 0, 64)
	for rows.Next() {
		var ev models.AlarmEvent
		var metaStr sql.NullString
		if err := rows.Scan(&ev.EventID, &ev.OccurredAt, &ev.Type, &ev.Description, &metaStr); err != nil {
			return nil, fmt.Errorf("scan alarm event: %w", err)
		}
		ev.OccurredAt = ev.OccurredAt.UTC()

		if metaStr.Valid && metaStr.String != "" {
			var v any
			if err := json.Unmarshal([]byte(metaStr.String), &v); err == nil {
				ev.Metadata = v
			} else {
				ev.Metadata = metaStr.String // keep raw if malformed
			}
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alarm events: %w", err)
	}
	return out, nil
}
