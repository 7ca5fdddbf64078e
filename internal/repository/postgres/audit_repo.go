package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xela07ax/brief-governance/internal/trail"
)

// WriteBatch реализует trail.StorageInterface: одна многострочная вставка на пачку.
func (r *Repo) WriteBatch(ctx context.Context, events []trail.Event) error {
	if len(events) == 0 {
		return nil
	}

	// Количество колонок в таблице brief_events
	numFields := 9
	rows := make([]string, 0, len(events))
	vals := make([]any, 0, len(events)*numFields)

	// Динамически строим запрос для пакетной вставки
	for i, e := range events {
		rows = append(rows, "("+placeholders(i*numFields+1, numFields)+")")

		var payload []byte
		if len(e.Payload) > 0 {
			data, err := json.Marshal(e.Payload)
			if err != nil {
				return fmt.Errorf("postgres: failed to encode event %s payload: %w", e.ID, err)
			}
			payload = data
		}

		vals = append(vals,
			e.ID, e.BriefID, e.Type, e.ActorID, e.ActorRole,
			e.FromStatus, e.ToStatus, payload, e.Timestamp,
		)
	}

	query := fmt.Sprintf(
		"INSERT INTO brief_events (id, brief_id, type, actor_id, actor_role, from_status, to_status, payload, timestamp) VALUES %s ON CONFLICT (id) DO NOTHING",
		strings.Join(rows, ", "),
	)

	_, err := r.pool.Exec(ctx, query, vals...)
	return err
}

// FetchEvents история брифа в хронологическом порядке.
func (r *Repo) FetchEvents(ctx context.Context, briefID string) ([]trail.Event, error) {
	query := `
		SELECT id, brief_id, type, actor_id, actor_role, from_status, to_status, payload, timestamp
		FROM brief_events WHERE brief_id = $1
		ORDER BY timestamp, id`

	rows, err := r.pool.Query(ctx, query, briefID)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query events: %w", err)
	}
	defer rows.Close()

	events := make([]trail.Event, 0)
	for rows.Next() {
		var (
			e       trail.Event
			payload []byte
		)
		if err := rows.Scan(&e.ID, &e.BriefID, &e.Type, &e.ActorID, &e.ActorRole, &e.FromStatus, &e.ToStatus, &payload, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan event: %w", err)
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &e.Payload); err != nil {
				return nil, fmt.Errorf("postgres: corrupted payload of event %s: %w", e.ID, err)
			}
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: rows iteration error: %w", err)
	}
	return events, nil
}
