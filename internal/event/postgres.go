package event

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// PostgresRecorder persists firing events to the events history table so
// the management surface can query per-rule and per-user history.
type PostgresRecorder struct {
	conn *sql.DB
}

// NewPostgresRecorder creates a Postgres-backed event recorder over an
// existing connection.
func NewPostgresRecorder(conn *sql.DB) *PostgresRecorder {
	return &PostgresRecorder{conn: conn}
}

// Record inserts the event. Events are immutable: insert only, no updates.
func (r *PostgresRecorder) Record(ctx context.Context, ev *FiringEvent) error {
	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	var result []byte
	if ev.Result != nil {
		result, err = json.Marshal(ev.Result)
		if err != nil {
			return fmt.Errorf("failed to marshal event result: %w", err)
		}
	}

	query := `
		INSERT INTO events (event_id, kind, rule_id, rule_name, user_id, message,
		                    payload, fired_at, recipients, result, test)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7, $8, $9, $10, $11)
	`
	_, err = r.conn.ExecContext(ctx, query,
		ev.EventID, string(ev.Kind), ev.RuleID, ev.RuleName, ev.UserID,
		ev.Message, payload, ev.FiredAt, ev.Recipients, result, ev.Test,
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}
