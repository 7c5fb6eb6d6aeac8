package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/PranavSehgalSJSU/272-Project/internal/source"
)

// ruleColumns is the select list shared by every rule query.
const ruleColumns = `rule_id, name, source, params, condition, message, audience,
	cooldown_minutes, last_fired_at, enabled, created_at, updated_at`

// ListEnabledRules returns every enabled rule, oldest first so long-lived
// rules are evaluated before newly created ones.
func (db *DB) ListEnabledRules(ctx context.Context) ([]*Rule, error) {
	query := `
		SELECT ` + ruleColumns + `
		FROM rules
		WHERE enabled = TRUE
		ORDER BY created_at ASC
	`
	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list enabled rules: %w", err)
	}
	defer rows.Close()

	var rules []*Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rules: %w", err)
	}
	return rules, nil
}

// GetRule retrieves a rule by ID.
func (db *DB) GetRule(ctx context.Context, ruleID string) (*Rule, error) {
	query := `
		SELECT ` + ruleColumns + `
		FROM rules
		WHERE rule_id = $1
	`
	row := db.conn.QueryRowContext(ctx, query, ruleID)
	rule, err := scanRule(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("rule not found: %s", ruleID)
	}
	if err != nil {
		return nil, err
	}
	return rule, nil
}

// UpdateRule persists management-surface edits to a rule. The engine itself
// only ever calls MarkFired.
func (db *DB) UpdateRule(ctx context.Context, rule *Rule) (*Rule, error) {
	params, message, audienceJSON, err := marshalRuleFields(rule)
	if err != nil {
		return nil, err
	}

	query := `
		UPDATE rules
		SET name = $2, source = $3, params = $4, condition = $5, message = $6,
		    audience = $7, cooldown_minutes = $8, enabled = $9, updated_at = NOW()
		WHERE rule_id = $1
		RETURNING ` + ruleColumns
	row := db.conn.QueryRowContext(ctx, query,
		rule.RuleID, rule.Name, string(rule.Source), params, rule.Condition,
		message, audienceJSON, rule.CooldownMinutes, rule.Enabled,
	)
	updated, err := scanRule(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("rule not found: %s", rule.RuleID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update rule: %w", err)
	}
	return updated, nil
}

// MarkFired conditionally advances the rule's last-fired timestamp. The
// update only applies when last_fired_at still equals prev, so two racing
// fires cannot both record the same firing window; the loser sees false.
func (db *DB) MarkFired(ctx context.Context, ruleID string, prev *time.Time, firedAt time.Time) (bool, error) {
	query := `
		UPDATE rules
		SET last_fired_at = $2, updated_at = NOW()
		WHERE rule_id = $1 AND last_fired_at IS NOT DISTINCT FROM $3
	`
	result, err := db.conn.ExecContext(ctx, query, ruleID, firedAt, prev)
	if err != nil {
		return false, fmt.Errorf("failed to mark rule fired: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		slog.Warn("Last-fired update lost a race, another fire already recorded",
			"rule_id", ruleID,
		)
		return false, nil
	}
	return true, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRule(row scanner) (*Rule, error) {
	var (
		rule         Rule
		sourceType   string
		params       sql.NullString
		message      sql.NullString
		audienceJSON sql.NullString
		lastFired    sql.NullTime
	)
	err := row.Scan(
		&rule.RuleID,
		&rule.Name,
		&sourceType,
		&params,
		&rule.Condition,
		&message,
		&audienceJSON,
		&rule.CooldownMinutes,
		&lastFired,
		&rule.Enabled,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan rule: %w", err)
	}

	rule.Source = source.Type(sourceType)
	if lastFired.Valid {
		t := lastFired.Time
		rule.LastFiredAt = &t
	}
	if params.Valid && params.String != "" {
		if err := json.Unmarshal([]byte(params.String), &rule.Params); err != nil {
			slog.Warn("Failed to unmarshal rule params", "rule_id", rule.RuleID, "error", err)
			rule.Params = make(map[string]any)
		}
	}
	if message.Valid && message.String != "" {
		if err := json.Unmarshal([]byte(message.String), &rule.Message); err != nil {
			slog.Warn("Failed to unmarshal rule message", "rule_id", rule.RuleID, "error", err)
		}
	}
	if audienceJSON.Valid && audienceJSON.String != "" {
		var aud RuleAudience
		if err := json.Unmarshal([]byte(audienceJSON.String), &aud); err != nil {
			slog.Warn("Failed to unmarshal rule audience", "rule_id", rule.RuleID, "error", err)
		} else {
			rule.Audience = &aud
		}
	}
	return &rule, nil
}

func marshalRuleFields(rule *Rule) (params, message, audience []byte, err error) {
	params, err = json.Marshal(rule.Params)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal rule params: %w", err)
	}
	message, err = json.Marshal(rule.Message)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal rule message: %w", err)
	}
	if rule.Audience != nil {
		audience, err = json.Marshal(rule.Audience)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to marshal rule audience: %w", err)
		}
	}
	return params, message, audience, nil
}
