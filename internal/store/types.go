// Package store provides Postgres-backed persistence for rules, users, and
// firing history.
package store

import (
	"time"

	"github.com/PranavSehgalSJSU/272-Project/internal/source"
)

// RuleMessage is the message template attached to a rule: header, body, and
// the ordered list of channels to deliver on.
type RuleMessage struct {
	Header   string   `json:"header"`
	Content  string   `json:"content"`
	Channels []string `json:"channels"`
}

// RuleAudience is the targeting specification for a rule. A nil audience
// matches nobody; an absent filter dimension means no constraint on that
// dimension.
type RuleAudience struct {
	City string   `json:"city,omitempty"`
	Tags []string `json:"tags,omitempty"`
}

// Rule is a user-authored alert definition. The engine mutates only
// LastFiredAt; everything else is owned by the management surface.
type Rule struct {
	RuleID          string         `json:"rule_id"`
	Name            string         `json:"name"`
	Source          source.Type    `json:"source"`
	Params          map[string]any `json:"params"`
	Condition       string         `json:"condition"`
	Message         RuleMessage    `json:"message"`
	Audience        *RuleAudience  `json:"audience"`
	CooldownMinutes int            `json:"cooldown_minutes"`
	LastFiredAt     *time.Time     `json:"last_fired_at"`
	Enabled         bool           `json:"enabled"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// User is a notification recipient as the user directory exposes it. The
// engine only reads these fields.
type User struct {
	UserID        string   `json:"user_id"`
	Username      string   `json:"username"`
	Email         string   `json:"email"`
	Phone         string   `json:"phone"`
	PushToken     string   `json:"push_token"`
	City          string   `json:"city"`
	Tags          []string `json:"tags"`
	Active        bool     `json:"active"`
	AllowAlerts   bool     `json:"allow_alerts"`
	VerifiedEmail bool     `json:"verified_email"`
	VerifiedPhone bool     `json:"verified_phone"`
}
