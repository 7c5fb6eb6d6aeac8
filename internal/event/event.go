// Package event defines firing-history events and the recorders that
// persist them.
package event

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/PranavSehgalSJSU/272-Project/internal/dispatch"
	"github.com/PranavSehgalSJSU/272-Project/internal/source"
	"github.com/PranavSehgalSJSU/272-Project/internal/store"
)

// Kind discriminates aggregate events from per-recipient events.
type Kind string

const (
	// KindRuleFired is the single aggregate record written per firing.
	KindRuleFired Kind = "RULE_FIRED"
	// KindUserAlert is the per-recipient record written for audience-visible
	// history.
	KindUserAlert Kind = "USER_ALERT_RECEIVED"
)

// FiringEvent is an immutable record of a rule firing. Aggregate events
// carry recipient counts and the dispatch result; per-recipient events carry
// the recipient identity and a synthesized human-readable message.
type FiringEvent struct {
	EventID    string           `json:"event_id"`
	Kind       Kind             `json:"kind"`
	RuleID     string           `json:"rule_id"`
	RuleName   string           `json:"rule_name"`
	UserID     string           `json:"user_id,omitempty"`
	Message    string           `json:"message,omitempty"`
	Payload    map[string]any   `json:"payload"`
	FiredAt    time.Time        `json:"fired_at"`
	Recipients int              `json:"recipients,omitempty"`
	Result     *dispatch.Result `json:"result,omitempty"`
	Test       bool             `json:"test,omitempty"`
}

// NewAggregate builds the aggregate firing record for a rule.
func NewAggregate(rule *store.Rule, snap source.Snapshot, firedAt time.Time, recipients int, result *dispatch.Result) *FiringEvent {
	return &FiringEvent{
		EventID:    uuid.NewString(),
		Kind:       KindRuleFired,
		RuleID:     rule.RuleID,
		RuleName:   rule.Name,
		Payload:    snap.ToMap(),
		FiredAt:    firedAt,
		Recipients: recipients,
		Result:     result,
	}
}

// NewRecipient builds the per-recipient history record for one user reached
// by a firing.
func NewRecipient(rule *store.Rule, user store.User, header string, result *dispatch.Result, snap source.Snapshot, firedAt time.Time) *FiringEvent {
	return &FiringEvent{
		EventID:  uuid.NewString(),
		Kind:     KindUserAlert,
		RuleID:   rule.RuleID,
		RuleName: rule.Name,
		UserID:   user.UserID,
		Message:  recipientMessage(header, result, snap),
		Payload:  snap.ToMap(),
		FiredAt:  firedAt,
	}
}

// recipientMessage synthesizes the human-readable history line shown to a
// recipient, naming the channels that delivered successfully.
func recipientMessage(header string, result *dispatch.Result, snap source.Snapshot) string {
	var delivered []string
	if result != nil {
		for _, ch := range []string{"email", "sms", "push"} {
			if result.SuccessCounts[ch] > 0 {
				delivered = append(delivered, channelLabel(ch))
			}
		}
	}

	var sb strings.Builder
	if len(delivered) > 0 {
		sb.WriteString("You received ")
		sb.WriteString(joinChannels(delivered))
		sb.WriteString(" alert for: ")
		sb.WriteString(header)
	} else {
		sb.WriteString("Alert attempted for: ")
		sb.WriteString(header)
		sb.WriteString(" (delivery may have failed)")
	}

	if temp, ok := snap["temp_c"]; ok {
		sb.WriteString(fmt.Sprintf(" (Temperature: %s°C)", temp.Render()))
	}
	return sb.String()
}

func channelLabel(ch string) string {
	switch ch {
	case "email":
		return "an email"
	case "sms":
		return "an SMS"
	case "push":
		return "a push"
	}
	return ch
}

func joinChannels(labels []string) string {
	switch len(labels) {
	case 1:
		return labels[0]
	case 2:
		return labels[0] + " and " + labels[1]
	default:
		return strings.Join(labels[:len(labels)-1], ", ") + " and " + labels[len(labels)-1]
	}
}

// Recorder persists firing events. Recording is best effort: implementations
// report errors but callers must never fail a firing on a write failure.
type Recorder interface {
	Record(ctx context.Context, ev *FiringEvent) error
}

// MultiRecorder fans an event out to several recorders, logging failures
// and returning the first error for the caller's accounting.
type MultiRecorder struct {
	recorders []Recorder
}

// NewMultiRecorder creates a fan-out recorder.
func NewMultiRecorder(recorders ...Recorder) *MultiRecorder {
	return &MultiRecorder{recorders: recorders}
}

// Record writes the event to every recorder. All recorders are attempted
// even when an earlier one fails.
func (m *MultiRecorder) Record(ctx context.Context, ev *FiringEvent) error {
	var firstErr error
	for _, r := range m.recorders {
		if err := r.Record(ctx, ev); err != nil {
			slog.Warn("Event recorder failed",
				"event_id", ev.EventID,
				"rule_id", ev.RuleID,
				"error", err,
			)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
