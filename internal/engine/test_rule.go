package engine

import (
	"context"
	"fmt"

	"github.com/PranavSehgalSJSU/272-Project/internal/dispatch"
	"github.com/PranavSehgalSJSU/272-Project/internal/source"
	"github.com/PranavSehgalSJSU/272-Project/internal/store"
)

// TestResult reports what a rule test observed and, for live tests, what it
// did.
type TestResult struct {
	ConditionMet    bool             `json:"conditionMet"`
	SourceData      map[string]any   `json:"sourceData"`
	RecipientCount  int              `json:"recipientCount"`
	RenderedHeader  string           `json:"renderedHeader,omitempty"`
	RenderedContent string           `json:"renderedContent,omitempty"`
	Channels        []string         `json:"channels,omitempty"`
	Fired           bool             `json:"fired"`
	Dispatch        *dispatch.Result `json:"dispatch,omitempty"`
}

// TestRule evaluates a rule on demand, outside the schedule. When mockData
// is non-empty it replaces the source fetch; otherwise the rule's real
// source is queried. With fire=false the call is a dry run reporting what
// would happen. With fire=true the full firing pipeline runs, recording
// test-marked history, but the rule's last-fired timestamp is left alone so
// a test never consumes the rule's daily firing slot.
func (e *Engine) TestRule(ctx context.Context, rule *store.Rule, mockData map[string]any, fire bool) (*TestResult, error) {
	if rule == nil {
		return nil, fmt.Errorf("rule is required")
	}

	var snap source.Snapshot
	if len(mockData) > 0 {
		snap = source.FromMap(mockData)
	} else {
		var err error
		snap, err = e.fetchSnapshot(ctx, rule)
		if err != nil {
			return nil, err
		}
	}

	res := &TestResult{SourceData: snap.ToMap()}

	met, err := e.evaluator.Evaluate(rule.Condition, snap)
	if err != nil {
		return nil, fmt.Errorf("condition invalid: %w", err)
	}
	res.ConditionMet = met
	if !met {
		return res, nil
	}

	recipients, err := e.resolver.Resolve(ctx, rule.Audience)
	if err != nil {
		return nil, fmt.Errorf("audience resolution failed: %w", err)
	}
	res.RecipientCount = len(recipients)

	rendered := e.templater.Render(rule.Message.Header, rule.Message.Content, snap)
	res.RenderedHeader = rendered.Header
	res.RenderedContent = rendered.Body
	res.Channels = rule.Message.Channels

	if !fire || len(recipients) == 0 {
		return res, nil
	}

	outcome, result, err := e.fire(ctx, rule, snap, fireOptions{test: true})
	if err != nil {
		return nil, err
	}
	if outcome == OutcomeFired {
		res.Fired = true
		res.Dispatch = result
	}
	return res, nil
}
