// Package engine orchestrates rule evaluation: on a fixed schedule it loads
// enabled rules, applies cooldown gating, fetches source data, evaluates
// conditions, and fires matching rules through audience resolution,
// templating, dispatch, and history recording.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/PranavSehgalSJSU/272-Project/internal/audience"
	"github.com/PranavSehgalSJSU/272-Project/internal/condition"
	"github.com/PranavSehgalSJSU/272-Project/internal/cooldown"
	"github.com/PranavSehgalSJSU/272-Project/internal/dispatch"
	"github.com/PranavSehgalSJSU/272-Project/internal/event"
	"github.com/PranavSehgalSJSU/272-Project/internal/metrics"
	"github.com/PranavSehgalSJSU/272-Project/internal/source"
	"github.com/PranavSehgalSJSU/272-Project/internal/store"
	"github.com/PranavSehgalSJSU/272-Project/internal/template"
)

const defaultFetchWorkers = 5

// Outcome names the terminal state a rule reached within one cycle.
type Outcome string

const (
	OutcomeSkippedDisabled Outcome = "skipped_disabled"
	OutcomeSkippedCooldown Outcome = "skipped_cooldown"
	OutcomeConfigError     Outcome = "config_error"
	OutcomeConditionFalse  Outcome = "condition_false"
	OutcomeNoAudience      Outcome = "no_audience"
	OutcomeFired           Outcome = "fired"
	OutcomeError           Outcome = "error"
)

// RuleStore is the rule persistence collaborator.
type RuleStore interface {
	// ListEnabledRules returns every enabled rule.
	ListEnabledRules(ctx context.Context) ([]*store.Rule, error)

	// MarkFired conditionally advances the rule's last-fired timestamp,
	// returning false when another fire won the race.
	MarkFired(ctx context.Context, ruleID string, prev *time.Time, firedAt time.Time) (bool, error)
}

// FireGuard is the atomic per-day firing lock.
type FireGuard interface {
	Acquire(ctx context.Context, ruleID string, now time.Time) (bool, error)
	Release(ctx context.Context, ruleID string, now time.Time) error
}

// Engine ties the evaluation pipeline together.
type Engine struct {
	rules      RuleStore
	sources    *source.Registry
	evaluator  *condition.Evaluator
	resolver   *audience.Resolver
	templater  *template.Templater
	dispatcher *dispatch.Dispatcher
	recorder   event.Recorder
	guard      FireGuard
	collector  *metrics.Collector

	fetchWorkers int
	now          func() time.Time
}

// New creates an engine. The metrics collector may be a no-op collector but
// must not be nil.
func New(rules RuleStore, sources *source.Registry, resolver *audience.Resolver,
	dispatcher *dispatch.Dispatcher, recorder event.Recorder, guard FireGuard,
	collector *metrics.Collector) *Engine {
	return &Engine{
		rules:        rules,
		sources:      sources,
		evaluator:    condition.NewEvaluator(),
		resolver:     resolver,
		templater:    template.NewTemplater(),
		dispatcher:   dispatcher,
		recorder:     recorder,
		guard:        guard,
		collector:    collector,
		fetchWorkers: defaultFetchWorkers,
		now:          time.Now,
	}
}

// SetFetchWorkers bounds how many source fetches run concurrently within a
// cycle. Values below 1 reset to 1.
func (e *Engine) SetFetchWorkers(n int) {
	if n < 1 {
		n = 1
	}
	e.fetchWorkers = n
}

// SetClock overrides the engine's time source for tests.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// Run evaluates all rules on the given interval until the context is
// cancelled. The first cycle runs immediately.
func (e *Engine) Run(ctx context.Context, interval time.Duration) {
	slog.Info("Starting rule evaluation loop", "interval", interval)

	e.RunCycle(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Rule evaluation loop stopped")
			return
		case <-ticker.C:
			e.RunCycle(ctx)
		}
	}
}

// RunCycle evaluates every enabled rule once. Rules are isolated: no
// per-rule failure aborts the cycle, and every rule gets a logged outcome.
func (e *Engine) RunCycle(ctx context.Context) {
	start := e.now()
	slog.Info("Starting evaluation cycle")

	rules, err := e.rules.ListEnabledRules(ctx)
	if err != nil {
		slog.Error("Failed to load enabled rules, skipping cycle", "error", err)
		e.collector.RecordError()
		return
	}

	// Cooldown gating happens before fetching so rules in cooldown cost no
	// provider calls.
	var due []*store.Rule
	for _, rule := range rules {
		switch {
		case !rule.Enabled:
			e.logOutcome(rule, OutcomeSkippedDisabled, nil)
		case !cooldown.Eligible(rule.LastFiredAt, e.now()):
			e.logOutcome(rule, OutcomeSkippedCooldown, nil)
		default:
			due = append(due, rule)
		}
	}

	// Fetch stage: independent rules' fetches run concurrently, bounded.
	// Each result is applied only to its own rule.
	snapshots := e.prefetch(ctx, due)

	// Evaluation stage: sequential, in rule order.
	for _, rule := range due {
		fetched, ok := snapshots[rule.RuleID]
		if !ok {
			continue // outcome already logged by prefetch
		}
		e.collector.RecordEvaluated()
		e.evaluateRule(ctx, rule, fetched)
	}

	elapsed := e.now().Sub(start)
	e.collector.RecordCycle(elapsed)
	slog.Info("Completed evaluation cycle",
		"rules", len(rules),
		"evaluated", len(due),
		"elapsed", elapsed,
	)
}

// prefetch fetches snapshots for all due rules with a bounded worker pool.
// Rules whose source type is unregistered get a config-error outcome and no
// snapshot entry.
func (e *Engine) prefetch(ctx context.Context, rules []*store.Rule) map[string]source.Snapshot {
	type result struct {
		ruleID string
		snap   source.Snapshot
		err    error
	}

	jobs := make(chan *store.Rule)
	results := make(chan result)

	workers := e.fetchWorkers
	if workers > len(rules) {
		workers = len(rules)
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for rule := range jobs {
				snap, err := e.fetchSnapshot(ctx, rule)
				results <- result{ruleID: rule.RuleID, snap: snap, err: err}
			}
		}()
	}

	go func() {
		for _, rule := range rules {
			jobs <- rule
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	byID := make(map[string]*store.Rule, len(rules))
	for _, rule := range rules {
		byID[rule.RuleID] = rule
	}

	snapshots := make(map[string]source.Snapshot, len(rules))
	for res := range results {
		if res.err != nil {
			e.logOutcome(byID[res.ruleID], OutcomeConfigError, res.err)
			e.collector.RecordError()
			continue
		}
		snapshots[res.ruleID] = res.snap
	}
	return snapshots
}

// fetchSnapshot looks up the rule's adapter and fetches its data. An
// unregistered source type is a configuration error for this rule only.
func (e *Engine) fetchSnapshot(ctx context.Context, rule *store.Rule) (source.Snapshot, error) {
	adapter, err := e.sources.Get(rule.Source)
	if err != nil {
		return nil, err
	}
	snap, err := adapter.Fetch(ctx, rule.Params)
	if err != nil {
		return nil, fmt.Errorf("source fetch failed for rule %s: %w", rule.Name, err)
	}
	return snap, nil
}

// evaluateRule runs one rule's condition against its snapshot and fires it
// when the condition holds.
func (e *Engine) evaluateRule(ctx context.Context, rule *store.Rule, snap source.Snapshot) {
	met, err := e.evaluator.Evaluate(rule.Condition, snap)
	if err != nil {
		e.logOutcome(rule, OutcomeConfigError, err)
		e.collector.RecordError()
		return
	}
	if !met {
		e.logOutcome(rule, OutcomeConditionFalse, nil)
		return
	}

	outcome, _, err := e.fire(ctx, rule, snap, fireOptions{acquireGuard: true, markFired: true})
	e.logOutcome(rule, outcome, err)
}

// fireOptions controls side effects of a firing. Scheduled firings take the
// daily guard and advance last-fired; live test firings do neither so a
// test cannot consume the rule's daily slot.
type fireOptions struct {
	acquireGuard bool
	markFired    bool
	test         bool
}

// fire performs the firing pipeline: audience, render, dispatch, history,
// last-fired update. It is shared by the scheduled path and TestRule.
func (e *Engine) fire(ctx context.Context, rule *store.Rule, snap source.Snapshot, opts fireOptions) (Outcome, *dispatch.Result, error) {
	firedAt := e.now()

	if opts.acquireGuard {
		ok, err := e.guard.Acquire(ctx, rule.RuleID, firedAt)
		if err != nil {
			// Degrade to the timestamp check alone rather than blocking
			// all firing on a Redis outage.
			slog.Warn("Firing guard unavailable, proceeding without it",
				"rule_id", rule.RuleID, "error", err)
		} else if !ok {
			return OutcomeSkippedCooldown, nil, nil
		}
	}

	recipients, err := e.resolver.Resolve(ctx, rule.Audience)
	if err != nil {
		e.releaseGuard(ctx, rule, firedAt, opts)
		return OutcomeError, nil, fmt.Errorf("audience resolution failed: %w", err)
	}
	if len(recipients) == 0 {
		// No dispatch, no events, no last-fired update.
		e.releaseGuard(ctx, rule, firedAt, opts)
		return OutcomeNoAudience, nil, nil
	}

	rendered := e.templater.Render(rule.Message.Header, rule.Message.Content, snap)
	result := e.dispatcher.Dispatch(ctx, recipients, rendered.Header, rendered.Body, rule.Message.Channels)
	e.collector.RecordDispatch(result.TotalSuccess, result.TotalFailures)

	e.recordEvents(ctx, rule, snap, firedAt, recipients, rendered, result, opts.test)

	if opts.markFired {
		prev := rule.LastFiredAt
		updated, err := e.rules.MarkFired(ctx, rule.RuleID, prev, firedAt)
		if err != nil {
			// Firing already happened; history is best effort, the
			// persistence failure is logged and the cycle moves on.
			slog.Error("Failed to persist last-fired timestamp",
				"rule_id", rule.RuleID, "error", err)
			e.collector.RecordError()
		} else if updated {
			t := firedAt
			rule.LastFiredAt = &t
		}
	}

	e.collector.RecordFired()
	slog.Info("Fired rule",
		"rule_id", rule.RuleID,
		"rule", rule.Name,
		"recipients", len(recipients),
		"success", result.TotalSuccess,
		"failures", result.TotalFailures,
		"test", opts.test,
	)
	return OutcomeFired, result, nil
}

func (e *Engine) releaseGuard(ctx context.Context, rule *store.Rule, firedAt time.Time, opts fireOptions) {
	if !opts.acquireGuard {
		return
	}
	if err := e.guard.Release(ctx, rule.RuleID, firedAt); err != nil {
		slog.Warn("Failed to release firing guard", "rule_id", rule.RuleID, "error", err)
	}
}

// recordEvents writes the aggregate firing record plus one history record
// per recipient. Recorder failures are logged, never propagated: firing is
// considered to have happened regardless.
func (e *Engine) recordEvents(ctx context.Context, rule *store.Rule, snap source.Snapshot,
	firedAt time.Time, recipients []store.User, rendered template.Rendered,
	result *dispatch.Result, test bool) {

	aggregate := event.NewAggregate(rule, snap, firedAt, len(recipients), result)
	aggregate.Test = test
	if err := e.recorder.Record(ctx, aggregate); err != nil {
		slog.Warn("Failed to record firing event", "rule_id", rule.RuleID, "error", err)
		e.collector.RecordError()
	}

	for _, user := range recipients {
		ev := event.NewRecipient(rule, user, rendered.Header, result, snap, firedAt)
		ev.Test = test
		if err := e.recorder.Record(ctx, ev); err != nil {
			slog.Warn("Failed to record recipient event",
				"rule_id", rule.RuleID, "user_id", user.UserID, "error", err)
			e.collector.RecordError()
		}
	}
}

// CountAudience reports how many users an audience spec targets.
func (e *Engine) CountAudience(ctx context.Context, spec *store.RuleAudience) (int, error) {
	return e.resolver.CountAudience(ctx, spec)
}

func (e *Engine) logOutcome(rule *store.Rule, outcome Outcome, err error) {
	attrs := []any{
		"rule_id", rule.RuleID,
		"rule", rule.Name,
		"outcome", string(outcome),
	}
	if err != nil {
		attrs = append(attrs, "error", err)
	}

	switch outcome {
	case OutcomeConfigError, OutcomeError:
		slog.Error("Rule evaluation failed", attrs...)
	case OutcomeSkippedDisabled, OutcomeSkippedCooldown:
		e.collector.RecordSkipped()
		slog.Debug("Rule skipped", attrs...)
	default:
		slog.Debug("Rule evaluated", attrs...)
	}
}
