// Package dispatch delivers a rendered message to a list of recipients
// across a list of channels, tallying per-channel success and failure. One
// recipient on one channel is the atomic unit of accounting.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/PranavSehgalSJSU/272-Project/internal/channel"
	"github.com/PranavSehgalSJSU/272-Project/internal/retry"
	"github.com/PranavSehgalSJSU/272-Project/internal/store"
)

const defaultWorkerCount = 10

// Result holds per-channel delivery accounting for one dispatch invocation.
type Result struct {
	TotalRecipients int            `json:"total_recipients"`
	SuccessCounts   map[string]int `json:"success_counts"`
	FailureCounts   map[string]int `json:"failure_counts"`
	TotalSuccess    int            `json:"total_success"`
	TotalFailures   int            `json:"total_failures"`
}

func newResult(recipients int, channels []string) *Result {
	r := &Result{
		TotalRecipients: recipients,
		SuccessCounts:   make(map[string]int, len(channels)),
		FailureCounts:   make(map[string]int, len(channels)),
	}
	for _, ch := range channels {
		r.SuccessCounts[ch] = 0
		r.FailureCounts[ch] = 0
	}
	return r
}

// unit is one recipient on one channel.
type unit struct {
	user    store.User
	channel string
}

// Dispatcher fans a message out to recipients across channels using a
// bounded worker pool. Ordering between recipients is not guaranteed.
type Dispatcher struct {
	channels *channel.Registry
	retryCfg retry.Config
	workers  int
}

// NewDispatcher creates a dispatcher over the given channel registry.
func NewDispatcher(channels *channel.Registry) *Dispatcher {
	return &Dispatcher{
		channels: channels,
		retryCfg: retry.DefaultConfig(),
		workers:  defaultWorkerCount,
	}
}

// SetWorkers overrides the worker pool size. Values below 1 reset to 1.
func (d *Dispatcher) SetWorkers(n int) {
	if n < 1 {
		n = 1
	}
	d.workers = n
}

// Dispatch delivers the message to every eligible recipient on every
// requested channel. Recipients who are inactive or have opted out of
// alerts are skipped entirely: no attempt, no failure count. Each remaining
// recipient×channel unit is attempted independently; a failed unit never
// aborts the others.
func (d *Dispatcher) Dispatch(ctx context.Context, recipients []store.User, header, body string, channels []string) *Result {
	result := newResult(len(recipients), channels)

	var units []unit
	for _, user := range recipients {
		if !user.Active || !user.AllowAlerts {
			slog.Debug("Skipping recipient", "user", user.Username,
				"active", user.Active, "allow_alerts", user.AllowAlerts)
			continue
		}
		for _, ch := range channels {
			units = append(units, unit{user: user, channel: ch})
		}
	}
	if len(units) == 0 {
		return result
	}

	workers := d.workers
	if workers > len(units) {
		workers = len(units)
	}

	jobs := make(chan unit, workers*2)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for u := range jobs {
				ok := d.sendUnit(ctx, u.user, header, body, u.channel)
				mu.Lock()
				if ok {
					result.SuccessCounts[u.channel]++
					result.TotalSuccess++
				} else {
					result.FailureCounts[u.channel]++
					result.TotalFailures++
				}
				mu.Unlock()
			}
		}()
	}

	for _, u := range units {
		jobs <- u
	}
	close(jobs)
	wg.Wait()

	return result
}

// DispatchOne delivers to a single recipient on a single channel. It reuses
// the same per-unit logic as Dispatch so the bulk and individual send paths
// cannot diverge.
func (d *Dispatcher) DispatchOne(ctx context.Context, user store.User, header, body, channelName string) bool {
	return d.sendUnit(ctx, user, header, body, channelName)
}

// sendUnit attempts one recipient×channel delivery with retry. Any error,
// including missing verification or an unknown channel, counts as a failure
// for this unit only.
func (d *Dispatcher) sendUnit(ctx context.Context, user store.User, header, body, channelName string) bool {
	sender, ok := d.channels.Get(channelName)
	if !ok {
		slog.Error("Unknown channel requested", "channel", channelName, "user", user.Username)
		return false
	}

	operation := fmt.Sprintf("send_%s_%s", sender.Type(), user.UserID)
	err := retry.WithRetry(ctx, d.retryCfg, operation, func() error {
		return sender.Send(ctx, user, header, body)
	})
	if err != nil {
		slog.Warn("Delivery failed",
			"channel", sender.Type(),
			"user", user.Username,
			"error", err,
		)
		return false
	}
	return true
}
