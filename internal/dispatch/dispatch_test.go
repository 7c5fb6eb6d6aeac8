package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/PranavSehgalSJSU/272-Project/internal/channel"
	"github.com/PranavSehgalSJSU/272-Project/internal/store"
)

// fakeSender records sends and fails for users listed in failFor. Failures
// use a non-retryable error so tests do not sit through backoff.
type fakeSender struct {
	channelType string
	failFor     map[string]bool

	mu    sync.Mutex
	sends []string
}

func (f *fakeSender) Type() string { return f.channelType }

func (f *fakeSender) Send(_ context.Context, user store.User, _, _ string) error {
	f.mu.Lock()
	f.sends = append(f.sends, user.UserID)
	f.mu.Unlock()
	if f.failFor[user.UserID] {
		return errors.New("recipient not verified")
	}
	return nil
}

func (f *fakeSender) sentTo() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sends...)
}

func newTestDispatcher(senders ...*fakeSender) *Dispatcher {
	registry := channel.NewRegistry()
	for _, s := range senders {
		registry.Register(s)
	}
	d := NewDispatcher(registry)
	d.SetWorkers(2)
	return d
}

func eligibleUser(id string) store.User {
	return store.User{
		UserID:        id,
		Username:      id,
		Email:         id + "@example.com",
		Active:        true,
		AllowAlerts:   true,
		VerifiedEmail: true,
	}
}

func TestDispatchTalliesPerChannel(t *testing.T) {
	email := &fakeSender{channelType: "email"}
	sms := &fakeSender{channelType: "sms", failFor: map[string]bool{"u2": true}}
	d := newTestDispatcher(email, sms)

	recipients := []store.User{eligibleUser("u1"), eligibleUser("u2")}
	result := d.Dispatch(context.Background(), recipients, "header", "body", []string{"email", "sms"})

	if result.TotalRecipients != 2 {
		t.Errorf("TotalRecipients = %d, want 2", result.TotalRecipients)
	}
	if result.SuccessCounts["email"] != 2 {
		t.Errorf("SuccessCounts[email] = %d, want 2", result.SuccessCounts["email"])
	}
	if result.SuccessCounts["sms"] != 1 {
		t.Errorf("SuccessCounts[sms] = %d, want 1", result.SuccessCounts["sms"])
	}
	if result.FailureCounts["sms"] != 1 {
		t.Errorf("FailureCounts[sms] = %d, want 1", result.FailureCounts["sms"])
	}
	if result.TotalSuccess != 3 || result.TotalFailures != 1 {
		t.Errorf("totals = %d/%d, want 3/1", result.TotalSuccess, result.TotalFailures)
	}
}

func TestDispatchSkipsIneligibleRecipients(t *testing.T) {
	email := &fakeSender{channelType: "email"}
	d := newTestDispatcher(email)

	inactive := eligibleUser("u1")
	inactive.Active = false
	optedOut := eligibleUser("u2")
	optedOut.AllowAlerts = false

	result := d.Dispatch(context.Background(), []store.User{inactive, optedOut, eligibleUser("u3")},
		"header", "body", []string{"email"})

	// Skipped recipients generate neither an attempt nor a failure.
	if result.TotalSuccess != 1 {
		t.Errorf("TotalSuccess = %d, want 1", result.TotalSuccess)
	}
	if result.TotalFailures != 0 {
		t.Errorf("TotalFailures = %d, want 0", result.TotalFailures)
	}
	sent := email.sentTo()
	if len(sent) != 1 || sent[0] != "u3" {
		t.Errorf("sends = %v, want [u3]", sent)
	}
}

func TestDispatchUnknownChannelCountsAsFailure(t *testing.T) {
	d := newTestDispatcher(&fakeSender{channelType: "email"})

	result := d.Dispatch(context.Background(), []store.User{eligibleUser("u1")},
		"header", "body", []string{"email", "carrier-pigeon"})

	if result.SuccessCounts["email"] != 1 {
		t.Errorf("SuccessCounts[email] = %d, want 1", result.SuccessCounts["email"])
	}
	if result.FailureCounts["carrier-pigeon"] != 1 {
		t.Errorf("FailureCounts[carrier-pigeon] = %d, want 1", result.FailureCounts["carrier-pigeon"])
	}
}

func TestDispatchZeroInitializesRequestedChannels(t *testing.T) {
	d := newTestDispatcher(&fakeSender{channelType: "email"})

	result := d.Dispatch(context.Background(), nil, "header", "body", []string{"email", "sms"})

	for _, ch := range []string{"email", "sms"} {
		if count, ok := result.SuccessCounts[ch]; !ok || count != 0 {
			t.Errorf("SuccessCounts[%s] = %d (present %v), want 0 present", ch, count, ok)
		}
		if count, ok := result.FailureCounts[ch]; !ok || count != 0 {
			t.Errorf("FailureCounts[%s] = %d (present %v), want 0 present", ch, count, ok)
		}
	}
}

func TestDispatchOne(t *testing.T) {
	email := &fakeSender{channelType: "email", failFor: map[string]bool{"u2": true}}
	d := newTestDispatcher(email)

	if !d.DispatchOne(context.Background(), eligibleUser("u1"), "header", "body", "email") {
		t.Error("DispatchOne = false for deliverable unit, want true")
	}
	if d.DispatchOne(context.Background(), eligibleUser("u2"), "header", "body", "email") {
		t.Error("DispatchOne = true for failing unit, want false")
	}
	if d.DispatchOne(context.Background(), eligibleUser("u3"), "header", "body", "fax") {
		t.Error("DispatchOne = true for unknown channel, want false")
	}
}

func TestDispatchChannelNameAliasing(t *testing.T) {
	sms := &fakeSender{channelType: "sms"}
	d := newTestDispatcher(sms)

	// "phone" resolves to the sms sender but is tallied under the
	// requested name.
	result := d.Dispatch(context.Background(), []store.User{eligibleUser("u1")},
		"header", "body", []string{"phone"})

	if result.SuccessCounts["phone"] != 1 {
		t.Errorf("SuccessCounts[phone] = %d, want 1", result.SuccessCounts["phone"])
	}
	if sent := sms.sentTo(); len(sent) != 1 {
		t.Errorf("sms sends = %v, want one send", sent)
	}
}
