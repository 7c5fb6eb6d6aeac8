package channel

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/PranavSehgalSJSU/272-Project/internal/store"
)

type staticSender struct {
	channelType string
}

func (s *staticSender) Type() string { return s.channelType }

func (s *staticSender) Send(_ context.Context, _ store.User, _, _ string) error {
	return nil
}

func TestRegistryGet(t *testing.T) {
	registry := NewRegistry()
	registry.Register(&staticSender{channelType: "email"})
	registry.Register(&staticSender{channelType: "sms"})

	tests := []struct {
		name     string
		lookup   string
		expected string
		found    bool
	}{
		{name: "exact match", lookup: "email", expected: "email", found: true},
		{name: "case-insensitive", lookup: "EMAIL", expected: "email", found: true},
		{name: "surrounding whitespace", lookup: " sms ", expected: "sms", found: true},
		{name: "phone aliases to sms", lookup: "phone", expected: "sms", found: true},
		{name: "unknown channel", lookup: "fax", found: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender, ok := registry.Get(tt.lookup)
			if ok != tt.found {
				t.Fatalf("Get(%q) found = %v, want %v", tt.lookup, ok, tt.found)
			}
			if ok && sender.Type() != tt.expected {
				t.Errorf("Get(%q).Type() = %q, want %q", tt.lookup, sender.Type(), tt.expected)
			}
		})
	}
}

func TestSMSSenderGating(t *testing.T) {
	sender := NewSMSSender("http://example.com/sms", "+15550000000", "token")

	tests := []struct {
		name string
		user store.User
	}{
		{
			name: "unverified phone",
			user: store.User{Username: "bob", Phone: "+15551234567", VerifiedPhone: false},
		},
		{
			name: "empty phone",
			user: store.User{Username: "bob", Phone: "", VerifiedPhone: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := sender.Send(context.Background(), tt.user, "header", "body"); err == nil {
				t.Error("Send expected error, got nil")
			}
		})
	}
}

func TestSMSSenderPostsFormToGateway(t *testing.T) {
	var gotBody, gotTo string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm error = %v", err)
		}
		gotTo = r.PostForm.Get("To")
		gotBody = r.PostForm.Get("Body")
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	sender := NewSMSSender(server.URL, "+15550000000", "token")
	user := store.User{Username: "bob", Phone: "+15551234567", VerifiedPhone: true}
	if err := sender.Send(context.Background(), user, "dropped header", "alert body"); err != nil {
		t.Fatalf("Send error = %v", err)
	}

	if gotTo != "+15551234567" {
		t.Errorf("To = %q, want the user's phone", gotTo)
	}
	// SMS carries the body only.
	if gotBody != "alert body" {
		t.Errorf("Body = %q, want %q", gotBody, "alert body")
	}
}

func TestSMSSenderGatewayFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	sender := NewSMSSender(server.URL, "+15550000000", "token")
	user := store.User{Username: "bob", Phone: "+15551234567", VerifiedPhone: true}
	if err := sender.Send(context.Background(), user, "header", "body"); err == nil {
		t.Error("Send expected error on gateway failure")
	}
}

func TestPushSenderGating(t *testing.T) {
	sender := NewPushSender("http://example.com/push", "key")

	user := store.User{Username: "bob"}
	if err := sender.Send(context.Background(), user, "header", "body"); err == nil {
		t.Error("Send expected error for user without push token")
	}
}

func TestPushSenderPostsToGateway(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer key" {
			t.Errorf("Authorization = %q, want Bearer key", got)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sender := NewPushSender(server.URL, "key")
	user := store.User{Username: "bob", PushToken: "tok-123"}
	if err := sender.Send(context.Background(), user, "header", "body"); err != nil {
		t.Fatalf("Send error = %v", err)
	}
}

func TestEmailSenderGating(t *testing.T) {
	sender := NewEmailSender(nil, "alerts@example.com")

	tests := []struct {
		name string
		user store.User
	}{
		{
			name: "unverified email",
			user: store.User{Username: "bob", Email: "bob@example.com", VerifiedEmail: false},
		},
		{
			name: "empty address",
			user: store.User{Username: "bob", Email: "  ", VerifiedEmail: true},
		},
		{
			name: "malformed address",
			user: store.User{Username: "bob", Email: "not-an-address", VerifiedEmail: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := sender.Send(context.Background(), tt.user, "header", "body"); err == nil {
				t.Error("Send expected error, got nil")
			}
		})
	}
}
