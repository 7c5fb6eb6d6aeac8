// Package channel defines the delivery channel abstraction and its
// implementations. Each channel sender delivers one rendered message to one
// recipient; the dispatcher composes them into multi-recipient,
// multi-channel sends.
package channel

import (
	"context"
	"strings"

	"github.com/PranavSehgalSJSU/272-Project/internal/store"
)

// Sender is the interface every delivery channel implements.
type Sender interface {
	// Type returns the channel name this sender handles (e.g. "email").
	Type() string

	// Send delivers the rendered message to the recipient. Missing
	// verification or capability for the channel is an error; the caller
	// accounts it as a per-unit delivery failure.
	Send(ctx context.Context, user store.User, header, body string) error
}

// Registry manages channel senders keyed by channel name.
type Registry struct {
	senders map[string]Sender
}

// NewRegistry creates an empty channel registry.
func NewRegistry() *Registry {
	return &Registry{
		senders: make(map[string]Sender),
	}
}

// Register adds a sender, replacing any previous sender for the same type.
func (r *Registry) Register(s Sender) {
	r.senders[s.Type()] = s
}

// Get retrieves a sender by channel name, case-insensitively. "phone" is an
// accepted alias for "sms".
func (r *Registry) Get(name string) (Sender, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "phone" {
		key = "sms"
	}
	s, ok := r.senders[key]
	return s, ok
}

// List returns all registered channel names.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.senders))
	for name := range r.senders {
		names = append(names, name)
	}
	return names
}
