package channel

import (
	"context"
	"fmt"
	"strings"

	"github.com/PranavSehgalSJSU/272-Project/internal/channel/provider"
	"github.com/PranavSehgalSJSU/272-Project/internal/store"
)

// EmailSender delivers alerts by email through the provider registry.
type EmailSender struct {
	providers *provider.Registry
	from      string
}

// NewEmailSender creates an email channel sender over the given provider
// registry. An empty from address falls back to the ALERT_EMAIL_FROM env
// var.
func NewEmailSender(providers *provider.Registry, from string) *EmailSender {
	if from == "" {
		from = provider.GetEnvOrDefault("ALERT_EMAIL_FROM", "alerts@272-project.local")
	}
	return &EmailSender{
		providers: providers,
		from:      from,
	}
}

// Type returns the channel name this sender handles.
func (s *EmailSender) Type() string {
	return "email"
}

// Send delivers the message to the user's email address. An unverified
// email address fails closed without attempting delivery.
func (s *EmailSender) Send(ctx context.Context, user store.User, header, body string) error {
	if !user.VerifiedEmail {
		return fmt.Errorf("email not verified for user %s", user.Username)
	}
	addr := strings.TrimSpace(user.Email)
	if addr == "" {
		return fmt.Errorf("email address is empty for user %s", user.Username)
	}
	if !strings.Contains(addr, "@") {
		return fmt.Errorf("invalid email address %q for user %s", addr, user.Username)
	}

	return s.providers.Send(ctx, &provider.EmailRequest{
		From:    s.from,
		To:      []string{addr},
		Subject: header,
		Body:    body,
	})
}
