package channel

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PranavSehgalSJSU/272-Project/internal/store"
)

// SMSSender delivers alerts through an HTTP SMS gateway (Twilio-style
// form-encoded POST).
type SMSSender struct {
	gatewayURL string
	from       string
	authToken  string
	httpClient *http.Client
}

// NewSMSSender creates an SMS channel sender. With an empty gateway URL the
// sender is registered but every send fails, which surfaces as per-unit
// delivery failures rather than a startup error.
func NewSMSSender(gatewayURL, from, authToken string) *SMSSender {
	return &SMSSender{
		gatewayURL: gatewayURL,
		from:       from,
		authToken:  authToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Type returns the channel name this sender handles.
func (s *SMSSender) Type() string {
	return "sms"
}

// Send delivers the message body to the user's phone number. SMS carries
// only the body; the header is dropped. An unverified phone fails closed
// without attempting delivery.
func (s *SMSSender) Send(ctx context.Context, user store.User, _ string, body string) error {
	if !user.VerifiedPhone {
		return fmt.Errorf("phone not verified for user %s", user.Username)
	}
	number := strings.TrimSpace(user.Phone)
	if number == "" {
		return fmt.Errorf("phone number is empty for user %s", user.Username)
	}
	if s.gatewayURL == "" {
		return fmt.Errorf("SMS gateway not configured")
	}

	form := url.Values{}
	form.Set("From", s.from)
	form.Set("To", number)
	form.Set("Body", body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.gatewayURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build SMS request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if s.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.authToken)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("SMS gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("SMS gateway returned status %d: %s", resp.StatusCode, string(respBody))
	}

	slog.Debug("SMS sent", "to", number)
	return nil
}
