package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/PranavSehgalSJSU/272-Project/internal/store"
)

// pushPayload is the JSON body posted to the push gateway.
type pushPayload struct {
	Token string `json:"token"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

// PushSender delivers alerts through an HTTP push-notification gateway.
type PushSender struct {
	gatewayURL string
	apiKey     string
	httpClient *http.Client
}

// NewPushSender creates a push channel sender.
func NewPushSender(gatewayURL, apiKey string) *PushSender {
	return &PushSender{
		gatewayURL: gatewayURL,
		apiKey:     apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Type returns the channel name this sender handles.
func (s *PushSender) Type() string {
	return "push"
}

// Send delivers the message to the user's push token. A user without a push
// token fails closed without attempting delivery.
func (s *PushSender) Send(ctx context.Context, user store.User, header, body string) error {
	if user.PushToken == "" {
		return fmt.Errorf("no push token for user %s", user.Username)
	}
	if s.gatewayURL == "" {
		return fmt.Errorf("push gateway not configured")
	}

	payload, err := json.Marshal(pushPayload{
		Token: user.PushToken,
		Title: header,
		Body:  body,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.gatewayURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("push gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("push gateway returned status %d: %s", resp.StatusCode, string(respBody))
	}

	slog.Debug("Push notification sent", "user", user.Username)
	return nil
}
