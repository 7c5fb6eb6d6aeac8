package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// StatusAdapter probes an HTTP health endpoint and normalizes whatever shape
// it answers with into a flat OK/DOWN snapshot.
type StatusAdapter struct {
	httpClient *http.Client
	now        func() time.Time
}

// NewStatusAdapter creates a status adapter with a bounded request timeout.
func NewStatusAdapter() *StatusAdapter {
	return &StatusAdapter{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		now: time.Now,
	}
}

// Type returns the source type this adapter handles.
func (a *StatusAdapter) Type() Type {
	return TypeStatus
}

// Fetch requests the endpoint named by the "url" param. Any transport
// failure degrades to a DOWN snapshot rather than an error, so status rules
// can alert on outages of the very endpoint they watch.
func (a *StatusAdapter) Fetch(ctx context.Context, params map[string]any) (Snapshot, error) {
	endpoint := stringParam(params, "url")
	if endpoint == "" {
		return nil, fmt.Errorf("status source requires a url param")
	}

	start := a.now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return a.down(endpoint, err.Error()), nil
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		slog.Warn("Status check failed", "url", endpoint, "error", err)
		return a.down(endpoint, err.Error()), nil
	}
	defer resp.Body.Close()

	elapsed := a.now().Sub(start)

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		body = nil
	}

	status := "UNKNOWN"
	if resp.StatusCode >= 400 {
		status = "DOWN"
	} else if s := probeStatusKeys(body); s != "" {
		status = s
	} else if len(body) > 0 || resp.StatusCode < 300 {
		// Any healthy-looking answer counts as OK.
		status = "OK"
	}

	return Snapshot{
		"status":           String(normalizeStatus(status)),
		"url":              String(endpoint),
		"http_status":      Number(float64(resp.StatusCode)),
		"response_time_ms": Number(float64(elapsed.Milliseconds())),
		"timestamp":        String(a.now().UTC().Format(time.RFC3339)),
	}, nil
}

// probeStatusKeys looks for the status field under the names commonly used
// by health endpoints.
func probeStatusKeys(body map[string]any) string {
	for _, key := range []string{"status", "health", "state"} {
		if s, ok := body[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// normalizeStatus collapses provider-specific health vocabulary to OK/DOWN.
func normalizeStatus(status string) string {
	upper := strings.ToUpper(status)
	for _, healthy := range []string{"OK", "UP", "HEALTHY", "ONLINE"} {
		if strings.Contains(upper, healthy) {
			return "OK"
		}
	}
	return "DOWN"
}

func (a *StatusAdapter) down(endpoint, errMsg string) Snapshot {
	return Snapshot{
		"status":           String("DOWN"),
		"url":              String(endpoint),
		"error":            String(errMsg),
		"response_time_ms": Number(-1),
		"timestamp":        String(a.now().UTC().Format(time.RFC3339)),
	}
}
