// Package openmeteo implements forecast and geocode acquisition against the
// Open-Meteo APIs.
package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/skycast-tui/skycast/internal/domain"
)

const (
	defaultForecastURL   = "https://api.open-meteo.com/v1/forecast"
	defaultAirQualityURL = "https://air-quality-api.open-meteo.com/v1/air-quality"
	defaultGeocodeURL    = "https://geocoding-api.open-meteo.com/v1/search"

	forecastTimeout = 10 * time.Second
	geocodeTimeout  = 8 * time.Second

	userAgent = "skycast/0.1"
)

// Client talks to the Open-Meteo forecast, air-quality and geocoding APIs.
// The forecast path runs behind a circuit breaker; a tripped breaker
// surfaces as an ordinary fetch error so retry policy is unaffected.
type Client struct {
	http          *http.Client
	forecastURL   string
	airQualityURL string
	geocodeURL    string
	breaker       *gobreaker.CircuitBreaker
	log           *zap.Logger
}

// Option adjusts a Client. Used by tests to point at a local server.
type Option func(*Client)

func WithForecastURL(u string) Option   { return func(c *Client) { c.forecastURL = u } }
func WithAirQualityURL(u string) Option { return func(c *Client) { c.airQualityURL = u } }
func WithGeocodeURL(u string) Option    { return func(c *Client) { c.geocodeURL = u } }

func New(log *zap.Logger, opts ...Option) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Client{
		http:          &http.Client{Timeout: forecastTimeout},
		forecastURL:   defaultForecastURL,
		airQualityURL: defaultAirQualityURL,
		geocodeURL:    defaultGeocodeURL,
		log:           log,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "open-meteo-forecast",
		Timeout: 60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchForecast retrieves the full bundle for a location. The air-quality
// side-fetch is best effort; its failure never fails the forecast.
func (c *Client) FetchForecast(ctx context.Context, loc domain.Location) (domain.ForecastBundle, error) {
	reqID := uuid.NewString()
	started := time.Now()

	result, err := c.breaker.Execute(func() (any, error) {
		return c.fetchForecastPayload(ctx, loc)
	})
	if err != nil {
		c.log.Warn("forecast fetch failed",
			zap.String("request_id", reqID),
			zap.String("location", loc.DisplayName()),
			zap.Error(err))
		return domain.ForecastBundle{}, classifyForecastErr(err)
	}
	payload := result.(*forecastResponse)

	bundle := domain.ForecastBundle{
		Location:  loc,
		Current:   parseCurrent(payload),
		Hourly:    parseHourly(&payload.Hourly),
		Daily:     parseDaily(&payload.Daily),
		FetchedAt: time.Now().UTC(),
	}
	bundle.AirQuality = c.fetchAirQuality(ctx, loc)

	c.log.Debug("forecast fetched",
		zap.String("request_id", reqID),
		zap.String("location", loc.DisplayName()),
		zap.Int("hourly_points", len(bundle.Hourly)),
		zap.Int("daily_points", len(bundle.Daily)),
		zap.Duration("elapsed", time.Since(started)))
	return bundle, nil
}

func (c *Client) fetchForecastPayload(ctx context.Context, loc domain.Location) (*forecastResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, forecastTimeout)
	defer cancel()

	var payload forecastResponse
	if err := c.getJSON(ctx, c.forecastURL, forecastQuery(loc), &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (c *Client) fetchAirQuality(ctx context.Context, loc domain.Location) domain.AirQuality {
	ctx, cancel := context.WithTimeout(ctx, geocodeTimeout)
	defer cancel()

	q := url.Values{}
	q.Set("latitude", fmt.Sprintf("%.4f", loc.Latitude))
	q.Set("longitude", fmt.Sprintf("%.4f", loc.Longitude))
	q.Set("current", "us_aqi,european_aqi")
	q.Set("timezone", "auto")

	var payload airQualityResponse
	if err := c.getJSON(ctx, c.airQualityURL, q, &payload); err != nil {
		c.log.Debug("air quality fetch skipped", zap.Error(err))
		return domain.AirQuality{}
	}
	if payload.Current == nil {
		return domain.AirQuality{}
	}
	return domain.AirQuality{
		USAQI:       int(payload.Current.USAQI),
		EuropeanAQI: int(payload.Current.EuropeanAQI),
		OK:          true,
	}
}

func (c *Client) getJSON(ctx context.Context, base string, query url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d: %w", resp.StatusCode, errUpstreamStatus)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", errMalformed)
	}
	return nil
}

func forecastQuery(loc domain.Location) url.Values {
	q := url.Values{}
	q.Set("latitude", fmt.Sprintf("%.4f", loc.Latitude))
	q.Set("longitude", fmt.Sprintf("%.4f", loc.Longitude))
	q.Set("current", "temperature_2m,relative_humidity_2m,apparent_temperature,dew_point_2m,"+
		"weather_code,precipitation,cloud_cover,pressure_msl,visibility,"+
		"wind_speed_10m,wind_gusts_10m,wind_direction_10m,is_day")
	q.Set("hourly", "temperature_2m,weather_code,is_day,precipitation_probability,"+
		"precipitation,wind_speed_10m,wind_gusts_10m,visibility,cloud_cover")
	q.Set("daily", "weather_code,temperature_2m_max,temperature_2m_min,sunrise,sunset,"+
		"uv_index_max,precipitation_probability_max,precipitation_sum,wind_gusts_10m_max")
	q.Set("timezone", "auto")
	q.Set("forecast_days", "7")
	q.Set("forecast_hours", "48")
	return q
}
