package openmeteo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/skycast-tui/skycast/internal/domain"
	"github.com/skycast-tui/skycast/internal/fetch"
)

const forecastBody = `{
	"current": {
		"temperature_2m": 18.4, "relative_humidity_2m": 62,
		"apparent_temperature": 17.1, "dew_point_2m": 11.0,
		"weather_code": 2, "precipitation": 0.0, "cloud_cover": 40,
		"pressure_msl": 1014.2, "visibility": 24000,
		"wind_speed_10m": 12.5, "wind_gusts_10m": 22.0,
		"wind_direction_10m": 210, "is_day": 1
	},
	"hourly": {
		"time": ["2026-03-01T12:00", "2026-03-01T13:00"],
		"temperature_2m": [18.4, 19.1],
		"weather_code": [2, 3],
		"is_day": [1, 1],
		"precipitation_probability": [5, 10],
		"precipitation": [0.0, 0.1],
		"wind_speed_10m": [12.5, 13.0],
		"cloud_cover": [40, 60]
	},
	"daily": {
		"time": ["2026-03-01", "2026-03-02"],
		"weather_code": [2, 61],
		"temperature_2m_max": [21.0, 16.5],
		"temperature_2m_min": [9.0, 8.2],
		"sunrise": ["2026-03-01T06:41", "2026-03-02T06:39"],
		"sunset": ["2026-03-01T17:52", "2026-03-02T17:54"],
		"uv_index_max": [4.1, 2.0],
		"precipitation_probability_max": [10, 80],
		"precipitation_sum": [0.0, 6.4],
		"wind_gusts_10m_max": [30.0, 44.0]
	}
}`

func testClient(t *testing.T, forecast http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(forecast)
	t.Cleanup(srv.Close)
	// Air quality points at an unreachable closed server so the side-fetch
	// fails fast without failing the forecast.
	dead := httptest.NewServer(http.NotFoundHandler())
	dead.Close()
	return New(nil,
		WithForecastURL(srv.URL),
		WithAirQualityURL(dead.URL),
		WithGeocodeURL(srv.URL))
}

func TestFetchForecastParsesBundle(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("latitude"); got != "59.3293" {
			t.Errorf("latitude query = %q, want 59.3293", got)
		}
		w.Write([]byte(forecastBody))
	})

	loc := domain.Location{Name: "Stockholm", Latitude: 59.3293, Longitude: 18.0686}
	bundle, err := c.FetchForecast(context.Background(), loc)
	if err != nil {
		t.Fatalf("FetchForecast: %v", err)
	}

	if bundle.Current.TemperatureC != 18.4 {
		t.Fatalf("current temp = %v, want 18.4", bundle.Current.TemperatureC)
	}
	if !bundle.Current.IsDay {
		t.Fatal("is_day = 1 should map to true")
	}
	if !bundle.Current.HasHighLow || bundle.Current.HighTodayC != 21.0 || bundle.Current.LowTodayC != 9.0 {
		t.Fatalf("today high/low = %v/%v (has=%v), want 21/9",
			bundle.Current.HighTodayC, bundle.Current.LowTodayC, bundle.Current.HasHighLow)
	}
	if len(bundle.Hourly) != 2 || len(bundle.Daily) != 2 {
		t.Fatalf("hourly/daily = %d/%d, want 2/2", len(bundle.Hourly), len(bundle.Daily))
	}
	if bundle.Daily[1].PrecipSumMM != 6.4 {
		t.Fatalf("daily[1] precip = %v, want 6.4", bundle.Daily[1].PrecipSumMM)
	}
	if bundle.FetchedAt.IsZero() {
		t.Fatal("FetchedAt must be stamped")
	}
	if bundle.AirQuality.OK {
		t.Fatal("air quality side-fetch against dead server must not report OK")
	}
}

func TestFetchForecastClassifiesUpstreamStatus(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.FetchForecast(context.Background(), domain.LocationFromCoords(1, 2))
	if err == nil {
		t.Fatal("expected error for 502 response")
	}
	if kind := fetch.KindOf(err); kind != fetch.KindUpstream {
		t.Fatalf("error kind = %v, want upstream", kind)
	}
}

func TestFetchForecastClassifiesMalformedBody(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{not json"))
	})

	_, err := c.FetchForecast(context.Background(), domain.LocationFromCoords(1, 2))
	if kind := fetch.KindOf(err); kind != fetch.KindMalformed {
		t.Fatalf("error kind = %v, want malformed", kind)
	}
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	ctx := context.Background()
	loc := domain.LocationFromCoords(1, 2)
	for range 5 {
		if _, err := c.FetchForecast(ctx, loc); err == nil {
			t.Fatal("expected failure while server errors")
		}
	}

	// Breaker is now open; the failure must still look like a plain fetch
	// error to the resilience layer.
	_, err := c.FetchForecast(ctx, loc)
	if err == nil {
		t.Fatal("expected breaker-open failure")
	}
	var fe *fetch.Error
	if !errors.As(err, &fe) {
		t.Fatalf("breaker error not classified: %v", err)
	}
}

func TestResolveGeocodeMapsResults(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("name"); got != "Springfield" {
			t.Errorf("name query = %q", got)
		}
		if got := r.URL.Query().Get("countryCode"); got != "US" {
			t.Errorf("countryCode query = %q, want US", got)
		}
		w.Write([]byte(`{"results":[
			{"name":"Springfield","latitude":39.8,"longitude":-89.6,
			 "country":"United States","country_code":"US","admin1":"Illinois",
			 "timezone":"America/Chicago","population":114394}
		]}`))
	})

	got, err := c.ResolveGeocode(context.Background(), "Springfield", "US")
	if err != nil {
		t.Fatalf("ResolveGeocode: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("result count = %d, want 1", len(got))
	}
	if got[0].Admin1 != "Illinois" || got[0].CountryISO != "US" || got[0].Population != 114394 {
		t.Fatalf("unexpected mapping: %+v", got[0])
	}
}

func TestResolveGeocodeEmptyResultsIsErrNoResults(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results":[]}`))
	})

	_, err := c.ResolveGeocode(context.Background(), "Atlantis", "")
	if !errors.Is(err, fetch.ErrNoResults) {
		t.Fatalf("err = %v, want ErrNoResults", err)
	}
}
