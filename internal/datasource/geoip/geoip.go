// Package geoip guesses a location from the caller's public IP via ipapi.co.
package geoip

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/skycast-tui/skycast/internal/domain"
	"github.com/skycast-tui/skycast/internal/fetch"
)

const (
	defaultURL    = "https://ipapi.co/json/"
	lookupTimeout = 5 * time.Second
)

type response struct {
	City        string  `json:"city"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	CountryName string  `json:"country_name"`
	CountryCode string  `json:"country_code"`
	Region      string  `json:"region"`
	Timezone    string  `json:"timezone"`
}

// Client resolves the caller's approximate location.
type Client struct {
	http *http.Client
	url  string
	log  *zap.Logger
}

func New(log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		http: &http.Client{Timeout: lookupTimeout},
		url:  defaultURL,
		log:  log,
	}
}

// WithURL points the client at a different endpoint. Used by tests.
func (c *Client) WithURL(u string) *Client {
	c.url = u
	return c
}

// ResolveIPLocation performs the lookup. A response without a city name is
// treated as a failure; the caller falls back to geocoding a default city.
func (c *Client) ResolveIPLocation(ctx context.Context) (domain.Location, error) {
	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return domain.Location{}, fetch.Wrap("geoip", fetch.KindConnection, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.Location{}, fetch.Wrap("geoip", fetch.KindConnection, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.Location{}, fetch.Wrap("geoip", fetch.KindUpstream,
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var payload response
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.Location{}, fetch.Wrap("geoip", fetch.KindMalformed, err)
	}
	if payload.City == "" {
		return domain.Location{}, fetch.Wrap("geoip", fetch.KindMalformed,
			fmt.Errorf("response missing city"))
	}

	c.log.Debug("geoip resolved", zap.String("city", payload.City))
	return domain.Location{
		Name:       payload.City,
		Latitude:   payload.Latitude,
		Longitude:  payload.Longitude,
		Country:    payload.CountryName,
		CountryISO: payload.CountryCode,
		Admin1:     payload.Region,
		Timezone:   payload.Timezone,
	}, nil
}
