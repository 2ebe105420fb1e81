package openmeteo

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/skycast-tui/skycast/internal/domain"
	"github.com/skycast-tui/skycast/internal/fetch"
	"github.com/skycast-tui/skycast/internal/resolve"
)

type geocodeResponse struct {
	Results []geocodeResult `json:"results"`
}

type geocodeResult struct {
	Name        string  `json:"name"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Country     string  `json:"country"`
	CountryCode string  `json:"country_code"`
	Admin1      string  `json:"admin1"`
	Timezone    string  `json:"timezone"`
	Population  int64   `json:"population"`
}

// ResolveGeocode queries candidates for a free-text place name in provider
// order. Ranking belongs to the resolver; this method only maps the wire
// shape into the domain.
func (c *Client) ResolveGeocode(ctx context.Context, query, countryHint string) ([]domain.Location, error) {
	ctx, cancel := context.WithTimeout(ctx, geocodeTimeout)
	defer cancel()

	q := url.Values{}
	q.Set("name", query)
	q.Set("count", strconv.Itoa(resolve.MaxCandidates))
	q.Set("language", "en")
	q.Set("format", "json")
	if countryHint != "" {
		q.Set("countryCode", countryHint)
	}

	started := time.Now()
	var payload geocodeResponse
	if err := c.getJSON(ctx, c.geocodeURL, q, &payload); err != nil {
		return nil, classifyGeocodeErr(err)
	}
	c.log.Debug("geocode resolved",
		zap.String("query", query),
		zap.Int("results", len(payload.Results)),
		zap.Duration("elapsed", time.Since(started)))

	if len(payload.Results) == 0 {
		return nil, fmt.Errorf("%q: %w", query, fetch.ErrNoResults)
	}

	out := make([]domain.Location, 0, len(payload.Results))
	for _, r := range payload.Results {
		out = append(out, domain.Location{
			Name:       r.Name,
			Latitude:   r.Latitude,
			Longitude:  r.Longitude,
			Country:    r.Country,
			CountryISO: r.CountryCode,
			Admin1:     r.Admin1,
			Timezone:   r.Timezone,
			Population: r.Population,
		})
	}
	return out, nil
}

func classifyGeocodeErr(err error) error {
	switch {
	case errors.Is(err, errMalformed):
		return fetch.Wrap("geocode", fetch.KindMalformed, err)
	case errors.Is(err, errUpstreamStatus):
		return fetch.Wrap("geocode", fetch.KindUpstream, err)
	default:
		return fetch.Wrap("geocode", fetch.KindConnection, err)
	}
}
