// Package datasource assembles the concrete clients into the single
// capability interface the core consumes.
package datasource

import (
	"context"

	"go.uber.org/zap"

	"github.com/skycast-tui/skycast/internal/datasource/geoip"
	"github.com/skycast-tui/skycast/internal/datasource/openmeteo"
	"github.com/skycast-tui/skycast/internal/domain"
	"github.com/skycast-tui/skycast/internal/fetch"
)

// Source combines Open-Meteo forecast/geocode with the geoip lookup.
type Source struct {
	meteo *openmeteo.Client
	geoip *geoip.Client
}

var _ fetch.DataSource = (*Source)(nil)

func New(log *zap.Logger, opts ...openmeteo.Option) *Source {
	return &Source{
		meteo: openmeteo.New(log, opts...),
		geoip: geoip.New(log),
	}
}

func (s *Source) FetchForecast(ctx context.Context, loc domain.Location) (domain.ForecastBundle, error) {
	return s.meteo.FetchForecast(ctx, loc)
}

func (s *Source) ResolveGeocode(ctx context.Context, query, countryHint string) ([]domain.Location, error) {
	return s.meteo.ResolveGeocode(ctx, query, countryHint)
}

func (s *Source) ResolveIPLocation(ctx context.Context) (domain.Location, error) {
	return s.geoip.ResolveIPLocation(ctx)
}
