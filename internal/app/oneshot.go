package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/skycast-tui/skycast/internal/domain"
	"github.com/skycast-tui/skycast/internal/fetch"
	"github.com/skycast-tui/skycast/internal/resolve"
)

// RunOnce resolves a location, fetches a single bundle, and renders it as
// plain text. No event loop, no retries: the first failure is final. On an
// ambiguous query it takes the top-ranked candidate.
func RunOnce(ctx context.Context, src fetch.DataSource, log *zap.Logger, opts Options) (string, error) {
	if log == nil {
		log = zap.NewNop()
	}
	loc, err := resolveOnce(ctx, src, log, opts)
	if err != nil {
		return "", err
	}

	fctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	bundle, err := src.FetchForecast(fctx, loc)
	if err != nil {
		return "", fmt.Errorf("fetch forecast: %w", err)
	}
	return renderOnce(bundle, opts.Units), nil
}

func resolveOnce(ctx context.Context, src fetch.DataSource, log *zap.Logger, opts Options) (domain.Location, error) {
	if opts.Coords != nil {
		return *opts.Coords, nil
	}

	query := opts.Query
	if query == "" {
		gctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		loc, err := src.ResolveIPLocation(gctx)
		cancel()
		if err == nil {
			return loc, nil
		}
		log.Warn("geolocation failed", zap.Error(err))
		query = opts.Settings.DefaultCity
		if query == "" {
			return domain.Location{}, fmt.Errorf("locate: %w", err)
		}
	}

	gctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	results, err := src.ResolveGeocode(gctx, query, opts.CountryBias)
	if err != nil {
		return domain.Location{}, fmt.Errorf("geocode %q: %w", query, err)
	}

	res := resolve.Resolve(results, query, opts.CountryBias)
	switch res.Outcome {
	case resolve.Selected:
		return res.Location, nil
	case resolve.NeedsChoice:
		return res.Candidates[0], nil
	default:
		return domain.Location{}, fmt.Errorf("geocode %q: %w", query, fetch.ErrNoResults)
	}
}

func renderOnce(b domain.ForecastBundle, units domain.Units) string {
	temp := func(c float64) string {
		return fmt.Sprintf("%d°%s", domain.RoundTemp(domain.ConvertTemp(c, units)), units.Symbol())
	}

	var out strings.Builder
	c := b.Current
	fmt.Fprintf(&out, "%s\n", b.Location.DisplayName())
	fmt.Fprintf(&out, "%s  %s", temp(c.TemperatureC), domain.WeatherLabel(c.WeatherCode))
	if c.HasHighLow {
		fmt.Fprintf(&out, "  (%s / %s)", temp(c.HighTodayC), temp(c.LowTodayC))
	}
	fmt.Fprintf(&out, "\nFeels like %s, humidity %.0f%%, wind %.0f km/h\n", temp(c.ApparentC), c.RelativeHumidity, c.WindSpeed)
	if b.AirQuality.OK {
		fmt.Fprintf(&out, "Air quality: AQI %d (%s)\n", b.AirQuality.USAQI, b.AirQuality.Category())
	}
	for _, a := range domain.ScanAlerts(b, units) {
		fmt.Fprintf(&out, "%s %s\n", a.Icon, a.Message)
	}

	if len(b.Daily) > 0 {
		out.WriteString("\n")
		for _, d := range b.Daily {
			fmt.Fprintf(&out, "%s  %s / %s  %s\n",
				d.Date.Format("Mon 02"), temp(d.TempMaxC), temp(d.TempMinC), domain.WeatherLabel(d.WeatherCode))
		}
	}
	return out.String()
}
