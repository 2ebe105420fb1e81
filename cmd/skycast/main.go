// skycast is a terminal weather dashboard backed by Open-Meteo. Run with a
// city argument, explicit coordinates, or nothing at all (IP geolocation).
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/skycast-tui/skycast/internal/app"
	"github.com/skycast-tui/skycast/internal/datasource"
	"github.com/skycast-tui/skycast/internal/domain"
	"github.com/skycast-tui/skycast/internal/observability"
	"github.com/skycast-tui/skycast/internal/settings"
)

func main() {
	// Optional; local development convenience.
	_ = godotenv.Load()

	var (
		unitsFlag   = pflag.StringP("units", "u", "", "temperature units: celsius or fahrenheit")
		countryFlag = pflag.String("country", "", "two-letter country code to bias city lookup")
		latFlag     = pflag.Float64("lat", 0, "latitude (requires --lon)")
		lonFlag     = pflag.Float64("lon", 0, "longitude (requires --lat)")
		refreshFlag = pflag.Duration("refresh-interval", 0, "auto-refresh cadence, e.g. 5m (min 10s)")
		onceFlag    = pflag.Bool("once", false, "print the forecast once and exit")
	)
	pflag.Usage = usage
	pflag.Parse()

	opts, err := buildOptions(pflag.Args(), *unitsFlag, *countryFlag, *latFlag, *lonFlag, *refreshFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, "skycast:", err)
		os.Exit(2)
	}

	log := observability.NewLogger()
	defer func() { _ = log.Sync() }()

	src := datasource.New(log)
	opts.Source = src
	opts.Log = log

	if *onceFlag {
		out, err := app.RunOnce(context.Background(), src, log, opts)
		if err != nil {
			fmt.Fprintln(os.Stderr, "skycast:", err)
			os.Exit(1)
		}
		fmt.Print(out)
		return
	}

	p := tea.NewProgram(app.New(opts), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "skycast:", err)
		os.Exit(1)
	}
}

// buildOptions validates flags and merges them over the persisted settings.
// Flag errors are reported before any network or UI work starts.
func buildOptions(args []string, unitsFlag, countryFlag string, lat, lon float64, refresh time.Duration) (app.Options, error) {
	cfg := settings.Load()

	opts := app.Options{
		Settings:    cfg,
		Query:       strings.TrimSpace(strings.Join(args, " ")),
		CountryBias: cfg.CountryBias,
		Units:       domain.ParseUnits(cfg.Units),
	}

	latSet := pflag.CommandLine.Changed("lat")
	lonSet := pflag.CommandLine.Changed("lon")
	switch {
	case latSet != lonSet:
		return opts, fmt.Errorf("--lat and --lon must be given together")
	case latSet && lonSet:
		if lat < -90 || lat > 90 {
			return opts, fmt.Errorf("latitude %v out of range [-90, 90]", lat)
		}
		if lon < -180 || lon > 180 {
			return opts, fmt.Errorf("longitude %v out of range [-180, 180]", lon)
		}
		if opts.Query != "" {
			return opts, fmt.Errorf("give either a city or --lat/--lon, not both")
		}
		loc := domain.LocationFromCoords(lat, lon)
		opts.Coords = &loc
	}

	if unitsFlag != "" {
		if unitsFlag != "celsius" && unitsFlag != "fahrenheit" && unitsFlag != "c" && unitsFlag != "f" {
			return opts, fmt.Errorf("unknown units %q", unitsFlag)
		}
		opts.Units = domain.ParseUnits(unitsFlag)
	}
	if countryFlag != "" {
		if len(countryFlag) != 2 {
			return opts, fmt.Errorf("--country wants a two-letter ISO code, got %q", countryFlag)
		}
		opts.CountryBias = strings.ToUpper(countryFlag)
	}
	if refresh != 0 {
		if refresh < 10*time.Second {
			return opts, fmt.Errorf("refresh interval %v below the 10s minimum", refresh)
		}
		opts.RefreshInterval = refresh
	}
	return opts, nil
}

func usage() {
	fmt.Fprintf(os.Stderr, `skycast - weather in your terminal

Usage:
  skycast [flags] [city]

Examples:
  skycast                   current location via IP
  skycast lisbon            by name
  skycast --lat 48.86 --lon 2.35
  skycast springfield --country us
  skycast berlin --once     print and exit

Flags:
`)
	pflag.PrintDefaults()
}
