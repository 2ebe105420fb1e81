package app

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/skycast-tui/skycast/internal/domain"
	"github.com/skycast-tui/skycast/internal/fetch"
	"github.com/skycast-tui/skycast/internal/settings"
)

// Messages delivered to Update. Network results carry the generation they
// were started under so superseded work can be discarded.
type (
	bootMsg        struct{}
	tickFrameMsg   time.Time
	tickRefreshMsg time.Time

	retryDueMsg struct{ gen int }

	geoLocatedMsg struct {
		gen int
		loc domain.Location
		err error
	}

	geocodeDoneMsg struct {
		gen     int
		query   string
		results []domain.Location
		err     error
	}

	fetchDoneMsg struct {
		gen    int
		bundle domain.ForecastBundle
		err    error
	}

	settingsSavedMsg struct{ err error }
)

const frameInterval = time.Second

func bootCmd() tea.Cmd {
	return func() tea.Msg { return bootMsg{} }
}

func frameTickCmd() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg { return tickFrameMsg(t) })
}

// refreshTickCmd schedules the next periodic refresh with a small jitter so
// long-running sessions don't synchronize their requests.
func (m Model) refreshTickCmd() tea.Cmd {
	d := time.Duration(float64(m.refreshInterval) * (0.9 + 0.2*m.jitter()))
	if d < 10*time.Second {
		d = 10 * time.Second
	}
	return tea.Tick(d, func(t time.Time) tea.Msg { return tickRefreshMsg(t) })
}

func retryCmd(gen int, delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(time.Time) tea.Msg { return retryDueMsg{gen: gen} })
}

func geoLocateCmd(src fetch.DataSource, gen int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		loc, err := src.ResolveIPLocation(ctx)
		return geoLocatedMsg{gen: gen, loc: loc, err: err}
	}
}

func geocodeCmd(src fetch.DataSource, gen int, query, countryHint string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		results, err := src.ResolveGeocode(ctx, query, countryHint)
		return geocodeDoneMsg{gen: gen, query: query, results: results, err: err}
	}
}

func fetchForecastCmd(src fetch.DataSource, gen int, loc domain.Location) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		bundle, err := src.FetchForecast(ctx, loc)
		return fetchDoneMsg{gen: gen, bundle: bundle, err: err}
	}
}

func saveSettingsCmd(s settings.Settings) tea.Cmd {
	return func() tea.Msg {
		return settingsSavedMsg{err: settings.Save(s)}
	}
}
