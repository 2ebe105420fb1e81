package app

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/skycast-tui/skycast/internal/domain"
	"github.com/skycast-tui/skycast/internal/fetch"
	"github.com/skycast-tui/skycast/internal/resilience"
	"github.com/skycast-tui/skycast/internal/resolve"
)

func (m Model) Init() tea.Cmd {
	return tea.Batch(bootCmd(), frameTickCmd(), m.refreshTickCmd(), m.spin.Tick)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case bootMsg:
		return m.handleBoot()
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tickFrameMsg:
		return m, frameTickCmd()
	case tickRefreshMsg:
		return m.handleRefreshTick()
	case retryDueMsg:
		return m.handleRetryDue(msg)
	case geoLocatedMsg:
		return m.handleGeoLocated(msg)
	case geocodeDoneMsg:
		return m.handleGeocodeDone(msg)
	case fetchDoneMsg:
		return m.handleFetchDone(msg)
	case settingsSavedMsg:
		if msg.err != nil {
			m.log.Warn("settings save failed", zap.Error(msg.err))
		}
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}
	return m, nil
}

// handleBoot picks the initial acquisition path: explicit coordinates beat
// a city argument, which beats IP geolocation.
func (m Model) handleBoot() (tea.Model, tea.Cmd) {
	switch {
	case m.coords != nil:
		return m.startFetch(*m.coords)
	case m.query != "":
		return m.startGeocode(m.query)
	default:
		m.gen++
		m.inFlight = true
		m.mode = ModeLoading
		return m, geoLocateCmd(m.src, m.gen)
	}
}

// startFetch begins a forecast fetch for loc under a fresh generation.
// Any result still in flight from an older generation will be discarded
// when it lands.
func (m Model) startFetch(loc domain.Location) (tea.Model, tea.Cmd) {
	m.location = loc
	m.haveLocation = true
	m.gen++
	m.inFlight = true
	m.retry.MarkAttempt(m.now())
	if m.bundle == nil {
		m.mode = ModeLoading
	}
	m.log.Info("fetch started",
		zap.Int("gen", m.gen),
		zap.String("location", loc.DisplayName()))
	return m, fetchForecastCmd(m.src, m.gen, loc)
}

func (m Model) startGeocode(query string) (tea.Model, tea.Cmd) {
	m.gen++
	m.inFlight = true
	m.candidates = nil
	m.pickerQuery = query
	m.errText = ""
	m.mode = ModeLoading
	return m, geocodeCmd(m.src, m.gen, query, m.countryBias)
}

// selectLocation commits a resolved location, discarding any remaining
// disambiguation candidates. A fresh cached bundle for the same place is
// adopted without touching the network.
func (m Model) selectLocation(loc domain.Location) (tea.Model, tea.Cmd) {
	m.candidates = nil
	if cached, ok := m.cache.Get(loc.Key()); ok {
		if cached.Age(m.now()) < m.policy.StaleAfter {
			m.location = loc
			m.haveLocation = true
			m.bundle = &cached
			m.retry = resilience.RetryState{LastSuccess: cached.FetchedAt}
			m.backoff.Reset()
			m.mode = ModeReady
			m.errText = ""
			m.inFlight = false
			cmd := m.rememberLocation(loc)
			return m, cmd
		}
	}
	return m.startFetch(loc)
}

func (m Model) handleGeoLocated(msg geoLocatedMsg) (tea.Model, tea.Cmd) {
	if msg.gen != m.gen {
		return m, nil
	}
	m.inFlight = false
	if msg.err != nil {
		// Geolocation is best-effort; fall back to the configured city.
		m.log.Warn("geolocation failed", zap.Error(msg.err))
		if m.settings.DefaultCity == "" {
			return m.fail(msg.err), nil
		}
		return m.startGeocode(m.settings.DefaultCity)
	}
	return m.selectLocation(msg.loc)
}

func (m Model) handleGeocodeDone(msg geocodeDoneMsg) (tea.Model, tea.Cmd) {
	if msg.gen != m.gen {
		return m, nil
	}
	m.inFlight = false
	if msg.err != nil {
		if errors.Is(msg.err, fetch.ErrNoResults) {
			return m.geocodeMiss(fmt.Sprintf("No matches for %q", msg.query)), nil
		}
		return m.geocodeMiss(fmt.Sprintf("Lookup failed: %v", msg.err)), nil
	}

	res := resolve.Resolve(msg.results, msg.query, m.countryBias)
	switch res.Outcome {
	case resolve.Selected:
		return m.selectLocation(res.Location)
	case resolve.NeedsChoice:
		m.mode = ModeSelectingLocation
		m.candidates = res.Candidates
		m.pickerQuery = msg.query
		m.cursor = 0
		m.input.Blur()
		return m, nil
	default:
		return m.geocodeMiss(fmt.Sprintf("No matches for %q", msg.query)), nil
	}
}

// geocodeMiss handles a lookup that produced nothing usable. Fatal only at
// bootstrap: with a dashboard already up it reopens the picker instead.
func (m Model) geocodeMiss(text string) Model {
	m.errText = text
	if m.bundle != nil {
		m.mode = ModeSelectingLocation
		m.candidates = nil
		m.input.Focus()
		return m
	}
	m.mode = ModeError
	return m
}

func (m Model) handleFetchDone(msg fetchDoneMsg) (tea.Model, tea.Cmd) {
	if msg.gen != m.gen {
		m.log.Debug("discarding stale fetch result", zap.Int("gen", msg.gen))
		return m, nil
	}
	m.inFlight = false

	if msg.err != nil {
		kind := fetch.KindOf(msg.err)
		m.retry.MarkFailure(m.now(), string(kind))
		m.lastKind = kind
		delay := m.backoff.NextDelay()
		m.retry.ScheduleRetry(m.now(), delay)
		m.log.Warn("fetch failed",
			zap.Int("failures", m.retry.Failures),
			zap.String("kind", string(kind)),
			zap.Duration("retry_in", delay),
			zap.Error(msg.err))
		// The previous bundle, if any, stays on screen.
		if m.bundle == nil {
			m.mode = ModeError
			m.errText = fmt.Sprintf("Fetch failed (%s): %v", kind, msg.err)
		}
		return m, retryCmd(m.gen, delay)
	}

	bundle := msg.bundle
	m.bundle = &bundle
	m.cache.Add(bundle.Location.Key(), bundle)
	m.retry.MarkSuccess(m.now())
	m.backoff.Reset()
	m.lastKind = ""
	m.errText = ""
	m.mode = ModeReady
	m.log.Info("fetch succeeded", zap.Int("gen", msg.gen))
	cmd := m.rememberLocation(bundle.Location)
	return m, cmd
}

func (m Model) handleRefreshTick() (tea.Model, tea.Cmd) {
	next := m.refreshTickCmd()
	if m.inFlight || !m.haveLocation || m.mode == ModeSelectingLocation {
		return m, next
	}
	// A scheduled retry owns the cadence while a failure streak is live.
	if !m.retry.RetryEligible(m.now()) {
		return m, next
	}
	mm, cmd := m.startFetch(m.location)
	return mm, tea.Batch(cmd, next)
}

func (m Model) handleRetryDue(msg retryDueMsg) (tea.Model, tea.Cmd) {
	if msg.gen != m.gen || m.inFlight || !m.haveLocation {
		return m, nil
	}
	return m.startFetch(m.location)
}

func (m Model) fail(err error) Model {
	m.mode = ModeError
	m.errText = err.Error()
	m.lastKind = fetch.KindOf(err)
	return m
}

// rememberLocation pushes loc onto the recent list and persists settings
// off the event loop.
func (m *Model) rememberLocation(loc domain.Location) tea.Cmd {
	m.settings.PushRecent(loc)
	m.settings.Units = m.units.String()
	return saveSettingsCmd(m.settings)
}
