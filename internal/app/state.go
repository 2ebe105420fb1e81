// Package app is the dashboard core: a single state machine driven by the
// bubbletea event loop. All state lives in Model and changes only inside
// Update; network work happens in commands that report back as messages.
package app

import (
	"math/rand"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/skycast-tui/skycast/internal/domain"
	"github.com/skycast-tui/skycast/internal/fetch"
	"github.com/skycast-tui/skycast/internal/resilience"
	"github.com/skycast-tui/skycast/internal/settings"
)

// Mode is the top-level UI state. Transitions happen only in Update.
type Mode int

const (
	ModeLoading Mode = iota
	ModeSelectingLocation
	ModeReady
	ModeError
	ModeQuit
)

func (m Mode) String() string {
	switch m {
	case ModeLoading:
		return "loading"
	case ModeSelectingLocation:
		return "selecting"
	case ModeReady:
		return "ready"
	case ModeError:
		return "error"
	case ModeQuit:
		return "quit"
	default:
		return "unknown"
	}
}

// forecastCacheSize bounds the per-session bundle cache. Switching back to
// a recently viewed location reuses its bundle if still fresh.
const forecastCacheSize = 10

// Options carries everything the core needs at construction. Source and
// Log are required; the rest default sensibly.
type Options struct {
	Source          fetch.DataSource
	Log             *zap.Logger
	Settings        settings.Settings
	Query           string           // free-text city; empty means geolocate
	Coords          *domain.Location // explicit coordinates bypass resolution
	CountryBias     string
	Units           domain.Units
	RefreshInterval time.Duration

	// Now and Jitter exist so tests can pin time and randomness.
	Now    func() time.Time
	Jitter func() float64
}

// Model is the whole application state. It is mutated exclusively by the
// event loop goroutine; commands only read the snapshot they were built
// from and communicate back through messages.
type Model struct {
	mode Mode
	src  fetch.DataSource
	log  *zap.Logger

	settings        settings.Settings
	units           domain.Units
	countryBias     string
	refreshInterval time.Duration

	query        string
	coords       *domain.Location
	location     domain.Location
	haveLocation bool

	// bundle is the last good forecast. Failures never clear it.
	bundle *domain.ForecastBundle

	// Disambiguation state, live only in ModeSelectingLocation.
	candidates  []domain.Location
	pickerQuery string
	cursor      int

	retry   resilience.RetryState
	backoff *resilience.Backoff
	policy  resilience.Policy

	// gen tags in-flight work. Results carrying an older generation are
	// discarded, which is how superseded fetches get "cancelled".
	gen      int
	inFlight bool

	cache *lru.Cache[domain.LocationKey, domain.ForecastBundle]

	input textinput.Model
	spin  spinner.Model

	now    func() time.Time
	jitter func() float64

	width  int
	height int

	errText  string
	lastKind fetch.ErrorKind
}

// New builds the initial model in ModeLoading. The first fetch is kicked
// off by the boot message from Init, not here.
func New(opts Options) Model {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Jitter == nil {
		opts.Jitter = rand.Float64
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = time.Duration(opts.Settings.RefreshIntervalSec) * time.Second
	}

	ti := textinput.New()
	ti.Placeholder = "city name"
	ti.CharLimit = 64

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	cache, _ := lru.New[domain.LocationKey, domain.ForecastBundle](forecastCacheSize)

	return Model{
		mode:            ModeLoading,
		src:             opts.Source,
		log:             opts.Log,
		settings:        opts.Settings,
		units:           opts.Units,
		countryBias:     opts.CountryBias,
		refreshInterval: opts.RefreshInterval,
		query:           opts.Query,
		coords:          opts.Coords,
		backoff:         resilience.NewBackoff(10*time.Second, 5*time.Minute).WithJitter(opts.Jitter),
		policy:          resilience.PolicyForInterval(opts.RefreshInterval),
		cache:           cache,
		input:           ti,
		spin:            sp,
		now:             opts.Now,
		jitter:          opts.Jitter,
	}
}

// Bundle exposes the last good forecast for the one-shot renderer.
func (m Model) Bundle() *domain.ForecastBundle { return m.bundle }

// Freshness evaluates the current staleness level. Pure; safe to call from
// the view on every frame.
func (m Model) Freshness() resilience.Status {
	var fetched time.Time
	if m.bundle != nil {
		fetched = m.bundle.FetchedAt
	}
	return m.policy.Evaluate(m.now(), fetched, m.retry.Failures)
}
