package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/skycast-tui/skycast/internal/domain"
	"github.com/skycast-tui/skycast/internal/fetch"
	"github.com/skycast-tui/skycast/internal/resilience"
	"github.com/skycast-tui/skycast/internal/settings"
)

type fakeClock struct{ t time.Time }

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func fixedJitter() float64 { return 0.5 }

func testLocation(name string, pop int64) domain.Location {
	return domain.Location{
		Name:       name,
		Latitude:   float64(40 + pop%10),
		Longitude:  float64(-90 - pop%10),
		Country:    "United States",
		CountryISO: "US",
		Population: pop,
	}
}

func testBundle(loc domain.Location, at time.Time) domain.ForecastBundle {
	return domain.ForecastBundle{
		Location:  loc,
		Current:   domain.CurrentConditions{TemperatureC: 21, WeatherCode: 0},
		FetchedAt: at,
	}
}

func newTestModel(clock *fakeClock, opts Options) Model {
	opts.Now = clock.Now
	opts.Jitter = fixedJitter
	if opts.Settings.Units == "" {
		opts.Settings = settings.Default()
	}
	if opts.RefreshInterval == 0 {
		opts.RefreshInterval = 10 * time.Minute
	}
	return New(opts)
}

func step(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	mm, cmd := m.Update(msg)
	next, ok := mm.(Model)
	if !ok {
		t.Fatalf("Update returned %T, want Model", mm)
	}
	return next, cmd
}

// ready drives the model from boot through one successful fetch.
func ready(t *testing.T, clock *fakeClock) Model {
	t.Helper()
	loc := testLocation("Uppsala", 166000)
	m := newTestModel(clock, Options{Coords: &loc})
	m, cmd := step(t, m, bootMsg{})
	if cmd == nil || !m.inFlight {
		t.Fatal("boot with coords must start a fetch")
	}
	m, _ = step(t, m, fetchDoneMsg{gen: m.gen, bundle: testBundle(loc, clock.Now())})
	if m.mode != ModeReady || m.bundle == nil {
		t.Fatalf("mode = %v after success, want ready", m.mode)
	}
	return m
}

// failOnce runs a scheduled retry to completion with a failure.
func failOnce(t *testing.T, m Model, clock *fakeClock) Model {
	t.Helper()
	if wait, ok := m.retry.RetryIn(clock.Now()); ok {
		clock.Advance(wait)
	}
	m, _ = step(t, m, retryDueMsg{gen: m.gen})
	if !m.inFlight {
		t.Fatal("retry due must start a fetch")
	}
	m, _ = step(t, m, fetchDoneMsg{gen: m.gen, err: fetch.Wrap("forecast", fetch.KindConnection, errors.New("refused"))})
	return m
}

func TestFailureStormRetainsLastGoodBundle(t *testing.T) {
	clock := newFakeClock()
	m := ready(t, clock)
	want := m.bundle

	m, _ = step(t, m, fetchDoneMsg{gen: m.gen + 100, err: errors.New("stray")}) // stale gen, ignored
	for i := 0; i < 5; i++ {
		m, _ = step(t, m, retryDueMsg{gen: m.gen})
		m, _ = step(t, m, fetchDoneMsg{gen: m.gen, err: fetch.Wrap("forecast", fetch.KindTimeout, errors.New("deadline"))})
	}

	if m.bundle != want && m.bundle.FetchedAt != want.FetchedAt {
		t.Fatal("failures must not clear the last good bundle")
	}
	if m.mode != ModeReady {
		t.Fatalf("mode = %v, want ready while a bundle exists", m.mode)
	}
	if m.retry.Failures != 5 {
		t.Fatalf("failures = %d, want 5", m.retry.Failures)
	}
}

func TestFreshnessProgressionFreshStaleOffline(t *testing.T) {
	clock := newFakeClock()
	m := ready(t, clock)

	if got := m.Freshness().Level; got != resilience.Fresh {
		t.Fatalf("level after success = %v, want fresh", got)
	}

	clock.Advance(11 * time.Minute)
	if got := m.Freshness().Level; got != resilience.Stale {
		t.Fatalf("level at 11m = %v, want stale", got)
	}

	// Three straight failures flip to offline regardless of age.
	for i := 0; i < 3; i++ {
		m = failOnce(t, m, clock)
	}
	if got := m.Freshness().Level; got != resilience.Offline {
		t.Fatalf("level after 3 failures = %v, want offline", got)
	}
}

func TestRetryDelaysDoubleWithinStreak(t *testing.T) {
	clock := newFakeClock()
	m := ready(t, clock)

	var delays []time.Duration
	for i := 0; i < 4; i++ {
		m = failOnce(t, m, clock)
		wait, ok := m.retry.RetryIn(clock.Now())
		if !ok {
			t.Fatalf("failure %d scheduled no retry", i+1)
		}
		delays = append(delays, wait)
	}

	want := []time.Duration{10 * time.Second, 20 * time.Second, 40 * time.Second, 80 * time.Second}
	for i := range want {
		if delays[i] != want[i] {
			t.Fatalf("delay[%d] = %v, want %v (all: %v)", i, delays[i], want[i], delays)
		}
	}
}

func TestSuccessResetsStreakAndBackoff(t *testing.T) {
	clock := newFakeClock()
	m := ready(t, clock)
	for i := 0; i < 3; i++ {
		m = failOnce(t, m, clock)
	}
	if m.Freshness().Level != resilience.Offline {
		t.Fatal("precondition: expected offline")
	}

	m, _ = step(t, m, retryDueMsg{gen: m.gen})
	m, _ = step(t, m, fetchDoneMsg{gen: m.gen, bundle: testBundle(m.location, clock.Now())})

	if m.retry.Failures != 0 {
		t.Fatalf("failures = %d after success, want 0", m.retry.Failures)
	}
	if got := m.Freshness().Level; got != resilience.Fresh {
		t.Fatalf("level = %v after success, want fresh", got)
	}
	if got := m.backoff.Peek(); got != 10*time.Second {
		t.Fatalf("backoff = %v after success, want base", got)
	}
}

func TestRefreshTickWhileInFlightDoesNothing(t *testing.T) {
	clock := newFakeClock()
	loc := testLocation("Uppsala", 166000)
	m := newTestModel(clock, Options{Coords: &loc})
	m, _ = step(t, m, bootMsg{})
	gen := m.gen

	m, cmd := step(t, m, tickRefreshMsg(clock.Now()))
	if m.gen != gen {
		t.Fatalf("gen advanced to %d during in-flight tick", m.gen)
	}
	if cmd == nil {
		t.Fatal("tick must always reschedule itself")
	}
}

func TestFrameTickOnlyReschedules(t *testing.T) {
	clock := newFakeClock()
	m := ready(t, clock)
	mode, gen, bundle := m.mode, m.gen, m.bundle

	m, cmd := step(t, m, tickFrameMsg(clock.Now()))
	if m.mode != mode || m.gen != gen || m.inFlight || m.bundle != bundle {
		t.Fatalf("frame tick mutated state: mode %v gen %d inFlight %v", m.mode, m.gen, m.inFlight)
	}
	if cmd == nil {
		t.Fatal("frame tick must reschedule itself")
	}
}

func TestRefreshTickDefersToScheduledRetry(t *testing.T) {
	clock := newFakeClock()
	m := ready(t, clock)
	m = failOnce(t, m, clock)
	gen := m.gen

	m, _ = step(t, m, tickRefreshMsg(clock.Now()))
	if m.gen != gen || m.inFlight {
		t.Fatal("tick inside the backoff window must not fetch")
	}
}

func TestManualRefreshBypassesBackoffWindow(t *testing.T) {
	clock := newFakeClock()
	m := ready(t, clock)
	m = failOnce(t, m, clock)
	if _, ok := m.retry.RetryIn(clock.Now()); !ok {
		t.Fatal("precondition: expected a pending retry")
	}

	m, cmd := step(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
	if !m.inFlight || cmd == nil {
		t.Fatal("manual refresh must start a fetch immediately")
	}
	if _, ok := m.retry.RetryIn(clock.Now()); ok {
		t.Fatal("manual refresh must clear the pending retry window")
	}
}

func TestSupersededFetchResultDiscarded(t *testing.T) {
	clock := newFakeClock()
	loc := testLocation("Uppsala", 166000)
	m := newTestModel(clock, Options{Coords: &loc})
	m, _ = step(t, m, bootMsg{})
	oldGen := m.gen

	// The user moves on before the first result lands.
	m, _ = step(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'l'}})
	m.input.SetValue("Springfield")
	m, _ = step(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.gen == oldGen {
		t.Fatal("new query must advance the generation")
	}

	m, _ = step(t, m, fetchDoneMsg{gen: oldGen, bundle: testBundle(loc, clock.Now())})
	if m.bundle != nil {
		t.Fatal("result from a superseded generation must be discarded")
	}
}

func TestAmbiguousQueryListsRankedCandidates(t *testing.T) {
	clock := newFakeClock()
	m := newTestModel(clock, Options{Query: "Springfield"})
	m, _ = step(t, m, bootMsg{})

	results := []domain.Location{
		testLocation("Springfield", 155000),
		testLocation("Springfield", 169000),
		testLocation("Springfield", 60000),
		testLocation("Springfield", 117000),
		testLocation("Springfield", 59000),
	}
	m, _ = step(t, m, geocodeDoneMsg{gen: m.gen, query: "Springfield", results: results})

	if m.mode != ModeSelectingLocation {
		t.Fatalf("mode = %v, want selecting", m.mode)
	}
	if len(m.candidates) != 5 {
		t.Fatalf("candidates = %d, want 5", len(m.candidates))
	}
	if m.candidates[0].Population != 169000 || m.candidates[1].Population != 155000 {
		t.Fatalf("candidates not population-ordered: %d, %d", m.candidates[0].Population, m.candidates[1].Population)
	}

	gen := m.gen
	m, cmd := step(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'2'}})
	if !m.inFlight || cmd == nil {
		t.Fatal("picking a candidate must start exactly one fetch")
	}
	if m.gen != gen+1 {
		t.Fatalf("gen = %d, want %d", m.gen, gen+1)
	}
	if m.location.Population != 155000 {
		t.Fatalf("picked population %d, want the second-ranked 155000", m.location.Population)
	}
	if m.candidates != nil {
		t.Fatal("committing a selection must discard the remaining candidates")
	}
}

func TestUnambiguousQueryAutoSelects(t *testing.T) {
	clock := newFakeClock()
	m := newTestModel(clock, Options{Query: "Uppsala"})
	m, _ = step(t, m, bootMsg{})

	m, cmd := step(t, m, geocodeDoneMsg{gen: m.gen, query: "Uppsala", results: []domain.Location{testLocation("Uppsala", 166000)}})
	if !m.inFlight || cmd == nil {
		t.Fatal("single candidate must fetch without a picker")
	}
	if m.mode != ModeLoading {
		t.Fatalf("mode = %v, want loading", m.mode)
	}
}

func TestGeolocationFailureFallsBackToDefaultCity(t *testing.T) {
	clock := newFakeClock()
	m := newTestModel(clock, Options{})
	m, _ = step(t, m, bootMsg{})

	m, cmd := step(t, m, geoLocatedMsg{gen: m.gen, err: errors.New("geoip down")})
	if cmd == nil || !m.inFlight {
		t.Fatal("geolocation failure must fall back to a geocode of the default city")
	}
	if m.pickerQuery != settings.Default().DefaultCity {
		t.Fatalf("fallback query = %q, want default city", m.pickerQuery)
	}
}

func TestFreshCachedBundleSkipsNetwork(t *testing.T) {
	clock := newFakeClock()
	m := ready(t, clock)
	loc := m.location
	gen := m.gen

	clock.Advance(2 * time.Minute)
	m, cmd := step(t, m, geocodeDoneMsg{gen: m.gen, query: loc.Name, results: []domain.Location{loc}})
	if m.gen != gen || m.inFlight {
		t.Fatal("fresh cached bundle must be reused without a fetch")
	}
	if m.mode != ModeReady || m.bundle == nil {
		t.Fatalf("mode = %v, want ready with a bundle", m.mode)
	}
	_ = cmd
}

func TestUnitsToggleConvertsDisplayAndPersists(t *testing.T) {
	clock := newFakeClock()
	m := ready(t, clock)

	m, cmd := step(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'u'}})
	if m.units != domain.UnitsFahrenheit {
		t.Fatalf("units = %v, want fahrenheit", m.units)
	}
	if cmd == nil {
		t.Fatal("units toggle must persist settings")
	}
	if !strings.Contains(m.View(), "°F") {
		t.Fatal("view must render fahrenheit after toggle")
	}
}

func TestNoResultsShowsErrorNotCrash(t *testing.T) {
	clock := newFakeClock()
	m := newTestModel(clock, Options{Query: "Xyzzyville"})
	m, _ = step(t, m, bootMsg{})

	m, _ = step(t, m, geocodeDoneMsg{gen: m.gen, query: "Xyzzyville", err: fetch.Wrap("geocode", fetch.KindMalformed, fetch.ErrNoResults)})
	if m.mode != ModeError {
		t.Fatalf("mode = %v, want error", m.mode)
	}
	if !strings.Contains(m.errText, "Xyzzyville") {
		t.Fatalf("error text %q should name the query", m.errText)
	}
}

func TestGeocodeMissAfterBootstrapReopensPicker(t *testing.T) {
	clock := newFakeClock()
	m := ready(t, clock)

	m, _ = step(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'l'}})
	m.input.SetValue("Xyzzyville")
	m, _ = step(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = step(t, m, geocodeDoneMsg{gen: m.gen, query: "Xyzzyville", err: fetch.Wrap("geocode", fetch.KindMalformed, fetch.ErrNoResults)})

	if m.mode != ModeSelectingLocation {
		t.Fatalf("mode = %v, want the picker back (bundle still exists)", m.mode)
	}
	if m.bundle == nil {
		t.Fatal("a failed lookup must not drop the last good bundle")
	}
	if !strings.Contains(m.errText, "Xyzzyville") {
		t.Fatalf("error text %q should name the query", m.errText)
	}
}

// --- one-shot ---

type fakeSource struct {
	forecasts int
	geocodes  int
	results   []domain.Location
	bundle    domain.ForecastBundle
	geoErr    error
}

func (f *fakeSource) FetchForecast(_ context.Context, loc domain.Location) (domain.ForecastBundle, error) {
	f.forecasts++
	b := f.bundle
	b.Location = loc
	return b, nil
}

func (f *fakeSource) ResolveGeocode(_ context.Context, _, _ string) ([]domain.Location, error) {
	f.geocodes++
	return f.results, f.geoErr
}

func (f *fakeSource) ResolveIPLocation(_ context.Context) (domain.Location, error) {
	return domain.Location{}, errors.New("no geoip in tests")
}

func TestRunOnceFetchesExactlyOnce(t *testing.T) {
	src := &fakeSource{
		results: []domain.Location{
			testLocation("Springfield", 169000),
			testLocation("Springfield", 155000),
		},
		bundle: testBundle(domain.Location{}, time.Now()),
	}
	out, err := RunOnce(context.Background(), src, nil, Options{
		Query:    "Springfield",
		Settings: settings.Default(),
		Log:      nil,
	})
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if src.forecasts != 1 {
		t.Fatalf("forecast calls = %d, want 1", src.forecasts)
	}
	if !strings.Contains(out, "Springfield") {
		t.Fatalf("output missing location: %q", out)
	}
}

func TestRunOnceNoResults(t *testing.T) {
	src := &fakeSource{geoErr: fetch.Wrap("geocode", fetch.KindMalformed, fetch.ErrNoResults)}
	_, err := RunOnce(context.Background(), src, nil, Options{Query: "Xyzzyville", Settings: settings.Default()})
	if !errors.Is(err, fetch.ErrNoResults) {
		t.Fatalf("err = %v, want ErrNoResults", err)
	}
}
