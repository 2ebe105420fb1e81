package app

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/skycast-tui/skycast/internal/domain"
	"github.com/skycast-tui/skycast/internal/resolve"
)

type keyMap struct {
	Quit       key.Binding
	Refresh    key.Binding
	Picker     key.Binding
	Units      key.Binding
	Celsius    key.Binding
	Fahrenheit key.Binding
}

var keys = keyMap{
	Quit:       key.NewBinding(key.WithKeys("q", "esc"), key.WithHelp("q", "quit")),
	Refresh:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	Picker:     key.NewBinding(key.WithKeys("l", "/"), key.WithHelp("l", "location")),
	Units:      key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "units")),
	Celsius:    key.NewBinding(key.WithKeys("c")),
	Fahrenheit: key.NewBinding(key.WithKeys("f")),
}

// handleKey translates raw keystrokes into semantic actions for the current
// mode. While the search input is focused, everything except control keys
// goes to the text field.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m.quit()
	}

	if m.mode == ModeSelectingLocation {
		return m.handlePickerKey(msg)
	}

	switch {
	case key.Matches(msg, keys.Quit):
		return m.quit()
	case key.Matches(msg, keys.Refresh):
		return m.manualRefresh()
	case key.Matches(msg, keys.Picker):
		return m.openPicker()
	case key.Matches(msg, keys.Units):
		return m.setUnits(m.units.Toggle())
	case key.Matches(msg, keys.Celsius):
		return m.setUnits(domain.UnitsCelsius)
	case key.Matches(msg, keys.Fahrenheit):
		return m.setUnits(domain.UnitsFahrenheit)
	}
	return m, nil
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.mode = ModeQuit
	return m, tea.Quit
}

// manualRefresh starts a fetch immediately, ignoring any pending backoff
// window. Attempt counting still applies if it fails.
func (m Model) manualRefresh() (tea.Model, tea.Cmd) {
	if m.inFlight || !m.haveLocation {
		return m, nil
	}
	return m.startFetch(m.location)
}

func (m Model) setUnits(u domain.Units) (tea.Model, tea.Cmd) {
	if m.units == u {
		return m, nil
	}
	m.units = u
	m.settings.Units = m.units.String()
	return m, saveSettingsCmd(m.settings)
}

func (m Model) openPicker() (tea.Model, tea.Cmd) {
	m.mode = ModeSelectingLocation
	m.candidates = nil
	m.cursor = 0
	m.errText = ""
	m.input.SetValue("")
	m.input.Focus()
	return m, nil
}

func (m Model) closePicker() (tea.Model, tea.Cmd) {
	m.candidates = nil
	m.input.Blur()
	switch {
	case m.bundle != nil:
		m.mode = ModeReady
	case m.haveLocation:
		m.mode = ModeLoading
	default:
		m.mode = ModeError
	}
	return m, nil
}

func (m Model) handlePickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := msg.String()

	// Candidate phase: a ranked list is on screen.
	if m.candidates != nil {
		switch k {
		case "esc":
			return m.closePicker()
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil
		case "down", "j":
			if m.cursor < len(m.candidates)-1 {
				m.cursor++
			}
			return m, nil
		case "enter":
			return m.pickCandidate(m.cursor)
		case "1", "2", "3", "4", "5":
			return m.pickCandidate(int(k[0]-'0') - 1)
		}
		return m, nil
	}

	// Input phase: typing a query, with recents listed underneath.
	switch k {
	case "esc":
		return m.closePicker()
	case "enter":
		q := strings.TrimSpace(m.input.Value())
		if q == "" {
			return m, nil
		}
		// A recent match on the exact query skips the network entirely.
		for _, recent := range m.pickerRecents() {
			if resolve.Normalize(recent.Name) == resolve.Normalize(q) {
				return m.selectLocation(recent)
			}
		}
		return m.startGeocode(q)
	case "up", "down":
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) pickCandidate(i int) (tea.Model, tea.Cmd) {
	if i < 0 || i >= len(m.candidates) {
		return m, nil
	}
	return m.selectLocation(m.candidates[i])
}

// pickerRecents is the recent-location list narrowed by the current input.
func (m Model) pickerRecents() []domain.Location {
	return resolve.FilterRecents(m.settings.Recents(), m.input.Value())
}
