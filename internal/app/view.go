package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/skycast-tui/skycast/internal/domain"
	"github.com/skycast-tui/skycast/internal/resilience"
)

func (m Model) View() string {
	if m.mode == ModeQuit {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")

	switch m.mode {
	case ModeLoading:
		b.WriteString(m.renderLoading())
	case ModeSelectingLocation:
		b.WriteString(m.renderPicker())
	case ModeError:
		b.WriteString(m.renderError())
	default:
		b.WriteString(m.renderDashboard())
	}

	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m Model) renderHeader() string {
	title := titleStyle.Render("skycast")
	place := ""
	if m.haveLocation {
		place = m.location.DisplayName()
	}
	badge := m.freshnessBadge()
	line := fmt.Sprintf("%s  %s  %s", title, valueStyle.Render(place), badge)
	if m.width > 0 {
		return headerBarStyle.Width(m.width).Render(line)
	}
	return headerBarStyle.Render(line)
}

// freshnessBadge renders the staleness indicator. It reflects data age and
// the failure streak, never the mere presence of an error message.
func (m Model) freshnessBadge() string {
	if m.bundle == nil {
		return ""
	}
	st := m.Freshness()
	switch st.Level {
	case resilience.Offline:
		return offlineStyle.Render("[" + st.Label() + "]")
	case resilience.Stale:
		return staleStyle.Render("[" + st.Label() + "]")
	default:
		return freshStyle.Render("[" + st.Label() + "]")
	}
}

func (m Model) renderLoading() string {
	what := "Fetching forecast"
	if !m.haveLocation {
		what = "Finding your location"
	}
	return "  " + m.spin.View() + statusStyle.Render(" "+what+"...")
}

func (m Model) renderError() string {
	var b strings.Builder
	b.WriteString("  " + errorStyle.Render(m.errText) + "\n")
	if wait, ok := m.retry.RetryIn(m.now()); ok {
		b.WriteString("  " + statusStyle.Render(fmt.Sprintf("Retrying in %ds", int(wait.Seconds()))) + "\n")
	}
	b.WriteString("  " + statusStyle.Render("Press ") + hintKeyStyle.Render("r") +
		statusStyle.Render(" to retry now, ") + hintKeyStyle.Render("l") +
		statusStyle.Render(" to pick a city"))
	return b.String()
}

func (m Model) renderPicker() string {
	var b strings.Builder
	if m.candidates != nil {
		b.WriteString("  " + titleStyle.Render(fmt.Sprintf("Which %q?", domain.TitleName(m.pickerQuery))) + "\n\n")
		for i, c := range m.candidates {
			line := fmt.Sprintf(" %d. %s", i+1, c.DisplayName())
			if c.Population > 0 {
				line += labelStyle.Render(fmt.Sprintf("  (pop %s)", formatPopulation(c.Population)))
			}
			if i == m.cursor {
				line = pickerSelStyle.Render(line)
			}
			b.WriteString("  " + line + "\n")
		}
		return b.String()
	}

	b.WriteString("  " + titleStyle.Render("Location") + "\n\n")
	b.WriteString("  " + m.input.View() + "\n")
	if m.errText != "" {
		b.WriteString("  " + errorStyle.Render(m.errText) + "\n")
	}
	if recents := m.pickerRecents(); len(recents) > 0 {
		b.WriteString("\n  " + labelStyle.Render("Recent") + "\n")
		for _, r := range recents {
			b.WriteString("    " + valueStyle.Render(r.DisplayName()) + "\n")
		}
	}
	return b.String()
}

func (m Model) renderDashboard() string {
	if m.bundle == nil {
		return m.renderLoading()
	}
	cur := sectionStyle.Render(m.renderCurrent())
	hourly := sectionStyle.Render(m.renderHourly())
	daily := sectionStyle.Render(m.renderDaily())

	top := lipgloss.JoinHorizontal(lipgloss.Top, cur, " ", hourly)
	if alerts := m.renderAlerts(); alerts != "" {
		return lipgloss.JoinVertical(lipgloss.Left, alerts, top, daily)
	}
	return lipgloss.JoinVertical(lipgloss.Left, top, daily)
}

// renderAlerts is the advisory strip above the panels; empty when the
// forecast is quiet.
func (m Model) renderAlerts() string {
	alerts := domain.ScanAlerts(*m.bundle, m.units)
	if len(alerts) == 0 {
		return ""
	}
	parts := make([]string, 0, len(alerts))
	for _, a := range alerts {
		entry := a.Icon + " " + a.Message
		switch a.Severity {
		case domain.SeverityDanger:
			entry = offlineStyle.Render(entry)
		case domain.SeverityWarning:
			entry = staleStyle.Render(entry)
		default:
			entry = statusStyle.Render(entry)
		}
		parts = append(parts, entry)
	}
	return " " + strings.Join(parts, labelStyle.Render("  │  "))
}

func (m Model) renderCurrent() string {
	c := m.bundle.Current
	var b strings.Builder

	b.WriteString(tempStyle.Render(fmt.Sprintf("%d°%s", domain.RoundTemp(domain.ConvertTemp(c.TemperatureC, m.units)), m.units.Symbol())))
	b.WriteString("  " + valueStyle.Render(domain.WeatherLabel(c.WeatherCode)) + "\n")
	b.WriteString(labelStyle.Render("Feels like ") + m.fmtTemp(c.ApparentC) + "\n")
	if c.HasHighLow {
		b.WriteString(labelStyle.Render("High/Low   ") + m.fmtTemp(c.HighTodayC) + " / " + m.fmtTemp(c.LowTodayC) + "\n")
	}
	b.WriteString(labelStyle.Render("Humidity   ") + valueStyle.Render(fmt.Sprintf("%.0f%%", c.RelativeHumidity)) + "\n")
	b.WriteString(labelStyle.Render("Wind       ") + valueStyle.Render(fmt.Sprintf("%.0f km/h (gusts %.0f)", c.WindSpeed, c.WindGusts)) + "\n")
	b.WriteString(labelStyle.Render("Pressure   ") + valueStyle.Render(fmt.Sprintf("%.0f hPa", c.PressureHPA)) + "\n")
	b.WriteString(labelStyle.Render("Visibility ") + valueStyle.Render(fmt.Sprintf("%.1f km", c.VisibilityM/1000)))

	if aq := m.bundle.AirQuality; aq.OK {
		b.WriteString("\n" + labelStyle.Render("Air (AQI)  ") + valueStyle.Render(fmt.Sprintf("%d %s", aq.USAQI, aq.Category())))
	}
	return b.String()
}

// hourlyShown bounds the hourly strip; the bundle carries more for future
// scrolling but the default layout shows the near term.
const hourlyShown = 12

func (m Model) renderHourly() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Next hours") + "\n")
	n := min(len(m.bundle.Hourly), hourlyShown)
	for _, h := range m.bundle.Hourly[:n] {
		b.WriteString(fmt.Sprintf("%s  %s  %s %3.0f%%\n",
			labelStyle.Render(h.Time.Format("15:04")),
			m.fmtTemp(h.TemperatureC),
			labelStyle.Render("rain"),
			h.PrecipProbability))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) renderDaily() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Week") + "\n")
	for _, d := range m.bundle.Daily {
		b.WriteString(fmt.Sprintf("%s  %s / %s  %-22s %s\n",
			labelStyle.Render(d.Date.Format("Mon 02")),
			m.fmtTemp(d.TempMaxC),
			m.fmtTemp(d.TempMinC),
			valueStyle.Render(domain.WeatherLabel(d.WeatherCode)),
			labelStyle.Render(fmt.Sprintf("rain %3.0f%%", d.PrecipProbMax))))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) renderFooter() string {
	parts := []string{
		hintKeyStyle.Render("r") + statusStyle.Render(" refresh"),
		hintKeyStyle.Render("l") + statusStyle.Render(" location"),
		hintKeyStyle.Render("u") + statusStyle.Render(" units"),
		hintKeyStyle.Render("q") + statusStyle.Render(" quit"),
	}
	line := strings.Join(parts, footerStyle.Render("  "))

	if m.inFlight {
		line += statusStyle.Render("   refreshing...")
	} else if wait, ok := m.retry.RetryIn(m.now()); ok && m.mode == ModeReady {
		line += errorStyle.Render(fmt.Sprintf("   %s error", m.lastKind)) +
			statusStyle.Render(fmt.Sprintf(", retry in %ds", int(wait.Seconds())))
	}
	if m.width > 0 {
		return footerStyle.Width(m.width).Render(line)
	}
	return footerStyle.Render(line)
}

func (m Model) fmtTemp(celsius float64) string {
	return valueStyle.Render(fmt.Sprintf("%d°%s", domain.RoundTemp(domain.ConvertTemp(celsius, m.units)), m.units.Symbol()))
}

func formatPopulation(p int64) string {
	switch {
	case p >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(p)/1_000_000)
	case p >= 1_000:
		return fmt.Sprintf("%.0fk", float64(p)/1_000)
	default:
		return fmt.Sprintf("%d", p)
	}
}
