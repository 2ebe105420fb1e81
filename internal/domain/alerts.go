package domain

import (
	"fmt"
	"sort"
)

// AlertSeverity orders alerts for display; higher is more urgent.
type AlertSeverity int

const (
	SeverityInfo AlertSeverity = iota
	SeverityWarning
	SeverityDanger
)

// WeatherAlert is a short advisory derived from the forecast itself, not
// from an external alerting feed.
type WeatherAlert struct {
	Icon     string
	Message  string
	Severity AlertSeverity
}

// ScanAlerts derives advisories from the next 24 forecast hours (plus
// today's UV maximum). Pure function of the bundle; the same bundle always
// yields the same alerts in the same order, most severe first.
func ScanAlerts(b ForecastBundle, units Units) []WeatherAlert {
	hours := b.Hourly
	if len(hours) > 24 {
		hours = hours[:24]
	}

	var alerts []WeatherAlert
	add := func(a *WeatherAlert) {
		if a != nil {
			alerts = append(alerts, *a)
		}
	}

	add(windGustAlert(hours))
	add(uvAlert(b.Daily))
	add(freezingAlert(hours))
	add(heavyPrecipAlert(hours))
	add(lowVisibilityAlert(hours))
	add(extremeHeatAlert(hours, units))
	add(extremeColdAlert(hours, units))
	add(thunderAlert(hours))

	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].Severity > alerts[j].Severity
	})
	return alerts
}

func windGustAlert(hours []HourlyPoint) *WeatherAlert {
	maxGust := 0.0
	for _, h := range hours {
		if h.WindGusts > maxGust {
			maxGust = h.WindGusts
		}
	}
	switch {
	case maxGust >= 80:
		return &WeatherAlert{
			Icon:     "⚡",
			Message:  fmt.Sprintf("Wind gusts up to %.0f km/h", maxGust),
			Severity: SeverityDanger,
		}
	case maxGust >= 50:
		return &WeatherAlert{
			Icon:     "💨",
			Message:  fmt.Sprintf("Wind gusts up to %.0f km/h", maxGust),
			Severity: SeverityWarning,
		}
	}
	return nil
}

func uvAlert(daily []DailyPoint) *WeatherAlert {
	if len(daily) == 0 {
		return nil
	}
	uv := daily[0].UVIndexMax
	switch {
	case uv >= 8:
		return &WeatherAlert{
			Icon:     "☀",
			Message:  fmt.Sprintf("UV index very high (%.0f)", uv),
			Severity: SeverityDanger,
		}
	case uv >= 6:
		return &WeatherAlert{
			Icon:     "☀",
			Message:  fmt.Sprintf("UV index high (%.0f)", uv),
			Severity: SeverityWarning,
		}
	}
	return nil
}

func freezingAlert(hours []HourlyPoint) *WeatherAlert {
	for _, h := range hours {
		switch h.WeatherCode {
		case 56, 57, 66, 67:
			return &WeatherAlert{
				Icon:     "❄",
				Message:  "Freezing rain/drizzle expected",
				Severity: SeverityDanger,
			}
		}
	}
	return nil
}

func heavyPrecipAlert(hours []HourlyPoint) *WeatherAlert {
	total := 0.0
	for _, h := range hours {
		if h.PrecipitationMM > 0 {
			total += h.PrecipitationMM
		}
	}
	if total >= 25 {
		return &WeatherAlert{
			Icon:     "🌧",
			Message:  fmt.Sprintf("Heavy precipitation: %.1fmm in 24h", total),
			Severity: SeverityWarning,
		}
	}
	return nil
}

func lowVisibilityAlert(hours []HourlyPoint) *WeatherAlert {
	// Zero visibility means the provider omitted the field, not opaque air.
	minVis := 0.0
	for _, h := range hours {
		if h.VisibilityM <= 0 {
			continue
		}
		if minVis == 0 || h.VisibilityM < minVis {
			minVis = h.VisibilityM
		}
	}
	if minVis > 0 && minVis < 1000 {
		return &WeatherAlert{
			Icon:     "░",
			Message:  fmt.Sprintf("Low visibility: %.1fkm", minVis/1000),
			Severity: SeverityWarning,
		}
	}
	return nil
}

func extremeHeatAlert(hours []HourlyPoint, units Units) *WeatherAlert {
	if len(hours) == 0 {
		return nil
	}
	maxTemp := hours[0].TemperatureC
	for _, h := range hours[1:] {
		if h.TemperatureC > maxTemp {
			maxTemp = h.TemperatureC
		}
	}
	if maxTemp >= 38 {
		return &WeatherAlert{
			Icon:     "🔥",
			Message:  fmt.Sprintf("Extreme heat: up to %d°%s", RoundTemp(ConvertTemp(maxTemp, units)), units.Symbol()),
			Severity: SeverityDanger,
		}
	}
	return nil
}

func extremeColdAlert(hours []HourlyPoint, units Units) *WeatherAlert {
	if len(hours) == 0 {
		return nil
	}
	minTemp := hours[0].TemperatureC
	for _, h := range hours[1:] {
		if h.TemperatureC < minTemp {
			minTemp = h.TemperatureC
		}
	}
	if minTemp <= -15 {
		return &WeatherAlert{
			Icon:     "❄",
			Message:  fmt.Sprintf("Extreme cold: down to %d°%s", RoundTemp(ConvertTemp(minTemp, units)), units.Symbol()),
			Severity: SeverityDanger,
		}
	}
	return nil
}

func thunderAlert(hours []HourlyPoint) *WeatherAlert {
	for _, h := range hours {
		switch h.WeatherCode {
		case 95, 96, 99:
			return &WeatherAlert{
				Icon:     "⚡",
				Message:  "Thunderstorms expected",
				Severity: SeverityWarning,
			}
		}
	}
	return nil
}
