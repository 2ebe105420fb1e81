package domain

import (
	"math"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Units selects the temperature scale used for display. Storage is always
// Celsius; conversion happens at the edge.
type Units int

const (
	UnitsCelsius Units = iota
	UnitsFahrenheit
)

func (u Units) Symbol() string {
	if u == UnitsFahrenheit {
		return "F"
	}
	return "C"
}

func (u Units) String() string {
	if u == UnitsFahrenheit {
		return "fahrenheit"
	}
	return "celsius"
}

// Toggle flips between the two scales.
func (u Units) Toggle() Units {
	if u == UnitsFahrenheit {
		return UnitsCelsius
	}
	return UnitsFahrenheit
}

// ParseUnits maps a settings/flag string to Units, defaulting to Celsius.
func ParseUnits(s string) Units {
	if s == "fahrenheit" || s == "f" {
		return UnitsFahrenheit
	}
	return UnitsCelsius
}

// CurrentConditions is the instantaneous snapshot portion of a bundle.
// All temperatures are Celsius, wind km/h, pressure hPa, visibility metres.
type CurrentConditions struct {
	TemperatureC     float64
	ApparentC        float64
	DewPointC        float64
	RelativeHumidity float64
	WeatherCode      int
	PrecipitationMM  float64
	CloudCover       float64
	PressureHPA      float64
	VisibilityM      float64
	WindSpeed        float64
	WindGusts        float64
	WindDirection    float64
	IsDay            bool
	HighTodayC       float64
	LowTodayC        float64
	HasHighLow       bool
}

// HourlyPoint is one hour of forecast data.
type HourlyPoint struct {
	Time              time.Time
	TemperatureC      float64
	WeatherCode       int
	IsDay             bool
	PrecipProbability float64
	PrecipitationMM   float64
	WindSpeed         float64
	WindGusts         float64
	VisibilityM       float64
	CloudCover        float64
}

// DailyPoint is one day of forecast data.
type DailyPoint struct {
	Date          time.Time
	WeatherCode   int
	TempMaxC      float64
	TempMinC      float64
	Sunrise       time.Time
	Sunset        time.Time
	UVIndexMax    float64
	PrecipProbMax float64
	PrecipSumMM   float64
	WindGustsMax  float64
}

// AirQuality is a best-effort AQI reading attached to a bundle. Zero values
// with OK=false mean the side-fetch failed or returned nothing.
type AirQuality struct {
	USAQI       int
	EuropeanAQI int
	OK          bool
}

// Category buckets the US AQI into the standard EPA bands.
func (a AirQuality) Category() string {
	if !a.OK {
		return "Unknown"
	}
	switch {
	case a.USAQI <= 50:
		return "Good"
	case a.USAQI <= 100:
		return "Moderate"
	case a.USAQI <= 150:
		return "USG"
	case a.USAQI <= 200:
		return "Unhealthy"
	case a.USAQI <= 300:
		return "Very Unhealthy"
	default:
		return "Hazardous"
	}
}

// ForecastBundle is the complete result of one successful fetch. It is
// replaced wholesale on success and never partially mutated; the state
// machine retains the previous bundle across failures.
type ForecastBundle struct {
	Location   Location
	Current    CurrentConditions
	Hourly     []HourlyPoint
	Daily      []DailyPoint
	AirQuality AirQuality
	FetchedAt  time.Time
}

// Age reports how old the bundle is at the given instant.
func (b ForecastBundle) Age(now time.Time) time.Duration {
	return now.Sub(b.FetchedAt)
}

// ConvertTemp converts a Celsius value into the requested units.
func ConvertTemp(celsius float64, units Units) float64 {
	if units == UnitsFahrenheit {
		return celsius*9.0/5.0 + 32.0
	}
	return celsius
}

// RoundTemp rounds for display; NaN maps to 0 so formatting stays sane.
func RoundTemp(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	return int(math.Round(v))
}

var titleCaser = cases.Title(language.English, cases.NoLower)

// WeatherLabel maps a WMO weather code to a short human description.
func WeatherLabel(code int) string {
	switch {
	case code == 0:
		return "Clear sky"
	case code <= 2:
		return "Partly cloudy"
	case code == 3:
		return "Overcast"
	case code == 45 || code == 48:
		return "Fog"
	case code >= 51 && code <= 57:
		return "Drizzle"
	case code >= 61 && code <= 67:
		return "Rain"
	case code >= 71 && code <= 77:
		return "Snow"
	case code >= 80 && code <= 82:
		return "Rain showers"
	case code == 85 || code == 86:
		return "Snow showers"
	case code == 95:
		return "Thunderstorm"
	case code == 96 || code == 99:
		return "Thunderstorm with hail"
	default:
		return "Unknown"
	}
}

// TitleName normalizes a raw place name for display ("new york" -> "New York").
func TitleName(name string) string {
	return titleCaser.String(name)
}

func foldEqual(a, b string) bool {
	folder := cases.Fold()
	return folder.String(a) == folder.String(b)
}

// FoldLower is Unicode-aware case folding, shared with the resolver so that
// name comparison behaves identically everywhere.
func FoldLower(s string) string {
	return cases.Fold().String(s)
}
