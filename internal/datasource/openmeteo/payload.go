package openmeteo

import (
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"github.com/skycast-tui/skycast/internal/domain"
	"github.com/skycast-tui/skycast/internal/fetch"
)

var (
	errUpstreamStatus = errors.New("upstream returned non-success status")
	errMalformed      = errors.New("malformed response body")
)

func classifyForecastErr(err error) error {
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return fetch.Wrap("forecast", fetch.KindConnection, err)
	case errors.Is(err, errMalformed):
		return fetch.Wrap("forecast", fetch.KindMalformed, err)
	case errors.Is(err, errUpstreamStatus):
		return fetch.Wrap("forecast", fetch.KindUpstream, err)
	default:
		return fetch.Wrap("forecast", fetch.KindConnection, err)
	}
}

// Open-Meteo returns parallel arrays keyed by timestamp. Field order in the
// response mirrors the requested variable lists in forecastQuery.

type forecastResponse struct {
	Current currentBlock `json:"current"`
	Hourly  hourlyBlock  `json:"hourly"`
	Daily   dailyBlock   `json:"daily"`
}

type currentBlock struct {
	Temperature2m      float64 `json:"temperature_2m"`
	RelativeHumidity2m float64 `json:"relative_humidity_2m"`
	ApparentTemp       float64 `json:"apparent_temperature"`
	DewPoint2m         float64 `json:"dew_point_2m"`
	WeatherCode        int     `json:"weather_code"`
	Precipitation      float64 `json:"precipitation"`
	CloudCover         float64 `json:"cloud_cover"`
	PressureMSL        float64 `json:"pressure_msl"`
	Visibility         float64 `json:"visibility"`
	WindSpeed10m       float64 `json:"wind_speed_10m"`
	WindGusts10m       float64 `json:"wind_gusts_10m"`
	WindDirection10m   float64 `json:"wind_direction_10m"`
	IsDay              int     `json:"is_day"`
}

type hourlyBlock struct {
	Time              []string  `json:"time"`
	Temperature2m     []float64 `json:"temperature_2m"`
	WeatherCode       []int     `json:"weather_code"`
	IsDay             []int     `json:"is_day"`
	PrecipProbability []float64 `json:"precipitation_probability"`
	Precipitation     []float64 `json:"precipitation"`
	WindSpeed10m      []float64 `json:"wind_speed_10m"`
	WindGusts10m      []float64 `json:"wind_gusts_10m"`
	Visibility        []float64 `json:"visibility"`
	CloudCover        []float64 `json:"cloud_cover"`
}

type dailyBlock struct {
	Time          []string  `json:"time"`
	WeatherCode   []int     `json:"weather_code"`
	TempMax       []float64 `json:"temperature_2m_max"`
	TempMin       []float64 `json:"temperature_2m_min"`
	Sunrise       []string  `json:"sunrise"`
	Sunset        []string  `json:"sunset"`
	UVIndexMax    []float64 `json:"uv_index_max"`
	PrecipProbMax []float64 `json:"precipitation_probability_max"`
	PrecipSum     []float64 `json:"precipitation_sum"`
	WindGustsMax  []float64 `json:"wind_gusts_10m_max"`
}

type airQualityResponse struct {
	Current *airQualityCurrent `json:"current"`
}

type airQualityCurrent struct {
	USAQI       float64 `json:"us_aqi"`
	EuropeanAQI float64 `json:"european_aqi"`
}

func parseCurrent(payload *forecastResponse) domain.CurrentConditions {
	cur := payload.Current
	out := domain.CurrentConditions{
		TemperatureC:     cur.Temperature2m,
		ApparentC:        cur.ApparentTemp,
		DewPointC:        cur.DewPoint2m,
		RelativeHumidity: cur.RelativeHumidity2m,
		WeatherCode:      cur.WeatherCode,
		PrecipitationMM:  cur.Precipitation,
		CloudCover:       cur.CloudCover,
		PressureHPA:      cur.PressureMSL,
		VisibilityM:      cur.Visibility,
		WindSpeed:        cur.WindSpeed10m,
		WindGusts:        cur.WindGusts10m,
		WindDirection:    cur.WindDirection10m,
		IsDay:            cur.IsDay == 1,
	}
	if len(payload.Daily.TempMax) > 0 && len(payload.Daily.TempMin) > 0 {
		out.HighTodayC = payload.Daily.TempMax[0]
		out.LowTodayC = payload.Daily.TempMin[0]
		out.HasHighLow = true
	}
	return out
}

func parseHourly(block *hourlyBlock) []domain.HourlyPoint {
	out := make([]domain.HourlyPoint, 0, len(block.Time))
	for i, raw := range block.Time {
		ts, err := time.Parse("2006-01-02T15:04", raw)
		if err != nil {
			continue
		}
		out = append(out, domain.HourlyPoint{
			Time:              ts,
			TemperatureC:      floatAt(block.Temperature2m, i),
			WeatherCode:       intAt(block.WeatherCode, i),
			IsDay:             intAt(block.IsDay, i) == 1,
			PrecipProbability: floatAt(block.PrecipProbability, i),
			PrecipitationMM:   floatAt(block.Precipitation, i),
			WindSpeed:         floatAt(block.WindSpeed10m, i),
			WindGusts:         floatAt(block.WindGusts10m, i),
			VisibilityM:       floatAt(block.Visibility, i),
			CloudCover:        floatAt(block.CloudCover, i),
		})
	}
	return out
}

func parseDaily(block *dailyBlock) []domain.DailyPoint {
	out := make([]domain.DailyPoint, 0, len(block.Time))
	for i, raw := range block.Time {
		date, err := time.Parse("2006-01-02", raw)
		if err != nil {
			continue
		}
		out = append(out, domain.DailyPoint{
			Date:          date,
			WeatherCode:   intAt(block.WeatherCode, i),
			TempMaxC:      floatAt(block.TempMax, i),
			TempMinC:      floatAt(block.TempMin, i),
			Sunrise:       timeAt(block.Sunrise, i),
			Sunset:        timeAt(block.Sunset, i),
			UVIndexMax:    floatAt(block.UVIndexMax, i),
			PrecipProbMax: floatAt(block.PrecipProbMax, i),
			PrecipSumMM:   floatAt(block.PrecipSum, i),
			WindGustsMax:  floatAt(block.WindGustsMax, i),
		})
	}
	return out
}

func floatAt(values []float64, i int) float64 {
	if i < len(values) {
		return values[i]
	}
	return 0
}

func intAt(values []int, i int) int {
	if i < len(values) {
		return values[i]
	}
	return 0
}

func timeAt(values []string, i int) time.Time {
	if i >= len(values) {
		return time.Time{}
	}
	ts, err := time.Parse("2006-01-02T15:04", values[i])
	if err != nil {
		return time.Time{}
	}
	return ts
}
