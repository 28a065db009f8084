// Package weather defines what the app knows about weather: the report shape
// the UI renders and the Fetcher boundary that produces it.
//
// The core treats a Fetcher as opaque. It does not retry, cache or rate-limit;
// a failed fetch is reported to the user and the user may search again.
// The OpenWeatherMap implementation lives in weather/openweather.
package weather

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"
)

var (
	// ErrCityNotFound means the service answered and does not know the city.
	ErrCityNotFound = errors.New("weather: city not found")
	// ErrNetwork covers everything else: timeouts, DNS, non-2xx answers and
	// bodies that do not decode.
	ErrNetwork = errors.New("weather: network error")
)

// Fetcher retrieves current conditions and the short-range forecast for a
// city. unitSystem is "metric" or "imperial".
type Fetcher interface {
	FetchCurrentAndForecast(ctx context.Context, city, unitSystem string) (*Report, error)
}

// Condition is the coarse weather category used to pick an icon and the
// dynamic background.
type Condition string

const (
	ConditionClear   Condition = "clear"
	ConditionClouds  Condition = "clouds"
	ConditionRain    Condition = "rain"
	ConditionSnow    Condition = "snow"
	ConditionStorm   Condition = "thunderstorm"
	ConditionUnknown Condition = "unknown"
)

// ParseCondition maps the service's "main" field (Clear, Clouds, Drizzle, ...)
// to a Condition. Matching is case-insensitive.
func ParseCondition(main string) Condition {
	switch strings.ToLower(strings.TrimSpace(main)) {
	case "clear":
		return ConditionClear
	case "clouds":
		return ConditionClouds
	case "rain", "drizzle":
		return ConditionRain
	case "snow":
		return ConditionSnow
	case "thunderstorm":
		return ConditionStorm
	default:
		return ConditionUnknown
	}
}

// Icon is the icon file name for the condition. Unknown conditions use the
// cloud icon.
func (c Condition) Icon() string {
	switch c {
	case ConditionClear:
		return "sun.png"
	case ConditionRain:
		return "rain.png"
	case ConditionSnow:
		return "snow.png"
	case ConditionStorm:
		return "thunder.png"
	default:
		return "cloud.png"
	}
}

// DefaultBackground is used when dynamic backgrounds are off, and for
// conditions without a color of their own.
const DefaultBackground = "#1f2630"

// Background is the page color for the condition.
func (c Condition) Background() string {
	switch c {
	case ConditionClear:
		return "#1E90FF"
	case ConditionClouds:
		return "#6c7680"
	case ConditionRain:
		return "#2b3a4a"
	case ConditionStorm:
		return "#1b2430"
	case ConditionSnow:
		return "#9aa6b2"
	default:
		return DefaultBackground
	}
}

// Current is the observation for one city right now.
type Current struct {
	City        string    `json:"city"`
	Temp        float64   `json:"temp"`
	FeelsLike   float64   `json:"feelsLike"`
	Humidity    int       `json:"humidity"`
	Pressure    int       `json:"pressure"`
	WindSpeed   float64   `json:"windSpeed"`
	Main        string    `json:"main"`
	Description string    `json:"description"`
	Condition   Condition `json:"condition"`
	ObservedAt  time.Time `json:"observedAt"`
}

// RoundedTemp is the whole-degree temperature shown and stored in history.
func (c Current) RoundedTemp() int {
	return Round(c.Temp)
}

// ForecastEntry is one 3-hour slot of the forecast as the service returns it.
type ForecastEntry struct {
	Time      time.Time
	Temp      float64
	Main      string
	Condition Condition
}

// HourlyPoint is one slot of the hourly strip.
type HourlyPoint struct {
	Time      time.Time `json:"time"`
	Label     string    `json:"label"`
	Temp      int       `json:"temp"`
	Main      string    `json:"main"`
	Condition Condition `json:"condition"`
}

// DailySummary is one row of the 5-day forecast.
type DailySummary struct {
	Date      time.Time `json:"date"`
	Weekday   string    `json:"weekday"`
	Max       int       `json:"max"`
	Min       int       `json:"min"`
	Condition Condition `json:"condition"`
}

// Report is everything one search produces.
type Report struct {
	Current    Current        `json:"current"`
	Hourly     []HourlyPoint  `json:"hourly"`
	Daily      []DailySummary `json:"daily"`
	UnitSystem string         `json:"unitSystem"`
}

const (
	// HourlySlots is how many forecast slots the hourly strip shows.
	HourlySlots = 7
	// ForecastDays is how many days the daily summary covers.
	ForecastDays = 5
)

// Summarize builds the hourly strip and the daily summaries from forecast
// slots in the order the service returned them.
//
// Days are grouped by the slot's UTC calendar date, kept in first-seen order.
// A day's condition is the condition of its first slot; max and min are
// taken over all of its slots and rounded afterwards.
func Summarize(entries []ForecastEntry) ([]HourlyPoint, []DailySummary) {
	hourly := make([]HourlyPoint, 0, HourlySlots)
	for i, e := range entries {
		if i == HourlySlots {
			break
		}
		t := e.Time.UTC()
		hourly = append(hourly, HourlyPoint{
			Time:      t,
			Label:     t.Format("15:04"),
			Temp:      Round(e.Temp),
			Main:      e.Main,
			Condition: e.Condition,
		})
	}

	type day struct {
		date      time.Time
		max, min  float64
		condition Condition
	}
	var order []string
	days := make(map[string]*day)
	for _, e := range entries {
		if e.Time.IsZero() {
			continue
		}
		t := e.Time.UTC()
		key := t.Format("2006-01-02")
		d, ok := days[key]
		if !ok {
			d = &day{
				date:      time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC),
				max:       e.Temp,
				min:       e.Temp,
				condition: e.Condition,
			}
			days[key] = d
			order = append(order, key)
			continue
		}
		d.max = math.Max(d.max, e.Temp)
		d.min = math.Min(d.min, e.Temp)
	}

	daily := make([]DailySummary, 0, ForecastDays)
	for i, key := range order {
		if i == ForecastDays {
			break
		}
		d := days[key]
		daily = append(daily, DailySummary{
			Date:      d.date,
			Weekday:   d.date.Format("Mon"),
			Max:       Round(d.max),
			Min:       Round(d.min),
			Condition: d.condition,
		})
	}
	return hourly, daily
}

// Round converts a temperature to whole degrees. Halves go to the even
// neighbour, matching the values existing databases already hold.
func Round(v float64) int {
	return int(math.RoundToEven(v))
}
