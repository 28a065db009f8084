// Package openweather implements weather.Fetcher against the OpenWeatherMap
// 2.5 API.
//
// One search is two GET requests with the same query parameters:
//
//	{base}/weather?q=Paris&appid=KEY&units=metric   → current conditions
//	{base}/forecast?q=Paris&appid=KEY&units=metric  → 5 days of 3-hour slots
//
// A 404 from either means the city is unknown (weather.ErrCityNotFound).
// Any other failure, including a timeout, is weather.ErrNetwork.
package openweather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sakif/weatherly/internal/weather"
)

// DefaultBaseURL is the public 2.5 API root.
const DefaultBaseURL = "https://api.openweathermap.org/data/2.5"

// Client is a weather.Fetcher for OpenWeatherMap.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

var _ weather.Fetcher = (*Client)(nil)

// New builds a client. An empty baseURL means DefaultBaseURL. timeout bounds
// each request; zero leaves it to the caller's context.
func New(apiKey, baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// FetchCurrentAndForecast runs both requests and assembles a weather.Report.
func (c *Client) FetchCurrentAndForecast(ctx context.Context, city, unitSystem string) (*weather.Report, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("%w: api key is not configured", weather.ErrNetwork)
	}

	params := url.Values{}
	params.Set("q", city)
	params.Set("appid", c.apiKey)
	params.Set("units", unitSystem)

	var current currentPayload
	if err := c.get(ctx, "/weather", params, &current); err != nil {
		return nil, err
	}

	var forecast forecastPayload
	if err := c.get(ctx, "/forecast", params, &forecast); err != nil {
		return nil, err
	}

	report := &weather.Report{
		Current:    current.toCurrent(city),
		UnitSystem: unitSystem,
	}
	report.Hourly, report.Daily = weather.Summarize(forecast.entries())
	return report, nil
}

// get performs one GET and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	u := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("%w: building request: %w", weather.ErrNetwork, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// Scrub the URL: *url.Error repeats it, and it carries the api key.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return fmt.Errorf("%w: GET %s: %w", weather.ErrNetwork, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		io.Copy(io.Discard, resp.Body)
		return weather.ErrCityNotFound
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: GET %s: unexpected status %d", weather.ErrNetwork, path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding %s: %w", weather.ErrNetwork, path, err)
	}
	return nil
}

type condition struct {
	ID          int    `json:"id"`
	Main        string `json:"main"`
	Description string `json:"description"`
}

type currentPayload struct {
	Name string `json:"name"`
	Dt   int64  `json:"dt"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  int     `json:"humidity"`
		Pressure  int     `json:"pressure"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Weather []condition `json:"weather"`
}

// toCurrent normalizes the payload. fallback is the searched text, used when
// the service omits the resolved city name.
func (p currentPayload) toCurrent(fallback string) weather.Current {
	cur := weather.Current{
		City:      p.Name,
		Temp:      p.Main.Temp,
		FeelsLike: p.Main.FeelsLike,
		Humidity:  p.Main.Humidity,
		Pressure:  p.Main.Pressure,
		WindSpeed: p.Wind.Speed,
		Condition: weather.ConditionUnknown,
	}
	if cur.City == "" {
		cur.City = fallback
	}
	if p.Dt > 0 {
		cur.ObservedAt = time.Unix(p.Dt, 0).UTC()
	}
	if len(p.Weather) > 0 {
		w := p.Weather[0]
		cur.Main = w.Main
		// "light rain" → "Light Rain". A Caser keeps state, so one per call.
		cur.Description = cases.Title(language.English).String(w.Description)
		cur.Condition = weather.ParseCondition(w.Main)
	}
	return cur
}

type forecastPayload struct {
	List []struct {
		Dt    int64  `json:"dt"`
		DtTxt string `json:"dt_txt"`
		Main  struct {
			Temp float64 `json:"temp"`
		} `json:"main"`
		Weather []condition `json:"weather"`
	} `json:"list"`
}

// entries converts the slots. dt_txt ("2024-05-01 12:00:00", UTC) is
// preferred; dt is the fallback.
func (p forecastPayload) entries() []weather.ForecastEntry {
	out := make([]weather.ForecastEntry, 0, len(p.List))
	for _, item := range p.List {
		e := weather.ForecastEntry{
			Temp:      item.Main.Temp,
			Condition: weather.ConditionUnknown,
		}
		if t, err := time.Parse("2006-01-02 15:04:05", item.DtTxt); err == nil {
			e.Time = t
		} else if item.Dt > 0 {
			e.Time = time.Unix(item.Dt, 0).UTC()
		}
		if len(item.Weather) > 0 {
			e.Main = item.Weather[0].Main
			e.Condition = weather.ParseCondition(item.Weather[0].Main)
		}
		out = append(out, e)
	}
	return out
}
