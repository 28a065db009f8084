package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/weatherly/internal/apperror"
	"github.com/sakif/weatherly/internal/model"
	"github.com/sakif/weatherly/internal/repository"
	"github.com/sakif/weatherly/internal/session"
	"github.com/sakif/weatherly/internal/weather"
)

// DefaultSearchTimeout bounds one search (both requests) when none is
// configured.
const DefaultSearchTimeout = 10 * time.Second

// SearchHistory is what a search writes to after a successful fetch.
type SearchHistory interface {
	repository.RecentRepository
	repository.SearchLogRepository
	repository.FavoriteRepository
}

// SearchResult is one completed search.
type SearchResult struct {
	// Ticket identifies the search. Tickets are xids, so they sort by issue
	// time.
	Ticket     string          `json:"ticket"`
	Query      string          `json:"query"`
	Report     *weather.Report `json:"report"`
	Unit       model.Unit      `json:"unit"`
	Background string          `json:"background"`
	IsFavorite bool            `json:"isFavorite"`
	// Superseded is true when a newer search was issued while this one was
	// in flight. The result is returned to its caller but never displayed.
	Superseded bool `json:"superseded"`
}

// WeatherService runs city searches.
//
// STALE RESULTS:
// Searches run on request goroutines and can overlap: the user searches
// "Paris", then "Rome" before Paris comes back. Each search takes a ticket
// when it starts. Only the search holding the newest ticket may replace the
// displayed result; an older one that finishes late comes back with
// Superseded set and the display untouched. Reset invalidates every ticket
// in flight.
type WeatherService struct {
	fetcher  weather.Fetcher
	history  SearchHistory
	settings repository.SettingsRepository
	session  *session.Session
	timeout  time.Duration
	logger   *slog.Logger

	mu        sync.Mutex
	latest    xid.ID
	displayed *SearchResult
}

func NewWeatherService(
	fetcher weather.Fetcher,
	history SearchHistory,
	settings repository.SettingsRepository,
	sess *session.Session,
	timeout time.Duration,
	logger *slog.Logger,
) *WeatherService {
	if timeout <= 0 {
		timeout = DefaultSearchTimeout
	}
	return &WeatherService{
		fetcher:  fetcher,
		history:  history,
		settings: settings,
		session:  sess,
		timeout:  timeout,
		logger:   logger,
	}
}

// Search fetches weather for city in the saved unit.
//
// After a successful fetch it records the city in recent searches and, when
// someone is logged in, in that account's search log. Those writes are
// best-effort: a failure is logged and the search still succeeds.
//
// Errors: empty city → ErrValidation; unknown city → ErrNotFound;
// anything else from the fetch → ErrUpstream.
func (s *WeatherService) Search(ctx context.Context, city string) (*SearchResult, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return nil, apperror.ValidationFailed("city", "enter a city name")
	}

	settings, err := s.settings.GetSettings(ctx)
	if err != nil {
		s.logger.Error("reading settings for search, using defaults", slog.String("error", err.Error()))
		settings = model.DefaultSettings()
	}

	who, loggedIn := s.session.Current()
	ticket := s.issueTicket()

	fetchCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	report, err := s.fetcher.FetchCurrentAndForecast(fetchCtx, city, settings.Unit.UnitSystem())
	if err != nil {
		switch {
		case errors.Is(err, weather.ErrCityNotFound):
			s.logger.Info("city not found", slog.String("city", city))
			return nil, &apperror.AppError{
				Err:     apperror.ErrNotFound,
				Message: "city not found, check spelling",
				Field:   "city",
			}
		default:
			s.logger.Warn("weather fetch failed",
				slog.String("city", city),
				slog.String("error", err.Error()),
			)
			return nil, apperror.Upstream("network error, try again", err)
		}
	}

	name := report.Current.City
	temp := report.Current.RoundedTemp()
	s.recordHistory(ctx, who, loggedIn, name, temp)

	fav, err := s.history.IsFavorite(ctx, name)
	if err != nil {
		s.logger.Error("checking favorite", slog.String("city", name), slog.String("error", err.Error()))
	}

	result := &SearchResult{
		Ticket:     ticket.String(),
		Query:      city,
		Report:     report,
		Unit:       settings.Unit,
		Background: background(report.Current.Condition, settings.DynamicBackground),
		IsFavorite: fav,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if ticket != s.latest {
		result.Superseded = true
		s.logger.Debug("discarding stale search result", slog.String("city", name))
		return result, nil
	}
	s.displayed = result
	return result, nil
}

func (s *WeatherService) recordHistory(ctx context.Context, who session.Identity, loggedIn bool, city string, temp int) {
	if err := s.history.AddRecent(ctx, city, temp); err != nil {
		s.logger.Error("recording recent search", slog.String("city", city), slog.String("error", err.Error()))
	}
	if !loggedIn {
		return
	}
	if err := s.history.LogSearch(ctx, who.Username, city, temp); err != nil {
		s.logger.Error("logging search",
			slog.String("username", who.Username),
			slog.String("city", city),
			slog.String("error", err.Error()),
		)
	}
}

func (s *WeatherService) issueTicket() xid.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = xid.New()
	return s.latest
}

// Displayed returns the result currently on screen, or nil.
func (s *WeatherService) Displayed() *SearchResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.displayed
}

// MarkFavorite updates the favorite flag of the displayed result when it is
// for city.
func (s *WeatherService) MarkFavorite(city string, fav bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.displayed != nil && s.displayed.Report != nil && s.displayed.Report.Current.City == city {
		s.displayed.IsFavorite = fav
	}
}

// Reset clears the displayed result and invalidates every search in flight.
// It runs when the user leaves a home screen.
func (s *WeatherService) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.displayed = nil
	s.latest = xid.NilID()
}

func background(c weather.Condition, dynamic bool) string {
	if !dynamic {
		return weather.DefaultBackground
	}
	return c.Background()
}

// DisplayedCurrent returns the current conditions on screen. With nothing
// displayed it returns ErrValidation "search for a city first".
func (s *WeatherService) DisplayedCurrent() (weather.Current, error) {
	d := s.Displayed()
	if d == nil || d.Report == nil {
		return weather.Current{}, apperror.ValidationFailed("city", "search for a city first")
	}
	return d.Report.Current, nil
}
