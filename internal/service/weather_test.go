package service

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/weatherly/internal/apperror"
	"github.com/sakif/weatherly/internal/model"
	"github.com/sakif/weatherly/internal/session"
	"github.com/sakif/weatherly/internal/weather"
)

func newTestWeatherService(t *testing.T) (*WeatherService, *fakeFetcher, *fakeStore, *session.Session) {
	t.Helper()
	fetcher := newFakeFetcher()
	fetcher.add("Paris", 18.6, "Clear")
	fetcher.add("Rome", 24.2, "Rain")
	store := newFakeStore()
	sess := session.New()
	return NewWeatherService(fetcher, store, store, sess, time.Second, discardLogger()), fetcher, store, sess
}

func TestSearch_Success(t *testing.T) {
	svc, fetcher, store, _ := newTestWeatherService(t)
	ctx := context.Background()

	res, err := svc.Search(ctx, "  Paris ")
	require.NoError(t, err)

	assert.Equal(t, "Paris", res.Query)
	assert.Equal(t, "Paris", res.Report.Current.City)
	assert.Equal(t, model.UnitCelsius, res.Unit)
	assert.Equal(t, weather.ConditionClear.Background(), res.Background)
	assert.False(t, res.Superseded)
	assert.False(t, res.IsFavorite)
	assert.NotEmpty(t, res.Ticket)
	assert.Same(t, res, svc.Displayed())
	assert.Equal(t, []string{"metric"}, fetcher.units)

	recents, _ := store.ListRecents(ctx, 0)
	require.Len(t, recents, 1)
	assert.Equal(t, "Paris", recents[0].City)
	assert.Equal(t, 19, recents[0].LastTemp)

	logs, _ := store.ListLogs(ctx, "")
	assert.Empty(t, logs, "nobody is logged in, so nothing is logged")
}

func TestSearch_UsesSavedUnitAndBackground(t *testing.T) {
	svc, fetcher, store, _ := newTestWeatherService(t)
	store.settings = model.Settings{Unit: model.UnitFahrenheit, DynamicBackground: false}

	res, err := svc.Search(context.Background(), "Rome")
	require.NoError(t, err)

	assert.Equal(t, model.UnitFahrenheit, res.Unit)
	assert.Equal(t, weather.DefaultBackground, res.Background)
	assert.Equal(t, []string{"imperial"}, fetcher.units)
}

func TestSearch_SettingsFailureFallsBackToDefaults(t *testing.T) {
	svc, fetcher, store, _ := newTestWeatherService(t)
	store.settingsErr = errors.New("locked")

	_, err := svc.Search(context.Background(), "Rome")
	require.NoError(t, err)
	assert.Equal(t, []string{"metric"}, fetcher.units)
}

func TestSearch_LogsForLoggedInUser(t *testing.T) {
	svc, _, store, sess := newTestWeatherService(t)
	sess.Begin(session.Identity{Username: "bob", Role: model.RoleUser})
	ctx := context.Background()

	_, err := svc.Search(ctx, "Rome")
	require.NoError(t, err)

	logs, _ := store.ListLogs(ctx, "bob")
	require.Len(t, logs, 1)
	assert.Equal(t, "Rome", logs[0].City)
	assert.Equal(t, 24, logs[0].Temp)
}

func TestSearch_Errors(t *testing.T) {
	svc, fetcher, store, _ := newTestWeatherService(t)
	ctx := context.Background()

	_, err := svc.Search(ctx, "   ")
	assert.True(t, errors.Is(err, apperror.ErrValidation))

	_, err = svc.Search(ctx, "Atlantis")
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
	assert.Equal(t, "city not found, check spelling", err.Error())

	fetcher.err = weather.ErrNetwork
	_, err = svc.Search(ctx, "Paris")
	assert.True(t, errors.Is(err, apperror.ErrUpstream))
	assert.True(t, errors.Is(err, weather.ErrNetwork), "cause is kept for logs")
	assert.Equal(t, "network error, try again", err.Error())

	recents, _ := store.ListRecents(ctx, 0)
	assert.Empty(t, recents, "failed searches leave no history")
	assert.Nil(t, svc.Displayed())
}

func TestSearch_HistoryFailuresAreLoggedNotReturned(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.add("Oslo", -2.5, "Snow")
	store := newFakeStore()
	store.recentErr = errors.New("recents broken")
	store.logErr = errors.New("logs broken")
	sess := session.New()
	sess.Begin(session.Identity{Username: "bob", Role: model.RoleUser})

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	svc := NewWeatherService(fetcher, store, store, sess, time.Second, logger)

	res, err := svc.Search(context.Background(), "Oslo")
	require.NoError(t, err)
	assert.Equal(t, "Oslo", res.Report.Current.City)

	assert.Contains(t, buf.String(), "recents broken")
	assert.Contains(t, buf.String(), "logs broken")
}

func TestSearch_ReportsFavorite(t *testing.T) {
	svc, _, store, _ := newTestWeatherService(t)
	ctx := context.Background()
	require.NoError(t, store.UpsertFavorite(ctx, "Paris", 10, "Clouds"))

	res, err := svc.Search(ctx, "Paris")
	require.NoError(t, err)
	assert.True(t, res.IsFavorite)
}

func TestSearch_StaleResultIsNotDisplayed(t *testing.T) {
	svc, fetcher, _, _ := newTestWeatherService(t)
	ctx := context.Background()

	release := make(chan struct{})
	fetcher.block["Paris"] = release

	type outcome struct {
		res *SearchResult
		err error
	}
	slow := make(chan outcome, 1)
	go func() {
		res, err := svc.Search(ctx, "Paris")
		slow <- outcome{res, err}
	}()

	// Wait until the Paris search holds its ticket and is inside the fetch.
	require.Eventually(t, func() bool {
		fetcher.mu.Lock()
		defer fetcher.mu.Unlock()
		return len(fetcher.units) == 1
	}, time.Second, 5*time.Millisecond)

	rome, err := svc.Search(ctx, "Rome")
	require.NoError(t, err)
	assert.False(t, rome.Superseded)

	close(release)
	got := <-slow
	require.NoError(t, got.err)
	assert.True(t, got.res.Superseded)

	assert.Equal(t, "Rome", svc.Displayed().Report.Current.City)
}

func TestReset(t *testing.T) {
	svc, _, _, _ := newTestWeatherService(t)

	_, err := svc.Search(context.Background(), "Paris")
	require.NoError(t, err)
	require.NotNil(t, svc.Displayed())

	svc.Reset()
	assert.Nil(t, svc.Displayed())

	_, err = svc.DisplayedCurrent()
	assert.True(t, errors.Is(err, apperror.ErrValidation))
}

func TestMarkFavorite(t *testing.T) {
	svc, _, _, _ := newTestWeatherService(t)
	_, err := svc.Search(context.Background(), "Paris")
	require.NoError(t, err)

	svc.MarkFavorite("Rome", true)
	assert.False(t, svc.Displayed().IsFavorite)

	svc.MarkFavorite("Paris", true)
	assert.True(t, svc.Displayed().IsFavorite)
}
