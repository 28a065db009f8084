package server_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/weatherly/internal/config"
	"github.com/sakif/weatherly/internal/server"
	"github.com/sakif/weatherly/internal/weather"
)

// stubFetcher knows a few cities and records the unit system it was asked for.
type stubFetcher struct {
	mu    sync.Mutex
	units []string
}

func (f *stubFetcher) FetchCurrentAndForecast(ctx context.Context, city, unitSystem string) (*weather.Report, error) {
	f.mu.Lock()
	f.units = append(f.units, unitSystem)
	f.mu.Unlock()

	temps := map[string]float64{"Paris": 18.4, "Rome": 24.6}
	t, ok := temps[city]
	if !ok {
		return nil, weather.ErrCityNotFound
	}
	return &weather.Report{
		Current: weather.Current{
			City:        city,
			Temp:        t,
			Main:        "Clear",
			Description: "Clear Sky",
			Condition:   weather.ConditionClear,
		},
		UnitSystem: unitSystem,
	}, nil
}

func (f *stubFetcher) lastUnit() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.units[len(f.units)-1]
}

func testConfig() *config.Config {
	return &config.Config{
		DB:      config.DBConfig{Path: ":memory:"},
		Server:  config.ServerConfig{Addr: "127.0.0.1:0"},
		Weather: config.WeatherConfig{APIKey: "k", BaseURL: "http://unused", Timeout: time.Second},
		Auth: config.AuthConfig{
			PasswordScheme: "sha256",
			BcryptCost:     4,
			AdminUsername:  "admin",
			AdminPassword:  "admin123",
		},
		Log: config.LogConfig{Level: "error"},
	}
}

// browser is an http.Client with a cookie jar, pointed at a test server.
type browser struct {
	t      *testing.T
	client *http.Client
	base   string
}

func newApp(t *testing.T) (*browser, *stubFetcher) {
	t.Helper()

	fetcher := &stubFetcher{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv, err := server.New(testConfig(), logger, fetcher)
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &browser{t: t, client: &http.Client{Jar: jar}, base: ts.URL}, fetcher
}

func (b *browser) do(method, path string, body io.Reader, contentType string) (int, string) {
	b.t.Helper()
	req, err := http.NewRequest(method, b.base+path, body)
	require.NoError(b.t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := b.client.Do(req)
	require.NoError(b.t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(b.t, err)
	return resp.StatusCode, string(raw)
}

func (b *browser) form(path string, values url.Values) (int, string) {
	return b.do(http.MethodPost, path, strings.NewReader(values.Encode()), "application/x-www-form-urlencoded")
}

func (b *browser) get(path string) (int, string) {
	return b.do(http.MethodGet, path, nil, "")
}

func screenOf(t *testing.T, body string) string {
	t.Helper()
	const marker = `data-screen="`
	i := strings.Index(body, marker)
	require.GreaterOrEqual(t, i, 0, "page has no screen marker")
	rest := body[i+len(marker):]
	return rest[:strings.Index(rest, `"`)]
}

func (b *browser) login(user, pass string) (int, string) {
	return b.form("/actions/login", url.Values{"username": {user}, "password": {pass}})
}

// =========================================================================
// SCREEN FLOW TESTS
// =========================================================================

func TestScreens_WelcomeToUserHome(t *testing.T) {
	b, _ := newApp(t)

	status, body := b.get("/")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "welcome", screenOf(t, body))

	status, body = b.form("/actions/get-started", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "login", screenOf(t, body))

	status, body = b.form("/actions/show-register", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "register", screenOf(t, body))

	status, body = b.form("/actions/register", url.Values{
		"username": {"bob"}, "password": {"pw"}, "confirm": {"nope"},
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "register", screenOf(t, body))
	assert.Contains(t, body, "passwords do not match")

	status, body = b.form("/actions/register", url.Values{
		"username": {"bob"}, "password": {"pw"}, "confirm": {"pw"},
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "user_home", screenOf(t, body))
	assert.Contains(t, body, "bob")
}

func TestScreens_LoginFailuresStayOnLogin(t *testing.T) {
	b, _ := newApp(t)
	b.form("/actions/get-started", nil)

	status, body := b.login("admin", "wrong")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "login", screenOf(t, body))
	assert.Contains(t, body, "invalid username or password")

	status, body = b.login("", "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body, "please fill in all fields")
}

func TestScreens_InvalidTransition(t *testing.T) {
	b, _ := newApp(t)

	// Still on Welcome: login is not available.
	status, body := b.login("admin", "admin123")
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "welcome", screenOf(t, body))

	status, _ = b.form("/actions/show-login", nil)
	assert.Equal(t, http.StatusConflict, status)

	status, _ = b.form("/actions/teleport", nil)
	assert.Equal(t, http.StatusNotFound, status)

	// login-user is a real event but only fires after a successful login.
	status, _ = b.form("/actions/login-user", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestScreens_BackReturnsToWelcome(t *testing.T) {
	b, _ := newApp(t)
	b.form("/actions/get-started", nil)

	_, body := b.form("/actions/back", nil)
	assert.Equal(t, "welcome", screenOf(t, body))
}

func TestScreens_AdminLoginAndLogout(t *testing.T) {
	b, _ := newApp(t)
	b.form("/actions/get-started", nil)

	status, body := b.login("admin", "admin123")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "admin_home", screenOf(t, body))
	assert.Contains(t, body, "Total Users: 1")

	_, body = b.form("/actions/logout", nil)
	assert.Equal(t, "welcome", screenOf(t, body))
}

func TestScreens_LogoutOffHomeKeepsScreen(t *testing.T) {
	b, _ := newApp(t)
	b.form("/actions/get-started", nil)

	status, body := b.form("/actions/logout", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "login", screenOf(t, body))
}

func TestScreens_SearchShowsReport(t *testing.T) {
	b, _ := newApp(t)
	b.form("/actions/get-started", nil)
	b.form("/actions/show-register", nil)
	b.form("/actions/register", url.Values{"username": {"bob"}, "password": {"pw"}, "confirm": {"pw"}})

	status, body := b.form("/actions/search", url.Values{"city": {"Paris"}})
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "<h2>Paris</h2>")
	assert.Contains(t, body, "18°C")

	status, body = b.form("/actions/search", url.Values{"city": {"Atlantis"}})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, body, "city not found, check spelling")

	// Logging out drops the displayed report.
	b.form("/actions/logout", nil)
	b.form("/actions/get-started", nil)
	_, body = b.login("bob", "pw")
	assert.Equal(t, "user_home", screenOf(t, body))
	assert.NotContains(t, body, "<h2>Paris</h2>")
}

// =========================================================================
// JSON API TESTS
// =========================================================================

func registerBob(t *testing.T, b *browser) {
	t.Helper()
	b.form("/actions/get-started", nil)
	b.form("/actions/show-register", nil)
	_, body := b.form("/actions/register", url.Values{"username": {"bob"}, "password": {"pw"}, "confirm": {"pw"}})
	require.Equal(t, "user_home", screenOf(t, body))
}

func TestAPI_RequiresSession(t *testing.T) {
	b, _ := newApp(t)

	status, body := b.get("/api/favorites")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Contains(t, body, `"error":"unauthorized"`)

	status, body = b.get("/api/me")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"screen":"welcome","loggedIn":false}`, body)
}

func TestAPI_SearchFavoritesRecentsSettings(t *testing.T) {
	b, fetcher := newApp(t)
	registerBob(t, b)

	status, body := b.get("/api/me")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"screen":"user_home","loggedIn":true,"username":"bob","role":"user"}`, body)

	status, body = b.get("/api/weather?city=Rome")
	require.Equal(t, http.StatusOK, status)
	var res struct {
		Report struct {
			Current struct{ City string } `json:"current"`
		} `json:"report"`
		IsFavorite bool `json:"isFavorite"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &res))
	assert.Equal(t, "Rome", res.Report.Current.City)
	assert.False(t, res.IsFavorite)

	status, body = b.do(http.MethodPost, "/api/favorites", nil, "")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"city":"Rome","isFavorite":true}`, body)

	status, body = b.get("/api/favorites")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"lastTemp":25`)

	status, body = b.get("/api/recents?limit=5")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"city":"Rome"`)

	status, _ = b.get("/api/recents?limit=lots")
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = b.do(http.MethodPut, "/api/settings", strings.NewReader(`{"unit":"F"}`), "application/json")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"unit":"F","dynamicBackground":true}`, body)

	status, _ = b.do(http.MethodPut, "/api/settings", strings.NewReader(`{"unit":"K"}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = b.get("/api/weather?city=Paris")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "imperial", fetcher.lastUnit())

	status, _ = b.do(http.MethodDelete, "/api/favorites/Rome", nil, "")
	assert.Equal(t, http.StatusNoContent, status)
	status, _ = b.do(http.MethodDelete, "/api/favorites/Rome", nil, "")
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = b.do(http.MethodDelete, "/api/recents", nil, "")
	assert.Equal(t, http.StatusNoContent, status)
	_, body = b.get("/api/recents")
	assert.JSONEq(t, `[]`, body)

	status, _ = b.get("/api/weather?city=Atlantis")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAPI_LogoutInvalidatesCookie(t *testing.T) {
	b, _ := newApp(t)
	registerBob(t, b)

	// Keep a copy of the cookie to replay after logout.
	u, _ := url.Parse(b.base)
	old := b.client.Jar.Cookies(u)
	require.NotEmpty(t, old)

	b.form("/actions/logout", nil)

	b.client.Jar.SetCookies(u, old)
	status, _ := b.get("/api/favorites")
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestAPI_Admin(t *testing.T) {
	b, _ := newApp(t)
	registerBob(t, b)

	_, _ = b.get("/api/weather?city=Paris")

	status, _ := b.get("/api/admin/users")
	assert.Equal(t, http.StatusForbidden, status, "bob is not an admin")

	b.form("/actions/logout", nil)
	b.form("/actions/get-started", nil)
	_, body := b.login("admin", "admin123")
	require.Equal(t, "admin_home", screenOf(t, body))

	status, body = b.get("/api/admin/users")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"totalUsers":2`)

	status, body = b.get("/api/admin/users/bob")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"city":"Paris"`)

	status, _ = b.do(http.MethodDelete, "/api/admin/users/admin", nil, "")
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = b.do(http.MethodDelete, "/api/admin/users/bob", nil, "")
	assert.Equal(t, http.StatusNoContent, status)

	status, _ = b.get("/api/admin/users/bob")
	assert.Equal(t, http.StatusNotFound, status)

	status, body = b.get("/api/admin/logs?username=bob")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"city":"Paris"`, "logs outlive the account")
}
