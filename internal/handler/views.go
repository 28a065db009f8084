// Package handler contains the HTTP handlers for the local Weatherly UI.
//
// TWO SURFACES:
//
//	Screens  (HTML)  → GET / renders whichever screen the router is on;
//	                   POST /actions/... are plain form posts that change
//	                   state and redirect back to /
//	JSON API (/api)  → the same operations for scripts and tests
//
// Handlers parse the request, call a service, and write the response.
// They hold no business rules. The one thing they do own is feeding router
// events after a service call succeeds.
//
// RENDERING:
// A page is a pure function of (router state, session, displayed search,
// stored lists, flash message). Views.Render gathers those and executes the
// template for the current screen; nothing else writes HTML.
package handler

import (
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sakif/weatherly/internal/model"
	"github.com/sakif/weatherly/internal/router"
	"github.com/sakif/weatherly/internal/service"
	"github.com/sakif/weatherly/internal/session"
	"github.com/sakif/weatherly/internal/weather"
)

//go:embed templates/*.html
var templateFS embed.FS

// Flash is an inline message shown above the form it belongs to.
type Flash struct {
	Message string
	Field   string
}

// Page is everything a screen template can read.
type Page struct {
	Screen     string
	Identity   session.Identity
	LoggedIn   bool
	Flash      Flash
	Background string

	// User home.
	Result    *service.SearchResult
	Favorites []model.Favorite
	Recents   []model.Recent
	Settings  model.Settings

	// Admin home.
	Dashboard *service.Dashboard
	Detail    *service.AccountDetail
	Logs      []model.SearchLog
	LogFilter string
}

// Views renders the screens.
//
// Templates are parsed once at startup from the embedded templates/
// directory, so the binary carries its own UI.
type Views struct {
	templates *template.Template
	router    *router.Router
	session   *session.Session
	weather   *service.WeatherService
	library   *service.LibraryService
	settings  *service.SettingsService
	admin     *service.AdminService
	logger    *slog.Logger
}

func NewViews(
	rt *router.Router,
	sess *session.Session,
	weatherSvc *service.WeatherService,
	library *service.LibraryService,
	settings *service.SettingsService,
	admin *service.AdminService,
	logger *slog.Logger,
) (*Views, error) {
	tmpl, err := template.New("").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("handler: parsing templates: %w", err)
	}
	return &Views{
		templates: tmpl,
		router:    rt,
		session:   sess,
		weather:   weatherSvc,
		library:   library,
		settings:  settings,
		admin:     admin,
		logger:    logger,
	}, nil
}

var templateFuncs = template.FuncMap{
	"symbol": func(u model.Unit) string { return u.Symbol() },
	"icon":   func(c weather.Condition) string { return c.Icon() },
	"round":  weather.Round,
	"when": func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return t.Local().Format("2006-01-02 15:04")
	},
	"upper": strings.ToUpper,
}

// Render writes the current screen with status. Data a screen needs is
// loaded here; a load failure is logged and shown as an empty list rather
// than replacing the page.
func (v *Views) Render(w http.ResponseWriter, r *http.Request, status int, flash Flash) {
	state := v.router.State()
	id, loggedIn := v.session.Current()

	page := Page{
		Screen:     state.String(),
		Identity:   id,
		LoggedIn:   loggedIn,
		Flash:      flash,
		Background: weather.DefaultBackground,
	}

	ctx := r.Context()
	switch state {
	case router.UserHome:
		v.loadUserHome(r, &page)
	case router.AdminHome:
		page.LogFilter = strings.TrimSpace(r.URL.Query().Get("logs"))
		var err error
		if page.Dashboard, err = v.admin.Dashboard(ctx, id); err != nil {
			v.logError("loading dashboard", err)
		}
		if user := strings.TrimSpace(r.URL.Query().Get("user")); user != "" {
			if page.Detail, err = v.admin.ViewAccount(ctx, id, user); err != nil && page.Flash.Message == "" {
				page.Flash.Message, page.Flash.Field = userMessage(err)
			}
		}
		if page.Logs, err = v.admin.ListLogs(ctx, id, page.LogFilter); err != nil {
			v.logError("loading logs", err)
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := v.templates.ExecuteTemplate(w, "base", page); err != nil {
		// Status is already sent; the best we can do is log.
		v.logger.Error("failed to render template",
			slog.String("screen", page.Screen),
			slog.String("error", err.Error()),
		)
	}
}

func (v *Views) loadUserHome(r *http.Request, page *Page) {
	ctx := r.Context()
	var err error

	page.Result = v.weather.Displayed()
	if page.Result != nil {
		page.Background = page.Result.Background
	}
	if page.Favorites, err = v.library.ListFavorites(ctx); err != nil {
		v.logError("loading favorites", err)
	}
	if page.Recents, err = v.library.ListRecents(ctx, 0); err != nil {
		v.logError("loading recents", err)
	}
	if page.Settings, err = v.settings.Get(ctx); err != nil {
		v.logError("loading settings", err)
		page.Settings = model.DefaultSettings()
	}
}

func (v *Views) logError(what string, err error) {
	v.logger.Error(what, slog.String("error", err.Error()))
}

// redirectHome sends a form post back to the screen. 303 makes the browser
// follow with a GET, so a reload never re-submits the form.
func redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
