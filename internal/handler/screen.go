package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/weatherly/internal/auth"
	"github.com/sakif/weatherly/internal/router"
	"github.com/sakif/weatherly/internal/service"
)

// ScreenHandler serves the page and the form actions of the two home
// screens. Every action redirects back to / on success, or re-renders the
// page with the error inline.
type ScreenHandler struct {
	views    *Views
	router   *router.Router
	weather  *service.WeatherService
	library  *service.LibraryService
	settings *service.SettingsService
	admin    *service.AdminService
	logger   *slog.Logger
}

func NewScreenHandler(
	views *Views,
	rt *router.Router,
	weatherSvc *service.WeatherService,
	library *service.LibraryService,
	settings *service.SettingsService,
	admin *service.AdminService,
	logger *slog.Logger,
) *ScreenHandler {
	return &ScreenHandler{
		views:    views,
		router:   rt,
		weather:  weatherSvc,
		library:  library,
		settings: settings,
		admin:    admin,
		logger:   logger,
	}
}

// HandleIndex renders whichever screen is active.
//
// HTTP: GET /   (admin home also reads ?user= and ?logs=)
func (h *ScreenHandler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	h.views.Render(w, r, http.StatusOK, Flash{})
}

// HandleSearch runs a city search from the home screen.
//
// HTTP: POST /actions/search   form: city
func (h *ScreenHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	if !h.onScreen(w, r, router.UserHome) {
		return
	}
	res, err := h.weather.Search(r.Context(), r.FormValue("city"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if res.Superseded {
		h.logger.Debug("search superseded", slog.String("query", res.Query))
	}
	redirectHome(w, r)
}

// HandleToggleFavorite pins or unpins the displayed city.
//
// HTTP: POST /actions/favorite
func (h *ScreenHandler) HandleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	if !h.onScreen(w, r, router.UserHome) {
		return
	}
	cur, err := h.weather.DisplayedCurrent()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	fav, err := h.library.ToggleFavorite(r.Context(), cur)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.weather.MarkFavorite(cur.City, fav)
	redirectHome(w, r)
}

// HandleSaveSettings saves the settings form.
//
// HTTP: POST /actions/settings   form: unit, dynamic_bg
//
// An unchecked checkbox is simply absent from the form, so dynamic_bg is
// read as "present means on".
func (h *ScreenHandler) HandleSaveSettings(w http.ResponseWriter, r *http.Request) {
	if !h.onScreen(w, r, router.UserHome) {
		return
	}
	if err := r.ParseForm(); err != nil {
		h.fail(w, r, err)
		return
	}

	var upd service.SettingsUpdate
	if r.PostForm.Has("unit") {
		unit := r.PostForm.Get("unit")
		upd.Unit = &unit
	}
	dynamic := r.PostForm.Get("dynamic_bg") != ""
	upd.DynamicBackground = &dynamic

	if _, err := h.settings.Save(r.Context(), upd); err != nil {
		h.fail(w, r, err)
		return
	}
	redirectHome(w, r)
}

// HandleClearFavorites removes every favorite.
//
// HTTP: POST /actions/favorites/clear
func (h *ScreenHandler) HandleClearFavorites(w http.ResponseWriter, r *http.Request) {
	if !h.onScreen(w, r, router.UserHome) {
		return
	}
	if err := h.library.ClearFavorites(r.Context()); err != nil {
		h.fail(w, r, err)
		return
	}
	if cur, err := h.weather.DisplayedCurrent(); err == nil {
		h.weather.MarkFavorite(cur.City, false)
	}
	redirectHome(w, r)
}

// HandleClearRecents empties the recent-search history.
//
// HTTP: POST /actions/recents/clear
func (h *ScreenHandler) HandleClearRecents(w http.ResponseWriter, r *http.Request) {
	if !h.onScreen(w, r, router.UserHome) {
		return
	}
	if err := h.library.ClearRecents(r.Context()); err != nil {
		h.fail(w, r, err)
		return
	}
	redirectHome(w, r)
}

// HandleDeleteAccount deletes an account from the admin dashboard.
//
// HTTP: POST /actions/admin/delete   form: username
func (h *ScreenHandler) HandleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	if !h.onScreen(w, r, router.AdminHome) {
		return
	}
	id, _ := auth.IdentityFromContext(r.Context())
	if err := h.admin.DeleteAccount(r.Context(), id, r.FormValue("username")); err != nil {
		h.fail(w, r, err)
		return
	}
	redirectHome(w, r)
}

func (h *ScreenHandler) onScreen(w http.ResponseWriter, r *http.Request, s router.State) bool {
	if h.router.State() == s {
		return true
	}
	h.views.Render(w, r, http.StatusConflict, Flash{Message: "That action is not available on this screen"})
	return false
}

func (h *ScreenHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, _ := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("screen action failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
	msg, field := userMessage(err)
	h.views.Render(w, r, status, Flash{Message: msg, Field: field})
}
