package handler

import (
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/weatherly/internal/apperror"
	"github.com/sakif/weatherly/internal/service"
)

// WeatherHandler is the JSON API for searches, favorites and recents.
type WeatherHandler struct {
	weather *service.WeatherService
	library *service.LibraryService
	logger  *slog.Logger
}

func NewWeatherHandler(weatherSvc *service.WeatherService, library *service.LibraryService, logger *slog.Logger) *WeatherHandler {
	return &WeatherHandler{weather: weatherSvc, library: library, logger: logger}
}

// HandleSearch runs a search and returns the result.
//
// HTTP: GET /api/weather?city=Paris
//
// A result with "superseded": true lost the race to a newer search and was
// not displayed.
func (h *WeatherHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	res, err := h.weather.Search(r.Context(), r.URL.Query().Get("city"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleDisplayed returns the result on screen, or 404 when there is none.
//
// HTTP: GET /api/weather/current
func (h *WeatherHandler) HandleDisplayed(w http.ResponseWriter, r *http.Request) {
	res := h.weather.Displayed()
	if res == nil {
		writeError(w, apperror.NotFound("search result", "none displayed"))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *WeatherHandler) HandleListFavorites(w http.ResponseWriter, r *http.Request) {
	favs, err := h.library.ListFavorites(r.Context())
	if err != nil {
		h.logger.Error("listing favorites", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, favs)
}

// ToggleFavoriteResponse is the body of POST /api/favorites.
type ToggleFavoriteResponse struct {
	City       string `json:"city"`
	IsFavorite bool   `json:"isFavorite"`
}

// HandleToggleFavorite pins or unpins the displayed city.
//
// HTTP: POST /api/favorites
func (h *WeatherHandler) HandleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	cur, err := h.weather.DisplayedCurrent()
	if err != nil {
		writeError(w, err)
		return
	}
	fav, err := h.library.ToggleFavorite(r.Context(), cur)
	if err != nil {
		h.logger.Error("toggling favorite", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	h.weather.MarkFavorite(cur.City, fav)
	writeJSON(w, http.StatusOK, ToggleFavoriteResponse{City: cur.City, IsFavorite: fav})
}

// HandleRemoveFavorite unpins one city.
//
// HTTP: DELETE /api/favorites/{city}
func (h *WeatherHandler) HandleRemoveFavorite(w http.ResponseWriter, r *http.Request) {
	city, err := url.PathUnescape(chi.URLParam(r, "city"))
	if err != nil {
		writeError(w, apperror.ValidationFailed("city", "invalid city"))
		return
	}
	if err := h.library.RemoveFavorite(r.Context(), city); err != nil {
		writeError(w, err)
		return
	}
	h.weather.MarkFavorite(city, false)
	w.WriteHeader(http.StatusNoContent)
}

// HandleClearFavorites removes every favorite.
//
// HTTP: DELETE /api/favorites
func (h *WeatherHandler) HandleClearFavorites(w http.ResponseWriter, r *http.Request) {
	if err := h.library.ClearFavorites(r.Context()); err != nil {
		h.logger.Error("clearing favorites", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	if cur, err := h.weather.DisplayedCurrent(); err == nil {
		h.weather.MarkFavorite(cur.City, false)
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleListRecents returns the newest searches first.
//
// HTTP: GET /api/recents?limit=5   (default and maximum 20)
func (h *WeatherHandler) HandleListRecents(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, apperror.ValidationFailed("limit", "limit must be a number"))
			return
		}
		limit = n
	}

	recents, err := h.library.ListRecents(r.Context(), limit)
	if err != nil {
		h.logger.Error("listing recents", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recents)
}

// HandleClearRecents empties the history.
//
// HTTP: DELETE /api/recents
func (h *WeatherHandler) HandleClearRecents(w http.ResponseWriter, r *http.Request) {
	if err := h.library.ClearRecents(r.Context()); err != nil {
		h.logger.Error("clearing recents", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
