package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/weatherly/internal/service"
)

// SettingsHandler is the JSON API for preferences.
type SettingsHandler struct {
	settings *service.SettingsService
	logger   *slog.Logger
}

func NewSettingsHandler(settings *service.SettingsService, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{settings: settings, logger: logger}
}

// HTTP: GET /api/settings
func (h *SettingsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	s, err := h.settings.Get(r.Context())
	if err != nil {
		h.logger.Error("reading settings", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// HandleSave applies a partial update and returns the saved settings.
//
// HTTP: PUT /api/settings
// REQUEST BODY: {"unit": "F"} or {"dynamicBackground": false} or both
func (h *SettingsHandler) HandleSave(w http.ResponseWriter, r *http.Request) {
	var upd service.SettingsUpdate
	if err := decodeJSON(w, r, &upd); err != nil {
		writeError(w, err)
		return
	}

	s, err := h.settings.Save(r.Context(), upd)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}
