package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/weatherly/internal/auth"
	"github.com/sakif/weatherly/internal/service"
)

// AdminHandler is the JSON API behind the admin dashboard. Routes are
// mounted behind auth.RequireSession and auth.RequireAdmin; the service
// checks the role again.
type AdminHandler struct {
	admin  *service.AdminService
	logger *slog.Logger
}

func NewAdminHandler(admin *service.AdminService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{admin: admin, logger: logger}
}

// HandleDashboard returns the user count and the account list.
//
// HTTP: GET /api/admin/users
func (h *AdminHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	d, err := h.admin.Dashboard(r.Context(), id)
	if err != nil {
		h.logger.Error("loading dashboard", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// HandleView returns one account and its search log.
//
// HTTP: GET /api/admin/users/{username}
func (h *AdminHandler) HandleView(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	detail, err := h.admin.ViewAccount(r.Context(), id, chi.URLParam(r, "username"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// HandleDelete removes an account.
//
// HTTP: DELETE /api/admin/users/{username}
func (h *AdminHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	if err := h.admin.DeleteAccount(r.Context(), id, chi.URLParam(r, "username")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleLogs returns search logs, newest first.
//
// HTTP: GET /api/admin/logs?username=bob   (no username: every account)
func (h *AdminHandler) HandleLogs(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	logs, err := h.admin.ListLogs(r.Context(), id, r.URL.Query().Get("username"))
	if err != nil {
		h.logger.Error("listing logs", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}
