package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/weatherly/internal/auth"
	"github.com/sakif/weatherly/internal/router"
	"github.com/sakif/weatherly/internal/service"
)

// AuthHandler owns the screens that change who is logged in, plus the plain
// navigation buttons between them.
//
// HANDLER RESPONSIBILITIES:
//   - HandleNavigate → Get Started / Register / Log in / Back buttons
//   - HandleLogin    → check a credential, fire LoginAdmin or LoginUser
//   - HandleRegister → create a user, fire Registered
//   - HandleLogout   → end the session, fire Logout
//   - HandleMe       → who is logged in and which screen is showing (JSON)
//
// SESSION COOKIE:
// A successful login or registration also sets a signed token cookie naming
// the identity. The JSON API and the home-screen actions accept a request
// only when that cookie names the identity the process session holds, so a
// logout invalidates every old cookie at once.
type AuthHandler struct {
	auth   *service.AuthService
	tokens *auth.TokenService
	router *router.Router
	views  *Views
	logger *slog.Logger
}

func NewAuthHandler(
	authSvc *service.AuthService,
	tokens *auth.TokenService,
	rt *router.Router,
	views *Views,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		auth:   authSvc,
		tokens: tokens,
		router: rt,
		views:  views,
		logger: logger,
	}
}

// navigable are the events a bare button may fire. Login, Registered and
// Logout only fire after their service call succeeds.
var navigable = map[router.Event]bool{
	router.GetStarted:   true,
	router.ShowRegister: true,
	router.ShowLogin:    true,
	router.Back:         true,
}

// HandleNavigate fires a navigation event.
//
// HTTP: POST /actions/{event}
func (h *AuthHandler) HandleNavigate(w http.ResponseWriter, r *http.Request) {
	ev, err := router.ParseEvent(chi.URLParam(r, "event"))
	if err != nil || !navigable[ev] {
		http.NotFound(w, r)
		return
	}

	if _, err := h.router.Fire(ev); err != nil {
		h.rejectTransition(w, r, err)
		return
	}
	redirectHome(w, r)
}

// HandleLogin processes the login form.
//
// HTTP: POST /actions/login   form: username, password
//
// FLOW:
//  1. The router must be on the Login screen
//  2. AuthService.Login checks the credential and begins the session
//  3. The role picks LoginAdmin or LoginUser
//  4. A token cookie binds this browser to the new session
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if !h.router.Can(router.LoginUser) {
		h.rejectTransition(w, r, router.ErrInvalidTransition)
		return
	}

	id, err := h.auth.Login(r.Context(), r.FormValue("username"), r.FormValue("password"))
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	ev, err := router.LoginEvent(id.Role)
	if err == nil {
		_, err = h.router.Fire(ev)
	}
	if err != nil {
		// The screen changed under us; undo the login rather than leave a
		// session with no home screen.
		h.auth.Logout()
		h.rejectTransition(w, r, err)
		return
	}

	if !h.issueCookie(w, r) {
		return
	}
	redirectHome(w, r)
}

// HandleRegister processes the registration form.
//
// HTTP: POST /actions/register   form: username, password, confirm
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	if !h.router.Can(router.Registered) {
		h.rejectTransition(w, r, router.ErrInvalidTransition)
		return
	}

	_, err := h.auth.Register(r.Context(),
		r.FormValue("username"),
		r.FormValue("password"),
		r.FormValue("confirm"),
	)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	if _, err := h.router.Fire(router.Registered); err != nil {
		h.auth.Logout()
		h.rejectTransition(w, r, err)
		return
	}

	if !h.issueCookie(w, r) {
		return
	}
	redirectHome(w, r)
}

// HandleLogout ends the session and returns to Welcome.
//
// HTTP: POST /actions/logout
//
// Logging out is always allowed. Off a home screen it only clears the
// session and the cookie.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.auth.Logout()
	if h.router.State().IsHome() {
		if _, err := h.router.Fire(router.Logout); err != nil {
			h.logger.Warn("logout transition failed", slog.String("error", err.Error()))
		}
	}
	auth.ClearSessionCookie(w)
	redirectHome(w, r)
}

// MeResponse is the body of GET /api/me.
type MeResponse struct {
	Screen   string `json:"screen"`
	LoggedIn bool   `json:"loggedIn"`
	Username string `json:"username,omitempty"`
	Role     string `json:"role,omitempty"`
}

// HandleMe reports the active screen and, when the request carries a
// current session cookie, who is logged in.
//
// HTTP: GET /api/me
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	resp := MeResponse{Screen: h.router.State().String()}
	if id, ok := auth.IdentityFromContext(r.Context()); ok {
		resp.LoggedIn = true
		resp.Username = id.Username
		resp.Role = string(id.Role)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) issueCookie(w http.ResponseWriter, r *http.Request) bool {
	id, ok := h.auth.Current()
	if !ok {
		h.views.Render(w, r, http.StatusInternalServerError, Flash{Message: "An internal error occurred"})
		return false
	}
	token, err := h.tokens.Generate(id)
	if err != nil {
		h.logger.Error("issuing session token", slog.String("error", err.Error()))
		h.views.Render(w, r, http.StatusInternalServerError, Flash{Message: "An internal error occurred"})
		return false
	}
	auth.SetSessionCookie(w, token, h.tokens.TTL())
	return true
}

func (h *AuthHandler) renderError(w http.ResponseWriter, r *http.Request, err error) {
	status, _ := statusFor(err)
	msg, field := userMessage(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("auth action failed", slog.String("error", err.Error()))
	}
	h.views.Render(w, r, status, Flash{Message: msg, Field: field})
}

func (h *AuthHandler) rejectTransition(w http.ResponseWriter, r *http.Request, err error) {
	if !errors.Is(err, router.ErrInvalidTransition) {
		h.logger.Error("screen transition failed", slog.String("error", err.Error()))
	}
	h.views.Render(w, r, http.StatusConflict, Flash{Message: "That action is not available on this screen"})
}
