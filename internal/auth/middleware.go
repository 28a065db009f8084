package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/sakif/weatherly/internal/session"
)

// CookieName is the HttpOnly cookie carrying the UI session token.
const CookieName = "weatherly_session"

// contextKey is an unexported type used for context keys in this package.
//
// WHY A CUSTOM TYPE FOR CONTEXT KEYS?
// context.WithValue uses any as the key type. A plain string key could be
// read or shadowed by any package that knows the string. Only this package can
// create a contextKey, so only this package can read or write identities.
type contextKey string

const identityKey contextKey = "identity"

// SessionReader is the part of *session.Session the middleware needs.
type SessionReader interface {
	Current() (session.Identity, bool)
}

// RequireSession rejects requests that do not belong to the current login.
//
// A request passes only when BOTH hold:
//  1. its cookie carries a valid token, and
//  2. the token names the identity the process session holds right now.
//
// Check 2 is what makes logout effective immediately: once the session is
// cleared (or another account logs in) an old cookie stops working even though
// its signature is still valid.
func RequireSession(tokens *TokenService, sess SessionReader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := identityFromRequest(r, tokens, sess)
			if !ok {
				writeAuthError(w, http.StatusUnauthorized, "unauthorized", "log in first")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// OptionalSession attaches the identity when the request carries a current
// token, and lets the request through either way.
func OptionalSession(tokens *TokenService, sess SessionReader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id, ok := identityFromRequest(r, tokens, sess); ok {
				r = r.WithContext(WithIdentity(r.Context(), id))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin must run after RequireSession. Non-admins get 403.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFromContext(r.Context())
		if !ok {
			writeAuthError(w, http.StatusUnauthorized, "unauthorized", "log in first")
			return
		}
		if !id.IsAdmin() {
			writeAuthError(w, http.StatusForbidden, "forbidden", "admins only")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// IdentityFromContext returns the identity RequireSession or OptionalSession
// attached. ok is false for anonymous requests.
func IdentityFromContext(ctx context.Context) (session.Identity, bool) {
	id, ok := ctx.Value(identityKey).(session.Identity)
	return id, ok && id.Username != ""
}

// WithIdentity returns a context carrying id, as the session middlewares
// attach it.
func WithIdentity(ctx context.Context, id session.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// SetSessionCookie stores token in the browser.
//
// Secure is off: the UI is only ever served over plain HTTP on loopback.
// HttpOnly keeps page scripts from reading the token; SameSite=Strict keeps
// other sites from riding on it.
func SetSessionCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

// ClearSessionCookie tells the browser to drop the session cookie.
func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

// TTL returns how long tokens from this service stay valid.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

func identityFromRequest(r *http.Request, tokens *TokenService, sess SessionReader) (session.Identity, bool) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return session.Identity{}, false
	}

	id, err := tokens.Validate(cookie.Value)
	if err != nil {
		return session.Identity{}, false
	}

	current, ok := sess.Current()
	if !ok || current != id {
		return session.Identity{}, false
	}
	return id, true
}

func writeAuthError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + code + `","message":"` + message + `"}`))
}
