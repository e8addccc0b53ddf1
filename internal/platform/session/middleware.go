package session

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// CookieName carries the session identifier between requests.
const CookieName = "sessionid"

const (
	ctxKeySession = "session"
	ctxKeyID      = "session_id"
)

// Options configures the session middleware.
type Options struct {
	// Secure marks the cookie Secure; leave false for plain-HTTP development.
	Secure bool
}

// Middleware resolves the session for every request and persists it on the
// way out.
//
// On entry the identifier is taken from the cookie, or minted once when no
// cookie is present. The same identifier is used for the store load, the
// store save, and the Set-Cookie header; it is never regenerated within a
// request. The payload is attached to the echo context for handlers and
// guards to read and mutate.
//
// The payload is saved unconditionally after the handler runs, mutated or
// not. A failed load logs and proceeds with an empty session so a store
// outage cannot lock every user out; a failed save is logged at error level.
func Middleware(store Store, logger zerolog.Logger, opts Options) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sessionID := resolveID(c)
			ctx := c.Request().Context()

			sess, err := store.Load(ctx, sessionID)
			if err != nil {
				logger.Warn().Err(err).
					Str("session_id", sessionID).
					Msg("session load failed, continuing with empty session")
				sess = New()
			}

			Attach(c, sessionID, sess)

			// The cookie must be in the headers before the handler commits
			// the response body. The identifier is already final here.
			c.SetCookie(&http.Cookie{
				Name:     CookieName,
				Value:    sessionID,
				Path:     "/",
				HttpOnly: true,
				Secure:   opts.Secure,
				SameSite: http.SameSiteLaxMode,
			})

			handlerErr := next(c)

			if err := store.Save(ctx, sessionID, sess); err != nil {
				logger.Error().Err(err).
					Str("session_id", sessionID).
					Msg("session save failed")
			}

			return handlerErr
		}
	}
}

// resolveID returns the identifier from the request cookie, or mints a fresh
// one. Minting happens exactly once per request; two cookie-less concurrent
// requests each get their own identifier.
func resolveID(c echo.Context) string {
	if cookie, err := c.Cookie(CookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return uuid.NewString()
}

// Attach binds a resolved session to the echo context. The middleware calls
// it on every request; tests call it to stand in for the middleware.
func Attach(c echo.Context, sessionID string, s *Session) {
	c.Set(ctxKeyID, sessionID)
	c.Set(ctxKeySession, s)
}

// FromContext returns the request's session. It is always non-nil on routes
// behind the middleware.
func FromContext(c echo.Context) *Session {
	if s, ok := c.Get(ctxKeySession).(*Session); ok {
		return s
	}
	return New()
}

// IDFromContext returns the resolved session identifier for the request.
func IDFromContext(c echo.Context) string {
	id, _ := c.Get(ctxKeyID).(string)
	return id
}
