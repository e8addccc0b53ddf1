// Package auth provides the two request guards the application composes
// around protected routes: an authenticated-session check and an
// any-overlap role check. Both read the session payload attached by the
// session middleware and redirect instead of erroring, so they can be
// stacked in either order.
package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/medrec/medrec/internal/platform/session"
)

const (
	// LoginPath is where unauthenticated requests are redirected.
	LoginPath = "/login"
	// AccessDeniedPath is where authenticated-but-unauthorized requests are
	// redirected.
	AccessDeniedPath = "/access-denied"
)

// RequireLogin returns middleware that only invokes the wrapped handler when
// the session carries a user. Anonymous requests are redirected to the login
// page.
func RequireLogin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !session.FromContext(c).Authenticated() {
				return c.Redirect(http.StatusFound, LoginPath)
			}
			return next(c)
		}
	}
}

// RequireRole returns middleware that invokes the wrapped handler only when
// the session holds at least one of the allowed roles. There is no role
// hierarchy and no override role; any overlap permits, everything else is
// redirected to the access-denied page. A session without roles, including
// an unauthenticated one, is denied rather than erroring, so the guard
// tolerates being stacked outside RequireLogin.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !session.FromContext(c).HasAnyRole(roles...) {
				return c.Redirect(http.StatusFound, AccessDeniedPath)
			}
			return next(c)
		}
	}
}
