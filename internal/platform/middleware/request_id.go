package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// RequestIDHeader carries the request identifier on the wire, inbound and
// outbound.
const RequestIDHeader = "X-Request-ID"

// requestIDKey is the echo context key the identifier is stored under;
// Logger and Recovery read it back when building their log entries.
const requestIDKey = "request_id"

// RequestID attaches a request identifier to every request. An identifier
// supplied by the client in X-Request-ID is preserved, otherwise a fresh one
// is generated. The identifier is stored on the echo context and echoed back
// in the response header.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rid := c.Request().Header.Get(RequestIDHeader)
			if rid == "" {
				rid = uuid.NewString()
			}
			c.Set(requestIDKey, rid)
			c.Response().Header().Set(RequestIDHeader, rid)
			return next(c)
		}
	}
}
