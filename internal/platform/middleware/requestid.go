package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const requestIDKey = "request_id"

// RequestID returns middleware that assigns each request a unique ID,
// honoring an inbound X-Request-ID header so callers can correlate logs.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rid := c.Request().Header.Get("X-Request-ID")
			if rid == "" {
				rid = uuid.New().String()
			}
			c.Set(requestIDKey, rid)
			c.Response().Header().Set("X-Request-ID", rid)
			return next(c)
		}
	}
}

// RequestIDFor returns the ID assigned to this request, or "" when the
// RequestID middleware did not run.
func RequestIDFor(c echo.Context) string {
	rid, _ := c.Get(requestIDKey).(string)
	return rid
}
