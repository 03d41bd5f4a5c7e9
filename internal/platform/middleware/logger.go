package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/siratop/sistema-clinica/internal/platform/auth"
)

// Logger writes one structured line per request. Server errors log at
// error level, client errors at warn. Errors returned by the handler are
// written here so the logged status matches the response.
func Logger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			res := c.Response()
			evt := logger.Info()
			if res.Status >= 500 {
				evt = logger.Error().Err(err)
			} else if res.Status >= 400 {
				evt = logger.Warn()
			}

			if id := auth.IdentityFrom(c); id.Authenticated() {
				evt = evt.Str("account_id", id.AccountID.String()).Str("identity", id.Kind.String())
			}
			evt.Str(RequestIDKey, RequestIDFrom(c)).
				Str("method", c.Request().Method).
				Str("route", c.Path()).
				Str("path", c.Request().URL.Path).
				Int("status", res.Status).
				Int64("bytes", res.Size).
				Dur("latency", time.Since(start)).
				Str("remote_ip", c.RealIP()).
				Msg("request")
			return nil
		}
	}
}
