package handler

import (
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sumire/oceanschool/internal/domain"
)

const (
	contextKeySession = "session"
)

// RequestLogger logs each HTTP request with structured fields.
func RequestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			logger.Info("http request",
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"status", c.Response().Status,
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
			)

			return nil
		}
	}
}

// RequireSession rejects requests while no session is active and injects the
// session into echo context.
func RequireSession(sessions SessionSource) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			s := sessions.Session()
			if !s.Active() {
				return domain.ErrNoSession
			}

			c.Set(contextKeySession, s)
			return next(c)
		}
	}
}

// GetSession extracts the active session from echo context.
func GetSession(c echo.Context) (domain.Session, bool) {
	s, ok := c.Get(contextKeySession).(domain.Session)
	return s, ok
}
