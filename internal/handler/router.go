package handler

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// NewRouter builds the local gateway. Session endpoints are public; the
// notification endpoints require an active session.
func NewRouter(sessions SessionService, notifications NotificationService, logger *slog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewAppValidator()
	e.HTTPErrorHandler = HTTPErrorHandler

	e.Use(middleware.RequestID())
	e.Use(RequestLogger(logger))
	e.Use(middleware.Recover())

	e.GET("/health", func(c echo.Context) error {
		return JSON(c, http.StatusOK, map[string]string{"status": "ok"})
	})

	authHandler := NewAuthHandler(sessions)
	notificationHandler := NewNotificationHandler(notifications, sessions)

	v1 := e.Group("/v1")

	// Session routes (public)
	v1.GET("/session", authHandler.Me)
	v1.POST("/session/login", authHandler.Login)
	v1.POST("/session/register", authHandler.Register)
	v1.POST("/session/logout", authHandler.Logout)

	// Protected routes
	n := v1.Group("/notifications", RequireSession(sessions))
	n.GET("", notificationHandler.List)
	n.GET("/stream", notificationHandler.Stream)
	n.POST("/reload", notificationHandler.Reload)
	n.POST("/read-all", notificationHandler.MarkAllRead)
	n.POST("/:id/read", notificationHandler.MarkRead)
	n.DELETE("", notificationHandler.Clear)

	return e
}
