package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sumire/oceanschool/internal/domain"
)

// SessionSource exposes the current session and its changes.
type SessionSource interface {
	Session() domain.Session
	// Subscribe registers fn for every session transition and returns a
	// function that removes it. fn must not block.
	Subscribe(fn func(domain.Session)) func()
}

// SessionService is the session lifecycle surface the gateway drives.
type SessionService interface {
	SessionSource
	Login(ctx context.Context, username, password string) (domain.Session, error)
	Register(ctx context.Context, in domain.RegisterInput) (domain.User, error)
	Logout(ctx context.Context) error
}

// AuthHandler handles session endpoints.
type AuthHandler struct {
	sessions SessionService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(sessions SessionService) *AuthHandler {
	return &AuthHandler{sessions: sessions}
}

// Me returns the current session, active or not.
func (h *AuthHandler) Me(c echo.Context) error {
	return JSON(c, http.StatusOK, h.sessions.Session())
}

// Login exchanges credentials and activates the session.
func (h *AuthHandler) Login(c echo.Context) error {
	var in domain.LoginInput
	if err := c.Bind(&in); err != nil {
		return domain.ErrInvalidInput
	}
	if err := c.Validate(&in); err != nil {
		return err
	}

	session, err := h.sessions.Login(c.Request().Context(), in.Username, in.Password)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, session)
}

// Register creates an account without logging in.
func (h *AuthHandler) Register(c echo.Context) error {
	var in domain.RegisterInput
	if err := c.Bind(&in); err != nil {
		return domain.ErrInvalidInput
	}
	in.Role = domain.ParseRole(string(in.Role))
	if err := c.Validate(&in); err != nil {
		return err
	}

	user, err := h.sessions.Register(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusCreated, user)
}

// Logout ends the session.
func (h *AuthHandler) Logout(c echo.Context) error {
	if err := h.sessions.Logout(c.Request().Context()); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
