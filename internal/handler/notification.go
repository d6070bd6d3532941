package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sumire/oceanschool/internal/domain"
	"github.com/sumire/oceanschool/internal/service"
)

const streamHeartbeat = 25 * time.Second

// NotificationService is the feed surface the gateway drives.
type NotificationService interface {
	Feed() *service.Feed
	MarkRead(ctx context.Context, id int64)
	MarkAllRead(ctx context.Context)
	ClearAll(ctx context.Context) error
	Reload(ctx context.Context) error
}

// NotificationHandler handles notification feed endpoints.
type NotificationHandler struct {
	channel  NotificationService
	sessions SessionSource
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(channel NotificationService, sessions SessionSource) *NotificationHandler {
	return &NotificationHandler{channel: channel, sessions: sessions}
}

// List returns the current feed snapshot.
func (h *NotificationHandler) List(c echo.Context) error {
	return JSON(c, http.StatusOK, h.channel.Feed().Snapshot())
}

func (h *NotificationHandler) MarkRead(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return &domain.ValidationError{Field: "id", Message: "must be a positive integer"}
	}

	h.channel.MarkRead(c.Request().Context(), id)
	return JSON(c, http.StatusOK, h.channel.Feed().Snapshot())
}

func (h *NotificationHandler) MarkAllRead(c echo.Context) error {
	h.channel.MarkAllRead(c.Request().Context())
	return JSON(c, http.StatusOK, h.channel.Feed().Snapshot())
}

// Clear deletes every notification.
func (h *NotificationHandler) Clear(c echo.Context) error {
	if err := h.channel.ClearAll(c.Request().Context()); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Reload re-fetches the feed from the backend.
func (h *NotificationHandler) Reload(c echo.Context) error {
	if err := h.channel.Reload(c.Request().Context()); err != nil {
		return err
	}
	return JSON(c, http.StatusOK, h.channel.Feed().Snapshot())
}

// Stream pushes a feed snapshot as a server-sent event after every change.
// It sends a final end event and returns once the session that opened it is
// no longer active.
func (h *NotificationHandler) Stream(c echo.Context) error {
	owner, ok := GetSession(c)
	if !ok {
		return domain.ErrNoSession
	}
	ended := make(chan domain.Session, 1)
	var once sync.Once
	stopWatching := h.sessions.Subscribe(func(s domain.Session) {
		if !sameUser(owner, s) {
			once.Do(func() { ended <- s })
		}
	})
	defer stopWatching()
	if current := h.sessions.Session(); !sameUser(owner, current) {
		return domain.ErrNoSession
	}

	// Only the latest snapshot matters; a slow reader skips intermediate ones.
	updates := make(chan service.FeedSnapshot, 1)
	unsubscribe := h.channel.Feed().Subscribe(func(s service.FeedSnapshot) {
		for {
			select {
			case updates <- s:
				return
			default:
			}
			select {
			case <-updates:
			default:
			}
		}
	})
	defer unsubscribe()

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)

	if err := writeEvent(res, h.channel.Feed().Snapshot()); err != nil {
		return nil
	}

	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case s := <-ended:
			_ = writeEnd(res, s)
			return nil
		case s := <-updates:
			if err := writeEvent(res, s); err != nil {
				return nil
			}
		case <-heartbeat.C:
			if _, err := fmt.Fprint(res, ": ping\n\n"); err != nil {
				return nil
			}
			res.Flush()
		}
	}
}

func writeEvent(res *echo.Response, s service.FeedSnapshot) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(res, "event: feed\ndata: %s\n\n", data); err != nil {
		return err
	}
	res.Flush()
	return nil
}

func writeEnd(res *echo.Response, s domain.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(res, "event: end\ndata: %s\n\n", data); err != nil {
		return err
	}
	res.Flush()
	return nil
}

// sameUser reports whether s is still the active session of owner's user.
func sameUser(owner, s domain.Session) bool {
	return owner.Active() && s.Active() && owner.User.ID == s.User.ID
}
