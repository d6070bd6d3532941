package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sumire/oceanschool/internal/domain"
)

// Notifications lists the caller's notifications, newest first.
func (c *Client) Notifications(ctx context.Context) ([]domain.Notification, error) {
	var list []domain.Notification
	if err := c.Do(ctx, http.MethodGet, "/notifications/", nil, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// UnreadCount returns the number of unread notifications.
func (c *Client) UnreadCount(ctx context.Context) (int, error) {
	var count domain.UnreadCount
	if err := c.Do(ctx, http.MethodGet, "/notifications/unread-count/", nil, nil, &count); err != nil {
		return 0, err
	}
	return count.UnreadCount, nil
}

// MarkRead marks one notification as read. The response body is ignored.
func (c *Client) MarkRead(ctx context.Context, id int64) error {
	return c.Do(ctx, http.MethodPatch, fmt.Sprintf("/notifications/%d/read/", id), nil, nil, nil)
}

func (c *Client) MarkAllRead(ctx context.Context) error {
	return c.Do(ctx, http.MethodPost, "/notifications/mark-all-read/", nil, nil, nil)
}

// ClearNotifications deletes every notification of the caller.
func (c *Client) ClearNotifications(ctx context.Context) error {
	return c.Do(ctx, http.MethodDelete, "/notifications/clear/", nil, nil, nil)
}
