package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/sumire/oceanschool/internal/domain"
)

// Users lists accounts for the admin panel. An empty role lists everyone.
func (c *Client) Users(ctx context.Context, role domain.Role) ([]domain.UserSummary, error) {
	filter := "ALL"
	if role.Known() {
		filter = string(role)
	}
	var list []domain.UserSummary
	if err := c.Do(ctx, http.MethodGet, "/admin-api/users/", url.Values{"role": {filter}}, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *Client) ToggleUserStatus(ctx context.Context, userID int64) error {
	return c.Do(ctx, http.MethodPatch, fmt.Sprintf("/admin-api/users/%d/toggle-status/", userID), nil, nil, nil)
}

// ExportResults streams the student results export in the given format (csv, xlsx, pdf).
func (c *Client) ExportResults(ctx context.Context, format string) (io.ReadCloser, string, error) {
	return c.Stream(ctx, "/admin-api/export-results/", url.Values{"format": {format}})
}

// AdminDashboard returns the aggregate dashboard document as-is.
func (c *Client) AdminDashboard(ctx context.Context) (json.RawMessage, error) {
	return c.raw(ctx, "/admin-api/dashboard/")
}

func (c *Client) AdminAnalytics(ctx context.Context) (json.RawMessage, error) {
	return c.raw(ctx, "/admin-api/analytics/")
}

func (c *Client) InstructorAnalytics(ctx context.Context) (json.RawMessage, error) {
	return c.raw(ctx, "/instructor/analytics/")
}

func (c *Client) InstructorStudents(ctx context.Context) (json.RawMessage, error) {
	return c.raw(ctx, "/instructor/students/")
}

// DownloadCertificate streams the completion certificate PDF for a course.
func (c *Client) DownloadCertificate(ctx context.Context, courseID int64) (io.ReadCloser, string, error) {
	return c.Stream(ctx, fmt.Sprintf("/certificates/%d/", courseID), nil)
}

func (c *Client) raw(ctx context.Context, path string) (json.RawMessage, error) {
	var doc json.RawMessage
	if err := c.Do(ctx, http.MethodGet, path, nil, nil, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}
