package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sumire/oceanschool/internal/domain"
)

// Comments lists a course's forum thread, optionally scoped to one lesson.
func (c *Client) Comments(ctx context.Context, courseID, lessonID int64) ([]domain.Comment, error) {
	var query url.Values
	if lessonID != 0 {
		query = url.Values{"lesson_id": {strconv.FormatInt(lessonID, 10)}}
	}
	var list []domain.Comment
	if err := c.Do(ctx, http.MethodGet, fmt.Sprintf("/courses/%d/comments/", courseID), query, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *Client) CreateComment(ctx context.Context, courseID int64, in domain.Comment) (domain.Comment, error) {
	if err := domain.Validate(in); err != nil {
		return domain.Comment{}, err
	}
	body := map[string]any{"text": in.Text, "lesson": in.Lesson, "parent": in.Parent}
	var comment domain.Comment
	if err := c.Do(ctx, http.MethodPost, fmt.Sprintf("/courses/%d/comments/", courseID), nil, body, &comment); err != nil {
		return domain.Comment{}, err
	}
	return comment, nil
}

func (c *Client) DeleteComment(ctx context.Context, commentID int64) error {
	return c.Do(ctx, http.MethodDelete, fmt.Sprintf("/comments/%d/", commentID), nil, nil, nil)
}
