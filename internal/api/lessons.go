package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sumire/oceanschool/internal/domain"
)

func (c *Client) Lessons(ctx context.Context, courseID int64) ([]domain.Lesson, error) {
	var list []domain.Lesson
	if err := c.Do(ctx, http.MethodGet, fmt.Sprintf("/courses/%d/lessons/", courseID), nil, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *Client) Lesson(ctx context.Context, id int64) (domain.Lesson, error) {
	var lesson domain.Lesson
	if err := c.Do(ctx, http.MethodGet, fmt.Sprintf("/lessons/%d/", id), nil, nil, &lesson); err != nil {
		return domain.Lesson{}, err
	}
	return lesson, nil
}

func (c *Client) CreateLesson(ctx context.Context, courseID int64, in domain.Lesson) (domain.Lesson, error) {
	if err := domain.Validate(in); err != nil {
		return domain.Lesson{}, err
	}
	body := map[string]any{"title": in.Title, "content": in.Content, "lesson_order": in.LessonOrder}
	var lesson domain.Lesson
	if err := c.Do(ctx, http.MethodPost, fmt.Sprintf("/courses/%d/lessons/", courseID), nil, body, &lesson); err != nil {
		return domain.Lesson{}, err
	}
	return lesson, nil
}

// CompleteLesson records lesson progress for the caller.
func (c *Client) CompleteLesson(ctx context.Context, id int64) error {
	return c.Do(ctx, http.MethodPost, fmt.Sprintf("/lessons/%d/complete/", id), nil, nil, nil)
}

func (c *Client) Notes(ctx context.Context, lessonID int64) ([]domain.Note, error) {
	query := url.Values{"lesson_id": {strconv.FormatInt(lessonID, 10)}}
	var list []domain.Note
	if err := c.Do(ctx, http.MethodGet, "/notes/", query, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *Client) CreateNote(ctx context.Context, lessonID int64, content string) (domain.Note, error) {
	body := map[string]any{"lesson_id": lessonID, "content": content}
	var note domain.Note
	if err := c.Do(ctx, http.MethodPost, "/notes/", nil, body, &note); err != nil {
		return domain.Note{}, err
	}
	return note, nil
}

func (c *Client) UpdateNote(ctx context.Context, noteID int64, content string) (domain.Note, error) {
	body := map[string]string{"content": content}
	var note domain.Note
	if err := c.Do(ctx, http.MethodPatch, fmt.Sprintf("/notes/%d/", noteID), nil, body, &note); err != nil {
		return domain.Note{}, err
	}
	return note, nil
}

func (c *Client) DeleteNote(ctx context.Context, noteID int64) error {
	return c.Do(ctx, http.MethodDelete, fmt.Sprintf("/notes/%d/", noteID), nil, nil, nil)
}
