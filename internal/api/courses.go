package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/sumire/oceanschool/internal/domain"
)

// Courses lists courses. With mine set, only the instructor's own courses are returned.
func (c *Client) Courses(ctx context.Context, mine bool) ([]domain.Course, error) {
	var query url.Values
	if mine {
		query = url.Values{"mine": {"true"}}
	}
	var list []domain.Course
	if err := c.Do(ctx, http.MethodGet, "/courses/", query, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *Client) Course(ctx context.Context, id int64) (domain.Course, error) {
	var course domain.Course
	if err := c.Do(ctx, http.MethodGet, fmt.Sprintf("/courses/%d/", id), nil, nil, &course); err != nil {
		return domain.Course{}, err
	}
	return course, nil
}

func (c *Client) CreateCourse(ctx context.Context, in domain.Course) (domain.Course, error) {
	if err := domain.Validate(in); err != nil {
		return domain.Course{}, err
	}
	body := map[string]any{"title": in.Title, "description": in.Description}
	var course domain.Course
	if err := c.Do(ctx, http.MethodPost, "/courses/", nil, body, &course); err != nil {
		return domain.Course{}, err
	}
	return course, nil
}

func (c *Client) PublishCourse(ctx context.Context, id int64, published bool) error {
	body := map[string]bool{"is_published": published}
	return c.Do(ctx, http.MethodPatch, fmt.Sprintf("/courses/%d/publish/", id), nil, body, nil)
}

func (c *Client) ToggleCourseStatus(ctx context.Context, id int64) error {
	return c.Do(ctx, http.MethodPatch, fmt.Sprintf("/courses/%d/toggle-status/", id), nil, nil, nil)
}

func (c *Client) DeleteCourse(ctx context.Context, id int64) error {
	return c.Do(ctx, http.MethodDelete, fmt.Sprintf("/courses/%d/delete/", id), nil, nil, nil)
}

// Enroll enrolls the caller in a course. An existing enrollment surfaces as an *domain.APIError.
func (c *Client) Enroll(ctx context.Context, courseID int64) (domain.Enrollment, error) {
	var enrollment domain.Enrollment
	if err := c.Do(ctx, http.MethodPost, fmt.Sprintf("/courses/%d/enroll/", courseID), nil, nil, &enrollment); err != nil {
		return domain.Enrollment{}, err
	}
	return enrollment, nil
}

func (c *Client) MyCourses(ctx context.Context) ([]domain.EnrolledCourse, error) {
	var list []domain.EnrolledCourse
	if err := c.Do(ctx, http.MethodGet, "/my-courses/", nil, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *Client) RateCourse(ctx context.Context, courseID int64, in domain.Rating) (domain.Rating, error) {
	if err := domain.Validate(in); err != nil {
		return domain.Rating{}, err
	}
	body := map[string]any{"rating": in.Rating, "feedback": in.Feedback}
	var rating domain.Rating
	if err := c.Do(ctx, http.MethodPost, fmt.Sprintf("/courses/%d/rate/", courseID), nil, body, &rating); err != nil {
		return domain.Rating{}, err
	}
	return rating, nil
}

func (c *Client) CourseRatings(ctx context.Context, courseID int64) ([]domain.Rating, error) {
	var list []domain.Rating
	if err := c.Do(ctx, http.MethodGet, fmt.Sprintf("/courses/%d/ratings/", courseID), nil, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *Client) Wishlist(ctx context.Context) ([]domain.WishlistItem, error) {
	var list []domain.WishlistItem
	if err := c.Do(ctx, http.MethodGet, "/wishlist/", nil, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *Client) AddToWishlist(ctx context.Context, courseID int64) (domain.WishlistItem, error) {
	var item domain.WishlistItem
	body := map[string]int64{"course_id": courseID}
	if err := c.Do(ctx, http.MethodPost, "/wishlist/", nil, body, &item); err != nil {
		return domain.WishlistItem{}, err
	}
	return item, nil
}

func (c *Client) RemoveFromWishlist(ctx context.Context, wishlistID int64) error {
	return c.Do(ctx, http.MethodDelete, fmt.Sprintf("/wishlist/%d/", wishlistID), nil, nil, nil)
}
