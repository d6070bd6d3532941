package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"maps"
	"mime/multipart"
	"net/http"
	"net/url"
	"slices"
	"strconv"

	"github.com/sumire/oceanschool/internal/domain"
)

// Login exchanges a username (or email) and password for a token pair.
func (c *Client) Login(ctx context.Context, in domain.LoginInput) (domain.TokenPair, error) {
	var pair domain.TokenPair
	if err := c.Do(ctx, http.MethodPost, "/login/", nil, in, &pair); err != nil {
		return domain.TokenPair{}, err
	}
	return pair, nil
}

// Register creates an account. It does not log in.
func (c *Client) Register(ctx context.Context, in domain.RegisterInput) (domain.User, error) {
	var user domain.User
	if err := c.Do(ctx, http.MethodPost, "/register/", nil, in, &user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// Profile fetches the identity profile of the caller, or of userID when it is non-zero.
func (c *Client) Profile(ctx context.Context, userID int64) (domain.User, error) {
	var query url.Values
	if userID != 0 {
		query = url.Values{"user_id": {strconv.FormatInt(userID, 10)}}
	}

	var user domain.User
	if err := c.Do(ctx, http.MethodGet, "/profile/", query, nil, &user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// ProfileImage is a picture uploaded with a profile update.
type ProfileImage struct {
	Filename string
	Content  io.Reader
}

// UpdateProfile edits the caller's profile with a multipart form. fields holds
// the text parts such as username and email; image, when set, is sent as the
// profile_image file part.
func (c *Client) UpdateProfile(ctx context.Context, fields map[string]string, image *ProfileImage) (domain.User, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, key := range slices.Sorted(maps.Keys(fields)) {
		if err := mw.WriteField(key, fields[key]); err != nil {
			return domain.User{}, fmt.Errorf("encode profile field %s: %w", key, err)
		}
	}
	if image != nil {
		part, err := mw.CreateFormFile("profile_image", image.Filename)
		if err != nil {
			return domain.User{}, fmt.Errorf("encode profile image: %w", err)
		}
		if _, err := io.Copy(part, image.Content); err != nil {
			return domain.User{}, fmt.Errorf("encode profile image: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return domain.User{}, fmt.Errorf("encode profile form: %w", err)
	}

	var user domain.User
	if err := c.doEncoded(ctx, http.MethodPatch, "/profile/", nil, &buf, mw.FormDataContentType(), &user); err != nil {
		return domain.User{}, err
	}
	return user.Normalized(), nil
}
