package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/sumire/oceanschool/internal/domain"
)

const (
	headerRequestID = "X-Request-ID"
	maxErrorBody    = 64 << 10
)

// TokenSource supplies the access credential attached to outgoing requests.
type TokenSource interface {
	// Token returns the current token and false when no credential is stored.
	Token() (*oauth2.Token, bool)
}

// UnauthorizedHandler reacts to an authorization-denied response.
type UnauthorizedHandler interface {
	HandleUnauthorized(ctx context.Context)
}

// Options configures a Client.
type Options struct {
	HTTPClient *http.Client
	// Timeout bounds each request. Zero means no timeout.
	Timeout time.Duration
	Logger  *slog.Logger
}

// Client is the shared request-dispatch layer. Every call goes through it so
// credential attachment and authorization-denied handling apply uniformly.
type Client struct {
	baseURL string
	http    *http.Client
	log     *slog.Logger

	mu             sync.RWMutex
	tokens         TokenSource
	onUnauthorized UnauthorizedHandler
}

// NewClient creates a Client for the API rooted at baseURL.
func NewClient(baseURL string, opts Options) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url must be http or https, got %q", baseURL)
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    hc,
		log:     logger,
	}, nil
}

// SetAuth installs the credential source and the authorization-denied hook.
func (c *Client) SetAuth(tokens TokenSource, onUnauthorized UnauthorizedHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens = tokens
	c.onUnauthorized = onUnauthorized
}

// Do sends a JSON request and decodes a 2xx JSON response into out.
// out may be nil when the response body is not needed.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var (
		reader      io.Reader
		contentType string
	)
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s body: %w", method, path, err)
		}
		reader = bytes.NewReader(b)
		contentType = "application/json"
	}
	return c.doEncoded(ctx, method, path, query, reader, contentType, out)
}

func (c *Client) doEncoded(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string, out any) error {
	resp, err := c.send(ctx, method, path, query, body, contentType, "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

// Stream sends a GET request and hands the raw response body to the caller,
// who must close it.
func (c *Client) Stream(ctx context.Context, path string, query url.Values) (io.ReadCloser, string, error) {
	resp, err := c.send(ctx, http.MethodGet, path, query, nil, "", "*/*")
	if err != nil {
		return nil, "", err
	}
	return resp.Body, resp.Header.Get("Content-Type"), nil
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType, accept string) (*http.Response, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", accept)
	requestID := uuid.NewString()
	req.Header.Set(headerRequestID, requestID)

	c.mu.RLock()
	tokens := c.tokens
	c.mu.RUnlock()
	if tokens != nil {
		if tok, ok := tokens.Token(); ok {
			tok.SetAuthHeader(req)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}

	c.log.Debug("api request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
		"request_id", requestID,
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := decodeAPIError(resp)
		resp.Body.Close()
		if resp.StatusCode == http.StatusUnauthorized {
			c.unauthorized(ctx, path)
		}
		return nil, apiErr
	}
	return resp, nil
}

type authHandledKey struct{}

// unauthorized fires the hook for a denied request, except for the credential
// exchange itself and for requests issued while the hook is already running.
func (c *Client) unauthorized(ctx context.Context, path string) {
	if strings.Contains(path, "/login") {
		return
	}
	if handled, _ := ctx.Value(authHandledKey{}).(bool); handled {
		return
	}

	c.mu.RLock()
	hook := c.onUnauthorized
	c.mu.RUnlock()
	if hook == nil {
		return
	}
	hook.HandleUnauthorized(context.WithValue(ctx, authHandledKey{}, true))
}

func decodeAPIError(resp *http.Response) *domain.APIError {
	apiErr := &domain.APIError{Status: resp.StatusCode}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(bytes.TrimSpace(raw)) == 0 {
		return apiErr
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		apiErr.Detail = truncate(strings.TrimSpace(string(raw)), 200)
		return apiErr
	}

	for key, value := range fields {
		switch key {
		case "detail", "error", "message":
			var s string
			if json.Unmarshal(value, &s) == nil {
				apiErr.Detail = s
				continue
			}
		}

		var list []string
		if json.Unmarshal(value, &list) == nil {
			addFieldErrors(apiErr, key, list...)
			continue
		}
		var single string
		if json.Unmarshal(value, &single) == nil {
			addFieldErrors(apiErr, key, single)
		}
	}
	return apiErr
}

func addFieldErrors(e *domain.APIError, field string, msgs ...string) {
	if len(msgs) == 0 {
		return
	}
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], msgs...)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
