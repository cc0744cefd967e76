// Package childtrack provides the HTTP client for the ChildTrack school
// backend: the three public collections the notifier samples, and the parent
// login endpoint.
//
// Collections come back either as a bare JSON array or as a paginated
// {results, next} envelope; both are normalized into a flat slice.
// Rate limiting is handled via a token bucket limiter.
package childtrack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// ErrUnexpectedStatus is wrapped by every non-2xx response error.
var ErrUnexpectedStatus = errors.New("unexpected status")

// Paths holds the endpoint path of each collection, relative to the base URL.
type Paths struct {
	Attendance string
	Events     string
	Guardians  string
	Login      string
}

// DefaultPaths are the endpoints the ChildTrack backend serves.
var DefaultPaths = Paths{
	Attendance: "/api/attendance/public/",
	Events:     "/api/parents/events/",
	Guardians:  "/api/guardian/public/",
	Login:      "/api/parents/login/",
}

// TokenSource returns the auth token to send, or "" for anonymous requests.
type TokenSource func(ctx context.Context) string

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	BaseURL           string
	Paths             Paths
	Timeout           time.Duration
	RequestsPerMinute int
	MaxPages          int
	Token             TokenSource
	HTTPClient        *http.Client
	Logger            *slog.Logger
}

// Client is the shared HTTP client for all ChildTrack endpoints.
type Client struct {
	httpClient *http.Client
	baseURL    string
	paths      Paths
	maxPages   int
	token      TokenSource
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewClient creates a ChildTrack HTTP client with rate limiting.
func NewClient(opts Options) *Client {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RequestsPerMinute <= 0 {
		opts.RequestsPerMinute = 120
	}
	if opts.MaxPages < 1 {
		opts.MaxPages = 10
	}
	if opts.Paths == (Paths{}) {
		opts.Paths = DefaultPaths
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	rps := float64(opts.RequestsPerMinute) / 60.0
	return &Client{
		httpClient: httpClient,
		baseURL:    opts.BaseURL,
		paths:      opts.Paths,
		maxPages:   opts.MaxPages,
		token:      opts.Token,
		limiter:    rate.NewLimiter(rate.Limit(rps), 3),
		logger:     opts.Logger,
	}
}

// do performs a rate-limited request and returns the body of a 2xx response.
func (c *Client) do(ctx context.Context, method, rawURL string, payload any) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != nil {
		if tok := c.token(ctx); tok != "" {
			req.Header.Set("Authorization", "Token "+tok)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return respBody, &StatusError{Code: resp.StatusCode, URL: rawURL, Body: truncate(respBody, 200)}
	}
	return respBody, nil
}

// StatusError carries a non-2xx response. It matches ErrUnexpectedStatus.
type StatusError struct {
	Code int
	URL  string
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned %d: %s", e.URL, e.Code, e.Body)
}

func (e *StatusError) Is(target error) bool { return target == ErrUnexpectedStatus }

// truncate returns a truncated string representation for error messages.
func truncate(b []byte, maxLen int) string {
	if len(b) <= maxLen {
		return string(b)
	}
	return string(b[:maxLen]) + "..."
}
