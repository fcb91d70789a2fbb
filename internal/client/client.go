package client

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"
)

const (
	// DefaultTimeout bounds every outbound request.
	DefaultTimeout = 30 * time.Second

	maxRetries  = 3
	backoffBase = time.Second
)

// Client wraps http.Client with connection pooling, bearer-token
// authentication and retries on 429/5xx responses. One Client is shared
// across a whole runner invocation.
type Client struct {
	http    *http.Client
	baseURL string
	token   string
}

// New creates a Client for the given server. The token is sent as
// X-Session-Token on every request; an empty token sends no header.
func New(baseURL, token string) *Client {
	transport := &http.Transport{
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Client{
		http: &http.Client{
			Transport: transport,
			Timeout:   DefaultTimeout,
		},
		baseURL: baseURL,
		token:   token,
	}
}

// BaseURL returns the server URL this client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do executes method+path against the server, retrying transient
// failures. The body, when non-nil, is buffered so it can be replayed
// across retries. contentType may be empty for body-less requests.
func (c *Client) Do(ctx context.Context, method, path string, body []byte, contentType string) (*http.Response, error) {
	var resp *http.Response
	var err error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			// Linear backoff between attempts, cancellable.
			select {
			case <-time.After(backoffBase * time.Duration(attempt)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}

		var req *http.Request
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return nil, err
		}
		c.setHeaders(req, contentType)

		resp, err = c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}

		if !retryable(resp.StatusCode) {
			return resp, nil
		}
		resp.Body.Close()
	}

	return resp, err
}

// GetJSON issues a GET and decodes a 200 response into out. A non-200
// status is returned as-is with a nil decode so callers can treat it as
// an existence signal.
func (c *Client) GetJSON(ctx context.Context, path string) (*http.Response, []byte, error) {
	resp, err := c.Do(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp, nil, err
	}
	return resp, data, nil
}

func (c *Client) setHeaders(req *http.Request, contentType string) {
	if c.token != "" {
		req.Header.Set("X-Session-Token", c.token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
}

// DoMultipart posts a prepared multipart body. Multipart uploads carry
// their own boundary content type instead of application/json.
func (c *Client) DoMultipart(ctx context.Context, path string, body []byte, contentType string) (*http.Response, error) {
	return c.Do(ctx, http.MethodPost, path, body, contentType)
}

func retryable(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}
