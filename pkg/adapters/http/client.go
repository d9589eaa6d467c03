package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aretw0/certwizard/pkg/domain"
)

// DefaultMaxBody caps how much of a response body is read.
const DefaultMaxBody = 8 << 20

// ErrBodyTooLarge is returned when a response body exceeds the configured cap.
var ErrBodyTooLarge = errors.New("response body too large")

// Client implements ports.Transport over net/http.
type Client struct {
	http    *http.Client
	maxBody int64
	agent   string
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithHTTPClient sets the underlying client (e.g. for custom transports in tests).
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) {
		cl.http = c
	}
}

// WithMaxBody caps the number of body bytes accepted. Larger bodies fail with ErrBodyTooLarge.
func WithMaxBody(n int64) ClientOption {
	return func(cl *Client) {
		cl.maxBody = n
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(agent string) ClientOption {
	return func(cl *Client) {
		cl.agent = agent
	}
}

// NewClient creates a transport. There is no client-level timeout;
// deadlines come from the caller's context.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		http:    &http.Client{Timeout: 0},
		maxBody: DefaultMaxBody,
		agent:   "certwizard",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ValidateEndpoint checks the endpoint is an absolute http(s) URL.
func ValidateEndpoint(endpoint string) error {
	if endpoint == "" {
		return errors.New("endpoint is required")
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("invalid endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid endpoint scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("endpoint has no host")
	}
	return nil
}

// Do issues the request and reads the whole body.
// Non-200 responses are returned without error; the orchestrator decides.
func (c *Client) Do(ctx context.Context, r domain.Request) (domain.Response, error) {
	var body io.Reader
	if r.Method == domain.MethodPost {
		body = strings.NewReader(r.Body)
	}

	req, err := http.NewRequestWithContext(ctx, string(r.Method), r.URL, body)
	if err != nil {
		return domain.Response{}, fmt.Errorf("build %s request: %w", r.Step, err)
	}
	if r.ContentType != "" {
		req.Header.Set("Content-Type", r.ContentType)
	}
	if c.agent != "" {
		req.Header.Set("User-Agent", c.agent)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return domain.Response{}, fmt.Errorf("%s request failed: %w", r.Step, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return domain.Response{}, fmt.Errorf("read %s response after %s: %w", r.Step, time.Since(start).Round(time.Millisecond), err)
	}
	if int64(len(data)) > c.maxBody {
		return domain.Response{}, fmt.Errorf("%s response: %w (limit %d bytes)", r.Step, ErrBodyTooLarge, c.maxBody)
	}

	return domain.Response{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       data,
	}, nil
}
