package ldp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/roach88/ldesmirror/internal/resource"
	"github.com/roach88/ldesmirror/internal/tree"
)

// Defaults for NewClient.
const (
	DefaultTimeout      = 30 * time.Second
	DefaultRetryMax     = 3
	DefaultRetryWaitMin = 250 * time.Millisecond
	DefaultRetryWaitMax = 2 * time.Second
)

// maxBodySize bounds every response body the client reads.
const maxBodySize = 64 << 20

// StatusError is returned for responses the protocol does not expect.
type StatusError struct {
	Method  string
	Locator string
	Status  int
	Body    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.Locator, e.Status, e.Body)
}

// Client is a resource.Store backed by HTTP.
//
// Idempotent requests (GET, PUT) are retried on connection errors and 5xx
// responses. PATCH and POST are sent once: a retried patch whose first
// attempt landed would fail with a conflict, and a retried POST would
// create a second child.
type Client struct {
	client *retryablehttp.Client
	once   *retryablehttp.Client
	logger *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets the underlying http.Client for all requests.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.client.HTTPClient = hc
		c.once.HTTPClient = hc
	}
}

// WithRetry sets the retry budget of idempotent requests.
func WithRetry(max int, waitMin, waitMax time.Duration) ClientOption {
	return func(c *Client) {
		c.client.RetryMax = max
		c.client.RetryWaitMin = waitMin
		c.client.RetryWaitMax = waitMax
	}
}

// WithClientLogger sets the logger. *slog.Logger satisfies
// retryablehttp.LeveledLogger, so retry attempts are logged through it too.
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
		c.client.Logger = logger
		c.once.Logger = logger
		hook := func(_ retryablehttp.Logger, resp *http.Response) {
			logger.Debug("response received",
				"method", resp.Request.Method,
				"url", resp.Request.URL.String(),
				"status", resp.StatusCode,
			)
		}
		c.client.ResponseLogHook = hook
		c.once.ResponseLogHook = hook
	}
}

// NewClient returns a Client with default timeouts and retry budget.
func NewClient(opts ...ClientOption) *Client {
	hc := &http.Client{Timeout: DefaultTimeout}
	c := &Client{
		client: &retryablehttp.Client{
			HTTPClient:   hc,
			RetryMax:     DefaultRetryMax,
			RetryWaitMin: DefaultRetryWaitMin,
			RetryWaitMax: DefaultRetryWaitMax,
			Backoff:      retryablehttp.LinearJitterBackoff,
			CheckRetry:   retryablehttp.DefaultRetryPolicy,
			ErrorHandler: retryablehttp.PassthroughErrorHandler,
		},
		once: &retryablehttp.Client{
			HTTPClient:   hc,
			RetryMax:     0,
			Backoff:      retryablehttp.DefaultBackoff,
			CheckRetry:   retryablehttp.DefaultRetryPolicy,
			ErrorHandler: retryablehttp.PassthroughErrorHandler,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get fetches the graph at locator.
func (c *Client) Get(ctx context.Context, locator string) (tree.Graph, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", tree.ContentType)

	status, body, _, err := c.do(c.client, req)
	if err != nil {
		return nil, err
	}
	switch status {
	case http.StatusOK:
	case http.StatusNotFound, http.StatusGone:
		return nil, fmt.Errorf("GET %s: %w", locator, resource.ErrNotFound)
	default:
		return nil, statusError(http.MethodGet, locator, status, body)
	}

	g, err := tree.UnmarshalGraph(body)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", locator, err)
	}
	return g, nil
}

// Put creates or replaces the resource at locator.
func (c *Client) Put(ctx context.Context, locator string, g tree.Graph) error {
	body, err := tree.MarshalGraph(g)
	if err != nil {
		return err
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPut, locator, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", tree.ContentType)

	status, resp, _, err := c.do(c.client, req)
	if err != nil {
		return err
	}
	if !success(status) {
		return statusError(http.MethodPut, locator, status, resp)
	}
	return nil
}

// Patch removes del from and adds insert to the resource at locator.
func (c *Client) Patch(ctx context.Context, locator string, insert, del tree.Graph) error {
	body, err := marshalPatch(insert, del)
	if err != nil {
		return err
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPatch, locator, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", PatchContentType)

	status, resp, _, err := c.do(c.once, req)
	if err != nil {
		return err
	}
	switch {
	case success(status):
		return nil
	case status == http.StatusConflict, status == http.StatusNotFound, status == http.StatusPreconditionFailed:
		return fmt.Errorf("PATCH %s: %w", locator, resource.ErrConflict)
	default:
		return statusError(http.MethodPatch, locator, status, resp)
	}
}

// CreateChild posts g to container and returns the Location of the new
// resource.
func (c *Client) CreateChild(ctx context.Context, container string, g tree.Graph) (string, error) {
	body, err := tree.MarshalGraph(g)
	if err != nil {
		return "", err
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, container, body)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", tree.ContentType)

	status, resp, header, err := c.do(c.once, req)
	if err != nil {
		return "", err
	}
	if !success(status) {
		return "", statusError(http.MethodPost, container, status, resp)
	}

	loc := header.Get("Location")
	if loc == "" {
		return "", fmt.Errorf("POST %s: response has no Location", container)
	}
	base, err := url.Parse(container)
	if err != nil {
		return "", fmt.Errorf("POST %s: %w", container, err)
	}
	ref, err := url.Parse(loc)
	if err != nil {
		return "", fmt.Errorf("POST %s: bad Location %q: %w", container, loc, err)
	}
	return base.ResolveReference(ref).String(), nil
}

func (c *Client) do(client *retryablehttp.Client, req *retryablehttp.Request) (int, []byte, http.Header, error) {
	res, err := client.Do(req)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("%s %s: %w", req.Method, req.URL, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxBodySize))
	if err != nil {
		return 0, nil, nil, fmt.Errorf("%s %s: reading body: %w", req.Method, req.URL, err)
	}
	if !success(res.StatusCode) {
		c.logger.Debug("request failed",
			"method", req.Method,
			"url", req.URL.String(),
			"status", res.StatusCode,
		)
	}
	return res.StatusCode, body, res.Header, nil
}

func success(status int) bool {
	return status >= 200 && status < 300
}

func statusError(method, locator string, status int, body []byte) error {
	const snippet = 256
	b := bytes.TrimSpace(body)
	if len(b) > snippet {
		b = b[:snippet]
	}
	return &StatusError{Method: method, Locator: locator, Status: status, Body: string(b)}
}

var _ resource.Store = (*Client)(nil)
