package espkey

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultUserAgent = "espkey/0.1"
	// DefaultTimeout bounds every device request unless overridden.
	DefaultTimeout = 15 * time.Second

	// deviceClockHeader carries the device's relative millisecond clock.
	deviceClockHeader = "Now"
)

// Client talks to a single ESPKey's HTTP interface.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
	username  string
	password  string
	now       func() time.Time
}

// Option customises a Client.
type Option func(*Client)

// WithCredentials sets the basic-auth user and password sent with requests.
func WithCredentials(user, pass string) Option {
	return func(c *Client) {
		c.username = user
		c.password = pass
	}
}

// WithTimeout overrides the per-request timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// NewClient builds a Client for the device at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL:   base,
		http:      &http.Client{Timeout: DefaultTimeout},
		userAgent: defaultUserAgent,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the device's root URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Response is a raw device reply together with its request timing.
type Response struct {
	Status      int
	Body        string
	Header      http.Header
	RequestedAt time.Time
	// DeviceClock is the device's relative clock when it answered; valid only
	// when HasDeviceClock is set.
	DeviceClock    uint32
	HasDeviceClock bool
}

// StatusError reports a non-success HTTP status from the device.
type StatusError struct {
	Path   string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("espkey %s returned status %d", e.Path, e.Status)
}

// Get issues a GET request for rel, which may carry a query string.
func (c *Client) Get(ctx context.Context, rel *url.URL) (*Response, error) {
	return c.do(ctx, http.MethodGet, rel, nil, "")
}

// PostFile uploads data as a multipart form file named fileName.
func (c *Client) PostFile(ctx context.Context, rel *url.URL, fileName string, data []byte) (*Response, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", fileName)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("write form file: %w", err)
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("close form: %w", err)
	}
	return c.do(ctx, http.MethodPost, rel, &body, form.FormDataContentType())
}

func (c *Client) do(ctx context.Context, method string, rel *url.URL, body io.Reader, contentType string) (*Response, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	reqURL := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.username != "" || c.password != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	requestedAt := c.now().UTC()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	text, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	out := &Response{
		Status:      resp.StatusCode,
		Body:        string(text),
		Header:      resp.Header,
		RequestedAt: requestedAt,
	}
	if raw := strings.TrimSpace(resp.Header.Get(deviceClockHeader)); raw != "" {
		if v, err := strconv.ParseUint(raw, 10, 32); err == nil {
			out.DeviceClock = uint32(v)
			out.HasDeviceClock = true
		}
	}
	return out, nil
}

// expectOK turns a non-2xx response into a *StatusError.
func expectOK(rel *url.URL, resp *Response) error {
	if resp.Status < 200 || resp.Status > 299 {
		return &StatusError{Path: rel.Path, Status: resp.Status}
	}
	return nil
}

func decodeObject(resp *Response) (map[string]any, error) {
	var payload map[string]any
	if err := json.Unmarshal([]byte(resp.Body), &payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return payload, nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("base url is empty")
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse base url %q: %w", raw, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse base url %q: missing host", raw)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
