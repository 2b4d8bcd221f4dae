package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"sort"
	"time"

	"github.com/artpar/apipost/internal/core"
	"golang.org/x/net/publicsuffix"
)

// Client sends prepared requests over net/http.
type Client struct {
	httpClient *http.Client
	config     Config
}

// Config holds HTTP client configuration.
type Config struct {
	Timeout        time.Duration // zero leaves the transport default in place
	FollowRedirect bool
	Cookies        bool
}

// Option is a function that configures the Client.
type Option func(*Client)

// NewClient creates a new HTTP client with the given options.
func NewClient(opts ...Option) *Client {
	client := &Client{
		httpClient: &http.Client{},
		config: Config{
			FollowRedirect: true,
		},
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// WithTimeout sets the request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.config.Timeout = timeout
		c.httpClient.Timeout = timeout
	}
}

// WithTransport sets a custom HTTP transport.
func WithTransport(transport http.RoundTripper) Option {
	return func(c *Client) {
		c.httpClient.Transport = transport
	}
}

// WithNoRedirects disables automatic redirect following.
func WithNoRedirects() Option {
	return func(c *Client) {
		c.config.FollowRedirect = false
		c.httpClient.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}
}

// WithCookieJar keeps cookies between requests sent by this client.
func WithCookieJar() Option {
	return func(c *Client) {
		jar, err := cookiejar.New(&cookiejar.Options{
			PublicSuffixList: publicsuffix.List,
		})
		if err != nil {
			return
		}
		c.config.Cookies = true
		c.httpClient.Jar = jar
	}
}

// WithJar keeps cookies in jar, which may persist them.
func WithJar(jar http.CookieJar) Option {
	return func(c *Client) {
		if jar == nil {
			return
		}
		c.config.Cookies = true
		c.httpClient.Jar = jar
	}
}

// Config returns the effective configuration.
func (c *Client) Config() Config {
	return c.config
}

// Send executes an HTTP request and returns the response. Any status code
// is a response; only transport failures are errors.
func (c *Client) Send(ctx context.Context, req *core.Request) (*core.Response, error) {
	startTime := time.Now()

	httpReq, err := c.toHTTPRequest(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	bodyBytes, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	endTime := time.Now()

	return c.fromHTTPResponse(req, httpResp, bodyBytes, startTime, endTime), nil
}

// toHTTPRequest converts a core.Request to an http.Request.
func (c *Client) toHTTPRequest(ctx context.Context, req *core.Request) (*http.Request, error) {
	var bodyReader io.Reader
	if !req.Body().IsEmpty() {
		bodyReader = req.Body().Reader()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method(), req.URL(), bodyReader)
	if err != nil {
		return nil, err
	}

	for _, f := range req.Headers().Fields() {
		httpReq.Header.Add(f.Key, f.Value)
	}
	if ct := req.Body().ContentType(); ct != "" && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", ct)
	}
	if host := req.Headers().Get("Host"); host != "" {
		httpReq.Host = host
	}

	return httpReq, nil
}

// fromHTTPResponse converts an http.Response to a core.Response.
func (c *Client) fromHTTPResponse(req *core.Request, httpResp *http.Response, bodyBytes []byte, startTime, endTime time.Time) *core.Response {
	status := core.NewStatus(httpResp.StatusCode, httpResp.Proto, httpResp.Status)

	// net/http does not keep the order of distinct header names; sort them
	// so output is stable. Values of one name keep wire order.
	keys := make([]string, 0, len(httpResp.Header))
	for key := range httpResp.Header {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	headers := core.NewHeaders()
	for _, key := range keys {
		for _, value := range httpResp.Header[key] {
			headers.Add(key, value)
		}
	}

	var body core.Body
	if len(bodyBytes) > 0 {
		body = core.NewRawBody(bodyBytes, httpResp.Header.Get("Content-Type"))
	} else {
		body = core.NewEmptyBody()
	}

	timing := core.Timing{
		StartTime: startTime,
		EndTime:   endTime,
		Total:     endTime.Sub(startTime),
	}

	return core.NewResponse(req.ID(), status).
		WithHeaders(headers).
		WithBody(body).
		WithTiming(timing)
}
