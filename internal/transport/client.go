package transport

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/nao1215/websnap/internal/config"
)

// maxRedirects bounds redirect chains. After that the last redirect
// response itself is returned.
const maxRedirects = 10

// Response is what a fetch returns. Every HTTP status, including 4xx and
// 5xx, produces a Response.
type Response struct {
	// Content is the decoded response body.
	Content []byte

	// ContentType is the Content-Type header value.
	ContentType string

	// StatusCode is the HTTP status code.
	StatusCode int
}

// Client downloads resources over HTTP(S), optionally through a SOCKS5 proxy.
type Client struct {
	httpClient *http.Client
	defaults   config.RequestOptions
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	httpClient *http.Client
	proxy      string
	defaults   config.RequestOptions
	logger     *slog.Logger
}

// WithHTTPClient uses c instead of building a client. Proxy options are
// ignored when a client is supplied.
func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) {
		o.httpClient = c
	}
}

// WithSOCKS5Proxy routes every connection through the SOCKS5 proxy at
// address ("host:port"), for example a Tor daemon.
func WithSOCKS5Proxy(address string) Option {
	return func(o *clientOptions) {
		o.proxy = address
	}
}

// WithDefaults sets the options used for fields a request leaves empty.
func WithDefaults(opts config.RequestOptions) Option {
	return func(o *clientOptions) {
		o.defaults = opts
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(o *clientOptions) {
		o.logger = logger
	}
}

// NewClient creates a Client.
func NewClient(opts ...Option) (*Client, error) {
	o := &clientOptions{
		defaults: config.RequestOptions{
			UserAgent:   config.DefaultUserAgent,
			Timeout:     config.DefaultTimeout,
			MaxBodySize: config.DefaultMaxBodySize,
		},
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	httpClient := o.httpClient
	if httpClient == nil {
		var err error
		httpClient, err = newHTTPClient(o.proxy)
		if err != nil {
			return nil, err
		}
	}

	return &Client{
		httpClient: httpClient,
		defaults:   o.defaults,
		logger:     o.logger,
	}, nil
}

// newHTTPClient builds the default client. The overall timeout is applied
// per request through the context, not here.
func newHTTPClient(proxyAddress string) (*http.Client, error) {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   8,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: time.Second,
		// Encoded bodies are decoded by readBody, which also handles brotli.
		DisableCompression: true,
	}

	if proxyAddress != "" {
		dial, err := socks5DialContext(proxyAddress)
		if err != nil {
			return nil, err
		}
		transport.Proxy = nil
		transport.DialContext = dial
	}

	jar, _ := cookiejar.New(nil) //nolint:errcheck // cookiejar.New only fails with invalid options

	return &http.Client{
		Transport: transport,
		Jar:       jar,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}, nil
}

// Fetch downloads rawURL. opts are merged over the client defaults.
//
// Fetch fails only when no response is received; the error is a *Error
// matching ErrTransport. A response with any status code is returned with
// its body.
func (c *Client) Fetch(ctx context.Context, rawURL string, opts config.RequestOptions) (*Response, error) {
	opts = c.defaults.Merge(opts)

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &Error{URL: rawURL, Err: err}
	}

	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}
	if opts.UserAgent != "" {
		req.Header.Set("User-Agent", opts.UserAgent)
	}
	if opts.Cookie != "" {
		if existing := req.Header.Get("Cookie"); existing != "" {
			req.Header.Set("Cookie", existing+"; "+opts.Cookie)
		} else {
			req.Header.Set("Cookie", opts.Cookie)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	limit := opts.MaxBodySize
	if limit <= 0 {
		limit = config.DefaultMaxBodySize
	}

	body, truncated, err := readBody(resp.Body, resp.Header.Get("Content-Encoding"), limit)
	if err != nil {
		return nil, &Error{URL: rawURL, Err: err}
	}
	if truncated {
		c.logger.Warn("response body truncated", "url", rawURL, "limit", limit)
	}

	c.logger.Debug("fetched",
		"url", rawURL,
		"status", resp.StatusCode,
		"bytes", len(body),
		"elapsed", time.Since(start),
	)

	return &Response{
		Content:     body,
		ContentType: resp.Header.Get("Content-Type"),
		StatusCode:  resp.StatusCode,
	}, nil
}
