package forwarder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Defaults
const (
	DefaultTimeout          = 15 * time.Second
	DefaultMaxResponseBytes = 32 << 20
)

// Config configures a Forwarder.
type Config struct {
	// BaseURL is the upstream API root; request paths are appended to it.
	BaseURL string
	// Timeout bounds each upstream call. A timeout is a BadGateway.
	Timeout time.Duration
	// MaxResponseBytes caps the relayed upstream body.
	MaxResponseBytes int64
}

// Request is one call to relay.
type Request struct {
	Method string
	// Path is relative to Config.BaseURL, e.g. "/posts/42". It may carry
	// percent-encoded segments.
	Path   string
	Query  url.Values
	Body   []byte
	Header http.Header
}

// Response is an upstream response, relayed verbatim.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// ContentType returns the upstream content type, defaulting to JSON.
func (r *Response) ContentType() string {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	return DefaultContentType
}

// Forwarder relays requests to the upstream API. It is safe for concurrent use.
type Forwarder struct {
	baseURL          *url.URL
	client           *http.Client
	maxResponseBytes int64
	logger           *slog.Logger
}

// Option represents a functional option for configuring the forwarder
type Option func(*Forwarder)

// WithHTTPClient replaces the HTTP client. Its Timeout is left untouched.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Forwarder) {
		f.client = client
	}
}

// WithLogger sets the logger for the forwarder
func WithLogger(logger *slog.Logger) Option {
	return func(f *Forwarder) {
		f.logger = logger
	}
}

// New creates a Forwarder for cfg.BaseURL.
func New(cfg Config, options ...Option) (*Forwarder, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("upstream base url is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid upstream base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("upstream base url must be http or https, got %q", cfg.BaseURL)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("upstream base url has no host: %q", cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	maxResponse := cfg.MaxResponseBytes
	if maxResponse <= 0 {
		maxResponse = DefaultMaxResponseBytes
	}

	f := &Forwarder{
		baseURL: base,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConnsPerHost: 32,
				IdleConnTimeout:     90 * time.Second,
			},
			// redirects are relayed, not followed
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		maxResponseBytes: maxResponse,
		logger:           slog.Default(),
	}
	for _, option := range options {
		option(f)
	}
	f.logger = f.logger.With("component", "forwarder")
	return f, nil
}

// BaseURL returns the upstream root.
func (f *Forwarder) BaseURL() string {
	return f.baseURL.String()
}

// Forward issues exactly one upstream call for req. Any upstream response,
// whatever its status, is returned as a Response. A *GatewayError is
// returned when there is no response to relay.
func (f *Forwarder) Forward(ctx context.Context, req Request) (*Response, error) {
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}

	start := time.Now()
	resp, err := f.do(ctx, method, req)
	forwardDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())

	if err != nil {
		var gwErr *GatewayError
		kind := InternalProxyError
		if errors.As(err, &gwErr) {
			kind = gwErr.Kind
		}
		forwardedRequestsTotal.WithLabelValues(method, string(kind)).Inc()
		f.logger.Error("forward failed",
			"method", method,
			"path", req.Path,
			"kind", kind,
			"err", err)
		return nil, err
	}

	forwardedRequestsTotal.WithLabelValues(method, statusOutcome(resp.StatusCode)).Inc()
	f.logger.Info("forwarded",
		"method", method,
		"path", req.Path,
		"status", resp.StatusCode,
		"duration", time.Since(start))
	return resp, nil
}

func (f *Forwarder) do(ctx context.Context, method string, req Request) (*Response, error) {
	target, err := f.targetURL(req.Path, req.Query)
	if err != nil {
		return nil, internalError(err)
	}

	var body io.Reader = http.NoBody
	if carriesBody(method) && len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, internalError(fmt.Errorf("build request: %w", err))
	}
	httpReq.Header = ProjectHeaders(req.Header)

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, badGateway(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxResponseBytes+1))
	if err != nil {
		return nil, badGateway(fmt.Errorf("read upstream response: %w", err))
	}
	if int64(len(data)) > f.maxResponseBytes {
		return nil, badGateway(fmt.Errorf("upstream response exceeds %d bytes", f.maxResponseBytes))
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       data,
	}, nil
}

// targetURL joins the base URL and an escaped request path.
func (f *Forwarder) targetURL(path string, query url.Values) (string, error) {
	rel, err := url.Parse("/" + strings.TrimLeft(path, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid upstream path: %w", err)
	}

	u := *f.baseURL
	u.Path = strings.TrimRight(f.baseURL.Path, "/") + rel.Path
	u.RawPath = ""
	if rel.RawPath != "" {
		u.RawPath = strings.TrimRight(f.baseURL.EscapedPath(), "/") + rel.RawPath
	}

	q := u.Query()
	for k, vs := range rel.Query() {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	for k, vs := range query {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func carriesBody(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}
