package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"golang.org/x/time/rate"

	"github.com/edgebind/edgebind/pkg/engine"
	"github.com/edgebind/edgebind/pkg/telemetry"
)

const (
	// DefaultRateLimit is the steady request rate per authority.
	DefaultRateLimit = 5

	// DefaultBurst is the number of requests allowed at once.
	DefaultBurst = 1

	// DefaultTimeout bounds a single HTTP exchange.
	DefaultTimeout = 30 * time.Second

	// maxBodySize caps how much of a response body is kept.
	maxBodySize = 4 << 20
)

// Client is the HTTP transport shared by the security and CDN clients.
type Client struct {
	authority string
	baseURL   string
	headers   http.Header
	http      *http.Client
	limiter   *rate.Limiter
	metrics   *telemetry.Metrics
	tracer    *telemetry.Tracer
	logger    *telemetry.Logger
	userAgent string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithBaseURL overrides the authority base URL. Used by tests and proxies.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithRateLimit sets the request rate. A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithMetrics records call counts and latencies.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithTracer wraps every call in a client span.
func WithTracer(t *telemetry.Tracer) Option {
	return func(c *Client) {
		if t != nil {
			c.tracer = t
		}
	}
}

// WithLogger sets the logger used for request debug output.
func WithLogger(l *telemetry.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

func newClient(authority, baseURL string, headers http.Header, opts ...Option) *Client {
	c := &Client{
		authority: authority,
		baseURL:   baseURL,
		headers:   headers,
		http:      &http.Client{Timeout: DefaultTimeout},
		limiter:   rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultBurst),
		logger:    telemetry.NewNopLogger(),
		userAgent: "edgebind",
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.metrics == nil {
		c.metrics, _ = telemetry.NewMetrics(telemetry.MetricsConfig{Enabled: false})
	}
	if c.tracer == nil {
		c.tracer, _ = telemetry.NewTracer(telemetry.TracingConfig{}, "edgebind", "", "")
	}
	c.logger = c.logger.WithProvider(authority)
	return c
}

// Response is a remote reply with a 2xx status.
type Response struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte
}

// Reply converts the response into the engine's view of a bind reply.
func (r *Response) Reply() engine.Reply {
	return engine.Reply{
		StatusCode: r.StatusCode,
		Status:     r.Status,
		Body:       r.Body,
	}
}

// DecodeJSON unmarshals the body into v.
func (r *Response) DecodeJSON(v interface{}) error {
	if len(r.Body) == 0 {
		return fmt.Errorf("empty response body")
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// request describes one remote call.
type request struct {
	operation   string
	method      string
	path        string
	query       url.Values
	body        []byte
	contentType string
	header      http.Header
}

// jsonBody marshals v for a request body.
func jsonBody(v interface{}) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

// do sends req and returns the response when its status is 2xx.
// Any other status, and any failure to get a response, is a *StatusError.
func (c *Client) do(ctx context.Context, req request) (*Response, error) {
	ctx, span := c.tracer.StartProviderSpan(ctx, c.authority, req.operation,
		telemetry.AttrHTTPMethod.String(req.method),
	)
	defer span.End()

	u := c.baseURL + req.path
	if len(req.query) > 0 {
		u += "?" + req.query.Encode()
	}
	span.SetAttributes(telemetry.AttrHTTPURL.String(u))

	serr := &StatusError{
		Authority: c.authority,
		Operation: req.operation,
		Method:    req.method,
		URL:       u,
	}

	if err := c.limiter.Wait(ctx); err != nil {
		serr.Err = err
		telemetry.RecordError(span, serr)
		return nil, serr
	}

	var body io.Reader
	if req.body != nil {
		body = bytes.NewReader(req.body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, u, body)
	if err != nil {
		serr.Err = err
		telemetry.RecordError(span, serr)
		return nil, serr
	}

	for k, vs := range c.headers {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	for k, vs := range req.header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)
	contentType := req.contentType
	if contentType == "" {
		contentType = "application/json"
	}
	httpReq.Header.Set("Content-Type", contentType)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(httpReq.Header))

	timer := telemetry.NewTimer()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.metrics.RecordProviderCall(c.authority, req.operation, 0, timer.Duration())
		c.metrics.RecordProviderError(c.authority, req.operation)
		serr.Err = err
		c.logger.Zerolog().Debug().
			Str("operation", req.operation).
			Str("method", req.method).
			Str("url", u).
			Err(err).
			Msg("no response")
		telemetry.RecordError(span, serr)
		return nil, serr
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	duration := timer.Duration()
	c.metrics.RecordProviderCall(c.authority, req.operation, resp.StatusCode, duration)
	span.SetAttributes(telemetry.AttrHTTPStatus.Int(resp.StatusCode))

	c.logger.Zerolog().Debug().
		Str("operation", req.operation).
		Str("method", req.method).
		Str("url", u).
		Int("status", resp.StatusCode).
		Dur("duration", duration).
		Msg("api call")

	if err != nil {
		serr.Err = fmt.Errorf("failed to read response body: %w", err)
		serr.Code = resp.StatusCode
		serr.Status = resp.Status
		c.metrics.RecordProviderError(c.authority, req.operation)
		telemetry.RecordError(span, serr)
		return nil, serr
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		serr.Code = resp.StatusCode
		serr.Status = resp.Status
		serr.Body = data
		c.metrics.RecordProviderError(c.authority, req.operation)
		telemetry.RecordError(span, serr)
		return nil, serr
	}

	telemetry.RecordSuccess(span)
	return &Response{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     resp.Header,
		Body:       data,
	}, nil
}

// segment escapes one path segment.
func segment(s string) string {
	return url.PathEscape(s)
}
