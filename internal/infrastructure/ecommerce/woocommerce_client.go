package ecommerce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/crm/backend/internal/domain/integration"
	"github.com/crm/backend/internal/infrastructure/telemetry"
)

// maxResponseSize is the maximum allowed response size from the storefront API (10MB)
const maxResponseSize = 10 * 1024 * 1024

// maxErrorBodySize bounds the response excerpt kept on RemoteRequestError
const maxErrorBodySize = 2048

// RemoteRequestError is a failed storefront call. StatusCode is 0 when the
// request never got a response.
type RemoteRequestError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
	Err        error
}

func (e *RemoteRequestError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("woocommerce: %s %s: %v", e.Method, e.Path, e.Err)
	}
	if e.Body == "" {
		return fmt.Sprintf("woocommerce: %s %s: HTTP %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("woocommerce: %s %s: HTTP %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Unwrap exposes integration.ErrRemoteRequestFailed and the transport cause
func (e *RemoteRequestError) Unwrap() []error {
	if e.Err != nil {
		return []error{integration.ErrRemoteRequestFailed, e.Err}
	}
	return []error{integration.ErrRemoteRequestFailed}
}

// ResponseMeta carries the paging headers of a response
type ResponseMeta struct {
	StatusCode int
	TotalPages int
	Total      int
}

// WooCommerceClient performs signed, rate limited calls against the REST API
type WooCommerceClient struct {
	config     *WooCommerceConfig
	signer     Signer
	httpClient *http.Client
	limiter    *rate.Limiter
	metrics    *telemetry.SyncMetrics
	logger     *zap.Logger
}

// ClientOption customizes a WooCommerceClient
type ClientOption func(*WooCommerceClient)

// WithSigner replaces the default OAuth1 signer
func WithSigner(s Signer) ClientOption {
	return func(c *WooCommerceClient) { c.signer = s }
}

// WithHTTPClient replaces the HTTP client. Its Timeout is overwritten by the config timeout.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *WooCommerceClient) { c.httpClient = hc }
}

// WithMetrics records every call on m
func WithMetrics(m *telemetry.SyncMetrics) ClientOption {
	return func(c *WooCommerceClient) { c.metrics = m }
}

// WithLogger sets the client logger
func WithLogger(l *zap.Logger) ClientOption {
	return func(c *WooCommerceClient) { c.logger = l }
}

// NewWooCommerceClient creates a client with the given configuration
func NewWooCommerceClient(cfg *WooCommerceConfig, opts ...ClientOption) (*WooCommerceClient, error) {
	if cfg == nil {
		return nil, integration.ErrPlatformNotConfigured
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrPlatformNotConfigured, err)
	}

	c := &WooCommerceClient{
		config:  cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.signer == nil {
		c.signer = NewOAuth1Signer(cfg.ConsumerKey, cfg.ConsumerSecret)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	c.httpClient.Timeout = cfg.Timeout
	return c, nil
}

// Do sends one signed request. body, when non-nil, is sent as JSON; out,
// when non-nil, receives the decoded JSON response.
func (c *WooCommerceClient) Do(ctx context.Context, method, path string, query url.Values, body, out any) (*ResponseMeta, error) {
	ctx, span := telemetry.StartSpan(ctx, "woocommerce."+method+" "+path,
		telemetry.WithSpanKind(trace.SpanKindClient),
		telemetry.WithAttribute("http.method", method),
	)
	defer span.End()

	start := time.Now()
	meta, err := c.do(ctx, method, path, query, body, out)

	statusCode := 0
	if meta != nil {
		statusCode = meta.StatusCode
	}
	var reqErr *RemoteRequestError
	if errors.As(err, &reqErr) {
		statusCode = reqErr.StatusCode
	}
	c.metrics.RecordRemoteRequest(ctx, method, statusCode, time.Since(start))
	telemetry.SetAttributes(span, "http.status_code", statusCode)

	if err != nil {
		telemetry.RecordError(span, err)
		c.logger.Debug("Storefront request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status_code", statusCode),
			zap.Error(err),
		)
		return meta, err
	}
	return meta, nil
}

func (c *WooCommerceClient) do(ctx context.Context, method, path string, query url.Values, body, out any) (*ResponseMeta, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &RemoteRequestError{Method: method, Path: path, Err: err}
	}

	endpoint := c.config.Endpoint(path)
	headers, err := c.signer.Sign(method, endpoint, query)
	if err != nil {
		return nil, fmt.Errorf("woocommerce: failed to sign request: %w", err)
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("woocommerce: failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	target := endpoint
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("woocommerce: failed to create request: %w", err)
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &RemoteRequestError{Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, &RemoteRequestError{Method: method, Path: path, StatusCode: resp.StatusCode, Err: err}
	}

	meta := &ResponseMeta{
		StatusCode: resp.StatusCode,
		TotalPages: headerInt(resp.Header, "X-WP-TotalPages"),
		Total:      headerInt(resp.Header, "X-WP-Total"),
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		excerpt := string(raw)
		if len(excerpt) > maxErrorBodySize {
			excerpt = excerpt[:maxErrorBodySize]
		}
		return meta, &RemoteRequestError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: excerpt}
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return meta, fmt.Errorf("%w: %s %s: %v", integration.ErrPlatformInvalidResponse, method, path, err)
		}
	}
	return meta, nil
}

func headerInt(h http.Header, key string) int {
	n, err := strconv.Atoi(h.Get(key))
	if err != nil {
		return 0
	}
	return n
}
