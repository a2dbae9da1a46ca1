// Package peruri is the authenticated HTTP client for the Peruri digital
// signature gateway. It normalizes transport failures into typed errors and
// passes provider result codes through untouched.
package peruri

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"esign/internal/platform/metrics"
	"esign/pkg/platform/circuit"
)

const (
	tokenPath        = "/jwtSandbox/1.0/getJsonWebToken/v1"
	tokenEndpoint    = "getJsonWebToken"
	maxResponseBytes = 10 << 20
)

// HTTPDoer is the minimal interface needed from an HTTP client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config holds gateway credentials.
type Config struct {
	BaseURL      string
	APIKey       string
	SystemID     string
	TokenTTL     time.Duration // fallback lifetime when the token carries none
	TokenTimeout time.Duration
}

// Client talks to the Peruri gateway.
type Client struct {
	cfg     Config
	http    HTTPDoer
	cache   TokenCache
	group   singleflight.Group
	breaker *circuit.Breaker
	metrics *metrics.Metrics
	tracer  trace.Tracer
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures the Client.
type Option func(*Client)

func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) { c.http = doer }
}

// WithTokenCache replaces the default in-process cache, e.g. with Redis.
func WithTokenCache(cache TokenCache) Option {
	return func(c *Client) { c.cache = cache }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

func WithTracer(t trace.Tracer) Option {
	return func(c *Client) { c.tracer = t }
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(c *Client) { c.breaker = b }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// New creates a gateway client.
func New(cfg Config, opts ...Option) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 30 * time.Minute
	}
	if cfg.TokenTimeout <= 0 {
		cfg.TokenTimeout = 10 * time.Second
	}

	c := &Client{
		cfg:    cfg,
		http:   &http.Client{},
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cache == nil {
		c.cache = NewLRUTokenCache(16, 24*time.Hour)
	}
	if c.breaker == nil {
		c.breaker = circuit.New("peruri")
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer("esign/peruri")
	}
	return c
}

// Health reports the breaker state; it is wired into the readiness probe.
func (c *Client) Health(context.Context) error {
	return c.breaker.Check()
}

// FetchAuthToken returns a usable JWT for systemID, serving it from the cache
// while it is still valid. Concurrent refreshes collapse into one request.
func (c *Client) FetchAuthToken(ctx context.Context, systemID string) (Token, error) {
	key := tokenCacheKey(systemID)

	if tok, ok, err := c.cache.Get(ctx, key); err != nil {
		c.logger.WarnContext(ctx, "peruri token cache read failed", "error", err)
	} else if ok && c.now().Before(tok.ExpiresAt.Add(-tokenRefreshSkew)) {
		return tok, nil
	}

	ch := c.group.DoChan(key, func() (any, error) {
		// Shared by every waiter, so it must not die with the first caller.
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.TokenTimeout)
		defer cancel()

		tok, err := c.requestToken(fetchCtx, systemID)
		if err != nil {
			return Token{}, err
		}
		if ttl := tok.ExpiresAt.Sub(c.now()) - tokenRefreshSkew; ttl > 0 {
			if err := c.cache.Set(fetchCtx, key, tok, ttl); err != nil {
				c.logger.WarnContext(ctx, "peruri token cache write failed", "error", err)
			}
		}
		return tok, nil
	})

	select {
	case <-ctx.Done():
		return Token{}, transportError(ctx, tokenEndpoint, c.cfg.TokenTimeout, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return Token{}, res.Err
		}
		return res.Val.(Token), nil
	}
}

func (c *Client) requestToken(ctx context.Context, systemID string) (Token, error) {
	body, err := json.Marshal(request{Param: map[string]string{"systemId": systemID}})
	if err != nil {
		return Token{}, fmt.Errorf("marshal token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+tokenPath, bytes.NewReader(body))
	if err != nil {
		return Token{}, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-Gateway-APIKey", c.cfg.APIKey)

	status, raw, err := c.do(ctx, req, tokenEndpoint, c.cfg.TokenTimeout)
	if err != nil {
		c.observeToken("error")
		return Token{}, err
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		c.observeToken("rejected")
		return Token{}, &AuthTokenError{StatusCode: status}
	}
	if status < 200 || status > 299 {
		c.observeToken("error")
		return Token{}, &GatewayError{Endpoint: tokenEndpoint, StatusCode: status, Message: "unexpected status"}
	}

	env, err := decodeEnvelope(raw)
	if err != nil {
		c.observeToken("error")
		return Token{}, &GatewayError{Endpoint: tokenEndpoint, StatusCode: status, Message: "malformed response", Err: err}
	}
	if env.ResultCode != "0" {
		c.observeToken("rejected")
		return Token{}, &AuthTokenError{StatusCode: status, ResultCode: string(env.ResultCode), Description: env.ResultDesc}
	}

	var data tokenData
	if err := json.Unmarshal(env.Data, &data); err != nil || data.JWT == "" {
		c.observeToken("error")
		return Token{}, &GatewayError{Endpoint: tokenEndpoint, StatusCode: status, Message: "response carries no token", Err: err}
	}

	c.observeToken("ok")
	return Token{
		JWT:       data.JWT,
		ExpiresAt: tokenExpiry(data.JWT, data.ExpiredDate, c.now(), c.cfg.TokenTTL),
	}, nil
}

// Call performs an authenticated request against endpoint. timeout bounds the
// whole call including a token refresh and must be positive. Result codes are
// returned verbatim; only transport failures become errors.
func (c *Client) Call(ctx context.Context, endpoint Endpoint, payload any, timeout time.Duration) (resp *Response, err error) {
	if timeout <= 0 {
		return nil, ErrTimeoutRequired
	}
	if !endpoint.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEndpoint, endpoint)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ctx, span := c.tracer.Start(ctx, "peruri.call", trace.WithAttributes(
		attribute.String("peruri.endpoint", endpoint.String()),
	))
	start := c.now()
	defer func() {
		c.finish(span, endpoint, start, resp, err)
	}()

	tok, err := c.FetchAuthToken(ctx, c.cfg.SystemID)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			// The call's budget ran out while waiting on the token.
			return nil, &GatewayTimeoutError{Endpoint: endpoint.String(), Timeout: timeout, Err: err}
		}
		return nil, err
	}

	body, err := json.Marshal(request{Param: payload})
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", endpoint, err)
	}

	url := fmt.Sprintf("%s/digitalSignatureFullJwtSandbox/1.0/%s/v1", c.cfg.BaseURL, endpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+tok.JWT)
	req.Header.Set("x-Gateway-APIKey", c.cfg.APIKey)

	status, raw, err := c.do(ctx, req, endpoint.String(), timeout)
	if err != nil {
		return nil, err
	}

	if status == http.StatusUnauthorized {
		// The next call fetches a fresh token; this one is not replayed.
		if derr := c.cache.Delete(context.WithoutCancel(ctx), tokenCacheKey(c.cfg.SystemID)); derr != nil {
			c.logger.WarnContext(ctx, "peruri token invalidation failed", "error", derr)
		}
	}
	if status < 200 || status > 299 {
		return nil, &GatewayError{Endpoint: endpoint.String(), StatusCode: status, Message: "unexpected status"}
	}

	env, err := decodeEnvelope(raw)
	if err != nil {
		return nil, &GatewayError{Endpoint: endpoint.String(), StatusCode: status, Message: "malformed response", Err: err}
	}

	return &Response{
		ResultCode: string(env.ResultCode),
		ResultDesc: env.ResultDesc,
		Data:       env.Data,
	}, nil
}

// do executes req and reads the body, translating transport failures.
func (c *Client) do(ctx context.Context, req *http.Request, endpoint string, timeout time.Duration) (int, []byte, error) {
	res, err := c.http.Do(req)
	if err != nil {
		return 0, nil, transportError(ctx, endpoint, timeout, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return 0, nil, transportError(ctx, endpoint, timeout, err)
	}
	return res.StatusCode, raw, nil
}

func transportError(ctx context.Context, endpoint string, timeout time.Duration, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		return &GatewayTimeoutError{Endpoint: endpoint, Timeout: timeout, Err: err}
	}
	return &GatewayError{Endpoint: endpoint, Message: "request failed", Err: err}
}

func decodeEnvelope(raw []byte) (*envelope, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	if env.ResultCode == "" {
		return nil, errors.New("missing resultCode")
	}
	return &env, nil
}

// finish records the call outcome on the span, the metrics and the breaker.
func (c *Client) finish(span trace.Span, endpoint Endpoint, start time.Time, resp *Response, err error) {
	outcome := "ok"
	switch {
	case err == nil:
		span.SetAttributes(attribute.String("peruri.result_code", resp.ResultCode))
	case errors.Is(err, ErrTimeoutRequired), errors.Is(err, ErrUnknownEndpoint):
		outcome = "invalid"
	default:
		var (
			timeoutErr *GatewayTimeoutError
			authErr    *AuthTokenError
		)
		switch {
		case errors.As(err, &timeoutErr):
			outcome = "timeout"
		case errors.As(err, &authErr):
			outcome = "auth_rejected"
		default:
			outcome = "error"
		}
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()

	if c.metrics != nil {
		c.metrics.ObservePeruriCall(endpoint.String(), outcome, c.now().Sub(start).Seconds())
	}

	switch outcome {
	case "ok":
		c.breaker.RecordSuccess()
	case "invalid":
	default:
		c.breaker.RecordFailure()
	}
}

func (c *Client) observeToken(outcome string) {
	if c.metrics != nil {
		c.metrics.IncTokenRefresh(outcome)
	}
}
