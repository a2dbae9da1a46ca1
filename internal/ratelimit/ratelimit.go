// Package ratelimit throttles costly per-user submissions such as KYC videos
// and registrations, which each cost a paid gateway call.
package ratelimit

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"esign/internal/platform/metrics"
	"esign/pkg/platform/dialog"
	"esign/pkg/platform/httputil"
	"esign/pkg/requestcontext"
)

// Result describes one limiter decision.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter int // seconds; zero when allowed
}

// Store records hits and decides whether another fits.
type Store interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (Result, error)
}

// Middleware limits each authenticated user to a number of requests per window.
type Middleware struct {
	store    Store
	limit    int
	window   time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics
	disabled bool
}

type Option func(*Middleware)

func WithMetrics(m *metrics.Metrics) Option {
	return func(mw *Middleware) {
		mw.metrics = m
	}
}

// WithDisabled turns the limiter into a pass-through.
func WithDisabled(disabled bool) Option {
	return func(mw *Middleware) {
		mw.disabled = disabled
	}
}

func New(store Store, limit int, window time.Duration, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{
		store:  store,
		limit:  limit,
		window: window,
		logger: logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.disabled || m.limit <= 0 {
		m.disabled = true
		logger.Info("submission rate limiting disabled")
	}
	return m
}

var tooManyRequestsDialog = dialog.Dialog{
	Type:        dialog.TypeWarning,
	Title:       "Terlalu Banyak Percobaan",
	Description: "Anda sudah beberapa kali mengirim verifikasi. Silakan coba lagi nanti.",
	ConfirmText: "Mengerti",
}

type exceededResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after"`
}

// LimitUser returns middleware counting requests per session user under class.
// Requests without a session pass through; the session middleware rejects them.
// Store failures fail open.
func (m *Middleware) LimitUser(class string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m.disabled {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			session := requestcontext.Identity(ctx)
			if session.UserID.IsNil() {
				next.ServeHTTP(w, r)
				return
			}

			result, err := m.store.Allow(ctx, class+":"+session.UserID.String(), m.limit, m.window)
			if err != nil {
				m.logger.ErrorContext(ctx, "failed to check submission rate limit",
					"error", err,
					"class", class,
					"user_id", session.UserID.String(),
				)
				next.ServeHTTP(w, r)
				return
			}

			addRateLimitHeaders(w, result)
			if !result.Allowed {
				if m.metrics != nil {
					m.metrics.IncRateLimited(class)
				}
				m.logger.WarnContext(ctx, "submission rate limit exceeded",
					"class", class,
					"user_id", session.UserID.String(),
					"retry_after", result.RetryAfter,
				)
				w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
				dialog.Attach(w, tooManyRequestsDialog)
				httputil.WriteJSON(w, http.StatusTooManyRequests, exceededResponse{
					Error:      "rate_limit_exceeded",
					Message:    "Too many submissions. Please try again later.",
					RetryAfter: result.RetryAfter,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func addRateLimitHeaders(w http.ResponseWriter, result Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

// retryAfter rounds up so clients never retry a moment too early.
func retryAfter(now, resetAt time.Time) int {
	secs := int(math.Ceil(resetAt.Sub(now).Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}
