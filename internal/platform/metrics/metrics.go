package metrics

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the application's Prometheus metrics.
type Metrics struct {
	PeruriRequests      *prometheus.CounterVec
	PeruriLatency       *prometheus.HistogramVec
	PeruriTokenRefresh  *prometheus.CounterVec
	KYCOutcomes         *prometheus.CounterVec
	CertificateStatuses *prometheus.CounterVec
	EndpointLatency     *prometheus.HistogramVec
	RateLimited         *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics. Call once per process.
func New() *Metrics {
	return &Metrics{
		PeruriRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "esign_peruri_requests_total",
			Help: "Peruri gateway calls by endpoint and outcome",
		}, []string{"endpoint", "outcome"}),
		PeruriLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "esign_peruri_request_duration_seconds",
			Help:    "Latency of Peruri gateway calls",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15, 30},
		}, []string{"endpoint"}),
		PeruriTokenRefresh: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "esign_peruri_token_refresh_total",
			Help: "Peruri JWT fetches by outcome",
		}, []string{"outcome"}),
		KYCOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "esign_kyc_outcomes_total",
			Help: "KYC submissions by action and outcome",
		}, []string{"action", "outcome"}),
		CertificateStatuses: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "esign_certificate_status_total",
			Help: "Certificate statuses recorded after a provider check",
		}, []string{"status"}),
		EndpointLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "esign_endpoint_latency_seconds",
			Help:    "Latency of HTTP endpoints in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		RateLimited: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "esign_rate_limited_total",
			Help: "Requests rejected by the per-user submission limiter",
		}, []string{"class"}),
	}
}

func (m *Metrics) ObservePeruriCall(endpoint, outcome string, durationSeconds float64) {
	m.PeruriRequests.WithLabelValues(endpoint, outcome).Inc()
	m.PeruriLatency.WithLabelValues(endpoint).Observe(durationSeconds)
}

func (m *Metrics) IncTokenRefresh(outcome string) {
	m.PeruriTokenRefresh.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncKYCOutcome(action, outcome string) {
	m.KYCOutcomes.WithLabelValues(action, outcome).Inc()
}

func (m *Metrics) IncCertificateStatus(status string) {
	m.CertificateStatuses.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveEndpointLatency(endpoint string, durationSeconds float64) {
	m.EndpointLatency.WithLabelValues(endpoint).Observe(durationSeconds)
}

func (m *Metrics) IncRateLimited(class string) {
	m.RateLimited.WithLabelValues(class).Inc()
}

// LatencyMiddleware records handler latency labelled by the chi route pattern.
// A nil receiver returns next unchanged.
func (m *Metrics) LatencyMiddleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)

		pattern := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			pattern = rctx.RoutePattern()
		}
		m.ObserveEndpointLatency(pattern, time.Since(start).Seconds())
	})
}
