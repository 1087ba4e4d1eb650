package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Database metrics
	DBConnectionsActive    prometheus.Gauge
	DBConnectionsIdle      prometheus.Gauge
	DBConnectionsWaitCount prometheus.Gauge

	// Sign-in metrics
	SigninCodesIssued  prometheus.Counter
	SigninTokensIssued prometheus.Counter
	SigninFailures     *prometheus.CounterVec
	RateLimitedTotal   prometheus.Counter

	// Mail metrics
	MailDeliveriesTotal *prometheus.CounterVec

	// Content metrics
	AccountsTotal prometheus.Gauge
	TitlesTotal   prometheus.Gauge
	ReviewsTotal  prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "critique_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "critique_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		DBConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "critique_db_connections_active",
				Help: "Number of active database connections",
			},
		),
		DBConnectionsIdle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "critique_db_connections_idle",
				Help: "Number of idle database connections",
			},
		),
		DBConnectionsWaitCount: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "critique_db_connections_wait_count",
				Help: "Total number of connections waited for",
			},
		),

		SigninCodesIssued: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "critique_signin_codes_issued_total",
				Help: "Total number of confirmation codes dispatched",
			},
		),
		SigninTokensIssued: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "critique_signin_tokens_issued_total",
				Help: "Total number of access tokens issued",
			},
		),
		SigninFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "critique_signin_failures_total",
				Help: "Total number of failed sign-in attempts",
			},
			[]string{"stage"},
		),
		RateLimitedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "critique_rate_limited_total",
				Help: "Total number of requests rejected by the rate limiter",
			},
		),

		MailDeliveriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "critique_mail_deliveries_total",
				Help: "Total number of outbound mail deliveries",
			},
			[]string{"status"},
		),

		AccountsTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "critique_accounts_total",
				Help: "Total number of registered accounts",
			},
		),
		TitlesTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "critique_titles_total",
				Help: "Total number of titles in the catalog",
			},
		),
		ReviewsTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "critique_reviews_total",
				Help: "Total number of reviews",
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.DBConnectionsActive,
		m.DBConnectionsIdle,
		m.DBConnectionsWaitCount,
		m.SigninCodesIssued,
		m.SigninTokensIssued,
		m.SigninFailures,
		m.RateLimitedTotal,
		m.MailDeliveriesTotal,
		m.AccountsTotal,
		m.TitlesTotal,
		m.ReviewsTotal,
	)

	return m
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// routeLabel prefers the mux route template over the raw URL path so that
// /titles/17 and /titles/18 land in one series.
func routeLabel(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return r.URL.Path
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics
func HTTPMetricsMiddleware(metrics *Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			path := routeLabel(r)
			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rw.statusCode)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		})
	}
}

// RegisterMetricsEndpoint registers the /metrics endpoint
func RegisterMetricsEndpoint(mux *http.ServeMux, registry *prometheus.Registry) {
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}
