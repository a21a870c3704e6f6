package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the bridge
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// SSO login metrics
	LoginRequestsTotal      *prometheus.CounterVec
	ValidationFailuresTotal *prometheus.CounterVec
	ReplayRejectionsTotal   prometheus.Counter

	// Provisioning metrics
	UsersProvisionedTotal prometheus.Counter
	ProvisionConflicts    prometheus.Counter

	// Database metrics
	DBConnectionsActive prometheus.Gauge
	DBConnectionsIdle   prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hubsso_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hubsso_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		LoginRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hubsso_login_requests_total",
				Help: "Total number of login URL requests, by outcome",
			},
			[]string{"outcome"},
		),
		ValidationFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hubsso_validation_failures_total",
				Help: "Total number of signature validation failures, by reason",
			},
			[]string{"reason"},
		),
		ReplayRejectionsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "hubsso_replay_rejections_total",
				Help: "Total number of assertions rejected as already used",
			},
		),

		UsersProvisionedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "hubsso_users_provisioned_total",
				Help: "Total number of users created on first SSO login",
			},
		),
		ProvisionConflicts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "hubsso_provision_conflicts_total",
				Help: "Total number of user creation races resolved by re-read",
			},
		),

		DBConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "hubsso_db_connections_active",
				Help: "Number of active database connections",
			},
		),
		DBConnectionsIdle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "hubsso_db_connections_idle",
				Help: "Number of idle database connections",
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.LoginRequestsTotal,
		m.ValidationFailuresTotal,
		m.ReplayRejectionsTotal,
		m.UsersProvisionedTotal,
		m.ProvisionConflicts,
		m.DBConnectionsActive,
		m.DBConnectionsIdle,
	)

	return m
}

// Handler returns the Prometheus metrics HTTP handler for a registry
func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps an http.Handler with request counting and timing
func (m *Metrics) InstrumentHandler(path string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		m.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rw.status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// statusRecorder captures the response status code
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
