package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Role mutation metrics
	RoleMutationsTotal   *prometheus.CounterVec
	SidMutationsTotal    *prometheus.CounterVec
	RoleMutationDuration *prometheus.HistogramVec

	// Cache metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	// Crumb metrics
	CrumbsIssuedTotal  prometheus.Counter
	CrumbsSweptTotal   prometheus.Counter
	CrumbRejectedTotal prometheus.Counter

	// Inventory metrics
	InventoryReloadsTotal *prometheus.CounterVec

	// Database metrics
	DBConnectionsActive prometheus.Gauge
	DBConnectionsIdle   prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "folderguard_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "folderguard_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		RoleMutationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "folderguard_role_mutations_total",
				Help: "Total number of role create/delete operations",
			},
			[]string{"operation", "role_type", "status"},
		),
		SidMutationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "folderguard_sid_mutations_total",
				Help: "Total number of sid bind/unbind operations",
			},
			[]string{"operation", "role_type", "status"},
		),
		RoleMutationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "folderguard_role_mutation_duration_seconds",
				Help:    "Role mutation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "role_type"},
		),

		CacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "folderguard_cache_hits_total",
				Help: "Total number of cache hits",
			},
			[]string{"cache_type", "key_type"},
		),
		CacheMissesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "folderguard_cache_misses_total",
				Help: "Total number of cache misses",
			},
			[]string{"cache_type", "key_type"},
		),

		CrumbsIssuedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "folderguard_crumbs_issued_total",
				Help: "Total number of anti-forgery crumbs issued",
			},
		),
		CrumbsSweptTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "folderguard_crumbs_swept_total",
				Help: "Total number of expired crumbs removed by the sweeper",
			},
		),
		CrumbRejectedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "folderguard_crumb_rejected_total",
				Help: "Total number of requests rejected for a missing or invalid crumb",
			},
		),

		InventoryReloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "folderguard_inventory_reloads_total",
				Help: "Total number of inventory reloads",
			},
			[]string{"status"},
		),

		DBConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "folderguard_db_connections_active",
				Help: "Number of active database connections",
			},
		),
		DBConnectionsIdle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "folderguard_db_connections_idle",
				Help: "Number of idle database connections",
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.RoleMutationsTotal,
		m.SidMutationsTotal,
		m.RoleMutationDuration,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.CrumbsIssuedTotal,
		m.CrumbsSweptTotal,
		m.CrumbRejectedTotal,
		m.InventoryReloadsTotal,
		m.DBConnectionsActive,
		m.DBConnectionsIdle,
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

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rw, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(rw.statusCode)
			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration)
		})
	}
}

// MetricsHandler returns the /metrics handler for the registry
func MetricsHandler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
