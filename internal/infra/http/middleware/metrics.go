package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/xavierca1/ligue-leads/internal/classifier"
	"github.com/xavierca1/ligue-leads/internal/entity"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	activeConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_active_connections",
			Help: "Number of active HTTP connections",
		},
	)

	leadsUpserted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leads_upserted_total",
			Help: "Total number of lead upserts by outcome",
		},
		[]string{"status"},
	)

	leadsClassified = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leads_classified_total",
			Help: "Total number of classified submissions",
		},
		[]string{"category", "source"},
	)

	providerFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "classifier_provider_failures_total",
			Help: "Total number of failed classifier provider attempts",
		},
		[]string{"provider", "kind"},
	)

	notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Total number of notification attempts by channel and outcome",
		},
		[]string{"channel", "outcome"},
	)

	leadsByCategory = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "leads_by_category",
			Help: "Number of stored leads per category",
		},
		[]string{"category"},
	)
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		activeConnections.Inc()
		defer activeConnections.Dec()

		rw := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(rw.statusCode)
		path := routePattern(r)

		httpRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// routePattern keeps path labels bounded: /internal/leads/{email} instead of
// one series per address.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// DomainMetrics records lead pipeline counters on the default registry.
type DomainMetrics struct{}

func (DomainMetrics) LeadUpserted(status entity.UpsertStatus) {
	leadsUpserted.WithLabelValues(string(status)).Inc()
}

func (DomainMetrics) LeadClassified(category entity.Category, source string) {
	leadsClassified.WithLabelValues(string(category), source).Inc()
}

func (DomainMetrics) Notification(channel, outcome string) {
	notifications.WithLabelValues(channel, outcome).Inc()
}

// RecordProviderFailure matches classifier.FailureHook.
func RecordProviderFailure(provider string, kind classifier.ErrorKind) {
	providerFailures.WithLabelValues(provider, string(kind)).Inc()
}

func SetLeadsByCategory(counts map[entity.Category]int64) {
	for _, c := range entity.Categories {
		leadsByCategory.WithLabelValues(string(c)).Set(float64(counts[c]))
	}
}
