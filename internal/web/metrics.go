package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics are the server's Prometheus collectors, registered on a private
// registry so tests can create many servers.
type Metrics struct {
	registry    *prometheus.Registry
	requests    *prometheus.CounterVec
	generations *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	sessions    prometheus.GaugeFunc
}

// NewMetrics creates and registers the collectors. activeSessions is
// sampled on every scrape.
func NewMetrics(activeSessions func() int) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qadocs",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"method", "route", "code"}),
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qadocs",
			Name:      "generations_total",
			Help:      "Pipeline runs by document kind and outcome stage.",
		}, []string{"kind", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "qadocs",
			Name:      "generation_duration_seconds",
			Help:      "Duration of successful pipeline runs.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300},
		}, []string{"kind"}),
		sessions: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "qadocs",
			Name:      "sessions_active",
			Help:      "Sessions currently held in memory.",
		}, func() float64 { return float64(activeSessions()) }),
	}
	m.registry.MustRegister(m.requests, m.generations, m.duration, m.sessions)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Generation records one pipeline outcome. outcome is "ok" or the failing
// stage.
func (m *Metrics) Generation(kind, outcome string, d time.Duration) {
	m.generations.WithLabelValues(kind, outcome).Inc()
	if outcome == "ok" {
		m.duration.WithLabelValues(kind).Observe(d.Seconds())
	}
}

// Middleware counts requests by their chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
