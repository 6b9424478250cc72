// Package observability exposes Prometheus metrics for HTTP traffic and the
// pricing engine.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/restopro/restopro/internal/pricing"
)

// Metrics collects Prometheus metrics for the application.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	quotesTotal     prometheus.Counter
	quotedPlatforms prometheus.Counter
	settlements     *prometheus.CounterVec
	invalidInput    *prometheus.CounterVec
}

// NewMetrics initialises the registry with HTTP, runtime and pricing metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "restopro_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "restopro_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	quotes := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "restopro_price_quotes_total",
		Help: "Menu price quotes computed.",
	})
	quotedPlatforms := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "restopro_price_quote_platforms_total",
		Help: "Platform prices produced across all quotes.",
	})
	settlements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "restopro_settlements_total",
		Help: "Order settlements computed per platform.",
	}, []string{"platform"})
	invalid := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "restopro_invalid_input_total",
		Help: "Pricing engine requests rejected as invalid input.",
	}, []string{"operation"})
	registry.MustRegister(
		requests, duration, quotes, quotedPlatforms, settlements, invalid,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		quotesTotal:     quotes,
		quotedPlatforms: quotedPlatforms,
		settlements:     settlements,
		invalidInput:    invalid,
	}
}

// Handler returns the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records metrics for every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// Registerer exposes the registry for additional collectors.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

// QuoteComputed implements pricing.Observer.
func (m *Metrics) QuoteComputed(platforms int) {
	if m == nil {
		return
	}
	m.quotesTotal.Inc()
	m.quotedPlatforms.Add(float64(platforms))
}

// SettlementComputed implements pricing.Observer.
func (m *Metrics) SettlementComputed(platform pricing.Platform) {
	if m == nil {
		return
	}
	m.settlements.WithLabelValues(string(platform)).Inc()
}

// InputRejected implements pricing.Observer.
func (m *Metrics) InputRejected(operation string) {
	if m == nil {
		return
	}
	m.invalidInput.WithLabelValues(operation).Inc()
}

var _ pricing.Observer = (*Metrics)(nil)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
