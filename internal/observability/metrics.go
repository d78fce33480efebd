// Package observability exposes Prometheus metrics for the HTTP API and the
// point-of-sale domain.
package observability

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"medstore/m/domain"
)

// Metrics collects application metrics in its own registry.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	salesTotal      *prometheus.CounterVec
	adjustments     *prometheus.CounterVec
	stockChanges    prometheus.Counter
	lowStock        prometheus.Counter
}

// NewMetrics initialises the registry and collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "medstore_http_requests_total",
			Help: "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "medstore_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		salesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "medstore_sales_total",
			Help: "Sales by lifecycle event.",
		}, []string{"event"}),
		adjustments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "medstore_stock_adjustments_total",
			Help: "Manual stock movements by type.",
		}, []string{"type"}),
		stockChanges: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "medstore_stock_changes_total",
			Help: "Medicines whose stock changed in a committed transaction.",
		}),
		lowStock: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "medstore_low_stock_events_total",
			Help: "Committed stock changes that left a medicine at or below its minimum.",
		}),
	}
	registry.MustRegister(m.requestsTotal, m.requestDuration, m.salesTotal, m.adjustments, m.stockChanges, m.lowStock)
	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return m
}

// Handler serves the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records count and latency per route pattern.
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

func (m *Metrics) SaleCreated() {
	if m != nil {
		m.salesTotal.WithLabelValues("created").Inc()
	}
}

func (m *Metrics) SaleCancelled() {
	if m != nil {
		m.salesTotal.WithLabelValues("cancelled").Inc()
	}
}

func (m *Metrics) StockAdjusted(t domain.MovementType) {
	if m != nil {
		m.adjustments.WithLabelValues(string(t)).Inc()
	}
}

// StockChanged counts committed stock changes and low-stock outcomes.
func (m *Metrics) StockChanged(_ context.Context, medicines []domain.Medicine) {
	if m == nil {
		return
	}
	m.stockChanges.Add(float64(len(medicines)))
	for _, med := range medicines {
		if med.Stock <= med.MinStock {
			m.lowStock.Inc()
		}
	}
}

// Registerer exposes the registry for extra collectors.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

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
