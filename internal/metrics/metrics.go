// Package metrics exposes Prometheus collectors for valuations, spend
// simulations and the HTTP API.
package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

// Valuation outcome labels.
const (
	StatusOK      = "ok"
	StatusInvalid = "invalid"
)

// Metrics groups every collector the service exports.
type Metrics struct {
	ValuationsTotal      *prometheus.CounterVec
	ValuationDuration    prometheus.Histogram
	SpendSimulations     prometheus.Counter
	DenominationLossSum  prometheus.Counter
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPInFlightRequests prometheus.Gauge
}

// New registers and returns the collectors. A nil registerer uses the default.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		ValuationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "valuations_total",
			Help:      "Count of valuations by outcome.",
		}, []string{"status"}),
		ValuationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "valuation_duration_ms",
			Help:      "Valuation latency in milliseconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		SpendSimulations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "spend_simulations_total",
			Help:      "Count of multi-denomination spend simulations.",
		}),
		DenominationLossSum: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "spend_denomination_loss_dollars_total",
			Help:      "Total face value lost to overpayment across spend simulations.",
		}),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests handled by the server.",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_ms",
			Help:      "HTTP request latency distribution in milliseconds.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		}, []string{"method", "route"}),
		HTTPInFlightRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_in_flight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
	}

	mustRegister(reg, m.ValuationsTotal, func(c prometheus.Collector) { m.ValuationsTotal = c.(*prometheus.CounterVec) })
	mustRegister(reg, m.ValuationDuration, func(c prometheus.Collector) { m.ValuationDuration = c.(prometheus.Histogram) })
	mustRegister(reg, m.SpendSimulations, func(c prometheus.Collector) { m.SpendSimulations = c.(prometheus.Counter) })
	mustRegister(reg, m.DenominationLossSum, func(c prometheus.Collector) { m.DenominationLossSum = c.(prometheus.Counter) })
	mustRegister(reg, m.HTTPRequestsTotal, func(c prometheus.Collector) { m.HTTPRequestsTotal = c.(*prometheus.CounterVec) })
	mustRegister(reg, m.HTTPRequestDuration, func(c prometheus.Collector) { m.HTTPRequestDuration = c.(*prometheus.HistogramVec) })
	mustRegister(reg, m.HTTPInFlightRequests, func(c prometheus.Collector) { m.HTTPInFlightRequests = c.(prometheus.Gauge) })
	return m
}

// ObserveValuation records one valuation attempt.
func (m *Metrics) ObserveValuation(d time.Duration, err error) {
	if m == nil {
		return
	}
	status := StatusOK
	if err != nil {
		status = StatusInvalid
	}
	m.ValuationsTotal.WithLabelValues(status).Inc()
	m.ValuationDuration.Observe(DurationMillis(d))
}

// ObserveSpend records one spend simulation and the loss it produced.
func (m *Metrics) ObserveSpend(loss float64) {
	if m == nil {
		return
	}
	m.SpendSimulations.Inc()
	if loss > 0 {
		m.DenominationLossSum.Add(loss)
	}
}

// DurationMillis converts a duration to milliseconds for metric observation.
func DurationMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// StatusRecorder wraps ResponseWriter to capture the status code.
type StatusRecorder struct {
	http.ResponseWriter
	status int
}

// WriteHeader stores the status code before delegating.
func (sr *StatusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// Status returns the response status code.
func (sr *StatusRecorder) Status() int { return sr.status }

// Middleware counts and times every request by its chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &StatusRecorder{ResponseWriter: w, status: http.StatusOK}
		m.HTTPInFlightRequests.Inc()
		start := time.Now()
		next.ServeHTTP(recorder, r)
		m.HTTPInFlightRequests.Dec()

		route := ""
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}
		if route == "" {
			route = "unknown"
		}
		m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(recorder.Status())).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(DurationMillis(time.Since(start)))
	})
}

func mustRegister(reg prometheus.Registerer, c prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			reuse(are.ExistingCollector)
			return
		}
		panic(fmt.Errorf("register collector: %w", err))
	}
}
