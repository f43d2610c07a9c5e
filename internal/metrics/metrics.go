// Package metrics exposes the prometheus collectors of the simulator.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forked_http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "route", "status"},
	)
	HTTPDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "forked_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	RateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "forked_http_rate_limited_total",
			Help: "Requests rejected by the per-IP rate limiter",
		},
	)

	// Provider
	ProviderCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forked_provider_calls_total",
			Help: "Provider calls by provider, model and result",
		},
		[]string{"provider", "model", "result"}, // result: success|error
	)
	ProviderDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "forked_provider_call_duration_seconds",
			Help:    "Duration of single provider calls",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 9), // 0.25s..64s
		},
		[]string{"provider"},
	)
	ProviderRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forked_provider_retries_total",
			Help: "Provider attempts beyond the first",
		},
		[]string{"provider"},
	)

	// Simulation outcomes
	Simulations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forked_simulations_total",
			Help: "Simulations by outcome",
		},
		[]string{"outcome"}, // outcome: generated|fallback|failed
	)
	ShortOutputs = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "forked_short_outputs_total",
			Help: "Provider answers rejected for being below the minimum length",
		},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequests,
		HTTPDurationSeconds,
		RateLimited,

		ProviderCalls,
		ProviderDurationSeconds,
		ProviderRetries,

		Simulations,
		ShortOutputs,
	)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// NewServer returns the metrics listener. It is separate from the API listener.
func NewServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// HTTP
func ObserveHTTPRequest(method, route, status string, d time.Duration) {
	HTTPRequests.WithLabelValues(method, route, status).Inc()
	HTTPDurationSeconds.WithLabelValues(method, route).Observe(d.Seconds())
}

func IncRateLimited() {
	RateLimited.Inc()
}

// Provider
func ObserveProviderCall(provider, model, result string, d time.Duration) {
	ProviderCalls.WithLabelValues(provider, model, result).Inc()
	ProviderDurationSeconds.WithLabelValues(provider).Observe(d.Seconds())
}

func IncProviderRetry(provider string) {
	ProviderRetries.WithLabelValues(provider).Inc()
}

// Simulations
func IncSimulation(outcome string) {
	Simulations.WithLabelValues(outcome).Inc()
}

func IncShortOutput() {
	ShortOutputs.Inc()
}
