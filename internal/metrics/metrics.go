// Package metrics exposes Prometheus counters for estimate runs and API
// latency.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Run outcomes.
const (
	RunComplete = "complete"
	RunEmpty    = "empty"
	RunFatal    = "fatal"
)

// Seller outcomes.
const (
	SellerEstimated  = "estimated"
	SellerIncomplete = "incomplete"
	SellerFailed     = "failed"
)

// Metrics provides observability for estimate runs.
type Metrics struct {
	// Runs by outcome
	Runs *prometheus.CounterVec

	// Sellers by outcome
	Sellers *prometheus.CounterVec

	// OxSirene API round trips by operation and status
	APIRequestDuration *prometheus.HistogramVec
}

// New registers the metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Runs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "reseller_estimate_runs_total",
			Help: "Total estimate runs by outcome",
		}, []string{"outcome"}), // outcome: "complete", "empty", "fatal"

		Sellers: f.NewCounterVec(prometheus.CounterOpts{
			Name: "reseller_estimate_sellers_total",
			Help: "Total sellers processed by outcome",
		}, []string{"outcome"}), // outcome: "estimated", "incomplete", "failed"

		APIRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "reseller_api_request_duration_seconds",
			Help:    "Duration of OxSirene API requests by operation and status",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"operation", "status"}),
	}
}

// RunFinished records a run outcome.
func (m *Metrics) RunFinished(outcome string) {
	if m != nil {
		m.Runs.WithLabelValues(outcome).Inc()
	}
}

// SellerFinished records a seller outcome.
func (m *Metrics) SellerFinished(outcome string) {
	if m != nil {
		m.Sellers.WithLabelValues(outcome).Inc()
	}
}

// ObserveRequest records an API round trip. status 0 means no response.
func (m *Metrics) ObserveRequest(operation string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.APIRequestDuration.WithLabelValues(operation, label).Observe(elapsed.Seconds())
}
