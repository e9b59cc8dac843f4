// Package metrics exposes Prometheus collectors for sweeps, verdicts and the API.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the collectors on a dedicated registry.
type Metrics struct {
	Registry          *prometheus.Registry
	AnalysesTotal     *prometheus.CounterVec
	VerdictsTotal     *prometheus.CounterVec
	ArbitrageTotal    *prometheus.CounterVec
	AlertsTotal       *prometheus.CounterVec
	SweepDuration     prometheus.Histogram
	LastSweepItems    prometheus.Gauge
	HTTPRequestsTotal *prometheus.CounterVec
	HTTPDuration      *prometheus.HistogramVec
}

// New constructs and registers all collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	analyses := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "merchant_analyses_total",
			Help: "Snapshot analyses by result (ok, error).",
		},
		[]string{"result"},
	)
	verdicts := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "merchant_verdicts_total",
			Help: "Per-strategy decisions produced by the verdict engine.",
		},
		[]string{"strategy", "decision"},
	)
	arbitrage := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "merchant_arbitrage_results_total",
			Help: "Cross-market passes by outcome.",
		},
		[]string{"outcome"},
	)
	alerts := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "merchant_alerts_total",
			Help: "Alerts by kind and delivery status.",
		},
		[]string{"kind", "status"},
	)
	sweepDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "merchant_sweep_duration_seconds",
			Help:    "Wall time of a full sweep.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
	)
	lastSweepItems := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "merchant_last_sweep_items",
			Help: "Snapshots analysed by the most recent sweep.",
		},
	)
	httpRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "merchant_http_requests_total",
			Help: "API requests by route and status code.",
		},
		[]string{"route", "code"},
	)
	httpDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "merchant_http_request_duration_seconds",
			Help:    "API request latency by route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	registry.MustRegister(analyses, verdicts, arbitrage, alerts, sweepDuration, lastSweepItems, httpRequests, httpDuration)

	return &Metrics{
		Registry:          registry,
		AnalysesTotal:     analyses,
		VerdictsTotal:     verdicts,
		ArbitrageTotal:    arbitrage,
		AlertsTotal:       alerts,
		SweepDuration:     sweepDuration,
		LastSweepItems:    lastSweepItems,
		HTTPRequestsTotal: httpRequests,
		HTTPDuration:      httpDuration,
	}
}

// IncAnalysis counts one analysis attempt.
func (m *Metrics) IncAnalysis(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.AnalysesTotal.WithLabelValues(result).Inc()
}

// IncVerdict counts a decision for one strategy.
func (m *Metrics) IncVerdict(strategy, decision string) {
	if m == nil {
		return
	}
	m.VerdictsTotal.WithLabelValues(strategy, decision).Inc()
}

// IncArbitrage counts a cross-market outcome.
func (m *Metrics) IncArbitrage(outcome string) {
	if m == nil {
		return
	}
	m.ArbitrageTotal.WithLabelValues(outcome).Inc()
}

// IncAlert counts an alert delivery attempt.
func (m *Metrics) IncAlert(kind, status string) {
	if m == nil {
		return
	}
	m.AlertsTotal.WithLabelValues(kind, status).Inc()
}

// ObserveSweep records a completed sweep.
func (m *Metrics) ObserveSweep(d time.Duration, items int) {
	if m == nil {
		return
	}
	m.SweepDuration.Observe(d.Seconds())
	m.LastSweepItems.Set(float64(items))
}

// ObserveHTTP records one API request.
func (m *Metrics) ObserveHTTP(route, code string, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(route, code).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(d.Seconds())
}
