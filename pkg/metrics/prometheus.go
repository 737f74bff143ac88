package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain repository.Metrics using Prometheus.
type Recorder struct {
	observations *prometheus.CounterVec
	drops        *prometheus.CounterVec
	alerts       *prometheus.CounterVec
	lastPrice    *prometheus.GaugeVec
	lastZScore   *prometheus.GaugeVec
	latency      *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		observations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zpulse_observations_total",
				Help: "Total number of observations accepted by the engine",
			},
			[]string{"symbol"},
		),
		drops: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zpulse_observations_dropped_total",
				Help: "Total number of observations dropped before processing",
			},
			[]string{"reason"},
		),
		alerts: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zpulse_alerts_total",
				Help: "Total number of anomaly alerts emitted",
			},
			[]string{"symbol", "action"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "zpulse_last_price",
				Help: "Last accepted price for a symbol",
			},
			[]string{"symbol"},
		),
		lastZScore: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "zpulse_last_zscore",
				Help: "Last computed z-score per symbol and timeframe",
			},
			[]string{"symbol", "timeframe"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "zpulse_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordObservation counts an accepted observation.
func (r *Recorder) RecordObservation(symbol string) {
	r.observations.WithLabelValues(symbol).Inc()
}

// RecordDrop counts a dropped observation by reason.
func (r *Recorder) RecordDrop(reason string) {
	r.drops.WithLabelValues(reason).Inc()
}

// RecordAlert counts an emitted alert.
func (r *Recorder) RecordAlert(symbol, action string) {
	r.alerts.WithLabelValues(symbol, action).Inc()
}

// RecordLastPrice records the last price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordZScore records the last z-score for a symbol and timeframe.
func (r *Recorder) RecordZScore(symbol, timeframe string, z float64) {
	r.lastZScore.WithLabelValues(symbol, timeframe).Set(z)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
