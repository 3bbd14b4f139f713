package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for refresh runs.
type Metrics struct {
	Attempts    *prometheus.CounterVec
	Duration    prometheus.Histogram
	Articles    prometheus.Gauge
	SkippedRows prometheus.Counter
}

// NewMetrics constructs the refresh collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	attempts := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_refresh_attempts_total",
			Help: "Refresh attempts by outcome.",
		},
		[]string{"outcome"},
	)
	duration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "catalog_refresh_duration_seconds",
			Help:    "Wall time of a refresh run.",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		},
	)
	articles := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_articles",
			Help: "Articles in the active dataset.",
		},
	)
	skipped := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_refresh_skipped_rows_total",
			Help: "Feed rows dropped for lacking both code and description.",
		},
	)

	if reg != nil {
		reg.MustRegister(attempts, duration, articles, skipped)
	}

	return &Metrics{
		Attempts:    attempts,
		Duration:    duration,
		Articles:    articles,
		SkippedRows: skipped,
	}
}

func (m *Metrics) incAttempt(outcome string) {
	if m == nil {
		return
	}
	m.Attempts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observeDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.Duration.Observe(d.Seconds())
}

func (m *Metrics) setArticles(n int) {
	if m == nil {
		return
	}
	m.Articles.Set(float64(n))
}

func (m *Metrics) addSkipped(n int) {
	if m == nil {
		return
	}
	m.SkippedRows.Add(float64(n))
}
