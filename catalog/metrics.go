package catalog

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the query path.
type Metrics struct {
	QueriesTotal   *prometheus.CounterVec
	QueryDuration  prometheus.Histogram
	StoreFallbacks prometheus.Counter
}

// NewMetrics constructs the query collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	queries := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_queries_total",
			Help: "Catalog queries by cache outcome.",
		},
		[]string{"cache"},
	)
	duration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "catalog_query_duration_seconds",
			Help:    "Time spent filtering and paginating a query.",
			Buckets: prometheus.DefBuckets,
		},
	)
	fallbacks := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_store_fallbacks_total",
			Help: "Times the empty cache was filled from the store.",
		},
	)

	if reg != nil {
		reg.MustRegister(queries, duration, fallbacks)
	}

	return &Metrics{
		QueriesTotal:   queries,
		QueryDuration:  duration,
		StoreFallbacks: fallbacks,
	}
}

func (m *Metrics) incQuery(cache string) {
	if m == nil {
		return
	}
	m.QueriesTotal.WithLabelValues(cache).Inc()
}

func (m *Metrics) observe(d time.Duration) {
	if m == nil {
		return
	}
	m.QueryDuration.Observe(d.Seconds())
}

func (m *Metrics) incFallback() {
	if m == nil {
		return
	}
	m.StoreFallbacks.Inc()
}
