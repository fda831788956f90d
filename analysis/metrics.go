package analysis

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes orchestration counters for operational visibility. All
// methods are nil-safe so instrumentation stays optional.
type Metrics struct {
	cacheHits        prometheus.Counter
	cacheMisses      prometheus.Counter
	analysesFailed   prometheus.Counter
	analysesSkipped  prometheus.Counter
	analysisDuration prometheus.Histogram
}

// NewMetrics registers analysis metrics with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		cacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "reqderive",
			Subsystem: "analysis",
			Name:      "cache_hits_total",
			Help:      "Derivation results served from the cache.",
		}),
		cacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "reqderive",
			Subsystem: "analysis",
			Name:      "cache_misses_total",
			Help:      "Derivation requests that required a gateway call.",
		}),
		analysesFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "reqderive",
			Subsystem: "analysis",
			Name:      "failed_total",
			Help:      "Analyses that completed unsuccessfully.",
		}),
		analysesSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "reqderive",
			Subsystem: "analysis",
			Name:      "skipped_total",
			Help:      "Analyses skipped because the gateway was unhealthy.",
		}),
		analysisDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "reqderive",
			Subsystem: "analysis",
			Name:      "duration_seconds",
			Help:      "Wall time of one requirement analysis.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
	}
}

func (m *Metrics) cacheHit() {
	if m != nil {
		m.cacheHits.Inc()
	}
}

func (m *Metrics) cacheMiss() {
	if m != nil {
		m.cacheMisses.Inc()
	}
}

func (m *Metrics) failed() {
	if m != nil {
		m.analysesFailed.Inc()
	}
}

func (m *Metrics) skipped() {
	if m != nil {
		m.analysesSkipped.Inc()
	}
}

func (m *Metrics) observeDuration(seconds float64) {
	if m != nil {
		m.analysisDuration.Observe(seconds)
	}
}
