package analytics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec
)

// InitMetrics registers the read-path cache counters. Call once at startup.
func InitMetrics() {
	cacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sitepulse",
			Name:      "summary_cache_hits_total",
			Help:      "Summary cache hits by key kind.",
		},
		[]string{"kind"},
	)
	cacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sitepulse",
			Name:      "summary_cache_misses_total",
			Help:      "Summary cache misses (including cache failures) by key kind.",
		},
		[]string{"kind"},
	)
	prometheus.MustRegister(cacheHits, cacheMisses)
}

func recordCacheHit(kind string) {
	if cacheHits != nil {
		cacheHits.WithLabelValues(kind).Inc()
	}
}

func recordCacheMiss(kind string) {
	if cacheMisses != nil {
		cacheMisses.WithLabelValues(kind).Inc()
	}
}
