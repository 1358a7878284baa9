// Package prometheus provides the Prometheus-backed implementations of
// the component metrics hooks. Every constructor returns nil when metrics
// are disabled, so callers can pass the result straight through.
package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Elpablo777/Telegram-Audio-Downloader-sub001/pkg/cache"
	"github.com/Elpablo777/Telegram-Audio-Downloader-sub001/pkg/metrics"
)

// cacheMetrics is the Prometheus implementation of cache.Metrics.
type cacheMetrics struct {
	hits        prometheus.Counter
	misses      prometheus.Counter
	evictions   prometheus.Counter
	expirations prometheus.Counter
	entries     prometheus.Gauge
}

// NewCacheMetrics creates a Prometheus-backed cache.Metrics for the named
// cache. Returns nil if metrics are not enabled.
func NewCacheMetrics(name string) cache.Metrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()
	labels := prometheus.Labels{"cache": name}

	return &cacheMetrics{
		hits: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name:        "audiocore_cache_hits_total",
			Help:        "Total number of cache lookups that found a live entry",
			ConstLabels: labels,
		}),
		misses: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name:        "audiocore_cache_misses_total",
			Help:        "Total number of cache lookups that found nothing",
			ConstLabels: labels,
		}),
		evictions: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name:        "audiocore_cache_evictions_total",
			Help:        "Total number of entries evicted to satisfy capacity",
			ConstLabels: labels,
		}),
		expirations: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name:        "audiocore_cache_expirations_total",
			Help:        "Total number of entries removed after their TTL lapsed",
			ConstLabels: labels,
		}),
		entries: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name:        "audiocore_cache_entries",
			Help:        "Current number of live cache entries",
			ConstLabels: labels,
		}),
	}
}

func (m *cacheMetrics) RecordHit()        { m.hits.Inc() }
func (m *cacheMetrics) RecordMiss()       { m.misses.Inc() }
func (m *cacheMetrics) RecordEviction()   { m.evictions.Inc() }
func (m *cacheMetrics) RecordExpiration() { m.expirations.Inc() }

func (m *cacheMetrics) RecordSize(entries int) { m.entries.Set(float64(entries)) }
