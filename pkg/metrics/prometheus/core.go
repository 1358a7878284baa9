package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Elpablo777/Telegram-Audio-Downloader-sub001/pkg/memory"
	"github.com/Elpablo777/Telegram-Audio-Downloader-sub001/pkg/metrics"
	"github.com/Elpablo777/Telegram-Audio-Downloader-sub001/pkg/pool"
	"github.com/Elpablo777/Telegram-Audio-Downloader-sub001/pkg/prefetch"
)

// CoreCollector publishes pool, memory, and prefetch state to Prometheus.
// The runtime's maintenance loop feeds it fresh stats each pass; the
// components themselves stay metrics-agnostic.
type CoreCollector struct {
	poolTotal     *prometheus.GaugeVec
	poolAvailable *prometheus.GaugeVec
	poolInUse     *prometheus.GaugeVec
	poolReclaimed *prometheus.CounterVec

	processMemory prometheus.Gauge
	systemPercent prometheus.Gauge
	mappedFiles   prometheus.Gauge
	pooledObjects prometheus.Gauge
	loadedLazy    prometheus.Gauge
	maintenance   *prometheus.CounterVec

	prefetchQueued    prometheus.Gauge
	prefetchAttempted prometheus.Gauge
	prefetchGroups    prometheus.Gauge
}

// NewCoreCollector creates the collector. Returns nil if metrics are not
// enabled.
func NewCoreCollector() *CoreCollector {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &CoreCollector{
		poolTotal: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "audiocore_pool_total",
			Help: "Total resources held by the pool",
		}, []string{"pool"}),
		poolAvailable: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "audiocore_pool_available",
			Help: "Idle resources ready for acquisition",
		}, []string{"pool"}),
		poolInUse: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "audiocore_pool_in_use",
			Help: "Resources currently held by callers",
		}, []string{"pool"}),
		poolReclaimed: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "audiocore_pool_reclaimed_total",
			Help: "Total idle resources closed by reclamation",
		}, []string{"pool"}),

		processMemory: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "audiocore_process_memory_bytes",
			Help: "Resident set size of the process",
		}),
		systemPercent: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "audiocore_system_memory_percent",
			Help: "System-wide memory utilization",
		}),
		mappedFiles: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "audiocore_mapped_files",
			Help: "Number of live memory-mapped files",
		}),
		pooledObjects: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "audiocore_pooled_objects",
			Help: "Idle objects held across all freelists",
		}),
		loadedLazy: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "audiocore_loaded_lazy_entries",
			Help: "Lazily-loaded structures currently resident",
		}),
		maintenance: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "audiocore_memory_maintenance_total",
			Help: "Maintenance passes by observed pressure level",
		}, []string{"pressure"}),

		prefetchQueued: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "audiocore_prefetch_queued",
			Help: "Candidates waiting in the prefetch queue",
		}),
		prefetchAttempted: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "audiocore_prefetch_attempted",
			Help: "Items attempted over the process lifetime",
		}),
		prefetchGroups: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "audiocore_prefetch_groups",
			Help: "Groups with a tracked access pattern",
		}),
	}
}

// ObservePool publishes one pool's occupancy.
func (c *CoreCollector) ObservePool(s pool.Stats) {
	if c == nil {
		return
	}
	c.poolTotal.WithLabelValues(s.Name).Set(float64(s.Total))
	c.poolAvailable.WithLabelValues(s.Name).Set(float64(s.Available))
	c.poolInUse.WithLabelValues(s.Name).Set(float64(s.InUse))
}

// ObserveReclaimed counts resources closed by a reclamation pass.
func (c *CoreCollector) ObserveReclaimed(poolName string, n int) {
	if c == nil || n == 0 {
		return
	}
	c.poolReclaimed.WithLabelValues(poolName).Add(float64(n))
}

// ObserveMemory publishes the memory manager's state.
func (c *CoreCollector) ObserveMemory(s memory.Stats) {
	if c == nil {
		return
	}
	c.processMemory.Set(float64(s.Snapshot.ProcessMemory))
	c.systemPercent.Set(s.Snapshot.SystemMemoryPercent)
	c.mappedFiles.Set(float64(s.Snapshot.MappedFileCount))
	c.pooledObjects.Set(float64(s.Snapshot.PoolSize))
	c.loadedLazy.Set(float64(s.LoadedLazy))
}

// ObserveMaintenance counts one maintenance pass.
func (c *CoreCollector) ObserveMaintenance(pressure memory.Pressure) {
	if c == nil {
		return
	}
	c.maintenance.WithLabelValues(string(pressure)).Inc()
}

// ObservePrefetch publishes the prefetch manager's state.
func (c *CoreCollector) ObservePrefetch(s prefetch.Stats) {
	if c == nil {
		return
	}
	c.prefetchQueued.Set(float64(s.Queued))
	c.prefetchAttempted.Set(float64(s.Attempted))
	c.prefetchGroups.Set(float64(s.Groups))
}
