// Package runtime composes the core components from configuration and
// owns their lifecycle: the artifact cache, the metadata store pool, the
// memory manager, and the prefetch scheduler, plus the optional stats API
// and metrics.
//
// Components are constructed once here and passed to consumers
// explicitly; nothing in the core reaches for a shared global instance.
package runtime

import (
	"context"
	"sync"
	"time"

	"github.com/Elpablo777/Telegram-Audio-Downloader-sub001/internal/logger"
	"github.com/Elpablo777/Telegram-Audio-Downloader-sub001/pkg/api"
	"github.com/Elpablo777/Telegram-Audio-Downloader-sub001/pkg/cache"
	"github.com/Elpablo777/Telegram-Audio-Downloader-sub001/pkg/config"
	"github.com/Elpablo777/Telegram-Audio-Downloader-sub001/pkg/memory"
	"github.com/Elpablo777/Telegram-Audio-Downloader-sub001/pkg/metrics"
	coreprom "github.com/Elpablo777/Telegram-Audio-Downloader-sub001/pkg/metrics/prometheus"
	"github.com/Elpablo777/Telegram-Audio-Downloader-sub001/pkg/pool"
	"github.com/Elpablo777/Telegram-Audio-Downloader-sub001/pkg/prefetch"
	"github.com/Elpablo777/Telegram-Audio-Downloader-sub001/pkg/store"
)

// storePoolName identifies the metadata store pool in logs and metrics.
const storePoolName = "metadata-store"

// bufferPoolName identifies the reusable I/O buffer freelist.
const bufferPoolName = "io-buffers"

// bufferSize is the size of pooled I/O buffers.
const bufferSize = 256 * 1024

// Runtime owns the composed core components. Construct with New, start
// background maintenance with Start, and tear down with Close.
type Runtime struct {
	cfg *config.Config

	cache     *cache.Cache[string, any]
	storePool *pool.Pool[*store.Store]
	memory    *memory.Manager
	prefetch  *prefetch.Manager

	collector *coreprom.CoreCollector
	apiServer *api.Server

	executorMu sync.RWMutex
	executor   prefetch.Executor

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// Stats aggregates every component's read accessor into one structure
// served by the stats API.
type Stats struct {
	Cache    cache.Stats    `json:"cache"`
	Pool     pool.Stats     `json:"pool"`
	Memory   memory.Stats   `json:"memory"`
	Prefetch prefetch.Stats `json:"prefetch"`
}

// New builds the core components from configuration. Construction is
// fail-fast: any structurally invalid component configuration aborts.
func New(ctx context.Context, cfg *config.Config) (*Runtime, error) {
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
	}

	artifactCache, err := cache.New[string, any](cfg.Cache.MaxSize,
		cache.WithTTL[string, any](cfg.Cache.TTL),
		cache.WithMetrics[string, any](coreprom.NewCacheMetrics("artifacts")),
	)
	if err != nil {
		return nil, err
	}

	factory, check, closeFn := store.NewFactory(cfg.Database)
	storePool, err := pool.New(ctx, pool.Config[*store.Store]{
		Name:           storePoolName,
		Factory:        factory,
		Close:          closeFn,
		Check:          check,
		MinSize:        cfg.Pool.MinSize,
		MaxSize:        cfg.Pool.MaxSize,
		AcquireTimeout: cfg.Pool.AcquireTimeout,
	})
	if err != nil {
		return nil, err
	}

	memoryManager, err := memory.NewManager(memory.Config{
		Budget:              cfg.Memory.Budget.Uint64(),
		MaxMappedFiles:      cfg.Memory.MaxMappedFiles,
		MaintenanceInterval: cfg.Memory.MaintenanceInterval,
	})
	if err != nil {
		storePool.CloseAll()
		return nil, err
	}

	prefetchManager, err := prefetch.New(prefetch.Config{
		QueueSize:      cfg.Prefetch.QueueSize,
		MaxConcurrent:  cfg.Prefetch.MaxConcurrent,
		CycleInterval:  cfg.Prefetch.CycleInterval,
		MinAccessCount: cfg.Prefetch.MinAccessCount,
		Cached:         artifactCache.Contains,
	})
	if err != nil {
		storePool.CloseAll()
		memoryManager.Close()
		return nil, err
	}

	rt := &Runtime{
		cfg:       cfg,
		cache:     artifactCache,
		storePool: storePool,
		memory:    memoryManager,
		prefetch:  prefetchManager,
		collector: coreprom.NewCoreCollector(),
	}

	// The cache gives memory back under pressure: a light pass drops
	// expired entries, a forced pass drops everything.
	memoryManager.RegisterReclaimer("artifact-cache", func(ctx context.Context, forced bool) {
		if forced {
			rt.cache.Clear()
			return
		}
		rt.cache.Len()
	})

	if err := memoryManager.RegisterPool(bufferPoolName,
		func() (any, error) { return make([]byte, bufferSize), nil },
		func() any { return make([]byte, bufferSize) },
		32,
	); err != nil {
		storePool.CloseAll()
		memoryManager.Close()
		return nil, err
	}

	if cfg.API.Enabled {
		rt.apiServer = api.NewServer(cfg.API, rt, metrics.Handler())
	}

	logger.Info("Runtime initialized",
		logger.KeyCacheSize, cfg.Cache.MaxSize,
		logger.KeyPoolTotal, storePool.Stats().Total,
		"memory_budget", cfg.Memory.Budget.String(),
	)
	return rt, nil
}

// Cache returns the artifact cache.
func (rt *Runtime) Cache() *cache.Cache[string, any] { return rt.cache }

// StorePool returns the metadata store pool.
func (rt *Runtime) StorePool() *pool.Pool[*store.Store] { return rt.storePool }

// Memory returns the memory manager.
func (rt *Runtime) Memory() *memory.Manager { return rt.memory }

// Prefetch returns the prefetch manager.
func (rt *Runtime) Prefetch() *prefetch.Manager { return rt.prefetch }

// WithStore runs fn with a pooled metadata store session.
func (rt *Runtime) WithStore(ctx context.Context, fn func(*store.Store) error) error {
	return rt.storePool.WithResource(ctx, fn)
}

// SetPrefetchExecutor installs the download engine's executor. Until one
// is installed, background cycles leave the queue untouched.
func (rt *Runtime) SetPrefetchExecutor(executor prefetch.Executor) {
	rt.executorMu.Lock()
	rt.executor = executor
	rt.executorMu.Unlock()
}

// Stats returns the aggregated component stats.
func (rt *Runtime) Stats() any {
	return Stats{
		Cache:    rt.cache.Stats(),
		Pool:     rt.storePool.Stats(),
		Memory:   rt.memory.Stats(),
		Prefetch: rt.prefetch.Stats(),
	}
}

// Start launches the background maintenance loop and, when enabled, the
// stats API server. It returns immediately; cancellation of ctx or Close
// stops the background work.
func (rt *Runtime) Start(ctx context.Context) {
	ctx, rt.cancel = context.WithCancel(ctx)

	rt.wg.Add(1)
	go rt.maintenanceLoop(ctx)

	if rt.apiServer != nil {
		rt.wg.Add(1)
		go func() {
			defer rt.wg.Done()
			if err := rt.apiServer.Start(ctx); err != nil {
				logger.Error("API server exited", logger.KeyError, err)
			}
		}()
	}
}

// maintenanceLoop drives the periodic upkeep: memory maintenance, idle
// connection reclamation, prefetch cycles, and pattern sweeps.
func (rt *Runtime) maintenanceLoop(ctx context.Context) {
	defer rt.wg.Done()

	ticker := time.NewTicker(rt.cfg.Memory.MaintenanceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rt.maintain(ctx)
		}
	}
}

func (rt *Runtime) maintain(ctx context.Context) {
	pressure := rt.memory.PerformMaintenance(ctx)
	rt.collector.ObserveMaintenance(pressure)

	reclaimed := rt.storePool.ReclaimIdle(ctx, rt.cfg.Pool.IdleTimeout)
	rt.collector.ObserveReclaimed(storePoolName, reclaimed)

	rt.executorMu.RLock()
	executor := rt.executor
	rt.executorMu.RUnlock()
	if executor != nil {
		rt.prefetch.RunBackgroundCycle(ctx, executor)
	}

	if stale := rt.prefetch.ClearStalePatterns(rt.cfg.Prefetch.PatternMaxAge); stale > 0 {
		logger.Debug("Stale access patterns cleared", logger.KeyCount, stale)
	}

	rt.collector.ObservePool(rt.storePool.Stats())
	rt.collector.ObserveMemory(rt.memory.Stats())
	rt.collector.ObservePrefetch(rt.prefetch.Stats())
}

// Close stops background work and tears the components down. Safe to
// call multiple times.
func (rt *Runtime) Close() {
	rt.closeOnce.Do(func() {
		if rt.cancel != nil {
			rt.cancel()
		}
		rt.wg.Wait()

		if rt.apiServer != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), rt.cfg.ShutdownTimeout)
			_ = rt.apiServer.Stop(shutdownCtx)
			cancel()
		}

		rt.storePool.CloseAll()
		rt.memory.Close()
		rt.cache.Clear()

		logger.Info("Runtime closed")
	})
}
