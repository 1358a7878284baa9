// Package memory implements the adaptive memory manager: named object
// pools, a deferred-loading registry, and a mapped-file registry, driven
// by a measured memory-pressure signal.
//
// The manager composes three independent sub-structures, each guarded by
// its own mutex (no cross-structure locking, so no lock ordering issues):
//   - object pools: bounded freelists for reusable non-I/O objects
//   - lazy registry: deferred construction of large structures with
//     frequency-based unloading
//   - mapped-file registry: a bounded set of memory-mapped files
//
// Reclamation decisions compare a MemorySnapshot against a configured
// budget: above 80% the manager is under warning pressure, above 95%
// critical. PerformMaintenance translates the pressure level into unload
// and reclamation work, rate-limited to at most one pass per configured
// interval.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Elpablo777/Telegram-Audio-Downloader-sub001/internal/logger"
	coreerrors "github.com/Elpablo777/Telegram-Audio-Downloader-sub001/pkg/errors"
)

// Pressure levels derived from a MemorySnapshot.
const (
	PressureNormal   Pressure = "normal"
	PressureWarning  Pressure = "warning"
	PressureCritical Pressure = "critical"
)

// Pressure classifies process memory usage against the configured budget.
type Pressure string

// Pressure thresholds as fractions of the memory budget.
const (
	warningFraction  = 0.8
	criticalFraction = 0.95
)

// ReclaimFunc is invoked by maintenance passes. Implementations release
// what they can; forced passes should release aggressively.
type ReclaimFunc func(ctx context.Context, forced bool)

// Config configures a Manager.
type Config struct {
	// Budget is the process memory budget in bytes the pressure
	// thresholds are derived from.
	Budget uint64

	// MaxMappedFiles bounds the number of simultaneously mapped files.
	MaxMappedFiles int

	// MaintenanceInterval rate-limits PerformMaintenance.
	MaintenanceInterval time.Duration
}

// Manager is the adaptive memory manager. Construct with NewManager.
type Manager struct {
	cfg Config

	poolsMu sync.Mutex
	pools   map[string]*objectPool

	lazyMu sync.Mutex
	lazy   map[string]*lazyEntry

	mmapMu sync.Mutex
	mapped map[string]*mappedEntry

	maintMu         sync.Mutex
	lastMaintenance time.Time
	maintaining     bool

	reclaimMu  sync.Mutex
	reclaimers map[string]ReclaimFunc

	probe *memoryProbe
}

// NewManager creates a manager. Structural violations (zero budget,
// non-positive mapped-file bound or interval) fail fast.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Budget == 0 {
		return nil, coreerrors.New(coreerrors.ErrConfiguration, "memory budget must be positive")
	}
	if cfg.MaxMappedFiles <= 0 {
		return nil, coreerrors.Newf(coreerrors.ErrConfiguration, "max mapped files must be positive, got %d", cfg.MaxMappedFiles)
	}
	if cfg.MaintenanceInterval <= 0 {
		return nil, coreerrors.Newf(coreerrors.ErrConfiguration, "maintenance interval must be positive, got %s", cfg.MaintenanceInterval)
	}

	return &Manager{
		cfg:        cfg,
		pools:      make(map[string]*objectPool),
		lazy:       make(map[string]*lazyEntry),
		mapped:     make(map[string]*mappedEntry),
		reclaimers: make(map[string]ReclaimFunc),
		probe:      newMemoryProbe(),
	}, nil
}

// RegisterReclaimer registers a named reclamation callback invoked by
// maintenance passes under memory pressure. Registering the same name
// again replaces the previous callback.
func (m *Manager) RegisterReclaimer(name string, fn ReclaimFunc) {
	m.reclaimMu.Lock()
	defer m.reclaimMu.Unlock()
	m.reclaimers[name] = fn
}

// CheckPressure classifies the current process memory usage.
func (m *Manager) CheckPressure() Pressure {
	snap := m.Snapshot()
	return m.classify(snap.ProcessMemory)
}

func (m *Manager) classify(processMemory uint64) Pressure {
	budget := float64(m.cfg.Budget)
	used := float64(processMemory)

	switch {
	case used > budget*criticalFraction:
		return PressureCritical
	case used > budget*warningFraction:
		return PressureWarning
	default:
		return PressureNormal
	}
}

// PerformMaintenance runs one reclamation pass appropriate to the current
// pressure level. It is idempotent, rate-limited to at most one pass per
// MaintenanceInterval, and guarded against concurrent invocation; callers
// can invoke it opportunistically without coordination. Returns the
// pressure level the pass observed, or PressureNormal when skipped.
func (m *Manager) PerformMaintenance(ctx context.Context) Pressure {
	m.maintMu.Lock()
	if m.maintaining || time.Since(m.lastMaintenance) < m.cfg.MaintenanceInterval {
		m.maintMu.Unlock()
		return PressureNormal
	}
	m.maintaining = true
	m.lastMaintenance = time.Now()
	m.maintMu.Unlock()

	defer func() {
		m.maintMu.Lock()
		m.maintaining = false
		m.maintMu.Unlock()
	}()

	snap := m.Snapshot()
	pressure := m.classify(snap.ProcessMemory)

	switch pressure {
	case PressureWarning:
		unloaded := m.UnloadLeastUsed(1)
		m.runReclaimers(ctx, false)
		logger.Info("Memory maintenance pass",
			logger.KeyPressure, string(pressure),
			logger.KeyProcessMemory, snap.ProcessMemory,
			logger.KeyCount, unloaded)

	case PressureCritical:
		unloaded := m.UnloadLeastUsed(3)
		m.runReclaimers(ctx, true)
		logger.Warn("Memory maintenance pass under critical pressure",
			logger.KeyProcessMemory, snap.ProcessMemory,
			logger.KeyCount, unloaded)
	}

	return pressure
}

func (m *Manager) runReclaimers(ctx context.Context, forced bool) {
	m.reclaimMu.Lock()
	fns := make(map[string]ReclaimFunc, len(m.reclaimers))
	for name, fn := range m.reclaimers {
		fns[name] = fn
	}
	m.reclaimMu.Unlock()

	for name, fn := range fns {
		fn(ctx, forced)
		logger.Debug("Reclamation pass requested", logger.KeyName, name, "forced", forced)
	}
}

// Close unmaps all files and drops all pooled and lazily-loaded objects.
func (m *Manager) Close() {
	m.UnmapAll()

	m.poolsMu.Lock()
	for _, p := range m.pools {
		p.drain()
	}
	m.poolsMu.Unlock()

	m.lazyMu.Lock()
	for _, e := range m.lazy {
		e.value = nil
		e.loaded = false
	}
	m.lazyMu.Unlock()
}
