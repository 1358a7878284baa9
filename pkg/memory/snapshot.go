package memory

import (
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
)

// MemorySnapshot is a point-in-time view of process and manager state.
type MemorySnapshot struct {
	// ProcessMemory is the resident set size of this process in bytes.
	ProcessMemory uint64 `json:"process_memory"`

	// SystemMemoryPercent is system-wide memory utilization, 0-100.
	SystemMemoryPercent float64 `json:"system_memory_percent"`

	// LiveObjectCount is the number of live heap objects.
	LiveObjectCount uint64 `json:"live_object_count"`

	// PoolSize is the total number of objects held across all freelists.
	PoolSize int `json:"pool_size"`

	// MappedFileCount is the number of live file mappings.
	MappedFileCount int `json:"mapped_file_count"`

	Timestamp time.Time `json:"timestamp"`
}

// memoryProbe reads process and system memory counters. Process handle
// lookup happens once; a failed lookup degrades to Go runtime counters.
type memoryProbe struct {
	proc *process.Process
}

func newMemoryProbe() *memoryProbe {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		p = nil
	}
	return &memoryProbe{proc: p}
}

// processMemory returns the process RSS in bytes, falling back to the Go
// heap in-use size when the OS counter is unavailable.
func (p *memoryProbe) processMemory() uint64 {
	if p.proc != nil {
		if info, err := p.proc.MemoryInfo(); err == nil && info != nil {
			return info.RSS
		}
	}
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return ms.HeapInuse
}

// systemPercent returns system-wide memory utilization, or 0 when the
// counter is unavailable.
func (p *memoryProbe) systemPercent() float64 {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0
	}
	return vm.UsedPercent
}

// Snapshot captures current process and manager memory state.
func (m *Manager) Snapshot() MemorySnapshot {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	return MemorySnapshot{
		ProcessMemory:       m.probe.processMemory(),
		SystemMemoryPercent: m.probe.systemPercent(),
		LiveObjectCount:     ms.HeapObjects,
		PoolSize:            m.pooledObjectCount(),
		MappedFileCount:     m.MappedFileCount(),
		Timestamp:           time.Now(),
	}
}

// Stats reports manager state for diagnostics endpoints.
type Stats struct {
	Snapshot       MemorySnapshot `json:"snapshot"`
	Pressure       Pressure       `json:"pressure"`
	Budget         uint64         `json:"budget"`
	LoadedLazy     int            `json:"loaded_lazy"`
	RegisteredLazy int            `json:"registered_lazy"`
	Pools          int            `json:"pools"`
}

// Stats captures a snapshot together with the derived pressure level.
func (m *Manager) Stats() Stats {
	snap := m.Snapshot()

	m.lazyMu.Lock()
	registered := len(m.lazy)
	m.lazyMu.Unlock()

	m.poolsMu.Lock()
	pools := len(m.pools)
	m.poolsMu.Unlock()

	return Stats{
		Snapshot:       snap,
		Pressure:       m.classify(snap.ProcessMemory),
		Budget:         m.cfg.Budget,
		LoadedLazy:     m.loadedLazyCount(),
		RegisteredLazy: registered,
		Pools:          pools,
	}
}
