package memory

import (
	"sort"

	"github.com/Elpablo777/Telegram-Audio-Downloader-sub001/internal/logger"
	coreerrors "github.com/Elpablo777/Telegram-Audio-Downloader-sub001/pkg/errors"
)

// lazyEntry defers construction of a named large structure until first
// access. accessCount drives frequency-based unloading, which is distinct
// from the LRU cache's recency-based eviction.
type lazyEntry struct {
	loader      func() (any, error)
	value       any
	loaded      bool
	accessCount uint64
}

// RegisterLazy registers a named structure whose construction is deferred
// until the first GetLazy. Registering an existing key replaces its loader
// and drops any loaded value.
func (m *Manager) RegisterLazy(key string, loader func() (any, error)) error {
	if key == "" {
		return coreerrors.New(coreerrors.ErrConfiguration, "lazy key is required")
	}
	if loader == nil {
		return coreerrors.Newf(coreerrors.ErrConfiguration, "lazy entry %q requires a loader", key)
	}

	m.lazyMu.Lock()
	defer m.lazyMu.Unlock()

	m.lazy[key] = &lazyEntry{loader: loader}
	return nil
}

// GetLazy returns the named structure, constructing it on first access.
// Every call bumps the entry's access-frequency counter.
func (m *Manager) GetLazy(key string) (any, error) {
	m.lazyMu.Lock()
	defer m.lazyMu.Unlock()

	e, ok := m.lazy[key]
	if !ok {
		return nil, coreerrors.Newf(coreerrors.ErrConfiguration, "lazy entry %q not registered", key)
	}

	if !e.loaded {
		value, err := e.loader()
		if err != nil {
			return nil, coreerrors.Wrap(coreerrors.ErrCreationFailed, "lazy load "+key, err)
		}
		e.value = value
		e.loaded = true
		logger.Debug("Lazy entry loaded", logger.KeyName, key)
	}

	e.accessCount++
	return e.value, nil
}

// UnloadLeastUsed drops the n least-frequently-accessed loaded entries,
// freeing their memory. Unloaded entries reload (and restart their
// frequency count) on the next GetLazy. Returns the number unloaded.
func (m *Manager) UnloadLeastUsed(n int) int {
	if n <= 0 {
		return 0
	}

	m.lazyMu.Lock()
	defer m.lazyMu.Unlock()

	type keyed struct {
		key   string
		count uint64
	}
	loaded := make([]keyed, 0, len(m.lazy))
	for key, e := range m.lazy {
		if e.loaded {
			loaded = append(loaded, keyed{key, e.accessCount})
		}
	}

	sort.Slice(loaded, func(i, j int) bool {
		return loaded[i].count < loaded[j].count
	})

	if n > len(loaded) {
		n = len(loaded)
	}

	for _, k := range loaded[:n] {
		e := m.lazy[k.key]
		e.value = nil
		e.loaded = false
		e.accessCount = 0
		logger.Debug("Lazy entry unloaded", logger.KeyName, k.key)
	}

	return n
}

// loadedLazyCount returns the number of currently loaded lazy entries.
func (m *Manager) loadedLazyCount() int {
	m.lazyMu.Lock()
	defer m.lazyMu.Unlock()

	n := 0
	for _, e := range m.lazy {
		if e.loaded {
			n++
		}
	}
	return n
}
