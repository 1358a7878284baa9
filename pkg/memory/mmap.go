package memory

import (
	"os"
	"time"

	"golang.org/x/sys/unix"

	"github.com/Elpablo777/Telegram-Audio-Downloader-sub001/internal/logger"
	coreerrors "github.com/Elpablo777/Telegram-Audio-Downloader-sub001/pkg/errors"
)

// MappedFile is a read-only memory-mapped view of a file. The Data slice
// is valid until the file is unmapped; callers must not retain it across
// UnmapFile or manager shutdown.
type MappedFile struct {
	Path string
	Data []byte
	Size int64
}

// mappedEntry tracks a mapping and when it was established. Eviction is
// ordered by mapping time, not access time.
type mappedEntry struct {
	file     *MappedFile
	mappedAt time.Time
}

// MapFile maps the file at path read-only into the process address space.
//
// Returns (nil, false) instead of an error when the file cannot be opened,
// is zero-length, or the mapping itself fails: a missing mapping degrades
// reads to regular I/O, it never fails the caller. Mapping an
// already-mapped path returns the existing mapping.
//
// When the registry is at its configured bound, the least-recently-mapped
// file is evicted before the new one is mapped.
func (m *Manager) MapFile(path string) (*MappedFile, bool) {
	m.mmapMu.Lock()
	defer m.mmapMu.Unlock()

	if e, ok := m.mapped[path]; ok {
		return e.file, true
	}

	f, err := os.Open(path)
	if err != nil {
		logger.Debug("File mapping unavailable",
			logger.KeyPath, path,
			logger.KeyError, coreerrors.Wrap(coreerrors.ErrMappingFailed, "open", err))
		return nil, false
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		logger.Debug("File mapping unavailable",
			logger.KeyPath, path,
			logger.KeyError, coreerrors.Wrap(coreerrors.ErrMappingFailed, "stat", err))
		return nil, false
	}

	size := info.Size()
	if size == 0 {
		return nil, false
	}

	if len(m.mapped) >= m.cfg.MaxMappedFiles {
		m.evictOldestMappingLocked()
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		logger.Debug("File mapping unavailable",
			logger.KeyPath, path,
			logger.KeyError, coreerrors.Wrap(coreerrors.ErrMappingFailed, "mmap", err))
		return nil, false
	}

	mf := &MappedFile{Path: path, Data: data, Size: size}
	m.mapped[path] = &mappedEntry{file: mf, mappedAt: time.Now()}

	logger.Debug("File mapped", logger.KeyPath, path,
		logger.KeySize, size, logger.KeyMappedFiles, len(m.mapped))
	return mf, true
}

// UnmapFile removes the mapping for path. Unmapping an unmapped path is a
// no-op returning false.
func (m *Manager) UnmapFile(path string) bool {
	m.mmapMu.Lock()
	defer m.mmapMu.Unlock()

	e, ok := m.mapped[path]
	if !ok {
		return false
	}
	m.unmapLocked(path, e)
	return true
}

// UnmapAll removes all mappings.
func (m *Manager) UnmapAll() {
	m.mmapMu.Lock()
	defer m.mmapMu.Unlock()

	for path, e := range m.mapped {
		m.unmapLocked(path, e)
	}
}

// MappedFileCount returns the number of live mappings.
func (m *Manager) MappedFileCount() int {
	m.mmapMu.Lock()
	defer m.mmapMu.Unlock()
	return len(m.mapped)
}

// evictOldestMappingLocked unmaps the file with the oldest mapping time.
// Caller must hold m.mmapMu.
func (m *Manager) evictOldestMappingLocked() {
	var oldestPath string
	var oldest *mappedEntry
	for path, e := range m.mapped {
		if oldest == nil || e.mappedAt.Before(oldest.mappedAt) {
			oldestPath = path
			oldest = e
		}
	}
	if oldest != nil {
		m.unmapLocked(oldestPath, oldest)
	}
}

// unmapLocked releases a single mapping. Caller must hold m.mmapMu.
func (m *Manager) unmapLocked(path string, e *mappedEntry) {
	if err := unix.Munmap(e.file.Data); err != nil {
		logger.Warn("Munmap failed", logger.KeyPath, path, logger.KeyError, err)
	}
	e.file.Data = nil
	delete(m.mapped, path)
}
