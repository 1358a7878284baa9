package logger

import (
	"log/slog"
	"time"
)

// Standard field keys for structured logging.
// Use these keys consistently across all log statements so the resource
// core's diagnostics can be aggregated and queried uniformly.
const (
	// Component identification
	KeyComponent = "component" // cache, pool, memory, prefetch, runtime
	KeyName      = "name"      // named sub-resource (pool name, lazy key, ...)

	// Cache operations
	KeyCacheKey  = "cache_key"
	KeyCacheSize = "cache_size"
	KeyEvicted   = "evicted"
	KeyExpired   = "expired"

	// Resource pool
	KeyPoolTotal     = "pool_total"
	KeyPoolAvailable = "pool_available"
	KeyPoolInUse     = "pool_in_use"
	KeyReclaimed     = "reclaimed"

	// Memory management
	KeyProcessMemory = "process_memory"
	KeySystemPercent = "system_percent"
	KeyPressure      = "pressure"
	KeyMappedFiles   = "mapped_files"
	KeyPath          = "path"

	// Prefetch
	KeyGroup     = "group"
	KeyItem      = "item"
	KeyExtension = "extension"
	KeyQueued    = "queued"
	KeyAttempted = "attempted"

	// Generic
	KeyError    = "error"
	KeyDuration = "duration_ms"
	KeyCount    = "count"
	KeySize     = "size"
)

// Err returns a standard error attribute.
func Err(err error) slog.Attr {
	return slog.Any(KeyError, err)
}

// Component returns a standard component attribute.
func Component(name string) slog.Attr {
	return slog.String(KeyComponent, name)
}

// DurationMS returns the elapsed time since start as a duration_ms attribute.
func DurationMS(start time.Time) slog.Attr {
	return slog.Float64(KeyDuration, Duration(start))
}
