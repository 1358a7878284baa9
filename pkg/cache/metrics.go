package cache

// Metrics provides observability for cache operations.
//
// Implementations can use this interface to collect hit rates, eviction
// counts, and cache utilization. This is optional - if not provided,
// metrics collection is skipped.
//
// Example implementations:
//   - Prometheus metrics
//   - In-memory counters for testing
type Metrics interface {
	// RecordHit records a Get that returned a live entry
	RecordHit()

	// RecordMiss records a Get that found no live entry
	RecordMiss()

	// RecordEviction records an entry removed to satisfy capacity
	RecordEviction()

	// RecordExpiration records an entry removed because its TTL elapsed
	RecordExpiration()

	// RecordSize records the current number of live entries
	RecordSize(entries int)
}
