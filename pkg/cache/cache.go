// Package cache implements a generic key/value store with capacity- and
// time-based eviction.
//
// The cache evicts by LRU (least recently used, ordered by access time, not
// insertion time) when it reaches its fixed capacity, and optionally expires
// entries whose last access is older than a configured TTL. Expired entries
// are purged lazily: on the Get that observes them, or by the sweep that Len
// performs before reporting a count.
//
// Key Design Principles:
//   - Fixed capacity decided at construction; construction fails on
//     invalid parameters rather than clamping them
//   - All operations are safe for concurrent use and never block
//     (eviction and expiry work is done inline)
//   - Operations on the same key are linearizable; across keys no
//     ordering is guaranteed
//   - An optional Metrics collector observes hits, misses, evictions,
//     and expirations with zero overhead when nil
package cache

import (
	"container/list"
	"sync"
	"time"

	coreerrors "github.com/Elpablo777/Telegram-Audio-Downloader-sub001/pkg/errors"
)

// Entry is a point-in-time view of a cache entry, used by Entries.
type Entry[K comparable, V any] struct {
	Key        K
	Value      V
	LastAccess time.Time
}

// entry is the internal representation. The element field back-references
// the node in the recency list so moves are O(1).
type entry[K comparable, V any] struct {
	key        K
	value      V
	lastAccess time.Time
	element    *list.Element
}

// Cache is a thread-safe LRU cache with optional TTL expiry.
//
// The zero value is not usable; construct with New.
type Cache[K comparable, V any] struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration // 0 = no expiry
	entries map[K]*entry[K, V]
	recency *list.List // front = most recently used
	metrics Metrics
	now     func() time.Time
}

// Option configures a Cache.
type Option[K comparable, V any] func(*Cache[K, V])

// WithTTL sets the time-to-live for entries, measured from last access.
// A zero TTL disables expiry.
func WithTTL[K comparable, V any](ttl time.Duration) Option[K, V] {
	return func(c *Cache[K, V]) {
		c.ttl = ttl
	}
}

// WithMetrics attaches a metrics collector. A nil collector is allowed
// and results in zero overhead.
func WithMetrics[K comparable, V any](m Metrics) Option[K, V] {
	return func(c *Cache[K, V]) {
		c.metrics = m
	}
}

// WithClock overrides the time source. Intended for tests.
func WithClock[K comparable, V any](now func() time.Time) Option[K, V] {
	return func(c *Cache[K, V]) {
		c.now = now
	}
}

// New creates a cache with the given maximum entry count.
//
// Returns a Configuration error when maxSize <= 0 or a negative TTL is
// configured; structural invariant violations fail fast at construction
// and are never retried.
func New[K comparable, V any](maxSize int, opts ...Option[K, V]) (*Cache[K, V], error) {
	if maxSize <= 0 {
		return nil, coreerrors.Newf(coreerrors.ErrConfiguration, "cache maxSize must be positive, got %d", maxSize)
	}

	c := &Cache[K, V]{
		maxSize: maxSize,
		entries: make(map[K]*entry[K, V]),
		recency: list.New(),
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.ttl < 0 {
		return nil, coreerrors.Newf(coreerrors.ErrConfiguration, "cache ttl must not be negative, got %s", c.ttl)
	}

	return c, nil
}

// Get returns the value for key and reports whether it was present.
//
// A hit bumps the entry's recency and last-access timestamp. An entry whose
// last access is older than the TTL is removed and reported absent; Get
// never returns stale data.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.recordMiss()
		var zero V
		return zero, false
	}

	if c.expired(e) {
		c.removeEntry(e)
		c.recordExpiration()
		c.recordMiss()
		var zero V
		return zero, false
	}

	e.lastAccess = c.now()
	c.recency.MoveToFront(e.element)
	c.recordHit()
	return e.value, true
}

// Put inserts or replaces the value for key.
//
// Replacing an existing key updates its value and bumps its recency.
// Inserting a new key at capacity first evicts the least-recently-used
// entry.
func (c *Cache[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		e.lastAccess = c.now()
		c.recency.MoveToFront(e.element)
		return
	}

	if len(c.entries) >= c.maxSize {
		c.evictLRU()
	}

	e := &entry[K, V]{
		key:        key,
		value:      value,
		lastAccess: c.now(),
	}
	e.element = c.recency.PushFront(e)
	c.entries[key] = e
	c.recordSize(len(c.entries))
}

// Delete removes key and reports whether it was present.
func (c *Cache[K, V]) Delete(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return false
	}
	c.removeEntry(e)
	return true
}

// Contains reports whether key is present and not expired.
// Unlike Get, it does not bump recency. Expired entries observed here
// are purged.
func (c *Cache[K, V]) Contains(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return false
	}
	if c.expired(e) {
		c.removeEntry(e)
		c.recordExpiration()
		return false
	}
	return true
}

// Len returns the number of live entries.
//
// Expired entries are swept first, so Len is always consistent with what
// Get would observe.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sweepExpired()
	return len(c.entries)
}

// Keys returns the keys of all live entries, most recently used first.
func (c *Cache[K, V]) Keys() []K {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sweepExpired()
	keys := make([]K, 0, len(c.entries))
	for el := c.recency.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Value.(*entry[K, V]).key)
	}
	return keys
}

// Values returns the values of all live entries, most recently used first.
func (c *Cache[K, V]) Values() []V {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sweepExpired()
	values := make([]V, 0, len(c.entries))
	for el := c.recency.Front(); el != nil; el = el.Next() {
		values = append(values, el.Value.(*entry[K, V]).value)
	}
	return values
}

// Entries returns a snapshot of all live entries, most recently used first.
func (c *Cache[K, V]) Entries() []Entry[K, V] {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sweepExpired()
	entries := make([]Entry[K, V], 0, len(c.entries))
	for el := c.recency.Front(); el != nil; el = el.Next() {
		e := el.Value.(*entry[K, V])
		entries = append(entries, Entry[K, V]{
			Key:        e.key,
			Value:      e.value,
			LastAccess: e.lastAccess,
		})
	}
	return entries
}

// Clear removes all entries.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[K]*entry[K, V])
	c.recency.Init()
	c.recordSize(0)
}

// MaxSize returns the configured capacity.
func (c *Cache[K, V]) MaxSize() int {
	return c.maxSize
}

// Stats holds plain structured cache state for observability.
type Stats struct {
	Entries int           `json:"entries"`
	MaxSize int           `json:"max_size"`
	TTL     time.Duration `json:"ttl"`
}

// Stats returns a snapshot of cache counters suitable for external
// metrics collectors.
func (c *Cache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sweepExpired()
	return Stats{
		Entries: len(c.entries),
		MaxSize: c.maxSize,
		TTL:     c.ttl,
	}
}

// expired reports whether e is older than the TTL. Caller must hold c.mu.
func (c *Cache[K, V]) expired(e *entry[K, V]) bool {
	if c.ttl == 0 {
		return false
	}
	return c.now().Sub(e.lastAccess) > c.ttl
}

// sweepExpired removes all expired entries. Caller must hold c.mu.
func (c *Cache[K, V]) sweepExpired() {
	if c.ttl == 0 {
		return
	}

	// Walk from the back: the least recently used entries expire first,
	// so the walk can stop at the first live entry.
	for el := c.recency.Back(); el != nil; {
		e := el.Value.(*entry[K, V])
		if !c.expired(e) {
			break
		}
		prev := el.Prev()
		c.removeEntry(e)
		c.recordExpiration()
		el = prev
	}
}

// evictLRU removes the least-recently-used entry. Caller must hold c.mu.
func (c *Cache[K, V]) evictLRU() {
	el := c.recency.Back()
	if el == nil {
		return
	}
	c.removeEntry(el.Value.(*entry[K, V]))
	c.recordEviction()
}

// removeEntry unlinks e from both structures. Caller must hold c.mu.
func (c *Cache[K, V]) removeEntry(e *entry[K, V]) {
	delete(c.entries, e.key)
	c.recency.Remove(e.element)
	c.recordSize(len(c.entries))
}

func (c *Cache[K, V]) recordHit() {
	if c.metrics != nil {
		c.metrics.RecordHit()
	}
}

func (c *Cache[K, V]) recordMiss() {
	if c.metrics != nil {
		c.metrics.RecordMiss()
	}
}

func (c *Cache[K, V]) recordEviction() {
	if c.metrics != nil {
		c.metrics.RecordEviction()
	}
}

func (c *Cache[K, V]) recordExpiration() {
	if c.metrics != nil {
		c.metrics.RecordExpiration()
	}
}

func (c *Cache[K, V]) recordSize(n int) {
	if c.metrics != nil {
		c.metrics.RecordSize(n)
	}
}
