// Package pool implements a bounded pool of reusable, expensive-to-create
// resources (storage connections, parser handles) with blocking acquire,
// guaranteed release, and idle reclamation.
//
// Key Design Principles:
//   - Bounded: the pool never holds more than MaxSize resources, and
//     acquire blocks (up to a timeout) instead of growing past the bound
//   - Never hands out a broken resource: releases run an optional health
//     check and discard unhealthy handles instead of recycling them
//   - Fail-fast construction, typed recoverable failures at runtime
//     (pool-exhausted, creation-failed)
//   - A single mutex guards the counters; the idle set is a buffered
//     channel so blocked acquirers wake without polling
package pool

import (
	"context"
	"sync"
	"time"

	"github.com/Elpablo777/Telegram-Audio-Downloader-sub001/internal/logger"
	coreerrors "github.com/Elpablo777/Telegram-Audio-Downloader-sub001/pkg/errors"
)

// Factory creates a new resource. It is called during warm-up, on-demand
// growth, and minimum-size refill after reclamation.
type Factory[R any] func(ctx context.Context) (R, error)

// Config configures a Pool.
type Config[R any] struct {
	// Name identifies the pool in logs and stats.
	Name string

	// Factory creates new resources. Required.
	Factory Factory[R]

	// Close releases a resource. Optional; nil means resources need no
	// explicit teardown.
	Close func(R) error

	// Check reports whether a resource is still usable. Optional; nil
	// means every released resource is considered healthy. A resource
	// failing the check on release is discarded, not recycled.
	Check func(R) bool

	// MinSize resources are created eagerly at construction and
	// maintained opportunistically by ReclaimIdle.
	MinSize int

	// MaxSize bounds the total resource count.
	MaxSize int

	// AcquireTimeout bounds how long Acquire blocks when the pool is
	// saturated before failing with a pool-exhausted error.
	AcquireTimeout time.Duration
}

// pooled wraps a resource with its bookkeeping.
type pooled[R any] struct {
	value    R
	lastUsed time.Time
}

// Resource is a handle to an acquired resource. Callers access the
// underlying value via Value and must return the handle with Release
// (WithResource does this automatically).
type Resource[R any] struct {
	Value R

	pool     *Pool[R]
	item     *pooled[R]
	released bool
	mu       sync.Mutex
}

// Release returns the resource to the pool. It is idempotent; only the
// first call has an effect.
func (r *Resource[R]) Release() {
	r.mu.Lock()
	if r.released {
		r.mu.Unlock()
		return
	}
	r.released = true
	r.mu.Unlock()

	r.pool.release(r.item)
}

// Stats is a point-in-time view of pool occupancy.
// Invariant: Available + InUse == Total <= Max.
type Stats struct {
	Name      string `json:"name"`
	Total     int    `json:"total"`
	Available int    `json:"available"`
	InUse     int    `json:"in_use"`
	Min       int    `json:"min"`
	Max       int    `json:"max"`
}

// Pool is a bounded resource pool. Construct with New.
type Pool[R any] struct {
	cfg  Config[R]
	idle chan *pooled[R]

	mu     sync.Mutex
	total  int
	inUse  int
	closed bool
}

// New creates a pool and eagerly warms it up to MinSize.
//
// Configuration violations (nil factory, MinSize < 0, MaxSize < 1,
// MinSize > MaxSize, negative timeout) fail fast with a Configuration
// error. Factory failures during warm-up are logged but do not abort
// construction; the pool simply starts smaller than MinSize.
func New[R any](ctx context.Context, cfg Config[R]) (*Pool[R], error) {
	if cfg.Factory == nil {
		return nil, coreerrors.New(coreerrors.ErrConfiguration, "pool factory is required")
	}
	if cfg.MinSize < 0 {
		return nil, coreerrors.Newf(coreerrors.ErrConfiguration, "pool MinSize must not be negative, got %d", cfg.MinSize)
	}
	if cfg.MaxSize < 1 {
		return nil, coreerrors.Newf(coreerrors.ErrConfiguration, "pool MaxSize must be positive, got %d", cfg.MaxSize)
	}
	if cfg.MinSize > cfg.MaxSize {
		return nil, coreerrors.Newf(coreerrors.ErrConfiguration, "pool MinSize %d exceeds MaxSize %d", cfg.MinSize, cfg.MaxSize)
	}
	if cfg.AcquireTimeout < 0 {
		return nil, coreerrors.Newf(coreerrors.ErrConfiguration, "pool AcquireTimeout must not be negative, got %s", cfg.AcquireTimeout)
	}

	p := &Pool[R]{
		cfg:  cfg,
		idle: make(chan *pooled[R], cfg.MaxSize),
	}

	// Warm-up: failures shrink the initial pool instead of failing it
	for i := 0; i < cfg.MinSize; i++ {
		value, err := cfg.Factory(ctx)
		if err != nil {
			logger.Warn("Pool warm-up creation failed",
				logger.KeyName, cfg.Name, logger.KeyError, err)
			continue
		}
		p.idle <- &pooled[R]{value: value, lastUsed: time.Now()}
		p.total++
	}

	return p, nil
}

// Acquire obtains a resource, blocking up to AcquireTimeout when the pool
// is saturated.
//
// Order of attempts: idle resource first, then on-demand growth below
// MaxSize (factory failure is retried once immediately, then surfaced as
// a creation-failed error), then blocking. A timeout fails with a
// pool-exhausted error; caller cancellation fails with the context error.
func (p *Pool[R]) Acquire(ctx context.Context) (*Resource[R], error) {
	// Fast path: idle resource available
	select {
	case item := <-p.idle:
		return p.checkout(item)
	default:
	}

	// Grow below MaxSize. The slot is reserved before the factory runs
	// so concurrent acquirers cannot overshoot the bound.
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, coreerrors.Newf(coreerrors.ErrClosed, "pool %q is closed", p.cfg.Name)
	}
	if p.total < p.cfg.MaxSize {
		p.total++
		p.mu.Unlock()

		value, err := p.create(ctx)
		if err != nil {
			p.mu.Lock()
			p.total--
			p.mu.Unlock()
			return nil, err
		}
		return p.checkout(&pooled[R]{value: value})
	}
	p.mu.Unlock()

	// Saturated: block until a resource is released or the timeout fires
	timer := time.NewTimer(p.cfg.AcquireTimeout)
	defer timer.Stop()

	select {
	case item := <-p.idle:
		return p.checkout(item)
	case <-timer.C:
		return nil, coreerrors.Newf(coreerrors.ErrPoolExhausted,
			"pool %q: no resource available within %s", p.cfg.Name, p.cfg.AcquireTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// WithResource acquires a resource, invokes fn with it, and releases it on
// all exit paths, including panics.
func (p *Pool[R]) WithResource(ctx context.Context, fn func(R) error) error {
	res, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer res.Release()
	return fn(res.Value)
}

// ReclaimIdle closes idle resources whose last use is older than
// idleTimeout, then refills the pool up to MinSize if reclamation (or
// earlier discards) left it below the minimum. Returns the number of
// resources reclaimed.
func (p *Pool[R]) ReclaimIdle(ctx context.Context, idleTimeout time.Duration) int {
	cutoff := time.Now().Add(-idleTimeout)
	reclaimed := 0

	// Drain the idle set; stale entries are closed, fresh ones returned
	var keep []*pooled[R]
drain:
	for {
		select {
		case item := <-p.idle:
			if item.lastUsed.Before(cutoff) {
				p.destroy(item)
				reclaimed++
			} else {
				keep = append(keep, item)
			}
		default:
			break drain
		}
	}
	for _, item := range keep {
		p.idle <- item
	}

	p.refillToMin(ctx)

	if reclaimed > 0 {
		logger.Debug("Reclaimed idle pool resources",
			logger.KeyName, p.cfg.Name, logger.KeyReclaimed, reclaimed)
	}
	return reclaimed
}

// Stats returns a snapshot of pool occupancy.
func (p *Pool[R]) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	return Stats{
		Name:      p.cfg.Name,
		Total:     p.total,
		Available: p.total - p.inUse,
		InUse:     p.inUse,
		Min:       p.cfg.MinSize,
		Max:       p.cfg.MaxSize,
	}
}

// CloseAll shuts the pool down, closing all idle resources. Resources
// currently in use are closed when released. Subsequent acquires fail.
func (p *Pool[R]) CloseAll() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	for {
		select {
		case item := <-p.idle:
			p.destroy(item)
		default:
			return
		}
	}
}

// create invokes the factory, retrying once on failure before surfacing a
// creation-failed error. Creation failure is never silently swallowed.
func (p *Pool[R]) create(ctx context.Context) (R, error) {
	value, err := p.cfg.Factory(ctx)
	if err == nil {
		return value, nil
	}

	logger.Warn("Pool resource creation failed, retrying",
		logger.KeyName, p.cfg.Name, logger.KeyError, err)

	value, err = p.cfg.Factory(ctx)
	if err == nil {
		return value, nil
	}

	var zero R
	return zero, coreerrors.Wrap(coreerrors.ErrCreationFailed,
		"pool "+p.cfg.Name+": resource factory failed after retry", err)
}

// checkout marks an item as in use and hands it to the caller.
func (p *Pool[R]) checkout(item *pooled[R]) (*Resource[R], error) {
	item.lastUsed = time.Now()

	p.mu.Lock()
	p.inUse++
	p.mu.Unlock()

	return &Resource[R]{Value: item.value, pool: p, item: item}, nil
}

// release returns an item to the idle set, or discards it when the pool is
// closed or the health check fails.
func (p *Pool[R]) release(item *pooled[R]) {
	p.mu.Lock()
	closed := p.closed
	p.inUse--
	p.mu.Unlock()

	if closed {
		p.destroy(item)
		return
	}

	if p.cfg.Check != nil && !p.cfg.Check(item.value) {
		logger.Warn("Discarding unhealthy pool resource", logger.KeyName, p.cfg.Name)
		p.destroy(item)
		return
	}

	item.lastUsed = time.Now()
	p.idle <- item
}

// destroy closes an item and decrements the total count.
func (p *Pool[R]) destroy(item *pooled[R]) {
	if p.cfg.Close != nil {
		if err := p.cfg.Close(item.value); err != nil {
			logger.Warn("Pool resource close failed",
				logger.KeyName, p.cfg.Name, logger.KeyError, err)
		}
	}

	p.mu.Lock()
	p.total--
	p.mu.Unlock()
}

// refillToMin creates resources until the pool is back at MinSize.
// Factory failures stop the refill; the next reclamation pass retries.
func (p *Pool[R]) refillToMin(ctx context.Context) {
	for {
		p.mu.Lock()
		if p.closed || p.total >= p.cfg.MinSize {
			p.mu.Unlock()
			return
		}
		p.total++
		p.mu.Unlock()

		value, err := p.cfg.Factory(ctx)
		if err != nil {
			p.mu.Lock()
			p.total--
			p.mu.Unlock()
			logger.Warn("Pool refill creation failed",
				logger.KeyName, p.cfg.Name, logger.KeyError, err)
			return
		}
		p.idle <- &pooled[R]{value: value, lastUsed: time.Now()}
	}
}
