package memory

import (
	"github.com/Elpablo777/Telegram-Audio-Downloader-sub001/internal/logger"
	coreerrors "github.com/Elpablo777/Telegram-Audio-Downloader-sub001/pkg/errors"
)

// objectPool is a bounded freelist of reusable non-I/O objects.
//
// Unlike pkg/pool, exhaustion never blocks and creation failure never
// fails the caller: when the freelist is empty the factory runs, and when
// the factory fails the fallback constructor produces an unpooled object.
type objectPool struct {
	name     string
	factory  func() (any, error)
	fallback func() any
	items    chan any
}

func (p *objectPool) drain() {
	for {
		select {
		case <-p.items:
		default:
			return
		}
	}
}

// RegisterPool registers a named object pool.
//
// factory builds (possibly pre-warmed) objects and may fail; fallback is
// the plain constructor used when it does. maxSize bounds how many idle
// objects the pool retains; objects released beyond that are dropped for
// the garbage collector.
func (m *Manager) RegisterPool(name string, factory func() (any, error), fallback func() any, maxSize int) error {
	if name == "" {
		return coreerrors.New(coreerrors.ErrConfiguration, "object pool name is required")
	}
	if factory == nil || fallback == nil {
		return coreerrors.Newf(coreerrors.ErrConfiguration, "object pool %q requires factory and fallback", name)
	}
	if maxSize <= 0 {
		return coreerrors.Newf(coreerrors.ErrConfiguration, "object pool %q maxSize must be positive, got %d", name, maxSize)
	}

	m.poolsMu.Lock()
	defer m.poolsMu.Unlock()

	if _, exists := m.pools[name]; exists {
		return coreerrors.Newf(coreerrors.ErrConfiguration, "object pool %q already registered", name)
	}

	m.pools[name] = &objectPool{
		name:     name,
		factory:  factory,
		fallback: fallback,
		items:    make(chan any, maxSize),
	}
	return nil
}

// AcquireFrom takes an object from the named pool, constructing a new one
// when the freelist is empty. Factory failure degrades to the fallback
// constructor; only an unknown pool name is an error.
func (m *Manager) AcquireFrom(name string) (any, error) {
	m.poolsMu.Lock()
	p, ok := m.pools[name]
	m.poolsMu.Unlock()

	if !ok {
		return nil, coreerrors.Newf(coreerrors.ErrConfiguration, "object pool %q not registered", name)
	}

	select {
	case obj := <-p.items:
		return obj, nil
	default:
	}

	obj, err := p.factory()
	if err != nil {
		logger.Warn("Object pool factory failed, constructing unpooled",
			logger.KeyName, name, logger.KeyError, err)
		return p.fallback(), nil
	}
	return obj, nil
}

// ReleaseTo returns an object to the named pool. Objects released to an
// unknown or full pool are simply dropped.
func (m *Manager) ReleaseTo(name string, obj any) {
	if obj == nil {
		return
	}

	m.poolsMu.Lock()
	p, ok := m.pools[name]
	m.poolsMu.Unlock()

	if !ok {
		return
	}

	select {
	case p.items <- obj:
	default:
		// Freelist full: let the GC take it
	}
}

// pooledObjectCount returns the total number of idle objects across all
// registered pools.
func (m *Manager) pooledObjectCount() int {
	m.poolsMu.Lock()
	defer m.poolsMu.Unlock()

	n := 0
	for _, p := range m.pools {
		n += len(p.items)
	}
	return n
}
