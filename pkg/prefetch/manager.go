package prefetch

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/Elpablo777/Telegram-Audio-Downloader-sub001/internal/logger"
	coreerrors "github.com/Elpablo777/Telegram-Audio-Downloader-sub001/pkg/errors"
)

// Executor performs one speculative fetch. Implementations must honor
// context cancellation so in-flight speculative work can be abandoned
// without touching foreground downloads.
type Executor interface {
	Prefetch(ctx context.Context, itemID string) error
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, itemID string) error

func (f ExecutorFunc) Prefetch(ctx context.Context, itemID string) error {
	return f(ctx, itemID)
}

// Config configures a Manager.
type Config struct {
	// QueueSize bounds the candidate queue.
	QueueSize int

	// MaxConcurrent is the concurrency ceiling for a background cycle.
	// Keep it strictly below the foreground download concurrency so
	// speculative work never competes with foreground downloads.
	MaxConcurrent int64

	// CycleInterval rate-limits RunBackgroundCycle.
	CycleInterval time.Duration

	// MinAccessCount gates group eligibility; zero means the default of 2.
	MinAccessCount uint64

	// Cached reports whether an item is already cached. Cached items are
	// never enqueued. Optional.
	Cached func(itemID string) bool
}

// task is one queued candidate.
type task struct {
	itemID     string
	enqueuedAt time.Time
}

// Manager tracks access patterns and runs the speculative fetch queue.
// Construct with New. Pattern state, queue state, and cycle state are
// guarded by separate mutexes so no two locks are ever held at once.
type Manager struct {
	cfg            Config
	minAccessCount uint64
	sem            *semaphore.Weighted
	now            func() time.Time

	patternsMu sync.Mutex
	patterns   map[string]*accessPattern

	queueMu   sync.Mutex
	queue     []task
	queued    map[string]struct{}
	attempted map[string]struct{}

	cycleMu   sync.Mutex
	lastCycle time.Time
	running   bool
}

// Stats reports manager state for diagnostics endpoints.
type Stats struct {
	Groups    int       `json:"groups"`
	Queued    int       `json:"queued"`
	Attempted int       `json:"attempted"`
	LastCycle time.Time `json:"last_cycle"`
}

// New creates a prefetch manager. Structural violations fail fast.
func New(cfg Config) (*Manager, error) {
	if cfg.QueueSize <= 0 {
		return nil, coreerrors.Newf(coreerrors.ErrConfiguration, "prefetch queue size must be positive, got %d", cfg.QueueSize)
	}
	if cfg.MaxConcurrent <= 0 {
		return nil, coreerrors.Newf(coreerrors.ErrConfiguration, "prefetch concurrency must be positive, got %d", cfg.MaxConcurrent)
	}
	if cfg.CycleInterval <= 0 {
		return nil, coreerrors.Newf(coreerrors.ErrConfiguration, "prefetch cycle interval must be positive, got %s", cfg.CycleInterval)
	}

	min := cfg.MinAccessCount
	if min == 0 {
		min = defaultMinAccessCount
	}

	return &Manager{
		cfg:            cfg,
		minAccessCount: min,
		sem:            semaphore.NewWeighted(cfg.MaxConcurrent),
		now:            time.Now,
		patterns:       make(map[string]*accessPattern),
		queued:         make(map[string]struct{}),
		attempted:      make(map[string]struct{}),
	}, nil
}

// ShouldPrefetch reports whether the manager would currently accept a
// candidate: the queue has room and at least one group has crossed the
// eligibility threshold. The download engine calls this when it has idle
// capacity.
func (m *Manager) ShouldPrefetch() bool {
	m.queueMu.Lock()
	hasRoom := len(m.queue) < m.cfg.QueueSize
	m.queueMu.Unlock()
	if !hasRoom {
		return false
	}

	m.patternsMu.Lock()
	defer m.patternsMu.Unlock()
	for groupID := range m.patterns {
		if m.groupEligibleLocked(groupID) {
			return true
		}
	}
	return false
}

// EnqueueCandidate queues an item for speculative fetching and reports
// whether it was accepted. Rejected without error when the item was
// already attempted or queued, is already cached, the group has not
// crossed the eligibility threshold, or the queue is full. The attempted
// set only grows, so each item is fetched at most once per process
// lifetime.
func (m *Manager) EnqueueCandidate(groupID, itemID string) bool {
	if itemID == "" {
		return false
	}

	m.patternsMu.Lock()
	eligible := m.groupEligibleLocked(groupID)
	m.patternsMu.Unlock()
	if !eligible {
		return false
	}

	if m.cfg.Cached != nil && m.cfg.Cached(itemID) {
		return false
	}

	m.queueMu.Lock()
	defer m.queueMu.Unlock()

	if _, done := m.attempted[itemID]; done {
		return false
	}
	if _, waiting := m.queued[itemID]; waiting {
		return false
	}
	if len(m.queue) >= m.cfg.QueueSize {
		return false
	}

	m.queue = append(m.queue, task{itemID: itemID, enqueuedAt: m.now()})
	m.queued[itemID] = struct{}{}
	logger.Debug("Prefetch candidate queued",
		logger.KeyGroup, groupID, logger.KeyItem, itemID,
		logger.KeyQueued, len(m.queue))
	return true
}

// RunBackgroundCycle drains the candidate queue through executor and
// returns how many items were attempted. It is rate-limited to one cycle
// per CycleInterval and guarded against concurrent cycles; a skipped
// invocation returns 0 immediately, so opportunistic callers never block.
//
// Failures are isolated per item: a failed fetch is logged and counted as
// attempted, and never aborts the rest of the batch.
func (m *Manager) RunBackgroundCycle(ctx context.Context, executor Executor) int {
	m.cycleMu.Lock()
	if m.running || time.Since(m.lastCycle) < m.cfg.CycleInterval {
		m.cycleMu.Unlock()
		return 0
	}
	m.running = true
	m.lastCycle = time.Now()
	m.cycleMu.Unlock()

	defer func() {
		m.cycleMu.Lock()
		m.running = false
		m.cycleMu.Unlock()
	}()

	m.queueMu.Lock()
	batch := m.queue
	m.queue = nil
	for _, t := range batch {
		delete(m.queued, t.itemID)
		m.attempted[t.itemID] = struct{}{}
	}
	m.queueMu.Unlock()

	if len(batch) == 0 {
		return 0
	}

	var wg sync.WaitGroup
	for _, t := range batch {
		if err := m.sem.Acquire(ctx, 1); err != nil {
			logger.Debug("Prefetch cycle cancelled", logger.KeyError, err)
			break
		}

		wg.Add(1)
		go func(t task) {
			defer wg.Done()
			defer m.sem.Release(1)

			start := time.Now()
			if err := executor.Prefetch(ctx, t.itemID); err != nil {
				logger.Warn("Prefetch attempt failed",
					logger.KeyItem, t.itemID,
					logger.KeyError, coreerrors.Wrap(coreerrors.ErrPrefetchItemFailed, t.itemID, err))
				return
			}
			logger.Debug("Prefetch attempt completed",
				logger.KeyItem, t.itemID,
				logger.KeyDuration, logger.Duration(start))
		}(t)
	}
	wg.Wait()

	logger.Info("Prefetch cycle finished", logger.KeyAttempted, len(batch))
	return len(batch)
}

// Stats reports queue and pattern state.
func (m *Manager) Stats() Stats {
	m.patternsMu.Lock()
	groups := len(m.patterns)
	m.patternsMu.Unlock()

	m.queueMu.Lock()
	queued := len(m.queue)
	attempted := len(m.attempted)
	m.queueMu.Unlock()

	m.cycleMu.Lock()
	last := m.lastCycle
	m.cycleMu.Unlock()

	return Stats{Groups: groups, Queued: queued, Attempted: attempted, LastCycle: last}
}
