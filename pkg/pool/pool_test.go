package pool

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreerrors "github.com/Elpablo777/Telegram-Audio-Downloader-sub001/pkg/errors"
)

// counterFactory returns a factory producing sequential ints and the
// counter it increments.
func counterFactory() (Factory[int], *atomic.Int32) {
	var n atomic.Int32
	return func(ctx context.Context) (int, error) {
		return int(n.Add(1)), nil
	}, &n
}

// ============================================================================
// Construction
// ============================================================================

func TestNewPool(t *testing.T) {
	ctx := context.Background()

	t.Run("RejectsNilFactory", func(t *testing.T) {
		_, err := New(ctx, Config[int]{MinSize: 1, MaxSize: 2, AcquireTimeout: time.Second})
		require.Error(t, err)
		assert.True(t, coreerrors.IsCode(err, coreerrors.ErrConfiguration))
	})

	t.Run("RejectsInvalidSizes", func(t *testing.T) {
		factory, _ := counterFactory()
		_, err := New(ctx, Config[int]{Factory: factory, MinSize: -1, MaxSize: 2})
		assert.True(t, coreerrors.IsCode(err, coreerrors.ErrConfiguration))

		_, err = New(ctx, Config[int]{Factory: factory, MinSize: 0, MaxSize: 0})
		assert.True(t, coreerrors.IsCode(err, coreerrors.ErrConfiguration))

		_, err = New(ctx, Config[int]{Factory: factory, MinSize: 5, MaxSize: 2})
		assert.True(t, coreerrors.IsCode(err, coreerrors.ErrConfiguration))
	})

	t.Run("RejectsNegativeTimeout", func(t *testing.T) {
		factory, _ := counterFactory()
		_, err := New(ctx, Config[int]{Factory: factory, MinSize: 0, MaxSize: 2, AcquireTimeout: -time.Second})
		assert.True(t, coreerrors.IsCode(err, coreerrors.ErrConfiguration))
	})

	t.Run("WarmsUpToMinSize", func(t *testing.T) {
		factory, created := counterFactory()
		p, err := New(ctx, Config[int]{Factory: factory, MinSize: 3, MaxSize: 5, AcquireTimeout: time.Second})
		require.NoError(t, err)
		defer p.CloseAll()

		assert.Equal(t, int32(3), created.Load())
		stats := p.Stats()
		assert.Equal(t, 3, stats.Total)
		assert.Equal(t, 3, stats.Available)
		assert.Equal(t, 0, stats.InUse)
	})

	t.Run("WarmUpFailuresShrinkInitialPool", func(t *testing.T) {
		var n atomic.Int32
		factory := func(ctx context.Context) (int, error) {
			if n.Add(1)%2 == 0 {
				return 0, fmt.Errorf("flaky")
			}
			return int(n.Load()), nil
		}

		p, err := New(ctx, Config[int]{Factory: factory, MinSize: 4, MaxSize: 8, AcquireTimeout: time.Second})
		require.NoError(t, err)
		defer p.CloseAll()

		// Every second creation failed; pool starts smaller than MinSize
		assert.Equal(t, 2, p.Stats().Total)
	})
}

// ============================================================================
// Acquire / Release
// ============================================================================

func TestAcquire(t *testing.T) {
	ctx := context.Background()

	t.Run("GrowsOnDemandUpToMax", func(t *testing.T) {
		factory, _ := counterFactory()
		p, err := New(ctx, Config[int]{Factory: factory, MinSize: 0, MaxSize: 3, AcquireTimeout: 50 * time.Millisecond})
		require.NoError(t, err)
		defer p.CloseAll()

		var resources []*Resource[int]
		for i := 0; i < 3; i++ {
			r, err := p.Acquire(ctx)
			require.NoError(t, err)
			resources = append(resources, r)
		}

		stats := p.Stats()
		assert.Equal(t, 3, stats.Total)
		assert.Equal(t, 3, stats.InUse)

		for _, r := range resources {
			r.Release()
		}
	})

	t.Run("SaturatedAcquireTimesOut", func(t *testing.T) {
		// acquire 5 concurrently, 6th fails with PoolExhausted,
		// releasing one lets the 6th succeed
		factory, _ := counterFactory()
		p, err := New(ctx, Config[int]{Factory: factory, MinSize: 2, MaxSize: 5, AcquireTimeout: 100 * time.Millisecond})
		require.NoError(t, err)
		defer p.CloseAll()

		var mu sync.Mutex
		var held []*Resource[int]
		var wg sync.WaitGroup
		for i := 0; i < 5; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				r, err := p.Acquire(ctx)
				require.NoError(t, err)
				mu.Lock()
				held = append(held, r)
				mu.Unlock()
			}()
		}
		wg.Wait()

		_, err = p.Acquire(ctx)
		require.Error(t, err)
		assert.True(t, coreerrors.IsCode(err, coreerrors.ErrPoolExhausted))

		// Free a slot in the background while the next acquire blocks
		go func() {
			time.Sleep(20 * time.Millisecond)
			mu.Lock()
			held[0].Release()
			mu.Unlock()
		}()

		r, err := p.Acquire(ctx)
		require.NoError(t, err)
		r.Release()

		mu.Lock()
		for _, r := range held[1:] {
			r.Release()
		}
		mu.Unlock()
	})

	t.Run("RespectsContextCancellation", func(t *testing.T) {
		factory, _ := counterFactory()
		p, err := New(ctx, Config[int]{Factory: factory, MinSize: 0, MaxSize: 1, AcquireTimeout: 10 * time.Second})
		require.NoError(t, err)
		defer p.CloseAll()

		r, err := p.Acquire(ctx)
		require.NoError(t, err)
		defer r.Release()

		cancelCtx, cancel := context.WithCancel(ctx)
		go func() {
			time.Sleep(20 * time.Millisecond)
			cancel()
		}()

		_, err = p.Acquire(cancelCtx)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("CreationFailureRetriedOnceThenSurfaced", func(t *testing.T) {
		var calls atomic.Int32
		factory := func(ctx context.Context) (int, error) {
			calls.Add(1)
			return 0, fmt.Errorf("db unavailable")
		}

		p, err := New(ctx, Config[int]{Factory: factory, MinSize: 0, MaxSize: 2, AcquireTimeout: time.Second})
		require.NoError(t, err)
		defer p.CloseAll()

		_, err = p.Acquire(ctx)
		require.Error(t, err)
		assert.True(t, coreerrors.IsCode(err, coreerrors.ErrCreationFailed))
		assert.Equal(t, int32(2), calls.Load())

		// Failed creation must not leak the reserved slot
		assert.Equal(t, 0, p.Stats().Total)
	})

	t.Run("ReleaseIsIdempotent", func(t *testing.T) {
		factory, _ := counterFactory()
		p, err := New(ctx, Config[int]{Factory: factory, MinSize: 1, MaxSize: 2, AcquireTimeout: time.Second})
		require.NoError(t, err)
		defer p.CloseAll()

		r, err := p.Acquire(ctx)
		require.NoError(t, err)
		r.Release()
		r.Release()

		stats := p.Stats()
		assert.Equal(t, stats.Total, stats.Available)
		assert.Equal(t, 0, stats.InUse)
	})
}

// ============================================================================
// Health Check
// ============================================================================

func TestHealthCheck(t *testing.T) {
	ctx := context.Background()

	t.Run("UnhealthyResourceDiscardedOnRelease", func(t *testing.T) {
		factory, _ := counterFactory()
		var closed atomic.Int32
		p, err := New(ctx, Config[int]{
			Factory:        factory,
			Close:          func(int) error { closed.Add(1); return nil },
			Check:          func(int) bool { return false },
			MinSize:        0,
			MaxSize:        2,
			AcquireTimeout: time.Second,
		})
		require.NoError(t, err)
		defer p.CloseAll()

		r, err := p.Acquire(ctx)
		require.NoError(t, err)
		r.Release()

		assert.Equal(t, int32(1), closed.Load())
		assert.Equal(t, 0, p.Stats().Total)
	})

	t.Run("HealthyResourceRecycled", func(t *testing.T) {
		factory, created := counterFactory()
		p, err := New(ctx, Config[int]{
			Factory:        factory,
			Check:          func(int) bool { return true },
			MinSize:        0,
			MaxSize:        2,
			AcquireTimeout: time.Second,
		})
		require.NoError(t, err)
		defer p.CloseAll()

		r, err := p.Acquire(ctx)
		require.NoError(t, err)
		first := r.Value
		r.Release()

		r, err = p.Acquire(ctx)
		require.NoError(t, err)
		assert.Equal(t, first, r.Value)
		assert.Equal(t, int32(1), created.Load())
		r.Release()
	})
}

// ============================================================================
// Idle Reclamation
// ============================================================================

func TestReclaimIdle(t *testing.T) {
	ctx := context.Background()

	t.Run("ReclaimsToMinSizeExactly", func(t *testing.T) {
		factory, _ := counterFactory()
		p, err := New(ctx, Config[int]{Factory: factory, MinSize: 2, MaxSize: 6, AcquireTimeout: time.Second})
		require.NoError(t, err)
		defer p.CloseAll()

		// Grow to 5, then release everything
		var resources []*Resource[int]
		for i := 0; i < 5; i++ {
			r, err := p.Acquire(ctx)
			require.NoError(t, err)
			resources = append(resources, r)
		}
		for _, r := range resources {
			r.Release()
		}
		require.Equal(t, 5, p.Stats().Total)

		// All idle beyond the timeout: reclaim down then refill to min
		time.Sleep(20 * time.Millisecond)
		p.ReclaimIdle(ctx, 10*time.Millisecond)

		stats := p.Stats()
		assert.Equal(t, 2, stats.Total)
		assert.Equal(t, 2, stats.Available)
	})

	t.Run("FreshResourcesSurviveReclamation", func(t *testing.T) {
		factory, _ := counterFactory()
		p, err := New(ctx, Config[int]{Factory: factory, MinSize: 0, MaxSize: 4, AcquireTimeout: time.Second})
		require.NoError(t, err)
		defer p.CloseAll()

		r, err := p.Acquire(ctx)
		require.NoError(t, err)
		r.Release()

		p.ReclaimIdle(ctx, time.Hour)
		assert.Equal(t, 1, p.Stats().Total)
	})

	t.Run("InUseResourcesNeverReclaimed", func(t *testing.T) {
		factory, _ := counterFactory()
		p, err := New(ctx, Config[int]{Factory: factory, MinSize: 0, MaxSize: 2, AcquireTimeout: time.Second})
		require.NoError(t, err)
		defer p.CloseAll()

		r, err := p.Acquire(ctx)
		require.NoError(t, err)

		p.ReclaimIdle(ctx, 0)
		assert.Equal(t, 1, p.Stats().InUse)
		r.Release()
	})
}

// ============================================================================
// Invariants
// ============================================================================

func TestPoolInvariants(t *testing.T) {
	ctx := context.Background()
	factory, _ := counterFactory()
	p, err := New(ctx, Config[int]{Factory: factory, MinSize: 2, MaxSize: 8, AcquireTimeout: 200 * time.Millisecond})
	require.NoError(t, err)
	defer p.CloseAll()

	var wg sync.WaitGroup
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				err := p.WithResource(ctx, func(int) error { return nil })
				if err != nil {
					// PoolExhausted is acceptable under contention
					require.True(t, coreerrors.IsCode(err, coreerrors.ErrPoolExhausted))
				}
			}
		}()
	}
	wg.Wait()

	stats := p.Stats()
	assert.Equal(t, stats.Total, stats.Available+stats.InUse)
	assert.LessOrEqual(t, stats.Total, 8)
	assert.Equal(t, 0, stats.InUse)
}

// ============================================================================
// Shutdown
// ============================================================================

func TestCloseAll(t *testing.T) {
	ctx := context.Background()
	factory, _ := counterFactory()
	var closed atomic.Int32

	p, err := New(ctx, Config[int]{
		Factory:        factory,
		Close:          func(int) error { closed.Add(1); return nil },
		MinSize:        2,
		MaxSize:        4,
		AcquireTimeout: time.Second,
	})
	require.NoError(t, err)

	held, err := p.Acquire(ctx)
	require.NoError(t, err)

	p.CloseAll()

	// Idle resources closed immediately
	assert.Equal(t, int32(1), closed.Load())

	// Acquire after close fails
	_, err = p.Acquire(ctx)
	assert.True(t, coreerrors.IsCode(err, coreerrors.ErrClosed))

	// In-use resource closed on release
	held.Release()
	assert.Equal(t, int32(2), closed.Load())
	assert.Equal(t, 0, p.Stats().Total)
}
