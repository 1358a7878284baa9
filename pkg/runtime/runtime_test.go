package runtime

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Elpablo777/Telegram-Audio-Downloader-sub001/pkg/config"
	"github.com/Elpablo777/Telegram-Audio-Downloader-sub001/pkg/prefetch"
	"github.com/Elpablo777/Telegram-Audio-Downloader-sub001/pkg/store"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.GetDefaultConfig()
	cfg.Database.Path = filepath.Join(t.TempDir(), "audiocore.db")
	cfg.Pool.MinSize = 1
	cfg.Pool.MaxSize = 2
	cfg.Memory.MaintenanceInterval = 20 * time.Millisecond
	cfg.Prefetch.CycleInterval = time.Millisecond
	return cfg
}

func newTestRuntime(t *testing.T) *Runtime {
	t.Helper()
	rt, err := New(context.Background(), testConfig(t))
	require.NoError(t, err)
	t.Cleanup(rt.Close)
	return rt
}

func TestNew(t *testing.T) {
	t.Run("ComposesComponents", func(t *testing.T) {
		rt := newTestRuntime(t)

		assert.NotNil(t, rt.Cache())
		assert.NotNil(t, rt.StorePool())
		assert.NotNil(t, rt.Memory())
		assert.NotNil(t, rt.Prefetch())
		assert.Equal(t, 1, rt.StorePool().Stats().Total)
	})

	t.Run("InvalidConfigFailsFast", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Cache.MaxSize = -1
		_, err := New(context.Background(), cfg)
		assert.Error(t, err)
	})
}

func TestWithStore(t *testing.T) {
	rt := newTestRuntime(t)
	ctx := context.Background()

	err := rt.WithStore(ctx, func(s *store.Store) error {
		_, err := s.CreateTrack(ctx, &store.Track{GroupID: "g1", FileID: "f1"})
		return err
	})
	require.NoError(t, err)

	stats := rt.StorePool().Stats()
	assert.Equal(t, stats.Total, stats.Available)
}

func TestPrefetchSkipsCachedArtifacts(t *testing.T) {
	rt := newTestRuntime(t)

	rt.Prefetch().RecordAccess("g1", ".mp3", 100)
	rt.Prefetch().RecordAccess("g1", ".mp3", 100)

	rt.Cache().Put("item-cached", "sanitized name")
	assert.False(t, rt.Prefetch().EnqueueCandidate("g1", "item-cached"))
	assert.True(t, rt.Prefetch().EnqueueCandidate("g1", "item-new"))
}

func TestStatsAggregation(t *testing.T) {
	rt := newTestRuntime(t)
	rt.Cache().Put("k", "v")

	stats, ok := rt.Stats().(Stats)
	require.True(t, ok)
	assert.Equal(t, 1, stats.Cache.Entries)
	assert.Equal(t, 1, stats.Pool.Total)
	assert.NotZero(t, stats.Memory.Budget)
}

func TestMaintenanceLoopRunsPrefetchCycles(t *testing.T) {
	rt := newTestRuntime(t)

	rt.Prefetch().RecordAccess("g1", ".mp3", 100)
	rt.Prefetch().RecordAccess("g1", ".mp3", 100)
	require.True(t, rt.Prefetch().EnqueueCandidate("g1", "item-1"))

	var runs atomic.Int32
	rt.SetPrefetchExecutor(prefetch.ExecutorFunc(func(ctx context.Context, itemID string) error {
		runs.Add(1)
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rt.Start(ctx)

	require.Eventually(t, func() bool {
		return runs.Load() == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCloseIdempotent(t *testing.T) {
	rt, err := New(context.Background(), testConfig(t))
	require.NoError(t, err)

	rt.Start(context.Background())
	rt.Close()
	rt.Close()
}
