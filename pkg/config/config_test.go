package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Elpablo777/Telegram-Audio-Downloader-sub001/internal/bytesize"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// ============================================================================
// Defaults
// ============================================================================

func TestGetDefaultConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 1024, cfg.Cache.MaxSize)
	assert.Equal(t, 2, cfg.Pool.MinSize)
	assert.Equal(t, 8, cfg.Pool.MaxSize)
	assert.Equal(t, 512*bytesize.MB, cfg.Memory.Budget)
	assert.Equal(t, 16, cfg.Memory.MaxMappedFiles)
	assert.Equal(t, 64, cfg.Prefetch.QueueSize)
	assert.Equal(t, int64(2), cfg.Prefetch.MaxConcurrent)
	assert.NotEmpty(t, cfg.Database.Path)

	require.NoError(t, Validate(cfg))
}

func TestApplyDefaultsPreservesExplicitValues(t *testing.T) {
	cfg := &Config{}
	cfg.Logging.Level = "debug"
	cfg.Cache.MaxSize = 7
	cfg.Pool.MaxSize = 3

	ApplyDefaults(cfg)

	assert.Equal(t, "DEBUG", cfg.Logging.Level)
	assert.Equal(t, 7, cfg.Cache.MaxSize)
	assert.Equal(t, 3, cfg.Pool.MaxSize)
}

// ============================================================================
// Load
// ============================================================================

func TestLoad(t *testing.T) {
	t.Run("MissingFileUsesDefaults", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		require.NoError(t, err)
		assert.Equal(t, GetDefaultConfig(), cfg)
	})

	t.Run("ParsesHumanReadableValues", func(t *testing.T) {
		path := writeConfig(t, `
logging:
  level: debug
cache:
  max_size: 256
  ttl: 15m
memory:
  budget: 1Gi
  maintenance_interval: 45s
prefetch:
  max_concurrent: 3
`)
		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, "DEBUG", cfg.Logging.Level)
		assert.Equal(t, 256, cfg.Cache.MaxSize)
		assert.Equal(t, 15*time.Minute, cfg.Cache.TTL)
		assert.Equal(t, bytesize.GiB, cfg.Memory.Budget)
		assert.Equal(t, 45*time.Second, cfg.Memory.MaintenanceInterval)
		assert.Equal(t, int64(3), cfg.Prefetch.MaxConcurrent)
		// Untouched sections still get defaults
		assert.Equal(t, 8, cfg.Pool.MaxSize)
	})

	t.Run("EnvironmentOverrides", func(t *testing.T) {
		path := writeConfig(t, "logging:\n  level: info\n")
		t.Setenv("AUDIOCORE_LOGGING_LEVEL", "ERROR")

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "ERROR", cfg.Logging.Level)
	})

	t.Run("InvalidYAMLFails", func(t *testing.T) {
		path := writeConfig(t, "logging: [not a map\n")
		_, err := Load(path)
		assert.Error(t, err)
	})
}

func TestMustLoad(t *testing.T) {
	t.Run("MissingExplicitFileFails", func(t *testing.T) {
		_, err := MustLoad(filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "audiocore init")
	})

	t.Run("LoadsExistingFile", func(t *testing.T) {
		path := writeConfig(t, "logging:\n  level: warn\n")
		cfg, err := MustLoad(path)
		require.NoError(t, err)
		assert.Equal(t, "WARN", cfg.Logging.Level)
	})
}

func TestSaveConfigRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	cfg := GetDefaultConfig()
	cfg.Logging.Level = "DEBUG"
	cfg.Cache.MaxSize = 99
	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "DEBUG", loaded.Logging.Level)
	assert.Equal(t, 99, loaded.Cache.MaxSize)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

// ============================================================================
// Validation
// ============================================================================

func TestValidate(t *testing.T) {
	valid := func() *Config { return GetDefaultConfig() }

	t.Run("AcceptsDefaults", func(t *testing.T) {
		assert.NoError(t, Validate(valid()))
	})

	t.Run("RejectsBadLogLevel", func(t *testing.T) {
		cfg := valid()
		cfg.Logging.Level = "verbose"
		err := Validate(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "logging.level")
	})

	t.Run("RejectsZeroCacheSize", func(t *testing.T) {
		cfg := valid()
		cfg.Cache.MaxSize = 0
		assert.Error(t, Validate(cfg))
	})

	t.Run("RejectsMinAboveMax", func(t *testing.T) {
		cfg := valid()
		cfg.Pool.MinSize = 10
		cfg.Pool.MaxSize = 3
		assert.Error(t, Validate(cfg))
	})

	t.Run("RejectsZeroBudget", func(t *testing.T) {
		cfg := valid()
		cfg.Memory.Budget = 0
		assert.Error(t, Validate(cfg))
	})

	t.Run("RejectsEmptyDatabasePath", func(t *testing.T) {
		cfg := valid()
		cfg.Database.Path = ""
		assert.Error(t, Validate(cfg))
	})

	t.Run("RejectsBadAPIPort", func(t *testing.T) {
		cfg := valid()
		cfg.API.Port = 70000
		assert.Error(t, Validate(cfg))
	})
}
