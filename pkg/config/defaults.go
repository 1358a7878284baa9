package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Elpablo777/Telegram-Audio-Downloader-sub001/internal/bytesize"
	"github.com/Elpablo777/Telegram-Audio-Downloader-sub001/pkg/api"
	"github.com/Elpablo777/Telegram-Audio-Downloader-sub001/pkg/store"
)

// GetDefaultConfig returns a configuration with every field defaulted.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults sets default values for any unspecified configuration
// fields. Zero values are replaced; explicit values are preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyShutdownTimeoutDefaults(cfg)
	applyDatabaseDefaults(&cfg.Database)
	applyAPIDefaults(&cfg.API)
	applyCacheDefaults(&cfg.Cache)
	applyPoolDefaults(&cfg.Pool)
	applyMemoryDefaults(&cfg.Memory)
	applyPrefetchDefaults(&cfg.Prefetch)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyShutdownTimeoutDefaults(cfg *Config) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

func applyDatabaseDefaults(cfg *store.Config) {
	if cfg.Path == "" {
		configDir := os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			homeDir, _ := os.UserHomeDir()
			configDir = filepath.Join(homeDir, ".config")
		}
		cfg.Path = filepath.Join(configDir, "audiocore", "audiocore.db")
	}
}

func applyAPIDefaults(cfg *api.Config) {
	// Enabled defaults to false (the core works headless)
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 60 * time.Second
	}
}

func applyCacheDefaults(cfg *CacheConfig) {
	if cfg.MaxSize == 0 {
		cfg.MaxSize = 1024
	}
	if cfg.TTL == 0 {
		cfg.TTL = time.Hour
	}
}

func applyPoolDefaults(cfg *PoolConfig) {
	if cfg.MinSize == 0 {
		cfg.MinSize = 2
	}
	if cfg.MaxSize == 0 {
		cfg.MaxSize = 8
	}
	if cfg.AcquireTimeout == 0 {
		cfg.AcquireTimeout = 5 * time.Second
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 5 * time.Minute
	}
}

func applyMemoryDefaults(cfg *MemoryConfig) {
	if cfg.Budget == 0 {
		cfg.Budget = 512 * bytesize.MB
	}
	if cfg.MaxMappedFiles == 0 {
		cfg.MaxMappedFiles = 16
	}
	if cfg.MaintenanceInterval == 0 {
		cfg.MaintenanceInterval = 30 * time.Second
	}
}

func applyPrefetchDefaults(cfg *PrefetchConfig) {
	if cfg.QueueSize == 0 {
		cfg.QueueSize = 64
	}
	if cfg.MaxConcurrent == 0 {
		cfg.MaxConcurrent = 2
	}
	if cfg.CycleInterval == 0 {
		cfg.CycleInterval = time.Minute
	}
	if cfg.MinAccessCount == 0 {
		cfg.MinAccessCount = 2
	}
	if cfg.PatternMaxAge == 0 {
		cfg.PatternMaxAge = 24 * time.Hour
	}
}
