// Package config loads and validates the audiocore configuration.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (AUDIOCORE_*)
//  2. Configuration file (YAML)
//  3. Default values
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/Elpablo777/Telegram-Audio-Downloader-sub001/internal/bytesize"
	"github.com/Elpablo777/Telegram-Audio-Downloader-sub001/pkg/api"
	"github.com/Elpablo777/Telegram-Audio-Downloader-sub001/pkg/store"
)

// Config represents the audiocore configuration.
//
// It covers the four core components (cache, pool, memory, prefetch), the
// metadata database they sit on, and the ambient concerns (logging,
// metrics, the stats API).
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`

	// Database configures the SQLite metadata store pooled by the
	// resource pool.
	Database store.Config `mapstructure:"database" yaml:"database"`

	// Metrics contains Prometheus metrics configuration
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// API contains the stats/health HTTP server configuration
	API api.Config `mapstructure:"api" yaml:"api"`

	// Cache configures the artifact cache
	Cache CacheConfig `mapstructure:"cache" yaml:"cache"`

	// Pool configures the metadata store connection pool
	Pool PoolConfig `mapstructure:"pool" yaml:"pool"`

	// Memory configures the adaptive memory manager
	Memory MemoryConfig `mapstructure:"memory" yaml:"memory"`

	// Prefetch configures the speculative download scheduler
	Prefetch PrefetchConfig `mapstructure:"prefetch" yaml:"prefetch"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// MetricsConfig configures Prometheus metrics collection.
// When Enabled is false, no metrics are collected (zero overhead).
type MetricsConfig struct {
	// Enabled controls whether metrics collection is enabled
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// CacheConfig configures the artifact cache.
type CacheConfig struct {
	// MaxSize is the entry capacity. Required, must be positive.
	MaxSize int `mapstructure:"max_size" validate:"required,gt=0" yaml:"max_size"`

	// TTL is the per-entry time to live, measured from last access.
	// Zero disables expiry.
	TTL time.Duration `mapstructure:"ttl" validate:"gte=0" yaml:"ttl"`
}

// PoolConfig configures the metadata store connection pool.
type PoolConfig struct {
	// MinSize connections are opened eagerly and maintained by
	// reclamation.
	// Default: 2
	MinSize int `mapstructure:"min_size" validate:"gte=0" yaml:"min_size"`

	// MaxSize bounds the total connection count.
	// Default: 8
	MaxSize int `mapstructure:"max_size" validate:"required,gt=0,gtefield=MinSize" yaml:"max_size"`

	// AcquireTimeout bounds how long a saturated acquire blocks.
	// Default: 5s
	AcquireTimeout time.Duration `mapstructure:"acquire_timeout" validate:"gt=0" yaml:"acquire_timeout"`

	// IdleTimeout is the age beyond which idle connections are reclaimed.
	// Default: 5m
	IdleTimeout time.Duration `mapstructure:"idle_timeout" validate:"gt=0" yaml:"idle_timeout"`
}

// MemoryConfig configures the adaptive memory manager.
type MemoryConfig struct {
	// Budget is the process memory budget the pressure thresholds derive
	// from. Supports human-readable formats: "512MB", "1Gi".
	// Default: 512MB
	Budget bytesize.ByteSize `mapstructure:"budget" yaml:"budget"`

	// MaxMappedFiles bounds the number of simultaneously mapped files.
	// Default: 16
	MaxMappedFiles int `mapstructure:"max_mapped_files" validate:"gt=0" yaml:"max_mapped_files"`

	// MaintenanceInterval rate-limits maintenance passes.
	// Default: 30s
	MaintenanceInterval time.Duration `mapstructure:"maintenance_interval" validate:"gt=0" yaml:"maintenance_interval"`
}

// PrefetchConfig configures the speculative download scheduler.
type PrefetchConfig struct {
	// QueueSize bounds the candidate queue.
	// Default: 64
	QueueSize int `mapstructure:"queue_size" validate:"gt=0" yaml:"queue_size"`

	// MaxConcurrent is the background fetch concurrency ceiling. Keep it
	// below the foreground download concurrency.
	// Default: 2
	MaxConcurrent int64 `mapstructure:"max_concurrent" validate:"gt=0" yaml:"max_concurrent"`

	// CycleInterval rate-limits background cycles.
	// Default: 1m
	CycleInterval time.Duration `mapstructure:"cycle_interval" validate:"gt=0" yaml:"cycle_interval"`

	// MinAccessCount is the per-group eligibility threshold.
	// Default: 2
	MinAccessCount uint64 `mapstructure:"min_access_count" yaml:"min_access_count"`

	// PatternMaxAge is the age beyond which idle group patterns are
	// swept.
	// Default: 24h
	PatternMaxAge time.Duration `mapstructure:"pattern_max_age" validate:"gt=0" yaml:"pattern_max_age"`
}

// Load loads configuration from file, environment, and defaults.
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	configFileFound, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	if !configFileFound {
		cfg := GetDefaultConfig()
		return cfg, nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration with helpful error messages when the
// config file is missing.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"Please initialize a configuration file first:\n"+
				"  audiocore init\n\n"+
				"Or specify a custom config file:\n"+
				"  audiocore <command> --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration file not found: %s\n\n"+
				"Please create the configuration file:\n"+
				"  audiocore init --config %s",
				configPath, configPath)
		}
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to the specified file path in YAML.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// setupViper configures environment variable and config file handling.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use the AUDIOCORE_ prefix and underscores
	// Example: AUDIOCORE_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("AUDIOCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default location: $XDG_CONFIG_HOME/audiocore/config.yaml
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
// Returns (fileFound, error).
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}

	return true, nil
}

// configDecodeHooks returns a combined decode hook for all custom types.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeDecodeHook(),
		durationDecodeHook(),
	)
}

// byteSizeDecodeHook converts strings and integers to bytesize.ByteSize,
// so config files can use human-readable sizes like "1Gi" or "500MB".
func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return bytesize.ParseByteSize(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		case uint64:
			return bytesize.ByteSize(v), nil
		case float64:
			// YAML often deserializes numbers as float64
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

// durationDecodeHook converts strings to time.Duration, so config files
// can use human-readable durations like "30s" or "5m".
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			// Assume nanoseconds for raw integers
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to the
// current directory if the home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "audiocore")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "audiocore")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists checks if a config file exists at the default location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for the
// init command).
func GetConfigDir() string {
	return getConfigDir()
}
