package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Elpablo777/Telegram-Audio-Downloader-sub001/internal/logger"
	"github.com/Elpablo777/Telegram-Audio-Downloader-sub001/pkg/config"
	"github.com/Elpablo777/Telegram-Audio-Downloader-sub001/pkg/runtime"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the audiocore service",
	Long: `Start the audiocore service with the specified configuration.

The service runs in the foreground until interrupted. Use --config to
specify a custom configuration file, or it will use the default location
at $XDG_CONFIG_HOME/audiocore/config.yaml.

Examples:
  # Start with the default config
  audiocore start

  # Start with a custom config file
  audiocore start --config /etc/audiocore/config.yaml

  # Start with environment variable overrides
  AUDIOCORE_LOGGING_LEVEL=DEBUG audiocore start`,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rt, err := runtime.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	rt.Start(ctx)

	// Hot-reload the logging section on config file edits
	configPath := GetConfigFile()
	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}
	go func() {
		if err := config.WatchLogging(ctx, configPath); err != nil {
			logger.Warn("Config watcher stopped", logger.KeyError, err)
		}
	}()

	logger.Info("Audiocore started",
		"version", Version,
		"api_enabled", cfg.API.Enabled,
		"metrics_enabled", cfg.Metrics.Enabled,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	logger.Info("Shutdown signal received", "signal", sig.String())
	cancel()
	return nil
}
