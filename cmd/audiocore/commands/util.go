package commands

import (
	"fmt"

	"github.com/Elpablo777/Telegram-Audio-Downloader-sub001/internal/logger"
	"github.com/Elpablo777/Telegram-Audio-Downloader-sub001/pkg/config"
)

// InitLogger initializes the global logger from the loaded configuration.
func InitLogger(cfg *config.Config) error {
	loggerCfg := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}

	if err := logger.Init(loggerCfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	return nil
}
