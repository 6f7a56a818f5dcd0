package bootstrap

import (
	"errors"
	"io/fs"

	"go.uber.org/zap"

	"webbot/internal/config"
	"webbot/pkg/logg"
)

// loadBotSettings treats a missing file as empty settings. A file that
// exists but does not parse stops the app.
func loadBotSettings(conf *config.Config, logger *zap.Logger) (config.BotSettings, error) {
	path := conf.BotConfig.ConfigPath

	settings, err := config.LoadBotSettings(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Warn("Bot config file not found, continuing without settings", zap.String(logg.ConfigPath, path))

		return config.BotSettings{}, nil
	}

	if err != nil {
		return nil, err
	}

	logger.Info("Bot settings loaded", zap.String(logg.ConfigPath, path), zap.Int("keys", len(settings)))

	return settings, nil
}
