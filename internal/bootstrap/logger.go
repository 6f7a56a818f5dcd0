package bootstrap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"webbot/internal/config"
)

const (
	consoleTimeLayout = "02/01/2006 15:04:05"
	logFileLayout     = "02-01-2006_15-04-05"
	logFileMaxSizeMB  = 1
	logFileBackups    = 5
)

func parseLevel(name string) zapcore.Level {
	switch name {
	case "debug":
		return zap.DebugLevel
	case "warn":
		return zap.WarnLevel
	case "error":
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}

func newLogger(lc fx.Lifecycle, conf *config.Config) (*zap.Logger, error) {
	logger, err := buildLogger(conf.AppConfig, time.Now())
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			_ = logger.Sync()
			return nil
		},
	})

	return logger, nil
}

// buildLogger writes colored lines to stderr and, with LOG_TO_FILE, JSON
// lines to a size-rotated file named after the start time.
func buildLogger(app *config.AppConfig, startedAt time.Time) (*zap.Logger, error) {
	level := zap.NewAtomicLevelAt(parseLevel(app.LogLevel))

	var consoleEncoderConfig zapcore.EncoderConfig
	if app.Debug {
		consoleEncoderConfig = zap.NewDevelopmentEncoderConfig()
	} else {
		consoleEncoderConfig = zap.NewProductionEncoderConfig()
	}

	consoleEncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	consoleEncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(consoleTimeLayout)

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleEncoderConfig), zapcore.Lock(os.Stderr), level),
	}

	if app.LogToFile {
		if err := os.MkdirAll(app.LogDir, 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}

		fileEncoderConfig := zap.NewProductionEncoderConfig()
		fileEncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

		writer := &lumberjack.Logger{
			Filename:   logFilePath(app.LogDir, startedAt),
			MaxSize:    logFileMaxSizeMB,
			MaxBackups: logFileBackups,
		}

		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(fileEncoderConfig), zapcore.AddSync(writer), level))
	}

	opts := []zap.Option{zap.AddCaller()}
	if app.Debug {
		opts = append(opts, zap.Development())
	}

	return zap.New(zapcore.NewTee(cores...), opts...), nil
}

func logFilePath(dir string, startedAt time.Time) string {
	return filepath.Join(dir, "log_"+startedAt.Format(logFileLayout)+".log")
}
