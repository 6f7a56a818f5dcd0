package bootstrap

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"webbot/internal/config"
	"webbot/internal/console"
	"webbot/internal/driver"
	"webbot/internal/interaction"
	"webbot/internal/ports"
	"webbot/internal/wait"
)

// Browser download and first launch can take minutes on a clean machine.
const startTimeout = 5 * time.Minute

func options() fx.Option {
	return fx.Options(
		fx.Provide(
			config.GetConfig,
			newLogger,
			newTraceProvider,
			loadBotSettings,

			fx.Annotate(driver.NewProvider, fx.As(new(ports.SessionProvider))),
			wait.NewEngine,
			interaction.New,

			console.NewInterface,
		),

		fx.Invoke(
			runBot,
		),

		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.Named("fx").WithOptions(zap.IncreaseLevel(zap.WarnLevel))}
		}),

		fx.StartTimeout(startTimeout),
	)
}

func NewApp(extra ...fx.Option) *fx.App {
	return fx.New(options(), fx.Options(extra...))
}

// Run starts the app and blocks until the console exits or a signal
// arrives. A failed start, including a browser that cannot be launched, is
// fatal.
func Run() {
	var logger *zap.Logger

	app := NewApp(fx.Populate(&logger))
	if logger == nil {
		logger = zap.Must(zap.NewProduction())
	}

	startCtx, cancel := context.WithTimeout(context.Background(), app.StartTimeout())
	defer cancel()

	if err := app.Start(startCtx); err != nil {
		logger.Fatal("Bootstrap failed", zap.Error(err))
	}

	sig := <-app.Wait()
	logger.Info("Shutting down", zap.Any("signal", sig.Signal), zap.Int("exit_code", sig.ExitCode))

	stopCtx, cancelStop := context.WithTimeout(context.Background(), app.StopTimeout())
	defer cancelStop()

	if err := app.Stop(stopCtx); err != nil {
		logger.Error("Failed to stop cleanly", zap.Error(err))
	}
}
