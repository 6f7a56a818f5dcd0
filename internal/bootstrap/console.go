package bootstrap

import (
	"context"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"webbot/internal/config"
	"webbot/internal/console"
	"webbot/internal/interaction"
	"webbot/pkg/logg"
)

type runParams struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Shutdowner fx.Shutdowner
	Config     *config.Config
	Logger     *zap.Logger
	Bot        *interaction.Bot
	Console    *console.Interface
	Tracing    *sdktrace.TracerProvider
}

// runBot launches the browser during start so a bootstrap failure aborts
// the app, then hands the session to the console on its own goroutine.
func runBot(p runParams) {
	logger := p.Logger.With(zap.String(logg.Layer, "Runner"))

	var session sessionRunner

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("Launching browser...")

			if err := p.Bot.Launch(ctx); err != nil {
				logger.Error("Failed to launch browser", zap.Error(err))

				return err
			}

			session.start(func(ctx context.Context) {
				openStartPage(ctx, p.Config.BotConfig, p.Bot, logger)

				if p.Config.BotConfig.Console {
					if err := p.Console.Start(ctx); err != nil {
						logger.Error("Console interface error", zap.Error(err))
					}
				}

				if err := p.Shutdowner.Shutdown(); err != nil {
					logger.Error("Failed to request shutdown", zap.Error(err))
				}
			})

			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := p.Console.Stop(); err != nil {
				logger.Warn("Failed to stop console", zap.Error(err))
			}

			// the Bot is single-owner: quit only once the console let go
			if err := session.stop(ctx); err != nil {
				logger.Error("Console did not finish, leaving browser to process exit", zap.Error(err))

				return err
			}

			if !p.Bot.IsReady() {
				return nil
			}

			if err := p.Bot.Quit(ctx); err != nil {
				logger.Error("Failed to close browser", zap.Error(err))
			}

			return nil
		},
	})
}

// sessionRunner runs the console session on its own goroutine and lets the
// stop hook cancel it and wait for it to return.
type sessionRunner struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func (r *sessionRunner) start(run func(ctx context.Context)) {
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.done = make(chan struct{})

	go func() {
		defer close(r.done)
		run(ctx)
	}()
}

// stop cancels the session and blocks until it returns or ctx expires. A
// runner that never started stops immediately.
func (r *sessionRunner) stop(ctx context.Context) error {
	if r.done == nil {
		return nil
	}

	r.cancel()

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func openStartPage(ctx context.Context, conf *config.BotConfig, bot *interaction.Bot, logger *zap.Logger) {
	if conf.StartURL == "" {
		return
	}

	if err := bot.LoadPage(ctx, conf.StartURL); err != nil {
		logger.Error("Failed to open start page", zap.String(logg.URL, conf.StartURL), zap.Error(err))
		return
	}

	bot.Sleep(ctx, conf.StartSleep)
}
