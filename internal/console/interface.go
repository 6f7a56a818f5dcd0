package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"github.com/chzyer/readline"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"webbot/internal/config"
	"webbot/internal/interaction"
	"webbot/pkg/logg"
)

const historyFile = ".webbot-history"

var errExit = errors.New("exit")

type lineReader interface {
	Readline() (string, error)
}

type scannerReader struct {
	scanner *bufio.Scanner
}

func (r *scannerReader) Readline() (string, error) {
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return "", err
		}

		return "", io.EOF
	}

	return r.scanner.Text(), nil
}

// Interface is the interactive command line over a Bot. Commands run one at
// a time on the goroutine that called Start.
type Interface struct {
	config   *config.Config
	logger   *zap.Logger
	bot      *interaction.Bot
	settings config.BotSettings
	out      io.Writer
	rl       atomic.Pointer[readline.Instance]
	stopping atomic.Bool
}

type Params struct {
	fx.In

	Config   *config.Config
	Logger   *zap.Logger
	Bot      *interaction.Bot
	Settings config.BotSettings `optional:"true"`
}

func NewInterface(params Params) *Interface {
	return &Interface{
		config:   params.Config,
		logger:   params.Logger.With(zap.String(logg.Layer, "Console")),
		bot:      params.Bot,
		settings: params.Settings,
		out:      os.Stdout,
	}
}

// Start reads commands from stdin until exit, EOF or Stop. Piped input
// works too; readline just skips line editing.
func (i *Interface) Start(ctx context.Context) error {
	i.printBanner()
	i.printHelp()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("open readline: %w", err)
	}

	i.rl.Store(rl)
	defer rl.Close()

	return i.serve(ctx, rl)
}

// RunScript executes commands read from r, one per line, without a prompt.
// Lines starting with # are skipped.
func (i *Interface) RunScript(ctx context.Context, r io.Reader) error {
	return i.serve(ctx, &scannerReader{scanner: bufio.NewScanner(r)})
}

func (i *Interface) Stop() error {
	if !i.stopping.CompareAndSwap(false, true) {
		return nil
	}

	i.logger.Info("Stopping console interface...")

	if rl := i.rl.Load(); rl != nil {
		return rl.Close()
	}

	return nil
}

func (i *Interface) serve(ctx context.Context, r lineReader) error {
	for !i.stopping.Load() {
		if err := ctx.Err(); err != nil {
			return nil
		}

		line, err := r.Readline()
		switch {
		case errors.Is(err, readline.ErrInterrupt):
			if line == "" {
				return nil
			}

			continue
		case errors.Is(err, io.EOF):
			return nil
		case err != nil:
			if i.stopping.Load() {
				return nil
			}

			return err
		}

		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if err := i.Execute(ctx, line); err != nil {
			if errors.Is(err, errExit) {
				fmt.Fprintln(i.out, "Shutting down...")

				return nil
			}

			i.logger.Error("Command error", zap.String(logg.Command, line), zap.Error(err))
			fmt.Fprintf(i.out, "Error: %v\n", err)
		}
	}

	return nil
}

func (i *Interface) printBanner() {
	fmt.Fprintf(i.out, "\nwebbot console (browser: %s)\n", i.config.BrowserConfig.Kind)
}

func (i *Interface) printHelp() {
	help := `
Available commands:
  open <url>                                  Load a page, no wait
  click <method> <selector> [timeout]         Wait until clickable, then click
  clickjs <method> <selector> [timeout]       Same as click
  write <method> <selector> <text>            Append text to a field
  writejs <css> <text>                        Set a field value from script, no wait
  key <method> <selector> [key]               enter, esc, down, home, tab or literal text
  attr <method> <selector> [name]             Print an attribute (default value)
  find <method> <selector> [cond] [text]      Print the first match once ready
  findall <method> <selector> [cond] [text]   Print every match once ready
  wait <method> <selector> [cond] [text]      Wait without printing
  waiturl <substring> [timeout]               Wait until the URL contains substring
  sleep <seconds>                             Pause
  config <key>                                Print a bot setting
  help, h                                     Show this help message
  exit, quit, q                               Exit the application

Methods: css, id, xpath. Conditions: clickable, selected, text_in, presence, visible.
Timeouts are seconds ("5", "2.5") or durations ("500ms"). Quote arguments with spaces.
Arguments written as $name are replaced with the bot setting of that name.
`
	fmt.Fprintln(i.out, help)
}
