package console

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"
	"go.uber.org/zap"

	"webbot/internal/condition"
	"webbot/internal/locator"
	"webbot/pkg/logg"
)

var errUsage = errors.New("usage")

// maxTimeoutSeconds is the largest whole-second count a time.Duration holds.
const maxTimeoutSeconds = math.MaxInt64 / int64(time.Second)

type usageError struct {
	usage string
}

func (e *usageError) Error() string {
	return "usage: " + e.usage
}

func (e *usageError) Unwrap() error {
	return errUsage
}

func usage(format string) error {
	return &usageError{usage: format}
}

// Execute runs one command line. Unknown commands print the help text.
func (i *Interface) Execute(ctx context.Context, line string) error {
	args, err := shellquote.Split(line)
	if err != nil {
		return fmt.Errorf("parse %q: %w", line, err)
	}

	if len(args) == 0 {
		return nil
	}

	args, err = i.expand(args)
	if err != nil {
		return err
	}

	cmd, rest := strings.ToLower(args[0]), args[1:]
	i.logger.Debug("Running command", zap.String(logg.Command, cmd), zap.Int("args", len(rest)))

	switch cmd {
	case "help", "h":
		i.printHelp()
		return nil
	case "exit", "quit", "q":
		return errExit
	case "open":
		return i.open(ctx, rest)
	case "click", "clickjs":
		return i.click(ctx, cmd, rest)
	case "write":
		return i.write(ctx, rest)
	case "writejs":
		return i.writeJS(ctx, rest)
	case "key":
		return i.key(ctx, rest)
	case "attr":
		return i.attr(ctx, rest)
	case "find", "findall", "wait":
		return i.find(ctx, cmd, rest)
	case "waiturl":
		return i.waitURL(ctx, rest)
	case "sleep":
		return i.sleep(ctx, rest)
	case "config":
		return i.lookupSetting(rest)
	default:
		fmt.Fprintf(i.out, "Unknown command %q\n", cmd)
		i.printHelp()

		return nil
	}
}

// expand replaces $name arguments with bot settings.
func (i *Interface) expand(args []string) ([]string, error) {
	out := make([]string, len(args))
	for n, arg := range args {
		if len(arg) < 2 || !strings.HasPrefix(arg, "$") {
			out[n] = arg
			continue
		}

		v, ok := i.settings.Lookup(arg[1:])
		if !ok {
			return nil, fmt.Errorf("bot setting %q not found", arg[1:])
		}

		out[n] = v
	}

	return out, nil
}

func (i *Interface) open(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("open <url>")
	}

	return i.bot.LoadPage(ctx, args[0])
}

func (i *Interface) click(ctx context.Context, cmd string, args []string) error {
	if len(args) < 2 || len(args) > 3 {
		return usage(cmd + " <method> <selector> [timeout]")
	}

	loc, err := locator.Resolve(args[0], args[1])
	if err != nil {
		return err
	}

	timeout, err := optionalTimeout(args, 2)
	if err != nil {
		return err
	}

	if cmd == "clickjs" {
		err = i.bot.ClickJS(ctx, loc, timeout)
	} else {
		err = i.bot.Click(ctx, loc, timeout)
	}

	if err != nil {
		return err
	}

	fmt.Fprintln(i.out, "clicked")

	return nil
}

func (i *Interface) write(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return usage("write <method> <selector> <text>")
	}

	loc, err := locator.Resolve(args[0], args[1])
	if err != nil {
		return err
	}

	return i.bot.Write(ctx, loc, args[2], 0)
}

func (i *Interface) writeJS(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return usage("writejs <css> <text>")
	}

	return i.bot.WriteJS(ctx, args[0], args[1])
}

func (i *Interface) key(ctx context.Context, args []string) error {
	if len(args) < 2 || len(args) > 3 {
		return usage("key <method> <selector> [key]")
	}

	loc, err := locator.Resolve(args[0], args[1])
	if err != nil {
		return err
	}

	keyName := ""
	if len(args) == 3 {
		keyName = args[2]
	}

	return i.bot.Key(ctx, loc, keyName, 0)
}

func (i *Interface) attr(ctx context.Context, args []string) error {
	if len(args) < 2 || len(args) > 3 {
		return usage("attr <method> <selector> [name]")
	}

	loc, err := locator.Resolve(args[0], args[1])
	if err != nil {
		return err
	}

	name := ""
	if len(args) == 3 {
		name = args[2]
	}

	value, err := i.bot.GetAttribute(ctx, loc, name, 0)
	if err != nil {
		return err
	}

	fmt.Fprintln(i.out, value)

	return nil
}

func (i *Interface) find(ctx context.Context, cmd string, args []string) error {
	if len(args) < 2 || len(args) > 4 {
		return usage(cmd + " <method> <selector> [condition] [text]")
	}

	loc, err := locator.Resolve(args[0], args[1])
	if err != nil {
		return err
	}

	var cond condition.Condition
	if len(args) >= 3 {
		if cond, err = condition.Parse(args[2]); err != nil {
			return err
		}
	}

	text := ""
	if len(args) == 4 {
		text = args[3]
	}

	switch cmd {
	case "wait":
		if err := i.bot.WaitFor(ctx, loc, 0, cond, text); err != nil {
			return err
		}

		fmt.Fprintln(i.out, "ready")
	case "findall":
		els, err := i.bot.FindAll(ctx, loc, 0, cond, text)
		if err != nil {
			return err
		}

		fmt.Fprintf(i.out, "%d element(s)\n", len(els))

		for n, el := range els {
			content, err := el.Text()
			if err != nil {
				content = "<" + err.Error() + ">"
			}

			fmt.Fprintf(i.out, "  [%d] %s\n", n, content)
		}
	default:
		el, err := i.bot.Find(ctx, loc, 0, cond, text)
		if err != nil {
			return err
		}

		content, err := el.Text()
		if err != nil {
			return err
		}

		fmt.Fprintln(i.out, content)
	}

	return nil
}

func (i *Interface) waitURL(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return usage("waiturl <substring> [timeout]")
	}

	timeout, err := optionalTimeout(args, 1)
	if err != nil {
		return err
	}

	if err := i.bot.WaitForURL(ctx, args[0], timeout); err != nil {
		return err
	}

	fmt.Fprintln(i.out, "ready")

	return nil
}

func (i *Interface) sleep(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("sleep <seconds>")
	}

	d, err := parseTimeout(args[0])
	if err != nil {
		return err
	}

	i.bot.Sleep(ctx, d)

	return nil
}

func (i *Interface) lookupSetting(args []string) error {
	if len(args) != 1 {
		return usage("config <key>")
	}

	v, ok := i.settings.Lookup(args[0])
	if !ok {
		return fmt.Errorf("bot setting %q not found", args[0])
	}

	fmt.Fprintln(i.out, v)

	return nil
}

func optionalTimeout(args []string, idx int) (time.Duration, error) {
	if len(args) <= idx {
		return 0, nil
	}

	return parseTimeout(args[idx])
}

// parseTimeout reads bare numbers as seconds, anything else as a Go
// duration.
func parseTimeout(s string) (time.Duration, error) {
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		if secs < 0 {
			return 0, fmt.Errorf("negative timeout %q", s)
		}

		if secs > float64(maxTimeoutSeconds) {
			return 0, fmt.Errorf("timeout %q out of range", s)
		}

		return time.Duration(secs * float64(time.Second)), nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: want seconds or a duration like 500ms", s)
	}

	if d < 0 {
		return 0, fmt.Errorf("negative timeout %q", s)
	}

	return d, nil
}
