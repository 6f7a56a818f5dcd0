package driver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"webbot/internal/entity"
	"webbot/internal/ports"
	"webbot/pkg/logg"
	"webbot/pkg/tracing"
)

const (
	providerName   = "SessionProvider"
	providerTracer = "driver.provider"
)

var (
	mismatchMarker    = "This version of ChromeDriver only supports Chrome version"
	driverVersionRe   = regexp.MustCompile(`ChromeDriver only supports Chrome version (\d+)`)
	browserVersionRe  = regexp.MustCompile(`Current browser version is (\d+(?:\.\d+)*)`)
	errRemoteEvasive  = fmt.Errorf("%s is not supported for remote execution", entity.BrowserEvasiveChrome)
	errUnknownBrowser = fmt.Errorf("unsupported browser")
)

type VersionMismatch struct {
	DriverSupports string
	BrowserVersion string
}

// ParseVersionMismatch recognises the driver error raised when the installed
// browser is newer or older than the driver build.
func ParseVersionMismatch(msg string) (VersionMismatch, bool) {
	if !strings.Contains(msg, mismatchMarker) {
		return VersionMismatch{}, false
	}

	var vm VersionMismatch
	if m := driverVersionRe.FindStringSubmatch(msg); m != nil {
		vm.DriverSupports = m[1]
	}

	if m := browserVersionRe.FindStringSubmatch(msg); m != nil {
		vm.BrowserVersion = m[1]
	}

	return vm, true
}

// BootstrapError is fatal: the process should log it and exit instead of
// running without a browser.
type BootstrapError struct {
	Browser  entity.BrowserKind
	Remote   bool
	Mismatch *VersionMismatch
	Err      error
}

func (e *BootstrapError) Error() string {
	if e.Mismatch != nil {
		return fmt.Sprintf("start %s: browser is version %s but the driver only supports version %s, update the browser",
			e.Browser, e.Mismatch.BrowserVersion, e.Mismatch.DriverSupports)
	}

	where := "local"
	if e.Remote {
		where = "remote"
	}

	return fmt.Sprintf("start %s %s session: %v", where, e.Browser, e.Err)
}

func (e *BootstrapError) Unwrap() error {
	return e.Err
}

func newBootstrapError(opts entity.SessionOptions, err error) *BootstrapError {
	bootErr := &BootstrapError{Browser: opts.Browser, Remote: opts.Remote, Err: err}
	if vm, ok := ParseVersionMismatch(err.Error()); ok {
		bootErr.Mismatch = &vm
	}

	return bootErr
}

type Provider struct {
	logger *zap.Logger
	tracer trace.Tracer
}

type Params struct {
	fx.In

	Logger *zap.Logger
}

func NewProvider(params Params) *Provider {
	return &Provider{
		logger: params.Logger.With(zap.String(logg.Layer, providerName)),
		tracer: otel.Tracer(providerTracer),
	}
}

var _ ports.SessionProvider = (*Provider)(nil)

// Open starts a browser matching opts. Every failure is a *BootstrapError.
func (p *Provider) Open(ctx context.Context, opts entity.SessionOptions) (session ports.Session, err error) {
	const op = "Open"
	sessionID := uuid.NewString()
	logger := p.logger.With(
		zap.String(logg.Operation, op),
		zap.String(logg.SessionID, sessionID),
		zap.String(logg.Browser, string(opts.Browser)),
	)

	ctx, step := tracing.StartSpan(ctx, p.tracer, logger, op,
		attribute.String("browser", string(opts.Browser)),
		attribute.Bool("remote", opts.Remote),
		attribute.Bool("headless", opts.Headless),
		attribute.String("session_id", sessionID),
	)
	defer func() {
		step.End(err)
	}()

	opts, err = normalizeOptions(opts)
	if err != nil {
		return nil, newBootstrapError(opts, err)
	}

	logger.Info("Starting browser session",
		zap.Bool("remote", opts.Remote),
		zap.Bool("headless", opts.Headless),
		zap.Bool("incognito", opts.Incognito),
	)

	switch {
	case opts.Remote:
		switch opts.Browser {
		case entity.BrowserChrome, entity.BrowserFirefox:
			logger.Info("Connecting to remote grid", zap.String(logg.Endpoint, opts.RemoteEndpoint))
			session, err = openSelenium(opts, logger)
		case entity.BrowserEvasiveChrome:
			err = errRemoteEvasive
		default:
			err = fmt.Errorf("%w %q", errUnknownBrowser, opts.Browser)
		}
	default:
		switch opts.Browser {
		case entity.BrowserChrome, entity.BrowserFirefox:
			step.AddEvent("starting playwright")
			session, err = openPlaywright(ctx, opts, logger)
		case entity.BrowserEvasiveChrome:
			step.AddEvent("starting stealth chrome")
			session, err = openRod(opts, logger)
		default:
			err = fmt.Errorf("%w %q", errUnknownBrowser, opts.Browser)
		}
	}

	if err != nil {
		bootErr := newBootstrapError(opts, err)
		logger.Error("Browser session failed to start", zap.Error(bootErr))

		return nil, bootErr
	}

	logger.Info("Browser session started")

	return session, nil
}

// normalizeOptions makes directories absolute and creates them, the way the
// browsers expect to find them.
func normalizeOptions(opts entity.SessionOptions) (entity.SessionOptions, error) {
	if opts.Browser == "" {
		opts.Browser = entity.BrowserChrome
	}

	if opts.Remote && opts.RemoteEndpoint == "" {
		return opts, fmt.Errorf("remote endpoint is required for remote execution")
	}

	if opts.Remote {
		return opts, nil
	}

	var err error
	if opts.DownloadDir, err = ensureDir(opts.DownloadDir); err != nil {
		return opts, fmt.Errorf("download dir: %w", err)
	}

	if opts.UserDataDir, err = ensureDir(opts.UserDataDir); err != nil {
		return opts, fmt.Errorf("user data dir: %w", err)
	}

	return opts, nil
}

func ensureDir(dir string) (string, error) {
	if dir == "" {
		return "", nil
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(abs, 0o755); err != nil {
		return "", err
	}

	return abs, nil
}
