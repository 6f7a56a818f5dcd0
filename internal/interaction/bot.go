package interaction

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"webbot/internal/condition"
	"webbot/internal/config"
	"webbot/internal/entity"
	"webbot/internal/locator"
	"webbot/internal/ports"
	"webbot/internal/wait"
	"webbot/pkg/apperr"
	"webbot/pkg/logg"
	"webbot/pkg/tracing"
)

const (
	botName   = "Bot"
	botTracer = "interaction.bot"

	DefaultClickTimeout = 10 * time.Second
	DefaultTimeout      = 15 * time.Second
	DefaultURLTimeout   = 10 * time.Second
	DefaultKey          = "enter"
	DefaultAttribute    = "value"

	writeJSScript = "document.querySelector(arguments[0]).value = arguments[1];"
)

// URLTimeoutError means the page URL never contained Target inside the
// window.
type URLTimeoutError struct {
	Target  string
	Timeout time.Duration
}

func (e *URLTimeoutError) Error() string {
	return fmt.Sprintf("url containing %q not reached within %g seconds", e.Target, e.Timeout.Seconds())
}

// Bot owns one browser session and runs every action through the wait
// engine. It is not safe for concurrent use; run one Bot per goroutine.
type Bot struct {
	config   *config.Config
	logger   *zap.Logger
	tracer   trace.Tracer
	provider ports.SessionProvider
	engine   *wait.Engine
	session  ports.Session
	ready    bool
}

type Params struct {
	fx.In

	Config   *config.Config
	Logger   *zap.Logger
	Provider ports.SessionProvider
	Engine   *wait.Engine
}

func New(params Params) *Bot {
	return &Bot{
		config:   params.Config,
		logger:   params.Logger.With(zap.String(logg.Layer, botName)),
		tracer:   otel.Tracer(botTracer),
		provider: params.Provider,
		engine:   params.Engine,
		ready:    false,
	}
}

func (b *Bot) IsReady() bool {
	return b.ready
}

func (b *Bot) Launch(ctx context.Context) (err error) {
	const op = "Launch"
	logger := b.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, b.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	if b.ready {
		return apperr.WrapErrorWithReason(op, apperr.CodeInvalidArgument, "already_launched")
	}

	opts, err := b.config.BrowserConfig.SessionOptions()
	if err != nil {
		return apperr.InvalidReqError(op, "BROWSER_KIND", err)
	}

	step.SetAttributes(attribute.String("browser", string(opts.Browser)), attribute.Bool("remote", opts.Remote))

	session, err := b.provider.Open(ctx, opts)
	if err != nil {
		return apperr.Wrap(op, apperr.CodeBootstrapFailed, err, map[string]any{
			apperr.MetaReason:  "session_open_failed",
			apperr.MetaStage:   apperr.StageBootstrap,
			apperr.MetaBrowser: string(opts.Browser),
		})
	}

	b.session = session
	b.ready = true
	logger.Info("Bot ready", zap.String(logg.Browser, string(opts.Browser)))

	return nil
}

// Click waits for loc to be clickable and fires el.click() from script. The
// script click is not intercepted by overlays, but it also skips the pointer
// events a real click would bubble.
func (b *Bot) Click(ctx context.Context, loc locator.Locator, timeout time.Duration) error {
	return b.click(ctx, "Click", loc, orDefault(timeout, DefaultClickTimeout))
}

// ClickJS is Click under its legacy name, with the longer default timeout.
func (b *Bot) ClickJS(ctx context.Context, loc locator.Locator, timeout time.Duration) error {
	return b.click(ctx, "ClickJS", loc, orDefault(timeout, DefaultTimeout))
}

func (b *Bot) click(ctx context.Context, op string, loc locator.Locator, timeout time.Duration) (err error) {
	logger := b.opLogger(op, loc)

	ctx, step := tracing.StartSpan(ctx, b.tracer, logger, op, locatorAttrs(loc, timeout)...)
	defer func() {
		step.End(err)
	}()

	if !b.ready {
		return notReady(op)
	}

	el, err := b.engine.Await(ctx, b.session, wait.Spec{Locator: loc, Condition: condition.Clickable, Timeout: timeout})
	if err != nil {
		return wrapError(op, loc, err)
	}

	step.AddEvent("dispatching click")

	if err = el.DispatchClick(); err != nil {
		return wrapError(op, loc, err)
	}

	logger.Debug("Clicked")

	return nil
}

// Key sends one of the symbolic keys (enter, esc, down, home, tab) to loc.
// Any other name is typed into the element as literal text.
func (b *Bot) Key(ctx context.Context, loc locator.Locator, keyName string, timeout time.Duration) (err error) {
	const op = "Key"
	if keyName == "" {
		keyName = DefaultKey
	}

	timeout = orDefault(timeout, DefaultTimeout)
	logger := b.opLogger(op, loc).With(zap.String(logg.Key, keyName))

	ctx, step := tracing.StartSpan(ctx, b.tracer, logger, op, locatorAttrs(loc, timeout)...)
	defer func() {
		step.End(err)
	}()

	if !b.ready {
		return notReady(op)
	}

	el, err := b.engine.Await(ctx, b.session, wait.Spec{Locator: loc, Condition: condition.Presence, Timeout: timeout})
	if err != nil {
		return wrapError(op, loc, err)
	}

	if key, ok := entity.LookupKey(keyName); ok {
		err = el.PressKey(key)
	} else {
		step.AddEvent("typing literal key text")
		err = el.TypeText(keyName)
	}

	if err != nil {
		return wrapError(op, loc, err)
	}

	return nil
}

// Find returns the first element matching loc once cond holds. The zero
// condition means condition.DefaultSingle; text is only read by TextIn.
func (b *Bot) Find(ctx context.Context, loc locator.Locator, timeout time.Duration, cond condition.Condition, text string) (el ports.Element, err error) {
	const op = "Find"
	if cond == 0 {
		cond = condition.DefaultSingle
	}

	timeout = orDefault(timeout, DefaultTimeout)
	logger := b.opLogger(op, loc).With(zap.Stringer(logg.Condition, cond))

	ctx, step := tracing.StartSpan(ctx, b.tracer, logger, op, locatorAttrs(loc, timeout)...)
	defer func() {
		step.End(err)
	}()

	if !b.ready {
		return nil, notReady(op)
	}

	el, err = b.engine.Await(ctx, b.session, wait.Spec{Locator: loc, Condition: cond, Text: text, Timeout: timeout})
	if err != nil {
		return nil, wrapError(op, loc, err)
	}

	return el, nil
}

// FindAll returns every element matching loc once cond holds for the first
// one. The zero condition means condition.DefaultMulti, so collections with
// disabled members still resolve. Zero matches is a timeout.
func (b *Bot) FindAll(ctx context.Context, loc locator.Locator, timeout time.Duration, cond condition.Condition, text string) (els []ports.Element, err error) {
	const op = "FindAll"
	if cond == 0 {
		cond = condition.DefaultMulti
	}

	timeout = orDefault(timeout, DefaultTimeout)
	logger := b.opLogger(op, loc).With(zap.Stringer(logg.Condition, cond))

	ctx, step := tracing.StartSpan(ctx, b.tracer, logger, op, locatorAttrs(loc, timeout)...)
	defer func() {
		step.End(err)
	}()

	if !b.ready {
		return nil, notReady(op)
	}

	els, err = b.engine.AwaitAll(ctx, b.session, wait.Spec{Locator: loc, Condition: cond, Text: text, Timeout: timeout})
	if err != nil {
		return nil, wrapError(op, loc, err)
	}

	step.SetAttributes(attribute.Int("matches", len(els)))

	return els, nil
}

// Write appends value, as text, after whatever the field already holds.
func (b *Bot) Write(ctx context.Context, loc locator.Locator, value any, timeout time.Duration) (err error) {
	const op = "Write"
	timeout = orDefault(timeout, DefaultTimeout)
	logger := b.opLogger(op, loc)

	ctx, step := tracing.StartSpan(ctx, b.tracer, logger, op, locatorAttrs(loc, timeout)...)
	defer func() {
		step.End(err)
	}()

	if !b.ready {
		return notReady(op)
	}

	el, err := b.engine.Await(ctx, b.session, wait.Spec{Locator: loc, Condition: condition.Clickable, Timeout: timeout})
	if err != nil {
		return wrapError(op, loc, err)
	}

	if err = el.TypeText(fmt.Sprint(value)); err != nil {
		return wrapError(op, loc, err)
	}

	return nil
}

// WriteJS sets the value of the first element matching the CSS selector
// directly, without waiting. Use it when native typing does not reach a
// custom widget.
func (b *Bot) WriteJS(ctx context.Context, selector string, value any) (err error) {
	const op = "WriteJS"
	logger := b.logger.With(zap.String(logg.Operation, op), zap.String(logg.Selector, selector))

	ctx, step := tracing.StartSpan(ctx, b.tracer, logger, op, attribute.String("selector", selector))
	defer func() {
		step.End(err)
	}()

	if !b.ready {
		return notReady(op)
	}

	if _, err = b.session.ExecuteScript(ctx, writeJSScript, selector, fmt.Sprint(value)); err != nil {
		return apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason:  "script_failed",
			apperr.MetaStage:   apperr.StageInteraction,
			apperr.MetaLocator: selector,
		})
	}

	return nil
}

// GetAttribute returns "" when the attribute is absent.
func (b *Bot) GetAttribute(ctx context.Context, loc locator.Locator, name string, timeout time.Duration) (value string, err error) {
	const op = "GetAttribute"
	if name == "" {
		name = DefaultAttribute
	}

	timeout = orDefault(timeout, DefaultTimeout)
	logger := b.opLogger(op, loc).With(zap.String(logg.Attribute, name))

	ctx, step := tracing.StartSpan(ctx, b.tracer, logger, op, locatorAttrs(loc, timeout)...)
	defer func() {
		step.End(err)
	}()

	if !b.ready {
		return "", notReady(op)
	}

	el, err := b.engine.Await(ctx, b.session, wait.Spec{Locator: loc, Condition: condition.Clickable, Timeout: timeout})
	if err != nil {
		return "", wrapError(op, loc, err)
	}

	value, err = el.Attribute(name)
	if err != nil {
		return "", wrapError(op, loc, err)
	}

	return value, nil
}

// WaitFor is a synchronization point: Find without the element.
func (b *Bot) WaitFor(ctx context.Context, loc locator.Locator, timeout time.Duration, cond condition.Condition, text string) error {
	_, err := b.Find(ctx, loc, timeout, cond, text)
	return err
}

func (b *Bot) WaitForURL(ctx context.Context, substring string, timeout time.Duration) (err error) {
	const op = "WaitForURL"
	timeout = orDefault(timeout, DefaultURLTimeout)
	logger := b.logger.With(zap.String(logg.Operation, op), zap.String(logg.URL, substring))

	ctx, step := tracing.StartSpan(ctx, b.tracer, logger, op,
		attribute.String("target", substring),
		attribute.Float64("timeout_seconds", timeout.Seconds()),
	)
	defer func() {
		step.End(err)
	}()

	if !b.ready {
		return notReady(op)
	}

	err = b.engine.Until(ctx, timeout, func(ctx context.Context) (bool, error) {
		current, err := b.session.CurrentURL(ctx)
		if err != nil {
			return false, err
		}

		return strings.Contains(current, substring), nil
	})

	switch {
	case errors.Is(err, wait.ErrDeadline):
		return apperr.Wrap(op, apperr.CodeTimeout, &URLTimeoutError{Target: substring, Timeout: timeout}, map[string]any{
			apperr.MetaReason:  "url_not_reached",
			apperr.MetaStage:   apperr.StageWait,
			apperr.MetaURL:     substring,
			apperr.MetaTimeout: timeout.String(),
		})
	case err != nil:
		return apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason: "url_read_failed",
			apperr.MetaStage:  apperr.StageWait,
			apperr.MetaURL:    substring,
		})
	}

	return nil
}

// LoadPage starts navigation and returns. Wait for something on the new
// page before acting on it.
func (b *Bot) LoadPage(ctx context.Context, url string) (err error) {
	const op = "LoadPage"
	logger := b.logger.With(zap.String(logg.Operation, op), zap.String(logg.URL, url))

	ctx, step := tracing.StartSpan(ctx, b.tracer, logger, op, attribute.String("url", url))
	defer func() {
		step.End(err)
	}()

	if !b.ready {
		return notReady(op)
	}

	if err = b.session.Navigate(ctx, url); err != nil {
		return apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason: "navigate_failed",
			apperr.MetaStage:  apperr.StageNavigation,
			apperr.MetaURL:    url,
		})
	}

	logger.Info("Page requested")

	return nil
}

// Sleep blocks for d unconditionally. Prefer a wait on a condition.
func (b *Bot) Sleep(ctx context.Context, d time.Duration) {
	const op = "Sleep"
	logger := b.logger.With(zap.String(logg.Operation, op))

	_, step := tracing.StartSpan(ctx, b.tracer, logger, op, attribute.String("duration", d.String()))
	b.engine.Sleep(d)
	step.End(nil)
}

// Quit tears the session down. Only the first call reaches the browser.
func (b *Bot) Quit(ctx context.Context) (err error) {
	const op = "Quit"
	logger := b.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, b.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	if !b.ready {
		return notReady(op)
	}

	session := b.session
	b.session = nil
	b.ready = false

	if err = session.Quit(ctx); err != nil {
		return apperr.WrapWithReason(op, apperr.CodeActionFailed, err, "quit_failed")
	}

	logger.Info("Browser closed")

	return nil
}

func (b *Bot) opLogger(op string, loc locator.Locator) *zap.Logger {
	return b.logger.With(zap.String(logg.Operation, op), zap.Stringer(logg.Locator, loc))
}

func locatorAttrs(loc locator.Locator, timeout time.Duration) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("locator", loc.String()),
		attribute.String("timeout", timeout.String()),
	}
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}

	return d
}

func notReady(op string) error {
	return apperr.WrapErrorWithReason(op, apperr.CodeBrowserNotReady, "browser_not_ready")
}

// wrapError maps the typed lookup and wait errors onto apperr codes. The
// underlying error stays reachable with errors.As.
func wrapError(op string, loc locator.Locator, err error) error {
	code, stage, reason := apperr.CodeActionFailed, apperr.StageInteraction, "element_action_failed"
	meta := map[string]any{apperr.MetaLocator: loc.String()}

	var timeoutErr *wait.TimeoutError

	switch {
	case errors.Is(err, locator.ErrUnsupportedStrategy):
		code, stage, reason = apperr.CodeUnsupportedStrategy, apperr.StageResolve, "unsupported_strategy"
	case errors.Is(err, condition.ErrUnsupportedCondition):
		code, stage, reason = apperr.CodeUnsupportedCondition, apperr.StageResolve, "unsupported_condition"
	case errors.As(err, &timeoutErr):
		code, stage, reason = apperr.CodeTimeout, apperr.StageWait, "condition_not_met"
		meta[apperr.MetaCondition] = timeoutErr.Condition.String()
		meta[apperr.MetaTimeout] = timeoutErr.Timeout.String()
	case errors.Is(err, ports.ErrStaleElement):
		code, stage, reason = apperr.CodeStaleElement, apperr.StageWait, "element_went_stale"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		stage, reason = apperr.StageWait, "cancelled"
	}

	meta[apperr.MetaStage] = stage
	meta[apperr.MetaReason] = reason

	return apperr.Wrap(op, code, err, meta)
}
