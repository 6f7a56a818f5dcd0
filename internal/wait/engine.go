package wait

import (
	"context"
	"errors"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"k8s.io/utils/clock"

	"webbot/internal/condition"
	"webbot/internal/config"
	"webbot/internal/locator"
	"webbot/internal/ports"
	"webbot/pkg/logg"
)

const (
	engineName          = "WaitEngine"
	DefaultPollInterval = 200 * time.Millisecond
)

// ErrDeadline is returned by Until when the window closes before the check
// succeeds.
var ErrDeadline = errors.New("wait deadline exceeded")

// Clock is the part of k8s.io/utils/clock the engine needs. Tests pass a
// testing.FakeClock so waits finish without wall-clock delay.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

// Spec fully describes one polling operation.
type Spec struct {
	Locator   locator.Locator
	Condition condition.Condition
	// Text is only read by condition.TextIn.
	Text    string
	Timeout time.Duration
}

type Engine struct {
	clock    Clock
	interval time.Duration
	logger   *zap.Logger
}

type Params struct {
	fx.In

	Config *config.Config
	Logger *zap.Logger
}

func NewEngine(params Params) *Engine {
	return New(clock.RealClock{}, params.Config.WaitConfig.PollInterval, params.Logger)
}

func New(clk Clock, interval time.Duration, logger *zap.Logger) *Engine {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	return &Engine{
		clock:    clk,
		interval: interval,
		logger:   logger.With(zap.String(logg.Layer, engineName)),
	}
}

func (e *Engine) Interval() time.Duration {
	return e.interval
}

func (e *Engine) Sleep(d time.Duration) {
	if d > 0 {
		e.clock.Sleep(d)
	}
}

// Until evaluates check until it reports true, returns an error, or timeout
// elapses. The final evaluation happens at the deadline, so ErrDeadline is
// never returned before timeout has passed on the engine clock.
func (e *Engine) Until(ctx context.Context, timeout time.Duration, check func(ctx context.Context) (bool, error)) error {
	deadline := e.clock.Now().Add(timeout)

	for {
		ok, err := check(ctx)
		if err != nil {
			return err
		}

		if ok {
			return nil
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		remaining := deadline.Sub(e.clock.Now())
		if remaining <= 0 {
			return ErrDeadline
		}

		e.clock.Sleep(min(e.interval, remaining))
	}
}

// Await blocks until spec's condition holds, then fetches the element again.
// The second query is separate from the predicate, so a node removed in
// between surfaces as a *StaleError.
func (e *Engine) Await(ctx context.Context, s ports.Session, spec Spec) (ports.Element, error) {
	elements, err := e.await(ctx, s, spec)
	if err != nil {
		return nil, err
	}

	return elements[0], nil
}

// AwaitAll is Await for every match, in the order the page returns them.
func (e *Engine) AwaitAll(ctx context.Context, s ports.Session, spec Spec) ([]ports.Element, error) {
	return e.await(ctx, s, spec)
}

func (e *Engine) await(ctx context.Context, s ports.Session, spec Spec) ([]ports.Element, error) {
	if !spec.Locator.Strategy.Valid() {
		return nil, &locator.UnsupportedStrategyError{Name: spec.Locator.Strategy.String()}
	}

	predicate, err := condition.PredicateFor(spec.Condition, spec.Text)
	if err != nil {
		return nil, err
	}

	start := e.clock.Now()
	polls := 0

	err = e.Until(ctx, spec.Timeout, func(ctx context.Context) (bool, error) {
		polls++

		return predicate(ctx, s, spec.Locator)
	})
	if errors.Is(err, ErrDeadline) {
		e.logger.Debug("condition not met",
			zap.Stringer(logg.Locator, spec.Locator),
			zap.Stringer(logg.Condition, spec.Condition),
			zap.Duration(logg.Timeout, spec.Timeout),
			zap.Int(logg.PollCount, polls),
		)

		return nil, &TimeoutError{
			Locator:   spec.Locator,
			Condition: spec.Condition,
			Timeout:   spec.Timeout,
		}
	}

	if err != nil {
		return nil, err
	}

	elements, err := s.FindElements(ctx, spec.Locator)
	if err != nil {
		return nil, &StaleError{Locator: spec.Locator, Err: err}
	}

	if len(elements) == 0 {
		return nil, &StaleError{Locator: spec.Locator}
	}

	e.logger.Debug("condition met",
		zap.Stringer(logg.Locator, spec.Locator),
		zap.Stringer(logg.Condition, spec.Condition),
		zap.Duration(logg.Elapsed, e.clock.Now().Sub(start)),
		zap.Int(logg.PollCount, polls),
	)

	return elements, nil
}
