package wait

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	testingclock "k8s.io/utils/clock/testing"

	"webbot/internal/condition"
	"webbot/internal/locator"
	"webbot/internal/ports"
	"webbot/internal/ports/fake"
)

const interval = 200 * time.Millisecond

func newTestEngine() (*Engine, *testingclock.FakeClock) {
	clk := testingclock.NewFakeClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	return New(clk, interval, zap.NewNop()), clk
}

func TestUntil_ImmediateSuccessDoesNotSleep(t *testing.T) {
	engine, clk := newTestEngine()
	start := clk.Now()

	err := engine.Until(context.Background(), 5*time.Second, func(context.Context) (bool, error) {
		return true, nil
	})

	require.NoError(t, err)
	assert.Less(t, clk.Since(start), interval)
}

func TestUntil_ExpiresExactlyAtTimeout(t *testing.T) {
	tests := []struct {
		name    string
		timeout time.Duration
	}{
		{name: "multiple of interval", timeout: 5 * time.Second},
		{name: "not a multiple", timeout: 1100 * time.Millisecond},
		{name: "zero", timeout: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, clk := newTestEngine()
			start := clk.Now()
			calls := 0

			err := engine.Until(context.Background(), tt.timeout, func(context.Context) (bool, error) {
				calls++
				return false, nil
			})

			require.ErrorIs(t, err, ErrDeadline)
			elapsed := clk.Since(start)
			assert.GreaterOrEqual(t, elapsed, tt.timeout)
			assert.Less(t, elapsed, tt.timeout+interval)
			assert.Positive(t, calls)
		})
	}
}

func TestUntil_PropagatesCheckError(t *testing.T) {
	engine, _ := newTestEngine()
	boom := errors.New("boom")

	err := engine.Until(context.Background(), time.Second, func(context.Context) (bool, error) {
		return false, boom
	})

	assert.ErrorIs(t, err, boom)
}

func TestUntil_StopsOnCancelledContext(t *testing.T) {
	engine, _ := newTestEngine()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := engine.Until(ctx, time.Minute, func(context.Context) (bool, error) {
		return false, nil
	})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestAwait_ReadyOnFirstPoll(t *testing.T) {
	engine, clk := newTestEngine()
	session := fake.NewSession()
	loc := locator.ByCSS("#submit")
	el := fake.NewElement()
	session.Put(loc, el)
	start := clk.Now()

	got, err := engine.Await(context.Background(), session, Spec{
		Locator:   loc,
		Condition: condition.Clickable,
		Timeout:   5 * time.Second,
	})

	require.NoError(t, err)
	assert.Same(t, el, got)
	assert.Less(t, clk.Since(start), interval)
	// one predicate query plus the fetch
	assert.Equal(t, 2, session.FindCalls)
}

func TestAwait_BecomesClickableLater(t *testing.T) {
	engine, clk := newTestEngine()
	session := fake.NewSession()
	loc := locator.ByCSS("#submit")
	el := fake.NewElement()
	el.Enabled = false
	session.Put(loc, el)
	session.OnFind = func(call int) {
		if call == 4 {
			el.Enabled = true
		}
	}
	start := clk.Now()

	got, err := engine.Await(context.Background(), session, Spec{
		Locator:   loc,
		Condition: condition.Clickable,
		Timeout:   5 * time.Second,
	})

	require.NoError(t, err)
	assert.Same(t, el, got)
	assert.Equal(t, 3*interval, clk.Since(start))
	assert.Equal(t, 5, session.FindCalls)
}

func TestAwait_TimeoutCarriesSpec(t *testing.T) {
	engine, clk := newTestEngine()
	session := fake.NewSession()
	loc := locator.ByCSS("#submit")
	start := clk.Now()

	_, err := engine.Await(context.Background(), session, Spec{
		Locator:   loc,
		Condition: condition.Clickable,
		Timeout:   5 * time.Second,
	})

	var timeout *TimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, loc, timeout.Locator)
	assert.Equal(t, condition.Clickable, timeout.Condition)
	assert.Equal(t, 5*time.Second, timeout.Timeout)
	assert.Equal(t, 5*time.Second, clk.Since(start))
	assert.Contains(t, err.Error(), "css=#submit")
}

func TestAwait_StaleBetweenPredicateAndFetch(t *testing.T) {
	engine, _ := newTestEngine()
	session := fake.NewSession()
	loc := locator.ByXPath("//button")
	session.Put(loc, fake.NewElement())
	session.OnFind = func(call int) {
		if call == 2 {
			session.Put(loc)
		}
	}

	_, err := engine.Await(context.Background(), session, Spec{
		Locator:   loc,
		Condition: condition.Presence,
		Timeout:   time.Second,
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrStaleElement)

	var stale *StaleError
	require.ErrorAs(t, err, &stale)
	assert.Equal(t, loc, stale.Locator)

	var timeout *TimeoutError
	assert.False(t, errors.As(err, &timeout))
}

func TestAwait_FetchFailureIsStale(t *testing.T) {
	engine, _ := newTestEngine()
	session := fake.NewSession()
	loc := locator.ByID("q")
	session.Put(loc, fake.NewElement())
	queryErr := errors.New("node removed")
	session.OnFind = func(call int) {
		if call == 2 {
			session.FindErr = queryErr
		}
	}

	_, err := engine.Await(context.Background(), session, Spec{
		Locator:   loc,
		Condition: condition.Presence,
		Timeout:   time.Second,
	})

	assert.ErrorIs(t, err, ports.ErrStaleElement)
	assert.ErrorIs(t, err, queryErr)
}

func TestAwait_TextInUsesSubstring(t *testing.T) {
	engine, _ := newTestEngine()
	session := fake.NewSession()
	loc := locator.ByID("status")
	el := fake.NewElement()
	el.Content = "loading"
	session.Put(loc, el)
	session.OnFind = func(call int) {
		if call == 3 {
			el.Content = "order complete"
		}
	}

	got, err := engine.Await(context.Background(), session, Spec{
		Locator:   loc,
		Condition: condition.TextIn,
		Text:      "complete",
		Timeout:   2 * time.Second,
	})

	require.NoError(t, err)
	assert.Same(t, el, got)
}

func TestAwait_RejectsUnsetCondition(t *testing.T) {
	engine, _ := newTestEngine()

	_, err := engine.Await(context.Background(), fake.NewSession(), Spec{
		Locator: locator.ByID("x"),
		Timeout: time.Second,
	})

	assert.ErrorIs(t, err, condition.ErrUnsupportedCondition)
}

func TestAwait_RejectsInvalidStrategy(t *testing.T) {
	engine, _ := newTestEngine()

	_, err := engine.Await(context.Background(), fake.NewSession(), Spec{
		Locator:   locator.Locator{Identifier: "x"},
		Condition: condition.Presence,
		Timeout:   time.Second,
	})

	assert.ErrorIs(t, err, locator.ErrUnsupportedStrategy)
}

func TestAwaitAll_ReturnsEveryMatchInOrder(t *testing.T) {
	engine, _ := newTestEngine()
	session := fake.NewSession()
	loc := locator.ByCSS("li")
	first, second, third := fake.NewElement(), fake.NewElement(), fake.NewElement()
	second.Displayed = false
	session.Put(loc, first, second, third)

	got, err := engine.AwaitAll(context.Background(), session, Spec{
		Locator:   loc,
		Condition: condition.Presence,
		Timeout:   time.Second,
	})

	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Same(t, first, got[0])
	assert.Same(t, second, got[1])
	assert.Same(t, third, got[2])
}

func TestAwaitAll_ZeroMatchesTimesOut(t *testing.T) {
	engine, clk := newTestEngine()
	start := clk.Now()

	got, err := engine.AwaitAll(context.Background(), fake.NewSession(), Spec{
		Locator:   locator.ByCSS(".row"),
		Condition: condition.Presence,
		Timeout:   time.Second,
	})

	assert.Nil(t, got)

	var timeout *TimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, condition.Presence, timeout.Condition)
	assert.Equal(t, time.Second, clk.Since(start))
}
