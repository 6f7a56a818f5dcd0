package wait

import (
	"fmt"
	"time"

	"webbot/internal/condition"
	"webbot/internal/locator"
	"webbot/internal/ports"
)

// TimeoutError means the condition never held inside the window. Callers
// may retry; the engine does not.
type TimeoutError struct {
	Locator   locator.Locator
	Condition condition.Condition
	Timeout   time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("element %s not %s within %s", e.Locator, e.Condition, e.Timeout)
}

// StaleError means the element satisfied the condition but was gone when it
// was fetched. It matches ports.ErrStaleElement with errors.Is.
type StaleError struct {
	Locator locator.Locator
	Err     error
}

func (e *StaleError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("element %s went stale after becoming ready: %v", e.Locator, e.Err)
	}

	return fmt.Sprintf("element %s went stale after becoming ready", e.Locator)
}

func (e *StaleError) Unwrap() []error {
	if e.Err == nil {
		return []error{ports.ErrStaleElement}
	}

	return []error{ports.ErrStaleElement, e.Err}
}
