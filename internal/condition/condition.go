// Package condition holds the readiness predicates the wait engine polls.
//
// Every predicate inspects the first element matching the locator, the way
// a single-element lookup would. TextIn is the only condition that needs an
// argument besides the locator: the substring the element text must contain.
package condition

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"webbot/internal/locator"
	"webbot/internal/ports"
)

type Condition int

const (
	Clickable Condition = iota + 1
	Selected
	TextIn
	Presence
	Visible
)

const (
	DefaultSingle = Clickable
	DefaultMulti  = Presence
)

var ErrUnsupportedCondition = errors.New("unsupported readiness condition")

// ErrMissingText rejects text_in without a substring, which would match any
// element.
var ErrMissingText = fmt.Errorf("%w: text_in requires a substring", ErrUnsupportedCondition)

type UnsupportedConditionError struct {
	Name string
}

func (e *UnsupportedConditionError) Error() string {
	return fmt.Sprintf("%v: %q", ErrUnsupportedCondition, e.Name)
}

func (e *UnsupportedConditionError) Unwrap() error {
	return ErrUnsupportedCondition
}

func (c Condition) String() string {
	switch c {
	case Clickable:
		return "clickable"
	case Selected:
		return "selected"
	case TextIn:
		return "text_in"
	case Presence:
		return "presence"
	case Visible:
		return "visible"
	default:
		return fmt.Sprintf("condition(%d)", int(c))
	}
}

// Parse maps a condition name to its value. "visibled" is accepted for
// scripts written against the old name.
func Parse(name string) (Condition, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "clickable":
		return Clickable, nil
	case "selected":
		return Selected, nil
	case "text_in":
		return TextIn, nil
	case "presence":
		return Presence, nil
	case "visible", "visibled":
		return Visible, nil
	default:
		return 0, &UnsupportedConditionError{Name: name}
	}
}

// Predicate reports whether the element(s) behind loc are ready right now.
type Predicate func(ctx context.Context, s ports.Session, loc locator.Locator) (bool, error)

func PredicateFor(c Condition, text string) (Predicate, error) {
	switch c {
	case Clickable:
		return first(func(el ports.Element) (bool, error) {
			displayed, err := el.IsDisplayed()
			if err != nil || !displayed {
				return false, err
			}

			return el.IsEnabled()
		}), nil
	case Selected:
		return first(func(el ports.Element) (bool, error) {
			return el.IsSelected()
		}), nil
	case TextIn:
		if text == "" {
			return nil, ErrMissingText
		}

		return first(func(el ports.Element) (bool, error) {
			got, err := el.Text()
			if err != nil {
				return false, err
			}

			return strings.Contains(got, text), nil
		}), nil
	case Presence:
		return first(func(ports.Element) (bool, error) {
			return true, nil
		}), nil
	case Visible:
		return first(func(el ports.Element) (bool, error) {
			displayed, err := el.IsDisplayed()
			if err != nil || !displayed {
				return false, err
			}

			width, height, err := el.Size()
			if err != nil {
				return false, err
			}

			return width > 0 && height > 0, nil
		}), nil
	default:
		return nil, &UnsupportedConditionError{Name: c.String()}
	}
}

// first evaluates check against the first match. A stale node counts as not
// ready yet so the caller keeps polling.
func first(check func(ports.Element) (bool, error)) Predicate {
	return func(ctx context.Context, s ports.Session, loc locator.Locator) (bool, error) {
		elements, err := s.FindElements(ctx, loc)
		if err != nil {
			if errors.Is(err, ports.ErrStaleElement) {
				return false, nil
			}

			return false, err
		}

		if len(elements) == 0 {
			return false, nil
		}

		ok, err := check(elements[0])
		if err != nil {
			if errors.Is(err, ports.ErrStaleElement) {
				return false, nil
			}

			return false, err
		}

		return ok, nil
	}
}
