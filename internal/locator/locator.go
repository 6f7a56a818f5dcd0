// Package locator turns a (strategy, identifier) pair into a strategy
// qualified query that every session backend understands.
package locator

import (
	"errors"
	"fmt"
	"strings"
)

type Strategy int

const (
	CSS Strategy = iota + 1
	ID
	XPath
)

// Default is used when the caller does not name a strategy.
const Default = XPath

var ErrUnsupportedStrategy = errors.New("unsupported locator strategy")

type UnsupportedStrategyError struct {
	Name string
}

func (e *UnsupportedStrategyError) Error() string {
	return fmt.Sprintf("%v: %q (want css, id or xpath)", ErrUnsupportedStrategy, e.Name)
}

func (e *UnsupportedStrategyError) Unwrap() error {
	return ErrUnsupportedStrategy
}

func (s Strategy) String() string {
	switch s {
	case CSS:
		return "css"
	case ID:
		return "id"
	case XPath:
		return "xpath"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

func (s Strategy) Valid() bool {
	switch s {
	case CSS, ID, XPath:
		return true
	default:
		return false
	}
}

// ParseStrategy maps a strategy name to its enum value. The empty name
// yields Default.
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "":
		return Default, nil
	case "css":
		return CSS, nil
	case "id":
		return ID, nil
	case "xpath":
		return XPath, nil
	default:
		return 0, &UnsupportedStrategyError{Name: name}
	}
}

// Locator identifies zero or more elements of the rendered page. It is a
// value type; copies never share state.
type Locator struct {
	Strategy   Strategy
	Identifier string
}

func Resolve(strategy, identifier string) (Locator, error) {
	s, err := ParseStrategy(strategy)
	if err != nil {
		return Locator{}, err
	}

	return Locator{Strategy: s, Identifier: identifier}, nil
}

// New builds a locator from an already typed strategy and rejects values
// outside the enum.
func New(strategy Strategy, identifier string) (Locator, error) {
	if !strategy.Valid() {
		return Locator{}, &UnsupportedStrategyError{Name: strategy.String()}
	}

	return Locator{Strategy: strategy, Identifier: identifier}, nil
}

func ByCSS(selector string) Locator {
	return Locator{Strategy: CSS, Identifier: selector}
}

func ByID(id string) Locator {
	return Locator{Strategy: ID, Identifier: id}
}

func ByXPath(expr string) Locator {
	return Locator{Strategy: XPath, Identifier: expr}
}

func (l Locator) String() string {
	return l.Strategy.String() + "=" + l.Identifier
}
