package ports

import (
	"context"
	"errors"

	"webbot/internal/entity"
	"webbot/internal/locator"
)

// ErrStaleElement reports an element reference that the page invalidated
// (removed or re-rendered) after it was resolved.
var ErrStaleElement = errors.New("stale element reference")

// Session is one live browser instance. It is not safe for concurrent use.
type Session interface {
	// FindElements returns every element currently matching loc, in DOM
	// order. No match is an empty slice, not an error.
	FindElements(ctx context.Context, loc locator.Locator) ([]Element, error)
	Navigate(ctx context.Context, url string) error
	CurrentURL(ctx context.Context) (string, error)
	// ExecuteScript runs body as a function body; args are exposed to it
	// through `arguments`.
	ExecuteScript(ctx context.Context, body string, args ...any) (any, error)
	Quit(ctx context.Context) error
}

// Element is a live DOM node. Methods return an error wrapping
// ErrStaleElement once the node is detached.
type Element interface {
	IsDisplayed() (bool, error)
	IsEnabled() (bool, error)
	IsSelected() (bool, error)
	Text() (string, error)
	Size() (width, height float64, err error)
	Attribute(name string) (string, error)
	// DispatchClick fires el.click() from script instead of a pointer event.
	DispatchClick() error
	// TypeText appends text at the end of the current value.
	TypeText(text string) error
	PressKey(key entity.Key) error
}

type SessionProvider interface {
	Open(ctx context.Context, opts entity.SessionOptions) (Session, error)
}
