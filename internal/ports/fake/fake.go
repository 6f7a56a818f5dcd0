// Package fake provides an in-memory ports.Session for tests. The page is a
// map from locator to elements that tests mutate between polls through the
// OnFind hook.
package fake

import (
	"context"
	"errors"
	"fmt"

	"webbot/internal/entity"
	"webbot/internal/locator"
	"webbot/internal/ports"
)

type Element struct {
	Displayed  bool
	Enabled    bool
	Selected   bool
	Content    string
	Width      float64
	Height     float64
	Attributes map[string]string
	Value      string
	Detached   bool

	Clicks int
	Keys   []entity.Key
}

var _ ports.Element = (*Element)(nil)

// NewElement returns a displayed, enabled element with a non-zero size.
func NewElement() *Element {
	return &Element{
		Displayed:  true,
		Enabled:    true,
		Width:      100,
		Height:     20,
		Attributes: map[string]string{},
	}
}

func (e *Element) stale() error {
	if e.Detached {
		return fmt.Errorf("fake element: %w", ports.ErrStaleElement)
	}

	return nil
}

func (e *Element) IsDisplayed() (bool, error) {
	return e.Displayed, e.stale()
}

func (e *Element) IsEnabled() (bool, error) {
	return e.Enabled, e.stale()
}

func (e *Element) IsSelected() (bool, error) {
	return e.Selected, e.stale()
}

func (e *Element) Text() (string, error) {
	return e.Content, e.stale()
}

func (e *Element) Size() (float64, float64, error) {
	return e.Width, e.Height, e.stale()
}

func (e *Element) Attribute(name string) (string, error) {
	if err := e.stale(); err != nil {
		return "", err
	}

	if name == "value" {
		return e.Value, nil
	}

	return e.Attributes[name], nil
}

func (e *Element) DispatchClick() error {
	if err := e.stale(); err != nil {
		return err
	}

	e.Clicks++

	return nil
}

func (e *Element) TypeText(text string) error {
	if err := e.stale(); err != nil {
		return err
	}

	e.Value += text

	return nil
}

func (e *Element) PressKey(key entity.Key) error {
	if err := e.stale(); err != nil {
		return err
	}

	e.Keys = append(e.Keys, key)

	return nil
}

type ScriptCall struct {
	Body string
	Args []any
}

type Session struct {
	Elements map[locator.Locator][]*Element
	URL      string
	// OnFind runs before every FindElements with the 1-based call number.
	OnFind func(call int)
	// OnURL runs before every CurrentURL with the 1-based call number.
	OnURL     func(call int)
	FindErr   error
	ScriptErr error

	FindCalls int
	URLCalls  int
	Scripts   []ScriptCall
	Navigated []string
	QuitCalls int
}

var _ ports.Session = (*Session)(nil)

func NewSession() *Session {
	return &Session{Elements: map[locator.Locator][]*Element{}}
}

// Put replaces the elements matching loc.
func (s *Session) Put(loc locator.Locator, elements ...*Element) {
	s.Elements[loc] = elements
}

func (s *Session) FindElements(_ context.Context, loc locator.Locator) ([]ports.Element, error) {
	s.FindCalls++
	if s.OnFind != nil {
		s.OnFind(s.FindCalls)
	}

	if s.FindErr != nil {
		return nil, s.FindErr
	}

	found := s.Elements[loc]
	out := make([]ports.Element, 0, len(found))
	for _, el := range found {
		out = append(out, el)
	}

	return out, nil
}

func (s *Session) Navigate(_ context.Context, url string) error {
	s.Navigated = append(s.Navigated, url)
	s.URL = url

	return nil
}

func (s *Session) CurrentURL(_ context.Context) (string, error) {
	s.URLCalls++
	if s.OnURL != nil {
		s.OnURL(s.URLCalls)
	}

	return s.URL, nil
}

func (s *Session) ExecuteScript(_ context.Context, body string, args ...any) (any, error) {
	s.Scripts = append(s.Scripts, ScriptCall{Body: body, Args: args})

	return nil, s.ScriptErr
}

func (s *Session) Quit(_ context.Context) error {
	s.QuitCalls++

	return nil
}

// Provider hands out a fixed session, or Err when set.
type Provider struct {
	Session *Session
	Err     error
	Opened  []entity.SessionOptions
}

var _ ports.SessionProvider = (*Provider)(nil)

func (p *Provider) Open(_ context.Context, opts entity.SessionOptions) (ports.Session, error) {
	p.Opened = append(p.Opened, opts)
	if p.Err != nil {
		return nil, p.Err
	}

	if p.Session == nil {
		return nil, errors.New("fake provider: no session configured")
	}

	return p.Session, nil
}
