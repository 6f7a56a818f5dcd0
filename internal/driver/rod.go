package driver

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"go.uber.org/zap"

	"webbot/internal/entity"
	"webbot/internal/locator"
	"webbot/internal/ports"
)

var rodStaleMarkers = []string{
	"node with given id",
	"Cannot find context with specified id",
	"Execution context was destroyed",
	"not attached",
	"Node is detached",
}

var rodKeys = map[entity.Key]input.Key{
	entity.KeyEnter:  input.Enter,
	entity.KeyEscape: input.Escape,
	entity.KeyDown:   input.ArrowDown,
	entity.KeyHome:   input.Home,
	entity.KeyTab:    input.Tab,
}

// rodSession drives a stealth-patched chrome over CDP, for sites that block
// stock automation.
type rodSession struct {
	logger  *zap.Logger
	browser *rod.Browser
	page    *rod.Page
}

func newRodLauncher(opts entity.SessionOptions) *launcher.Launcher {
	l := launcher.New().
		Headless(opts.Headless).
		Set("disable-notifications").
		Set("disable-extensions").
		Set("disable-gpu").
		Set("no-sandbox").
		Set("disable-dev-shm-usage").
		Set("safebrowsing-disable-download-protection")

	if opts.Incognito {
		l = l.Set("incognito")
	} else if opts.UserDataDir != "" {
		l = l.UserDataDir(opts.UserDataDir)
	}

	if opts.DisableImages {
		l = l.Set("blink-settings", "imagesEnabled=false")
	}

	return l
}

func openRod(opts entity.SessionOptions, logger *zap.Logger) (ports.Session, error) {
	controlURL, err := newRodLauncher(opts).Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chrome: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}

	s := &rodSession{logger: logger, browser: browser}

	if opts.DownloadDir != "" {
		err = proto.BrowserSetDownloadBehavior{
			Behavior:     proto.BrowserSetDownloadBehaviorBehaviorAllow,
			DownloadPath: opts.DownloadDir,
		}.Call(browser)
		if err != nil {
			_ = s.Quit(context.Background())
			return nil, fmt.Errorf("set download dir: %w", err)
		}
	}

	page, err := stealth.Page(browser)
	if err != nil {
		_ = s.Quit(context.Background())
		return nil, fmt.Errorf("create stealth page: %w", err)
	}

	s.page = page

	return s, nil
}

func (s *rodSession) FindElements(ctx context.Context, loc locator.Locator) ([]ports.Element, error) {
	page := s.page.Context(ctx)

	var (
		found rod.Elements
		err   error
	)

	switch loc.Strategy {
	case locator.CSS:
		found, err = page.Elements(loc.Identifier)
	case locator.ID:
		found, err = page.Elements(cssIDSelector(loc.Identifier))
	case locator.XPath:
		found, err = page.ElementsX(loc.Identifier)
	default:
		return nil, &locator.UnsupportedStrategyError{Name: loc.Strategy.String()}
	}

	if err != nil {
		return nil, staleError(err, rodStaleMarkers...)
	}

	elements := make([]ports.Element, 0, len(found))
	for _, el := range found {
		elements = append(elements, &rodElement{el: el})
	}

	return elements, nil
}

func (s *rodSession) Navigate(ctx context.Context, url string) error {
	page := s.page.Context(ctx)
	if err := page.Navigate(url); err != nil {
		return err
	}

	return page.WaitLoad()
}

func (s *rodSession) CurrentURL(ctx context.Context) (string, error) {
	info, err := s.page.Context(ctx).Info()
	if err != nil {
		return "", err
	}

	return info.URL, nil
}

func (s *rodSession) ExecuteScript(ctx context.Context, body string, args ...any) (any, error) {
	res, err := s.page.Context(ctx).Eval(`(...args) => (function() {`+"\n"+body+"\n"+`}).apply(null, args)`, args...)
	if err != nil {
		return nil, err
	}

	return res.Value.Val(), nil
}

func (s *rodSession) Quit(context.Context) error {
	if s.browser == nil {
		return nil
	}

	return s.browser.Close()
}

type rodElement struct {
	el *rod.Element
}

func (e *rodElement) eval(js string) (*proto.RuntimeRemoteObject, error) {
	res, err := e.el.Eval(js)
	return res, staleError(err, rodStaleMarkers...)
}

func (e *rodElement) IsDisplayed() (bool, error) {
	ok, err := e.el.Visible()
	return ok, staleError(err, rodStaleMarkers...)
}

func (e *rodElement) IsEnabled() (bool, error) {
	res, err := e.eval(jsIsEnabled)
	if err != nil {
		return false, err
	}

	return res.Value.Bool(), nil
}

func (e *rodElement) IsSelected() (bool, error) {
	res, err := e.eval(jsIsSelected)
	if err != nil {
		return false, err
	}

	return res.Value.Bool(), nil
}

func (e *rodElement) Text() (string, error) {
	text, err := e.el.Text()
	return text, staleError(err, rodStaleMarkers...)
}

func (e *rodElement) Size() (float64, float64, error) {
	res, err := e.eval(jsBox)
	if err != nil {
		return 0, 0, err
	}

	dims := res.Value.Arr()
	if len(dims) != 2 {
		return 0, 0, nil
	}

	return dims[0].Num(), dims[1].Num(), nil
}

func (e *rodElement) Attribute(name string) (string, error) {
	if name == "value" {
		res, err := e.eval(`() => this.value === undefined ? this.getAttribute('value') : this.value`)
		if err != nil {
			return "", err
		}

		if res.Value.Nil() {
			return "", nil
		}

		return res.Value.String(), nil
	}

	v, err := e.el.Attribute(name)
	if err != nil {
		return "", staleError(err, rodStaleMarkers...)
	}

	if v == nil {
		return "", nil
	}

	return *v, nil
}

func (e *rodElement) DispatchClick() error {
	_, err := e.eval(jsClick)
	return err
}

func (e *rodElement) TypeText(text string) error {
	if _, err := e.eval(jsCaretToEnd); err != nil {
		return err
	}

	return staleError(e.el.Input(text), rodStaleMarkers...)
}

func (e *rodElement) PressKey(key entity.Key) error {
	k, ok := rodKeys[key]
	if !ok {
		return fmt.Errorf("unknown key %q", key)
	}

	return staleError(e.el.Type(k), rodStaleMarkers...)
}
