package driver

import (
	"context"
	"fmt"
	"strings"

	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/chrome"
	"github.com/tebeka/selenium/firefox"
	"go.uber.org/zap"

	"webbot/internal/entity"
	"webbot/internal/locator"
	"webbot/internal/ports"
)

var seleniumStaleMarkers = []string{"stale element reference", "element is not attached"}

var seleniumKeys = map[entity.Key]string{
	entity.KeyEnter:  selenium.EnterKey,
	entity.KeyEscape: selenium.EscapeKey,
	entity.KeyDown:   selenium.DownArrowKey,
	entity.KeyHome:   selenium.HomeKey,
	entity.KeyTab:    selenium.TabKey,
}

// seleniumSession runs on a remote grid such as Selenoid.
type seleniumSession struct {
	logger *zap.Logger
	wd     selenium.WebDriver
}

func remoteCapabilities(opts entity.SessionOptions) selenium.Capabilities {
	caps := selenium.Capabilities{
		"browserName": string(opts.Browser),
		"selenoid:options": map[string]any{
			"enableVNC":        true,
			"enableVideo":      false,
			"screenResolution": "1280x1024x24",
		},
	}

	if opts.RemoteBrowserVersion != "" {
		caps["browserVersion"] = opts.RemoteBrowserVersion
	}

	switch opts.Browser {
	case entity.BrowserFirefox:
		args := []string{}
		if opts.Headless {
			args = append(args, "-headless")
		}

		caps.AddFirefox(firefox.Capabilities{
			Args:  args,
			Prefs: firefoxPrefs(opts.DownloadDir, opts.Incognito, opts.DisableImages),
		})
	default:
		caps.AddChrome(chrome.Capabilities{
			Args:  chromeArgs(opts.Headless, opts.Incognito, opts.DisableImages),
			Prefs: chromePrefs(opts.DownloadDir),
			W3C:   true,
		})
	}

	return caps
}

func openSelenium(opts entity.SessionOptions, logger *zap.Logger) (ports.Session, error) {
	wd, err := selenium.NewRemote(remoteCapabilities(opts), opts.RemoteEndpoint)
	if err != nil {
		return nil, fmt.Errorf("open remote session at %s: %w", opts.RemoteEndpoint, err)
	}

	// polling belongs to the wait engine
	if err := wd.SetImplicitWaitTimeout(0); err != nil {
		logger.Warn("Failed to reset implicit wait", zap.Error(err))
	}

	return &seleniumSession{logger: logger, wd: wd}, nil
}

func seleniumBy(strategy locator.Strategy) (string, error) {
	switch strategy {
	case locator.CSS:
		return selenium.ByCSSSelector, nil
	case locator.ID:
		return selenium.ByID, nil
	case locator.XPath:
		return selenium.ByXPATH, nil
	default:
		return "", &locator.UnsupportedStrategyError{Name: strategy.String()}
	}
}

func (s *seleniumSession) FindElements(_ context.Context, loc locator.Locator) ([]ports.Element, error) {
	by, err := seleniumBy(loc.Strategy)
	if err != nil {
		return nil, err
	}

	found, err := s.wd.FindElements(by, loc.Identifier)
	if err != nil {
		return nil, staleError(err, seleniumStaleMarkers...)
	}

	elements := make([]ports.Element, 0, len(found))
	for _, we := range found {
		elements = append(elements, &seleniumElement{wd: s.wd, we: we})
	}

	return elements, nil
}

func (s *seleniumSession) Navigate(_ context.Context, url string) error {
	return s.wd.Get(url)
}

func (s *seleniumSession) CurrentURL(context.Context) (string, error) {
	return s.wd.CurrentURL()
}

func (s *seleniumSession) ExecuteScript(_ context.Context, body string, args ...any) (any, error) {
	return s.wd.ExecuteScript(body, scriptArgs(args))
}

func (s *seleniumSession) Quit(context.Context) error {
	return s.wd.Quit()
}

type seleniumElement struct {
	wd selenium.WebDriver
	we selenium.WebElement
}

func (e *seleniumElement) IsDisplayed() (bool, error) {
	ok, err := e.we.IsDisplayed()
	return ok, staleError(err, seleniumStaleMarkers...)
}

func (e *seleniumElement) IsEnabled() (bool, error) {
	ok, err := e.we.IsEnabled()
	return ok, staleError(err, seleniumStaleMarkers...)
}

func (e *seleniumElement) IsSelected() (bool, error) {
	ok, err := e.we.IsSelected()
	return ok, staleError(err, seleniumStaleMarkers...)
}

func (e *seleniumElement) Text() (string, error) {
	text, err := e.we.Text()
	return text, staleError(err, seleniumStaleMarkers...)
}

func (e *seleniumElement) Size() (float64, float64, error) {
	size, err := e.we.Size()
	if err != nil {
		return 0, 0, staleError(err, seleniumStaleMarkers...)
	}

	return float64(size.Width), float64(size.Height), nil
}

func (e *seleniumElement) Attribute(name string) (string, error) {
	v, err := e.we.GetAttribute(name)
	// the client reports a null attribute as an error
	if err != nil && strings.Contains(err.Error(), "nil return value") {
		return "", nil
	}

	return v, staleError(err, seleniumStaleMarkers...)
}

func (e *seleniumElement) DispatchClick() error {
	_, err := e.wd.ExecuteScript("arguments[0].click();", []any{e.we})
	return staleError(err, seleniumStaleMarkers...)
}

// TypeText relies on WebDriver placing the caret at the end before typing.
func (e *seleniumElement) TypeText(text string) error {
	return staleError(e.we.SendKeys(text), seleniumStaleMarkers...)
}

func (e *seleniumElement) PressKey(key entity.Key) error {
	k, ok := seleniumKeys[key]
	if !ok {
		return fmt.Errorf("unknown key %q", key)
	}

	return staleError(e.we.SendKeys(k), seleniumStaleMarkers...)
}
