package driver

import (
	"context"
	"fmt"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"webbot/internal/entity"
	"webbot/internal/locator"
	"webbot/internal/ports"
)

// Navigation tears down the execution context and frames; queries issued
// meanwhile fail with the last two messages and succeed once the next
// document is ready.
var playwrightStaleMarkers = []string{
	"not attached",
	"Element is detached",
	"Target page, context or browser has been closed",
	"Execution context was destroyed",
	"Frame was detached",
}

var playwrightKeys = map[entity.Key]string{
	entity.KeyEnter:  "Enter",
	entity.KeyEscape: "Escape",
	entity.KeyDown:   "ArrowDown",
	entity.KeyHome:   "Home",
	entity.KeyTab:    "Tab",
}

type playwrightSession struct {
	logger         *zap.Logger
	playwright     *playwright.Playwright
	browser        playwright.Browser
	browserContext playwright.BrowserContext
	page           playwright.Page
}

func openPlaywright(ctx context.Context, opts entity.SessionOptions, logger *zap.Logger) (ports.Session, error) {
	browserName := "chromium"
	if opts.Browser == entity.BrowserFirefox {
		browserName = "firefox"
	}

	if opts.Install {
		logger.Info("Installing browser driver", zap.String("driver", browserName))

		if err := playwright.Install(&playwright.RunOptions{Browsers: []string{browserName}}); err != nil {
			return nil, fmt.Errorf("install playwright %s: %w", browserName, err)
		}
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}

	s := &playwrightSession{logger: logger, playwright: pw}

	switch {
	case opts.Browser == entity.BrowserFirefox:
		err = s.launchFirefox(opts)
	case opts.Incognito || opts.UserDataDir == "":
		err = s.launchChromium(opts)
	default:
		err = s.launchPersistent(opts)
	}

	if err != nil {
		_ = s.Quit(ctx)
		return nil, err
	}

	return s, nil
}

func (s *playwrightSession) launchPersistent(opts entity.SessionOptions) error {
	s.logger.Info("Launching persistent browser context", zap.String("user_data_dir", opts.UserDataDir))

	options := playwright.BrowserTypeLaunchPersistentContextOptions{
		Headless:        playwright.Bool(opts.Headless),
		AcceptDownloads: playwright.Bool(true),
		Args:            chromeArgs(false, false, opts.DisableImages),
	}

	if opts.DownloadDir != "" {
		options.DownloadsPath = playwright.String(opts.DownloadDir)
	}

	browserContext, err := s.playwright.Chromium.LaunchPersistentContext(opts.UserDataDir, options)
	if err != nil {
		return fmt.Errorf("launch persistent context: %w", err)
	}

	s.browserContext = browserContext

	if pages := browserContext.Pages(); len(pages) > 0 {
		s.page = pages[0]
		return nil
	}

	return s.newPage()
}

func (s *playwrightSession) launchChromium(opts entity.SessionOptions) error {
	s.logger.Info("Launching new browser")

	options := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Args:     chromeArgs(false, false, opts.DisableImages),
	}

	if opts.DownloadDir != "" {
		options.DownloadsPath = playwright.String(opts.DownloadDir)
	}

	browser, err := s.playwright.Chromium.Launch(options)
	if err != nil {
		return fmt.Errorf("launch chromium: %w", err)
	}

	s.browser = browser

	return s.newContext()
}

func (s *playwrightSession) launchFirefox(opts entity.SessionOptions) error {
	s.logger.Info("Launching firefox")

	options := playwright.BrowserTypeLaunchOptions{
		Headless:         playwright.Bool(opts.Headless),
		FirefoxUserPrefs: firefoxPrefs(opts.DownloadDir, opts.Incognito, opts.DisableImages),
	}

	if opts.DownloadDir != "" {
		options.DownloadsPath = playwright.String(opts.DownloadDir)
	}

	browser, err := s.playwright.Firefox.Launch(options)
	if err != nil {
		return fmt.Errorf("launch firefox: %w", err)
	}

	s.browser = browser

	return s.newContext()
}

func (s *playwrightSession) newContext() error {
	browserContext, err := s.browser.NewContext(playwright.BrowserNewContextOptions{
		AcceptDownloads:   playwright.Bool(true),
		JavaScriptEnabled: playwright.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("create context: %w", err)
	}

	s.browserContext = browserContext

	return s.newPage()
}

func (s *playwrightSession) newPage() error {
	page, err := s.browserContext.NewPage()
	if err != nil {
		return fmt.Errorf("create page: %w", err)
	}

	s.page = page

	return nil
}

// activePage follows the user to another tab when the current one closed.
func (s *playwrightSession) activePage() (playwright.Page, error) {
	if s.browserContext == nil {
		return nil, fmt.Errorf("browser context is nil")
	}

	if s.page != nil && !s.page.IsClosed() {
		return s.page, nil
	}

	for _, p := range s.browserContext.Pages() {
		if !p.IsClosed() {
			s.page = p
			return p, nil
		}
	}

	if err := s.newPage(); err != nil {
		return nil, err
	}

	return s.page, nil
}

func playwrightSelector(loc locator.Locator) (string, error) {
	switch loc.Strategy {
	case locator.CSS:
		return "css=" + loc.Identifier, nil
	case locator.ID:
		return "id=" + loc.Identifier, nil
	case locator.XPath:
		return "xpath=" + loc.Identifier, nil
	default:
		return "", &locator.UnsupportedStrategyError{Name: loc.Strategy.String()}
	}
}

func (s *playwrightSession) FindElements(_ context.Context, loc locator.Locator) ([]ports.Element, error) {
	selector, err := playwrightSelector(loc)
	if err != nil {
		return nil, err
	}

	page, err := s.activePage()
	if err != nil {
		return nil, err
	}

	handles, err := page.QuerySelectorAll(selector)
	if err != nil {
		return nil, staleError(err, playwrightStaleMarkers...)
	}

	elements := make([]ports.Element, 0, len(handles))
	for _, h := range handles {
		elements = append(elements, &playwrightElement{handle: h})
	}

	return elements, nil
}

func (s *playwrightSession) Navigate(_ context.Context, url string) error {
	page, err := s.activePage()
	if err != nil {
		return err
	}

	_, err = page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
	})

	return err
}

func (s *playwrightSession) CurrentURL(context.Context) (string, error) {
	page, err := s.activePage()
	if err != nil {
		return "", err
	}

	return page.URL(), nil
}

func (s *playwrightSession) ExecuteScript(_ context.Context, body string, args ...any) (any, error) {
	page, err := s.activePage()
	if err != nil {
		return nil, err
	}

	return page.Evaluate(wrapScript(body), scriptArgs(args))
}

func (s *playwrightSession) Quit(context.Context) error {
	if s.browserContext != nil {
		if err := s.browserContext.Close(); err != nil {
			s.logger.Warn("Failed to close context", zap.Error(err))
		}
	}

	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			s.logger.Warn("Failed to close browser", zap.Error(err))
		}
	}

	if s.playwright != nil {
		if err := s.playwright.Stop(); err != nil {
			return fmt.Errorf("stop playwright: %w", err)
		}
	}

	return nil
}

type playwrightElement struct {
	handle playwright.ElementHandle
}

// bindThis calls a `this`-style snippet with the handle as receiver.
func bindThis(js string) string {
	return fmt.Sprintf("el => (function() { return (%s).apply(this, []); }).call(el)", js)
}

func (e *playwrightElement) eval(js string) (any, error) {
	v, err := e.handle.Evaluate(bindThis(js))
	return v, staleError(err, playwrightStaleMarkers...)
}

func (e *playwrightElement) evalBool(js string) (bool, error) {
	v, err := e.eval(js)
	if err != nil {
		return false, err
	}

	b, _ := v.(bool)

	return b, nil
}

func (e *playwrightElement) IsDisplayed() (bool, error) {
	ok, err := e.handle.IsVisible()
	return ok, staleError(err, playwrightStaleMarkers...)
}

func (e *playwrightElement) IsEnabled() (bool, error) {
	ok, err := e.handle.IsEnabled()
	return ok, staleError(err, playwrightStaleMarkers...)
}

func (e *playwrightElement) IsSelected() (bool, error) {
	return e.evalBool(jsIsSelected)
}

func (e *playwrightElement) Text() (string, error) {
	text, err := e.handle.InnerText()
	return text, staleError(err, playwrightStaleMarkers...)
}

func (e *playwrightElement) Size() (float64, float64, error) {
	box, err := e.handle.BoundingBox()
	if err != nil {
		return 0, 0, staleError(err, playwrightStaleMarkers...)
	}

	// nil box means the element is not rendered
	if box == nil {
		return 0, 0, nil
	}

	return box.Width, box.Height, nil
}

func (e *playwrightElement) Attribute(name string) (string, error) {
	if name == "value" {
		v, err := e.eval(`() => this.value === undefined ? this.getAttribute('value') : this.value`)
		if err != nil {
			return "", err
		}

		if v == nil {
			return "", nil
		}

		return fmt.Sprint(v), nil
	}

	v, err := e.handle.GetAttribute(name)
	return v, staleError(err, playwrightStaleMarkers...)
}

func (e *playwrightElement) DispatchClick() error {
	_, err := e.eval(jsClick)
	return err
}

func (e *playwrightElement) TypeText(text string) error {
	if _, err := e.eval(jsCaretToEnd); err != nil {
		return err
	}

	return staleError(e.handle.Type(text), playwrightStaleMarkers...)
}

func (e *playwrightElement) PressKey(key entity.Key) error {
	name, ok := playwrightKeys[key]
	if !ok {
		return fmt.Errorf("unknown key %q", key)
	}

	return staleError(e.handle.Press(name), playwrightStaleMarkers...)
}
