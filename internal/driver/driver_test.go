package driver

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"webbot/internal/entity"
	"webbot/internal/locator"
	"webbot/internal/ports"
)

const mismatchMsg = "session not created: This version of ChromeDriver only supports Chrome version 114\n" +
	"Current browser version is 120.0.6099.109 with binary path /usr/bin/google-chrome"

func TestParseVersionMismatch(t *testing.T) {
	vm, ok := ParseVersionMismatch(mismatchMsg)
	require.True(t, ok)
	assert.Equal(t, "114", vm.DriverSupports)
	assert.Equal(t, "120.0.6099.109", vm.BrowserVersion)

	_, ok = ParseVersionMismatch("connection refused")
	assert.False(t, ok)
}

func TestBootstrapError_VersionMismatchMessage(t *testing.T) {
	err := newBootstrapError(entity.SessionOptions{Browser: entity.BrowserChrome}, errors.New(mismatchMsg))

	require.NotNil(t, err.Mismatch)
	assert.Contains(t, err.Error(), "120.0.6099.109")
	assert.Contains(t, err.Error(), "114")
	assert.Contains(t, err.Error(), "update the browser")
}

func TestProvider_RejectsRemoteEvasiveChrome(t *testing.T) {
	p := NewProvider(Params{Logger: zap.NewNop()})

	session, err := p.Open(context.Background(), entity.SessionOptions{
		Browser:        entity.BrowserEvasiveChrome,
		Remote:         true,
		RemoteEndpoint: "http://localhost:4444/wd/hub",
	})

	assert.Nil(t, session)

	var bootErr *BootstrapError
	require.ErrorAs(t, err, &bootErr)
	assert.True(t, bootErr.Remote)
	assert.ErrorIs(t, err, errRemoteEvasive)
}

func TestProvider_RejectsUnknownBrowser(t *testing.T) {
	p := NewProvider(Params{Logger: zap.NewNop()})

	_, err := p.Open(context.Background(), entity.SessionOptions{
		Browser:     entity.BrowserKind("safari"),
		UserDataDir: t.TempDir(),
	})

	var bootErr *BootstrapError
	require.ErrorAs(t, err, &bootErr)
	assert.ErrorIs(t, err, errUnknownBrowser)
}

func TestProvider_RemoteNeedsEndpoint(t *testing.T) {
	p := NewProvider(Params{Logger: zap.NewNop()})

	_, err := p.Open(context.Background(), entity.SessionOptions{Browser: entity.BrowserChrome, Remote: true})

	var bootErr *BootstrapError
	require.ErrorAs(t, err, &bootErr)
	assert.Contains(t, err.Error(), "remote endpoint")
}

func TestNormalizeOptions_CreatesDirectories(t *testing.T) {
	root := t.TempDir()
	chdir(t, root)

	opts, err := normalizeOptions(entity.SessionOptions{DownloadDir: "downloads", UserDataDir: "profile"})
	require.NoError(t, err)

	assert.Equal(t, entity.BrowserChrome, opts.Browser)
	assert.DirExists(t, opts.DownloadDir)
	assert.DirExists(t, opts.UserDataDir)
	assert.True(t, len(opts.DownloadDir) > len("downloads"))
}

func TestNormalizeOptions_EmptyDownloadDirKeepsDefault(t *testing.T) {
	opts, err := normalizeOptions(entity.SessionOptions{Browser: entity.BrowserFirefox})
	require.NoError(t, err)
	assert.Empty(t, opts.DownloadDir)
}

func TestPlaywrightSelector(t *testing.T) {
	tests := []struct {
		loc  locator.Locator
		want string
	}{
		{loc: locator.ByCSS("#submit"), want: "css=#submit"},
		{loc: locator.ByID("login"), want: "id=login"},
		{loc: locator.ByXPath("//a[text()='Home']"), want: "xpath=//a[text()='Home']"},
	}

	for _, tt := range tests {
		t.Run(tt.loc.String(), func(t *testing.T) {
			got, err := playwrightSelector(tt.loc)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := playwrightSelector(locator.Locator{Identifier: "x"})
	assert.ErrorIs(t, err, locator.ErrUnsupportedStrategy)
}

func TestSeleniumBy(t *testing.T) {
	by, err := seleniumBy(locator.XPath)
	require.NoError(t, err)
	assert.Equal(t, "xpath", by)

	by, err = seleniumBy(locator.CSS)
	require.NoError(t, err)
	assert.Equal(t, "css selector", by)

	_, err = seleniumBy(locator.Strategy(42))
	assert.ErrorIs(t, err, locator.ErrUnsupportedStrategy)
}

func TestCSSIDSelectorEscapesQuotes(t *testing.T) {
	assert.Equal(t, `[id="main"]`, cssIDSelector("main"))
	assert.Equal(t, `[id="a\"b"]`, cssIDSelector(`a"b`))
}

func TestKeyMapsCoverEverySymbolicKey(t *testing.T) {
	for _, key := range []entity.Key{entity.KeyEnter, entity.KeyEscape, entity.KeyDown, entity.KeyHome, entity.KeyTab} {
		assert.Contains(t, playwrightKeys, key)
		assert.Contains(t, rodKeys, key)
		assert.Contains(t, seleniumKeys, key)
	}
}

func TestRemoteCapabilities(t *testing.T) {
	caps := remoteCapabilities(entity.SessionOptions{
		Browser:              entity.BrowserChrome,
		Headless:             true,
		DisableImages:        true,
		RemoteBrowserVersion: "121.0",
	})

	assert.Equal(t, "chrome", caps["browserName"])
	assert.Equal(t, "121.0", caps["browserVersion"])
	require.Contains(t, caps, "selenoid:options")
	assert.Contains(t, caps, "goog:chromeOptions")

	ffCaps := remoteCapabilities(entity.SessionOptions{Browser: entity.BrowserFirefox})
	assert.Equal(t, "firefox", ffCaps["browserName"])
	assert.Contains(t, ffCaps, "moz:firefoxOptions")
	assert.NotContains(t, ffCaps, "browserVersion")
}

func TestChromeArgs(t *testing.T) {
	args := chromeArgs(true, true, true)
	assert.Contains(t, args, "--headless=new")
	assert.Contains(t, args, "--incognito")
	assert.Contains(t, args, "--blink-settings=imagesEnabled=false")

	assert.NotContains(t, chromeArgs(false, false, false), "--incognito")
}

func TestPrefsCarryDownloadDir(t *testing.T) {
	assert.Equal(t, "/tmp/dl", chromePrefs("/tmp/dl")["download.default_directory"])
	assert.NotContains(t, chromePrefs(""), "download.default_directory")

	ff := firefoxPrefs("/tmp/dl", true, true)
	assert.Equal(t, "/tmp/dl", ff["browser.download.dir"])
	assert.Equal(t, true, ff["browser.privatebrowsing.autostart"])
	assert.Equal(t, 2, ff["permissions.default.image"])
}

func TestStaleError_NavigationIsTransient(t *testing.T) {
	tests := []struct {
		name    string
		msg     string
		markers []string
	}{
		{name: "playwright context", msg: "Execution context was destroyed, most likely because of a navigation", markers: playwrightStaleMarkers},
		{name: "playwright frame", msg: "Frame was detached", markers: playwrightStaleMarkers},
		{name: "rod context", msg: "{-32000 Execution context was destroyed. }", markers: rodStaleMarkers},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, staleError(errors.New(tt.msg), tt.markers...), ports.ErrStaleElement)
		})
	}
}

func TestStaleError(t *testing.T) {
	err := staleError(errors.New("stale element reference: element is not attached to the page document"), seleniumStaleMarkers...)
	assert.ErrorIs(t, err, ports.ErrStaleElement)

	plain := errors.New("timeout")
	assert.Same(t, plain, staleError(plain, seleniumStaleMarkers...))
	assert.NoError(t, staleError(nil, seleniumStaleMarkers...))
}

func TestWrapScript(t *testing.T) {
	got := wrapScript("return arguments[0] + 1;")
	assert.Contains(t, got, "return arguments[0] + 1;")
	assert.Contains(t, got, ".apply(null, args)")
	assert.Equal(t, []any{}, scriptArgs(nil))
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir from Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
