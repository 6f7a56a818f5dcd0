package entity

import (
	"fmt"
	"strings"
)

type BrowserKind string

const (
	BrowserChrome        BrowserKind = "chrome"
	BrowserFirefox       BrowserKind = "firefox"
	BrowserEvasiveChrome BrowserKind = "evasive-chrome"
)

// ParseBrowserKind accepts the legacy "undetected_chromedriver" spelling as
// an alias of the evasive variant.
func ParseBrowserKind(name string) (BrowserKind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", string(BrowserChrome):
		return BrowserChrome, nil
	case string(BrowserFirefox):
		return BrowserFirefox, nil
	case string(BrowserEvasiveChrome), "undetected_chromedriver":
		return BrowserEvasiveChrome, nil
	default:
		return "", fmt.Errorf("unsupported browser %q", name)
	}
}

// SessionOptions is the declarative description handed to a session
// provider. The core never interprets it beyond picking a backend.
type SessionOptions struct {
	Browser              BrowserKind
	Headless             bool
	Incognito            bool
	DownloadDir          string
	DisableImages        bool
	Remote               bool
	RemoteEndpoint       string
	RemoteBrowserVersion string
	UserDataDir          string
	Install              bool
}

type Key string

const (
	KeyEnter  Key = "enter"
	KeyEscape Key = "esc"
	KeyDown   Key = "down"
	KeyHome   Key = "home"
	KeyTab    Key = "tab"
)

// LookupKey reports whether name is one of the symbolic keys. Names outside
// the set are meant to be typed as literal text.
func LookupKey(name string) (Key, bool) {
	switch Key(name) {
	case KeyEnter, KeyEscape, KeyDown, KeyHome, KeyTab:
		return Key(name), true
	default:
		return "", false
	}
}
