package driver

import (
	"errors"
	"fmt"
	"strings"

	"webbot/internal/ports"
)

// Element-side snippets. They are written with `this` bound to the element,
// which is how rod calls them; the playwright wrappers bind it explicitly.
const (
	jsIsEnabled  = `() => !this.disabled`
	jsIsSelected = `() => !!(this.checked || this.selected)`
	jsClick      = `() => this.click()`
	jsBox        = `() => { const r = this.getBoundingClientRect(); return [r.width, r.height]; }`
	jsCaretToEnd = `() => {
		this.focus();
		if (typeof this.setSelectionRange === 'function' && typeof this.value === 'string') {
			try { this.setSelectionRange(this.value.length, this.value.length); } catch (e) {}
		}
	}`
)

// wrapScript turns a function body into a function taking the positional
// arguments array.
func wrapScript(body string) string {
	return fmt.Sprintf("(args) => (function() {\n%s\n}).apply(null, args)", body)
}

func scriptArgs(args []any) []any {
	if args == nil {
		return []any{}
	}

	return args
}

// staleError tags backend errors whose message says the node is gone.
func staleError(err error, markers ...string) error {
	if err == nil || errors.Is(err, ports.ErrStaleElement) {
		return err
	}

	msg := err.Error()
	for _, m := range markers {
		if strings.Contains(msg, m) {
			return fmt.Errorf("%w: %w", ports.ErrStaleElement, err)
		}
	}

	return err
}

// cssIDSelector matches id values that are not valid CSS identifiers.
func cssIDSelector(id string) string {
	return `[id="` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(id) + `"]`
}

func chromeArgs(headless, incognito, disableImages bool) []string {
	args := []string{
		"--disable-notifications",
		"--disable-extensions",
		"--disable-gpu",
		"--no-sandbox",
		"--disable-dev-shm-usage",
		"--disable-blink-features=AutomationControlled",
		"--safebrowsing-disable-download-protection",
	}

	if headless {
		args = append(args, "--headless=new")
	}

	if incognito {
		args = append(args, "--incognito")
	}

	if disableImages {
		args = append(args, "--blink-settings=imagesEnabled=false")
	}

	return args
}

func chromePrefs(downloadDir string) map[string]any {
	prefs := map[string]any{}
	prefs["download.prompt_for_download"] = false
	prefs["download.directory_upgrade"] = true
	prefs["safebrowsing.enabled"] = false
	prefs["profile.default_content_setting_values.notifications"] = 2
	prefs["profile.default_content_setting_values.automatic_downloads"] = 1

	if downloadDir != "" {
		prefs["download.default_directory"] = downloadDir
	}

	return prefs
}

const firefoxSaveToDisk = "application/pdf,application/octet-stream,text/csv,application/zip," +
	"application/vnd.ms-excel,application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func firefoxPrefs(downloadDir string, incognito, disableImages bool) map[string]any {
	prefs := map[string]any{}
	prefs["dom.webnotifications.enabled"] = false
	prefs["layers.acceleration.disabled"] = true
	prefs["toolkit.cosmeticAnimations.enabled"] = false
	prefs["browser.download.useDownloadDir"] = true
	prefs["browser.helperApps.neverAsk.saveToDisk"] = firefoxSaveToDisk
	prefs["pdfjs.disabled"] = true

	if downloadDir != "" {
		prefs["browser.download.folderList"] = 2
		prefs["browser.download.dir"] = downloadDir
	}

	if incognito {
		prefs["browser.privatebrowsing.autostart"] = true
	}

	if disableImages {
		prefs["permissions.default.image"] = 2
	}

	return prefs
}
