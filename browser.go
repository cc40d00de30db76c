package report2pdf

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/go-rod/rod/lib/launcher"
)

// browserPathEnv overrides browser discovery when set.
const browserPathEnv = "REPORT2PDF_BROWSER"

// wellKnownBrowsers are binary names probed on PATH, in preference order.
var wellKnownBrowsers = []string{
	"google-chrome",
	"google-chrome-stable",
	"chromium",
	"chromium-browser",
	"chrome",
	"msedge",
	"brave-browser",
}

// BrowserLocator finds a Chromium-compatible executable for the browser
// render strategy.
type BrowserLocator interface {
	Locate() (string, error)
}

// LocateBrowser runs the default browser discovery without downloading.
// Used by environment checks that want to report what a conversion would
// find.
func LocateBrowser() (string, error) {
	return (&defaultLocator{}).Locate()
}

// defaultLocator resolves the browser in order: environment override, PATH
// probe of well-known names, launcher discovery of system installs, and
// finally a managed download.
type defaultLocator struct {
	// AllowDownload permits fetching a browser build when none is installed.
	AllowDownload bool
}

var _ BrowserLocator = (*defaultLocator)(nil)

func (l *defaultLocator) Locate() (string, error) {
	if path := os.Getenv(browserPathEnv); path != "" {
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("%w: %s=%s: %v", ErrBrowserUnavailable, browserPathEnv, path, err)
		}
		return path, nil
	}

	for _, name := range wellKnownBrowsers {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}

	if path, ok := launcher.LookPath(); ok {
		return path, nil
	}

	if l.AllowDownload {
		path, err := launcher.NewBrowser().Get()
		if err != nil {
			return "", fmt.Errorf("%w: download failed: %v", ErrBrowserUnavailable, err)
		}
		return path, nil
	}

	return "", fmt.Errorf("%w: no executable found (set %s to override)", ErrBrowserUnavailable, browserPathEnv)
}
