// Package browser opens the pages the automation runs on. Every opened tab
// is one page visit; tabs implement dom.Page and the driver closes them on
// behalf of the relay.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prospection/autofollow/internal/dom"
	"github.com/prospection/autofollow/internal/log"
)

const (
	CHROMEDP_DRIVER_TYPE   = "chromedp"
	PLAYWRIGHT_DRIVER_TYPE = "playwright"
)

// Config configures the browser. Without a user data dir a fresh profile is
// used, which means the site's session cookies are missing.
type Config struct {
	Driver       string        `yaml:"driver" env:"AUTOFOLLOW_BROWSER_DRIVER" env-default:"chromedp"`
	Headless     bool          `yaml:"headless" env:"AUTOFOLLOW_BROWSER_HEADLESS" env-default:"false"`
	ChromeBinary string        `yaml:"chrome_binary" env:"AUTOFOLLOW_CHROME_BINARY"`
	UserDataDir  string        `yaml:"user_data_dir" env:"AUTOFOLLOW_USER_DATA_DIR"`
	ProfileDir   string        `yaml:"profile_dir"`
	UserAgent    string        `yaml:"user_agent"`
	WindowWidth  int           `yaml:"window_width" env-default:"1920"`
	WindowHeight int           `yaml:"window_height" env-default:"1080"`
	PageLoadWait time.Duration `yaml:"page_load_wait" env-default:"2s"`
	DebugDir     string        `yaml:"debug_dir" env-default:"debug"`
}

// A Tab is an open browser tab. Its context is cancelled once the tab is
// closed.
type Tab interface {
	dom.Page
	ID() string
	Context() context.Context
}

// A Driver opens and closes tabs of one browser instance.
type Driver interface {
	// Open navigates a new tab to rawURL with window.name set to windowName.
	Open(ctx context.Context, rawURL, windowName string) (Tab, error)
	CloseTab(ctx context.Context, tabID string) error
	Close() error
}

// NewDriver starts the browser configured in c.
func NewDriver(c *Config) (Driver, error) {
	switch c.Driver {
	case "", CHROMEDP_DRIVER_TYPE:
		return NewChromeDriver(c)
	case PLAYWRIGHT_DRIVER_TYPE:
		return NewPlaywrightDriver(c)
	default:
		return nil, fmt.Errorf("driver type %s does not exist", c.Driver)
	}
}

// stampScript gives every button-like element that has none a stable
// identity. Identities survive re-snapshots as long as the element lives.
var stampScript = fmt.Sprintf(`(() => {
	window.__autofollowSeq = window.__autofollowSeq || 0;
	let stamped = 0;
	document.querySelectorAll(%q).forEach(el => {
		if (!el.hasAttribute(%q)) {
			el.setAttribute(%q, "n" + (window.__autofollowSeq++));
			stamped++;
		}
	});
	return stamped;
})()`, dom.ButtonSelector, dom.IDAttr, dom.IDAttr)

func elementSelector(el dom.Element) string {
	return fmt.Sprintf(`[%s=%q]`, dom.IDAttr, el.ID())
}

func windowNameScript(name string) string {
	return fmt.Sprintf("window.name = %q", name)
}

// debugFileBase returns the path prefix for the artefacts of one tab.
func debugFileBase(debugDir, rawURL, tabID string) (string, error) {
	if err := os.MkdirAll(debugDir, os.ModePerm); err != nil {
		return "", fmt.Errorf("failed to create debug directory: %v", err)
	}
	host := "page"
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		host = strings.ReplaceAll(u.Host, ":", "_")
	}
	return filepath.Join(debugDir, fmt.Sprintf("%s-%s", host, tabID)), nil
}

func writeDebugFile(ctx context.Context, filename string, content []byte) {
	logger := log.LoggerFromContext(ctx)
	logger.Debug(fmt.Sprintf("writing debug file %s", filename))
	if err := os.WriteFile(filename, content, 0644); err != nil {
		logger.Warn("failed to write debug file", slog.String("file", filename), slog.String("err", err.Error()))
	}
}
