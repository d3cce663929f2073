package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"
	"github.com/prospection/autofollow/internal/dom"
	"github.com/prospection/autofollow/internal/log"
)

// PlaywrightDriver drives a Chromium through playwright. The playwright
// driver and browser are installed on first use.
type PlaywrightDriver struct {
	*Config
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext

	mu   sync.Mutex
	tabs map[string]*playwrightTab
}

func NewPlaywrightDriver(c *Config) (*PlaywrightDriver, error) {
	opts := &playwright.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}
	if err := playwright.Install(opts); err != nil {
		return nil, fmt.Errorf("failed to install playwright: %w", err)
	}
	pw, err := playwright.Run(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	d := &PlaywrightDriver{Config: c, pw: pw, tabs: map[string]*playwrightTab{}}
	if d.PageLoadWait == 0 {
		d.PageLoadWait = 2 * time.Second // default
	}
	width, height := c.WindowWidth, c.WindowHeight
	if width == 0 || height == 0 {
		width, height = 1920, 1080
	}
	viewport := &playwright.Size{Width: width, Height: height}
	var executable *string
	if c.ChromeBinary != "" {
		executable = playwright.String(c.ChromeBinary)
	}
	var userAgent *string
	if c.UserAgent != "" {
		userAgent = playwright.String(c.UserAgent)
	}

	if c.UserDataDir != "" {
		var args []string
		if c.ProfileDir != "" {
			args = append(args, "--profile-directory="+c.ProfileDir)
		}
		d.context, err = pw.Chromium.LaunchPersistentContext(c.UserDataDir, playwright.BrowserTypeLaunchPersistentContextOptions{
			Headless:       playwright.Bool(c.Headless),
			ExecutablePath: executable,
			UserAgent:      userAgent,
			Viewport:       viewport,
			Args:           args,
		})
		if err != nil {
			_ = pw.Stop()
			return nil, fmt.Errorf("failed to launch browser: %w", err)
		}
		return d, nil
	}

	d.browser, err = pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless:       playwright.Bool(c.Headless),
		ExecutablePath: executable,
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	d.context, err = d.browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent: userAgent,
		Viewport:  viewport,
	})
	if err != nil {
		d.browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to create context: %w", err)
	}
	return d, nil
}

func (d *PlaywrightDriver) Open(ctx context.Context, rawURL, windowName string) (Tab, error) {
	id := uuid.NewString()
	logger := log.LoggerFromContext(ctx).With(slog.String("driver", PLAYWRIGHT_DRIVER_TYPE), slog.String("tab", id), slog.String("url", rawURL))
	page, err := d.context.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	if _, err := page.Goto(rawURL); err != nil {
		page.Close()
		return nil, fmt.Errorf("navigation failed: %w", err)
	}
	if _, err := page.Evaluate(windowNameScript(windowName)); err != nil {
		page.Close()
		return nil, fmt.Errorf("failed to set window name: %w", err)
	}

	tabCtx, cancel := context.WithCancel(log.ContextWithLogger(context.Background(), logger))
	t := &playwrightTab{id: id, url: rawURL, page: page, ctx: tabCtx, cancel: cancel}
	logger.Debug(fmt.Sprintf("tab opened, waiting %v for the page to settle", d.PageLoadWait))
	select {
	case <-ctx.Done():
		t.close()
		return nil, ctx.Err()
	case <-time.After(d.PageLoadWait):
	}

	d.mu.Lock()
	d.tabs[id] = t
	d.mu.Unlock()
	return t, nil
}

func (d *PlaywrightDriver) CloseTab(ctx context.Context, tabID string) error {
	d.mu.Lock()
	t, ok := d.tabs[tabID]
	delete(d.tabs, tabID)
	d.mu.Unlock()
	if !ok {
		return fmt.Errorf("tab %s does not exist", tabID)
	}
	if log.Debug {
		t.dumpDebug(d.DebugDir)
	}
	return t.close()
}

func (d *PlaywrightDriver) Close() error {
	d.mu.Lock()
	for id, t := range d.tabs {
		_ = t.close()
		delete(d.tabs, id)
	}
	d.mu.Unlock()
	_ = d.context.Close()
	if d.browser != nil {
		_ = d.browser.Close()
	}
	return d.pw.Stop()
}

type playwrightTab struct {
	id     string
	url    string
	page   playwright.Page
	ctx    context.Context
	cancel context.CancelFunc
}

func (t *playwrightTab) ID() string {
	return t.id
}

func (t *playwrightTab) Context() context.Context {
	return t.ctx
}

func (t *playwrightTab) close() error {
	t.cancel()
	return t.page.Close()
}

func (t *playwrightTab) Location(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return t.page.URL(), nil
}

func (t *playwrightTab) WindowName(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	v, err := t.page.Evaluate(`() => window.name`)
	if err != nil {
		return "", err
	}
	name, _ := v.(string)
	return name, nil
}

func (t *playwrightTab) SetWindowName(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := t.page.Evaluate(windowNameScript(name))
	return err
}

func (t *playwrightTab) Snapshot(ctx context.Context) (*dom.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := t.page.Evaluate(stampScript); err != nil {
		return nil, fmt.Errorf("failed to stamp elements: %w", err)
	}
	body, err := t.page.Content()
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot page: %w", err)
	}
	return dom.NewDocumentFromString(body, t.page.URL())
}

func (t *playwrightTab) Click(ctx context.Context, el dom.Element) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if el.ID() == "" {
		return errors.New("cannot click an element without identity")
	}
	loc := t.page.Locator(elementSelector(el))
	n, err := loc.Count()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("element %s is gone", el.ID())
	}
	return loc.First().Click()
}

func (t *playwrightTab) dumpDebug(debugDir string) {
	base, err := debugFileBase(debugDir, t.url, t.id)
	if err != nil {
		log.LoggerFromContext(t.ctx).Warn(err.Error())
		return
	}
	if body, err := t.page.Content(); err == nil {
		writeDebugFile(t.ctx, base+".html", []byte(body))
	}
	if _, err := t.page.Screenshot(playwright.PageScreenshotOptions{Path: playwright.String(base + ".png")}); err != nil {
		log.LoggerFromContext(t.ctx).Warn("failed to capture screenshot", slog.String("err", err.Error()))
	}
}
