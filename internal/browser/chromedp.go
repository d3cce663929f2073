package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/cdp"
	cdpdom "github.com/chromedp/cdproto/dom"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"github.com/prospection/autofollow/internal/dom"
	"github.com/prospection/autofollow/internal/log"
)

// ChromeDriver drives a Chromium through the DevTools protocol.
type ChromeDriver struct {
	*Config
	allocContext context.Context
	cancelAlloc  context.CancelFunc
	// browserContext keeps the browser process alive between tabs.
	browserContext context.Context
	cancelBrowser  context.CancelFunc

	mu   sync.Mutex
	tabs map[string]*chromeTab
}

func NewChromeDriver(c *Config) (*ChromeDriver, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", c.Headless),
	)
	width, height := c.WindowWidth, c.WindowHeight
	if width == 0 || height == 0 {
		width, height = 1920, 1080 // desktop view, some controls are missing on mobile
	}
	opts = append(opts, chromedp.WindowSize(width, height))
	if c.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(c.UserAgent))
	}
	if c.ChromeBinary != "" {
		opts = append(opts, chromedp.ExecPath(c.ChromeBinary))
	}
	if c.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(c.UserDataDir))
	}
	if c.ProfileDir != "" {
		opts = append(opts, chromedp.Flag("profile-directory", c.ProfileDir))
	}
	allocContext, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	browserContext, cancelBrowser := chromedp.NewContext(allocContext)
	// starts the browser
	if err := chromedp.Run(browserContext); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}
	d := &ChromeDriver{
		Config:         c,
		allocContext:   allocContext,
		cancelAlloc:    cancelAlloc,
		browserContext: browserContext,
		cancelBrowser:  cancelBrowser,
		tabs:           map[string]*chromeTab{},
	}
	if d.PageLoadWait == 0 {
		d.PageLoadWait = 2 * time.Second // default
	}
	return d, nil
}

func (d *ChromeDriver) Open(ctx context.Context, rawURL, windowName string) (Tab, error) {
	id := uuid.NewString()
	logger := log.LoggerFromContext(ctx).With(slog.String("driver", CHROMEDP_DRIVER_TYPE), slog.String("tab", id), slog.String("url", rawURL))
	tabCtx, cancel := chromedp.NewContext(d.browserContext)
	tabCtx = log.ContextWithLogger(tabCtx, logger)

	actions := []chromedp.Action{}
	if log.Debug {
		actions = append(actions, chromedp.ActionFunc(func(ctx context.Context) error {
			protocolVersion, product, revision, userAgent, jsVersion, err := browser.GetVersion().Do(ctx)
			if err != nil {
				logger.Warn("failed to get chrome version", slog.String("err", err.Error()))
				return nil
			}
			logger.Debug(fmt.Sprintf("chrome version: protocolVersion=%s, product=%s, revision=%s, userAgent=%s, jsVersion=%s",
				protocolVersion, product, revision, userAgent, jsVersion))
			return nil
		}))
	}
	actions = append(actions,
		chromedp.Navigate(rawURL),
		chromedp.Evaluate(windowNameScript(windowName), nil),
		chromedp.Sleep(d.PageLoadWait),
	)
	logger.Debug(fmt.Sprintf("opening tab: Navigate, set window name, Sleep(%v)", d.PageLoadWait))
	if err := chromedp.Run(tabCtx, actions...); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open %s: %w", rawURL, err)
	}

	t := &chromeTab{id: id, url: rawURL, ctx: tabCtx, cancel: cancel}
	d.mu.Lock()
	d.tabs[id] = t
	d.mu.Unlock()
	return t, nil
}

// CloseTab closes the tab with the given id. With debug logging on, the
// final html and a screenshot of the tab are written to the debug directory
// first.
func (d *ChromeDriver) CloseTab(ctx context.Context, tabID string) error {
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
	t.cancel()
	return nil
}

func (d *ChromeDriver) Close() error {
	d.mu.Lock()
	for id, t := range d.tabs {
		t.cancel()
		delete(d.tabs, id)
	}
	d.mu.Unlock()
	d.cancelBrowser()
	d.cancelAlloc()
	return nil
}

type chromeTab struct {
	id     string
	url    string
	ctx    context.Context
	cancel context.CancelFunc
}

func (t *chromeTab) ID() string {
	return t.id
}

func (t *chromeTab) Context() context.Context {
	return t.ctx
}

// run executes actions on the tab. ctx only contributes its cancellation.
func (t *chromeTab) run(ctx context.Context, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return chromedp.Run(t.ctx, actions...)
}

func (t *chromeTab) Location(ctx context.Context) (string, error) {
	var loc string
	err := t.run(ctx, chromedp.Location(&loc))
	return loc, err
}

func (t *chromeTab) WindowName(ctx context.Context) (string, error) {
	var name string
	err := t.run(ctx, chromedp.Evaluate(`window.name`, &name))
	return name, err
}

func (t *chromeTab) SetWindowName(ctx context.Context, name string) error {
	return t.run(ctx, chromedp.Evaluate(windowNameScript(name), nil))
}

func (t *chromeTab) Snapshot(ctx context.Context) (*dom.Document, error) {
	var loc, body string
	var stamped int
	err := t.run(ctx,
		chromedp.Evaluate(stampScript, &stamped),
		chromedp.Location(&loc),
		chromedp.ActionFunc(func(ctx context.Context) error {
			node, err := cdpdom.GetDocument().Do(ctx)
			if err != nil {
				return err
			}
			body, err = cdpdom.GetOuterHTML().WithNodeID(node.NodeID).Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot page: %w", err)
	}
	log.LoggerFromContext(t.ctx).Debug(fmt.Sprintf("snapshot taken, %d elements stamped", stamped))
	return dom.NewDocumentFromString(body, loc)
}

func (t *chromeTab) Click(ctx context.Context, el dom.Element) error {
	if el.ID() == "" {
		return errors.New("cannot click an element without identity")
	}
	sel := elementSelector(el)
	return t.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var nodes []*cdp.Node
		if err := chromedp.Nodes(sel, &nodes, chromedp.ByQuery, chromedp.AtLeast(0)).Do(ctx); err != nil {
			return err
		}
		if len(nodes) == 0 {
			return fmt.Errorf("element %s is gone", el.ID())
		}
		log.LoggerFromContext(t.ctx).Debug(fmt.Sprintf("clicking on node with selector: %s", sel))
		return chromedp.MouseClickNode(nodes[0]).Do(ctx)
	}))
}

func (t *chromeTab) dumpDebug(debugDir string) {
	ctx := t.ctx
	base, err := debugFileBase(debugDir, t.url, t.id)
	if err != nil {
		log.LoggerFromContext(ctx).Warn(err.Error())
		return
	}
	var body string
	var buf []byte
	err = chromedp.Run(ctx,
		chromedp.OuterHTML("html", &body, chromedp.ByQuery),
		chromedp.CaptureScreenshot(&buf),
	)
	if err != nil {
		log.LoggerFromContext(ctx).Warn("failed to capture debug artefacts", slog.String("err", err.Error()))
		return
	}
	writeDebugFile(ctx, base+".html", []byte(body))
	writeDebugFile(ctx, base+".png", buf)
}
