// Package controller opens the pages to follow, hands each one a tracking
// token and collects the report every page visit sends back to its local
// callback.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prospection/autofollow/internal/log"
	"github.com/prospection/autofollow/internal/metrics"
	"github.com/prospection/autofollow/internal/relay"
	"github.com/prospection/autofollow/internal/tracking"
	"github.com/prospection/autofollow/internal/types"
)

// ReasonLost is reported for tasks that never reported back.
const ReasonLost = "No report received."

type Config struct {
	// Port of the report callback. 0 picks a free port.
	Port          int           `yaml:"port" env:"AUTOFOLLOW_PORT" env-default:"0"`
	ReportTimeout time.Duration `yaml:"report_timeout" env-default:"90s"`
	Workers       int           `yaml:"workers" env-default:"1"`
	DelayBetween  time.Duration `yaml:"delay_between" env-default:"5s"`
	// PageDuration is how long a page stays open after a successful follow.
	PageDuration time.Duration `yaml:"page_duration" env-default:"5s"`
	Metrics      bool          `yaml:"metrics" env-default:"true"`
}

// A Launcher opens a page carrying the given tracking token.
type Launcher interface {
	Launch(ctx context.Context, rawURL string, token tracking.Descriptor) (tabID string, err error)
	CloseTab(ctx context.Context, tabID string) error
}

// A Marker records that the company behind a link is followed.
type Marker interface {
	MarkCompanyAddedByLink(ctx context.Context, link string) (bool, error)
}

type task struct {
	id      string
	url     string
	started time.Time
	reports chan types.Report
}

// Controller runs tasks and serves their report callback.
type Controller struct {
	config   Config
	launcher Launcher
	recorder metrics.Recorder
	gatherer prometheus.Gatherer
	// Marker is optional.
	Marker Marker

	mu       sync.Mutex
	pending  map[string]*task
	external chan<- types.Result
	listener net.Listener
	server   *http.Server
}

// New returns a Controller. recorder and gatherer may be nil.
func New(c Config, launcher Launcher, recorder metrics.Recorder, gatherer prometheus.Gatherer) *Controller {
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.ReportTimeout <= 0 {
		c.ReportTimeout = 90 * time.Second
	}
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &Controller{
		config:   c,
		launcher: launcher,
		recorder: recorder,
		gatherer: gatherer,
		pending:  map[string]*task{},
	}
}

// Start starts listening for reports. Reports are only ever sent to the
// loopback interface.
func (c *Controller) Start(ctx context.Context) error {
	logger := log.LoggerFromContext(ctx)
	addr := net.JoinHostPort(relay.DefaultHost, strconv.Itoa(c.config.Port))
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	c.mu.Lock()
	c.listener = l
	c.server = &http.Server{
		Handler:           c.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	srv := c.server
	c.mu.Unlock()

	logger.Info(fmt.Sprintf("listening for reports on http://%s/report", l.Addr()))
	go func() {
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(fmt.Sprintf("report server stopped: %v", err))
		}
	}()
	return nil
}

// Port returns the port reports are received on, 0 before Start.
func (c *Controller) Port() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.listener == nil {
		return 0
	}
	return c.listener.Addr().(*net.TCPAddr).Port
}

func (c *Controller) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	srv := c.server
	c.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// Run visits all urls and sends one result per url to results. It returns
// once every url has a result. results is not closed.
func (c *Controller) Run(ctx context.Context, urls []string, results chan<- types.Result) {
	logger := log.LoggerFromContext(ctx)
	urlChan := make(chan string)
	go func() {
		defer close(urlChan)
		logger.Info(fmt.Sprintf("queueing %d pages", len(urls)))
		for _, u := range urls {
			select {
			case urlChan <- u:
			case <-ctx.Done():
				return
			}
		}
	}()

	nrWorkers := int(math.Min(float64(c.config.Workers), float64(len(urls))))
	logger.Info(fmt.Sprintf("running with %d workers", nrWorkers))
	workerWg := sync.WaitGroup{}
	workerWg.Add(nrWorkers)
	for i := range nrWorkers {
		go func(j int) {
			defer workerWg.Done()
			c.worker(ctx, urlChan, results, j)
		}(i)
	}
	workerWg.Wait()
}

func (c *Controller) worker(ctx context.Context, urlChan <-chan string, results chan<- types.Result, workerNr int) {
	workerLogger := log.LoggerFromContext(ctx).With(slog.Int("worker", workerNr))
	ctx = log.ContextWithLogger(ctx, workerLogger)
	first := true
	for u := range urlChan {
		if !first && c.config.DelayBetween > 0 {
			workerLogger.Debug(fmt.Sprintf("waiting %v before the next page", c.config.DelayBetween))
			select {
			case <-ctx.Done():
				workerLogger.Info("stopped before the next page")
				return
			case <-time.After(c.config.DelayBetween):
			}
		}
		first = false
		results <- c.visit(ctx, u)
	}
	workerLogger.Info("done working")
}

// visit opens one page and waits for its report.
func (c *Controller) visit(ctx context.Context, rawURL string) types.Result {
	t := &task{
		id:      uuid.NewString(),
		url:     rawURL,
		started: time.Now(),
		reports: make(chan types.Report, 1),
	}
	logger := log.LoggerFromContext(ctx).With(slog.String("task", t.id), slog.String("url", rawURL))
	ctx = log.ContextWithLogger(ctx, logger)

	c.mu.Lock()
	c.pending[t.id] = t
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, t.id)
		c.mu.Unlock()
	}()
	c.recorder.TaskStarted()

	result := types.Result{TaskID: t.id, URL: rawURL}
	finish := func(status types.Status, reason string, lost bool) types.Result {
		result.Status = status
		result.Reason = reason
		result.ReportedAt = time.Now()
		result.Duration = result.ReportedAt.Sub(t.started).Seconds()
		c.recorder.ObserveResult(status, lost, result.ReportedAt.Sub(t.started))
		if status.Followed() && c.Marker != nil {
			if ok, err := c.Marker.MarkCompanyAddedByLink(ctx, rawURL); err != nil {
				logger.Warn(fmt.Sprintf("failed to mark company as added: %v", err))
			} else if ok {
				logger.Debug("company marked as added")
			}
		}
		return result
	}

	logger.Info("opening page")
	token := tracking.Descriptor{
		Port:         c.Port(),
		TaskID:       t.id,
		HasTracking:  true,
		PageDuration: c.config.PageDuration,
	}
	tabID, err := c.launcher.Launch(ctx, rawURL, token)
	if err != nil {
		logger.Error(fmt.Sprintf("failed to open page: %v", err))
		return finish(types.StatusError, fmt.Sprintf("Failed to open page: %v", err), false)
	}

	timer := time.NewTimer(c.config.ReportTimeout)
	defer timer.Stop()
	select {
	case r := <-t.reports:
		logger.Info("report received", slog.String("status", string(r.Status)))
		return finish(r.Status, r.Reason, false)
	case <-timer.C:
		logger.Warn(fmt.Sprintf("no report received within %v", c.config.ReportTimeout))
		if err := c.launcher.CloseTab(context.WithoutCancel(ctx), tabID); err != nil {
			logger.Debug(fmt.Sprintf("failed to close tab: %v", err))
		}
		return finish(types.StatusError, ReasonLost, true)
	case <-ctx.Done():
		return finish(types.StatusError, fmt.Sprintf("Cancelled: %v", ctx.Err()), true)
	}
}

// Serve publishes reports for tasks this controller did not start to
// results until ctx is done. It is used when pages are opened by another
// party.
func (c *Controller) Serve(ctx context.Context, results chan<- types.Result) {
	c.mu.Lock()
	c.external = results
	c.mu.Unlock()
	<-ctx.Done()
	c.mu.Lock()
	c.external = nil
	c.mu.Unlock()
}
