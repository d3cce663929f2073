/*
autofollow opens company pages in a browser, follows them and reports the
outcome of every page visit.

Have a look at the README.md for more information.
*/
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prospection/autofollow/internal/automator"
	"github.com/prospection/autofollow/internal/browser"
	"github.com/prospection/autofollow/internal/config"
	"github.com/prospection/autofollow/internal/controller"
	"github.com/prospection/autofollow/internal/log"
	"github.com/prospection/autofollow/internal/metrics"
	"github.com/prospection/autofollow/internal/output"
	"github.com/prospection/autofollow/internal/relay"
	"github.com/prospection/autofollow/internal/settings"
	"github.com/prospection/autofollow/internal/store"
	"github.com/prospection/autofollow/internal/types"
)

var version = "dev"

type VersionFlag string

func (v VersionFlag) Decode(_ *kong.DecodeContext) error { return nil }
func (v VersionFlag) IsBool() bool                       { return true }
func (v VersionFlag) BeforeApply(app *kong.Kong, vars kong.Vars) error {
	fmt.Println(vars["version"])
	app.Exit(0)
	return nil
}

type cli struct {
	Version VersionFlag `short:"v" long:"version" help:"Print the version and exit."`
	Debug   bool        `short:"d" long:"debug" help:"Set log level to 'debug' and keep the html and a screenshot of every visited page."`
	Config  string      `short:"c" default:"./config.yml" help:"The location of the configuration file." type:"path"`

	Follow     FollowCmd     `cmd:"" help:"Follow the given company pages."`
	Serve      ServeCmd      `cmd:"" help:"Only receive reports, for pages opened by another browser."`
	Settings   SettingsCmd   `cmd:"" help:"Show or change the automation settings."`
	Stats      StatsCmd      `cmd:"" help:"Show statistics of the prospection database."`
	Import     ImportCmd     `cmd:"" help:"Import companies and employees from a csv file into the prospection database."`
	InitConfig InitConfigCmd `cmd:"" name:"init-config" help:"Write a configuration file with the default values."`
}

type FollowCmd struct {
	URLs      []string `arg:"" optional:"" help:"Company page urls."`
	InputFile string   `short:"i" help:"A file with one url per line, '-' for stdin."`
	FromDB    bool     `short:"b" name:"from-db" help:"Follow all companies of the prospection database that were not added yet and mark the followed ones."`
	Limit     int      `short:"l" help:"Follow at most this many pages."`
	Stdout    bool     `short:"o" help:"Write results as json to stdout despite any other output configuration."`
}

func (fc *FollowCmd) Run(c *cli) error {
	cfg, err := config.NewConfig(c.Config)
	if err != nil {
		slog.Error(fmt.Sprintf("%v", err))
		return err
	}
	if fc.Stdout {
		cfg.Output.Type = output.STDOUT_WRITER_TYPE
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		slog.Error(fmt.Sprintf("%v", err))
		return err
	}
	defer st.Close()

	var fileURLs, dbURLs []string
	if fc.InputFile != "" {
		if fileURLs, err = readURLs(fc.InputFile); err != nil {
			slog.Error(fmt.Sprintf("%v", err))
			return err
		}
	}
	if fc.FromDB {
		companies, err := st.CompaniesNotAdded(ctx)
		if err != nil {
			slog.Error(fmt.Sprintf("%v", err))
			return err
		}
		for _, company := range companies {
			dbURLs = append(dbURLs, company.Link)
		}
	}
	urls := controller.NormaliseURLs(fc.URLs, fileURLs, dbURLs)
	if fc.Limit > 0 && len(urls) > fc.Limit {
		urls = urls[:fc.Limit]
	}
	if len(urls) == 0 {
		return errors.New("no urls to follow")
	}

	s := settings.Get(ctx, st, settings.Defaults)
	slog.Info(s.StatusMessage())

	writer, err := output.NewWriter(&cfg.Output)
	if err != nil {
		slog.Error(err.Error())
		return err
	}

	driver, err := browser.NewDriver(&cfg.Browser)
	if err != nil {
		slog.Error(fmt.Sprintf("%v", err))
		return err
	}
	defer driver.Close()

	auto, err := automator.New(cfg.Automation, st, automator.TimerSleeper)
	if err != nil {
		slog.Error(fmt.Sprintf("%v", err))
		return err
	}
	reg := prometheus.NewRegistry()
	ctrl := controller.New(cfg.Controller, &controller.BrowserLauncher{
		Driver:    driver,
		Automator: auto,
		Relay:     relay.New(driver, relay.NewReporter(0)),
	}, metrics.NewPrometheusRecorder(reg), reg)
	if fc.FromDB {
		ctrl.Marker = st
	}
	if err := ctrl.Start(ctx); err != nil {
		slog.Error(fmt.Sprintf("%v", err))
		return err
	}
	defer ctrl.Shutdown(context.Background())

	resultChan := make(chan types.Result)
	var summary types.Summary
	collectorWg := sync.WaitGroup{}
	collectorWg.Add(1)
	go func() {
		defer collectorWg.Done()
		summary = collector(resultChan, writer)
	}()
	ctrl.Run(ctx, urls, resultChan)
	close(resultChan)
	collectorWg.Wait()

	if output.ExitCode(summary) != 0 {
		return fmt.Errorf("%d of %d pages failed", summary.Errors, summary.Total)
	}
	return nil
}

type ServeCmd struct {
	Port int `short:"p" help:"The port to listen on. Overrides the configuration."`
}

func (sc *ServeCmd) Run(c *cli) error {
	cfg, err := config.NewConfig(c.Config)
	if err != nil {
		slog.Error(fmt.Sprintf("%v", err))
		return err
	}
	if sc.Port != 0 {
		cfg.Controller.Port = sc.Port
	}
	if cfg.Output.Type == output.TABLE_WRITER_TYPE || cfg.Output.Type == "" {
		// a table is only rendered at the end, results should show up as they come in
		cfg.Output.Type = output.STDOUT_WRITER_TYPE
	}
	writer, err := output.NewWriter(&cfg.Output)
	if err != nil {
		slog.Error(err.Error())
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	ctrl := controller.New(cfg.Controller, nil, metrics.NewPrometheusRecorder(reg), reg)
	if err := ctrl.Start(ctx); err != nil {
		slog.Error(fmt.Sprintf("%v", err))
		return err
	}

	resultChan := make(chan types.Result)
	collectorWg := sync.WaitGroup{}
	collectorWg.Add(1)
	go func() {
		defer collectorWg.Done()
		collector(resultChan, writer)
	}()
	ctrl.Serve(ctx, resultChan)
	if err := ctrl.Shutdown(context.Background()); err != nil {
		slog.Warn(fmt.Sprintf("failed to stop report server: %v", err))
	}
	close(resultChan)
	collectorWg.Wait()
	return nil
}

// collector hands the results to the writer and summarizes them.
func collector(resultChan <-chan types.Result, writer output.Writer) types.Summary {
	collectorLogger := slog.With(slog.String("collector", "main"))
	summary := types.Summary{Started: time.Now()}
	writerChan := make(chan types.Result)
	writerWg := sync.WaitGroup{}
	writerWg.Add(1)
	go func() {
		defer writerWg.Done()
		collectorLogger.Debug("starting writing results")
		writer.Write(writerChan)
	}()
	for r := range resultChan {
		summary.Add(r)
		writerChan <- r
	}
	close(writerChan)
	writerWg.Wait()
	summary.Finished = time.Now()
	writer.WriteSummary(summary)
	collectorLogger.Debug("done writing results")
	return summary
}

func readURLs(path string) ([]string, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	var urls []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	return urls, scanner.Err()
}

type SettingsCmd struct {
	Enabled   string `short:"e" enum:",on,off" default:"" help:"Turn the automation on or off."`
	AutoClose string `short:"a" enum:",on,off" default:"" help:"Turn closing of irrelevant pages on or off."`
}

func (sc *SettingsCmd) Run(c *cli) error {
	cfg, err := config.NewConfig(c.Config)
	if err != nil {
		slog.Error(fmt.Sprintf("%v", err))
		return err
	}
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		slog.Error(fmt.Sprintf("%v", err))
		return err
	}
	defer st.Close()

	ctx := context.Background()
	s := settings.Get(ctx, st, settings.Defaults)
	if sc.Enabled != "" || sc.AutoClose != "" {
		if sc.Enabled != "" {
			s.Enabled = sc.Enabled == "on"
		}
		if sc.AutoClose != "" {
			s.AutoCloseIrrelevant = sc.AutoClose == "on"
		}
		if err := settings.Save(ctx, st, s); err != nil {
			slog.Error(fmt.Sprintf("failed to save settings: %v", err))
			return err
		}
	}
	fmt.Println(s.StatusMessage())
	return nil
}

type StatsCmd struct{}

func (sc *StatsCmd) Run(c *cli) error {
	cfg, err := config.NewConfig(c.Config)
	if err != nil {
		slog.Error(fmt.Sprintf("%v", err))
		return err
	}
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		slog.Error(fmt.Sprintf("%v", err))
		return err
	}
	defer st.Close()

	ctx := context.Background()
	companies, err := st.CompanyStats(ctx)
	if err != nil {
		return err
	}
	employees, err := st.EmployeeStats(ctx)
	if err != nil {
		return err
	}
	for _, e := range []struct {
		name  string
		stats store.Stats
	}{{"company", companies}, {"employee", employees}} {
		fmt.Printf("\n%s statistics\n", e.name)
		output.RenderKeyValues(os.Stdout, [2]string{"metric", "count"}, statsRows(e.stats))
	}
	overall := store.Stats{
		Total:     companies.Total + employees.Total,
		Added:     companies.Added + employees.Added,
		Remaining: companies.Remaining + employees.Remaining,
	}
	fmt.Printf("\noverall progress: %.1f%%\n", overall.PercentageAdded())
	return nil
}

func statsRows(s store.Stats) [][2]string {
	return [][2]string{
		{"total", strconv.Itoa(s.Total)},
		{"added", fmt.Sprintf("%d (%.1f%%)", s.Added, s.PercentageAdded())},
		{"remaining", fmt.Sprintf("%d (%.1f%%)", s.Remaining, 100-s.PercentageAdded())},
	}
}

type ImportCmd struct {
	File         string `arg:"" help:"The csv file to import." type:"existingfile"`
	CompanyName  string `short:"n" default:"Company name" help:"The column holding the company name."`
	CompanyLink  string `short:"l" default:"Company LinkedIn" help:"The column holding the company page url."`
	EmployeeLink string `short:"e" help:"The column holding employee profile urls, if any."`
}

func (ic *ImportCmd) Run(c *cli) error {
	cfg, err := config.NewConfig(c.Config)
	if err != nil {
		slog.Error(fmt.Sprintf("%v", err))
		return err
	}
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		slog.Error(fmt.Sprintf("%v", err))
		return err
	}
	defer st.Close()

	f, err := os.Open(ic.File)
	if err != nil {
		return err
	}
	defer f.Close()
	ctx := log.ContextWithLogger(context.Background(), slog.With(slog.String("file", ic.File)))
	_, err = st.ImportCSV(ctx, f, store.CSVColumns{
		CompanyName:  ic.CompanyName,
		CompanyLink:  ic.CompanyLink,
		EmployeeLink: ic.EmployeeLink,
	})
	if err != nil {
		slog.Error(fmt.Sprintf("%v", err))
	}
	return err
}

type InitConfigCmd struct {
	File  string `short:"f" default:"./config.yml" help:"The file the configuration will be written to."`
	Force bool   `help:"Overwrite an existing file."`
}

func (ic *InitConfigCmd) Run() error {
	cfg, err := config.Default()
	if err != nil {
		return err
	}
	if err := cfg.WriteFile(ic.File, ic.Force); err != nil {
		slog.Error(fmt.Sprintf("%v", err))
		return err
	}
	slog.Info(fmt.Sprintf("successfully wrote config to file %s", ic.File))
	return nil
}

func getVersion() string {
	buildInfo, ok := debug.ReadBuildInfo()
	if ok {
		if buildInfo.Main.Version != "" && buildInfo.Main.Version != "(devel)" {
			return buildInfo.Main.Version
		}
	}
	return version
}

func main() {
	cli := cli{
		Version: VersionFlag(getVersion()),
	}

	ctx := kong.Parse(&cli,
		kong.Name("autofollow"),
		kong.Vars{
			"version": string(cli.Version),
		})

	log.Debug = cli.Debug
	log.InitializeDefaultLogger()

	err := ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
