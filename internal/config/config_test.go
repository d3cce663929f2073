package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prospection/autofollow/internal/browser"
	"github.com/prospection/autofollow/internal/output"
)

const testConfig = `
browser:
  driver: playwright
  headless: true
  user_data_dir: /tmp/profile
automation:
  max_attempts: 4
  retry_delay: 2s
  languages: [en, fr]
controller:
  workers: 2
  report_timeout: 1m
output:
  type: file
  filedir: results
store:
  path: test.db
`

func TestNewConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(testConfig), 0644); err != nil {
		t.Fatalf("got unexpected error: %v", err)
	}
	c, err := NewConfig(path)
	if err != nil {
		t.Fatalf("got unexpected error: %v", err)
	}
	if c.Browser.Driver != browser.PLAYWRIGHT_DRIVER_TYPE || !c.Browser.Headless || c.Browser.UserDataDir != "/tmp/profile" {
		t.Fatalf("unexpected browser config %+v", c.Browser)
	}
	if c.Browser.PageLoadWait != 2*time.Second {
		t.Fatalf("expected default page load wait of 2s but got %v", c.Browser.PageLoadWait)
	}
	if c.Automation.MaxAttempts != 4 || c.Automation.RetryDelay != 2*time.Second || len(c.Automation.Languages) != 2 {
		t.Fatalf("unexpected automation config %+v", c.Automation)
	}
	if c.Automation.ConfirmAttempts != 5 {
		t.Fatalf("expected default confirm attempts of 5 but got %d", c.Automation.ConfirmAttempts)
	}
	if c.Controller.Workers != 2 || c.Controller.ReportTimeout != time.Minute || c.Controller.DelayBetween != 5*time.Second {
		t.Fatalf("unexpected controller config %+v", c.Controller)
	}
	if c.Output.Type != output.FILE_WRITER_TYPE || c.Output.FileDir != "results" {
		t.Fatalf("unexpected output config %+v", c.Output)
	}
	if c.Store.Path != "test.db" {
		t.Fatalf("unexpected store path %s", c.Store.Path)
	}
}

func TestNewConfigMissingFile(t *testing.T) {
	c, err := NewConfig(filepath.Join(t.TempDir(), "missing.yml"))
	if err != nil {
		t.Fatalf("got unexpected error: %v", err)
	}
	if c.Automation.MaxAttempts != 10 || c.Store.Path != "prospection_data.db" || c.Output.Type != output.TABLE_WRITER_TYPE {
		t.Fatalf("expected defaults but got %+v", c)
	}
}

func TestNewConfigInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte("automation: [unclosed"), 0644); err != nil {
		t.Fatalf("got unexpected error: %v", err)
	}
	if _, err := NewConfig(path); err == nil {
		t.Fatalf("expected an error for an invalid file")
	}
}

func TestWriteFile(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("got unexpected error: %v", err)
	}
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := c.WriteFile(path, false); err != nil {
		t.Fatalf("got unexpected error: %v", err)
	}
	if err := c.WriteFile(path, false); err == nil {
		t.Fatalf("expected an error when the file exists")
	}
	if err := c.WriteFile(path, true); err != nil {
		t.Fatalf("got unexpected error: %v", err)
	}

	read, err := NewConfig(path)
	if err != nil {
		t.Fatalf("got unexpected error: %v", err)
	}
	if read.Automation.StartDelay != 500*time.Millisecond || len(read.Automation.EntityPatterns) != 1 {
		t.Fatalf("unexpected config read back %+v", read.Automation)
	}
}

func TestWriteFileReadableDurations(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("got unexpected error: %v", err)
	}
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := c.WriteFile(path, false); err != nil {
		t.Fatalf("got unexpected error: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("got unexpected error: %v", err)
	}
	for _, s := range []string{"start_delay: 500ms", "report_timeout: 1m30s", "delay_between: 5s"} {
		if !strings.Contains(string(b), s) {
			t.Errorf("expected config to contain %q, got:\n%s", s, b)
		}
	}
}
