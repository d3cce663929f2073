// Package automator runs one page visit: it decides whether the page is
// eligible, clicks the follow control, confirms the click took effect,
// reports the outcome exactly once and asks for the tab to be closed.
package automator

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/gobwas/glob"
	"github.com/prospection/autofollow/internal/dom"
	"github.com/prospection/autofollow/internal/log"
	"github.com/prospection/autofollow/internal/relay"
	"github.com/prospection/autofollow/internal/settings"
	"github.com/prospection/autofollow/internal/types"
	"github.com/prospection/autofollow/internal/vocab"
)

// Config bounds the search and confirmation loops. Delays between attempts
// are constant.
type Config struct {
	StartDelay      time.Duration `yaml:"start_delay" env-default:"500ms"`
	MaxAttempts     int           `yaml:"max_attempts" env-default:"10"`
	RetryDelay      time.Duration `yaml:"retry_delay" env-default:"1s"`
	ConfirmAttempts int           `yaml:"confirm_attempts" env-default:"5"`
	ConfirmDelay    time.Duration `yaml:"confirm_delay" env-default:"1s"`
	// CloseDelay is used instead of the tracking token's page duration when
	// the token does not carry one.
	CloseDelay     time.Duration `yaml:"close_delay" env-default:"1s"`
	Languages      []string      `yaml:"languages"`
	EntityPatterns []string      `yaml:"entity_patterns"`
}

// DefaultEntityPatterns match company pages of the target site.
var DefaultEntityPatterns = []string{"*/company/*"}

const unavailableMarker = "unavailable"

// Reasons reported with error and skipped outcomes.
const (
	ReasonPaused       = "Automation is paused."
	ReasonUnavailable  = "Page unavailable."
	ReasonNotEntity    = "Not a company page."
	ReasonLogin        = "Login required."
	ReasonNotFound     = "Follow button not found."
	ReasonNotConfirmed = "Unable to confirm follow action."
)

// A Sleeper suspends the visit. It returns early with the context's error
// when ctx is done.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type SleeperFunc func(ctx context.Context, d time.Duration) error

func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) error {
	return f(ctx, d)
}

// TimerSleeper waits on the wall clock.
var TimerSleeper = SleeperFunc(func(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
})

// Automator holds what is shared between visits. It is safe for concurrent
// use; all per visit state lives in the visit started by Run.
type Automator struct {
	config    Config
	store     settings.Store
	sleeper   Sleeper
	patterns  []glob.Glob
	languages map[string]bool
}

// New returns an Automator. Missing config values get their defaults.
func New(c Config, store settings.Store, sleeper Sleeper) (*Automator, error) {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 10
	}
	if c.ConfirmAttempts <= 0 {
		c.ConfirmAttempts = 5
	}
	if len(c.EntityPatterns) == 0 {
		c.EntityPatterns = DefaultEntityPatterns
	}
	if len(c.Languages) == 0 {
		c.Languages = vocab.Supported()
	}
	if sleeper == nil {
		sleeper = TimerSleeper
	}

	a := &Automator{
		config:    c,
		store:     store,
		sleeper:   sleeper,
		languages: map[string]bool{},
	}
	for _, p := range c.EntityPatterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid entity pattern %q: %w", p, err)
		}
		a.patterns = append(a.patterns, g)
	}
	for _, l := range c.Languages {
		a.languages[vocab.BaseLanguage(l)] = true
	}
	return a, nil
}

// Outcome summarizes a finished visit.
type Outcome struct {
	Report types.Report
	// Tracked is false when the page carried no tracking token and the
	// report therefore was not sent anywhere.
	Tracked    bool
	Closed     bool
	CloseDelay time.Duration
}

// Run performs one visit of page. Messages for the relay go through
// messenger. Run only returns once the outcome is reported and the close
// request, if any, is sent.
func (a *Automator) Run(ctx context.Context, page dom.Page, messenger relay.Messenger) Outcome {
	v := &visit{
		a:         a,
		page:      page,
		messenger: messenger,
		logger:    log.LoggerFromContext(ctx).With(slog.String("component", "automator")),
	}
	v.run(ctx)
	return v.outcome
}

func (a *Automator) isEntityPage(rawURL string) bool {
	u := stripURL(rawURL)
	if u == "" {
		return false
	}
	for _, g := range a.patterns {
		if g.Match(u) {
			return true
		}
	}
	return false
}

func (a *Automator) supportsLanguage(lang string) bool {
	return a.languages[vocab.BaseLanguage(lang)]
}

// stripURL drops query and fragment so that tracking parameters cannot make
// an unrelated page look like an entity page.
func stripURL(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	u.RawQuery = ""
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}
