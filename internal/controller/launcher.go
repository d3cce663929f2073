package controller

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prospection/autofollow/internal/automator"
	"github.com/prospection/autofollow/internal/browser"
	"github.com/prospection/autofollow/internal/log"
	"github.com/prospection/autofollow/internal/relay"
	"github.com/prospection/autofollow/internal/tracking"
)

// BrowserLauncher opens pages in a browser and runs the automator in every
// opened tab. The relay closes the tabs.
type BrowserLauncher struct {
	Driver    browser.Driver
	Automator *automator.Automator
	Relay     *relay.Relay
}

func (b *BrowserLauncher) Launch(ctx context.Context, rawURL string, token tracking.Descriptor) (string, error) {
	tab, err := b.Driver.Open(ctx, rawURL, token.Encode())
	if err != nil {
		return "", err
	}
	logger := log.LoggerFromContext(ctx).With(slog.String("tab", tab.ID()))
	tabCtx := log.ContextWithLogger(tab.Context(), logger)
	go func() {
		outcome := b.Automator.Run(tabCtx, tab, relay.Channel{Relay: b.Relay, Sender: relay.Sender{TabID: tab.ID()}})
		logger.Debug(fmt.Sprintf("automation finished with %s, tab closed: %v", outcome.Report.Status, outcome.Closed))
	}()
	return tab.ID(), nil
}

func (b *BrowserLauncher) CloseTab(ctx context.Context, tabID string) error {
	return b.Driver.CloseTab(ctx, tabID)
}
