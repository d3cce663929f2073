package automator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/prospection/autofollow/internal/classify"
	"github.com/prospection/autofollow/internal/dom"
	"github.com/prospection/autofollow/internal/relay"
	"github.com/prospection/autofollow/internal/settings"
	"github.com/prospection/autofollow/internal/tracking"
	"github.com/prospection/autofollow/internal/types"
	"github.com/prospection/autofollow/internal/vocab"
)

type closeMode int

const (
	keepOpen closeMode = iota
	closeNow
	closeAfterPageDuration
	closeIfIrrelevant
)

// visit is the state of one page visit. It is owned by a single goroutine.
type visit struct {
	a         *Automator
	page      dom.Page
	messenger relay.Messenger
	logger    *slog.Logger

	location string
	tracking tracking.Descriptor
	settings settings.Settings

	reported bool
	outcome  Outcome
}

func (v *visit) run(ctx context.Context) {
	if err := v.a.sleeper.Sleep(ctx, v.a.config.StartDelay); err != nil {
		v.logger.Debug("visit cancelled before start", slog.String("err", err.Error()))
		return
	}

	location, err := v.page.Location(ctx)
	if err != nil {
		v.fail(ctx, err)
		return
	}
	v.location = location
	v.logger = v.logger.With(slog.String("url", location))

	windowName, err := v.page.WindowName(ctx)
	if err != nil {
		v.logger.Debug(fmt.Sprintf("failed to read window name: %v", err))
	}
	v.tracking, err = tracking.Parse(windowName, location)
	if err != nil {
		v.logger.Debug(fmt.Sprintf("reporting disabled: %v", err))
	} else {
		v.logger = v.logger.With(slog.String("task", v.tracking.TaskID))
	}

	v.settings = settings.Get(ctx, v.a.store, settings.Defaults)

	doc, ok := v.gate(ctx)
	if !ok {
		return
	}
	if err := v.follow(ctx, vocab.For(doc.Lang())); err != nil {
		v.fail(ctx, err)
	}
}

// gate runs the eligibility checks. It reports and returns false on the
// first failed check.
func (v *visit) gate(ctx context.Context) (*dom.Document, bool) {
	if !v.settings.Enabled {
		v.logger.Info("automation is paused, no action will be taken")
		v.finish(ctx, types.StatusSkipped, ReasonPaused, keepOpen)
		return nil, false
	}

	if strings.Contains(v.location, unavailableMarker) {
		v.logger.Info("unavailable page detected, closing tab immediately")
		v.finish(ctx, types.StatusError, ReasonUnavailable, closeNow)
		return nil, false
	}

	doc, err := v.page.Snapshot(ctx)
	if err != nil {
		v.fail(ctx, err)
		return nil, false
	}

	if lang := doc.Lang(); !v.a.supportsLanguage(lang) {
		v.logger.Info(fmt.Sprintf("unsupported interface language %q, closing tab immediately", lang))
		v.finish(ctx, types.StatusError, fmt.Sprintf("Unsupported interface language: %s.", displayLang(lang)), closeNow)
		return nil, false
	}

	if !v.a.isEntityPage(v.location) && !v.a.isEntityPage(doc.CanonicalURL()) {
		v.logger.Info("not a company page, no action will be taken")
		v.finish(ctx, types.StatusError, ReasonNotEntity, closeIfIrrelevant)
		return nil, false
	}

	if doc.HasLoginForm() {
		v.logger.Info("login form detected, closing tab immediately")
		v.finish(ctx, types.StatusError, ReasonLogin, closeNow)
		return nil, false
	}

	return doc, true
}

// follow searches for the follow control until it is found or the attempts
// are exhausted, clicks it and waits for the click to take effect.
func (v *visit) follow(ctx context.Context, vc vocab.Vocabulary) error {
	for attempt := 1; ; attempt++ {
		v.logger.Info(fmt.Sprintf("attempt %d: searching for a follow button", attempt))
		doc, err := v.page.Snapshot(ctx)
		if err != nil {
			return err
		}

		m, ok := classify.Find(doc, vc, classify.Follow, classify.AlreadyFollowed)
		if ok && m.Classification == classify.AlreadyFollowed {
			v.logger.Info("company is already followed")
			v.finish(ctx, types.StatusAlreadyFollowed, "", closeAfterPageDuration)
			return nil
		}
		if ok {
			v.logger.Debug("follow button found", slog.String("element", m.Element.ID()))
			if err := v.page.Click(ctx, m.Element); err != nil {
				return fmt.Errorf("error while clicking follow button: %w", err)
			}
			v.logger.Info("follow button clicked, waiting for confirmation")
			confirmed, err := v.confirm(ctx, m.Element, vc)
			if err != nil {
				return err
			}
			if confirmed {
				v.logger.Info("follow confirmed")
				v.finish(ctx, types.StatusFollow, "", closeAfterPageDuration)
			} else {
				v.logger.Warn("follow could not be confirmed")
				v.finish(ctx, types.StatusError, ReasonNotConfirmed, closeNow)
			}
			return nil
		}

		if attempt >= v.a.config.MaxAttempts {
			v.logger.Info(fmt.Sprintf("unable to locate a follow button after %d attempts", attempt))
			v.finish(ctx, types.StatusError, ReasonNotFound, closeNow)
			return nil
		}

		v.logger.Debug("follow button not found yet, retrying shortly")
		if err := v.a.sleeper.Sleep(ctx, v.a.config.RetryDelay); err != nil {
			return err
		}
	}
}

// confirm polls the page until the clicked control is in the already
// followed state. A follow control other than the clicked one showing up
// means the click did not register.
func (v *visit) confirm(ctx context.Context, clicked dom.Element, vc vocab.Vocabulary) (bool, error) {
	for poll := 1; poll <= v.a.config.ConfirmAttempts; poll++ {
		if err := v.a.sleeper.Sleep(ctx, v.a.config.ConfirmDelay); err != nil {
			return false, err
		}
		doc, err := v.page.Snapshot(ctx)
		if err != nil {
			return false, err
		}

		if el, ok := doc.ElementByID(clicked.ID()); ok {
			if classify.Classify(el, vc) == classify.AlreadyFollowed {
				return true, nil
			}
		} else if _, ok := classify.Find(doc, vc, classify.AlreadyFollowed); ok {
			// the control was rendered anew
			return true, nil
		}

		if m, ok := classify.Find(doc, vc, classify.Follow); ok && m.Element.ID() != clicked.ID() {
			v.logger.Debug(fmt.Sprintf("poll %d: another follow button appeared", poll))
			return false, nil
		}
		v.logger.Debug(fmt.Sprintf("poll %d: follow not confirmed yet", poll))
	}
	return false, nil
}

// fail ends a visit whose page could not be inspected any further.
func (v *visit) fail(ctx context.Context, err error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		v.logger.Warn("visit aborted", slog.String("err", err.Error()))
	} else {
		v.logger.Error(fmt.Sprintf("page error: %v", err))
	}
	v.finish(ctx, types.StatusError, fmt.Sprintf("Page error: %v", err), closeNow)
}

func (v *visit) finish(ctx context.Context, status types.Status, reason string, mode closeMode) {
	v.reportOnce(ctx, status, reason)

	switch mode {
	case keepOpen:
	case closeNow:
		v.closeTab(ctx, 0)
	case closeAfterPageDuration:
		delay := v.tracking.PageDuration
		if delay <= 0 {
			delay = v.a.config.CloseDelay
		}
		v.closeTab(ctx, delay)
	case closeIfIrrelevant:
		if v.settings.AutoCloseIrrelevant {
			v.closeTab(ctx, 0)
		}
	}
}

// reportOnce emits the report of the visit. Only the first call has an
// effect.
func (v *visit) reportOnce(ctx context.Context, status types.Status, reason string) {
	if v.reported {
		v.logger.Debug("result already reported", slog.String("status", string(status)))
		return
	}
	v.reported = true
	v.outcome.Report = types.Report{
		TaskID: v.tracking.TaskID,
		URL:    v.location,
		Status: status,
		Reason: reason,
	}

	if !v.tracking.HasTracking {
		v.logger.Debug("no tracking token, result is not reported", slog.String("status", string(status)))
		return
	}
	v.outcome.Tracked = true
	resp, err := v.messenger.Send(ctx, relay.Message{
		Action: relay.ActionReportResult,
		Port:   v.tracking.Port,
		TaskID: v.tracking.TaskID,
		URL:    v.location,
		Status: status,
		Reason: reason,
	})
	switch {
	case err != nil:
		v.logger.Warn(fmt.Sprintf("failed to report result: %v", err))
	case !resp.OK:
		v.logger.Warn(fmt.Sprintf("failed to report result: %s", resp.Error))
	default:
		v.logger.Info("result reported", slog.String("status", string(status)))
	}
}

// closeTab clears the tracking token and asks the relay to close the tab,
// after waiting for delay.
func (v *visit) closeTab(ctx context.Context, delay time.Duration) {
	if delay > 0 {
		v.logger.Debug(fmt.Sprintf("closing tab in %v", delay))
		if err := v.a.sleeper.Sleep(ctx, delay); err != nil {
			v.logger.Debug("tab went away before it was closed", slog.String("err", err.Error()))
			return
		}
	}
	if err := v.page.SetWindowName(ctx, ""); err != nil {
		v.logger.Warn(fmt.Sprintf("failed to clear tracking token: %v", err))
	}
	if _, err := v.messenger.Send(ctx, relay.Message{Action: relay.ActionCloseTab}); err != nil {
		v.logger.Warn(fmt.Sprintf("failed to close tab: %v", err))
		return
	}
	v.outcome.Closed = true
	v.outcome.CloseDelay = delay
}

func displayLang(lang string) string {
	if lang == "" {
		return "none"
	}
	return lang
}
