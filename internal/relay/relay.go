// Package relay implements the privileged side of the automation: it closes
// tabs and sends the outcome reports to the controller on behalf of the
// automator running in a page.
package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prospection/autofollow/internal/log"
	"github.com/prospection/autofollow/internal/types"
)

// Actions understood by the relay.
const (
	ActionCloseTab     = "close_tab"
	ActionReportResult = "report_result"
)

var (
	ErrMissingFields = errors.New("missing reporting fields")
	ErrUnknownAction = errors.New("unknown action")
)

// Message is a request from the automator to the relay.
type Message struct {
	Action string       `json:"action"`
	Port   int          `json:"port,omitempty"`
	TaskID string       `json:"taskId,omitempty"`
	URL    string       `json:"url,omitempty"`
	Status types.Status `json:"status,omitempty"`
	Reason string       `json:"reason,omitempty"`
}

// Response acknowledges a report_result message.
type Response struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Sender identifies the tab a message originates from.
type Sender struct {
	TabID string
}

// A TabCloser closes browser tabs.
type TabCloser interface {
	CloseTab(ctx context.Context, tabID string) error
}

// Relay dispatches messages. It holds no per visit state.
type Relay struct {
	tabs     TabCloser
	reporter *Reporter
}

func New(tabs TabCloser, reporter *Reporter) *Relay {
	return &Relay{
		tabs:     tabs,
		reporter: reporter,
	}
}

// Handle processes msg sent from sender. close_tab produces no response;
// its zero Response is returned.
func (r *Relay) Handle(ctx context.Context, sender Sender, msg Message) (Response, error) {
	logger := log.LoggerFromContext(ctx).With(slog.String("component", "relay"), slog.String("tab", sender.TabID))
	switch msg.Action {
	case ActionCloseTab:
		if sender.TabID == "" {
			logger.Warn("close_tab without sender tab")
			return Response{}, nil
		}
		if err := r.tabs.CloseTab(ctx, sender.TabID); err != nil {
			logger.Warn(fmt.Sprintf("failed to close tab: %v", err))
		}
		return Response{}, nil
	case ActionReportResult:
		if err := r.reportResult(ctx, msg); err != nil {
			logger.Warn("failed to report result", slog.String("err", err.Error()))
			return Response{OK: false, Error: err.Error()}, nil
		}
		return Response{OK: true}, nil
	default:
		return Response{}, fmt.Errorf("%w: %q", ErrUnknownAction, msg.Action)
	}
}

func (r *Relay) reportResult(ctx context.Context, msg Message) error {
	if msg.Port == 0 || msg.TaskID == "" || msg.URL == "" || msg.Status == "" {
		return ErrMissingFields
	}
	return r.reporter.Report(ctx, msg.Port, types.Report{
		TaskID: msg.TaskID,
		URL:    msg.URL,
		Status: msg.Status,
		Reason: msg.Reason,
	})
}

// A Messenger delivers messages of one automator to the relay.
type Messenger interface {
	Send(ctx context.Context, msg Message) (Response, error)
}

// Channel is the in-process Messenger binding a relay to the tab the
// automator runs in.
type Channel struct {
	Relay  *Relay
	Sender Sender
}

func (c Channel) Send(ctx context.Context, msg Message) (Response, error) {
	return c.Relay.Handle(ctx, c.Sender, msg)
}
