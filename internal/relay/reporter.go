package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prospection/autofollow/internal/log"
	"github.com/prospection/autofollow/internal/types"
)

// DefaultHost is the only host reports are ever sent to.
const DefaultHost = "127.0.0.1"

// Reporter posts outcome reports to the controller's local callback.
type Reporter struct {
	client *http.Client
	host   string
}

func NewReporter(timeout time.Duration) *Reporter {
	if timeout == 0 {
		timeout = 10 * time.Second // default
	}
	return &Reporter{
		client: &http.Client{Timeout: timeout},
		host:   DefaultHost,
	}
}

// Endpoint returns the callback url for the given port.
func (r *Reporter) Endpoint(port int) string {
	return fmt.Sprintf("http://%s:%d/report", r.host, port)
}

// Report sends a single POST request. The request is detached from ctx's
// cancellation so that closing the reporting tab does not abort it. Any http
// response counts as delivered; the body is not consumed.
func (r *Reporter) Report(ctx context.Context, port int, report types.Report) error {
	logger := log.LoggerFromContext(ctx)
	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("error while marshaling report: %w", err)
	}
	endpoint := r.Endpoint(port)
	req, err := http.NewRequestWithContext(context.WithoutCancel(ctx), http.MethodPost, endpoint, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header = map[string][]string{
		"Content-Type": {"application/json"},
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("error while sending report: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 300 {
		logger.Warn(fmt.Sprintf("controller answered report with status code %d", resp.StatusCode), slog.String("endpoint", endpoint))
	} else {
		logger.Debug("report delivered", slog.String("endpoint", endpoint), slog.String("status", string(report.Status)))
	}
	return nil
}
