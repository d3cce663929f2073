package controller

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prospection/autofollow/internal/log"
	"github.com/prospection/autofollow/internal/metrics"
	"github.com/prospection/autofollow/internal/types"
)

const maxReportSize = 1 << 16

type response struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Handler returns the http handler of the report callback.
func (c *Controller) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /report", c.handleReport)
	if c.config.Metrics && c.gatherer != nil {
		mux.Handle("GET /metrics", metrics.Handler(c.gatherer))
	}
	return mux
}

func (c *Controller) handleReport(w http.ResponseWriter, r *http.Request) {
	logger := log.LoggerFromContext(r.Context()).With(slog.String("component", "report-server"))
	var report types.Report
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxReportSize)).Decode(&report); err != nil {
		writeJSON(w, http.StatusBadRequest, response{Error: fmt.Sprintf("invalid report: %v", err)})
		return
	}
	if report.TaskID == "" {
		writeJSON(w, http.StatusBadRequest, response{Error: "missing task_id"})
		return
	}
	if _, err := types.ParseStatus(string(report.Status)); err != nil {
		writeJSON(w, http.StatusBadRequest, response{Error: err.Error()})
		return
	}
	logger = logger.With(slog.String("task", report.TaskID))

	c.mu.Lock()
	t, ok := c.pending[report.TaskID]
	external := c.external
	c.mu.Unlock()

	if !ok {
		if external != nil {
			logger.Info("report received", slog.String("url", report.URL), slog.String("status", string(report.Status)))
			external <- types.Result{
				TaskID:     report.TaskID,
				URL:        report.URL,
				Status:     report.Status,
				Reason:     report.Reason,
				ReportedAt: time.Now(),
			}
			writeJSON(w, http.StatusOK, response{OK: true})
			return
		}
		logger.Warn("report for unknown task")
		writeJSON(w, http.StatusNotFound, response{Error: "unknown task"})
		return
	}
	if report.URL != t.url {
		logger.Debug(fmt.Sprintf("page reported from %s", report.URL))
	}
	select {
	case t.reports <- report:
		writeJSON(w, http.StatusOK, response{OK: true})
	default:
		logger.Warn("duplicate report")
		writeJSON(w, http.StatusConflict, response{Error: "task already reported"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
