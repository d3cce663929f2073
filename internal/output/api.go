package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prospection/autofollow/internal/types"
)

// APIWriter posts results in batches to a custom API, e.g. a CRM webhook.
type APIWriter struct {
	*WriterConfig
	client *http.Client
	logger *slog.Logger
}

// NewAPIWriter returns a new APIWriter
func NewAPIWriter(wc *WriterConfig) (*APIWriter, error) {
	if wc.Uri == "" {
		return nil, errors.New("uri needs to be specified for the APIWriter")
	}
	if wc.BatchSize == 0 {
		wc.BatchSize = 100 // default
	}
	return &APIWriter{
		WriterConfig: wc,
		client: &http.Client{
			Timeout: time.Second * 60,
		},
		logger: slog.With(slog.String("writer", string(API_WRITER_TYPE))),
	}, nil
}

func (w *APIWriter) Write(resultChan <-chan types.Result) {
	nrWritten := 0
	batch := []types.Result{}
	for result := range resultChan {
		batch = append(batch, result)
		if len(batch) == w.BatchSize {
			nrWritten += w.writeBatch(batch)
			batch = []types.Result{}
		}
	}
	nrWritten += w.writeBatch(batch)
	w.logger.Info(fmt.Sprintf("wrote %d results to the api", nrWritten))
}

func (w *APIWriter) WriteSummary(summary types.Summary) {
	if w.UriStatus == "" {
		return
	}
	if err := w.post(w.UriStatus, summary, http.StatusOK); err != nil {
		w.logger.Error(fmt.Sprintf("error while posting summary: %v", err))
		return
	}
	w.logger.Info("successfully posted run summary")
}

func (w *APIWriter) writeBatch(batch []types.Result) int {
	if len(batch) == 0 {
		return 0
	}
	if err := w.post(w.Uri, batch, http.StatusCreated); err != nil {
		w.logger.Error(fmt.Sprintf("error while posting batch: %v", err))
		return 0
	}
	return len(batch)
}

func (w *APIWriter) post(uri string, v any, expectedStatus int) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, uri, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header = map[string][]string{
		"Content-Type": {"application/json"},
	}
	if w.User != "" {
		req.SetBasicAuth(w.User, w.Password)
	}
	resp, err := w.client.Do(req)
	if err != nil {
		w.logger.Debug(fmt.Sprintf("post request body %s", body))
		return fmt.Errorf("error while sending post request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != expectedStatus {
		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("error while reading post request response: %v", err)
		}
		return fmt.Errorf("unexpected status code %d, response: %s", resp.StatusCode, respBody)
	}
	return nil
}
