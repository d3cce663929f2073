package output

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"

	"github.com/prospection/autofollow/internal/types"
)

const (
	resultsFilename = "results.json"
	summaryFilename = "summary.json"
)

// FileWriter represents a writer that writes to a file
type FileWriter struct {
	*WriterConfig
	logger *slog.Logger
}

// NewFileWriter returns a new FileWriter
func NewFileWriter(wc *WriterConfig) (*FileWriter, error) {
	if wc.FileDir == "" {
		return nil, errors.New("filedir needs to be specified for the FileWriter")
	}

	if err := os.MkdirAll(wc.FileDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", wc.FileDir, err)
	}

	return &FileWriter{
		WriterConfig: wc,
		logger:       slog.With(slog.String("writer", string(FILE_WRITER_TYPE))),
	}, nil
}

// Write collects all results and writes them as one json array once the
// channel is closed.
func (w *FileWriter) Write(resultChan <-chan types.Result) {
	allResults := []types.Result{}
	for result := range resultChan {
		allResults = append(allResults, result)
	}
	filepath := path.Join(w.FileDir, resultsFilename)
	if err := w.writeJSON(filepath, allResults); err != nil {
		w.logger.Error(fmt.Sprintf("error while writing results to file: %v", err))
		return
	}
	w.logger.Info(fmt.Sprintf("wrote %d results to file %s", len(allResults), filepath))
}

func (w *FileWriter) WriteSummary(summary types.Summary) {
	filepath := path.Join(w.FileDir, summaryFilename)
	if err := w.writeJSON(filepath, summary); err != nil {
		w.logger.Error(fmt.Sprintf("error while writing summary to file: %v", err))
		return
	}
	w.logger.Info(fmt.Sprintf("wrote summary to file %s", filepath))
}

func (w *FileWriter) writeJSON(filepath string, v any) error {
	b, err := marshalIndent(v)
	if err != nil {
		return fmt.Errorf("error while encoding json: %w", err)
	}
	return os.WriteFile(filepath, b, 0644)
}
