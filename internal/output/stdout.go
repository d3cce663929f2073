package output

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/prospection/autofollow/internal/types"
)

// StdoutWriter represents a writer that writes every result as json to stdout
type StdoutWriter struct {
	out    io.Writer
	logger *slog.Logger
}

// NewStdoutWriter returns a new StdoutWriter
func NewStdoutWriter(wc *WriterConfig) *StdoutWriter {
	return &StdoutWriter{
		out:    os.Stdout,
		logger: slog.With(slog.String("writer", string(STDOUT_WRITER_TYPE))),
	}
}

func (w *StdoutWriter) Write(resultChan <-chan types.Result) {
	for result := range resultChan {
		b, err := marshalIndent(result)
		if err != nil {
			w.logger.Error(fmt.Sprintf("error while writing result %v: %v", result, err))
			continue
		}
		fmt.Fprint(w.out, string(b))
	}
}

func (w *StdoutWriter) WriteSummary(summary types.Summary) {
	b, err := marshalIndent(summary)
	if err != nil {
		w.logger.Error(fmt.Sprintf("error while marshalling summary json: %v", err))
		return
	}
	fmt.Fprint(w.out, string(b))
}
