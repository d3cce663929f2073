// Package output provides the interface and configuration and implementation for writers
package output

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/prospection/autofollow/internal/types"
)

// Writer defines the interface for all writers that are responsible
// for writing the results of a run to a specific output.
type Writer interface {
	Write(resultChan <-chan types.Result)
	// WriteSummary is called once, after all results were written.
	WriteSummary(summary types.Summary)
}

// WriterConfig defines the necessary paramters to make a new writer.
type WriterConfig struct {
	Type      WriterType `yaml:"type" env:"AUTOFOLLOW_OUTPUT" env-default:"table"`
	FileDir   string     `yaml:"filedir"`
	Uri       string     `yaml:"uri"`
	User      string     `yaml:"user" env:"WRITER_USER"`         // we want to be able to pass credentials via env vars
	Password  string     `yaml:"password" env:"WRITER_PASSWORD"` // we want to be able to pass credentials via env vars
	UriStatus string     `yaml:"uri_status"`
	BatchSize int        `yaml:"batch_size,omitempty"`
}

// WriterType encapsulates the type of a writer
// See below constants for possible types
type WriterType string

const (
	STDOUT_WRITER_TYPE WriterType = "stdout"
	FILE_WRITER_TYPE   WriterType = "file"
	TABLE_WRITER_TYPE  WriterType = "table"
	API_WRITER_TYPE    WriterType = "api"
)

// NewWriter returns a new writer depending on the writer type
func NewWriter(wc *WriterConfig) (Writer, error) {
	switch wc.Type {
	case STDOUT_WRITER_TYPE:
		return NewStdoutWriter(wc), nil
	case FILE_WRITER_TYPE:
		return NewFileWriter(wc)
	case TABLE_WRITER_TYPE, "":
		return NewTableWriter(wc), nil
	case API_WRITER_TYPE:
		return NewAPIWriter(wc)
	default:
		return nil, fmt.Errorf("writer of type '%s' not implemented", wc.Type)
	}
}

// marshalIndent encodes v without replacing html characters such as & in
// urls by their unicode escapes.
func marshalIndent(v any) ([]byte, error) {
	buffer := &bytes.Buffer{}
	encoder := json.NewEncoder(buffer)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(v); err != nil {
		return nil, err
	}
	var indentBuffer bytes.Buffer
	if err := json.Indent(&indentBuffer, buffer.Bytes(), "", "  "); err != nil {
		return nil, err
	}
	return indentBuffer.Bytes(), nil
}
