package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prospection/autofollow/internal/output"
	"github.com/prospection/autofollow/internal/store"
	"github.com/prospection/autofollow/internal/types"
)

type recordingWriter struct {
	results []types.Result
	summary types.Summary
}

func (w *recordingWriter) Write(resultChan <-chan types.Result) {
	for r := range resultChan {
		w.results = append(w.results, r)
	}
}

func (w *recordingWriter) WriteSummary(summary types.Summary) {
	w.summary = summary
}

var _ output.Writer = (*recordingWriter)(nil)

func TestCollector(t *testing.T) {
	w := &recordingWriter{}
	ch := make(chan types.Result)
	go func() {
		ch <- types.Result{URL: "a", Status: types.StatusFollow}
		ch <- types.Result{URL: "b", Status: types.StatusError, Reason: "Login required."}
		close(ch)
	}()
	summary := collector(ch, w)

	if len(w.results) != 2 {
		t.Fatalf("expected 2 results but got %d", len(w.results))
	}
	if summary.Total != 2 || summary.Errors != 1 || w.summary != summary {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if summary.Finished.Before(summary.Started) {
		t.Fatalf("summary finished before it started")
	}
}

func TestReadURLs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "urls.txt")
	content := "# companies\nwww.linkedin.com/company/a/\n\n  https://www.linkedin.com/company/b/  \n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("got unexpected error: %v", err)
	}
	urls, err := readURLs(path)
	if err != nil {
		t.Fatalf("got unexpected error: %v", err)
	}
	if len(urls) != 2 || urls[0] != "www.linkedin.com/company/a/" || urls[1] != "https://www.linkedin.com/company/b/" {
		t.Fatalf("unexpected urls %v", urls)
	}
	if _, err := readURLs(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Fatalf("expected an error for a missing file")
	}
}

func TestStatsRows(t *testing.T) {
	rows := statsRows(store.Stats{Total: 4, Added: 1, Remaining: 3})
	expected := [][2]string{{"total", "4"}, {"added", "1 (25.0%)"}, {"remaining", "3 (75.0%)"}}
	for i := range expected {
		if rows[i] != expected[i] {
			t.Fatalf("expected %v but got %v", expected, rows)
		}
	}
}
