package output

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/prospection/autofollow/internal/types"
	"github.com/prospection/autofollow/internal/utils"
)

const maxURLWidth = 70

// TableWriter renders all results as one table once the run is done.
type TableWriter struct {
	out  io.Writer
	rows [][]string
}

func NewTableWriter(wc *WriterConfig) *TableWriter {
	return &TableWriter{out: os.Stdout}
}

func (w *TableWriter) Write(resultChan <-chan types.Result) {
	for r := range resultChan {
		w.rows = append(w.rows, []string{
			utils.ShortenString(r.URL, maxURLWidth),
			string(r.Status),
			r.Reason,
			strconv.FormatFloat(r.Duration, 'f', 1, 64),
		})
	}
}

func (w *TableWriter) WriteSummary(summary types.Summary) {
	table := tablewriter.NewWriter(w.out)
	table.SetHeader([]string{"URL", "Status", "Reason", "Seconds"})
	table.SetAutoWrapText(false)
	table.AppendBulk(w.rows)
	table.SetFooter([]string{
		fmt.Sprintf("%d pages", summary.Total),
		fmt.Sprintf("%d followed", summary.Followed+summary.AlreadyFollowed),
		fmt.Sprintf("%d errors", summary.Errors),
		fmt.Sprintf("%.0fs", summary.Finished.Sub(summary.Started).Seconds()),
	})
	table.Render()
}

// RenderKeyValues prints rows of two columns, used for statistics.
func RenderKeyValues(out io.Writer, header [2]string, rows [][2]string) {
	table := tablewriter.NewWriter(out)
	table.SetHeader(header[:])
	table.SetBorder(true)
	for _, r := range rows {
		table.Append(r[:])
	}
	table.Render()
}
