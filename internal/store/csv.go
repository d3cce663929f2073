package store

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/prospection/autofollow/internal/log"
)

// CSVColumns names the header columns to read. EmployeeLink is optional.
type CSVColumns struct {
	CompanyName  string
	CompanyLink  string
	EmployeeLink string
}

// ImportStats counts what an import added.
type ImportStats struct {
	Rows      int
	Companies int
	Employees int
	Skipped   int
}

// ImportCSV reads companies, and optionally their employees, from a csv file
// with a header line. Rows without a company link are skipped. Re-importing
// a file adds nothing new.
func (s *Store) ImportCSV(ctx context.Context, r io.Reader, cols CSVColumns) (ImportStats, error) {
	logger := log.LoggerFromContext(ctx).With(slog.String("component", "import"))
	var st ImportStats
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return st, fmt.Errorf("failed to read csv header: %w", err)
	}
	index := map[string]int{}
	for i, h := range header {
		index[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	nameIdx, ok := index[cols.CompanyName]
	if !ok {
		return st, fmt.Errorf("column %q not found", cols.CompanyName)
	}
	linkIdx, ok := index[cols.CompanyLink]
	if !ok {
		return st, fmt.Errorf("column %q not found", cols.CompanyLink)
	}
	employeeIdx := -1
	if cols.EmployeeLink != "" {
		if employeeIdx, ok = index[cols.EmployeeLink]; !ok {
			return st, fmt.Errorf("column %q not found", cols.EmployeeLink)
		}
	}

	before, err := s.counts(ctx)
	if err != nil {
		return st, err
	}
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return st, fmt.Errorf("failed to read csv: %w", err)
		}
		st.Rows++
		link := field(record, linkIdx)
		if link == "" {
			st.Skipped++
			continue
		}
		companyID, err := s.AddCompany(ctx, field(record, nameIdx), link)
		if err != nil {
			return st, err
		}
		logger.Debug(fmt.Sprintf("added company %s", link))
		if employeeIdx >= 0 {
			if employee := field(record, employeeIdx); employee != "" {
				if _, err := s.AddEmployee(ctx, employee, companyID); err != nil {
					return st, err
				}
			}
		}
	}
	after, err := s.counts(ctx)
	if err != nil {
		return st, err
	}
	st.Companies = after[0] - before[0]
	st.Employees = after[1] - before[1]
	logger.Info(fmt.Sprintf("imported %d rows: %d new companies, %d new employees, %d skipped", st.Rows, st.Companies, st.Employees, st.Skipped))
	return st, nil
}

func (s *Store) counts(ctx context.Context) ([2]int, error) {
	companies, err := s.CompanyStats(ctx)
	if err != nil {
		return [2]int{}, err
	}
	employees, err := s.EmployeeStats(ctx)
	if err != nil {
		return [2]int{}, err
	}
	return [2]int{companies.Total, employees.Total}, nil
}

func field(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}
