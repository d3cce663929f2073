package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// Company is a company page to follow.
type Company struct {
	ID      int64
	Name    string
	Link    string
	IsAdded bool
}

// Employee is a profile page belonging to a company.
type Employee struct {
	ID      int64
	Link    string
	Company *Company
	IsAdded bool
}

// Stats counts the entities of one table.
type Stats struct {
	Total     int
	Added     int
	Remaining int
}

// PercentageAdded returns the share of added entities, 0 for an empty table.
func (s Stats) PercentageAdded() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Added) / float64(s.Total) * 100
}

// AddCompany inserts a company unless its link is already known and returns
// its id. A known company gets its name filled in if it had none.
func (s *Store) AddCompany(ctx context.Context, name, link string) (int64, error) {
	link = strings.TrimSpace(link)
	if link == "" {
		return 0, errors.New("company link is empty")
	}
	name = strings.TrimSpace(name)
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO company (name, link) VALUES (?, ?)
		 ON CONFLICT (link) DO UPDATE SET name = excluded.name WHERE company.name = ''`, name, link); err != nil {
		return 0, fmt.Errorf("failed to add company %s: %w", link, err)
	}
	var id int64
	if err := s.db.QueryRowContext(ctx, "SELECT id FROM company WHERE link = ?", link).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// AddEmployee inserts an employee unless its link is already known. A
// companyID of 0 means the employee belongs to no known company.
func (s *Store) AddEmployee(ctx context.Context, link string, companyID int64) (int64, error) {
	link = strings.TrimSpace(link)
	if link == "" {
		return 0, errors.New("employee link is empty")
	}
	var company any
	if companyID != 0 {
		company = companyID
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO employee (link, company_id) VALUES (?, ?) ON CONFLICT (link) DO NOTHING`, link, company); err != nil {
		return 0, fmt.Errorf("failed to add employee %s: %w", link, err)
	}
	var id int64
	if err := s.db.QueryRowContext(ctx, "SELECT id FROM employee WHERE link = ?", link).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (s *Store) CompaniesNotAdded(ctx context.Context) ([]Company, error) {
	return s.companies(ctx, false)
}

func (s *Store) CompaniesAdded(ctx context.Context) ([]Company, error) {
	return s.companies(ctx, true)
}

func (s *Store) companies(ctx context.Context, added bool) ([]Company, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, link, is_added FROM company WHERE is_added = ? ORDER BY id", added)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	defer rows.Close()
	var companies []Company
	for rows.Next() {
		var c Company
		if err := rows.Scan(&c.ID, &c.Name, &c.Link, &c.IsAdded); err != nil {
			return nil, err
		}
		companies = append(companies, c)
	}
	return companies, rows.Err()
}

func (s *Store) EmployeesNotAdded(ctx context.Context) ([]Employee, error) {
	return s.employees(ctx, false)
}

func (s *Store) EmployeesAdded(ctx context.Context) ([]Employee, error) {
	return s.employees(ctx, true)
}

func (s *Store) employees(ctx context.Context, added bool) ([]Employee, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT e.id, e.link, e.is_added, c.id, c.name, c.link, c.is_added
		 FROM employee e LEFT JOIN company c ON c.id = e.company_id
		 WHERE e.is_added = ? ORDER BY e.id`, added)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	defer rows.Close()
	var employees []Employee
	for rows.Next() {
		var e Employee
		var cID sql.NullInt64
		var cName, cLink sql.NullString
		var cAdded sql.NullBool
		if err := rows.Scan(&e.ID, &e.Link, &e.IsAdded, &cID, &cName, &cLink, &cAdded); err != nil {
			return nil, err
		}
		if cID.Valid {
			e.Company = &Company{ID: cID.Int64, Name: cName.String, Link: cLink.String, IsAdded: cAdded.Bool}
		}
		employees = append(employees, e)
	}
	return employees, rows.Err()
}

func (s *Store) MarkCompanyAdded(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, "UPDATE company SET is_added = 1 WHERE id = ?", id)
	return err
}

// MarkCompanyAddedByLink marks the company with the given link as added. It
// reports whether such a company exists.
func (s *Store) MarkCompanyAddedByLink(ctx context.Context, link string) (bool, error) {
	res, err := s.db.ExecContext(ctx, "UPDATE company SET is_added = 1 WHERE link = ?", strings.TrimSpace(link))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *Store) MarkEmployeeAdded(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, "UPDATE employee SET is_added = 1 WHERE id = ?", id)
	return err
}

func (s *Store) CompanyStats(ctx context.Context) (Stats, error) {
	return s.stats(ctx, "company")
}

func (s *Store) EmployeeStats(ctx context.Context) (Stats, error) {
	return s.stats(ctx, "employee")
}

// table is one of the fixed table names above, never user input.
func (s *Store) stats(ctx context.Context, table string) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT COUNT(*), COALESCE(SUM(is_added), 0) FROM %s", table)).Scan(&st.Total, &st.Added)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to count %s: %w", table, err)
	}
	st.Remaining = st.Total - st.Added
	return st, nil
}
