package store

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prospection/autofollow/internal/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSettingsDefaults(t *testing.T) {
	s := openTestStore(t)
	got := settings.Get(context.Background(), s, settings.Defaults)
	assert.Equal(t, settings.Defaults, got)
}

func TestSettingsRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	require.NoError(t, settings.Save(ctx, s, settings.Settings{Enabled: false, AutoCloseIrrelevant: true}))

	got := settings.Get(ctx, s, settings.Defaults)
	assert.False(t, got.Enabled)
	assert.True(t, got.AutoCloseIrrelevant)

	require.NoError(t, s.Set(ctx, map[string]any{settings.KeyAutoCloseIrrelevant: false}))
	got = settings.Get(ctx, s, settings.Defaults)
	assert.False(t, got.Enabled)
	assert.False(t, got.AutoCloseIrrelevant)
}

func TestSettingsPersistAcrossOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "prospection.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, map[string]any{settings.KeyEnabled: false}))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	values, err := s.Get(ctx, map[string]any{settings.KeyEnabled: true, "unknown": "x"})
	require.NoError(t, err)
	assert.Equal(t, false, values[settings.KeyEnabled])
	assert.Equal(t, "x", values["unknown"])
}

func TestCompanies(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	acme, err := s.AddCompany(ctx, "Acme", "https://www.linkedin.com/company/acme/")
	require.NoError(t, err)
	globex, err := s.AddCompany(ctx, "Globex", " https://www.linkedin.com/company/globex/ ")
	require.NoError(t, err)
	again, err := s.AddCompany(ctx, "Acme Corp", "https://www.linkedin.com/company/acme/")
	require.NoError(t, err)
	assert.Equal(t, acme, again)
	_, err = s.AddCompany(ctx, "Nobody", "  ")
	assert.Error(t, err)

	notAdded, err := s.CompaniesNotAdded(ctx)
	require.NoError(t, err)
	require.Len(t, notAdded, 2)
	assert.Equal(t, "Acme", notAdded[0].Name)
	assert.Equal(t, "https://www.linkedin.com/company/globex/", notAdded[1].Link)

	require.NoError(t, s.MarkCompanyAdded(ctx, globex))
	ok, err := s.MarkCompanyAddedByLink(ctx, "https://www.linkedin.com/company/unknown/")
	require.NoError(t, err)
	assert.False(t, ok)

	added, err := s.CompaniesAdded(ctx)
	require.NoError(t, err)
	require.Len(t, added, 1)
	assert.Equal(t, globex, added[0].ID)
	assert.True(t, added[0].IsAdded)

	stats, err := s.CompanyStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Total: 2, Added: 1, Remaining: 1}, stats)
	assert.InDelta(t, 50.0, stats.PercentageAdded(), 0.001)

	ok, err = s.MarkCompanyAddedByLink(ctx, "https://www.linkedin.com/company/acme/")
	require.NoError(t, err)
	assert.True(t, ok)
	notAdded, err = s.CompaniesNotAdded(ctx)
	require.NoError(t, err)
	assert.Empty(t, notAdded)
}

func TestEmployees(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	acme, err := s.AddCompany(ctx, "Acme", "https://www.linkedin.com/company/acme/")
	require.NoError(t, err)
	e1, err := s.AddEmployee(ctx, "https://www.linkedin.com/in/jane/", acme)
	require.NoError(t, err)
	_, err = s.AddEmployee(ctx, "https://www.linkedin.com/in/john/", 0)
	require.NoError(t, err)

	employees, err := s.EmployeesNotAdded(ctx)
	require.NoError(t, err)
	require.Len(t, employees, 2)
	require.NotNil(t, employees[0].Company)
	assert.Equal(t, "Acme", employees[0].Company.Name)
	assert.Nil(t, employees[1].Company)

	require.NoError(t, s.MarkEmployeeAdded(ctx, e1))
	added, err := s.EmployeesAdded(ctx)
	require.NoError(t, err)
	require.Len(t, added, 1)
	assert.Equal(t, "https://www.linkedin.com/in/jane/", added[0].Link)

	stats, err := s.EmployeeStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Total: 2, Added: 1, Remaining: 1}, stats)
}

func TestStatsEmpty(t *testing.T) {
	s := openTestStore(t)
	stats, err := s.CompanyStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{}, stats)
	assert.Equal(t, 0.0, stats.PercentageAdded())
}

const mantiksCSV = `Company name,Company LinkedIn,LinkedIn profil
Acme,https://www.linkedin.com/company/acme/,https://www.linkedin.com/in/jane/
Acme,https://www.linkedin.com/company/acme/,https://www.linkedin.com/in/john/
Globex,https://www.linkedin.com/company/globex/,
No Link,,https://www.linkedin.com/in/lost/
`

func TestImportCSV(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	cols := CSVColumns{CompanyName: "Company name", CompanyLink: "Company LinkedIn", EmployeeLink: "LinkedIn profil"}

	st, err := s.ImportCSV(ctx, strings.NewReader(mantiksCSV), cols)
	require.NoError(t, err)
	assert.Equal(t, ImportStats{Rows: 4, Companies: 2, Employees: 2, Skipped: 1}, st)

	st, err = s.ImportCSV(ctx, strings.NewReader(mantiksCSV), cols)
	require.NoError(t, err)
	assert.Equal(t, 0, st.Companies)
	assert.Equal(t, 0, st.Employees)

	employees, err := s.EmployeesNotAdded(ctx)
	require.NoError(t, err)
	require.Len(t, employees, 2)
	assert.Equal(t, "Acme", employees[1].Company.Name)
}

func TestImportCSVWithoutEmployees(t *testing.T) {
	s := openTestStore(t)
	in := "\ufeffNom de l'entreprise;LinkedIn Entreprise\n"
	_, err := s.ImportCSV(context.Background(), strings.NewReader(in), CSVColumns{CompanyName: "Nom de l'entreprise", CompanyLink: "LinkedIn Entreprise"})
	// semicolon separated files are not supported
	assert.Error(t, err)

	in = "\ufeffNom de l'entreprise,LinkedIn Entreprise\nInitech,https://www.linkedin.com/company/initech/\n"
	st, err := s.ImportCSV(context.Background(), strings.NewReader(in), CSVColumns{CompanyName: "Nom de l'entreprise", CompanyLink: "LinkedIn Entreprise"})
	require.NoError(t, err)
	assert.Equal(t, 1, st.Companies)
}

func TestImportCSVMissingColumn(t *testing.T) {
	s := openTestStore(t)
	_, err := s.ImportCSV(context.Background(), strings.NewReader("Company,Link\n"), CSVColumns{CompanyName: "Company", CompanyLink: "Linkedin"})
	assert.ErrorContains(t, err, `column "Linkedin" not found`)
}
