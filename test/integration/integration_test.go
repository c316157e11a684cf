package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/melnicenkovadik/my-tax-calculator/internal/backup"
	"github.com/melnicenkovadik/my-tax-calculator/internal/calculation"
	"github.com/melnicenkovadik/my-tax-calculator/internal/config"
	"github.com/melnicenkovadik/my-tax-calculator/internal/domain"
	"github.com/melnicenkovadik/my-tax-calculator/internal/output"
	"github.com/melnicenkovadik/my-tax-calculator/internal/store"
)

const exampleYear = "../testdata/example_year.yaml"

func assertClose(t *testing.T, want string, got decimal.Decimal, field string) {
	t.Helper()
	diff := got.Sub(decimal.RequireFromString(want)).Abs()
	assert.True(t, diff.LessThanOrEqual(decimal.RequireFromString("0.01")), "%s: got %s want %s", field, got.StringFixed(4), want)
}

func TestEndToEndCalculation(t *testing.T) {
	parser := config.NewInputParser()
	year, err := parser.LoadFromFile(exampleYear)
	require.NoError(t, err)
	require.Len(t, year.Transactions, 2)

	engine := calculation.NewEngine()
	ev := engine.EvaluateYear(year)

	assert.Empty(t, ev.Errors)
	assert.True(t, ev.RevenueFromTransactions)
	assert.True(t, ev.Inputs.Revenue.Equal(decimal.RequireFromString("11552.62")))
	assertClose(t, "7740.26", ev.Results.TaxableBase, "taxableBase")
	assertClose(t, "2012.47", ev.Results.Inps, "inps")
	assertClose(t, "286.39", ev.Results.Tax, "tax")
	assertClose(t, "2298.86", ev.Results.TotalDue, "totalDue")

	require.Len(t, ev.Schedule, 2)
	june := ev.Results.TotalDue.Add(ev.AccontoBase.Mul(decimal.RequireFromString("0.4")))
	assert.True(t, ev.Schedule[0].Amount.Equal(june))
	assert.True(t, ev.Schedule[1].Amount.Equal(ev.AccontoBase.Mul(decimal.RequireFromString("0.6"))))
}

func TestPersistAndReload(t *testing.T) {
	ctx := context.Background()
	year, err := config.NewInputParser().LoadFromFile(exampleYear)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "forfettario.db")
	st, err := store.OpenSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, st.SaveYear(ctx, year))
	added, err := st.AddTransaction(ctx, 2024, domain.RevenueTransaction{Date: "2024-12-01", Amount: decimal.NewFromInt(1000)})
	require.NoError(t, err)
	require.NoError(t, st.Close())

	st, err = store.OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer st.Close()

	reloaded, err := st.Year(ctx, 2024)
	require.NoError(t, err)
	require.Len(t, reloaded.Transactions, 3)
	assert.Equal(t, added.ID, reloaded.Transactions[0].ID, "newest first")

	ev := calculation.NewEngine().EvaluateYear(reloaded)
	assert.True(t, ev.Inputs.Revenue.Equal(decimal.RequireFromString("12552.62")))
}

func TestBackupRoundTripKeepsTotals(t *testing.T) {
	year, err := config.NewInputParser().LoadFromFile(exampleYear)
	require.NoError(t, err)
	engine := calculation.NewEngine()
	before := engine.EvaluateYear(year)

	data, err := backup.Export(year.Year, year)
	require.NoError(t, err)
	imported, err := backup.Import(data, 2025, time.Now())
	require.NoError(t, err)

	after := engine.EvaluateYear(imported)
	assert.Equal(t, 2025, after.Inputs.Year)
	assert.True(t, before.Results.TotalDue.Equal(after.Results.TotalDue))
}

func TestOutputGeneration(t *testing.T) {
	year, err := config.NewInputParser().LoadFromFile(exampleYear)
	require.NoError(t, err)
	ev := calculation.NewEngine().EvaluateYear(year)
	report := output.NewReport(ev, year.Transactions, time.Now())

	dir := t.TempDir()
	for _, format := range []string{"console", "json", "csv", "csv-transactions", "html", "pdf"} {
		paths, err := output.GenerateReport(report, format, dir)
		require.NoError(t, err, format)
		require.Len(t, paths, 1)
		info, err := os.Stat(paths[0])
		require.NoError(t, err)
		assert.Positive(t, info.Size(), format)
	}
}
