package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/melnicenkovadik/my-tax-calculator/internal/backup"
	"github.com/melnicenkovadik/my-tax-calculator/internal/calculation"
	"github.com/melnicenkovadik/my-tax-calculator/internal/output"
	"github.com/melnicenkovadik/my-tax-calculator/internal/store"
)

func newTestApp() *app {
	return &app{
		log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		store:  store.NewMemoryStore(),
		engine: calculation.NewEngine(),
	}
}

func run(t *testing.T, a *app, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd(a)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func mustRun(t *testing.T, a *app, args ...string) string {
	t.Helper()
	out, err := run(t, a, "", args...)
	require.NoError(t, err, out)
	return out
}

func TestCalcFromFlags(t *testing.T) {
	out := mustRun(t, newTestApp(), "calc", "--year", "2025", "--revenue", "50000", "--coeff", "0.78", "--tax-rate", "0.15")

	assert.Contains(t, out, "Italian forfettario tax estimate (2025)")
	assert.Contains(t, out, "Taxable base: 39.000,00 €")
	assert.Contains(t, out, "INPS (Gestione Separata 26,07%)")
	assert.Contains(t, out, "November: 2nd acconto 2026")
}

func TestCalcReportsInputErrors(t *testing.T) {
	out := mustRun(t, newTestApp(), "calc", "--year", "2025", "--coeff", "abc")
	assert.Contains(t, out, "Input errors (showing last valid values):")
	assert.Contains(t, out, "coeff: ")
}

func TestCalcUnknownFormat(t *testing.T) {
	_, err := run(t, newTestApp(), "", "calc", "--format", "xml")
	require.Error(t, err)
	assert.ErrorIs(t, err, output.ErrUnsupportedFormat)
}

func TestCalcFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "2024.yaml")
	content := "year: 2024\ninputs:\n  revenue: 11552.62\n  coeff: 0.67\n  tax_rate: 0.05\n  inps_type: gestione_separata\n  inps_rate: 0.26\n  inps_deductible: true\n  apply_acconti: false\n  split_model: standard\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	out := mustRun(t, newTestApp(), "calc", "--file", path, "--format", "json")
	var report output.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 2024, report.Evaluation.Inputs.Year)
	require.Len(t, report.Evaluation.Schedule, 1)
	assert.True(t, report.Evaluation.Schedule[0].Amount.Equal(report.Evaluation.Results.TotalDue))

	_, err := run(t, newTestApp(), "", "calc", "--file", path, "--year", "2025")
	assert.ErrorContains(t, err, "does not match")
}

func TestSaveInputsThenCalcUsesStoredValues(t *testing.T) {
	a := newTestApp()
	mustRun(t, a, "save-inputs", "--year", "2025", "--revenue", "42000", "--coeff", "0.78")

	out := mustRun(t, a, "calc", "--year", "2025")
	assert.Contains(t, out, "Revenue: 42.000,00 €")

	_, err := run(t, a, "", "save-inputs", "--year", "2025", "--tax-rate", "0.2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "taxRate: Tax rate must be 0.05 or 0.15")
}

func TestSaveInputsIgnoreTransactionsKeepsStoredTransactions(t *testing.T) {
	a := newTestApp()
	payload := `{"version": 1,
  "inputs": {"year": "2025", "revenue": "0", "coeff": "0.67", "taxRate": "0.05",
             "inpsType": "gestione_separata", "inpsRate": "0.2607", "inpsDeductible": true,
             "applyAcconti": true, "splitModel": "standard"},
  "transactions": [{"date": "2025-03-01", "amount": "1200", "sender": "ACME srl"}]}`
	out, err := run(t, a, payload, "import", "-", "--year", "2025")
	require.NoError(t, err, out)

	out = mustRun(t, a, "calc", "--year", "2025", "--revenue", "5000", "--ignore-transactions")
	assert.Contains(t, out, "Revenue: 5.000,00 €")

	mustRun(t, a, "save-inputs", "--year", "2025", "--revenue", "5000", "--ignore-transactions")

	out = mustRun(t, a, "years", "show", "2025")
	assert.Contains(t, out, "revenue: \"5000\"")
	assert.Contains(t, out, "sender: ACME srl")

	out = mustRun(t, a, "calc", "--year", "2025")
	assert.Contains(t, out, "Revenue: 1.200,00 € (sum of 1 transactions)")
}

func TestCommandsLogThroughContextLogger(t *testing.T) {
	var logs bytes.Buffer
	a := newTestApp()
	a.log = slog.New(slog.NewJSONHandler(&logs, nil))

	mustRun(t, a, "save-inputs", "--year", "2025", "--revenue", "1000")
	mustRun(t, a, "years", "delete", "2025", "--yes")

	out := logs.String()
	assert.Contains(t, out, `"msg":"inputs saved"`)
	assert.Contains(t, out, `"command":"forfettario save-inputs"`)
	assert.Contains(t, out, `"msg":"year deleted"`)
	assert.Contains(t, out, `"year":2025`)
}

func TestScheduleCommand(t *testing.T) {
	out := mustRun(t, newTestApp(), "schedule", "--year", "2025", "--revenue", "50000", "--split", "custom", "--june", "0.5", "--november", "0.5")
	assert.Contains(t, out, "June")
	assert.Contains(t, out, "November")
	assert.Contains(t, out, "split 50% / 50%")
}

func TestTransactionLifecycle(t *testing.T) {
	a := newTestApp()

	out := mustRun(t, a, "tx", "add", "--date", "2025-03-05", "--amount", "1500,50", "--sender", "<b>ACME</b> srl")
	require.True(t, strings.HasPrefix(out, "added "), out)
	id := strings.Fields(out)[1]
	assert.Contains(t, out, "to 2025")

	out = mustRun(t, a, "tx", "list", "--year", "2025")
	assert.Contains(t, out, "1.500,50 €")
	assert.Contains(t, out, "ACME srl")
	assert.NotContains(t, out, "<b>")

	out = mustRun(t, a, "calc", "--year", "2025")
	assert.Contains(t, out, "Revenue: 1.500,50 € (sum of 1 transactions)")

	out = mustRun(t, a, "tx", "update", id, "--amount", "2000")
	assert.Contains(t, out, "2.000,00 €")
	out = mustRun(t, a, "tx", "list", "--year", "2025")
	assert.Contains(t, out, "ACME srl", "untouched fields are kept")

	mustRun(t, a, "tx", "delete", id)
	_, err := run(t, a, "", "tx", "delete", id)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = run(t, a, "", "tx", "update", id, "--amount", "1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestTxAddValidation(t *testing.T) {
	_, err := run(t, newTestApp(), "", "tx", "add", "--date", "yesterday", "--amount", "10")
	assert.ErrorContains(t, err, "unrecognised date")

	_, err = run(t, newTestApp(), "", "tx", "add", "--date", "2025-01-01")
	assert.ErrorContains(t, err, "amount")
}

func TestTemplatesPrefillTransactions(t *testing.T) {
	a := newTestApp()

	out := mustRun(t, a, "templates", "add", "--name", "Monthly retainer", "--sender", "ACME srl", "--bill-to", "ACME SpA")
	require.True(t, strings.HasPrefix(out, "created template "), out)
	id := strings.TrimSpace(strings.TrimPrefix(out, "created template "))

	mustRun(t, a, "templates", "update", id, "--notes", "net 30")
	out = mustRun(t, a, "templates", "list")
	assert.Contains(t, out, "Monthly retainer")

	mustRun(t, a, "tx", "add", "--template", id, "--date", "2025-02-01", "--amount", "800")
	out = mustRun(t, a, "tx", "list", "--year", "2025")
	assert.Contains(t, out, "ACME srl")

	mustRun(t, a, "templates", "delete", id)
	_, err := run(t, a, "", "tx", "add", "--template", id, "--amount", "1")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = run(t, a, "", "templates", "add", "--name", "   ")
	assert.ErrorContains(t, err, "invalid template")
}

func TestExportImportAndYears(t *testing.T) {
	a := newTestApp()
	mustRun(t, a, "save-inputs", "--year", "2025", "--revenue", "30000")
	mustRun(t, a, "tx", "add", "--date", "2025-06-01", "--amount", "100")

	exported := mustRun(t, a, "export", "--year", "2025", "--out", "-")
	var payload backup.Payload
	require.NoError(t, json.Unmarshal([]byte(exported), &payload))
	assert.Equal(t, backup.Version, payload.Version)
	assert.Len(t, payload.Transactions, 1)

	out, err := run(t, a, exported, "import", "-", "--year", "2026")
	require.NoError(t, err, out)
	assert.Contains(t, out, "imported 1 transactions into 2026")

	out = mustRun(t, a, "years", "list")
	assert.Contains(t, out, "2025")
	assert.Contains(t, out, "2026")

	out = mustRun(t, a, "years", "show", "2026")
	assert.Contains(t, out, "year: 2026")
	assert.Contains(t, out, "revenue: \"30000\"")

	_, err = run(t, a, "", "years", "delete", "2025")
	assert.ErrorContains(t, err, "--yes")
	mustRun(t, a, "years", "delete", "2025", "--yes")
	_, err = run(t, a, "", "years", "show", "2025")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = run(t, a, "", "years", "show", "12")
	assert.ErrorContains(t, err, "invalid year")
}

func TestExportToDirectory(t *testing.T) {
	dir := t.TempDir()
	out := mustRun(t, newTestApp(), "export", "--year", "2027", "--out", dir)
	path := filepath.Join(dir, "forfettario-2027.json")
	assert.Equal(t, path, strings.TrimSpace(out))
	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestReportWritesFiles(t *testing.T) {
	dir := t.TempDir()
	out := mustRun(t, newTestApp(), "report", "--year", "2025", "--format", "all", "--out", dir)
	paths := strings.Fields(out)
	assert.Len(t, paths, len(output.AvailableFormatterNames()))
	for _, p := range paths {
		_, err := os.Stat(p)
		assert.NoError(t, err, p)
	}
}

func TestSetupFromEnvironment(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("STORE_DRIVER=sqlite\nLOG_LEVEL=error\n"), 0o600))
	t.Setenv("ENV_FILE", envFile)
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "data", "forfettario.db"))
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("CACHE_TTL", "1m")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("RULES_FILE", "")
	t.Setenv("SENTRY_DSN", "")

	a := &app{log: slog.New(slog.NewTextHandler(io.Discard, nil))}
	mustRun(t, a, "save-inputs", "--year", "2025", "--revenue", "1000")
	require.NoError(t, a.close())

	out := mustRun(t, a, "years", "list")
	require.NoError(t, a.close())
	assert.Contains(t, out, "2025")
}
