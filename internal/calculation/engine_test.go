package calculation

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/melnicenkovadik/my-tax-calculator/internal/domain"
)

type recordingLogger struct {
	NopLogger
	debug []string
	warn  []string
}

func (r *recordingLogger) Debugf(format string, args ...any) {
	r.debug = append(r.debug, fmt.Sprintf(format, args...))
}

func (r *recordingLogger) Warnf(format string, args ...any) {
	r.warn = append(r.warn, fmt.Sprintf(format, args...))
}

func TestEngine_ComputeTotalsMemoizes(t *testing.T) {
	log := &recordingLogger{}
	e := NewEngine(WithLogger(log))
	in := gestioneSeparata(2024, "11552.62", "0.67", "0.05", "0.26")

	first := e.ComputeTotals(in)
	second := e.ComputeTotals(in)

	assert.True(t, first.TotalDue.Equal(second.TotalDue))
	assert.True(t, first.TotalDue.Equal(ComputeTotals(in).TotalDue))
	require.Len(t, log.debug, 1)
	assert.Contains(t, log.debug[0], "cache hit")

	e.Purge()
	e.ComputeTotals(in)
	assert.Len(t, log.debug, 1, "purged cache recomputes")
}

func TestEngine_CustomCaps(t *testing.T) {
	e := NewEngine(WithCaps(DefaultContributionCaps().With(2026, d("100000"))), WithCacheTTL(0))
	res := e.ComputeTotals(gestioneSeparata(2026, "200000", "1", "0.15", "0.25"))

	assert.True(t, res.Inps.Equal(d("25000")))
	assert.True(t, e.ResolveGestioneSeparataBase(d("200000"), 2026).Equal(d("100000")))
	assert.True(t, ResolveGestioneSeparataBase(d("200000"), 2026).Equal(d("200000")))
}

func TestEngine_SetLoggerNil(t *testing.T) {
	e := NewEngine()
	e.SetLogger(nil)
	assert.IsType(t, NopLogger{}, e.Logger)
}

func TestEngine_Evaluate(t *testing.T) {
	e := NewEngine()
	values := domain.DefaultInputValues(2024)
	values.Revenue = "11552.62"
	values.InpsRate = "0.26"

	ev := e.Evaluate(values, values, nil)

	assert.Empty(t, ev.Errors)
	assert.False(t, ev.RevenueFromTransactions)
	assertClose(t, "2298.86", ev.Results.TotalDue, "totalDue")
	assert.True(t, ev.AccontoBase.Equal(ComputeAccontoBase(ev.Results.Inps, ev.Results.Tax)))
	require.Len(t, ev.Schedule, 2)
	assert.True(t, ev.Schedule[0].Saldo.Equal(ev.Results.TotalDue))
	assert.Equal(t, domain.SplitStandard, ev.Split.Model)
}

func TestEngine_EvaluateUsesTransactionRevenue(t *testing.T) {
	e := NewEngine()
	values := domain.DefaultInputValues(2025)
	values.Revenue = "99999"
	txs := []domain.RevenueTransaction{
		{ID: "a", Date: "2025-01-10", Amount: d("1000")},
		{ID: "b", Date: "2025-02-10", Amount: d("2500.50")},
	}

	ev := e.Evaluate(values, values, txs)

	assert.True(t, ev.RevenueFromTransactions)
	assert.Equal(t, 2, ev.TransactionCount)
	assert.True(t, ev.Inputs.Revenue.Equal(d("3500.50")))
}

func TestEngine_EvaluateFallsBackToDefaults(t *testing.T) {
	log := &recordingLogger{}
	e := NewEngine(WithLogger(log))

	defaults := domain.DefaultInputValues(2025)
	defaults.Revenue = "40000"
	bad := defaults
	bad.Revenue = "lots"

	ev := e.Evaluate(bad, defaults, nil)

	assert.Equal(t, "Revenue must be a number", ev.Errors["revenue"])
	assert.True(t, ev.Inputs.Revenue.Equal(d("40000")))
	require.NotEmpty(t, log.warn)
}

func TestEngine_EvaluateFallsBackToBuiltInDefaults(t *testing.T) {
	e := NewEngine()
	bad := domain.DefaultInputValues(2024)
	bad.Coeff = "x"
	badDefaults := bad
	badDefaults.TaxRate = "0.3"

	ev := e.Evaluate(bad, badDefaults, nil)

	assert.NotEmpty(t, ev.Errors)
	assert.Equal(t, 2024, ev.Inputs.Year)
	assert.True(t, ev.Inputs.Coeff.Equal(d("0.67")))
	assert.True(t, ev.Results.TotalDue.IsZero())
}

func TestEngine_EvaluateYearWithoutAnyYear(t *testing.T) {
	SetNowFunc(func() time.Time { return time.Date(2031, 5, 1, 0, 0, 0, 0, time.UTC) })
	t.Cleanup(func() { SetNowFunc(nil) })

	ev := NewEngine().Evaluate(domain.CalculatorInputValues{}, domain.CalculatorInputValues{}, nil)
	assert.Equal(t, 2031, ev.Inputs.Year)
	assert.Contains(t, ev.Errors, "splitModel")
}

func TestEngine_EvaluateYear(t *testing.T) {
	y := &domain.YearData{
		Year: 2025,
		Transactions: []domain.RevenueTransaction{
			{ID: "a", Date: "2025-03-01", Amount: d("10000")},
		},
	}
	ev := NewEngine().EvaluateYear(y)

	assert.Empty(t, ev.Errors)
	assert.Equal(t, 2025, ev.Inputs.Year)
	assert.True(t, ev.Inputs.Revenue.Equal(d("10000")))
	assert.Len(t, ev.Schedule, 2)
}
