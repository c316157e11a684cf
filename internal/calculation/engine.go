package calculation

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"

	"github.com/melnicenkovadik/my-tax-calculator/internal/domain"
	"github.com/melnicenkovadik/my-tax-calculator/internal/validation"
)

// DefaultCacheTTL bounds how long memoized totals are kept.
const DefaultCacheTTL = 10 * time.Minute

// Engine evaluates forfettario inputs against a contribution cap table.
// ComputeTotals is referentially transparent, so results are memoized per
// input fingerprint.
type Engine struct {
	Caps   ContributionCaps
	Logger Logger

	totals *cache.Cache
}

// Option configures an Engine.
type Option func(*Engine)

// WithCaps replaces the contribution cap table.
func WithCaps(caps ContributionCaps) Option {
	return func(e *Engine) { e.Caps = caps }
}

// WithLogger sets the engine logger.
func WithLogger(l Logger) Option {
	return func(e *Engine) { e.SetLogger(l) }
}

// WithCacheTTL sets the expiration of memoized totals. A non-positive ttl
// keeps entries forever.
func WithCacheTTL(ttl time.Duration) Option {
	return func(e *Engine) {
		if ttl <= 0 {
			e.totals = cache.New(cache.NoExpiration, 0)
			return
		}
		e.totals = cache.New(ttl, 2*ttl)
	}
}

// NewEngine creates an engine with the default caps and a no-op logger.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		Caps:   DefaultContributionCaps(),
		Logger: NopLogger{},
		totals: cache.New(DefaultCacheTTL, 2*DefaultCacheTTL),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetLogger sets the logger for the engine. If nil is provided, a no-op logger is used.
func (e *Engine) SetLogger(l Logger) {
	if l == nil {
		e.Logger = NopLogger{}
		return
	}
	e.Logger = l
}

// ResolveGestioneSeparataBase caps taxableBase with the engine's table.
func (e *Engine) ResolveGestioneSeparataBase(taxableBase decimal.Decimal, year int) decimal.Decimal {
	return e.Caps.Resolve(taxableBase, year)
}

// ComputeTotals is the memoized counterpart of the package level ComputeTotals
// that uses the engine's cap table.
func (e *Engine) ComputeTotals(inputs domain.CalculatorInputs) domain.CalculatorResults {
	key := fingerprint(inputs)
	if cached, found := e.totals.Get(key); found {
		e.Logger.Debugf("totals cache hit for %s", key)
		return cached.(domain.CalculatorResults)
	}
	res := computeTotals(inputs, e.Caps)
	e.totals.Set(key, res, cache.DefaultExpiration)
	return res
}

// Purge drops every memoized result.
func (e *Engine) Purge() {
	e.totals.Flush()
}

// Evaluate runs the full pipeline for a year: validate, override revenue
// with the transaction total, compute totals and lay out the schedule.
//
// When values do not validate, the last known good inputs are used instead:
// the validated defaults, or the built-in defaults for the year. The field
// errors are still reported on the result.
func (e *Engine) Evaluate(values, defaults domain.CalculatorInputValues, txs []domain.RevenueTransaction) domain.Evaluation {
	res := validation.Validate(values)

	var inputs domain.CalculatorInputs
	switch {
	case res.Valid():
		inputs = *res.Parsed
	default:
		e.Logger.Warnf("inputs rejected (%d field errors), falling back to defaults", len(res.Errors))
		if fallback := validation.Validate(defaults); fallback.Valid() {
			inputs = *fallback.Parsed
		} else {
			inputs = domain.DefaultInputs(yearHint(values, defaults))
		}
	}

	ev := domain.Evaluation{Errors: res.Errors, TransactionCount: len(txs)}
	if len(txs) > 0 {
		inputs = inputs.WithRevenue(domain.TotalRevenue(txs))
		ev.RevenueFromTransactions = true
	}

	ev.Inputs = inputs
	ev.Results = e.ComputeTotals(inputs)
	ev.Split = ResolveScheduleSplit(inputs)
	ev.AccontoBase = ComputeAccontoBase(ev.Results.Inps, ev.Results.Tax)
	ev.Schedule = ComputeSchedule(ev.Results.TotalDue, ev.AccontoBase, inputs.ApplyAcconti, ev.Split)

	e.Logger.Debugf("evaluated year %d: total due %s", inputs.Year, ev.Results.TotalDue.StringFixed(2))
	return ev
}

// EvaluateYear evaluates a stored year record.
func (e *Engine) EvaluateYear(y *domain.YearData) domain.Evaluation {
	values, defaults := y.Inputs, y.Defaults
	if values.IsZero() {
		values = domain.DefaultInputValues(y.Year)
	}
	if defaults.IsZero() {
		defaults = values
	}
	return e.Evaluate(values, defaults, y.Transactions)
}

// yearHint finds the year to use for built-in defaults.
func yearHint(candidates ...domain.CalculatorInputValues) int {
	for _, v := range candidates {
		if y, err := strconv.Atoi(strings.TrimSpace(v.Year.String())); err == nil && y >= validation.MinYear && y <= validation.MaxYear {
			return y
		}
	}
	return nowFunc().Year()
}

var nowFunc = time.Now

// SetNowFunc overrides the clock used when no year can be inferred. Intended for tests.
func SetNowFunc(f func() time.Time) {
	if f == nil {
		nowFunc = time.Now
		return
	}
	nowFunc = f
}

func fingerprint(in domain.CalculatorInputs) string {
	return fmt.Sprintf("%d|%s|%s|%s|%s|%s|%t|%t|%s|%s|%s",
		in.Year, in.Revenue.String(), in.Coeff.String(), in.TaxRate.String(),
		in.InpsType, in.InpsRate.String(), in.InpsDeductible, in.ApplyAcconti,
		in.SplitModel, in.CustomSplitJune.String(), in.CustomSplitNovember.String())
}
