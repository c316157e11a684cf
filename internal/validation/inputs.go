package validation

import (
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/melnicenkovadik/my-tax-calculator/internal/domain"
	"github.com/shopspring/decimal"
)

// Field names reported in Result.Errors. They match the JSON keys of
// domain.CalculatorInputValues.
const (
	FieldYear                = "year"
	FieldRevenue             = "revenue"
	FieldCoeff               = "coeff"
	FieldTaxRate             = "taxRate"
	FieldInpsType            = "inpsType"
	FieldInpsRate            = "inpsRate"
	FieldSplitModel          = "splitModel"
	FieldCustomSplitJune     = "customSplitJune"
	FieldCustomSplitNovember = "customSplitNovember"
)

const (
	MinYear = 1900
	MaxYear = 2100
)

var (
	zero = decimal.Zero
	one  = decimal.NewFromInt(1)

	// allowedTaxRates are the two imposta sostitutiva tiers.
	allowedTaxRates = []decimal.Decimal{
		decimal.RequireFromString("0.05"),
		decimal.RequireFromString("0.15"),
	}

	standardJune     = decimal.RequireFromString("0.4")
	standardNovember = decimal.RequireFromString("0.6")

	splitTolerance = decimal.RequireFromString("0.001")
)

// Result is the outcome of Validate. Exactly one of Parsed and Errors carries
// information: Parsed is nil whenever Errors is not empty.
type Result struct {
	Parsed *domain.CalculatorInputs
	Errors map[string]string
}

// Valid reports whether the values passed validation.
func (r Result) Valid() bool { return r.Parsed != nil }

// Error returns the message recorded for field, if any.
func (r Result) Error(field string) (string, bool) {
	msg, ok := r.Errors[field]
	return msg, ok
}

// FirstError returns the message of the first failing field in form order.
func (r Result) FirstError() (field, msg string, ok bool) {
	for _, f := range fieldOrder {
		if m, exists := r.Errors[f]; exists {
			return f, m, true
		}
	}
	return "", "", false
}

var fieldOrder = []string{
	FieldYear, FieldRevenue, FieldCoeff, FieldTaxRate, FieldInpsType,
	FieldInpsRate, FieldSplitModel, FieldCustomSplitJune, FieldCustomSplitNovember,
}

// fieldErrors keeps the first message reported for each field.
type fieldErrors map[string]string

func (fe fieldErrors) add(field, msg string) {
	if _, exists := fe[field]; !exists {
		fe[field] = msg
	}
}

// numberRule describes a numeric form field.
type numberRule struct {
	field string
	label string
	min   *decimal.Decimal
	max   *decimal.Decimal
}

// check coerces raw and applies the bounds. It records at most one error.
func (r numberRule) check(raw domain.NumericString, errs fieldErrors) (decimal.Decimal, bool) {
	v, ok := CoerceNumber(raw)
	if !ok {
		if strings.TrimSpace(string(raw)) == "" {
			errs.add(r.field, fmt.Sprintf("%s is required", r.label))
		} else {
			errs.add(r.field, fmt.Sprintf("%s must be a number", r.label))
		}
		return decimal.Decimal{}, false
	}
	return v, r.bounds(v, errs)
}

func (r numberRule) bounds(v decimal.Decimal, errs fieldErrors) bool {
	if r.min != nil && v.LessThan(*r.min) {
		errs.add(r.field, fmt.Sprintf("%s must be >= %s", r.label, r.min.String()))
		return false
	}
	if r.max != nil && v.GreaterThan(*r.max) {
		errs.add(r.field, fmt.Sprintf("%s must be <= %s", r.label, r.max.String()))
		return false
	}
	return true
}

func bound(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

var (
	yearRule     = numberRule{field: FieldYear, label: "Tax year", min: bound(MinYear), max: bound(MaxYear)}
	revenueRule  = numberRule{field: FieldRevenue, label: "Revenue", min: &zero}
	coeffRule    = numberRule{field: FieldCoeff, label: "Coefficient", min: &zero, max: &one}
	taxRateRule  = numberRule{field: FieldTaxRate, label: "Tax rate", min: &zero, max: &one}
	inpsRateRule = numberRule{field: FieldInpsRate, label: "INPS rate", min: &zero, max: &one}
	juneRule     = numberRule{field: FieldCustomSplitJune, label: "June split", min: &zero, max: &one}
	novemberRule = numberRule{field: FieldCustomSplitNovember, label: "November split", min: &zero, max: &one}
)

// splitVariant validates the split fields for one split model and returns the
// June/November percentages to store on the parsed record.
type splitVariant interface {
	resolve(values domain.CalculatorInputValues, errs fieldErrors) (june, november decimal.Decimal)
}

// standardSplit: both percentages are optional and default to 40/60. A value
// that is present must still be a percentage.
type standardSplit struct{}

func (standardSplit) resolve(values domain.CalculatorInputValues, errs fieldErrors) (decimal.Decimal, decimal.Decimal) {
	return optionalPercent(juneRule, values.CustomSplitJune, standardJune, errs),
		optionalPercent(novemberRule, values.CustomSplitNovember, standardNovember, errs)
}

func optionalPercent(rule numberRule, raw domain.NumericString, fallback decimal.Decimal, errs fieldErrors) decimal.Decimal {
	v, ok := CoerceNumber(raw)
	if !ok {
		return fallback
	}
	rule.bounds(v, errs)
	return v
}

// customSplit: both percentages are required and must add up to 1 within
// splitTolerance. The sum is only checked once every other field is valid; a
// bad sum is reported on both fields.
type customSplit struct{}

const splitSumMessage = "split must equal 1.00"

func (customSplit) resolve(values domain.CalculatorInputValues, errs fieldErrors) (decimal.Decimal, decimal.Decimal) {
	june, juneOK := juneRule.check(values.CustomSplitJune, errs)
	november, novemberOK := novemberRule.check(values.CustomSplitNovember, errs)
	if len(errs) == 0 && juneOK && novemberOK && june.Add(november).Sub(one).Abs().GreaterThan(splitTolerance) {
		errs.add(FieldCustomSplitJune, splitSumMessage)
		errs.add(FieldCustomSplitNovember, splitSumMessage)
	}
	return june, november
}

func splitVariantFor(model domain.SplitModel) (splitVariant, bool) {
	switch model {
	case domain.SplitStandard:
		return standardSplit{}, true
	case domain.SplitCustom:
		return customSplit{}, true
	default:
		return nil, false
	}
}

// Validate coerces raw calculator values into a CalculatorInputs record.
// It never panics; every problem is reported as a field error and Parsed is
// left nil.
func Validate(values domain.CalculatorInputValues) Result {
	errs := fieldErrors{}

	variant, ok := splitVariantFor(values.SplitModel)
	if !ok {
		errs.add(FieldSplitModel, fmt.Sprintf("Invalid split model %q: expected %q or %q",
			values.SplitModel, domain.SplitStandard, domain.SplitCustom))
		return Result{Errors: errs}
	}

	parsed := domain.CalculatorInputs{
		InpsType:       values.InpsType,
		InpsDeductible: values.InpsDeductible,
		ApplyAcconti:   values.ApplyAcconti,
		SplitModel:     values.SplitModel,
	}

	if year, ok := yearRule.check(values.Year, errs); ok {
		if !year.IsInteger() {
			errs.add(FieldYear, "Tax year must be an integer")
		} else {
			parsed.Year = int(year.IntPart())
		}
	}

	parsed.Revenue, _ = revenueRule.check(values.Revenue, errs)
	parsed.Coeff, _ = coeffRule.check(values.Coeff, errs)

	if rate, ok := taxRateRule.check(values.TaxRate, errs); ok {
		if !isAllowedTaxRate(rate) {
			errs.add(FieldTaxRate, "Tax rate must be 0.05 or 0.15")
		}
		parsed.TaxRate = rate
	}

	if !values.InpsType.Valid() {
		errs.add(FieldInpsType, fmt.Sprintf("Invalid INPS scheme %q: expected %q or %q",
			values.InpsType, domain.InpsGestioneSeparata, domain.InpsArtigianiCommercianti))
	}

	parsed.InpsRate, _ = inpsRateRule.check(values.InpsRate, errs)
	parsed.CustomSplitJune, parsed.CustomSplitNovember = variant.resolve(values, errs)

	if len(errs) > 0 {
		return Result{Errors: errs}
	}
	return Result{Parsed: &parsed, Errors: map[string]string{}}
}

func isAllowedTaxRate(rate decimal.Decimal) bool {
	for _, allowed := range allowedTaxRates {
		if rate.Equal(allowed) {
			return true
		}
	}
	return false
}

// CoerceNumber converts a number or numeric text into a decimal. Strings are
// parsed with ParseNumber; floats must be finite. Anything else is rejected.
func CoerceNumber(value any) (decimal.Decimal, bool) {
	switch v := value.(type) {
	case decimal.Decimal:
		return finite(v)
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return decimal.Decimal{}, false
		}
		return decimal.NewFromFloat(v), true
	case int:
		return decimal.NewFromInt(int64(v)), true
	case int64:
		return decimal.NewFromInt(v), true
	case string:
		return ParseNumber(v)
	case domain.NumericString:
		return ParseNumber(string(v))
	default:
		return decimal.Decimal{}, false
	}
}

// ParseNumber is the single numeric parsing policy for user-facing fields.
// Surrounding space is ignored. A lone comma with no dot is read as the
// decimal separator ("1234,5"); otherwise only "." separates decimals. The
// whole string must be a number: trailing text or thousands separators are
// rejected.
func ParseNumber(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Decimal{}, false
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return finite(d)
}

// Decimal magnitudes outside what a float64 can represent. Above the range
// the value would be infinite; below it, it would round to zero.
const (
	maxFloatMagnitude = 309
	minFloatMagnitude = -323
)

// finite rejects values a float64 would hold as infinity and flushes values
// below the smallest float64 to zero. The magnitude is read from the digit
// count and exponent so huge exponents are never expanded.
func finite(d decimal.Decimal) (decimal.Decimal, bool) {
	if d.IsZero() {
		return d, true
	}
	digits := int64(len(new(big.Int).Abs(d.Coefficient()).String()))
	magnitude := digits + int64(d.Exponent())
	switch {
	case magnitude > maxFloatMagnitude:
		return decimal.Decimal{}, false
	case magnitude == maxFloatMagnitude && math.IsInf(d.InexactFloat64(), 0):
		return decimal.Decimal{}, false
	case magnitude < minFloatMagnitude:
		return decimal.Zero, true
	}
	return d, true
}
