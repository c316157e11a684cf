package calculation

import (
	"github.com/shopspring/decimal"

	"github.com/melnicenkovadik/my-tax-calculator/internal/domain"
)

// FORFETTARIO CALCULATION:
//
// 1. Taxable base: revenue times the ATECO coefficient.
//
// 2. INPS Gestione Separata: taxable base, capped at the yearly massimale when
//    one is defined, times the INPS rate.
//    - Artigiani/Commercianti contributions are not modelled and count as zero.
//
// 3. Imposta sostitutiva: 5% or 15% of the taxable base, after deducting the
//    INPS paid when the deduction is enabled. The base never goes below zero.
//
// 4. Effective rates are expressed against revenue and are zero when revenue
//    is not positive.

var defaultCaps = DefaultContributionCaps()

// ComputeTaxableBase returns revenue * coeff.
func ComputeTaxableBase(revenue, coeff decimal.Decimal) decimal.Decimal {
	return revenue.Mul(coeff)
}

// ResolveGestioneSeparataBase caps taxableBase with the default massimale for
// year.
func ResolveGestioneSeparataBase(taxableBase decimal.Decimal, year int) decimal.Decimal {
	return defaultCaps.Resolve(taxableBase, year)
}

// ComputeInpsGestioneSeparata returns base * inpsRate.
func ComputeInpsGestioneSeparata(base, inpsRate decimal.Decimal) decimal.Decimal {
	return base.Mul(inpsRate)
}

// ComputeTax returns the imposta sostitutiva on baseAfterDeduction.
func ComputeTax(baseAfterDeduction, taxRate decimal.Decimal) decimal.Decimal {
	return baseAfterDeduction.Mul(taxRate)
}

// ComputeTotals derives the yearly figures from validated inputs using the
// default contribution caps. It never fails; unvalidated inputs produce
// meaningless but well defined numbers.
func ComputeTotals(inputs domain.CalculatorInputs) domain.CalculatorResults {
	return computeTotals(inputs, defaultCaps)
}

func computeTotals(inputs domain.CalculatorInputs, caps ContributionCaps) domain.CalculatorResults {
	taxableBase := ComputeTaxableBase(inputs.Revenue, inputs.Coeff)

	inps := decimal.Zero
	switch inputs.InpsType {
	case domain.InpsGestioneSeparata:
		inps = ComputeInpsGestioneSeparata(caps.Resolve(taxableBase, inputs.Year), inputs.InpsRate)
	case domain.InpsArtigianiCommercianti:
		// Not modelled: fixed minimale plus percentage over threshold.
	}

	baseAfterDeduction := taxableBase
	if inputs.InpsDeductible {
		baseAfterDeduction = decimal.Max(taxableBase.Sub(inps), decimal.Zero)
	}

	tax := ComputeTax(baseAfterDeduction, inputs.TaxRate)
	totalDue := inps.Add(tax)

	return domain.CalculatorResults{
		TaxableBase:        taxableBase,
		Inps:               inps,
		BaseAfterDeduction: baseAfterDeduction,
		Tax:                tax,
		TotalDue:           totalDue,
		EffectiveInpsRate:  effectiveRate(inps, inputs.Revenue),
		EffectiveTaxRate:   effectiveRate(tax, inputs.Revenue),
		EffectiveTotalRate: effectiveRate(totalDue, inputs.Revenue),
	}
}

func effectiveRate(amount, revenue decimal.Decimal) decimal.Decimal {
	if !revenue.IsPositive() {
		return decimal.Zero
	}
	return amount.Div(revenue)
}
