package calculation

import (
	"github.com/shopspring/decimal"

	"github.com/melnicenkovadik/my-tax-calculator/internal/domain"
)

var (
	// DefaultInpsAccontoRate: acconti cover 80% of the year's INPS.
	DefaultInpsAccontoRate = decimal.RequireFromString("0.8")
	// DefaultTaxAccontoRate: acconti cover all of the year's tax.
	DefaultTaxAccontoRate = decimal.NewFromInt(1)

	StandardSplit = domain.ScheduleSplit{
		June:     decimal.RequireFromString("0.4"),
		November: decimal.RequireFromString("0.6"),
		Model:    domain.SplitStandard,
	}
)

// ResolveScheduleSplit picks the acconto percentages for inputs.
func ResolveScheduleSplit(inputs domain.CalculatorInputs) domain.ScheduleSplit {
	if inputs.SplitModel == domain.SplitCustom {
		return domain.ScheduleSplit{
			June:     inputs.CustomSplitJune,
			November: inputs.CustomSplitNovember,
			Model:    domain.SplitCustom,
		}
	}
	return StandardSplit
}

// ComputeAccontoBase returns inps*inpsRate + tax*taxRate. The optional rates
// override DefaultInpsAccontoRate and DefaultTaxAccontoRate, in that order.
func ComputeAccontoBase(inps, tax decimal.Decimal, rates ...decimal.Decimal) decimal.Decimal {
	inpsRate, taxRate := DefaultInpsAccontoRate, DefaultTaxAccontoRate
	if len(rates) > 0 {
		inpsRate = rates[0]
	}
	if len(rates) > 1 {
		taxRate = rates[1]
	}
	return inps.Mul(inpsRate).Add(tax.Mul(taxRate))
}

// ComputeSchedule lays out the payments due for the year: the saldo alone in
// June when acconti are disabled, otherwise saldo plus first acconto in June
// and the second acconto in November.
func ComputeSchedule(saldo, accontoBase decimal.Decimal, accontoEnabled bool, split domain.ScheduleSplit) []domain.ScheduleItem {
	if !accontoEnabled {
		return []domain.ScheduleItem{{
			Key:     domain.ScheduleJune,
			Amount:  saldo,
			Saldo:   saldo,
			Acconto: decimal.Zero,
		}}
	}

	june := accontoBase.Mul(split.June)
	november := accontoBase.Mul(split.November)
	return []domain.ScheduleItem{
		{Key: domain.ScheduleJune, Amount: saldo.Add(june), Saldo: saldo, Acconto: june},
		{Key: domain.ScheduleNovember, Amount: november, Saldo: decimal.Zero, Acconto: november},
	}
}
