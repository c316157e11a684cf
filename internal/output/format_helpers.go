package output

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/melnicenkovadik/my-tax-calculator/internal/domain"
	money "github.com/melnicenkovadik/my-tax-calculator/pkg/decimal"
)

// FormatCurrency formats a decimal as euros the Italian way: "1.234,56 €".
func FormatCurrency(amount decimal.Decimal) string {
	return money.NewMoneyFromDecimal(amount).Format()
}

// FormatPercentage formats a 0-1 ratio as "26,07%".
func FormatPercentage(ratio decimal.Decimal) string { return money.FormatPercent(ratio) }

// plainAmount renders an amount for machine readable output: "1234.50".
func plainAmount(amount decimal.Decimal) string { return money.NewMoneyFromDecimal(amount).String() }

func inpsLabel(in domain.CalculatorInputs) string {
	if in.InpsType == domain.InpsGestioneSeparata {
		return fmt.Sprintf("%s %s", in.InpsType.Label(), FormatPercentage(in.InpsRate))
	}
	return in.InpsType.Label()
}

func scheduleKeyLabel(k domain.ScheduleKey) string {
	switch k {
	case domain.ScheduleJune:
		return "June"
	case domain.ScheduleNovember:
		return "November"
	default:
		return string(k)
	}
}

// summaryLines is the plain-text summary shared by the console, HTML and
// PDF renderings.
func summaryLines(ev domain.Evaluation) []string {
	in, res := ev.Inputs, ev.Results

	revenue := fmt.Sprintf("Revenue: %s", FormatCurrency(in.Revenue))
	if ev.RevenueFromTransactions {
		revenue += fmt.Sprintf(" (sum of %d transactions)", ev.TransactionCount)
	}

	lines := []string{
		fmt.Sprintf("Italian forfettario tax estimate (%d)", in.Year),
		revenue,
		fmt.Sprintf("Coefficient: %s", in.Coeff.StringFixed(2)),
		fmt.Sprintf("Taxable base: %s", FormatCurrency(res.TaxableBase)),
		fmt.Sprintf("INPS (%s): %s", inpsLabel(in), FormatCurrency(res.Inps)),
		fmt.Sprintf("Base after INPS deduction: %s", FormatCurrency(res.BaseAfterDeduction)),
		fmt.Sprintf("Imposta sostitutiva (%s): %s", FormatPercentage(in.TaxRate), FormatCurrency(res.Tax)),
		fmt.Sprintf("Total due: %s", FormatCurrency(res.TotalDue)),
	}

	if !in.ApplyAcconti {
		june := decimal.Zero
		if len(ev.Schedule) > 0 {
			june = ev.Schedule[0].Amount
		}
		return append(lines, fmt.Sprintf("Schedule: June saldo %d = %s", in.Year, FormatCurrency(june)))
	}

	lines = append(lines, "Payment schedule (estimate):")
	for _, item := range ev.Schedule {
		if item.Key == domain.ScheduleJune {
			lines = append(lines, fmt.Sprintf("June: saldo %d + 1st acconto %d = %s", in.Year, in.Year+1, FormatCurrency(item.Amount)))
			continue
		}
		lines = append(lines, fmt.Sprintf("November: 2nd acconto %d = %s", in.Year+1, FormatCurrency(item.Amount)))
	}
	return append(lines, fmt.Sprintf("Acconto split: %s / %s (estimated on the current year's total).",
		FormatPercentage(ev.Split.June), FormatPercentage(ev.Split.November)))
}
