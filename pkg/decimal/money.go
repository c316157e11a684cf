package decimal

import (
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Money represents a euro amount with proper financial precision
type Money struct {
	decimal.Decimal
}

// NewMoneyFromDecimal creates a new Money instance from a decimal.Decimal
func NewMoneyFromDecimal(d decimal.Decimal) Money {
	return Money{d}
}

// Sum adds up a list of amounts. An empty list sums to zero.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// String returns the plain two-decimal representation ("1234.50"), rounded
// half away from zero.
func (m Money) String() string {
	return m.Decimal.StringFixed(2)
}

// Format renders the amount the way it-IT formats euros: "1.234,50 €".
func (m Money) Format() string {
	return italianNumber(m.Decimal, 2, false) + " €"
}

// FormatPercent renders a 0-1 ratio as an Italian percentage with at most
// two decimals: 0.2607 -> "26,07%", 0.05 -> "5%".
func FormatPercent(ratio decimal.Decimal) string {
	return italianNumber(ratio.Mul(hundred), 2, true) + "%"
}

func italianNumber(d decimal.Decimal, places int32, trimZeros bool) string {
	s := d.StringFixed(places)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, fracPart, _ := strings.Cut(s, ".")
	if trimZeros {
		fracPart = strings.TrimRight(fracPart, "0")
	}

	var b strings.Builder
	if neg && strings.Trim(intPart+fracPart, "0") != "" {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	if fracPart != "" {
		b.WriteByte(',')
		b.WriteString(fracPart)
	}
	return b.String()
}
