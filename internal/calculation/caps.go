package calculation

import (
	"sort"

	"github.com/shopspring/decimal"
)

// ContributionCaps maps a tax year to the Gestione Separata massimale, the
// yearly ceiling on income subject to INPS contributions. Years that are not
// listed are uncapped; no value is ever interpolated.
//
// A ContributionCaps is immutable: With and Merge return extended copies.
type ContributionCaps struct {
	caps map[int]decimal.Decimal
}

// DefaultContributionCaps returns the statutory values known to the engine.
func DefaultContributionCaps() ContributionCaps {
	return ContributionCaps{caps: map[int]decimal.Decimal{
		2024: decimal.NewFromInt(120607),
		2025: decimal.NewFromInt(120607),
	}}
}

// Cap returns the ceiling for year and whether one is defined.
func (c ContributionCaps) Cap(year int) (decimal.Decimal, bool) {
	v, ok := c.caps[year]
	return v, ok
}

// With returns a copy of c with the cap for year set to value.
func (c ContributionCaps) With(year int, value decimal.Decimal) ContributionCaps {
	return c.Merge(map[int]decimal.Decimal{year: value})
}

// Merge returns a copy of c with overrides applied on top.
func (c ContributionCaps) Merge(overrides map[int]decimal.Decimal) ContributionCaps {
	out := make(map[int]decimal.Decimal, len(c.caps)+len(overrides))
	for y, v := range c.caps {
		out[y] = v
	}
	for y, v := range overrides {
		out[y] = v
	}
	return ContributionCaps{caps: out}
}

// Years lists the years with a defined cap in ascending order.
func (c ContributionCaps) Years() []int {
	years := make([]int, 0, len(c.caps))
	for y := range c.caps {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// Resolve applies the cap for year to base.
func (c ContributionCaps) Resolve(base decimal.Decimal, year int) decimal.Decimal {
	limit, ok := c.Cap(year)
	if !ok {
		return base
	}
	return decimal.Min(base, limit)
}
