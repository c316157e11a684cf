package config

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/melnicenkovadik/my-tax-calculator/internal/calculation"
)

// Rules holds statutory values that change with the law, kept out of the
// binary so a new year can be added without a release.
//
//	inps_max_base:
//	  2026: 122295
type Rules struct {
	InpsMaxBase map[int]decimal.Decimal `yaml:"inps_max_base"`
}

// LoadRules reads a rules file. An empty path yields empty rules.
func LoadRules(path string) (Rules, error) {
	var rules Rules
	if path == "" {
		return rules, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return rules, fmt.Errorf("failed to read rules file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return rules, fmt.Errorf("failed to parse rules file: %w", err)
	}
	for year, limit := range rules.InpsMaxBase {
		if limit.IsNegative() {
			return rules, fmt.Errorf("inps_max_base for %d must not be negative", year)
		}
	}
	return rules, nil
}

// Caps applies the overrides on top of base.
func (r Rules) Caps(base calculation.ContributionCaps) calculation.ContributionCaps {
	if len(r.InpsMaxBase) == 0 {
		return base
	}
	return base.Merge(r.InpsMaxBase)
}
