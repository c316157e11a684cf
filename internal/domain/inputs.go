package domain

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// InpsType selects the INPS contribution scheme.
type InpsType string

const (
	InpsGestioneSeparata      InpsType = "gestione_separata"
	InpsArtigianiCommercianti InpsType = "artigiani_commercianti"
)

// Valid reports whether t is one of the known schemes.
func (t InpsType) Valid() bool {
	return t == InpsGestioneSeparata || t == InpsArtigianiCommercianti
}

// Label is the human readable scheme name used in summaries.
func (t InpsType) Label() string {
	switch t {
	case InpsGestioneSeparata:
		return "Gestione Separata"
	case InpsArtigianiCommercianti:
		return "Artigiani/Commercianti"
	default:
		return string(t)
	}
}

// SplitModel selects how the acconto is divided between June and November.
type SplitModel string

const (
	SplitStandard SplitModel = "standard"
	SplitCustom   SplitModel = "custom"
)

// Valid reports whether m is one of the known split models.
func (m SplitModel) Valid() bool {
	return m == SplitStandard || m == SplitCustom
}

// CalculatorInputs is the validated, canonical form of the calculator inputs.
// It is produced only by validation.Validate and treated as immutable.
type CalculatorInputs struct {
	Year                int             `yaml:"year" json:"year"`
	Revenue             decimal.Decimal `yaml:"revenue" json:"revenue"`
	Coeff               decimal.Decimal `yaml:"coeff" json:"coeff"`
	TaxRate             decimal.Decimal `yaml:"tax_rate" json:"taxRate"`
	InpsType            InpsType        `yaml:"inps_type" json:"inpsType"`
	InpsRate            decimal.Decimal `yaml:"inps_rate" json:"inpsRate"`
	InpsDeductible      bool            `yaml:"inps_deductible" json:"inpsDeductible"`
	ApplyAcconti        bool            `yaml:"apply_acconti" json:"applyAcconti"`
	SplitModel          SplitModel      `yaml:"split_model" json:"splitModel"`
	CustomSplitJune     decimal.Decimal `yaml:"custom_split_june" json:"customSplitJune"`
	CustomSplitNovember decimal.Decimal `yaml:"custom_split_november" json:"customSplitNovember"`
}

// WithRevenue returns a copy of the inputs with a different revenue.
func (c CalculatorInputs) WithRevenue(revenue decimal.Decimal) CalculatorInputs {
	c.Revenue = revenue
	return c
}

// CalculatorInputValues is the raw form/storage representation of the inputs.
// Numeric fields are kept as text until validation coerces them.
type CalculatorInputValues struct {
	Year                NumericString `yaml:"year" json:"year"`
	Revenue             NumericString `yaml:"revenue" json:"revenue"`
	Coeff               NumericString `yaml:"coeff" json:"coeff"`
	TaxRate             NumericString `yaml:"tax_rate" json:"taxRate"`
	InpsType            InpsType      `yaml:"inps_type" json:"inpsType"`
	InpsRate            NumericString `yaml:"inps_rate" json:"inpsRate"`
	InpsDeductible      bool          `yaml:"inps_deductible" json:"inpsDeductible"`
	ApplyAcconti        bool          `yaml:"apply_acconti" json:"applyAcconti"`
	SplitModel          SplitModel    `yaml:"split_model" json:"splitModel"`
	CustomSplitJune     NumericString `yaml:"custom_split_june" json:"customSplitJune"`
	CustomSplitNovember NumericString `yaml:"custom_split_november" json:"customSplitNovember"`
}

// IsZero reports whether no field has been set, which is how a missing
// "defaults" block shows up after decoding.
func (v CalculatorInputValues) IsZero() bool {
	return v == CalculatorInputValues{}
}

// WithYear returns a copy of the values bound to another tax year.
func (v CalculatorInputValues) WithYear(year int) CalculatorInputValues {
	v.Year = NumericString(strconv.Itoa(year))
	return v
}

// DefaultInputValues returns the initial form state for a year.
func DefaultInputValues(year int) CalculatorInputValues {
	return CalculatorInputValues{
		Year:                NumericString(strconv.Itoa(year)),
		Revenue:             "0",
		Coeff:               "0.67",
		TaxRate:             "0.05",
		InpsType:            InpsGestioneSeparata,
		InpsRate:            "0.2607",
		InpsDeductible:      true,
		ApplyAcconti:        true,
		SplitModel:          SplitStandard,
		CustomSplitJune:     "0.4",
		CustomSplitNovember: "0.6",
	}
}

// DefaultInputs is the validated counterpart of DefaultInputValues.
func DefaultInputs(year int) CalculatorInputs {
	return CalculatorInputs{
		Year:                year,
		Revenue:             decimal.Zero,
		Coeff:               decimal.RequireFromString("0.67"),
		TaxRate:             decimal.RequireFromString("0.05"),
		InpsType:            InpsGestioneSeparata,
		InpsRate:            decimal.RequireFromString("0.2607"),
		InpsDeductible:      true,
		ApplyAcconti:        true,
		SplitModel:          SplitStandard,
		CustomSplitJune:     decimal.RequireFromString("0.4"),
		CustomSplitNovember: decimal.RequireFromString("0.6"),
	}
}

// NumericString holds a numeric form field as text. It decodes from either a
// JSON/YAML number or a string; any other value decodes to the empty string.
type NumericString string

func (n NumericString) String() string { return string(n) }

func (n *NumericString) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		*n = ""
		return nil
	}
	switch c := trimmed[0]; {
	case c == '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*n = NumericString(s)
	case c == '-' || (c >= '0' && c <= '9'):
		var num json.Number
		if err := json.Unmarshal(trimmed, &num); err != nil {
			return err
		}
		*n = NumericString(num.String())
	default:
		*n = ""
	}
	return nil
}

func (n *NumericString) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode || value.Tag == "!!null" {
		*n = ""
		return nil
	}
	*n = NumericString(value.Value)
	return nil
}
