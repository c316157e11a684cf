package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/melnicenkovadik/my-tax-calculator/internal/domain"
	"github.com/melnicenkovadik/my-tax-calculator/internal/validation"
)

// YearFile is the on-disk description of a tax year. Either YAML (snake_case
// keys) or JSON (camelCase keys) is accepted.
type YearFile struct {
	Year         int                           `yaml:"year" json:"year"`
	Inputs       domain.CalculatorInputValues  `yaml:"inputs" json:"inputs"`
	Defaults     domain.CalculatorInputValues  `yaml:"defaults" json:"defaults"`
	Transactions []validation.TransactionInput `yaml:"transactions" json:"transactions"`
}

// InputParser handles parsing of year files
type InputParser struct{}

// NewInputParser creates a new input parser
func NewInputParser() *InputParser {
	return &InputParser{}
}

// LoadFromFile loads a year from a YAML or JSON file and validates it.
func (ip *InputParser) LoadFromFile(filename string) (*domain.YearData, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	file, err := ip.Parse(data, filepath.Ext(filename))
	if err != nil {
		return nil, err
	}

	year, err := ip.ValidateYearFile(file)
	if err != nil {
		return nil, fmt.Errorf("year file validation failed: %w", err)
	}

	return year, nil
}

// Parse decodes data as JSON when ext is ".json" or the document starts with
// "{", and as YAML otherwise.
func (ip *InputParser) Parse(data []byte, ext string) (*YearFile, error) {
	var file YearFile
	if strings.EqualFold(ext, ".json") || bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")) {
		if err := json.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
		return &file, nil
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &file, nil
}

// ValidateYearFile checks the inputs and normalizes the transactions of file.
// Missing inputs default to the built-in values for the year and missing
// defaults to the inputs.
func (ip *InputParser) ValidateYearFile(file *YearFile) (*domain.YearData, error) {
	year := file.Year
	if year == 0 {
		if y, err := strconv.Atoi(strings.TrimSpace(file.Inputs.Year.String())); err == nil {
			year = y
		}
	}
	if year < validation.MinYear || year > validation.MaxYear {
		return nil, fmt.Errorf("year must be between %d and %d, got %d", validation.MinYear, validation.MaxYear, year)
	}

	inputs := file.Inputs
	if inputs.IsZero() {
		inputs = domain.DefaultInputValues(year)
	}
	if strings.TrimSpace(inputs.Year.String()) == "" {
		inputs = inputs.WithYear(year)
	}
	if res := validation.Validate(inputs); !res.Valid() {
		field, msg, _ := res.FirstError()
		return nil, fmt.Errorf("inputs.%s: %s", field, msg)
	}

	defaults := file.Defaults
	if defaults.IsZero() {
		defaults = inputs
	}

	txs := make([]domain.RevenueTransaction, 0, len(file.Transactions))
	for i, in := range file.Transactions {
		tx, err := validation.NormalizeTransaction(in)
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}
		txs = append(txs, tx)
	}

	return &domain.YearData{
		Year:         year,
		Inputs:       inputs,
		Defaults:     defaults,
		Transactions: txs,
	}, nil
}
