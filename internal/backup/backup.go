// Package backup converts a stored year to and from the portable JSON
// payload used for export and import.
package backup

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/melnicenkovadik/my-tax-calculator/internal/domain"
	"github.com/melnicenkovadik/my-tax-calculator/internal/validation"
)

// Version is written into every exported payload.
const Version = 1

// ErrInvalidPayload is returned when an import cannot be understood.
var ErrInvalidPayload = errors.New("invalid backup payload")

// Payload is the export document.
type Payload struct {
	Version      int                          `json:"version"`
	Inputs       domain.CalculatorInputValues `json:"inputs"`
	Defaults     domain.CalculatorInputValues `json:"defaults"`
	Transactions []domain.RevenueTransaction  `json:"transactions"`
}

// FileName is the suggested name for an export of year.
func FileName(year int) string {
	return fmt.Sprintf("forfettario-%d.json", year)
}

// Export renders the payload for year. A nil y exports the default inputs
// with no transactions.
func Export(year int, y *domain.YearData) ([]byte, error) {
	p := Payload{
		Version:      Version,
		Inputs:       domain.DefaultInputValues(year),
		Defaults:     domain.DefaultInputValues(year),
		Transactions: []domain.RevenueTransaction{},
	}
	if y != nil {
		p.Inputs = y.Inputs
		p.Defaults = y.Defaults
		if len(y.Transactions) > 0 {
			p.Transactions = y.Transactions
		}
	}
	return json.MarshalIndent(p, "", "  ")
}

type importPayload struct {
	Inputs       json.RawMessage `json:"inputs"`
	Defaults     json.RawMessage `json:"defaults"`
	Transactions json.RawMessage `json:"transactions"`
}

// Import decodes data into a year record for targetYear, whatever year the
// payload was exported from. A payload without an "inputs" key is read as a
// bare set of input values. Defaults fall back to the inputs.
func Import(data []byte, targetYear int, now time.Time) (*domain.YearData, error) {
	var raw importPayload
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: failed to parse JSON: %v", ErrInvalidPayload, err)
	}

	inputSource := raw.Inputs
	if isNull(inputSource) {
		inputSource = data
	}
	inputs, ok := decodeValues(inputSource)
	if !ok {
		return nil, fmt.Errorf("%w: missing input data", ErrInvalidPayload)
	}
	defaults, ok := decodeValues(raw.Defaults)
	if !ok {
		defaults = inputs
	}

	var entries []validation.TransactionInput
	if trimmed := bytes.TrimSpace(raw.Transactions); len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return nil, fmt.Errorf("%w: transactions: %v", ErrInvalidPayload, err)
		}
	}
	txs := make([]domain.RevenueTransaction, 0, len(entries))
	for i, in := range entries {
		tx, err := validation.NormalizeTransaction(in)
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}
		txs = append(txs, tx)
	}

	return domain.NewYearData(targetYear, inputs.WithYear(targetYear), defaults.WithYear(targetYear), txs, now), nil
}

// decodeValues accepts data only when it has the shape of a set of input
// values; the numbers themselves are validated later, like any form input.
func decodeValues(data json.RawMessage) (domain.CalculatorInputValues, bool) {
	var v domain.CalculatorInputValues
	if isNull(data) {
		return v, false
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, false
	}
	return v, v.InpsType.Valid() && v.SplitModel.Valid()
}

func isNull(data json.RawMessage) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
