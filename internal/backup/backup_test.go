package backup

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/melnicenkovadik/my-tax-calculator/internal/domain"
	"github.com/melnicenkovadik/my-tax-calculator/internal/validation"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestFileName(t *testing.T) {
	assert.Equal(t, "forfettario-2025.json", FileName(2025))
}

func TestExport_EmptyYear(t *testing.T) {
	data, err := Export(2026, nil)
	require.NoError(t, err)

	var p Payload
	require.NoError(t, json.Unmarshal(data, &p))
	assert.Equal(t, Version, p.Version)
	assert.Equal(t, domain.DefaultInputValues(2026), p.Inputs)
	assert.Equal(t, domain.DefaultInputValues(2026), p.Defaults)
	assert.NotNil(t, p.Transactions)
	assert.Empty(t, p.Transactions)
	assert.Contains(t, string(data), `"transactions": []`)
}

func TestExportImportRoundTripRetargetsYear(t *testing.T) {
	inputs := domain.DefaultInputValues(2024)
	inputs.Revenue = "30000"
	src := domain.NewYearData(2024, inputs, domain.DefaultInputValues(2024), []domain.RevenueTransaction{
		{ID: "2f0f4bd2-6a0c-4f4e-9a39-0f1d1b8f3c11", Date: "2024-04-10", Amount: decimal.RequireFromString("1200.50"), Sender: "ACME"},
	}, now)

	data, err := Export(2024, src)
	require.NoError(t, err)

	got, err := Import(data, 2025, now)
	require.NoError(t, err)
	assert.Equal(t, 2025, got.Year)
	assert.Equal(t, domain.NumericString("2025"), got.Inputs.Year)
	assert.Equal(t, domain.NumericString("30000"), got.Inputs.Revenue)
	assert.Equal(t, domain.NumericString("2025"), got.Defaults.Year)
	require.Len(t, got.Transactions, 1)
	assert.Equal(t, "2f0f4bd2-6a0c-4f4e-9a39-0f1d1b8f3c11", got.Transactions[0].ID)
	assert.True(t, got.Transactions[0].Amount.Equal(decimal.RequireFromString("1200.5")))
	assert.Equal(t, now, got.LastUpdated)
}

func TestImport_BareInputValues(t *testing.T) {
	data := []byte(`{"year":"2023","revenue":"10000","coeff":"0.67","taxRate":"0.05","inpsType":"gestione_separata",
		"inpsRate":"0.2607","inpsDeductible":true,"applyAcconti":true,"splitModel":"standard",
		"customSplitJune":"0.4","customSplitNovember":"0.6"}`)

	got, err := Import(data, 2025, now)
	require.NoError(t, err)
	assert.Equal(t, domain.NumericString("10000"), got.Inputs.Revenue)
	assert.Equal(t, got.Inputs, got.Defaults)
	assert.Empty(t, got.Transactions)
}

func TestImport_DropsAttachmentsAndSanitizes(t *testing.T) {
	data := []byte(`{"version":1,
		"inputs":{"year":2024,"revenue":1,"coeff":0.67,"taxRate":0.05,"inpsType":"gestione_separata","inpsRate":0.26,
			"inpsDeductible":true,"applyAcconti":false,"splitModel":"standard","customSplitJune":0.4,"customSplitNovember":0.6},
		"transactions":[{"date":"2024-02-01","amount":"99,90","description":"<i>Corso</i>",
			"attachments":[{"id":"x","url":"https://example.invalid/x.pdf"}]}]}`)

	got, err := Import(data, 2024, now)
	require.NoError(t, err)
	require.Len(t, got.Transactions, 1)
	assert.Nil(t, got.Transactions[0].Attachments)
	assert.Equal(t, "Corso", got.Transactions[0].Description)
	assert.True(t, got.Transactions[0].Amount.Equal(decimal.RequireFromString("99.90")))
	assert.Equal(t, domain.NumericString("0.26"), got.Inputs.InpsRate)
}

func TestImport_Errors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr error
		msg     string
	}{
		{"not json", `{"inputs":`, ErrInvalidPayload, "failed to parse JSON"},
		{"missing inputs", `{"version":1,"transactions":[]}`, ErrInvalidPayload, "missing input data"},
		{"unknown scheme", `{"inputs":{"inpsType":"other","splitModel":"standard"}}`, ErrInvalidPayload, "missing input data"},
		{"bad transaction", `{"inputs":{"inpsType":"gestione_separata","splitModel":"custom"},"transactions":[{"date":"yesterday","amount":"1"}]}`, validation.ErrInvalidTransaction, "transaction 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Import([]byte(tt.data), 2025, now)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestImport_IgnoresNonArrayTransactions(t *testing.T) {
	data := []byte(`{"inputs":{"inpsType":"gestione_separata","splitModel":"standard"},"transactions":"none"}`)
	got, err := Import(data, 2025, now)
	require.NoError(t, err)
	assert.Empty(t, got.Transactions)
}
