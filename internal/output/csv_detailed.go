package output

import (
	"bytes"
	"encoding/csv"

	"github.com/melnicenkovadik/my-tax-calculator/internal/validation"
)

// CSVTransactionsFormatter exports the year's transactions, newest first.
// Free-text cells are guarded so spreadsheets do not evaluate them.
type CSVTransactionsFormatter struct{}

func (c CSVTransactionsFormatter) Name() string { return "csv-transactions" }
func (c CSVTransactionsFormatter) Ext() string  { return "csv" }

func (c CSVTransactionsFormatter) Format(report *Report) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	header := []string{"ID", "Date", "Amount", "Description", "Sender", "BillTo", "Causale", "Notes"}
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, tx := range report.Transactions {
		row := []string{
			tx.ID,
			tx.Date,
			plainAmount(tx.Amount),
			validation.SanitizeForFormulaInjection(tx.Description),
			validation.SanitizeForFormulaInjection(tx.Sender),
			validation.SanitizeForFormulaInjection(tx.BillTo),
			validation.SanitizeForFormulaInjection(tx.Causale),
			validation.SanitizeForFormulaInjection(tx.Notes),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}
