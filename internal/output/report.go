package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/melnicenkovadik/my-tax-calculator/internal/domain"
)

// Report is what every formatter renders: one evaluated year plus the
// transactions that fed it.
type Report struct {
	Evaluation   domain.Evaluation           `json:"evaluation"`
	Transactions []domain.RevenueTransaction `json:"transactions"`
	GeneratedAt  time.Time                   `json:"generatedAt"`
}

// NewReport sorts a copy of txs newest first and stamps the report in UTC.
func NewReport(ev domain.Evaluation, txs []domain.RevenueTransaction, at time.Time) *Report {
	sorted := append([]domain.RevenueTransaction{}, txs...)
	domain.SortTransactions(sorted)
	return &Report{Evaluation: ev, Transactions: sorted, GeneratedAt: at.UTC()}
}

// GenerateReport renders report in format and writes it into dir. "all"
// writes every registered format.
func GenerateReport(report *Report, format, dir string) ([]string, error) {
	if NormalizeFormatName(format) == "all" {
		var written []string
		for _, name := range AvailableFormatterNames() {
			path, err := WriteFormatted(GetFormatterByName(name), report, dir)
			if err != nil {
				return written, err
			}
			written = append(written, path)
		}
		return written, nil
	}

	f := GetFormatterByName(format)
	if f == nil {
		return nil, fmt.Errorf("%w: %q. Try one of: %s (aliases: %s)", ErrUnsupportedFormat, format, strings.Join(AvailableFormatterNames(), ", "), strings.Join(AvailableFormatAliases(), ", "))
	}
	path, err := WriteFormatted(f, report, dir)
	if err != nil {
		return nil, err
	}
	return []string{path}, nil
}
