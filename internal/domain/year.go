package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	money "github.com/melnicenkovadik/my-tax-calculator/pkg/decimal"
)

// RevenueTransaction is a single incoming payment for a tax year.
type RevenueTransaction struct {
	ID          string                  `yaml:"id" json:"id"`
	Date        string                  `yaml:"date" json:"date"` // YYYY-MM-DD
	Amount      decimal.Decimal         `yaml:"amount" json:"amount"`
	Description string                  `yaml:"description,omitempty" json:"description,omitempty"`
	Sender      string                  `yaml:"sender,omitempty" json:"sender,omitempty"`
	BillTo      string                  `yaml:"bill_to,omitempty" json:"billTo,omitempty"`
	Notes       string                  `yaml:"notes,omitempty" json:"notes,omitempty"`
	Causale     string                  `yaml:"causale,omitempty" json:"causale,omitempty"`
	Attachments []TransactionAttachment `yaml:"attachments,omitempty" json:"attachments,omitempty"`
}

// TransactionAttachment describes a file linked to a transaction. Only the
// metadata is modelled; the blob lives in external storage.
type TransactionAttachment struct {
	ID            string    `yaml:"id" json:"id"`
	TransactionID string    `yaml:"transaction_id" json:"transactionId"`
	URL           string    `yaml:"url" json:"url"`
	ContentType   string    `yaml:"content_type" json:"contentType"`
	OriginalName  string    `yaml:"original_name" json:"originalName"`
	Size          int64     `yaml:"size" json:"size"`
	CreatedAt     time.Time `yaml:"created_at" json:"createdAt"`
}

// TransactionTemplate stores reusable counterparty details.
type TransactionTemplate struct {
	ID        string    `yaml:"id" json:"id"`
	Name      string    `yaml:"name" json:"name"`
	Sender    string    `yaml:"sender,omitempty" json:"sender,omitempty"`
	BillTo    string    `yaml:"bill_to,omitempty" json:"billTo,omitempty"`
	Notes     string    `yaml:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt time.Time `yaml:"created_at" json:"createdAt"`
}

// YearData is the persisted record for one tax year.
type YearData struct {
	Year         int                   `yaml:"year" json:"year"`
	Inputs       CalculatorInputValues `yaml:"inputs" json:"inputs"`
	Defaults     CalculatorInputValues `yaml:"defaults" json:"defaults"`
	Transactions []RevenueTransaction  `yaml:"transactions" json:"transactions"`
	LastUpdated  time.Time             `yaml:"last_updated" json:"lastUpdated"`
}

// NewYearData builds the record that gets saved for a year. Attachments are
// dropped from the transactions since they are stored separately.
func NewYearData(year int, inputs, defaults CalculatorInputValues, txs []RevenueTransaction, now time.Time) *YearData {
	return &YearData{
		Year:         year,
		Inputs:       inputs,
		Defaults:     defaults,
		Transactions: StripAttachments(txs),
		LastUpdated:  now.UTC(),
	}
}

// StripAttachments returns copies of txs without attachment metadata.
func StripAttachments(txs []RevenueTransaction) []RevenueTransaction {
	out := make([]RevenueTransaction, 0, len(txs))
	for _, tx := range txs {
		tx.Attachments = nil
		out = append(out, tx)
	}
	return out
}

// TotalRevenue sums the transaction amounts.
func TotalRevenue(txs []RevenueTransaction) decimal.Decimal {
	amounts := make([]decimal.Decimal, len(txs))
	for i, tx := range txs {
		amounts[i] = tx.Amount
	}
	return money.Sum(amounts...)
}

// SortTransactions orders transactions newest first. Ties keep their
// relative order.
func SortTransactions(txs []RevenueTransaction) {
	sort.SliceStable(txs, func(i, j int) bool { return txs[i].Date > txs[j].Date })
}

// MergeTransactions combines two transaction lists by ID; entries in primary
// win over entries with the same ID in fallback. The result is sorted newest
// first.
func MergeTransactions(primary, fallback []RevenueTransaction) []RevenueTransaction {
	seen := make(map[string]struct{}, len(primary))
	out := make([]RevenueTransaction, 0, len(primary)+len(fallback))
	for _, tx := range primary {
		seen[tx.ID] = struct{}{}
		out = append(out, tx)
	}
	for _, tx := range fallback {
		if _, ok := seen[tx.ID]; ok {
			continue
		}
		seen[tx.ID] = struct{}{}
		out = append(out, tx)
	}
	SortTransactions(out)
	return out
}
