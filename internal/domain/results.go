package domain

import "github.com/shopspring/decimal"

// CalculatorResults is derived from CalculatorInputs on every pass and never
// stored as a source of truth.
type CalculatorResults struct {
	TaxableBase        decimal.Decimal `json:"taxableBase"`
	Inps               decimal.Decimal `json:"inps"`
	BaseAfterDeduction decimal.Decimal `json:"baseAfterDeduction"`
	Tax                decimal.Decimal `json:"tax"`
	TotalDue           decimal.Decimal `json:"totalDue"`
	EffectiveInpsRate  decimal.Decimal `json:"effectiveInpsRate"`
	EffectiveTaxRate   decimal.Decimal `json:"effectiveTaxRate"`
	EffectiveTotalRate decimal.Decimal `json:"effectiveTotalRate"`
}

// ScheduleSplit holds the June/November acconto percentages.
type ScheduleSplit struct {
	June     decimal.Decimal `json:"june"`
	November decimal.Decimal `json:"november"`
	Model    SplitModel      `json:"model"`
}

// ScheduleKey identifies a payment deadline.
type ScheduleKey string

const (
	ScheduleJune     ScheduleKey = "june"
	ScheduleNovember ScheduleKey = "november"
)

// ScheduleItem is one line of the payment schedule.
type ScheduleItem struct {
	Key     ScheduleKey     `json:"key"`
	Amount  decimal.Decimal `json:"amount"`
	Saldo   decimal.Decimal `json:"saldo"`
	Acconto decimal.Decimal `json:"acconto"`
}

// Evaluation bundles everything computed for one year in a single pass.
type Evaluation struct {
	Inputs      CalculatorInputs  `json:"inputs"`
	Results     CalculatorResults `json:"results"`
	Split       ScheduleSplit     `json:"split"`
	AccontoBase decimal.Decimal   `json:"accontoBase"`
	Schedule    []ScheduleItem    `json:"schedule"`

	// Errors carries the field errors of the submitted values. When it is not
	// empty, Inputs is the last known good record rather than the submission.
	Errors map[string]string `json:"errors,omitempty"`

	// RevenueFromTransactions is set when Inputs.Revenue was replaced by the
	// sum of the year's transactions.
	RevenueFromTransactions bool `json:"revenueFromTransactions"`
	TransactionCount        int  `json:"transactionCount"`
}
