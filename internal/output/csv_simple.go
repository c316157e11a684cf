package output

import (
	"bytes"
	"encoding/csv"
	"strconv"
)

// CSVScheduleFormatter writes one row per payment deadline.
type CSVScheduleFormatter struct{}

func (c CSVScheduleFormatter) Name() string { return "csv" }
func (c CSVScheduleFormatter) Ext() string  { return "csv" }

func (c CSVScheduleFormatter) Format(report *Report) ([]byte, error) {
	ev := report.Evaluation
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	header := []string{"Year", "Deadline", "Saldo", "Acconto", "Amount", "TotalDue", "AccontoBase"}
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, item := range ev.Schedule {
		row := []string{
			strconv.Itoa(ev.Inputs.Year),
			scheduleKeyLabel(item.Key),
			plainAmount(item.Saldo),
			plainAmount(item.Acconto),
			plainAmount(item.Amount),
			plainAmount(ev.Results.TotalDue),
			plainAmount(ev.AccontoBase),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}
