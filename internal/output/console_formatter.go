package output

import (
	"bytes"
	"fmt"
	"sort"
)

// ConsoleFormatter renders the plain-text summary, followed by any field
// errors that caused the last valid inputs to be used.
type ConsoleFormatter struct{}

func (c ConsoleFormatter) Name() string { return "console" }
func (c ConsoleFormatter) Ext() string  { return "txt" }

func (c ConsoleFormatter) Format(report *Report) ([]byte, error) {
	var buf bytes.Buffer
	for _, line := range summaryLines(report.Evaluation) {
		fmt.Fprintln(&buf, line)
	}

	if errs := report.Evaluation.Errors; len(errs) > 0 {
		fields := make([]string, 0, len(errs))
		for f := range errs {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		fmt.Fprintln(&buf)
		fmt.Fprintln(&buf, "Input errors (showing last valid values):")
		for _, f := range fields {
			fmt.Fprintf(&buf, "  %s: %s\n", f, errs[f])
		}
	}
	return buf.Bytes(), nil
}
