package output

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrUnsupportedFormat is returned for format names no formatter answers to.
var ErrUnsupportedFormat = errors.New("unsupported report format")

// Formatter defines a pluggable output formatter that returns a byte slice.
// Implementations must be pure: the same report yields the same bytes.
type Formatter interface {
	Format(report *Report) ([]byte, error)
	// Name returns the canonical format identifier.
	Name() string
	// Ext is the file extension used when the output is written to disk.
	Ext() string
}

// FormatterFunc adapter to allow ordinary functions to act as a Formatter.
type FormatterFunc struct {
	ID        string
	Extension string
	F         func(*Report) ([]byte, error)
}

func (ff FormatterFunc) Format(r *Report) ([]byte, error) { return ff.F(r) }
func (ff FormatterFunc) Name() string                     { return ff.ID }
func (ff FormatterFunc) Ext() string                      { return ff.Extension }

// WriteFormatted runs a formatter and writes its output into dir under a
// timestamped name. It returns the path written.
func WriteFormatted(f Formatter, report *Report, dir string) (string, error) {
	data, err := f.Format(report)
	if err != nil {
		return "", err
	}
	if dir == "" {
		dir = "."
	}
	name := fmt.Sprintf("forfettario_report_%d_%s", report.Evaluation.Inputs.Year, report.GeneratedAt.Format("20060102_150405"))
	if f.Name() != f.Ext() {
		// keeps formats that share an extension apart
		name += "_" + f.Name()
	}
	filename := filepath.Join(dir, name+"."+f.Ext())
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return "", err
	}
	return filename, nil
}

var builtInFormatters = []Formatter{
	ConsoleFormatter{},
	CSVScheduleFormatter{},
	CSVTransactionsFormatter{},
	HTMLFormatter{},
	JSONFormatter{},
	PDFFormatter{},
}

// GetFormatterByName fetches a registered formatter, resolving aliases.
func GetFormatterByName(name string) Formatter {
	n := NormalizeFormatName(name)
	for _, f := range builtInFormatters {
		if f.Name() == n {
			return f
		}
	}
	return nil
}

// aliasMap provides user-friendly synonyms for format names.
var aliasMap = map[string]string{
	"text":         "console",
	"txt":          "console",
	"summary":      "console",
	"csv-schedule": "csv",
	"transactions": "csv-transactions",
	"csv-detailed": "csv-transactions",
	"html-report":  "html",
	"json-pretty":  "json",
	"pdf-summary":  "pdf",
	"scadenze":     "csv",
}

// NormalizeFormatName lowers and resolves aliases.
func NormalizeFormatName(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	if mapped, ok := aliasMap[n]; ok {
		return mapped
	}
	return n
}

// AvailableFormatterNames returns the canonical formatter names.
func AvailableFormatterNames() []string {
	names := make([]string, 0, len(builtInFormatters))
	for _, f := range builtInFormatters {
		names = append(names, f.Name())
	}
	sort.Strings(names)
	return names
}

// AvailableFormatAliases returns the supported alias keys.
func AvailableFormatAliases() []string {
	keys := make([]string, 0, len(aliasMap))
	for k := range aliasMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
