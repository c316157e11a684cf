package main

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/melnicenkovadik/my-tax-calculator/internal/config"
	"github.com/melnicenkovadik/my-tax-calculator/internal/domain"
	"github.com/melnicenkovadik/my-tax-calculator/internal/logger"
	"github.com/melnicenkovadik/my-tax-calculator/internal/output"
	"github.com/melnicenkovadik/my-tax-calculator/internal/store"
	"github.com/melnicenkovadik/my-tax-calculator/internal/validation"
)

// inputFlags are the calculator inputs accepted on the command line. Only
// flags that were set override the stored (or default) values.
type inputFlags struct {
	year     int
	file     string
	ignoreTx bool

	revenue    string
	coeff      string
	taxRate    string
	inpsType   string
	inpsRate   string
	deductible bool
	acconti    bool
	split      string
	june       string
	november   string
}

func (f *inputFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.IntVarP(&f.year, "year", "y", 0, "tax year (default: current year)")
	fl.StringVarP(&f.file, "file", "f", "", "read the year from a YAML or JSON file instead of the store")
	fl.BoolVar(&f.ignoreTx, "ignore-transactions", false, "keep --revenue even when the year has transactions")

	fl.StringVar(&f.revenue, "revenue", "", "gross revenue in euros")
	fl.StringVar(&f.coeff, "coeff", "", "coefficiente di redditività, e.g. 0.78")
	fl.StringVar(&f.taxRate, "tax-rate", "", "imposta sostitutiva: 0.05 or 0.15")
	fl.StringVar(&f.inpsType, "inps-type", "", "gestione_separata or artigiani_commercianti")
	fl.StringVar(&f.inpsRate, "inps-rate", "", "Gestione Separata rate, e.g. 0.2607")
	fl.BoolVar(&f.deductible, "inps-deductible", true, "deduct INPS from the taxable base")
	fl.BoolVar(&f.acconti, "acconti", true, "schedule next year's acconti")
	fl.StringVar(&f.split, "split", "", "acconto split: standard or custom")
	fl.StringVar(&f.june, "june", "", "June acconto share for the custom split")
	fl.StringVar(&f.november, "november", "", "November acconto share for the custom split")
}

func (f *inputFlags) targetYear() int {
	if f.year != 0 {
		return f.year
	}
	return time.Now().Year()
}

// load returns the year to work on with the flag overrides applied.
func (f *inputFlags) load(cmd *cobra.Command, a *app) (*domain.YearData, error) {
	var y *domain.YearData
	if f.file != "" {
		parsed, err := config.NewInputParser().LoadFromFile(f.file)
		if err != nil {
			return nil, err
		}
		if f.year != 0 && f.year != parsed.Year {
			return nil, fmt.Errorf("--year %d does not match year %d in %s", f.year, parsed.Year, f.file)
		}
		y = parsed
	} else {
		stored, err := loadOrDefault(cmd, a, f.targetYear())
		if err != nil {
			return nil, err
		}
		y = stored
	}

	y.Inputs = f.apply(cmd, y.Inputs)
	return y, nil
}

// forEvaluation returns the year to evaluate. With --ignore-transactions it is
// a copy without transactions; y itself keeps them so saving never drops any.
func (f *inputFlags) forEvaluation(y *domain.YearData) *domain.YearData {
	if !f.ignoreTx {
		return y
	}
	cp := *y
	cp.Transactions = nil
	return &cp
}

func (f *inputFlags) apply(cmd *cobra.Command, v domain.CalculatorInputValues) domain.CalculatorInputValues {
	changed := cmd.Flags().Changed
	set := func(name string, dst *domain.NumericString, value string) {
		if changed(name) {
			*dst = domain.NumericString(value)
		}
	}
	set("revenue", &v.Revenue, f.revenue)
	set("coeff", &v.Coeff, f.coeff)
	set("tax-rate", &v.TaxRate, f.taxRate)
	set("inps-rate", &v.InpsRate, f.inpsRate)
	set("june", &v.CustomSplitJune, f.june)
	set("november", &v.CustomSplitNovember, f.november)
	if changed("inps-type") {
		v.InpsType = domain.InpsType(strings.ToLower(strings.TrimSpace(f.inpsType)))
	}
	if changed("split") {
		v.SplitModel = domain.SplitModel(strings.ToLower(strings.TrimSpace(f.split)))
	}
	if changed("inps-deductible") {
		v.InpsDeductible = f.deductible
	}
	if changed("acconti") {
		v.ApplyAcconti = f.acconti
	}
	return v
}

// loadOrDefault returns the stored year, or an unsaved record holding the
// default inputs when the year does not exist yet.
func loadOrDefault(cmd *cobra.Command, a *app, year int) (*domain.YearData, error) {
	y, err := a.store.Year(cmd.Context(), year)
	if errors.Is(err, store.ErrNotFound) {
		values := domain.DefaultInputValues(year)
		return &domain.YearData{Year: year, Inputs: values, Defaults: values}, nil
	}
	return y, err
}

func newCalcCmd(a *app) *cobra.Command {
	var (
		flags  inputFlags
		format string
	)
	cmd := &cobra.Command{
		Use:   "calc",
		Short: "Estimate tax, INPS and the payment schedule for a year",
		Example: `  forfettario calc --year 2025 --revenue 42000 --coeff 0.78 --tax-rate 0.15
  forfettario calc --file 2025.yaml --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := output.GetFormatterByName(format)
			if f == nil {
				return fmt.Errorf("%w: %q. Try one of: %s", output.ErrUnsupportedFormat, format, strings.Join(output.AvailableFormatterNames(), ", "))
			}
			y, err := flags.load(cmd, a)
			if err != nil {
				return err
			}
			y = flags.forEvaluation(y)
			ev := a.engine.EvaluateYear(y)
			data, err := f.Format(output.NewReport(ev, y.Transactions, time.Now()))
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&format, "format", "console", "output format: "+strings.Join(output.AvailableFormatterNames(), ", "))
	return cmd
}

func newScheduleCmd(a *app) *cobra.Command {
	var flags inputFlags
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Show the June and November payments for a year",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			y, err := flags.load(cmd, a)
			if err != nil {
				return err
			}
			y = flags.forEvaluation(y)
			ev := a.engine.EvaluateYear(y)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintln(w, "Deadline\tSaldo\tAcconto\tTotal\t")
			for _, item := range ev.Schedule {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t\n", deadlineLabel(item.Key),
					output.FormatCurrency(item.Saldo), output.FormatCurrency(item.Acconto), output.FormatCurrency(item.Amount))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			if ev.Inputs.ApplyAcconti {
				fmt.Fprintf(cmd.OutOrStdout(), "Acconto base %s, split %s / %s\n",
					output.FormatCurrency(ev.AccontoBase), output.FormatPercentage(ev.Split.June), output.FormatPercentage(ev.Split.November))
			}
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func deadlineLabel(k domain.ScheduleKey) string {
	if k == domain.ScheduleJune {
		return "June"
	}
	return "November"
}

func newReportCmd(a *app) *cobra.Command {
	var (
		flags  inputFlags
		format string
		outDir string
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Write the year's report to files",
		Long:  "Write the year's report in one format, or in every format with --format all.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			y, err := flags.load(cmd, a)
			if err != nil {
				return err
			}
			y = flags.forEvaluation(y)
			ev := a.engine.EvaluateYear(y)
			paths, err := output.GenerateReport(output.NewReport(ev, y.Transactions, time.Now()), format, outDir)
			for _, p := range paths {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return err
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&format, "format", "html", "report format, or all: "+strings.Join(output.AvailableFormatterNames(), ", "))
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "directory the report is written to")
	return cmd
}

func newSaveInputsCmd(a *app) *cobra.Command {
	var (
		flags      inputFlags
		asDefaults bool
	)
	cmd := &cobra.Command{
		Use:   "save-inputs",
		Short: "Validate the inputs and store them for the year",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			y, err := flags.load(cmd, a)
			if err != nil {
				return err
			}
			if res := validation.Validate(y.Inputs); !res.Valid() {
				return fmt.Errorf("inputs not saved: %s", describeErrors(res.Errors))
			}
			if asDefaults || y.Defaults.IsZero() {
				y.Defaults = y.Inputs
			}
			if err := a.store.SaveYear(cmd.Context(), y); err != nil {
				return err
			}
			logger.FromContext(cmd.Context()).Info("inputs saved", "year", y.Year, "asDefaults", asDefaults)
			fmt.Fprintf(cmd.OutOrStdout(), "saved inputs for %d\n", y.Year)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&asDefaults, "as-defaults", false, "also make these inputs the year's fallback defaults")
	return cmd
}

func describeErrors(errs map[string]string) string {
	fields := make([]string, 0, len(errs))
	for f := range errs {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f + ": " + errs[f]
	}
	return strings.Join(parts, "; ")
}
