package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/melnicenkovadik/my-tax-calculator/internal/backup"
	"github.com/melnicenkovadik/my-tax-calculator/internal/logger"
	"github.com/melnicenkovadik/my-tax-calculator/internal/output"
	"github.com/melnicenkovadik/my-tax-calculator/internal/store"
	"github.com/melnicenkovadik/my-tax-calculator/internal/validation"
)

func parseYearArg(s string) (int, error) {
	year, err := strconv.Atoi(s)
	if err != nil || year < validation.MinYear || year > validation.MaxYear {
		return 0, fmt.Errorf("invalid year %q: expected %d-%d", s, validation.MinYear, validation.MaxYear)
	}
	return year, nil
}

func newYearsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "years",
		Short: "List, show and delete stored years",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List stored years, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			years, err := a.store.Years(cmd.Context())
			if err != nil {
				return err
			}
			if len(years) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no years stored")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "YEAR\tREVENUE\tTOTAL DUE\tTRANSACTIONS\tUPDATED")
			for _, year := range years {
				y, err := a.store.Year(cmd.Context(), year)
				if err != nil {
					return err
				}
				ev := a.engine.EvaluateYear(y)
				fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\n", year,
					output.FormatCurrency(ev.Inputs.Revenue), output.FormatCurrency(ev.Results.TotalDue),
					len(y.Transactions), y.LastUpdated.Local().Format("2006-01-02 15:04"))
			}
			return w.Flush()
		},
	}

	show := &cobra.Command{
		Use:   "show YEAR",
		Short: "Print the stored record of a year as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			year, err := parseYearArg(args[0])
			if err != nil {
				return err
			}
			y, err := a.store.Year(cmd.Context(), year)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(y); err != nil {
				return err
			}
			return enc.Close()
		},
	}

	var yes bool
	del := &cobra.Command{
		Use:   "delete YEAR",
		Short: "Delete a year and all of its transactions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			year, err := parseYearArg(args[0])
			if err != nil {
				return err
			}
			if !yes {
				return fmt.Errorf("refusing to delete %d without --yes", year)
			}
			if err := a.store.DeleteYear(cmd.Context(), year); err != nil {
				return err
			}
			logger.FromContext(cmd.Context()).Info("year deleted", "year", year)
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d\n", year)
			return nil
		},
	}
	del.Flags().BoolVar(&yes, "yes", false, "confirm the deletion")

	cmd.AddCommand(list, show, del)
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var (
		year int
		out  string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a year as a JSON backup",
		Long:  "Export a year as a JSON backup. A year that was never saved exports its default inputs.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if year == 0 {
				year = time.Now().Year()
			}
			y, err := a.store.Year(cmd.Context(), year)
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				return err
			}
			data, err := backup.Export(year, y)
			if err != nil {
				return err
			}
			data = append(data, '\n')

			if out == "-" {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}
			if out == "" {
				out = backup.FileName(year)
			} else if info, statErr := os.Stat(out); statErr == nil && info.IsDir() {
				out = filepath.Join(out, backup.FileName(year))
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().IntVarP(&year, "year", "y", 0, "tax year (default: current year)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "file or directory to write, - for stdout (default: forfettario-<year>.json)")
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	var year int
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import a JSON backup into a year",
		Long:  "Import a JSON backup into a year, replacing its inputs. The year inside the backup is ignored; use --year to pick the target. FILE may be - for stdin.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if year == 0 {
				year = time.Now().Year()
			}
			var (
				data []byte
				err  error
			)
			if args[0] == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("failed to read file %s: %w", args[0], err)
			}

			y, err := backup.Import(data, year, time.Now())
			if err != nil {
				return err
			}
			if err := a.store.SaveYear(cmd.Context(), y); err != nil {
				return err
			}
			logger.FromContext(cmd.Context()).Info("year imported", "year", year, "transactions", len(y.Transactions))
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d transactions into %d\n", len(y.Transactions), year)
			return nil
		},
	}
	cmd.Flags().IntVarP(&year, "year", "y", 0, "target tax year (default: current year)")
	return cmd
}
