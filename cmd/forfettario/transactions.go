package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/melnicenkovadik/my-tax-calculator/internal/domain"
	"github.com/melnicenkovadik/my-tax-calculator/internal/output"
	"github.com/melnicenkovadik/my-tax-calculator/internal/store"
	"github.com/melnicenkovadik/my-tax-calculator/internal/validation"
	"github.com/melnicenkovadik/my-tax-calculator/pkg/dateutil"
)

// txFlags are the editable fields of a transaction.
type txFlags struct {
	date        string
	amount      string
	description string
	sender      string
	billTo      string
	notes       string
	causale     string
}

func (f *txFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.date, "date", "", "payment date, YYYY-MM-DD")
	fl.StringVar(&f.amount, "amount", "", "amount in euros")
	fl.StringVar(&f.description, "description", "", "description")
	fl.StringVar(&f.sender, "sender", "", "who paid")
	fl.StringVar(&f.billTo, "bill-to", "", "invoice recipient")
	fl.StringVar(&f.notes, "notes", "", "free notes")
	fl.StringVar(&f.causale, "causale", "", "payment reason")
}

// apply overwrites the fields of in whose flags were set.
func (f *txFlags) apply(cmd *cobra.Command, in validation.TransactionInput) validation.TransactionInput {
	changed := cmd.Flags().Changed
	set := func(name string, dst *string, value string) {
		if changed(name) {
			*dst = value
		}
	}
	set("date", &in.Date, f.date)
	set("description", &in.Description, f.description)
	set("sender", &in.Sender, f.sender)
	set("bill-to", &in.BillTo, f.billTo)
	set("notes", &in.Notes, f.notes)
	set("causale", &in.Causale, f.causale)
	if changed("amount") {
		in.Amount = domain.NumericString(f.amount)
	}
	return in
}

func inputFromTransaction(tx domain.RevenueTransaction) validation.TransactionInput {
	return validation.TransactionInput{
		ID:          tx.ID,
		Date:        tx.Date,
		Amount:      domain.NumericString(tx.Amount.String()),
		Description: tx.Description,
		Sender:      tx.Sender,
		BillTo:      tx.BillTo,
		Notes:       tx.Notes,
		Causale:     tx.Causale,
	}
}

func newTxCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tx",
		Aliases: []string{"transactions"},
		Short:   "Manage revenue transactions",
	}
	cmd.AddCommand(newTxAddCmd(a), newTxListCmd(a), newTxUpdateCmd(a), newTxDeleteCmd(a))
	return cmd
}

func newTxAddCmd(a *app) *cobra.Command {
	var (
		flags      txFlags
		year       int
		templateID string
		id         string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a payment received",
		Example: `  forfettario tx add --date 2025-03-05 --amount 1500,50 --sender "ACME srl"
  forfettario tx add --template 1741170000000-k3j9x0ab --amount 800`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := validation.TransactionInput{ID: id, Date: dateutil.FromTime(time.Now())}
			if templateID != "" {
				tpl, err := a.store.Template(cmd.Context(), templateID)
				if err != nil {
					return err
				}
				in.Sender, in.BillTo, in.Notes = tpl.Sender, tpl.BillTo, tpl.Notes
			}
			tx, err := validation.NormalizeTransaction(flags.apply(cmd, in))
			if err != nil {
				return err
			}

			target := year
			if target == 0 {
				target, _ = dateutil.Year(tx.Date)
			}
			saved, err := a.store.AddTransaction(cmd.Context(), target, tx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %s to %d: %s on %s\n", saved.ID, target, output.FormatCurrency(saved.Amount), saved.Date)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().IntVarP(&year, "year", "y", 0, "tax year (default: the year of --date)")
	cmd.Flags().StringVar(&templateID, "template", "", "prefill sender, bill-to and notes from a template")
	cmd.Flags().StringVar(&id, "id", "", "transaction UUID (default: generated)")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func newTxListCmd(a *app) *cobra.Command {
	var year int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a year's transactions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if year == 0 {
				year = time.Now().Year()
			}
			y, err := a.store.Year(cmd.Context(), year)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "DATE\tAMOUNT\tSENDER\tDESCRIPTION\tID")
			for _, tx := range y.Transactions {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", tx.Date, output.FormatCurrency(tx.Amount), tx.Sender, tx.Description, tx.ID)
			}
			fmt.Fprintf(w, "\t%s\t\t%d transactions\t\n", output.FormatCurrency(domain.TotalRevenue(y.Transactions)), len(y.Transactions))
			return w.Flush()
		},
	}
	cmd.Flags().IntVarP(&year, "year", "y", 0, "tax year (default: current year)")
	return cmd
}

// findTransaction looks id up across every stored year.
func findTransaction(cmd *cobra.Command, a *app, id string) (domain.RevenueTransaction, error) {
	years, err := a.store.Years(cmd.Context())
	if err != nil {
		return domain.RevenueTransaction{}, err
	}
	for _, year := range years {
		y, err := a.store.Year(cmd.Context(), year)
		if err != nil {
			return domain.RevenueTransaction{}, err
		}
		for _, tx := range y.Transactions {
			if tx.ID == id {
				return tx, nil
			}
		}
	}
	return domain.RevenueTransaction{}, fmt.Errorf("transaction %s: %w", id, store.ErrNotFound)
}

func newTxUpdateCmd(a *app) *cobra.Command {
	var flags txFlags
	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Change the fields of a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			current, err := findTransaction(cmd, a, args[0])
			if err != nil {
				return err
			}
			tx, err := validation.NormalizeTransaction(flags.apply(cmd, inputFromTransaction(current)))
			if err != nil {
				return err
			}
			tx.ID = current.ID
			saved, err := a.store.UpdateTransaction(cmd.Context(), tx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "updated %s: %s on %s\n", saved.ID, output.FormatCurrency(saved.Amount), saved.Date)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newTxDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.store.DeleteTransaction(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}

type templateFlags struct {
	name   string
	sender string
	billTo string
	notes  string
}

func (f *templateFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.name, "name", "", "template name")
	fl.StringVar(&f.sender, "sender", "", "default sender")
	fl.StringVar(&f.billTo, "bill-to", "", "default invoice recipient")
	fl.StringVar(&f.notes, "notes", "", "default notes")
}

func (f *templateFlags) apply(cmd *cobra.Command, in validation.TemplateInput) validation.TemplateInput {
	changed := cmd.Flags().Changed
	if changed("name") {
		in.Name = f.name
	}
	if changed("sender") {
		in.Sender = f.sender
	}
	if changed("bill-to") {
		in.BillTo = f.billTo
	}
	if changed("notes") {
		in.Notes = f.notes
	}
	return in
}

func newTemplatesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "templates",
		Aliases: []string{"tpl"},
		Short:   "Manage transaction templates",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List templates, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tpls, err := a.store.Templates(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tSENDER\tBILL TO")
			for _, t := range tpls {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.ID, t.Name, t.Sender, t.BillTo)
			}
			return w.Flush()
		},
	}

	var addFlags templateFlags
	add := &cobra.Command{
		Use:   "add",
		Short: "Create a template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tpl, err := validation.NormalizeTemplate(addFlags.apply(cmd, validation.TemplateInput{}))
			if err != nil {
				return err
			}
			saved, err := a.store.CreateTemplate(cmd.Context(), tpl)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created template %s\n", saved.ID)
			return nil
		},
	}
	addFlags.register(add)
	_ = add.MarkFlagRequired("name")

	var updateFlags templateFlags
	update := &cobra.Command{
		Use:   "update ID",
		Short: "Change a template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			current, err := a.store.Template(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			in := validation.TemplateInput{Name: current.Name, Sender: current.Sender, BillTo: current.BillTo, Notes: current.Notes}
			tpl, err := validation.NormalizeTemplate(updateFlags.apply(cmd, in))
			if err != nil {
				return err
			}
			tpl.ID, tpl.CreatedAt = current.ID, current.CreatedAt
			if _, err := a.store.UpdateTemplate(cmd.Context(), tpl); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "updated template %s\n", tpl.ID)
			return nil
		},
	}
	updateFlags.register(update)

	del := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.store.DeleteTemplate(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted template %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(list, add, update, del)
	return cmd
}
