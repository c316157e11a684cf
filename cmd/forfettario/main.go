// Command forfettario estimates the yearly tax, INPS contributions and
// payment schedule of an Italian regime forfettario activity, and keeps the
// years, transactions and templates in a local or shared database.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/melnicenkovadik/my-tax-calculator/internal/calculation"
	"github.com/melnicenkovadik/my-tax-calculator/internal/config"
	"github.com/melnicenkovadik/my-tax-calculator/internal/logger"
	"github.com/melnicenkovadik/my-tax-calculator/internal/sentryutil"
	"github.com/melnicenkovadik/my-tax-calculator/internal/store"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{}
	root := newRootCmd(a)
	cmd, err := root.ExecuteContextC(ctx)
	if closeErr := a.close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "forfettario:", err)
		sentryutil.CaptureError(err, map[string]string{"command": cmd.CommandPath()})
		sentryutil.Flush()
		os.Exit(1)
	}
	sentryutil.Flush()
}

// app holds what every subcommand needs. It is filled lazily by setup so
// that --help and completion never touch the database.
type app struct {
	cfg    config.Config
	log    *slog.Logger
	store  store.Store
	engine *calculation.Engine
}

func (a *app) setup(ctx context.Context) error {
	if a.store != nil {
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.cfg = cfg

	if a.log == nil {
		a.log = logger.New(cfg.LogLevel, os.Stderr)
		slog.SetDefault(a.log)
	}
	sentryutil.Init(cfg.Sentry, a.log)

	rules, err := config.LoadRules(cfg.RulesFile)
	if err != nil {
		return err
	}

	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DSN())
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Store.Driver, err)
	}
	if sqlStore, ok := st.(*store.SQLStore); ok {
		sqlStore.SetLogger(a.log)
	}
	a.store = st

	if a.engine == nil {
		a.engine = calculation.NewEngine(
			calculation.WithCaps(rules.Caps(calculation.DefaultContributionCaps())),
			calculation.WithLogger(logger.NewSlogAdapter(a.log)),
			calculation.WithCacheTTL(cfg.CacheTTL),
		)
	}
	a.log.Debug("ready", "driver", cfg.Store.Driver, "env", cfg.Env)
	return nil
}

func (a *app) close() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	return err
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "forfettario",
		Short:         "Italian regime forfettario tax estimator",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd.Context()); err != nil {
				return err
			}
			cmd.SetContext(logger.ToContext(cmd.Context(), a.log.With("command", cmd.CommandPath())))
			return nil
		},
	}
	root.AddCommand(
		newCalcCmd(a),
		newScheduleCmd(a),
		newReportCmd(a),
		newSaveInputsCmd(a),
		newYearsCmd(a),
		newTxCmd(a),
		newTemplatesCmd(a),
		newExportCmd(a),
		newImportCmd(a),
	)

	return root
}
