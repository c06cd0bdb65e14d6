package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mmynk/ajo/internal/clock"
	"github.com/mmynk/ajo/internal/config"
	"github.com/mmynk/ajo/internal/notify"
	"github.com/mmynk/ajo/internal/rotation"
	"github.com/mmynk/ajo/internal/storage/sqlite"
)

// app is the state shared by every subcommand for one invocation.
type app struct {
	out io.Writer

	dbPath string
	as     string
	at     uint64
	json   bool

	store  *sqlite.SQLiteStore
	engine *rotation.Engine
}

// run executes one ajoctl invocation and releases the database afterwards.
func run(args []string, out io.Writer) error {
	a := &app{out: out}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(out)

	err := root.ExecuteContext(context.Background())
	if a.store != nil {
		if cerr := a.store.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:               "ajoctl",
		Short:             "Operate Ajo rotating savings groups",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.open,
	}

	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "database path (default: $AJO_DB_PATH or ./data/ajo.db)")
	root.PersistentFlags().StringVar(&a.as, "as", os.Getenv("AJO_AS"), "identity to act as")
	root.PersistentFlags().Uint64Var(&a.at, "at", 0, "pin the clock to this unix time")
	root.PersistentFlags().BoolVar(&a.json, "json", false, "output as JSON")
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	root.AddCommand(
		a.createCmd(),
		a.joinCmd(),
		a.contributeCmd(),
		a.payoutCmd(),
		a.cancelCmd(),
		a.withdrawCmd(),
		a.eligibleCmd(),
		a.metaCmd(),
		a.showCmd(),
		a.listCmd(),
		a.statusCmd(),
		a.membersCmd(),
		a.contributionsCmd(),
	)
	return root
}

// open loads the engine rules from the environment and attaches the store.
func (a *app) open(cmd *cobra.Command, _ []string) error {
	rules, err := config.LoadRules()
	if err != nil {
		return usageError{err}
	}
	if a.dbPath == "" {
		a.dbPath = rules.DBPath
	}

	store, err := sqlite.New(a.dbPath)
	if err != nil {
		return err
	}
	a.store = store

	var clk clock.Clock = clock.System{}
	if a.at != 0 {
		clk = clock.NewManual(a.at)
	}

	a.engine = rotation.New(store, rotation.Options{
		Clock:              clk,
		Sink:               notify.NewLogSink(slog.Default()),
		EnforceCycleWindow: rules.EnforceCycleWindow,
		MaxMembersLimit:    rules.MaxMembersLimit,
		PenaltyPercent:     rules.PenaltyPercent,
	})
	return nil
}

func (a *app) identity() (string, error) {
	if a.as == "" {
		return "", usagef("--as is required for this command")
	}
	return a.as, nil
}

func parseGroupID(arg string) (uint64, error) {
	id, err := strconv.ParseUint(arg, 10, 64)
	if err != nil || id == 0 {
		return 0, usagef("invalid group id %q", arg)
	}
	return id, nil
}
