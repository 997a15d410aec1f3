// Package cli provides the formulacore command-line interface: a thin
// shell around a resolver.Session backed by a SQLite fixture store, for
// driving and inspecting the resolution algorithm without a real
// upstream platform.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/formulacore/internal/config"
	"github.com/leapstack-labs/formulacore/internal/fixture"
	"github.com/leapstack-labs/formulacore/internal/resolver"
)

// Version is set at build time via -ldflags.
var Version = "0.1.0"

var (
	dbPath  string
	cfgFile string
	outFmt  string
	debug   bool
)

type appKey struct{}

// app bundles the fixture store, client, and resolver session a command
// needs, built once in PersistentPreRunE and torn down in
// PersistentPostRun.
type app struct {
	store   *fixture.Store
	client  *fixture.Client
	session *resolver.Session
	logger  *slog.Logger
	out     string
}

// NewRootCmd builds the formulacore root command.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "formulacore",
		Short:         "Resolve board column formulas and mirrors against a fixture store",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}
			opts, err := config.Load(".", cmd.Root().PersistentFlags())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			level := slog.LevelWarn
			if debug {
				level = slog.LevelDebug
				opts.DebugLog = true
			}
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

			store := fixture.NewStore(logger)
			if err := store.Open(dbPath); err != nil {
				return fmt.Errorf("open fixture store %q: %w", dbPath, err)
			}
			client := fixture.NewClient(store)
			session := resolver.NewSession(client, opts, logger)

			a := &app{store: store, client: client, session: session, logger: logger, out: outFmt}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey{}, a))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if a := getApp(cmd.Context()); a != nil {
				a.session.Close()
				_ = a.store.Close()
			}
		},
	}

	root.PersistentFlags().StringVar(&dbPath, "db", "formulacore.db", "path to the fixture SQLite database (':memory:' for ephemeral)")
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (currently ignored: settings are always read from ./formulacore.yaml)")
	root.PersistentFlags().StringVarP(&outFmt, "output", "o", "table", "output format: table|json")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	// Named with underscores, not the usual dash convention: posflag.Provider
	// keys flags by their literal name, and these must line up with
	// Options' koanf tags (batch_window_ms, schema_ttl_ms) for overrides
	// to take effect.
	root.PersistentFlags().Int("batch_window_ms", 0, "coordinator batch window in milliseconds (overrides config)")
	root.PersistentFlags().Int("schema_ttl_ms", 0, "schema cache TTL in milliseconds (overrides config)")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newResolveCmd())
	root.AddCommand(newResolveBatchCmd())
	root.AddCommand(newSeedCmd())
	root.AddCommand(newExplainCmd())

	return root
}

// Execute runs the root command.
func Execute() error {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

func getApp(ctx context.Context) *app {
	a, _ := ctx.Value(appKey{}).(*app)
	return a
}
