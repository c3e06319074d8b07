package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"diarygraph/backend/internal/ui"
	"diarygraph/backend/pkg/logger"
)

var version = "0.3.0"

// NewRootCmd builds the graphctl command tree
func NewRootCmd() *cobra.Command {
	var verbose bool
	var env string

	root := &cobra.Command{
		Use:   "graphctl",
		Short: "graphctl — inspect and seed diary graph layouts",
		Long: ui.Brand.Sprint("graphctl") + " — run the graph view pipeline offline\n" +
			ui.Subtle.Sprint("Plan, simulate and inspect layouts, seed Neo4j and analyse entries"),
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Library logging stays a no-op unless asked for
			if verbose {
				return logger.Init(env)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Sync()
		},
	}

	root.SetVersionTemplate("graphctl {{ .Version }}\n")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log pipeline activity to stderr")
	root.PersistentFlags().StringVar(&env, "env", "development", "Logger environment (development or production)")

	root.AddCommand(
		layoutCmd(),
		facetsCmd(),
		seedCmd(),
		analyzeCmd(),
	)
	return root
}

// Execute runs the root command until it finishes or a signal arrives.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}
