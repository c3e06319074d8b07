package cli

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/spf13/cobra"

	"diarygraph/backend/internal/diary"
	"diarygraph/backend/internal/graph"
	"diarygraph/backend/internal/ui"
	"diarygraph/backend/pkg/config"
)

func seedCmd() *cobra.Command {
	var (
		entriesFile string
		userID      string
		reset       bool
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Write entries from a JSON file to Neo4j",
		Long: `Load entries into Neo4j for one user. Connection settings come from
NEO4J_URI, NEO4J_USER and NEO4J_PASSWORD (or a .env file).

  graphctl seed --entries entries.json --user alice
  graphctl seed --entries entries.json --user alice --reset`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			w := cmd.OutOrStdout()

			entries, err := diary.ReadEntriesFile(entriesFile)
			if err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			repo, err := openRepository(ctx, cfg)
			if err != nil {
				return err
			}
			defer repo.Close()

			ui.Banner(w, "seed "+cfg.Neo4jURI)

			if err := repo.EnsureSchema(ctx); err != nil {
				fmt.Fprintf(w, "  %s schema: %v\n", ui.WarnIcon(), err)
			}

			if reset {
				deleted, err := repo.DeleteUserEntries(ctx, userID)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "  %s removed %d existing entries\n", ui.StatusIcon(true), deleted)
			}

			if err := repo.SaveEntries(ctx, userID, entries); err != nil {
				return err
			}
			fmt.Fprintf(w, "  %s saved %d entries for %s\n", ui.StatusIcon(true), len(entries), ui.Info.Sprint(userID))
			return nil
		},
	}

	cmd.Flags().StringVar(&entriesFile, "entries", "", "JSON file with diary entries")
	cmd.Flags().StringVar(&userID, "user", "", "User the entries belong to")
	cmd.Flags().BoolVar(&reset, "reset", false, "Delete the user's existing entries first")
	_ = cmd.MarkFlagRequired("entries")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

// openRepository connects to Neo4j and verifies the connection
func openRepository(ctx context.Context, cfg *config.Config) (*graph.Repository, error) {
	driver, err := neo4j.NewDriverWithContext(
		cfg.Neo4jURI,
		neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPassword, ""),
	)
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(context.Background())
		return nil, fmt.Errorf("verify neo4j connectivity: %w", err)
	}
	return graph.NewRepository(driver), nil
}
