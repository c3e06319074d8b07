package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"diarygraph/backend/internal/diary"
	"diarygraph/backend/internal/layout"
	"diarygraph/backend/internal/ui"
)

func facetsCmd() *cobra.Command {
	var (
		entriesFile string
		entityTypes []string
		asJSON      bool
	)

	cmd := &cobra.Command{
		Use:   "facets",
		Short: "List the filter values available in an entries file",
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := diary.ReadEntriesFile(entriesFile)
			if err != nil {
				return err
			}
			facets := layout.CollectFacets(layout.Normalize(entries), entityTypes)

			w := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(facets)
			}

			ui.Banner(w, fmt.Sprintf("facets of %d entries", len(entries)))
			rows := [][]string{
				{"moods", joinOrNone(facets.Moods)},
				{"tags", joinOrNone(facets.Tags)},
				{"entities", joinOrNone(facets.Entities)},
				{"entity types", joinOrNone(facets.EntityTypes)},
				{"countries", joinOrNone(facets.Countries)},
				{"cities", joinOrNone(facets.Cities)},
			}
			ui.Table(w, []string{"FACET", "VALUES"}, rows)
			return nil
		},
	}

	cmd.Flags().StringVar(&entriesFile, "entries", "", "JSON file with diary entries")
	cmd.Flags().StringSliceVar(&entityTypes, "entity-type", nil, "Restrict entities to these types")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	_ = cmd.MarkFlagRequired("entries")
	return cmd
}

func joinOrNone(values []string) string {
	if len(values) == 0 {
		return "-"
	}
	return strings.Join(values, ", ")
}
