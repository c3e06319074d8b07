package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"diarygraph/backend/internal/diary"
	"diarygraph/backend/internal/graphview"
	"diarygraph/backend/internal/layout"
	"diarygraph/backend/internal/ui"
	"diarygraph/backend/pkg/config"
)

func layoutCmd() *cobra.Command {
	var (
		entriesFile string
		tuningFile  string
		mode        string
		out         string
		ticks       int
		detailed    bool
		seed        uint64
		drillPath   []string
	)

	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Plan, build and simulate a graph from an entries file",
		Long: `Run the graph view pipeline without a server and print a summary.

  graphctl layout --entries entries.json
  graphctl layout --entries entries.json --mode tag --ticks 1200
  graphctl layout --entries entries.json --drill cluster-2024-03 --out layout.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := diary.ReadEntriesFile(entriesFile)
			if err != nil {
				return err
			}
			tuning, err := config.LoadTuning(tuningFile)
			if err != nil {
				return err
			}

			opts := graphview.OptionsFromTuning(tuning)
			opts.Seed = seed
			ctrl := graphview.NewController(entries, nil, nil, opts)

			if mode != "" {
				dim, err := layout.ParseDimension(mode)
				if err != nil {
					return err
				}
				if err := ctrl.SetClusterMode(dim); err != nil {
					return err
				}
			}
			if detailed {
				ctrl.SetForceDetailed(true)
			}
			for _, id := range drillPath {
				if err := ctrl.DrillInto(id); err != nil {
					return err
				}
			}
			for i := 0; i < ticks; i++ {
				ctrl.Tick()
			}
			ctrl.FitToScreen()

			snap := ctrl.Snapshot()
			printLayout(cmd.OutOrStdout(), len(entries), snap)

			if out != "" {
				data, err := json.MarshalIndent(snap, "", "  ")
				if err != nil {
					return fmt.Errorf("encode layout: %w", err)
				}
				if err := os.WriteFile(out, data, 0644); err != nil {
					return fmt.Errorf("write layout: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "\n  Wrote %s\n", ui.Info.Sprint(out))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&entriesFile, "entries", "", "JSON file with diary entries")
	cmd.Flags().StringVar(&tuningFile, "tuning", "", "TOML file overriding layout parameters")
	cmd.Flags().StringVar(&mode, "mode", "", "Cluster mode at the root (date, day, mood, country, city, tag, entity, entityType)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write the final snapshot as JSON")
	cmd.Flags().IntVar(&ticks, "ticks", 600, "Simulation steps to run")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "Never cluster")
	cmd.Flags().Uint64Var(&seed, "seed", 1, "Seed for initial positions (0 for random)")
	cmd.Flags().StringSliceVar(&drillPath, "drill", nil, "Cluster node ids to drill into, in order")
	_ = cmd.MarkFlagRequired("entries")
	return cmd
}

func printLayout(w io.Writer, total int, snap graphview.Snapshot) {
	ui.Banner(w, "layout")

	ui.KeyValue(w, "Entries", fmt.Sprintf("%d visible of %d", snap.VisibleEntries, total))
	ui.KeyValue(w, "Mode", fmt.Sprintf("%s (effective %s)", snap.ClusterMode, snap.EffectiveMode))
	ui.KeyValue(w, "Clustered", snap.Clustered)
	ui.KeyValue(w, "Nodes", len(snap.Nodes))
	ui.KeyValue(w, "Edges", len(snap.Edges))
	ui.KeyValue(w, "Ticks", snap.Ticks)
	ui.KeyValue(w, "Zoom", fmt.Sprintf("%.2f", snap.Zoom))
	if len(snap.Path) > 0 {
		var path []string
		for _, step := range snap.Path {
			path = append(path, fmt.Sprintf("%s=%s", step.Mode, step.Label))
		}
		ui.KeyValue(w, "Path", path)
	}

	overlaps := countOverlaps(snap.Nodes)
	ui.KeyValue(w, "Overlaps", fmt.Sprintf("%s %d", ui.StatusIcon(overlaps == 0), overlaps))
	fmt.Fprintln(w)

	if snap.Clustered {
		rows := make([][]string, 0, len(snap.Nodes))
		for _, n := range snap.Nodes {
			label := n.Label
			if n.Sentinel {
				label += " " + ui.Subtle.Sprint("(sentinel)")
			}
			rows = append(rows, []string{
				n.ID,
				label,
				fmt.Sprintf("%d", n.Count),
				fmt.Sprintf("%.1f", n.Radius),
				fmt.Sprintf("(%.0f, %.0f)", n.Position.X, n.Position.Y),
			})
		}
		ui.Table(w, []string{"ID", "LABEL", "COUNT", "RADIUS", "POSITION"}, rows)
		return
	}

	counts := make(map[layout.NodeKind]int)
	for _, n := range snap.Nodes {
		counts[n.Kind]++
	}
	kinds := make([]string, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)

	rows := make([][]string, 0, len(kinds))
	for _, k := range kinds {
		rows = append(rows, []string{k, fmt.Sprintf("%d", counts[layout.NodeKind(k)])})
	}
	ui.Table(w, []string{"KIND", "NODES"}, rows)
}

// countOverlaps counts node pairs whose circles intersect
func countOverlaps(nodes []layout.Node) int {
	n := 0
	for i := range nodes {
		for j := i + 1; j < len(nodes); j++ {
			d := nodes[i].Position.Sub(nodes[j].Position).Len()
			if d < nodes[i].Radius+nodes[j].Radius {
				n++
			}
		}
	}
	return n
}
