package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/roboflow"
	"github.com/aretw0/roboflow/internal/cli"
	"github.com/aretw0/roboflow/internal/presentation/graph"
	"github.com/aretw0/roboflow/pkg/scenario"
)

var graphCmd = &cobra.Command{
	Use:   "graph <scenario>",
	Short: "Export a scenario's state graph",
	Long: `Outputs a Mermaid diagram (graph TD) of the scenario. With --run, the states visited
by that run are highlighted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := roboflow.LoadProject(cfg.Project)
		if err != nil {
			return err
		}
		sc, ok := p.Scenario(args[0])
		if !ok {
			return fmt.Errorf("%w: %q", scenario.ErrScenarioNotFound, args[0])
		}

		var overlay *graph.GraphOverlay
		if runID, _ := cmd.Flags().GetString("run"); runID != "" {
			backend, err := cli.OpenBackend(cfg.Store)
			if err != nil {
				return err
			}
			defer backend.Close()
			if backend.Store == nil {
				return fmt.Errorf("--run needs a run store")
			}
			report, err := backend.Store.Load(cmd.Context(), runID)
			if err != nil {
				return err
			}
			overlay = graph.OverlayFromReport(report)
		}

		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(sc, overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("run", "", "Highlight the trace of this run id")
}
