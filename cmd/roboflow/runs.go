package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/roboflow"
	"github.com/aretw0/roboflow/internal/cli"
	"github.com/aretw0/roboflow/internal/presentation/tui"
	"github.com/aretw0/roboflow/pkg/ports"
	"github.com/aretw0/roboflow/pkg/scenario"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Manage saved run reports",
	Long:  `List, inspect, and remove the run reports kept in the configured store.`,
}

var runsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List saved runs",
	RunE: withStore(func(cmd *cobra.Command, store ports.RunStore, _ []string) error {
		ids, err := store.List(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(ids) == 0 {
			fmt.Fprintln(out, "No saved runs found.")
			return nil
		}
		for _, id := range ids {
			r, err := store.Load(cmd.Context(), id)
			if err != nil {
				fmt.Fprintf(out, "- %s (unreadable: %v)\n", id, err)
				continue
			}
			fmt.Fprintf(out, "- %s  %-8s %s  %s\n", id, r.Outcome, r.StartedAt.Format("2006-01-02 15:04:05"), r.Scenario)
		}
		return nil
	}),
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a run report",
	Args:  cobra.ExactArgs(1),
	RunE: withStore(func(cmd *cobra.Command, store ports.RunStore, args []string) error {
		r, err := store.Load(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		// The scenario is only used to name visited states.
		var sc *scenario.Scenario
		if p, err := roboflow.LoadProject(cfg.Project); err == nil {
			sc, _ = p.Scenario(r.Scenario)
		}
		jsonMode, _ := cmd.Flags().GetBool("json")
		return cli.WriteReport(cmd.OutOrStdout(), r, sc, cli.RunOptions{
			JSON:     jsonMode,
			Renderer: tui.RendererFor(os.Stdout),
		})
	}),
}

var runsRmCmd = &cobra.Command{
	Use:   "rm <run-id>...",
	Short: "Remove run reports",
	Args:  cobra.MinimumNArgs(1),
	RunE: withStore(func(cmd *cobra.Command, store ports.RunStore, args []string) error {
		for _, id := range args {
			if err := store.Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", id)
		}
		return nil
	}),
}

// withStore opens the configured run store for the duration of fn.
func withStore(fn func(*cobra.Command, ports.RunStore, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		backend, err := cli.OpenBackend(cfg.Store)
		if err != nil {
			return err
		}
		defer backend.Close()
		if backend.Store == nil {
			return fmt.Errorf("store driver %q keeps no runs", cfg.Store.Driver)
		}
		return fn(cmd, backend.Store, args)
	}
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsLsCmd, runsShowCmd, runsRmCmd)
	runsShowCmd.Flags().Bool("json", false, "Print the report as JSON")
}
