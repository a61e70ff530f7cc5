package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/roboflow/internal/cli"
	"github.com/aretw0/roboflow/internal/presentation/tui"
)

var runCmd = &cobra.Command{
	Use:   "run [scenario]",
	Short: "Run a scenario on the device",
	Long: `Loads the project, runs the named scenario (or the configured default) on the device
and prints the run report. The exit status is non-zero unless the run succeeds.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := cli.RunOptions{Scenario: cfg.Scenario}
		if len(args) > 0 {
			opts.Scenario = args[0]
		}
		opts.JSON, _ = cmd.Flags().GetBool("json")
		opts.Quiet, _ = cmd.Flags().GetBool("quiet")
		if cmd.Flags().Changed("max-steps") {
			cfg.MaxSteps, _ = cmd.Flags().GetInt("max-steps")
		}
		opts.Renderer = tui.RendererFor(os.Stdout)

		logger, err := cli.NewLogger(cfg)
		if err != nil {
			return err
		}
		stack, err := cli.NewStack(cfg, logger, cli.StackOptions{})
		if err != nil {
			return err
		}
		defer stack.Close()

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		// The root command does not print cli.ErrRunFailed: the report already says why.
		_, err = cli.Execute(ctx, stack, opts, cmd.OutOrStdout())
		if sig := ctx.Signal(); sig != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), ">>> Interrupted by %v\n", sig)
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Bool("json", false, "Print the report as JSON")
	runCmd.Flags().BoolP("quiet", "q", false, "Print nothing; rely on the exit status")
	runCmd.Flags().Int("max-steps", 0, "Abort after this many state entries (0 disables the limit)")
}
