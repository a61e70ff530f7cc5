package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/roboflow"
	"github.com/aretw0/roboflow/internal/validator"
	"github.com/aretw0/roboflow/pkg/scenario"
)

var validateCmd = &cobra.Command{
	Use:   "validate [scenario...]",
	Short: "Check scenarios for consistency",
	Long: `Decodes the project, checks every scenario (or the named ones) for structural errors and
invalid XPath guards, and reports unreachable states and successors that can never be selected.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := roboflow.LoadProject(cfg.Project)
		if err != nil {
			return err
		}
		if err := p.Validate(); err != nil {
			return err
		}

		targets := p.Scenarios
		if len(args) > 0 {
			targets = nil
			for _, name := range args {
				sc, ok := p.Scenario(name)
				if !ok {
					return fmt.Errorf("%w: %q", scenario.ErrScenarioNotFound, name)
				}
				targets = append(targets, *sc)
			}
		}

		out := cmd.OutOrStdout()
		var errs []error
		for i := range targets {
			sc := &targets[i]
			if err := roboflow.Validate(sc); err != nil {
				fmt.Fprintf(out, "✗ %s\n", sc.Name)
				errs = append(errs, err)
				continue
			}
			fmt.Fprintf(out, "✓ %s\n", sc.Name)
			for _, w := range validator.Lint(sc) {
				fmt.Fprintf(out, "  warning: %s\n", w)
			}
		}
		if err := errors.Join(errs...); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		fmt.Fprintln(out, "Project is valid! ✅")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
