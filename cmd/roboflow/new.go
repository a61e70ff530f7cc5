package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/aretw0/roboflow"
	"github.com/aretw0/roboflow/pkg/scenario"
)

var newCmd = &cobra.Command{
	Use:   "new [name]",
	Short: "Add a blank scenario to the project",
	Long: `Appends a scenario with a single blank initial state to the project file,
creating the file when it does not exist. Without a name, the first free "Scenario N" is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := roboflow.LoadProject(cfg.Project)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			p = scenario.NewProject()
		case err != nil:
			return err
		}

		var name string
		if len(args) > 0 {
			name = args[0]
		}
		editor := scenario.NewEditor(p)
		name, err = editor.CreateScenario(name)
		if err != nil {
			return err
		}
		if err := roboflow.SaveProject(cfg.Project, editor.Project()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created scenario %q in %s\n", name, cfg.Project)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(newCmd)
}
