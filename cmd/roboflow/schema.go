package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/roboflow/pkg/scenario"
)

var schemaCmd = &cobra.Command{
	Use:   "schema [record]",
	Short: "Print the record schema of the project format",
	Long:  `Prints the field descriptors of every persisted record type, or of one record, as JSON.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := scenario.Registry()

		var v any = map[string]any{
			"records":  reg.Records(),
			"families": reg.Families(),
		}
		if len(args) > 0 {
			rt, ok := reg.Record(args[0])
			if !ok {
				return fmt.Errorf("unknown record %q", args[0])
			}
			v = rt
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}
