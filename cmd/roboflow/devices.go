package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/roboflow/pkg/adapters/adb"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List attached devices",
	RunE: func(cmd *cobra.Command, args []string) error {
		serials, err := adb.Devices(cmd.Context(), adb.ExecCommander{}, cfg.Device.ADBPath)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(serials) == 0 {
			fmt.Fprintln(out, "No devices attached.")
			return nil
		}
		for _, s := range serials {
			mark := " "
			if s == cfg.Device.Serial {
				mark = "*"
			}
			fmt.Fprintf(out, "%s %s\n", mark, s)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}
