package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/roboflow/internal/cli"
	"github.com/aretw0/roboflow/internal/config"
)

var (
	cfgFile string
	cfg     config.Config
)

var rootCmd = &cobra.Command{
	Use:   "roboflow",
	Short: "Roboflow runs scenario-driven UI automation on Android devices",
	Long: `Roboflow executes scenarios (graphs of states with actions and XPath guards)
against a device reached through adb, and keeps a report of every run.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, cli.ErrRunFailed) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cfgFile, "config", "c", "", "Config file (default "+config.DefaultFile+" if present)")
	flags.StringP("project", "p", "", "Project XML file")
	flags.String("log-level", "", "Log level: debug, info, warn, error")
	flags.String("log-format", "", "Log format: text or json")
	flags.String("store", "", "Run store driver: none, memory, file, redis, sqlite, postgres")
	flags.StringP("serial", "s", "", "adb serial of the target device")
}

// loadConfig reads the config file and environment, then applies explicit flags.
func loadConfig(cmd *cobra.Command, _ []string) error {
	loaded, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	overrides := []struct {
		flag string
		dst  *string
	}{
		{"project", &loaded.Project},
		{"log-level", &loaded.LogLevel},
		{"log-format", &loaded.LogFormat},
		{"store", &loaded.Store.Driver},
		{"serial", &loaded.Device.Serial},
	}
	for _, o := range overrides {
		if flags.Changed(o.flag) {
			*o.dst, _ = flags.GetString(o.flag)
		}
	}
	if err := loaded.Validate(); err != nil {
		return err
	}
	cfg = loaded
	return nil
}
